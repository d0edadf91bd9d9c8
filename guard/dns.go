package guard

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DnsConfig writes /etc/netns/<ns>/resolv.conf with one `nameserver` line
// per configured address, so that any process run inside the namespace via
// `ip netns exec` (or after entering it directly) picks it up automatically
// per the Linux netns resolv.conf convention. Grounded on
// namespace/linux.go's setupDNS, generalized from its hardcoded public
// resolver list to the caller-provided DNS set (the provider's defaults or
// --dns override).
type DnsConfig struct {
	logger    *slog.Logger
	namespace string
	dir       string
	path      string
}

// netnsRoot is where the kernel's `ip netns exec` convention looks for
// per-namespace resolv.conf overrides. Tests pass a different root to
// newDnsConfig instead.
const netnsRoot = "/etc/netns"

// NewDnsConfig creates <root>/<ns>/ and writes resolv.conf, defaulting root
// to /etc/netns per the kernel netns convention.
func NewDnsConfig(logger *slog.Logger, namespace string, nameservers []string) (*DnsConfig, error) {
	return newDnsConfig(logger, netnsRoot, namespace, nameservers)
}

func newDnsConfig(logger *slog.Logger, root, namespace string, nameservers []string) (*DnsConfig, error) {
	dir := filepath.Join(root, namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating %s: %w", dir, err)
	}

	path := filepath.Join(dir, "resolv.conf")
	var b strings.Builder
	for _, ns := range nameservers {
		fmt.Fprintf(&b, "nameserver %s\n", ns)
	}
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("writing %s: %w", path, err)
	}

	return &DnsConfig{logger: logger, namespace: namespace, dir: dir, path: path}, nil
}

// AttachDnsConfig reconstructs the handle to an already-written
// resolv.conf for namespace, without writing anything, so a process that
// did not create the file itself can still Release it when it turns out
// to be the namespace's last attachment.
func AttachDnsConfig(logger *slog.Logger, namespace string) *DnsConfig {
	dir := filepath.Join(netnsRoot, namespace)
	return &DnsConfig{logger: logger, namespace: namespace, dir: dir, path: filepath.Join(dir, "resolv.conf")}
}

// Release removes resolv.conf and, if now empty, its parent directory.
func (d *DnsConfig) Release() {
	if err := os.Remove(d.path); err != nil && !os.IsNotExist(err) {
		d.logger.Warn("failed to remove resolv.conf", "path", d.path, "error", err)
		return
	}
	if err := os.Remove(d.dir); err != nil && !os.IsNotExist(err) {
		d.logger.Debug("leaving non-empty netns config dir", "dir", d.dir, "error", err)
	}
}
