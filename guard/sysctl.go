package guard

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
)

const ipForwardPath = "/proc/sys/net/ipv4/ip_forward"

// SysctlGuard scopes a host sysctl override: it reads the current value of
// net.ipv4.ip_forward, forces it to 1, and restores the prior value when
// released (spec.md §4.1). Unlike IpTablesGuard and VethPair this never
// shells out to `sysctl`; the knob is a single proc file.
type SysctlGuard struct {
	logger   *slog.Logger
	previous string
}

// NewSysctlGuard enables IP forwarding, remembering the prior value.
func NewSysctlGuard(logger *slog.Logger) (*SysctlGuard, error) {
	previous, err := readIPForward()
	if err != nil {
		return nil, fmt.Errorf("reading ip_forward: %w", err)
	}

	if err := writeIPForward("1"); err != nil {
		return nil, fmt.Errorf("enabling ip_forward: %w", err)
	}

	return &SysctlGuard{logger: logger, previous: previous}, nil
}

// Release restores the pre-acquisition value of ip_forward. Best-effort: a
// failure here is logged, never returned, matching the other guards'
// release semantics.
func (g *SysctlGuard) Release() {
	if err := writeIPForward(g.previous); err != nil {
		g.logger.Warn("failed to restore ip_forward", "error", err, "previous", g.previous)
	}
}

func readIPForward() (string, error) {
	b, err := os.ReadFile(ipForwardPath)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func writeIPForward(value string) error {
	return os.WriteFile(ipForwardPath, []byte(value), 0o644)
}
