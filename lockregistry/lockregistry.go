// Package lockregistry implements the LockRegistry of spec.md §4.5: an
// on-disk tree of per-attachment lock records under
// <runtime-dir>/vopono/locks/<namespace>/<pid>.lock, atomically written
// and garbage-collected against dead pids. Grounded on the
// write-then-rename state persistence and per-entity file locking in the
// example pack's IPAM store (pkg/ipam/store.go), adapted from one JSON
// blob per network to one JSON record per (namespace, pid) lockfile.
package lockregistry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// LockRecord is the persisted shape of one live attachment.
type LockRecord struct {
	Namespace   string `json:"namespace"`
	Pid         int    `json:"pid"`
	Provider    string `json:"provider"`
	Protocol    string `json:"protocol"`
	Application string `json:"application"`
	User        string `json:"user"`
	Group       string `json:"group"`
	// VethHostIP holds the namespace's allocated /24 subnet (e.g.
	// "10.200.7.0/24"), not a single host address: it's the one piece of
	// state a process attaching to an existing namespace needs back to
	// reconstruct its guards, and the subnet is what namespace.AllocateSubnet
	// hands out, so that's what gets recorded.
	VethHostIP string `json:"veth_host_ip"`
	// VethNsIP is the namespace-side veth address (e.g. "10.200.7.2/24"),
	// recorded only by the process that created or reconstructed the veth
	// pair; an attaching process leaves it blank.
	VethNsIP  string `json:"veth_ns_ip"`
	HostIface string `json:"host_iface"`
}

// Registry roots the lock tree at <runtimeDir>/vopono/locks.
type Registry struct {
	root string
}

// New returns a Registry rooted at <runtimeDir>/vopono/locks.
func New(runtimeDir string) *Registry {
	return &Registry{root: filepath.Join(runtimeDir, "vopono", "locks")}
}

func (r *Registry) namespaceDir(namespace string) string {
	return filepath.Join(r.root, namespace)
}

func (r *Registry) lockPath(namespace string, pid int) string {
	return filepath.Join(r.namespaceDir(namespace), fmt.Sprintf("%d.lock", pid))
}

// Write atomically persists record, creating the namespace directory if
// needed (spec.md §4.5 write).
func (r *Registry) Write(record LockRecord) error {
	dir := r.namespaceDir(record.Namespace)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating lock directory %s: %w", dir, err)
	}

	content, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling lock record: %w", err)
	}

	path := r.lockPath(record.Namespace, record.Pid)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, content, 0o644); err != nil {
		return fmt.Errorf("writing temp lockfile %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("renaming lockfile into place: %w", err)
	}
	return nil
}

// Remove deletes the lockfile for (namespace, pid). Not finding it is not
// an error: the caller may be cleaning up after a partial failure.
func (r *Registry) Remove(namespace string, pid int) error {
	err := os.Remove(r.lockPath(namespace, pid))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing lockfile: %w", err)
	}
	return nil
}

// List returns every record under the registry, optionally filtered to one
// namespace (spec.md §4.5 list). namespace == "" lists all.
func (r *Registry) List(namespace string) ([]LockRecord, error) {
	var dirs []string
	if namespace != "" {
		dirs = []string{r.namespaceDir(namespace)}
	} else {
		entries, err := os.ReadDir(r.root)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, nil
			}
			return nil, fmt.Errorf("reading lock registry root: %w", err)
		}
		for _, e := range entries {
			if e.IsDir() {
				dirs = append(dirs, filepath.Join(r.root, e.Name()))
			}
		}
	}

	var records []LockRecord
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, fmt.Errorf("reading lock directory %s: %w", dir, err)
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != ".lock" {
				continue
			}
			record, err := readRecord(filepath.Join(dir, e.Name()))
			if err != nil {
				continue
			}
			records = append(records, record)
		}
	}
	return records, nil
}

// OwnerCount returns the number of live lockfiles for namespace (spec.md
// §4.5 owner_count).
func (r *Registry) OwnerCount(namespace string) (int, error) {
	records, err := r.List(namespace)
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

// SweepLocks removes every lockfile whose pid is no longer alive, then
// removes any namespace directory left empty, returning the namespaces
// that now have zero lockfiles and therefore need teardown (spec.md §4.5
// gc). This is the unprivileged half of startup GC — unlinking stale
// files needs no capability, unlike the namespace teardown the caller
// performs next for each drained name.
func (r *Registry) SweepLocks() (drained []string, err error) {
	entries, err := os.ReadDir(r.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading lock registry root: %w", err)
	}

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		namespace := e.Name()
		dir := filepath.Join(r.root, namespace)

		lockEntries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}

		remaining := 0
		for _, le := range lockEntries {
			if le.IsDir() || filepath.Ext(le.Name()) != ".lock" {
				continue
			}
			path := filepath.Join(dir, le.Name())
			record, err := readRecord(path)
			if err != nil {
				os.Remove(path)
				continue
			}
			if !pidAlive(record.Pid) {
				os.Remove(path)
				continue
			}
			remaining++
		}

		if remaining == 0 {
			os.Remove(dir)
			drained = append(drained, namespace)
		}
	}

	return drained, nil
}

func readRecord(path string) (LockRecord, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return LockRecord{}, err
	}
	var record LockRecord
	if err := json.Unmarshal(content, &record); err != nil {
		return LockRecord{}, fmt.Errorf("corrupted lockfile %s: %w", path, err)
	}
	return record, nil
}

// pidAlive sends signal 0, which performs permission/existence checks
// without actually signaling the process (the standard liveness probe).
func pidAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}
