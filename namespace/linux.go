//go:build linux

package namespace

import (
	"fmt"
	"runtime"

	"github.com/vishvananda/netns"
)

// KernelNamespace is the thin handle over a named Linux network namespace
// object; NetworkNamespace composes it with the scoped resource guards.
type KernelNamespace interface {
	Handle() netns.NsHandle
	Delete() error
}

type linuxKernelNamespace struct {
	name   string
	handle netns.NsHandle
}

func (k *linuxKernelNamespace) Handle() netns.NsHandle { return k.handle }

func (k *linuxKernelNamespace) Delete() error {
	if err := netns.DeleteNamed(k.name); err != nil {
		return fmt.Errorf("deleting namespace %s: %w", k.name, err)
	}
	return nil
}

// createKernelNamespace creates a new named netns under /var/run/netns/,
// matching the persistent, attachable semantics spec.md §3 requires (as
// opposed to an ephemeral CLONE_NEWNET scoped to one process's lifetime,
// which is what namespace/linux.go's predecessor used).
func createKernelNamespace(name string) (KernelNamespace, error) {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	if err != nil {
		return nil, fmt.Errorf("getting current namespace: %w", err)
	}
	defer origin.Close()

	// netns.NewNamed unshares the calling thread into the new namespace and
	// leaves it there; switch back immediately so subsequent host-side
	// setup (veth host end, iptables) runs in the original namespace.
	handle, err := netns.NewNamed(name)
	if err != nil {
		return nil, fmt.Errorf("creating named namespace %s: %w", name, err)
	}
	if err := netns.Set(origin); err != nil {
		return nil, fmt.Errorf("restoring original namespace after creating %s: %w", name, err)
	}

	return &linuxKernelNamespace{name: name, handle: handle}, nil
}

// kernelNamespaceExists reports whether a named netns already exists,
// using a netns handle lookup rather than parsing `ip netns list` output
// (SPEC_FULL.md §6).
func kernelNamespaceExists(name string) bool {
	handle, err := netns.GetFromName(name)
	if err != nil {
		return false
	}
	handle.Close()
	return true
}
