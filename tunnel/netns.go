package tunnel

import (
	"fmt"
	"runtime"

	"github.com/vishvananda/netns"
)

// runInNamespace locks the calling goroutine to its OS thread, switches the
// thread into nsHandle, runs fn, and restores the original namespace
// before returning. A process forked by fn (via exec.Cmd.Start) inherits
// the namespace active on the forking thread at fork time, the same way a
// child of `ip netns exec` does; a syscall made directly by fn (netlink,
// iptables) is scoped to whatever namespace the thread is in when it runs.
// Grounded on namespace/linux.go's createKernelNamespace and
// guard/veth.go's configureInsideNamespace, which use the same
// lock-thread/enter/restore shape for one-shot namespace-scoped setup.
func runInNamespace(nsHandle netns.NsHandle, fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	if err != nil {
		return fmt.Errorf("getting current namespace: %w", err)
	}
	defer origin.Close()

	if err := netns.Set(nsHandle); err != nil {
		return fmt.Errorf("entering target namespace: %w", err)
	}
	defer netns.Set(origin)

	return fn()
}
