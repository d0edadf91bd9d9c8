package appwrapper

import (
	"fmt"
	"runtime"

	"github.com/vishvananda/netns"
)

// runInNamespace locks the calling goroutine to its OS thread, switches it
// into nsHandle, runs fn, and restores the original namespace before
// returning. Duplicated from tunnel's identical helper rather than shared,
// the same way tunnel/wireguard.go duplicates guard's command-runner
// helper: both are leaves the namespace package composes and neither
// depends on the other.
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
