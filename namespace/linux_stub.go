//go:build !linux

package namespace

import "fmt"

// KernelNamespace is not implemented outside Linux: the system relies on
// `ip netns`-equivalent kernel namespace objects (spec.md §1 Non-goals).
type KernelNamespace interface {
	Delete() error
}

func createKernelNamespace(name string) (KernelNamespace, error) {
	return nil, fmt.Errorf("network namespaces are only supported on linux")
}

func kernelNamespaceExists(name string) bool {
	return false
}
