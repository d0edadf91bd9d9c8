//go:build !linux

package namespace

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/vopono-go/vopono/lockregistry"
	"github.com/vopono-go/vopono/tunnel"
	"github.com/vopono-go/vopono/vpntypes"
)

// ErrAlreadyExists mirrors the Linux build's sentinel so callers can share
// error-handling code across platforms even though Create always fails
// here.
var ErrAlreadyExists = fmt.Errorf("network namespace exists with no matching lock")

// Params mirrors the Linux build's shape; fields are unused off Linux.
type Params struct {
	Name       string
	Provider   vpntypes.VpnProvider
	Protocol   vpntypes.Protocol
	HostIface  string
	DNS        []string
	KillSwitch bool
	OpenVpn    *tunnel.OpenVpnConfig
	Wireguard  *tunnel.WireguardConfig
}

// NetworkNamespace is an unusable placeholder outside Linux (spec.md §1
// Non-goals excludes non-Linux platforms entirely).
type NetworkNamespace struct{}

func Create(ctx context.Context, logger *slog.Logger, params Params, subnet *net.IPNet, locks *lockregistry.Registry) (*NetworkNamespace, error) {
	return nil, fmt.Errorf("network namespaces are only supported on linux")
}

func AttachExisting(logger *slog.Logger, name string, existing lockregistry.LockRecord, subnet *net.IPNet) *NetworkNamespace {
	return &NetworkNamespace{}
}

func (ns *NetworkNamespace) Teardown() {}
