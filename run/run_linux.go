//go:build linux

package run

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	"github.com/vopono-go/vopono/appwrapper"
	"github.com/vopono-go/vopono/config"
	"github.com/vopono-go/vopono/credentials"
	"github.com/vopono-go/vopono/lockregistry"
	"github.com/vopono-go/vopono/namespace"
	"github.com/vopono-go/vopono/netiface"
	"github.com/vopono-go/vopono/provider"
	"github.com/vopono-go/vopono/tunnel"
	"github.com/vopono-go/vopono/vpntypes"
)

// SweepNamespace tears down a namespace that SweepLocks found with zero
// remaining lockfiles (spec.md §4.5 gc). By the time a namespace is
// reported drained its last lock record is already gone, so there is no
// recorded subnet or host interface to reconstruct iptables rules from;
// this best-effort teardown still removes the kernel namespace, veth pair
// and resolv.conf override, and leaves the host-side NAT/FORWARD iptables
// rules tagged for this namespace for the operator to clear manually
// (logged, not silently dropped).
func SweepNamespace(logger *slog.Logger, name string) {
	namespace.AttachExisting(logger, name, lockregistry.LockRecord{}, nil).Teardown()
	logger.Warn("host iptables rules for swept namespace are not removed; clear them manually", "namespace", name, "comment", "vopono-"+name)
}

// Exec implements spec.md §2's top-level control flow: resolve the
// target, ensure a namespace exists for it, then run the application
// inside it. The returned exit code is the child's, propagated unchanged
// so the cli package's exec handler can os.Exit with it.
func Exec(ctx context.Context, deps Deps, cfg config.AppConfig) (exitCode int, err error) {
	if len(cfg.TargetCMD) == 0 {
		return 0, fmt.Errorf("%w: no command specified to run inside the namespace", provider.ErrArgument)
	}

	target, err := deps.Selector.Select(ctx, provider.Params{
		Provider:         cfg.VpnProvider,
		ServerAlias:      cfg.Server,
		Protocol:         cfg.Protocol,
		CustomConfigPath: cfg.CustomConfigPath,
		DNSOverride:      cfg.DNS,
	})
	if err != nil {
		return 0, err
	}

	nsName := cfg.NamespaceName
	if nsName == "" {
		nsName = vpntypes.NamespaceName(target.Provider, target.ServerKey)
	}

	iface, err := netiface.Resolve(deps.Netlinker, cfg.Interface)
	if err != nil {
		return 0, fmt.Errorf("resolving egress interface: %w", err)
	}

	identity, err := appwrapper.ResolveIdentity(cfg.User, cfg.AllowRoot)
	if err != nil {
		return 0, err
	}

	ns, subnet, err := ensureNamespace(ctx, deps, cfg, nsName, iface, target)
	if err != nil {
		return 0, err
	}

	wrapper := appwrapper.New(deps.Logger, deps.Locks)
	record := lockregistry.LockRecord{
		Provider:    string(target.Provider),
		Protocol:    string(target.Protocol),
		Application: cfg.TargetCMD[0],
		VethHostIP:  subnet.String(),
		HostIface:   iface,
	}
	if ns != nil {
		// Only the process that created (or reconstructed) the veth pair
		// knows its namespace-side address; an attachment to a namespace
		// someone else created leaves this blank, same as VethHostIP is
		// only ever read back from the first record, never recomputed.
		record.VethNsIP = ns.VethNamespaceAddr()
	}

	exitCode, lastAttachment, runErr := wrapper.Run(nsName, record, identity, cfg.TargetCMD)

	if lastAttachment {
		deps.Logger.Info("last attachment to namespace exited, tearing down", "namespace", nsName)
		if ns == nil {
			// This process attached to a namespace another invocation
			// created, so it never held the original guard handles; rebuild
			// them deterministically from the namespace name and recorded
			// subnet/interface instead (namespace.AttachExisting).
			ns = namespace.AttachExisting(deps.Logger, nsName, record, subnet)
		}
		ns.Teardown()
	}

	return exitCode, runErr
}

// ensureNamespace attaches to an already-live namespace for nsName, or
// creates a new one, returning the live handle (nil if attached to a
// namespace created by a different process) and its subnet.
func ensureNamespace(ctx context.Context, deps Deps, cfg config.AppConfig, nsName, iface string, target provider.Target) (*namespace.NetworkNamespace, *net.IPNet, error) {
	existing, err := deps.Locks.List(nsName)
	if err != nil {
		return nil, nil, fmt.Errorf("checking existing attachments for %s: %w", nsName, err)
	}
	if len(existing) > 0 {
		_, subnet, err := net.ParseCIDR(existing[0].VethHostIP)
		if err != nil {
			return nil, nil, fmt.Errorf("namespace %s has a corrupt recorded subnet: %w", nsName, err)
		}
		return nil, subnet, nil
	}

	subnet, err := allocateSubnet(deps.Locks)
	if err != nil {
		return nil, nil, err
	}

	params := namespace.Params{
		Name:       nsName,
		Provider:   target.Provider,
		Protocol:   target.Protocol,
		HostIface:  iface,
		DNS:        target.DNS,
		KillSwitch: cfg.KillSwitch,
	}

	switch target.Protocol {
	case vpntypes.OpenVpn:
		authFile := ""
		if target.Provider != vpntypes.Custom {
			authFile, err = credentials.Ensure(cfg.ConfigDir, target.Provider, deps.Prompter)
			if err != nil {
				return nil, nil, err
			}
		}
		params.OpenVpn = &tunnel.OpenVpnConfig{
			ConfigPath: target.ConfigPath,
			AuthFile:   authFile,
			DNS:        target.DNS,
			Host:       target.ServerHost,
			Port:       target.ServerPort,
			Proto:      target.OVPNProto,
			KillSwitch: cfg.KillSwitch,
		}
	case vpntypes.Wireguard:
		wgCfg, err := provider.ParseWireguardConfig(target.ConfigPath, "wg0", cfg.KillSwitch)
		if err != nil {
			return nil, nil, err
		}
		params.Wireguard = &wgCfg
	default:
		return nil, nil, fmt.Errorf("unknown protocol %q", target.Protocol)
	}

	ns, err := namespace.Create(ctx, deps.Logger, params, subnet, deps.Locks)
	if err != nil {
		return nil, nil, err
	}

	return ns, subnet, nil
}

// allocateSubnet scans every live lock record's recorded subnet for its
// third octet and returns the lowest free /24 not already in use.
func allocateSubnet(locks *lockregistry.Registry) (subnet *net.IPNet, err error) {
	all, err := locks.List("")
	if err != nil {
		return nil, fmt.Errorf("listing existing namespaces: %w", err)
	}
	taken := make(map[int]bool, len(all))
	for _, record := range all {
		_, cidr, err := net.ParseCIDR(record.VethHostIP)
		if err != nil {
			continue
		}
		if octet, err := namespace.ThirdOctet(cidr); err == nil {
			taken[octet] = true
		}
	}
	return namespace.AllocateSubnet(taken)
}
