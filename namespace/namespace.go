//go:build linux

// Package namespace implements the NetworkNamespace aggregate of spec.md
// §4.2: the named Linux network namespace that owns a VethPair, DnsConfig,
// SysctlGuard, IpTablesGuard and a VPN tunnel process, sequencing their
// construction and teardown. Grounded on namespace/linux.go's Open/Close
// lifecycle (create namespace, configure networking, configure iptables,
// prepare credentials/environment, teardown in reverse), generalized from
// an ephemeral per-invocation namespace scoped to one process into a
// named, multi-attachment namespace tracked by a lock registry.
package namespace

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"

	"github.com/vopono-go/vopono/guard"
	"github.com/vopono-go/vopono/lockregistry"
	"github.com/vopono-go/vopono/tunnel"
	"github.com/vopono-go/vopono/vpntypes"
)

// ErrAlreadyExists is returned by Create when the kernel netns exists but
// no lockfile in the registry claims it — a crash-recovery ambiguity the
// caller must resolve explicitly (spec.md §4.2).
var ErrAlreadyExists = errors.New("network namespace exists with no matching lock")

// Params describes everything Create needs to stand up a namespace.
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

// NetworkNamespace is the aggregate owner described in spec.md §3: the
// kernel namespace object plus every scoped resource guard constructed
// inside or alongside it.
type NetworkNamespace struct {
	Name     string
	Provider vpntypes.VpnProvider
	Protocol vpntypes.Protocol
	Subnet   *net.IPNet

	logger *slog.Logger

	kernelNs KernelNamespace
	veth     *guard.VethPair
	iptables *guard.IpTablesGuard
	sysctl   *guard.SysctlGuard
	dns      *guard.DnsConfig
	openvpn  *tunnel.OpenVpnProcess
	wg       *tunnel.WireguardProcess
}

// Create constructs a brand new named namespace and sequences every
// scoped guard in the order spec.md §4.2 mandates: loopback-up, veth,
// routing, iptables, sysctl, dns, tunnel — so the kill-switch is always
// live before the tunnel can leak traffic out the default route. On any
// failure, the guards already acquired are released in reverse before the
// error is returned.
func Create(ctx context.Context, logger *slog.Logger, params Params, subnet *net.IPNet, locks *lockregistry.Registry) (*NetworkNamespace, error) {
	exists, claimed, err := kernelNsClaimState(params.Name, locks)
	if err != nil {
		return nil, err
	}
	if exists && !claimed {
		return nil, fmt.Errorf("%w: %s", ErrAlreadyExists, params.Name)
	}

	ns := &NetworkNamespace{
		Name:     params.Name,
		Provider: params.Provider,
		Protocol: params.Protocol,
		Subnet:   subnet,
		logger:   logger,
	}

	kernelNs, err := createKernelNamespace(params.Name)
	if err != nil {
		return nil, fmt.Errorf("creating kernel namespace: %w", err)
	}
	ns.kernelNs = kernelNs

	veth, err := guard.NewVethPair(logger, params.Name, kernelNs.Handle(), subnet)
	if err != nil {
		ns.teardownFrom(stepVeth)
		return nil, fmt.Errorf("creating veth pair: %w", err)
	}
	ns.veth = veth

	iptablesGuard, err := guard.NewIpTablesGuard(logger, params.Name, subnet.String(), veth.HostName, params.HostIface)
	if err != nil {
		ns.teardownFrom(stepIptables)
		return nil, fmt.Errorf("installing iptables rules: %w", err)
	}
	ns.iptables = iptablesGuard

	sysctlGuard, err := guard.NewSysctlGuard(logger)
	if err != nil {
		ns.teardownFrom(stepSysctl)
		return nil, fmt.Errorf("enabling ip forwarding: %w", err)
	}
	ns.sysctl = sysctlGuard

	dns, err := guard.NewDnsConfig(logger, params.Name, params.DNS)
	if err != nil {
		ns.teardownFrom(stepDns)
		return nil, fmt.Errorf("writing dns config: %w", err)
	}
	ns.dns = dns

	if err := ns.startTunnel(ctx, params); err != nil {
		ns.teardownFrom(stepTunnel)
		return nil, fmt.Errorf("starting tunnel: %w", err)
	}

	return ns, nil
}

// startTunnel hands the tunnel package the kernel namespace handle this
// NetworkNamespace just created, so OpenVpnProcess/WireguardProcess can
// enter it before spawning openvpn or configuring wg0 (spec.md §4.3/§4.4
// "inside the namespace").
func (ns *NetworkNamespace) startTunnel(ctx context.Context, params Params) error {
	switch params.Protocol {
	case vpntypes.OpenVpn:
		if params.OpenVpn == nil {
			return fmt.Errorf("missing OpenVPN configuration")
		}
		cfg := *params.OpenVpn
		cfg.NsHandle = ns.kernelNs.Handle()
		proc, err := tunnel.Start(ctx, ns.logger, cfg)
		if err != nil {
			return err
		}
		ns.openvpn = proc
	case vpntypes.Wireguard:
		if params.Wireguard == nil {
			return fmt.Errorf("missing WireGuard configuration")
		}
		cfg := *params.Wireguard
		cfg.NsHandle = ns.kernelNs.Handle()
		proc, err := tunnel.Up(cfg)
		if err != nil {
			return err
		}
		if err := proc.AwaitHandshake(ctx, params.Wireguard.Peer.Keepalive); err != nil {
			proc.Stop()
			return err
		}
		ns.wg = proc
	default:
		return fmt.Errorf("unknown protocol %q", params.Protocol)
	}
	return nil
}

// VethNamespaceAddr returns the namespace-side veth address ("10.200.7.2/24")
// for recording in a lock record, or "" if this handle never created (or
// reconstructed) the veth pair.
func (ns *NetworkNamespace) VethNamespaceAddr() string {
	if ns.veth == nil || ns.veth.NsAddr == nil {
		return ""
	}
	return ns.veth.NsAddr.String()
}

// AttachExisting recovers a live namespace's subnet/provider info from a
// surviving lockfile rather than re-running setup (spec.md §4.2
// attach_existing). Its guards are reconstructed deterministically from
// the namespace name, subnet and recorded host interface rather than
// inherited from the process that originally created them, so a process
// attaching to (rather than creating) a namespace can still fully tear it
// down if it turns out to be the last attachment to leave. The kernel
// namespace handle itself is looked up live, since DeleteNamed only needs
// the name, not a cached handle.
func AttachExisting(logger *slog.Logger, name string, existing lockregistry.LockRecord, subnet *net.IPNet) *NetworkNamespace {
	ns := &NetworkNamespace{
		Name:     name,
		Provider: vpntypes.VpnProvider(existing.Provider),
		Protocol: vpntypes.Protocol(existing.Protocol),
		Subnet:   subnet,
		logger:   logger,
	}

	if kernelNamespaceExists(name) {
		ns.kernelNs = &linuxKernelNamespace{name: name}
	}
	ns.veth = guard.AttachVethPair(logger, name)
	ns.dns = guard.AttachDnsConfig(logger, name)
	if subnet != nil && existing.HostIface != "" {
		ns.iptables = guard.AttachIpTablesGuard(logger, name, subnet.String(), ns.veth.HostName, existing.HostIface)
	}

	return ns
}

type teardownStep int

const (
	stepVeth teardownStep = iota
	stepIptables
	stepSysctl
	stepDns
	stepTunnel
	stepAll
)

// teardownFrom releases every guard acquired before step failed, in
// reverse acquisition order (spec.md §4.2 failure semantics: veth,
// iptables, sysctl, dns, tunnel).
func (ns *NetworkNamespace) teardownFrom(failedAt teardownStep) {
	if failedAt > stepTunnel {
		if ns.openvpn != nil {
			ns.openvpn.Stop()
		}
		if ns.wg != nil {
			ns.wg.Stop()
		}
	}
	if failedAt > stepDns && ns.dns != nil {
		ns.dns.Release()
	}
	if failedAt > stepSysctl && ns.sysctl != nil {
		ns.sysctl.Release()
	}
	if failedAt > stepIptables && ns.iptables != nil {
		ns.iptables.Release()
	}
	if failedAt > stepVeth && ns.veth != nil {
		ns.veth.Release()
	}
	if ns.kernelNs != nil {
		ns.kernelNs.Delete()
	}
}

// Teardown releases every guard in reverse construction order and deletes
// the kernel namespace object (spec.md §4.2 teardown), called once the
// last lockfile for this namespace has been removed.
func (ns *NetworkNamespace) Teardown() {
	if ns.openvpn != nil {
		ns.openvpn.Stop()
	}
	if ns.wg != nil {
		ns.wg.Stop()
	}
	if ns.dns != nil {
		ns.dns.Release()
	}
	if ns.sysctl != nil {
		ns.sysctl.Release()
	}
	if ns.iptables != nil {
		ns.iptables.Release()
	}
	if ns.veth != nil {
		ns.veth.Release()
	}
	if ns.kernelNs != nil {
		if err := ns.kernelNs.Delete(); err != nil {
			ns.logger.Warn("failed to delete kernel namespace", "namespace", ns.Name, "error", err)
		}
	}
}

func kernelNsClaimState(name string, locks *lockregistry.Registry) (exists, claimed bool, err error) {
	exists = kernelNamespaceExists(name)
	if !exists {
		return false, false, nil
	}
	count, err := locks.OwnerCount(name)
	if err != nil {
		return true, false, fmt.Errorf("checking existing locks for %s: %w", name, err)
	}
	return true, count > 0, nil
}
