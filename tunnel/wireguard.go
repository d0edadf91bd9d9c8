package tunnel

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"
	"golang.zx2c4.com/wireguard/wgctrl"
	"golang.zx2c4.com/wireguard/wgctrl/wgtypes"
)

// privilegedCommand, netAdminCommand and runAll mirror the guard package's
// AmbientCaps command-runner helper; duplicated here rather than imported
// to keep tunnel independent of guard (both are leaves the namespace
// package composes, neither depends on the other).
type privilegedCommand struct {
	description string
	cmd         *exec.Cmd
}

func netAdminCommand(description, name string, arg ...string) privilegedCommand {
	cmd := exec.Command(name, arg...)
	cmd.SysProcAttr = &syscall.SysProcAttr{AmbientCaps: []uintptr{unix.CAP_NET_ADMIN}}
	return privilegedCommand{description: description, cmd: cmd}
}

func runAll(commands ...privilegedCommand) error {
	for _, c := range commands {
		if out, err := c.cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("failed to %s: %w, output: %s", c.description, err, out)
		}
	}
	return nil
}

// handshakeGracePeriod bounds how long a freshly-started peer gets before
// it must show a handshake, per spec.md §4.4 ("within 30s of first ping if
// no keepalive").
const handshakeGracePeriod = 30 * time.Second

// WireguardPeerConfig is the single-peer material read from a provider's
// `.conf` file.
type WireguardPeerConfig struct {
	PublicKey    string
	PresharedKey string
	Endpoint     string
	AllowedIPs   []string
	Keepalive    time.Duration
}

// WireguardConfig describes the local interface plus one peer; vopono
// namespaces only ever have one WireGuard peer (the chosen server).
type WireguardConfig struct {
	Interface  string
	PrivateKey string
	Address    *net.IPNet
	DNS        []string
	Peer       WireguardPeerConfig
	KillSwitch bool

	// NsHandle is the kernel network namespace the wg interface, its
	// routes and the kill-switch rules must all be configured inside. Set
	// by namespace.Create, which is the only caller holding a live handle.
	NsHandle netns.NsHandle
}

// WireguardProcess configures the kernel `wg0` device for one namespace and
// exposes readiness via handshake freshness, since there is no supervised
// foreground process to poll for a log line (spec.md §4.4). Grounded on the
// netlink.Wireguard + wgctrl.Client device setup in the example pack's
// router VPN manager, narrowed from its multi-peer/multi-config surface
// down to the single always-on peer a vopono namespace needs.
type WireguardProcess struct {
	client *wgctrl.Client
	link   netlink.Link
	iface  string
}

// Up creates (or reuses) the wg interface, assigns its address, loads the
// single peer, brings it up, and installs kill-switch rules before
// returning — the same "kill-switch before tunnel" ordering spec.md §4.2
// requires of NetworkNamespace.create, applied here at device-config
// granularity since WireGuard has no separate supervised process step.
// Every netlink/wgctrl/iptables call below is made while the calling
// thread is switched into cfg.NsHandle (see runInNamespace), since rtnetlink
// and generic netlink sockets are scoped to the namespace active when they
// are opened, not the namespace the kernel object ends up living in.
func Up(cfg WireguardConfig) (*WireguardProcess, error) {
	var proc *WireguardProcess
	err := runInNamespace(cfg.NsHandle, func() error {
		p, err := up(cfg)
		if err != nil {
			return err
		}
		proc = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return proc, nil
}

func up(cfg WireguardConfig) (*WireguardProcess, error) {
	link, err := ensureWireguardLink(cfg.Interface)
	if err != nil {
		return nil, err
	}

	client, err := wgctrl.New()
	if err != nil {
		return nil, fmt.Errorf("opening wgctrl: %w", err)
	}

	privKey, err := wgtypes.ParseKey(cfg.PrivateKey)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("invalid private key: %w", err)
	}

	peerConf, err := buildPeerConfig(cfg.Peer)
	if err != nil {
		client.Close()
		return nil, err
	}

	deviceConf := wgtypes.Config{
		PrivateKey:   &privKey,
		ReplacePeers: true,
		Peers:        []wgtypes.PeerConfig{peerConf},
	}
	if err := client.ConfigureDevice(cfg.Interface, deviceConf); err != nil {
		client.Close()
		return nil, fmt.Errorf("configuring wireguard device %s: %w", cfg.Interface, err)
	}

	if cfg.Address != nil {
		if err := netlink.AddrAdd(link, &netlink.Addr{IPNet: cfg.Address}); err != nil {
			client.Close()
			return nil, fmt.Errorf("addressing wireguard device %s: %w", cfg.Interface, err)
		}
	}
	if err := netlink.LinkSetUp(link); err != nil {
		client.Close()
		return nil, fmt.Errorf("bringing up wireguard device %s: %w", cfg.Interface, err)
	}

	for _, cidr := range cfg.Peer.AllowedIPs {
		if err := addAllowedIPRoute(link, cidr); err != nil {
			client.Close()
			return nil, err
		}
	}

	p := &WireguardProcess{client: client, link: link, iface: cfg.Interface}

	if cfg.KillSwitch {
		if err := installWireguardKillSwitch(cfg.Interface); err != nil {
			p.Stop()
			return nil, err
		}
	}

	return p, nil
}

func ensureWireguardLink(name string) (netlink.Link, error) {
	if existing, err := netlink.LinkByName(name); err == nil {
		if existing.Type() != "wireguard" {
			return nil, fmt.Errorf("interface %s exists but is not a wireguard device (type %s)", name, existing.Type())
		}
		return existing, nil
	}

	link := &netlink.Wireguard{LinkAttrs: netlink.LinkAttrs{Name: name}}
	if err := netlink.LinkAdd(link); err != nil {
		return nil, fmt.Errorf("creating wireguard device %s: %w", name, err)
	}
	return netlink.LinkByName(name)
}

func buildPeerConfig(p WireguardPeerConfig) (wgtypes.PeerConfig, error) {
	pubKey, err := wgtypes.ParseKey(p.PublicKey)
	if err != nil {
		return wgtypes.PeerConfig{}, fmt.Errorf("invalid peer public key: %w", err)
	}

	conf := wgtypes.PeerConfig{
		PublicKey:         pubKey,
		ReplaceAllowedIPs: true,
	}

	if p.PresharedKey != "" {
		psk, err := wgtypes.ParseKey(p.PresharedKey)
		if err != nil {
			return wgtypes.PeerConfig{}, fmt.Errorf("invalid peer preshared key: %w", err)
		}
		conf.PresharedKey = &psk
	}

	if p.Endpoint != "" {
		addr, err := net.ResolveUDPAddr("udp", p.Endpoint)
		if err != nil {
			return wgtypes.PeerConfig{}, fmt.Errorf("invalid peer endpoint %q: %w", p.Endpoint, err)
		}
		conf.Endpoint = addr
	}

	if p.Keepalive > 0 {
		ka := p.Keepalive
		conf.PersistentKeepaliveInterval = &ka
	}

	for _, cidr := range p.AllowedIPs {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			return wgtypes.PeerConfig{}, fmt.Errorf("invalid allowed-ip %q: %w", cidr, err)
		}
		conf.AllowedIPs = append(conf.AllowedIPs, *ipnet)
	}

	return conf, nil
}

func addAllowedIPRoute(link netlink.Link, cidr string) error {
	_, dst, err := net.ParseCIDR(cidr)
	if err != nil {
		return fmt.Errorf("invalid allowed-ip route %q: %w", cidr, err)
	}
	route := &netlink.Route{LinkIndex: link.Attrs().Index, Dst: dst}
	if err := netlink.RouteAdd(route); err != nil {
		return fmt.Errorf("adding route for %s: %w", cidr, err)
	}
	return nil
}

func installWireguardKillSwitch(iface string) error {
	commands := []privilegedCommand{
		netAdminCommand("allow loopback output", "iptables", "-A", "OUTPUT", "-o", "lo", "-j", "ACCEPT"),
		netAdminCommand("allow wireguard egress", "iptables", "-A", "OUTPUT", "-o", iface, "-j", "ACCEPT"),
		netAdminCommand("drop everything else", "iptables", "-A", "OUTPUT", "-j", "DROP"),
	}
	return runAll(commands...)
}

// errHandshakeNotFresh signals backoff.Retry to keep polling; it never
// escapes AwaitHandshake itself.
var errHandshakeNotFresh = errors.New("wireguard handshake not yet fresh")

// AwaitHandshake polls the device for a non-stale latest-handshake,
// matching spec.md §4.4's "within 3x keepalive, or within 30s of first
// ping" readiness rule. Uses the same bounded exponential backoff as
// OpenVpnProcess.awaitReadiness (app/child.go's waitForInterface).
func (p *WireguardProcess) AwaitHandshake(ctx context.Context, keepalive time.Duration) error {
	timeout := handshakeGracePeriod
	if keepalive > 0 && 3*keepalive > timeout {
		timeout = 3 * keepalive
	}

	retryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.Multiplier = 1.5

	_, err := backoff.Retry(retryCtx, func() (struct{}, error) {
		fresh, err := p.handshakeFresh(timeout)
		if err != nil {
			return struct{}{}, backoff.Permanent(err)
		}
		if fresh {
			return struct{}{}, nil
		}
		return struct{}{}, errHandshakeNotFresh
	}, backoff.WithBackOff(b))
	if err == nil {
		return nil
	}
	if !errors.Is(err, errHandshakeNotFresh) && retryCtx.Err() == nil {
		// A permanent error from handshakeFresh itself (device query
		// failure), not a readiness timeout.
		return err
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrTunnelNotReady
}

func (p *WireguardProcess) handshakeFresh(within time.Duration) (bool, error) {
	device, err := p.client.Device(p.iface)
	if err != nil {
		return false, fmt.Errorf("querying wireguard device %s: %w", p.iface, err)
	}
	for _, peer := range device.Peers {
		if peer.LastHandshakeTime.IsZero() {
			continue
		}
		if time.Since(peer.LastHandshakeTime) <= within {
			return true, nil
		}
	}
	return false, nil
}

// Stop closes the wgctrl client handle and deletes the kernel interface.
func (p *WireguardProcess) Stop() error {
	if p.client != nil {
		p.client.Close()
	}
	if p.link != nil {
		return netlink.LinkDel(p.link)
	}
	return nil
}
