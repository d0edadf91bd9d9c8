package guard

import (
	"fmt"
	"log/slog"
	"net"
	"runtime"

	"github.com/vishvananda/netlink"
	"github.com/vishvananda/netns"
)

// VethPair creates the host<->namespace veth link described in spec.md
// §4.1 and §3 (TargetSubnet): `<ns>_s` stays on the host, `<ns>_d` is moved
// into the target namespace, addressed `.1/24` / `.2/24`, brought up, and
// given a default route inside the namespace. Grounded on the veth
// creation sequence in namespace/linux.go's setupNetworking, reimplemented
// against vishvananda/netlink instead of shelling out to `ip link`/`ip
// addr`/`ip route` (SPEC_FULL.md §6).
type VethPair struct {
	logger   *slog.Logger
	HostName string
	NsName   string
	HostAddr *net.IPNet
	NsAddr   *net.IPNet
}

// maxLinkNameLen is the kernel's IFNAMSIZ-1 limit.
const maxLinkNameLen = 15

// vethNames derives the `<ns>_s` / `<ns>_d` pair, truncating the namespace
// name so the suffix always fits within IFNAMSIZ.
func vethNames(namespace string) (host, ns string) {
	base := namespace
	if len(base) > maxLinkNameLen-2 {
		base = base[:maxLinkNameLen-2]
	}
	return base + "_s", base + "_d"
}

// NewVethPair creates the pair on the host, moves the namespace side into
// nsHandle, and addresses/brings up both ends. subnet is a /24 such as
// 10.200.7.0/24; host gets .1, namespace gets .2.
func NewVethPair(logger *slog.Logger, namespace string, nsHandle netns.NsHandle, subnet *net.IPNet) (*VethPair, error) {
	hostName, nsName := vethNames(namespace)

	hostIP := firstUsable(subnet)
	nsIP := secondUsable(subnet)
	ones, bits := subnet.Mask.Size()
	hostAddr := &net.IPNet{IP: hostIP, Mask: net.CIDRMask(ones, bits)}
	nsAddr := &net.IPNet{IP: nsIP, Mask: net.CIDRMask(ones, bits)}

	link := &netlink.Veth{
		LinkAttrs: netlink.LinkAttrs{Name: hostName},
		PeerName:  nsName,
	}
	if err := netlink.LinkAdd(link); err != nil {
		return nil, fmt.Errorf("creating veth pair %s/%s: %w", hostName, nsName, err)
	}

	hostLink, err := netlink.LinkByName(hostName)
	if err != nil {
		return nil, fmt.Errorf("looking up host veth %s: %w", hostName, err)
	}
	if err := netlink.AddrAdd(hostLink, &netlink.Addr{IPNet: hostAddr}); err != nil {
		return nil, fmt.Errorf("addressing host veth %s: %w", hostName, err)
	}
	if err := netlink.LinkSetUp(hostLink); err != nil {
		return nil, fmt.Errorf("bringing up host veth %s: %w", hostName, err)
	}

	nsLink, err := netlink.LinkByName(nsName)
	if err != nil {
		return nil, fmt.Errorf("looking up namespace veth %s: %w", nsName, err)
	}
	if err := netlink.LinkSetNsFd(nsLink, int(nsHandle)); err != nil {
		return nil, fmt.Errorf("moving %s into namespace %s: %w", nsName, namespace, err)
	}

	if err := configureInsideNamespace(nsHandle, nsName, nsAddr, hostIP); err != nil {
		return nil, err
	}

	return &VethPair{logger: logger, HostName: hostName, NsName: nsName, HostAddr: hostAddr, NsAddr: nsAddr}, nil
}

// configureInsideNamespace runs inside nsHandle: addresses the moved link,
// brings up loopback and the link, and installs the default route via the
// host side, matching namespace/linux.go's setupNetworking but without
// shelling to `ip netns exec`.
func configureInsideNamespace(nsHandle netns.NsHandle, nsName string, nsAddr *net.IPNet, gateway net.IP) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	origin, err := netns.Get()
	if err != nil {
		return fmt.Errorf("getting current namespace: %w", err)
	}
	defer netns.Set(origin)

	if err := netns.Set(nsHandle); err != nil {
		return fmt.Errorf("entering namespace to configure %s: %w", nsName, err)
	}

	link, err := netlink.LinkByName(nsName)
	if err != nil {
		return fmt.Errorf("looking up %s inside namespace: %w", nsName, err)
	}
	if err := netlink.AddrAdd(link, &netlink.Addr{IPNet: nsAddr}); err != nil {
		return fmt.Errorf("addressing %s inside namespace: %w", nsName, err)
	}
	if err := netlink.LinkSetUp(link); err != nil {
		return fmt.Errorf("bringing up %s inside namespace: %w", nsName, err)
	}

	lo, err := netlink.LinkByName("lo")
	if err != nil {
		return fmt.Errorf("looking up loopback inside namespace: %w", err)
	}
	if err := netlink.LinkSetUp(lo); err != nil {
		return fmt.Errorf("bringing up loopback inside namespace: %w", err)
	}

	route := &netlink.Route{LinkIndex: link.Attrs().Index, Gw: gateway}
	if err := netlink.RouteAdd(route); err != nil {
		return fmt.Errorf("adding default route inside namespace: %w", err)
	}

	return nil
}

// AttachVethPair reconstructs the handle to an already-created veth pair
// for namespace from its deterministic name alone, so a process that did
// not create the pair itself can still Release it.
func AttachVethPair(logger *slog.Logger, namespace string) *VethPair {
	hostName, nsName := vethNames(namespace)
	return &VethPair{logger: logger, HostName: hostName, NsName: nsName}
}

// Release deletes the host side of the veth pair; the kernel removes the
// peer automatically, and the peer disappears entirely when the namespace
// it lives in is deleted.
func (v *VethPair) Release() {
	link, err := netlink.LinkByName(v.HostName)
	if err != nil {
		v.logger.Warn("veth cleanup: host link already gone", "link", v.HostName, "error", err)
		return
	}
	if err := netlink.LinkDel(link); err != nil {
		v.logger.Warn("veth cleanup failed", "link", v.HostName, "error", err)
	}
}

func firstUsable(subnet *net.IPNet) net.IP {
	ip := make(net.IP, len(subnet.IP.To4()))
	copy(ip, subnet.IP.To4())
	ip[3] = 1
	return ip
}

func secondUsable(subnet *net.IPNet) net.IP {
	ip := make(net.IP, len(subnet.IP.To4()))
	copy(ip, subnet.IP.To4())
	ip[3] = 2
	return ip
}
