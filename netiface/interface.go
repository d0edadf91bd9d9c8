// Package netiface resolves the host NetworkInterface used as the egress
// device for NAT (spec.md §3): a named interface that is up and carries a
// default route. Grounded on the Netlinker abstraction pattern used for
// interface/route enumeration in the example pack's router codebase, kept
// thin enough to mock in tests the same way.
package netiface

import (
	"fmt"
	"net"

	"github.com/vishvananda/netlink"
)

// Netlinker abstracts the subset of vishvananda/netlink this package needs,
// so tests can substitute a fake instead of touching the host's routing
// table.
type Netlinker interface {
	LinkList() ([]netlink.Link, error)
	LinkByName(name string) (netlink.Link, error)
	RouteList(link netlink.Link, family int) ([]netlink.Route, error)
}

type realNetlinker struct{}

func (realNetlinker) LinkList() ([]netlink.Link, error) { return netlink.LinkList() }
func (realNetlinker) LinkByName(name string) (netlink.Link, error) {
	return netlink.LinkByName(name)
}
func (realNetlinker) RouteList(link netlink.Link, family int) ([]netlink.Route, error) {
	return netlink.RouteList(link, family)
}

// Real returns the Netlinker backed by the live kernel routing table.
func Real() Netlinker { return realNetlinker{} }

// ErrNoDefaultInterface is returned when no up interface on the host
// carries an IPv4 default route.
var ErrNoDefaultInterface = fmt.Errorf("no interface with a default route found")

// Resolve returns the named interface if given, after validating it is up
// and default-routed; otherwise it picks the first interface (in kernel
// enumeration order) that is up and carries a default route, matching the
// original source's "first active interface" fallback (SPEC_FULL.md §7).
func Resolve(nl Netlinker, requested string) (string, error) {
	if requested != "" {
		link, err := nl.LinkByName(requested)
		if err != nil {
			return "", fmt.Errorf("interface %q not found: %w", requested, err)
		}
		if !isUp(link) {
			return "", fmt.Errorf("interface %q is not up", requested)
		}
		hasDefault, err := hasDefaultRoute(nl, link)
		if err != nil {
			return "", err
		}
		if !hasDefault {
			return "", fmt.Errorf("interface %q has no default route", requested)
		}
		return requested, nil
	}

	links, err := nl.LinkList()
	if err != nil {
		return "", fmt.Errorf("listing interfaces: %w", err)
	}
	for _, link := range links {
		if link.Attrs().Name == "lo" || !isUp(link) {
			continue
		}
		hasDefault, err := hasDefaultRoute(nl, link)
		if err != nil {
			return "", err
		}
		if hasDefault {
			return link.Attrs().Name, nil
		}
	}
	return "", ErrNoDefaultInterface
}

func isUp(link netlink.Link) bool {
	return link.Attrs().Flags&net.FlagUp != 0
}

func hasDefaultRoute(nl Netlinker, link netlink.Link) (bool, error) {
	routes, err := nl.RouteList(link, netlink.FAMILY_V4)
	if err != nil {
		return false, fmt.Errorf("listing routes for %q: %w", link.Attrs().Name, err)
	}
	for _, r := range routes {
		if r.Dst == nil {
			return true, nil
		}
	}
	return false, nil
}
