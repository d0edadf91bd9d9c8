package netiface

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vishvananda/netlink"
)

type fakeNetlinker struct {
	links  []netlink.Link
	routes map[string][]netlink.Route
}

func (f *fakeNetlinker) LinkList() ([]netlink.Link, error) { return f.links, nil }

func (f *fakeNetlinker) LinkByName(name string) (netlink.Link, error) {
	for _, l := range f.links {
		if l.Attrs().Name == name {
			return l, nil
		}
	}
	return nil, net.UnknownNetworkError(name)
}

func (f *fakeNetlinker) RouteList(link netlink.Link, family int) ([]netlink.Route, error) {
	return f.routes[link.Attrs().Name], nil
}

func upDevice(name string) netlink.Link {
	return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: name, Flags: net.FlagUp}}
}

func downDevice(name string) netlink.Link {
	return &netlink.Device{LinkAttrs: netlink.LinkAttrs{Name: name}}
}

func TestResolvePicksFirstUpInterfaceWithDefaultRoute(t *testing.T) {
	nl := &fakeNetlinker{
		links: []netlink.Link{upDevice("lo"), downDevice("eth1"), upDevice("eth0")},
		routes: map[string][]netlink.Route{
			"eth0": {{Dst: nil}},
		},
	}

	iface, err := Resolve(nl, "")
	require.NoError(t, err)
	require.Equal(t, "eth0", iface)
}

func TestResolveSkipsInterfacesWithoutDefaultRoute(t *testing.T) {
	_, dst, _ := net.ParseCIDR("192.168.1.0/24")
	nl := &fakeNetlinker{
		links: []netlink.Link{upDevice("eth0"), upDevice("eth1")},
		routes: map[string][]netlink.Route{
			"eth0": {{Dst: dst}},
			"eth1": {{Dst: nil}},
		},
	}

	iface, err := Resolve(nl, "")
	require.NoError(t, err)
	require.Equal(t, "eth1", iface)
}

func TestResolveNoDefaultInterfaceFound(t *testing.T) {
	_, dst, _ := net.ParseCIDR("192.168.1.0/24")
	nl := &fakeNetlinker{
		links:  []netlink.Link{upDevice("eth0")},
		routes: map[string][]netlink.Route{"eth0": {{Dst: dst}}},
	}

	_, err := Resolve(nl, "")
	require.ErrorIs(t, err, ErrNoDefaultInterface)
}

func TestResolveExplicitInterfaceMustBeUpWithDefaultRoute(t *testing.T) {
	nl := &fakeNetlinker{
		links: []netlink.Link{downDevice("eth0")},
	}

	_, err := Resolve(nl, "eth0")
	require.Error(t, err)
}

func TestResolveExplicitInterfaceNotFound(t *testing.T) {
	nl := &fakeNetlinker{}
	_, err := Resolve(nl, "eth9")
	require.Error(t, err)
}

func TestResolveExplicitInterfaceHonored(t *testing.T) {
	nl := &fakeNetlinker{
		links:  []netlink.Link{upDevice("eth0"), upDevice("eth7")},
		routes: map[string][]netlink.Route{"eth7": {{Dst: nil}}},
	}

	iface, err := Resolve(nl, "eth7")
	require.NoError(t, err)
	require.Equal(t, "eth7", iface)
}
