package namespace

import (
	"fmt"
	"net"
)

// subnetBase and maxSubnetOctet implement the TargetSubnet allocation rule of
// spec.md §3: a /24 chosen from 10.200.0.0/16 by scanning existing
// namespaces' assigned subnets and picking the lowest free third octet.
var subnetBase = net.IPv4(10, 200, 0, 0).To4()

const maxSubnetOctet = 255

// ErrSubnetsExhausted is returned when every /24 in 10.200.0.0/16 is
// already assigned to a live namespace.
var ErrSubnetsExhausted = fmt.Errorf("no free /24 subnet remains in 10.200.0.0/16")

// AllocateSubnet returns the lowest free 10.200.<n>.0/24 not present in
// taken, where taken holds the third octet of every live namespace's
// subnet.
func AllocateSubnet(taken map[int]bool) (*net.IPNet, error) {
	for n := 0; n <= maxSubnetOctet; n++ {
		if taken[n] {
			continue
		}
		ip := net.IPv4(subnetBase[0], subnetBase[1], byte(n), 0)
		return &net.IPNet{IP: ip.To4(), Mask: net.CIDRMask(24, 32)}, nil
	}
	return nil, ErrSubnetsExhausted
}

// ThirdOctet extracts the third octet from a previously-allocated /24, the
// inverse operation AllocateSubnet's taken map is built from when scanning
// existing lockfiles' veth_host_ip fields.
func ThirdOctet(subnet *net.IPNet) (int, error) {
	ip := subnet.IP.To4()
	if ip == nil || ip[0] != subnetBase[0] || ip[1] != subnetBase[1] {
		return 0, fmt.Errorf("subnet %s is not in 10.200.0.0/16", subnet)
	}
	return int(ip[2]), nil
}
