package namespace

import (
	"net"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateSubnetPicksLowestFreeOctet(t *testing.T) {
	subnet, err := AllocateSubnet(map[int]bool{0: true, 1: true, 3: true})
	require.NoError(t, err)
	require.Equal(t, "10.200.2.0/24", subnet.String())
}

func TestAllocateSubnetEmptyTakenStartsAtZero(t *testing.T) {
	subnet, err := AllocateSubnet(nil)
	require.NoError(t, err)
	require.Equal(t, "10.200.0.0/24", subnet.String())
}

func TestAllocateSubnetExhausted(t *testing.T) {
	taken := make(map[int]bool, maxSubnetOctet+1)
	for n := 0; n <= maxSubnetOctet; n++ {
		taken[n] = true
	}
	_, err := AllocateSubnet(taken)
	require.ErrorIs(t, err, ErrSubnetsExhausted)
}

func TestThirdOctetRoundTripsWithAllocateSubnet(t *testing.T) {
	subnet, err := AllocateSubnet(map[int]bool{0: true})
	require.NoError(t, err)

	octet, err := ThirdOctet(subnet)
	require.NoError(t, err)
	require.Equal(t, 1, octet)
}

func TestThirdOctetRejectsOutOfRangeSubnet(t *testing.T) {
	_, outside, err := net.ParseCIDR("192.168.1.0/24")
	require.NoError(t, err)

	_, err = ThirdOctet(outside)
	require.Error(t, err)
}
