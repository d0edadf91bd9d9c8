// Package vpntypes holds the data model shared by provider selection and
// namespace construction: providers, protocols, servers and the derived
// namespace name.
package vpntypes

import "fmt"

// VpnProvider is a tagged variant over the small set of providers vopono
// ships config fetchers for, plus the escape hatch for user-supplied
// config files.
type VpnProvider string

const (
	PrivateInternetAccess VpnProvider = "privateinternetaccess"
	Mullvad                VpnProvider = "mullvad"
	TigerVpn               VpnProvider = "tigervpn"
	Custom                 VpnProvider = "custom"
)

// Alias is the short, lowercase, <=4 char provider key used in namespace
// names and config directory paths.
func (p VpnProvider) Alias() string {
	switch p {
	case PrivateInternetAccess:
		return "pia"
	case Mullvad:
		return "mv"
	case TigerVpn:
		return "tig"
	case Custom:
		return "cus"
	default:
		return "unk"
	}
}

// DefaultDNS returns the provider's advertised DNS server list, used when
// the operator does not pass --dns explicitly.
func (p VpnProvider) DefaultDNS() []string {
	switch p {
	case PrivateInternetAccess:
		return []string{"209.222.18.222", "209.222.18.218"}
	case Mullvad:
		return []string{"193.138.218.74"}
	case TigerVpn:
		return []string{"8.8.8.8", "8.8.4.4"}
	case Custom:
		return []string{"8.8.8.8", "8.8.4.4"}
	default:
		return nil
	}
}

// DefaultProtocol is the protocol used when the caller does not request
// one explicitly. See Resolve for the full provider/protocol table.
func (p VpnProvider) DefaultProtocol() Protocol {
	switch p {
	case Mullvad, Custom:
		return Wireguard
	default:
		return OpenVpn
	}
}

func ParseVpnProvider(s string) (VpnProvider, error) {
	switch s {
	case "pia", "privateinternetaccess":
		return PrivateInternetAccess, nil
	case "mv", "mullvad":
		return Mullvad, nil
	case "tig", "tigervpn":
		return TigerVpn, nil
	case "cus", "custom":
		return Custom, nil
	default:
		return "", fmt.Errorf("unknown VPN provider: %s", s)
	}
}

// Protocol is the tunnel protocol: OpenVPN or WireGuard.
type Protocol string

const (
	OpenVpn   Protocol = "openvpn"
	Wireguard Protocol = "wireguard"
)

func (p Protocol) String() string { return string(p) }

// OpenVpnProtocol is the OpenVPN transport: UDP or TCP.
type OpenVpnProtocol string

const (
	UDP OpenVpnProtocol = "udp"
	TCP OpenVpnProtocol = "tcp"
)

func ParseOpenVpnProtocol(s string) (OpenVpnProtocol, error) {
	switch s {
	case "udp":
		return UDP, nil
	case "tcp", "tcp-client":
		return TCP, nil
	default:
		return "", fmt.Errorf("unknown OpenVPN protocol: %s", s)
	}
}

func (p OpenVpnProtocol) String() string {
	switch p {
	case TCP:
		return "tcp"
	default:
		return "udp"
	}
}

// VpnServer is one row from a provider's serverlist.csv.
type VpnServer struct {
	Name     string
	Alias    string
	Host     string
	Port     uint16
	Protocol OpenVpnProtocol
}
