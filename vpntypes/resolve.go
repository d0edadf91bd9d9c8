package vpntypes

import "errors"

// ErrUnsupported is returned by Resolve when the requested provider/protocol
// pair is not implemented (e.g. WireGuard on PIA or TigerVPN).
var ErrUnsupported = errors.New("unsupported provider/protocol combination")

// Resolve implements the protocol resolution table from the spec's
// ProviderSelector §4.7:
//
//	Mullvad  + none            -> Wireguard
//	Mullvad  + OpenVpn|Wireguard -> as requested
//	TigerVpn + none|OpenVpn    -> OpenVpn
//	TigerVpn + Wireguard       -> ErrUnsupported
//	PIA      + none|OpenVpn    -> OpenVpn
//	PIA      + Wireguard       -> ErrUnsupported
//	Custom   + none            -> Wireguard
//	Custom   + as specified    -> as specified
//
// requested == "" means "not specified".
func Resolve(provider VpnProvider, requested Protocol) (Protocol, error) {
	if requested == "" {
		return provider.DefaultProtocol(), nil
	}

	switch provider {
	case Mullvad, Custom:
		return requested, nil
	case TigerVpn, PrivateInternetAccess:
		if requested == Wireguard {
			return "", ErrUnsupported
		}
		return OpenVpn, nil
	default:
		return "", ErrUnsupported
	}
}
