package provider

import (
	"bufio"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/vopono-go/vopono/tunnel"
)

// ParseWireguardConfig reads a wg-quick style .conf file (the format
// providers ship in their WireGuard archives and the format --custom-config
// accepts for WireGuard) into a tunnel.WireguardConfig. Only the single
// [Interface]/[Peer] pair vopono namespaces use is supported; a second
// [Peer] section is an error (spec.md §1 Non-goals: one VPN connection per
// namespace).
//
// No library in the example pack parses wg-quick's plain key=value-per-
// line ini dialect (glacic's WireGuardConfig is HCL-backed, unrelated to
// this wire format) so this is a small hand-rolled scanner rather than an
// adapted dependency; see DESIGN.md.
func ParseWireguardConfig(path string, iface string, killSwitch bool) (tunnel.WireguardConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return tunnel.WireguardConfig{}, fmt.Errorf("opening wireguard config %s: %w", path, err)
	}
	defer f.Close()

	cfg := tunnel.WireguardConfig{Interface: iface, KillSwitch: killSwitch}

	var section string
	var haveAddress bool
	var havePeer bool

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			section = strings.ToLower(strings.TrimSuffix(strings.TrimPrefix(line, "["), "]"))
			if section == "peer" {
				if havePeer {
					return tunnel.WireguardConfig{}, fmt.Errorf("wireguard config %s has more than one [Peer] section", path)
				}
				havePeer = true
			}
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		value = strings.TrimSpace(value)

		switch section {
		case "interface":
			switch key {
			case "privatekey":
				cfg.PrivateKey = value
			case "address":
				addr, err := parseAddress(value)
				if err != nil {
					return tunnel.WireguardConfig{}, fmt.Errorf("wireguard config %s: %w", path, err)
				}
				cfg.Address = addr
				haveAddress = true
			case "dns":
				for _, d := range strings.Split(value, ",") {
					if d = strings.TrimSpace(d); d != "" {
						cfg.DNS = append(cfg.DNS, d)
					}
				}
			}
		case "peer":
			switch key {
			case "publickey":
				cfg.Peer.PublicKey = value
			case "presharedkey":
				cfg.Peer.PresharedKey = value
			case "endpoint":
				cfg.Peer.Endpoint = value
			case "allowedips":
				for _, a := range strings.Split(value, ",") {
					if a = strings.TrimSpace(a); a != "" {
						cfg.Peer.AllowedIPs = append(cfg.Peer.AllowedIPs, a)
					}
				}
			case "persistentkeepalive":
				secs, err := strconv.Atoi(value)
				if err != nil {
					return tunnel.WireguardConfig{}, fmt.Errorf("wireguard config %s: invalid PersistentKeepalive %q: %w", path, value, err)
				}
				cfg.Peer.Keepalive = time.Duration(secs) * time.Second
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return tunnel.WireguardConfig{}, fmt.Errorf("reading wireguard config %s: %w", path, err)
	}

	if cfg.PrivateKey == "" {
		return tunnel.WireguardConfig{}, fmt.Errorf("wireguard config %s: missing [Interface] PrivateKey", path)
	}
	if !haveAddress {
		return tunnel.WireguardConfig{}, fmt.Errorf("wireguard config %s: missing [Interface] Address", path)
	}
	if !havePeer || cfg.Peer.PublicKey == "" {
		return tunnel.WireguardConfig{}, fmt.Errorf("wireguard config %s: missing [Peer] PublicKey", path)
	}
	if cfg.Peer.Keepalive == 0 {
		cfg.Peer.Keepalive = 25 * time.Second
	}

	return cfg, nil
}

// parseAddress takes the first CIDR in a comma-separated Address value
// (wg-quick allows multiple; vopono only routes IPv4 per spec.md §1).
func parseAddress(value string) (*net.IPNet, error) {
	first := strings.TrimSpace(strings.Split(value, ",")[0])
	ip, ipnet, err := net.ParseCIDR(first)
	if err != nil {
		return nil, fmt.Errorf("invalid Address %q: %w", first, err)
	}
	ipnet.IP = ip
	return ipnet, nil
}
