package provider

import (
	"encoding/csv"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"

	"github.com/vopono-go/vopono/vpntypes"
)

// LoadServerList parses a provider's headerless serverlist.csv, with
// columns name,alias,host,port,protocol (the last two optional). Missing
// port defaults to 1194; missing protocol defaults to UDP, with the
// warning callback invoked so the caller can log it the way it sees fit.
func LoadServerList(path string, warn func(msg string, args ...any)) ([]vpntypes.VpnServer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open serverlist %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var servers []vpntypes.VpnServer
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("malformed serverlist %s: %w", path, err)
		}
		if len(record) < 3 {
			return nil, fmt.Errorf("malformed serverlist row in %s: need at least name,alias,host", path)
		}

		server := vpntypes.VpnServer{
			Name:  record[0],
			Alias: record[1],
			Host:  record[2],
			Port:  1194,
			Protocol: vpntypes.UDP,
		}

		if len(record) >= 4 && record[3] != "" {
			port, err := strconv.ParseUint(record[3], 10, 16)
			if err != nil {
				return nil, fmt.Errorf("invalid port %q for server %s: %w", record[3], server.Name, err)
			}
			server.Port = uint16(port)
		} else if warn != nil {
			warn("using default OpenVPN port 1194, no port provided", "host", server.Host)
		}

		if len(record) >= 5 && record[4] != "" {
			proto, err := vpntypes.ParseOpenVpnProtocol(record[4])
			if err != nil {
				return nil, fmt.Errorf("invalid protocol %q for server %s: %w", record[4], server.Name, err)
			}
			server.Protocol = proto
		} else if warn != nil {
			warn("using UDP as default OpenVPN protocol, no protocol provided", "host", server.Host)
		}

		servers = append(servers, server)
	}

	return servers, nil
}

// ErrNoMatchingServer is returned by FindHostFromAlias when no server in
// the list matches the requested alias prefix.
var ErrNoMatchingServer = fmt.Errorf("no matching server for alias")

// FindHostFromAlias chooses uniformly at random among the entries whose
// name, alias, or underscore-to-hyphen-normalized name starts with the
// lowercased alias. It never returns an entry not present in serverlist.
func FindHostFromAlias(alias string, serverlist []vpntypes.VpnServer) (vpntypes.VpnServer, error) {
	alias = strings.ToLower(alias)

	var matches []vpntypes.VpnServer
	for _, s := range serverlist {
		name := strings.ToLower(s.Name)
		serverAlias := strings.ToLower(s.Alias)
		hyphenated := strings.ReplaceAll(name, "_", "-")

		if strings.HasPrefix(name, alias) || strings.HasPrefix(serverAlias, alias) || strings.HasPrefix(hyphenated, alias) {
			matches = append(matches, s)
		}
	}

	if len(matches) == 0 {
		return vpntypes.VpnServer{}, fmt.Errorf("%w: %s", ErrNoMatchingServer, alias)
	}

	return matches[rand.Intn(len(matches))], nil
}
