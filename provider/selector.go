// Package provider implements ProviderSelector (spec.md §4.7): resolving a
// (provider, server alias, protocol) triple, or a custom config path, into
// concrete tunnel parameters.
package provider

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/vopono-go/vopono/vpntypes"
)

// SyncRequest is what the core asks the (external, pluggable) sync
// collaborator to fetch: a provider's config archive for a protocol. An
// empty Provider/Protocol means "fetch everything available", which is what
// the `sync` subcommand sends when no --vpn-provider is given.
type SyncRequest struct {
	Provider vpntypes.VpnProvider
	Protocol vpntypes.Protocol
}

// Syncer is the seam to the out-of-scope `sync` collaborator: it downloads
// and unpacks a provider's config archive into the expected filesystem
// layout (spec.md §6). The core never does this itself.
type Syncer interface {
	Sync(ctx context.Context, req SyncRequest) error
}

// Params is the caller-supplied selection request.
type Params struct {
	Provider         vpntypes.VpnProvider
	ServerAlias      string
	Protocol         vpntypes.Protocol // "" means unspecified
	CustomConfigPath string            // "" means not a custom config
	DNSOverride      []string          // --dns, if given
}

// Target is the result of a successful Select: enough information for
// NetworkNamespace.create and the tunnel component to proceed.
type Target struct {
	Provider   vpntypes.VpnProvider
	Protocol   vpntypes.Protocol
	ServerKey  string // namespace-name component
	ServerHost string // resolved OpenVPN host, empty for custom/WireGuard
	ServerPort uint16
	OVPNProto  vpntypes.OpenVpnProtocol
	ConfigPath string // .ovpn or .conf path to use
	DNS        []string
}

// Selector resolves provider/protocol/server combinations, reading config
// assets from configDir and invoking sync when they're missing or empty.
type Selector struct {
	ConfigDir string
	Syncer    Syncer
	Logger    *slog.Logger
}

// ErrArgument marks an error as a CLI argument mistake rather than a setup
// failure, so the `cli` boundary can map it to exit code 2 per spec.md §6.
var ErrArgument = fmt.Errorf("argument error")

// Select implements the five steps of spec.md §4.7.
func (s *Selector) Select(ctx context.Context, p Params) (Target, error) {
	if p.CustomConfigPath != "" {
		return s.selectCustom(ctx, p)
	}
	return s.selectNamed(ctx, p)
}

func (s *Selector) selectCustom(ctx context.Context, p Params) (Target, error) {
	if p.Protocol == "" {
		return Target{}, fmt.Errorf("%w: must specify --protocol when using --custom-config", ErrArgument)
	}

	serverKey := vpntypes.CustomConfigServerKey(p.CustomConfigPath)
	dns := p.DNSOverride
	if len(dns) == 0 {
		dns = vpntypes.Custom.DefaultDNS()
	}
	if err := ValidateDNSServers(dns); err != nil {
		return Target{}, err
	}

	return Target{
		Provider:   vpntypes.Custom,
		Protocol:   p.Protocol,
		ServerKey:  serverKey,
		ConfigPath: p.CustomConfigPath,
		DNS:        dns,
	}, nil
}

func (s *Selector) selectNamed(ctx context.Context, p Params) (Target, error) {
	if p.Provider == "" {
		return Target{}, fmt.Errorf("%w: must specify --vpn-provider", ErrArgument)
	}
	if p.Provider == vpntypes.Custom {
		return Target{}, fmt.Errorf("%w: must provide --custom-config when using the custom provider", ErrArgument)
	}
	if p.ServerAlias == "" {
		return Target{}, fmt.Errorf("%w: must specify --server", ErrArgument)
	}

	protocol, err := vpntypes.Resolve(p.Provider, p.Protocol)
	if err != nil {
		return Target{}, err
	}

	if err := s.ensureConfigAssets(ctx, p.Provider, protocol); err != nil {
		return Target{}, err
	}

	dns := p.DNSOverride
	if len(dns) == 0 {
		dns = p.Provider.DefaultDNS()
	}
	if err := ValidateDNSServers(dns); err != nil {
		return Target{}, err
	}

	target := Target{
		Provider: p.Provider,
		Protocol: protocol,
		DNS:      dns,
	}

	switch protocol {
	case vpntypes.OpenVpn:
		listPath := filepath.Join(s.ConfigDir, p.Provider.Alias(), "openvpn", "serverlist.csv")
		servers, err := LoadServerList(listPath, s.logf)
		if err != nil {
			return Target{}, err
		}
		server, err := FindHostFromAlias(p.ServerAlias, servers)
		if err != nil {
			return Target{}, err
		}
		target.ServerKey = server.Alias
		target.ServerHost = server.Host
		target.ServerPort = server.Port
		target.OVPNProto = server.Protocol
		target.ConfigPath = filepath.Join(s.ConfigDir, p.Provider.Alias(), "openvpn", server.Alias+".ovpn")
	case vpntypes.Wireguard:
		target.ServerKey = p.ServerAlias
		target.ConfigPath = filepath.Join(s.ConfigDir, p.Provider.Alias(), "wireguard", p.ServerAlias+".conf")
	}

	return target, nil
}

// ensureConfigAssets implements the "missing or empty config dir triggers
// sync" rule from spec.md §4.7 step 5 and SPEC_FULL.md §7, matching the
// original source's `!cdir.exists() || cdir.read_dir()?.next().is_none()`.
func (s *Selector) ensureConfigAssets(ctx context.Context, provider vpntypes.VpnProvider, protocol vpntypes.Protocol) error {
	dir := filepath.Join(s.ConfigDir, provider.Alias(), protocolDirName(protocol))

	if !dirExistsAndNonEmpty(dir) {
		s.Logger.Info("config files missing, syncing", "provider", provider, "protocol", protocol)
		if s.Syncer == nil {
			return fmt.Errorf("config files for %s %s do not exist and no sync collaborator is configured", provider, protocol)
		}
		if err := s.Syncer.Sync(ctx, SyncRequest{Provider: provider, Protocol: protocol}); err != nil {
			return fmt.Errorf("sync failed for %s %s: %w", provider, protocol, err)
		}
		if !dirExistsAndNonEmpty(dir) {
			return fmt.Errorf("config files for %s %s still missing after sync", provider, protocol)
		}
	}

	return nil
}

func protocolDirName(p vpntypes.Protocol) string {
	switch p {
	case vpntypes.Wireguard:
		return "wireguard"
	default:
		return "openvpn"
	}
}

func dirExistsAndNonEmpty(dir string) bool {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	return len(entries) > 0
}

func (s *Selector) logf(msg string, args ...any) {
	if s.Logger != nil {
		s.Logger.Warn(msg, args...)
	}
}
