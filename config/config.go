// Package config holds the CLI-facing flag struct shared by every vopono
// subcommand, and the translation from raw serpent values into the typed
// AppConfig the core components consume. Grounded on cli.Config/
// config.CliConfig's YAML-plus-flags-plus-env pattern, generalized from the
// teacher's single JailType flag to the provider/protocol/server selection
// surface spec.md §4.7 and §4.9 require.
package config

import (
	"fmt"

	"github.com/coder/serpent"

	"github.com/vopono-go/vopono/vpntypes"
)

// CliConfig is the raw serpent-bound flag set. Every field is read via
// .Value() after serpent has applied flag/env/YAML precedence.
type CliConfig struct {
	ConfigFile serpent.YAMLConfigPath `yaml:"-"`

	LogLevel serpent.String `yaml:"log_level"`
	LogDir   serpent.String `yaml:"log_dir"`

	ConfigDir serpent.String `yaml:"config_dir"`
	RunDir    serpent.String `yaml:"run_dir"`

	VpnProvider    serpent.String      `yaml:"vpn_provider"`
	Server         serpent.String      `yaml:"server"`
	Protocol       serpent.String      `yaml:"protocol"`
	CustomConfig   serpent.String      `yaml:"custom_config"`
	Interface      serpent.String      `yaml:"interface"`
	DNS            serpent.StringArray `yaml:"dns"`
	NoKillSwitch   serpent.Bool        `yaml:"no_killswitch"`
	User           serpent.String      `yaml:"user"`
	AllowRoot      serpent.Bool        `yaml:"allow_root"`
	NamespaceName  serpent.String      `yaml:"namespace"`
}

// AppConfig is the typed, validated configuration the core passes between
// its components; everything downstream of CLI parsing uses this, never
// CliConfig directly.
type AppConfig struct {
	LogLevel string
	LogDir   string

	ConfigDir string
	RunDir    string

	VpnProvider      vpntypes.VpnProvider
	Server           string
	Protocol         vpntypes.Protocol
	CustomConfigPath string
	Interface        string
	DNS              []string
	KillSwitch       bool
	User             string
	AllowRoot        bool
	NamespaceName    string

	TargetCMD []string
}

// NewAppConfigFromCliConfig validates and converts the raw flag values,
// matching NewAppConfigFromCliConfig's role in the teacher's config
// package: the one place CLI string values become typed domain values.
func NewAppConfigFromCliConfig(cfg CliConfig, targetCMD []string) (AppConfig, error) {
	var provider vpntypes.VpnProvider
	if raw := cfg.VpnProvider.Value(); raw != "" {
		var err error
		provider, err = vpntypes.ParseVpnProvider(raw)
		if err != nil {
			return AppConfig{}, err
		}
	}

	var protocol vpntypes.Protocol
	if raw := cfg.Protocol.Value(); raw != "" {
		switch raw {
		case string(vpntypes.OpenVpn):
			protocol = vpntypes.OpenVpn
		case string(vpntypes.Wireguard):
			protocol = vpntypes.Wireguard
		default:
			return AppConfig{}, fmt.Errorf("unknown protocol %q: must be %q or %q", raw, vpntypes.OpenVpn, vpntypes.Wireguard)
		}
	}

	return AppConfig{
		LogLevel:         cfg.LogLevel.Value(),
		LogDir:           cfg.LogDir.Value(),
		ConfigDir:        cfg.ConfigDir.Value(),
		RunDir:           cfg.RunDir.Value(),
		VpnProvider:      provider,
		Server:           cfg.Server.Value(),
		Protocol:         protocol,
		CustomConfigPath: cfg.CustomConfig.Value(),
		Interface:        cfg.Interface.Value(),
		DNS:              cfg.DNS.Value(),
		KillSwitch:       !cfg.NoKillSwitch.Value(),
		User:             cfg.User.Value(),
		AllowRoot:        cfg.AllowRoot.Value(),
		NamespaceName:    cfg.NamespaceName.Value(),
		TargetCMD:        targetCMD,
	}, nil
}
