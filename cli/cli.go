// Package cli wires vopono's serpent command tree: `exec` runs a command
// inside a namespace (creating or attaching to one as needed), `list`
// prints the namespaces recorded in the lock registry and their
// attachments, and `sync` passes a fetch request to sync.Unimplemented,
// which always returns an error. Grounded on the teacher's BaseCommand/
// NewCommand split and its YAML-config-path + flag/env option wiring,
// generalized from one flat command to a parent command with children.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/coder/serpent"

	"github.com/vopono-go/vopono/config"
	"github.com/vopono-go/vopono/credentials"
	"github.com/vopono-go/vopono/list"
	"github.com/vopono-go/vopono/lockregistry"
	"github.com/vopono-go/vopono/logging"
	"github.com/vopono-go/vopono/netiface"
	"github.com/vopono-go/vopono/privilege"
	"github.com/vopono-go/vopono/provider"
	"github.com/vopono-go/vopono/run"
	"github.com/vopono-go/vopono/sync"
	"github.com/vopono-go/vopono/util"
	"github.com/vopono-go/vopono/vpntypes"
)

// NewCommand builds the root `vopono` command.
func NewCommand() *serpent.Command {
	cfg := config.CliConfig{}
	options := sharedOptions(&cfg)

	return &serpent.Command{
		Use:   "vopono",
		Short: "Run applications in isolated, per-VPN-connection network namespaces.",
		Long: `vopono creates a named Linux network namespace routed through a VPN
tunnel (OpenVPN or WireGuard), and runs the given command inside it. Multiple
invocations against the same provider/server attach to the already-running
namespace rather than starting a second tunnel.

Examples:
  # Run firefox through Mullvad's se-got-wg-001 server
  vopono exec --vpn-provider mullvad --server se-got-wg-001 -- firefox

  # List every namespace currently running
  vopono list`,
		Options: options,
		Children: []*serpent.Command{
			execCommand(&cfg),
			listCommand(&cfg),
			syncCommand(&cfg),
		},
		Handler: func(inv *serpent.Invocation) error {
			return fmt.Errorf("specify a subcommand: exec, list, or sync")
		},
	}
}

// sharedOptions are the flags every subcommand accepts, bound to one
// CliConfig instance so `vopono --config-dir=... exec ...` works the same
// whether the flag appears before or after the subcommand name.
func sharedOptions(cfg *config.CliConfig) []serpent.Option {
	defaultConfigDir := util.GetUserInfo().ConfigDir

	return []serpent.Option{
		{Flag: "config", Env: "VOPONO_CONFIG", Description: "Path to YAML config file.", Value: &cfg.ConfigFile, YAML: ""},
		{Flag: "log-level", Env: "VOPONO_LOG_LEVEL", Description: "Set log level (error, warn, info, debug).", Default: "warn", Value: &cfg.LogLevel, YAML: "log_level"},
		{Flag: "log-dir", Env: "VOPONO_LOG_DIR", Description: "Directory to write logs to, instead of stderr.", Value: &cfg.LogDir, YAML: "log_dir"},
		{Flag: "config-dir", Env: "VOPONO_CONFIG_DIR", Description: "Directory holding provider server lists and credentials.", Default: defaultConfigDir, Value: &cfg.ConfigDir, YAML: "config_dir"},
		{Flag: "run-dir", Env: "VOPONO_RUN_DIR", Description: "Directory holding the lock registry.", Default: util.RuntimeDir(), Value: &cfg.RunDir, YAML: "run_dir"},
	}
}

func execCommand(cfg *config.CliConfig) *serpent.Command {
	return &serpent.Command{
		Use:   "exec [flags] -- command [args...]",
		Short: "Run a command inside a VPN-routed network namespace.",
		Options: []serpent.Option{
			{Flag: "vpn-provider", Env: "VOPONO_VPN_PROVIDER", Description: "VPN provider: mullvad, pia, tigervpn, or custom.", Value: &cfg.VpnProvider, YAML: "vpn_provider"},
			{Flag: "server", Env: "VOPONO_SERVER", Description: "Server alias from the provider's server list.", Value: &cfg.Server, YAML: "server"},
			{Flag: "protocol", Env: "VOPONO_PROTOCOL", Description: "Tunnel protocol: openvpn or wireguard. Defaults to the provider's default.", Value: &cfg.Protocol, YAML: "protocol"},
			{Flag: "custom-config", Env: "VOPONO_CUSTOM_CONFIG", Description: "Path to a user-supplied .ovpn or .conf file instead of a provider server.", Value: &cfg.CustomConfig, YAML: "custom_config"},
			{Flag: "interface", Env: "VOPONO_INTERFACE", Description: "Host egress interface. Defaults to the first up interface with a default route.", Value: &cfg.Interface, YAML: "interface"},
			{Flag: "dns", Env: "VOPONO_DNS", Description: "DNS server (repeatable). Defaults to the provider's advertised resolvers.", Value: &cfg.DNS, YAML: "dns"},
			{Flag: "no-killswitch", Env: "VOPONO_NO_KILLSWITCH", Description: "Disable the iptables kill-switch.", Value: &cfg.NoKillSwitch, YAML: "no_killswitch"},
			{Flag: "user", Env: "VOPONO_USER", Description: "Unprivileged user to run the command as. Defaults to SUDO_USER.", Value: &cfg.User, YAML: "user"},
			{Flag: "allow-root", Env: "VOPONO_ALLOW_ROOT", Description: "Allow running the command as root when no other identity can be determined.", Value: &cfg.AllowRoot, YAML: "allow_root"},
			{Flag: "namespace", Env: "VOPONO_NAMESPACE", Description: "Namespace name override. Defaults to a name derived from provider and server.", Value: &cfg.NamespaceName, YAML: "namespace"},
		},
		Handler: func(inv *serpent.Invocation) error {
			if len(inv.Args) == 0 {
				return fmt.Errorf("no command specified; usage: vopono exec [flags] -- command [args...]")
			}
			return runExec(inv.Context(), *cfg, inv.Args)
		},
	}
}

func listCommand(cfg *config.CliConfig) *serpent.Command {
	return &serpent.Command{
		Use:   "list",
		Short: "List live namespaces and their attached applications.",
		Handler: func(inv *serpent.Invocation) error {
			locks := lockregistry.New(cfg.RunDir.Value())
			namespaces, err := list.Collect(locks)
			if err != nil {
				return err
			}
			return list.WriteTable(os.Stdout, namespaces)
		},
	}
}

func syncCommand(cfg *config.CliConfig) *serpent.Command {
	var providerFlag serpent.String
	return &serpent.Command{
		Use:   "sync",
		Short: "Fetch a provider's server list and config archive.",
		Options: []serpent.Option{
			{Flag: "vpn-provider", Env: "VOPONO_VPN_PROVIDER", Description: "Provider to sync. Omit to sync every known provider.", Value: &providerFlag},
		},
		Handler: func(inv *serpent.Invocation) error {
			logger, err := logging.Setup(logging.Config{Level: cfg.LogLevel.Value(), LogDir: cfg.LogDir.Value()})
			if err != nil {
				return err
			}
			syncer := sync.Unimplemented{Logger: logger}
			req := provider.SyncRequest{}
			if raw := providerFlag.Value(); raw != "" {
				p, err := vpntypes.ParseVpnProvider(raw)
				if err != nil {
					return err
				}
				req.Provider = p
			}
			return syncer.Sync(inv.Context(), req)
		},
	}
}

// runExec is the exec subcommand's body, split out so it stays testable
// without going through serpent's Invocation plumbing.
func runExec(ctx context.Context, cliCfg config.CliConfig, targetCMD []string) error {
	if err := privilege.EnsurePrivileges(); err != nil {
		return err
	}

	cfg, err := config.NewAppConfigFromCliConfig(cliCfg, targetCMD)
	if err != nil {
		return err
	}

	logger, err := logging.Setup(logging.Config{Level: cfg.LogLevel, LogDir: cfg.LogDir})
	if err != nil {
		return err
	}

	locks := lockregistry.New(cfg.RunDir)
	if drained, err := locks.SweepLocks(); err != nil {
		logger.Warn("lock registry sweep failed", "error", err)
	} else {
		for _, name := range drained {
			logger.Info("tearing down namespace with no remaining attachments", "namespace", name)
			run.SweepNamespace(logger, name)
		}
	}

	deps := run.Deps{
		Logger:    logger,
		Selector:  &provider.Selector{ConfigDir: cfg.ConfigDir, Syncer: sync.Unimplemented{Logger: logger}, Logger: logger},
		Locks:     locks,
		Prompter:  credentials.TerminalPrompter{},
		Netlinker: netiface.Real(),
	}

	exitCode, err := run.Exec(ctx, deps, cfg)
	if err != nil {
		return err
	}
	if exitCode != 0 {
		os.Exit(exitCode)
	}
	return nil
}
