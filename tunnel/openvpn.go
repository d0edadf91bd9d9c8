package tunnel

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/vishvananda/netns"
	"golang.org/x/sys/unix"

	"github.com/vopono-go/vopono/vpntypes"
)

// readinessToken is the line OpenVPN prints to stdout once the tunnel is
// usable.
const readinessToken = "Initialization Sequence Completed"

// DefaultReadinessTimeout is the bounded wait for the readiness token
// before reporting ErrTunnelNotReady (spec.md §4.3).
const DefaultReadinessTimeout = 30 * time.Second

// OpenVpnConfig describes one OpenVPN launch.
type OpenVpnConfig struct {
	Namespace        string
	ConfigPath       string
	AuthFile         string // empty disables --auth-user-pass
	DNS              []string
	Host             string
	Port             uint16
	Proto            vpntypes.OpenVpnProtocol
	KillSwitch       bool
	ReadinessTimeout time.Duration

	// NsHandle is the kernel network namespace openvpn must be started in
	// and the kill-switch rules scoped to. Set by namespace.Create, which
	// is the only caller that holds a live handle.
	NsHandle netns.NsHandle
}

// OpenVpnProcess supervises the `openvpn` binary inside a namespace: starts
// it, installs kill-switch rules before the tunnel can leak traffic, and
// polls stdout/stderr for readinessToken with a bounded timeout. Grounded
// on the backoff-driven readiness wait in app/child.go's waitForInterface
// and the kill-switch rule construction in
// nsjail_manager/nsjail/dummy_dns.go (same DROP-by-default shape, applied
// to the VPN host:port exception here instead of a dummy DNS server).
type OpenVpnProcess struct {
	logger *slog.Logger
	cfg    OpenVpnConfig
	cmd    *exec.Cmd

	lines  chan string
	exited chan error
}

// Start launches openvpn inside cfg.NsHandle and installs kill-switch
// rules unless disabled. The process itself is forked while the calling
// goroutine's OS thread is switched into the target namespace (see
// runInNamespace), so it inherits the namespace the same way a child of
// `ip netns exec` would.
func Start(ctx context.Context, logger *slog.Logger, cfg OpenVpnConfig) (*OpenVpnProcess, error) {
	if cfg.ReadinessTimeout == 0 {
		cfg.ReadinessTimeout = DefaultReadinessTimeout
	}

	args := []string{"--config", cfg.ConfigPath, "--route-nopull"}
	if cfg.AuthFile != "" {
		args = append(args, "--auth-user-pass", cfg.AuthFile)
	}
	for _, ns := range cfg.DNS {
		args = append(args, "--route", ns, "255.255.255.255", "net_gateway")
	}

	cmd := exec.CommandContext(ctx, "openvpn", args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{AmbientCaps: []uintptr{unix.CAP_NET_ADMIN}}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("attaching openvpn stdout: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("attaching openvpn stderr: %w", err)
	}

	p := &OpenVpnProcess{
		logger: logger,
		cfg:    cfg,
		cmd:    cmd,
		lines:  make(chan string, 64),
		exited: make(chan error, 1),
	}

	if err := runInNamespace(cfg.NsHandle, cmd.Start); err != nil {
		return nil, fmt.Errorf("starting openvpn: %w", err)
	}

	p.pump(stdout)
	p.pump(stderr)
	go func() { p.exited <- cmd.Wait() }()

	if cfg.KillSwitch {
		if err := runInNamespace(cfg.NsHandle, p.installKillSwitch); err != nil {
			_ = p.Stop()
			return nil, err
		}
	}

	if err := p.awaitReadiness(ctx, cfg.ReadinessTimeout); err != nil {
		_ = p.Stop()
		return nil, err
	}

	return p, nil
}

// pump starts a reader goroutine that forwards lines to p.lines until the
// underlying pipe reaches EOF, matching the "dedicated reader threads to
// prevent pipe backpressure" requirement of spec.md §5. A line is dropped
// when p.lines is full; p.lines is never closed, since both pipes share it.
func (p *OpenVpnProcess) pump(r io.Reader) {
	go func() {
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			line := scanner.Text()
			p.logger.Debug("openvpn output", "line", line)
			select {
			case p.lines <- line:
			default:
			}
		}
	}()
}

// errAwaitingToken signals backoff.Retry to keep polling; it never escapes
// awaitReadiness itself.
var errAwaitingToken = errors.New("openvpn readiness token not yet observed")

// awaitReadiness polls p.lines/p.exited for readinessToken with the same
// bounded exponential backoff the teacher uses to wait for a namespace
// interface to appear (app/child.go's waitForInterface).
func (p *OpenVpnProcess) awaitReadiness(ctx context.Context, timeout time.Duration) error {
	retryCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 50 * time.Millisecond
	b.MaxInterval = 500 * time.Millisecond
	b.Multiplier = 2.0

	_, err := backoff.Retry(retryCtx, p.pollReadiness, backoff.WithBackOff(b))
	if err == nil {
		return nil
	}

	var died *ErrTunnelDied
	if errors.As(err, &died) {
		return died
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	return ErrTunnelNotReady
}

func (p *OpenVpnProcess) pollReadiness() (struct{}, error) {
	select {
	case line := <-p.lines:
		if strings.Contains(line, readinessToken) {
			return struct{}{}, nil
		}
		return struct{}{}, errAwaitingToken
	case err := <-p.exited:
		code := -1
		if exitErr, ok := err.(*exec.ExitError); ok {
			code = exitErr.ExitCode()
		} else if err == nil {
			code = 0
		}
		return struct{}{}, backoff.Permanent(&ErrTunnelDied{ExitCode: code})
	default:
		return struct{}{}, errAwaitingToken
	}
}

// installKillSwitch restricts OUTPUT traffic inside the namespace to the
// VPN host:port and loopback only, so a tunnel that goes down mid-session
// cannot leak traffic through the veth's default route.
func (p *OpenVpnProcess) installKillSwitch() error {
	proto := "udp"
	if p.cfg.Proto == vpntypes.TCP {
		proto = "tcp"
	}
	port := fmt.Sprintf("%d", p.cfg.Port)

	commands := [][]string{
		{"-A", "OUTPUT", "-o", "lo", "-j", "ACCEPT"},
		{"-A", "OUTPUT", "-p", proto, "-d", p.cfg.Host, "--dport", port, "-j", "ACCEPT"},
		{"-A", "OUTPUT", "-j", "DROP"},
	}
	for _, args := range commands {
		cmd := exec.Command("iptables", args...)
		cmd.SysProcAttr = &syscall.SysProcAttr{AmbientCaps: []uintptr{unix.CAP_NET_ADMIN}}
		if out, err := cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("installing kill-switch rule %v: %w, output: %s", args, err, out)
		}
	}
	return nil
}

// Stop terminates the supervised process, best-effort.
func (p *OpenVpnProcess) Stop() error {
	if p.cmd.Process == nil {
		return nil
	}
	if err := p.cmd.Process.Signal(os.Interrupt); err != nil {
		return p.cmd.Process.Kill()
	}
	select {
	case <-p.exited:
	case <-time.After(5 * time.Second):
		return p.cmd.Process.Kill()
	}
	return nil
}
