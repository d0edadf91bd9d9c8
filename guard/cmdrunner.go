package guard

import (
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// privilegedCommand is a shell-out step tagged with the ambient capability
// it needs, mirroring the teacher's command-runner pattern: every `ip` /
// `iptables` / `sysctl` invocation gets CAP_NET_ADMIN via AmbientCaps
// instead of running the whole process as root.
type privilegedCommand struct {
	description string
	cmd         *exec.Cmd
}

func netAdminCommand(description, name string, arg ...string) privilegedCommand {
	cmd := exec.Command(name, arg...)
	cmd.SysProcAttr = &syscall.SysProcAttr{AmbientCaps: []uintptr{unix.CAP_NET_ADMIN}}
	return privilegedCommand{description: description, cmd: cmd}
}

func runAll(commands ...privilegedCommand) error {
	for _, c := range commands {
		if out, err := c.cmd.CombinedOutput(); err != nil {
			return fmt.Errorf("failed to %s: %w, output: %s", c.description, err, out)
		}
	}
	return nil
}

// runAllBestEffort runs every command, logging but not failing on error;
// used for release paths where a partially-torn-down resource must not
// mask the caller's original error (spec.md §4.1).
func runAllBestEffort(onErr func(description string, err error, output []byte), commands ...privilegedCommand) {
	for _, c := range commands {
		if out, err := c.cmd.CombinedOutput(); err != nil && onErr != nil {
			onErr(c.description, err, out)
		}
	}
}
