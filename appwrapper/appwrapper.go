// Package appwrapper implements ApplicationWrapper (spec.md §4.6): spawns
// the user's command inside the active namespace as an unprivileged user,
// collects its output, and propagates its exit status. Grounded on the
// Credential-drop pattern used to hand a subprocess back to the original
// caller in network/linux.go's Execute and namespace/linux.go's Open/
// Command, generalized from the teacher's SUDO_USER-only fallback to the
// full --user -> SUDO_USER -> refuse-as-root chain spec.md requires.
package appwrapper

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"os/user"
	"strconv"
	"syscall"

	"github.com/vishvananda/netns"

	"github.com/vopono-go/vopono/environment"
	"github.com/vopono-go/vopono/lockregistry"
	"github.com/vopono-go/vopono/util"
)

// ErrRefusingRoot is returned when no unprivileged identity can be
// determined and the caller has not explicitly allowed running as root.
var ErrRefusingRoot = errors.New("refusing to run application as root; pass an explicit user or set AllowRoot")

// Identity is the resolved unprivileged (uid, gid, username, group) the
// application will run as.
type Identity struct {
	Username string
	Group    string
	Uid      int
	Gid      int
}

// ResolveIdentity implements the fallback chain of spec.md §4.6: explicit
// --user, then SUDO_USER, then refusal unless allowRoot is set.
func ResolveIdentity(explicitUser string, allowRoot bool) (Identity, error) {
	if explicitUser != "" {
		return identityForUsername(explicitUser)
	}

	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" {
		return identityForUsername(sudoUser)
	}

	if allowRoot {
		return Identity{Username: "root", Group: "root", Uid: 0, Gid: 0}, nil
	}

	return Identity{}, ErrRefusingRoot
}

func identityForUsername(username string) (Identity, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return Identity{}, fmt.Errorf("looking up user %q: %w", username, err)
	}
	uid, err := strconv.Atoi(u.Uid)
	if err != nil {
		return Identity{}, fmt.Errorf("parsing uid for %q: %w", username, err)
	}
	gid, err := strconv.Atoi(u.Gid)
	if err != nil {
		return Identity{}, fmt.Errorf("parsing gid for %q: %w", username, err)
	}
	group, err := util.GroupName(username)
	if err != nil {
		group = ""
	}
	return Identity{Username: username, Group: group, Uid: uid, Gid: gid}, nil
}

// Wrapper spawns commands as Identity inside the active namespace and
// tracks the corresponding lock record.
type Wrapper struct {
	logger   *slog.Logger
	registry *lockregistry.Registry
}

// New returns a Wrapper that records attachments in registry.
func New(logger *slog.Logger, registry *lockregistry.Registry) *Wrapper {
	return &Wrapper{logger: logger, registry: registry}
}

// Run asserts a lockfile for this pid, execs command inside namespace with
// identity's privileges, waits for it to exit, then removes the lockfile
// and reports whether this was the last attachment to namespace (so the
// caller can trigger teardown). The returned exit code is the child's, or
// -1 if it could not be determined.
func (w *Wrapper) Run(namespace string, record lockregistry.LockRecord, identity Identity, command []string) (exitCode int, lastAttachment bool, err error) {
	record.Namespace = namespace
	record.Pid = os.Getpid()
	record.User = identity.Username
	record.Group = identity.Group

	if err := w.registry.Write(record); err != nil {
		return -1, false, fmt.Errorf("writing lock record: %w", err)
	}

	nsHandle, err := netns.GetFromName(namespace)
	if err != nil {
		w.registry.Remove(namespace, record.Pid)
		return -1, false, fmt.Errorf("looking up namespace %s: %w", namespace, err)
	}
	defer nsHandle.Close()

	cmd := exec.Command(command[0], command[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = mergeEnv(os.Environ(), environment.RestoreOriginalUserEnvironment(w.logger))
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Credential: &syscall.Credential{Uid: uint32(identity.Uid), Gid: uint32(identity.Gid)},
	}

	// cmd.Start is forked while the calling thread is switched into
	// nsHandle (spec.md §4.6 "execute inside the target namespace"), the
	// same technique tunnel.Start uses to launch openvpn inside the
	// namespace; cmd.Wait needs no namespace since it only waits on a pid.
	var runErr error
	if startErr := runInNamespace(nsHandle, cmd.Start); startErr != nil {
		runErr = fmt.Errorf("starting application inside namespace %s: %w", namespace, startErr)
	} else {
		runErr = cmd.Wait()
	}
	exitCode = exitCodeOf(runErr)

	if removeErr := w.registry.Remove(namespace, record.Pid); removeErr != nil {
		w.logger.Warn("failed to remove lockfile after application exit", "error", removeErr)
	}

	count, countErr := w.registry.OwnerCount(namespace)
	if countErr != nil {
		w.logger.Warn("failed to count remaining owners", "error", countErr)
	}
	lastAttachment = count == 0

	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			return exitCode, lastAttachment, nil
		}
		return exitCode, lastAttachment, fmt.Errorf("running application: %w", runErr)
	}
	return exitCode, lastAttachment, nil
}

func mergeEnv(base []string, overrides map[string]string) []string {
	env := append([]string{}, base...)
	for k, v := range overrides {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}
	return env
}

func exitCodeOf(err error) int {
	if err == nil {
		return 0
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	return -1
}
