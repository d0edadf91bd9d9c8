package util

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
)

// UserInfo describes the unprivileged user whose identity attaches to a
// lock record and, eventually, runs the wrapped application.
type UserInfo struct {
	Username  string
	Uid       int
	Gid       int
	HomeDir   string
	ConfigDir string
}

// GetUserInfo returns information about the current user, handling sudo
// scenarios: if running under sudo as a non-root original user, the
// original user's identity is returned rather than root's.
func GetUserInfo() UserInfo {
	if sudoUser := os.Getenv("SUDO_USER"); sudoUser != "" && os.Geteuid() == 0 && sudoUser != "root" {
		u, err := user.Lookup(sudoUser)
		if err != nil {
			return currentUserInfo()
		}

		uid, _ := strconv.Atoi(os.Getenv("SUDO_UID"))
		gid, _ := strconv.Atoi(os.Getenv("SUDO_GID"))

		if uid == 0 {
			if parsedUID, err := strconv.Atoi(u.Uid); err == nil {
				uid = parsedUID
			}
		}
		if gid == 0 {
			if parsedGID, err := strconv.Atoi(u.Gid); err == nil {
				gid = parsedGID
			}
		}

		return UserInfo{
			Username:  sudoUser,
			Uid:       uid,
			Gid:       gid,
			HomeDir:   u.HomeDir,
			ConfigDir: getConfigDir(u.HomeDir),
		}
	}

	return currentUserInfo()
}

func currentUserInfo() UserInfo {
	currentUser, err := user.Current()
	if err != nil {
		return UserInfo{}
	}

	uid, _ := strconv.Atoi(currentUser.Uid)
	gid, _ := strconv.Atoi(currentUser.Gid)

	return UserInfo{
		Username:  currentUser.Username,
		Uid:       uid,
		Gid:       gid,
		HomeDir:   currentUser.HomeDir,
		ConfigDir: getConfigDir(currentUser.HomeDir),
	}
}

// getConfigDir determines the config directory based on XDG_CONFIG_HOME or
// the ~/.config fallback.
func getConfigDir(homeDir string) string {
	if xdgConfigHome := os.Getenv("XDG_CONFIG_HOME"); xdgConfigHome != "" {
		return filepath.Join(xdgConfigHome, "vopono")
	}
	return filepath.Join(homeDir, ".config", "vopono")
}

// RuntimeDir determines the runtime directory for the lock registry, based
// on XDG_RUNTIME_DIR with a /tmp fallback for environments that don't set
// it (e.g. some sudo invocations).
func RuntimeDir() string {
	if xdgRuntimeDir := os.Getenv("XDG_RUNTIME_DIR"); xdgRuntimeDir != "" {
		return filepath.Join(xdgRuntimeDir, "vopono")
	}
	return filepath.Join(os.TempDir(), fmt.Sprintf("vopono-%d", os.Getuid()))
}

// GroupName returns the primary group name for the given username, used
// when populating a LockRecord's group field.
func GroupName(username string) (string, error) {
	u, err := user.Lookup(username)
	if err != nil {
		return "", fmt.Errorf("could not look up user %s: %w", username, err)
	}
	g, err := user.LookupGroupId(u.Gid)
	if err != nil {
		return "", fmt.Errorf("could not look up group for %s: %w", username, err)
	}
	return g.Name, nil
}
