// Package environment restores the unprivileged user's environment for the
// application ApplicationWrapper spawns inside the namespace, undoing the
// PATH/HOME/XDG mangling that running vopono itself under sudo would
// otherwise leak into the child.
package environment

import (
	"log/slog"
	"os"
	"os/user"
	"path/filepath"
	"strings"
)

// RestoreOriginalUserEnvironment detects if the parent process is running
// under sudo and returns the original user's environment variables that
// matter for the wrapped application: identity, PATH, and XDG base
// directories. The caller merges this on top of a copy of os.Environ()
// before exec'ing the application.
func RestoreOriginalUserEnvironment(logger *slog.Logger) map[string]string {
	restoredEnv := make(map[string]string)

	sudoUser := os.Getenv("SUDO_USER")
	if sudoUser == "" {
		logger.Debug("not running under sudo, no environment restoration needed")
		return restoredEnv
	}

	logger.Debug("restoring original user environment", "sudo_user", sudoUser)

	originalUser, err := user.Lookup(sudoUser)
	if err != nil {
		logger.Warn("failed to look up original user, skipping environment restoration", "sudo_user", sudoUser, "error", err)
		return restoredEnv
	}

	restoredEnv["USER"] = sudoUser
	restoredEnv["LOGNAME"] = sudoUser
	restoredEnv["HOME"] = originalUser.HomeDir

	if restoredPath := restoreUserPath(originalUser, logger); restoredPath != "" {
		restoredEnv["PATH"] = restoredPath
	}

	restoreXDGEnvironment(originalUser, restoredEnv)

	logger.Debug("restored environment variables for original user",
		"user", sudoUser,
		"home", originalUser.HomeDir,
		"restored_vars", len(restoredEnv))

	return restoredEnv
}

// restoreUserPath constructs a reasonable PATH for the original user: the
// user's own bin directories (if they exist) ahead of the standard system
// paths, plus anything from the current PATH that looks user- or
// tool-specific.
func restoreUserPath(originalUser *user.User, logger *slog.Logger) string {
	systemPaths := []string{
		"/usr/local/bin",
		"/usr/bin",
		"/bin",
		"/usr/local/sbin",
		"/usr/sbin",
		"/sbin",
	}

	userPaths := []string{
		filepath.Join(originalUser.HomeDir, ".local", "bin"),
		filepath.Join(originalUser.HomeDir, "bin"),
		filepath.Join(originalUser.HomeDir, "go", "bin"),
	}

	var validUserPaths []string
	for _, path := range userPaths {
		if _, err := os.Stat(path); err == nil {
			validUserPaths = append(validUserPaths, path)
		}
	}

	var preservedPaths []string
	if currentPath := os.Getenv("PATH"); currentPath != "" {
		for _, path := range strings.Split(currentPath, ":") {
			if strings.Contains(path, originalUser.HomeDir) || strings.Contains(path, "/opt/") {
				if _, err := os.Stat(path); err == nil {
					preservedPaths = append(preservedPaths, path)
				}
			}
		}
	}

	allPaths := append(preservedPaths, validUserPaths...)
	allPaths = append(allPaths, systemPaths...)

	seen := make(map[string]bool)
	var uniquePaths []string
	for _, path := range allPaths {
		if !seen[path] {
			seen[path] = true
			uniquePaths = append(uniquePaths, path)
		}
	}

	restoredPath := strings.Join(uniquePaths, ":")
	logger.Debug("restored PATH for user", "user", originalUser.Username, "path", restoredPath)
	return restoredPath
}

// restoreXDGEnvironment restores XDG Base Directory variables for the
// original user. XDG_RUNTIME_DIR is deliberately left untouched: it needs
// the real UID and socket-activated permissions this process cannot forge.
func restoreXDGEnvironment(originalUser *user.User, restoredEnv map[string]string) {
	homeDir := originalUser.HomeDir
	restoredEnv["XDG_DATA_HOME"] = filepath.Join(homeDir, ".local", "share")
	restoredEnv["XDG_CONFIG_HOME"] = filepath.Join(homeDir, ".config")
	restoredEnv["XDG_STATE_HOME"] = filepath.Join(homeDir, ".local", "state")
	restoredEnv["XDG_CACHE_HOME"] = filepath.Join(homeDir, ".cache")
}
