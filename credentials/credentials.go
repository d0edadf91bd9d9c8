// Package credentials implements the OpenVPN username/password store
// described in spec.md §4.8: a two-line auth.txt per provider, read or
// interactively prompted for, with Mullvad's account-number quirks.
//
// The on-disk contract is deliberately "read to validate, then discard":
// callers never get the decoded username/password back from Ensure. Only
// the auth file's path is returned; the OpenVPN process re-reads the file
// itself via --auth-user-pass. This mirrors the
// original source's `_username`/`_password` naming, which discarded the
// fields after validation — see SPEC_FULL.md §7 and DESIGN.md.
package credentials

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/vopono-go/vopono/vpntypes"
)

// Prompter asks the operator for credentials interactively. The CLI
// collaborator supplies a terminal-backed implementation; tests supply a
// canned one.
type Prompter interface {
	PromptUsername(label string) (string, error)
	PromptPassword() (string, error)
}

// Path returns the expected auth.txt path for a provider under configDir.
func Path(configDir string, provider vpntypes.VpnProvider) string {
	return filepath.Join(configDir, provider.Alias(), "openvpn", "auth.txt")
}

// promptLabel returns the provider-specific prompt text for the username
// field, per spec.md §4.8.
func promptLabel(provider vpntypes.VpnProvider) string {
	switch provider {
	case vpntypes.Mullvad:
		return "Mullvad account number"
	case vpntypes.TigerVpn:
		return "OpenVPN username (see https://www.tigervpn.com/dashboard/geeks)"
	case vpntypes.PrivateInternetAccess:
		return "PrivateInternetAccess username"
	default:
		return "OpenVPN username"
	}
}

// ErrCredentialsInvalid is returned when an auth.txt file exists but is
// malformed, or a prompted value fails provider-specific validation (e.g.
// a Mullvad account number that isn't 16 digits).
var ErrCredentialsInvalid = fmt.Errorf("credentials invalid")

// Ensure makes sure a valid two-line auth.txt exists for provider, prompting
// interactively via p if it does not. It returns only the file's path; the
// decoded username/password are discarded once validated (see package doc).
func Ensure(configDir string, provider vpntypes.VpnProvider, p Prompter) (string, error) {
	path := Path(configDir, provider)

	if valid, _ := readAndValidate(path); valid {
		return path, nil
	}

	username, password, err := prompt(provider, p)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("could not create auth directory: %w", err)
	}

	if err := os.WriteFile(path, []byte(username+"\n"+password+"\n"), 0o600); err != nil {
		return "", fmt.Errorf("could not write auth file %s: %w", path, err)
	}

	return path, nil
}

// readAndValidate returns true if path exists and contains exactly two
// non-empty lines. It never returns the decoded contents.
func readAndValidate(path string) (bool, error) {
	f, err := os.Open(path)
	if err != nil {
		return false, err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lines := 0
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) == "" {
			return false, fmt.Errorf("%w: blank line in %s", ErrCredentialsInvalid, path)
		}
		lines++
	}
	if err := scanner.Err(); err != nil {
		return false, err
	}
	return lines == 2, nil
}

// prompt interactively asks for credentials, applying Mullvad's account
// number sanitization (strip non-digits, require exactly 16 digits) and
// its fixed literal password "m".
func prompt(provider vpntypes.VpnProvider, p Prompter) (username, password string, err error) {
	username, err = p.PromptUsername(promptLabel(provider))
	if err != nil {
		return "", "", fmt.Errorf("could not read username: %w", err)
	}

	if provider == vpntypes.Mullvad {
		username = sanitizeMullvadAccount(username)
		if len(username) != 16 {
			return "", "", fmt.Errorf("%w: Mullvad account number must be 16 digits, got %q", ErrCredentialsInvalid, username)
		}
		return username, "m", nil
	}

	password, err = p.PromptPassword()
	if err != nil {
		return "", "", fmt.Errorf("could not read password: %w", err)
	}
	return username, password, nil
}

func sanitizeMullvadAccount(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
