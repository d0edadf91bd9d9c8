package credentials

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vopono-go/vopono/vpntypes"
)

type fakePrompter struct {
	username, password string
	usernameErr        error
}

func (f *fakePrompter) PromptUsername(label string) (string, error) {
	return f.username, f.usernameErr
}

func (f *fakePrompter) PromptPassword() (string, error) {
	return f.password, nil
}

func TestEnsureWritesNewCredentials(t *testing.T) {
	dir := t.TempDir()
	p := &fakePrompter{username: "alice", password: "hunter2"}

	path, err := Ensure(dir, vpntypes.TigerVpn, p)
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "tig", "openvpn", "auth.txt"), path)

	valid, err := readAndValidate(path)
	require.NoError(t, err)
	require.True(t, valid)
}

func TestEnsureReusesExistingFile(t *testing.T) {
	dir := t.TempDir()
	path := Path(dir, vpntypes.PrivateInternetAccess)
	require.NoError(t, mkdirAndWrite(path, "bob\nswordfish\n"))

	got, err := Ensure(dir, vpntypes.PrivateInternetAccess, &fakePrompter{})
	require.NoError(t, err)
	require.Equal(t, path, got)
}

func TestMullvadAccountSanitizationAndValidation(t *testing.T) {
	dir := t.TempDir()

	t.Run("valid 16 digit account", func(t *testing.T) {
		p := &fakePrompter{username: "1234 5678-9012 3456"}
		path, err := Ensure(dir, vpntypes.Mullvad, p)
		require.NoError(t, err)

		valid, err := readAndValidate(path)
		require.NoError(t, err)
		require.True(t, valid)
	})

	t.Run("wrong length rejected", func(t *testing.T) {
		dir2 := t.TempDir()
		p := &fakePrompter{username: "123"}
		_, err := Ensure(dir2, vpntypes.Mullvad, p)
		require.ErrorIs(t, err, ErrCredentialsInvalid)
	})
}

func mkdirAndWrite(path, contents string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(contents), 0o600)
}
