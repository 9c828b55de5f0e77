package consoleconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadOrInitWritesDefaults(t *testing.T) {
	home := t.TempDir()

	cfg, err := LoadOrInit(home)
	require.NoError(t, err)
	require.Equal(t, DefaultServerURL, cfg.ServerURL)
	require.Equal(t, DefaultOutput, cfg.CLI.Output)
	require.Equal(t, DefaultTheme, cfg.CLI.Theme)

	_, err = os.Stat(ConfigPath(home))
	require.NoError(t, err)
}

func TestMergeKeepsUserValuesAndFillsGaps(t *testing.T) {
	home := t.TempDir()
	defaults := Default(home)

	merged := Merge(defaults, Config{ServerURL: "http://10.0.0.5:9000", CLI: CLIConfig{Theme: "dark"}})
	require.Equal(t, "http://10.0.0.5:9000", merged.ServerURL)
	require.Equal(t, "dark", merged.CLI.Theme)
	require.Equal(t, defaults.CLI.Output, merged.CLI.Output)
	require.Equal(t, defaults.Sandbox.SQLitePath, merged.Sandbox.SQLitePath)
}

func TestLoadOrInitUpgradesPartialFile(t *testing.T) {
	home := t.TempDir()
	path := ConfigPath(home)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("server_url: http://10.0.0.5:9000\n"), 0o644))

	cfg, err := LoadOrInit(home)
	require.NoError(t, err)
	require.Equal(t, "http://10.0.0.5:9000", cfg.ServerURL)
	require.Equal(t, DefaultOutput, cfg.CLI.Output)

	// The upgraded file is persisted.
	reloaded, err := LoadFile(path)
	require.NoError(t, err)
	require.Equal(t, DefaultOutput, reloaded.CLI.Output)
}

func TestTokenStoreRoundTrip(t *testing.T) {
	store := NewTokenStore(filepath.Join(t.TempDir(), "access_token"))

	token, err := store.Token()
	require.NoError(t, err)
	require.Empty(t, token)

	require.NoError(t, store.Save("  tok-123  "))
	token, err = store.Token()
	require.NoError(t, err)
	require.Equal(t, "tok-123", token)

	require.NoError(t, store.Clear())
	require.NoError(t, store.Clear())
	token, err = store.Token()
	require.NoError(t, err)
	require.Empty(t, token)
}
