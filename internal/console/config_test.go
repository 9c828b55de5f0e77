package console

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseEnvConfig(t *testing.T) {
	cfg := ParseEnvConfig([]string{
		"PTC_SERVER_URL=http://localhost:9000",
		"PTC_OUTPUT=json",
		"PTC_THEME=dark",
		"PTC_SQLITE_PATH=/tmp/ptc.db",
		"PTC_LISTEN_ADDR=127.0.0.1:9000",
		"PTC_TOKEN_PATH=/tmp/token",
		"UNRELATED=ignored",
	})

	require.Equal(t, "http://localhost:9000", cfg.ServerURL)
	require.Equal(t, OutputJSON, cfg.Output)
	require.Equal(t, "dark", cfg.Theme)
	require.Equal(t, "/tmp/ptc.db", cfg.SQLitePath)
	require.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	require.Equal(t, "/tmp/token", cfg.TokenPath)
}

func TestParseEnvConfigIgnoresInvalidOutput(t *testing.T) {
	cfg := ParseEnvConfig([]string{"PTC_OUTPUT=yaml"})
	require.Empty(t, cfg.Output)
}

func TestMergeConfigPrecedence(t *testing.T) {
	defaults := Config{ServerURL: "http://default", Output: OutputText, Theme: "light"}
	fileCfg := Config{ServerURL: "http://file", Theme: "dark"}
	envCfg := Config{ServerURL: "http://env"}
	flagCfg := Config{Output: OutputJSON}

	cfg := MergeConfig(defaults, fileCfg, envCfg, flagCfg)

	require.Equal(t, "http://env", cfg.ServerURL)
	require.Equal(t, OutputJSON, cfg.Output)
	require.Equal(t, "dark", cfg.Theme)
}

func TestMergeConfigKeepsDefaultsWhenOverridesEmpty(t *testing.T) {
	defaults := DefaultConfig("/home/op")
	cfg := MergeConfig(defaults, Config{}, Config{}, Config{})
	require.Equal(t, defaults, cfg)
}

func TestLoadOrInitConfigRoundTrip(t *testing.T) {
	home := t.TempDir()

	first, err := LoadOrInitConfig(home)
	require.NoError(t, err)
	require.Equal(t, DefaultConfig(home).ServerURL, first.ServerURL)

	first.Output = OutputJSON
	require.NoError(t, SaveConfigFile(ConfigPath(home), first))

	second, err := LoadOrInitConfig(home)
	require.NoError(t, err)
	require.Equal(t, OutputJSON, second.Output)
}

func TestAddrFromServerURL(t *testing.T) {
	require.Equal(t, "127.0.0.1:8080", addrFromServerURL(""))
	require.Equal(t, "127.0.0.1:9010", addrFromServerURL("http://127.0.0.1:9010"))
	require.Equal(t, "example.com:80", addrFromServerURL("http://example.com"))
	require.Equal(t, "example.com:443", addrFromServerURL("https://example.com"))
	require.Equal(t, "127.0.0.1:8080", addrFromServerURL("::bad::"))
}

func TestApplyGlobalFlags(t *testing.T) {
	cfg := Config{}
	require.NoError(t, applyGlobalFlags(&cfg, globalFlags{serverURL: " http://x ", output: "json"}))
	require.Equal(t, "http://x", cfg.ServerURL)
	require.Equal(t, OutputJSON, cfg.Output)

	err := applyGlobalFlags(&cfg, globalFlags{serverURL: "http://x", output: "yaml"})
	var cErr *cliError
	require.True(t, asCLIError(err, &cErr))

	err = applyGlobalFlags(&cfg, globalFlags{serverURL: "  ", output: "text"})
	require.True(t, asCLIError(err, &cErr))
}
