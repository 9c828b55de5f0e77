package consoleconfig

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	DefaultServerURL = "http://127.0.0.1:8080"
	DefaultOutput    = "text"
	DefaultTheme     = "light"

	// ThemeKey matches the browser console's persisted preference key so the
	// two frontends can share documentation and support scripts.
	ThemeKey = "pro-team-care-theme"
)

type Config struct {
	ServerURL string        `yaml:"server_url"`
	Sandbox   SandboxConfig `yaml:"sandbox"`
	CLI       CLIConfig     `yaml:"cli"`
}

type SandboxConfig struct {
	SQLitePath string `yaml:"sqlite_path"`
	ListenAddr string `yaml:"listen_addr"`
}

type CLIConfig struct {
	Output string `yaml:"output"`
	Theme  string `yaml:"theme"`
}

func Default(home string) Config {
	stateDir := filepath.Join(home, ".local", "state", "pro-team-care")
	return Config{
		ServerURL: DefaultServerURL,
		Sandbox: SandboxConfig{
			SQLitePath: filepath.Join(stateDir, "sandbox.db"),
			ListenAddr: "127.0.0.1:8080",
		},
		CLI: CLIConfig{
			Output: DefaultOutput,
			Theme:  DefaultTheme,
		},
	}
}

func ConfigPath(home string) string {
	return filepath.Join(home, ".config", "pro-team-care", "config.yaml")
}

// TokenPath is where the access token lives, the localStorage
// "access_token" equivalent.
func TokenPath(home string) string {
	return filepath.Join(home, ".local", "state", "pro-team-care", "access_token")
}

func LoadOrInit(home string) (Config, error) {
	path := ConfigPath(home)
	defaults := Default(home)

	cfg, err := LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := SaveFile(path, defaults); err != nil {
				return Config{}, err
			}
			return defaults, nil
		}
		return Config{}, err
	}

	merged := Merge(defaults, cfg)
	if merged != cfg {
		if err := SaveFile(path, merged); err != nil {
			return Config{}, err
		}
	}

	return merged, nil
}

func LoadFile(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, err
	}

	return normalize(cfg), nil
}

func SaveFile(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	data, err := yaml.Marshal(normalize(cfg))
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o644)
}

func Merge(defaults Config, user Config) Config {
	out := normalize(defaults)
	in := normalize(user)

	if in.ServerURL != "" {
		out.ServerURL = in.ServerURL
	}
	if in.Sandbox.SQLitePath != "" {
		out.Sandbox.SQLitePath = in.Sandbox.SQLitePath
	}
	if in.Sandbox.ListenAddr != "" {
		out.Sandbox.ListenAddr = in.Sandbox.ListenAddr
	}
	if in.CLI.Output != "" {
		out.CLI.Output = in.CLI.Output
	}
	if in.CLI.Theme != "" {
		out.CLI.Theme = in.CLI.Theme
	}

	return out
}

func normalize(cfg Config) Config {
	cfg.ServerURL = strings.TrimSpace(cfg.ServerURL)
	cfg.Sandbox.SQLitePath = strings.TrimSpace(cfg.Sandbox.SQLitePath)
	cfg.Sandbox.ListenAddr = strings.TrimSpace(cfg.Sandbox.ListenAddr)
	cfg.CLI.Output = strings.TrimSpace(cfg.CLI.Output)
	cfg.CLI.Theme = strings.TrimSpace(cfg.CLI.Theme)
	return cfg
}
