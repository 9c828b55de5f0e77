package console

import (
	"strings"

	"github.com/jvcardoso/pro-team-care-console/pkg/consoleconfig"
)

type Config struct {
	ServerURL  string `yaml:"server_url"`
	Output     Output `yaml:"output"`
	Theme      string `yaml:"theme"`
	SQLitePath string `yaml:"sqlite_path"`
	ListenAddr string `yaml:"listen_addr"`
	TokenPath  string `yaml:"-"`
}

func DefaultConfig(home string) Config {
	shared := consoleconfig.Default(home)
	return Config{
		ServerURL:  shared.ServerURL,
		Output:     Output(shared.CLI.Output),
		Theme:      shared.CLI.Theme,
		SQLitePath: shared.Sandbox.SQLitePath,
		ListenAddr: shared.Sandbox.ListenAddr,
		TokenPath:  consoleconfig.TokenPath(home),
	}
}

func ParseEnvConfig(env []string) Config {
	cfg := Config{}

	for _, kv := range env {
		switch {
		case strings.HasPrefix(kv, "PTC_SERVER_URL="):
			cfg.ServerURL = strings.TrimSpace(strings.TrimPrefix(kv, "PTC_SERVER_URL="))
		case strings.HasPrefix(kv, "PTC_OUTPUT="):
			value := strings.TrimSpace(strings.TrimPrefix(kv, "PTC_OUTPUT="))
			if isValidOutput(value) {
				cfg.Output = Output(value)
			}
		case strings.HasPrefix(kv, "PTC_THEME="):
			cfg.Theme = strings.TrimSpace(strings.TrimPrefix(kv, "PTC_THEME="))
		case strings.HasPrefix(kv, "PTC_SQLITE_PATH="):
			cfg.SQLitePath = strings.TrimSpace(strings.TrimPrefix(kv, "PTC_SQLITE_PATH="))
		case strings.HasPrefix(kv, "PTC_LISTEN_ADDR="):
			cfg.ListenAddr = strings.TrimSpace(strings.TrimPrefix(kv, "PTC_LISTEN_ADDR="))
		case strings.HasPrefix(kv, "PTC_TOKEN_PATH="):
			cfg.TokenPath = strings.TrimSpace(strings.TrimPrefix(kv, "PTC_TOKEN_PATH="))
		}
	}

	return cfg
}

func MergeConfig(defaults, fileCfg, envCfg, flagCfg Config) Config {
	out := defaults
	applyConfig(&out, fileCfg)
	applyConfig(&out, envCfg)
	applyConfig(&out, flagCfg)
	return out
}

func applyConfig(dst *Config, src Config) {
	if value := strings.TrimSpace(src.ServerURL); value != "" {
		dst.ServerURL = value
	}
	if src.Output != "" {
		dst.Output = src.Output
	}
	if value := strings.TrimSpace(src.Theme); value != "" {
		dst.Theme = value
	}
	if value := strings.TrimSpace(src.SQLitePath); value != "" {
		dst.SQLitePath = value
	}
	if value := strings.TrimSpace(src.ListenAddr); value != "" {
		dst.ListenAddr = value
	}
	if value := strings.TrimSpace(src.TokenPath); value != "" {
		dst.TokenPath = value
	}
}

func LoadOrInitConfig(home string) (Config, error) {
	shared, err := consoleconfig.LoadOrInit(home)
	if err != nil {
		return Config{}, err
	}
	return mapSharedToCLI(home, shared), nil
}

func ConfigPath(home string) string {
	return consoleconfig.ConfigPath(home)
}

func LoadConfigFile(home, path string) (Config, error) {
	shared, err := consoleconfig.LoadFile(path)
	if err != nil {
		return Config{}, err
	}
	return mapSharedToCLI(home, shared), nil
}

func SaveConfigFile(path string, cfg Config) error {
	shared, err := consoleconfig.LoadFile(path)
	if err != nil {
		shared = consoleconfig.Config{}
	}
	shared.ServerURL = strings.TrimSpace(cfg.ServerURL)
	shared.CLI.Output = strings.TrimSpace(string(cfg.Output))
	shared.CLI.Theme = strings.TrimSpace(cfg.Theme)
	shared.Sandbox.SQLitePath = strings.TrimSpace(cfg.SQLitePath)
	shared.Sandbox.ListenAddr = strings.TrimSpace(cfg.ListenAddr)
	return consoleconfig.SaveFile(path, shared)
}

func mapSharedToCLI(home string, shared consoleconfig.Config) Config {
	cfg := Config{
		ServerURL:  strings.TrimSpace(shared.ServerURL),
		Output:     Output(strings.TrimSpace(shared.CLI.Output)),
		Theme:      strings.TrimSpace(shared.CLI.Theme),
		SQLitePath: strings.TrimSpace(shared.Sandbox.SQLitePath),
		ListenAddr: strings.TrimSpace(shared.Sandbox.ListenAddr),
		TokenPath:  consoleconfig.TokenPath(home),
	}
	if cfg.Output != "" && !isValidOutput(string(cfg.Output)) {
		cfg.Output = ""
	}
	return cfg
}
