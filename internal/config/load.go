package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// CLIOverrides holds values set by command-line flags. Flags always win,
// matching user expectations for one-off overrides without editing the
// config file.
type CLIOverrides struct {
	ConfigPath string
	DataDir    string
}

// ResolvedConfig is the effective configuration after the override chain,
// with durations parsed and paths made absolute-usable.
type ResolvedConfig struct {
	ConfigPath string
	DataDir    string
	DBPath     string

	BaseURL    string
	Timeout    time.Duration
	SkewWindow time.Duration
	BatchSize  int
	MaxRetries int
	LogLevel   string

	Accounts map[string]Account
}

// Load reads and parses a TOML config file, validates it, and returns the
// resulting Config. Unknown keys are fatal — silently ignoring a typo in
// a config file leads to hard-to-debug behavior.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	md, err := toml.DecodeFile(path, cfg)
	if err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("config file %s: unknown key %q", path, undecoded[0].String())
	}

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// LoadOrDefault reads a TOML config file if it exists, otherwise returns
// a Config populated with all default values. This supports the
// zero-config first-run experience.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return DefaultConfig(), nil
	}

	return Load(path)
}

// Resolve loads configuration and applies the override chain:
// defaults -> config file -> environment variables -> CLI flags.
func Resolve(env EnvOverrides, cli CLIOverrides) (*ResolvedConfig, error) {
	cfgPath := DefaultConfigPath()
	if env.ConfigPath != "" {
		cfgPath = env.ConfigPath
	}

	if cli.ConfigPath != "" {
		cfgPath = cli.ConfigPath
	}

	cfg, err := LoadOrDefault(cfgPath)
	if err != nil {
		return nil, err
	}

	dataDir := DefaultDataDir()
	if env.DataDir != "" {
		dataDir = env.DataDir
	}

	if cli.DataDir != "" {
		dataDir = cli.DataDir
	}

	timeout, err := time.ParseDuration(cfg.Remote.Timeout)
	if err != nil {
		return nil, fmt.Errorf("parsing remote.timeout: %w", err)
	}

	skew, err := time.ParseDuration(cfg.Sync.SkewWindow)
	if err != nil {
		return nil, fmt.Errorf("parsing sync.skew_window: %w", err)
	}

	accounts := cfg.Accounts
	if env.Token != "" {
		// Env token applies to every account; useful for CI and for
		// keeping credentials out of the config file.
		accounts = make(map[string]Account, len(cfg.Accounts))
		for name, acct := range cfg.Accounts {
			acct.Token = env.Token
			accounts[name] = acct
		}
	}

	return &ResolvedConfig{
		ConfigPath: cfgPath,
		DataDir:    dataDir,
		DBPath:     DatabasePath(dataDir),
		BaseURL:    cfg.Remote.BaseURL,
		Timeout:    timeout,
		SkewWindow: skew,
		BatchSize:  cfg.Sync.BatchSize,
		MaxRetries: cfg.Sync.MaxRetries,
		LogLevel:   cfg.Logging.LogLevel,
		Accounts:   accounts,
	}, nil
}
