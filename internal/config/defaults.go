package config

// Default values applied before the config file is read.
const (
	defaultTimeout    = "30s"
	defaultSkewWindow = "2m"
	defaultBatchSize  = 450
	defaultMaxRetries = 3
	defaultLogLevel   = "info"
)

// DefaultConfig returns a Config populated with all default values.
// base_url has no default: syncing without one fails validation, which
// is the correct first-run experience for a tool that talks to a
// user-operated backend.
func DefaultConfig() *Config {
	return &Config{
		Accounts: map[string]Account{},
		Remote: RemoteConfig{
			Timeout: defaultTimeout,
		},
		Sync: SyncConfig{
			SkewWindow: defaultSkewWindow,
			BatchSize:  defaultBatchSize,
			MaxRetries: defaultMaxRetries,
		},
		Logging: LoggingConfig{
			LogLevel: defaultLogLevel,
		},
	}
}
