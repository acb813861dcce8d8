// Package config implements TOML configuration loading, validation, and
// platform-specific path resolution for tasksync-go. Precedence is
// defaults -> config file -> environment variables -> CLI flags.
package config

// Config is the top-level configuration structure parsed from a TOML file.
// Accounts map local user ids to their remote collection binding; a user
// without an [account] section has no binding and cannot sync.
type Config struct {
	Accounts map[string]Account `toml:"account"`
	Remote   RemoteConfig       `toml:"remote"`
	Sync     SyncConfig         `toml:"sync"`
	Logging  LoggingConfig      `toml:"logging"`
}

// Account binds one local user to a remote collection.
type Account struct {
	// Binding is the remote collection identity for this user's documents.
	Binding string `toml:"binding"`
	// Token is the bearer token presented to the document store.
	Token string `toml:"token"`
}

// RemoteConfig controls the document store client.
type RemoteConfig struct {
	BaseURL string `toml:"base_url"`
	Timeout string `toml:"timeout"`
}

// SyncConfig controls the sync engine: clock-skew tolerance, push batch
// size, and the CLI retry policy.
type SyncConfig struct {
	SkewWindow string `toml:"skew_window"`
	BatchSize  int    `toml:"batch_size"`
	MaxRetries int    `toml:"max_retries"`
}

// LoggingConfig controls log output behavior.
type LoggingConfig struct {
	LogLevel string `toml:"log_level"`
}
