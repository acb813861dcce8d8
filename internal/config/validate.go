package config

import (
	"errors"
	"fmt"
	"net/url"
	"time"
)

// maxBatchSize mirrors the remote store's hard batch cap with margin.
// Kept here so a config typo fails at load time, not mid-push.
const maxBatchSize = 450

// Validation errors.
var (
	ErrBatchSizeRange  = errors.New("sync.batch_size must be between 1 and 450")
	ErrNegativeRetries = errors.New("sync.max_retries must not be negative")
	ErrMissingBinding  = errors.New("account binding must not be empty")
)

// Validate checks a parsed Config for values that cannot work at runtime.
// base_url may be empty at load time (status and task commands work
// offline); sync fails later with a clear error if it is still unset.
func Validate(cfg *Config) error {
	if cfg.Remote.BaseURL != "" {
		if _, err := url.ParseRequestURI(cfg.Remote.BaseURL); err != nil {
			return fmt.Errorf("remote.base_url: %w", err)
		}
	}

	if _, err := time.ParseDuration(cfg.Remote.Timeout); err != nil {
		return fmt.Errorf("remote.timeout: %w", err)
	}

	skew, err := time.ParseDuration(cfg.Sync.SkewWindow)
	if err != nil {
		return fmt.Errorf("sync.skew_window: %w", err)
	}

	if skew < 0 {
		return fmt.Errorf("sync.skew_window: must not be negative")
	}

	if cfg.Sync.BatchSize < 1 || cfg.Sync.BatchSize > maxBatchSize {
		return ErrBatchSizeRange
	}

	if cfg.Sync.MaxRetries < 0 {
		return ErrNegativeRetries
	}

	switch cfg.Logging.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.log_level: unknown level %q", cfg.Logging.LogLevel)
	}

	for name, acct := range cfg.Accounts {
		if acct.Binding == "" {
			return fmt.Errorf("account.%s: %w", name, ErrMissingBinding)
		}
	}

	return nil
}
