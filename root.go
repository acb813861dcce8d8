package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/tasksync-go/internal/config"
	"github.com/tonimelisma/tasksync-go/internal/remote"
	"github.com/tonimelisma/tasksync-go/internal/sync"
)

// version is set at build time via ldflags.
var version = "dev"

// Global persistent flags, bound in newRootCmd().
var (
	flagConfigPath string
	flagDataDir    string
	flagAccount    string
	flagJSON       bool
	flagVerbose    bool
	flagQuiet      bool
)

// resolvedCfg holds the effective configuration loaded by PersistentPreRunE.
// It is available to all subcommands after the root pre-run phase completes.
var resolvedCfg *config.ResolvedConfig

// newRootCmd builds and returns the fully-assembled root command with all
// subcommands registered. Called once from main().
func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "tasksync",
		Short:   "Offline-first task synchronization",
		Long:    "Synchronize a local task store with a remote document store shared across devices.",
		Version: version,
		// Silence Cobra's default error/usage printing — we handle it ourselves.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}

	cmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "config file path")
	cmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", "", "data directory (task database)")
	cmd.PersistentFlags().StringVar(&flagAccount, "account", "", "local user to operate on")
	cmd.PersistentFlags().BoolVar(&flagJSON, "json", false, "output in JSON format")
	cmd.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false, "enable debug logging")
	cmd.PersistentFlags().BoolVarP(&flagQuiet, "quiet", "q", false, "suppress informational output")

	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	// Register subcommands.
	cmd.AddCommand(newSyncCmd())
	cmd.AddCommand(newStatusCmd())
	cmd.AddCommand(newTaskCmd())
	cmd.AddCommand(newConfigCmd())

	return cmd
}

// loadConfig resolves the effective configuration from the override chain
// and stores the result in resolvedCfg for use by subcommands.
func loadConfig() error {
	cli := config.CLIOverrides{
		ConfigPath: flagConfigPath,
		DataDir:    flagDataDir,
	}

	resolved, err := config.Resolve(config.ReadEnvOverrides(), cli)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	resolvedCfg = resolved

	return nil
}

// newLogger builds the CLI logger from the log-level flags and config.
func newLogger() *slog.Logger {
	level := slog.LevelInfo

	switch {
	case flagVerbose:
		level = slog.LevelDebug
	case flagQuiet:
		level = slog.LevelError
	default:
		switch resolvedCfg.LogLevel {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}

	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// resolveAccounts returns the local users the command operates on:
// --account if set, every configured account for all == true, or the sole
// configured account otherwise. Account order is stable for output.
func resolveAccounts(all bool) ([]string, error) {
	if flagAccount != "" {
		if _, ok := resolvedCfg.Accounts[flagAccount]; !ok {
			return nil, fmt.Errorf("account %q is not configured", flagAccount)
		}

		return []string{flagAccount}, nil
	}

	names := make([]string, 0, len(resolvedCfg.Accounts))
	for name := range resolvedCfg.Accounts {
		names = append(names, name)
	}

	sort.Strings(names)

	if len(names) == 0 {
		return nil, fmt.Errorf("no accounts configured; run 'tasksync config init' and add an [account] section")
	}

	if all || len(names) == 1 {
		return names, nil
	}

	return nil, fmt.Errorf("multiple accounts configured; pass --account or --all")
}

// openStore opens the task database, creating the data directory first.
func openStore(logger *slog.Logger) (*sync.Store, error) {
	if err := os.MkdirAll(resolvedCfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}

	return sync.NewStore(resolvedCfg.DBPath, logger)
}

// buildEngine assembles the sync engine for one account's remote client.
// Each account carries its own token, so each gets its own client.
func buildEngine(store *sync.Store, account string, logger *slog.Logger) (*sync.Engine, error) {
	if resolvedCfg.BaseURL == "" {
		return nil, fmt.Errorf("remote.base_url is not configured")
	}

	acct, ok := resolvedCfg.Accounts[account]
	if !ok {
		return nil, fmt.Errorf("account %q is not configured", account)
	}

	httpClient := &http.Client{Timeout: resolvedCfg.Timeout}
	client := remote.NewClient(resolvedCfg.BaseURL, httpClient, remote.StaticToken(acct.Token), logger)

	bindings := sync.BindingMap{}
	for name, a := range resolvedCfg.Accounts {
		bindings[name] = a.Binding
	}

	return sync.NewEngine(&sync.EngineConfig{
		Records:    store,
		Cursors:    store,
		Remote:     client,
		Bindings:   bindings,
		Logger:     logger,
		SkewWindow: resolvedCfg.SkewWindow,
		BatchSize:  resolvedCfg.BatchSize,
	}), nil
}

// retryPolicy builds the CLI retry policy from config.
func retryPolicy() sync.RetryPolicy {
	policy := sync.DefaultRetryPolicy()
	policy.MaxRetries = uint64(resolvedCfg.MaxRetries)

	return policy
}

// statusf prints a status message to stderr unless quiet mode is set.
func statusf(format string, args ...any) {
	if !flagQuiet {
		fmt.Fprintf(os.Stderr, format, args...)
	}
}

// formatMillis renders an epoch-milliseconds timestamp for display.
func formatMillis(ms int64) string {
	if ms == 0 {
		return "never"
	}

	t := time.UnixMilli(ms)
	now := time.Now()

	// Same calendar year: show "Jan  2 15:04"
	if t.Year() == now.Year() {
		return t.Format("Jan _2 15:04")
	}

	// Different year: show "Jan  2  2006"
	return t.Format("Jan _2  2006")
}
