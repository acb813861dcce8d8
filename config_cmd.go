package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/tasksync-go/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
	}

	cmd.AddCommand(newConfigInitCmd())
	cmd.AddCommand(newConfigShowCmd())

	return cmd
}

func newConfigInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Write a commented default config file",
		RunE: func(_ *cobra.Command, _ []string) error {
			path := flagConfigPath
			if path == "" {
				path = config.DefaultConfigPath()
			}

			if err := config.WriteDefault(path); err != nil {
				return err
			}

			statusf("wrote %s\n", path)

			return nil
		},
	}
}

func newConfigShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long: `Print every effective value after defaults, the config file, the
environment, and flags have been applied. Tokens are redacted.`,
		RunE: func(_ *cobra.Command, _ []string) error {
			fmt.Printf("config_path = %q\n", resolvedCfg.ConfigPath)
			fmt.Printf("data_dir    = %q\n", resolvedCfg.DataDir)
			fmt.Println()
			fmt.Println("[remote]")
			fmt.Printf("base_url = %q\n", resolvedCfg.BaseURL)
			fmt.Printf("timeout  = %q\n", resolvedCfg.Timeout.String())
			fmt.Println()
			fmt.Println("[sync]")
			fmt.Printf("skew_window = %q\n", resolvedCfg.SkewWindow.String())
			fmt.Printf("batch_size  = %d\n", resolvedCfg.BatchSize)
			fmt.Printf("max_retries = %d\n", resolvedCfg.MaxRetries)
			fmt.Println()
			fmt.Println("[logging]")
			fmt.Printf("log_level = %q\n", resolvedCfg.LogLevel)

			names := make([]string, 0, len(resolvedCfg.Accounts))
			for name := range resolvedCfg.Accounts {
				names = append(names, name)
			}

			sort.Strings(names)

			for _, name := range names {
				acct := resolvedCfg.Accounts[name]

				fmt.Println()
				fmt.Printf("[account.%s]\n", name)
				fmt.Printf("binding = %q\n", acct.Binding)

				token := "(unset)"
				if acct.Token != "" {
					token = "(redacted)"
				}

				fmt.Printf("token   = %s\n", token)
			}

			return nil
		},
	}
}
