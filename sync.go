package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/tonimelisma/tasksync-go/internal/sync"
)

func newSyncCmd() *cobra.Command {
	var flagAll bool

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Synchronize tasks with the remote store",
		Long: `Run one synchronization pass: pull remote changes since the last cursor,
merge them into the local store, then push local edits in batches.

Transient failures (network, partial push) are retried with backoff; the
engine's cursor and dirty tracking make every retry safe.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSync(cmd, flagAll)
		},
	}

	cmd.Flags().BoolVar(&flagAll, "all", false, "sync every configured account")

	return cmd
}

func runSync(cmd *cobra.Command, all bool) error {
	logger := newLogger()

	accounts, err := resolveAccounts(all)
	if err != nil {
		return err
	}

	store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	policy := retryPolicy()

	// Different owners are independent; sync them in parallel. Each
	// account's engine shares the store but owns its remote client.
	g, ctx := errgroup.WithContext(cmd.Context())

	for _, account := range accounts {
		engine, err := buildEngine(store, account, logger)
		if err != nil {
			return err
		}

		dispatcher := sync.NewDispatcher(engine)

		g.Go(func() error {
			var report *sync.Report

			err := policy.Run(ctx, func(ctx context.Context) error {
				var syncErr error
				report, syncErr = dispatcher.Sync(ctx, account)

				return syncErr
			})
			if err != nil {
				return fmt.Errorf("syncing %s: %w", account, err)
			}

			statusf("%s: pulled %d, pushed %d", account, report.Pulled, report.Pushed)

			if report.Skipped > 0 {
				statusf(" (skipped %d malformed remote documents)", report.Skipped)
			}

			statusf("\n")

			return nil
		})
	}

	return g.Wait()
}
