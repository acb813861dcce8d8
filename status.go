package main

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/tasksync-go/internal/sync"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show per-account sync state",
		Long: `Display each configured account's dirty record counts, pull cursor,
and whether anything is waiting to be pushed. Reads local state only —
no network traffic.`,
		RunE: runStatus,
	}
}

// accountStatus is the per-account status row, shared by table and JSON output.
type accountStatus struct {
	Account string `json:"account"`
	Binding string `json:"binding"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Deleted int    `json:"deleted"`
	Synced  int    `json:"synced"`
	Cursor  int64  `json:"cursor"`
}

func runStatus(cmd *cobra.Command, _ []string) error {
	logger := newLogger()

	accounts, err := resolveAccounts(true)
	if err != nil {
		return err
	}

	store, err := openStore(logger)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	rows := make([]accountStatus, 0, len(accounts))

	for _, account := range accounts {
		counts, err := store.StatusCounts(ctx, account)
		if err != nil {
			return fmt.Errorf("reading status for %s: %w", account, err)
		}

		cursor, err := store.GetCursor(ctx, account)
		if err != nil {
			return fmt.Errorf("reading cursor for %s: %w", account, err)
		}

		rows = append(rows, accountStatus{
			Account: account,
			Binding: resolvedCfg.Accounts[account].Binding,
			Created: counts[sync.StatusCreated],
			Updated: counts[sync.StatusUpdated],
			Deleted: counts[sync.StatusDeleted],
			Synced:  counts[sync.StatusSynced],
			Cursor:  cursor,
		})
	}

	if flagJSON {
		return json.NewEncoder(os.Stdout).Encode(rows)
	}

	printStatusTable(rows)

	return nil
}

// printStatusTable renders aligned columns on a TTY and tab-separated
// plain output otherwise, so scripts can cut fields reliably.
func printStatusTable(rows []accountStatus) {
	if !isatty.IsTerminal(os.Stdout.Fd()) {
		for _, r := range rows {
			fmt.Printf("%s\t%s\t%d\t%d\t%d\t%d\t%d\n",
				r.Account, r.Binding, r.Created, r.Updated, r.Deleted, r.Synced, r.Cursor)
		}

		return
	}

	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tBINDING\tCREATED\tUPDATED\tDELETED\tSYNCED\tLAST PULL")

	for _, r := range rows {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%d\t%d\t%s\n",
			r.Account, r.Binding, r.Created, r.Updated, r.Deleted, r.Synced, formatMillis(r.Cursor))
	}

	w.Flush()
}
