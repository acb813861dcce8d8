package main

import (
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/tonimelisma/tasksync-go/internal/sync"
)

func newTaskCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "task",
		Short: "Manage local tasks",
		Long: `Create, list, complete, and delete tasks in the local store.
Changes are tracked as dirty and uploaded on the next 'tasksync sync'.`,
	}

	cmd.AddCommand(newTaskAddCmd())
	cmd.AddCommand(newTaskListCmd())
	cmd.AddCommand(newTaskDoneCmd())
	cmd.AddCommand(newTaskRmCmd())

	return cmd
}

func newTaskAddCmd() *cobra.Command {
	var (
		flagDescription string
		flagPriority    string
		flagDue         string
	)

	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			owner, store, err := taskContext()
			if err != nil {
				return err
			}
			defer store.Close()

			rec := &sync.TaskRecord{
				OwnerID:     owner,
				Title:       args[0],
				Description: flagDescription,
				Priority:    flagPriority,
			}

			if flagDue != "" {
				due, hasTime, err := parseDue(flagDue)
				if err != nil {
					return err
				}

				rec.DueAt = &due
				rec.HasSpecificTime = hasTime
				tz := time.Local.String()
				rec.SourceTimeZoneID = &tz
			}

			if err := store.CreateTask(cmd.Context(), rec); err != nil {
				return fmt.Errorf("creating task: %w", err)
			}

			statusf("created %s\n", rec.ID)

			return nil
		},
	}

	cmd.Flags().StringVar(&flagDescription, "description", "", "task description")
	cmd.Flags().StringVar(&flagPriority, "priority", "none", "priority: none, low, medium, high")
	cmd.Flags().StringVar(&flagDue, "due", "", "due date (2006-01-02) or instant (2006-01-02T15:04)")

	return cmd
}

func newTaskListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tasks",
		RunE: func(cmd *cobra.Command, _ []string) error {
			owner, store, err := taskContext()
			if err != nil {
				return err
			}
			defer store.Close()

			recs, err := store.ListByOwner(cmd.Context(), owner)
			if err != nil {
				return fmt.Errorf("listing tasks: %w", err)
			}

			w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)

			for i := range recs {
				rec := &recs[i]

				state := " "
				if rec.IsDone {
					state = "x"
				}

				due := ""
				if rec.DueAt != nil {
					due = formatMillis(*rec.DueAt)
				}

				fmt.Fprintf(w, "[%s]\t%s\t%s\t%s\t%s\n",
					state, rec.ID, rec.Title, rec.Priority, due)
			}

			return w.Flush()
		},
	}
}

func newTaskDoneCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Mark a task done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := taskContext()
			if err != nil {
				return err
			}
			defer store.Close()

			if _, err := store.UpdateTask(cmd.Context(), args[0], func(rec *sync.TaskRecord) {
				rec.IsDone = true
			}); err != nil {
				return fmt.Errorf("completing task: %w", err)
			}

			return nil
		},
	}
}

func newTaskRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete a task",
		Long: `Delete a task. The record becomes a tombstone so the deletion
propagates to other devices on the next sync.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, store, err := taskContext()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.DeleteTask(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("deleting task: %w", err)
			}

			return nil
		},
	}
}

// taskContext resolves the single account a task command operates on and
// opens the store.
func taskContext() (string, *sync.Store, error) {
	accounts, err := resolveAccounts(false)
	if err != nil {
		return "", nil, err
	}

	store, err := openStore(newLogger())
	if err != nil {
		return "", nil, err
	}

	return accounts[0], store, nil
}

// parseDue parses a due value as either a whole day or a specific
// instant, reporting which form it was. Whole days land at local
// midnight; the remote document's hasSpecificTime flag keeps the
// distinction across devices.
func parseDue(value string) (int64, bool, error) {
	if t, err := time.ParseInLocation("2006-01-02T15:04", value, time.Local); err == nil {
		return t.UnixMilli(), true, nil
	}

	t, err := time.ParseInLocation("2006-01-02", value, time.Local)
	if err != nil {
		return 0, false, fmt.Errorf("parsing due date %q: expected 2006-01-02 or 2006-01-02T15:04", value)
	}

	return t.UnixMilli(), false, nil
}
