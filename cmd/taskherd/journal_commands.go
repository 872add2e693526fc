package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"taskherd/internal/store"
)

func newJournalCommand(ctx *commandContext) *cobra.Command {
	journalCmd := &cobra.Command{
		Use:   "journal",
		Short: "Record and inspect task status observations",
	}

	journalCmd.AddCommand(newJournalAddCommand(ctx))
	journalCmd.AddCommand(newJournalListCommand(ctx))
	journalCmd.AddCommand(newJournalClearCommand(ctx))

	return journalCmd
}

func newJournalAddCommand(ctx *commandContext) *cobra.Command {
	var notes string

	cmd := &cobra.Command{
		Use:   "add TASKID STATUS",
		Short: "Append an observation to a task's journal",
		Long: "Append a status observation to a task's journal. The status " +
			"may be any of pending, checked_out, completed, or failed, " +
			"independent of the task's current status.",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				entry, err := st.AddJournalEntry(cmd.Context(), id, store.Status(args[1]), notes)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added journal entry %d to task %d\n", entry.ID, entry.TaskID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&notes, "notes", "m", "", "Free-form notes for the entry")
	return cmd
}

func newJournalListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list TASKID",
		Short: "List a task's journal entries in timestamp order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				entries, err := st.TaskJournal(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(entries) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No journal entries")
					return nil
				}
				rows := make([][]string, 0, len(entries))
				for _, entry := range entries {
					rows = append(rows, []string{
						strconv.FormatInt(entry.ID, 10),
						string(entry.Status),
						formatOptional(entry.Notes),
						formatTime(entry.Timestamp),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Status", "Notes", "Timestamp"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newJournalClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear TASKID",
		Short: "Remove all journal entries for a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				removed, err := st.ClearTaskJournal(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d journal entries\n", removed)
				return nil
			})
		},
	}
}
