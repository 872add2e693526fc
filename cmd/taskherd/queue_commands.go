package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"taskherd/internal/store"
)

func newQueueCommand(ctx *commandContext) *cobra.Command {
	queueCmd := &cobra.Command{
		Use:   "queue",
		Short: "Create and manage task queues",
	}

	queueCmd.AddCommand(newQueueCreateCommand(ctx))
	queueCmd.AddCommand(newQueueUpdateCommand(ctx))
	queueCmd.AddCommand(newQueueDeleteCommand(ctx))
	queueCmd.AddCommand(newQueueShowCommand(ctx))
	queueCmd.AddCommand(newQueueListCommand(ctx))
	queueCmd.AddCommand(newQueueStatsCommand(ctx))

	return queueCmd
}

func newQueueCreateCommand(ctx *commandContext) *cobra.Command {
	var description string
	var instructions string

	cmd := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a new queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				queue, err := st.CreateQueue(cmd.Context(), args[0], description, instructions)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created queue %s\n", queue.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Queue description")
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Work contract shared by all tasks in the queue")
	return cmd
}

func newQueueUpdateCommand(ctx *commandContext) *cobra.Command {
	var description string
	var instructions string

	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Update a queue's description or instructions",
		Long: "Update a queue. Omitted flags preserve stored values; an empty " +
			"string clears the field.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var patch store.QueuePatch
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("instructions") {
				patch.Instructions = &instructions
			}
			return ctx.withStore(func(st *store.Store) error {
				queue, err := st.UpdateQueue(cmd.Context(), args[0], patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated queue %s\n", queue.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Queue description")
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Work contract shared by all tasks in the queue")
	return cmd
}

func newQueueDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a queue and all of its tasks",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				if err := st.DeleteQueue(cmd.Context(), args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted queue %s\n", args[0])
				return nil
			})
		},
	}
}

func newQueueShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show one queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				queue, err := st.GetQueue(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if queue == nil {
					return fmt.Errorf("queue %q does not exist", args[0])
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Name:         %s\n", queue.Name)
				fmt.Fprintf(out, "Description:  %s\n", formatOptional(queue.Description))
				fmt.Fprintf(out, "Instructions: %s\n", formatOptional(queue.Instructions))
				fmt.Fprintf(out, "Created:      %s\n", formatTime(queue.CreatedAt))
				fmt.Fprintf(out, "Updated:      %s\n", formatTime(queue.UpdatedAt))
				return nil
			})
		},
	}
}

func newQueueListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all queues",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				queues, err := st.ListQueues(cmd.Context())
				if err != nil {
					return err
				}
				if len(queues) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No queues")
					return nil
				}
				rows := make([][]string, 0, len(queues))
				for _, queue := range queues {
					rows = append(rows, []string{
						queue.Name,
						formatOptional(queue.Description),
						formatTime(queue.CreatedAt),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Name", "Description", "Created"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}
}

func newQueueStatsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "stats NAME",
		Short: "Show task counts for a queue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				stats, err := st.QueueStats(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				rows := [][]string{
					{"total", strconv.Itoa(stats.Total)},
					{string(store.StatusPending), strconv.Itoa(stats.Pending)},
					{string(store.StatusCheckedOut), strconv.Itoa(stats.CheckedOut)},
					{string(store.StatusCompleted), strconv.Itoa(stats.Completed)},
					{string(store.StatusFailed), strconv.Itoa(stats.Failed)},
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"Status", "Count"},
					rows,
					[]columnAlignment{alignLeft, alignRight},
				))
				return nil
			})
		},
	}
}
