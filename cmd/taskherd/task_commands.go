package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"taskherd/internal/store"
)

func newTaskCommand(ctx *commandContext) *cobra.Command {
	taskCmd := &cobra.Command{
		Use:   "task",
		Short: "Add, claim, and finish tasks",
	}

	taskCmd.AddCommand(newTaskAddCommand(ctx))
	taskCmd.AddCommand(newTaskUpdateCommand(ctx))
	taskCmd.AddCommand(newTaskCheckoutCommand(ctx))
	taskCmd.AddCommand(newTaskCompleteCommand(ctx))
	taskCmd.AddCommand(newTaskResetCommand(ctx))
	taskCmd.AddCommand(newTaskFailCommand(ctx))
	taskCmd.AddCommand(newTaskDeleteCommand(ctx))
	taskCmd.AddCommand(newTaskShowCommand(ctx))
	taskCmd.AddCommand(newTaskListCommand(ctx))

	return taskCmd
}

func newTaskAddCommand(ctx *commandContext) *cobra.Command {
	var description string
	var priority int
	var params string
	var instructions string

	cmd := &cobra.Command{
		Use:   "add QUEUE TITLE",
		Short: "Add a pending task to a queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			parameters, err := parseParameters(params)
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				task, err := st.AddTask(cmd.Context(), store.NewTask{
					QueueName:    args[0],
					Title:        args[1],
					Description:  description,
					Priority:     priority,
					Parameters:   parameters,
					Instructions: instructions,
				})
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added task %d to queue %s\n", task.ID, task.QueueName)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Priority 1-10, higher dispatches earlier (default 5)")
	cmd.Flags().StringVar(&params, "params", "", "Task parameters: JSON object or comma-separated k=v pairs")
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Task-specific instructions")
	return cmd
}

func newTaskUpdateCommand(ctx *commandContext) *cobra.Command {
	var title string
	var description string
	var priority int
	var params string
	var clearParams bool
	var instructions string

	cmd := &cobra.Command{
		Use:   "update ID",
		Short: "Update a task's caller-set fields",
		Long: "Update a task. Omitted flags preserve stored values; an empty " +
			"string clears the description or instructions (an empty title " +
			"is rejected). Status, worker assignment, and " +
			"timestamps are never changed by an update.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskIDArg(args[0])
			if err != nil {
				return err
			}

			var patch store.TaskPatch
			if cmd.Flags().Changed("title") {
				patch.Title = &title
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &description
			}
			if cmd.Flags().Changed("priority") {
				patch.Priority = &priority
			}
			if cmd.Flags().Changed("instructions") {
				patch.Instructions = &instructions
			}
			switch {
			case clearParams:
				empty := store.Parameters(nil)
				patch.Parameters = &empty
			case cmd.Flags().Changed("params"):
				parameters, err := parseParameters(params)
				if err != nil {
					return err
				}
				patch.Parameters = &parameters
			}

			return ctx.withStore(func(st *store.Store) error {
				task, err := st.UpdateTask(cmd.Context(), id, patch)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated task %d\n", task.ID)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&title, "title", "t", "", "Task title")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Task description")
	cmd.Flags().IntVarP(&priority, "priority", "p", 0, "Priority 1-10")
	cmd.Flags().StringVar(&params, "params", "", "Task parameters: JSON object or comma-separated k=v pairs")
	cmd.Flags().BoolVar(&clearParams, "clear-params", false, "Drop the stored parameters")
	cmd.Flags().StringVarP(&instructions, "instructions", "i", "", "Task-specific instructions")
	return cmd
}

func newTaskCheckoutCommand(ctx *commandContext) *cobra.Command {
	var worker string

	cmd := &cobra.Command{
		Use:   "checkout TARGET",
		Short: "Claim a pending task",
		Long: "Claim a pending task for a worker. An all-digits TARGET is " +
			"treated as a task id, anything else as a queue name. Claiming " +
			"from a queue with no pending tasks succeeds with a notice.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			queueName, taskID, err := resolveCheckoutTarget(args[0])
			if err != nil {
				return err
			}
			if worker == "" {
				worker = defaultWorkerID()
			}
			return ctx.withStore(func(st *store.Store) error {
				var task *store.Task
				var err error
				if queueName != "" {
					task, err = st.CheckoutNext(cmd.Context(), queueName, worker)
				} else {
					task, err = st.CheckoutTask(cmd.Context(), taskID, worker)
				}
				if err != nil {
					return err
				}
				if task == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "No pending tasks in queue %s\n", queueName)
					return nil
				}
				printTask(cmd, task)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&worker, "worker", "w", "", "Worker identifier (generated when omitted)")
	return cmd
}

func newTaskCompleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "complete ID",
		Short: "Mark a checked-out task completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				task, err := st.CompleteTask(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Completed task %d\n", task.ID)
				return nil
			})
		},
	}
}

func newTaskResetCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reset ID",
		Short: "Return a task to pending from any state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				task, err := st.ResetTask(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reset task %d to pending\n", task.ID)
				return nil
			})
		},
	}
}

func newTaskFailCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "fail ID",
		Short: "Mark a task failed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				task, err := st.FailTask(cmd.Context(), id)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Failed task %d\n", task.ID)
				return nil
			})
		},
	}
}

func newTaskDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Delete a task and its journal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				if err := st.DeleteTask(cmd.Context(), id); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %d\n", id)
				return nil
			})
		},
	}
}

func newTaskShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskIDArg(args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(st *store.Store) error {
				task, err := st.GetTask(cmd.Context(), id)
				if err != nil {
					return err
				}
				if task == nil {
					return fmt.Errorf("task %d does not exist", id)
				}
				printTask(cmd, task)
				return nil
			})
		},
	}
}

func newTaskListCommand(ctx *commandContext) *cobra.Command {
	var status string
	var limit int

	cmd := &cobra.Command{
		Use:   "list QUEUE",
		Short: "List a queue's tasks in dispatch order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				tasks, err := st.ListTasks(cmd.Context(), args[0], store.ListOptions{
					Status: store.Status(status),
					Limit:  limit,
				})
				if err != nil {
					return err
				}
				if len(tasks) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No tasks")
					return nil
				}
				rows := make([][]string, 0, len(tasks))
				for _, task := range tasks {
					rows = append(rows, []string{
						strconv.FormatInt(task.ID, 10),
						task.Title,
						string(task.Status),
						strconv.Itoa(task.Priority),
						formatOptional(task.WorkerID),
						formatTime(task.CreatedAt),
					})
				}
				fmt.Fprint(cmd.OutOrStdout(), renderTable(
					[]string{"ID", "Title", "Status", "Priority", "Worker", "Created"},
					rows,
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignRight, alignLeft, alignLeft},
				))
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&status, "status", "s", "", "Filter by task status")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum number of tasks to list")
	return cmd
}

func printTask(cmd *cobra.Command, task *store.Task) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "ID:           %d\n", task.ID)
	fmt.Fprintf(out, "Queue:        %s\n", task.QueueName)
	fmt.Fprintf(out, "Title:        %s\n", task.Title)
	fmt.Fprintf(out, "Status:       %s\n", task.Status)
	fmt.Fprintf(out, "Priority:     %d\n", task.Priority)
	fmt.Fprintf(out, "Worker:       %s\n", formatOptional(task.WorkerID))
	fmt.Fprintf(out, "Description:  %s\n", formatOptional(task.Description))
	fmt.Fprintf(out, "Instructions: %s\n", formatOptional(task.Instructions))
	fmt.Fprintf(out, "Parameters:   %s\n", formatParameters(task.Parameters))
	fmt.Fprintf(out, "Created:      %s\n", formatTime(task.CreatedAt))
	fmt.Fprintf(out, "Updated:      %s\n", formatTime(task.UpdatedAt))
	fmt.Fprintf(out, "Checked out:  %s\n", formatTimePtr(task.CheckedOutAt))
	fmt.Fprintf(out, "Completed:    %s\n", formatTimePtr(task.CompletedAt))
}
