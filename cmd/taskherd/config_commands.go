package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskherd/internal/config"
	"taskherd/internal/store"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Manage taskherd configuration",
	}

	configCmd.AddCommand(newConfigInitCommand())
	configCmd.AddCommand(newConfigShowCommand(ctx))

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var path string

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := path
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return err
				}
				target = defaultPath
			}
			if err := config.CreateSample(target); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Destination path (default ~/.config/taskherd/config.toml)")
	return cmd
}

func newConfigShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show resolved configuration values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Data dir:       %s\n", cfg.Paths.DataDir)
			fmt.Fprintf(out, "Database:       %s\n", cfg.Paths.DatabasePath)
			fmt.Fprintf(out, "Log dir:        %s\n", cfg.Paths.LogDir)
			fmt.Fprintf(out, "Socket:         %s\n", cfg.Paths.SocketPath)
			fmt.Fprintf(out, "Log format:     %s\n", cfg.Logging.Format)
			fmt.Fprintf(out, "Log level:      %s\n", cfg.Logging.Level)
			return nil
		},
	}
}

func newHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show database diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(st *store.Store) error {
				health, err := st.CheckHealth(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Database:   %s\n", health.DBPath)
				fmt.Fprintf(out, "Exists:     %s\n", yesNo(health.DatabaseExists))
				fmt.Fprintf(out, "Readable:   %s\n", yesNo(health.DatabaseReadable))
				fmt.Fprintf(out, "Integrity:  %s\n", yesNo(health.IntegrityCheck))
				fmt.Fprintf(out, "Queues:     %d\n", health.TotalQueues)
				fmt.Fprintf(out, "Tasks:      %d\n", health.TotalTasks)
				if len(health.MissingTables) > 0 {
					fmt.Fprintf(out, "Missing:    %v\n", health.MissingTables)
				}
				return nil
			})
		},
	}
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
