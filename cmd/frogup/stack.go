package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/treefrog-dev/frogup/internal/compose"
)

func upCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Start the stack with docker compose and wait until it is ready",
		RunE:  runUpCmd,
	}
}

func runUpCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	stack := compose.New(cfg.Compose, slog.Default())
	if err := stack.Up(cmd.Context(), cmd.OutOrStdout()); err != nil {
		return err
	}

	return waitForStack(cmd, cfg)
}

func downCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Stop the stack with docker compose",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			stack := compose.New(cfg.Compose, slog.Default())
			return stack.Down(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func logsCmd() *cobra.Command {
	var (
		follow bool
		tail   int
	)
	cmd := &cobra.Command{
		Use:   "logs [service...]",
		Short: "Stream docker compose logs for the stack",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			stack := compose.New(cfg.Compose, slog.Default())
			return stack.Logs(cmd.Context(), cmd.OutOrStdout(), args, follow, tail)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "follow log output")
	cmd.Flags().IntVar(&tail, "tail", 0, "number of lines to show from the end of the logs (0 = all)")
	return cmd
}
