package main

import (
	"fmt"
	"io"
	"log/slog"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/treefrog-dev/frogup/internal/config"
	"github.com/treefrog-dev/frogup/internal/notify"
	"github.com/treefrog-dev/frogup/internal/probe"
	"github.com/treefrog-dev/frogup/internal/storage"
	"github.com/treefrog-dev/frogup/internal/waiter"
)

func waitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "wait",
		Short: "Wait until every stack dependency is ready",
		RunE:  runWaitCmd,
	}
}

func runWaitCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return waitForStack(cmd, cfg)
}

// waitForStack polls all dependencies until ready, prints a summary, and
// returns an error if any is still unready. Shared by wait and up.
func waitForStack(cmd *cobra.Command, cfg *config.Config) error {
	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	factory := func(dep config.Dependency) (probe.Probe, error) {
		return probe.New(dep)
	}
	w := waiter.New(cfg.Dependencies, db, factory, slog.Default())
	if cfg.Notify.Webhook.URL != "" {
		notifier := notify.New(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Cooldown.Duration, slog.Default())
		w.SetOnOutcome(notifier.Notify)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	outcomes := w.WaitAll(ctx)
	printOutcomes(cmd.OutOrStdout(), outcomes)

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("wait interrupted: %w", err)
	}
	if !waiter.AllReady(outcomes) {
		return fmt.Errorf("one or more dependencies are not ready")
	}
	return nil
}

func printOutcomes(out io.Writer, outcomes []waiter.Outcome) {
	ready := color.New(color.FgGreen).SprintFunc()
	unready := color.New(color.FgRed).SprintFunc()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEPENDENCY\tTYPE\tSTATUS\tATTEMPTS\tELAPSED\tERROR")
	for _, o := range outcomes {
		status := unready("unready")
		if o.Result.Healthy {
			status = ready("ready")
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			o.Dependency.Name,
			o.Dependency.Type,
			status,
			o.Attempts,
			o.Result.ResponseTime.Round(time.Millisecond),
			o.Result.Error,
		)
	}
	w.Flush()
}
