package main

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/treefrog-dev/frogup/internal/storage"
)

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print last recorded dependency status from the database",
		RunE:  runStatusCmd,
	}
}

func runStatusCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	return executeStatus(cmd, db)
}

type statusStore interface {
	AllLatest(ctx context.Context) ([]storage.Outcome, error)
}

func executeStatus(cmd *cobra.Command, db statusStore) error {
	out := cmd.OutOrStdout()
	outcomes, err := db.AllLatest(context.Background())
	if err != nil {
		return fmt.Errorf("querying status: %w", err)
	}

	if len(outcomes) == 0 {
		fmt.Fprintln(out, "No recorded outcomes. Run 'frogup up', 'frogup wait', or 'frogup serve' first.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEPENDENCY\tSTATUS\tRESPONSE\tLAST PROBED\tERROR")
	for _, o := range outcomes {
		resp := "—"
		if o.ResponseMs > 0 {
			resp = time.Duration(o.ResponseMs * int64(time.Millisecond)).Round(time.Millisecond).String()
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			o.Dependency,
			o.Status,
			resp,
			o.RecordedAt.Local().Format("2006-01-02 15:04:05"),
			o.Error,
		)
	}
	w.Flush()
	return nil
}
