package main

import (
	"context"
	"fmt"
	"io"
	"sync"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/treefrog-dev/frogup/internal/config"
	"github.com/treefrog-dev/frogup/internal/probe"
)

func checkCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Run a single probe of every dependency, without retrying",
		RunE:  runCheckCmd,
	}
}

func runCheckCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return executeCheck(cmd.OutOrStdout(), cfg)
}

func executeCheck(out io.Writer, cfg *config.Config) error {
	type depResult struct {
		dep    config.Dependency
		result probe.Result
	}

	results := make([]depResult, len(cfg.Dependencies))
	var wg sync.WaitGroup

	for i, dep := range cfg.Dependencies {
		wg.Add(1)
		go func(i int, dep config.Dependency) {
			defer wg.Done()
			p, err := probe.New(dep)
			if err != nil {
				results[i] = depResult{
					dep:    dep,
					result: probe.Result{Error: fmt.Sprintf("creating probe: %v", err)},
				}
				return
			}
			ctx, cancel := context.WithTimeout(context.Background(), dep.Timeout.Duration)
			defer cancel()
			results[i] = depResult{dep: dep, result: p.Check(ctx)}
		}(i, dep)
	}
	wg.Wait()

	ready := color.New(color.FgGreen).SprintFunc()
	unready := color.New(color.FgRed).SprintFunc()

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DEPENDENCY\tTYPE\tSTATUS\tRESPONSE\tERROR")
	allReady := true
	for _, r := range results {
		resp := "—"
		if r.result.ResponseTime > 0 {
			resp = r.result.ResponseTime.Round(time.Millisecond).String()
		}
		status := unready("unready")
		if r.result.Healthy {
			status = ready("ready")
		} else {
			allReady = false
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			r.dep.Name,
			r.dep.Type,
			status,
			resp,
			r.result.Error,
		)
	}
	w.Flush()

	if !allReady {
		return fmt.Errorf("one or more dependencies are not ready")
	}
	return nil
}
