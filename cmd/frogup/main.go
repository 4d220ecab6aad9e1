package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/treefrog-dev/frogup/internal/config"
	"github.com/treefrog-dev/frogup/internal/metrics"
	"github.com/treefrog-dev/frogup/internal/notify"
	"github.com/treefrog-dev/frogup/internal/probe"
	"github.com/treefrog-dev/frogup/internal/server"
	"github.com/treefrog-dev/frogup/internal/storage"
	"github.com/treefrog-dev/frogup/internal/version"
	"github.com/treefrog-dev/frogup/internal/waiter"
)

var (
	cfgFile string
	envFile string
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "frogup",
		Short:        "Bring up and supervise the Treefrog development stack",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "frogup.yml", "config file path")
	root.PersistentFlags().StringVar(&envFile, "env-file", "", "load environment variables from this file before reading config")

	root.AddCommand(versionCmd())
	root.AddCommand(serveCmd())
	root.AddCommand(upCmd())
	root.AddCommand(downCmd())
	root.AddCommand(waitCmd())
	root.AddCommand(checkCmd())
	root.AddCommand(statusCmd())
	root.AddCommand(logsCmd())
	root.AddCommand(doctorCmd())

	return root
}

// loadConfig loads the optional env file and then the YAML config.
func loadConfig() (*config.Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil {
			return nil, fmt.Errorf("loading env file: %w", err)
		}
	}
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("frogup %s (commit %s, built %s)\n", version.Version, version.Commit, version.Date)
		},
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Continuously probe the stack and serve the status API",
		RunE:  runServe,
	}
}

func runServe(cmd *cobra.Command, _ []string) error {
	logger := slog.Default()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger.Info("config loaded", "dependencies", len(cfg.Dependencies))

	db, err := storage.Open(cfg.Storage.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close()

	m := metrics.New()

	factory := func(dep config.Dependency) (probe.Probe, error) {
		return probe.New(dep)
	}
	w := waiter.New(cfg.Dependencies, db, factory, logger)
	w.SetOnProbe(m.Observe)
	if cfg.Notify.Webhook.URL != "" {
		notifier := notify.New(cfg.Notify.Webhook.URL, cfg.Notify.Webhook.Cooldown.Duration, logger)
		w.SetOnOutcome(notifier.Notify)
	}

	apiServer := server.New(db, cfg.Dependencies, m.Handler(), logger)

	httpServer := &http.Server{
		Addr:    cfg.Server.Address,
		Handler: apiServer.Router(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	w.Watch(ctx)
	logger.Info("watch started", "dependencies", len(cfg.Dependencies))

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", cfg.Server.Address)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serverErr:
		return fmt.Errorf("HTTP server: %w", err)
	}

	w.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("HTTP server shutdown", "error", err)
	}

	logger.Info("shutdown complete")
	return nil
}
