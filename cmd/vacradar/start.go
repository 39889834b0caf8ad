package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkorchagin/vacradar/internal/monitor"
	"github.com/mkorchagin/vacradar/internal/store"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the monitoring daemon",
	Long:  "Runs an initial scan, then follows the configured schedules; blocks until SIGINT/SIGTERM.",
	RunE:  runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)
}

func runStart(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger.Info("config loaded",
		"queries", cfg.Queries,
		"sources", cfg.Sources,
		"incremental", cfg.IncrementalSchedule,
		"full", cfg.FullSchedule,
	)

	sqlStore, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		os.Exit(1)
	}
	defer sqlStore.Close()

	httpClient := &http.Client{Timeout: 30 * time.Second}
	n := setupNotifier(cfg, httpClient, logger)

	mon, err := buildMonitor(cfg, sqlStore, n, false, httpClient, logger)
	if err != nil {
		logger.Error("failed to build monitor", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := mon.Start(ctx); err != nil {
		// Already running is a status, not a failure.
		if errors.Is(err, monitor.ErrAlreadyRunning) {
			logger.Warn("monitor already running")
		} else {
			logger.Error("failed to start monitor", "error", err)
			os.Exit(1)
		}
	}

	<-ctx.Done()
	mon.Stop()
	logger.Info("goodbye")
	return nil
}
