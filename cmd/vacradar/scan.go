package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkorchagin/vacradar/internal/model"
	"github.com/mkorchagin/vacradar/internal/store"
)

var (
	scanFull     bool
	scanDryRun   bool
	scanOverride bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan once, exit",
	Long:  "One-shot scan of every configured source. --full walks all pages, --dry-run keeps results out of the store.",
	RunE:  runScan,
}

func init() {
	scanCmd.Flags().BoolVar(&scanFull, "full", false, "walk max_pages pages per query instead of the first page")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "print matches without persisting them")
	scanCmd.Flags().BoolVar(&scanOverride, "override", false, "re-ingested records reset moderation state")
	rootCmd.AddCommand(scanCmd)
}

func runScan(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: 30 * time.Second}

	// In dry-run mode everything lands in a throwaway in-memory store and
	// goes to the log instead of the configured channel.
	var (
		st model.VacancyStore
		n  model.Notifier
	)
	if scanDryRun {
		logger.Info("dry-run mode enabled, nothing will be persisted")
		st = store.NewMemoryStore()
		cfgCopy := *cfg
		cfgCopy.Notification.Type = "log"
		n = setupNotifier(&cfgCopy, httpClient, logger)
	} else {
		sqlStore, err := store.NewSQLiteStore(cfg.StorePath)
		if err != nil {
			logger.Error("failed to open store", "error", err)
			os.Exit(1)
		}
		defer sqlStore.Close()
		st = sqlStore
		n = setupNotifier(cfg, httpClient, logger)
	}

	mon, err := buildMonitor(cfg, st, n, scanOverride, httpClient, logger)
	if err != nil {
		logger.Error("failed to build monitor", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := mon.RunOnce(ctx, scanFull)
	if err != nil {
		logger.Error("scan failed", "error", err)
		os.Exit(1)
	}

	for name, src := range stats.BySource {
		logger.Info("source result",
			"source", name,
			"found", src.Found,
			"saved", src.Saved,
			"failed", src.Failed,
		)
	}
	logger.Info("scan complete", "found", stats.TotalFound, "saved", stats.TotalSaved)
	return nil
}
