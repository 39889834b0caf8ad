package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkorchagin/vacradar/internal/adapter"
	"github.com/mkorchagin/vacradar/internal/config"
	"github.com/mkorchagin/vacradar/internal/enrich"
	"github.com/mkorchagin/vacradar/internal/filter"
	"github.com/mkorchagin/vacradar/internal/model"
	"github.com/mkorchagin/vacradar/internal/monitor"
	"github.com/mkorchagin/vacradar/internal/notifier"
	"github.com/mkorchagin/vacradar/internal/retry"
)

var (
	cfgPath string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:   "vacradar",
	Short: "Vacancy radar — scrape, structure and moderate design job postings",
	Long:  "Vacradar scans Russian job boards on a schedule, structures each vacancy, and queues it for moderation.",
	// Default to `start` so that `vacradar` with no args runs the daemon.
	// This preserves compatibility with systemd unit files that invoke the binary directly.
	RunE: runStart,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "path to config file (default: VACRADAR_CONFIG env var or ./config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

// loadConfig resolves the config path and parses it.
// Priority: explicit path arg > VACRADAR_CONFIG env var > "./config.yaml"
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		if env := os.Getenv("VACRADAR_CONFIG"); env != "" {
			path = env
		} else {
			path = "config.yaml"
		}
	}
	return config.Load(path)
}

func setupLogger(dbg bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if dbg {
		logLevel = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))
}

func setupNotifier(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) model.Notifier {
	switch cfg.Notification.Type {
	case "telegram":
		logger.Info("using telegram notifier", "chat_id", cfg.Notification.TelegramChat)
		return notifier.NewTelegramNotifier(cfg.Notification.TelegramToken, cfg.Notification.TelegramChat, httpClient, logger)
	default:
		return notifier.NewLogNotifier(logger)
	}
}

// setupEnricher assembles the analysis chain. The AI stage is prepended
// only when enabled; heuristic and minimal stages are always present.
func setupEnricher(cfg *config.Config, logger *slog.Logger) model.Enricher {
	var strategies []enrich.Strategy
	if cfg.AI.Enabled {
		logger.Info("ai enrichment enabled", "model", cfg.AI.Model)
		strategies = append(strategies, enrich.NewAIClassifier(cfg.AI.BaseURL, cfg.AI.APIKey, cfg.AI.Model, cfg.AI.Timeout))
	}
	strategies = append(strategies, enrich.NewHeuristic(), enrich.NewMinimal())
	return enrich.NewChain(logger, strategies...)
}

func setupFilter(cfg *config.Config) *filter.RelevanceFilter {
	if len(cfg.Filters.IncludeKeywords) > 0 || len(cfg.Filters.ExcludeKeywords) > 0 {
		return filter.NewRelevanceFilter(cfg.Filters.IncludeKeywords, cfg.Filters.ExcludeKeywords)
	}
	return filter.NewDefaultRelevanceFilter()
}

// buildAdapters creates one retry-wrapped adapter per configured source.
func buildAdapters(cfg *config.Config, httpClient *http.Client, logger *slog.Logger) ([]model.SourceAdapter, error) {
	var adapters []model.SourceAdapter
	for _, name := range cfg.Sources {
		a, err := adapter.New(name, httpClient)
		if err != nil {
			return nil, fmt.Errorf("building adapter %q: %w", name, err)
		}
		// One short-backoff retry for transient errors; anything more hammers
		// sites that are already struggling.
		adapters = append(adapters, retry.NewRetryAdapter(a, 1, 5*time.Second, logger))
		logger.Info("registered source", "name", name)
	}
	return adapters, nil
}

func buildMonitor(cfg *config.Config, st model.VacancyStore, n model.Notifier, override bool, httpClient *http.Client, logger *slog.Logger) (*monitor.Monitor, error) {
	adapters, err := buildAdapters(cfg, httpClient, logger)
	if err != nil {
		return nil, err
	}

	return monitor.New(
		adapters,
		setupFilter(cfg),
		setupEnricher(cfg, logger),
		st,
		n,
		monitor.Config{
			Queries:         cfg.Queries,
			MaxPages:        cfg.MaxPages,
			PageDelay:       cfg.PageDelay,
			IncrementalSpec: cfg.IncrementalSchedule,
			FullSpec:        cfg.FullSchedule,
			Override:        override,
		},
		logger,
	), nil
}
