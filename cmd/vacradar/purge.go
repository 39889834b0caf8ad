package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkorchagin/vacradar/internal/store"
)

var purgeOlderThan time.Duration

var purgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete old records from the store",
	Long:  "Deletes records first seen longer ago than the cutoff. Default cutoff comes from purge_max_age in config.",
	RunE:  runPurge,
}

func init() {
	purgeCmd.Flags().DurationVar(&purgeOlderThan, "older-than", 0, "cutoff age, e.g. 720h (default: purge_max_age from config)")
	rootCmd.AddCommand(purgeCmd)
}

func runPurge(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	cutoff := purgeOlderThan
	if cutoff == 0 {
		cutoff = cfg.PurgeMaxAge
	}

	sqlStore, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer sqlStore.Close()

	deleted, err := sqlStore.Purge(context.Background(), cutoff)
	if err != nil {
		return err
	}

	logger.Info("purge complete", "deleted", deleted, "older_than", cutoff.String())
	return nil
}
