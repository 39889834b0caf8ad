package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkorchagin/vacradar/internal/model"
	"github.com/mkorchagin/vacradar/internal/moderation"
	"github.com/mkorchagin/vacradar/internal/review"
	"github.com/mkorchagin/vacradar/internal/store"
)

var reviewModerator string

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Moderate vacancies interactively (TUI)",
	Long:  "Shows the queue picker TUI, then launches the review view with approve/reject/edit actions.",
	RunE:  runReview,
}

func init() {
	reviewCmd.Flags().StringVar(&reviewModerator, "moderator", os.Getenv("USER"), "moderator name recorded with each decision")
	rootCmd.AddCommand(reviewCmd)
}

func runReview(cmd *cobra.Command, args []string) error {
	if reviewModerator == "" {
		return fmt.Errorf("--moderator is required (or set $USER)")
	}

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer sqlStore.Close()

	// The TUI owns the screen; route service logs to nowhere.
	silentLogger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := moderation.NewService(sqlStore, silentLogger)

	for {
		counts, err := statusCounts(sqlStore)
		if err != nil {
			fmt.Printf("Error reading store: %v\n", err)
			return nil
		}

		choice, err := review.RunQueuePicker(counts)
		if err != nil {
			fmt.Printf("Picker error: %v\n", err)
			return nil
		}
		if choice < 0 {
			return nil
		}
		queue := review.Queues[choice]

		records, err := review.RunLoader(queue.Name, func(ctx context.Context) ([]model.VacancyRecord, error) {
			if queue.Status == "" {
				return sqlStore.GetAll(ctx)
			}
			return sqlStore.GetByStatus(ctx, queue.Status)
		})
		if err != nil {
			fmt.Printf("Error loading vacancies: %v\n", err)
			continue
		}

		wantQuit, err := review.RunReviewTUI(records, queue, svc, reviewModerator)
		if err != nil {
			fmt.Printf("TUI error: %v\n", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}

func statusCounts(st model.VacancyStore) (map[model.Status]int, error) {
	all, err := st.GetAll(context.Background())
	if err != nil {
		return nil, err
	}
	counts := make(map[model.Status]int)
	for _, rec := range all {
		counts[rec.Status]++
	}
	return counts, nil
}
