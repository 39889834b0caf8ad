package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mkorchagin/vacradar/internal/model"
	"github.com/mkorchagin/vacradar/internal/moderation"
	"github.com/mkorchagin/vacradar/internal/store"
)

var (
	moderateName  string
	moderateNotes string
)

var moderateCmd = &cobra.Command{
	Use:   "moderate",
	Short: "Non-interactive moderation",
}

var approveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending vacancy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModerate(args[0], model.ActionApprove)
	},
}

var rejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending vacancy",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runModerate(args[0], model.ActionReject)
	},
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "List vacancies awaiting moderation",
	RunE:  runPending,
}

func init() {
	moderateCmd.PersistentFlags().StringVar(&moderateName, "moderator", os.Getenv("USER"), "moderator name recorded with the decision")
	moderateCmd.PersistentFlags().StringVar(&moderateNotes, "notes", "", "optional moderation notes")
	moderateCmd.AddCommand(approveCmd)
	moderateCmd.AddCommand(rejectCmd)
	rootCmd.AddCommand(moderateCmd)
	rootCmd.AddCommand(pendingCmd)
}

func runModerate(id string, action model.ModerationAction) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer sqlStore.Close()

	svc := moderation.NewService(sqlStore, logger)
	rec, err := svc.Moderate(context.Background(), id, action, moderateName, moderateNotes)
	if err != nil {
		return err
	}

	fmt.Printf("%s: %s — %s (%s)\n", rec.Status, rec.Title, rec.Company, rec.Source)
	return nil
}

func runPending(cmd *cobra.Command, args []string) error {
	logger := setupLogger(debug)

	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer sqlStore.Close()

	svc := moderation.NewService(sqlStore, logger)
	records, err := svc.Pending(context.Background())
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No pending vacancies.")
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  [%s]  %s — %s\n", rec.ID, rec.Source, rec.Title, rec.Company)
	}
	fmt.Printf("\n%d pending\n", len(records))
	return nil
}
