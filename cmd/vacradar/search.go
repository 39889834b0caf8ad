package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mkorchagin/vacradar/internal/store"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search stored vacancies",
	Long:  "Free-text match over title, company and description of every stored vacancy.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	sqlStore, err := store.NewSQLiteStore(cfg.StorePath)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer sqlStore.Close()

	query := strings.Join(args, " ")
	records, err := sqlStore.Search(context.Background(), query)
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Printf("No vacancies match %q.\n", query)
		return nil
	}
	for _, rec := range records {
		fmt.Printf("%s  [%s/%s]  %s — %s\n", rec.ID, rec.Source, rec.Status, rec.Title, rec.Company)
	}
	fmt.Printf("\n%d matched\n", len(records))
	return nil
}
