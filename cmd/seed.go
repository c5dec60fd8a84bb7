package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"aromabot/pkg/config"
	"aromabot/pkg/logger"
	"aromabot/pkg/store"

	"github.com/spf13/cobra"
)

var seedFile string

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Load the oil catalog into the store",
	Long:  "Upserts the oil catalog from the embedded YAML, or from --file, into the configured store.",
	Run: func(cmd *cobra.Command, args []string) {
		_ = args

		cfg, err := config.LoadConfig()
		if err != nil {
			fmt.Printf("failed to load config: %v\n", err)
			return
		}

		appLogger, err := logger.New(cfg.Logging)
		if err != nil {
			fmt.Printf("failed to initialize logger: %v\n", err)
			return
		}
		log := appLogger.With("component", "cmd.seed")

		count, err := runSeed(cmd.Context(), cfg.Store.Path, seedFile, log)
		if err != nil {
			log.Error("Seeding failed", "error", err)
			return
		}

		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d oils into %s\n", count, cfg.Store.Path)
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
	seedCmd.Flags().StringVarP(&seedFile, "file", "f", "", "catalog YAML file (default: embedded catalog)")
}

func runSeed(ctx context.Context, dbPath string, catalogPath string, log *slog.Logger) (int, error) {
	catalog, err := store.LoadCatalog(catalogPath)
	if err != nil {
		return 0, err
	}

	db, err := store.Open(ctx, dbPath, log)
	if err != nil {
		return 0, fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	return db.Seed(ctx, catalog)
}
