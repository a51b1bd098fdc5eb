// collect builds labeled card datasets from the command line.
//
// Usage:
//
//	collect run --cards cards.txt [--output card_dataset.csv] [--buy-price 10 | --pulled]
//	collect fetch-cards --query 'set.name:"Mega Evolution"' --output cards.csv
//	collect resolve "Parasol Lady 255/182"
//	collect evaluate "Parasol Lady 255/182" --buy-price 10
//	collect import-cache --from cache_tcg_ids.json
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/codyseavey/tcg-signals/internal/config"
	"github.com/codyseavey/tcg-signals/internal/database"
	"github.com/codyseavey/tcg-signals/internal/logging"
	"github.com/codyseavey/tcg-signals/internal/services"
)

var (
	// Global flags
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "collect",
	Short: "Resolve, price and label Pokemon cards into a dataset",
	Long: `collect resolves card names to TCGplayer product ids, pulls the Near Mint
price history for each, extracts trend and volume features and labels every
card SELL or HOLD. Runs are sequential with a fixed pause between cards.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cmd.Context(), configPath)
		if err != nil {
			return err
		}

		level := cfg.LogLevel
		if verbose {
			level = "debug"
		}
		logger, err = logging.New(level, true)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (defaults to $TCG_CONFIG)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(runCmd, fetchCardsCmd, resolveCmd, evaluateCmd, importCacheCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// openPipeline builds the pipeline, opening the database only when the
// identity cache lives there.
func openPipeline(ctx context.Context, opts services.PipelineOptions) (*services.Pipeline, func(), error) {
	var db *gorm.DB
	if cfg.CacheBackend == config.CacheBackendSQLite {
		var err error
		if db, err = database.Open(cfg.DBPath); err != nil {
			return nil, nil, err
		}
	}

	pipeline, err := services.NewPipeline(ctx, cfg, db, opts)
	if err != nil {
		closeDB(db)
		return nil, nil, err
	}
	cleanup := func() {
		if err := pipeline.Close(); err != nil {
			logger.Warn("pipeline shutdown", zap.Error(err))
		}
		closeDB(db)
	}
	return pipeline, cleanup, nil
}

func closeDB(db *gorm.DB) {
	if db == nil {
		return
	}
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
