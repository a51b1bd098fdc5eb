package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-signals/internal/services"
)

var (
	cardsFile  string
	outputPath string
	buyPrice   float64
	pulled     bool
	setHint    string
	summarize  bool
	searchMode string
)

var runCmd = &cobra.Command{
	Use:   "run [card names...]",
	Short: "Build a dataset from a card list",
	Long: `Processes every card in order and writes one row per card that resolves
and has Near Mint history. Cards that fail are logged and skipped. The output
format follows the file extension: .jsonl/.ndjson for JSON Lines (which keeps
the decision reason and summary), CSV otherwise.`,
	RunE: runCollection,
}

func init() {
	runCmd.Flags().StringVar(&cardsFile, "cards", "", "card list: .txt with one name per line, or .csv with a name column")
	runCmd.Flags().StringVarP(&outputPath, "output", "o", "", "dataset file (defaults to output_path)")
	runCmd.Flags().Float64Var(&buyPrice, "buy-price", 0, "acquisition price for bought mode (defaults to default_buy_price)")
	runCmd.Flags().BoolVar(&pulled, "pulled", false, "cards were pulled from packs: no buy price")
	runCmd.Flags().StringVar(&setHint, "set-hint", "", "set name used to disambiguate searches (defaults to set_hint)")
	runCmd.Flags().BoolVar(&summarize, "summarize", false, "attach Gemini summaries (JSON Lines output only)")
	runCmd.Flags().StringVar(&searchMode, "search-mode", "", "browser (headless Chrome) or http (static HTML only)")
}

func applyRunFlags(cmd *cobra.Command) error {
	if cmd.Flags().Changed("output") {
		cfg.OutputPath = outputPath
	}
	if cmd.Flags().Changed("buy-price") {
		cfg.DefaultBuyPrice = buyPrice
	}
	if pulled {
		cfg.PulledMode = true
	}
	if cmd.Flags().Changed("set-hint") {
		cfg.SetHint = setHint
	}
	if cmd.Flags().Changed("search-mode") {
		cfg.SearchMode = searchMode
	}
	return cfg.Validate()
}

func runCollection(cmd *cobra.Command, args []string) error {
	if err := applyRunFlags(cmd); err != nil {
		return err
	}
	if summarize && !services.IsJSONLPath(cfg.OutputPath) {
		logger.Warn("summaries need JSON Lines output, skipping them", zap.String("output", cfg.OutputPath))
		summarize = false
	}

	names := args
	if cardsFile != "" {
		fromFile, err := services.ReadCardList(cardsFile)
		if err != nil {
			return err
		}
		names = append(fromFile, names...)
	}
	if len(names) == 0 {
		return errors.New("no cards: pass --cards or card names")
	}

	ctx := cmd.Context()
	pipeline, cleanup, err := openPipeline(ctx, services.PipelineOptions{Summaries: summarize})
	if err != nil {
		return err
	}
	defer cleanup()

	sink, err := services.OpenFileSink(cfg.OutputPath)
	if err != nil {
		return err
	}

	logger.Info("starting collection run",
		zap.Int("cards", len(names)),
		zap.String("output", cfg.OutputPath),
		zap.Bool("pulled", cfg.AcquisitionPrice() == nil),
		zap.String("search_mode", cfg.SearchMode))

	summary, runErr := pipeline.Collector.Run(ctx, names, sink, cfg.AcquisitionPrice())
	if err := sink.Close(); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("failed to close output: %w", err))
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote %d of %d cards to %s in %s\n",
		summary.RowsWritten, summary.CardsTotal, cfg.OutputPath, summary.Duration.Round(time.Millisecond))
	for _, s := range summary.Skipped {
		fmt.Fprintf(cmd.OutOrStdout(), "  skipped %-40q %s\n", s.Name, s.Reason)
	}
	return runErr
}
