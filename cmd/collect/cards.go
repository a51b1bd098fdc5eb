package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/codyseavey/tcg-signals/internal/database"
	"github.com/codyseavey/tcg-signals/internal/services"
)

var (
	catalogQuery  string
	catalogLimit  int
	catalogOutput string
	importFrom    string
)

var fetchCardsCmd = &cobra.Command{
	Use:   "fetch-cards",
	Short: "Export a card list from the Pokemon TCG API",
	Long: `Pages through api.pokemontcg.io and writes a name,number,set,release CSV
that "collect run --cards" reads back.

Example:
  collect fetch-cards --query 'set.name:"Mega Evolution"' --output cards.csv`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := services.NewCardCatalogService(cfg.PokemonTCGAPIKey)
		cards, fetchErr := catalog.FetchCards(cmd.Context(), catalogQuery, catalogLimit)
		if fetchErr != nil && len(cards) == 0 {
			return fetchErr
		}
		if fetchErr != nil {
			logger.Warn("card catalog incomplete, writing what was fetched", zap.Int("cards", len(cards)), zap.Error(fetchErr))
		}

		f, err := os.Create(catalogOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", catalogOutput, err)
		}
		defer f.Close()
		if err := services.WriteCatalogCSV(f, cards); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "wrote %d cards to %s\n", len(cards), catalogOutput)
		return nil
	},
}

var resolveCmd = &cobra.Command{
	Use:   "resolve <card name>...",
	Short: "Print the catalog id for each card name",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		pipeline, cleanup, err := openPipeline(cmd.Context(), services.PipelineOptions{})
		if err != nil {
			return err
		}
		defer cleanup()

		for _, name := range args {
			id, err := pipeline.Resolver.Resolve(cmd.Context(), name, cfg.SetHint)
			if err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t-\t%s\n", name, services.SkipReason(err))
				continue
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", name, id)
		}
		return nil
	},
}

var evaluateCmd = &cobra.Command{
	Use:   "evaluate <card name>",
	Short: "Run one card through the pipeline and print its row as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := applyRunFlags(cmd); err != nil {
			return err
		}
		pipeline, cleanup, err := openPipeline(cmd.Context(), services.PipelineOptions{Summaries: summarize})
		if err != nil {
			return err
		}
		defer cleanup()

		row, err := pipeline.Collector.Evaluate(cmd.Context(), args[0], cfg.AcquisitionPrice())
		if err != nil {
			return fmt.Errorf("%s: %w", services.SkipReason(err), err)
		}
		return printJSON(row)
	},
}

var importCacheCmd = &cobra.Command{
	Use:   "import-cache",
	Short: "Copy a JSON identity cache file into the database",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := database.Open(cfg.DBPath)
		if err != nil {
			return err
		}
		defer closeDB(db)

		imported, err := database.ImportLegacyIdentityCache(db, importFrom)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %d identities from %s into %s\n", imported, importFrom, cfg.DBPath)
		return nil
	},
}

func init() {
	fetchCardsCmd.Flags().StringVar(&catalogQuery, "query", "", "Pokemon TCG API search filter")
	fetchCardsCmd.Flags().IntVar(&catalogLimit, "limit", 0, "stop after this many cards (0 = all)")
	fetchCardsCmd.Flags().StringVarP(&catalogOutput, "output", "o", "cards.csv", "card list CSV to write")

	evaluateCmd.Flags().Float64Var(&buyPrice, "buy-price", 0, "acquisition price for bought mode (defaults to default_buy_price)")
	evaluateCmd.Flags().BoolVar(&pulled, "pulled", false, "card was pulled from a pack: no buy price")
	evaluateCmd.Flags().BoolVar(&summarize, "summarize", false, "attach a Gemini summary")
	evaluateCmd.Flags().StringVar(&searchMode, "search-mode", "", "browser (headless Chrome) or http (static HTML only)")

	importCacheCmd.Flags().StringVar(&importFrom, "from", "cache_tcg_ids.json", "JSON name -> id cache file")
}
