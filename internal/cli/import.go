package cli

import (
	"fmt"

	"abbrev-quiz-service/internal/importer"
	"abbrev-quiz-service/internal/infra/postgres"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// NewImportCmd loads questions from a spreadsheet, CSV or JSON file into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	icfg := importer.DefaultConfig()
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import quiz items into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			icfg.FilePath = args[0]
			result, err := importer.Read(icfg)
			if err != nil {
				return err
			}
			for _, msg := range result.Errors {
				log.Warn().Str("file", icfg.FilePath).Msg(msg)
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "parsed %d rows: %d valid, %d duplicates, %d invalid\n",
					result.TotalProcessed, len(result.Items), result.Skipped, len(result.Errors))
				return nil
			}

			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if err := runMigrationsWithConfig(cmd.Context(), cfg); err != nil {
				return err
			}
			db := postgres.OpenBun(cfg.Postgres.URL)
			defer db.Close()

			written, err := postgres.NewItemWriter(db).Upsert(cmd.Context(), result.Items)
			if err != nil {
				return err
			}
			log.Info().
				Int("processed", result.TotalProcessed).
				Int("imported", written).
				Int("skipped", result.Skipped).
				Int("invalid", len(result.Errors)).
				Msg("import finished")
			return nil
		},
	}

	cmd.Flags().StringVar(&icfg.SheetName, "sheet", icfg.SheetName, "sheet name for Excel files")
	cmd.Flags().IntVar(&icfg.StartRow, "start-row", icfg.StartRow, "first data row (1-based)")
	cmd.Flags().StringVar(&icfg.AbbreviationColumn, "abbr-col", icfg.AbbreviationColumn, "abbreviation column")
	cmd.Flags().StringVar(&icfg.AnswerColumn, "answer-col", icfg.AnswerColumn, "correct answer column")
	cmd.Flags().StringVar(&icfg.OptionsColumn, "options-col", icfg.OptionsColumn, "options column")
	cmd.Flags().StringVar(&icfg.CategoryColumn, "category-col", icfg.CategoryColumn, "category column")
	cmd.Flags().StringVar(&icfg.OptionSeparator, "separator", icfg.OptionSeparator, "separator between options")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse and validate without writing")
	return cmd
}
