package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/chdqbank/qbank/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Import or update questions from a CSV file",
	Long: `Import questions from a CSV file with a header row.

Required columns: slug, stem_md, choiceA, choiceB, correct_label.
Optional columns: lead_in, choiceC..choiceE, explanation_brief_md,
explanation_deep_md, topic, subtopic, lesion, difficulty, status,
media_murmur, media_cxr, media_ekg, media_diagram, alt_text.

Rows are upserted by slug; invalid rows are reported and skipped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()

		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("open csv: %w", err)
		}
		defer f.Close()

		res, err := importer.New(e.store, e.logger).Import(cmd.Context(), f)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, re := range res.Rejected {
			fmt.Fprintf(out, "  skipped %v\n", re)
		}
		fmt.Fprintf(out, "Imported %d question(s), skipped %d.\n", res.Imported, len(res.Rejected))
		return nil
	},
}
