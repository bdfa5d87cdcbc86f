package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/chdqbank/qbank/internal/app"
	"github.com/chdqbank/qbank/internal/practice"
	"github.com/chdqbank/qbank/internal/review"
)

var practiceCmd = &cobra.Command{
	Use:   "practice",
	Short: "Answer published questions (default command)",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runPractice(cmd)
	},
}

func init() {
	practiceCmd.Flags().String("topic", "", "Start with this topic filter")
	practiceCmd.Flags().String("lesion", "", "Start with this lesion filter")
	practiceCmd.Flags().String("difficulty", "", "Start with this difficulty filter (easy, med, hard)")
}

// runPractice opens the store, builds the session, and launches the TUI.
func runPractice(cmd *cobra.Command) error {
	e, err := openEnv(cmd)
	if err != nil {
		return err
	}
	defer e.close()

	ctx := cmd.Context()
	topics, err := e.store.Topics(ctx)
	if err != nil {
		return fmt.Errorf("load topics: %w", err)
	}
	lesions, err := e.store.Lesions(ctx)
	if err != nil {
		return fmt.Errorf("load lesions: %w", err)
	}

	filters, err := startFilters(cmd)
	if err != nil {
		return err
	}

	sess := practice.NewSession(practice.Deps{
		Questions: e.store,
		Responses: e.store,
		Scorer:    e.store,
		Auth:      e.auth,
		Logger:    e.logger,
	},
		practice.WithConfig(e.cfg.Engine()),
		practice.WithRand(e.cfg.Rand()),
		practice.WithFilters(filters),
	)
	defer sess.Close()

	return app.Run(app.Options{
		Session: sess,
		Auth:    e.auth,
		Review:  review.NewService(e.store, e.auth),
		Topics:  topics,
		Lesions: lesions,
	})
}

// startFilters reads the --topic, --lesion and --difficulty flags. The
// practice subcommand defines them; the root command starts unfiltered.
func startFilters(cmd *cobra.Command) (practice.Filters, error) {
	var patch practice.FilterPatch
	if f := cmd.Flags().Lookup("topic"); f != nil && f.Value.String() != "" {
		v := f.Value.String()
		patch.Topic = &v
	}
	if f := cmd.Flags().Lookup("lesion"); f != nil && f.Value.String() != "" {
		v := f.Value.String()
		patch.Lesion = &v
	}
	if f := cmd.Flags().Lookup("difficulty"); f != nil && f.Value.String() != "" {
		v := f.Value.String()
		valid := v == practice.AllValue
		for _, d := range practice.Difficulties {
			valid = valid || v == d
		}
		if !valid {
			return practice.Filters{}, fmt.Errorf("unknown difficulty %q", v)
		}
		patch.Difficulty = &v
	}
	return practice.DefaultFilters().Apply(patch), nil
}
