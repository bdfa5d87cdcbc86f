package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/chdqbank/qbank/internal/review"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List questions you flagged for review",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()
		if _, err := e.requireUser(); err != nil {
			return err
		}

		items, err := review.NewService(e.store, e.auth).Queue(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(items) == 0 {
			fmt.Fprintln(out, "Nothing flagged.")
			return nil
		}

		fmt.Fprintf(out, "%-36s  %-10s  %-9s  %s\n", "Response", "Flagged", "Result", "Question")
		fmt.Fprintln(out, strings.Repeat("─", 100))
		for _, it := range items {
			result := "—"
			if it.Answered {
				result = "wrong"
				if it.IsCorrect {
					result = "correct"
				}
			}
			fmt.Fprintf(out, "%-36s  %-10s  %-9s  %s\n", it.ResponseID, it.FlaggedAt, result, truncate(it.Prompt, 60))
		}
		return nil
	},
}

var reviewUnflagCmd = &cobra.Command{
	Use:   "unflag <response-id>",
	Short: "Remove a question from the review queue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()
		if _, err := e.requireUser(); err != nil {
			return err
		}

		err = review.NewService(e.store, e.auth).Unflag(cmd.Context(), args[0])
		if errors.Is(err, review.ErrNotFlagged) {
			return fmt.Errorf("response %s is not in your review queue", args[0])
		}
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), review.MsgUnflagged)
		return nil
	},
}

func init() {
	reviewCmd.AddCommand(reviewUnflagCmd)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
