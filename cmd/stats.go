package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/chdqbank/qbank/internal/analytics"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show practice statistics and the weekly trend",
	RunE: func(cmd *cobra.Command, args []string) error {
		weeks, _ := cmd.Flags().GetInt("weeks")
		if weeks <= 0 {
			return fmt.Errorf("--weeks must be positive, got %d", weeks)
		}

		e, err := openEnv(cmd)
		if err != nil {
			return err
		}
		defer e.close()
		userID, err := e.requireUser()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		now := time.Now()
		svc := analytics.NewService(e.store)

		d, err := svc.Dashboard(ctx, userID, now)
		if err != nil {
			return err
		}
		trend, err := svc.WeeklyTrend(ctx, userID, weeks, now)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		accuracy := "—"
		if d.TotalAttempts > 0 {
			accuracy = fmt.Sprintf("%.0f%%", float64(d.CorrectAttempts)/float64(d.TotalAttempts)*100)
		}
		fmt.Fprintf(out, "Answered:      %d\n", d.TotalAttempts)
		fmt.Fprintf(out, "Correct:       %d (%s)\n", d.CorrectAttempts, accuracy)
		fmt.Fprintf(out, "Flagged:       %d\n", d.FlaggedCount)
		fmt.Fprintf(out, "Points:        %d this week, %d all time\n", d.WeeklyPoints, d.AllTimePoints)
		fmt.Fprintf(out, "Weekly streak: %d\n\n", analytics.WeeklyStreak(trend))

		fmt.Fprintf(out, "%-8s  %8s  %8s  %s\n", "Week", "Answered", "Accuracy", "")
		fmt.Fprintln(out, strings.Repeat("─", 50))
		for _, p := range trend {
			acc, bar := "—", ""
			if p.Accuracy != nil {
				acc = fmt.Sprintf("%.0f%%", *p.Accuracy)
				bar = strings.Repeat("█", int(*p.Accuracy/5+0.5))
			}
			fmt.Fprintf(out, "%-8s  %8d  %8s  %s\n", p.Label, p.Attempts, acc, bar)
		}
		return nil
	},
}

func init() {
	statsCmd.Flags().Int("weeks", analytics.DefaultWeeks, "Number of weeks in the trend")
}
