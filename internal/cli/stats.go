package cli

import (
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quitvipe/quitvipe/internal/daemon"
	"github.com/quitvipe/quitvipe/internal/domain"
)

func init() {
	rootCmd.AddCommand(statsCmd)
}

var statsCmd = &cobra.Command{
	Use:   "stats USER_ID",
	Short: "Show today's total, rolling stats and goal progress for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runStats,
}

func runStats(cmd *cobra.Command, args []string) error {
	userID := args[0]
	ctx := cmd.Context()

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	today, err := d.Tracker.Puffs.Today(ctx, userID)
	if err != nil {
		return err
	}
	stats, err := d.Tracker.Stats.RollingStats(ctx, userID)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Today (%s): %d puffs in %d entries\n", d.Tracker.Aggregates.TodayKey(), today.TotalCount, today.SessionCount)
	if today.Latest != nil {
		fmt.Fprintf(out, "Latest:      %d (%s) at %s\n", today.Latest.Count, today.Latest.Trigger, today.Latest.OccurredAt.In(d.Tracker.Aggregates.Days().Location()).Format("15:04"))
	}
	fmt.Fprintf(out, "Streak:      %d days\n", stats.Streak)
	fmt.Fprintf(out, "Week total:  %d (avg %.2f/day)\n", stats.WeeklyTotal, stats.WeeklyAverage)
	fmt.Fprintf(out, "Month total: %d\n", stats.MonthlyTotal)

	progress, err := d.Tracker.Goals.Progress(ctx, userID)
	switch {
	case errors.Is(err, domain.ErrGoalNotSet):
		fmt.Fprintln(out, "Goal:        none")
	case err != nil:
		return err
	default:
		fmt.Fprintf(out, "Goal:        %d %s, %d remaining (%.1f%%)\n",
			progress.Goal.Target, progress.Goal.Period, progress.Remaining, progress.ProgressPercent)
	}

	fmt.Fprintln(out)
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "DATE\tPUFFS")
	for _, day := range stats.WeeklyStats {
		fmt.Fprintf(w, "%s\t%d\n", day.Day, day.Total)
	}
	return w.Flush()
}
