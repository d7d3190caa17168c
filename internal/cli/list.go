package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quitvipe/quitvipe/internal/daemon"
)

func init() {
	listCmd.Flags().IntVar(&listLimit, "limit", 20, "Maximum entries to show")
	rootCmd.AddCommand(listCmd)
}

var listLimit int

var listCmd = &cobra.Command{
	Use:     "list USER_ID",
	Aliases: []string{"ls"},
	Short:   "List today's puff entries, newest first",
	Args:    cobra.ExactArgs(1),
	RunE:    runList,
}

func runList(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	events, err := d.Tracker.Puffs.Recent(cmd.Context(), args[0], listLimit)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(events) == 0 {
		fmt.Fprintln(out, "No puffs logged today.")
		return nil
	}

	loc := d.Tracker.Aggregates.Days().Location()
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tCOUNT\tTRIGGER\tID")
	for _, e := range events {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n",
			e.OccurredAt.In(loc).Format("15:04:05"),
			e.Count,
			e.Trigger,
			e.ID,
		)
	}
	return w.Flush()
}
