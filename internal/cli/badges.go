package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/quitvipe/quitvipe/internal/daemon"
)

func init() {
	badgesCmd.Flags().BoolVar(&badgesEvaluate, "evaluate", false, "Re-run badge evaluation before listing")
	rootCmd.AddCommand(badgesCmd)
}

var badgesEvaluate bool

var badgesCmd = &cobra.Command{
	Use:   "badges USER_ID",
	Short: "List every badge and whether the user has unlocked it",
	Args:  cobra.ExactArgs(1),
	RunE:  runBadges,
}

func runBadges(cmd *cobra.Command, args []string) error {
	userID := args[0]
	ctx := cmd.Context()

	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	out := cmd.OutOrStdout()
	if badgesEvaluate {
		awarded, err := d.Tracker.Badges.Evaluate(ctx, userID)
		if err != nil {
			return err
		}
		for _, b := range awarded {
			fmt.Fprintf(out, "Unlocked %s %s\n", b.Icon, b.Type)
		}
	}

	catalog, err := d.Tracker.Badges.Catalog(ctx, userID)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "BADGE\tNAME\tUNLOCKED")
	for _, e := range catalog {
		unlocked := "-"
		if e.UnlockedAt != nil {
			unlocked = e.UnlockedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%s %s\t%s\t%s\n", e.Icon, e.Type, e.Name, unlocked)
	}
	return w.Flush()
}
