package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quitvipe/quitvipe/internal/app/tracker"
	"github.com/quitvipe/quitvipe/internal/daemon"
)

func init() {
	puffCmd.Flags().IntVarP(&puffCount, "count", "n", 1, "Number of puffs")
	puffCmd.Flags().StringVarP(&puffTrigger, "trigger", "t", "", "stress, boredom, social, habit or other")
	rootCmd.AddCommand(puffCmd)
}

var (
	puffCount   int
	puffTrigger string
)

var puffCmd = &cobra.Command{
	Use:   "puff USER_ID",
	Short: "Log puffs for a user",
	Args:  cobra.ExactArgs(1),
	RunE:  runPuff,
}

func runPuff(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	result, err := d.Tracker.Puffs.Record(cmd.Context(), args[0], tracker.PuffInput{
		Count:   puffCount,
		Trigger: puffTrigger,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Logged %d (%s) on %s\n", result.Event.Count, result.Event.Trigger, result.Event.DayKey)
	for _, b := range result.Badges {
		fmt.Fprintf(out, "Unlocked %s %s\n", b.Icon, b.Type)
	}
	return nil
}
