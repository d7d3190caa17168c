package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quitvipe/quitvipe/internal/daemon"
)

func init() {
	rootCmd.AddCommand(undoCmd)
}

var undoCmd = &cobra.Command{
	Use:   "undo USER_ID",
	Short: "Remove the user's most recent puff entry from today",
	Args:  cobra.ExactArgs(1),
	RunE:  runUndo,
}

func runUndo(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	deleted, err := d.Tracker.Puffs.Undo(cmd.Context(), args[0])
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %d (%s) logged at %s\n",
		deleted.Count, deleted.Trigger, deleted.CreatedAt.Format("15:04:05"))
	return nil
}
