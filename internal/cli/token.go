package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/quitvipe/quitvipe/internal/daemon"
)

func init() {
	rootCmd.AddCommand(tokenCmd)
}

var tokenCmd = &cobra.Command{
	Use:   "token USER_ID",
	Short: "Print a bearer token for a user",
	Long: `Print a signed bearer token for USER_ID. Send it as
"Authorization: Bearer <token>" or exchange it for a cookie at POST /api/session.`,
	Args: cobra.ExactArgs(1),
	RunE: runToken,
}

func runToken(cmd *cobra.Command, args []string) error {
	d, err := daemon.New()
	if err != nil {
		return err
	}
	defer d.Close()

	if d.Tokens == nil {
		return fmt.Errorf("auth.token_secret is empty (run 'quitvipe config init' or set QUITVIPE_TOKEN_SECRET)")
	}
	tok, err := d.Tokens.Issue(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), tok)
	return nil
}
