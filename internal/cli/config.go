package cli

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/quitvipe/quitvipe/internal/daemon"
)

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd, configShowCmd)
	rootCmd.AddCommand(configCmd)
}

var configForce bool

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the Quit Vipe config file",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a default config with fresh secrets",
	RunE:  runConfigInit,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config (secrets redacted)",
	RunE:  runConfigShow,
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	path := daemon.ConfigPath()
	if _, err := os.Stat(path); err == nil && !configForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	cfg := daemon.DefaultConfig()
	if err := cfg.InitSecrets(); err != nil {
		return err
	}
	if err := daemon.SaveConfig(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.LoadConfig()
	if err != nil {
		return err
	}
	cfg.Auth.SessionSecret = redact(cfg.Auth.SessionSecret)
	cfg.Auth.TokenSecret = redact(cfg.Auth.TokenSecret)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "# %s\n", daemon.ConfigPath())
	return toml.NewEncoder(out).Encode(cfg)
}

func redact(secret string) string {
	if secret == "" {
		return ""
	}
	return "********"
}
