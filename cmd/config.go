package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/centic-tools/centic-ctl/internal/config"
	"github.com/centic-tools/centic-ctl/internal/errors"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the effective configuration as TOML",
	Args:  cobra.NoArgs,
	RunE:  runConfig,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the effective configuration to the config file",
	Args:  cobra.NoArgs,
	RunE:  runConfigInit,
}

var configInitForce bool

func init() {
	addOverrideFlags(configCmd)
	addOverrideFlags(configInitCmd)
	configInitCmd.Flags().BoolVarP(&configInitForce, "force", "f", false, "Overwrite an existing config file")
	configCmd.AddCommand(configInitCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	return config.Write(cmd.OutOrStdout(), cfg)
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	cfg, p, err := loadConfig()
	if err != nil {
		return err
	}

	if _, err := os.Stat(p.ConfigFile); err == nil && !configInitForce {
		return errors.ValidationError("config file " + p.ConfigFile + " already exists (use --force to overwrite)")
	}

	if err := config.Save(p.ConfigFile, cfg); err != nil {
		return errors.ConfigError("failed to write config", err)
	}
	logSuccess("Wrote %s", p.ConfigFile)
	return nil
}
