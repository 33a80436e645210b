package cmd

import (
	"github.com/spf13/cobra"

	"github.com/centic-tools/centic-ctl/internal/logging"
)

var (
	verbose    bool
	jsonOutput bool
	dataDir    string
	configFile string
)

var rootCmd = &cobra.Command{
	Use:   "centic-ctl",
	Short: "Centic points task claimer",
	Long: `centic-ctl claims Centic points reward tasks for a list of accounts.

Every pass it walks tokens.txt in order and, for each account:
  - Picks the next proxy from proxy.txt (if any)
  - Submits the referral code
  - Logs the account rank
  - Claims every unclaimed task with a short random delay

Passes repeat on a schedule (hourly by default) until interrupted.
Running without a subcommand is the same as "centic-ctl run".`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(verbose, jsonOutput, cmd.ErrOrStderr())
		logging.SetUserOutput(cmd.OutOrStdout(), cmd.ErrOrStderr())
	},
	RunE: runRun,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output logs in JSON format")
	rootCmd.PersistentFlags().StringVarP(&dataDir, "data-dir", "d", ".", "Directory holding tokens.txt, proxy.txt and centic.toml")
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Config file (default <data-dir>/centic.toml)")
	addRunFlags(rootCmd)
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}

// Helper aliases for user-facing output (delegates to logging package)
var (
	logInfo    = logging.UserInfo
	logSuccess = logging.UserSuccess
	logWarning = logging.UserWarning
)
