package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/centic-tools/centic-ctl/internal/app"
	"github.com/centic-tools/centic-ctl/internal/errors"
	"github.com/centic-tools/centic-ctl/internal/logging"
	"github.com/centic-tools/centic-ctl/internal/metrics"
	"github.com/centic-tools/centic-ctl/internal/proxy"
	"github.com/centic-tools/centic-ctl/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Claim tasks for all accounts on a schedule",
	Long: `Runs a claim pass over every token in tokens.txt, then waits for the
next scheduled tick and repeats. Runs in the foreground until interrupted.

The schedule accepts a cron expression ("0 * * * *"), a descriptor
("@hourly", "@every 45m") or a plain duration ("90m").`,
	RunE: runRun,
}

var (
	runSchedule    string
	runMetricsAddr string
	runNoProxy     bool
	runOnce        bool
)

func init() {
	addRunFlags(runCmd)
	rootCmd.AddCommand(runCmd)
}

// addRunFlags binds the claim loop flags; the root command shares them.
func addRunFlags(cmd *cobra.Command) {
	addOverrideFlags(cmd)
	cmd.Flags().BoolVar(&runOnce, "once", false, "Run a single pass and exit")
}

// addOverrideFlags binds the flags that override config file settings.
func addOverrideFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&runSchedule, "schedule", "", "Pass schedule (overrides the config file)")
	cmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9108")
	cmd.Flags().BoolVar(&runNoProxy, "no-proxy", false, "Ignore proxy.txt and connect directly")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, p, err := loadConfig()
	if err != nil {
		return err
	}

	tokens, err := loadTokens(p)
	if err != nil {
		return err
	}
	proxies := loadProxies(p)

	fmt.Fprintln(cmd.OutOrStdout(), logging.Banner(version))
	logInfo("Loaded %d accounts and %d proxies", len(tokens), len(proxies))
	for _, raw := range proxies {
		if _, err := proxy.Normalize(raw); err != nil {
			logWarning("Proxy %s is invalid and its accounts will be skipped: %v", proxy.Display(raw), err)
		}
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var rec *metrics.Recorder
	if cfg.MetricsAddr != "" {
		rec = metrics.New()
		addr, err := rec.Start(ctx, cfg.MetricsAddr)
		if err != nil {
			return errors.MetricsError("failed to start metrics server", err)
		}
		logInfo("Serving metrics on http://%s/metrics", addr)
	}

	r, err := app.Default.Runner(cfg, p, tokens, app.RunOptions{
		Proxies: proxies,
		Metrics: rec,
		Once:    runOnce,
		OnPass: func(res runner.PassResult) {
			logSuccess("Pass complete: %d claimed, %d unavailable, %d failed across %d accounts",
				res.Claimed, res.NotFound, res.ClaimFailed, res.Accounts)
		},
	})
	if err != nil {
		return errors.ConfigError("invalid configuration", err)
	}

	err = r.Run(ctx)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, context.Canceled):
		logInfo("Stopped")
		return nil
	case errors.Is(err, runner.ErrNoTokens):
		return errors.NoTokens(p.TokensFile)
	default:
		return err
	}
}
