package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/centic-tools/centic-ctl/internal/app"
	"github.com/centic-tools/centic-ctl/internal/config"
	"github.com/centic-tools/centic-ctl/internal/errors"
	"github.com/centic-tools/centic-ctl/internal/logging"
	"github.com/centic-tools/centic-ctl/internal/proxy"
	"github.com/centic-tools/centic-ctl/internal/runner"
	"github.com/centic-tools/centic-ctl/internal/tui"
)

var pickCmd = &cobra.Command{
	Use:   "pick",
	Short: "Interactive account picker",
	Long: `Opens an interactive TUI listing every account with its rank, points,
unclaimed task count and proxy.

Use arrow keys or j/k to navigate, / to filter.

Actions:
  Enter  - Run a claim pass for the selected account now
  t      - List the selected account's unclaimed tasks
  q/Esc  - Quit

When output is not a terminal (or with --plain) the list is printed
instead.`,
	Args: cobra.NoArgs,
	RunE: runPick,
}

var pickPlain bool

func init() {
	pickCmd.Flags().BoolVar(&pickPlain, "plain", false, "Print the account list without the interactive picker")
	rootCmd.AddCommand(pickCmd)
}

func runPick(cmd *cobra.Command, args []string) error {
	cfg, p, err := loadConfig()
	if err != nil {
		return err
	}
	clients, err := clientsFor(cfg, p, nil)
	if err != nil {
		return err
	}

	logging.Debug("picker mode started", "accounts", len(clients))

	accounts := make([]tui.Account, len(clients))
	for i, ac := range clients {
		accounts[i] = summarize(cmd.Context(), ac)
	}

	out := cmd.OutOrStdout()
	if pickPlain || !isTerminal(out) {
		fmt.Fprint(out, tui.SimplePicker(accounts))
		return nil
	}

	result, err := tui.RunPicker(accounts)
	if err != nil {
		return fmt.Errorf("picker error: %w", err)
	}

	logging.Debug("picker result", "action", result.Action, "index", result.Index)

	switch result.Action {
	case tui.ActionClaim:
		return claimAccount(cmd, cfg, p, clients[result.Index])
	case tui.ActionTasks:
		return printTasks(cmd, clients[result.Index])
	}
	return nil
}

func isTerminal(w any) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}

// summarize queries rank and tasks for the picker row.
func summarize(ctx context.Context, ac accountClient) tui.Account {
	row := tui.Account{
		Label: ac.Label,
		Token: logging.Mask(ac.Token),
		Proxy: proxy.Display(ac.client.Proxy()),
	}

	rank, err := ac.client.FetchUserRank(ctx, ac.Token)
	if err != nil {
		row.Err = err.Error()
		return row
	}
	row.Rank = rank.Rank.String()
	row.Points = rank.TotalPoint.String()

	tasks, err := ac.client.FetchTasks(ctx, ac.Token)
	if err != nil {
		row.Err = err.Error()
		return row
	}
	row.Unclaimed = len(tasks)
	return row
}

func claimAccount(cmd *cobra.Command, cfg *config.Config, p *config.Paths, ac accountClient) error {
	var proxies []string
	if ac.client.Proxy() != "" {
		proxies = []string{ac.client.Proxy()}
	}

	r, err := app.Default.Runner(cfg, p, []string{ac.Token}, app.RunOptions{
		Proxies: proxies,
		Offset:  ac.Index,
		Once:    true,
		OnPass: func(res runner.PassResult) {
			logSuccess("%s: %d claimed, %d unavailable, %d failed", ac.Label, res.Claimed, res.NotFound, res.ClaimFailed)
		},
	})
	if err != nil {
		return errors.ConfigError("invalid configuration", err)
	}
	return r.Run(cmd.Context())
}

func printTasks(cmd *cobra.Command, ac accountClient) error {
	tasks, err := ac.client.FetchTasks(cmd.Context(), ac.Token)
	if err != nil {
		return errors.APIError("fetch tasks", err)
	}
	if len(tasks) == 0 {
		logInfo("%s has no unclaimed tasks", ac.Label)
		return nil
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TASK\tPOINT")
	fmt.Fprintln(w, "----\t-----")
	for _, task := range tasks {
		fmt.Fprintf(w, "%s\t%s\n", task.TaskID, task.Point)
	}
	return w.Flush()
}
