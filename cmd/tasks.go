package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/centic-tools/centic-ctl/internal/api"
	"github.com/centic-tools/centic-ctl/internal/app"
	"github.com/centic-tools/centic-ctl/internal/config"
	"github.com/centic-tools/centic-ctl/internal/errors"
	"github.com/centic-tools/centic-ctl/internal/proxy"
)

var tasksCmd = &cobra.Command{
	Use:   "tasks [account]",
	Short: "List unclaimed tasks without claiming them",
	Long: `Fetches the task catalog for every account (or only the given one,
as "3" or "account-3") and prints the tasks that are still unclaimed.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runTasks,
}

func init() {
	rootCmd.AddCommand(tasksCmd)
}

// accountClient pairs an account with the client it should use.
type accountClient struct {
	account
	client *api.Client
}

// clientsFor builds one client per selected account, assigning proxies in
// the same rotation order as a claim pass.
func clientsFor(cfg *config.Config, p *config.Paths, args []string) ([]accountClient, error) {
	tokens, err := loadTokens(p)
	if err != nil {
		return nil, err
	}
	selected, err := selectAccounts(tokens, args)
	if err != nil {
		return nil, err
	}

	proxies := loadProxies(p)
	factory := app.Default.Factory(cfg)

	out := make([]accountClient, 0, len(selected))
	for _, acc := range selected {
		proxyURL := ""
		if len(proxies) > 0 {
			proxyURL = proxies[acc.Index%len(proxies)]
		}
		client, err := factory(proxyURL)
		if err != nil {
			return nil, errors.ConfigError(fmt.Sprintf("invalid proxy %s", proxy.Display(proxyURL)), err)
		}
		out = append(out, accountClient{account: acc, client: client})
	}
	return out, nil
}

func runTasks(cmd *cobra.Command, args []string) error {
	cfg, p, err := loadConfig()
	if err != nil {
		return err
	}
	clients, err := clientsFor(cfg, p, args)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tTASK\tPOINT")
	fmt.Fprintln(w, "-------\t----\t-----")

	var lastErr error
	failed := 0
	for _, ac := range clients {
		tasks, err := ac.client.FetchTasks(cmd.Context(), ac.Token)
		if err != nil {
			logWarning("%s: %v", ac.Label, err)
			lastErr = err
			failed++
			continue
		}
		for _, task := range tasks {
			fmt.Fprintf(w, "%s\t%s\t%s\n", ac.Label, task.TaskID, task.Point)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if failed == len(clients) {
		return errors.APIError("fetch tasks", lastErr)
	}
	return nil
}
