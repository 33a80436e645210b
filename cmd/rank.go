package cmd

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/centic-tools/centic-ctl/internal/errors"
)

var rankCmd = &cobra.Command{
	Use:   "rank [account]",
	Short: "Show the rank and point total of accounts",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runRank,
}

func init() {
	rootCmd.AddCommand(rankCmd)
}

func runRank(cmd *cobra.Command, args []string) error {
	cfg, p, err := loadConfig()
	if err != nil {
		return err
	}
	clients, err := clientsFor(cfg, p, args)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ACCOUNT\tID\tRANK\tPOINTS")
	fmt.Fprintln(w, "-------\t--\t----\t------")

	var lastErr error
	failed := 0
	for _, ac := range clients {
		rank, err := ac.client.FetchUserRank(cmd.Context(), ac.Token)
		if err != nil {
			logWarning("%s: %v", ac.Label, err)
			lastErr = err
			failed++
			continue
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", ac.Label, rank.ID, rank.Rank, rank.TotalPoint)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if failed == len(clients) {
		return errors.APIError("fetch rank", lastErr)
	}
	return nil
}
