package cmd

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/centic-tools/centic-ctl/internal/audit"
	"github.com/centic-tools/centic-ctl/internal/config"
	"github.com/centic-tools/centic-ctl/internal/errors"
)

var auditLogCmd = &cobra.Command{
	Use:   "audit-log [account]",
	Short: "Display the claim history of an account",
	Long: `Prints the claim events recorded for an account when audit_log is
enabled. Without an argument, lists the accounts that have events.
With --clear, deletes the history of the given account.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runAuditLog,
}

var (
	auditLogJSON  bool
	auditLogClear bool
)

func init() {
	auditLogCmd.Flags().BoolVar(&auditLogJSON, "json", false, "Output events as JSON lines")
	auditLogCmd.Flags().BoolVar(&auditLogClear, "clear", false, "Delete the account's audit log")
	rootCmd.AddCommand(auditLogCmd)
}

func runAuditLog(cmd *cobra.Command, args []string) error {
	p, err := config.ResolvePaths(dataDir, configFile, config.Default())
	if err != nil {
		return errors.ConfigError("invalid data directory", err)
	}
	auditLogger := audit.NewLogger(p.AuditDir)
	out := cmd.OutOrStdout()

	if len(args) == 0 {
		if auditLogClear {
			return errors.ValidationError("--clear needs an account")
		}
		accounts, err := auditLogger.Accounts()
		if err != nil {
			return fmt.Errorf("failed to list audit logs: %w", err)
		}
		if len(accounts) == 0 {
			logInfo("No audit logs found. Enable them with audit_log = true in centic.toml")
			return nil
		}
		for _, name := range accounts {
			fmt.Fprintln(out, name)
		}
		return nil
	}

	name := args[0]
	if _, err := strconv.Atoi(name); err == nil {
		name = "account-" + name
	}

	if auditLogClear {
		if err := auditLogger.Remove(name); err != nil {
			return fmt.Errorf("failed to clear audit log: %w", err)
		}
		logSuccess("Cleared audit log for %s", name)
		return nil
	}

	events, err := auditLogger.Events(name)
	if err != nil {
		return fmt.Errorf("failed to read audit log: %w", err)
	}

	if len(events) == 0 {
		logInfo("No events found for %s", name)
		return nil
	}

	for _, e := range events {
		if auditLogJSON {
			data, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("failed to marshal event: %w", err)
			}
			fmt.Fprintln(out, string(data))
			continue
		}

		ts := e.Timestamp.Local().Format("2006-01-02 15:04:05")
		subject := e.Account
		if e.Task != "" {
			subject += " " + e.Task
		}
		if e.Details != "" {
			fmt.Fprintf(out, "[%s] %-12s %s (%s)\n", ts, e.Type, subject, e.Details)
		} else {
			fmt.Fprintf(out, "[%s] %-12s %s\n", ts, e.Type, subject)
		}
	}

	return nil
}
