package main

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/forest6511/vaultkeeper/pkg/vault"
)

// Audit flags
var (
	auditLimit int
	auditSince string
)

func init() {
	auditCmd.AddCommand(auditListCmd, auditVerifyCmd)
	rootCmd.AddCommand(auditCmd)

	auditListCmd.Flags().IntVar(&auditLimit, "limit", 100, "Show at most this many of the newest events (0 for all)")
	auditListCmd.Flags().StringVar(&auditSince, "since", "", "Only show events newer than this age, e.g. 24h, 7d, 2w")
}

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect the audit log",
}

// auditListCmd prints recent events, oldest first
var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show recent audit events",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		var since time.Time
		if auditSince != "" {
			age, err := parseDuration(auditSince)
			if err != nil {
				return fmt.Errorf("invalid --since: %w", err)
			}
			since = time.Now().Add(-age)
		}

		return withVault(cmd, func(v *vault.Vault) error {
			logger, err := v.AuditLogger()
			if err != nil {
				return auditUnavailable(err)
			}
			events, err := logger.ListEvents(auditLimit, since)
			if err != nil {
				return fmt.Errorf("failed to read audit log: %w", err)
			}

			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintln(out, "No audit events found")
				return nil
			}

			// Format: TIMESTAMP SOURCE OPERATION RESULT [profile:HMAC] [error:CODE]
			for _, ev := range events {
				line := fmt.Sprintf("%s %-4s %-18s %s", ev.Timestamp, ev.Source, ev.Operation, ev.Result)
				if ev.Profile != "" {
					p := ev.Profile
					if len(p) > 16 {
						p = p[:16] + "..."
					}
					line += " profile:" + p
				}
				if ev.Error != nil {
					line += " error:" + ev.Error.Code
				}
				fmt.Fprintln(out, line)
			}

			fmt.Fprintf(out, "\nTotal: %d events\n", len(events))
			return nil
		})
	},
}

var auditVerifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that no audit event was altered, removed or reordered",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(cmd, func(v *vault.Vault) error {
			logger, err := v.AuditLogger()
			if err != nil {
				return auditUnavailable(err)
			}

			result, err := logger.Verify()
			if err != nil {
				return fmt.Errorf("failed to read audit log: %w", err)
			}

			out := cmd.OutOrStdout()
			if result.Valid {
				fmt.Fprintf(out, "Audit log verified: %d records, chain intact\n", result.RecordsTotal)
				return nil
			}

			fmt.Fprintln(out, "Audit log verification FAILED")
			fmt.Fprintf(out, "  Records total: %d\n", result.RecordsTotal)
			fmt.Fprintln(out, "  Errors:")
			for _, msg := range result.Errors {
				fmt.Fprintf(out, "    - %s\n", msg)
			}
			return errors.New("audit log integrity check failed")
		})
	},
}

func auditUnavailable(err error) error {
	if errors.Is(err, vault.ErrAuditDisabled) && !cfg.Audit {
		return errors.New("audit logging is disabled in the configuration (audit: false)")
	}
	return fmt.Errorf("audit log unavailable: %w", err)
}

var dayUnits = map[byte]time.Duration{
	'd': 24 * time.Hour,
	'w': 7 * 24 * time.Hour,
}

// parseDuration accepts Go durations plus whole days ("7d") and weeks ("2w").
func parseDuration(s string) (time.Duration, error) {
	if n := len(s); n > 1 {
		if unit, ok := dayUnits[s[n-1]]; ok {
			count, err := strconv.Atoi(s[:n-1])
			if err != nil || count < 0 {
				return 0, fmt.Errorf("invalid duration %q", s)
			}
			return time.Duration(count) * unit, nil
		}
	}
	return time.ParseDuration(s)
}
