package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/vaultkeeper/pkg/security"
	"github.com/forest6511/vaultkeeper/pkg/vault"
)

// Check command flags
var (
	checkVerbose bool
	checkJSON    bool
)

func init() {
	rootCmd.AddCommand(checkCmd)

	checkCmd.Flags().BoolVarP(&checkVerbose, "verbose", "v", false, "Show suggestions")
	checkCmd.Flags().BoolVar(&checkJSON, "json", false, "Output in JSON format")
}

// checkCmd scores the passwords stored in the vault.
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check password strength and reuse",
	Long: `Score the passwords in the vault and list weak or reused ones.

The score is calculated from:
  - Password Strength (0-50): average strength, by length
  - Uniqueness (0-50): share of distinct passwords

Example:
  vaultkeeper check              # Show score and issues
  vaultkeeper check --verbose    # Also show suggestions
  vaultkeeper check --json       # Output in JSON format`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(cmd, func(v *vault.Vault) error {
			profiles, err := v.ListProfiles()
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}

			calc, err := security.NewCalculator()
			if err != nil {
				return err
			}
			report := calc.Analyze(profiles, true)

			if checkJSON {
				return outputReportJSON(cmd.OutOrStdout(), report)
			}
			outputReportText(cmd.OutOrStdout(), report, checkVerbose)
			return nil
		})
	},
}

func outputReportJSON(w io.Writer, report *security.Report) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(w, string(data))
	return nil
}

func outputReportText(w io.Writer, report *security.Report, verbose bool) {
	var rating string
	switch {
	case report.Overall >= 90:
		rating = "Excellent"
	case report.Overall >= 70:
		rating = "Good"
	case report.Overall >= 50:
		rating = "Fair"
	default:
		rating = "Needs Attention"
	}

	fmt.Fprintf(w, "Security Score: %d/100 (%s)\n\n", report.Overall, rating)

	fmt.Fprintln(w, "Components:")
	fmt.Fprintf(w, "  Password Strength: %2d/50 %s\n", report.Components.Strength, progressBar(report.Components.Strength, 50))
	fmt.Fprintf(w, "  Uniqueness:        %2d/50 %s\n", report.Components.Uniqueness, progressBar(report.Components.Uniqueness, 50))
	fmt.Fprintln(w)

	if len(report.Issues) > 0 {
		fmt.Fprintf(w, "Issues (%d):\n", len(report.Issues))
		for i, issue := range report.Issues {
			typeLabel := strings.ToUpper(string(issue.Type))
			names := ""
			if issue.Profile != "" {
				names = fmt.Sprintf(" %q", issue.Profile)
			} else if len(issue.Profiles) > 0 {
				names = " " + strings.Join(issue.Profiles, ", ")
			}
			fmt.Fprintf(w, "  %d. [%s]%s: %s\n", i+1, typeLabel, names, issue.Description)
		}
		fmt.Fprintln(w)
	}

	if verbose && len(report.Suggestions) > 0 {
		fmt.Fprintln(w, "Suggestions:")
		for _, s := range report.Suggestions {
			fmt.Fprintf(w, "  - %s\n", s)
		}
	}
}

// progressBar creates a simple ASCII progress bar.
func progressBar(value, maxVal int) string {
	const width = 20
	filled := value * width / maxVal
	return "[" + strings.Repeat("#", filled) + strings.Repeat(".", width-filled) + "]"
}
