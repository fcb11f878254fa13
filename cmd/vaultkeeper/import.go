package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/forest6511/vaultkeeper/pkg/importer"
	"github.com/forest6511/vaultkeeper/pkg/vault"
)

// Import command flags
var (
	importFrom   string
	importDryRun bool
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importFrom, "from", "", "Import source: "+strings.Join(importer.ValidSources(), ", "))
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false, "Show what would be imported without making changes")
	_ = importCmd.MarkFlagRequired("from")
}

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import logins from a Bitwarden, LastPass or 1Password CSV export",
	Long: `Import logins from a password manager CSV export.

Rows without a password are skipped. Profiles whose name already exists in
the vault are skipped and reported; existing profiles are never overwritten.

Examples:
  vaultkeeper import bitwarden_export.csv --from bitwarden
  vaultkeeper import lastpass.csv --from lastpass --dry-run`,
	Args: cobra.ExactArgs(1),
	RunE: executeImport,
}

func executeImport(cmd *cobra.Command, args []string) error {
	parser, err := importer.GetParser(importer.Source(strings.ToLower(importFrom)))
	if err != nil {
		return fmt.Errorf("invalid --from value '%s': must be one of %v", importFrom, importer.ValidSources())
	}

	f, err := openExport(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	result, err := parser.Parse(f)
	if err != nil {
		return fmt.Errorf("failed to parse %s file: %w", parser.Source(), err)
	}

	stderr := cmd.ErrOrStderr()
	for _, w := range result.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}
	for _, s := range result.Skipped {
		fmt.Fprintf(stderr, "Skipped row %d: %s (%s)\n", s.Row, s.OriginalName, s.Reason)
	}

	out := cmd.OutOrStdout()
	if len(result.Profiles) == 0 {
		fmt.Fprintln(out, "No logins found in file")
		return nil
	}

	if importDryRun {
		for _, p := range result.Profiles {
			fmt.Fprintf(out, "[dry-run] Would import: %s\n", p.Name)
		}
		fmt.Fprintf(out, "\n%d profiles would be imported\n", len(result.Profiles))
		return nil
	}

	return withVault(cmd, func(v *vault.Vault) error {
		summary, err := importer.Apply(v, result.Profiles)
		v.RecordImport(err)

		for _, s := range summary.Skipped {
			fmt.Fprintf(stderr, "Skipped row %d: %s (%s)\n", s.Row, s.OriginalName, s.Reason)
		}
		fmt.Fprintf(out, "\nImport summary:\n")
		fmt.Fprintf(out, "  Imported: %d\n", summary.Added)
		if n := len(summary.Skipped) + len(result.Skipped); n > 0 {
			fmt.Fprintf(out, "  Skipped:  %d\n", n)
		}
		return err
	})
}

// openExport opens an export file, refusing symlinks.
func openExport(path string) (*os.File, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("invalid path: %w", err)
	}

	info, err := os.Lstat(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("file not found: %s", path)
		}
		return nil, fmt.Errorf("failed to access file: %w", err)
	}
	if info.Mode()&os.ModeSymlink != 0 {
		return nil, fmt.Errorf("security: refusing to read symlink: %s", absPath)
	}

	f, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	return f, nil
}
