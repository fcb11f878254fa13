package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/vaultkeeper/pkg/passgen"
	"github.com/forest6511/vaultkeeper/pkg/security"
)

const (
	defaultPasswordCount = 1
	maxPasswordCount     = 100
)

// Generate command flags
var (
	generateLength      int
	generateCount       int
	generateNoSymbols   bool
	generateNoNumbers   bool
	generateNoUppercase bool
	generateNoLowercase bool
	generateExclude     string
	generateCopy        bool
)

func init() {
	rootCmd.AddCommand(generateCmd)

	generateCmd.Flags().IntVarP(&generateLength, "length", "l", passgen.DefaultLength, fmt.Sprintf("Password length (%d-%d)", passgen.MinLength, passgen.MaxLength))
	generateCmd.Flags().IntVarP(&generateCount, "count", "n", defaultPasswordCount, "Number of passwords to generate (1-100)")
	generateCmd.Flags().BoolVar(&generateNoSymbols, "no-symbols", false, "Exclude symbols")
	generateCmd.Flags().BoolVar(&generateNoNumbers, "no-numbers", false, "Exclude numbers")
	generateCmd.Flags().BoolVar(&generateNoUppercase, "no-uppercase", false, "Exclude uppercase letters")
	generateCmd.Flags().BoolVar(&generateNoLowercase, "no-lowercase", false, "Exclude lowercase letters")
	generateCmd.Flags().StringVar(&generateExclude, "exclude", "", "Characters to exclude")
	generateCmd.Flags().BoolVarP(&generateCopy, "copy", "c", false, "Copy first password to clipboard (accessible to all processes)")
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate secure random passwords",
	Long: `Generate cryptographically secure random passwords. Every enabled
character class appears at least once.

Examples:
  # Generate a 20-character password (default)
  vaultkeeper generate

  # Generate a 32-character password without symbols
  vaultkeeper generate -l 32 --no-symbols

  # Generate 5 passwords
  vaultkeeper generate -n 5

  # Generate password excluding ambiguous characters
  vaultkeeper generate --exclude "0O1lI"`,
	Args: cobra.NoArgs,
	RunE: executeGenerate,
}

func executeGenerate(cmd *cobra.Command, args []string) error {
	if err := validateGenerateFlags(); err != nil {
		return err
	}

	opts := generateOptions()
	passwords := make([]string, generateCount)
	for i := range passwords {
		password, err := passgen.Generate(generateLength, opts)
		if err != nil {
			return fmt.Errorf("failed to generate password: %w", err)
		}
		passwords[i] = password
	}

	for _, password := range passwords {
		fmt.Fprintln(cmd.OutOrStdout(), password)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Strength: %s\n", security.Strength(passwords[0]))

	if generateCopy {
		if err := copyToClipboard(passwords[0]); err != nil {
			warnf(cmd, "%v", err)
		} else {
			fmt.Fprintln(cmd.ErrOrStderr(), "Password copied to clipboard")
		}
	}
	return nil
}

// validateGenerateFlags validates the generate command flags
func validateGenerateFlags() error {
	if generateLength < passgen.MinLength {
		return fmt.Errorf("password length must be at least %d characters", passgen.MinLength)
	}
	if generateLength > passgen.MaxLength {
		return fmt.Errorf("password length must be at most %d characters", passgen.MaxLength)
	}
	if generateCount < 1 {
		return fmt.Errorf("count must be at least 1")
	}
	if generateCount > maxPasswordCount {
		return fmt.Errorf("count must be at most %d", maxPasswordCount)
	}
	if len(generateExclude) > passgen.MaxExclude {
		return fmt.Errorf("exclude string must be at most %d characters", passgen.MaxExclude)
	}
	return nil
}

func generateOptions() passgen.Options {
	return passgen.Options{
		NoLowercase: generateNoLowercase,
		NoUppercase: generateNoUppercase,
		NoDigits:    generateNoNumbers,
		NoSymbols:   generateNoSymbols,
		Exclude:     generateExclude,
	}
}
