package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/vaultkeeper/internal/cli"
	"github.com/forest6511/vaultkeeper/pkg/passgen"
	"github.com/forest6511/vaultkeeper/pkg/vault"
)

// Profile command flags
var (
	profileUsername     string
	profileLink         string
	profileGenerate     bool
	profileLength       int
	profileNoSymbols    bool
	updateClearUsername bool
	updateClearLink     bool
	getShow             bool
	getCopy             bool
	listFilter          string
	listShow            bool
	deleteForce         bool
)

func init() {
	rootCmd.AddCommand(addCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(namesCmd)

	for _, c := range []*cobra.Command{addCmd, updateCmd} {
		c.Flags().StringVarP(&profileUsername, "username", "u", "", "Username for the login")
		c.Flags().StringVarP(&profileLink, "link", "l", "", "Link (URL) for the login")
		c.Flags().BoolVarP(&profileGenerate, "generate", "g", false, "Generate a random password instead of prompting")
		c.Flags().IntVar(&profileLength, "length", passgen.DefaultLength, "Length of a generated password")
		c.Flags().BoolVar(&profileNoSymbols, "no-symbols", false, "Generate the password without symbols")
	}
	updateCmd.Flags().BoolVar(&updateClearUsername, "clear-username", false, "Remove the username")
	updateCmd.Flags().BoolVar(&updateClearLink, "clear-link", false, "Remove the link")

	getCmd.Flags().BoolVarP(&getShow, "show", "s", false, "Print the password in clear text")
	getCmd.Flags().BoolVarP(&getCopy, "copy", "c", false, "Copy the password to the clipboard")

	listCmd.Flags().StringVarP(&listFilter, "filter", "f", "", "Glob pattern matched against profile names")
	listCmd.Flags().BoolVarP(&listShow, "show", "s", false, "Print passwords in clear text")

	deleteCmd.Flags().BoolVarP(&deleteForce, "force", "f", false, "Skip confirmation prompt")
}

// addCmd stores a new profile
var addCmd = &cobra.Command{
	Use:   "add [name]",
	Short: "Add a profile",
	Long: `Add a profile to the vault. The password is prompted for unless
--generate is given.

Examples:
  vaultkeeper add gmail -u me@gmail.com -l https://mail.google.com
  vaultkeeper add github --generate --length 32`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		return withVault(cmd, func(v *vault.Vault) error {
			password, generated, err := profilePassword(cmd, false)
			if err != nil {
				return err
			}

			if _, err := v.AddProfile(name, password, optionalFlag(cmd, "username", profileUsername), optionalFlag(cmd, "link", profileLink)); err != nil {
				if errors.Is(err, vault.ErrDuplicate) {
					return fmt.Errorf("profile '%s' already exists: use update to change it", name)
				}
				return fmt.Errorf("failed to add profile: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' added\n", name)
			if generated {
				copyOrPrint(cmd, password)
			}
			return nil
		})
	},
}

// getCmd prints a profile
var getCmd = &cobra.Command{
	Use:   "get [name]",
	Short: "Show a profile",
	Long: `Show a profile. The password is masked unless --show is given;
--copy puts it on the clipboard instead.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(cmd, func(v *vault.Vault) error {
			p, err := v.GetProfile(args[0])
			if err != nil {
				return fmt.Errorf("failed to get profile: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Name:     %s\n", p.Name)
			fmt.Fprintf(out, "Username: %s\n", deref(p.Username))
			if getShow {
				fmt.Fprintf(out, "Password: %s\n", p.Password)
			} else {
				fmt.Fprintf(out, "Password: %s\n", cli.MaskValue(p.Password))
			}
			fmt.Fprintf(out, "Link:     %s\n", deref(p.Link))

			if getCopy {
				if err := copyToClipboard(p.Password); err != nil {
					return err
				}
				fmt.Fprintln(cmd.ErrOrStderr(), "Password copied to clipboard")
			}
			return nil
		})
	},
}

// updateCmd replaces the fields of an existing profile
var updateCmd = &cobra.Command{
	Use:   "update [name]",
	Short: "Update a profile",
	Long: `Update the username, password and link of a profile. Fields without
a flag keep their current value; an empty password entry keeps the current
password.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		name := args[0]

		return withVault(cmd, func(v *vault.Vault) error {
			current, err := v.GetProfile(name)
			if err != nil {
				return fmt.Errorf("failed to get profile: %w", err)
			}

			username := current.Username
			switch {
			case updateClearUsername:
				username = nil
			case cmd.Flags().Changed("username"):
				username = optionalFlag(cmd, "username", profileUsername)
			}
			link := current.Link
			switch {
			case updateClearLink:
				link = nil
			case cmd.Flags().Changed("link"):
				link = optionalFlag(cmd, "link", profileLink)
			}

			password, generated, err := profilePassword(cmd, true)
			if err != nil {
				return err
			}
			if password == "" {
				password = current.Password
			}

			if err := v.UpdateProfile(name, username, password, link); err != nil {
				return fmt.Errorf("failed to update profile: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' updated\n", name)
			if generated {
				copyOrPrint(cmd, password)
			}
			return nil
		})
	},
}

// deleteCmd removes profiles
var deleteCmd = &cobra.Command{
	Use:   "delete [name...]",
	Short: "Delete profiles",
	Long: `Delete one or more profiles. Names may be glob patterns such as 'work/*';
a pattern must match at least one profile. An exact name that does not
exist is reported and skipped; it is not an error.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(cmd, func(v *vault.Vault) error {
			byID, err := v.ListProfileNames()
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}
			available := cli.NamesByID(byID)
			names, err := cli.ExpandNames(args, available)
			if err != nil {
				return err
			}

			names, err = existingProfiles(cmd, v, names, available)
			if err != nil || len(names) == 0 {
				return err
			}

			if !deleteForce {
				ok, err := confirm(cmd, fmt.Sprintf("Delete %d profile(s)?", len(names)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
					return nil
				}
			}

			for _, name := range names {
				if err := v.DeleteProfile(name); err != nil {
					return fmt.Errorf("failed to delete profile '%s': %w", name, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' deleted\n", name)
			}
			return nil
		})
	},
}

// listCmd prints profiles as a table
var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List profiles",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withVault(cmd, func(v *vault.Vault) error {
			profiles, err := v.ListProfiles()
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}
			profiles, err = filterProfiles(profiles, listFilter)
			if err != nil {
				return err
			}

			if len(profiles) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No profiles found")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderProfiles(profiles, listShow))
			return nil
		})
	},
}

// namesCmd prints profile names one per line
var namesCmd = &cobra.Command{
	Use:   "names [pattern]",
	Short: "List profile names",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var pattern string
		if len(args) == 1 {
			pattern = args[0]
		}

		return withVault(cmd, func(v *vault.Vault) error {
			byID, err := v.ListProfileNames()
			if err != nil {
				return fmt.Errorf("failed to list profiles: %w", err)
			}
			names, err := cli.FilterNames(cli.NamesByID(byID), pattern)
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		})
	},
}

// profilePassword returns a generated password when --generate is set and a
// prompted one otherwise. When allowEmpty is set an empty entry is returned
// as "" without confirmation.
func profilePassword(cmd *cobra.Command, allowEmpty bool) (password string, generated bool, err error) {
	if profileGenerate {
		password, err = passgen.Generate(profileLength, passgen.Options{NoSymbols: profileNoSymbols})
		if err != nil {
			return "", false, fmt.Errorf("failed to generate password: %w", err)
		}
		return password, true, nil
	}

	label := "Enter password: "
	if allowEmpty {
		label = "Enter new password (empty keeps current): "
		first, err := readSecret(cmd, label)
		if err != nil || first == "" {
			return "", false, err
		}
		second, err := readSecret(cmd, "Confirm new password: ")
		if err != nil {
			return "", false, err
		}
		if first != second {
			return "", false, errors.New("passwords do not match")
		}
		return first, false, nil
	}

	password, err = readNewSecret(cmd, label)
	return password, false, err
}

// existingProfiles drops the names that are not stored, reporting each one.
// Names missing from available are looked up once more, since the vault
// matches names after Unicode normalization.
func existingProfiles(cmd *cobra.Command, v *vault.Vault, names, available []string) ([]string, error) {
	stored := make(map[string]bool, len(available))
	for _, name := range available {
		stored[name] = true
	}

	existing := make([]string, 0, len(names))
	for _, name := range names {
		if !stored[name] {
			ok, err := v.ProfileExists(name)
			if err != nil {
				return nil, fmt.Errorf("failed to look up profile '%s': %w", name, err)
			}
			if !ok {
				fmt.Fprintf(cmd.OutOrStdout(), "Profile '%s' not found, nothing to delete\n", name)
				continue
			}
		}
		existing = append(existing, name)
	}
	return existing, nil
}

// optionalFlag returns nil unless the flag was given a non-empty value.
func optionalFlag(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) || value == "" {
		return nil
	}
	return &value
}

func filterProfiles(profiles []*vault.Profile, pattern string) ([]*vault.Profile, error) {
	names := make([]string, len(profiles))
	for i, p := range profiles {
		names[i] = p.Name
	}
	keep, err := cli.FilterNames(names, pattern)
	if err != nil {
		return nil, err
	}

	wanted := make(map[string]bool, len(keep))
	for _, name := range keep {
		wanted[name] = true
	}
	filtered := make([]*vault.Profile, 0, len(keep))
	for _, p := range profiles {
		if wanted[p.Name] {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}
