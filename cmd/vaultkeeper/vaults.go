package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forest6511/vaultkeeper/pkg/security"
	"github.com/forest6511/vaultkeeper/pkg/vault"
)

func init() {
	rootCmd.AddCommand(createCmd)
	rootCmd.AddCommand(vaultsCmd)
}

// createCmd provisions a new vault
var createCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a new vault",
	Long: `Create a new vault protected by a master password.

The vault is written to <vault-dir>/<name>.db with mode 0600. The master
password cannot be recovered: losing it loses the vault.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v, err := newVault()
		if err != nil {
			return err
		}
		defer v.Close()

		if v.Exists() {
			return fmt.Errorf("vault '%s' already exists at %s", v.Name(), v.Path())
		}

		var password string
		if passwordFile != "" {
			password, err = masterPassword(cmd, "")
		} else {
			password, err = readNewSecret(cmd, "Enter master password: ")
		}
		if err != nil {
			return err
		}
		if password == "" {
			return errors.New("master password must not be empty")
		}

		strength := security.Strength(password)
		fmt.Fprintf(cmd.ErrOrStderr(), "Password strength: %s\n", strength)
		if strength == security.PasswordWeak {
			warnf(cmd, "master password is shorter than 8 characters")
		}

		if err := v.Create(password); err != nil {
			return fmt.Errorf("failed to create vault: %w", err)
		}

		fmt.Fprintf(cmd.OutOrStdout(), "Vault '%s' created at %s\n", v.Name(), v.Path())
		return nil
	},
}

// vaultsCmd lists vault files in the vault directory
var vaultsCmd = &cobra.Command{
	Use:   "vaults",
	Short: "List vaults in the vault directory",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := vault.ListVaults(cfg.VaultDir)
		if err != nil {
			return fmt.Errorf("failed to list vaults: %w", err)
		}

		out := cmd.OutOrStdout()
		if len(names) == 0 {
			fmt.Fprintf(out, "No vaults in %s\n", cfg.VaultDir)
			return nil
		}
		for _, name := range names {
			fmt.Fprintln(out, name)
		}
		return nil
	},
}
