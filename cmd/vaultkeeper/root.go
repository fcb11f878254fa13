package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/forest6511/vaultkeeper/internal/config"
	"github.com/forest6511/vaultkeeper/internal/logging"
	"github.com/forest6511/vaultkeeper/pkg/crypto"
	"github.com/forest6511/vaultkeeper/pkg/vault"
)

// DefaultVaultName is used when --vault is not given.
const DefaultVaultName = "default"

// maxPasswordAttempts bounds interactive retries after a wrong password.
const maxPasswordAttempts = 3

var (
	configPath   string
	vaultDir     string
	vaultName    string
	passwordFile string

	cfg    *config.Config
	logger = logging.Discard()

	// kdfIterations is the key derivation work factor for every vault the
	// commands open.
	kdfIterations = crypto.Iterations
)

var rootCmd = &cobra.Command{
	Use:           "vaultkeeper",
	Short:         "vaultkeeper is a local, password-protected credential store",
	Long:          `Store logins encrypted under a single master password in a local SQLite vault.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	// PersistentPreRunE loads the configuration and logger for every command.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig(cmd.ErrOrStderr())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default ~/.vaultkeeper/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&vaultDir, "vault-dir", "", "Directory holding vault files (overrides vault_dir)")
	rootCmd.PersistentFlags().StringVarP(&vaultName, "vault", "V", DefaultVaultName, "Vault name")
	rootCmd.PersistentFlags().StringVar(&passwordFile, "password-file", "", "Read the master password from a file (mode 0600)")

	_ = rootCmd.RegisterFlagCompletionFunc("vault", completeVaultNames)
}

// loadConfig resolves the configuration and builds the logger.
func loadConfig(stderr io.Writer) error {
	path := configPath
	if path == "" {
		var err error
		if path, err = config.DefaultPath(); err != nil {
			return err
		}
	}

	var err error
	cfg, err = config.Load(path)
	if err != nil {
		return err
	}
	if vaultDir != "" {
		cfg.VaultDir = vaultDir
	}
	for _, w := range cfg.Warnings {
		fmt.Fprintf(stderr, "warning: %s\n", w)
	}

	logger, err = logging.New(cfg.LogLevel, cfg.LogFormat, stderr)
	return err
}

// newVault returns a handle on the selected vault without opening it.
func newVault() (*vault.Vault, error) {
	return vault.New(cfg.VaultDir, vaultName,
		vault.WithLogger(logger),
		vault.WithAudit(cfg.Audit),
		vault.WithKDFIterations(kdfIterations),
	)
}

// openVault opens the selected vault, prompting for the master password.
// Interactive sessions may retry a wrong password; the caller must Close
// the returned vault.
func openVault(cmd *cobra.Command) (*vault.Vault, error) {
	v, err := newVault()
	if err != nil {
		return nil, err
	}

	attempts := maxPasswordAttempts
	if passwordFile != "" || !stdinIsTerminal() {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		password, err := masterPassword(cmd, "Enter master password: ")
		if err != nil {
			v.Close()
			return nil, err
		}

		err = v.Open(password)
		if err == nil {
			return v, nil
		}
		if errors.Is(err, vault.ErrWrongPassword) && attempt < attempts {
			fmt.Fprintln(cmd.ErrOrStderr(), "Wrong password, try again.")
			continue
		}
		v.Close()
		return nil, fmt.Errorf("failed to open vault '%s': %w", vaultName, err)
	}
}

// masterPassword reads the master password from --password-file or stdin.
func masterPassword(cmd *cobra.Command, prompt string) (string, error) {
	if passwordFile != "" {
		pw, err := config.ReadSecretFile(passwordFile)
		if err != nil {
			return "", fmt.Errorf("failed to read password file: %w", err)
		}
		return pw, nil
	}
	return readSecret(cmd, prompt)
}

// withVault opens the vault, runs fn, and closes the vault.
func withVault(cmd *cobra.Command, fn func(v *vault.Vault) error) error {
	v, err := openVault(cmd)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := v.Close(); cerr != nil {
			logger.Warn("failed to close vault", "error", cerr)
		}
	}()
	return fn(v)
}

func warnf(cmd *cobra.Command, format string, args ...any) {
	fmt.Fprintf(cmd.ErrOrStderr(), "warning: "+format+"\n", args...)
}
