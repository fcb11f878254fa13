package main

import (
	"github.com/spf13/cobra"

	"github.com/forest6511/vaultkeeper/pkg/vault"
)

var completionCmd = &cobra.Command{
	Use:   "completion [bash|zsh|fish|powershell]",
	Short: "Generate completion script for your shell",
	Long: `To load completions:

Bash:
  $ source <(vaultkeeper completion bash)

Zsh:
  $ vaultkeeper completion zsh > ~/.zsh/completions/_vaultkeeper

Fish:
  $ vaultkeeper completion fish > ~/.config/fish/completions/vaultkeeper.fish

PowerShell:
  PS> vaultkeeper completion powershell >> $PROFILE

Vault names complete for --vault. Profile names are never completed, since
that would need the master password.
`,
	DisableFlagsInUseLine: true,
	ValidArgs:             []string{"bash", "zsh", "fish", "powershell"},
	Args:                  cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return cmd.Root().GenBashCompletion(out)
		case "zsh":
			return cmd.Root().GenZshCompletion(out)
		case "fish":
			return cmd.Root().GenFishCompletion(out, true)
		case "powershell":
			return cmd.Root().GenPowerShellCompletionWithDesc(out)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(completionCmd)
}

// completeVaultNames offers the vaults found in the configured directory.
func completeVaultNames(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if err := loadConfig(cmd.ErrOrStderr()); err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	names, err := vault.ListVaults(cfg.VaultDir)
	if err != nil {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
