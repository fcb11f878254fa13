package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/forest6511/vaultkeeper/internal/config"
	"github.com/forest6511/vaultkeeper/internal/mcp"
)

func init() {
	rootCmd.AddCommand(mcpServerCmd)
}

// mcpServerCmd starts the MCP server for AI coding assistant integration
var mcpServerCmd = &cobra.Command{
	Use:   "mcp-server",
	Short: "Start the MCP server for AI coding assistant integration",
	Long: `Start an MCP (Model Context Protocol) server on stdio.

Tools never return a full password:
  - profile_list:       List profile names with username/link flags
  - profile_exists:     Check whether a profile exists
  - profile_get_masked: Get a profile with its password masked (e.g. "****WXYZ")
  - security_report:    Score password strength and reuse

Authentication:
  The master password is read from --password-file, which must be a regular
  file owned by you with mode 0600. The vault stays locked for other
  vaultkeeper processes while the server runs.

Example MCP configuration:
  {
    "mcpServers": {
      "vaultkeeper": {
        "type": "stdio",
        "command": "/path/to/vaultkeeper",
        "args": ["mcp-server", "--password-file", "/home/me/.vaultkeeper/mcp.pw"]
      }
    }
  }`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMCPServer()
	},
}

func runMCPServer() error {
	if passwordFile == "" {
		return errors.New("--password-file is required for mcp-server")
	}
	password, err := config.ReadSecretFile(passwordFile)
	if err != nil {
		return fmt.Errorf("failed to read password file: %w", err)
	}

	server, err := mcp.NewServer(&mcp.ServerOptions{
		VaultDir:  cfg.VaultDir,
		VaultName: vaultName,
		Password:  password,
		Audit:     cfg.Audit,
		Logger:    logger,

		KDFIterations: kdfIterations,
	})
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Run(ctx); err != nil {
		// Don't report context canceled as an error
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("MCP server error: %w", err)
	}
	return nil
}
