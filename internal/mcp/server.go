// Package mcp implements the MCP (Model Context Protocol) server for
// vaultkeeper. Tools describe profiles but never return a full password.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/forest6511/vaultkeeper/pkg/audit"
	"github.com/forest6511/vaultkeeper/pkg/vault"
)

// Version is reported to MCP clients.
var Version = "dev"

// Server is an MCP server bound to one open vault.
type Server struct {
	server *mcp.Server
	vault  *vault.Vault
	logger *slog.Logger
}

// ServerOptions configures NewServer.
type ServerOptions struct {
	// VaultDir is the directory holding the vault files.
	VaultDir string
	// VaultName selects the vault inside VaultDir.
	VaultName string
	// Password is the master password. It is required.
	Password string
	// Audit enables the audit log for tool calls.
	Audit bool
	// Logger receives diagnostics. Nil discards them.
	Logger *slog.Logger
	// KDFIterations overrides the key derivation work factor. Zero keeps
	// the default.
	KDFIterations int
}

// NewServer opens the vault and registers the tools. The vault stays open,
// and its lock held, until Close.
func NewServer(opts *ServerOptions) (*Server, error) {
	if opts == nil {
		opts = &ServerOptions{}
	}
	if opts.Password == "" {
		return nil, errors.New("no password provided: use --password-file")
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	v, err := vault.New(opts.VaultDir, opts.VaultName,
		vault.WithLogger(logger),
		vault.WithAudit(opts.Audit),
		vault.WithSource(audit.SourceMCP),
		vault.WithKDFIterations(opts.KDFIterations),
	)
	if err != nil {
		return nil, err
	}
	if err := v.Open(opts.Password); err != nil {
		v.Close()
		return nil, fmt.Errorf("failed to open vault: %w", err)
	}

	s := &Server{
		server: mcp.NewServer(&mcp.Implementation{
			Name:    "vaultkeeper",
			Version: Version,
		}, nil),
		vault:  v,
		logger: logger.With("component", "mcp"),
	}
	s.registerTools()

	return s, nil
}

func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "profile_list",
		Description: "List profile names with flags for username/link presence. Optional glob filter. Does NOT return passwords.",
	}, s.handleProfileList)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "profile_exists",
		Description: "Check whether a profile exists. Does NOT return the password.",
	}, s.handleProfileExists)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "profile_get_masked",
		Description: "Get a profile with its password masked (e.g. '****WXYZ') plus its length and strength rating.",
	}, s.handleProfileGetMasked)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "security_report",
		Description: "Score the vault's passwords for strength and reuse. Returns issues by profile name, never values.",
	}, s.handleSecurityReport)
}

// Run serves requests on stdin/stdout until ctx is done or the client
// disconnects, then closes the vault.
func (s *Server) Run(ctx context.Context) error {
	defer s.Close()

	s.logger.Info("mcp server started", "vault", s.vault.Name())
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Close closes the vault.
func (s *Server) Close() error {
	return s.vault.Close()
}
