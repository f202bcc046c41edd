// Package mcp provides an MCP (Model Context Protocol) server for glitchsim.
package mcp

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/nvandessel/glitchsim/internal/constants"
	"github.com/nvandessel/glitchsim/internal/logging"
	"github.com/nvandessel/glitchsim/internal/ratelimit"
	"github.com/nvandessel/glitchsim/internal/store"
)

// Server wraps the MCP SDK server and exposes the boot ROM to MCP clients.
type Server struct {
	server       *sdk.Server
	store        store.AttemptStore
	record       bool
	workers      int
	toolLimiters ratelimit.ToolLimiters
	auditLogger  *AuditLogger
	logger       *slog.Logger
	attempts     *logging.AttemptLogger
}

// Config holds server configuration.
type Config struct {
	Name    string // Server name (e.g., "glitchsim")
	Version string // Server version

	// Store receives every evaluated attempt when Record is set. The server
	// takes ownership and closes it on shutdown.
	Store  store.AttemptStore
	Record bool

	// Workers bounds glitch_sweep concurrency. Zero uses the sweep default.
	Workers int

	Limits ratelimit.ToolLimits

	// AuditDir holds audit.jsonl. Empty disables the audit log.
	AuditDir string

	Logger   *slog.Logger
	Attempts *logging.AttemptLogger
}

// NewServer creates a new MCP server with glitchsim tools.
func NewServer(cfg *Config) (*Server, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("attempt store is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = constants.DefaultSweepWorkers
	}

	mcpServer := sdk.NewServer(&sdk.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, &sdk.ServerOptions{
		InitializedHandler: func(ctx context.Context, req *sdk.InitializedRequest) {
			logger.Debug("mcp client initialized")
		},
	})

	s := &Server{
		server:       mcpServer,
		store:        cfg.Store,
		record:       cfg.Record,
		workers:      workers,
		toolLimiters: ratelimit.NewToolLimiters(cfg.Limits),
		logger:       logger,
		attempts:     cfg.Attempts,
	}
	if cfg.AuditDir != "" {
		s.auditLogger = NewAuditLogger(cfg.AuditDir)
	}

	if err := s.registerTools(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	if err := s.registerResources(); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to register resources: %w", err)
	}

	return s, nil
}

// Run starts the MCP server over stdio transport.
// This blocks until the client disconnects or the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	notifySignals(sigChan)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case <-sigChan:
			s.logger.Info("shutting down mcp server")
			cancel()
		case <-ctx.Done():
		}
	}()

	err := s.server.Run(ctx, &sdk.StdioTransport{})

	s.Close()

	return err
}

// Close closes the server and releases resources.
func (s *Server) Close() error {
	s.auditLogger.Close()
	return s.store.Close()
}
