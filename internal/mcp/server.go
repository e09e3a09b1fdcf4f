package mcp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/a3tai/docket-extract/internal/batch"
	"github.com/a3tai/docket-extract/internal/config"
	"github.com/a3tai/docket-extract/internal/descriptions"
	"github.com/a3tai/docket-extract/internal/docket"
	"github.com/a3tai/docket-extract/internal/docket/record"
	"github.com/a3tai/docket-extract/internal/logging"
	"github.com/a3tai/docket-extract/internal/pdf/security"
)

// Server represents the MCP server instance
type Server struct {
	config    *config.Config
	service   *docket.Service
	paths     *security.PathValidator
	mcpServer *server.MCPServer
	log       *slog.Logger
}

// NewServer creates a new MCP server instance
func NewServer(cfg *config.Config, service *docket.Service, log *slog.Logger) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}
	if service == nil {
		return nil, errors.New("docket service cannot be nil")
	}
	log = logging.OrDiscard(log)
	paths, err := security.NewPathValidator(cfg.DocumentDirectory)
	if err != nil {
		return nil, err
	}

	mcpServer := server.NewMCPServer(
		cfg.ServerName,
		cfg.Version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s := &Server{
		config:    cfg,
		service:   service,
		paths:     paths,
		mcpServer: mcpServer,
		log:       log,
	}
	s.registerTools()
	return s, nil
}

// registerTools registers all available MCP tools
func (s *Server) registerTools() {
	parseTool := mcp.NewTool(
		"docket_parse",
		mcp.WithDescription(descriptions.GetToolDescription("docket_parse")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Docket PDF or text file, absolute or relative to the document directory"),
		),
		mcp.WithString("dialect",
			mcp.Description("Force a dialect instead of detecting it"),
		),
		mcp.WithBoolean("strict",
			mcp.Description("Turn tolerated anomalies into section errors"),
		),
	)
	s.mcpServer.AddTool(parseTool, s.handleParse)

	sectionsTool := mcp.NewTool(
		"docket_sections",
		mcp.WithDescription(descriptions.GetToolDescription("docket_sections")),
		mcp.WithString("path",
			mcp.Required(),
			mcp.Description("Docket PDF or text file, absolute or relative to the document directory"),
		),
		mcp.WithString("dialect",
			mcp.Description("Force a dialect instead of detecting it"),
		),
	)
	s.mcpServer.AddTool(sectionsTool, s.handleSections)

	dialectsTool := mcp.NewTool(
		"docket_dialects",
		mcp.WithDescription(descriptions.GetToolDescription("docket_dialects")),
	)
	s.mcpServer.AddTool(dialectsTool, s.handleDialects)

	ledgerTool := mcp.NewTool(
		"docket_ledger_status",
		mcp.WithDescription(descriptions.GetToolDescription("docket_ledger_status")),
		mcp.WithBoolean("failed_only",
			mcp.Description("List only files that never parsed successfully"),
		),
	)
	s.mcpServer.AddTool(ledgerTool, s.handleLedgerStatus)
}

// serviceFor returns the service to use for a request overriding the
// dialect or strict mode.
func (s *Server) serviceFor(request mcp.CallToolRequest) (*docket.Service, error) {
	opts := s.service.Options()
	opts.Dialect = request.GetString("dialect", opts.Dialect)
	opts.Strict = request.GetBool("strict", opts.Strict)
	if opts == s.service.Options() {
		return s.service, nil
	}
	return s.service.WithOptions(opts)
}

func (s *Server) resolve(request mcp.CallToolRequest) (string, error) {
	path, err := request.RequireString("path")
	if err != nil {
		return "", err
	}
	return s.paths.Resolve(path)
}

// Handler functions
func (s *Server) handleParse(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.resolve(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	svc, err := s.serviceFor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	o := svc.ParseFile(ctx, path)
	s.log.Debug("tool docket_parse", "file", o.FileName, "dialect", o.Dialect, "succeeded", o.Succeeded)

	data, err := record.MarshalIndent(o)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode outcome: %v", err)), nil
	}

	var text strings.Builder
	if o.Succeeded {
		fmt.Fprintf(&text, "Parsed %s (dialect %s, %d warning(s))\n\n", o.FileName, o.Dialect, o.Warnings)
	} else {
		reason := ""
		if o.FailureReason != nil {
			reason = *o.FailureReason
		}
		fmt.Fprintf(&text, "Failed to parse %s: %s\n\n", o.FileName, reason)
	}
	text.Write(data)
	return mcp.NewToolResultText(text.String()), nil
}

func (s *Server) handleSections(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	path, err := s.resolve(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	svc, err := s.serviceFor(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	rep, err := svc.Sections(ctx, path)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(s.formatSections(rep)), nil
}

func (s *Server) handleDialects(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	registry := s.service.Registry()
	text := "Available dialects:\n"
	for _, name := range registry.Names() {
		d, _ := registry.Get(name)
		text += fmt.Sprintf("• %s (%s)", d.Name, d.Kind)
		if d.Description != "" {
			text += ": " + d.Description
		}
		text += "\n"
	}
	return mcp.NewToolResultText(text), nil
}

func (s *Server) handleLedgerStatus(_ context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	entries, err := batch.ReadLedger(s.config.LedgerPath)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	failedOnly := request.GetBool("failed_only", false)
	return mcp.NewToolResultText(s.formatLedger(entries, failedOnly)), nil
}

// Formatting methods
func (s *Server) formatSections(rep *docket.SectionsReport) string {
	text := fmt.Sprintf("Sections of %s (dialect %s)\n", rep.FileName, rep.Dialect)
	text += fmt.Sprintf("Dropped lines: %d\n", rep.Dropped)
	for i, sec := range rep.Sections {
		text += fmt.Sprintf("\n%d. %s (%d line(s))\n", i+1, sec.Name, len(sec.Lines))
		text += fmt.Sprintf("   Header: %s\n", strings.TrimSpace(sec.Header))
		for _, l := range sec.Lines {
			text += "   | " + l + "\n"
		}
	}
	if len(rep.Notes) > 0 {
		text += "\nNotes:\n"
		for _, n := range rep.Notes {
			text += "• " + n + "\n"
		}
	}
	return text
}

func (s *Server) formatLedger(entries []batch.LedgerEntry, failedOnly bool) string {
	done := 0
	for _, e := range entries {
		if e.Succeeded {
			done++
		}
	}
	text := fmt.Sprintf("Ledger: %s\n", s.config.LedgerPath)
	text += fmt.Sprintf("Files: %d, succeeded: %d, pending: %d\n", len(entries), done, len(entries)-done)
	for _, e := range entries {
		if failedOnly && e.Succeeded {
			continue
		}
		status := "failed"
		if e.Succeeded {
			status = "succeeded"
		}
		text += fmt.Sprintf("• %s: %s after %d attempt(s), last %s\n", e.FileName, status, e.Attempts, e.LastAttempt)
	}
	return text
}

// Run starts the MCP server in the configured mode
func (s *Server) Run(ctx context.Context) error {
	if s.config.IsServerMode() {
		return s.runServerMode(ctx)
	}
	return s.runStdioMode(ctx)
}

// runStdioMode runs the server in stdio mode
func (s *Server) runStdioMode(_ context.Context) error {
	s.log.Debug("starting MCP server", "mode", "stdio", "dir", s.config.DocumentDirectory)

	if err := server.ServeStdio(s.mcpServer); err != nil {
		return fmt.Errorf("failed to serve stdio: %w", err)
	}
	return nil
}

// runServerMode serves the tools over HTTP with server-sent events until ctx
// is cancelled.
func (s *Server) runServerMode(ctx context.Context) error {
	addr := s.config.Address()
	sse := server.NewSSEServer(s.mcpServer, server.WithBaseURL("http://"+addr))

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("starting MCP server", "mode", "sse", "addr", addr, "dir", s.config.DocumentDirectory)
		errCh <- sse.Start(addr)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to serve sse: %w", err)
		}
		return nil
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := sse.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("failed to shut down sse server: %w", err)
		}
		return nil
	}
}
