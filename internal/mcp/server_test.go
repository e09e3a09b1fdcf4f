package mcp

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/docket-extract/internal/batch"
	"github.com/a3tai/docket-extract/internal/config"
	"github.com/a3tai/docket-extract/internal/docket"
	"github.com/a3tai/docket-extract/internal/docket/dialect"
)

const cpDocket = `COURT OF COMMON PLEAS OF MONTGOMERY COUNTY
Docket Number: CP-46-CR-0001234-2019
CASE INFORMATION
Judge Assigned: Smith, John
OTN: T 123456-1
DEFENDANT INFORMATION
Date Of Birth: 01/01/1980     City/State/Zip: Norristown, PA 19401
CONFINEMENT INFORMATION
RELATED CASES`

func newTestServer(t *testing.T) (*Server, string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "doe.txt"), []byte(cpDocket), 0o644))

	cfg := config.DefaultConfig()
	cfg.DocumentDirectory = dir
	cfg.LedgerPath = filepath.Join(dir, "progress.csv")
	cfg.ServerName = "test-server"

	svc, err := docket.NewService(dialect.MustRegistry(), nil, docket.Options{})
	require.NoError(t, err)
	s, err := NewServer(cfg, svc, nil)
	require.NoError(t, err)
	return s, dir
}

func call(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

// extractTextFromResult returns the first text content of a tool result.
func extractTextFromResult(result *mcp.CallToolResult) string {
	if result == nil {
		return ""
	}
	for _, content := range result.Content {
		if textContent, ok := content.(mcp.TextContent); ok {
			return textContent.Text
		}
		if textContentPtr, ok := content.(*mcp.TextContent); ok {
			return textContentPtr.Text
		}
	}
	return ""
}

func TestNewServer(t *testing.T) {
	svc, err := docket.NewService(dialect.MustRegistry(), nil, docket.Options{})
	require.NoError(t, err)

	_, err = NewServer(nil, svc, nil)
	assert.Error(t, err)
	_, err = NewServer(config.DefaultConfig(), nil, nil)
	assert.Error(t, err)

	s, err := NewServer(config.DefaultConfig(), svc, nil)
	require.NoError(t, err)
	assert.NotNil(t, s.mcpServer)
}

func TestHandleParse(t *testing.T) {
	s, dir := newTestServer(t)

	t.Run("relative path", func(t *testing.T) {
		result, err := s.handleParse(context.Background(), call(map[string]any{"path": "doe.txt"}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
		text := extractTextFromResult(result)
		assert.Contains(t, text, "Parsed doe.txt (dialect cp")
		assert.Contains(t, text, `"otn": "T 123456-1"`)
	})

	t.Run("absolute path", func(t *testing.T) {
		result, err := s.handleParse(context.Background(), call(map[string]any{"path": filepath.Join(dir, "doe.txt")}))
		require.NoError(t, err)
		assert.False(t, result.IsError)
	})

	t.Run("forced dialect", func(t *testing.T) {
		result, err := s.handleParse(context.Background(), call(map[string]any{"path": "doe.txt", "dialect": "mj"}))
		require.NoError(t, err)
		assert.Contains(t, extractTextFromResult(result), "Failed to parse doe.txt")
	})

	t.Run("unknown dialect", func(t *testing.T) {
		result, err := s.handleParse(context.Background(), call(map[string]any{"path": "doe.txt", "dialect": "nope"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})

	t.Run("path outside directory", func(t *testing.T) {
		result, err := s.handleParse(context.Background(), call(map[string]any{"path": "../../etc/passwd"}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
		assert.Contains(t, extractTextFromResult(result), "outside")
	})

	t.Run("missing path", func(t *testing.T) {
		result, err := s.handleParse(context.Background(), call(map[string]any{}))
		require.NoError(t, err)
		assert.True(t, result.IsError)
	})
}

func TestHandleSections(t *testing.T) {
	s, _ := newTestServer(t)
	result, err := s.handleSections(context.Background(), call(map[string]any{"path": "doe.txt"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	text := extractTextFromResult(result)
	assert.Contains(t, text, "Sections of doe.txt (dialect cp)")
	assert.Contains(t, text, "1. CASE INFORMATION")
	assert.Contains(t, text, "   | OTN: T 123456-1")

	result, err = s.handleSections(context.Background(), call(map[string]any{"path": "missing.txt"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleDialects(t *testing.T) {
	s, _ := newTestServer(t)
	result, err := s.handleDialects(context.Background(), call(nil))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "• cp (docket)")
	assert.Contains(t, text, "• mj_summary (summary)")
}

func TestHandleLedgerStatus(t *testing.T) {
	s, _ := newTestServer(t)

	result, err := s.handleLedgerStatus(context.Background(), call(nil))
	require.NoError(t, err)
	assert.Contains(t, extractTextFromResult(result), "Files: 0, succeeded: 0, pending: 0")

	ledger, err := batch.OpenLedger(s.config.LedgerPath)
	require.NoError(t, err)
	require.NoError(t, ledger.Record("a.pdf", false))
	require.NoError(t, ledger.Record("a.pdf", true))
	require.NoError(t, ledger.Record("b.pdf", false))
	require.NoError(t, ledger.Close())

	result, err = s.handleLedgerStatus(context.Background(), call(nil))
	require.NoError(t, err)
	text := extractTextFromResult(result)
	assert.Contains(t, text, "Files: 2, succeeded: 1, pending: 1")
	assert.Contains(t, text, "a.pdf: succeeded after 2 attempt(s)")

	result, err = s.handleLedgerStatus(context.Background(), call(map[string]any{"failed_only": true}))
	require.NoError(t, err)
	text = extractTextFromResult(result)
	assert.NotContains(t, text, "a.pdf")
	assert.Contains(t, text, "b.pdf: failed after 1 attempt(s)")
}

func TestRunServerModeStopsOnCancel(t *testing.T) {
	s, _ := newTestServer(t)
	s.config.Mode = config.ModeServer
	s.config.Port = 0

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(50 * time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop")
	}
}
