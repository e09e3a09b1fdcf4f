package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/a3tai/docket-extract/internal/config"
	"github.com/a3tai/docket-extract/internal/docket"
	"github.com/a3tai/docket-extract/internal/docket/dialect"
	"github.com/a3tai/docket-extract/internal/logging"
	"github.com/a3tai/docket-extract/internal/mcp"
	"github.com/a3tai/docket-extract/internal/pdf"
)

var (
	version   = "dev"     // This will be set by build flags
	buildTime = "unknown" // This will be set by build flags
	gitCommit = "unknown" // This will be set by build flags
)

// app is the state shared by every subcommand once flags are parsed.
type app struct {
	cfg     *config.Config
	log     *slog.Logger
	closeFn func() error
}

func (a *app) close() {
	if a.closeFn != nil {
		if err := a.closeFn(); err != nil {
			log.Printf("failed to close log file: %v", err)
		}
	}
}

// setupLogging configures logging based on the command. Serving MCP over
// stdio must keep stdout clean, so logs go to stderr in debug mode and are
// discarded otherwise. The result also becomes the slog and log default.
func setupLogging(cfg *config.Config, serving bool) (*slog.Logger, func() error, error) {
	level := logging.ParseLevel(cfg.LogLevel)

	var (
		logger  *slog.Logger
		closeFn func() error
	)
	switch {
	case cfg.LogFile != "":
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open log file: %w", err)
		}
		logger, closeFn = logging.New(f, level), f.Close
	case serving && cfg.IsStdioMode() && !cfg.IsDebug():
		logger = logging.Discard()
	default:
		logger = logging.New(os.Stderr, level)
	}
	slog.SetDefault(logger)
	return logger, closeFn, nil
}

// newService builds the extraction service from the configuration.
func newService(cfg *config.Config) (*docket.Service, error) {
	registry, err := dialect.NewRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to load dialects: %w", err)
	}
	if cfg.DialectFile != "" {
		if err := registry.LoadFile(cfg.DialectFile); err != nil {
			return nil, err
		}
	}

	opts := pdf.DefaultOptions()
	opts.MaxFileSize = cfg.MaxFileSize
	reader := pdf.NewReader(opts)

	return docket.NewService(registry, reader, docket.Options{
		Dialect: cfg.Dialect,
		Strict:  cfg.Strict,
	})
}

// runServerMode handles server mode execution with signal handling
func runServerMode(ctx context.Context, cancel context.CancelFunc, server *mcp.Server, logger *slog.Logger) error {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer signal.Stop(signalCh)

	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- server.Run(ctx)
	}()

	select {
	case sig := <-signalCh:
		logger.Info("received signal, shutting down", "signal", sig)
		cancel()
		if err := <-serverErrCh; err != nil {
			return fmt.Errorf("server shutdown with error: %w", err)
		}
	case err := <-serverErrCh:
		if err != nil {
			return fmt.Errorf("server error: %w", err)
		}
	}

	logger.Info("server stopped")
	return nil
}

// runStdioMode handles stdio mode execution. The parent process controls
// our lifecycle.
func runStdioMode(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx)
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("Warning: .env file could not be loaded: %v", err)
	}
}

func main() {
	loadDotEnv()

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// printVersion prints version information
func printVersion(w io.Writer) {
	fmt.Fprintf(w, "Docket Extract\n")
	fmt.Fprintf(w, "Version: %s\n", version)
	fmt.Fprintf(w, "Build Time: %s\n", buildTime)
	fmt.Fprintf(w, "Git Commit: %s\n", gitCommit)
	fmt.Fprintf(w, "Built with: %s\n", runtime.Version())
}
