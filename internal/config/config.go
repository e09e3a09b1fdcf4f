package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// Mode constants
	ModeStdio  = "stdio"
	ModeServer = "server"

	// Default values
	DefaultPort        = 8080
	DefaultHost        = "127.0.0.1"
	DefaultLogLevel    = "info"
	DefaultMaxFileSize = 100 * 1024 * 1024 // 100MB
	DefaultWorkers     = 4
	DefaultLedger      = "progress.csv"
	DefaultOutputDir   = "json"

	// Directory permissions
	DefaultDirPerm = 0o750

	// EnvPrefix prefixes every environment variable, e.g. DOCKET_WORKERS.
	EnvPrefix = "DOCKET"
)

// Flag names. Environment variables use the upper-cased name with dashes
// replaced by underscores.
const (
	FlagMode        = "mode"
	FlagHost        = "host"
	FlagPort        = "port"
	FlagDir         = "dir"
	FlagOutput      = "output"
	FlagLedger      = "ledger"
	FlagInputList   = "input-list"
	FlagWorkers     = "workers"
	FlagStore       = "store"
	FlagDialect     = "dialect"
	FlagDialectFile = "dialect-file"
	FlagStrict      = "strict"
	FlagLogLevel    = "log-level"
	FlagLogFile     = "log-file"
	FlagMaxFileSize = "max-file-size"
)

// Config holds all configuration for the docket extractor
type Config struct {
	// MCP server configuration
	Mode string // "server" or "stdio"
	Host string
	Port int

	// Document locations
	DocumentDirectory string
	OutputDirectory   string
	LedgerPath        string
	InputList         string // optional CSV with a file_name column
	StorePath         string // optional SQLite outcome store

	// Extraction
	Dialect     string
	DialectFile string
	Strict      bool
	Workers     int
	MaxFileSize int64 // Maximum PDF file size in bytes

	// Application configuration
	Version    string
	ServerName string
	LogLevel   string
	LogFile    string
}

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	currentDir, err := os.Getwd()
	if err != nil {
		// Fallback to current directory if working directory cannot be determined
		currentDir = "."
	}

	return &Config{
		Mode:              ModeStdio,
		Host:              DefaultHost,
		Port:              DefaultPort,
		DocumentDirectory: currentDir,
		OutputDirectory:   DefaultOutputDir,
		LedgerPath:        DefaultLedger,
		Workers:           DefaultWorkers,
		MaxFileSize:       DefaultMaxFileSize,
		Version:           "1.0.0",
		ServerName:        "docket-extract",
		LogLevel:          DefaultLogLevel,
	}
}

// DefineFlags registers every configuration flag on flags with the
// defaults of cfg.
func DefineFlags(flags *pflag.FlagSet, cfg *Config) {
	flags.String(FlagMode, cfg.Mode, "MCP server mode: 'stdio' for standard I/O, 'server' for HTTP/SSE")
	flags.String(FlagHost, cfg.Host, "Server host address (server mode only)")
	flags.Int(FlagPort, cfg.Port, "Server port (server mode only)")
	flags.String(FlagDir, cfg.DocumentDirectory, "Directory containing docket PDF or text files")
	flags.String(FlagOutput, cfg.OutputDirectory, "Directory receiving one JSON file per parsed document")
	flags.String(FlagLedger, cfg.LedgerPath, "CSV progress ledger")
	flags.String(FlagInputList, cfg.InputList, "CSV list of documents to parse (file_name column)")
	flags.Int(FlagWorkers, cfg.Workers, "Number of documents parsed in parallel")
	flags.String(FlagStore, cfg.StorePath, "Optional SQLite database receiving every outcome")
	flags.String(FlagDialect, cfg.Dialect, "Force a dialect instead of detecting it")
	flags.String(FlagDialectFile, cfg.DialectFile, "YAML file adding or replacing dialects")
	flags.Bool(FlagStrict, cfg.Strict, "Turn tolerated anomalies into section errors")
	flags.String(FlagLogLevel, cfg.LogLevel, "Log level (debug, info, warn, error)")
	flags.String(FlagLogFile, cfg.LogFile, "Write logs to this file instead of stderr")
	flags.Int64(FlagMaxFileSize, cfg.MaxFileSize, "Maximum PDF file size in bytes")
}

// Load resolves the configuration from flags, DOCKET_* environment
// variables and defaults, in that order of precedence. flags must already
// be parsed and must hold the flags registered by DefineFlags.
func Load(flags *pflag.FlagSet) (*Config, error) {
	cfg := DefaultConfig()
	v := newViper(cfg)

	var err error
	flags.VisitAll(func(f *pflag.Flag) {
		if bindErr := v.BindPFlag(f.Name, f); bindErr != nil && err == nil {
			err = fmt.Errorf("failed to bind flag %s: %w", f.Name, bindErr)
		}
	})
	if err != nil {
		return nil, err
	}

	populateConfigFromViper(v, cfg)

	// Expand paths if needed
	if cfg.DocumentDirectory != "" {
		if expandedPath, err := filepath.Abs(cfg.DocumentDirectory); err == nil {
			cfg.DocumentDirectory = expandedPath
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// newViper configures viper with environment variables and defaults
func newViper(cfg *Config) *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault(FlagMode, cfg.Mode)
	v.SetDefault(FlagHost, cfg.Host)
	v.SetDefault(FlagPort, cfg.Port)
	v.SetDefault(FlagDir, cfg.DocumentDirectory)
	v.SetDefault(FlagOutput, cfg.OutputDirectory)
	v.SetDefault(FlagLedger, cfg.LedgerPath)
	v.SetDefault(FlagInputList, cfg.InputList)
	v.SetDefault(FlagWorkers, cfg.Workers)
	v.SetDefault(FlagStore, cfg.StorePath)
	v.SetDefault(FlagDialect, cfg.Dialect)
	v.SetDefault(FlagDialectFile, cfg.DialectFile)
	v.SetDefault(FlagStrict, cfg.Strict)
	v.SetDefault(FlagLogLevel, cfg.LogLevel)
	v.SetDefault(FlagLogFile, cfg.LogFile)
	v.SetDefault(FlagMaxFileSize, cfg.MaxFileSize)
	return v
}

// populateConfigFromViper fills the config struct with values from viper
func populateConfigFromViper(v *viper.Viper, cfg *Config) {
	cfg.Mode = v.GetString(FlagMode)
	cfg.Host = v.GetString(FlagHost)
	cfg.Port = v.GetInt(FlagPort)
	cfg.DocumentDirectory = v.GetString(FlagDir)
	cfg.OutputDirectory = v.GetString(FlagOutput)
	cfg.LedgerPath = v.GetString(FlagLedger)
	cfg.InputList = v.GetString(FlagInputList)
	cfg.Workers = v.GetInt(FlagWorkers)
	cfg.StorePath = v.GetString(FlagStore)
	cfg.Dialect = v.GetString(FlagDialect)
	cfg.DialectFile = v.GetString(FlagDialectFile)
	cfg.Strict = v.GetBool(FlagStrict)
	cfg.LogLevel = strings.ToLower(v.GetString(FlagLogLevel))
	cfg.LogFile = v.GetString(FlagLogFile)
	cfg.MaxFileSize = v.GetInt64(FlagMaxFileSize)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Mode != ModeStdio && c.Mode != ModeServer {
		return errors.New("mode must be either 'stdio' or 'server'")
	}

	// Validate port range (only for server mode)
	if c.Mode == ModeServer && (c.Port < 1 || c.Port > 65535) {
		return errors.New("port must be between 1 and 65535")
	}

	if c.DocumentDirectory == "" {
		return errors.New("document directory cannot be empty")
	}
	if info, err := os.Stat(c.DocumentDirectory); err != nil {
		return fmt.Errorf("cannot access document directory %s: %w", c.DocumentDirectory, err)
	} else if !info.IsDir() {
		return fmt.Errorf("document directory %s is not a directory", c.DocumentDirectory)
	}

	if c.OutputDirectory == "" {
		return errors.New("output directory cannot be empty")
	}
	if c.LedgerPath == "" {
		return errors.New("ledger path cannot be empty")
	}

	if c.Workers < 1 {
		return errors.New("workers must be at least 1")
	}

	if c.MaxFileSize <= 0 {
		return errors.New("maximum file size must be positive")
	}

	validLogLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLogLevels[c.LogLevel] {
		return fmt.Errorf("invalid log level: %s (must be one of: debug, info, warn, error)", c.LogLevel)
	}

	return nil
}

// EnsureOutputDirectory creates the JSON output directory.
func (c *Config) EnsureOutputDirectory() error {
	if err := os.MkdirAll(c.OutputDirectory, DefaultDirPerm); err != nil {
		return fmt.Errorf("cannot create output directory %s: %w", c.OutputDirectory, err)
	}
	return nil
}

// Address returns the server address as host:port
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IsDebug returns true if debug logging is enabled
func (c *Config) IsDebug() bool {
	return c.LogLevel == "debug"
}

// String returns a string representation of the configuration
func (c *Config) String() string {
	return fmt.Sprintf("Config{Mode: %s, Host: %s, Port: %d, DocumentDirectory: %s, OutputDirectory: %s, "+
		"Ledger: %s, Workers: %d, Dialect: %s, Strict: %t, LogLevel: %s, MaxFileSize: %d}",
		c.Mode, c.Host, c.Port, c.DocumentDirectory, c.OutputDirectory,
		c.LedgerPath, c.Workers, c.Dialect, c.Strict, c.LogLevel, c.MaxFileSize)
}

// IsServerMode returns true if the MCP server runs over HTTP/SSE
func (c *Config) IsServerMode() bool {
	return c.Mode == ModeServer
}

// IsStdioMode returns true if the MCP server runs over stdio
func (c *Config) IsStdioMode() bool {
	return c.Mode == ModeStdio
}
