package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Environment variables consulted when a flag is left empty.
const (
	EnvHome     = "TREEGROUP_HOME"
	EnvLogLevel = "TREEGROUP_LOG_LEVEL"
)

// Config holds runtime wiring options for building the app.
type Config struct {
	Home          string        // data directory, e.g. $HOME/.treegroup
	StoreCapacity int           // live groups kept in memory; 0 selects the store default
	LogLevel      string        // debug, info, warn or error
	LogFormat     string        // json or text
	RecordTimeout time.Duration // per-epoch write timeout for the epoch log
	Passphrase    string        // unlocks the signing identity; empty means an ephemeral signer
	LogOutput     io.Writer     // defaults to stderr
}

// WithDefaults fills unset fields from the environment and built-in defaults.
func (c Config) WithDefaults() (Config, error) {
	if c.Home == "" {
		c.Home = GetEnv(EnvHome, "")
	}
	if c.Home == "" {
		dir, err := os.UserHomeDir()
		if err != nil {
			return c, fmt.Errorf("resolve home: %w", err)
		}
		c.Home = filepath.Join(dir, ".treegroup")
	}
	if c.LogLevel == "" {
		c.LogLevel = GetEnv(EnvLogLevel, "info")
	}
	if c.LogFormat == "" {
		c.LogFormat = "text"
	}
	if c.LogOutput == nil {
		c.LogOutput = os.Stderr
	}
	return c, nil
}

// NewLogger builds the process logger described by c.
func NewLogger(c Config) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	out := c.LogOutput
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(c.LogFormat) {
	case "", "text":
		return slog.New(slog.NewTextHandler(out, opts)), nil
	case "json":
		return slog.New(slog.NewJSONHandler(out, opts)), nil
	default:
		return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
	}
}

// GetEnv returns the value of key, or defaultValue when it is unset or empty.
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
