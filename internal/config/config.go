package config

import (
	"fmt"
	"os"
	"time"

	"github.com/me/priosim/internal/registry"
	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the priosim server.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`          // Listen address (default ":8080")
	LogLevel     string        `yaml:"log_level"`     // Log level: debug, info, warn, error
	LogFormat    string        `yaml:"log_format"`    // Log format: text, json
	DBPath       string        `yaml:"db_path"`       // SQLite database path (default ~/.priosim/priosim.db, ":memory:" for testing)
	MaxProcesses int           `yaml:"max_processes"` // Largest accepted process set
	MaxSessions  int           `yaml:"max_sessions"`  // Concurrent simulation sessions (0 = unlimited)
	SSEHeartbeat time.Duration `yaml:"sse_heartbeat"` // Interval between SSE heartbeat comments
	SessionTTL   time.Duration `yaml:"session_ttl"`   // Idle sessions are expired after this (0 = never)
	ReapInterval time.Duration `yaml:"reap_interval"` // How often idle sessions are checked
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         ":8080",
		LogLevel:     "info",
		LogFormat:    "text",
		MaxProcesses: registry.DefaultMaxProcesses,
		MaxSessions:  256,
		SSEHeartbeat: 15 * time.Second,
		SessionTTL:   time.Hour,
		ReapInterval: time.Minute,
	}
}

// Load reads a YAML config file and overlays it on the defaults.
func Load(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parsing config file: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// Validate checks that all config values are usable.
func (c ServerConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("addr cannot be empty")
	}
	if c.MaxProcesses < 1 {
		return fmt.Errorf("max_processes must be >= 1, got %d", c.MaxProcesses)
	}
	if c.MaxSessions < 0 {
		return fmt.Errorf("max_sessions must be >= 0, got %d", c.MaxSessions)
	}
	if c.SSEHeartbeat <= 0 {
		return fmt.Errorf("sse_heartbeat must be positive, got %s", c.SSEHeartbeat)
	}
	if c.SessionTTL < 0 {
		return fmt.Errorf("session_ttl must be >= 0, got %s", c.SessionTTL)
	}
	if c.SessionTTL > 0 && c.ReapInterval <= 0 {
		return fmt.Errorf("reap_interval must be positive when session_ttl is set, got %s", c.ReapInterval)
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("log_format must be text or json, got %q", c.LogFormat)
	}
	return nil
}
