package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/me/priosim/internal/config"
	"github.com/me/priosim/internal/logging"
	"github.com/me/priosim/internal/server"
	"github.com/me/priosim/internal/session"
	"github.com/me/priosim/internal/store"
)

func main() {
	cfg := config.DefaultServerConfig()

	configFile := flag.String("config", "", "Path to a YAML config file (flags override its values)")
	flag.StringVar(&cfg.Addr, "addr", cfg.Addr, "Listen address")
	flag.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "Log level (debug, info, warn, error)")
	flag.StringVar(&cfg.LogFormat, "log-format", cfg.LogFormat, "Log format (text, json)")
	flag.StringVar(&cfg.DBPath, "db", cfg.DBPath, "Database path (default ~/.priosim/priosim.db)")
	flag.IntVar(&cfg.MaxProcesses, "max-processes", cfg.MaxProcesses, "Largest accepted process set")
	flag.IntVar(&cfg.MaxSessions, "max-sessions", cfg.MaxSessions, "Concurrent simulation sessions (0 = unlimited)")
	flag.DurationVar(&cfg.SessionTTL, "session-ttl", cfg.SessionTTL, "Expire sessions idle for this long (0 = never)")
	debug := flag.Bool("debug", false, "Shorthand for --log-level=debug")

	flag.Parse()

	if *configFile != "" {
		fileCfg, err := config.Load(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "load config: %v\n", err)
			os.Exit(1)
		}
		cfg = overrideFromFlags(fileCfg, cfg)
	}
	if *debug {
		cfg.LogLevel = "debug"
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.NewLogger(logging.ParseLevel(cfg.LogLevel), cfg.LogFormat)

	// Resolve database path.
	dbPath := cfg.DBPath
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot determine home directory: %v\n", err)
			os.Exit(1)
		}
		dir := filepath.Join(home, ".priosim")
		if err := os.MkdirAll(dir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "cannot create %s: %v\n", dir, err)
			os.Exit(1)
		}
		dbPath = filepath.Join(dir, "priosim.db")
	}

	// Open store and run migrations.
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open database: %v\n", err)
		os.Exit(1)
	}
	defer st.Close()

	if err := st.Migrate(context.Background()); err != nil {
		fmt.Fprintf(os.Stderr, "migrate database: %v\n", err)
		os.Exit(1)
	}
	logger.Info("database ready", "path", dbPath)

	sessions := session.NewManager(session.Config{
		MaxProcesses: cfg.MaxProcesses,
		MaxSessions:  cfg.MaxSessions,
	}, logger)

	srv := server.New(cfg, st, logger, server.WithSessionManager(sessions))

	httpServer := &http.Server{
		Addr:    cfg.Addr,
		Handler: srv.Handler(),
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var reaper *session.Reaper
	if cfg.SessionTTL > 0 {
		reaper = session.NewReaper(sessions, session.ReaperConfig{
			Interval: cfg.ReapInterval,
			TTL:      cfg.SessionTTL,
		}, logger)
		go reaper.Start(ctx)
	}

	go func() {
		logger.Info("server starting", "addr", cfg.Addr, "max_processes", cfg.MaxProcesses, "max_sessions", cfg.MaxSessions)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	if reaper != nil {
		reaper.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		fmt.Fprintf(os.Stderr, "shutdown error: %v\n", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

// overrideFromFlags copies every explicitly set flag value from flagCfg onto fileCfg.
func overrideFromFlags(fileCfg, flagCfg config.ServerConfig) config.ServerConfig {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "addr":
			fileCfg.Addr = flagCfg.Addr
		case "log-level":
			fileCfg.LogLevel = flagCfg.LogLevel
		case "log-format":
			fileCfg.LogFormat = flagCfg.LogFormat
		case "db":
			fileCfg.DBPath = flagCfg.DBPath
		case "max-processes":
			fileCfg.MaxProcesses = flagCfg.MaxProcesses
		case "max-sessions":
			fileCfg.MaxSessions = flagCfg.MaxSessions
		case "session-ttl":
			fileCfg.SessionTTL = flagCfg.SessionTTL
		}
	})
	return fileCfg
}
