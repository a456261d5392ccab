package session

import (
	"context"
	"log/slog"
	"time"
)

// ReaperConfig controls idle session expiry.
type ReaperConfig struct {
	Interval time.Duration
	TTL      time.Duration
}

// DefaultReaperConfig returns sensible defaults.
func DefaultReaperConfig() ReaperConfig {
	return ReaperConfig{Interval: time.Minute, TTL: time.Hour}
}

// Reaper periodically expires idle sessions of a Manager.
type Reaper struct {
	manager *Manager
	config  ReaperConfig
	logger  *slog.Logger
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewReaper creates a reaper for m.
func NewReaper(m *Manager, cfg ReaperConfig, logger *slog.Logger) *Reaper {
	return &Reaper{
		manager: m,
		config:  cfg,
		logger:  logger.With("component", "reaper"),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
}

// Start runs the expiry loop. Blocks until ctx is cancelled or Stop is called.
func (r *Reaper) Start(ctx context.Context) error {
	r.logger.Info("reaper started", "interval", r.config.Interval, "ttl", r.config.TTL)
	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()
	defer close(r.doneCh)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reaper stopping (context cancelled)")
			return ctx.Err()
		case <-r.stopCh:
			r.logger.Info("reaper stopping (stop called)")
			return nil
		case now := <-ticker.C:
			r.Tick(now.UTC())
		}
	}
}

// Stop shuts the loop down and waits for the current tick to finish.
// It must only be called after Start.
func (r *Reaper) Stop() error {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
	<-r.doneCh
	return nil
}

// Tick runs one expiry pass and returns the number of sessions removed.
func (r *Reaper) Tick(now time.Time) int {
	ids := r.manager.Expire(now, r.config.TTL)
	if len(ids) > 0 {
		r.logger.Info("expired idle sessions", "count", len(ids), "ids", ids)
	}
	return len(ids)
}
