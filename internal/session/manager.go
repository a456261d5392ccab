package session

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/me/priosim/internal/registry"
	"github.com/me/priosim/pkg/model"
)

// Config bounds the manager.
type Config struct {
	MaxProcesses int // per session; <= 0 uses registry.DefaultMaxProcesses
	MaxSessions  int // <= 0 means unlimited
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{MaxProcesses: registry.DefaultMaxProcesses, MaxSessions: 256}
}

// Manager creates and indexes sessions. Sessions share no mutable state.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	config   Config
	logger   *slog.Logger
}

// NewManager creates an empty Manager.
func NewManager(cfg Config, logger *slog.Logger) *Manager {
	return &Manager{
		sessions: make(map[string]*Session),
		config:   cfg,
		logger:   logger.With("component", "session"),
	}
}

// Create validates specs and registers a new IDLE session.
// workloadID records the stored workload the specs came from, if any.
func (m *Manager) Create(specs []model.ProcessSpec, workloadID string) (*Session, error) {
	reg, err := registry.New(specs, m.config.MaxProcesses)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if m.config.MaxSessions > 0 && len(m.sessions) >= m.config.MaxSessions {
		return nil, &model.APIError{
			Code:    model.ErrConflict,
			Message: fmt.Sprintf("session limit reached (%d)", m.config.MaxSessions),
		}
	}

	id := "sess_" + uuid.New().String()
	s := newSession(id, workloadID, reg, m.logger)
	m.sessions[id] = s
	m.logger.Info("session created", "id", id, "processes", reg.Len(), "workload_id", workloadID)
	return s, nil
}

// Get returns the session with the given id, or nil, and marks it active.
func (m *Manager) Get(id string) *Session {
	m.mu.RLock()
	s := m.sessions[id]
	m.mu.RUnlock()
	if s != nil {
		s.touch(time.Now().UTC())
	}
	return s
}

// Delete removes a session and closes its subscriptions.
// It reports whether the session existed.
func (m *Manager) Delete(id string) bool {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}
	s.close()
	m.logger.Info("session deleted", "id", id)
	return true
}

// List returns session summaries, newest first.
func (m *Manager) List() []model.SessionInfo {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]model.SessionInfo, len(sessions))
	for i, s := range sessions {
		infos[i] = s.Info()
	}
	sort.Slice(infos, func(i, j int) bool {
		if !infos[i].CreatedAt.Equal(infos[j].CreatedAt) {
			return infos[i].CreatedAt.After(infos[j].CreatedAt)
		}
		return infos[i].ID < infos[j].ID
	})
	return infos
}

// Expire deletes every session idle for longer than ttl without subscribers
// and returns the removed ids.
func (m *Manager) Expire(now time.Time, ttl time.Duration) []string {
	cutoff := now.Add(-ttl)

	m.mu.RLock()
	candidates := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		candidates = append(candidates, s)
	}
	m.mu.RUnlock()

	var stale []*Session
	for _, s := range candidates {
		if s.expired(cutoff) {
			stale = append(stale, s)
		}
	}
	if len(stale) == 0 {
		return nil
	}

	m.mu.Lock()
	var removed []*Session
	for _, s := range stale {
		// Skip sessions deleted or replaced since the scan.
		if m.sessions[s.ID] == s {
			delete(m.sessions, s.ID)
			removed = append(removed, s)
		}
	}
	m.mu.Unlock()

	ids := make([]string, len(removed))
	for i, s := range removed {
		s.close()
		ids[i] = s.ID
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of live sessions.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
