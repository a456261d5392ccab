// Package ui serves a small server-rendered web interface for stepping
// simulation sessions in a browser. It only issues commands to sessions and
// renders their snapshots; it holds no scheduling state of its own.
package ui

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/me/priosim/internal/session"
	"github.com/me/priosim/internal/store"
	"github.com/me/priosim/pkg/model"
)

// UI handles the web user interface.
type UI struct {
	sessions  *session.Manager
	store     store.Store
	logger    *slog.Logger
	startTime time.Time
}

// New creates a new UI handler. st may be nil, in which case stored
// workloads are not offered.
func New(sessions *session.Manager, st store.Store, logger *slog.Logger) *UI {
	return &UI{
		sessions:  sessions,
		store:     st,
		logger:    logger.With("component", "ui"),
		startTime: time.Now(),
	}
}

// RegisterRoutes registers all UI routes on the given router.
func (ui *UI) RegisterRoutes(r chi.Router) {
	r.Get("/", ui.HandleDashboard)
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", ui.HandleSessionCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", ui.HandleSessionDetail)
			r.Post("/delete", ui.HandleSessionDelete)
			r.Post("/{action}", ui.HandleSessionAction)
		})
	})
}

func (ui *UI) recentWorkloads(ctx context.Context) []*model.Workload {
	if ui.store == nil {
		return nil
	}
	workloads, _, err := ui.store.ListWorkloads(ctx, model.ListOptions{Limit: 50})
	if err != nil {
		ui.logger.Warn("list workloads failed", "error", err)
		return nil
	}
	return workloads
}

func (ui *UI) render(w http.ResponseWriter, status int, template string, data map[string]any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")

	var buf bytes.Buffer
	if err := renderTemplate(&buf, template, data); err != nil {
		ui.logger.Error("template render failed", "template", template, "error", err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)
	buf.WriteTo(w)
}

func (ui *UI) renderNotFound(w http.ResponseWriter, message string) {
	ui.render(w, http.StatusNotFound, "error", map[string]any{
		"Title":   "Not Found - priosim",
		"Message": message,
	})
}
