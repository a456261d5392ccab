package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/me/priosim/pkg/model"
)

// handleSSESession streams a session's events via Server-Sent Events.
// GET /api/v1/sse/sessions/{id}
func (s *Server) handleSSESession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	reqID := RequestIDFromContext(r.Context())

	sess := s.sessions.Get(id)
	if sess == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("session", id))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no") // Disable nginx buffering

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "SSE not supported", http.StatusInternalServerError)
		return
	}

	// Subscribe before taking the snapshot so no event falls in between.
	events, cancel := sess.Subscribe()
	defer cancel()

	snap := sess.Snapshot()
	if err := sendSSEEvent(w, flusher, "init", snap); err != nil {
		s.logger.Debug("sse client disconnected", "id", id, "error", err)
		return
	}
	if snap.State == model.EngineStateCompleted {
		sendSSEEvent(w, flusher, "complete", snap)
		return
	}

	ticker := time.NewTicker(s.config.SSEHeartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev, ok := <-events:
			if !ok {
				// Session deleted.
				return
			}
			if err := sendSSEEvent(w, flusher, "event", ev); err != nil {
				s.logger.Debug("sse client disconnected", "id", id)
				return
			}
			if ev.RunComplete {
				sendSSEEvent(w, flusher, "complete", sess.Snapshot())
				return
			}
		case <-ticker.C:
			fmt.Fprintf(w, ": heartbeat\n\n")
			flusher.Flush()
		}
	}
}

func sendSSEEvent(w http.ResponseWriter, flusher http.Flusher, event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, jsonData)
	if err != nil {
		return err
	}

	flusher.Flush()
	return nil
}
