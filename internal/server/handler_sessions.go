package server

import (
	"bytes"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/me/priosim/internal/report"
	"github.com/me/priosim/internal/session"
	"github.com/me/priosim/pkg/model"
)

// stepResponse is returned by the step endpoint.
type stepResponse struct {
	Event    model.Event    `json:"event"`
	Snapshot model.Snapshot `json:"snapshot"`
}

// runResponse is returned by the run endpoint.
type runResponse struct {
	Events  []model.Event     `json:"events"`
	Metrics *model.RunMetrics `json:"metrics"`
}

// lookupSession resolves {id} or writes a 404.
func (s *Server) lookupSession(w http.ResponseWriter, r *http.Request) *session.Session {
	id := chi.URLParam(r, "id")
	sess := s.sessions.Get(id)
	if sess == nil {
		respondError(w, RequestIDFromContext(r.Context()), http.StatusNotFound, model.NewNotFoundError("session", id))
	}
	return sess
}

func (s *Server) handleCreateSession(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		WorkloadID string           `json:"workload_id"`
		Processes  []map[string]any `json:"processes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w, reqID, err)
		return
	}

	var specs []model.ProcessSpec
	switch {
	case req.WorkloadID != "" && req.Processes != nil:
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("provide either workload_id or processes, not both"))
		return
	case req.WorkloadID != "":
		wl, err := s.store.GetWorkload(r.Context(), req.WorkloadID)
		if err != nil {
			respondErr(w, reqID, err)
			return
		}
		if wl == nil {
			respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("workload", req.WorkloadID))
			return
		}
		specs = wl.Processes
	default:
		var err error
		if specs, err = s.validSpecs(req.Processes); err != nil {
			respondErr(w, reqID, err)
			return
		}
	}

	sess, err := s.sessions.Create(specs, req.WorkloadID)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondCreated(w, reqID, sess.Info())
}

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	infos := s.sessions.List()
	respondList(w, reqID, infos, &model.Pagination{Total: len(infos), Limit: len(infos)})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	respondOK(w, RequestIDFromContext(r.Context()), sess.Snapshot())
}

func (s *Server) handleDeleteSession(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")
	if !s.sessions.Delete(id) {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("session", id))
		return
	}
	respondOK(w, reqID, map[string]string{"id": id, "deleted": "true"})
}

func (s *Server) handleStartSession(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	if err := sess.Start(); err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondOK(w, reqID, sess.Snapshot())
}

func (s *Server) handleStepSession(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	ev, err := sess.Step()
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondOK(w, reqID, stepResponse{Event: ev, Snapshot: sess.Snapshot()})
}

func (s *Server) handleRunSession(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	events, err := sess.Run(r.Context())
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	m, err := sess.Metrics()
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondOK(w, reqID, runResponse{Events: events, Metrics: m})
}

func (s *Server) handleResetSession(w http.ResponseWriter, r *http.Request) {
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	sess.Reset()
	respondOK(w, RequestIDFromContext(r.Context()), sess.Snapshot())
}

func (s *Server) handleSessionMetrics(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	m, err := sess.Metrics()
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	respondOK(w, reqID, m)
}

func (s *Server) handleSessionEvents(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	after := 0
	if v := r.URL.Query().Get("after"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondError(w, reqID, http.StatusBadRequest,
				model.NewValidationError("invalid query parameter",
					model.FieldError{Field: "after", Message: "must be a non-negative integer"}))
			return
		}
		after = n
	}
	respondOK(w, reqID, sess.Events(after))
}

func (s *Server) handleExportSession(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	sess := s.lookupSession(w, r)
	if sess == nil {
		return
	}
	format := strings.ToLower(r.URL.Query().Get("format"))
	if format == "" {
		format = "json"
	}
	m, err := sess.Metrics()
	if err != nil {
		respondErr(w, reqID, err)
		return
	}

	var buf bytes.Buffer
	if err := report.Export(&buf, format, m); err != nil {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError(err.Error(), model.FieldError{Field: "format", Message: "must be csv, json or yaml"}))
		return
	}
	w.Header().Set("Content-Type", report.ContentType(format))
	w.Header().Set("Content-Disposition", "attachment; filename=\""+sess.ID+"."+format+"\"")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}
