package server

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/me/priosim/internal/registry"
	"github.com/me/priosim/internal/workload"
	"github.com/me/priosim/pkg/model"
)

// decodeJSON decodes a request body keeping numbers exact so that
// non-integer process fields can be rejected precisely.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.UseNumber()
	return dec.Decode(v)
}

func invalidJSON(w http.ResponseWriter, reqID string, err error) {
	respondError(w, reqID, http.StatusBadRequest, &model.APIError{
		Code:    model.ErrValidation,
		Message: "Invalid JSON body: " + err.Error(),
	})
}

// validSpecs converts raw process records and checks them exactly as a
// session would, so a stored workload is always startable.
func (s *Server) validSpecs(records []map[string]any) ([]model.ProcessSpec, error) {
	specs, err := workload.FromRecords(records)
	if err != nil {
		return nil, err
	}
	if _, err := registry.New(specs, s.config.MaxProcesses); err != nil {
		return nil, err
	}
	return specs, nil
}

func (s *Server) handleCreateWorkload(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	var req struct {
		Name        string            `json:"name"`
		Description string            `json:"description"`
		Labels      map[string]string `json:"labels"`
		Processes   []map[string]any  `json:"processes"`
	}
	if err := decodeJSON(r, &req); err != nil {
		invalidJSON(w, reqID, err)
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		respondError(w, reqID, http.StatusBadRequest,
			model.NewValidationError("missing required field",
				model.FieldError{Field: "name", Message: "name is required"}))
		return
	}
	specs, err := s.validSpecs(req.Processes)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}

	wl := &model.Workload{
		ID:          "wl_" + uuid.New().String(),
		Name:        req.Name,
		Description: req.Description,
		Processes:   specs,
		Labels:      req.Labels,
		CreatedAt:   time.Now().UTC(),
	}
	if wl.Labels == nil {
		wl.Labels = map[string]string{}
	}
	if err := s.store.CreateWorkload(r.Context(), wl); err != nil {
		respondErr(w, reqID, err)
		return
	}

	s.logger.Info("workload created", "id", wl.ID, "name", wl.Name, "processes", len(specs))
	respondCreated(w, reqID, wl)
}

func (s *Server) handleListWorkloads(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())

	opts := model.DefaultListOptions()
	q := r.URL.Query()
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		opts.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		opts.Offset = v
	}
	opts.Name = q.Get("name")
	opts.Clamp()

	workloads, total, err := s.store.ListWorkloads(r.Context(), opts)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	if workloads == nil {
		workloads = []*model.Workload{}
	}

	respondList(w, reqID, workloads, &model.Pagination{
		Total:   total,
		Limit:   opts.Limit,
		Offset:  opts.Offset,
		HasMore: opts.Offset+len(workloads) < total,
	})
}

func (s *Server) handleGetWorkload(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	wl, err := s.store.GetWorkload(r.Context(), id)
	if err != nil {
		respondErr(w, reqID, err)
		return
	}
	if wl == nil {
		respondError(w, reqID, http.StatusNotFound, model.NewNotFoundError("workload", id))
		return
	}
	respondOK(w, reqID, wl)
}

func (s *Server) handleDeleteWorkload(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := s.store.DeleteWorkload(r.Context(), id); err != nil {
		respondErr(w, reqID, err)
		return
	}
	s.logger.Info("workload deleted", "id", id)
	respondOK(w, reqID, map[string]string{"id": id, "deleted": "true"})
}
