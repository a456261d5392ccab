package server

import "net/http"

type endpointInfo struct {
	Path        string   `json:"path"`
	Methods     []string `json:"methods"`
	Description string   `json:"description"`
}

type discoveryResponse struct {
	Name        string         `json:"name"`
	Version     string         `json:"version"`
	Description string         `json:"description"`
	Endpoints   []endpointInfo `json:"endpoints"`
}

func (s *Server) handleDiscovery(w http.ResponseWriter, r *http.Request) {
	reqID := RequestIDFromContext(r.Context())
	respondOK(w, reqID, discoveryResponse{
		Name:        "priosim API",
		Version:     "v1",
		Description: "Step-by-step non-preemptive priority scheduling simulator",
		Endpoints: []endpointInfo{
			{"/api/v1/workloads", []string{"GET", "POST"}, "Stored process sets"},
			{"/api/v1/workloads/{id}", []string{"GET", "DELETE"}, "Single stored process set"},
			{"/api/v1/sessions", []string{"GET", "POST"}, "Simulation sessions. POST accepts processes or a workload_id"},
			{"/api/v1/sessions/{id}", []string{"GET", "DELETE"}, "Session snapshot: state, time, ready queue, timeline"},
			{"/api/v1/sessions/{id}/start", []string{"POST"}, "Begin a run (IDLE -> STEPPING)"},
			{"/api/v1/sessions/{id}/step", []string{"POST"}, "Perform exactly one scheduling decision"},
			{"/api/v1/sessions/{id}/run", []string{"POST"}, "Step until the run completes"},
			{"/api/v1/sessions/{id}/reset", []string{"POST"}, "Return the session to IDLE"},
			{"/api/v1/sessions/{id}/metrics", []string{"GET"}, "Turnaround, waiting and response times of a completed run"},
			{"/api/v1/sessions/{id}/events", []string{"GET"}, "Events of the current run, ?after=<seq>"},
			{"/api/v1/sessions/{id}/export", []string{"GET"}, "Metrics as csv, json or yaml (?format=)"},
			{"/api/v1/sse/sessions/{id}", []string{"GET"}, "Server-Sent Events stream of session events"},
			{"/api/v1/health", []string{"GET"}, "Server health and version"},
		},
	})
}
