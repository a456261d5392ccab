package server

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/me/priosim/internal/config"
	"github.com/me/priosim/internal/store"
	"github.com/me/priosim/pkg/model"
)

const threeProcs = `{"processes":[
	{"arrival":0,"burst":4,"priority":2},
	{"arrival":1,"burst":3,"priority":1},
	{"arrival":2,"burst":1,"priority":4}]}`

func testServer(t *testing.T) *Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := store.NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return New(config.DefaultServerConfig(), st, logger)
}

// envelope is used to decode the standard response envelope.
type envelope struct {
	Status     string            `json:"status"`
	RequestID  string            `json:"request_id"`
	Timestamp  string            `json:"timestamp"`
	Data       json.RawMessage   `json:"data"`
	Pagination *model.Pagination `json:"pagination"`
	Error      *model.APIError   `json:"error"`
}

func do(t *testing.T, srv *Server, method, path, body string, wantStatus int) envelope {
	t.Helper()
	var rdr io.Reader
	if body != "" {
		rdr = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, rdr)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != wantStatus {
		t.Fatalf("%s %s: status=%d, want %d, body=%s", method, path, w.Code, wantStatus, w.Body.String())
	}
	var env envelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("%s %s: invalid JSON: %v", method, path, err)
	}
	return env
}

func decodeData(t *testing.T, env envelope, v any) {
	t.Helper()
	if err := json.Unmarshal(env.Data, v); err != nil {
		t.Fatalf("decode data: %v (data=%s)", err, env.Data)
	}
}

func createSession(t *testing.T, srv *Server, body string) string {
	t.Helper()
	env := do(t, srv, "POST", "/api/v1/sessions/", body, http.StatusCreated)
	var info model.SessionInfo
	decodeData(t, env, &info)
	if !strings.HasPrefix(info.ID, "sess_") {
		t.Fatalf("session id = %q, want sess_ prefix", info.ID)
	}
	return info.ID
}

func TestDiscovery(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "GET", "/api/v1/", "", http.StatusOK)
	if env.Status != "ok" {
		t.Errorf("status = %q, want ok", env.Status)
	}

	var data struct {
		Name      string `json:"name"`
		Endpoints []struct {
			Path string `json:"path"`
		} `json:"endpoints"`
	}
	decodeData(t, env, &data)
	if data.Name != "priosim API" {
		t.Errorf("name = %q, want priosim API", data.Name)
	}
	if len(data.Endpoints) < 10 {
		t.Errorf("endpoints count = %d, want >= 10", len(data.Endpoints))
	}
}

func TestHealth(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "GET", "/api/v1/health", "", http.StatusOK)

	var data healthResponse
	decodeData(t, env, &data)
	if data.Status != "healthy" {
		t.Errorf("health status = %q, want healthy", data.Status)
	}
	if data.Version != Version {
		t.Errorf("version = %q, want %s", data.Version, Version)
	}
	if data.Store != "sqlite" {
		t.Errorf("store = %q, want sqlite", data.Store)
	}
}

func TestSession_FullRun(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv, threeProcs)
	base := "/api/v1/sessions/" + id

	do(t, srv, "POST", base+"/start", "", http.StatusOK)

	env := do(t, srv, "POST", base+"/step", "", http.StatusOK)
	var step stepResponse
	decodeData(t, env, &step)
	if step.Event.Kind != model.EventProcessExecuted || step.Event.ProcessID != 1 || step.Event.End != 4 {
		t.Errorf("first event = %+v, want P1 executed until 4", step.Event)
	}
	if step.Snapshot.Time != 4 || step.Snapshot.Completed != 1 {
		t.Errorf("snapshot time=%d completed=%d, want 4/1", step.Snapshot.Time, step.Snapshot.Completed)
	}
	if len(step.Snapshot.ReadyQueue) != 2 || step.Snapshot.ReadyQueue[0].ProcessID != 2 {
		t.Errorf("ready queue = %+v, want P2 first", step.Snapshot.ReadyQueue)
	}

	env = do(t, srv, "POST", base+"/run", "", http.StatusOK)
	var run runResponse
	decodeData(t, env, &run)
	if len(run.Events) != 2 {
		t.Fatalf("run events = %d, want 2", len(run.Events))
	}
	if !run.Events[1].RunComplete {
		t.Error("last event should complete the run")
	}

	m := run.Metrics
	wantCompletion := []int{4, 7, 8}
	wantWaiting := []int{0, 3, 5}
	for i, pm := range m.Processes {
		if pm.Completion != wantCompletion[i] || pm.Waiting != wantWaiting[i] {
			t.Errorf("P%d completion=%d waiting=%d, want %d/%d",
				pm.ID, pm.Completion, pm.Waiting, wantCompletion[i], wantWaiting[i])
		}
	}
	if m.AvgWaiting < 2.66 || m.AvgWaiting > 2.67 {
		t.Errorf("avg waiting = %f, want 2.666", m.AvgWaiting)
	}

	env = do(t, srv, "GET", base+"/metrics", "", http.StatusOK)
	var again model.RunMetrics
	decodeData(t, env, &again)
	if again.TotalTime != 8 {
		t.Errorf("total_time = %d, want 8", again.TotalTime)
	}

	env = do(t, srv, "GET", base+"/events?after=1", "", http.StatusOK)
	var events []model.Event
	decodeData(t, env, &events)
	if len(events) != 2 || events[0].Seq != 2 {
		t.Errorf("events after 1 = %+v, want seq 2 and 3", events)
	}

	// Step after completion is rejected and does not mutate anything.
	env = do(t, srv, "POST", base+"/step", "", http.StatusConflict)
	if env.Error.Code != model.ErrInvalidState {
		t.Errorf("error code = %s, want INVALID_STATE", env.Error.Code)
	}
	env = do(t, srv, "GET", base, "", http.StatusOK)
	var snap model.Snapshot
	decodeData(t, env, &snap)
	if snap.Time != 8 || snap.State != model.EngineStateCompleted {
		t.Errorf("snapshot after rejected step = %s/%d, want COMPLETED/8", snap.State, snap.Time)
	}
}

func TestSession_ValidationErrors(t *testing.T) {
	srv := testServer(t)

	tests := []struct {
		name      string
		body      string
		wantField string
	}{
		{"invalid json", "not json", ""},
		{"empty set", `{"processes":[]}`, "processes"},
		{"zero burst", `{"processes":[{"arrival":0,"burst":0,"priority":1}]}`, "processes[0].burst"},
		{"negative arrival", `{"processes":[{"arrival":-1,"burst":1,"priority":1}]}`, "processes[0].arrival"},
		{"fractional priority", `{"processes":[{"arrival":0,"burst":1,"priority":1.5}]}`, "processes[0].priority"},
		{"missing field", `{"processes":[{"arrival":0,"burst":1}]}`, "processes[0].priority"},
		{"huge arrival string", `{"processes":[{"arrival":"1000000000000","burst":1,"priority":1}]}`, "processes[0].arrival"},
		{"overflowing burst", `{"processes":[{"arrival":0,"burst":9223372036854775807,"priority":1}]}`, "processes[0].burst"},
		{"past horizon", `{"processes":[{"arrival":99999,"burst":1,"priority":1},{"arrival":0,"burst":1,"priority":1}]}`, "processes"},
		{"both sources", `{"workload_id":"wl_x","processes":[{"arrival":0,"burst":1,"priority":1}]}`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := do(t, srv, "POST", "/api/v1/sessions/", tt.body, http.StatusBadRequest)
			if env.Status != "error" || env.Error.Code != model.ErrValidation {
				t.Fatalf("error = %+v, want VALIDATION_ERROR", env.Error)
			}
			if tt.wantField == "" {
				return
			}
			found := false
			for _, d := range env.Error.Details {
				if d.Field == tt.wantField {
					found = true
				}
			}
			if !found {
				t.Errorf("details = %+v, want field %s", env.Error.Details, tt.wantField)
			}
		})
	}

	env := do(t, srv, "GET", "/api/v1/sessions/", "", http.StatusOK)
	if env.Pagination.Total != 0 {
		t.Errorf("sessions = %d, want 0 after rejected creates", env.Pagination.Total)
	}
}

func TestSession_StateErrors(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv, threeProcs)
	base := "/api/v1/sessions/" + id

	env := do(t, srv, "POST", base+"/step", "", http.StatusConflict)
	if env.Error.Code != model.ErrInvalidState {
		t.Errorf("step before start: code = %s, want INVALID_STATE", env.Error.Code)
	}
	do(t, srv, "GET", base+"/metrics", "", http.StatusConflict)
	do(t, srv, "GET", base+"/export", "", http.StatusConflict)

	do(t, srv, "POST", base+"/start", "", http.StatusOK)
	do(t, srv, "POST", base+"/start", "", http.StatusConflict)

	env = do(t, srv, "POST", base+"/reset", "", http.StatusOK)
	var snap model.Snapshot
	decodeData(t, env, &snap)
	if snap.State != model.EngineStateIdle {
		t.Errorf("state after reset = %s, want IDLE", snap.State)
	}
}

func TestSession_NotFound(t *testing.T) {
	srv := testServer(t)
	for _, path := range []string{"/api/v1/sessions/sess_missing", "/api/v1/sessions/sess_missing/metrics", "/api/v1/sse/sessions/sess_missing"} {
		env := do(t, srv, "GET", path, "", http.StatusNotFound)
		if env.Error.Code != model.ErrNotFound {
			t.Errorf("%s: code = %s, want NOT_FOUND", path, env.Error.Code)
		}
	}
	do(t, srv, "POST", "/api/v1/sessions/sess_missing/step", "", http.StatusNotFound)
	do(t, srv, "DELETE", "/api/v1/sessions/sess_missing", "", http.StatusNotFound)
}

func TestSession_DeleteAndList(t *testing.T) {
	srv := testServer(t)
	a := createSession(t, srv, threeProcs)
	createSession(t, srv, threeProcs)

	env := do(t, srv, "GET", "/api/v1/sessions/", "", http.StatusOK)
	if env.Pagination.Total != 2 {
		t.Fatalf("sessions = %d, want 2", env.Pagination.Total)
	}

	do(t, srv, "DELETE", "/api/v1/sessions/"+a, "", http.StatusOK)
	do(t, srv, "GET", "/api/v1/sessions/"+a, "", http.StatusNotFound)
}

func TestExport(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv, threeProcs)
	do(t, srv, "POST", "/api/v1/sessions/"+id+"/run", "", http.StatusOK)

	req := httptest.NewRequest("GET", "/api/v1/sessions/"+id+"/export?format=csv", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status=%d, want 200, body=%s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("content type = %q, want text/csv", ct)
	}
	lines := strings.Split(strings.TrimSpace(w.Body.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("csv lines = %d, want header + 3", len(lines))
	}
	if !strings.HasPrefix(lines[3], "3,2,1,4,7,8,6,5,5") {
		t.Errorf("P3 row = %q", lines[3])
	}

	do(t, srv, "GET", "/api/v1/sessions/"+id+"/export?format=xml", "", http.StatusBadRequest)
}

func TestWorkloads_CRUD(t *testing.T) {
	srv := testServer(t)

	body := `{"name":"textbook","description":"three processes","labels":{"course":"os"},` + threeProcs[1:]
	env := do(t, srv, "POST", "/api/v1/workloads/", body, http.StatusCreated)
	var wl model.Workload
	decodeData(t, env, &wl)
	if !strings.HasPrefix(wl.ID, "wl_") {
		t.Errorf("id = %q, want wl_ prefix", wl.ID)
	}
	if len(wl.Processes) != 3 {
		t.Errorf("processes = %d, want 3", len(wl.Processes))
	}

	env = do(t, srv, "GET", "/api/v1/workloads/?name=text", "", http.StatusOK)
	if env.Pagination.Total != 1 {
		t.Errorf("filtered total = %d, want 1", env.Pagination.Total)
	}
	env = do(t, srv, "GET", "/api/v1/workloads/?name=nomatch", "", http.StatusOK)
	if env.Pagination.Total != 0 {
		t.Errorf("nomatch total = %d, want 0", env.Pagination.Total)
	}

	// Sessions can be created from a stored workload.
	id := createSession(t, srv, `{"workload_id":"`+wl.ID+`"}`)
	env = do(t, srv, "POST", "/api/v1/sessions/"+id+"/run", "", http.StatusOK)
	var run runResponse
	decodeData(t, env, &run)
	if run.Metrics.TotalTime != 8 {
		t.Errorf("total time = %d, want 8", run.Metrics.TotalTime)
	}

	do(t, srv, "DELETE", "/api/v1/workloads/"+wl.ID, "", http.StatusOK)
	do(t, srv, "GET", "/api/v1/workloads/"+wl.ID, "", http.StatusNotFound)
	do(t, srv, "DELETE", "/api/v1/workloads/"+wl.ID, "", http.StatusNotFound)
	do(t, srv, "POST", "/api/v1/sessions/", `{"workload_id":"`+wl.ID+`"}`, http.StatusNotFound)
}

func TestWorkloads_Invalid(t *testing.T) {
	srv := testServer(t)
	do(t, srv, "POST", "/api/v1/workloads/", `{"name":"","processes":[{"arrival":0,"burst":1,"priority":1}]}`, http.StatusBadRequest)
	do(t, srv, "POST", "/api/v1/workloads/", `{"name":"x","processes":[{"arrival":0,"burst":1,"priority":0}]}`, http.StatusBadRequest)
}

func TestSSE_StreamsEvents(t *testing.T) {
	srv := testServer(t)
	id := createSession(t, srv, threeProcs)

	ts := httptest.NewServer(srv)
	defer ts.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, _ := http.NewRequestWithContext(ctx, "GET", ts.URL+"/api/v1/sse/sessions/"+id, nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	sc := bufio.NewScanner(resp.Body)
	var kinds []string
	next := func() string {
		for sc.Scan() {
			if name, ok := strings.CutPrefix(sc.Text(), "event: "); ok {
				return name
			}
		}
		return ""
	}

	if got := next(); got != "init" {
		t.Fatalf("first sse event = %q, want init", got)
	}
	do(t, srv, "POST", "/api/v1/sessions/"+id+"/run", "", http.StatusOK)
	for {
		k := next()
		if k == "" {
			break
		}
		kinds = append(kinds, k)
		if k == "complete" {
			break
		}
	}
	want := []string{"event", "event", "event", "complete"}
	if strings.Join(kinds, ",") != strings.Join(want, ",") {
		t.Errorf("sse events = %v, want %v", kinds, want)
	}
}

func TestResponseEnvelope_RequestID(t *testing.T) {
	srv := testServer(t)
	env := do(t, srv, "GET", "/api/v1/health", "", http.StatusOK)
	if !strings.HasPrefix(env.RequestID, "req_") {
		t.Errorf("request_id = %q, want req_ prefix", env.RequestID)
	}
	if env.Timestamp == "" {
		t.Error("timestamp is empty")
	}

	req := httptest.NewRequest("GET", "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "req_client01")
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if got := w.Header().Get("X-Request-ID"); got != "req_client01" {
		t.Errorf("X-Request-ID = %q, want the client value", got)
	}
}

func TestRootRedirectsToUI(t *testing.T) {
	srv := testServer(t)
	req := httptest.NewRequest("GET", "/", nil)
	w := httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/ui/" {
		t.Errorf("status=%d location=%q, want 302 to /ui/", w.Code, w.Header().Get("Location"))
	}

	req = httptest.NewRequest("GET", "/ui/", nil)
	w = httptest.NewRecorder()
	srv.ServeHTTP(w, req)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "New session") {
		t.Errorf("ui dashboard status=%d", w.Code)
	}
}
