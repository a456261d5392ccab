package store

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/me/priosim/pkg/model"
)

func testStore(t *testing.T) *SQLiteStore {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, &slog.HandlerOptions{Level: slog.LevelError}))
	st, err := NewSQLiteStore(":memory:", logger)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func sampleWorkload() *model.Workload {
	return &model.Workload{
		ID:          "wl_test-1",
		Name:        "textbook",
		Description: "three processes",
		Processes: []model.ProcessSpec{
			{Arrival: 0, Burst: 4, Priority: 2},
			{Arrival: 1, Burst: 3, Priority: 1},
			{Arrival: 2, Burst: 1, Priority: 4},
		},
		Labels:    map[string]string{"course": "os"},
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}
}

// --- Migration tests ---

func TestMigrate_Idempotent(t *testing.T) {
	st := testStore(t)
	if err := st.Migrate(context.Background()); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestMigrate_WorkloadColumns(t *testing.T) {
	st := testStore(t)
	rows, err := st.db.QueryContext(context.Background(), "SELECT name FROM pragma_table_info('workloads') ORDER BY cid")
	if err != nil {
		t.Fatalf("table info: %v", err)
	}
	defer rows.Close()

	var cols []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan: %v", err)
		}
		cols = append(cols, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("rows: %v", err)
	}
	want := "id,name,description,processes,labels,created_at"
	if got := strings.Join(cols, ","); got != want {
		t.Errorf("columns = %s, want %s", got, want)
	}
}

// --- Workload CRUD tests ---

func TestCreateAndGetWorkload(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	wl := sampleWorkload()

	if err := st.CreateWorkload(ctx, wl); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := st.GetWorkload(ctx, wl.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got == nil {
		t.Fatal("got nil workload")
	}
	if got.Name != wl.Name || got.Description != wl.Description {
		t.Errorf("name/description = %q/%q", got.Name, got.Description)
	}
	if len(got.Processes) != 3 || got.Processes[1] != wl.Processes[1] {
		t.Errorf("processes = %+v", got.Processes)
	}
	if got.Labels["course"] != "os" {
		t.Errorf("labels = %v", got.Labels)
	}
	if !got.CreatedAt.Equal(wl.CreatedAt) {
		t.Errorf("created_at = %v, want %v", got.CreatedAt, wl.CreatedAt)
	}
}

func TestGetWorkload_NotFound(t *testing.T) {
	st := testStore(t)
	got, err := st.GetWorkload(context.Background(), "wl_nonexistent")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got != nil {
		t.Errorf("expected nil, got %+v", got)
	}
}

func TestCreateWorkload_DuplicateID(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	if err := st.CreateWorkload(ctx, sampleWorkload()); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.CreateWorkload(ctx, sampleWorkload()); err == nil {
		t.Error("expected primary key violation")
	}
}

func TestListWorkloads_PaginationAndFilter(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		wl := sampleWorkload()
		wl.ID = fmt.Sprintf("wl_test-%d", i)
		wl.Name = fmt.Sprintf("batch-%d", i)
		wl.CreatedAt = time.Now().UTC().Add(time.Duration(i) * time.Second)
		if err := st.CreateWorkload(ctx, wl); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	other := sampleWorkload()
	other.ID = "wl_other"
	other.Name = "interactive"
	if err := st.CreateWorkload(ctx, other); err != nil {
		t.Fatalf("create other: %v", err)
	}

	workloads, total, err := st.ListWorkloads(ctx, model.ListOptions{Limit: 2, Name: "batch"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Errorf("total = %d, want 3", total)
	}
	if len(workloads) != 2 {
		t.Fatalf("page len = %d, want 2", len(workloads))
	}
	if workloads[0].ID != "wl_test-2" {
		t.Errorf("first = %s, want wl_test-2 (newest first)", workloads[0].ID)
	}

	workloads, total, err = st.ListWorkloads(ctx, model.DefaultListOptions())
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if total != 4 || len(workloads) != 4 {
		t.Errorf("total=%d len=%d, want 4/4", total, len(workloads))
	}
}

func TestDeleteWorkload(t *testing.T) {
	st := testStore(t)
	ctx := context.Background()
	wl := sampleWorkload()
	if err := st.CreateWorkload(ctx, wl); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := st.DeleteWorkload(ctx, wl.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if got, _ := st.GetWorkload(ctx, wl.ID); got != nil {
		t.Error("workload still present after delete")
	}

	err := st.DeleteWorkload(ctx, wl.ID)
	apiErr, ok := err.(*model.APIError)
	if !ok || apiErr.Code != model.ErrNotFound {
		t.Errorf("second delete err = %v, want NOT_FOUND", err)
	}
}
