package ui

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/me/priosim/internal/session"
	"github.com/me/priosim/internal/workload"
	"github.com/me/priosim/pkg/model"
)

// HandleDashboard lists sessions and offers the new-session form.
func (ui *UI) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ui.renderDashboard(w, r, http.StatusOK, "", "", nil)
}

func (ui *UI) renderDashboard(w http.ResponseWriter, r *http.Request, status int, input, flash string, details []model.FieldError) {
	sessions := ui.sessions.List()
	counts := map[string]int{}
	for _, s := range sessions {
		counts[string(s.State)]++
	}

	if input == "" {
		input = "0,4,2\n1,3,1\n2,1,4\n"
	}
	ui.render(w, status, "dashboard", map[string]any{
		"Title":     "Sessions - priosim",
		"Sessions":  sessions,
		"Counts":    counts,
		"Workloads": ui.recentWorkloads(r.Context()),
		"Input":     input,
		"Error":     flash,
		"Details":   details,
		"Uptime":    time.Since(ui.startTime).Round(time.Second).String(),
	})
}

// HandleSessionCreate creates a session from the form: the sample workload,
// a stored workload id, or arrival,burst,priority rows.
func (ui *UI) HandleSessionCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		ui.renderDashboard(w, r, http.StatusBadRequest, "", "Invalid form: "+err.Error(), nil)
		return
	}

	var specs []model.ProcessSpec
	workloadID := r.PostForm.Get("workload_id")
	input := r.PostForm.Get("processes")

	switch {
	case r.PostForm.Get("sample") != "":
		specs = workload.Sample().Processes
	case workloadID != "":
		if ui.store == nil {
			ui.renderDashboard(w, r, http.StatusBadRequest, input, "No workload library configured", nil)
			return
		}
		wl, err := ui.store.GetWorkload(r.Context(), workloadID)
		if err != nil {
			ui.logger.Error("get workload failed", "id", workloadID, "error", err)
			ui.renderDashboard(w, r, http.StatusInternalServerError, input, "Failed to load workload "+workloadID, nil)
			return
		}
		if wl == nil {
			ui.renderDashboard(w, r, http.StatusNotFound, input, fmt.Sprintf("Workload %s not found", workloadID), nil)
			return
		}
		specs = wl.Processes
	default:
		var err error
		specs, err = workload.ParseCSV(strings.NewReader(input))
		if err != nil {
			ui.renderFormError(w, r, input, err)
			return
		}
	}

	sess, err := ui.sessions.Create(specs, workloadID)
	if err != nil {
		ui.renderFormError(w, r, input, err)
		return
	}
	http.Redirect(w, r, "/ui/sessions/"+sess.ID, http.StatusSeeOther)
}

func (ui *UI) renderFormError(w http.ResponseWriter, r *http.Request, input string, err error) {
	var apiErr *model.APIError
	if errors.As(err, &apiErr) {
		status := http.StatusBadRequest
		if apiErr.Code == model.ErrConflict {
			status = http.StatusConflict
		}
		ui.renderDashboard(w, r, status, input, apiErr.Message, apiErr.Details)
		return
	}
	ui.renderDashboard(w, r, http.StatusBadRequest, input, err.Error(), nil)
}

// HandleSessionDetail renders the state, ready queue, Gantt chart, event log
// and, once completed, the results of a session.
func (ui *UI) HandleSessionDetail(w http.ResponseWriter, r *http.Request) {
	sess := ui.sessions.Get(chi.URLParam(r, "id"))
	if sess == nil {
		ui.renderNotFound(w, "Session not found")
		return
	}
	ui.renderSession(w, http.StatusOK, sess, r.URL.Query().Get("error"))
}

func (ui *UI) renderSession(w http.ResponseWriter, status int, sess *session.Session, flash string) {
	snap := sess.Snapshot()
	data := map[string]any{
		"Title":    "Session " + sess.ID + " - priosim",
		"ID":       sess.ID,
		"Snapshot": snap,
		"Gantt":    ganttBlocks(snap.Timeline, snap.Time),
		"Events":   sess.Events(0),
		"Error":    flash,
	}
	if snap.State == model.EngineStateCompleted {
		if m, err := sess.Metrics(); err == nil {
			data["Metrics"] = m
		}
	}
	ui.render(w, status, "session", data)
}

// HandleSessionAction runs start, step, run or reset and redirects back to the
// session page.
func (ui *UI) HandleSessionAction(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	sess := ui.sessions.Get(id)
	if sess == nil {
		ui.renderNotFound(w, "Session not found")
		return
	}

	var err error
	switch action := chi.URLParam(r, "action"); action {
	case "start":
		err = sess.Start()
	case "step":
		_, err = sess.Step()
	case "run":
		_, err = sess.Run(r.Context())
	case "reset":
		sess.Reset()
	default:
		ui.renderNotFound(w, "Unknown action "+action)
		return
	}
	if err != nil {
		ui.renderSession(w, http.StatusConflict, sess, err.Error())
		return
	}
	http.Redirect(w, r, "/ui/sessions/"+id, http.StatusSeeOther)
}

// HandleSessionDelete deletes a session and returns to the dashboard.
func (ui *UI) HandleSessionDelete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !ui.sessions.Delete(id) {
		ui.renderNotFound(w, "Session not found")
		return
	}
	ui.logger.Info("session deleted from ui", "id", id)
	http.Redirect(w, r, "/ui/", http.StatusSeeOther)
}

// ganttBlock is one drawn segment of the timeline.
type ganttBlock struct {
	Label   string
	Start   int
	End     int
	Idle    bool
	Percent float64
}

// ganttBlocks expands slices into blocks including idle gaps, with widths as
// a percentage of total.
func ganttBlocks(slices []model.Slice, total int) []ganttBlock {
	if total == 0 {
		return nil
	}
	pct := func(ticks int) float64 { return float64(ticks) * 100 / float64(total) }

	var blocks []ganttBlock
	cursor := 0
	for _, s := range slices {
		if s.Start > cursor {
			blocks = append(blocks, ganttBlock{Label: "idle", Start: cursor, End: s.Start, Idle: true, Percent: pct(s.Start - cursor)})
		}
		blocks = append(blocks, ganttBlock{Label: fmt.Sprintf("P%d", s.ProcessID), Start: s.Start, End: s.End, Percent: pct(s.End - s.Start)})
		cursor = s.End
	}
	if total > cursor {
		blocks = append(blocks, ganttBlock{Label: "idle", Start: cursor, End: total, Idle: true, Percent: pct(total - cursor)})
	}
	return blocks
}
