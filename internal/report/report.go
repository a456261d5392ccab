// Package report renders simulation events and results for terminals and files.
package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/me/priosim/pkg/model"
	"github.com/olekukonko/tablewriter"
	"gopkg.in/yaml.v3"
)

// blockWidth is the number of characters drawn per tick in the Gantt chart.
const blockWidth = 3

// WriteEvent prints one status line for an engine event.
func WriteEvent(w io.Writer, ev model.Event) {
	switch ev.Kind {
	case model.EventTimeAdvanced:
		fmt.Fprintf(w, "[t=%d] no process ready, advancing time\n", ev.Time)
	case model.EventProcessExecuted:
		fmt.Fprintf(w, "[t=%d] executed P%d from %d to %d\n", ev.Time, ev.ProcessID, ev.Start, ev.End)
		if ev.RunComplete {
			fmt.Fprintf(w, "[t=%d] all processes completed\n", ev.Time)
		}
	case model.EventRunComplete:
		fmt.Fprintf(w, "[t=%d] all processes completed\n", ev.Time)
	}
}

// WriteReadyQueue prints the ready queue in selection order.
func WriteReadyQueue(w io.Writer, ready []model.ReadyEntry) {
	if len(ready) == 0 {
		fmt.Fprintln(w, "ready: (none)")
		return
	}
	parts := make([]string, len(ready))
	for i, r := range ready {
		parts[i] = fmt.Sprintf("P%d(pr %d)", r.ProcessID, r.Priority)
	}
	fmt.Fprintf(w, "ready: %s\n", strings.Join(parts, " "))
}

// WriteGantt draws the timeline as a single row of blocks with idle gaps,
// followed by the boundary times.
func WriteGantt(w io.Writer, slices []model.Slice) {
	fmt.Fprintln(w, "Gantt chart")
	if len(slices) == 0 {
		fmt.Fprintln(w, "(empty)")
		return
	}

	var bar, axis strings.Builder
	bar.WriteString("|")
	axis.WriteString("0")
	cursor := 0
	for _, s := range slices {
		if s.Start > cursor {
			writeBlock(&bar, &axis, "--", s.Start-cursor, s.Start)
		}
		writeBlock(&bar, &axis, "P"+strconv.Itoa(s.ProcessID), s.End-s.Start, s.End)
		cursor = s.End
	}
	fmt.Fprintln(w, bar.String())
	fmt.Fprintln(w, axis.String())
}

func writeBlock(bar, axis *strings.Builder, label string, ticks, end int) {
	width := ticks * blockWidth
	if width < len(label)+2 {
		width = len(label) + 2
	}
	pad := width - len(label)
	bar.WriteString(strings.Repeat(" ", pad/2) + label + strings.Repeat(" ", pad-pad/2) + "|")

	mark := strconv.Itoa(end)
	gap := width + 1 - len(mark)
	if gap < 1 {
		gap = 1
	}
	axis.WriteString(strings.Repeat(" ", gap) + mark)
}

// WriteResults renders the per-process table with averages in the footer,
// followed by the run totals.
func WriteResults(w io.Writer, m *model.RunMetrics) {
	fmt.Fprintln(w, "Results")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Process", "Arrival", "Burst", "Priority", "Start", "Completion", "Turnaround", "Waiting", "Response"})
	table.AppendBulk(Rows(m))
	table.SetFooter([]string{"", "", "", "", "", "Average",
		fmt.Sprintf("%.2f", m.AvgTurnaround),
		fmt.Sprintf("%.2f", m.AvgWaiting),
		fmt.Sprintf("%.2f", m.AvgResponse)})
	table.Render()

	fmt.Fprintf(w, "Total time: %d  Idle ticks: %d  CPU utilization: %.2f%%  Throughput: %.3f/tick\n",
		m.TotalTime, m.IdleTicks, m.CPUUtilization*100, m.Throughput)
}

// Rows returns the per-process table cells.
func Rows(m *model.RunMetrics) [][]string {
	rows := make([][]string, len(m.Processes))
	for i, p := range m.Processes {
		rows[i] = []string{
			"P" + strconv.Itoa(p.ID),
			strconv.Itoa(p.Arrival),
			strconv.Itoa(p.Burst),
			strconv.Itoa(p.Priority),
			strconv.Itoa(p.Start),
			strconv.Itoa(p.Completion),
			strconv.Itoa(p.Turnaround),
			strconv.Itoa(p.Waiting),
			strconv.Itoa(p.Response),
		}
	}
	return rows
}

// CheckFormat reports whether Export supports format.
func CheckFormat(format string) error {
	switch strings.ToLower(format) {
	case "csv", "json", "yaml", "yml":
		return nil
	default:
		return fmt.Errorf("unsupported export format %q (want csv, json or yaml)", format)
	}
}

// Export writes m in the given format: csv, json or yaml.
func Export(w io.Writer, format string, m *model.RunMetrics) error {
	switch strings.ToLower(format) {
	case "csv":
		return writeCSV(w, m)
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(m)
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(m); err != nil {
			return err
		}
		return enc.Close()
	default:
		return CheckFormat(format)
	}
}

// ContentType returns the MIME type for an export format.
func ContentType(format string) string {
	switch strings.ToLower(format) {
	case "csv":
		return "text/csv"
	case "yaml", "yml":
		return "application/yaml"
	default:
		return "application/json"
	}
}

func writeCSV(w io.Writer, m *model.RunMetrics) error {
	cw := csv.NewWriter(w)
	header := []string{"id", "arrival", "burst", "priority", "start", "completion", "turnaround", "waiting", "response"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, row := range Rows(m) {
		row[0] = strings.TrimPrefix(row[0], "P")
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
