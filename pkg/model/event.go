package model

// EventKind identifies what a single engine step did.
type EventKind string

const (
	EventTimeAdvanced    EventKind = "TIME_ADVANCED"
	EventProcessExecuted EventKind = "PROCESS_EXECUTED"
	EventRunComplete     EventKind = "RUN_COMPLETE"
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	return string(k)
}

// Event is emitted by exactly one engine step.
//
//   - TIME_ADVANCED: Time is the new time cursor.
//   - PROCESS_EXECUTED: ProcessID ran from Start to End; Time equals End.
//     RunComplete is set when this execution finished the last process.
//   - RUN_COMPLETE: Time is the final time cursor.
type Event struct {
	Seq         int       `json:"seq"`
	Kind        EventKind `json:"kind"`
	Time        int       `json:"time"`
	ProcessID   int       `json:"process_id,omitempty"`
	Start       int       `json:"start,omitempty"`
	End         int       `json:"end,omitempty"`
	RunComplete bool      `json:"run_complete"`
}

// Slice is one block of a Gantt timeline.
type Slice struct {
	ProcessID int `json:"process_id"`
	Start     int `json:"start"`
	End       int `json:"end"`
}

// ReadyEntry is one process in the ready queue, in selection order.
type ReadyEntry struct {
	ProcessID int `json:"process_id"`
	Priority  int `json:"priority"`
	Arrival   int `json:"arrival"`
}

// Snapshot is a read-only view of an engine between steps.
type Snapshot struct {
	State      EngineState  `json:"state"`
	Time       int          `json:"time"`
	Completed  int          `json:"completed"`
	Total      int          `json:"total"`
	IdleTicks  int          `json:"idle_ticks"`
	ReadyQueue []ReadyEntry `json:"ready_queue"`
	Timeline   []Slice      `json:"timeline"`
	Processes  []Process    `json:"processes"`
}
