package model

// ProcessMetrics holds the final timing record of one process.
type ProcessMetrics struct {
	ID         int `json:"id" yaml:"id"`
	Arrival    int `json:"arrival" yaml:"arrival"`
	Burst      int `json:"burst" yaml:"burst"`
	Priority   int `json:"priority" yaml:"priority"`
	Start      int `json:"start" yaml:"start"`
	Completion int `json:"completion" yaml:"completion"`
	Turnaround int `json:"turnaround" yaml:"turnaround"`
	Waiting    int `json:"waiting" yaml:"waiting"`
	Response   int `json:"response" yaml:"response"`
}

// RunMetrics holds per-process records (ordered by id) and run aggregates.
type RunMetrics struct {
	Processes      []ProcessMetrics `json:"processes" yaml:"processes"`
	AvgTurnaround  float64          `json:"avg_turnaround" yaml:"avg_turnaround"`
	AvgWaiting     float64          `json:"avg_waiting" yaml:"avg_waiting"`
	AvgResponse    float64          `json:"avg_response" yaml:"avg_response"`
	TotalTime      int              `json:"total_time" yaml:"total_time"`
	IdleTicks      int              `json:"idle_ticks" yaml:"idle_ticks"`
	BusyTicks      int              `json:"busy_ticks" yaml:"busy_ticks"`
	CPUUtilization float64          `json:"cpu_utilization" yaml:"cpu_utilization"`
	Throughput     float64          `json:"throughput" yaml:"throughput"`
}
