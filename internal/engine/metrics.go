package engine

import "github.com/me/priosim/pkg/model"

// ComputeMetrics derives turnaround, waiting and response times for every
// process and their arithmetic means. It is only valid once COMPLETED.
func (e *Engine) ComputeMetrics() (*model.RunMetrics, error) {
	if e.state != model.EngineStateCompleted {
		return nil, &model.InvalidStateError{Op: "compute metrics", State: e.state}
	}
	procs := e.reg.Processes()
	if len(procs) == 0 {
		return nil, model.ErrEmptyRun
	}

	m := &model.RunMetrics{
		Processes: make([]model.ProcessMetrics, 0, len(procs)),
		TotalTime: e.clock,
		IdleTicks: e.idle,
	}
	var sumTAT, sumWT, sumRT int
	for _, p := range procs {
		pm := model.ProcessMetrics{
			ID:         p.ID,
			Arrival:    p.Arrival,
			Burst:      p.Burst,
			Priority:   p.Priority,
			Start:      *p.Start,
			Completion: *p.Completion,
			Turnaround: p.Turnaround(),
			Waiting:    p.Waiting(),
			Response:   p.Response(),
		}
		m.Processes = append(m.Processes, pm)
		sumTAT += pm.Turnaround
		sumWT += pm.Waiting
		sumRT += pm.Response
		m.BusyTicks += p.Burst
	}

	n := float64(len(procs))
	m.AvgTurnaround = float64(sumTAT) / n
	m.AvgWaiting = float64(sumWT) / n
	m.AvgResponse = float64(sumRT) / n
	if m.TotalTime > 0 {
		m.CPUUtilization = float64(m.BusyTicks) / float64(m.TotalTime)
		m.Throughput = n / float64(m.TotalTime)
	}
	return m, nil
}
