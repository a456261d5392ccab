package model

import "time"

// Workload is a named, stored process set that sessions can be created from.
type Workload struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Processes   []ProcessSpec     `json:"processes"`
	Labels      map[string]string `json:"labels,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SessionInfo summarises a simulation session for listings.
type SessionInfo struct {
	ID         string      `json:"id"`
	WorkloadID string      `json:"workload_id,omitempty"`
	State      EngineState `json:"state"`
	Time       int         `json:"time"`
	Completed  int         `json:"completed"`
	Total      int         `json:"total"`
	CreatedAt  time.Time   `json:"created_at"`
}
