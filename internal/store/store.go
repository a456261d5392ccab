package store

import (
	"context"

	"github.com/me/priosim/pkg/model"
)

// Store defines the persistence layer for stored workloads. Simulation runs
// themselves are never persisted.
type Store interface {
	// Workload CRUD
	CreateWorkload(ctx context.Context, wl *model.Workload) error
	GetWorkload(ctx context.Context, id string) (*model.Workload, error)
	ListWorkloads(ctx context.Context, opts model.ListOptions) ([]*model.Workload, int, error)
	DeleteWorkload(ctx context.Context, id string) error

	// Lifecycle
	Close() error
	Migrate(ctx context.Context) error
}
