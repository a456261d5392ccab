package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/me/priosim/pkg/model"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and returns a Store.
// Use ":memory:" for an in-memory database (useful in tests).
func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	if dbPath == ":memory:" {
		// Each connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma wal: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Migrate creates all required tables and indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	s.logger.Debug("sql", "op", "migrate")
	return migrate(ctx, s.db)
}

// --- Workload CRUD ---

func (s *SQLiteStore) CreateWorkload(ctx context.Context, wl *model.Workload) error {
	s.logger.Debug("sql", "op", "insert", "table", "workloads", "id", wl.ID)

	processesJSON, err := json.Marshal(wl.Processes)
	if err != nil {
		return fmt.Errorf("marshal processes: %w", err)
	}
	labels := wl.Labels
	if labels == nil {
		labels = map[string]string{}
	}
	labelsJSON, err := json.Marshal(labels)
	if err != nil {
		return fmt.Errorf("marshal labels: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO workloads (id, name, description, processes, labels, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		wl.ID, wl.Name, wl.Description, string(processesJSON), string(labelsJSON),
		wl.CreatedAt.Format(time.RFC3339Nano),
	)
	return err
}

func (s *SQLiteStore) GetWorkload(ctx context.Context, id string) (*model.Workload, error) {
	s.logger.Debug("sql", "op", "select", "table", "workloads", "id", id)

	wl, err := scanWorkload(s.db.QueryRowContext(ctx,
		`SELECT id, name, description, processes, labels, created_at
		 FROM workloads WHERE id = ?`, id,
	))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return wl, nil
}

func (s *SQLiteStore) ListWorkloads(ctx context.Context, opts model.ListOptions) ([]*model.Workload, int, error) {
	s.logger.Debug("sql", "op", "list", "table", "workloads", "limit", opts.Limit, "offset", opts.Offset)
	opts.Clamp()

	whereSQL := ""
	var countArgs []any
	if opts.Name != "" {
		whereSQL = " WHERE name LIKE ?"
		countArgs = append(countArgs, "%"+opts.Name+"%")
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM workloads`+whereSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT id, name, description, processes, labels, created_at
		FROM workloads` + whereSQL + ` ORDER BY created_at DESC LIMIT ? OFFSET ?`
	listArgs := append(countArgs, opts.Limit, opts.Offset)

	rows, err := s.db.QueryContext(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var workloads []*model.Workload
	for rows.Next() {
		wl, err := scanWorkload(rows)
		if err != nil {
			return nil, 0, err
		}
		workloads = append(workloads, wl)
	}
	return workloads, total, rows.Err()
}

func (s *SQLiteStore) DeleteWorkload(ctx context.Context, id string) error {
	s.logger.Debug("sql", "op", "delete", "table", "workloads", "id", id)

	result, err := s.db.ExecContext(ctx, `DELETE FROM workloads WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, _ := result.RowsAffected()
	if n == 0 {
		return model.NewNotFoundError("workload", id)
	}
	return nil
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanWorkload(row scanner) (*model.Workload, error) {
	var wl model.Workload
	var processesJSON, labelsJSON, createdAt string

	if err := row.Scan(&wl.ID, &wl.Name, &wl.Description, &processesJSON, &labelsJSON, &createdAt); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(processesJSON), &wl.Processes); err != nil {
		return nil, fmt.Errorf("unmarshal processes: %w", err)
	}
	if err := json.Unmarshal([]byte(labelsJSON), &wl.Labels); err != nil {
		return nil, fmt.Errorf("unmarshal labels: %w", err)
	}
	wl.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	return &wl, nil
}
