// Package postgres stores tasks as JSON documents in a PostgreSQL
// key-value table.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/storage"
)

// uniqueViolation is the SQLSTATE for duplicate keys.
const uniqueViolation = "23505"

const schema = `CREATE TABLE IF NOT EXISTS tasks (
	id         TEXT PRIMARY KEY,
	data       JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

const (
	queryGet    = `SELECT data FROM tasks WHERE id = $1`
	queryLock   = `SELECT data FROM tasks WHERE id = $1 FOR UPDATE`
	queryList   = `SELECT data FROM tasks ORDER BY created_at, id`
	queryInsert = `INSERT INTO tasks (id, data, created_at, updated_at) VALUES ($1, $2, $3, $4)`
	queryUpdate = `UPDATE tasks SET data = $2, updated_at = $3 WHERE id = $1`
	queryDelete = `DELETE FROM tasks WHERE id = $1`
)

// Store implements storage.Storage on PostgreSQL. UpdateTask runs in a
// transaction holding a row lock, so updates of one task are linearized
// across processes.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// Open connects to PostgreSQL with the pq driver and configures the pool.
func Open(ctx context.Context, dsn string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, storage.Unavailable("failed to open database", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storage.Unavailable("failed to connect to database", err)
	}
	return db, nil
}

// New wraps an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

// Migrate creates the tasks table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return storage.Unavailable("failed to create tasks table", err)
	}
	return nil
}

func decode(data []byte) (*model.Task, error) {
	var task model.Task
	if err := json.Unmarshal(data, &task); err != nil {
		return nil, fmt.Errorf("failed to decode stored task: %w", err)
	}
	return &task, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*model.Task, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, queryGet, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound(id)
	}
	if err != nil {
		return nil, storage.Unavailable("failed to load task", err)
	}
	return decode(data)
}

func (s *Store) ListTasks(ctx context.Context) ([]*model.Task, error) {
	rows, err := s.db.QueryContext(ctx, queryList)
	if err != nil {
		return nil, storage.Unavailable("failed to list tasks", err)
	}
	defer rows.Close()

	tasks := []*model.Task{}
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, storage.Unavailable("failed to scan task", err)
		}
		task, err := decode(data)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, storage.Unavailable("failed to list tasks", err)
	}
	return tasks, nil
}

func (s *Store) CreateTask(ctx context.Context, task *model.Task) error {
	if err := storage.CheckTask(task); err != nil {
		return err
	}

	now := s.now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if err := storage.Stamp(task); err != nil {
		return err
	}
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to encode task: %w", err)
	}

	_, err = s.db.ExecContext(ctx, queryInsert, task.ID, data, task.CreatedAt, task.UpdatedAt)
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return storage.AlreadyExists(task.ID)
	}
	if err != nil {
		return storage.Unavailable("failed to insert task", err)
	}
	return nil
}

func (s *Store) UpdateTask(ctx context.Context, id string, fn func(*model.Task) error) (updated *model.Task, err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storage.Unavailable("failed to begin transaction", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var data []byte
	err = tx.QueryRowContext(ctx, queryLock, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.NotFound(id)
	}
	if err != nil {
		return nil, storage.Unavailable("failed to lock task", err)
	}

	current, err := decode(data)
	if err != nil {
		return nil, err
	}
	updated = current.Clone()
	if err = fn(updated); err != nil {
		return nil, err
	}
	updated.ID = id
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.now().UTC()
	if err = storage.Stamp(updated); err != nil {
		return nil, err
	}

	data, err = json.Marshal(updated)
	if err != nil {
		return nil, fmt.Errorf("failed to encode task: %w", err)
	}
	if _, err = tx.ExecContext(ctx, queryUpdate, id, data, updated.UpdatedAt); err != nil {
		return nil, storage.Unavailable("failed to update task", err)
	}
	if err = tx.Commit(); err != nil {
		return nil, storage.Unavailable("failed to commit task update", err)
	}
	return updated, nil
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, queryDelete, id)
	if err != nil {
		return storage.Unavailable("failed to delete task", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storage.Unavailable("failed to delete task", err)
	}
	if n == 0 {
		return storage.NotFound(id)
	}
	return nil
}

func (s *Store) Close() error {
	return s.db.Close()
}
