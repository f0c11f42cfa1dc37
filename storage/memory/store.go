// memory based implementation for tests and ephemeral deployments
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/storage"
)

// Store implements storage.Storage interface using an in-memory map
type Store struct {
	mu    sync.RWMutex
	tasks map[string]*model.Task
	now   func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		tasks: make(map[string]*model.Task),
		now:   time.Now,
	}
}

func (s *Store) GetTask(_ context.Context, id string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.tasks[id]
	if !ok {
		return nil, storage.NotFound(id)
	}
	return task.Clone(), nil
}

func (s *Store) ListTasks(_ context.Context) ([]*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*model.Task, 0, len(s.tasks))
	for _, task := range s.tasks {
		tasks = append(tasks, task.Clone())
	}
	storage.SortTasks(tasks)
	return tasks, nil
}

func (s *Store) CreateTask(_ context.Context, task *model.Task) error {
	if err := storage.CheckTask(task); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[task.ID]; exists {
		return storage.AlreadyExists(task.ID)
	}

	now := s.now()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now
	if err := storage.Stamp(task); err != nil {
		return err
	}
	s.tasks[task.ID] = task.Clone()
	return nil
}

// UpdateTask holds the write lock for the whole read-modify-write, which
// linearizes updates.
func (s *Store) UpdateTask(_ context.Context, id string, fn func(*model.Task) error) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.tasks[id]
	if !ok {
		return nil, storage.NotFound(id)
	}

	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	updated.ID = id
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.now()
	if err := storage.Stamp(updated); err != nil {
		return nil, err
	}
	s.tasks[id] = updated
	return updated.Clone(), nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tasks[id]; !ok {
		return storage.NotFound(id)
	}
	delete(s.tasks, id)
	return nil
}

func (s *Store) Close() error {
	return nil
}
