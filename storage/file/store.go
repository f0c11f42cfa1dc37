// Package file persists tasks as a single JSON document on disk.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cyp0633/chorecal/model"
	"github.com/cyp0633/chorecal/storage"
)

type fileState struct {
	Tasks map[string]*model.Task `json:"tasks"`
}

func newFileState() fileState {
	return fileState{Tasks: map[string]*model.Task{}}
}

// Store implements storage.Storage on top of a JSON file. The whole file
// is rewritten on every change.
type Store struct {
	mu   sync.RWMutex
	path string
	s    fileState
	now  func() time.Time
}

var _ storage.Storage = (*Store)(nil)

// New opens the store at path, creating parent directories as needed. A
// missing file is an empty store.
func New(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, storage.Unavailable("failed to create data directory", err)
	}
	st := &Store{
		path: path,
		s:    newFileState(),
		now:  time.Now,
	}
	if err := st.load(); err != nil {
		return nil, err
	}
	return st, nil
}

func (s *Store) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			s.s = newFileState()
			return nil
		}
		return storage.Unavailable("failed to read task file", err)
	}
	if len(b) == 0 {
		s.s = newFileState()
		return nil
	}

	var loaded fileState
	if err := json.Unmarshal(b, &loaded); err != nil {
		return storage.Unavailable(fmt.Sprintf("failed to decode %s", s.path), err)
	}
	if loaded.Tasks == nil {
		loaded.Tasks = map[string]*model.Task{}
	}
	s.s = loaded
	return nil
}

// saveLocked writes the state to a temporary file and renames it over the
// target so readers never see a partial document.
func (s *Store) saveLocked() error {
	b, err := json.MarshalIndent(s.s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode tasks: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return storage.Unavailable("failed to create temporary file", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(b); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return storage.Unavailable("failed to write task file", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return storage.Unavailable("failed to write task file", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return storage.Unavailable("failed to replace task file", err)
	}
	return nil
}

func (s *Store) GetTask(_ context.Context, id string) (*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	task, ok := s.s.Tasks[id]
	if !ok {
		return nil, storage.NotFound(id)
	}
	return task.Clone(), nil
}

func (s *Store) ListTasks(_ context.Context) ([]*model.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	tasks := make([]*model.Task, 0, len(s.s.Tasks))
	for _, task := range s.s.Tasks {
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

	if _, exists := s.s.Tasks[task.ID]; exists {
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

	s.s.Tasks[task.ID] = task.Clone()
	if err := s.saveLocked(); err != nil {
		delete(s.s.Tasks, task.ID)
		return err
	}
	return nil
}

func (s *Store) UpdateTask(_ context.Context, id string, fn func(*model.Task) error) (*model.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.s.Tasks[id]
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

	s.s.Tasks[id] = updated
	if err := s.saveLocked(); err != nil {
		s.s.Tasks[id] = current
		return nil, err
	}
	return updated.Clone(), nil
}

func (s *Store) DeleteTask(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.s.Tasks[id]
	if !ok {
		return storage.NotFound(id)
	}
	delete(s.s.Tasks, id)
	if err := s.saveLocked(); err != nil {
		s.s.Tasks[id] = current
		return err
	}
	return nil
}

func (s *Store) Close() error {
	return nil
}
