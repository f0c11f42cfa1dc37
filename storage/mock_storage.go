package storage

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/cyp0633/chorecal/model"
)

// MockStorage implements the Storage interface for testing
type MockStorage struct {
	mock.Mock
}

var _ Storage = (*MockStorage)(nil)

func (m *MockStorage) GetTask(ctx context.Context, id string) (*model.Task, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Task), args.Error(1)
}

func (m *MockStorage) ListTasks(ctx context.Context) ([]*model.Task, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Task), args.Error(1)
}

func (m *MockStorage) CreateTask(ctx context.Context, task *model.Task) error {
	args := m.Called(ctx, task)
	return args.Error(0)
}

// UpdateTask implements the Storage interface. When the first return value
// is a *model.Task, fn is applied to a copy of it and the copy is returned,
// so tests observe what the service changed.
func (m *MockStorage) UpdateTask(ctx context.Context, id string, fn func(*model.Task) error) (*model.Task, error) {
	args := m.Called(ctx, id, fn)
	if err := args.Error(1); err != nil {
		return nil, err
	}
	current, ok := args.Get(0).(*model.Task)
	if !ok || current == nil {
		return nil, nil
	}
	updated := current.Clone()
	if err := fn(updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (m *MockStorage) DeleteTask(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

// --- Helper methods for creating test data ---

// NewMockTask creates a test Task with basic properties
func NewMockTask(id, title string) *model.Task {
	return &model.Task{
		ID:    id,
		Title: title,
		ETag:  `"` + id + `"`,
	}
}
