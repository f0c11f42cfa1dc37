// Package storage defines the persistence contract for tasks. Backends live
// in the memory, file and postgres subpackages.
package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/cyp0633/chorecal/model"
)

// Storage connects the task service with a backend. Implementations must
// return (or wrap) the sentinel errors below so callers can match them with
// errors.Is. Returned tasks are copies; mutating them does not change the
// stored record.
type Storage interface {
	// GetTask returns the task with the given ID.
	GetTask(ctx context.Context, id string) (*model.Task, error)
	// ListTasks returns every task, ordered by creation time.
	ListTasks(ctx context.Context) ([]*model.Task, error)
	// CreateTask stores a new task. The implementation sets its ETag.
	CreateTask(ctx context.Context, task *model.Task) error
	// UpdateTask loads the task, applies fn and stores the result. Calls for
	// the same task are linearized: no concurrent UpdateTask observes a
	// stale record. If fn returns an error nothing is written.
	UpdateTask(ctx context.Context, id string, fn func(*model.Task) error) (*model.Task, error)
	// DeleteTask removes a task.
	DeleteTask(ctx context.Context, id string) error
	// Close releases backend resources.
	Close() error
}

var (
	// ErrNotFound is returned when a requested task doesn't exist
	ErrNotFound = errors.New("task not found")
	// ErrInvalidInput is returned when the input parameters are invalid
	ErrInvalidInput = errors.New("invalid input parameters")
	// ErrConflict is returned when a task with the same ID already exists
	ErrConflict = errors.New("task conflict")
	// ErrPreconditionFailed is returned when an If-Match ETag does not match
	ErrPreconditionFailed = errors.New("precondition failed")
	// ErrStorageUnavailable is returned when the storage backend is unavailable
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// ErrorType classifies an Error.
type ErrorType string

const (
	TypeNotFound      ErrorType = "not_found"
	TypeAlreadyExists ErrorType = "already_exists"
	TypeInvalidInput  ErrorType = "invalid_input"
	TypeUnavailable   ErrorType = "unavailable"
)

// Error represents a storage-related error. It matches the sentinel of its
// type under errors.Is.
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	switch e.Type {
	case TypeNotFound:
		return target == ErrNotFound
	case TypeAlreadyExists:
		return target == ErrConflict
	case TypeInvalidInput:
		return target == ErrInvalidInput
	case TypeUnavailable:
		return target == ErrStorageUnavailable
	}
	return false
}

// NotFound builds the error returned for a missing task.
func NotFound(id string) error {
	return &Error{Type: TypeNotFound, Message: fmt.Sprintf("task %q not found", id)}
}

// AlreadyExists builds the error returned when creating a duplicate task.
func AlreadyExists(id string) error {
	return &Error{Type: TypeAlreadyExists, Message: fmt.Sprintf("task %q already exists", id)}
}

// Unavailable wraps a backend failure.
func Unavailable(msg string, err error) error {
	return &Error{Type: TypeUnavailable, Message: msg, Err: err}
}
