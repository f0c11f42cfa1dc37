package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cyp0633/chorecal/model"
)

func TestComputeETag(t *testing.T) {
	a := &model.Task{ID: "1", Title: "Dishes"}
	b := &model.Task{ID: "1", Title: "Dishes", ETag: `"stale"`}
	c := &model.Task{ID: "1", Title: "Laundry"}

	ea, err := ComputeETag(a)
	require.NoError(t, err)
	eb, err := ComputeETag(b)
	require.NoError(t, err)
	ec, err := ComputeETag(c)
	require.NoError(t, err)

	assert.Equal(t, ea, eb, "the etag field itself is ignored")
	assert.NotEqual(t, ea, ec)
	assert.Regexp(t, `^"[0-9a-f]+"$`, ea)

	require.NoError(t, Stamp(b))
	assert.Equal(t, ea, b.ETag)
}

func TestMatchETag(t *testing.T) {
	tests := []struct {
		ifMatch string
		etag    string
		want    bool
	}{
		{"", `"abc"`, true},
		{"*", `"abc"`, true},
		{`"abc"`, `"abc"`, true},
		{`W/"abc"`, `"abc"`, true},
		{`"x", "abc"`, `"abc"`, true},
		{`"x"`, `"abc"`, false},
	}
	for _, tt := range tests {
		t.Run(tt.ifMatch, func(t *testing.T) {
			assert.Equal(t, tt.want, MatchETag(tt.ifMatch, tt.etag))
		})
	}
}

func TestCheckTask(t *testing.T) {
	assert.ErrorIs(t, CheckTask(nil), ErrInvalidInput)
	assert.ErrorIs(t, CheckTask(&model.Task{ID: " "}), ErrInvalidInput)
	assert.NoError(t, CheckTask(&model.Task{ID: "x"}))
}

func TestError_Is(t *testing.T) {
	tests := []struct {
		err      error
		sentinel error
	}{
		{NotFound("a"), ErrNotFound},
		{AlreadyExists("a"), ErrConflict},
		{&Error{Type: TypeInvalidInput, Message: "bad"}, ErrInvalidInput},
		{Unavailable("db down", errors.New("dial tcp")), ErrStorageUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			wrapped := fmt.Errorf("service: %w", tt.err)
			assert.ErrorIs(t, wrapped, tt.sentinel)
			assert.NotErrorIs(t, wrapped, ErrPreconditionFailed)
		})
	}

	inner := errors.New("dial tcp")
	assert.ErrorIs(t, Unavailable("db down", inner), inner)
	assert.Equal(t, "not_found: task \"a\" not found", NotFound("a").Error())
}
