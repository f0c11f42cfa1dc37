package main

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRun(t *testing.T) {
	var stdout, stderr bytes.Buffer
	assert.Equal(t, 0, run(context.Background(), []string{"version"}, &stdout, &stderr))
	assert.Contains(t, stdout.String(), "chored version")

	stdout.Reset()
	assert.Equal(t, 1, run(context.Background(), []string{"next", "--from", "tomorrow"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "Error:")
}
