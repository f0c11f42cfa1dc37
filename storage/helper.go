package storage

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/cyp0633/chorecal/model"
)

// ComputeETag derives a strong entity tag from the task content. The
// task's own ETag field is not part of the hash.
func ComputeETag(task *model.Task) (string, error) {
	c := *task
	c.ETag = ""
	data, err := json.Marshal(&c)
	if err != nil {
		return "", fmt.Errorf("failed to encode task for etag: %w", err)
	}
	return `"` + strconv.FormatUint(xxhash.Sum64(data), 16) + `"`, nil
}

// Stamp sets task.ETag from its content.
func Stamp(task *model.Task) error {
	etag, err := ComputeETag(task)
	if err != nil {
		return err
	}
	task.ETag = etag
	return nil
}

// CheckTask validates what every backend requires of a task before writing.
func CheckTask(task *model.Task) error {
	if task == nil {
		return &Error{Type: TypeInvalidInput, Message: "task is nil"}
	}
	if strings.TrimSpace(task.ID) == "" {
		return &Error{Type: TypeInvalidInput, Message: "task id is required"}
	}
	return nil
}

// MatchETag compares an If-Match header value against etag. An empty
// header or "*" matches anything; weak validators are compared by value.
func MatchETag(ifMatch, etag string) bool {
	ifMatch = strings.TrimSpace(ifMatch)
	if ifMatch == "" || ifMatch == "*" {
		return true
	}
	for _, candidate := range strings.Split(ifMatch, ",") {
		candidate = strings.TrimPrefix(strings.TrimSpace(candidate), "W/")
		if candidate == etag {
			return true
		}
	}
	return false
}

// SortTasks orders tasks by creation time, then ID.
func SortTasks(tasks []*model.Task) {
	sort.SliceStable(tasks, func(i, j int) bool {
		if !tasks[i].CreatedAt.Equal(tasks[j].CreatedAt) {
			return tasks[i].CreatedAt.Before(tasks[j].CreatedAt)
		}
		return tasks[i].ID < tasks[j].ID
	})
}
