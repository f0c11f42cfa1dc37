package server

import (
	"fmt"
	"strings"
)

// ResourceType represents the kind of resource a request path names
type ResourceType int

const (
	ResourceTypeTasks ResourceType = iota
	ResourceTypeTask
	ResourceTypeCompletion
	ResourceTypeOccurrences
	ResourceTypeImport
	ResourceTypeCalendar
	ResourceTypeHealth
)

// String returns the string representation of the ResourceType
func (rt ResourceType) String() string {
	switch rt {
	case ResourceTypeTasks:
		return "tasks"
	case ResourceTypeTask:
		return "task"
	case ResourceTypeCompletion:
		return "completion"
	case ResourceTypeOccurrences:
		return "occurrences"
	case ResourceTypeImport:
		return "import"
	case ResourceTypeCalendar:
		return "calendar"
	case ResourceTypeHealth:
		return "health"
	default:
		return "unknown"
	}
}

// ResourcePath represents a parsed API path
type ResourcePath struct {
	Type   ResourceType
	TaskID string
}

// String returns the string representation of the ResourcePath
func (rp *ResourcePath) String() string {
	switch rp.Type {
	case ResourceTypeTasks:
		return "/tasks"
	case ResourceTypeTask:
		return fmt.Sprintf("/tasks/%s", rp.TaskID)
	case ResourceTypeCompletion:
		return fmt.Sprintf("/tasks/%s/complete", rp.TaskID)
	case ResourceTypeOccurrences:
		return fmt.Sprintf("/tasks/%s/occurrences", rp.TaskID)
	case ResourceTypeImport:
		return "/tasks/import"
	case ResourceTypeCalendar:
		return "/calendar.ics"
	case ResourceTypeHealth:
		return "/healthz"
	default:
		return ""
	}
}

// ParseResourcePath parses an API path into its components. The segment
// "import" directly under /tasks always names the import endpoint.
func ParseResourcePath(path string) (*ResourcePath, error) {
	if path == "" {
		return nil, fmt.Errorf("empty path")
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	switch parts[0] {
	case "healthz":
		if len(parts) == 1 {
			return &ResourcePath{Type: ResourceTypeHealth}, nil
		}
	case "calendar.ics":
		if len(parts) == 1 {
			return &ResourcePath{Type: ResourceTypeCalendar}, nil
		}
	case "tasks":
		return parseTaskPath(parts[1:])
	}

	return nil, fmt.Errorf("invalid path format")
}

func parseTaskPath(parts []string) (*ResourcePath, error) {
	if len(parts) == 0 {
		return &ResourcePath{Type: ResourceTypeTasks}, nil
	}

	id := parts[0]
	if id == "" {
		return nil, fmt.Errorf("invalid task ID")
	}

	switch len(parts) {
	case 1:
		if id == "import" {
			return &ResourcePath{Type: ResourceTypeImport}, nil
		}
		return &ResourcePath{Type: ResourceTypeTask, TaskID: id}, nil
	case 2:
		switch parts[1] {
		case "complete":
			return &ResourcePath{Type: ResourceTypeCompletion, TaskID: id}, nil
		case "occurrences":
			return &ResourcePath{Type: ResourceTypeOccurrences, TaskID: id}, nil
		}
	}

	return nil, fmt.Errorf("invalid path format")
}
