package task

import "go.trai.ch/zerr"

var (
	// ErrInvalidTask is returned when a task fails validation.
	ErrInvalidTask = zerr.New("invalid task")

	// ErrInvalidRange is returned when an occurrence range is empty or reversed.
	ErrInvalidRange = zerr.New("invalid occurrence range")

	// ErrInvalidCalendar is returned when an imported iCalendar document cannot be used.
	ErrInvalidCalendar = zerr.New("invalid calendar data")
)
