package engine

import "errors"

var (
	// ErrTaskNotFound is returned when an id is unknown to the board
	ErrTaskNotFound = errors.New("task not found")
	// ErrInvalidTime is returned for a countdown that is not MM:SS
	ErrInvalidTime = errors.New("invalid countdown time, expected MM:SS")
	// ErrInvalidAlarm is returned for an alarm that is not HH:MM with an optional YYYY-MM-DD date
	ErrInvalidAlarm = errors.New("invalid alarm, expected HH:MM and optional YYYY-MM-DD")
	// ErrInvalidLinkType is returned for an unknown link type
	ErrInvalidLinkType = errors.New("invalid link type")
)
