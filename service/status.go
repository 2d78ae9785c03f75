package service

import (
	"fmt"
	"time"
)

// Status represents the lifecycle state of the runtime
type Status int

// Possible runtime statuses
const (
	StatusStopped Status = iota
	StatusStarting
	StatusRunning
	StatusStopping
)

// String returns the string representation of Status
func (s Status) String() string {
	switch s {
	case StatusStopped:
		return "stopped"
	case StatusStarting:
		return "starting"
	case StatusRunning:
		return "running"
	case StatusStopping:
		return "stopping"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(b []byte) error {
	for _, c := range []Status{StatusStopped, StatusStarting, StatusRunning, StatusStopping} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown runtime status %q", b)
}

// Info holds runtime information
type Info struct {
	Status    Status        `json:"status"`
	StartTime time.Time     `json:"start_time,omitzero"`
	Uptime    time.Duration `json:"uptime"`
	Strategy  string        `json:"strategy"`
	Triples   int           `json:"triples"`
	Vertices  int           `json:"vertices"`
	Edges     int           `json:"edges"`
	Documents int           `json:"documents,omitempty"`
}
