package synchronizer

import (
	"fmt"
	"time"
)

// TaskStatus is the lifecycle state of a SyncTask.
type TaskStatus int

const (
	// TaskRunning is set when the task is created and lasts until the pass ends.
	TaskRunning TaskStatus = iota
	// TaskCommitted marks a pass whose changes were committed.
	TaskCommitted
	// TaskRolledBack marks a pass that was aborted and rolled back.
	TaskRolledBack
)

// String returns the string representation of TaskStatus
func (s TaskStatus) String() string {
	switch s {
	case TaskRunning:
		return "RUNNING"
	case TaskCommitted:
		return "COMMITTED"
	case TaskRolledBack:
		return "ROLLED_BACK"
	default:
		return "UNKNOWN"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s TaskStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *TaskStatus) UnmarshalText(b []byte) error {
	for _, c := range []TaskStatus{TaskRunning, TaskCommitted, TaskRolledBack} {
		if c.String() == string(b) {
			*s = c
			return nil
		}
	}
	return fmt.Errorf("unknown task status %q", b)
}

// SyncTask is one synchronization pass. Tasks live only for the process
// lifetime.
type SyncTask struct {
	ID            string     `json:"id"`
	CorrelationID uint64     `json:"correlation_id"`
	Strategy      string     `json:"strategy"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    time.Time  `json:"finished_at,omitzero"`
	Status        TaskStatus `json:"status"`
	Attempts      int        `json:"attempts"`
	Error         string     `json:"error,omitempty"`

	boot  bool
	force bool
	done  chan error
}
