package status

import (
	"fmt"
	"strings"
	"time"
)

// DAO identifies one logical data access object.
type DAO string

// The three representations of the knowledge graph.
const (
	Primary  DAO = "primary"
	Graph    DAO = "graph"
	FullText DAO = "fulltext"
)

// DAOStatus is the lifecycle state of a DAO.
type DAOStatus int

// Possible DAO statuses
const (
	Uninitialized DAOStatus = iota
	Booting
	Synchronizing
	Ready
	Degraded
	Failed
)

var statusNames = [...]string{
	Uninitialized: "UNINITIALIZED",
	Booting:       "BOOTING",
	Synchronizing: "SYNCHRONIZING",
	Ready:         "READY",
	Degraded:      "DEGRADED",
	Failed:        "FAILED",
}

// String returns the string representation of DAOStatus
func (s DAOStatus) String() string {
	if s < 0 || int(s) >= len(statusNames) {
		return "UNKNOWN"
	}
	return statusNames[s]
}

// Valid reports whether s is one of the defined statuses.
func (s DAOStatus) Valid() bool {
	return s >= Uninitialized && s <= Failed
}

// ParseStatus parses a status name case-insensitively.
func ParseStatus(name string) (DAOStatus, error) {
	for i, n := range statusNames {
		if strings.EqualFold(n, name) {
			return DAOStatus(i), nil
		}
	}
	return Uninitialized, fmt.Errorf("unknown DAO status %q", name)
}

// MarshalText implements encoding.TextMarshaler.
func (s DAOStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid DAO status %d", int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DAOStatus) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// edges lists the permitted transitions apart from the universal edge to
// Failed. Degraded and Failed may return to Synchronizing when a later pass
// retries.
var edges = map[DAOStatus][]DAOStatus{
	Uninitialized: {Booting},
	Booting:       {Ready},
	Ready:         {Synchronizing},
	Synchronizing: {Ready, Degraded},
	Degraded:      {Synchronizing},
	Failed:        {Synchronizing},
}

// Allowed reports whether from -> to is a permitted transition.
func Allowed(from, to DAOStatus) bool {
	if !from.Valid() || !to.Valid() {
		return false
	}
	if to == Failed {
		return from != Failed
	}
	for _, next := range edges[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Successors returns every status reachable from s in one transition.
func Successors(s DAOStatus) []DAOStatus {
	out := append([]DAOStatus(nil), edges[s]...)
	if s.Valid() && s != Failed {
		out = append(out, Failed)
	}
	return out
}

// TransitionEvent records one published status change. Events are values
// and are never modified after publication.
type TransitionEvent struct {
	// CorrelationID is shared by every event caused by the same logical write.
	CorrelationID uint64 `json:"correlation_id"`

	DAO       DAO       `json:"dao"`
	Previous  DAOStatus `json:"previous"`
	New       DAOStatus `json:"new"`
	Timestamp time.Time `json:"timestamp"`

	// Cause carries the error text of a transition to Failed.
	Cause string `json:"cause,omitempty"`
}

// String returns a compact description for logs.
func (e TransitionEvent) String() string {
	return fmt.Sprintf("%s %s->%s (correlation %d)", e.DAO, e.Previous, e.New, e.CorrelationID)
}
