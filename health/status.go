package health

import (
	"regexp"
	"strings"
	"time"

	"github.com/khaller93/es-middleware-sub003/status"
)

// Pre-compiled regexes for error message sanitization
var (
	urlRegex        = regexp.MustCompile(`(?:https?|nats|wss?)://[^\s]+`)
	unixPathRegex   = regexp.MustCompile(`/[a-zA-Z0-9/_.-]+`)
	ipAddrRegex     = regexp.MustCompile(`\b\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}\b`)
	credentialRegex = regexp.MustCompile(`(?i)(password|token|secret|credential)[^a-zA-Z]*[:=][^,\s}]+`)
)

// Health levels
const (
	Healthy   = "healthy"
	Degraded  = "degraded"
	Unhealthy = "unhealthy"
)

// Status is the health of one DAO or of the whole middleware.
type Status struct {
	Component string    `json:"component"`
	Healthy   bool      `json:"healthy"`
	Status    string    `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`

	// DAOStatus and CorrelationID describe the last transition of a DAO.
	DAOStatus     string `json:"dao_status,omitempty"`
	CorrelationID uint64 `json:"correlation_id,omitempty"`

	SubStatuses []Status `json:"sub_statuses,omitempty"`
}

// IsHealthy returns true if the status is healthy
func (s Status) IsHealthy() bool { return s.Status == Healthy }

// IsDegraded returns true if the status is degraded
func (s Status) IsDegraded() bool { return s.Status == Degraded }

// IsUnhealthy returns true if the status is unhealthy
func (s Status) IsUnhealthy() bool { return s.Status == Unhealthy }

// sanitizeErrorMessage strips URLs, paths, addresses and credentials from
// failure causes before they are served over HTTP.
func sanitizeErrorMessage(err string) string {
	if err == "" {
		return ""
	}
	sanitized := urlRegex.ReplaceAllString(err, "[URL]")
	sanitized = unixPathRegex.ReplaceAllString(sanitized, "[PATH]")
	sanitized = ipAddrRegex.ReplaceAllString(sanitized, "[IP]")
	return credentialRegex.ReplaceAllString(sanitized, "[REDACTED]")
}

// FromTransition maps the last transition of a DAO onto a health level:
// READY and SYNCHRONIZING are healthy, FAILED is unhealthy and every other
// status is degraded.
func FromTransition(ev status.TransitionEvent) Status {
	s := Status{
		Component:     string(ev.DAO),
		DAOStatus:     ev.New.String(),
		CorrelationID: ev.CorrelationID,
		Timestamp:     ev.Timestamp,
	}
	if s.Timestamp.IsZero() {
		s.Timestamp = time.Now()
	}

	switch ev.New {
	case status.Ready, status.Synchronizing:
		s.Status, s.Healthy = Healthy, true
	case status.Failed:
		s.Status = Unhealthy
	default:
		s.Status = Degraded
	}

	s.Message = strings.ToLower(ev.New.String())
	if ev.Cause != "" {
		s.Message = sanitizeErrorMessage(ev.Cause)
	}
	return s
}
