package health

import "time"

// NewHealthy creates a new healthy status
func NewHealthy(component, message string) Status {
	return Status{Component: component, Healthy: true, Status: Healthy, Message: message, Timestamp: time.Now()}
}

// NewUnhealthy creates a new unhealthy status
func NewUnhealthy(component, message string) Status {
	return Status{Component: component, Status: Unhealthy, Message: message, Timestamp: time.Now()}
}

// NewDegraded creates a new degraded status
func NewDegraded(component, message string) Status {
	return Status{Component: component, Status: Degraded, Message: message, Timestamp: time.Now()}
}

// Aggregate combines sub-statuses: unhealthy if any is unhealthy,
// otherwise degraded if any is degraded, otherwise healthy.
func Aggregate(component string, subStatuses []Status) Status {
	if len(subStatuses) == 0 {
		return NewDegraded(component, "No DAO reported yet")
	}

	hasUnhealthy, hasDegraded := false, false
	for _, sub := range subStatuses {
		switch {
		case sub.IsUnhealthy():
			hasUnhealthy = true
		case sub.IsDegraded():
			hasDegraded = true
		}
	}

	var s Status
	switch {
	case hasUnhealthy:
		s = NewUnhealthy(component, "One or more DAOs failed")
	case hasDegraded:
		s = NewDegraded(component, "One or more DAOs are not ready")
	default:
		s = NewHealthy(component, "All DAOs ready")
	}
	s.SubStatuses = make([]Status, len(subStatuses))
	copy(s.SubStatuses, subStatuses)
	return s
}
