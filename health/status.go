package health

import "fmt"

// Status is the operational state of a component.
type Status string

const (
	// StatusHealthy indicates the component is fully operational.
	StatusHealthy Status = "healthy"

	// StatusDegraded indicates the component is operational but experiencing issues.
	StatusDegraded Status = "degraded"

	// StatusUnhealthy indicates the component is not operational.
	StatusUnhealthy Status = "unhealthy"
)

// IsValid returns true if the status is one of the defined states.
func (s Status) IsValid() bool {
	switch s {
	case StatusHealthy, StatusDegraded, StatusUnhealthy:
		return true
	default:
		return false
	}
}

// String returns the string representation of the status.
func (s Status) String() string {
	return string(s)
}

// ParseStatus parses a string into a Status value.
func ParseStatus(s string) (Status, error) {
	status := Status(s)
	if !status.IsValid() {
		return "", fmt.Errorf("invalid health status: %s", s)
	}
	return status, nil
}

// Report is the health of a component or of a set of checks.
type Report struct {
	// Status is the current health state.
	Status Status `json:"status"`

	// Message describes the state for humans.
	Message string `json:"message,omitempty"`

	// Details holds diagnostic context such as errors or counts.
	Details map[string]any `json:"details,omitempty"`
}

// IsHealthy returns true if the status is StatusHealthy.
func (r Report) IsHealthy() bool {
	return r.Status == StatusHealthy
}

// IsDegraded returns true if the status is StatusDegraded.
func (r Report) IsDegraded() bool {
	return r.Status == StatusDegraded
}

// IsUnhealthy returns true if the status is StatusUnhealthy.
func (r Report) IsUnhealthy() bool {
	return r.Status == StatusUnhealthy
}

// Healthy creates a healthy report.
func Healthy(message string) Report {
	return Report{Status: StatusHealthy, Message: message}
}

// Degraded creates a degraded report.
func Degraded(message string, details map[string]any) Report {
	return Report{Status: StatusDegraded, Message: message, Details: details}
}

// Unhealthy creates an unhealthy report.
func Unhealthy(message string, details map[string]any) Report {
	return Report{Status: StatusUnhealthy, Message: message, Details: details}
}
