package track

import "fmt"

// NotFoundError indicates an unknown flight id
type NotFoundError struct {
	FlightID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("flight %s not found", e.FlightID)
}

// InsufficientDataError indicates a flight has fewer track points than a
// stage requires
type InsufficientDataError struct {
	FlightID string
	Points   int
	Required int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("flight %s has %d track points, need at least %d", e.FlightID, e.Points, e.Required)
}

// InvalidWindowError indicates a malformed or oversized analysis window
type InvalidWindowError struct {
	Reason string
}

func (e *InvalidWindowError) Error() string {
	return "invalid window: " + e.Reason
}
