package track

import (
	"context"
	"fmt"
	"time"
)

// PositionSource identifies how a track point position was derived
type PositionSource string

const (
	// SourceADSB is a cooperative self-reported broadcast position
	SourceADSB PositionSource = "adsb"
	// SourceMLAT is a multilateration-derived position, used when the
	// direct broadcast position is unavailable or blocked
	SourceMLAT PositionSource = "mlat"
)

// Role classifies an aircraft's operational role
type Role string

const (
	RoleTanker    Role = "tanker"
	RoleISR       Role = "isr"
	RoleFighter   Role = "fighter"
	RoleTransport Role = "transport"
	RoleOther     Role = "other"
	RoleCivilian  Role = "civilian"
)

// Point is a single recorded position sample. Immutable once recorded.
type Point struct {
	Lat        float64        `json:"lat"`
	Lon        float64        `json:"lon"`
	AltFt      float64        `json:"alt_ft"`
	SpeedKt    float64        `json:"speed_kt"`
	HeadingDeg float64        `json:"heading_deg"`
	Timestamp  time.Time      `json:"ts"`
	Source     PositionSource `json:"position_source"`
}

// Flight is one aircraft's track for an analysis window, owned by the
// track store and consumed read-only by every detector.
type Flight struct {
	ID           string  `json:"flight_id"`
	Callsign     string  `json:"callsign"`
	Airline      string  `json:"airline,omitempty"`
	Country      string  `json:"country"`
	AircraftType string  `json:"aircraft_type"`
	Military     bool    `json:"military"`
	Origin       string  `json:"origin,omitempty"`
	Destination  string  `json:"destination,omitempty"`
	Points       []Point `json:"points"`
}

// LastPoint returns the most recent track point, or false when the
// flight has none.
func (f *Flight) LastPoint() (Point, bool) {
	if len(f.Points) == 0 {
		return Point{}, false
	}
	return f.Points[len(f.Points)-1], true
}

// MLATShare returns the fraction of points with MLAT-derived positions.
func (f *Flight) MLATShare() float64 {
	if len(f.Points) == 0 {
		return 0
	}
	mlat := 0
	for _, p := range f.Points {
		if p.Source == SourceMLAT {
			mlat++
		}
	}
	return float64(mlat) / float64(len(f.Points))
}

// Valid reports whether the flight record is well-formed enough to analyze.
// Malformed records are skipped by the pipeline, never fatal.
func (f *Flight) Valid() bool {
	if f == nil || f.ID == "" {
		return false
	}
	for i := 1; i < len(f.Points); i++ {
		if f.Points[i].Timestamp.Before(f.Points[i-1].Timestamp) {
			return false
		}
	}
	return true
}

// Window is a half-open analysis time range [Start, End)
type Window struct {
	Start time.Time
	End   time.Time
}

// NewWindow validates and builds an analysis window. The window must be
// non-empty and no longer than maxSpan.
func NewWindow(start, end time.Time, maxSpan time.Duration) (Window, error) {
	if !start.Before(end) {
		return Window{}, &InvalidWindowError{Reason: "start_ts must be before end_ts"}
	}
	if maxSpan > 0 && end.Sub(start) > maxSpan {
		return Window{}, &InvalidWindowError{
			Reason: fmt.Sprintf("window span exceeds maximum of %s", maxSpan),
		}
	}
	return Window{Start: start.UTC(), End: end.UTC()}, nil
}

// Key returns a deterministic cache key for the window.
func (w Window) Key() string {
	return fmt.Sprintf("%d-%d", w.Start.Unix(), w.End.Unix())
}

// Contains reports whether ts falls inside the window.
func (w Window) Contains(ts time.Time) bool {
	return !ts.Before(w.Start) && ts.Before(w.End)
}

// Store supplies flight tracks per window. It is the engine's sole I/O
// boundary; all analytic stages run on the returned snapshot.
type Store interface {
	// FlightsInWindow returns every flight with at least one point inside
	// the window, points ordered by timestamp.
	FlightsInWindow(ctx context.Context, w Window) ([]*Flight, error)

	// FlightByID returns a single flight's full track. Returns a
	// *NotFoundError for unknown ids.
	FlightByID(ctx context.Context, id string) (*Flight, error)

	// FlightsSince returns flights with points recorded after the given
	// instant, used for similarity lookback searches.
	FlightsSince(ctx context.Context, since time.Time) ([]*Flight, error)
}
