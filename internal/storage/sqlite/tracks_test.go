package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"skywatch/internal/track"
	"skywatch/pkg/logger"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func newTestStorage(t *testing.T) *TrackStorage {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	storage, err := NewTrackStorage(db, logger.Nop())
	if err != nil {
		t.Fatalf("failed to initialize storage: %v", err)
	}
	return storage
}

func sampleFlight(id string, start time.Time, n int) *track.Flight {
	f := &track.Flight{
		ID:           id,
		Callsign:     id,
		Airline:      "THY",
		Country:      "Turkey",
		AircraftType: "B738",
		Origin:       "LTBA",
		Destination:  "LCLK",
	}
	for i := 0; i < n; i++ {
		f.Points = append(f.Points, track.Point{
			Lat:        34.0 + float64(i)*0.01,
			Lon:        33.0,
			AltFt:      30000,
			SpeedKt:    400,
			HeadingDeg: 0,
			Timestamp:  start.Add(time.Duration(i) * 10 * time.Second),
			Source:     track.SourceADSB,
		})
	}
	return f
}

func TestStoreAndFetchFlight(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	want := sampleFlight("F1", t0, 3)
	if err := s.StoreFlight(ctx, want); err != nil {
		t.Fatalf("failed to store flight: %v", err)
	}

	got, err := s.FlightByID(ctx, "F1")
	if err != nil {
		t.Fatalf("failed to fetch flight: %v", err)
	}
	if got.Callsign != "F1" || got.Airline != "THY" || got.Destination != "LCLK" {
		t.Errorf("flight metadata = %+v", got)
	}
	if len(got.Points) != 3 {
		t.Fatalf("points = %d, want 3", len(got.Points))
	}
	for i := 1; i < len(got.Points); i++ {
		if got.Points[i].Timestamp.Before(got.Points[i-1].Timestamp) {
			t.Error("points not ordered by timestamp")
		}
	}
	if got.Points[0].Source != track.SourceADSB {
		t.Errorf("source = %s, want adsb", got.Points[0].Source)
	}
}

func TestFlightByIDNotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.FlightByID(context.Background(), "missing")
	var nf *track.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestFlightsInWindow(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.StoreFlight(ctx, sampleFlight("IN", t0, 3)); err != nil {
		t.Fatalf("failed to store flight: %v", err)
	}
	if err := s.StoreFlight(ctx, sampleFlight("OUT", t0.Add(2*time.Hour), 3)); err != nil {
		t.Fatalf("failed to store flight: %v", err)
	}

	w, err := track.NewWindow(t0, t0.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("failed to build window: %v", err)
	}

	flights, err := s.FlightsInWindow(ctx, w)
	if err != nil {
		t.Fatalf("failed to query window: %v", err)
	}
	if len(flights) != 1 || flights[0].ID != "IN" {
		t.Errorf("flights = %v, want [IN]", flightIDs(flights))
	}
}

func TestSubSecondTimestampsRoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	f := sampleFlight("F1", t0, 0)
	f.Points = []track.Point{
		{Lat: 34.0, Lon: 33.0, AltFt: 30000, SpeedKt: 400, Timestamp: t0, Source: track.SourceADSB},
		{Lat: 34.0, Lon: 33.0, AltFt: 30000, SpeedKt: 400, Timestamp: t0.Add(500 * time.Millisecond), Source: track.SourceADSB},
		{Lat: 34.1, Lon: 33.0, AltFt: 30000, SpeedKt: 400, Timestamp: t0.Add(time.Minute), Source: track.SourceADSB},
	}
	if err := s.StoreFlight(ctx, f); err != nil {
		t.Fatalf("failed to store flight: %v", err)
	}

	w, err := track.NewWindow(t0, t0.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("failed to build window: %v", err)
	}
	flights, err := s.FlightsInWindow(ctx, w)
	if err != nil {
		t.Fatalf("failed to query window: %v", err)
	}
	if len(flights) != 1 {
		t.Fatalf("flights = %v, want [F1]", flightIDs(flights))
	}
	got := flights[0]
	if len(got.Points) != 3 {
		t.Fatalf("points in window = %d, want 3 including the sub-second point", len(got.Points))
	}
	for i := 1; i < len(got.Points); i++ {
		if got.Points[i].Timestamp.Before(got.Points[i-1].Timestamp) {
			t.Errorf("points reordered at %d: %v after %v",
				i, got.Points[i].Timestamp, got.Points[i-1].Timestamp)
		}
	}
	if !got.Valid() {
		t.Error("mixed-precision flight must survive a round trip intact")
	}
	if want := t0.Add(500 * time.Millisecond); !got.Points[1].Timestamp.Equal(want) {
		t.Errorf("fractional timestamp = %v, want %v", got.Points[1].Timestamp, want)
	}
}

func TestFlightsSince(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	if err := s.StoreFlight(ctx, sampleFlight("OLD", t0.Add(-48*time.Hour), 2)); err != nil {
		t.Fatalf("failed to store flight: %v", err)
	}
	if err := s.StoreFlight(ctx, sampleFlight("NEW", t0, 2)); err != nil {
		t.Fatalf("failed to store flight: %v", err)
	}

	flights, err := s.FlightsSince(ctx, t0.Add(-time.Hour))
	if err != nil {
		t.Fatalf("failed to query since: %v", err)
	}
	if len(flights) != 1 || flights[0].ID != "NEW" {
		t.Errorf("flights = %v, want [NEW]", flightIDs(flights))
	}
}

func TestStoreFlightUpsertsMetadata(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	f := sampleFlight("F1", t0, 2)
	if err := s.StoreFlight(ctx, f); err != nil {
		t.Fatalf("failed to store flight: %v", err)
	}

	updated := *f
	updated.Destination = "OMDB"
	updated.Points = nil
	if err := s.StoreFlight(ctx, &updated); err != nil {
		t.Fatalf("failed to upsert flight: %v", err)
	}

	got, err := s.FlightByID(ctx, "F1")
	if err != nil {
		t.Fatalf("failed to fetch flight: %v", err)
	}
	if got.Destination != "OMDB" {
		t.Errorf("destination = %s, want OMDB after upsert", got.Destination)
	}
	if len(got.Points) != 2 {
		t.Errorf("points = %d, want the original 2", len(got.Points))
	}
}

func flightIDs(flights []*track.Flight) []string {
	out := make([]string, len(flights))
	for i, f := range flights {
		out[i] = f.ID
	}
	return out
}
