package dna

import (
	"context"
	"errors"
	"testing"
	"time"

	"skywatch/internal/config"
	"skywatch/internal/signature"
	"skywatch/internal/track"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

// fakeStore serves a fixed set of flights.
type fakeStore struct {
	flights map[string]*track.Flight
}

func (s *fakeStore) FlightsInWindow(_ context.Context, _ track.Window) ([]*track.Flight, error) {
	return nil, nil
}

func (s *fakeStore) FlightByID(_ context.Context, id string) (*track.Flight, error) {
	f, ok := s.flights[id]
	if !ok {
		return nil, &track.NotFoundError{FlightID: id}
	}
	return f, nil
}

func (s *fakeStore) FlightsSince(_ context.Context, _ time.Time) ([]*track.Flight, error) {
	out := make([]*track.Flight, 0, len(s.flights))
	for _, f := range s.flights {
		out = append(out, f)
	}
	return out, nil
}

func pt(offset time.Duration, lat, lon float64) track.Point {
	return track.Point{
		Lat:       lat,
		Lon:       lon,
		AltFt:     30000,
		SpeedKt:   400,
		Timestamp: t0.Add(offset),
		Source:    track.SourceADSB,
	}
}

// gapFlight has a 6-minute gap between its two points, triggering the
// signal loss rule and nothing else.
func gapFlight(id string, lat, lon float64) *track.Flight {
	return &track.Flight{
		ID:       id,
		Callsign: id,
		Points: []track.Point{
			pt(0, lat, lon),
			pt(6*time.Minute, lat, lon),
		},
	}
}

// cleanFlight triggers no signature rules.
func cleanFlight(id, airline, origin, dest, acType string) *track.Flight {
	return &track.Flight{
		ID:           id,
		Callsign:     id,
		Airline:      airline,
		Origin:       origin,
		Destination:  dest,
		AircraftType: acType,
		Points: []track.Point{
			pt(0, 34.0, 33.0),
			pt(10*time.Second, 34.01, 33.0),
		},
	}
}

func newMatcher(store track.Store) *Matcher {
	cfg := config.Default()
	return NewMatcher(cfg.DNA, store, signature.NewDetector(cfg.Signature))
}

func TestMatchUnknownFlight(t *testing.T) {
	m := newMatcher(&fakeStore{flights: map[string]*track.Flight{}})

	_, err := m.Match(context.Background(), "nope")
	var nf *track.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("expected NotFoundError, got %v", err)
	}
}

func TestMatchInsufficientData(t *testing.T) {
	m := newMatcher(&fakeStore{flights: map[string]*track.Flight{
		"F1": {ID: "F1", Points: []track.Point{pt(0, 34, 33)}},
	}})

	_, err := m.Match(context.Background(), "F1")
	var ins *track.InsufficientDataError
	if !errors.As(err, &ins) {
		t.Fatalf("expected InsufficientDataError, got %v", err)
	}
	if ins.Points != 1 || ins.Required != 2 {
		t.Errorf("error carries %d/%d points, want 1/2", ins.Points, ins.Required)
	}
}

func TestMatchRuleBased(t *testing.T) {
	store := &fakeStore{flights: map[string]*track.Flight{
		"Q":    gapFlight("Q", 34.00, 33.00),
		"NEAR": gapFlight("NEAR", 34.05, 33.00), // ~3 nm from the query's flagged point
		"FAR":  gapFlight("FAR", 40.00, 40.00),  // same rule, far away
		"OK":   cleanFlight("OK", "", "", "", ""),
	}}
	m := newMatcher(store)

	report, err := m.Match(context.Background(), "Q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.SearchMethod != MethodRuleBased {
		t.Errorf("search method = %s, want %s", report.SearchMethod, MethodRuleBased)
	}
	if len(report.AnomaliesDetected) != 1 || report.AnomaliesDetected[0] != "signal_loss_gap" {
		t.Errorf("anomalies = %v, want [signal_loss_gap]", report.AnomaliesDetected)
	}

	if len(report.SimilarFlights) != 1 {
		t.Fatalf("similar flights = %d, want 1 (only the nearby gap flight)", len(report.SimilarFlights))
	}
	match := report.SimilarFlights[0]
	if match.FlightID != "NEAR" {
		t.Errorf("match = %s, want NEAR", match.FlightID)
	}
	if len(match.SharedRules) != 1 || match.SharedRules[0] != "signal_loss_gap" {
		t.Errorf("shared rules = %v, want [signal_loss_gap]", match.SharedRules)
	}
	if match.Score <= 0 {
		t.Errorf("score = %d, want > 0", match.Score)
	}
	if match.ClosestPassNM == nil || *match.ClosestPassNM > 10 {
		t.Errorf("closest pass = %v, want <= 10 nm", match.ClosestPassNM)
	}
	if len(match.MatchReasons) == 0 {
		t.Error("expected human-readable match reasons")
	}
}

func TestMatchAttributeBased(t *testing.T) {
	store := &fakeStore{flights: map[string]*track.Flight{
		"Q":     cleanFlight("Q", "THY", "LTBA", "OMDB", "B738"),
		"TWIN":  cleanFlight("TWIN", "THY", "LTBA", "OMDB", "B738"), // airline+route+type+time
		"ROUTE": cleanFlight("ROUTE", "PGT", "LTBA", "OMDB", "A320"),
		"WEAK":  cleanFlight("WEAK", "DLH", "EDDF", "KJFK", "A359"), // time of day only, below floor
	}}
	m := newMatcher(store)

	report, err := m.Match(context.Background(), "Q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.SearchMethod != MethodAttributeBased {
		t.Errorf("search method = %s, want %s", report.SearchMethod, MethodAttributeBased)
	}
	if len(report.AnomaliesDetected) != 0 {
		t.Errorf("anomalies = %v, want none", report.AnomaliesDetected)
	}

	if len(report.SimilarFlights) != 2 {
		t.Fatalf("similar flights = %d, want 2 (WEAK below score floor)", len(report.SimilarFlights))
	}
	if report.SimilarFlights[0].FlightID != "TWIN" {
		t.Errorf("top match = %s, want TWIN", report.SimilarFlights[0].FlightID)
	}
	for _, match := range report.SimilarFlights {
		if match.FlightID == "Q" {
			t.Error("similar flights must exclude the query flight")
		}
		if match.Score < 30 {
			t.Errorf("match %s score %d below attribute floor", match.FlightID, match.Score)
		}
	}
}

func TestMatchScoresNonIncreasing(t *testing.T) {
	store := &fakeStore{flights: map[string]*track.Flight{
		"Q":  gapFlight("Q", 34.00, 33.00),
		"M1": gapFlight("M1", 34.02, 33.00),
		"M2": gapFlight("M2", 34.08, 33.00),
		"M3": gapFlight("M3", 34.12, 33.00),
	}}
	m := newMatcher(store)

	report, err := m.Match(context.Background(), "Q")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(report.SimilarFlights) < 2 {
		t.Fatalf("expected multiple matches, got %d", len(report.SimilarFlights))
	}
	for i := 1; i < len(report.SimilarFlights); i++ {
		if report.SimilarFlights[i].Score > report.SimilarFlights[i-1].Score {
			t.Errorf("scores not monotonically non-increasing at %d: %d > %d",
				i, report.SimilarFlights[i].Score, report.SimilarFlights[i-1].Score)
		}
	}
}
