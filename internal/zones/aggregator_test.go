package zones

import (
	"testing"
	"time"

	"skywatch/internal/config"
	"skywatch/internal/signature"
	"skywatch/internal/track"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func flagged(flightID string, rule signature.RuleID, lat, lon float64, offset time.Duration) signature.Flagged {
	return signature.Flagged{
		FlightID: flightID,
		Rule:     rule,
		Point: track.Point{
			Lat:       lat,
			Lon:       lon,
			AltFt:     35000,
			Timestamp: t0.Add(offset),
			Source:    track.SourceADSB,
		},
	}
}

func score(id string, total int) signature.Score {
	return signature.Score{
		FlightID:   id,
		Total:      total,
		Confidence: signature.ConfidenceFor(total),
	}
}

func TestAggregateEmpty(t *testing.T) {
	a := NewAggregator(config.Default().Zones)
	zones := a.Aggregate(nil, nil)
	if zones == nil {
		t.Fatal("expected empty slice, got nil")
	}
	if len(zones) != 0 {
		t.Errorf("expected no zones, got %d", len(zones))
	}
}

// Three flights with flagged points within 50 nm of each other form one
// zone with at least MEDIUM confidence.
func TestAggregateSingleZone(t *testing.T) {
	a := NewAggregator(config.Default().Zones)

	pts := []signature.Flagged{
		flagged("F1", signature.RuleAltitudeJump, 34.00, 33.00, 0),
		flagged("F2", signature.RuleAltitudeJump, 34.20, 33.10, time.Minute),
		flagged("F3", signature.RuleAltitudeJump, 33.90, 33.30, 2*time.Minute),
	}
	scores := map[string]signature.Score{
		"F1": score("F1", 40),
		"F2": score("F2", 55),
		"F3": score("F3", 60),
	}

	zones := a.Aggregate(pts, scores)
	if len(zones) != 1 {
		t.Fatalf("expected 1 zone, got %d", len(zones))
	}

	z := zones[0]
	if z.PointCount < 3 {
		t.Errorf("point_count = %d, want >= 3", z.PointCount)
	}
	if len(z.AffectedFlightIDs) != 3 {
		t.Errorf("affected flights = %v, want 3 entries", z.AffectedFlightIDs)
	}
	if z.Confidence != signature.ConfidenceMedium && z.Confidence != signature.ConfidenceHigh {
		t.Errorf("confidence = %s, want >= MEDIUM", z.Confidence)
	}
	if z.SignatureBreakdown[signature.RuleAltitudeJump] != 3 {
		t.Errorf("breakdown = %v, want 3 altitude_jump points", z.SignatureBreakdown)
	}
	if z.Polygon == nil {
		t.Error("expected polygon payload")
	}
}

func TestAggregateSeparateZones(t *testing.T) {
	a := NewAggregator(config.Default().Zones)

	// Two groups roughly 600 nm apart.
	pts := []signature.Flagged{
		flagged("F1", signature.RuleSignalLossGap, 34.0, 33.0, 0),
		flagged("F2", signature.RuleSignalLossGap, 34.1, 33.1, time.Minute),
		flagged("F3", signature.RulePositionTeleport, 44.0, 33.0, 0),
	}
	scores := map[string]signature.Score{
		"F1": score("F1", 20),
		"F2": score("F2", 20),
		"F3": score("F3", 15),
	}

	zones := a.Aggregate(pts, scores)
	if len(zones) != 2 {
		t.Fatalf("expected 2 zones, got %d", len(zones))
	}

	// Sorted by affected flight count descending.
	if len(zones[0].AffectedFlightIDs) < len(zones[1].AffectedFlightIDs) {
		t.Error("zones not sorted by affected flight count descending")
	}
}

// The union of zone memberships must cover every flagged flight exactly;
// no flight appears in two zones from one clustering run unless it has
// flagged points in both.
func TestAggregateMembershipUnion(t *testing.T) {
	a := NewAggregator(config.Default().Zones)

	pts := []signature.Flagged{
		flagged("F1", signature.RuleSignalLossGap, 34.0, 33.0, 0),
		flagged("F2", signature.RuleAltitudeJump, 34.1, 33.1, time.Minute),
		flagged("F3", signature.RulePositionTeleport, 44.0, 33.0, 0),
		flagged("F4", signature.RuleSpoofedAltitude, 44.2, 33.1, time.Minute),
	}
	scores := map[string]signature.Score{
		"F1": score("F1", 20), "F2": score("F2", 20),
		"F3": score("F3", 15), "F4": score("F4", 15),
	}

	zones := a.Aggregate(pts, scores)

	seen := map[string]int{}
	for _, z := range zones {
		for _, id := range z.AffectedFlightIDs {
			seen[id]++
		}
	}
	for _, id := range []string{"F1", "F2", "F3", "F4"} {
		if seen[id] != 1 {
			t.Errorf("flight %s appears in %d zones, want 1", id, seen[id])
		}
	}
}

func TestAggregateDeterministic(t *testing.T) {
	a := NewAggregator(config.Default().Zones)

	pts := []signature.Flagged{
		flagged("F1", signature.RuleSignalLossGap, 34.0, 33.0, 0),
		flagged("F2", signature.RuleAltitudeJump, 34.1, 33.1, time.Minute),
		flagged("F3", signature.RulePositionTeleport, 44.0, 33.0, 0),
	}
	scores := map[string]signature.Score{
		"F1": score("F1", 20), "F2": score("F2", 20), "F3": score("F3", 15),
	}

	first := a.Aggregate(pts, scores)

	// Shuffled input order must not change the result.
	shuffled := []signature.Flagged{pts[2], pts[0], pts[1]}
	second := a.Aggregate(shuffled, scores)

	if len(first) != len(second) {
		t.Fatalf("zone count differs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID {
			t.Errorf("zone %d id differs across runs: %s vs %s", i, first[i].ID, second[i].ID)
		}
	}
}
