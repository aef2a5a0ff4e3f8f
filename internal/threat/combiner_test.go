package threat

import (
	"math"
	"strings"
	"testing"

	"skywatch/internal/proximity"
	"skywatch/internal/zones"
)

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{0, "LOW"},
		{19, "LOW"},
		{20, "MODERATE"},
		{39, "MODERATE"},
		{40, "ELEVATED"},
		{59, "ELEVATED"},
		{60, "HIGH"},
		{79, "HIGH"},
		{80, "CRITICAL"},
		{82, "CRITICAL"},
		{100, "CRITICAL"},
	}

	for _, tt := range tests {
		if got := LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%d) = %s, want %s", tt.score, got, tt.want)
		}
	}
}

func TestCombineWeightedSum(t *testing.T) {
	in := Inputs{
		Zones:           []zones.Zone{{MeanScore: 70}},
		TotalFlights:    20,
		MilitaryFlights: 5,
		PatternClusters: 2,
		ConflictFlights: 3,
	}

	a := Combine(in)

	g := float64(a.Components[ComponentGPS].Score)
	m := float64(a.Components[ComponentMilitary].Score)
	p := float64(a.Components[ComponentPatterns].Score)
	c := float64(a.Components[ComponentConflict].Score)
	want := WeightGPS*g + WeightMilitary*m + WeightPatterns*p + WeightConflict*c

	if math.Abs(float64(a.OverallScore)-want) > 1 {
		t.Errorf("overall = %d, want %.1f within 1", a.OverallScore, want)
	}
	if a.Level != LevelFor(a.OverallScore) {
		t.Errorf("level %s inconsistent with score %d", a.Level, a.OverallScore)
	}
}

func TestCombineComponentScores(t *testing.T) {
	in := Inputs{
		Zones:           []zones.Zone{{MeanScore: 70}},
		TotalFlights:    20,
		MilitaryFlights: 5,
		PatternClusters: 2,
		ConflictFlights: 3,
	}

	a := Combine(in)

	if got := a.Components[ComponentGPS].Score; got != 70 {
		t.Errorf("gps component = %d, want 70 (max zone mean)", got)
	}
	if got := a.Components[ComponentMilitary].Score; got != 50 {
		t.Errorf("military component = %d, want 50 (25%% share)", got)
	}
	if got := a.Components[ComponentPatterns].Score; got != 40 {
		t.Errorf("patterns component = %d, want 40", got)
	}
	if got := a.Components[ComponentConflict].Score; got != 60 {
		t.Errorf("conflict component = %d, want 60", got)
	}
}

func TestCombineEmptyInputs(t *testing.T) {
	a := Combine(Inputs{})

	if a.OverallScore != 0 {
		t.Errorf("overall = %d, want 0", a.OverallScore)
	}
	if a.Level != "LOW" {
		t.Errorf("level = %s, want LOW", a.Level)
	}
	if len(a.Recommendations) != 1 || a.Recommendations[0] != "Continue routine monitoring" {
		t.Errorf("recommendations = %v, want routine monitoring only", a.Recommendations)
	}
	for name, comp := range a.Components {
		if comp.Score != 0 {
			t.Errorf("component %s = %d, want 0", name, comp.Score)
		}
	}
}

func TestCombineTopConcernsRanked(t *testing.T) {
	in := Inputs{
		Zones:           []zones.Zone{{MeanScore: 90}},
		TotalFlights:    10,
		MilitaryFlights: 1,
		PatternClusters: 1,
		ConflictFlights: 2,
	}

	a := Combine(in)

	if len(a.TopConcerns) != 4 {
		t.Fatalf("top concerns = %d entries, want 4", len(a.TopConcerns))
	}
	if !strings.HasPrefix(a.TopConcerns[0], ComponentGPS) {
		t.Errorf("top concern = %q, want %s first (highest score)", a.TopConcerns[0], ComponentGPS)
	}
	// Scores along the ranked list never increase.
	prev := 101
	for _, concern := range a.TopConcerns {
		name := concern[:strings.Index(concern, " (")]
		score := a.Components[name].Score
		if score > prev {
			t.Errorf("concern %q out of order", concern)
		}
		prev = score
	}
}

func TestCombineDominantComponentRecommendations(t *testing.T) {
	in := Inputs{
		Zones: []zones.Zone{{MeanScore: 85}},
	}

	a := Combine(in)

	found := false
	for _, r := range a.Recommendations {
		if strings.Contains(r, "GPS-degraded") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a GPS advisory recommendation, got %v", a.Recommendations)
	}
}

func TestCombineProximityRaisesMilitary(t *testing.T) {
	base := Inputs{TotalFlights: 10, MilitaryFlights: 1}
	withEvents := base
	withEvents.ProximityEvents = []proximity.Event{{FlightID1: "A", FlightID2: "B"}}

	a := Combine(base)
	b := Combine(withEvents)
	if b.Components[ComponentMilitary].Score <= a.Components[ComponentMilitary].Score {
		t.Errorf("proximity events should raise the military component: %d -> %d",
			a.Components[ComponentMilitary].Score, b.Components[ComponentMilitary].Score)
	}
}
