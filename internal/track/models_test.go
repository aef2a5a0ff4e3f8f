package track

import (
	"errors"
	"testing"
	"time"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func TestNewWindow(t *testing.T) {
	tests := []struct {
		name    string
		start   time.Time
		end     time.Time
		maxSpan time.Duration
		wantErr bool
	}{
		{"valid", t0, t0.Add(time.Hour), 72 * time.Hour, false},
		{"start equals end", t0, t0, 72 * time.Hour, true},
		{"start after end", t0.Add(time.Hour), t0, 72 * time.Hour, true},
		{"span too long", t0, t0.Add(100 * time.Hour), 72 * time.Hour, true},
		{"no span limit", t0, t0.Add(1000 * time.Hour), 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewWindow(tt.start, tt.end, tt.maxSpan)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewWindow() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var inv *InvalidWindowError
				if !errors.As(err, &inv) {
					t.Errorf("error type = %T, want *InvalidWindowError", err)
				}
			}
		})
	}
}

func TestWindowContains(t *testing.T) {
	w, err := NewWindow(t0, t0.Add(time.Hour), 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !w.Contains(t0) {
		t.Error("window must include its start")
	}
	if w.Contains(t0.Add(time.Hour)) {
		t.Error("window must exclude its end")
	}
	if w.Contains(t0.Add(-time.Second)) {
		t.Error("window must exclude earlier instants")
	}
}

func TestWindowKeyDeterministic(t *testing.T) {
	a, _ := NewWindow(t0, t0.Add(time.Hour), 0)
	b, _ := NewWindow(t0, t0.Add(time.Hour), 0)
	if a.Key() != b.Key() {
		t.Errorf("keys differ for identical windows: %s vs %s", a.Key(), b.Key())
	}
}

func TestFlightValid(t *testing.T) {
	ordered := &Flight{ID: "F1", Points: []Point{
		{Timestamp: t0}, {Timestamp: t0.Add(time.Second)},
	}}
	if !ordered.Valid() {
		t.Error("ordered flight should be valid")
	}

	unordered := &Flight{ID: "F1", Points: []Point{
		{Timestamp: t0.Add(time.Second)}, {Timestamp: t0},
	}}
	if unordered.Valid() {
		t.Error("out-of-order points should be invalid")
	}

	if (&Flight{}).Valid() {
		t.Error("missing id should be invalid")
	}
	var nilFlight *Flight
	if nilFlight.Valid() {
		t.Error("nil flight should be invalid")
	}
}

func TestMLATShare(t *testing.T) {
	f := &Flight{ID: "F1", Points: []Point{
		{Source: SourceMLAT}, {Source: SourceMLAT}, {Source: SourceADSB}, {Source: SourceMLAT},
	}}
	if got := f.MLATShare(); got != 0.75 {
		t.Errorf("MLATShare() = %v, want 0.75", got)
	}
	if got := (&Flight{ID: "F2"}).MLATShare(); got != 0 {
		t.Errorf("MLATShare() on empty track = %v, want 0", got)
	}
}
