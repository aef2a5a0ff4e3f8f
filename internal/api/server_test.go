package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"skywatch/internal/cache"
	"skywatch/internal/config"
	"skywatch/internal/engine"
	"skywatch/internal/track"
	"skywatch/pkg/logger"
)

var t0 = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

type fakeStore struct {
	flights []*track.Flight
}

func (s *fakeStore) FlightsInWindow(_ context.Context, w track.Window) ([]*track.Flight, error) {
	var out []*track.Flight
	for _, f := range s.flights {
		if len(f.Points) > 0 && w.Contains(f.Points[0].Timestamp) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *fakeStore) FlightByID(_ context.Context, id string) (*track.Flight, error) {
	for _, f := range s.flights {
		if f.ID == id {
			return f, nil
		}
	}
	return nil, &track.NotFoundError{FlightID: id}
}

func (s *fakeStore) FlightsSince(_ context.Context, _ time.Time) ([]*track.Flight, error) {
	return s.flights, nil
}

func newTestServer(flights ...*track.Flight) *Server {
	cfg := config.Default()
	eng := engine.New(cfg, &fakeStore{flights: flights}, cache.NewMemory(time.Minute), nil, logger.Nop())
	return NewServer(cfg, eng, logger.Nop())
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	return rec
}

func windowQuery() string {
	return fmt.Sprintf("start_ts=%d&end_ts=%d", t0.Unix(), t0.Add(time.Hour).Unix())
}

func TestIntelligenceEndpoint(t *testing.T) {
	s := newTestServer(&track.Flight{
		ID:       "F1",
		Callsign: "F1",
		Points: []track.Point{
			{Lat: 34, Lon: 33, AltFt: 30000, SpeedKt: 400, Timestamp: t0, Source: track.SourceADSB},
			{Lat: 34, Lon: 33, AltFt: 30000, SpeedKt: 400, Timestamp: t0.Add(time.Minute), Source: track.SourceADSB},
		},
	})

	rec := get(t, s, "/api/v1/intelligence?"+windowQuery())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}

	var payload map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("invalid JSON response: %v", err)
	}
	for _, field := range []string{
		"gps_jamming", "gps_jamming_temporal", "bilateral_proximity",
		"threat_assessment", "jamming_triangulation", "skipped_flights",
	} {
		if _, ok := payload[field]; !ok {
			t.Errorf("response missing field %q", field)
		}
	}
}

func TestWindowParamErrors(t *testing.T) {
	s := newTestServer()

	tests := []struct {
		name string
		path string
	}{
		{"missing params", "/api/v1/intelligence"},
		{"non-numeric", "/api/v1/intelligence?start_ts=abc&end_ts=5"},
		{"reversed bounds", fmt.Sprintf("/api/v1/traffic?start_ts=%d&end_ts=%d", t0.Unix(), t0.Unix()-10)},
		{"oversized span", fmt.Sprintf("/api/v1/safety?start_ts=%d&end_ts=%d", t0.Unix(), t0.AddDate(0, 6, 0).Unix())},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if rec := get(t, s, tt.path); rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestFlightNotFound(t *testing.T) {
	s := newTestServer()

	for _, path := range []string{
		"/api/v1/anomaly-dna/nope",
		"/api/v1/trajectory/nope",
		"/api/v1/hostile-intent/nope",
	} {
		if rec := get(t, s, path); rec.Code != http.StatusNotFound {
			t.Errorf("GET %s status = %d, want 404", path, rec.Code)
		}
	}
}

func TestInsufficientDataMapsTo422(t *testing.T) {
	s := newTestServer(&track.Flight{
		ID:       "SHORT",
		Callsign: "SHORT",
		Points:   []track.Point{{Lat: 34, Lon: 33, Timestamp: t0, Source: track.SourceADSB}},
	})

	if rec := get(t, s, "/api/v1/trajectory/SHORT"); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422", rec.Code)
	}
}

func TestHealthAndConfig(t *testing.T) {
	s := newTestServer()

	rec := get(t, s, "/api/v1/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
	var health map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &health); err != nil || health["status"] != "ok" {
		t.Errorf("health payload = %s", rec.Body.String())
	}

	rec = get(t, s, "/api/v1/config")
	if rec.Code != http.StatusOK {
		t.Fatalf("config status = %d, want 200", rec.Code)
	}
	var cfg map[string]json.RawMessage
	if err := json.Unmarshal(rec.Body.Bytes(), &cfg); err != nil {
		t.Fatalf("invalid config JSON: %v", err)
	}
	if _, ok := cfg["signature"]; !ok {
		t.Error("config payload missing signature thresholds")
	}
}

func TestCORSHeaders(t *testing.T) {
	s := newTestServer()

	rec := get(t, s, "/api/v1/health")
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("allow-origin = %q, want *", got)
	}

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/health", nil)
	pre := httptest.NewRecorder()
	s.Handler().ServeHTTP(pre, req)
	if pre.Code != http.StatusNoContent {
		t.Errorf("preflight status = %d, want 204", pre.Code)
	}
}
