package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"time"

	"skywatch/internal/config"
	"skywatch/pkg/logger"
)

// METAR is the subset of a station observation the safety batch uses.
type METAR struct {
	StationID      string  `json:"icaoId"`
	RawText        string  `json:"rawOb"`
	FlightCategory string  `json:"fltCat"`
	WindSpeedKt    float64 `json:"wspd"`
	VisibilitySM   float64 `json:"visib,string"`
	TempC          float64 `json:"temp"`
}

// Impact is the weather contribution to the safety batch.
type Impact struct {
	Station  string `json:"station"`
	Category string `json:"category"`
	Impact   string `json:"impact"`
	RawMETAR string `json:"raw_metar"`
}

// Service fetches METARs for the configured station with a short-lived
// in-process cache, so batch requests do not hammer the upstream API.
type Service struct {
	cfg    config.WeatherConfig
	client *http.Client
	logger *logger.Logger

	mu       sync.Mutex
	cached   *Impact
	cachedAt time.Time
	now      func() time.Time
}

// NewService creates the weather service. A nil service is returned
// when weather enrichment is disabled.
func NewService(cfg config.WeatherConfig, log *logger.Logger) *Service {
	if !cfg.Enabled {
		return nil
	}
	return &Service{
		cfg: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
		},
		logger: log.Named("weather"),
		now:    time.Now,
	}
}

// CurrentImpact returns the cached impact when fresh, otherwise fetches
// a new METAR.
func (s *Service) CurrentImpact(ctx context.Context) (*Impact, error) {
	s.mu.Lock()
	expiry := time.Duration(s.cfg.CacheExpiryMinutes) * time.Minute
	if s.cached != nil && s.now().Sub(s.cachedAt) < expiry {
		cached := s.cached
		s.mu.Unlock()
		return cached, nil
	}
	s.mu.Unlock()

	metar, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}
	impact := &Impact{
		Station:  metar.StationID,
		Category: metar.FlightCategory,
		Impact:   classify(metar),
		RawMETAR: metar.RawText,
	}

	s.mu.Lock()
	s.cached = impact
	s.cachedAt = s.now()
	s.mu.Unlock()

	s.logger.Debug("fetched METAR",
		logger.String("station", impact.Station),
		logger.String("category", impact.Category))
	return impact, nil
}

func (s *Service) fetch(ctx context.Context) (*METAR, error) {
	u, err := url.Parse(s.cfg.APIBaseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid weather API URL: %w", err)
	}
	q := u.Query()
	q.Set("ids", s.cfg.StationICAO)
	q.Set("format", "json")
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("weather request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("weather API returned status %d", resp.StatusCode)
	}

	var metars []METAR
	if err := json.NewDecoder(resp.Body).Decode(&metars); err != nil {
		return nil, fmt.Errorf("failed to decode METAR response: %w", err)
	}
	if len(metars) == 0 {
		return nil, fmt.Errorf("no METAR available for station %s", s.cfg.StationICAO)
	}
	return &metars[0], nil
}

// classify grades operational impact from flight category, bumped one
// level for strong wind.
func classify(m *METAR) string {
	levels := []string{"none", "minor", "moderate", "severe"}
	idx := 0
	switch m.FlightCategory {
	case "MVFR":
		idx = 1
	case "IFR":
		idx = 2
	case "LIFR":
		idx = 3
	}
	if m.WindSpeedKt >= 30 && idx < len(levels)-1 {
		idx++
	}
	return levels[idx]
}
