package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the full application configuration
type Config struct {
	Server    ServerConfig    `toml:"server"`
	Logging   LoggingConfig   `toml:"logging"`
	Storage   StorageConfig   `toml:"storage"`
	Cache     CacheConfig     `toml:"cache"`
	Window    WindowConfig    `toml:"window"`
	Signature SignatureConfig `toml:"signature"`
	Zones     ZonesConfig     `toml:"zones"`
	Triangle  TriangleConfig  `toml:"triangulation"`
	Proximity ProximityConfig `toml:"proximity"`
	DNA       DNAConfig       `toml:"anomaly_dna"`
	Predict   PredictConfig   `toml:"prediction"`
	Weather   WeatherConfig   `toml:"weather"`
}

// ServerConfig represents the HTTP server configuration
type ServerConfig struct {
	Host               string   `toml:"host"`
	Port               int      `toml:"port"`
	ReadTimeoutSecs    int      `toml:"read_timeout_secs"`
	WriteTimeoutSecs   int      `toml:"write_timeout_secs"`
	ShutdownTimeoutSec int      `toml:"shutdown_timeout_secs"`
	CORSAllowedOrigins []string `toml:"cors_allowed_origins"`
}

// LoggingConfig represents the logging configuration
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// StorageConfig represents the track store configuration
type StorageConfig struct {
	Path string `toml:"path"`
}

// CacheConfig represents the batch result cache configuration
type CacheConfig struct {
	Backend    string `toml:"backend"` // memory or redis
	RedisAddr  string `toml:"redis_addr"`
	RedisDB    int    `toml:"redis_db"`
	KeyPrefix  string `toml:"key_prefix"`
	TTLSeconds int    `toml:"ttl_seconds"`
}

// TTL returns the configured cache TTL as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// WindowConfig bounds analysis windows and the per-flight scoring fan-out
type WindowConfig struct {
	MaxSpanHours int `toml:"max_span_hours"`
	Workers      int `toml:"workers"`
}

// MaxSpan returns the maximum allowed window span.
func (c WindowConfig) MaxSpan() time.Duration {
	return time.Duration(c.MaxSpanHours) * time.Hour
}

// SignatureConfig holds jamming signature detection thresholds. Values mirror
// the UI-displayed constants but are configurable rather than hard-coded.
type SignatureConfig struct {
	AltitudeJumpFtPerSec  float64   `toml:"altitude_jump_ft_per_sec"`
	FakeAltitudesFt       []float64 `toml:"fake_altitudes_ft"`
	FakeAltitudeEpsilonFt float64   `toml:"fake_altitude_epsilon_ft"`
	MaxGroundSpeedKt      float64   `toml:"max_ground_speed_kt"`
	MaxImpliedSpeedKt     float64   `toml:"max_implied_speed_kt"`
	MLATShareThreshold    float64   `toml:"mlat_share_threshold"`
	MaxTurnRateDegPerSec  float64   `toml:"max_turn_rate_deg_per_sec"`
	SignalGapMinSecs      int       `toml:"signal_gap_min_secs"`
	ZeroSpeedMinAltFt     float64   `toml:"zero_speed_min_alt_ft"`
}

// ZonesConfig holds jamming zone clustering parameters
type ZonesConfig struct {
	ClusterRadiusNM float64 `toml:"cluster_radius_nm"`
}

// TriangleConfig holds source triangulation parameters
type TriangleConfig struct {
	MinFlightsMedium   int     `toml:"min_flights_medium"`
	MinFlightsHigh     int     `toml:"min_flights_high"`
	HighMaxRadiusNM    float64 `toml:"high_max_radius_nm"`
	MinSpreadDegHigh   float64 `toml:"min_spread_deg_high"`
	RadiusScaleNM      float64 `toml:"radius_scale_nm"`
	MaxRadiusNM        float64 `toml:"max_radius_nm"`
	MinRadiusNM        float64 `toml:"min_radius_nm"`
	PowerHighMeanScore float64 `toml:"power_high_mean_score"`
	PowerMedMeanScore  float64 `toml:"power_med_mean_score"`
}

// ProximityConfig holds bilateral proximity detection parameters
type ProximityConfig struct {
	ThresholdNM        float64 `toml:"threshold_nm"`
	AlignmentWindowSec int     `toml:"alignment_window_secs"`
	CellSizeNM         float64 `toml:"cell_size_nm"`
	MaxFlightsPerCell  int     `toml:"max_flights_per_cell"`
	CloseAltSepFt      float64 `toml:"close_alt_sep_ft"`
}

// AlignmentWindow returns the time-alignment tolerance as a duration.
func (c ProximityConfig) AlignmentWindow() time.Duration {
	return time.Duration(c.AlignmentWindowSec) * time.Second
}

// DNAConfig holds anomaly similarity search parameters
type DNAConfig struct {
	SpatialThresholdNM float64 `toml:"spatial_threshold_nm"`
	LookbackDays       int     `toml:"lookback_days"`
	TimeOfDayWindowHrs int     `toml:"time_of_day_window_hrs"`
	MinAttributeScore  int     `toml:"min_attribute_score"`
	MaxResults         int     `toml:"max_results"`
}

// PredictConfig holds trajectory prediction parameters
type PredictConfig struct {
	StepMinutes  int `toml:"step_minutes"`
	Steps        int `toml:"steps"`
	MaxTrackAge  int `toml:"max_track_age_secs"`
	MinPoints    int `toml:"min_points"`
	HeadingDepth int `toml:"heading_depth"`
}

// WeatherConfig represents the optional weather enrichment source
type WeatherConfig struct {
	Enabled               bool   `toml:"enabled"`
	APIBaseURL            string `toml:"api_base_url"`
	StationICAO           string `toml:"station_icao"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
	CacheExpiryMinutes    int    `toml:"cache_expiry_minutes"`
}

// Default returns a configuration with sane defaults for every component
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               "0.0.0.0",
			Port:               8080,
			ReadTimeoutSecs:    30,
			WriteTimeoutSecs:   60,
			ShutdownTimeoutSec: 10,
			CORSAllowedOrigins: []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Storage: StorageConfig{
			Path: "skywatch.db",
		},
		Cache: CacheConfig{
			Backend:    "memory",
			RedisAddr:  "localhost:6379",
			KeyPrefix:  "skywatch:",
			TTLSeconds: 300,
		},
		Window: WindowConfig{
			MaxSpanHours: 72,
			Workers:      8,
		},
		Signature: SignatureConfig{
			AltitudeJumpFtPerSec:  3000,
			FakeAltitudesFt:       []float64{34764, 44700},
			FakeAltitudeEpsilonFt: 25,
			MaxGroundSpeedKt:      600,
			MaxImpliedSpeedKt:     600,
			MLATShareThreshold:    0.8,
			MaxTurnRateDegPerSec:  10,
			SignalGapMinSecs:      300,
			ZeroSpeedMinAltFt:     10000,
		},
		Zones: ZonesConfig{
			ClusterRadiusNM: 50,
		},
		Triangle: TriangleConfig{
			MinFlightsMedium:   3,
			MinFlightsHigh:     5,
			HighMaxRadiusNM:    10,
			MinSpreadDegHigh:   45,
			RadiusScaleNM:      30,
			MaxRadiusNM:        100,
			MinRadiusNM:        1,
			PowerHighMeanScore: 60,
			PowerMedMeanScore:  35,
		},
		Proximity: ProximityConfig{
			ThresholdNM:        25,
			AlignmentWindowSec: 60,
			CellSizeNM:         30,
			MaxFlightsPerCell:  32,
			CloseAltSepFt:      1000,
		},
		DNA: DNAConfig{
			SpatialThresholdNM: 10,
			LookbackDays:       30,
			TimeOfDayWindowHrs: 2,
			MinAttributeScore:  30,
			MaxResults:         20,
		},
		Predict: PredictConfig{
			StepMinutes:  1,
			Steps:        5,
			MaxTrackAge:  600,
			MinPoints:    2,
			HeadingDepth: 3,
		},
		Weather: WeatherConfig{
			Enabled:               false,
			APIBaseURL:            "https://aviationweather.gov/api/data/metar",
			RequestTimeoutSeconds: 10,
			CacheExpiryMinutes:    15,
		},
	}
}

// Load reads a TOML configuration file, applying defaults for any value the
// file does not set. A missing file is not an error; defaults are returned.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		return cfg, nil
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}

	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}
	if c.Window.MaxSpanHours <= 0 {
		return fmt.Errorf("window max_span_hours must be positive")
	}
	if c.Window.Workers <= 0 {
		c.Window.Workers = 1
	}
	if c.Zones.ClusterRadiusNM <= 0 {
		return fmt.Errorf("zones cluster_radius_nm must be positive")
	}
	if c.Predict.MinPoints < 2 {
		// Dead reckoning derives speed and vertical rate from the last
		// two points.
		c.Predict.MinPoints = 2
	}
	if c.Proximity.CellSizeNM < c.Proximity.ThresholdNM {
		// Grid cells must cover the search radius or adjacent-cell pruning
		// would miss pairs.
		c.Proximity.CellSizeNM = c.Proximity.ThresholdNM
	}
	switch c.Cache.Backend {
	case "memory", "redis":
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.Cache.Backend)
	}
	return nil
}
