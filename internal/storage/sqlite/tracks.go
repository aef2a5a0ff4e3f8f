package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"skywatch/internal/track"
	"skywatch/pkg/logger"
)

// tsFormat is the stored timestamp layout. It is fixed-width UTC with a
// zero-padded fraction so lexicographic comparison in SQL matches
// chronological order; RFC3339Nano trims trailing fractional zeros and
// does not sort as a string.
const tsFormat = "2006-01-02T15:04:05.000000000Z"

// TrackStorage is the SQLite-backed track store. It owns flight and
// track point records and serves read-only snapshots to the pipeline.
type TrackStorage struct {
	db     *sql.DB
	logger *logger.Logger
}

// Open opens (or creates) the SQLite database at path and initializes
// the schema.
func Open(path string, logger *logger.Logger) (*TrackStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	storage := &TrackStorage{
		db:     db,
		logger: logger.Named("sqlite-tracks"),
	}

	if err := storage.initDB(); err != nil {
		db.Close()
		return nil, err
	}

	return storage, nil
}

// NewTrackStorage wraps an existing database handle. Used by tests and
// the import tool.
func NewTrackStorage(db *sql.DB, logger *logger.Logger) (*TrackStorage, error) {
	storage := &TrackStorage{
		db:     db,
		logger: logger.Named("sqlite-tracks"),
	}
	if err := storage.initDB(); err != nil {
		return nil, err
	}
	return storage, nil
}

// Close closes the underlying database.
func (s *TrackStorage) Close() error {
	return s.db.Close()
}

// initDB initializes the database tables
func (s *TrackStorage) initDB() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS flights (
			flight_id TEXT PRIMARY KEY,
			callsign TEXT NOT NULL,
			airline TEXT,
			country TEXT NOT NULL,
			aircraft_type TEXT NOT NULL,
			military INTEGER NOT NULL DEFAULT 0,
			origin TEXT,
			destination TEXT
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create flights table: %w", err)
	}

	_, err = s.db.Exec(`
		CREATE TABLE IF NOT EXISTS track_points (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			flight_id TEXT NOT NULL,
			lat REAL NOT NULL,
			lon REAL NOT NULL,
			alt_ft REAL NOT NULL,
			speed_kt REAL NOT NULL,
			heading_deg REAL NOT NULL,
			ts TIMESTAMP NOT NULL,
			position_source TEXT NOT NULL,
			FOREIGN KEY (flight_id) REFERENCES flights(flight_id)
		)
	`)
	if err != nil {
		return fmt.Errorf("failed to create track_points table: %w", err)
	}

	indexes := []string{
		`CREATE INDEX IF NOT EXISTS idx_track_points_flight ON track_points(flight_id)`,
		`CREATE INDEX IF NOT EXISTS idx_track_points_ts ON track_points(ts)`,
		`CREATE INDEX IF NOT EXISTS idx_flights_country ON flights(country)`,
		`CREATE INDEX IF NOT EXISTS idx_flights_military ON flights(military)`,
	}

	for _, indexSQL := range indexes {
		if _, err := s.db.Exec(indexSQL); err != nil {
			return fmt.Errorf("failed to create track index: %w", err)
		}
	}

	return nil
}

// StoreFlight upserts a flight record and appends its track points.
func (s *TrackStorage) StoreFlight(ctx context.Context, f *track.Flight) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO flights (flight_id, callsign, airline, country, aircraft_type, military, origin, destination)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(flight_id) DO UPDATE SET
			callsign = excluded.callsign,
			airline = excluded.airline,
			country = excluded.country,
			aircraft_type = excluded.aircraft_type,
			military = excluded.military,
			origin = excluded.origin,
			destination = excluded.destination`,
		f.ID, f.Callsign, f.Airline, f.Country, f.AircraftType, boolToInt(f.Military), f.Origin, f.Destination,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert flight: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO track_points (flight_id, lat, lon, alt_ft, speed_kt, heading_deg, ts, position_source)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare point insert: %w", err)
	}
	defer stmt.Close()

	for _, p := range f.Points {
		_, err = stmt.ExecContext(ctx,
			f.ID, p.Lat, p.Lon, p.AltFt, p.SpeedKt, p.HeadingDeg,
			p.Timestamp.UTC().Format(tsFormat), string(p.Source),
		)
		if err != nil {
			return fmt.Errorf("failed to insert track point: %w", err)
		}
	}

	return tx.Commit()
}

// FlightsInWindow returns every flight with at least one point inside the
// window, points ordered by timestamp.
func (s *TrackStorage) FlightsInWindow(ctx context.Context, w track.Window) ([]*track.Flight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.flight_id, f.callsign, f.airline, f.country, f.aircraft_type, f.military, f.origin, f.destination,
			p.lat, p.lon, p.alt_ft, p.speed_kt, p.heading_deg, p.ts, p.position_source
		FROM flights f
		JOIN track_points p ON p.flight_id = f.flight_id
		WHERE p.ts >= ? AND p.ts < ?
		ORDER BY f.flight_id, p.ts`,
		w.Start.UTC().Format(tsFormat), w.End.UTC().Format(tsFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights in window: %w", err)
	}
	defer rows.Close()

	return s.scanFlightRows(rows)
}

// FlightByID returns a single flight's full track.
func (s *TrackStorage) FlightByID(ctx context.Context, id string) (*track.Flight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.flight_id, f.callsign, f.airline, f.country, f.aircraft_type, f.military, f.origin, f.destination,
			p.lat, p.lon, p.alt_ft, p.speed_kt, p.heading_deg, p.ts, p.position_source
		FROM flights f
		LEFT JOIN track_points p ON p.flight_id = f.flight_id
		WHERE f.flight_id = ?
		ORDER BY p.ts`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query flight by id: %w", err)
	}
	defer rows.Close()

	flights, err := s.scanFlightRows(rows)
	if err != nil {
		return nil, err
	}
	if len(flights) == 0 {
		return nil, &track.NotFoundError{FlightID: id}
	}
	return flights[0], nil
}

// FlightsSince returns flights with points recorded after the given instant.
func (s *TrackStorage) FlightsSince(ctx context.Context, since time.Time) ([]*track.Flight, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.flight_id, f.callsign, f.airline, f.country, f.aircraft_type, f.military, f.origin, f.destination,
			p.lat, p.lon, p.alt_ft, p.speed_kt, p.heading_deg, p.ts, p.position_source
		FROM flights f
		JOIN track_points p ON p.flight_id = f.flight_id
		WHERE p.ts >= ?
		ORDER BY f.flight_id, p.ts`,
		since.UTC().Format(tsFormat),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query flights since: %w", err)
	}
	defer rows.Close()

	return s.scanFlightRows(rows)
}

// scanFlightRows folds joined flight/point rows into Flight records. Rows
// must be ordered by flight_id.
func (s *TrackStorage) scanFlightRows(rows *sql.Rows) ([]*track.Flight, error) {
	var flights []*track.Flight
	var current *track.Flight

	for rows.Next() {
		var (
			id, callsign, country, acType       string
			airline, origin, destination        sql.NullString
			military                            int
			lat, lon, altFt, speedKt, headingDg sql.NullFloat64
			ts, source                          sql.NullString
		)

		if err := rows.Scan(
			&id, &callsign, &airline, &country, &acType, &military, &origin, &destination,
			&lat, &lon, &altFt, &speedKt, &headingDg, &ts, &source,
		); err != nil {
			return nil, fmt.Errorf("failed to scan flight row: %w", err)
		}

		if current == nil || current.ID != id {
			current = &track.Flight{
				ID:           id,
				Callsign:     callsign,
				Airline:      airline.String,
				Country:      country,
				AircraftType: acType,
				Military:     military != 0,
				Origin:       origin.String,
				Destination:  destination.String,
			}
			flights = append(flights, current)
		}

		// LEFT JOIN can produce a flight row without points.
		if !ts.Valid {
			continue
		}

		parsed, err := time.Parse(tsFormat, ts.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse point timestamp: %w", err)
		}

		current.Points = append(current.Points, track.Point{
			Lat:        lat.Float64,
			Lon:        lon.Float64,
			AltFt:      altFt.Float64,
			SpeedKt:    speedKt.Float64,
			HeadingDeg: headingDg.Float64,
			Timestamp:  parsed,
			Source:     track.PositionSource(source.String),
		})
	}

	return flights, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
