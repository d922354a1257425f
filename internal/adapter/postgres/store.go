// Package postgres backs the station directory and the measurement table.
// The directory is read-only from the pipeline's perspective; measurements
// are append-only inserts.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/satlomas/station-ingest/internal/domain"
)

// Store wraps a shared connection pool. One Store is held for the process
// lifetime and used by all concurrently processed messages.
type Store struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and verifies the connection with a ping. An empty
// url lets pgx fall back to the libpq PG* environment variables, matching
// how the original deployments configure the store.
func Connect(ctx context.Context, url string) (*Store, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{pool: pool}, nil
}

// Close releases the pool.
func (s *Store) Close() {
	s.pool.Close()
}

// ResolveStation looks up the station whose code matches exactly.
// Returns domain.ErrUnknownStation when no record matches.
func (s *Store) ResolveStation(ctx context.Context, code string) (domain.Identity, error) {
	var id int64
	err := s.pool.QueryRow(ctx,
		`SELECT id FROM stations_station WHERE code = $1`, code,
	).Scan(&id)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Identity{}, fmt.Errorf("code %q: %w", code, domain.ErrUnknownStation)
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("resolve station %q: %w", code, err)
	}
	return domain.Identity{StationID: id}, nil
}

// ResolveStationWithSite resolves the station and, via a join against the
// site directory, at most one associated site. A station with no registered
// site yields a nil SiteID, not an error.
func (s *Store) ResolveStationWithSite(ctx context.Context, code string) (domain.Identity, error) {
	var stationID int64
	var siteID *int64
	err := s.pool.QueryRow(ctx,
		`SELECT st.id, si.id
		 FROM stations_station st
		 LEFT JOIN stations_site si ON si.station_id = st.id
		 WHERE st.code = $1
		 LIMIT 1`, code,
	).Scan(&stationID, &siteID)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Identity{}, fmt.Errorf("code %q: %w", code, domain.ErrUnknownStation)
	}
	if err != nil {
		return domain.Identity{}, fmt.Errorf("resolve station %q: %w", code, err)
	}
	return domain.Identity{StationID: stationID, SiteID: siteID}, nil
}

// Resolver returns the resolution function for the configured mode, so the
// pipeline holds a single seam regardless of whether sites are in play.
func (s *Store) Resolver(siteLookup bool) func(context.Context, string) (domain.Identity, error) {
	if siteLookup {
		return s.ResolveStationWithSite
	}
	return s.ResolveStation
}

// InsertMeasurement inserts one measurement row. The attribute blob goes
// into the jsonb column as marshaled JSON; all values are bound as
// parameters. Duplicate deliveries produce duplicate rows: this is an
// insert, not an upsert.
func (s *Store) InsertMeasurement(ctx context.Context, m domain.Measurement) (int64, error) {
	attrs, err := json.Marshal(m.Attributes)
	if err != nil {
		return 0, fmt.Errorf("marshal attributes: %w", err)
	}

	var id int64
	err = s.pool.QueryRow(ctx,
		`INSERT INTO stations_measurement (station_id, site_id, datetime, attributes)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		m.StationID, m.SiteID, m.Timestamp, attrs,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert measurement: %w", err)
	}
	return id, nil
}
