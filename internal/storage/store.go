// Package storage persists hazard markers in SQLite with geohash spatial
// partitioning and retention-window expiry. The schema is shaped like a
// composite-key KV layout: the geohash cell is the partition key, with
// (hazard_type, updated_at) range indexes for recency scans, so the same
// contract ports to any document/KV store with range queries.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/mmcloughlin/geohash"
	_ "modernc.org/sqlite"

	"github.com/couchcryptid/hazard-atlas/internal/domain"
	"github.com/couchcryptid/hazard-atlas/internal/observability"
)

// batchSize is the number of markers per write transaction, mirroring
// backend batch-write limits.
const batchSize = 25

// geohashPrecision 5 gives ~4.9 km cells, fine enough to bucket a city
// without exploding cell counts at continental extents.
const geohashPrecision = 5

const schema = `
CREATE TABLE IF NOT EXISTS markers (
	id          TEXT PRIMARY KEY,
	geohash     TEXT NOT NULL,
	hazard_type TEXT NOT NULL,
	lat         REAL NOT NULL,
	lon         REAL NOT NULL,
	severity    REAL NOT NULL,
	weight      INTEGER NOT NULL,
	title       TEXT NOT NULL DEFAULT '',
	source_name TEXT NOT NULL DEFAULT '',
	source_url  TEXT NOT NULL DEFAULT '',
	geometry    TEXT,
	updated_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_markers_cell      ON markers(geohash, hazard_type, updated_at);
CREATE INDEX IF NOT EXISTS idx_markers_type_time ON markers(hazard_type, updated_at);
CREATE INDEX IF NOT EXISTS idx_markers_expiry    ON markers(expires_at);
`

// Store is the marker persistence layer.
type Store struct {
	db        *sql.DB
	clock     clockwork.Clock
	retention time.Duration
	logger    *slog.Logger
	metrics   *observability.Metrics
}

// Open opens (and migrates) the SQLite database at path. retention is the
// fixed window after a marker's updated_at before it expires. Pass a fake
// clock in tests to exercise expiry deterministically.
func Open(path string, retention time.Duration, clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate schema: %w", err)
	}
	return &Store{
		db:        db,
		clock:     clock,
		retention: retention,
		logger:    logger,
		metrics:   metrics,
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Put upserts markers in fixed-size batches, last-write-wins by id. A failed
// batch is logged and skipped, not retried: the scheduler reruns ingestion
// every few minutes and the write self-heals. Returns the count written.
func (s *Store) Put(ctx context.Context, markers []domain.Marker) int {
	s.purgeExpired(ctx)

	written := 0
	for start := 0; start < len(markers); start += batchSize {
		end := min(start+batchSize, len(markers))
		batch := markers[start:end]

		if err := s.putBatch(ctx, batch); err != nil {
			s.logger.Warn("marker batch write failed, skipping",
				"error", err, "batch_start", start, "batch_size", len(batch))
			s.metrics.StorageBatchErrors.Inc()
			continue
		}
		s.metrics.StorageBatchWrites.Inc()
		written += len(batch)
	}
	return written
}

func (s *Store) putBatch(ctx context.Context, batch []domain.Marker) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO markers
			(id, geohash, hazard_type, lat, lon, severity, weight, title, source_name, source_url, geometry, updated_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			geohash=excluded.geohash, hazard_type=excluded.hazard_type,
			lat=excluded.lat, lon=excluded.lon,
			severity=excluded.severity, weight=excluded.weight,
			title=excluded.title, source_name=excluded.source_name, source_url=excluded.source_url,
			geometry=excluded.geometry, updated_at=excluded.updated_at, expires_at=excluded.expires_at`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, m := range batch {
		var geom any
		if m.Geometry != nil {
			data, err := json.Marshal(m.Geometry)
			if err != nil {
				return fmt.Errorf("marshal geometry for %s: %w", m.ID, err)
			}
			geom = string(data)
		}

		updatedAt := m.UpdatedAt.UTC()
		if _, err := stmt.ExecContext(ctx,
			m.ID,
			geohash.EncodeWithPrecision(m.Lat, m.Lon, geohashPrecision),
			string(m.HazardType),
			m.Lat, m.Lon,
			domain.ClampSeverity(m.Severity),
			m.Weight,
			m.Title,
			m.Source.Name, m.Source.URL,
			geom,
			updatedAt.Unix(),
			updatedAt.Add(s.retention).Unix(),
		); err != nil {
			return fmt.Errorf("upsert %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch: %w", err)
	}
	return nil
}

// purgeExpired deletes markers past their retention window. Expiry is also
// enforced at query time, so this is housekeeping, not correctness.
func (s *Store) purgeExpired(ctx context.Context) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM markers WHERE expires_at <= ?`, s.clock.Now().Unix()); err != nil {
		s.logger.Warn("expired marker purge failed", "error", err)
	}
}

const markerColumns = `id, hazard_type, lat, lon, severity, weight, title, source_name, source_url, geometry, updated_at`

// QueryByBbox returns unexpired markers inside the box, optionally filtered
// by hazard types, updated within the last sinceHours.
func (s *Store) QueryByBbox(ctx context.Context, bbox domain.BBox, types []domain.HazardType, sinceHours int) ([]domain.Marker, error) {
	query := `SELECT ` + markerColumns + ` FROM markers
		WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
		  AND updated_at >= ? AND expires_at > ?`
	args := []any{
		bbox.MinLat, bbox.MaxLat, bbox.MinLon, bbox.MaxLon,
		s.cutoff(sinceHours), s.clock.Now().Unix(),
	}

	if len(types) > 0 {
		query += ` AND hazard_type IN (?` + strings.Repeat(",?", len(types)-1) + `)`
		for _, t := range types {
			args = append(args, string(t))
		}
	}
	query += ` ORDER BY updated_at DESC`

	return s.queryMarkers(ctx, query, args...)
}

// QueryRecent returns all unexpired markers updated within the last sinceHours.
func (s *Store) QueryRecent(ctx context.Context, sinceHours int) ([]domain.Marker, error) {
	return s.queryMarkers(ctx,
		`SELECT `+markerColumns+` FROM markers
		 WHERE updated_at >= ? AND expires_at > ?
		 ORDER BY updated_at DESC`,
		s.cutoff(sinceHours), s.clock.Now().Unix())
}

// QueryNear returns unexpired markers within radiusKm of the point. The
// bounding-box prefilter uses the flat-earth approximation, which always
// over-covers the circle, and exact membership is settled with a haversine
// post-filter — so the approximation contributes no false negatives or
// positives, only wasted scan width at high latitudes.
func (s *Store) QueryNear(ctx context.Context, lat, lon, radiusKm float64, sinceHours int) ([]domain.Marker, error) {
	bbox := domain.BBoxAround(lat, lon, radiusKm)
	candidates, err := s.QueryByBbox(ctx, bbox, nil, sinceHours)
	if err != nil {
		return nil, err
	}

	markers := candidates[:0]
	for _, m := range candidates {
		if domain.HaversineKm(lat, lon, m.Lat, m.Lon) <= radiusKm {
			markers = append(markers, m)
		}
	}
	return markers, nil
}

// CellAggregate summarizes the markers in one geohash partition cell.
type CellAggregate struct {
	Geohash      string  `json:"geohash"`
	Count        int     `json:"count"`
	MaxSeverity  float64 `json:"max_severity"`
	MeanSeverity float64 `json:"mean_severity"`
	CentroidLat  float64 `json:"centroid_lat"`
	CentroidLon  float64 `json:"centroid_lon"`
}

// QueryHotspots aggregates unexpired markers inside the box by geohash cell,
// ordered by descending max severity.
func (s *Store) QueryHotspots(ctx context.Context, bbox domain.BBox, sinceHours int) ([]CellAggregate, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT geohash, COUNT(*), MAX(severity), AVG(severity), AVG(lat), AVG(lon)
		 FROM markers
		 WHERE lat BETWEEN ? AND ? AND lon BETWEEN ? AND ?
		   AND updated_at >= ? AND expires_at > ?
		 GROUP BY geohash
		 ORDER BY MAX(severity) DESC`,
		bbox.MinLat, bbox.MaxLat, bbox.MinLon, bbox.MaxLon,
		s.cutoff(sinceHours), s.clock.Now().Unix())
	if err != nil {
		return nil, fmt.Errorf("query hotspots: %w", err)
	}
	defer rows.Close()

	var cells []CellAggregate
	for rows.Next() {
		var c CellAggregate
		if err := rows.Scan(&c.Geohash, &c.Count, &c.MaxSeverity, &c.MeanSeverity, &c.CentroidLat, &c.CentroidLon); err != nil {
			return nil, fmt.Errorf("scan hotspot cell: %w", err)
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}

func (s *Store) queryMarkers(ctx context.Context, query string, args ...any) ([]domain.Marker, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query markers: %w", err)
	}
	defer rows.Close()

	var markers []domain.Marker
	for rows.Next() {
		var (
			m         domain.Marker
			hazard    string
			geom      sql.NullString
			updatedAt int64
		)
		if err := rows.Scan(&m.ID, &hazard, &m.Lat, &m.Lon, &m.Severity, &m.Weight,
			&m.Title, &m.Source.Name, &m.Source.URL, &geom, &updatedAt); err != nil {
			return nil, fmt.Errorf("scan marker: %w", err)
		}
		m.HazardType = domain.HazardType(hazard)
		m.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		if geom.Valid {
			var g domain.Geometry
			if err := json.Unmarshal([]byte(geom.String), &g); err == nil {
				m.Geometry = &g
			}
		}
		markers = append(markers, m)
	}
	return markers, rows.Err()
}

func (s *Store) cutoff(sinceHours int) int64 {
	if sinceHours <= 0 {
		return 0
	}
	return s.clock.Now().Add(-time.Duration(sinceHours) * time.Hour).Unix()
}
