// Package db stores collected SolMate readings in a local SQLite file.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection.
type DB struct {
	SQL *sql.DB
}

// Solmate is a row in the solmates table.
type Solmate struct {
	SerialNum string    `json:"serial_num"`
	Name      string    `json:"name"`
	URI       string    `json:"uri"`
	LastSeen  time.Time `json:"last_seen"`
}

// Reading is one collected telemetry value.
type Reading struct {
	SerialNum string    `json:"serial_num"`
	Field     string    `json:"field"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp"`
}

// Open opens (or creates) the database at path and ensures the schema.
func Open(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := sqlDB.Exec(pragma); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}
	if err := migrate(sqlDB); err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	return &DB{SQL: sqlDB}, nil
}

func migrate(sqlDB *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS solmates (
			serial_num TEXT PRIMARY KEY,
			name       TEXT NOT NULL DEFAULT '',
			uri        TEXT NOT NULL DEFAULT '',
			last_seen  INTEGER NOT NULL DEFAULT 0
		)`,
		`CREATE TABLE IF NOT EXISTS readings (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			serial_num TEXT NOT NULL,
			field      TEXT NOT NULL,
			value      REAL NOT NULL,
			timestamp  INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_serial_field_ts
			ON readings(serial_num, field, timestamp)`,
	}
	for _, stmt := range stmts {
		if _, err := sqlDB.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

func (d *DB) Close() error { return d.SQL.Close() }

// UpsertSolmate records a device and bumps its last_seen timestamp.
func (d *DB) UpsertSolmate(ctx context.Context, s Solmate) error {
	if s.LastSeen.IsZero() {
		s.LastSeen = time.Now()
	}
	_, err := d.SQL.ExecContext(ctx,
		`INSERT INTO solmates (serial_num, name, uri, last_seen) VALUES (?, ?, ?, ?)
		 ON CONFLICT(serial_num) DO UPDATE SET name=excluded.name, uri=excluded.uri, last_seen=excluded.last_seen`,
		s.SerialNum, s.Name, s.URI, s.LastSeen.UnixNano())
	return err
}

// ListSolmates returns all known devices ordered by serial number.
func (d *DB) ListSolmates(ctx context.Context) ([]Solmate, error) {
	rows, err := d.SQL.QueryContext(ctx,
		`SELECT serial_num, name, uri, last_seen FROM solmates ORDER BY serial_num`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Solmate
	for rows.Next() {
		var s Solmate
		var seen int64
		if err := rows.Scan(&s.SerialNum, &s.Name, &s.URI, &seen); err != nil {
			return nil, err
		}
		s.LastSeen = time.Unix(0, seen)
		out = append(out, s)
	}
	return out, rows.Err()
}

// SaveReading inserts one reading row.
func (d *DB) SaveReading(ctx context.Context, r Reading) error {
	if r.Timestamp.IsZero() {
		r.Timestamp = time.Now()
	}
	_, err := d.SQL.ExecContext(ctx,
		`INSERT INTO readings (serial_num, field, value, timestamp) VALUES (?, ?, ?, ?)`,
		r.SerialNum, r.Field, r.Value, r.Timestamp.UnixNano())
	return err
}

// Readings returns the newest rows for one device, optionally limited.
func (d *DB) Readings(ctx context.Context, serialnum string, limit int) ([]Reading, error) {
	q := `SELECT serial_num, field, value, timestamp FROM readings
		WHERE serial_num = ? ORDER BY timestamp DESC, field`
	args := []any{serialnum}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := d.SQL.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReadings(rows)
}

// LatestReadings returns, for every (serial, field) pair, the most recent
// reading.
func (d *DB) LatestReadings(ctx context.Context) ([]Reading, error) {
	rows, err := d.SQL.QueryContext(ctx,
		`SELECT r.serial_num, r.field, r.value, r.timestamp
		 FROM readings r
		 JOIN (
			SELECT serial_num, field, MAX(timestamp) AS ts
			FROM readings GROUP BY serial_num, field
		 ) l ON l.serial_num = r.serial_num AND l.field = r.field AND l.ts = r.timestamp
		 ORDER BY r.serial_num, r.field`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanReadings(rows)
}

func scanReadings(rows *sql.Rows) ([]Reading, error) {
	var out []Reading
	for rows.Next() {
		var r Reading
		var ts int64
		if err := rows.Scan(&r.SerialNum, &r.Field, &r.Value, &ts); err != nil {
			return nil, err
		}
		r.Timestamp = time.Unix(0, ts)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats aggregates device and reading data for one serial number.
type Stats struct {
	SolmateCount int       `json:"solmate_count"`
	Solmates     []Solmate `json:"solmates"`
	ReadingCount int       `json:"reading_count"`
	Readings     []Reading `json:"readings"`
}

// StatsJSON returns aggregated stats for a device as JSON, limiting the
// number of readings when limit > 0.
func (d *DB) StatsJSON(ctx context.Context, serialnum string, limit int) ([]byte, error) {
	solmates, err := d.ListSolmates(ctx)
	if err != nil {
		return nil, err
	}
	readings, err := d.Readings(ctx, serialnum, limit)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Stats{
		SolmateCount: len(solmates),
		Solmates:     solmates,
		ReadingCount: len(readings),
		Readings:     readings,
	})
}
