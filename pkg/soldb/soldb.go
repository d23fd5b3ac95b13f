// Package soldb exposes a stable query API over the reading history
// database written by the collector.
package soldb

import (
	"context"
	"time"

	dbpkg "solmate-sdk/internal/db"
)

// Client wraps the history database for third-party use.
type Client struct{ db *dbpkg.DB }

// Open opens the SQLite database (creating the schema if needed) and
// returns a client.
func Open(path string) (*Client, error) {
	d, err := dbpkg.Open(path)
	if err != nil {
		return nil, err
	}
	return &Client{db: d}, nil
}

// Close closes the underlying database.
func (c *Client) Close() error { return c.db.Close() }

// Solmate describes one known device.
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

// Solmates lists all devices the collector has seen.
func (c *Client) Solmates(ctx context.Context) ([]Solmate, error) {
	list, err := c.db.ListSolmates(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Solmate, 0, len(list))
	for _, s := range list {
		out = append(out, Solmate{SerialNum: s.SerialNum, Name: s.Name, URI: s.URI, LastSeen: s.LastSeen})
	}
	return out, nil
}

// SaveSolmate registers or updates a device record.
func (c *Client) SaveSolmate(ctx context.Context, s Solmate) error {
	return c.db.UpsertSolmate(ctx, dbpkg.Solmate{
		SerialNum: s.SerialNum, Name: s.Name, URI: s.URI, LastSeen: s.LastSeen,
	})
}

// SaveReading appends one reading to the history.
func (c *Client) SaveReading(ctx context.Context, r Reading) error {
	return c.db.SaveReading(ctx, dbpkg.Reading{
		SerialNum: r.SerialNum, Field: r.Field, Value: r.Value, Timestamp: r.Timestamp,
	})
}

// Readings returns the newest readings for one device, optionally limited.
func (c *Client) Readings(ctx context.Context, serialnum string, limit int) ([]Reading, error) {
	rows, err := c.db.Readings(ctx, serialnum, limit)
	if err != nil {
		return nil, err
	}
	return fromModel(rows), nil
}

// Latest returns the most recent reading per (serial, field) pair.
func (c *Client) Latest(ctx context.Context) ([]Reading, error) {
	rows, err := c.db.LatestReadings(ctx)
	if err != nil {
		return nil, err
	}
	return fromModel(rows), nil
}

// StatsJSON returns aggregated stats for one device as JSON.
func (c *Client) StatsJSON(ctx context.Context, serialnum string, limit int) ([]byte, error) {
	return c.db.StatsJSON(ctx, serialnum, limit)
}

func fromModel(rows []dbpkg.Reading) []Reading {
	out := make([]Reading, 0, len(rows))
	for _, r := range rows {
		out = append(out, Reading{SerialNum: r.SerialNum, Field: r.Field, Value: r.Value, Timestamp: r.Timestamp})
	}
	return out
}
