package soldb

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()
	client, err := Open(filepath.Join(t.TempDir(), "history.sqlite"))
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func TestSolmateAndReadingRoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := newTestClient(t)

	if err := client.SaveSolmate(ctx, Solmate{SerialNum: "S1", Name: "garden"}); err != nil {
		t.Fatalf("SaveSolmate failed: %v", err)
	}
	sols, err := client.Solmates(ctx)
	if err != nil {
		t.Fatalf("Solmates failed: %v", err)
	}
	if len(sols) != 1 || sols[0].SerialNum != "S1" || sols[0].Name != "garden" {
		t.Fatalf("unexpected solmates: %v", sols)
	}

	base := time.Now().Add(-time.Minute)
	for i, v := range []float64{900, 950} {
		r := Reading{SerialNum: "S1", Field: "pv_power", Value: v, Timestamp: base.Add(time.Duration(i) * time.Second)}
		if err := client.SaveReading(ctx, r); err != nil {
			t.Fatalf("SaveReading failed: %v", err)
		}
	}

	rows, err := client.Readings(ctx, "S1", 0)
	if err != nil {
		t.Fatalf("Readings failed: %v", err)
	}
	if len(rows) != 2 || rows[0].Value != 950 {
		t.Fatalf("unexpected readings: %v", rows)
	}

	latest, err := client.Latest(ctx)
	if err != nil {
		t.Fatalf("Latest failed: %v", err)
	}
	if len(latest) != 1 || latest[0].Value != 950 {
		t.Fatalf("unexpected latest readings: %v", latest)
	}
}

func TestStatsJSON(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := newTestClient(t)

	if err := client.SaveSolmate(ctx, Solmate{SerialNum: "S1"}); err != nil {
		t.Fatalf("SaveSolmate failed: %v", err)
	}
	if err := client.SaveReading(ctx, Reading{SerialNum: "S1", Field: "temperature", Value: 30}); err != nil {
		t.Fatalf("SaveReading failed: %v", err)
	}

	raw, err := client.StatsJSON(ctx, "S1", 5)
	if err != nil {
		t.Fatalf("StatsJSON failed: %v", err)
	}
	var stats map[string]any
	if err := json.Unmarshal(raw, &stats); err != nil {
		t.Fatalf("decode stats: %v", err)
	}
	if stats["solmate_count"] != 1.0 || stats["reading_count"] != 1.0 {
		t.Fatalf("unexpected stats: %v", stats)
	}
}
