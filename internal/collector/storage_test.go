package collector

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	dbpkg "solmate-sdk/internal/db"
)

func sampleReading(field string, value float64) Reading {
	return Reading{
		SerialNum: "test1",
		Name:      "garden",
		Field:     field,
		Value:     value,
		Timestamp: time.Now(),
	}
}

func TestStorageJSONLAndCSV(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := NewStorage(dir, "jsonl+csv", 10)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	for i := 0; i < 3; i++ {
		if err := s.Handle(sampleReading("pv_power", float64(1000+i))); err != nil {
			t.Fatalf("Handle failed: %v", err)
		}
	}
	s.Close()

	jf, err := os.Open(filepath.Join(dir, "readings.jsonl"))
	if err != nil {
		t.Fatalf("open jsonl: %v", err)
	}
	defer jf.Close()
	lines := 0
	sc := bufio.NewScanner(jf)
	for sc.Scan() {
		var row map[string]any
		if err := json.Unmarshal(sc.Bytes(), &row); err != nil {
			t.Fatalf("bad jsonl line %q: %v", sc.Text(), err)
		}
		if row["serial_num"] != "test1" || row["field"] != "pv_power" {
			t.Fatalf("unexpected jsonl row: %v", row)
		}
		lines++
	}
	if lines != 3 {
		t.Fatalf("expected 3 jsonl rows, got %d", lines)
	}

	cf, err := os.Open(filepath.Join(dir, "readings.csv"))
	if err != nil {
		t.Fatalf("open csv: %v", err)
	}
	defer cf.Close()
	records, err := csv.NewReader(cf).ReadAll()
	if err != nil {
		t.Fatalf("read csv: %v", err)
	}
	if len(records) != 4 { // header + 3 rows
		t.Fatalf("expected 4 csv records, got %d", len(records))
	}
	if records[0][0] != "timestamp" || records[0][1] != "serial_num" {
		t.Fatalf("unexpected csv header: %v", records[0])
	}
}

func TestStorageSQLite(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStorage(dir, "db", 10)
	if err != nil {
		t.Fatalf("NewStorage failed: %v", err)
	}
	cfg := SolmateConfig{SerialNum: "test1", Name: "garden", URI: "ws://localhost:9124"}
	if err := s.RegisterSolmate(ctx, cfg); err != nil {
		t.Fatalf("RegisterSolmate failed: %v", err)
	}
	if err := s.Handle(sampleReading("battery_state", 61.5)); err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	s.Close()

	d, err := dbpkg.Open(filepath.Join(dir, "readings.sqlite"))
	if err != nil {
		t.Fatalf("reopen db: %v", err)
	}
	defer d.Close()

	sols, err := d.ListSolmates(ctx)
	if err != nil {
		t.Fatalf("ListSolmates failed: %v", err)
	}
	if len(sols) != 1 || sols[0].SerialNum != "test1" {
		t.Fatalf("unexpected solmates: %v", sols)
	}

	rows, err := d.Readings(ctx, "test1", 0)
	if err != nil {
		t.Fatalf("Readings failed: %v", err)
	}
	if len(rows) != 1 || rows[0].Field != "battery_state" || rows[0].Value != 61.5 {
		t.Fatalf("unexpected readings: %v", rows)
	}
}

func TestStorageRejectsUnknownType(t *testing.T) {
	t.Parallel()
	if _, err := NewStorage(t.TempDir(), "parquet", 10); err == nil {
		t.Fatalf("expected error for unsupported file_type")
	}
}
