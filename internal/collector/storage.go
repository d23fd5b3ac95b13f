package collector

import (
	"bufio"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	dbpkg "solmate-sdk/internal/db"
)

// Storage writes collected readings to JSONL, CSV and/or SQLite
// asynchronously.
type Storage struct {
	dir string
	q   chan Reading
	wg  sync.WaitGroup

	enableJSON bool
	enableCSV  bool
	enableDB   bool

	jsonFile   *os.File
	jsonWriter *bufio.Writer

	csvFile   *os.File
	csvWriter *csv.Writer

	db *dbpkg.DB
}

// NewStorage ensures the output directory exists, opens the requested
// sinks and starts the background writer.
func NewStorage(path, fileType string, maxQueue int) (*Storage, error) {
	if path == "" {
		path = "data"
	}
	if st, err := os.Stat(path); err == nil && !st.IsDir() {
		path = filepath.Dir(path)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", path, err)
	}

	s := &Storage{dir: path}
	ft := strings.ToLower(strings.TrimSpace(fileType))
	for _, part := range strings.Split(ft, "+") {
		switch part {
		case "", "json", "jsonl":
			s.enableJSON = true
		case "csv":
			s.enableCSV = true
		case "db", "sqlite":
			s.enableDB = true
		case "both", "all":
			s.enableJSON = true
			s.enableCSV = true
		default:
			return nil, fmt.Errorf("unsupported storage file_type %q", fileType)
		}
	}
	if !s.enableJSON && !s.enableCSV && !s.enableDB {
		return nil, errors.New("storage must enable at least one output")
	}

	if maxQueue <= 0 {
		maxQueue = 1000
	}
	s.q = make(chan Reading, maxQueue)

	if s.enableJSON {
		jf, err := os.OpenFile(filepath.Join(path, "readings.jsonl"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open json output: %w", err)
		}
		s.jsonFile = jf
		s.jsonWriter = bufio.NewWriterSize(jf, 64*1024)
	}

	if s.enableCSV {
		cf, err := os.OpenFile(filepath.Join(path, "readings.csv"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			s.closeFiles()
			return nil, fmt.Errorf("open csv output: %w", err)
		}
		s.csvFile = cf
		s.csvWriter = csv.NewWriter(cf)
		if off, _ := cf.Seek(0, os.SEEK_END); off == 0 {
			if err := s.csvWriter.Write([]string{"timestamp", "serial_num", "name", "field", "value"}); err != nil {
				s.closeFiles()
				return nil, fmt.Errorf("write csv header: %w", err)
			}
			s.csvWriter.Flush()
		}
	}

	if s.enableDB {
		d, err := dbpkg.Open(filepath.Join(path, "readings.sqlite"))
		if err != nil {
			s.closeFiles()
			return nil, fmt.Errorf("open db output: %w", err)
		}
		s.db = d
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for r := range s.q {
			s.write(r)
		}
	}()
	return s, nil
}

// RegisterSolmate records a device row when the db sink is active.
func (s *Storage) RegisterSolmate(ctx context.Context, cfg SolmateConfig) error {
	if s.db == nil {
		return nil
	}
	return s.db.UpsertSolmate(ctx, dbpkg.Solmate{
		SerialNum: cfg.SerialNum,
		Name:      cfg.Name,
		URI:       cfg.URI,
	})
}

// Handle enqueues a reading; it drops with a log line when the queue is
// saturated rather than blocking the poll loop.
func (s *Storage) Handle(r Reading) error {
	select {
	case s.q <- r:
		return nil
	default:
		slog.Warn("storage queue full, dropping reading", "serial", r.SerialNum, "field", r.Field)
		return nil
	}
}

// Close drains the queue and closes all sinks.
func (s *Storage) Close() {
	close(s.q)
	s.wg.Wait()
	if s.jsonWriter != nil {
		_ = s.jsonWriter.Flush()
	}
	if s.csvWriter != nil {
		s.csvWriter.Flush()
	}
	s.closeFiles()
	if s.db != nil {
		_ = s.db.Close()
	}
}

func (s *Storage) closeFiles() {
	if s.jsonFile != nil {
		_ = s.jsonFile.Close()
		s.jsonFile = nil
	}
	if s.csvFile != nil {
		_ = s.csvFile.Close()
		s.csvFile = nil
	}
}

func (s *Storage) write(r Reading) {
	if s.enableJSON {
		if err := s.writeJSONL(r); err != nil {
			slog.Warn("jsonl write failed", "err", err)
		}
	}
	if s.enableCSV {
		if err := s.writeCSV(r); err != nil {
			slog.Warn("csv write failed", "err", err)
		}
	}
	if s.db != nil {
		err := s.db.SaveReading(context.Background(), dbpkg.Reading{
			SerialNum: r.SerialNum,
			Field:     r.Field,
			Value:     r.Value,
			Timestamp: r.Timestamp,
		})
		if err != nil {
			slog.Warn("db write failed", "err", err)
		}
	}
}

func (s *Storage) writeJSONL(r Reading) error {
	b, err := json.Marshal(map[string]any{
		"timestamp":  r.Timestamp.Format(time.RFC3339Nano),
		"serial_num": r.SerialNum,
		"name":       r.Name,
		"field":      r.Field,
		"value":      r.Value,
	})
	if err != nil {
		return err
	}
	if _, err := s.jsonWriter.Write(append(b, '\n')); err != nil {
		return err
	}
	return s.jsonWriter.Flush()
}

func (s *Storage) writeCSV(r Reading) error {
	rec := []string{
		r.Timestamp.Format(time.RFC3339Nano),
		r.SerialNum,
		r.Name,
		r.Field,
		strconv.FormatFloat(r.Value, 'f', -1, 64),
	}
	if err := s.csvWriter.Write(rec); err != nil {
		return err
	}
	s.csvWriter.Flush()
	return s.csvWriter.Error()
}
