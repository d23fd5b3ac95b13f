// Package output writes reading snapshots to JSON or CSV files.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"time"

	"solmate-sdk/pkg/soldb"
)

// WriteJSON writes readings to a JSON file with pretty formatting.
func WriteJSON(path string, readings []soldb.Reading) error {
	b, err := json.MarshalIndent(readings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	if err := os.WriteFile(path, b, 0644); err != nil {
		return fmt.Errorf("write json: %w", err)
	}
	return nil
}

// WriteCSV writes readings to a CSV file.
// Columns: timestamp,serial_num,field,value
func WriteCSV(path string, readings []soldb.Reading) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"timestamp", "serial_num", "field", "value"}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range readings {
		rec := []string{
			timeToRFC3339(r.Timestamp),
			r.SerialNum,
			r.Field,
			strconv.FormatFloat(r.Value, 'f', -1, 64),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

func timeToRFC3339(t time.Time) string { return t.Format(time.RFC3339Nano) }
