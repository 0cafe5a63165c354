// backend/src/storage/csv.go

// Package storage persists the pipeline's tables as CSV files. Every store
// follows the same contract: the table is read in full, mutated in memory and
// written back in full through an atomic replace, so a failed operation never
// leaves a half-written file behind. Concurrent writers are out of scope;
// callers serialize access.
package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// Dates are stored as YYYY-MM-DD; audit timestamps keep the time of day.
// Legacy rows may carry either, so reads accept both.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02 15:04:05"
)

// readTable reads a whole CSV table. A missing file is an empty table, not an
// error. The returned index maps column names to positions so stores survive
// column reordering and tables written before a column existed.
func readTable(path string) (index map[string]int, records [][]string, err error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, nil, nil
	}

	index = make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[name] = i
	}
	return index, rows[1:], nil
}

// writeTable replaces the table atomically: write to a temp file in the same
// directory, then rename over the target.
func writeTable(path string, header []string, records [][]string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	writer := csv.NewWriter(tmp)
	if err := writer.Write(header); err != nil {
		tmp.Close()
		return fmt.Errorf("writing header of %s: %w", path, err)
	}
	if err := writer.WriteAll(records); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		tmp.Close()
		return fmt.Errorf("flushing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file for %s: %w", path, err)
	}
	return os.Rename(tmp.Name(), path)
}

// field returns a named column of a record, or "" when the column is absent.
func field(record []string, index map[string]int, name string) string {
	i, ok := index[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

// isNull reports whether a cell is a null marker. The literal text "NaN" is a
// null (pandas wrote it for missing values); an ordinary empty cell is too.
// Any other content, including whitespace, is a value.
func isNull(s string) bool {
	return s == "" || s == "NaN"
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}

func parseFloat(s string) (float64, error) {
	if isNull(s) {
		return 0, nil
	}
	return strconv.ParseFloat(s, 64)
}

func parseFloatPtr(s string) (*float64, error) {
	if isNull(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func parseInt(s string) (int, error) {
	if isNull(s) {
		return 0, nil
	}
	return strconv.Atoi(s)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(timestampLayout)
}

func parseDate(s string) (time.Time, error) {
	if isNull(s) {
		return time.Time{}, nil
	}
	for _, layout := range []string{dateLayout, timestampLayout, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}
