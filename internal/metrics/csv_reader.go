package metrics

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// ReadMetricsCSV reads a file written by Writer. It also returns the first
// and last timestamps in the data.
func ReadMetricsCSV(path string) ([]Metric, time.Time, time.Time, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, time.Time{}, time.Time{}, fmt.Errorf("open metrics CSV: %w", err)
	}
	defer file.Close()
	return readMetrics(file)
}

// columns maps header names to positions in a row.
type columns map[string]int

func (c columns) get(row []string, name string) string {
	if i, ok := c[name]; ok && i < len(row) {
		return row[i]
	}
	return ""
}

func readMetrics(r io.Reader) (out []Metric, first, last time.Time, err error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, first, last, fmt.Errorf("read CSV header: %w", err)
	}
	cols := columns{}
	for i, name := range header {
		cols[name] = i
	}
	for _, name := range []string{"timestamp", "operation", "success", "rtt_ms"} {
		if _, ok := cols[name]; !ok {
			return nil, first, last, fmt.Errorf("CSV missing required column: %s", name)
		}
	}

	for line := 2; ; line++ {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, first, last, fmt.Errorf("read CSV row %d: %w", line, err)
		}
		out = append(out, parseRow(cols, row))
		if ts := out[len(out)-1].Timestamp; !ts.IsZero() {
			if first.IsZero() {
				first = ts
			}
			last = ts
		}
	}
	if len(out) == 0 {
		return nil, first, last, fmt.Errorf("no data rows in CSV file")
	}
	return out, first, last, nil
}

// parseRow decodes one row. Unparseable numeric or time cells are left zero.
func parseRow(cols columns, row []string) Metric {
	m := Metric{
		Operation: OperationType(cols.get(row, "operation")),
		Target:    cols.get(row, "target"),
		Command:   cols.get(row, "command"),
		Service:   cols.get(row, "service"),
		Success:   cols.get(row, "success") == "true",
		Outcome:   cols.get(row, "outcome"),
		Error:     cols.get(row, "error"),
	}
	m.Timestamp, _ = time.Parse(time.RFC3339Nano, cols.get(row, "timestamp"))
	m.RTTMs, _ = strconv.ParseFloat(cols.get(row, "rtt_ms"), 64)
	if v, err := strconv.ParseUint(cols.get(row, "status"), 10, 8); err == nil {
		m.Status = uint8(v)
	}
	return m
}
