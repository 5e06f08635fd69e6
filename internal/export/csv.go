// Package export moves roll-up results out of, and KPI measurements into,
// the tool as CSV.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"stratplan/internal/report"
)

var resultsHeader = []string{"level", "id", "title", "percent", "status", "total_kpis"}

// WriteResults writes roll-up results as CSV. Percent is emitted as the
// exact fraction; spreadsheet consumers format it themselves.
func WriteResults(w io.Writer, results []report.Result) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(resultsHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range results {
		record := []string{
			string(r.Level),
			r.ID,
			r.Title,
			strconv.FormatFloat(r.Percent, 'g', -1, 64),
			string(r.Status),
			strconv.Itoa(r.TotalKPIs),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flush csv: %w", err)
	}
	return nil
}

// WriteResultsFile writes results to path, creating parent directories.
func WriteResultsFile(path string, results []report.Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure export dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create export file: %w", err)
	}
	if err := WriteResults(f, results); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close export file: %w", err)
	}
	return nil
}

// CurrentValue is one measurement row from a KPI current-value CSV.
type CurrentValue struct {
	KPIID   string
	Current float64
}

// ReadCurrentValues parses a two-column CSV of kpi_id,current. A header row
// is detected by a non-numeric second column and skipped.
func ReadCurrentValues(r io.Reader) ([]CurrentValue, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var values []CurrentValue
	line := 0
	for {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		line++
		if len(record) < 2 {
			return nil, fmt.Errorf("line %d: expected kpi_id,current", line)
		}
		id := strings.TrimSpace(record[0])
		raw := strings.TrimSpace(record[1])
		if id == "" {
			continue
		}
		current, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			if line == 1 {
				// header row
				continue
			}
			return nil, fmt.Errorf("line %d: cannot parse current %q", line, raw)
		}
		values = append(values, CurrentValue{KPIID: id, Current: current})
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("no measurement rows found")
	}
	return values, nil
}

// ReadCurrentValuesFile reads a current-value CSV from disk.
func ReadCurrentValuesFile(path string) ([]CurrentValue, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open csv: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return ReadCurrentValues(f)
}
