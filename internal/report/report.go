// Package report persists roll-up results as schema-versioned JSON snapshot
// files, one per as-of date.
package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"stratplan/internal/plan"
	"stratplan/internal/rollup"
)

const SchemaVersion = 1

// Level identifies which tier of the hierarchy a result describes.
type Level string

const (
	LevelObjective Level = "objective"
	LevelStrategy  Level = "strategy"
	LevelTactic    Level = "tactic"
	LevelKPI       Level = "kpi"
)

// levelRank orders results top-down for canonical output.
var levelRank = map[Level]int{
	LevelObjective: 0,
	LevelStrategy:  1,
	LevelTactic:    2,
	LevelKPI:       3,
}

// Result is the derived roll-up for a single entity. Percent is the exact
// unrounded fraction; display rounding belongs to the render layer.
type Result struct {
	Level     Level         `json:"level"`
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Percent   float64       `json:"percent"`
	Status    rollup.Status `json:"status"`
	TotalKPIs int           `json:"total_kpis"`
}

// Report is a complete roll-up of a plan snapshot. Fingerprint records the
// hash of the plans directory the report was computed from, so callers can
// skip recomputation while the tree is unchanged.
type Report struct {
	SchemaVersion int      `json:"schema_version"`
	AsOf          string   `json:"as_of"`
	PlanDir       string   `json:"plan_dir"`
	Fingerprint   string   `json:"fingerprint,omitempty"`
	Results       []Result `json:"results"`
}

// Build computes roll-up results for every entity in the store, canonically
// ordered by level rank then id.
func Build(store *plan.Store, th rollup.Thresholds) ([]Result, error) {
	if store == nil {
		return nil, fmt.Errorf("plan store is required")
	}

	var results []Result
	add := func(level Level, id, title string, s rollup.Summary) {
		results = append(results, Result{
			Level:     level,
			ID:        id,
			Title:     title,
			Percent:   s.Percent,
			Status:    s.Status,
			TotalKPIs: s.Total,
		})
	}

	for _, doc := range store.Documents {
		for _, obj := range doc.Objectives {
			add(LevelObjective, obj.ID, obj.Title, rollup.SummarizeObjective(obj, th))
			for _, strat := range obj.Strategies {
				add(LevelStrategy, strat.ID, strat.Title, rollup.SummarizeStrategy(strat, th))
				for _, k := range strat.KPIs {
					add(LevelKPI, k.ID, k.Title, rollup.SummarizeKPI(k, th))
				}
				for _, tac := range strat.Tactics {
					add(LevelTactic, tac.ID, tac.Title, rollup.SummarizeTactic(tac, th))
					for _, k := range tac.KPIs {
						add(LevelKPI, k.ID, k.Title, rollup.SummarizeKPI(k, th))
					}
				}
			}
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		a := results[i]
		b := results[j]
		if levelRank[a.Level] != levelRank[b.Level] {
			return levelRank[a.Level] < levelRank[b.Level]
		}
		return a.ID < b.ID
	})

	return results, nil
}

// Write persists a report atomically via a temp file and rename.
func Write(path string, rep Report) error {
	if path == "" {
		return fmt.Errorf("report path is required")
	}
	if rep.AsOf == "" {
		return fmt.Errorf("report as_of is required")
	}
	rep.SchemaVersion = SchemaVersion

	data, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure report dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp report: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename report: %w", err)
	}
	return nil
}

// Load reads and validates a previously written report.
func Load(path string) (*Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var rep Report
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&rep); err != nil {
		return nil, fmt.Errorf("decode report: %w", err)
	}
	if rep.SchemaVersion != SchemaVersion {
		return nil, fmt.Errorf("unsupported report schema_version %d", rep.SchemaVersion)
	}
	if rep.AsOf == "" {
		return nil, fmt.Errorf("report missing as_of")
	}
	return &rep, nil
}

// PathForDate returns the snapshot path for the given as-of date.
func PathForDate(dir string, asOf time.Time) string {
	date := asOf.UTC().Format("2006-01-02")
	return filepath.Join(dir, date+".json")
}

// LatestPath returns the newest report in dir.
func LatestPath(dir string) (string, error) {
	paths, err := sortedPaths(dir)
	if err != nil {
		return "", err
	}
	return paths[len(paths)-1], nil
}

// LatestTwoPaths returns the two newest reports in dir, oldest first.
func LatestTwoPaths(dir string) (string, string, error) {
	paths, err := sortedPaths(dir)
	if err != nil {
		return "", "", err
	}
	if len(paths) < 2 {
		return "", "", fmt.Errorf("need at least two reports in %s to compare, found %d", dir, len(paths))
	}
	return paths[len(paths)-2], paths[len(paths)-1], nil
}

func sortedPaths(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read reports dir: %w", err)
	}
	var candidates []string
	for _, ent := range entries {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}
		// YYYY-MM-DD.json compares lexicographically in chronological order.
		candidates = append(candidates, filepath.Join(dir, name))
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("no reports found in %s", dir)
	}
	sort.Strings(candidates)
	return candidates, nil
}
