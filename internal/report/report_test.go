package report

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"stratplan/internal/plan"
	"stratplan/internal/rollup"
)

func testStore(t *testing.T) *plan.Store {
	t.Helper()
	doc, err := plan.ParseAndValidateDocument([]byte(`plan: Test Plan
objectives:
  - objective_id: "1"
    title: Grow
    strategies:
      - strategy_id: "1.1"
        title: Expand
        kpis:
          - kpi_id: "1.1.1"
            title: Revenue
            metric_type: numeric
            target: 100
            current: 80
        tactics:
          - tactic_id: "1.1.t1"
            title: Campaign
            kpis:
              - kpi_id: "1.1.t1.1"
                title: Launch
                metric_type: milestone
                current: 0
      - strategy_id: "1.2"
        title: Retain
`), "test.yml")
	if err != nil {
		t.Fatalf("parse fixture: %v", err)
	}
	return plan.BuildStore([]plan.Document{doc})
}

func TestBuildCanonicalOrderAndValues(t *testing.T) {
	store := testStore(t)
	results, err := Build(store, rollup.DefaultThresholds)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	// 1 objective + 2 strategies + 1 tactic + 2 KPIs
	if got, want := len(results), 6; got != want {
		t.Fatalf("results len = %d, want %d", got, want)
	}
	if results[0].Level != LevelObjective || results[0].ID != "1" {
		t.Fatalf("first result = %+v, want objective 1", results[0])
	}
	if results[1].Level != LevelStrategy || results[1].ID != "1.1" {
		t.Fatalf("second result = %+v, want strategy 1.1", results[1])
	}
	if results[len(results)-1].Level != LevelKPI {
		t.Fatalf("last result = %+v, want a kpi", results[len(results)-1])
	}

	// Strategy 1.1 pools its direct KPI (0.8) with the tactic milestone (0).
	var s11 Result
	for _, r := range results {
		if r.Level == LevelStrategy && r.ID == "1.1" {
			s11 = r
		}
	}
	if math.Abs(s11.Percent-0.4) > 1e-12 {
		t.Fatalf("strategy 1.1 percent = %v, want 0.4", s11.Percent)
	}
	if s11.Status != rollup.StatusAtRisk {
		t.Fatalf("strategy 1.1 status = %s, want %s", s11.Status, rollup.StatusAtRisk)
	}
	if s11.TotalKPIs != 2 {
		t.Fatalf("strategy 1.1 total = %d, want 2", s11.TotalKPIs)
	}

	// Objective averages strategy aggregates: (0.4 + 0) / 2.
	if math.Abs(results[0].Percent-0.2) > 1e-12 {
		t.Fatalf("objective percent = %v, want 0.2", results[0].Percent)
	}
	if results[0].TotalKPIs != 2 {
		t.Fatalf("objective total = %d, want 2", results[0].TotalKPIs)
	}
}

func TestWriteLoadRoundTrip(t *testing.T) {
	store := testStore(t)
	results, err := Build(store, rollup.DefaultThresholds)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	dir := t.TempDir()
	asOf := time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC)
	path := PathForDate(dir, asOf)
	if filepath.Base(path) != "2026-08-30.json" {
		t.Fatalf("unexpected report path %s", path)
	}

	rep := Report{
		AsOf:        "2026-08-30",
		PlanDir:     "plans",
		Fingerprint: "abc123",
		Results:     results,
	}
	if err := Write(path, rep); err != nil {
		t.Fatalf("Write: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.SchemaVersion != SchemaVersion {
		t.Fatalf("schema version = %d", loaded.SchemaVersion)
	}
	if loaded.Fingerprint != "abc123" {
		t.Fatalf("fingerprint = %q", loaded.Fingerprint)
	}
	if len(loaded.Results) != len(results) {
		t.Fatalf("results len = %d, want %d", len(loaded.Results), len(results))
	}
	// Exact unrounded fractions must survive the round trip bit for bit.
	for i := range results {
		if loaded.Results[i].Percent != results[i].Percent {
			t.Fatalf("percent drifted at %d: %v != %v", i, loaded.Results[i].Percent, results[i].Percent)
		}
	}
}

func TestLatestPath(t *testing.T) {
	dir := t.TempDir()
	for _, date := range []string{"2026-08-28", "2026-08-30", "2026-08-29"} {
		rep := Report{AsOf: date}
		if err := Write(filepath.Join(dir, date+".json"), rep); err != nil {
			t.Fatalf("Write %s: %v", date, err)
		}
	}
	latest, err := LatestPath(dir)
	if err != nil {
		t.Fatalf("LatestPath: %v", err)
	}
	if filepath.Base(latest) != "2026-08-30.json" {
		t.Fatalf("latest = %s", latest)
	}

	older, newer, err := LatestTwoPaths(dir)
	if err != nil {
		t.Fatalf("LatestTwoPaths: %v", err)
	}
	if filepath.Base(older) != "2026-08-29.json" || filepath.Base(newer) != "2026-08-30.json" {
		t.Fatalf("latest two = %s, %s", older, newer)
	}
}

func TestStatusChanges(t *testing.T) {
	old := &Report{AsOf: "2026-08-29", Results: []Result{
		{Level: LevelStrategy, ID: "1.1", Title: "Expand", Percent: 0.35, Status: rollup.StatusOffTrack},
		{Level: LevelKPI, ID: "1.1.1", Title: "Revenue", Percent: 0.35, Status: rollup.StatusOffTrack},
		{Level: LevelKPI, ID: "gone", Title: "Removed", Percent: 0.9, Status: rollup.StatusOnTrack},
	}}
	now := &Report{AsOf: "2026-08-30", Results: []Result{
		{Level: LevelStrategy, ID: "1.1", Title: "Expand", Percent: 0.45, Status: rollup.StatusAtRisk},
		{Level: LevelKPI, ID: "1.1.1", Title: "Revenue", Percent: 0.45, Status: rollup.StatusAtRisk},
		{Level: LevelKPI, ID: "new", Title: "Added", Percent: 0.1, Status: rollup.StatusOffTrack},
	}}

	changes := StatusChanges(old, now)
	if len(changes) != 2 {
		t.Fatalf("changes = %d, want 2: %#v", len(changes), changes)
	}
	if changes[0].ID != "1.1" || changes[0].OldStatus != rollup.StatusOffTrack || changes[0].NewStatus != rollup.StatusAtRisk {
		t.Fatalf("unexpected first change: %+v", changes[0])
	}

	if got := StatusChanges(now, now); len(got) != 0 {
		t.Fatalf("self-compare produced changes: %#v", got)
	}
}
