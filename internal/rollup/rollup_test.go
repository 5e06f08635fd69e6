package rollup

import (
	"math"
	"testing"

	"stratplan/internal/plan"
)

const epsilon = 1e-12

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < epsilon
}

func numericKPI(id string, target, current float64) plan.KPI {
	return plan.KPI{ID: id, MetricType: plan.MetricNumeric, Target: target, Current: current}
}

func TestKPIPercentNumeric(t *testing.T) {
	cases := []struct {
		name    string
		target  float64
		current float64
		want    float64
	}{
		{"partial", 100, 75, 0.75},
		{"overshoot clamps to one", 100, 150, 1.0},
		{"zero target", 0, 50, 0},
		{"negative current clamps to zero", 100, -10, 0},
		{"exact", 200, 200, 1.0},
		{"zero current", 100, 0, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := KPIPercent(numericKPI("k", tc.target, tc.current))
			if !almostEqual(got, tc.want) {
				t.Fatalf("KPIPercent(target=%v, current=%v) = %v, want %v", tc.target, tc.current, got, tc.want)
			}
		})
	}
}

func TestKPIPercentMilestone(t *testing.T) {
	cases := []struct {
		current float64
		want    float64
	}{
		{0, 0},
		{1, 1},
		{5, 1},
		{-2, 1},
	}
	for _, tc := range cases {
		k := plan.KPI{ID: "m", MetricType: plan.MetricMilestone, Target: 99, Current: tc.current}
		if got := KPIPercent(k); got != tc.want {
			t.Fatalf("milestone current=%v: got %v, want %v", tc.current, got, tc.want)
		}
	}
}

func TestKPIPercentMonotonicAndBounded(t *testing.T) {
	prev := -1.0
	for current := -50.0; current <= 250; current += 10 {
		got := KPIPercent(numericKPI("k", 100, current))
		if got < 0 || got > 1 {
			t.Fatalf("KPIPercent out of range at current=%v: %v", current, got)
		}
		if got < prev {
			t.Fatalf("KPIPercent not monotonic at current=%v: %v < %v", current, got, prev)
		}
		prev = got
	}
}

func TestAverage(t *testing.T) {
	if got := Average(nil); got != 0 {
		t.Fatalf("Average(nil) = %v, want 0", got)
	}
	if got := Average([]float64{}); got != 0 {
		t.Fatalf("Average(empty) = %v, want 0", got)
	}
	if got := Average([]float64{0.5, 0.75, 1.0}); !almostEqual(got, 0.75) {
		t.Fatalf("Average = %v, want 0.75", got)
	}
}

func TestTacticPercent(t *testing.T) {
	empty := plan.Tactic{ID: "t1"}
	if got := TacticPercent(empty); got != 0 {
		t.Fatalf("empty tactic = %v, want 0", got)
	}

	tac := plan.Tactic{ID: "t2", KPIs: []plan.KPI{
		numericKPI("a", 100, 50),
		numericKPI("b", 100, 100),
	}}
	if got := TacticPercent(tac); !almostEqual(got, 0.75) {
		t.Fatalf("tactic = %v, want 0.75", got)
	}
}

func TestStrategyPercentDirectOnly(t *testing.T) {
	s := plan.Strategy{ID: "s", KPIs: []plan.KPI{
		numericKPI("a", 100, 60),
		numericKPI("b", 100, 80),
	}}
	if got := StrategyPercent(s); !almostEqual(got, 0.70) {
		t.Fatalf("strategy = %v, want 0.70", got)
	}
}

func TestStrategyPercentTacticsOnly(t *testing.T) {
	s := plan.Strategy{ID: "s", Tactics: []plan.Tactic{
		{ID: "t1", KPIs: []plan.KPI{numericKPI("a", 100, 50)}},
		{ID: "t2", KPIs: []plan.KPI{numericKPI("b", 100, 75)}},
	}}
	if got := StrategyPercent(s); !almostEqual(got, 0.625) {
		t.Fatalf("strategy = %v, want 0.625", got)
	}
}

// Unequal-sized tactics distinguish pooling from averaging sub-averages:
// pooled = (1 + 0 + 0) / 3, while average-of-averages would give
// (1 + 0) / 2 = 0.5.
func TestStrategyPercentPoolsNotDoubleAverages(t *testing.T) {
	s := plan.Strategy{ID: "s", Tactics: []plan.Tactic{
		{ID: "big", KPIs: []plan.KPI{
			numericKPI("a", 100, 100),
			numericKPI("b", 100, 0),
			numericKPI("c", 100, 0),
		}},
		{ID: "small", KPIs: []plan.KPI{numericKPI("d", 100, 100)}},
	}}
	want := (1.0 + 0 + 0 + 1.0) / 4.0
	if got := StrategyPercent(s); !almostEqual(got, want) {
		t.Fatalf("strategy = %v, want pooled %v", got, want)
	}
}

func TestStrategyPercentMixedDirectAndTactic(t *testing.T) {
	s := plan.Strategy{
		ID:   "s",
		KPIs: []plan.KPI{numericKPI("direct", 100, 80)},
		Tactics: []plan.Tactic{
			{ID: "t", KPIs: []plan.KPI{numericKPI("nested", 100, 60)}},
		},
	}
	if got := StrategyPercent(s); !almostEqual(got, 0.70) {
		t.Fatalf("strategy = %v, want 0.70", got)
	}
}

func TestStrategyPercentEmpty(t *testing.T) {
	if got := StrategyPercent(plan.Strategy{ID: "s"}); got != 0 {
		t.Fatalf("empty strategy = %v, want 0", got)
	}
	withEmptyTactics := plan.Strategy{ID: "s", Tactics: []plan.Tactic{{ID: "t1"}, {ID: "t2"}}}
	if got := StrategyPercent(withEmptyTactics); got != 0 {
		t.Fatalf("strategy with empty tactics = %v, want 0", got)
	}
}

func TestObjectivePercentAveragesStrategies(t *testing.T) {
	o := plan.Objective{ID: "o", Strategies: []plan.Strategy{
		{ID: "s1", KPIs: []plan.KPI{numericKPI("a", 100, 60)}},
		{ID: "s2", KPIs: []plan.KPI{numericKPI("b", 100, 80)}},
	}}
	if got := ObjectivePercent(o); !almostEqual(got, 0.70) {
		t.Fatalf("objective = %v, want 0.70", got)
	}

	if got := ObjectivePercent(plan.Objective{ID: "empty"}); got != 0 {
		t.Fatalf("objective with no strategies = %v, want 0", got)
	}
}

// The objective level deliberately averages per-strategy aggregates instead
// of pooling leaves, so a one-KPI strategy counterweights a three-KPI one.
func TestObjectivePercentWeighsStrategiesEqually(t *testing.T) {
	o := plan.Objective{ID: "o", Strategies: []plan.Strategy{
		{ID: "s1", KPIs: []plan.KPI{
			numericKPI("a", 100, 0),
			numericKPI("b", 100, 0),
			numericKPI("c", 100, 0),
		}},
		{ID: "s2", KPIs: []plan.KPI{numericKPI("d", 100, 100)}},
	}}
	if got := ObjectivePercent(o); !almostEqual(got, 0.5) {
		t.Fatalf("objective = %v, want 0.5 (equal strategy weights)", got)
	}
}

func TestKPICounts(t *testing.T) {
	s := plan.Strategy{
		ID:   "s",
		KPIs: []plan.KPI{numericKPI("a", 100, 0), numericKPI("b", 100, 0)},
		Tactics: []plan.Tactic{
			{ID: "t1", KPIs: []plan.KPI{numericKPI("c", 100, 0)}},
			{ID: "t2"},
		},
	}
	if got := StrategyKPICount(s); got != 3 {
		t.Fatalf("StrategyKPICount = %d, want 3", got)
	}
	if got := TacticKPICount(s.Tactics[0]); got != 1 {
		t.Fatalf("TacticKPICount = %d, want 1", got)
	}
	o := plan.Objective{ID: "o", Strategies: []plan.Strategy{s, {ID: "s2"}}}
	if got := ObjectiveKPICount(o); got != 3 {
		t.Fatalf("ObjectiveKPICount = %d, want 3", got)
	}
}

func TestSummaries(t *testing.T) {
	th := DefaultThresholds

	k := numericKPI("k", 100, 75)
	ks := SummarizeKPI(k, th)
	if !almostEqual(ks.Percent, 0.75) || ks.Status != StatusOnTrack || ks.Total != 1 {
		t.Fatalf("kpi summary = %+v", ks)
	}

	s := plan.Strategy{
		ID:   "s",
		KPIs: []plan.KPI{numericKPI("direct", 100, 80)},
		Tactics: []plan.Tactic{
			{ID: "t", KPIs: []plan.KPI{numericKPI("nested", 100, 60)}},
		},
	}
	ss := SummarizeStrategy(s, th)
	if !almostEqual(ss.Percent, 0.70) || ss.Status != StatusOnTrack || ss.Total != 2 {
		t.Fatalf("strategy summary = %+v", ss)
	}

	es := SummarizeStrategy(plan.Strategy{ID: "bare"}, th)
	if es.Percent != 0 || es.Status != StatusOffTrack || es.Total != 0 {
		t.Fatalf("empty strategy summary = %+v", es)
	}
}

func TestRollupIdempotent(t *testing.T) {
	o := plan.Objective{ID: "o", Strategies: []plan.Strategy{
		{
			ID:   "s",
			KPIs: []plan.KPI{numericKPI("a", 3, 1)},
			Tactics: []plan.Tactic{
				{ID: "t", KPIs: []plan.KPI{numericKPI("b", 7, 2), {ID: "m", MetricType: plan.MetricMilestone, Current: 1}}},
			},
		},
	}}
	first := ObjectivePercent(o)
	second := ObjectivePercent(o)
	if first != second {
		t.Fatalf("rollup not idempotent: %v != %v", first, second)
	}
}
