// Package rollup converts KPI measurements into comparable completion
// percentages and propagates them up the plan hierarchy. Every function is a
// pure computation over an in-memory tree fragment: no I/O, no mutation, no
// shared state, so concurrent callers need no coordination.
package rollup

import (
	"math"

	"stratplan/internal/plan"
)

// Summary bundles the derived results for one entity: the exact unrounded
// completion fraction, its status band, and the count of leaf KPIs that
// contributed. Total comes from walking the containment tree, never from the
// percentage math.
type Summary struct {
	Percent float64
	Status  Status
	Total   int
}

// KPIPercent normalizes a single KPI to a completion fraction in [0,1].
//
// Numeric KPIs report current/target clamped to [0,1]; a zero target means
// progress cannot be measured and yields 0 rather than an error. Milestone
// KPIs are binary: any non-zero current counts as complete and target is
// ignored. The function is total over all representable KPI values.
func KPIPercent(k plan.KPI) float64 {
	switch k.MetricType {
	case plan.MetricMilestone:
		if k.Current != 0 {
			return 1
		}
		return 0
	default:
		if k.Target == 0 {
			return 0
		}
		p := k.Current / k.Target
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return 0
		}
		if p < 0 {
			return 0
		}
		if p > 1 {
			return 1
		}
		return p
	}
}

// Average is the single aggregation operator used at every level of the
// hierarchy. An empty input averages to 0 so that entities with no attached
// measurements classify as off track instead of propagating NaN downstream.
func Average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// TacticPercent averages the tactic's direct KPI percentages.
func TacticPercent(t plan.Tactic) float64 {
	values := make([]float64, 0, len(t.KPIs))
	for _, k := range t.KPIs {
		values = append(values, KPIPercent(k))
	}
	return Average(values)
}

// StrategyPercent averages once over every leaf KPI reachable from the
// strategy: direct KPIs pooled together with each tactic's KPIs. Pooling at
// the KPI level keeps a tactic with many KPIs from being weighted the same
// as a tactic with one; averaging tactic sub-averages would do exactly that.
func StrategyPercent(s plan.Strategy) float64 {
	return Average(strategyLeafPercents(s))
}

// ObjectivePercent averages the pre-aggregated strategy percentages.
// Strategies, not leaf KPIs, are the unit of comparison at this level.
func ObjectivePercent(o plan.Objective) float64 {
	values := make([]float64, 0, len(o.Strategies))
	for _, s := range o.Strategies {
		values = append(values, StrategyPercent(s))
	}
	return Average(values)
}

func strategyLeafPercents(s plan.Strategy) []float64 {
	values := make([]float64, 0, len(s.KPIs))
	for _, k := range s.KPIs {
		values = append(values, KPIPercent(k))
	}
	for _, t := range s.Tactics {
		for _, k := range t.KPIs {
			values = append(values, KPIPercent(k))
		}
	}
	return values
}

// TacticKPICount counts the tactic's leaf KPIs.
func TacticKPICount(t plan.Tactic) int {
	return len(t.KPIs)
}

// StrategyKPICount counts every leaf KPI reachable from the strategy.
func StrategyKPICount(s plan.Strategy) int {
	total := len(s.KPIs)
	for _, t := range s.Tactics {
		total += len(t.KPIs)
	}
	return total
}

// ObjectiveKPICount counts every leaf KPI reachable from the objective.
func ObjectiveKPICount(o plan.Objective) int {
	total := 0
	for _, s := range o.Strategies {
		total += StrategyKPICount(s)
	}
	return total
}

// SummarizeKPI derives the composite result for a single KPI.
func SummarizeKPI(k plan.KPI, th Thresholds) Summary {
	p := KPIPercent(k)
	return Summary{Percent: p, Status: th.Classify(p), Total: 1}
}

// SummarizeTactic derives the composite result for a tactic.
func SummarizeTactic(t plan.Tactic, th Thresholds) Summary {
	p := TacticPercent(t)
	return Summary{Percent: p, Status: th.Classify(p), Total: TacticKPICount(t)}
}

// SummarizeStrategy derives the composite result for a strategy.
func SummarizeStrategy(s plan.Strategy, th Thresholds) Summary {
	p := StrategyPercent(s)
	return Summary{Percent: p, Status: th.Classify(p), Total: StrategyKPICount(s)}
}

// SummarizeObjective derives the composite result for an objective.
func SummarizeObjective(o plan.Objective, th Thresholds) Summary {
	p := ObjectivePercent(o)
	return Summary{Percent: p, Status: th.Classify(p), Total: ObjectiveKPICount(o)}
}
