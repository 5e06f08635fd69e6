package plan

// MetricType selects the normalization rule for a KPI.
type MetricType string

const (
	MetricNumeric   MetricType = "numeric"
	MetricMilestone MetricType = "milestone"
)

// KPI is the atomic measured unit of the plan.
//
// ObjectiveID, StrategyID, and TacticID are denormalized back-references
// recorded for display and linting only. Tree containment is the source of
// truth for where a KPI is attached; nothing derives aggregation from these
// fields.
type KPI struct {
	ID          string
	Title       string
	MetricType  MetricType
	Target      float64
	Current     float64
	Unit        string
	OwnerDepts  []string
	Start       string
	End         string
	Notes       string
	LastUpdated string

	ObjectiveID string
	StrategyID  string
	TacticID    string
}

// Tactic is an optional leaf grouping under a strategy. No further nesting.
type Tactic struct {
	ID    string
	Title string
	KPIs  []KPI
}

// Strategy groups KPIs directly and/or through tactics.
type Strategy struct {
	ID      string
	Title   string
	KPIs    []KPI
	Tactics []Tactic
}

// Objective is the top of one hierarchy branch.
type Objective struct {
	ID         string
	Title      string
	Notes      string
	Strategies []Strategy
	SourceFile string
}

// Document is a normalized plan document loaded from YAML.
type Document struct {
	Plan       string
	Objectives []Objective
	Source     string
}

// ObjectiveRecord maps an objective id to its normalized data and source.
type ObjectiveRecord struct {
	Objective Objective
	Source    string
}

// StrategyRecord locates a strategy within its objective.
type StrategyRecord struct {
	Strategy  Strategy
	Objective Objective
	Source    string
}

// TacticRecord locates a tactic within its strategy and objective.
type TacticRecord struct {
	Tactic    Tactic
	Strategy  Strategy
	Objective Objective
	Source    string
}

// KPIRecord locates a KPI by containment. TacticID is empty for KPIs held
// directly by a strategy.
type KPIRecord struct {
	KPI        KPI
	TacticID   string
	StrategyID string
	Objective  Objective
	Source     string
}

// Store is the in-memory representation of a loaded plan hierarchy.
type Store struct {
	Documents []Document

	objectives map[string]ObjectiveRecord
	strategies map[string]StrategyRecord
	tactics    map[string]TacticRecord
	kpis       map[string]KPIRecord
}

// ObjectiveLookup returns the objective record for the given id, if present.
func (s *Store) ObjectiveLookup(id string) (ObjectiveRecord, bool) {
	if s == nil {
		return ObjectiveRecord{}, false
	}
	rec, ok := s.objectives[id]
	return rec, ok
}

// StrategyLookup returns the strategy record for the given id, if present.
func (s *Store) StrategyLookup(id string) (StrategyRecord, bool) {
	if s == nil {
		return StrategyRecord{}, false
	}
	rec, ok := s.strategies[id]
	return rec, ok
}

// TacticLookup returns the tactic record for the given id, if present.
func (s *Store) TacticLookup(id string) (TacticRecord, bool) {
	if s == nil {
		return TacticRecord{}, false
	}
	rec, ok := s.tactics[id]
	return rec, ok
}

// KPILookup returns the KPI record for the given id, if present.
func (s *Store) KPILookup(id string) (KPIRecord, bool) {
	if s == nil {
		return KPIRecord{}, false
	}
	rec, ok := s.kpis[id]
	return rec, ok
}
