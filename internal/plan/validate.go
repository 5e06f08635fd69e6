package plan

import (
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type rawDocument struct {
	Plan       string         `yaml:"plan,omitempty"`
	Objectives []rawObjective `yaml:"objectives"`
}

type rawObjective struct {
	ID         string        `yaml:"objective_id"`
	Title      string        `yaml:"title"`
	Notes      string        `yaml:"notes,omitempty"`
	Strategies []rawStrategy `yaml:"strategies"`
}

type rawStrategy struct {
	ID      string      `yaml:"strategy_id"`
	Title   string      `yaml:"title"`
	KPIs    []rawKPI    `yaml:"kpis,omitempty"`
	Tactics []rawTactic `yaml:"tactics,omitempty"`
}

type rawTactic struct {
	ID    string   `yaml:"tactic_id"`
	Title string   `yaml:"title"`
	KPIs  []rawKPI `yaml:"kpis,omitempty"`
}

type rawKPI struct {
	ID          string   `yaml:"kpi_id"`
	Title       string   `yaml:"title"`
	MetricType  string   `yaml:"metric_type"`
	Target      *float64 `yaml:"target"`
	Current     *float64 `yaml:"current"`
	Unit        string   `yaml:"unit,omitempty"`
	OwnerDepts  []string `yaml:"owner_depts,omitempty"`
	Start       string   `yaml:"start,omitempty"`
	End         string   `yaml:"end,omitempty"`
	Notes       string   `yaml:"notes,omitempty"`
	LastUpdated string   `yaml:"last_updated,omitempty"`
	ObjectiveID string   `yaml:"objective_id,omitempty"`
	StrategyID  string   `yaml:"strategy_id,omitempty"`
	TacticID    string   `yaml:"tactic_id,omitempty"`
}

// ValidationError captures a single field-specific validation issue.
type ValidationError struct {
	File    string
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// ValidationErrors aggregates multiple validation problems.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// ParseAndValidateDocument unmarshals and validates a YAML plan document.
func ParseAndValidateDocument(data []byte, source string) (Document, error) {
	var raw rawDocument
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Document{}, ValidationErrors{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}
	return validateRawDocument(raw, source)
}

func validateRawDocument(raw rawDocument, source string) (Document, error) {
	var errs ValidationErrors

	if len(raw.Objectives) == 0 {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   "objectives",
			Message: "must contain at least one objective",
		})
	}

	objIDs := make(map[string]struct{})
	var normalized []Objective

	for idx, rawObj := range raw.Objectives {
		objPath := fmt.Sprintf("objectives[%d]", idx)
		obj, objErrs := validateObjective(rawObj, objPath, source)
		errs = append(errs, objErrs...)

		if obj.ID != "" {
			if _, exists := objIDs[obj.ID]; exists {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   objPath + ".objective_id",
					Message: fmt.Sprintf("duplicate objective_id %q within document", obj.ID),
				})
			} else {
				objIDs[obj.ID] = struct{}{}
			}
		}
		normalized = append(normalized, obj)
	}

	if len(errs) > 0 {
		return Document{}, errs
	}

	return Document{
		Plan:       strings.TrimSpace(raw.Plan),
		Objectives: normalized,
		Source:     source,
	}, nil
}

func validateObjective(raw rawObjective, fieldPath, source string) (Objective, ValidationErrors) {
	var errs ValidationErrors

	if strings.TrimSpace(raw.ID) == "" {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".objective_id",
			Message: "objective_id is required",
		})
	}
	if strings.TrimSpace(raw.Title) == "" {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".title",
			Message: "title is required",
		})
	}
	if len(raw.Strategies) == 0 {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".strategies",
			Message: "must contain at least one strategy",
		})
	}

	stratIDs := make(map[string]struct{})
	var normalized []Strategy

	for idx, rawStrat := range raw.Strategies {
		stratPath := fmt.Sprintf("%s.strategies[%d]", fieldPath, idx)
		strat, stratErrs := validateStrategy(rawStrat, stratPath, source)
		errs = append(errs, stratErrs...)

		if strat.ID != "" {
			if _, exists := stratIDs[strat.ID]; exists {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   stratPath + ".strategy_id",
					Message: fmt.Sprintf("duplicate strategy_id %q within objective", strat.ID),
				})
			} else {
				stratIDs[strat.ID] = struct{}{}
			}
		}
		normalized = append(normalized, strat)
	}

	obj := Objective{
		ID:         strings.TrimSpace(raw.ID),
		Title:      strings.TrimSpace(raw.Title),
		Notes:      strings.TrimSpace(raw.Notes),
		Strategies: normalized,
		SourceFile: source,
	}
	return obj, errs
}

func validateStrategy(raw rawStrategy, fieldPath, source string) (Strategy, ValidationErrors) {
	var errs ValidationErrors

	if strings.TrimSpace(raw.ID) == "" {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".strategy_id",
			Message: "strategy_id is required",
		})
	}
	if strings.TrimSpace(raw.Title) == "" {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".title",
			Message: "title is required",
		})
	}

	// Both lists are optional: a strategy with no KPIs and no tactics is a
	// structurally valid entity that rolls up to zero.
	kpiIDs := make(map[string]struct{})
	var kpis []KPI
	for idx, rawK := range raw.KPIs {
		kpiPath := fmt.Sprintf("%s.kpis[%d]", fieldPath, idx)
		k, kErrs := validateKPI(rawK, kpiPath, source)
		errs = append(errs, kErrs...)
		if k.ID != "" {
			if _, exists := kpiIDs[k.ID]; exists {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   kpiPath + ".kpi_id",
					Message: fmt.Sprintf("duplicate kpi_id %q within strategy", k.ID),
				})
			} else {
				kpiIDs[k.ID] = struct{}{}
			}
		}
		kpis = append(kpis, k)
	}

	tacticIDs := make(map[string]struct{})
	var tactics []Tactic
	for idx, rawT := range raw.Tactics {
		tacticPath := fmt.Sprintf("%s.tactics[%d]", fieldPath, idx)
		t, tErrs := validateTactic(rawT, tacticPath, source)
		errs = append(errs, tErrs...)
		if t.ID != "" {
			if _, exists := tacticIDs[t.ID]; exists {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   tacticPath + ".tactic_id",
					Message: fmt.Sprintf("duplicate tactic_id %q within strategy", t.ID),
				})
			} else {
				tacticIDs[t.ID] = struct{}{}
			}
		}
		tactics = append(tactics, t)
	}

	strat := Strategy{
		ID:      strings.TrimSpace(raw.ID),
		Title:   strings.TrimSpace(raw.Title),
		KPIs:    kpis,
		Tactics: tactics,
	}
	return strat, errs
}

func validateTactic(raw rawTactic, fieldPath, source string) (Tactic, ValidationErrors) {
	var errs ValidationErrors

	if strings.TrimSpace(raw.ID) == "" {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".tactic_id",
			Message: "tactic_id is required",
		})
	}
	if strings.TrimSpace(raw.Title) == "" {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".title",
			Message: "title is required",
		})
	}

	kpiIDs := make(map[string]struct{})
	var kpis []KPI
	for idx, rawK := range raw.KPIs {
		kpiPath := fmt.Sprintf("%s.kpis[%d]", fieldPath, idx)
		k, kErrs := validateKPI(rawK, kpiPath, source)
		errs = append(errs, kErrs...)
		if k.ID != "" {
			if _, exists := kpiIDs[k.ID]; exists {
				errs = append(errs, ValidationError{
					File:    source,
					Field:   kpiPath + ".kpi_id",
					Message: fmt.Sprintf("duplicate kpi_id %q within tactic", k.ID),
				})
			} else {
				kpiIDs[k.ID] = struct{}{}
			}
		}
		kpis = append(kpis, k)
	}

	t := Tactic{
		ID:    strings.TrimSpace(raw.ID),
		Title: strings.TrimSpace(raw.Title),
		KPIs:  kpis,
	}
	return t, errs
}

func validateKPI(raw rawKPI, fieldPath, source string) (KPI, ValidationErrors) {
	var errs ValidationErrors

	if strings.TrimSpace(raw.ID) == "" {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".kpi_id",
			Message: "kpi_id is required",
		})
	}
	if strings.TrimSpace(raw.Title) == "" {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".title",
			Message: "title is required",
		})
	}

	metricType := MetricType(strings.TrimSpace(raw.MetricType))
	switch metricType {
	case MetricNumeric, MetricMilestone:
	case "":
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".metric_type",
			Message: "metric_type is required",
		})
	default:
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".metric_type",
			Message: fmt.Sprintf("invalid metric_type %q (expected numeric or milestone)", raw.MetricType),
		})
	}

	if metricType == MetricNumeric && raw.Target == nil {
		errs = append(errs, ValidationError{
			File:    source,
			Field:   fieldPath + ".target",
			Message: "target is required for numeric KPIs",
		})
	}

	for _, field := range []struct {
		name  string
		value string
	}{
		{"start", raw.Start},
		{"end", raw.End},
		{"last_updated", raw.LastUpdated},
	} {
		if field.value == "" {
			continue
		}
		if _, parseErr := parseISO8601(field.value); parseErr != nil {
			errs = append(errs, ValidationError{
				File:    source,
				Field:   fieldPath + "." + field.name,
				Message: "must be ISO-8601 date or datetime",
			})
		}
	}

	k := KPI{
		ID:          strings.TrimSpace(raw.ID),
		Title:       strings.TrimSpace(raw.Title),
		MetricType:  metricType,
		Unit:        strings.TrimSpace(raw.Unit),
		OwnerDepts:  trimmedStrings(raw.OwnerDepts),
		Start:       strings.TrimSpace(raw.Start),
		End:         strings.TrimSpace(raw.End),
		Notes:       strings.TrimSpace(raw.Notes),
		LastUpdated: strings.TrimSpace(raw.LastUpdated),
		ObjectiveID: strings.TrimSpace(raw.ObjectiveID),
		StrategyID:  strings.TrimSpace(raw.StrategyID),
		TacticID:    strings.TrimSpace(raw.TacticID),
	}
	if raw.Target != nil {
		k.Target = *raw.Target
	}
	if raw.Current != nil {
		k.Current = *raw.Current
	}
	return k, errs
}

func trimmedStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v == "" {
			continue
		}
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseISO8601(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if ts, err := time.Parse(time.RFC3339, value); err == nil {
		return ts, nil
	}
	return time.Parse("2006-01-02", value)
}
