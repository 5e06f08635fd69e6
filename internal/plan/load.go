package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// LoadFromDir loads and validates all plan YAML files from the provided
// directory. Files are processed in lexicographic order so document order is
// stable across runs.
func LoadFromDir(plansDir string) (*Store, error) {
	if plansDir == "" {
		plansDir = "plans"
	}

	files, err := filepath.Glob(filepath.Join(plansDir, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("scan plans dir: %w", err)
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no plan YAML files found in %s", plansDir)
	}
	sort.Strings(files)

	var docs []Document
	var vErrs ValidationErrors

	for _, path := range files {
		base := filepath.Base(path)
		if base == "permissions.yml" {
			// handled by permissions loader
			continue
		}
		data, readErr := os.ReadFile(path)
		if readErr != nil {
			return nil, fmt.Errorf("read %s: %w", path, readErr)
		}
		doc, parseErr := ParseAndValidateDocument(data, path)
		if parseErr != nil {
			if ve, ok := parseErr.(ValidationErrors); ok {
				vErrs = append(vErrs, ve...)
				continue
			}
			return nil, parseErr
		}
		docs = append(docs, doc)
	}

	if len(vErrs) > 0 {
		return nil, vErrs
	}
	if len(docs) == 0 {
		return nil, fmt.Errorf("no plan documents found in %s", plansDir)
	}

	duplicateErrs := validateCrossDocumentUniqueness(docs)
	if len(duplicateErrs) > 0 {
		return nil, duplicateErrs
	}

	return BuildStore(docs), nil
}

func validateCrossDocumentUniqueness(docs []Document) ValidationErrors {
	var errs ValidationErrors

	type origin struct {
		file string
	}
	objSeen := make(map[string]origin)
	stratSeen := make(map[string]origin)
	tacticSeen := make(map[string]origin)
	kpiSeen := make(map[string]origin)

	check := func(seen map[string]origin, id, file, field, kind string) {
		if id == "" {
			return
		}
		if prev, exists := seen[id]; exists {
			errs = append(errs, ValidationError{
				File:    file,
				Field:   field,
				Message: fmt.Sprintf("%s %q already defined in %s", kind, id, prev.file),
			})
			return
		}
		seen[id] = origin{file: file}
	}

	for _, doc := range docs {
		for objIdx, obj := range doc.Objectives {
			objPath := fmt.Sprintf("objectives[%d]", objIdx)
			check(objSeen, obj.ID, doc.Source, objPath+".objective_id", "objective_id")
			for stratIdx, strat := range obj.Strategies {
				stratPath := fmt.Sprintf("%s.strategies[%d]", objPath, stratIdx)
				check(stratSeen, strat.ID, doc.Source, stratPath+".strategy_id", "strategy_id")
				for kpiIdx, k := range strat.KPIs {
					check(kpiSeen, k.ID, doc.Source, fmt.Sprintf("%s.kpis[%d].kpi_id", stratPath, kpiIdx), "kpi_id")
				}
				for tacticIdx, t := range strat.Tactics {
					tacticPath := fmt.Sprintf("%s.tactics[%d]", stratPath, tacticIdx)
					check(tacticSeen, t.ID, doc.Source, tacticPath+".tactic_id", "tactic_id")
					for kpiIdx, k := range t.KPIs {
						check(kpiSeen, k.ID, doc.Source, fmt.Sprintf("%s.kpis[%d].kpi_id", tacticPath, kpiIdx), "kpi_id")
					}
				}
			}
		}
	}

	return errs
}

// BuildStore indexes validated documents into a Store with lookup maps.
func BuildStore(docs []Document) *Store {
	store := &Store{
		objectives: make(map[string]ObjectiveRecord),
		strategies: make(map[string]StrategyRecord),
		tactics:    make(map[string]TacticRecord),
		kpis:       make(map[string]KPIRecord),
	}

	for _, doc := range docs {
		store.Documents = append(store.Documents, doc)

		for _, obj := range doc.Objectives {
			objCopy := obj
			objCopy.SourceFile = doc.Source
			store.objectives[obj.ID] = ObjectiveRecord{
				Objective: objCopy,
				Source:    doc.Source,
			}

			for _, strat := range obj.Strategies {
				store.strategies[strat.ID] = StrategyRecord{
					Strategy:  strat,
					Objective: objCopy,
					Source:    doc.Source,
				}

				for _, k := range strat.KPIs {
					store.kpis[k.ID] = KPIRecord{
						KPI:        k,
						StrategyID: strat.ID,
						Objective:  objCopy,
						Source:     doc.Source,
					}
				}

				for _, t := range strat.Tactics {
					store.tactics[t.ID] = TacticRecord{
						Tactic:    t,
						Strategy:  strat,
						Objective: objCopy,
						Source:    doc.Source,
					}
					for _, k := range t.KPIs {
						store.kpis[k.ID] = KPIRecord{
							KPI:        k,
							TacticID:   t.ID,
							StrategyID: strat.ID,
							Objective:  objCopy,
							Source:     doc.Source,
						}
					}
				}
			}
		}
	}

	return store
}

// ListObjectiveIDs returns all objective ids in sorted order.
func (s *Store) ListObjectiveIDs() []string {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, len(s.objectives))
	for id := range s.objectives {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
