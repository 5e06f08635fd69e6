package plan

import (
	"fmt"
	"strings"
)

// Lint runs advisory checks over loaded documents. Findings never block a
// load: the dotted numbering convention and the KPI back-references are
// informational, so disagreement with containment is a data-quality warning
// for the upstream editor, not an error.
func Lint(docs []Document) []ValidationError {
	var warnings []ValidationError

	warn := func(file, field, format string, args ...any) {
		warnings = append(warnings, ValidationError{
			File:    file,
			Field:   field,
			Message: fmt.Sprintf(format, args...),
		})
	}

	checkDotted := func(file, field, childID, parentID string) {
		if childID == "" || parentID == "" {
			return
		}
		if !strings.HasPrefix(childID, parentID+".") {
			warn(file, field, "id %q does not extend parent id %q", childID, parentID)
		}
	}

	checkKPI := func(file, field string, k KPI, objID, stratID, tacticID string) {
		if k.ObjectiveID != "" && k.ObjectiveID != objID {
			warn(file, field+".objective_id", "back-reference %q disagrees with containing objective %q", k.ObjectiveID, objID)
		}
		if k.StrategyID != "" && k.StrategyID != stratID {
			warn(file, field+".strategy_id", "back-reference %q disagrees with containing strategy %q", k.StrategyID, stratID)
		}
		if k.TacticID != "" && k.TacticID != tacticID {
			warn(file, field+".tactic_id", "back-reference %q disagrees with containing tactic %q", k.TacticID, tacticID)
		}
		if k.Start != "" && k.End != "" {
			start, err1 := parseISO8601(k.Start)
			end, err2 := parseISO8601(k.End)
			if err1 == nil && err2 == nil && end.Before(start) {
				warn(file, field+".end", "end date %s precedes start date %s", k.End, k.Start)
			}
		}
	}

	for _, doc := range docs {
		for objIdx, obj := range doc.Objectives {
			objPath := fmt.Sprintf("objectives[%d]", objIdx)
			for stratIdx, strat := range obj.Strategies {
				stratPath := fmt.Sprintf("%s.strategies[%d]", objPath, stratIdx)
				checkDotted(doc.Source, stratPath+".strategy_id", strat.ID, obj.ID)

				for kpiIdx, k := range strat.KPIs {
					kpiPath := fmt.Sprintf("%s.kpis[%d]", stratPath, kpiIdx)
					checkDotted(doc.Source, kpiPath+".kpi_id", k.ID, strat.ID)
					checkKPI(doc.Source, kpiPath, k, obj.ID, strat.ID, "")
				}

				for tacticIdx, tac := range strat.Tactics {
					tacticPath := fmt.Sprintf("%s.tactics[%d]", stratPath, tacticIdx)
					checkDotted(doc.Source, tacticPath+".tactic_id", tac.ID, strat.ID)
					for kpiIdx, k := range tac.KPIs {
						kpiPath := fmt.Sprintf("%s.kpis[%d]", tacticPath, kpiIdx)
						checkDotted(doc.Source, kpiPath+".kpi_id", k.ID, tac.ID)
						checkKPI(doc.Source, kpiPath, k, obj.ID, strat.ID, tac.ID)
					}
				}
			}
		}
	}

	return warnings
}
