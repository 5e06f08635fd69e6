package ingest

import (
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
)

// fieldAliases lists normalized header spellings seen in the wild for each
// row field. Matching is two-stage: exact normalized equality first, then
// fuzzy ranking, so "Objective #", "objective_id", and "Obj ID" all bind to
// the same field.
var fieldAliases = map[string][]string{
	fieldObjectiveID:    {"objective id", "objective", "objective no", "obj id"},
	fieldObjectiveTitle: {"objective title", "objective name", "objective description"},
	fieldStrategyID:     {"strategy id", "strategy", "strategy no", "strat id"},
	fieldStrategyTitle:  {"strategy title", "strategy name", "strategy description"},
	fieldTacticID:       {"tactic id", "tactic", "tactic no"},
	fieldTacticTitle:    {"tactic title", "tactic name", "tactic description"},
	fieldKPIID:          {"kpi id", "kpi", "kpi no", "indicator id"},
	fieldKPITitle:       {"kpi title", "kpi name", "kpi description", "indicator", "measure"},
	fieldMetricType:     {"metric type", "kpi type", "measure type", "type"},
	fieldTarget:         {"target", "target value", "goal"},
	fieldCurrent:        {"current", "current value", "actual", "progress"},
	fieldUnit:           {"unit", "units", "unit of measure", "uom"},
	fieldOwnerDepts:     {"owner depts", "owner departments", "owner dept", "department", "departments", "owner"},
	fieldStart:          {"start", "start date", "begin date"},
	fieldEnd:            {"end", "end date", "due date", "deadline"},
	fieldNotes:          {"notes", "comments", "remarks"},
}

// fieldOrder makes tie-breaking deterministic when several fields fuzzily
// match the same header. More specific fields come first.
var fieldOrder = []string{
	fieldObjectiveID, fieldObjectiveTitle,
	fieldStrategyID, fieldStrategyTitle,
	fieldTacticID, fieldTacticTitle,
	fieldKPIID, fieldKPITitle,
	fieldMetricType, fieldTarget, fieldCurrent,
	fieldUnit, fieldOwnerDepts, fieldStart, fieldEnd, fieldNotes,
}

// maxFuzzyDistance caps how dissimilar a header may be from an alias and
// still bind.
const maxFuzzyDistance = 4

// MatchHeaders binds workbook header cells to row fields. Every required
// field must bind to exactly one column or an error describing the misses
// is returned.
func MatchHeaders(headers []string) (map[string]int, error) {
	columns := make(map[string]int)
	claimed := make(map[int]string)

	// Exact normalized matches claim their columns first so fuzzy matching
	// cannot steal an unambiguous header.
	for idx, header := range headers {
		n := normalizeHeader(header)
		if n == "" {
			continue
		}
		for _, field := range fieldOrder {
			if _, done := columns[field]; done {
				continue
			}
			if containsAlias(fieldAliases[field], n) {
				columns[field] = idx
				claimed[idx] = field
				break
			}
		}
	}

	for _, field := range fieldOrder {
		if _, done := columns[field]; done {
			continue
		}
		best := -1
		bestDistance := maxFuzzyDistance + 1
		for idx, header := range headers {
			if _, taken := claimed[idx]; taken {
				continue
			}
			n := normalizeHeader(header)
			if n == "" {
				continue
			}
			d, ok := aliasDistance(fieldAliases[field], n)
			if ok && d < bestDistance {
				bestDistance = d
				best = idx
			}
		}
		if best >= 0 {
			columns[field] = best
			claimed[best] = field
		}
	}

	var missing []string
	for _, field := range requiredFields {
		if _, ok := columns[field]; !ok {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("could not bind required columns: %s", strings.Join(missing, ", "))
	}

	return columns, nil
}

func containsAlias(aliases []string, normalized string) bool {
	for _, a := range aliases {
		if a == normalized {
			return true
		}
	}
	return false
}

// aliasDistance returns the smallest Levenshtein distance between the
// normalized header and any alias that fuzzy-matches it in either
// direction.
func aliasDistance(aliases []string, normalized string) (int, bool) {
	best := -1
	consider := func(ranks fuzzy.Ranks) {
		for _, r := range ranks {
			if r.Distance < 0 {
				continue
			}
			if best == -1 || r.Distance < best {
				best = r.Distance
			}
		}
	}
	consider(fuzzy.RankFindNormalizedFold(normalized, aliases))
	for _, a := range aliases {
		consider(fuzzy.RankFindNormalizedFold(a, []string{normalized}))
	}
	if best == -1 || best > maxFuzzyDistance {
		return 0, false
	}
	return best, true
}

func normalizeHeader(header string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(header)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}
