package report

import "stratplan/internal/rollup"

// StatusChange records an entity whose status band moved between two
// reports.
type StatusChange struct {
	Level     Level
	ID        string
	Title     string
	OldStatus rollup.Status
	NewStatus rollup.Status
	OldPct    float64
	NewPct    float64
}

// StatusChanges pairs results by level and id and returns every band
// transition, in the newer report's canonical order. Entities present in
// only one report are skipped; a new or removed entity has no transition to
// announce.
func StatusChanges(older, newer *Report) []StatusChange {
	if older == nil || newer == nil {
		return nil
	}

	type key struct {
		level Level
		id    string
	}
	prev := make(map[key]Result, len(older.Results))
	for _, r := range older.Results {
		prev[key{r.Level, r.ID}] = r
	}

	var changes []StatusChange
	for _, r := range newer.Results {
		old, ok := prev[key{r.Level, r.ID}]
		if !ok {
			continue
		}
		if old.Status == r.Status {
			continue
		}
		changes = append(changes, StatusChange{
			Level:     r.Level,
			ID:        r.ID,
			Title:     r.Title,
			OldStatus: old.Status,
			NewStatus: r.Status,
			OldPct:    old.Percent,
			NewPct:    r.Percent,
		})
	}
	return changes
}
