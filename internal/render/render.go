// Package render formats engine output for people. The engine hands over
// exact fractions; all rounding happens here.
package render

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"

	"stratplan/internal/plan"
	"stratplan/internal/report"
	"stratplan/internal/rollup"
)

// FormatPercent renders a completion fraction as a fixed-decimals
// percentage string, e.g. 0.625 -> "62.5%".
func FormatPercent(percent float64, decimals int) string {
	if decimals < 0 {
		decimals = 0
	}
	return fmt.Sprintf("%.*f%%", decimals, percent*100)
}

// StatusLabel renders a status band for display.
func StatusLabel(s rollup.Status) string {
	switch s {
	case rollup.StatusOnTrack:
		return "On Track"
	case rollup.StatusAtRisk:
		return "At Risk"
	case rollup.StatusOffTrack:
		return "Off Track"
	default:
		return string(s)
	}
}

var levelIndent = map[report.Level]string{
	report.LevelObjective: "",
	report.LevelStrategy:  "  ",
	report.LevelTactic:    "    ",
	report.LevelKPI:       "      ",
}

// Table writes roll-up results as an indented terminal table, in the plan's
// document order (objective, then its strategies, and so on).
func Table(w io.Writer, results []report.Result, decimals int) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{"ID", "Title", "Progress", "Status", "KPIs"})
	for _, r := range results {
		tw.AppendRow(table.Row{
			levelIndent[r.Level] + r.ID,
			r.Title,
			FormatPercent(r.Percent, decimals),
			StatusLabel(r.Status),
			r.TotalKPIs,
		})
	}
	tw.Render()
}

// TreeOrder re-sorts canonically ordered results into display order: each
// objective followed by its strategies, tactics, and KPIs as the documents
// lay them out.
func TreeOrder(store *plan.Store, results []report.Result) []report.Result {
	if store == nil {
		return results
	}
	index := make(map[string]report.Result, len(results))
	for _, r := range results {
		index[string(r.Level)+"\x00"+r.ID] = r
	}
	var ordered []report.Result
	take := func(level report.Level, id string) {
		if r, ok := index[string(level)+"\x00"+id]; ok {
			ordered = append(ordered, r)
		}
	}
	for _, doc := range store.Documents {
		for _, obj := range doc.Objectives {
			take(report.LevelObjective, obj.ID)
			for _, strat := range obj.Strategies {
				take(report.LevelStrategy, strat.ID)
				for _, k := range strat.KPIs {
					take(report.LevelKPI, k.ID)
				}
				for _, tac := range strat.Tactics {
					take(report.LevelTactic, tac.ID)
					for _, k := range tac.KPIs {
						take(report.LevelKPI, k.ID)
					}
				}
			}
		}
	}
	if len(ordered) == 0 {
		return results
	}
	return ordered
}

var levelLabels = map[report.Level]string{
	report.LevelObjective: "Objective",
	report.LevelStrategy:  "Strategy",
	report.LevelTactic:    "Tactic",
	report.LevelKPI:       "KPI",
}

// FormatStatusChange renders a one-line announcement of a band transition.
func FormatStatusChange(c report.StatusChange, decimals int) string {
	label := levelLabels[c.Level]
	if label == "" {
		label = string(c.Level)
	}
	return fmt.Sprintf("%s %s %q: %s -> %s (%s -> %s)",
		label, c.ID, c.Title,
		StatusLabel(c.OldStatus), StatusLabel(c.NewStatus),
		FormatPercent(c.OldPct, decimals), FormatPercent(c.NewPct, decimals))
}
