// Package ingest converts spreadsheet exports of a strategic plan into plan
// YAML documents. Workbooks arrive from many hands, so column headers are
// bound by fuzzy matching rather than exact names.
package ingest

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"stratplan/internal/plan"
)

// Options controls a workbook import.
type Options struct {
	// PlanName is recorded on every generated document.
	PlanName string
	// Sheet selects the worksheet; empty means the first sheet.
	Sheet string
}

// Row fields. Required fields must bind to a column; optional ones may be
// absent from the workbook.
const (
	fieldObjectiveID    = "objective_id"
	fieldObjectiveTitle = "objective_title"
	fieldStrategyID     = "strategy_id"
	fieldStrategyTitle  = "strategy_title"
	fieldTacticID       = "tactic_id"
	fieldTacticTitle    = "tactic_title"
	fieldKPIID          = "kpi_id"
	fieldKPITitle       = "kpi_title"
	fieldMetricType     = "metric_type"
	fieldTarget         = "target"
	fieldCurrent        = "current"
	fieldUnit           = "unit"
	fieldOwnerDepts     = "owner_depts"
	fieldStart          = "start"
	fieldEnd            = "end"
	fieldNotes          = "notes"
)

var requiredFields = []string{
	fieldObjectiveID, fieldObjectiveTitle,
	fieldStrategyID, fieldStrategyTitle,
	fieldKPIID, fieldKPITitle,
	fieldMetricType, fieldTarget, fieldCurrent,
}

// Workbook reads an XLSX file, one row per KPI, and groups rows into owned
// objective trees in first-seen order.
func Workbook(path string, opts Options) ([]plan.Document, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	sheet := opts.Sheet
	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
		}
		sheet = sheets[0]
	}

	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}

	headerIdx := -1
	for i, row := range rows {
		if !rowEmpty(row) {
			headerIdx = i
			break
		}
	}
	if headerIdx == -1 {
		return nil, fmt.Errorf("sheet %q is empty", sheet)
	}

	columns, err := MatchHeaders(rows[headerIdx])
	if err != nil {
		return nil, err
	}

	builder := newTreeBuilder(opts.PlanName)
	for i := headerIdx + 1; i < len(rows); i++ {
		row := rows[i]
		if rowEmpty(row) {
			continue
		}
		if err := builder.addRow(row, columns, i+1); err != nil {
			return nil, err
		}
	}

	docs := builder.documents()
	if len(docs) == 0 {
		return nil, fmt.Errorf("sheet %q has no KPI rows", sheet)
	}
	return docs, nil
}

// WriteDocuments writes one YAML file per objective document into plansDir.
func WriteDocuments(docs []plan.Document, plansDir string) ([]string, error) {
	var written []string
	for _, doc := range docs {
		if len(doc.Objectives) == 0 {
			continue
		}
		name := fmt.Sprintf("objective-%s.yml", sanitizeFileName(doc.Objectives[0].ID))
		path := filepath.Join(plansDir, name)
		if err := plan.WriteDocument(doc, path); err != nil {
			return written, fmt.Errorf("write %s: %w", path, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// Builder nodes hold children behind pointers so index maps stay valid while
// siblings are appended.
type objNode struct {
	id         string
	title      string
	strategies []*stratNode
}

type stratNode struct {
	id      string
	title   string
	kpis    []plan.KPI
	tactics []*tacNode
}

type tacNode struct {
	id    string
	title string
	kpis  []plan.KPI
}

type treeBuilder struct {
	planName   string
	objectives []*objNode
	objIndex   map[string]*objNode
	stratIndex map[string]*stratNode
	tacIndex   map[string]*tacNode
}

func newTreeBuilder(planName string) *treeBuilder {
	return &treeBuilder{
		planName:   planName,
		objIndex:   make(map[string]*objNode),
		stratIndex: make(map[string]*stratNode),
		tacIndex:   make(map[string]*tacNode),
	}
}

func (b *treeBuilder) addRow(row []string, columns map[string]int, rowNum int) error {
	cell := func(field string) string {
		idx, ok := columns[field]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	objID := cell(fieldObjectiveID)
	stratID := cell(fieldStrategyID)
	kpiID := cell(fieldKPIID)
	if objID == "" || stratID == "" || kpiID == "" {
		return fmt.Errorf("row %d: objective, strategy, and KPI ids are required", rowNum)
	}

	metricType := plan.MetricType(strings.ToLower(cell(fieldMetricType)))
	switch metricType {
	case plan.MetricNumeric, plan.MetricMilestone:
	default:
		return fmt.Errorf("row %d: invalid metric type %q", rowNum, cell(fieldMetricType))
	}

	target, err := parseNumber(cell(fieldTarget))
	if err != nil {
		return fmt.Errorf("row %d: target: %w", rowNum, err)
	}
	current, err := parseNumber(cell(fieldCurrent))
	if err != nil {
		return fmt.Errorf("row %d: current: %w", rowNum, err)
	}

	obj, ok := b.objIndex[objID]
	if !ok {
		obj = &objNode{id: objID, title: cell(fieldObjectiveTitle)}
		b.objIndex[objID] = obj
		b.objectives = append(b.objectives, obj)
	}

	strat, ok := b.stratIndex[stratID]
	if !ok {
		strat = &stratNode{id: stratID, title: cell(fieldStrategyTitle)}
		b.stratIndex[stratID] = strat
		obj.strategies = append(obj.strategies, strat)
	}

	k := plan.KPI{
		ID:          kpiID,
		Title:       cell(fieldKPITitle),
		MetricType:  metricType,
		Target:      target,
		Current:     current,
		Unit:        cell(fieldUnit),
		OwnerDepts:  splitDepts(cell(fieldOwnerDepts)),
		Start:       cell(fieldStart),
		End:         cell(fieldEnd),
		Notes:       cell(fieldNotes),
		ObjectiveID: objID,
		StrategyID:  stratID,
	}

	tacID := cell(fieldTacticID)
	if tacID == "" {
		strat.kpis = append(strat.kpis, k)
		return nil
	}

	k.TacticID = tacID
	tac, ok := b.tacIndex[tacID]
	if !ok {
		tac = &tacNode{id: tacID, title: cell(fieldTacticTitle)}
		b.tacIndex[tacID] = tac
		strat.tactics = append(strat.tactics, tac)
	}
	tac.kpis = append(tac.kpis, k)
	return nil
}

func (b *treeBuilder) documents() []plan.Document {
	docs := make([]plan.Document, 0, len(b.objectives))
	for _, obj := range b.objectives {
		objective := plan.Objective{ID: obj.id, Title: obj.title}
		for _, strat := range obj.strategies {
			strategy := plan.Strategy{ID: strat.id, Title: strat.title, KPIs: strat.kpis}
			for _, tac := range strat.tactics {
				strategy.Tactics = append(strategy.Tactics, plan.Tactic{
					ID:    tac.id,
					Title: tac.title,
					KPIs:  tac.kpis,
				})
			}
			objective.Strategies = append(objective.Strategies, strategy)
		}
		docs = append(docs, plan.Document{
			Plan:       b.planName,
			Objectives: []plan.Objective{objective},
		})
	}
	return docs
}

func parseNumber(value string) (float64, error) {
	if value == "" {
		return 0, nil
	}
	cleaned := strings.NewReplacer(",", "", "%", "", "$", "").Replace(value)
	n, err := strconv.ParseFloat(strings.TrimSpace(cleaned), 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as a number", value)
	}
	return n, nil
}

func splitDepts(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.FieldsFunc(value, func(r rune) bool {
		return r == ';' || r == ',' || r == '/'
	})
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func sanitizeFileName(id string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-':
			return r
		default:
			return '-'
		}
	}, id)
}

func rowEmpty(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
