package plan

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// UpdateResult describes a completed KPI current-value write-back.
type UpdateResult struct {
	KPIID      string
	OldCurrent float64
	NewCurrent float64
	Source     string
	BackupDir  string
	DiffPath   string
}

// UpdateKPICurrent sets a new current value on the identified KPI and
// rewrites only the owning document. The original file is copied into a
// fresh backup directory together with a unified diff before the rewrite;
// the rewrite itself goes through a temp file and rename.
func UpdateKPICurrent(store *Store, kpiID string, current float64, backupsRoot string, now time.Time) (*UpdateResult, error) {
	if store == nil {
		return nil, fmt.Errorf("plan store is required")
	}
	rec, ok := store.KPILookup(kpiID)
	if !ok {
		return nil, fmt.Errorf("unknown kpi_id %q", kpiID)
	}
	if backupsRoot == "" {
		backupsRoot = "backups"
	}

	var doc *Document
	for i := range store.Documents {
		if store.Documents[i].Source == rec.Source {
			doc = &store.Documents[i]
			break
		}
	}
	if doc == nil {
		return nil, fmt.Errorf("document %s not loaded", rec.Source)
	}

	updated, old, found := withUpdatedCurrent(*doc, kpiID, current, now)
	if !found {
		return nil, fmt.Errorf("kpi_id %q not found in %s", kpiID, rec.Source)
	}

	oldData, err := os.ReadFile(doc.Source)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", doc.Source, err)
	}
	newData, err := MarshalDocument(updated)
	if err != nil {
		return nil, err
	}

	backupDir := filepath.Join(backupsRoot, now.UTC().Format("2006-01-02")+"-"+uuid.NewString())
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return nil, fmt.Errorf("create backup dir: %w", err)
	}
	backupPath := filepath.Join(backupDir, filepath.Base(doc.Source))
	if err := os.WriteFile(backupPath, oldData, 0o644); err != nil {
		return nil, fmt.Errorf("write backup: %w", err)
	}

	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(oldData)),
		B:        difflib.SplitLines(string(newData)),
		FromFile: doc.Source,
		ToFile:   doc.Source + " (updated)",
		Context:  3,
	}
	diffText, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return nil, fmt.Errorf("render diff: %w", err)
	}
	diffPath := filepath.Join(backupDir, filepath.Base(doc.Source)+".diff")
	if err := os.WriteFile(diffPath, []byte(diffText), 0o644); err != nil {
		return nil, fmt.Errorf("write diff: %w", err)
	}

	if err := WriteDocument(updated, doc.Source); err != nil {
		return nil, err
	}
	*doc = updated

	return &UpdateResult{
		KPIID:      kpiID,
		OldCurrent: old,
		NewCurrent: current,
		Source:     doc.Source,
		BackupDir:  backupDir,
		DiffPath:   diffPath,
	}, nil
}

// withUpdatedCurrent returns a deep copy of doc with the KPI's current value
// replaced and last_updated stamped.
func withUpdatedCurrent(doc Document, kpiID string, current float64, now time.Time) (Document, float64, bool) {
	var old float64
	found := false
	stamp := now.UTC().Format(time.RFC3339)

	update := func(k *KPI) {
		old = k.Current
		k.Current = current
		k.LastUpdated = stamp
		found = true
	}

	out := doc
	out.Objectives = make([]Objective, len(doc.Objectives))
	for oi, obj := range doc.Objectives {
		objCopy := obj
		objCopy.Strategies = make([]Strategy, len(obj.Strategies))
		for si, strat := range obj.Strategies {
			stratCopy := strat
			stratCopy.KPIs = append([]KPI(nil), strat.KPIs...)
			for ki := range stratCopy.KPIs {
				if stratCopy.KPIs[ki].ID == kpiID {
					update(&stratCopy.KPIs[ki])
				}
			}
			stratCopy.Tactics = make([]Tactic, len(strat.Tactics))
			for ti, tac := range strat.Tactics {
				tacCopy := tac
				tacCopy.KPIs = append([]KPI(nil), tac.KPIs...)
				for ki := range tacCopy.KPIs {
					if tacCopy.KPIs[ki].ID == kpiID {
						update(&tacCopy.KPIs[ki])
					}
				}
				stratCopy.Tactics[ti] = tacCopy
			}
			objCopy.Strategies[si] = stratCopy
		}
		out.Objectives[oi] = objCopy
	}
	return out, old, found
}

// MarshalDocument converts a normalized Document back to plan YAML.
func MarshalDocument(doc Document) ([]byte, error) {
	raw := rawDocument{
		Plan:       doc.Plan,
		Objectives: make([]rawObjective, len(doc.Objectives)),
	}
	for oi, obj := range doc.Objectives {
		rawObj := rawObjective{
			ID:         obj.ID,
			Title:      obj.Title,
			Notes:      obj.Notes,
			Strategies: make([]rawStrategy, len(obj.Strategies)),
		}
		for si, strat := range obj.Strategies {
			rawStrat := rawStrategy{
				ID:    strat.ID,
				Title: strat.Title,
			}
			for _, k := range strat.KPIs {
				rawStrat.KPIs = append(rawStrat.KPIs, rawFromKPI(k))
			}
			for _, tac := range strat.Tactics {
				rawTac := rawTactic{ID: tac.ID, Title: tac.Title}
				for _, k := range tac.KPIs {
					rawTac.KPIs = append(rawTac.KPIs, rawFromKPI(k))
				}
				rawStrat.Tactics = append(rawStrat.Tactics, rawTac)
			}
			rawObj.Strategies[si] = rawStrat
		}
		raw.Objectives[oi] = rawObj
	}

	data, err := yaml.Marshal(&raw)
	if err != nil {
		return nil, fmt.Errorf("marshal plan yaml: %w", err)
	}
	return data, nil
}

func rawFromKPI(k KPI) rawKPI {
	target := k.Target
	current := k.Current
	return rawKPI{
		ID:          k.ID,
		Title:       k.Title,
		MetricType:  string(k.MetricType),
		Target:      &target,
		Current:     &current,
		Unit:        k.Unit,
		OwnerDepts:  k.OwnerDepts,
		Start:       k.Start,
		End:         k.End,
		Notes:       k.Notes,
		LastUpdated: k.LastUpdated,
		ObjectiveID: k.ObjectiveID,
		StrategyID:  k.StrategyID,
		TacticID:    k.TacticID,
	}
}

// WriteDocument writes a Document to path atomically.
func WriteDocument(doc Document, path string) error {
	data, err := MarshalDocument(doc)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure plan dir: %w", err)
	}
	tmpFile, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename temp file: %w", err)
	}
	return nil
}
