package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"

	"stratplan/integration/harness"
)

func writeWorkbook(t *testing.T, path string) {
	t.Helper()
	rows := [][]interface{}{
		{"Objective ID", "Objective Title", "Strategy ID", "Strategy Title", "Tactic ID", "Tactic Title", "KPI ID", "KPI Title", "Metric Type", "Target", "Current", "Owner Depts"},
		{"2", "Grow revenue", "2.1", "New markets", "", "", "2.1.1", "Markets entered", "numeric", 10, 4, "Sales"},
		{"2", "Grow revenue", "2.1", "New markets", "2.1.t1", "Localization", "2.1.t1.1", "Site localized", "milestone", "", 1, ""},
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		for j, value := range row {
			cell, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				t.Fatal(err)
			}
			if err := f.SetCellValue(sheet, cell, value); err != nil {
				t.Fatal(err)
			}
		}
	}
	if err := f.SaveAs(path); err != nil {
		t.Fatalf("save workbook: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestImportSmoke(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspace := filepath.Join(t.TempDir(), "workspace")

	_, stderr, code := harness.Run(t, binPath, runDir, []string{"init", "--workspace", workspace})
	if code != 0 {
		t.Fatalf("init exit code %d\nstderr:\n%s", code, stderr)
	}

	workbookPath := filepath.Join(t.TempDir(), "plan.xlsx")
	writeWorkbook(t, workbookPath)

	stdout, stderr, code := harness.Run(t, binPath, runDir, []string{
		"import", "--workspace", workspace,
		"--file", workbookPath, "--plan-name", "FY27",
	})
	if code != 0 {
		t.Fatalf("import exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}

	imported := filepath.Join(workspace, "plans", "objective-2.yml")
	data, err := os.ReadFile(imported)
	if err != nil {
		t.Fatalf("imported plan not written at %s: %v", imported, err)
	}
	if !strings.Contains(string(data), "kpi_id: 2.1.1") {
		t.Fatalf("unexpected imported plan:\n%s", data)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{"plan", "validate", "--workspace", workspace})
	if code != 0 {
		t.Fatalf("plan validate exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "OK: 2 objectives") {
		t.Fatalf("unexpected validate output:\n%s", stdout)
	}

	requireAuditEvents(t, filepath.Join(workspace, "audit", "audit.sqlite"), []string{
		"plan.imported",
	})
}
