package integration_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"stratplan/integration/harness"
)

const fixturePlan = `plan: FY27
objectives:
  - objective_id: "1"
    title: Operational excellence
    strategies:
      - strategy_id: "1.1"
        title: Expand regions
        kpis:
          - kpi_id: "1.1.1"
            title: Regions live
            metric_type: numeric
            target: 40
            current: 8
        tactics:
          - tactic_id: "1.1.t1"
            title: Launch playbook
            kpis:
              - kpi_id: "1.1.t1.1"
                title: Playbook published
                metric_type: milestone
                current: 0
`

func TestCLISmoke(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspace := filepath.Join(t.TempDir(), "workspace")

	stdout, stderr, code := harness.Run(t, binPath, runDir, []string{"--help"})
	if code != 0 {
		t.Fatalf("stratplan --help exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout+stderr, "strategic plan roll-up") {
		t.Fatalf("expected help output to include header\nstdout:\n%s\nstderr:\n%s", stdout, stderr)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{"init", "--workspace", workspace})
	if code != 0 {
		t.Fatalf("stratplan init exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}

	planPath := filepath.Join(workspace, "plans", "objective-1.yml")
	if err := os.WriteFile(planPath, []byte(fixturePlan), 0o644); err != nil {
		t.Fatalf("write fixture plan: %v", err)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{"plan", "validate", "--workspace", workspace})
	if code != 0 {
		t.Fatalf("plan validate exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "OK: 1 objectives") {
		t.Fatalf("unexpected validate output:\n%s", stdout)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{
		"rollup", "--workspace", workspace, "--write", "--as-of", "2026-01-15",
	})
	if code != 0 {
		t.Fatalf("rollup exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	// 8/40 pooled with an unmet milestone: (0.2 + 0) / 2.
	if !strings.Contains(stdout, "10.0%") || !strings.Contains(stdout, "Off Track") {
		t.Fatalf("unexpected rollup output:\n%s", stdout)
	}
	snapshotPath := filepath.Join(workspace, "snapshots", "2026-01-15.json")
	if _, err := os.Stat(snapshotPath); err != nil {
		t.Fatalf("snapshot not written at %s: %v", snapshotPath, err)
	}

	// Unchanged plan tree: the snapshot must be reused, not rewritten.
	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{
		"rollup", "--workspace", workspace, "--write", "--as-of", "2026-01-15",
	})
	if code != 0 {
		t.Fatalf("rollup rerun exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "Snapshot up to date") {
		t.Fatalf("expected memoized snapshot, got:\n%s", stdout)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{
		"kpi", "update", "--workspace", workspace,
		"--kpi", "1.1.t1.1", "--current", "1", "--dept", "Ops",
	})
	if code != 0 {
		t.Fatalf("kpi update exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "Updated 1.1.t1.1") {
		t.Fatalf("unexpected kpi update output:\n%s", stdout)
	}
	if !strings.Contains(stdout, "Off Track -> On Track") {
		t.Fatalf("expected a status change line:\n%s", stdout)
	}

	backups, err := os.ReadDir(filepath.Join(workspace, "backups"))
	if err != nil || len(backups) == 0 {
		t.Fatalf("expected a backup directory, got %v err=%v", backups, err)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{
		"rollup", "--workspace", workspace, "--write", "--as-of", "2026-01-16",
	})
	if code != 0 {
		t.Fatalf("second rollup exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{"status", "--workspace", workspace})
	if code != 0 {
		t.Fatalf("status exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "Snapshot 2026-01-16") {
		t.Fatalf("expected latest snapshot in status output:\n%s", stdout)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{"status", "--workspace", workspace, "--changes"})
	if code != 0 {
		t.Fatalf("status --changes exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "1.1.t1.1") || !strings.Contains(stdout, "Off Track -> On Track") {
		t.Fatalf("expected the milestone transition:\n%s", stdout)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{
		"export", "--workspace", workspace, "--as-of", "2026-01-16",
	})
	if code != 0 {
		t.Fatalf("export exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	exportPath := filepath.Join(workspace, "exports", "rollup-2026-01-16.csv")
	data, err := os.ReadFile(exportPath)
	if err != nil {
		t.Fatalf("export not written at %s: %v", exportPath, err)
	}
	if !strings.Contains(string(data), "on_track") {
		t.Fatalf("unexpected export contents:\n%s", data)
	}

	auditPath := filepath.Join(workspace, "audit", "audit.sqlite")
	requireAuditEvents(t, auditPath, []string{
		"command.started",
		"command.finished",
		"kpi.updated",
		"report.written",
	})
}

func TestCLIPermissionDenied(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspace := filepath.Join(t.TempDir(), "workspace")

	_, stderr, code := harness.Run(t, binPath, runDir, []string{"init", "--workspace", workspace})
	if code != 0 {
		t.Fatalf("init exit code %d\nstderr:\n%s", code, stderr)
	}
	if err := os.WriteFile(filepath.Join(workspace, "plans", "objective-1.yml"), []byte(fixturePlan), 0o644); err != nil {
		t.Fatal(err)
	}
	perms := "write:\n  Finance:\n    - \"2\"\n"
	if err := os.WriteFile(filepath.Join(workspace, "plans", "permissions.yml"), []byte(perms), 0o644); err != nil {
		t.Fatal(err)
	}

	_, stderr, code = harness.Run(t, binPath, runDir, []string{
		"kpi", "update", "--workspace", workspace,
		"--kpi", "1.1.1", "--current", "20", "--dept", "Finance",
	})
	if code == 0 {
		t.Fatalf("expected kpi update to be rejected")
	}
	if !strings.Contains(stderr, "may not update") {
		t.Fatalf("unexpected error output:\n%s", stderr)
	}
}
