package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stratplan/internal/audit"
	"stratplan/internal/config"
	"stratplan/internal/export"
	"stratplan/internal/ingest"
	"stratplan/internal/plan"
	"stratplan/internal/render"
	"stratplan/internal/report"
	"stratplan/internal/rollup"
	"stratplan/internal/workspace"
)

const appName = "stratplan"

func main() {
	flag.String("workspace", "", "Path to workspace root")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "%s: strategic plan roll-up\n\n", appName)
		fmt.Fprintf(os.Stderr, "Usage:\n  %s [command] [flags]\n\n", appName)
		fmt.Fprintln(os.Stderr, "Commands:")
		fmt.Fprintln(os.Stderr, "  init    Initialize a new workspace")
		fmt.Fprintln(os.Stderr, "  plan    Validate and lint plan documents")
		fmt.Fprintln(os.Stderr, "  rollup  Compute completion roll-up")
		fmt.Fprintln(os.Stderr, "  status  Show the latest snapshot")
		fmt.Fprintln(os.Stderr, "  kpi     Update KPI measurements")
		fmt.Fprintln(os.Stderr, "  import  Import a plan workbook")
		fmt.Fprintln(os.Stderr, "  export  Export roll-up results as CSV")
		fmt.Fprintln(os.Stderr, "  help    Show this help")
		fmt.Fprintln(os.Stderr, "\nFlags:")
		flag.PrintDefaults()
	}

	workspacePath, remaining, err := extractWorkspaceFlag(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	args := remaining
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		flag.Usage()
		return
	}

	switch args[0] {
	case "init":
		if err := runInit(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "plan":
		if err := runPlan(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "rollup":
		if err := runRollup(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "status":
		if err := runStatus(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "kpi":
		if err := runKPI(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "import":
		if err := runImport(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	case "export":
		if err := runExport(args[1:], workspacePath); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", args[0])
		flag.Usage()
		os.Exit(1)
	}
}

type workspaceOverrides struct {
	PlansDir     string
	SnapshotsDir string
	ExportsDir   string
	BackupsDir   string
	AuditDB      string
}

type resolvedWorkspace struct {
	Workspace    *workspace.Workspace
	PlansDir     string
	SnapshotsDir string
	ExportsDir   string
	BackupsDir   string
	AuditDB      string
}

func resolveWorkspaceAndOverrides(root string, overrides workspaceOverrides) (*resolvedWorkspace, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("--workspace is required")
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return nil, err
	}
	resolved := &resolvedWorkspace{Workspace: ws}
	resolved.PlansDir = ws.PlansDir
	resolved.SnapshotsDir = ws.SnapshotsDir
	resolved.ExportsDir = ws.ExportsDir
	resolved.BackupsDir = ws.BackupsDir
	resolved.AuditDB = ws.AuditDBPath

	if overrides.PlansDir != "" {
		resolved.PlansDir, err = ws.ResolvePath(overrides.PlansDir)
		if err != nil {
			return nil, fmt.Errorf("resolve --plans-dir: %w", err)
		}
	}
	if overrides.SnapshotsDir != "" {
		resolved.SnapshotsDir, err = ws.ResolvePath(overrides.SnapshotsDir)
		if err != nil {
			return nil, fmt.Errorf("resolve --snapshots-dir: %w", err)
		}
	}
	if overrides.ExportsDir != "" {
		resolved.ExportsDir, err = ws.ResolvePath(overrides.ExportsDir)
		if err != nil {
			return nil, fmt.Errorf("resolve --exports-dir: %w", err)
		}
	}
	if overrides.BackupsDir != "" {
		resolved.BackupsDir, err = ws.ResolvePath(overrides.BackupsDir)
		if err != nil {
			return nil, fmt.Errorf("resolve --backups-dir: %w", err)
		}
	}
	if overrides.AuditDB != "" {
		resolved.AuditDB, err = ws.ResolvePath(overrides.AuditDB)
		if err != nil {
			return nil, fmt.Errorf("resolve --audit-db: %w", err)
		}
	}
	return resolved, nil
}

func (r *resolvedWorkspace) loadConfig() (*config.Config, error) {
	return config.Load(r.Workspace.ConfigPath)
}

func extractWorkspaceFlag(args []string) (string, []string, error) {
	var workspacePath string
	remaining := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if arg == "--workspace" {
			if i+1 >= len(args) {
				return "", nil, fmt.Errorf("--workspace requires a value")
			}
			workspacePath = args[i+1]
			i++
			continue
		}
		if strings.HasPrefix(arg, "--workspace=") {
			workspacePath = strings.TrimPrefix(arg, "--workspace=")
			continue
		}
		remaining = append(remaining, arg)
	}
	return workspacePath, remaining, nil
}

func parseAsOf(value string) (time.Time, error) {
	if value == "" {
		return time.Now().UTC().Truncate(24 * time.Hour), nil
	}
	parsed, err := time.ParseInLocation("2006-01-02", value, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --as-of: %w", err)
	}
	return parsed.UTC().Truncate(24 * time.Hour), nil
}

func runInit(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("init", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	planName := fs.String("plan-name", "Strategic Plan", "Name recorded in the sample plan")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if strings.TrimSpace(workspacePath) == "" {
		return fmt.Errorf("--workspace is required")
	}

	root, err := workspace.ResolveRoot(workspacePath)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return fmt.Errorf("create workspace root: %w", err)
	}
	ws, err := workspace.Resolve(root)
	if err != nil {
		return err
	}

	logger := audit.NewLogger(ws.AuditDBPath)
	startPayload := map[string]any{
		"command":   "init",
		"workspace": ws.Root,
	}
	if err := logger.LogEvent("cli", audit.EventCommandStarted, startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	var finishErr error
	defer func() {
		finishPayload := map[string]any{
			"command":   "init",
			"workspace": ws.Root,
		}
		eventType := audit.EventCommandFinished
		if finishErr != nil {
			eventType = audit.EventCommandFailed
			finishPayload["error"] = finishErr.Error()
		}
		_ = logger.LogEvent("cli", eventType, finishPayload)
	}()

	if err := ws.EnsureDirs(); err != nil {
		finishErr = err
		return finishErr
	}

	sample := strings.Replace(samplePlanTemplate, "{{PLAN}}", *planName, 1)
	if err := writeFileIfMissing(filepath.Join(ws.PlansDir, "objective-1.yml"), sample); err != nil {
		finishErr = err
		return finishErr
	}
	if err := writeFileIfMissing(filepath.Join(ws.PlansDir, "permissions.yml"), permissionsTemplate); err != nil {
		finishErr = err
		return finishErr
	}
	if err := writeFileIfMissing(ws.ConfigPath, configTemplate); err != nil {
		finishErr = err
		return finishErr
	}

	fmt.Fprintf(os.Stdout, "Initialized workspace: %s\n", ws.Root)
	fmt.Fprintln(os.Stdout, "Next steps:")
	fmt.Fprintf(os.Stdout, "  %s plan validate --workspace %s\n", appName, ws.Root)
	fmt.Fprintf(os.Stdout, "  %s rollup --workspace %s\n", appName, ws.Root)
	return nil
}

func runPlan(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s plan: missing subcommand", appName)
	}

	switch args[0] {
	case "validate":
		return runPlanValidate(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s plan: unknown subcommand %q", appName, args[0])
	}
}

func runPlanValidate(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("plan validate", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	plansDir := fs.String("plans-dir", "", "Path to plan YAML directory (default: <workspace>/plans)")
	auditDB := fs.String("audit-db", "", "Path to audit SQLite DB (default: <workspace>/audit/audit.sqlite)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolved, err := resolveWorkspaceAndOverrides(workspacePath, workspaceOverrides{
		PlansDir: *plansDir,
		AuditDB:  *auditDB,
	})
	if err != nil {
		return err
	}

	logger := audit.NewLogger(resolved.AuditDB)
	startPayload := map[string]any{
		"command":   "plan validate",
		"plans_dir": resolved.PlansDir,
	}
	if err := logger.LogEvent("cli", audit.EventCommandStarted, startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}

	store, err := plan.LoadFromDir(resolved.PlansDir)
	finishPayload := map[string]any{
		"command":   "plan validate",
		"plans_dir": resolved.PlansDir,
	}
	if err != nil {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent("cli", audit.EventCommandFailed, finishPayload)
		return err
	}

	warnings := plan.Lint(store.Documents)
	for _, w := range warnings {
		fmt.Fprintf(os.Stdout, "warning: %s\n", w.Error())
	}

	objectives, strategies, tactics, kpis := countEntities(store)
	finishPayload["objectives"] = objectives
	finishPayload["kpis"] = kpis
	finishPayload["warnings"] = len(warnings)
	_ = logger.LogEvent("cli", audit.EventCommandFinished, finishPayload)

	fmt.Fprintf(os.Stdout, "OK: %d objectives, %d strategies, %d tactics, %d KPIs (%d warnings)\n",
		objectives, strategies, tactics, kpis, len(warnings))
	return nil
}

func countEntities(store *plan.Store) (objectives, strategies, tactics, kpis int) {
	for _, doc := range store.Documents {
		for _, obj := range doc.Objectives {
			objectives++
			for _, strat := range obj.Strategies {
				strategies++
				kpis += len(strat.KPIs)
				for _, tac := range strat.Tactics {
					tactics++
					kpis += len(tac.KPIs)
				}
			}
		}
	}
	return
}

func runRollup(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("rollup", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	plansDir := fs.String("plans-dir", "", "Path to plan YAML directory (default: <workspace>/plans)")
	snapshotsDir := fs.String("snapshots-dir", "", "Directory for snapshot reports (default: <workspace>/snapshots)")
	auditDB := fs.String("audit-db", "", "Path to audit SQLite DB (default: <workspace>/audit/audit.sqlite)")
	asOfStr := fs.String("as-of", "", "As-of date (YYYY-MM-DD, default: today UTC)")
	write := fs.Bool("write", false, "Write a snapshot report")
	force := fs.Bool("force", false, "Rewrite the snapshot even if the plan tree is unchanged")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolved, err := resolveWorkspaceAndOverrides(workspacePath, workspaceOverrides{
		PlansDir:     *plansDir,
		SnapshotsDir: *snapshotsDir,
		AuditDB:      *auditDB,
	})
	if err != nil {
		return err
	}
	cfg, err := resolved.loadConfig()
	if err != nil {
		return err
	}
	asOf, err := parseAsOf(*asOfStr)
	if err != nil {
		return err
	}

	logger := audit.NewLogger(resolved.AuditDB)
	startPayload := map[string]any{
		"command":   "rollup",
		"plans_dir": resolved.PlansDir,
		"as_of":     asOf.Format("2006-01-02"),
		"write":     *write,
	}
	if err := logger.LogEvent("cli", audit.EventCommandStarted, startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	finishPayload := map[string]any{
		"command":   "rollup",
		"plans_dir": resolved.PlansDir,
	}
	fail := func(err error) error {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent("cli", audit.EventCommandFailed, finishPayload)
		return err
	}

	store, err := plan.LoadFromDir(resolved.PlansDir)
	if err != nil {
		return fail(err)
	}

	results, err := report.Build(store, cfg.RollupThresholds())
	if err != nil {
		return fail(err)
	}
	render.Table(os.Stdout, render.TreeOrder(store, results), cfg.Display.Decimals)

	if *write {
		fingerprint, err := plan.Fingerprint(resolved.PlansDir)
		if err != nil {
			return fail(err)
		}
		path := report.PathForDate(resolved.SnapshotsDir, asOf)
		if !*force {
			if existing, err := report.Load(path); err == nil && existing.Fingerprint == fingerprint {
				fmt.Fprintf(os.Stdout, "Snapshot up to date: %s\n", path)
				finishPayload["snapshot"] = path
				finishPayload["skipped"] = true
				_ = logger.LogEvent("cli", audit.EventCommandFinished, finishPayload)
				return nil
			}
		}
		rep := report.Report{
			AsOf:        asOf.Format("2006-01-02"),
			PlanDir:     resolved.PlansDir,
			Fingerprint: fingerprint,
			Results:     results,
		}
		if err := report.Write(path, rep); err != nil {
			return fail(err)
		}
		fmt.Fprintf(os.Stdout, "Wrote snapshot: %s\n", path)
		finishPayload["snapshot"] = path
		_ = logger.LogEvent("cli", audit.EventReportWritten, map[string]any{
			"snapshot":    path,
			"as_of":       rep.AsOf,
			"fingerprint": fingerprint,
			"results":     len(results),
		})
	}

	finishPayload["results"] = len(results)
	_ = logger.LogEvent("cli", audit.EventCommandFinished, finishPayload)
	return nil
}

func runStatus(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("status", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	snapshotsDir := fs.String("snapshots-dir", "", "Directory for snapshot reports (default: <workspace>/snapshots)")
	auditDB := fs.String("audit-db", "", "Path to audit SQLite DB (default: <workspace>/audit/audit.sqlite)")
	changes := fs.Bool("changes", false, "Show status-band changes between the two latest snapshots")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolved, err := resolveWorkspaceAndOverrides(workspacePath, workspaceOverrides{
		SnapshotsDir: *snapshotsDir,
		AuditDB:      *auditDB,
	})
	if err != nil {
		return err
	}
	cfg, err := resolved.loadConfig()
	if err != nil {
		return err
	}

	logger := audit.NewLogger(resolved.AuditDB)
	startPayload := map[string]any{
		"command":       "status",
		"snapshots_dir": resolved.SnapshotsDir,
		"changes":       *changes,
	}
	if err := logger.LogEvent("cli", audit.EventCommandStarted, startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	finishPayload := map[string]any{
		"command":       "status",
		"snapshots_dir": resolved.SnapshotsDir,
	}
	fail := func(err error) error {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent("cli", audit.EventCommandFailed, finishPayload)
		return err
	}

	if *changes {
		olderPath, newerPath, err := report.LatestTwoPaths(resolved.SnapshotsDir)
		if err != nil {
			return fail(err)
		}
		older, err := report.Load(olderPath)
		if err != nil {
			return fail(err)
		}
		newer, err := report.Load(newerPath)
		if err != nil {
			return fail(err)
		}
		transitions := report.StatusChanges(older, newer)
		if len(transitions) == 0 {
			fmt.Fprintf(os.Stdout, "No status changes between %s and %s\n", older.AsOf, newer.AsOf)
		}
		for _, c := range transitions {
			fmt.Fprintln(os.Stdout, render.FormatStatusChange(c, cfg.Display.Decimals))
		}
		finishPayload["transitions"] = len(transitions)
		_ = logger.LogEvent("cli", audit.EventCommandFinished, finishPayload)
		return nil
	}

	path, err := report.LatestPath(resolved.SnapshotsDir)
	if err != nil {
		return fail(err)
	}
	rep, err := report.Load(path)
	if err != nil {
		return fail(err)
	}
	fmt.Fprintf(os.Stdout, "Snapshot %s (%s)\n", rep.AsOf, path)
	render.Table(os.Stdout, rep.Results, cfg.Display.Decimals)

	finishPayload["snapshot"] = path
	_ = logger.LogEvent("cli", audit.EventCommandFinished, finishPayload)
	return nil
}

func runKPI(args []string, workspacePath string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "-h" || args[0] == "--help" {
		return fmt.Errorf("%s kpi: missing subcommand", appName)
	}

	switch args[0] {
	case "update":
		return runKPIUpdate(args[1:], workspacePath)
	default:
		return fmt.Errorf("%s kpi: unknown subcommand %q", appName, args[0])
	}
}

func runKPIUpdate(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("kpi update", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	kpiID := fs.String("kpi", "", "KPI id to update")
	current := fs.Float64("current", 0, "New current value")
	dept := fs.String("dept", "", "Acting department, checked against permissions")
	from := fs.String("from", "", "CSV of kpi_id,current rows for a batch update")
	plansDir := fs.String("plans-dir", "", "Path to plan YAML directory (default: <workspace>/plans)")
	backupsDir := fs.String("backups-dir", "", "Directory for pre-update backups (default: <workspace>/backups)")
	auditDB := fs.String("audit-db", "", "Path to audit SQLite DB (default: <workspace>/audit/audit.sqlite)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	hasSingle := *kpiID != ""
	currentSet := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == "current" {
			currentSet = true
		}
	})
	if hasSingle && !currentSet {
		return fmt.Errorf("--current is required with --kpi")
	}
	if !hasSingle && *from == "" {
		return fmt.Errorf("either --kpi with --current or --from is required")
	}
	if hasSingle && *from != "" {
		return fmt.Errorf("--kpi and --from are mutually exclusive")
	}

	resolved, err := resolveWorkspaceAndOverrides(workspacePath, workspaceOverrides{
		PlansDir:   *plansDir,
		BackupsDir: *backupsDir,
		AuditDB:    *auditDB,
	})
	if err != nil {
		return err
	}
	cfg, err := resolved.loadConfig()
	if err != nil {
		return err
	}

	actor := strings.TrimSpace(*dept)
	if actor == "" {
		actor = "cli"
	}
	logger := audit.NewLogger(resolved.AuditDB)
	startPayload := map[string]any{
		"command":   "kpi update",
		"plans_dir": resolved.PlansDir,
		"kpi_id":    *kpiID,
		"from":      *from,
		"dept":      *dept,
	}
	if err := logger.LogEvent(actor, audit.EventCommandStarted, startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	finishPayload := map[string]any{
		"command":   "kpi update",
		"plans_dir": resolved.PlansDir,
	}
	fail := func(err error) error {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent(actor, audit.EventCommandFailed, finishPayload)
		return err
	}

	store, err := plan.LoadFromDir(resolved.PlansDir)
	if err != nil {
		return fail(err)
	}
	perms, err := plan.LoadPermissionsFromDir(resolved.PlansDir)
	if err != nil {
		return fail(err)
	}

	var updates []export.CurrentValue
	if hasSingle {
		updates = []export.CurrentValue{{KPIID: *kpiID, Current: *current}}
	} else {
		fromPath, err := resolved.Workspace.ResolvePath(*from)
		if err != nil {
			return fail(fmt.Errorf("resolve --from: %w", err))
		}
		updates, err = export.ReadCurrentValuesFile(fromPath)
		if err != nil {
			return fail(err)
		}
	}

	th := cfg.RollupThresholds()
	now := time.Now()
	applied := 0
	for _, u := range updates {
		rec, ok := store.KPILookup(u.KPIID)
		if !ok {
			return fail(fmt.Errorf("unknown kpi_id %q", u.KPIID))
		}
		if !perms.CanEdit(*dept, u.KPIID) {
			return fail(fmt.Errorf("department %q may not update %q", *dept, u.KPIID))
		}

		before := rollup.SummarizeKPI(rec.KPI, th)
		res, err := plan.UpdateKPICurrent(store, u.KPIID, u.Current, resolved.BackupsDir, now)
		if err != nil {
			return fail(err)
		}
		rec, _ = store.KPILookup(u.KPIID)
		updatedKPI := rec.KPI
		updatedKPI.Current = u.Current
		after := rollup.SummarizeKPI(updatedKPI, th)

		fmt.Fprintf(os.Stdout, "Updated %s: %v -> %v (backup: %s)\n",
			res.KPIID, res.OldCurrent, res.NewCurrent, res.BackupDir)
		if before.Status != after.Status {
			fmt.Fprintln(os.Stdout, render.FormatStatusChange(report.StatusChange{
				Level:     report.LevelKPI,
				ID:        updatedKPI.ID,
				Title:     updatedKPI.Title,
				OldStatus: before.Status,
				NewStatus: after.Status,
				OldPct:    before.Percent,
				NewPct:    after.Percent,
			}, cfg.Display.Decimals))
		}
		_ = logger.LogEvent(actor, audit.EventKPIUpdated, map[string]any{
			"kpi_id":      res.KPIID,
			"old_current": res.OldCurrent,
			"new_current": res.NewCurrent,
			"source":      res.Source,
			"backup_dir":  res.BackupDir,
		})
		applied++
	}

	finishPayload["updated"] = applied
	_ = logger.LogEvent(actor, audit.EventCommandFinished, finishPayload)
	return nil
}

func runImport(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	filePath := fs.String("file", "", "Path to the XLSX workbook")
	sheet := fs.String("sheet", "", "Worksheet name (default: first sheet)")
	planName := fs.String("plan-name", "", "Plan name recorded on generated documents")
	plansDir := fs.String("plans-dir", "", "Path to plan YAML directory (default: <workspace>/plans)")
	auditDB := fs.String("audit-db", "", "Path to audit SQLite DB (default: <workspace>/audit/audit.sqlite)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *filePath == "" {
		return fmt.Errorf("--file is required")
	}

	resolved, err := resolveWorkspaceAndOverrides(workspacePath, workspaceOverrides{
		PlansDir: *plansDir,
		AuditDB:  *auditDB,
	})
	if err != nil {
		return err
	}
	absFile, err := resolved.Workspace.ResolvePath(*filePath)
	if err != nil {
		return fmt.Errorf("resolve --file: %w", err)
	}

	logger := audit.NewLogger(resolved.AuditDB)
	startPayload := map[string]any{
		"command":   "import",
		"file":      absFile,
		"sheet":     *sheet,
		"plans_dir": resolved.PlansDir,
	}
	if err := logger.LogEvent("cli", audit.EventCommandStarted, startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	finishPayload := map[string]any{
		"command": "import",
		"file":    absFile,
	}
	fail := func(err error) error {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent("cli", audit.EventCommandFailed, finishPayload)
		return err
	}

	docs, err := ingest.Workbook(absFile, ingest.Options{PlanName: *planName, Sheet: *sheet})
	if err != nil {
		return fail(err)
	}
	written, err := ingest.WriteDocuments(docs, resolved.PlansDir)
	if err != nil {
		return fail(err)
	}

	// Written documents must load cleanly, including cross-document checks
	// against plans already in the directory.
	if _, err := plan.LoadFromDir(resolved.PlansDir); err != nil {
		return fail(fmt.Errorf("imported plans failed validation: %w", err))
	}

	for _, path := range written {
		fmt.Fprintf(os.Stdout, "Wrote %s\n", path)
	}
	_ = logger.LogEvent("cli", audit.EventPlanImported, map[string]any{
		"file":      absFile,
		"documents": len(written),
	})
	finishPayload["documents"] = len(written)
	_ = logger.LogEvent("cli", audit.EventCommandFinished, finishPayload)
	return nil
}

func runExport(args []string, workspacePath string) error {
	fs := flag.NewFlagSet("export", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	out := fs.String("out", "", "Output CSV path (default: <workspace>/exports/rollup-<as-of>.csv)")
	plansDir := fs.String("plans-dir", "", "Path to plan YAML directory (default: <workspace>/plans)")
	exportsDir := fs.String("exports-dir", "", "Directory for exports (default: <workspace>/exports)")
	auditDB := fs.String("audit-db", "", "Path to audit SQLite DB (default: <workspace>/audit/audit.sqlite)")
	asOfStr := fs.String("as-of", "", "As-of date used in the default file name (YYYY-MM-DD, default: today UTC)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resolved, err := resolveWorkspaceAndOverrides(workspacePath, workspaceOverrides{
		PlansDir:   *plansDir,
		ExportsDir: *exportsDir,
		AuditDB:    *auditDB,
	})
	if err != nil {
		return err
	}
	cfg, err := resolved.loadConfig()
	if err != nil {
		return err
	}
	asOf, err := parseAsOf(*asOfStr)
	if err != nil {
		return err
	}

	outPath := *out
	if outPath == "" {
		outPath = filepath.Join(resolved.ExportsDir, "rollup-"+asOf.Format("2006-01-02")+".csv")
	} else {
		outPath, err = resolved.Workspace.ResolvePath(outPath)
		if err != nil {
			return fmt.Errorf("resolve --out: %w", err)
		}
	}

	logger := audit.NewLogger(resolved.AuditDB)
	startPayload := map[string]any{
		"command":   "export",
		"plans_dir": resolved.PlansDir,
		"out":       outPath,
	}
	if err := logger.LogEvent("cli", audit.EventCommandStarted, startPayload); err != nil {
		fmt.Fprintln(os.Stderr, "audit log failed:", err)
	}
	finishPayload := map[string]any{
		"command": "export",
		"out":     outPath,
	}
	fail := func(err error) error {
		finishPayload["error"] = err.Error()
		_ = logger.LogEvent("cli", audit.EventCommandFailed, finishPayload)
		return err
	}

	store, err := plan.LoadFromDir(resolved.PlansDir)
	if err != nil {
		return fail(err)
	}
	results, err := report.Build(store, cfg.RollupThresholds())
	if err != nil {
		return fail(err)
	}
	if err := export.WriteResultsFile(outPath, results); err != nil {
		return fail(err)
	}

	fmt.Fprintf(os.Stdout, "Wrote export: %s\n", outPath)
	finishPayload["results"] = len(results)
	_ = logger.LogEvent("cli", audit.EventCommandFinished, finishPayload)
	return nil
}

func writeFileIfMissing(path string, contents string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure dir for %s: %w", path, err)
	}
	return os.WriteFile(path, []byte(contents), 0o644)
}

const samplePlanTemplate = `plan: {{PLAN}}
objectives:
  - objective_id: "1"
    title: Establish the planning baseline
    strategies:
      - strategy_id: "1.1"
        title: Capture current measurements
        kpis:
          - kpi_id: "1.1.1"
            title: Plan documents validated
            metric_type: milestone
            current: 0
`

const permissionsTemplate = `# Departments map to the entity-id prefixes they may update.
# An empty file allows every update.
write: {}
`

const configTemplate = `thresholds:
  on_track: 0.70
  at_risk: 0.40
display:
  decimals: 1
`
