package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/heron-rebuild/internal/exec"
	"github.com/aretw0/heron-rebuild/internal/fsio"
	"github.com/aretw0/heron-rebuild/internal/logging"
	"github.com/aretw0/heron-rebuild/internal/prep"
	"github.com/aretw0/heron-rebuild/internal/ui"
	"github.com/aretw0/heron-rebuild/pkg/syntax"
	"github.com/aretw0/heron-rebuild/pkg/traverse"
	"github.com/aretw0/heron-rebuild/pkg/workflow"
)

// App runs one CLI invocation.
type App struct {
	Settings Settings
	FS       *fsio.FS
	UI       *ui.UI
	Log      *slog.Logger
}

// New creates an App from validated settings.
func New(settings Settings) *App {
	return &App{
		Settings: settings,
		FS:       fsio.New(settings.Output, settings.DryRun),
		UI:       ui.New(os.Stderr, os.Stdin, settings.Verbose, settings.Yes),
		Log:      logging.New(settings.Verbose),
	}
}

// Run dispatches to invalidation or plan execution.
func (a *App) Run(ctx context.Context) error {
	if a.Settings.Invalidate {
		inv := &Invalidator{Settings: &a.Settings, FS: a.FS, UI: a.UI, Log: a.Log}
		return inv.Invalidate()
	}
	return a.runPlan(ctx)
}

func (a *App) runPlan(ctx context.Context) error {
	strs := workflow.NewStrings()
	// branchpoints.txt pins branchpoint ordering and baselines from
	// previous runs, so realization keys stay stable.
	if err := a.FS.LoadBranchpoints(strs); err != nil {
		return err
	}

	wf, err := a.loadWorkflow(strs)
	if err != nil {
		return err
	}
	plan, err := a.selectPlan(wf)
	if err != nil {
		return err
	}

	if err := a.FS.EnsureOutputRoot(); err != nil {
		return err
	}
	if !a.Settings.DryRun {
		if err := a.FS.WriteBranchpoints(strs); err != nil {
			return fmt.Errorf("writing %s: %w", fsio.BranchpointsFile, err)
		}
		if logFile, err := os.OpenFile(
			filepath.Join(a.FS.OutputRoot(), logging.LogFile),
			os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644,
		); err == nil {
			defer logFile.Close()
			a.Log = logging.NewWithFile(a.Settings.Verbose, logFile)
		}
	}

	a.Log.Info("created workflow",
		"tasks", strs.Tasks.Len(), "branchpoints", strs.Branchpoints.Len())

	traversal, err := traverse.Create(wf, plan, a.Log)
	if err != nil {
		return err
	}

	// resolution only reads; the guard makes that a guarantee
	a.FS.SetDryRun(true)
	actions, err := prep.Resolve(traversal, wf, a.FS, a.Log)
	a.FS.SetDryRun(a.Settings.DryRun)
	if err != nil {
		return err
	}

	preRunner := &prep.PreRunner{FS: a.FS, UI: a.UI, Log: a.Log}
	preRunner.PrintActions(actions)
	if !actions.HasWork() {
		a.UI.Printf("%s\n", a.UI.Green("No tasks to run; exiting."))
		return nil
	}
	if a.Settings.DryRun {
		a.printDryRun(actions)
		return nil
	}
	if ok, err := a.UI.Confirm("Proceed?"); err != nil || !ok {
		return err
	}

	runs, err := preRunner.Apply(actions)
	if err != nil {
		return fmt.Errorf("preparing output directory: %w", err)
	}
	a.UI.Printf("\n%s\n\n", a.UI.Magenta("Starting workflow execution."))

	runner := &exec.Runner{FS: a.FS, UI: a.UI, Log: a.Log}
	return runner.Run(ctx, runs)
}

// printDryRun writes the ordered realization list with resolved values and
// working directories to stdout.
func (a *App) printDryRun(actions *prep.Actions) {
	for _, run := range actions.Runs {
		fmt.Printf("%s\nin %s\n", run.Print, run.WorkDir)
		for _, v := range run.Env {
			fmt.Printf("  %s=%s\n", v.Name, v.Value)
		}
	}
}

// loadWorkflow reads, parses and builds the config file.
func (a *App) loadWorkflow(strs *workflow.Strings) (*workflow.Workflow, error) {
	config := a.Settings.Config
	src, err := os.ReadFile(config)
	if err != nil {
		return nil, fmt.Errorf("reading config file %q: %w", config, err)
	}
	items, err := syntax.Parse(config, string(src))
	if err != nil {
		return nil, err
	}
	configDir, err := filepath.Abs(filepath.Dir(config))
	if err != nil {
		return nil, err
	}
	return workflow.Build(items, config, configDir, strs, a.Log)
}

// selectPlan picks the named plan, or assembles an anonymous one from the
// --task and --branch flags.
func (a *App) selectPlan(wf *workflow.Workflow) (*workflow.Plan, error) {
	if a.Settings.Plan != "" {
		return wf.Plan(wf.Strings.Idents.Intern(a.Settings.Plan))
	}
	var goals []workflow.TaskID
	for _, name := range a.Settings.Tasks {
		id, ok := wf.Strings.Tasks.Lookup(name)
		if !ok || wf.Tasks[id] == nil {
			return nil, fmt.Errorf("unknown task %q", name)
		}
		goals = append(goals, id)
	}
	branches, err := a.Settings.branchSelections(wf.Strings)
	if err != nil {
		return nil, err
	}
	return &workflow.Plan{
		Name:     wf.Strings.Idents.Intern("<command line>"),
		Subplans: []workflow.Subplan{{Goals: goals, Branches: branches}},
	}, nil
}
