package prep

import (
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/aretw0/heron-rebuild/internal/fsio"
	"github.com/aretw0/heron-rebuild/internal/ui"
)

// PreRunner prints the action summary and prepares the output tree:
// deletes stale realization directories, creates fresh ones, writes the
// task.sh records and refreshes the convenience symlinks.
type PreRunner struct {
	FS  *fsio.FS
	UI  *ui.UI
	Log *slog.Logger
}

// PrintActions summarizes what a run will do: cached realizations, stale
// directories to delete, and realizations to execute. Modules are listed
// when verbose.
func (p *PreRunner) PrintActions(a *Actions) {
	u := p.UI
	if len(a.Completed) > 0 {
		u.Printf("\nThe following tasks are %s and will not run:\n", u.Green("already complete"))
		for _, c := range a.Completed {
			u.Printf("%s %s\n", u.Green("COMPLETED"), c)
		}
	}
	if len(a.Deletes) > 0 {
		u.Printf("\nThe following tasks are %s and will be deleted:\n", u.Red("incomplete or invalid"))
		for _, d := range a.Deletes {
			u.Printf("%s %s\n", u.Red("DELETE"), d.Print)
		}
	}
	if len(a.Runs) > 0 {
		u.Printf("\nThe following tasks %s:\n", u.Green("will run"))
		for _, run := range a.Runs {
			u.Printf("%s %s\n", u.Green("RUN"), run.Print)
		}
	}
	if u.Verbose() && len(a.Modules) > 0 {
		u.Printf("\nThe following %s will be used:\n", u.Magenta("modules"))
		for _, m := range a.Modules {
			u.Printf("%s: %s\n", u.Magenta(m.Name), m.Path)
		}
	}
	u.Printf("\n")
}

// Apply performs the pre-run mutations and returns the runs ready for
// execution.
func (p *PreRunner) Apply(a *Actions) ([]*TaskRun, error) {
	for _, d := range a.Deletes {
		p.UI.Printf("%s %s\n", p.UI.Red("Deleting"), d.Dir)
		if err := p.FS.DeleteDir(d.Dir); err != nil {
			return nil, fmt.Errorf("deleting old realization %s: %w", d.Dir, err)
		}
	}
	for _, run := range a.Runs {
		p.UI.Printf("%s %s\n", p.UI.Green("Creating"), run.Dir)
		if err := p.FS.CreateDir(run.Dir); err != nil {
			return nil, fmt.Errorf("creating realization dir: %w", err)
		}
		if p.UI.Verbose() {
			p.UI.Printf("%s %s to %s\n", p.UI.Magenta("Symlinking"), run.Symlink, run.LinkTarget)
		}
		if err := p.FS.Symlink(run.LinkTarget, run.Symlink); err != nil {
			return nil, fmt.Errorf("symlinking realization dir: %w", err)
		}
		if err := p.FS.WriteFile(filepath.Join(run.Dir, ScriptFile), run.Script); err != nil {
			return nil, fmt.Errorf("writing %s: %w", ScriptFile, err)
		}
		p.Log.Debug("prepared realization", "task", run.Print, "dir", run.Dir)
	}
	return a.Runs, nil
}
