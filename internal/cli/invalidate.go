package cli

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/heron-rebuild/internal/fsio"
	"github.com/aretw0/heron-rebuild/internal/prep"
	"github.com/aretw0/heron-rebuild/internal/ui"
	"github.com/aretw0/heron-rebuild/pkg/workflow"
)

// Invalidator deletes realization directories so the next run re-executes
// them (and, automatically, everything downstream of them).
type Invalidator struct {
	Settings *Settings
	FS       *fsio.FS
	UI       *ui.UI
	Log      *slog.Logger
}

// Invalidate applies the invalidation mode:
//   - no --branch: delete the task's entire realizations directory;
//   - --baseline (or --branch Baseline=baseline): delete only the
//     baseline realization;
//   - --branch given: delete every realization whose key contains all of
//     the specified pairs.
func (inv *Invalidator) Invalidate() error {
	if err := inv.FS.EnsureOutputRoot(); err != nil {
		return err
	}
	strs := workflow.NewStrings()
	if err := inv.FS.LoadBranchpoints(strs); err != nil {
		return err
	}

	target, isBaseline, err := inv.target(strs)
	if err != nil {
		return err
	}

	for _, task := range inv.Settings.Tasks {
		switch {
		case isBaseline:
			inv.UI.Printf("%s of task %s.\n", inv.UI.Magenta("Invalidating baseline realization"), inv.UI.Cyan(task))
			dir := prep.RealizationDir(inv.FS.OutputRoot(), task, workflow.BaselineKey)
			if err := inv.deleteDir(dir); err != nil {
				return err
			}
		case target == nil:
			inv.UI.Printf("%s of task %s.\n", inv.UI.Magenta("No branch specified; invalidating all realizations"), inv.UI.Cyan(task))
			if err := inv.deleteDir(prep.RealizationsDir(inv.FS.OutputRoot(), task)); err != nil {
				return err
			}
		default:
			if err := inv.invalidateMatching(task, target, strs); err != nil {
				return err
			}
		}
	}
	return nil
}

// target interprets the --branch/--baseline flags as a partial selection.
// A nil selection with isBaseline false means "everything".
func (inv *Invalidator) target(strs *workflow.Strings) (*workflow.BranchSpec, bool, error) {
	if inv.Settings.Baseline {
		return nil, true, nil
	}
	if len(inv.Settings.Branches) == 0 {
		return nil, false, nil
	}
	var spec workflow.BranchSpec
	for _, flag := range inv.Settings.Branches {
		parsed, err := parseBranchFlag(flag, strs)
		if err != nil {
			return nil, false, err
		}
		spec.InsertAll(&parsed)
	}
	if spec.IsEmpty() {
		// only Baseline=baseline pairs were given
		return nil, true, nil
	}
	return &spec, false, nil
}

// invalidateMatching deletes every realization of the task whose key
// contains all pairs of the target selection.
func (inv *Invalidator) invalidateMatching(task string, target *workflow.BranchSpec, strs *workflow.Strings) error {
	realizations := prep.RealizationsDir(inv.FS.OutputRoot(), task)
	if !inv.FS.IsDir(realizations) {
		inv.UI.Printf("No realizations of task %s; nothing to invalidate.\n", inv.UI.Cyan(task))
		return nil
	}
	if inv.UI.Verbose() {
		inv.UI.Printf("%s in task %s.\n", inv.UI.Magenta("Searching for realizations to invalidate"), inv.UI.Cyan(task))
	}
	entries, err := inv.FS.ReadDir(realizations)
	if err != nil {
		return err
	}
	found := false
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		entryBranch, err := workflow.ParseKey(entry.Name(), strs)
		if err != nil {
			inv.Log.Warn("skipping unparseable realization directory", "task", task, "dir", entry.Name(), "err", err)
			continue
		}
		if !target.IsExactMatch(&entryBranch) {
			continue
		}
		found = true
		if err := inv.deleteDir(filepath.Join(realizations, entry.Name())); err != nil {
			return err
		}
	}
	if !found {
		inv.UI.Printf("No matching realizations of task %s to invalidate.\n", inv.UI.Cyan(task))
	}
	return nil
}

func (inv *Invalidator) deleteDir(dir string) error {
	if !inv.FS.IsDir(dir) {
		inv.UI.Printf("%s does not exist; not deleting.\n", dir)
		return nil
	}
	inv.UI.Printf("%s %s\n", inv.UI.Red("Deleting"), dir)
	if inv.Settings.DryRun {
		return nil
	}
	ok, err := inv.UI.Confirm("Proceed?")
	if err != nil || !ok {
		return err
	}
	if err := inv.FS.DeleteDir(dir); err != nil {
		return fmt.Errorf("deleting %s: %w", dir, err)
	}
	return nil
}
