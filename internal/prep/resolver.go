package prep

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/heron-rebuild/internal/fsio"
	"github.com/aretw0/heron-rebuild/pkg/traverse"
	"github.com/aretw0/heron-rebuild/pkg/workflow"
)

// TaskRun is everything needed to execute one realization.
type TaskRun struct {
	// Print uniquely identifies the realization for the user: "task[key]".
	Print string
	// TaskName and Key name the realization's directory.
	TaskName string
	Key      string
	// Dir is the absolute realization directory.
	Dir string
	// WorkDir is where the subprocess runs: the module directory for
	// module tasks, the realization directory otherwise.
	WorkDir string
	// Script is the archival task.sh content.
	Script string
	// Env holds the header-variable assignments: inputs, then outputs,
	// then params, each group in declaration order.
	Env []EnvVar
	// Code is the task body passed to the shell.
	Code string
	// Inputs are checked for existence immediately before execution.
	Inputs []string
	// Outputs are checked for existence after execution. For module tasks
	// these are the paths inside the module directory.
	Outputs []string
	// CopyOutputs are the module-to-realization copies performed after a
	// module task exits.
	CopyOutputs []CopyPair
	// Symlink and LinkTarget describe the convenience link
	// <out>/<task>/<key> -> realizations/<key>.
	Symlink    string
	LinkTarget string
}

// Delete names a stale realization directory to remove before running.
type Delete struct {
	Print string
	Dir   string
}

// ModuleUse records a module exercised by this run, for the verbose
// action summary.
type ModuleUse struct {
	Name string
	Path string
}

// Actions is the classified work list for a run.
type Actions struct {
	// Completed realizations are cached and will not run.
	Completed []string
	// Deletes are stale or incomplete realization directories.
	Deletes []Delete
	// Runs are the realizations to execute, in dependency order.
	Runs []*TaskRun
	// Modules used by the runs.
	Modules []ModuleUse
}

// HasWork reports whether anything needs to execute.
func (a *Actions) HasWork() bool {
	return len(a.Runs) > 0
}

// Resolve collapses duplicate realizations, resolves every value to a
// final string, and classifies each realization against the output tree.
// The FS must be in dry-run mode: resolution only reads.
func Resolve(tr *traverse.Traversal, wf *workflow.Workflow, fs *fsio.FS, log *slog.Logger) (*Actions, error) {
	r := &resolver{
		wf:            wf,
		fs:            fs,
		log:           log,
		seen:          make(map[string]int, len(tr.Nodes)),
		idMap:         make([]int, len(tr.Nodes)),
		checkedModule: make(map[workflow.ModuleID]bool),
	}
	actions := &Actions{}
	for i, node := range tr.Nodes {
		key, err := workflow.FormatKey(&node.Key.Branch, wf.Strings)
		if err != nil {
			return nil, err
		}
		taskName := wf.TaskName(node.Key.Task)
		dedup := taskName + "/" + key
		if actual, dup := r.seen[dedup]; dup {
			r.idMap[i] = actual
			continue
		}
		actual := len(r.outputs)
		r.seen[dedup] = actual
		r.idMap[i] = actual
		shouldRun, err := r.resolveNode(node, taskName, key, actions)
		if err != nil {
			return nil, err
		}
		r.shouldRun = append(r.shouldRun, shouldRun)
	}
	if err := r.errs.Err("preparing workflow"); err != nil {
		return nil, err
	}
	return actions, nil
}

type outEntry struct {
	name workflow.IdentID
	path string
}

type resolver struct {
	wf  *workflow.Workflow
	fs  *fsio.FS
	log *slog.Logger
	// seen maps "task/key" to the deduped realization index.
	seen map[string]int
	// idMap maps traversal node indexes to deduped indexes.
	idMap []int
	// outputs and shouldRun are indexed by deduped realization index.
	outputs   [][]outEntry
	shouldRun []bool
	// modules are checked for existence once each.
	checkedModule map[workflow.ModuleID]bool
	errs          workflow.ErrorList
}

// resolveNode classifies one deduped realization and, if it needs to run,
// assembles its TaskRun. Returns whether the realization will execute.
func (r *resolver) resolveNode(node *traverse.Node, taskName, key string, actions *Actions) (bool, error) {
	label := taskName + "[" + key + "]"
	dir := RealizationDir(r.fs.OutputRoot(), taskName, key)

	moduleDir := ""
	if node.Module != workflow.NoModule {
		path, err := r.wf.ModulePath(node.Module)
		if err != nil {
			r.errs.Add(err)
		} else {
			moduleDir = path
			r.checkModule(node.Module, path, taskName, actions)
		}
	}

	// inputs and outputs resolve even for cached realizations, because
	// dependents need the output paths either way.
	inputs, invalidated := r.resolveInputs(node, label)
	env := make([]EnvVar, 0, len(node.Inputs)+len(node.Outputs)+len(node.Params))
	for _, in := range inputs {
		env = append(env, in)
	}

	outEnv, checkPaths, copies, meta := r.resolveOutputs(node, label, dir, moduleDir)
	env = append(env, outEnv...)
	r.outputs = append(r.outputs, meta)

	if r.fs.Exists(dir) {
		if !invalidated && r.cached(dir, meta) {
			actions.Completed = append(actions.Completed, label)
			return false, nil
		}
		actions.Deletes = append(actions.Deletes, Delete{Print: label, Dir: dir})
	}

	// the realization will run, so params matter now
	for _, p := range node.Params {
		val, err := r.outParamString(p.Val)
		if err != nil {
			r.varErr("param", p.Name, label, err)
			continue
		}
		name, err := r.wf.Strings.Idents.Get(p.Name)
		if err != nil {
			return false, err
		}
		env = append(env, EnvVar{Name: name, Value: val})
	}

	code, err := r.wf.Strings.Literals.Get(node.Code)
	if err != nil {
		return false, err
	}
	workDir := dir
	if moduleDir != "" {
		workDir = moduleDir
	}
	inputPaths := make([]string, 0, len(inputs))
	for _, in := range inputs {
		inputPaths = append(inputPaths, in.Value)
	}
	actions.Runs = append(actions.Runs, &TaskRun{
		Print:       label,
		TaskName:    taskName,
		Key:         key,
		Dir:         dir,
		WorkDir:     workDir,
		Script:      BuildScript(env, code, moduleDir, copies),
		Env:         env,
		Code:        code,
		Inputs:      inputPaths,
		Outputs:     checkPaths,
		CopyOutputs: copies,
		Symlink:     LinkPath(r.fs.OutputRoot(), taskName, key),
		LinkTarget:  LinkTarget(key),
	})
	return true, nil
}

// resolveInputs returns the input assignments and whether any input comes
// from a realization that will itself re-run (which forces this one to
// re-run too).
func (r *resolver) resolveInputs(node *traverse.Node, label string) ([]EnvVar, bool) {
	invalidated := false
	env := make([]EnvVar, 0, len(node.Inputs))
	for _, in := range node.Inputs {
		name, err := r.wf.Strings.Idents.Get(in.Name)
		if err != nil {
			r.errs.Add(err)
			continue
		}
		if !in.Val.IsTask {
			val, err := r.wf.Strings.Literals.Get(in.Val.Lit)
			if err != nil {
				r.varErr("input", in.Name, label, err)
				continue
			}
			env = append(env, EnvVar{Name: name, Value: val})
			continue
		}
		depActual := r.idMap[in.Val.Node]
		path, err := r.depOutput(depActual, in.Val.Output)
		if err != nil {
			r.varErr("input", in.Name, label, err)
			continue
		}
		if r.shouldRun[depActual] {
			invalidated = true
		}
		env = append(env, EnvVar{Name: name, Value: path})
	}
	return env, invalidated
}

func (r *resolver) depOutput(actual int, output workflow.IdentID) (string, error) {
	for _, e := range r.outputs[actual] {
		if e.name == output {
			return e.path, nil
		}
	}
	name, _ := r.wf.Strings.Idents.Get(output)
	return "", fmt.Errorf("task output %q not found", name)
}

// resolveOutputs returns the output env assignments, the paths to verify
// after execution, the module copy-back pairs, and the output metadata
// dependents will read. For module tasks the env points into the module
// directory and the copy-back targets the realization directory.
func (r *resolver) resolveOutputs(node *traverse.Node, label, dir, moduleDir string) (env []EnvVar, checkPaths []string, copies []CopyPair, meta []outEntry) {
	for _, out := range node.Outputs {
		rel, err := r.outParamString(out.Val)
		if err != nil {
			r.varErr("output", out.Name, label, err)
			continue
		}
		name, err := r.wf.Strings.Idents.Get(out.Name)
		if err != nil {
			r.errs.Add(err)
			continue
		}
		realPath := filepath.Join(dir, rel)
		meta = append(meta, outEntry{name: out.Name, path: realPath})
		if moduleDir != "" {
			modPath := filepath.Join(moduleDir, rel)
			env = append(env, EnvVar{Name: name, Value: modPath})
			checkPaths = append(checkPaths, modPath)
			copies = append(copies, CopyPair{From: modPath, To: realPath})
		} else {
			env = append(env, EnvVar{Name: name, Value: realPath})
			checkPaths = append(checkPaths, realPath)
		}
	}
	return env, checkPaths, copies, meta
}

func (r *resolver) outParamString(v traverse.OutValue) (string, error) {
	if v.IsInterp {
		return r.wf.Strings.Interpolate(v.Lit, v.Vars)
	}
	return r.wf.Strings.Literals.Get(v.Lit)
}

// cached reports whether the realization directory holds a successful run:
// exit_code reads "0" and every declared output exists in the realization
// directory.
func (r *resolver) cached(dir string, outputs []outEntry) bool {
	text, err := r.fs.ReadFile(filepath.Join(dir, ExitCodeFile))
	if err != nil || strings.TrimSpace(text) != "0" {
		return false
	}
	for _, out := range outputs {
		if !r.fs.Exists(out.path) {
			return false
		}
	}
	return true
}

// checkModule verifies the module directory exists, once per module.
// A workflow may declare modules it never exercises; only used ones are
// checked.
func (r *resolver) checkModule(id workflow.ModuleID, path, taskName string, actions *Actions) {
	if r.checkedModule[id] {
		return
	}
	r.checkedModule[id] = true
	name, err := r.wf.Strings.Modules.Get(id)
	if err != nil {
		r.errs.Add(err)
		return
	}
	if !r.fs.IsDir(path) {
		r.errs.Addf("module directory does not exist: %s (used by task %q; path: %s)", name, taskName, path)
		return
	}
	actions.Modules = append(actions.Modules, ModuleUse{Name: name, Path: path})
}

func (r *resolver) varErr(kind string, name workflow.IdentID, label string, err error) {
	n, _ := r.wf.Strings.Idents.Get(name)
	r.errs.Addf("in %s %q of %s: %v", kind, n, label, err)
}
