// Package exec runs realizations one at a time, in the planner's order:
// input check, shell subprocess with tee'd streams, exit_code record,
// module output copy-back, output check. Any failure halts the workflow;
// prior successes stay cached on disk.
package exec

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"

	"github.com/aretw0/heron-rebuild/internal/fsio"
	"github.com/aretw0/heron-rebuild/internal/prep"
	"github.com/aretw0/heron-rebuild/internal/ui"
)

// Runner executes prepared realizations sequentially.
type Runner struct {
	FS  *fsio.FS
	UI  *ui.UI
	Log *slog.Logger
	// Stdout and Stderr receive the live task streams alongside the
	// per-realization capture files. They default to the process streams.
	Stdout io.Writer
	Stderr io.Writer
}

// Run executes every realization in order. The context cancels the
// current subprocess; the interrupted realization writes no successful
// exit_code, so the next run re-executes it.
func (r *Runner) Run(ctx context.Context, tasks []*prep.TaskRun) error {
	for _, task := range tasks {
		if err := r.runOne(ctx, task); err != nil {
			return fmt.Errorf("running %s: %w", task.Print, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
	}
	r.UI.Printf("%s\n", r.UI.Green("Completed workflow."))
	return nil
}

func (r *Runner) runOne(ctx context.Context, task *prep.TaskRun) error {
	r.UI.Printf("%s %s\nin %s\n\n", r.UI.Green("RUN"), task.Print, task.Dir)

	for _, input := range task.Inputs {
		if !r.FS.Exists(input) {
			return fmt.Errorf("expected input not found: %s", input)
		}
		if r.UI.Verbose() {
			r.UI.Printf(" - %s\n", input)
		}
	}

	status, err := r.execute(ctx, task)
	if err != nil {
		return err
	}
	if werr := r.FS.WriteFile(filepath.Join(task.Dir, prep.ExitCodeFile), strconv.Itoa(status)+"\n"); werr != nil {
		return fmt.Errorf("writing %s file: %w", prep.ExitCodeFile, werr)
	}
	if status != 0 {
		return fmt.Errorf("task exited with status %d", status)
	}

	for _, cp := range task.CopyOutputs {
		if !r.FS.Exists(cp.From) {
			return fmt.Errorf("expected output not found in module: %s", cp.From)
		}
		if err := r.FS.CreateDir(filepath.Dir(cp.To)); err != nil {
			return err
		}
		if err := r.FS.Copy(cp.From, cp.To); err != nil {
			return fmt.Errorf("copying module output back: %w", err)
		}
	}
	for _, output := range task.Outputs {
		if !r.FS.Exists(output) {
			return fmt.Errorf("expected output not found: %s", output)
		}
	}

	r.UI.Printf("%s %s\n\n", r.UI.Green("COMPLETED"), task.Print)
	return nil
}

// execute spawns the task's shell with the header variables in its
// environment, teeing stdout and stderr to the console and to the capture
// files in the realization directory.
func (r *Runner) execute(ctx context.Context, task *prep.TaskRun) (int, error) {
	outFile, err := r.FS.CreateFile(filepath.Join(task.Dir, prep.StdoutFile))
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", prep.StdoutFile, err)
	}
	defer outFile.Close()
	errFile, err := r.FS.CreateFile(filepath.Join(task.Dir, prep.StderrFile))
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", prep.StderrFile, err)
	}
	defer errFile.Close()

	cmd := exec.CommandContext(ctx, "/usr/bin/env", "bash", "-xeuo", "pipefail", "-c", task.Code)
	cmd.Dir = task.WorkDir
	cmd.Env = os.Environ()
	for _, v := range task.Env {
		cmd.Env = append(cmd.Env, v.Name+"="+v.Value)
	}
	stdout := r.Stdout
	if stdout == nil {
		stdout = os.Stdout
	}
	stderr := r.Stderr
	if stderr == nil {
		stderr = os.Stderr
	}
	cmd.Stdout = io.MultiWriter(stdout, outFile)
	cmd.Stderr = io.MultiWriter(stderr, errFile)

	r.Log.Debug("spawning task shell", "task", task.Print, "dir", task.WorkDir)
	err = cmd.Run()
	if exitErr, ok := err.(*exec.ExitError); ok {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		return 0, fmt.Errorf("spawning task shell: %w", err)
	}
	return 0, nil
}
