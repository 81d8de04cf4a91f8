package prep

import "path/filepath"

// Fixed file names inside a realization directory.
const (
	// RealizationsDirName holds all realizations of one task.
	RealizationsDirName = "realizations"
	// ScriptFile is the archival copy of the generated script.
	ScriptFile = "task.sh"
	// StdoutFile captures the subprocess's standard output.
	StdoutFile = "stdout.txt"
	// StderrFile captures the subprocess's standard error.
	StderrFile = "stderr.txt"
	// ExitCodeFile records the subprocess's numeric exit status; a
	// realization is cached when it reads "0".
	ExitCodeFile = "exit_code"
)

// TaskDir returns <out>/<task>.
func TaskDir(outputRoot, task string) string {
	return filepath.Join(outputRoot, task)
}

// RealizationsDir returns <out>/<task>/realizations.
func RealizationsDir(outputRoot, task string) string {
	return filepath.Join(outputRoot, task, RealizationsDirName)
}

// RealizationDir returns <out>/<task>/realizations/<key>.
func RealizationDir(outputRoot, task, key string) string {
	return filepath.Join(RealizationsDir(outputRoot, task), key)
}

// LinkPath returns the convenience symlink <out>/<task>/<key>.
func LinkPath(outputRoot, task, key string) string {
	return filepath.Join(outputRoot, task, key)
}

// LinkTarget returns the symlink target, relative to the task directory.
func LinkTarget(key string) string {
	return filepath.Join(RealizationsDirName, key)
}
