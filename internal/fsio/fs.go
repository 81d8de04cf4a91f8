package fsio

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ErrNotAllowed is wrapped when a destructive operation targets a path
// outside the output root, or when dry-run mode is active.
var ErrNotAllowed = errors.New("operation not allowed")

// FS performs all filesystem operations for a run. Destructive operations
// check that the target is a child of the output root; code inside task
// bodies can of course still do whatever it wants.
type FS struct {
	outputRoot string
	dryRun     bool
}

// New creates an FS rooted at the given output directory.
func New(outputRoot string, dryRun bool) *FS {
	return &FS{outputRoot: outputRoot, dryRun: dryRun}
}

// OutputRoot returns the output directory this FS is rooted at.
func (f *FS) OutputRoot() string {
	return f.outputRoot
}

// SetDryRun toggles the dry-run guard. While set, every destructive
// operation fails with ErrNotAllowed.
func (f *FS) SetDryRun(dryRun bool) {
	f.dryRun = dryRun
}

// EnsureOutputRoot creates the output directory if needed and pins the
// root to its resolved absolute path.
func (f *FS) EnsureOutputRoot() error {
	info, err := os.Stat(f.outputRoot)
	switch {
	case err == nil && !info.IsDir():
		return fmt.Errorf("output path %q is not a directory", f.outputRoot)
	case err != nil:
		if f.dryRun {
			// dry runs must not create anything
			break
		}
		if err := os.MkdirAll(f.outputRoot, 0o755); err != nil {
			return fmt.Errorf("creating output directory: %w", err)
		}
	}
	abs, err := filepath.Abs(f.outputRoot)
	if err != nil {
		return err
	}
	if resolved, err := filepath.EvalSymlinks(abs); err == nil {
		abs = resolved
	}
	f.outputRoot = abs
	return nil
}

// Exists reports whether the path exists, counting dangling symlinks.
func (f *FS) Exists(path string) bool {
	if _, err := os.Lstat(path); err == nil {
		return true
	}
	return false
}

// IsDir reports whether the path is a directory, following symlinks.
func (f *FS) IsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// CreateDir creates the directory and any missing parents.
func (f *FS) CreateDir(path string) error {
	if err := f.checkWritable(path); err != nil {
		return err
	}
	return os.MkdirAll(path, 0o755)
}

// WriteFile writes text to a file, replacing any previous content.
func (f *FS) WriteFile(path, text string) error {
	if err := f.checkWritable(path); err != nil {
		return err
	}
	return os.WriteFile(path, []byte(text), 0o644)
}

// CreateFile creates (or truncates) a file and returns the open handle.
func (f *FS) CreateFile(path string) (*os.File, error) {
	if err := f.checkWritable(path); err != nil {
		return nil, err
	}
	return os.Create(path)
}

// DeleteFile removes a single file or symlink.
func (f *FS) DeleteFile(path string) error {
	if err := f.checkWritable(path); err != nil {
		return err
	}
	return os.Remove(path)
}

// DeleteDir removes a directory tree.
func (f *FS) DeleteDir(path string) error {
	if err := f.checkWritable(path); err != nil {
		return err
	}
	return os.RemoveAll(path)
}

// Symlink links `link` to `target`, replacing an existing link.
func (f *FS) Symlink(target, link string) error {
	if err := f.checkWritable(link); err != nil {
		return err
	}
	if f.Exists(link) {
		if err := os.Remove(link); err != nil {
			return err
		}
	}
	return os.Symlink(target, link)
}

// ReadFile reads an entire file.
func (f *FS) ReadFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	return string(data), err
}

// ReadDir lists a directory.
func (f *FS) ReadDir(path string) ([]os.DirEntry, error) {
	return os.ReadDir(path)
}

func (f *FS) checkWritable(path string) error {
	if f.dryRun {
		return fmt.Errorf("%w: dry run, not touching %q", ErrNotAllowed, path)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if abs != f.outputRoot && !strings.HasPrefix(abs, f.outputRoot+string(os.PathSeparator)) {
		return fmt.Errorf("%w: %q is outside the output directory", ErrNotAllowed, path)
	}
	return nil
}
