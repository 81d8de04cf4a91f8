// Package prep turns a traversal into concrete work: it collapses
// duplicate realizations, resolves every input, output and param to a
// final path or string, classifies each realization as cached, stale or
// new against the on-disk output tree, and prepares the realization
// directories, task.sh scripts and symlinks for execution.
package prep
