// Package cli wires the pieces together: it resolves CLI settings, runs
// the parse -> build -> traverse -> prep -> execute pipeline, and handles
// the invalidation mode.
package cli
