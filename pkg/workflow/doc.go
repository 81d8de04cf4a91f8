// Package workflow holds the resolved representation of a config file: the
// interned string tables, branchpoint tables, value expressions, tasks and
// plans, plus the builder that produces all of it from the syntax tree.
//
// Everything in this package is immutable once Build returns, except the
// string tables, which stay append-only so later stages can intern the
// strings they create (paths, branch keys).
package workflow
