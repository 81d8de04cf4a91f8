// Package intern provides append-only string tables that assign stable
// small integer ids to strings. The workflow machinery keys everything
// (tasks, variables, branchpoints, branch values, literals) by these ids so
// equality checks and map lookups work over fixed-size integers instead of
// strings.
package intern

import "fmt"

// ErrUnknownID is wrapped by Get when an id was never interned.
var ErrUnknownID = fmt.Errorf("unknown interned id")

// Table is an append-only bidirectional map between strings and ids of one
// identifier kind. The zero value is not usable; call NewTable.
type Table[ID ~int32] struct {
	ids  map[string]ID
	strs []string
}

// NewTable creates an empty Table.
func NewTable[ID ~int32]() *Table[ID] {
	return &Table[ID]{ids: make(map[string]ID)}
}

// Intern returns the id for s, assigning a new one on first sight.
// Interning is idempotent: the same string always yields the same id.
func (t *Table[ID]) Intern(s string) ID {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := ID(len(t.strs))
	t.ids[s] = id
	t.strs = append(t.strs, s)
	return id
}

// Get returns the string for id, or an error wrapping ErrUnknownID if the
// id was never assigned. It never panics.
func (t *Table[ID]) Get(id ID) (string, error) {
	if id < 0 || int(id) >= len(t.strs) {
		return "", fmt.Errorf("%w: %d (table has %d entries)", ErrUnknownID, id, len(t.strs))
	}
	return t.strs[int(id)], nil
}

// Lookup returns the id for s if it has been interned.
func (t *Table[ID]) Lookup(s string) (ID, bool) {
	id, ok := t.ids[s]
	return id, ok
}

// Len reports how many strings have been interned.
func (t *Table[ID]) Len() int {
	return len(t.strs)
}
