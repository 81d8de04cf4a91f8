package workflow

import (
	"fmt"
	"strings"

	"github.com/aretw0/heron-rebuild/pkg/intern"
)

// Strings bundles the interner tables for a workflow, one per identifier
// kind, together with the per-branchpoint value lists.
type Strings struct {
	// Tasks holds task names.
	Tasks *intern.Table[TaskID]
	// Idents holds variable names, branch values, and other identifiers.
	Idents *intern.Table[IdentID]
	// Branchpoints holds branchpoint names.
	Branchpoints *intern.Table[BranchpointID]
	// Modules holds module names.
	Modules *intern.Table[ModuleID]
	// Literals holds literal strings: values, paths, task code blocks.
	Literals *intern.Table[LiteralID]

	// ordered branch values per branchpoint; the first entry is baseline.
	branchVals [][]IdentID
}

// NewStrings creates an empty Strings bundle. The ident table is seeded
// with an empty string so NilIdent (id 0) never names a real identifier.
func NewStrings() *Strings {
	s := &Strings{
		Tasks:        intern.NewTable[TaskID](),
		Idents:       intern.NewTable[IdentID](),
		Branchpoints: intern.NewTable[BranchpointID](),
		Modules:      intern.NewTable[ModuleID](),
		Literals:     intern.NewTable[LiteralID](),
	}
	s.Idents.Intern("")
	return s
}

// AddBranchpoint interns a branchpoint name and makes room for its value
// list.
func (s *Strings) AddBranchpoint(name string) BranchpointID {
	k := s.Branchpoints.Intern(name)
	for int(k) >= len(s.branchVals) {
		s.branchVals = append(s.branchVals, nil)
	}
	return k
}

// AddBranchValue interns a branch value and appends it to the
// branchpoint's ordered value list if it is new. The first value added to a
// branchpoint becomes its baseline.
func (s *Strings) AddBranchValue(k BranchpointID, val string) IdentID {
	v := s.Idents.Intern(val)
	for _, existing := range s.branchVals[int(k)] {
		if existing == v {
			return v
		}
	}
	s.branchVals[int(k)] = append(s.branchVals[int(k)], v)
	return v
}

// BranchValues returns the ordered value list of branchpoint k.
func (s *Strings) BranchValues(k BranchpointID) []IdentID {
	if int(k) >= len(s.branchVals) {
		return nil
	}
	return s.branchVals[int(k)]
}

// Baseline returns the first-listed value of branchpoint k, or NilIdent if
// the branchpoint has no values yet.
func (s *Strings) Baseline(k BranchpointID) IdentID {
	vals := s.BranchValues(k)
	if len(vals) == 0 {
		return NilIdent
	}
	return vals[0]
}

// InterpVar pairs a variable name with the literal it resolved to, in the
// order the variable appears in the interpolated string.
type InterpVar struct {
	Name IdentID
	Lit  LiteralID
}

// Interpolate expands an interpolated literal: each "$name" occurrence is
// replaced, left to right, by the corresponding resolved value. The vars
// must be ordered by position in the string.
func (s *Strings) Interpolate(lit LiteralID, vars []InterpVar) (string, error) {
	text, err := s.Literals.Get(lit)
	if err != nil {
		return "", err
	}
	var out strings.Builder
	rest := text
	for _, v := range vars {
		name, err := s.Idents.Get(v.Name)
		if err != nil {
			return "", err
		}
		val, err := s.Literals.Get(v.Lit)
		if err != nil {
			return "", err
		}
		marker := "$" + name
		idx := strings.Index(rest, marker)
		if idx < 0 {
			return "", fmt.Errorf("unable to interpolate %q into %q", marker, text)
		}
		out.WriteString(rest[:idx])
		out.WriteString(val)
		rest = rest[idx+len(marker):]
	}
	out.WriteString(rest)
	return out.String(), nil
}
