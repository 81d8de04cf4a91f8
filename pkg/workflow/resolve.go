package workflow

import (
	"errors"
	"fmt"
)

// ErrSelfReference is wrapped when value resolution recurses past any sane
// depth, which only happens when a value refers to itself.
var ErrSelfReference = errors.New("self-referencing value")

const maxResolveDepth = 64

// ResolvedKind discriminates the result of resolving a value under a
// branch selection.
type ResolvedKind int

const (
	// ResolvedLiteral is a plain string.
	ResolvedLiteral ResolvedKind = iota
	// ResolvedTaskRef is a reference to another task's output, carrying the
	// selection the referenced realization should run under.
	ResolvedTaskRef
	// ResolvedInterp is a literal with interpolated variables, each already
	// resolved to a literal.
	ResolvedInterp
)

// Resolved is a value fully evaluated under a branch selection, except that
// task-output references still point at the abstract task; the traversal
// turns those into realization dependencies.
type Resolved struct {
	Kind   ResolvedKind
	Lit    LiteralID
	Task   TaskID
	Output IdentID
	Branch BranchSpec
	Vars   []InterpVar
}

// Scope maps task-local variable names to their value expressions.
// Header references resolve local-before-global.
type Scope map[IdentID]ValueID

// TaskScope builds the lookup scope for a task's header bindings.
func TaskScope(t *Task) Scope {
	s := make(Scope, len(t.Vars.Inputs)+len(t.Vars.Outputs)+len(t.Vars.Params))
	for _, bs := range [][]Binding{t.Vars.Inputs, t.Vars.Outputs, t.Vars.Params} {
		for _, b := range bs {
			s[b.Name] = b.Value
		}
	}
	return s
}

type resolveMode int

const (
	// modeInput admits literals and task-output references.
	modeInput resolveMode = iota
	// modeOutParam admits literals and interpolated strings.
	modeOutParam
)

// ResolveInput evaluates an input value under the given selection. Inputs
// may be literal paths or task-output references.
func (wf *Workflow) ResolveInput(v Value, branch *BranchSpec, scope Scope) (Resolved, Masks, error) {
	return wf.resolve(v, branch, scope, modeInput, 0)
}

// ResolveOutParam evaluates an output or param value under the given
// selection. Outputs and params may be literals or interpolated strings.
func (wf *Workflow) ResolveOutParam(v Value, branch *BranchSpec, scope Scope) (Resolved, Masks, error) {
	return wf.resolve(v, branch, scope, modeOutParam, 0)
}

func (wf *Workflow) resolve(v Value, branch *BranchSpec, scope Scope, mode resolveMode, depth int) (Resolved, Masks, error) {
	if depth > maxResolveDepth {
		return Resolved{}, Masks{}, ErrSelfReference
	}
	switch val := v.(type) {
	case DirectValue:
		return wf.resolveDirect(val, branch, scope, mode, depth)
	case BranchedValue:
		return wf.resolveBranched(val, branch, scope, mode, depth)
	default:
		return Resolved{}, Masks{}, fmt.Errorf("unknown value type %T", v)
	}
}

func (wf *Workflow) resolveBranched(v BranchedValue, branch *BranchSpec, scope Scope, mode resolveMode, depth int) (Resolved, Masks, error) {
	// An unspecified branchpoint evaluates under its baseline.
	effective, ok := branch.Specified(v.Branchpoint)
	if !ok {
		effective = wf.Strings.Baseline(v.Branchpoint)
	}
	for _, c := range v.Cases {
		if c.Value != effective {
			continue
		}
		res, masks, err := wf.resolve(c.Val, branch, scope, mode, depth+1)
		if err != nil {
			return Resolved{}, Masks{}, err
		}
		masks.Add.Set(int(v.Branchpoint))
		if res.Kind == ResolvedTaskRef {
			res.Branch.Insert(v.Branchpoint, effective)
		}
		return res, masks, nil
	}
	bp, _ := wf.Strings.Branchpoints.Get(v.Branchpoint)
	val, _ := wf.Strings.Idents.Get(effective)
	return Resolved{}, Masks{}, fmt.Errorf("branched expression on %s has no case for value %q", bp, val)
}

func (wf *Workflow) resolveDirect(v DirectValue, branch *BranchSpec, scope Scope, mode resolveMode, depth int) (Resolved, Masks, error) {
	if v.Graft == nil {
		return wf.resolveBase(v.Base, branch, scope, mode, depth)
	}
	// A graft overrides the ambient selection while evaluating this value
	// only; the grafted branchpoints are masked out of the dependent's key.
	grafted := branch.Clone()
	grafted.InsertAll(v.Graft)
	res, masks, err := wf.resolveBase(v.Base, &grafted, scope, mode, depth)
	if err != nil {
		return Resolved{}, Masks{}, err
	}
	v.Graft.Each(func(k BranchpointID, _ IdentID) {
		masks.Rm.Set(int(k))
	})
	return res, masks, nil
}

func (wf *Workflow) resolveBase(v BaseValue, branch *BranchSpec, scope Scope, mode resolveMode, depth int) (Resolved, Masks, error) {
	switch base := v.(type) {
	case LiteralBase:
		return Resolved{Kind: ResolvedLiteral, Lit: base.Lit}, Masks{}, nil
	case TaskOutputBase:
		if mode != modeInput {
			return Resolved{}, Masks{}, fmt.Errorf("task-output references are only allowed in inputs")
		}
		return Resolved{
			Kind:   ResolvedTaskRef,
			Task:   base.Task,
			Output: base.Output,
			Branch: branch.Clone(),
		}, Masks{}, nil
	case ConfigBase:
		return wf.resolveRef(base, branch, scope, mode, depth)
	case InterpBase:
		if mode == modeInput {
			return Resolved{}, Masks{}, fmt.Errorf("interpolated strings are not allowed in inputs")
		}
		var outer Masks
		vars := make([]InterpVar, 0, len(base.Vars))
		for _, name := range base.Vars {
			res, masks, err := wf.resolveRef(ConfigBase{Name: name}, branch, scope, mode, depth)
			if err != nil {
				return Resolved{}, Masks{}, err
			}
			if res.Kind != ResolvedLiteral {
				n, _ := wf.Strings.Idents.Get(name)
				return Resolved{}, Masks{}, fmt.Errorf("cannot interpolate non-literal value of $%s", n)
			}
			vars = append(vars, InterpVar{Name: name, Lit: res.Lit})
			outer.Or(masks)
		}
		return Resolved{Kind: ResolvedInterp, Lit: base.Lit, Vars: vars}, outer, nil
	default:
		return Resolved{}, Masks{}, fmt.Errorf("unknown base value type %T", v)
	}
}

// resolveRef resolves a by-name reference, checking the task-local scope
// before globals. The "@" shorthand sets GlobalOnly so a param can pull a
// same-named global without referring to itself.
func (wf *Workflow) resolveRef(ref ConfigBase, branch *BranchSpec, scope Scope, mode resolveMode, depth int) (Resolved, Masks, error) {
	var id ValueID
	var ok bool
	if !ref.GlobalOnly && scope != nil {
		id, ok = scope[ref.Name]
	}
	if !ok {
		id, ok = wf.Config[ref.Name]
		// references inside a global's value resolve against globals only
		scope = nil
	}
	if !ok {
		n, err := wf.Strings.Idents.Get(ref.Name)
		if err != nil {
			n = fmt.Sprintf("id %d", ref.Name)
		}
		return Resolved{}, Masks{}, fmt.Errorf("reference to undefined variable $%s", n)
	}
	val, err := wf.Value(id)
	if err != nil {
		return Resolved{}, Masks{}, err
	}
	return wf.resolve(val, branch, scope, mode, depth+1)
}
