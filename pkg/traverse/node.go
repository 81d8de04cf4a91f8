package traverse

import "github.com/aretw0/heron-rebuild/pkg/workflow"

// Key uniquely identifies a realization: a task plus the branch selection
// that realizes it.
type Key struct {
	Task   workflow.TaskID
	Branch workflow.BranchSpec
}

// Equal reports whether two keys name the same realization.
func (k *Key) Equal(o *Key) bool {
	return k.Task == o.Task && k.Branch.Equal(&o.Branch)
}

// InputValue is a partially resolved input: either a literal path, or a
// reference to an output of another node in the traversal.
type InputValue struct {
	IsTask bool
	// Lit is the literal path (when IsTask is false).
	Lit workflow.LiteralID
	// Node is the traversal index of the dependency (when IsTask is true).
	Node int
	// Output names the dependency's output variable.
	Output workflow.IdentID
}

// OutValue is a resolved output or param: a literal, or an interpolated
// literal whose variables are already resolved.
type OutValue struct {
	IsInterp bool
	Lit      workflow.LiteralID
	Vars     []workflow.InterpVar
}

// InputBinding pairs an input name with its value.
type InputBinding struct {
	Name workflow.IdentID
	Val  InputValue
}

// OutBinding pairs an output or param name with its value.
type OutBinding struct {
	Name workflow.IdentID
	Val  OutValue
}

// Node is one realization in the traversal. Nodes are created per
// dependency edge and deduplicated later by key.
type Node struct {
	Key Key
	// IsRoot is true when the node has no task-output inputs.
	IsRoot bool
	// NextIdx is the traversal index of the dependent that caused this
	// node; a node with NextIdx equal to its own index is a goal.
	NextIdx int
	Inputs  []InputBinding
	Outputs []OutBinding
	Params  []OutBinding
	// Code is the task's shell body.
	Code workflow.LiteralID
	// CodeVars are the names the body references.
	CodeVars []workflow.IdentID
	// Module is the module the task runs in, or NoModule.
	Module workflow.ModuleID
	// Masks records the branchpoints this node's own values referenced
	// (Add) and grafted away (Rm).
	Masks workflow.Masks
}

// Traversal is the ordered node list: every dependency precedes its
// dependents.
type Traversal struct {
	Nodes []*Node
}
