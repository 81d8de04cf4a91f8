package workflow

// Value is the right-hand side of any binding: either a direct value or a
// branched expression choosing between sub-values.
type Value interface {
	value()
}

// DirectValue is a non-branching value, optionally grafted onto a partial
// branch selection that overrides the ambient selection during evaluation.
type DirectValue struct {
	Base  BaseValue
	Graft *BranchSpec
}

// BranchedValue picks a sub-value according to the selected value of one
// branchpoint. Cases nest arbitrarily.
type BranchedValue struct {
	Branchpoint BranchpointID
	Cases       []BranchCase
}

// BranchCase binds one branch value to a sub-expression.
type BranchCase struct {
	Value IdentID
	Val   Value
}

func (DirectValue) value()   {}
func (BranchedValue) value() {}

// BaseValue is a value with no branching or grafting.
type BaseValue interface {
	base()
}

// LiteralBase is a literal string.
type LiteralBase struct {
	Lit LiteralID
}

// ConfigBase is a by-name reference to a variable bound elsewhere.
// References resolve against the task-local header scope first, then
// globals; GlobalOnly (the "@" shorthand) skips the local scope so a
// binding can pull in a same-named global.
type ConfigBase struct {
	Name       IdentID
	GlobalOnly bool
}

// TaskOutputBase references a named output of another task.
type TaskOutputBase struct {
	Task   TaskID
	Output IdentID
}

// InterpBase is a literal containing "$name" references to other variables,
// with the referenced names in order of appearance.
type InterpBase struct {
	Lit  LiteralID
	Vars []IdentID
}

func (LiteralBase) base()    {}
func (ConfigBase) base()     {}
func (TaskOutputBase) base() {}
func (InterpBase) base()     {}
