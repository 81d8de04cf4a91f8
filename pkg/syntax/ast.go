package syntax

// Pos is a 1-based source position.
type Pos struct {
	Line int
	Col  int
}

// Item is a top-level declaration in a config file.
type Item interface {
	item()
}

// TaskBlock is a task definition: name, optional header specs, shell body.
type TaskBlock struct {
	Pos   Pos
	Name  string
	Specs []Spec
	Code  BashCode
}

// GlobalBlock is a "global { ... }" config block.
type GlobalBlock struct {
	Pos      Pos
	Bindings []Assignment
}

// PlanBlock is a named plan with one or more reach lines.
type PlanBlock struct {
	Pos           Pos
	Name          string
	CrossProducts []CrossProduct
}

// ModuleDecl is a "module NAME=PATH" declaration.
type ModuleDecl struct {
	Pos  Pos
	Name string
	Path Rhs
}

// ImportDecl is an "import PATH" statement. Recognized by the grammar;
// the builder rejects it.
type ImportDecl struct {
	Pos  Pos
	Path string
}

func (TaskBlock) item()   {}
func (GlobalBlock) item() {}
func (PlanBlock) item()   {}
func (ModuleDecl) item()  {}
func (ImportDecl) item()  {}

// Assignment is "name" or "name=RHS".
type Assignment struct {
	Pos  Pos
	Name string
	Rhs  Rhs
}

// SpecKind is the kind of a task-header item.
type SpecKind int

const (
	// SpecInput is introduced by "<".
	SpecInput SpecKind = iota
	// SpecOutput is introduced by ">".
	SpecOutput
	// SpecParam is introduced by "::".
	SpecParam
	// SpecModule is introduced by "@".
	SpecModule
)

func (k SpecKind) String() string {
	switch k {
	case SpecInput:
		return "input"
	case SpecOutput:
		return "output"
	case SpecParam:
		return "param"
	case SpecModule:
		return "module"
	}
	return "unknown"
}

// Spec is one task-header item.
type Spec struct {
	Pos  Pos
	Kind SpecKind
	Name string
	Rhs  Rhs
	// Dot marks ".name" params, which the builder rejects.
	Dot bool
}

// BashCode is the brace-delimited body of a task, plus the shell variable
// names it references.
type BashCode struct {
	Text string
	Vars []string
}

// CrossProduct is one "reach GOALS via BRANCHES" line of a plan.
type CrossProduct struct {
	Pos      Pos
	Goals    []string
	Branches []BranchSelection
}

// BranchSelection selects values of one branchpoint in a via clause.
type BranchSelection struct {
	Branchpoint string
	Values      []string
	// Glob selects every declared value ("*").
	Glob bool
}

// Rhs is the right-hand side of any value expression.
type Rhs interface {
	rhs()
}

// Unbound is a binding with no right-hand side ("< name" means name=name).
type Unbound struct{}

// Literal is an unquoted token or a quoted string with no interpolation.
type Literal struct {
	Val string
}

// Interp is a double-quoted string containing "$name" references, stored
// raw with the referenced names in order of appearance.
type Interp struct {
	Text string
	Vars []string
}

// VarRef is "$name", optionally grafted.
type VarRef struct {
	Name  string
	Graft []BranchPair
}

// ShorthandVar is a bare "@": use the same-named global binding.
type ShorthandVar struct{}

// TaskOutputRef is "$out@task" or the shorthand "@task" (Output empty),
// optionally grafted.
type TaskOutputRef struct {
	Output string
	Task   string
	Graft  []BranchPair
}

// Branched is "(Bp: v1=E1 v2=E2)"; an Unbound case value means the value
// name itself ("(Bp: a b)" is "(Bp: a=a b=b)").
type Branched struct {
	Branchpoint string
	Cases       []BranchAssign
}

// BranchPair is one "Bp: val" element of a graft.
type BranchPair struct {
	Branchpoint string
	Value       string
}

// BranchAssign is one case of a branched expression.
type BranchAssign struct {
	Name string
	Rhs  Rhs
}

func (Unbound) rhs()       {}
func (Literal) rhs()       {}
func (Interp) rhs()        {}
func (VarRef) rhs()        {}
func (ShorthandVar) rhs()  {}
func (TaskOutputRef) rhs() {}
func (Branched) rhs()      {}
