package workflow

// Typed ids for the interner tables. Keeping them as distinct types means a
// task id can never be used to index the ident table by accident.
type (
	// TaskID identifies a task name.
	TaskID int32
	// IdentID identifies a variable name, branch value, or other identifier.
	IdentID int32
	// BranchpointID identifies a branchpoint name.
	BranchpointID int32
	// ModuleID identifies a module name.
	ModuleID int32
	// LiteralID identifies a literal string (paths, code blocks, values).
	LiteralID int32
	// ValueID indexes the workflow's value arena.
	ValueID int32
)

// NilIdent marks an unset branch value in a BranchSpec. The ident table is
// seeded with an empty string so that id 0 is never a real identifier.
const NilIdent IdentID = 0

// NoModule marks a task that runs in its own realization directory.
const NoModule ModuleID = -1
