package workflow

// Binding pairs a task-local variable name with its value expression.
type Binding struct {
	Name  IdentID
	Value ValueID
}

// TaskVars holds a task's header bindings, in declaration order.
type TaskVars struct {
	Inputs  []Binding
	Outputs []Binding
	Params  []Binding
}

// Task is one task definition from the config file.
type Task struct {
	Name TaskID
	Vars TaskVars
	// Code is the task's shell body, verbatim.
	Code LiteralID
	// CodeVars are the variable names referenced by the body, collected so
	// the planner can warn about references with no header binding.
	CodeVars []IdentID
	// Module the task executes in, or NoModule.
	Module ModuleID
}

// Output returns the value id of the named output, if declared.
func (t *Task) Output(name IdentID) (ValueID, bool) {
	for _, b := range t.Vars.Outputs {
		if b.Name == name {
			return b.Value, true
		}
	}
	return 0, false
}
