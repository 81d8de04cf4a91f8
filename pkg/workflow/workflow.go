package workflow

import "fmt"

// Workflow is the fully resolved model of a config file.
type Workflow struct {
	// Strings holds every interned string in the workflow.
	Strings *Strings
	// Config maps global variable names to their value expressions.
	Config map[IdentID]ValueID
	// Tasks maps task name ids to task definitions.
	Tasks map[TaskID]*Task
	// Plans in declaration order.
	Plans []Plan
	// Modules maps module ids to their (absolute) path literals.
	Modules map[ModuleID]LiteralID

	values []Value
}

// NewWorkflow creates an empty workflow around the given string tables.
func NewWorkflow(s *Strings) *Workflow {
	return &Workflow{
		Strings: s,
		Config:  make(map[IdentID]ValueID),
		Tasks:   make(map[TaskID]*Task),
		Modules: make(map[ModuleID]LiteralID),
	}
}

// AddValue appends a value to the arena and returns its id.
func (wf *Workflow) AddValue(v Value) ValueID {
	wf.values = append(wf.values, v)
	return ValueID(len(wf.values) - 1)
}

// Value returns the value with the given id.
func (wf *Workflow) Value(id ValueID) (Value, error) {
	if id < 0 || int(id) >= len(wf.values) {
		return nil, fmt.Errorf("value id %d out of range", id)
	}
	return wf.values[int(id)], nil
}

// Plan returns the plan with the given name.
func (wf *Workflow) Plan(name IdentID) (*Plan, error) {
	for i := range wf.Plans {
		if wf.Plans[i].Name == name {
			return &wf.Plans[i], nil
		}
	}
	n, err := wf.Strings.Idents.Get(name)
	if err != nil {
		n = fmt.Sprintf("id %d", name)
	}
	return nil, fmt.Errorf("plan not found in config file: %s", n)
}

// TaskName returns the task's name string, falling back to the raw id when
// the id is unknown (only possible through programmer error).
func (wf *Workflow) TaskName(id TaskID) string {
	name, err := wf.Strings.Tasks.Get(id)
	if err != nil {
		return fmt.Sprintf("task#%d", id)
	}
	return name
}

// ModulePath returns the path literal of the given module.
func (wf *Workflow) ModulePath(id ModuleID) (string, error) {
	lit, ok := wf.Modules[id]
	if !ok {
		name, err := wf.Strings.Modules.Get(id)
		if err != nil {
			name = fmt.Sprintf("module#%d", id)
		}
		return "", fmt.Errorf("module not found: %s", name)
	}
	return wf.Strings.Literals.Get(lit)
}
