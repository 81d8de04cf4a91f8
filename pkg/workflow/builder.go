package workflow

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/aretw0/heron-rebuild/pkg/syntax"
)

// Build transforms parsed top-level items into a resolved Workflow.
// configDir anchors relative module paths; file names error positions.
// Errors are accumulated across the whole pass and returned joined, so one
// bad declaration doesn't hide the rest.
func Build(items []syntax.Item, file, configDir string, strs *Strings, log *slog.Logger) (*Workflow, error) {
	b := &builder{
		wf:        NewWorkflow(strs),
		file:      file,
		configDir: configDir,
		log:       log,
	}
	var plans []syntax.PlanBlock
	for _, item := range items {
		switch it := item.(type) {
		case syntax.GlobalBlock:
			b.addGlobals(it)
		case syntax.TaskBlock:
			b.addTask(it)
		case syntax.ModuleDecl:
			b.addModule(it)
		case syntax.PlanBlock:
			// plans resolve last so they can reference tasks and branch
			// values declared anywhere in the file.
			plans = append(plans, it)
		case syntax.ImportDecl:
			b.errf(it.Pos, "import statements are not supported")
		default:
			b.errf(syntax.Pos{}, "unsupported declaration %T", item)
		}
	}
	for _, pl := range plans {
		b.addPlan(pl)
	}
	if n := strs.Branchpoints.Len(); n > MaxBranchpoints {
		b.errs.Addf("workflow defines %d branchpoints; the maximum is %d", n, MaxBranchpoints)
	}
	return b.wf, b.errs.Err("building workflow")
}

type builder struct {
	wf        *Workflow
	file      string
	configDir string
	log       *slog.Logger
	errs      ErrorList
}

func (b *builder) errf(pos syntax.Pos, format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	if pos.Line > 0 {
		b.errs.Addf("%s:%d:%d: %s", b.file, pos.Line, pos.Col, msg)
	} else {
		b.errs.Addf("%s: %s", b.file, msg)
	}
}

func (b *builder) addGlobals(g syntax.GlobalBlock) {
	for _, binding := range g.Bindings {
		name := b.wf.Strings.Idents.Intern(binding.Name)
		if _, dup := b.wf.Config[name]; dup {
			b.errf(binding.Pos, "duplicate global binding %q", binding.Name)
			continue
		}
		val, err := b.createValue(binding.Name, binding.Rhs)
		if err != nil {
			b.errf(binding.Pos, "in global %q: %v", binding.Name, err)
			continue
		}
		b.wf.Config[name] = b.wf.AddValue(val)
	}
}

func (b *builder) addTask(t syntax.TaskBlock) {
	s := b.wf.Strings
	nameID := s.Tasks.Intern(t.Name)
	if _, dup := b.wf.Tasks[nameID]; dup {
		b.errf(t.Pos, "duplicate task %q", t.Name)
		return
	}
	task := &Task{Name: nameID, Module: NoModule}
	seen := map[IdentID]syntax.SpecKind{}
	for _, spec := range t.Specs {
		if spec.Kind == syntax.SpecModule {
			if task.Module != NoModule {
				b.errf(spec.Pos, "task %q declares multiple modules; only one is allowed", t.Name)
				continue
			}
			task.Module = s.Modules.Intern(spec.Name)
			continue
		}
		if spec.Dot {
			b.errf(spec.Pos, "dot parameters (\".%s\") are not supported", spec.Name)
			continue
		}
		varName := s.Idents.Intern(spec.Name)
		if prev, dup := seen[varName]; dup {
			b.errf(spec.Pos, "task %q declares %q as both %s and %s", t.Name, spec.Name, prev, spec.Kind)
			continue
		}
		seen[varName] = spec.Kind
		val, err := b.createValue(spec.Name, spec.Rhs)
		if err != nil {
			b.errf(spec.Pos, "in %s %q of task %q: %v", spec.Kind, spec.Name, t.Name, err)
			continue
		}
		binding := Binding{Name: varName, Value: b.wf.AddValue(val)}
		switch spec.Kind {
		case syntax.SpecInput:
			task.Vars.Inputs = append(task.Vars.Inputs, binding)
		case syntax.SpecOutput:
			task.Vars.Outputs = append(task.Vars.Outputs, binding)
		case syntax.SpecParam:
			task.Vars.Params = append(task.Vars.Params, binding)
		}
	}
	task.Code = s.Literals.Intern(t.Code.Text)
	task.CodeVars = make([]IdentID, 0, len(t.Code.Vars))
	for _, v := range t.Code.Vars {
		task.CodeVars = append(task.CodeVars, s.Idents.Intern(v))
	}
	b.wf.Tasks[nameID] = task
}

func (b *builder) addModule(d syntax.ModuleDecl) {
	lit, ok := d.Path.(syntax.Literal)
	if !ok {
		b.errf(d.Pos, "module %q: only literal paths are supported", d.Name)
		return
	}
	path := lit.Val
	if !filepath.IsAbs(path) {
		path = filepath.Join(b.configDir, path)
	}
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	if _, err := os.Stat(path); err != nil {
		// deferred: only an error if a plan actually uses the module
		b.log.Debug("module path does not exist; this may cause errors later", "module", d.Name, "path", path)
	} else if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}
	id := b.wf.Strings.Modules.Intern(d.Name)
	b.wf.Modules[id] = b.wf.Strings.Literals.Intern(path)
}

func (b *builder) addPlan(p syntax.PlanBlock) {
	s := b.wf.Strings
	nameID := s.Idents.Intern(p.Name)
	for _, existing := range b.wf.Plans {
		if existing.Name == nameID {
			b.errf(p.Pos, "duplicate plan %q", p.Name)
			return
		}
	}
	if len(p.CrossProducts) == 0 {
		b.errf(p.Pos, "plan %q is empty", p.Name)
		return
	}
	plan := Plan{Name: nameID}
	for _, cp := range p.CrossProducts {
		var sub Subplan
		for _, goal := range cp.Goals {
			id, ok := s.Tasks.Lookup(goal)
			if !ok || b.wf.Tasks[id] == nil {
				b.errf(cp.Pos, "plan %q reaches unknown task %q", p.Name, goal)
				continue
			}
			sub.Goals = append(sub.Goals, id)
		}
		sub.Branches = b.expandCrossProduct(p.Name, cp)
		if len(sub.Goals) > 0 {
			plan.Subplans = append(plan.Subplans, sub)
		}
	}
	if len(plan.Subplans) == 0 {
		b.errf(p.Pos, "plan %q has no usable subplans", p.Name)
		return
	}
	b.wf.Plans = append(b.wf.Plans, plan)
}

// expandCrossProduct turns a via clause into one complete selection per
// point of the product. A reach line with no via clause yields a single
// all-baseline selection.
func (b *builder) expandCrossProduct(planName string, cp syntax.CrossProduct) []BranchSpec {
	s := b.wf.Strings
	selections := []BranchSpec{{}}
	for _, bs := range cp.Branches {
		var k BranchpointID
		var vals []IdentID
		if bs.Glob {
			id, ok := s.Branchpoints.Lookup(bs.Branchpoint)
			if !ok {
				b.errf(cp.Pos, "plan %q globs unknown branchpoint %q", planName, bs.Branchpoint)
				continue
			}
			k = id
			vals = s.BranchValues(k)
		} else {
			k = s.AddBranchpoint(bs.Branchpoint)
			for _, v := range bs.Values {
				vals = append(vals, s.AddBranchValue(k, v))
			}
		}
		if len(vals) == 0 {
			b.errf(cp.Pos, "plan %q selects no values of branchpoint %q", planName, bs.Branchpoint)
			continue
		}
		expanded := make([]BranchSpec, 0, len(selections)*len(vals))
		for _, sel := range selections {
			for _, v := range vals {
				next := sel.Clone()
				next.Insert(k, v)
				expanded = append(expanded, next)
			}
		}
		selections = expanded
	}
	return selections
}

// createValue turns a syntax Rhs into a workflow value. lhs is the binding
// name, used by the shorthand forms ("< name", "@task", "name=@").
func (b *builder) createValue(lhs string, rhs syntax.Rhs) (Value, error) {
	s := b.wf.Strings
	if br, ok := rhs.(syntax.Branched); ok {
		bp := s.AddBranchpoint(br.Branchpoint)
		cases := make([]BranchCase, 0, len(br.Cases))
		for _, c := range br.Cases {
			v := s.AddBranchValue(bp, c.Name)
			var sub Value
			if _, unbound := c.Rhs.(syntax.Unbound); unbound {
				// (Bp: a b) is shorthand for (Bp: a=a b=b)
				sub = DirectValue{Base: LiteralBase{Lit: s.Literals.Intern(c.Name)}}
			} else {
				var err error
				sub, err = b.createValue(lhs, c.Rhs)
				if err != nil {
					return nil, err
				}
			}
			cases = append(cases, BranchCase{Value: v, Val: sub})
		}
		return BranchedValue{Branchpoint: bp, Cases: cases}, nil
	}
	base, graft, err := b.createBase(lhs, rhs)
	if err != nil {
		return nil, err
	}
	return DirectValue{Base: base, Graft: graft}, nil
}

func (b *builder) createBase(lhs string, rhs syntax.Rhs) (BaseValue, *BranchSpec, error) {
	s := b.wf.Strings
	switch r := rhs.(type) {
	case syntax.Unbound:
		return LiteralBase{Lit: s.Literals.Intern(lhs)}, nil, nil
	case syntax.Literal:
		return LiteralBase{Lit: s.Literals.Intern(r.Val)}, nil, nil
	case syntax.Interp:
		vars := make([]IdentID, 0, len(r.Vars))
		for _, v := range r.Vars {
			vars = append(vars, s.Idents.Intern(v))
		}
		return InterpBase{Lit: s.Literals.Intern(r.Text), Vars: vars}, nil, nil
	case syntax.ShorthandVar:
		return ConfigBase{Name: s.Idents.Intern(lhs), GlobalOnly: true}, nil, nil
	case syntax.VarRef:
		graft := b.createGraft(r.Graft)
		return ConfigBase{Name: s.Idents.Intern(r.Name)}, graft, nil
	case syntax.TaskOutputRef:
		out := r.Output
		if out == "" {
			out = lhs
		}
		graft := b.createGraft(r.Graft)
		return TaskOutputBase{Task: s.Tasks.Intern(r.Task), Output: s.Idents.Intern(out)}, graft, nil
	default:
		return nil, nil, fmt.Errorf("unsupported value expression %T", rhs)
	}
}

func (b *builder) createGraft(pairs []syntax.BranchPair) *BranchSpec {
	if len(pairs) == 0 {
		return nil
	}
	var spec BranchSpec
	for _, p := range pairs {
		k := b.wf.Strings.AddBranchpoint(p.Branchpoint)
		v := b.wf.Strings.AddBranchValue(k, p.Value)
		spec.Insert(k, v)
	}
	return &spec
}
