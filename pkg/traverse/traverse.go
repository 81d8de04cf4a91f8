package traverse

import (
	"log/slog"

	"github.com/aretw0/heron-rebuild/pkg/workflow"
)

// Create expands every subplan of the plan into root realization requests
// and walks the dependency graph backward from each. Resolution and cycle
// errors are accumulated across all roots and returned joined.
func Create(wf *workflow.Workflow, plan *workflow.Plan, log *slog.Logger) (*Traversal, error) {
	t := &traverser{wf: wf, log: log}
	for _, sub := range plan.Subplans {
		for _, goal := range sub.Goals {
			for _, branch := range sub.Branches {
				b := branch.Clone()
				t.traverse(Key{Task: goal, Branch: b})
			}
		}
	}
	if err := t.errs.Err("planning traversal"); err != nil {
		return nil, err
	}
	t.reverse()
	t.cleanBranches()
	return &Traversal{Nodes: t.nodes}, nil
}

type queued struct {
	key     Key
	nextIdx int
}

type traverser struct {
	wf    *workflow.Workflow
	log   *slog.Logger
	nodes []*Node
	queue []queued
	errs  workflow.ErrorList
}

// maxNodes bounds the pre-dedup traversal size; ~65k realizations is far
// beyond any workflow this tool is meant for.
const maxNodes = 1 << 16

// traverse adds the walk to one goal realization to the node list.
func (t *traverser) traverse(root Key) {
	t.log.Debug("traversing to goal", "task", t.wf.TaskName(root.Task), "branch", t.branchStr(&root.Branch))
	t.enqueue(root, len(t.nodes))
	for len(t.queue) > 0 {
		if len(t.nodes) > maxNodes {
			t.errs.Addf("traversal exceeds %d nodes; aborting", maxNodes)
			t.queue = nil
			return
		}
		q := t.queue[0]
		t.queue = t.queue[1:]
		t.handle(q)
	}
}

func (t *traverser) enqueue(key Key, nextIdx int) {
	t.queue = append(t.queue, queued{key: key, nextIdx: nextIdx})
}

func (t *traverser) handle(q queued) {
	idx := len(t.nodes)
	node := &Node{Key: q.key, NextIdx: q.nextIdx, IsRoot: true, Module: workflow.NoModule}
	task, ok := t.wf.Tasks[q.key.Task]
	if !ok {
		// push the node anyway so already-recorded dependency indexes
		// stay valid
		t.errs.Addf("unknown task %s", t.wf.TaskName(q.key.Task))
		t.nodes = append(t.nodes, node)
		return
	}
	node.Code = task.Code
	node.CodeVars = task.CodeVars
	node.Module = task.Module
	scope := workflow.TaskScope(task)

	for _, bind := range task.Vars.Inputs {
		val, err := t.wf.Value(bind.Value)
		if err != nil {
			t.varErr("input", bind.Name, &q.key, err)
			continue
		}
		res, masks, err := t.wf.ResolveInput(val, &q.key.Branch, scope)
		if err != nil {
			t.varErr("input", bind.Name, &q.key, err)
			continue
		}
		node.Masks.Or(masks)
		if res.Kind == workflow.ResolvedTaskRef {
			node.IsRoot = false
			depKey := Key{Task: res.Task, Branch: res.Branch}
			if t.dependencyCycles(&depKey, &q, idx) {
				t.errs.Addf("dependency cycle: task %s[%s] depends on itself",
					t.wf.TaskName(depKey.Task), t.branchStr(&depKey.Branch))
				continue
			}
			if _, known := t.wf.Tasks[depKey.Task]; !known {
				t.varErr("input", bind.Name, &q.key, t.unknownTaskErr(depKey.Task))
				continue
			}
			if !t.outputExists(depKey.Task, res.Output) {
				t.varErr("input", bind.Name, &q.key, t.unknownOutputErr(depKey.Task, res.Output))
				continue
			}
			t.enqueue(depKey, idx)
			depIdx := idx + len(t.queue)
			node.Inputs = append(node.Inputs, InputBinding{
				Name: bind.Name,
				Val:  InputValue{IsTask: true, Node: depIdx, Output: res.Output},
			})
		} else {
			node.Inputs = append(node.Inputs, InputBinding{
				Name: bind.Name,
				Val:  InputValue{Lit: res.Lit},
			})
		}
	}

	for _, bind := range task.Vars.Outputs {
		if out, ok := t.resolveOutParam("output", bind, &q.key, scope, node); ok {
			node.Outputs = append(node.Outputs, out)
		}
	}
	for _, bind := range task.Vars.Params {
		if out, ok := t.resolveOutParam("param", bind, &q.key, scope, node); ok {
			node.Params = append(node.Params, out)
		}
	}

	t.checkCodeVars(task, node)
	t.nodes = append(t.nodes, node)
}

func (t *traverser) resolveOutParam(kind string, bind workflow.Binding, key *Key, scope workflow.Scope, node *Node) (OutBinding, bool) {
	val, err := t.wf.Value(bind.Value)
	if err != nil {
		t.varErr(kind, bind.Name, key, err)
		return OutBinding{}, false
	}
	res, masks, err := t.wf.ResolveOutParam(val, &key.Branch, scope)
	if err != nil {
		t.varErr(kind, bind.Name, key, err)
		return OutBinding{}, false
	}
	node.Masks.Or(masks)
	out := OutBinding{Name: bind.Name}
	if res.Kind == workflow.ResolvedInterp {
		out.Val = OutValue{IsInterp: true, Lit: res.Lit, Vars: res.Vars}
	} else {
		out.Val = OutValue{Lit: res.Lit}
	}
	return out, true
}

// dependencyCycles walks the dependent chain from the current node toward
// its goal; if the candidate dependency already appears there, scheduling
// it would loop forever.
func (t *traverser) dependencyCycles(dep *Key, self *queued, selfIdx int) bool {
	if dep.Equal(&self.key) {
		return true
	}
	if self.nextIdx == selfIdx {
		return false
	}
	i := self.nextIdx
	for {
		n := t.nodes[i]
		if dep.Equal(&n.Key) {
			return true
		}
		if n.NextIdx == i {
			return false
		}
		i = n.NextIdx
	}
}

// outputExists reports whether the referenced task declares the output.
func (t *traverser) outputExists(task workflow.TaskID, output workflow.IdentID) bool {
	def, ok := t.wf.Tasks[task]
	if !ok {
		return false
	}
	_, ok = def.Output(output)
	return ok
}

// checkCodeVars warns about shell variables the body references with no
// header binding; they may still be defined by the code itself.
func (t *traverser) checkCodeVars(task *workflow.Task, node *Node) {
	defined := map[workflow.IdentID]bool{}
	for _, bs := range [][]workflow.Binding{task.Vars.Inputs, task.Vars.Outputs, task.Vars.Params} {
		for _, b := range bs {
			defined[b.Name] = true
		}
	}
	for _, v := range node.CodeVars {
		if !defined[v] {
			name, _ := t.wf.Strings.Idents.Get(v)
			t.log.Debug("task code references a variable with no header binding",
				"task", t.wf.TaskName(node.Key.Task), "var", name)
		}
	}
}

// reverse flips the node list into dependency order and remaps every
// recorded index.
func (t *traverser) reverse() {
	final := len(t.nodes) - 1
	if final < 0 {
		return
	}
	for _, n := range t.nodes {
		n.NextIdx = final - n.NextIdx
		for i := range n.Inputs {
			if n.Inputs[i].Val.IsTask {
				n.Inputs[i].Val.Node = final - n.Inputs[i].Val.Node
			}
		}
	}
	for i, j := 0, final; i < j; i, j = i+1, j-1 {
		t.nodes[i], t.nodes[j] = t.nodes[j], t.nodes[i]
	}
}

// cleanBranches restricts every node's selection to the branchpoints its
// task transitively references: the union of its dependencies' masks,
// minus what this node grafts away, plus what its own values reference.
// Referenced-but-unspecified branchpoints are pinned to baseline so the
// selection is complete. Must run after reverse, so dependencies come
// first.
func (t *traverser) cleanBranches() {
	masks := make([]workflow.Mask, len(t.nodes))
	for i, n := range t.nodes {
		var m workflow.Mask
		for _, in := range n.Inputs {
			if in.Val.IsTask {
				m.Or(masks[in.Val.Node])
			}
		}
		m.AndNot(n.Masks.Rm)
		m.Or(n.Masks.Add)
		masks[i] = m
		t.restrictBranch(&n.Key.Branch, m)
	}
}

func (t *traverser) restrictBranch(b *workflow.BranchSpec, m workflow.Mask) {
	for i := 0; i < t.wf.Strings.Branchpoints.Len(); i++ {
		k := workflow.BranchpointID(i)
		if !m.Get(i) {
			b.Unset(k)
		} else if _, ok := b.Specified(k); !ok {
			b.Insert(k, t.wf.Strings.Baseline(k))
		}
	}
}

func (t *traverser) varErr(kind string, name workflow.IdentID, key *Key, err error) {
	n, _ := t.wf.Strings.Idents.Get(name)
	t.errs.Addf("in %s %q of task %s[%s]: %v",
		kind, n, t.wf.TaskName(key.Task), t.branchStr(&key.Branch), err)
}

func (t *traverser) unknownTaskErr(task workflow.TaskID) error {
	return &unknownRefError{msg: "reference to unknown task " + t.wf.TaskName(task)}
}

func (t *traverser) unknownOutputErr(task workflow.TaskID, output workflow.IdentID) error {
	name, _ := t.wf.Strings.Idents.Get(output)
	return &unknownRefError{msg: "task " + t.wf.TaskName(task) + " declares no output named " + name}
}

type unknownRefError struct{ msg string }

func (e *unknownRefError) Error() string { return e.msg }

func (t *traverser) branchStr(b *workflow.BranchSpec) string {
	s, err := workflow.FormatKey(b, t.wf.Strings)
	if err != nil {
		return "?"
	}
	return s
}
