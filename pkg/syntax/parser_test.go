package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, src string) Item {
	t.Helper()
	items, err := Parse("test.hr", src)
	require.NoError(t, err)
	require.Len(t, items, 1)
	return items[0]
}

func TestParseGlobalAssignments(t *testing.T) {
	item := parseOne(t, `global {
	name = value
	quoted = "some text"
	unbound
	ref = $other
}`)
	g, ok := item.(GlobalBlock)
	require.True(t, ok)
	require.Len(t, g.Bindings, 4)
	assert.Equal(t, "name", g.Bindings[0].Name)
	assert.Equal(t, Literal{Val: "value"}, g.Bindings[0].Rhs)
	assert.Equal(t, Literal{Val: "some text"}, g.Bindings[1].Rhs)
	assert.Equal(t, Unbound{}, g.Bindings[2].Rhs)
	assert.Equal(t, VarRef{Name: "other"}, g.Bindings[3].Rhs)
}

func TestParseRhsForms(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want Rhs
	}{
		{"variable", "x = $var", VarRef{Name: "var"}},
		{"shorthand global", "x = @", ShorthandVar{}},
		{"task output", "x = $out@build", TaskOutputRef{Output: "out", Task: "build"}},
		{"shorthand task output", "x = @build", TaskOutputRef{Task: "build"}},
		{"grafted variable", "x = $var[Bp: val]", VarRef{Name: "var", Graft: []BranchPair{{"Bp", "val"}}}},
		{
			"grafted task output", "x = $out@build[Bp: val, Other: v2]",
			TaskOutputRef{Output: "out", Task: "build", Graft: []BranchPair{{"Bp", "val"}, {"Other", "v2"}}},
		},
		{
			"interp string", `x = "pre-$a.$b-post"`,
			Interp{Text: "pre-$a.$b-post", Vars: []string{"a", "b"}},
		},
		{
			"branched", "x = (Bp: v1=yes v2=no)",
			Branched{Branchpoint: "Bp", Cases: []BranchAssign{
				{Name: "v1", Rhs: Literal{Val: "yes"}},
				{Name: "v2", Rhs: Literal{Val: "no"}},
			}},
		},
		{
			"branched shorthand", "x = (Bp: a b)",
			Branched{Branchpoint: "Bp", Cases: []BranchAssign{
				{Name: "a", Rhs: Unbound{}},
				{Name: "b", Rhs: Unbound{}},
			}},
		},
		{
			"branch values may start with digits", "x = (N: 0 1)",
			Branched{Branchpoint: "N", Cases: []BranchAssign{
				{Name: "0", Rhs: Unbound{}},
				{Name: "1", Rhs: Unbound{}},
			}},
		},
		{"path literal", "x = path/to/file.tgz", Literal{Val: "path/to/file.tgz"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			item := parseOne(t, "global {\n"+tc.src+"\n}")
			g := item.(GlobalBlock)
			require.Len(t, g.Bindings, 1)
			assert.Equal(t, tc.want, g.Bindings[0].Rhs)
		})
	}
}

func TestParseBranchedMultiline(t *testing.T) {
	item := parseOne(t, "global {\nx = (\nBp:\n  v1=yes\n  v2=no\n)\n}")
	g := item.(GlobalBlock)
	want := Branched{Branchpoint: "Bp", Cases: []BranchAssign{
		{Name: "v1", Rhs: Literal{Val: "yes"}},
		{Name: "v2", Rhs: Literal{Val: "no"}},
	}}
	assert.Equal(t, want, g.Bindings[0].Rhs)
}

func TestParseTaskHeader(t *testing.T) {
	item := parseOne(t, `task build @rack
	< src=$tarball@fetch in2
	> out=build.log
	:: flags=@ .legacy=old
{
	echo done > $out
}`)
	task, ok := item.(TaskBlock)
	require.True(t, ok)
	assert.Equal(t, "build", task.Name)
	require.Len(t, task.Specs, 6)
	assert.Equal(t, Spec{Pos: task.Specs[0].Pos, Kind: SpecModule, Name: "rack"}, task.Specs[0])
	assert.Equal(t, SpecInput, task.Specs[1].Kind)
	assert.Equal(t, TaskOutputRef{Output: "tarball", Task: "fetch"}, task.Specs[1].Rhs)
	assert.Equal(t, "in2", task.Specs[2].Name)
	assert.Equal(t, Unbound{}, task.Specs[2].Rhs)
	assert.Equal(t, SpecOutput, task.Specs[3].Kind)
	assert.Equal(t, Literal{Val: "build.log"}, task.Specs[3].Rhs)
	assert.Equal(t, SpecParam, task.Specs[4].Kind)
	assert.Equal(t, ShorthandVar{}, task.Specs[4].Rhs)
	assert.True(t, task.Specs[5].Dot)
	assert.Equal(t, "legacy", task.Specs[5].Name)
	assert.Contains(t, task.Code.Text, "echo done > $out")
	assert.Equal(t, []string{"out"}, task.Code.Vars)
}

func TestParseMultipleItemsPerSigil(t *testing.T) {
	item := parseOne(t, "task t > o1=a.txt o2=b.txt { echo hi }")
	task := item.(TaskBlock)
	require.Len(t, task.Specs, 2)
	assert.Equal(t, "o1", task.Specs[0].Name)
	assert.Equal(t, "o2", task.Specs[1].Name)
}

func TestParsePlan(t *testing.T) {
	item := parseOne(t, `plan two_subplans {
	reach A via (Profile: debug) * (Arch: arm)
	reach B, C via (Framework: *)
	reach D
}`)
	plan, ok := item.(PlanBlock)
	require.True(t, ok)
	assert.Equal(t, "two_subplans", plan.Name)
	require.Len(t, plan.CrossProducts, 3)

	cp := plan.CrossProducts[0]
	assert.Equal(t, []string{"A"}, cp.Goals)
	require.Len(t, cp.Branches, 2)
	assert.Equal(t, BranchSelection{Branchpoint: "Profile", Values: []string{"debug"}}, cp.Branches[0])
	assert.Equal(t, BranchSelection{Branchpoint: "Arch", Values: []string{"arm"}}, cp.Branches[1])

	cp = plan.CrossProducts[1]
	assert.Equal(t, []string{"B", "C"}, cp.Goals)
	require.Len(t, cp.Branches, 1)
	assert.True(t, cp.Branches[0].Glob)

	cp = plan.CrossProducts[2]
	assert.Equal(t, []string{"D"}, cp.Goals)
	assert.Empty(t, cp.Branches)
}

func TestParsePlanMultilineVia(t *testing.T) {
	item := parseOne(t, "plan p {\n\treach A via (Profile: debug release)\n\t\t* (Arch: arm x64)\n}")
	plan := item.(PlanBlock)
	require.Len(t, plan.CrossProducts, 1)
	require.Len(t, plan.CrossProducts[0].Branches, 2)
	assert.Equal(t, []string{"debug", "release"}, plan.CrossProducts[0].Branches[0].Values)
	assert.Equal(t, []string{"arm", "x64"}, plan.CrossProducts[0].Branches[1].Values)
}

func TestParseModuleAndImport(t *testing.T) {
	items, err := Parse("test.hr", "module rack=deps/rack\nimport packages.hr\n")
	require.NoError(t, err)
	require.Len(t, items, 2)
	mod := items[0].(ModuleDecl)
	assert.Equal(t, "rack", mod.Name)
	assert.Equal(t, Literal{Val: "deps/rack"}, mod.Path)
	imp := items[1].(ImportDecl)
	assert.Equal(t, "packages.hr", imp.Path)
}

func TestParseComments(t *testing.T) {
	items, err := Parse("test.hr", `# leading comment
global { # trailing
	x = 1  # after binding
}
`)
	require.NoError(t, err)
	require.Len(t, items, 1)
	g := items[0].(GlobalBlock)
	require.Len(t, g.Bindings, 1)
	assert.Equal(t, Literal{Val: "1"}, g.Bindings[0].Rhs)
}

func TestParseRecoversAndReportsAllErrors(t *testing.T) {
	src := `global {
	x = = broken
}
task ok { echo fine }
plan p {
	arrive nowhere
}
task ok2 { echo fine }
`
	items, err := Parse("test.hr", src)
	require.Error(t, err)
	var list ErrorList
	require.ErrorAs(t, err, &list)
	assert.Len(t, list, 2)
	// the items between errors still parse
	require.Len(t, items, 2)
	assert.Equal(t, "ok", items[0].(TaskBlock).Name)
	assert.Equal(t, "ok2", items[1].(TaskBlock).Name)
}

func TestParseErrorCarriesPosition(t *testing.T) {
	_, err := Parse("conf.hr", "task {\n}\n")
	require.Error(t, err)
	var list ErrorList
	require.ErrorAs(t, err, &list)
	require.Len(t, list, 1)
	assert.Equal(t, "conf.hr", list[0].File)
	assert.Equal(t, 1, list[0].Pos.Line)
}

func TestParseUnterminatedBody(t *testing.T) {
	_, err := Parse("test.hr", "task t { echo hi\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unterminated body")
}
