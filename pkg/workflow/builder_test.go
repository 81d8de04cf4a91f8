package workflow

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/heron-rebuild/pkg/syntax"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func build(t *testing.T, src string) (*Workflow, error) {
	t.Helper()
	items, err := syntax.Parse("test.hr", src)
	require.NoError(t, err)
	return Build(items, "test.hr", t.TempDir(), NewStrings(), nopLogger())
}

func mustBuild(t *testing.T, src string) *Workflow {
	t.Helper()
	wf, err := build(t, src)
	require.NoError(t, err)
	return wf
}

func TestBuildSimpleWorkflow(t *testing.T) {
	wf := mustBuild(t, `
global {
	prefix = /opt/out
}
task write_text > output=write_text_output.txt {
	echo "foo" > $output
}
plan main {
	reach write_text
}
`)
	id, ok := wf.Strings.Tasks.Lookup("write_text")
	require.True(t, ok)
	task := wf.Tasks[id]
	require.NotNil(t, task)
	require.Len(t, task.Vars.Outputs, 1)

	plan, err := wf.Plan(wf.Strings.Idents.Intern("main"))
	require.NoError(t, err)
	require.Len(t, plan.Subplans, 1)
	assert.Equal(t, []TaskID{id}, plan.Subplans[0].Goals)
	require.Len(t, plan.Subplans[0].Branches, 1)
	assert.True(t, plan.Subplans[0].Branches[0].IsEmpty())
}

func TestBuildBranchpointValuesKeepFirstAppearanceOrder(t *testing.T) {
	wf := mustBuild(t, `
global {
	a = (Profile: debug release)
	b = (Profile: release profiling)
}
task t { echo hi }
plan p { reach t }
`)
	k, ok := wf.Strings.Branchpoints.Lookup("Profile")
	require.True(t, ok)
	vals := wf.Strings.BranchValues(k)
	require.Len(t, vals, 3)
	names := make([]string, 0, 3)
	for _, v := range vals {
		n, err := wf.Strings.Idents.Get(v)
		require.NoError(t, err)
		names = append(names, n)
	}
	assert.Equal(t, []string{"debug", "release", "profiling"}, names)
	assert.Equal(t, vals[0], wf.Strings.Baseline(k), "first value is baseline")
}

func TestBuildCrossProductExpansion(t *testing.T) {
	wf := mustBuild(t, `
task t :: p=(Profile: debug release) a=(Arch: arm x64) { echo $p $a }
plan all {
	reach t via (Profile: debug release) * (Arch: arm x64)
}
`)
	plan, err := wf.Plan(wf.Strings.Idents.Intern("all"))
	require.NoError(t, err)
	require.Len(t, plan.Subplans, 1)
	assert.Len(t, plan.Subplans[0].Branches, 4)
}

func TestBuildGlobExpansion(t *testing.T) {
	wf := mustBuild(t, `
task t :: p=(Profile: debug release profiling) { echo $p }
plan all {
	reach t via (Profile: *)
}
`)
	plan, err := wf.Plan(wf.Strings.Idents.Intern("all"))
	require.NoError(t, err)
	assert.Len(t, plan.Subplans[0].Branches, 3)
}

func TestBuildErrorsAccumulate(t *testing.T) {
	_, err := build(t, `
task dup { echo one }
task dup { echo two }
task dotted :: .old=x { echo hi }
plan p { reach missing }
plan p2 { reach dup }
plan p2 { reach dup }
`)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "duplicate task \"dup\"")
	assert.Contains(t, msg, "dot parameters")
	assert.Contains(t, msg, "unknown task \"missing\"")
	assert.Contains(t, msg, "duplicate plan \"p2\"")
}

func TestBuildRejectsCrossKindCollision(t *testing.T) {
	_, err := build(t, `
task t < x=a.txt > x=b.txt { echo hi }
plan p { reach t }
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "declares \"x\" as both input and output")
}

func TestBuildRejectsImports(t *testing.T) {
	_, err := build(t, "import other.hr\ntask t { echo hi }\nplan p { reach t }\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "import statements are not supported")
}

func TestBuildRejectsMultipleModules(t *testing.T) {
	_, err := build(t, `
module m1=a
module m2=b
task t @m1 @m2 { echo hi }
plan p { reach t }
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple modules")
}

func TestBuildBranchpointLimit(t *testing.T) {
	mkSrc := func(n int) string {
		var sb strings.Builder
		sb.WriteString("global {\n")
		for i := 0; i < n; i++ {
			fmt.Fprintf(&sb, "\tv%d = (Bp%d: a b)\n", i, i)
		}
		sb.WriteString("}\ntask t { echo hi }\nplan p { reach t }\n")
		return sb.String()
	}

	_, err := build(t, mkSrc(MaxBranchpoints))
	assert.NoError(t, err, "exactly 128 branchpoints must build")

	_, err = build(t, mkSrc(MaxBranchpoints + 1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "maximum is 128")
}
