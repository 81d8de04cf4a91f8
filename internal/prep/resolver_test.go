package prep

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/heron-rebuild/internal/fsio"
	"github.com/aretw0/heron-rebuild/pkg/syntax"
	"github.com/aretw0/heron-rebuild/pkg/traverse"
	"github.com/aretw0/heron-rebuild/pkg/workflow"
)

func nopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// resolve builds the workflow from source, traverses the named plan, and
// resolves it against the given output root.
func resolve(t *testing.T, src, planName, outputRoot string) (*Actions, *fsio.FS) {
	t.Helper()
	items, err := syntax.Parse("test.hr", src)
	require.NoError(t, err)
	wf, err := workflow.Build(items, "test.hr", t.TempDir(), workflow.NewStrings(), nopLogger())
	require.NoError(t, err)
	plan, err := wf.Plan(wf.Strings.Idents.Intern(planName))
	require.NoError(t, err)
	tr, err := traverse.Create(wf, plan, nopLogger())
	require.NoError(t, err)

	fs := fsio.New(outputRoot, false)
	require.NoError(t, fs.EnsureOutputRoot())
	fs.SetDryRun(true)
	actions, err := Resolve(tr, wf, fs, nopLogger())
	require.NoError(t, err)
	fs.SetDryRun(false)
	return actions, fs
}

const chainSrc = `
task write_text > output=write_text_output.txt {
	echo "foo" > $output
}
task replace_text < input=$output@write_text > output=replace_text_output.txt {
	cat $input | sed 's/foo/bar/' > $output
}
plan main {
	reach replace_text
}
`

func TestResolveChain(t *testing.T) {
	out := t.TempDir()
	actions, fs := resolve(t, chainSrc, "main", out)

	require.Len(t, actions.Runs, 2)
	assert.Empty(t, actions.Completed)
	assert.Empty(t, actions.Deletes)

	write := actions.Runs[0]
	replace := actions.Runs[1]
	assert.Equal(t, "write_text[Baseline.baseline]", write.Print)
	assert.Equal(t, RealizationDir(fs.OutputRoot(), "write_text", "Baseline.baseline"), write.Dir)
	assert.Equal(t, write.Dir, write.WorkDir)

	// the dependent's input is the dependency's output path
	wantOut := filepath.Join(write.Dir, "write_text_output.txt")
	assert.Equal(t, []string{wantOut}, write.Outputs)
	require.Len(t, replace.Inputs, 1)
	assert.Equal(t, wantOut, replace.Inputs[0])

	assert.Equal(t, LinkPath(fs.OutputRoot(), "write_text", "Baseline.baseline"), write.Symlink)
	assert.Equal(t, filepath.Join(RealizationsDirName, "Baseline.baseline"), write.LinkTarget)
}

func TestResolveScriptContents(t *testing.T) {
	actions, _ := resolve(t, `
task build :: release_flag=(Profile: debug="" release="--release") > out=o.txt {
	echo "$release_flag" > $out
}
plan rel { reach build via (Profile: release) }
plan deb { reach build via (Profile: debug) }
`, "rel", t.TempDir())
	require.Len(t, actions.Runs, 1)
	script := actions.Runs[0].Script
	assert.Contains(t, script, "#!/usr/bin/env bash\nset -xeuo pipefail\n")
	assert.Contains(t, script, "release_flag=--release\n")
	assert.Contains(t, script, "echo \"$release_flag\" > $out")
	assert.Contains(t, script, "\nexit 0\n")
}

func TestResolveEmptyParamQuoted(t *testing.T) {
	actions, _ := resolve(t, `
task build :: release_flag=(Profile: debug="" release="--release") > out=o.txt {
	echo "$release_flag" > $out
}
plan deb { reach build via (Profile: debug) }
`, "deb", t.TempDir())
	require.Len(t, actions.Runs, 1)
	assert.Contains(t, actions.Runs[0].Script, "release_flag=\"\"\n")
	assert.Equal(t, "build[Profile.debug]", actions.Runs[0].Print)
}

func TestResolveDeduplicatesAcrossSubplans(t *testing.T) {
	actions, _ := resolve(t, `
task common > out=c.txt { echo c > $out }
task a < in=$out@common > out=a.txt { cat $in > $out }
task b < in=$out@common > out=b.txt { cat $in > $out }
plan two_subplans {
	reach a via (Profile: debug)
	reach b via (Framework: au)
}
`, "two_subplans", t.TempDir())
	require.Len(t, actions.Runs, 3, "common must be deduplicated")
	names := []string{actions.Runs[0].Print, actions.Runs[1].Print, actions.Runs[2].Print}
	assert.Contains(t, names, "common[Baseline.baseline]")
	assert.Contains(t, names, "a[Baseline.baseline]")
	assert.Contains(t, names, "b[Baseline.baseline]")
}

func TestResolveCachedRealizationSkipped(t *testing.T) {
	out := t.TempDir()

	// fake a successful prior run of write_text
	dir := RealizationDir(out, "write_text", "Baseline.baseline")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ExitCodeFile), []byte("0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "write_text_output.txt"), []byte("foo\n"), 0o644))

	actions, _ := resolve(t, chainSrc, "main", out)
	assert.Equal(t, []string{"write_text[Baseline.baseline]"}, actions.Completed)
	require.Len(t, actions.Runs, 1)
	assert.Equal(t, "replace_text[Baseline.baseline]", actions.Runs[0].Print)
	assert.Empty(t, actions.Deletes)
}

func TestResolveIncompleteRealizationDeleted(t *testing.T) {
	out := t.TempDir()

	// a realization directory with a non-zero exit code is stale
	dir := RealizationDir(out, "write_text", "Baseline.baseline")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ExitCodeFile), []byte("1\n"), 0o644))

	actions, _ := resolve(t, chainSrc, "main", out)
	require.Len(t, actions.Deletes, 1)
	assert.Equal(t, dir, actions.Deletes[0].Dir)
	assert.Len(t, actions.Runs, 2)
}

func TestResolveMissingOutputInvalidatesCache(t *testing.T) {
	out := t.TempDir()

	// exit_code says success but the declared output is gone
	dir := RealizationDir(out, "write_text", "Baseline.baseline")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ExitCodeFile), []byte("0\n"), 0o644))

	actions, _ := resolve(t, chainSrc, "main", out)
	assert.Empty(t, actions.Completed)
	assert.Len(t, actions.Runs, 2)
}

func TestResolveUpstreamRerunForcesDownstream(t *testing.T) {
	out := t.TempDir()

	// replace_text is cached, but write_text is not: the stale upstream
	// must drag the downstream realization along
	dir := RealizationDir(out, "replace_text", "Baseline.baseline")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ExitCodeFile), []byte("0\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "replace_text_output.txt"), []byte("bar\n"), 0o644))

	actions, _ := resolve(t, chainSrc, "main", out)
	assert.Empty(t, actions.Completed)
	require.Len(t, actions.Runs, 2)
	require.Len(t, actions.Deletes, 1)
	assert.Equal(t, "replace_text[Baseline.baseline]", actions.Deletes[0].Print)
}

func TestResolveMissingModuleReported(t *testing.T) {
	items, err := syntax.Parse("test.hr", `
module rack=deps/does-not-exist
task t @rack > out=o.txt { echo hi > $out }
plan p { reach t }
`)
	require.NoError(t, err)
	wf, err := workflow.Build(items, "test.hr", t.TempDir(), workflow.NewStrings(), nopLogger())
	require.NoError(t, err)
	plan, err := wf.Plan(wf.Strings.Idents.Intern("p"))
	require.NoError(t, err)
	tr, err := traverse.Create(wf, plan, nopLogger())
	require.NoError(t, err)

	fs := fsio.New(t.TempDir(), false)
	require.NoError(t, fs.EnsureOutputRoot())
	fs.SetDryRun(true)
	_, err = Resolve(tr, wf, fs, nopLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "module directory does not exist")
}

func TestResolveModuleTaskPaths(t *testing.T) {
	moduleDir := t.TempDir()
	configDir := t.TempDir()
	items, err := syntax.Parse("test.hr", `
module rack=`+moduleDir+`
task t @rack > out=built.txt { echo hi > $out }
plan p { reach t }
`)
	require.NoError(t, err)
	wf, err := workflow.Build(items, "test.hr", configDir, workflow.NewStrings(), nopLogger())
	require.NoError(t, err)
	plan, err := wf.Plan(wf.Strings.Idents.Intern("p"))
	require.NoError(t, err)
	tr, err := traverse.Create(wf, plan, nopLogger())
	require.NoError(t, err)

	out := t.TempDir()
	fs := fsio.New(out, false)
	require.NoError(t, fs.EnsureOutputRoot())
	fs.SetDryRun(true)
	actions, err := Resolve(tr, wf, fs, nopLogger())
	require.NoError(t, err)

	require.Len(t, actions.Runs, 1)
	run := actions.Runs[0]
	resolvedModule, evalErr := filepath.EvalSymlinks(moduleDir)
	require.NoError(t, evalErr)
	assert.Equal(t, resolvedModule, run.WorkDir, "module tasks execute in the module directory")
	require.Len(t, run.CopyOutputs, 1)
	assert.Equal(t, filepath.Join(resolvedModule, "built.txt"), run.CopyOutputs[0].From)
	assert.Equal(t, filepath.Join(run.Dir, "built.txt"), run.CopyOutputs[0].To)
	assert.Contains(t, run.Script, "cd "+resolvedModule)
	require.Len(t, actions.Modules, 1)
	assert.Equal(t, "rack", actions.Modules[0].Name)
}

func TestBuildScriptLayout(t *testing.T) {
	script := BuildScript(
		[]EnvVar{{Name: "in", Value: "/p/in.txt"}, {Name: "flag", Value: ""}},
		"\necho done\n", "", nil,
	)
	assert.Equal(t, "#!/usr/bin/env bash\nset -xeuo pipefail\n\nin=/p/in.txt\nflag=\"\"\n\necho done\n\nexit 0\n", script)
}
