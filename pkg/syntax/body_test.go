package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseBody(t *testing.T, body string) BashCode {
	t.Helper()
	item := parseOne(t, "task t {"+body+"}")
	return item.(TaskBlock).Code
}

func TestBodyCollectsVars(t *testing.T) {
	code := parseBody(t, "\ncat $input | sed 's/foo/bar/' > $output\n")
	assert.Equal(t, []string{"input", "output"}, code.Vars)
	assert.Equal(t, "\ncat $input | sed 's/foo/bar/' > $output\n", code.Text)
}

func TestBodyVarsDeduplicate(t *testing.T) {
	code := parseBody(t, " echo $x; echo $x; echo $y ")
	assert.Equal(t, []string{"x", "y"}, code.Vars)
}

func TestBodySingleQuotesHideVars(t *testing.T) {
	code := parseBody(t, " echo '$not_a_var' $real ")
	assert.Equal(t, []string{"real"}, code.Vars)
}

func TestBodyDoubleQuotesExposeVars(t *testing.T) {
	code := parseBody(t, ` echo "value: $inner" `)
	assert.Equal(t, []string{"inner"}, code.Vars)
}

func TestBodyBracedVar(t *testing.T) {
	code := parseBody(t, " echo ${var}x ")
	assert.Equal(t, []string{"var"}, code.Vars)
}

func TestBodyStringManipulationIgnored(t *testing.T) {
	code := parseBody(t, " echo ${file%.txt} ")
	assert.Empty(t, code.Vars)
}

func TestBodyShellSpecialsIgnored(t *testing.T) {
	code := parseBody(t, ` for a in "$@"; do echo $1 $? $$; done `)
	assert.Empty(t, code.Vars)
}

func TestBodyNestedBraces(t *testing.T) {
	code := parseBody(t, `
fn() {
	echo $x
}
fn
`)
	assert.Equal(t, []string{"x"}, code.Vars)
	assert.Contains(t, code.Text, "fn()")
}

func TestBodyCommentsHideBraces(t *testing.T) {
	code := parseBody(t, "\necho $a # not a close: }\n")
	assert.Equal(t, []string{"a"}, code.Vars)
}

func TestBodyCommandSubstitution(t *testing.T) {
	code := parseBody(t, " out=$(cat $file) ")
	require.Equal(t, []string{"file"}, code.Vars)
}

func TestBodyAwkBraces(t *testing.T) {
	code := parseBody(t, ` awk '{print $1}' $src `)
	assert.Equal(t, []string{"src"}, code.Vars)
}
