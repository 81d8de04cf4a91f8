package ui

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfirmYesBypassesPrompt(t *testing.T) {
	var out strings.Builder
	u := New(&out, strings.NewReader(""), 0, true)
	ok, err := u.Confirm("Proceed?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Empty(t, out.String(), "no prompt should be written when --yes is set")
}

func TestConfirmReadsAnswer(t *testing.T) {
	var out strings.Builder
	u := New(&out, strings.NewReader("y\n"), 0, false)
	ok, err := u.Confirm("Proceed?")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, out.String(), "Proceed?")

	u = New(&out, strings.NewReader("n\n"), 0, false)
	ok, err = u.Confirm("Proceed?")
	require.NoError(t, err)
	assert.False(t, ok)

	u = New(&out, strings.NewReader("\n"), 0, false)
	ok, err = u.Confirm("Proceed?")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerboseLevels(t *testing.T) {
	var out strings.Builder
	assert.False(t, New(&out, strings.NewReader(""), 0, true).Verbose())
	assert.True(t, New(&out, strings.NewReader(""), 1, true).Verbose())
	assert.Equal(t, 2, New(&out, strings.NewReader(""), 2, true).VerboseLevel())
}
