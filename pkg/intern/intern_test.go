package intern

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testID int32

func TestInternIsIdempotent(t *testing.T) {
	table := NewTable[testID]()
	a := table.Intern("write_text")
	b := table.Intern("replace_text")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, table.Intern("write_text"))
	assert.Equal(t, 2, table.Len())
}

func TestGetRoundTrip(t *testing.T) {
	table := NewTable[testID]()
	id := table.Intern("Profile")
	s, err := table.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "Profile", s)
}

func TestGetUnknownIDFails(t *testing.T) {
	table := NewTable[testID]()
	table.Intern("only")
	_, err := table.Get(testID(7))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownID)
	_, err = table.Get(testID(-1))
	assert.ErrorIs(t, err, ErrUnknownID)
}

func TestLookup(t *testing.T) {
	table := NewTable[testID]()
	id := table.Intern("task")
	got, ok := table.Lookup("task")
	assert.True(t, ok)
	assert.Equal(t, id, got)
	_, ok = table.Lookup("missing")
	assert.False(t, ok)
}
