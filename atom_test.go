package boron

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAtomTable_InternCaseInsensitiveHit(t *testing.T) {
	tests := []struct {
		name  string
		first string
		again string
	}{
		{"exact repeat", "foo", "foo"},
		{"upper then lower", "Bar", "bar"},
		{"mixed case", "SetWord", "setword"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			table := NewAtomTable(16)
			id1, err := table.Intern(tt.first)
			require.NoError(t, err)
			id2, err := table.Intern(tt.again)
			require.NoError(t, err)
			assert.Equal(t, id1, id2, "case-insensitive intern of %q vs %q should hit the same id", tt.first, tt.again)
			assert.Equal(t, tt.first, table.Name(id1), "Name should preserve the original casing the atom was first interned with")
		})
	}
}

func TestAtomTable_InternDistinctNames(t *testing.T) {
	table := NewAtomTable(16)
	a, err := table.Intern("alpha")
	require.NoError(t, err)
	b, err := table.Intern("beta")
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "distinct names must get distinct ids")
}

func TestAtomTable_Lookup(t *testing.T) {
	table := NewAtomTable(16)
	id, err := table.Intern("gamma")
	require.NoError(t, err)

	got, ok := table.Lookup("GAMMA")
	require.True(t, ok, "Lookup should be case-insensitive like Intern")
	assert.Equal(t, id, got)

	_, ok = table.Lookup("delta")
	assert.False(t, ok, "Lookup must not mutate the table by interning a miss")
	assert.Equal(t, 1, table.Len())
}

func TestAtomTable_CapacityExhausted(t *testing.T) {
	table := NewAtomTable(2)
	_, err := table.Intern("one")
	require.NoError(t, err)
	_, err = table.Intern("two")
	require.NoError(t, err)

	_, err = table.Intern("three")
	require.Error(t, err, "a full table must fail rather than silently grow past its configured capacity")
}

func TestAtomTable_NameTooLong(t *testing.T) {
	table := NewAtomTable(16)
	long := ""
	for i := 0; i <= maxAtomNameLen; i++ {
		long += "x"
	}
	_, err := table.Intern(long)
	require.Error(t, err)
}

func TestAtomTable_IsBuiltinType(t *testing.T) {
	table := NewAtomTable(1024)
	for d := Datatype(0); d < datatypeBuiltinCount; d++ {
		id := table.MustIntern(d.String())
		assert.True(t, table.IsBuiltinType(id), "built-in type atom %q must report IsBuiltinType", d.String())
	}
	userID, err := table.Intern("my-custom-word")
	require.NoError(t, err)
	assert.False(t, table.IsBuiltinType(userID))
}

func TestAtomTable_Collisions(t *testing.T) {
	table := NewAtomTable(64)
	ids := make(map[AtomID]string, 50)
	for i := 0; i < 50; i++ {
		name := fmt.Sprintf("sym-%d", i)
		id, err := table.Intern(name)
		require.NoError(t, err)
		ids[id] = name
	}
	for id, name := range ids {
		assert.Equal(t, name, table.Name(id), "every interned name must resolve back through Name regardless of bucket collisions")
		got, ok := table.Lookup(name)
		require.True(t, ok)
		assert.Equal(t, id, got)
	}
}
