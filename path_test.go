package boron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestContextWith(env *Env, thread *Thread, values map[string]Cell) int32 {
	id := NewContext(env, thread)
	buf := env.Buffer(thread, id)
	for name, v := range values {
		atom := env.Atoms.MustIntern(name)
		idx := ctxAddWord(buf, atom)
		buf.Cells[idx] = v
	}
	return id
}

func TestSelectContext_PlainWord(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)
	ctxID := newTestContextWith(env, thread, map[string]Cell{"name": IntCell(5)})
	container := seriesCell(DatatypeContext, ctxID, 0, SeriesEnd)

	sel := WordCell(env.Atoms.MustIntern("name"))
	got, ok := selectContext(env, thread, container, sel)
	require.True(t, ok)
	assert.Equal(t, int64(5), got.Int())
}

// TestSelectContext_GetWordSelectorDereferences exercises the fix: a
// get-word selector in a path (obj/:key) must be dereferenced to the
// value it is currently bound to, which is then used as the actual
// selector, per spec.md §4.5 step 2.
func TestSelectContext_GetWordSelectorDereferences(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	target := newTestContextWith(env, thread, map[string]Cell{"first": IntCell(1), "second": IntCell(2)})
	container := seriesCell(DatatypeContext, target, 0, SeriesEnd)

	// key is a variable, bound in some outer context, whose value is
	// the word `second` -- the path obj/:key should select `second`.
	keyCtx := NewContext(env, thread)
	keyBuf := env.Buffer(thread, keyCtx)
	keyAtom := env.Atoms.MustIntern("key")
	keyIdx := ctxAddWord(keyBuf, keyAtom)
	keyBuf.Cells[keyIdx] = WordCell(env.Atoms.MustIntern("second"))

	sel := GetWordCell(keyAtom).bound(BindThread, keyCtx, keyIdx)
	got, ok := selectContext(env, thread, container, sel)
	require.True(t, ok, "a bound get-word selector must dereference to its value and select through that")
	assert.Equal(t, int64(2), got.Int())
}

func TestSelectContext_UnboundGetWordFails(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)
	ctxID := newTestContextWith(env, thread, map[string]Cell{"a": IntCell(1)})
	container := seriesCell(DatatypeContext, ctxID, 0, SeriesEnd)

	sel := GetWordCell(env.Atoms.MustIntern("a"))
	_, ok := selectContext(env, thread, container, sel)
	assert.False(t, ok, "an unbound get-word selector has nothing to dereference")
}

func TestPokeContext_GetWordSelectorDereferences(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	target := newTestContextWith(env, thread, map[string]Cell{"first": IntCell(1)})
	container := seriesCell(DatatypeContext, target, 0, SeriesEnd)

	keyCtx := NewContext(env, thread)
	keyBuf := env.Buffer(thread, keyCtx)
	keyAtom := env.Atoms.MustIntern("key")
	keyIdx := ctxAddWord(keyBuf, keyAtom)
	keyBuf.Cells[keyIdx] = WordCell(env.Atoms.MustIntern("first"))

	sel := GetWordCell(keyAtom).bound(BindThread, keyCtx, keyIdx)
	err := pokeContext(env, thread, container, sel, IntCell(99))
	require.NoError(t, err)

	got, ok := selectContext(env, thread, container, WordCell(env.Atoms.MustIntern("first")))
	require.True(t, ok)
	assert.Equal(t, int64(99), got.Int())
}

func TestSelectIndexed(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)
	blockID := newBlockBuffer(thread, IntCell(10), IntCell(20), IntCell(30))
	container := seriesCell(DatatypeBlock, blockID, 0, SeriesEnd)

	got, ok := selectIndexed(env, thread, container, IntCell(2))
	require.True(t, ok)
	assert.Equal(t, int64(20), got.Int())

	_, ok = selectIndexed(env, thread, container, IntCell(99))
	assert.False(t, ok, "an out-of-range index must fail selection, not panic")
}

func TestResolvePath_MultiSegment(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	innerID := newBlockBuffer(thread, IntCell(1), IntCell(2), IntCell(3))
	outerCtx := newTestContextWith(env, thread, map[string]Cell{
		"items": seriesCell(DatatypeBlock, innerID, 0, SeriesEnd),
	})
	base := seriesCell(DatatypeContext, outerCtx, 0, SeriesEnd)

	segments := []Cell{WordCell(env.Atoms.MustIntern("items")), IntCell(3)}
	got, err := ResolvePath(env, thread, base, segments)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Int())
}
