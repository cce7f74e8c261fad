package boron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBindDeep_BindsUnboundWords(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	ctxID := NewContext(env, thread)
	ctx := env.Buffer(thread, ctxID)
	atom := env.Atoms.MustIntern("x")
	idx := ctxAddWord(ctx, atom)
	ctx.Cells[idx] = IntCell(10)

	cells := []Cell{WordCell(atom)}
	BindDeep(env, thread, cells, bindTarget{Ctx: ctxID, Kind: BindThread})

	require.Equal(t, BindThread, cells[0].WordBinding())
	assert.Equal(t, ctxID, cells[0].WordContext())
	assert.Equal(t, idx, cells[0].WordSlot())
}

// TestBindDeep_Rebind exercises the fix grounded on ur_bindCells
// (context.c:597-632): a word that already carries a binding to one
// context must still be rewritten when bound again against a second
// context, not skipped because it "already has a binding".
func TestBindDeep_Rebind(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	firstCtx := NewContext(env, thread)
	fc := env.Buffer(thread, firstCtx)
	atom := env.Atoms.MustIntern("y")
	firstIdx := ctxAddWord(fc, atom)
	fc.Cells[firstIdx] = IntCell(1)

	secondCtx := NewContext(env, thread)
	sc := env.Buffer(thread, secondCtx)
	secondIdx := ctxAddWord(sc, atom)
	sc.Cells[secondIdx] = IntCell(2)

	cells := []Cell{WordCell(atom)}
	BindDeep(env, thread, cells, bindTarget{Ctx: firstCtx, Kind: BindThread})
	require.Equal(t, firstCtx, cells[0].WordContext())

	BindDeep(env, thread, cells, bindTarget{Ctx: secondCtx, Kind: BindThread})
	assert.Equal(t, secondCtx, cells[0].WordContext(), "rebinding must retarget an already-bound word to the new context")
	assert.Equal(t, secondIdx, cells[0].WordSlot())
}

func TestBindDeep_SelfFallback(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	ctxID := NewContext(env, thread)
	selfAtom := env.Atoms.MustIntern("self")

	cells := []Cell{WordCell(selfAtom)}
	BindDeep(env, thread, cells, bindTarget{Ctx: ctxID, Kind: BindThread, SelfAtom: selfAtom})

	assert.Equal(t, BindSelf, cells[0].WordBinding())
	assert.Equal(t, ctxID, cells[0].WordContext())
}

func TestBindDeep_RecursesIntoNonSharedBlocks(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	ctxID := NewContext(env, thread)
	ctx := env.Buffer(thread, ctxID)
	atom := env.Atoms.MustIntern("z")
	idx := ctxAddWord(ctx, atom)
	ctx.Cells[idx] = IntCell(5)

	innerID := newBlockBuffer(thread, WordCell(atom))
	cells := []Cell{seriesCell(DatatypeBlock, innerID, 0, SeriesEnd)}

	BindDeep(env, thread, cells, bindTarget{Ctx: ctxID, Kind: BindThread})

	innerBuf := env.Buffer(thread, innerID)
	assert.Equal(t, BindThread, innerBuf.Cells[0].WordBinding())
}

func TestUnbindDeep(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)
	ctxID := NewContext(env, thread)
	atom := env.Atoms.MustIntern("w")

	cells := []Cell{WordCell(atom).bound(BindThread, ctxID, 0)}
	UnbindDeep(env, thread, cells, false)
	assert.Equal(t, BindUnbound, cells[0].WordBinding())
}
