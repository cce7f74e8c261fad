package boron

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBitReader_ReadBitsMSBFirst(t *testing.T) {
	br := NewBitReader([]byte{0b10110000})
	v, err := br.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b1011), v)

	v, err = br.ReadBits(4)
	require.NoError(t, err)
	assert.Equal(t, uint64(0b0000), v)
}

func TestBitReader_ReadBitsPastEndFails(t *testing.T) {
	br := NewBitReader([]byte{0xff})
	_, err := br.ReadBits(9)
	assert.Error(t, err)
}

func TestBitReader_ReadUintBytesBigEndian(t *testing.T) {
	br := NewBitReader([]byte{0x01, 0x02})
	v, err := br.ReadUintBytes(2, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0102), v)
}

func TestBitReader_ReadUintBytesLittleEndian(t *testing.T) {
	br := NewBitReader([]byte{0x01, 0x02})
	v, err := br.ReadUintBytes(2, false)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x0201), v)
}

func TestBitReader_ReadUintBytesU8IgnoresEndianness(t *testing.T) {
	br := NewBitReader([]byte{0x42})
	v, err := br.ReadUintBytes(1, true)
	require.NoError(t, err)
	assert.Equal(t, uint64(0x42), v)
}

// TestParseBits_T4 is spec.md §8 scenario T4: reading a u8 then a
// big-endian u16 out of a 4-byte binary.
func TestParseBits_T4(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	binID := thread.Gen(1)[0]
	bin := thread.Store.at(binID)
	bin.Kind = DatatypeBinary
	bin.Bytes = []byte{0x01, 0x02, 0x03, 0x04}

	ctxID := NewContext(env, thread)

	fields := []Cell{
		ruleWord(env, "big-endian"),
		SetWordCell(env.Atoms.MustIntern("a")),
		ruleWord(env, "u8"),
		SetWordCell(env.Atoms.MustIntern("b")),
		ruleWord(env, "u16"),
	}

	pos, err := ParseBits(env, thread, binID, 0, fields, ctxID)
	require.NoError(t, err)
	assert.Equal(t, int32(3), pos)

	ctx := env.Buffer(thread, ctxID)
	a, ok := ctxValue(ctx, env.Atoms.MustIntern("a"))
	require.True(t, ok)
	b, ok := ctxValue(ctx, env.Atoms.MustIntern("b"))
	require.True(t, ok)
	assert.Equal(t, int64(1), a.Int())
	assert.Equal(t, int64(0x0203), b.Int())
}

func TestParseBits_ExplicitWidthSplitsAtHalfPipe(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	binID := thread.Gen(1)[0]
	bin := thread.Store.at(binID)
	bin.Kind = DatatypeBinary
	bin.Bytes = []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

	ctxID := NewContext(env, thread)
	fields := []Cell{SetWordCell(env.Atoms.MustIntern("w")), IntCell(64)}

	pos, err := ParseBits(env, thread, binID, 0, fields, ctxID)
	require.NoError(t, err)
	assert.Equal(t, int32(8), pos)

	ctx := env.Buffer(thread, ctxID)
	w, ok := ctxValue(ctx, env.Atoms.MustIntern("w"))
	require.True(t, ok)
	assert.Equal(t, int64(-1), w.Int(), "64 one-bits as a signed 64-bit field is -1")
}

func TestParseBits_MultiplePendingSetwordsShareOneField(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)

	binID := thread.Gen(1)[0]
	bin := thread.Store.at(binID)
	bin.Kind = DatatypeBinary
	bin.Bytes = []byte{0xAB}

	ctxID := NewContext(env, thread)
	fields := []Cell{
		SetWordCell(env.Atoms.MustIntern("x")),
		SetWordCell(env.Atoms.MustIntern("y")),
		IntCell(8),
	}
	_, err := ParseBits(env, thread, binID, 0, fields, ctxID)
	require.NoError(t, err)

	ctx := env.Buffer(thread, ctxID)
	x, _ := ctxValue(ctx, env.Atoms.MustIntern("x"))
	y, _ := ctxValue(ctx, env.Atoms.MustIntern("y"))
	assert.Equal(t, int64(0xAB), x.Int())
	assert.Equal(t, int64(0xAB), y.Int())
}

func TestParseBits_UnknownWordErrors(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)
	binID := thread.Gen(1)[0]
	bin := thread.Store.at(binID)
	bin.Kind = DatatypeBinary
	bin.Bytes = []byte{0x00}
	ctxID := NewContext(env, thread)

	fields := []Cell{ruleWord(env, "nonsense")}
	_, err := ParseBits(env, thread, binID, 0, fields, ctxID)
	assert.Error(t, err)
}

func TestParseBits_RunsPastEndErrors(t *testing.T) {
	env := NewEnv()
	thread := NewThread(env)
	binID := thread.Gen(1)[0]
	bin := thread.Store.at(binID)
	bin.Kind = DatatypeBinary
	bin.Bytes = []byte{0x00}
	ctxID := NewContext(env, thread)

	fields := []Cell{IntCell(32)}
	_, err := ParseBits(env, thread, binID, 0, fields, ctxID)
	assert.Error(t, err)
}
