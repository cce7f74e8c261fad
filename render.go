package boron

import (
	"fmt"
	"strconv"
	"strings"
)

// BlockCellForDisplay wraps a block buffer id (as produced by
// Tokenizer.Tokenize) into the Block cell that refers to it, for
// callers outside the package (the CLI) that can't construct a
// seriesCell directly.
func BlockCellForDisplay(blockBuf int32) Cell {
	return seriesCell(DatatypeBlock, blockBuf, 0, SeriesEnd)
}

// ToDebugString renders c the way the REPL echoes a parsed value back
// -- not a full "mold"/"form" pair (that belongs to an embedder's
// printer, per the core's non-goals), just enough to see what the
// tokenizer produced.
func ToDebugString(env *Env, thread *Thread, c Cell) string {
	var b strings.Builder
	writeDebug(&b, env, thread, c)
	return b.String()
}

func writeDebug(b *strings.Builder, env *Env, thread *Thread, c Cell) {
	if ops := opsFor(c.Kind); ops != nil && ops.ToString != nil {
		b.WriteString(ops.ToString(env, c))
		return
	}
	switch c.Kind {
	case DatatypeUnset:
		b.WriteString("unset!")
	case DatatypeNone:
		b.WriteString("none")
	case DatatypeLogic:
		b.WriteString(strconv.FormatBool(c.Logic()))
	case DatatypeChar:
		fmt.Fprintf(b, "#%q", c.Char())
	case DatatypeInt:
		b.WriteString(strconv.FormatInt(c.Int(), 10))
	case DatatypeDouble:
		b.WriteString(strconv.FormatFloat(c.Double(), 'g', -1, 64))
	case DatatypeTime:
		b.WriteString(strconv.FormatFloat(c.Time(), 'f', 3, 64))
		b.WriteString(":time")
	case DatatypeDate:
		b.WriteString(strconv.FormatFloat(c.Date(), 'f', 0, 64))
		b.WriteString(":date")
	case DatatypeWord:
		b.WriteString(env.Atoms.Name(c.WordAtom()))
	case DatatypeLitWord:
		b.WriteByte('\'')
		b.WriteString(env.Atoms.Name(c.WordAtom()))
	case DatatypeSetWord:
		b.WriteString(env.Atoms.Name(c.WordAtom()))
		b.WriteByte(':')
	case DatatypeGetWord:
		b.WriteByte(':')
		b.WriteString(env.Atoms.Name(c.WordAtom()))
	case DatatypeOption:
		b.WriteByte('/')
		b.WriteString(env.Atoms.Name(c.WordAtom()))
	case DatatypeString, DatatypeFile:
		buf := env.Buffer(thread, c.BufferID())
		if c.Kind == DatatypeFile {
			b.WriteByte('%')
		} else {
			b.WriteByte('"')
		}
		writeStringBody(b, buf, c)
		if c.Kind != DatatypeFile {
			b.WriteByte('"')
		}
	case DatatypeBinary:
		buf := env.Buffer(thread, c.BufferID())
		b.WriteString("#{")
		for _, by := range buf.Bytes {
			fmt.Fprintf(b, "%02X", by)
		}
		b.WriteByte('}')
	case DatatypeBlock, DatatypeParen:
		buf := env.Buffer(thread, c.BufferID())
		if c.Kind == DatatypeBlock {
			b.WriteByte('[')
		} else {
			b.WriteByte('(')
		}
		cells := NewSeries(&buf.Cells).Slice(c.Iter(), c.SliceEnd())
		for i, cell := range cells {
			if i > 0 {
				b.WriteByte(' ')
			}
			writeDebug(b, env, thread, cell)
		}
		if c.Kind == DatatypeBlock {
			b.WriteByte(']')
		} else {
			b.WriteByte(')')
		}
	case DatatypePath, DatatypeLitPath, DatatypeSetPath:
		buf := env.Buffer(thread, c.BufferID())
		for i, seg := range buf.Cells {
			if i > 0 {
				b.WriteByte('/')
			}
			writeDebug(b, env, thread, seg)
		}
		if c.Kind == DatatypeSetPath {
			b.WriteByte(':')
		}
	case DatatypeError:
		fmt.Fprintf(b, "** %s error", ErrorKind(c.ErrorKind()))
	default:
		fmt.Fprintf(b, "#[%s]", c.Kind)
	}
}

func writeStringBody(b *strings.Builder, buf *Buffer, c Cell) {
	n := stringLen(buf)
	end := c.SliceEnd()
	if end < 0 || end > n {
		end = n
	}
	for i := c.Iter(); i < end; i++ {
		b.WriteRune(stringAt(buf, i))
	}
}
