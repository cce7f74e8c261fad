package boron

import (
	"fmt"
	"io"
	"unicode/utf8"
)

// Input is the byte-cursor abstraction the tokenizer reads through
// (the parse engines walk buffer cells/bytes by index instead),
// grounded on the teacher's MemInput (vm_input.go) and widened with
// Pos/Mark/Reset so callers can snapshot and rewind a cursor without
// copying the backing bytes (spec.md §4.6).
type Input struct {
	data []byte
	pos  int
}

func NewInput(data []byte) *Input { return &Input{data: data} }

func (in *Input) Len() int { return len(in.data) }
func (in *Input) Pos() int { return in.pos }

// Mark/Reset let a parse rule try an alternative and backtrack to
// exactly where it started (spec.md §4.7's choice/commit frames).
func (in *Input) Mark() int          { return in.pos }
func (in *Input) Reset(mark int)     { in.pos = mark }

func (in *Input) AtEnd() bool { return in.pos >= len(in.data) }

func (in *Input) PeekByte() (byte, error) {
	if in.pos >= len(in.data) {
		return 0, io.EOF
	}
	return in.data[in.pos], nil
}

func (in *Input) ReadByte() (byte, error) {
	b, err := in.PeekByte()
	if err != nil {
		return 0, err
	}
	in.pos++
	return b, nil
}

func (in *Input) PeekRune() (rune, int, error) {
	if in.pos >= len(in.data) {
		return 0, 0, io.EOF
	}
	if b := in.data[in.pos]; b < utf8.RuneSelf {
		return rune(b), 1, nil
	}
	r, size := utf8.DecodeRune(in.data[in.pos:])
	return r, size, nil
}

func (in *Input) ReadRune() (rune, int, error) {
	r, size, err := in.PeekRune()
	if err != nil {
		return 0, 0, err
	}
	in.pos += size
	return r, size, nil
}

func (in *Input) Seek(offset int64, whence int) (int64, error) {
	if offset < 0 || int(offset) > len(in.data) {
		return 0, fmt.Errorf("boron: invalid seek offset %d", offset)
	}
	if whence != io.SeekStart {
		return 0, fmt.Errorf("boron: invalid seek whence %d", whence)
	}
	in.pos = int(offset)
	return offset, nil
}

func (in *Input) ReadString(start, end int) (string, error) {
	if start < 0 || end > len(in.data) {
		return "", io.EOF
	}
	return string(in.data[start:end]), nil
}

func (in *Input) Advance(n int) { in.pos += n }

// Byte returns the raw byte at position i without affecting the
// cursor, used by the tokenizer's lookahead helpers.
func (in *Input) Byte(i int) byte {
	if i < 0 || i >= len(in.data) {
		return 0
	}
	return in.data[i]
}
