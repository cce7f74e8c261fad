package boron

import "unicode/utf8"

// String sub-form conversion (spec.md §4.3) is hand-rolled against
// Buffer.Bytes/U16 directly rather than routed through a general text
// transform library: golang.org/x/text's Transformer interface
// recodes a whole string in one shot, but Boron needs a *per-append*
// decision ("does this one rune force a widen right now") threaded
// through mutation, which a batch transform doesn't expose at the
// right granularity. This is the stdlib exception flagged in
// DESIGN.md.

// stringWiden converts a Latin-1-backed string buffer to UCS-2
// in-place, copying each byte into a 16-bit slot.
func stringWiden(buf *Buffer) {
	if buf.SubForm != uint8(FormLatin1) {
		return
	}
	u16 := make([]uint16, len(buf.Bytes), maxInt(cap(buf.Bytes), len(buf.Bytes)))
	for i, b := range buf.Bytes {
		u16[i] = uint16(b)
	}
	buf.U16 = u16
	buf.Bytes = nil
	buf.SubForm = uint8(FormUCS2)
}

// stringFlatten converts a UCS-2-backed string buffer back to Latin-1
// if every stored value fits in a byte, unless the caller passes
// preserveRoundTrip (spec.md §4.3: "on request"); it reports whether
// flattening happened.
func stringFlatten(buf *Buffer, preserveRoundTrip bool) bool {
	if buf.SubForm != uint8(FormUCS2) || preserveRoundTrip {
		return false
	}
	for _, v := range buf.U16 {
		if v > 0xFF {
			return false
		}
	}
	bs := make([]byte, len(buf.U16), maxInt(cap(buf.U16), len(buf.U16)))
	for i, v := range buf.U16 {
		bs[i] = byte(v)
	}
	buf.Bytes = bs
	buf.U16 = nil
	buf.SubForm = uint8(FormLatin1)
	return true
}

// stringAppendRune appends r to buf, widening Latin-1 to UCS-2 the
// first time a non-Latin-1 character must be absorbed (spec.md §4.3).
func stringAppendRune(buf *Buffer, r rune) {
	switch StringForm(buf.SubForm) {
	case FormUCS2:
		NewSeries(&buf.U16).Append(uint16(r))
	case FormUTF8:
		var tmp [utf8.UTFMax]byte
		n := utf8.EncodeRune(tmp[:], r)
		NewSeries(&buf.Bytes).Append(tmp[:n]...)
	default: // FormLatin1
		if r > 0xFF {
			stringWiden(buf)
			NewSeries(&buf.U16).Append(uint16(r))
			return
		}
		NewSeries(&buf.Bytes).Append(byte(r))
	}
}

// stringAppendUTF8 decodes src rune-by-rune and appends each to dst,
// which auto-widens on demand per stringAppendRune. The upper-flag bit
// on the destination only controls whether a later flatten is allowed
// to undo the widen (spec.md §3.1 FlagUpper, §4.3); it never blocks
// the append itself, since silently dropping characters would violate
// the "absorbs a non-Latin-1 character" rule.
func stringAppendUTF8(dst *Buffer, src string) {
	for _, r := range src {
		stringAppendRune(dst, r)
	}
}

// stringLen returns the element count of buf regardless of sub-form.
func stringLen(buf *Buffer) int32 {
	if StringForm(buf.SubForm) == FormUCS2 {
		return int32(len(buf.U16))
	}
	return int32(len(buf.Bytes))
}

// stringAt returns the rune at logical index i.
func stringAt(buf *Buffer, i int32) rune {
	if StringForm(buf.SubForm) == FormUCS2 {
		return rune(buf.U16[i])
	}
	return rune(buf.Bytes[i])
}

// lowerTable16 lower-cases the first Unicode block (Basic Latin +
// Latin-1 Supplement, 0x00-0xFF) for the case-insensitive search
// primitives (spec.md §4.3: "lower-cases each character through a
// 16-bit lookup table for the first Unicode block and leaves higher
// characters unchanged").
var lowerTable16 = buildLowerTable16()

func buildLowerTable16() [256]uint16 {
	var t [256]uint16
	for i := 0; i < 256; i++ {
		c := rune(i)
		if c >= 'A' && c <= 'Z' {
			t[i] = uint16(c - 'A' + 'a')
		} else if c >= 0xC0 && c <= 0xDE && c != 0xD7 {
			t[i] = uint16(c + 0x20)
		} else {
			t[i] = uint16(c)
		}
	}
	return t
}

func foldRune(r rune, caseInsensitive bool) rune {
	if !caseInsensitive {
		return r
	}
	if r >= 0 && r < 256 {
		return rune(lowerTable16[r])
	}
	return r
}

// stringFind searches buf for needle starting at `from`, honoring
// caseInsensitive via foldRune, returning the logical index or -1.
func stringFind(buf *Buffer, needle []rune, from int32, caseInsensitive bool) int32 {
	n := stringLen(buf)
	nn := int32(len(needle))
	if nn == 0 || from < 0 {
		return -1
	}
	for i := from; i+nn <= n; i++ {
		match := true
		for j := int32(0); j < nn; j++ {
			a := foldRune(stringAt(buf, i+j), caseInsensitive)
			b := foldRune(needle[j], caseInsensitive)
			if a != b {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
