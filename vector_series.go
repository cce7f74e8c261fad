package boron

import "math"

// vectorLen returns the element count of a Vector buffer regardless
// of which encoding backs it (spec.md §4.3).
func vectorLen(buf *Buffer) int32 {
	switch VectorForm(buf.SubForm) {
	case VectorI16, VectorU16:
		return int32(len(buf.U16))
	case VectorI32, VectorU32, VectorF32:
		return int32(len(buf.U32))
	case VectorF64:
		return int32(len(buf.F64))
	default:
		return 0
	}
}

// vectorAt returns element i as a float64, the common currency cross-
// encoding append converts through.
func vectorAt(buf *Buffer, i int32) float64 {
	switch VectorForm(buf.SubForm) {
	case VectorI16:
		return float64(int16(buf.U16[i]))
	case VectorU16:
		return float64(buf.U16[i])
	case VectorI32:
		return float64(int32(buf.U32[i]))
	case VectorU32:
		return float64(buf.U32[i])
	case VectorF32:
		return float64(math.Float32frombits(buf.U32[i]))
	case VectorF64:
		return buf.F64[i]
	default:
		return 0
	}
}

// vectorAppend appends v (interpreted as whichever encoding buf uses)
// converting as needed -- "cross-encoding append converts" (spec.md
// §4.3).
func vectorAppend(buf *Buffer, v float64) {
	switch VectorForm(buf.SubForm) {
	case VectorI16:
		NewSeries(&buf.U16).Append(uint16(int16(v)))
	case VectorU16:
		NewSeries(&buf.U16).Append(uint16(v))
	case VectorI32:
		NewSeries(&buf.U32).Append(uint32(int32(v)))
	case VectorU32:
		NewSeries(&buf.U32).Append(uint32(v))
	case VectorF32:
		NewSeries(&buf.U32).Append(math.Float32bits(float32(v)))
	case VectorF64:
		NewSeries(&buf.F64).Append(v)
	}
}

// vectorAppendFrom copies every element of src into dst, converting
// each through vectorAt/vectorAppend.
func vectorAppendFrom(dst, src *Buffer) {
	n := vectorLen(src)
	for i := int32(0); i < n; i++ {
		vectorAppend(dst, vectorAt(src, i))
	}
}
