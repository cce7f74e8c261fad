package boron

import "golang.org/x/exp/constraints"

// ordinal is the numeric-kind constraint series index arithmetic is
// parameterized over -- the same generics-for-numeric-kinds idiom
// sneller/ints and sneller/internal/sort use for their clampers and
// bit-width helpers, applied here to series index clamping instead of
// query-execution arithmetic.
type ordinal interface {
	constraints.Integer
}

// Clamp constrains v to [lo, hi], used throughout Series to keep
// iterator/end positions within an allocation's bounds (spec.md §3.4's
// "0 <= it <= effective_end <= used" invariant).
func Clamp[T ordinal](v, lo, hi T) T {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// Series is a thin, generic view over a growable backing slice,
// implementing the five operations spec.md §4.3 requires of every
// series type (byte/16-bit/32-bit/cell element width): reserve,
// expand, erase, append, slice. Buffer keeps concrete typed slices
// (Bytes, U16, U32, F64, Cells) rather than one generic field, so
// Series wraps a pointer to whichever slice a given operation targets.
type Series[T any] struct {
	data *[]T
}

func NewSeries[T any](data *[]T) Series[T] { return Series[T]{data: data} }

func (s Series[T]) Len() int32 { return int32(len(*s.data)) }

// Reserve grows the underlying allocation so it holds >= n elements,
// doubling on growth and preserving Len (spec.md §4.3).
func (s Series[T]) Reserve(n int32) {
	d := *s.data
	if int32(cap(d)) >= n {
		return
	}
	newCap := int32(cap(d))
	if newCap == 0 {
		newCap = 8
	}
	for newCap < n {
		newCap *= 2
	}
	grown := make([]T, len(d), newCap)
	copy(grown, d)
	*s.data = grown
}

// Expand makes room for n elements at index at, shifting the tail; the
// contents of the new gap are unspecified (spec.md §4.3).
func (s Series[T]) Expand(at, n int32) {
	if n <= 0 {
		return
	}
	used := s.Len()
	at = Clamp(at, 0, used)
	s.Reserve(used + n)
	d := (*s.data)[:used+n]
	copy(d[at+n:], d[at:used])
	*s.data = d
}

// Erase clamps n to the available tail and memmoves the remaining
// suffix over the erased range (spec.md §4.3).
func (s Series[T]) Erase(at, n int32) {
	used := s.Len()
	if at < 0 || at >= used || n <= 0 {
		return
	}
	if at+n > used {
		n = used - at
	}
	d := *s.data
	copy(d[at:], d[at+n:])
	*s.data = d[:used-n]
}

// Append reserves room for items and copies them onto the tail.
func (s Series[T]) Append(items ...T) {
	at := s.Len()
	s.Expand(at, int32(len(items)))
	copy((*s.data)[at:], items)
}

// Insert expands room at at and copies items into the gap.
func (s Series[T]) Insert(at int32, items ...T) {
	s.Expand(at, int32(len(items)))
	copy((*s.data)[at:], items)
}

// Slice returns the element range [it, effectiveEnd), clamped to Len,
// where effectiveEnd is end if end >= 0 else Len (spec.md §3.4).
func (s Series[T]) Slice(it, end int32) []T {
	used := s.Len()
	effectiveEnd := end
	if effectiveEnd < 0 {
		effectiveEnd = used
	}
	effectiveEnd = Clamp(effectiveEnd, 0, used)
	it = Clamp(it, 0, effectiveEnd)
	return (*s.data)[it:effectiveEnd]
}
