package boron

import "sort"

// NewContext allocates a fresh Context buffer in thread's store and
// returns its buffer id.
func NewContext(env *Env, thread *Thread) int32 {
	id := thread.Gen(1)[0]
	buf := thread.Store.at(id)
	buf.Kind = DatatypeContext
	return id
}

// ctxAddWord appends an Unset value cell and an atom/index entry for
// atom if absent, returning the slot index either way (spec.md §4.4).
// Insertions leave the table partially unsorted: a prefix of length
// CtxSorted stays sorted, the remainder is appended unsorted.
func ctxAddWord(buf *Buffer, atom AtomID) int32 {
	if idx, ok := ctxLookup(buf, atom); ok {
		return idx
	}
	buf.Cells = append(buf.Cells, UnsetCell())
	buf.CtxWords = append(buf.CtxWords, atom)
	return int32(len(buf.Cells) - 1)
}

// ctxLookup performs a binary search on the sorted prefix, then a
// linear scan over the unsorted tail; the sorted prefix is checked
// first so "the first match in sorted-then-tail order wins" (spec.md
// §4.4).
func ctxLookup(buf *Buffer, atom AtomID) (int32, bool) {
	sorted := buf.CtxSorted
	lo, hi := int32(0), sorted
	for lo < hi {
		mid := (lo + hi) / 2
		if buf.CtxWords[mid] < atom {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < sorted && buf.CtxWords[lo] == atom {
		return lo, true
	}
	for i := sorted; i < int32(len(buf.CtxWords)); i++ {
		if buf.CtxWords[i] == atom {
			return i, true
		}
	}
	return 0, false
}

// ctxValue returns the value cell bound to atom, if present.
func ctxValue(buf *Buffer, atom AtomID) (Cell, bool) {
	idx, ok := ctxLookup(buf, atom)
	if !ok {
		return Cell{}, false
	}
	return buf.Cells[idx], true
}

type ctxSortable struct {
	words []AtomID
	cells []Cell
}

func (s ctxSortable) Len() int           { return len(s.words) }
func (s ctxSortable) Less(i, j int) bool { return s.words[i] < s.words[j] }
func (s ctxSortable) Swap(i, j int) {
	s.words[i], s.words[j] = s.words[j], s.words[i]
	s.cells[i], s.cells[j] = s.cells[j], s.cells[i]
}

// ctxSort performs a full quicksort over the table and marks it
// entirely sorted (spec.md §4.4). freezeEnv does not call it: a
// context buffer migrates to the shared store with whatever sorted
// prefix it already had.
func ctxSort(buf *Buffer) {
	sort.Sort(ctxSortable{buf.CtxWords, buf.Cells})
	buf.CtxSorted = int32(len(buf.CtxWords))
}
