package boron

import (
	"strings"

	"github.com/dchest/siphash"
)

// AtomID is a 16-bit interned symbol id (spec.md §4.1).
type AtomID uint16

// InvalidAtom is the sentinel returned when intern fails (table full
// or name longer than maxAtomNameLen).
const InvalidAtom AtomID = 0xFFFF

// datatypeBuiltinCount (see datatype.go) reserves the first block of
// atoms for built-in type names (int!, string!, block!, ...) so an
// atom id below that threshold can double as a type id -- used by the
// tokenizer to recognize datatype words without a second lookup.
const maxAtomNameLen = 64

type atomEntry struct {
	hash   uint64
	offset int32
	length uint8
	head   bool
	next   AtomID
}

// AtomTable interns case-preserving byte strings up to maxAtomNameLen,
// case-insensitively, into a fixed-capacity separate-chaining hash
// table backed by a flat name arena -- the same "flat slice addressed
// by small integer id" idiom the teacher's tree.go uses for its
// strs/children arrays, here applied to symbol interning instead of
// AST nodes.
type AtomTable struct {
	capacity int
	names    []byte
	entries  []atomEntry
	buckets  []AtomID // bucket head, or InvalidAtom
	byHash   map[uint64][]AtomID
}

const atomHashKey0 = 0x626f726f6e000001 // "boron" and a version nibble
const atomHashKey1 = 0x0000000000000001

// NewAtomTable creates a table with room for capacity entries. The
// original fixes this at a compile-time constant (§4.1); Boron exposes
// it via Config.GetInt("atoms.capacity") instead (SPEC_FULL.md §4.1.1).
func NewAtomTable(capacity int) *AtomTable {
	if capacity <= 0 {
		capacity = 1024
	}
	nbuckets := capacity
	t := &AtomTable{
		capacity: capacity,
		names:    make([]byte, 0, capacity*8),
		entries:  make([]atomEntry, 0, capacity),
		buckets:  make([]AtomID, nbuckets),
		byHash:   make(map[uint64][]AtomID, capacity),
	}
	for i := range t.buckets {
		t.buckets[i] = InvalidAtom
	}
	return t
}

func hashName(lower string) uint64 {
	return siphash.Hash(atomHashKey0, atomHashKey1, []byte(lower))
}

func foldLower(s string) string {
	return strings.ToLower(s)
}

// Intern performs a case-insensitive lookup; on a hit it returns the
// existing id with the original casing preserved. On a miss, if the
// table has room, it appends and returns the new id. A full table or
// a name longer than maxAtomNameLen fails with ErrInternal and returns
// InvalidAtom.
func (t *AtomTable) Intern(name string) (AtomID, error) {
	if len(name) > maxAtomNameLen {
		return InvalidAtom, NewError(ErrInternal, "atom name too long: %q", name)
	}
	lower := foldLower(name)
	h := hashName(lower)

	bucket := int(h % uint64(len(t.buckets)))
	for id := t.buckets[bucket]; id != InvalidAtom; id = t.entries[id].next {
		if t.entries[id].hash == h && foldLower(t.Name(id)) == lower {
			return id, nil
		}
	}

	if len(t.entries) >= t.capacity {
		return InvalidAtom, NewError(ErrInternal, "atom table full (capacity %d)", t.capacity)
	}
	id := AtomID(len(t.entries))
	offset := int32(len(t.names))
	t.names = append(t.names, name...)
	t.entries = append(t.entries, atomEntry{
		hash:   h,
		offset: offset,
		length: uint8(len(name)),
		next:   t.buckets[bucket],
	})
	t.buckets[bucket] = id
	t.byHash[h] = append(t.byHash[h], id)
	return id, nil
}

// MustIntern interns name, panicking on failure; used for the
// reserved built-in type atoms at environment construction where
// failure would mean a misconfigured table.
func (t *AtomTable) MustIntern(name string) AtomID {
	id, err := t.Intern(name)
	if err != nil {
		panic(err)
	}
	return id
}

// Name returns the interned, original-cased name for id.
func (t *AtomTable) Name(id AtomID) string {
	if int(id) >= len(t.entries) {
		return ""
	}
	e := t.entries[id]
	return string(t.names[e.offset : e.offset+int32(e.length)])
}

// Lookup is the read-only counterpart of Intern: it never mutates the
// table, returning (id, true) on a hit.
func (t *AtomTable) Lookup(name string) (AtomID, bool) {
	lower := foldLower(name)
	h := hashName(lower)
	bucket := int(h % uint64(len(t.buckets)))
	for id := t.buckets[bucket]; id != InvalidAtom; id = t.entries[id].next {
		if t.entries[id].hash == h && foldLower(t.Name(id)) == lower {
			return id, true
		}
	}
	return InvalidAtom, false
}

// Len reports how many atoms are currently interned.
func (t *AtomTable) Len() int { return len(t.entries) }

// IsBuiltinType reports whether id falls in the reserved built-in
// type-name block, letting the tokenizer treat such an atom id as a
// Datatype directly.
func (t *AtomTable) IsBuiltinType(id AtomID) bool {
	return int(id) < int(datatypeBuiltinCount)
}
