package boron

import "fmt"

// Datatype identifies the concrete type tag carried by a Cell's first
// byte. The first block is reserved for built-ins so that an atom id
// below datatypeBuiltinCount can be used directly as a type id by the
// tokenizer when it recognizes a datatype word such as int!.
type Datatype uint8

const (
	DatatypeUnset Datatype = iota
	DatatypeDatatype
	DatatypeNone
	DatatypeLogic
	DatatypeChar
	DatatypeInt
	DatatypeDouble
	DatatypeBignum
	DatatypeTime
	DatatypeDate
	DatatypeCoord
	DatatypeVec3
	DatatypeTimecode
	DatatypeWord
	DatatypeLitWord
	DatatypeSetWord
	DatatypeGetWord
	DatatypeOption
	DatatypeBinary
	DatatypeBitset
	DatatypeString
	DatatypeFile
	DatatypeVector
	DatatypeBlock
	DatatypeParen
	DatatypePath
	DatatypeLitPath
	DatatypeSetPath
	DatatypeContext
	DatatypeHashMap
	DatatypeError
	datatypeBuiltinCount

	// DatatypeMax bounds the extension range; datatypes in
	// [datatypeBuiltinCount, DatatypeMax) are available for
	// RegisterDatatype to hand out to embedders (GL/audio extension
	// types, port values, etc.)
	DatatypeMax = 64
)

var datatypeNames = map[Datatype]string{
	DatatypeUnset:    "unset!",
	DatatypeDatatype: "datatype!",
	DatatypeNone:     "none!",
	DatatypeLogic:    "logic!",
	DatatypeChar:     "char!",
	DatatypeInt:      "int!",
	DatatypeDouble:   "double!",
	DatatypeBignum:   "bignum!",
	DatatypeTime:     "time!",
	DatatypeDate:     "date!",
	DatatypeCoord:    "coord!",
	DatatypeVec3:     "vec3!",
	DatatypeTimecode: "timecode!",
	DatatypeWord:     "word!",
	DatatypeLitWord:  "lit-word!",
	DatatypeSetWord:  "set-word!",
	DatatypeGetWord:  "get-word!",
	DatatypeOption:   "option!",
	DatatypeBinary:   "binary!",
	DatatypeBitset:   "bitset!",
	DatatypeString:   "string!",
	DatatypeFile:     "file!",
	DatatypeVector:   "vector!",
	DatatypeBlock:    "block!",
	DatatypeParen:    "paren!",
	DatatypePath:     "path!",
	DatatypeLitPath:  "lit-path!",
	DatatypeSetPath:  "set-path!",
	DatatypeContext:  "context!",
	DatatypeHashMap:  "hash!",
	DatatypeError:    "error!",
}

func (d Datatype) String() string {
	if n, ok := datatypeNames[d]; ok {
		return n
	}
	return fmt.Sprintf("datatype(%d)!", uint8(d))
}

// isSeries reports whether values of d are backed by a Buffer that the
// collector must mark and that series primitives operate on.
func (d Datatype) isSeries() bool {
	switch d {
	case DatatypeBinary, DatatypeBitset, DatatypeString, DatatypeFile,
		DatatypeVector, DatatypeBlock, DatatypeParen, DatatypePath,
		DatatypeLitPath, DatatypeSetPath, DatatypeContext, DatatypeHashMap:
		return true
	default:
		return false
	}
}

// isWord reports whether d is one of the four word-shaped kinds that
// bind participates in.
func (d Datatype) isWord() bool {
	switch d {
	case DatatypeWord, DatatypeLitWord, DatatypeSetWord, DatatypeGetWord:
		return true
	default:
		return false
	}
}

// TypeOps is the dispatch table every Datatype registers into. It
// mirrors the C original's table of function pointers per datatype;
// Go's sum-type-by-tag idiom makes a table of closures the natural
// replacement for a vtable here (see DESIGN.md's note on dispatch).
//
// Every field is optional except Make; a nil field means "this type
// doesn't support the operation" (e.g. Select is nil for scalar types).
type TypeOps struct {
	// Make constructs a zero value cell of this type.
	Make func() Cell

	// Copy returns a value-identical but independent copy (deep for
	// series-backed types only when shallow is false).
	Copy func(env *Env, c Cell, shallow bool) Cell

	// Compare returns -1/0/1, or implements a case/strict variant
	// selected by mode.
	Compare func(env *Env, a, b Cell, mode CompareMode) int

	// ToString renders c for printing/serialization-as-text.
	ToString func(env *Env, c Cell) string

	// Mark is invoked by the collector on every reachable cell of
	// this type. It receives only env and c; the collector itself
	// marks no buffer that an extension-kind cell references.
	Mark func(env *Env, c Cell)

	// Destroy releases any OS-level resources owned by c's buffer
	// (called only from sweep).
	Destroy func(env *Env, c Cell)

	// ToShared rewrites c's buffer references from thread-local
	// (positive) to shared (negative) ids during freezeEnv.
	ToShared func(env *Env, c Cell) Cell

	// Bind applies the context/binding rewrite described in
	// spec.md §4.4 to c (only meaningful for word-shaped types;
	// container types recurse via the generic bind walk instead).
	Bind func(env *Env, c Cell, b bindTarget) Cell

	// Select implements one step of path resolution (spec.md §4.5).
	Select func(env *Env, c Cell, sel Cell) (Cell, bool)

	// Poke implements the terminal step of setPath (spec.md §4.5).
	Poke func(env *Env, c Cell, sel Cell, val Cell) error
}

var typeTable [DatatypeMax]*TypeOps

// RegisterDatatype installs ops for d, so extension datatypes (GL/audio
// values, port values, ...) can plug into make/mark/destroy/etc. the
// same way built-ins do. Re-registering a built-in is rejected.
func RegisterDatatype(d Datatype, ops *TypeOps) error {
	if d >= DatatypeMax {
		return fmt.Errorf("boron: datatype id %d out of range", d)
	}
	if d < datatypeBuiltinCount && typeTable[d] != nil {
		return fmt.Errorf("boron: cannot re-register built-in datatype %s", d)
	}
	typeTable[d] = ops
	return nil
}

func opsFor(d Datatype) *TypeOps {
	if int(d) >= len(typeTable) {
		return nil
	}
	return typeTable[d]
}

// CompareMode selects the equality/ordering semantics datatype Compare
// hooks use (case-sensitive strings, etc.)
type CompareMode int

const (
	CompareStrict CompareMode = iota
	CompareCase
	CompareOrder
)
