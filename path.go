package boron

import "fmt"

// PathSegments returns the cells making up a Path/LitPath/SetPath
// value's segment list (the buffer it refers to), per spec.md §4.5.
func PathSegments(env *Env, thread *Thread, path Cell) []Cell {
	buf := env.Buffer(thread, path.BufferID())
	if buf == nil {
		return nil
	}
	return NewSeries(&buf.Cells).Slice(path.Iter(), path.SliceEnd())
}

// ResolvePath walks base through each selector in segments, calling
// selectStep at every level, and returns the final cell (spec.md
// §4.5: "select is applied once per path segment, left to right").
func ResolvePath(env *Env, thread *Thread, base Cell, segments []Cell) (Cell, error) {
	cur := base
	for i, sel := range segments {
		next, ok := selectStep(env, thread, cur, sel)
		if !ok {
			return Cell{}, NewError(ErrAccess, "cannot select %s in path at segment %d", sel.Kind, i+1)
		}
		cur = next
	}
	return cur, nil
}

// SetPath resolves every segment but the last to find the container,
// then pokes the final segment's slot with value (spec.md §4.5:
// setPath is select-then-poke, never select-all-the-way-then-assign).
func SetPath(env *Env, thread *Thread, base Cell, segments []Cell, value Cell) error {
	if len(segments) == 0 {
		return NewError(ErrScript, "set-path requires at least one segment")
	}
	container := base
	for i, sel := range segments[:len(segments)-1] {
		next, ok := selectStep(env, thread, container, sel)
		if !ok {
			return NewError(ErrAccess, "cannot select %s in path at segment %d", sel.Kind, i+1)
		}
		container = next
	}
	last := segments[len(segments)-1]
	return pokeStep(env, thread, container, last, value)
}

// selectStep implements one hop of path resolution: a registered
// TypeOps.Select hook wins if present, otherwise the built-in
// container behaviors (indexed series, context-by-word) apply
// (spec.md §4.5).
func selectStep(env *Env, thread *Thread, container, sel Cell) (Cell, bool) {
	if ops := opsFor(container.Kind); ops != nil && ops.Select != nil {
		return ops.Select(env, container, sel)
	}
	switch {
	case container.Kind == DatatypeContext:
		return selectContext(env, thread, container, sel)
	case container.Kind.isSeries():
		return selectIndexed(env, thread, container, sel)
	default:
		return Cell{}, false
	}
}

func pokeStep(env *Env, thread *Thread, container, sel Cell, value Cell) error {
	if ops := opsFor(container.Kind); ops != nil && ops.Poke != nil {
		return ops.Poke(env, container, sel, value)
	}
	switch {
	case container.Kind == DatatypeContext:
		return pokeContext(env, thread, container, sel, value)
	case container.Kind.isSeries():
		return pokeIndexed(env, thread, container, sel, value)
	default:
		return NewError(ErrAccess, "%s has no settable path segments", container.Kind)
	}
}

// resolveSelector returns the cell a path selector actually supplies as
// its key. A get-word selector is dereferenced to "the cell it points
// to" before use (spec.md §4.5 step 2: obj/:key looks up whatever word
// the variable key is currently bound to, not the atom :key itself);
// every other selector shape passes through unchanged. An unbound
// get-word has nothing to dereference and fails the selection.
func resolveSelector(env *Env, thread *Thread, sel Cell) (Cell, bool) {
	if sel.Kind != DatatypeGetWord {
		return sel, true
	}
	if sel.WordBinding() == BindUnbound {
		return Cell{}, false
	}
	ctxBuf := env.Buffer(thread, sel.WordContext())
	if ctxBuf == nil {
		return Cell{}, false
	}
	slot := sel.WordSlot()
	if slot < 0 || int(slot) >= len(ctxBuf.Cells) {
		return Cell{}, false
	}
	return ctxBuf.Cells[slot], true
}

// selectContext resolves a word selector against a context's atom
// table, the only selector shape a Context accepts.
func selectContext(env *Env, thread *Thread, container, sel Cell) (Cell, bool) {
	key, ok := resolveSelector(env, thread, sel)
	if !ok || !key.Kind.isWord() {
		return Cell{}, false
	}
	buf := env.Buffer(thread, container.BufferID())
	if buf == nil {
		return Cell{}, false
	}
	return ctxValue(buf, key.WordAtom())
}

func pokeContext(env *Env, thread *Thread, container, sel Cell, value Cell) error {
	key, ok := resolveSelector(env, thread, sel)
	if !ok || !key.Kind.isWord() {
		return NewError(ErrScript, "context path segments must be words, got %s", sel.Kind)
	}
	buf := env.Buffer(thread, container.BufferID())
	if buf == nil {
		return NewError(ErrInternal, "dangling context buffer")
	}
	idx, ok := ctxLookup(buf, key.WordAtom())
	if !ok {
		return NewError(ErrAccess, "word %q not found in context", env.Atoms.Name(key.WordAtom()))
	}
	buf.Cells[idx] = value
	return nil
}

// selectIndexed resolves an Int selector as a 1-based offset into a
// Block or Paren buffer, matching Rebol-family path indexing (spec.md
// §4.5); other series kinds yield no value.
func selectIndexed(env *Env, thread *Thread, container, sel Cell) (Cell, bool) {
	key, ok := resolveSelector(env, thread, sel)
	if !ok || key.Kind != DatatypeInt {
		return Cell{}, false
	}
	buf := env.Buffer(thread, container.BufferID())
	if buf == nil {
		return Cell{}, false
	}
	idx := container.Iter() + int32(key.Int()) - 1
	if idx < 0 || idx >= int32(len(buf.Cells)) {
		return Cell{}, false
	}
	if buf.Kind == DatatypeBlock || buf.Kind == DatatypeParen {
		return buf.Cells[idx], true
	}
	return Cell{}, false
}

func pokeIndexed(env *Env, thread *Thread, container, sel Cell, value Cell) error {
	key, ok := resolveSelector(env, thread, sel)
	if !ok || key.Kind != DatatypeInt {
		return NewError(ErrScript, "series path segments must be integers, got %s", sel.Kind)
	}
	buf := env.Buffer(thread, container.BufferID())
	if buf == nil {
		return NewError(ErrInternal, "dangling series buffer")
	}
	idx := container.Iter() + int32(key.Int()) - 1
	if idx < 0 || idx >= int32(len(buf.Cells)) {
		return NewError(ErrAccess, fmt.Sprintf("index %d out of range", key.Int()))
	}
	if buf.Kind != DatatypeBlock && buf.Kind != DatatypeParen {
		return NewError(ErrAccess, "%s is not settable by index path", buf.Kind)
	}
	buf.Cells[idx] = value
	return nil
}
