package boron

// bindTarget names the context a word tree is being bound into, plus
// the binding kind that should be stamped on every resolved word
// (spec.md §4.4).
type bindTarget struct {
	Ctx      int32
	Kind     WordBinding
	SelfAtom AtomID
}

// BindDeep walks cells recursively, (re)binding every word found
// in target's context (or to self if it names SelfAtom), following
// into nested block/paren/path series unless they're shared (shared
// series are immutable and never rewritten in place, per spec.md
// §3.4's own-the-cells invariant).
func BindDeep(env *Env, thread *Thread, cells []Cell, target bindTarget) {
	for i, c := range cells {
		cells[i] = bindCell(env, thread, c, target)
	}
}

func bindCell(env *Env, thread *Thread, c Cell, target bindTarget) Cell {
	if c.Kind.isWord() {
		// Always performs lookup-and-rewrite, even if c already carries
		// a binding: rebind (retargeting a word tree at a new context,
		// e.g. a function body bound to a fresh call frame) requires
		// overwriting a prior binding, not skipping words that have
		// one (urlan/context.c's ur_bindCells, :597-632).
		ctxBuf := env.Buffer(thread, target.Ctx)
		if idx, ok := ctxLookup(ctxBuf, c.WordAtom()); ok {
			return c.bound(target.Kind, target.Ctx, idx)
		}
		if target.SelfAtom != InvalidAtom && c.WordAtom() == target.SelfAtom {
			return c.bound(BindSelf, target.Ctx, 0)
		}
		return c
	}
	if c.Kind.isSeries() && isBlockLike(c.Kind) {
		id := c.BufferID()
		if !IsShared(id) {
			buf := env.Buffer(thread, id)
			BindDeep(env, thread, buf.Cells, target)
		}
		return c
	}
	if ops := opsFor(c.Kind); ops != nil && ops.Bind != nil {
		return ops.Bind(env, c, target)
	}
	return c
}

// UnbindDeep clears the binding on every word in cells, recursing into
// block-like series when deep is set (spec.md §4.4).
func UnbindDeep(env *Env, thread *Thread, cells []Cell, deep bool) {
	for i, c := range cells {
		if c.Kind.isWord() {
			cells[i] = c.unbound()
			continue
		}
		if deep && c.Kind.isSeries() && isBlockLike(c.Kind) {
			id := c.BufferID()
			if !IsShared(id) {
				buf := env.Buffer(thread, id)
				UnbindDeep(env, thread, buf.Cells, true)
			}
		}
	}
}

// InfuseDeep replaces every word bound to ctxBufID with the value cell
// it resolves to, used when a block is being specialized against a
// fixed context rather than evaluated against it live (spec.md §4.4).
func InfuseDeep(env *Env, thread *Thread, cells []Cell, ctxBufID int32) {
	ctxBuf := env.Buffer(thread, ctxBufID)
	for i, c := range cells {
		if c.Kind.isWord() && c.binding != BindUnbound && c.WordContext() == ctxBufID {
			slot := c.WordSlot()
			if slot >= 0 && int(slot) < len(ctxBuf.Cells) {
				cells[i] = ctxBuf.Cells[slot]
				continue
			}
		}
		if c.Kind.isSeries() && isBlockLike(c.Kind) {
			id := c.BufferID()
			if !IsShared(id) && id != ctxBufID {
				buf := env.Buffer(thread, id)
				InfuseDeep(env, thread, buf.Cells, ctxBufID)
			}
		}
	}
}

func isBlockLike(d Datatype) bool {
	switch d {
	case DatatypeBlock, DatatypeParen, DatatypePath, DatatypeLitPath, DatatypeSetPath:
		return true
	default:
		return false
	}
}
