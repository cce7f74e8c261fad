package boron

// RecycleHook lets an embedder (e.g. an evaluator sitting on top of
// this core) sync bookkeeping -- such as truncating a runtime call
// stack to its logical cursor -- before the mark phase walks the
// roots, per spec.md §9's "per-type recycle(MARK) hook" design note.
// The core itself registers none; cfunc and friends are external
// collaborators (spec.md §1).
type RecycleHook func(t *Thread)

var recycleHooks []RecycleHook

// RegisterRecycleHook adds a hook invoked at the start of every
// Collect, before marking.
func RegisterRecycleHook(h RecycleHook) {
	recycleHooks = append(recycleHooks, h)
}

// Collect runs one precise mark-sweep pass over t's private store.
// The shared store is never swept: it is only ever populated by
// freezeEnv and is immutable from then on (spec.md §3.3, §5).
//
// Root set (spec.md §4.2): the thread's value stack, every buffer id
// on the hold stack, the scratch cell, and the pinned placeholder/
// global-context buffers.
func Collect(t *Thread) {
	for _, h := range recycleHooks {
		h(t)
	}

	t.markSet = make(map[int32]bool, len(t.markSet))
	t.markSet[0] = true
	markBuffer(t, GlobalContextBuffer)

	for _, id := range t.Holds {
		markBuffer(t, id)
	}
	for _, c := range t.Stack {
		markCell(t, c)
	}
	markCell(t, t.Scratch)

	sweep(t)
}

// markBuffer marks buffer id (a no-op for shared/invalid ids, since
// shared buffers are immutable and never collected) and, the first
// time it is visited, walks its own cells.
func markBuffer(t *Thread, id int32) {
	if id == InvalidBuffer || IsShared(id) {
		return
	}
	if id >= t.Store.len() || t.markSet[id] {
		return
	}
	t.markSet[id] = true
	buf := t.Store.at(id)
	for _, c := range buf.Cells {
		markCell(t, c)
	}
}

// markCell dispatches to the cell's own mark: container/series cells
// mark their buffer, context-bound words mark their context, and
// custom datatypes get a chance via TypeOps.Mark (spec.md §4.2).
func markCell(t *Thread, c Cell) {
	switch {
	case c.Kind == DatatypeError:
		markBuffer(t, c.ErrorMsgBuf())
		markBuffer(t, c.ErrorTraceBuf())
	case c.Kind.isSeries():
		markBuffer(t, c.BufferID())
	case c.Kind.isWord():
		switch c.binding {
		case BindThread, BindEnv, BindStack, BindSelf:
			markBuffer(t, c.WordContext())
		}
	}
	if ops := opsFor(c.Kind); ops != nil && ops.Mark != nil {
		ops.Mark(t.Env, c)
	}
}

// sweep destroys and frees every unmarked slot, restoring the free
// list invariant that already-free slots are marked before the sweep
// begins so they are never double-destroyed (spec.md §4.2).
func sweep(t *Thread) {
	for idx := int32(1); idx < t.Store.len(); idx++ {
		buf := t.Store.at(idx)
		if buf.isFree() {
			continue
		}
		if t.markSet[idx] {
			continue
		}
		if ops := opsFor(buf.Kind); ops != nil && ops.Destroy != nil {
			ops.Destroy(t.Env, Cell{Kind: buf.Kind, a: idx})
		}
		t.Store.free(idx)
	}
}
