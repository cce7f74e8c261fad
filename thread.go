package boron

import "github.com/google/uuid"

// Thread owns a private store, a value stack, a hold stack, a GC mark
// bitset, and a scratch cell (spec.md §3.3). ID exists purely for
// addressing/diagnostics -- e.g. mailbox port envelopes and log lines
// -- the same role sneller/tenant's uuid.UUID session ids play; no OS
// thread or socket is spawned here (those are external collaborators,
// spec.md §1).
type Thread struct {
	ID    uuid.UUID
	Env   *Env
	Store *Store

	Stack   []Cell
	Holds   []int32
	markSet map[int32]bool
	Scratch Cell

	// Exception is the distinguished thread-local slot QUIT/HALT/
	// BREAK/CONTINUE and thrown errors are written into (spec.md §7).
	Exception error
}

// GlobalContextBuffer is the thread-local id of the pinned global
// context every new thread's store starts with at index 1 (spec.md
// §3.3).
const GlobalContextBuffer int32 = 1

// NewThread allocates a private store, seeded with the pinned invalid
// placeholder (index 0, from NewStore) and a pinned global context
// (index 1).
func NewThread(env *Env) *Thread {
	t := &Thread{
		ID:      uuid.New(),
		Env:     env,
		Store:   NewStore(),
		markSet: make(map[int32]bool),
	}
	ctxID := t.Store.gen(1, nil)[0]
	buf := t.Store.at(ctxID)
	buf.Kind = DatatypeContext
	buf.CtxWords = nil
	buf.CtxSorted = 0
	if ctxID != GlobalContextBuffer {
		panic("boron: global context must land at buffer id 1")
	}
	return t
}

// Gen allocates count fresh buffer ids in this thread's store,
// triggering a collection first if the free list can't satisfy the
// request (spec.md §4.2).
func (t *Thread) Gen(count int) []int32 {
	return t.Store.gen(count, func() { Collect(t) })
}

// Hold pins id against the collector and returns a handle for Release.
func (t *Thread) Hold(id int32) int {
	t.Holds = append(t.Holds, id)
	return len(t.Holds) - 1
}

// Release unpins the hold created at handle h, shrinking the holds
// array from the top (spec.md §4.2).
func (t *Thread) Release(h int) {
	if h < 0 || h >= len(t.Holds) {
		return
	}
	t.Holds[h] = InvalidBuffer
	for len(t.Holds) > 0 && t.Holds[len(t.Holds)-1] == InvalidBuffer {
		t.Holds = t.Holds[:len(t.Holds)-1]
	}
}

// freezeEnv migrates t's entire store into env.Shared, rewriting every
// buffer-bearing cell via the per-type ToShared hook (buffer id n ->
// -n), per spec.md §3.3. After this call env is frozen and new threads
// see the migrated buffers as read-only through their negative ids.
// t's own store is left as it was: its positive ids still resolve to
// the pre-freeze copies.
func freezeEnv(env *Env, t *Thread) error {
	if env.frozen {
		return NewError(ErrInternal, "environment already frozen")
	}
	base := env.Shared.len()
	remap := make(map[int32]int32, t.Store.len())
	for idx := int32(1); idx < t.Store.len(); idx++ {
		if t.Store.buffers[idx].isFree() {
			continue
		}
		remap[idx] = -(base + idx - 1)
	}

	for idx := int32(1); idx < t.Store.len(); idx++ {
		src := t.Store.buffers[idx]
		env.Shared.buffers = append(env.Shared.buffers, src)
		dst := &env.Shared.buffers[len(env.Shared.buffers)-1]
		rewriteBufferRefs(env, dst, remap)
	}
	env.frozen = true
	return nil
}

// rewriteBufferRefs applies the to-shared rewrite to every cell in buf
// that carries a buffer reference, using the per-type ToShared hook
// (falling back to a generic positive->negative flip for built-ins
// whose only payload is a bare buffer/context id).
func rewriteBufferRefs(env *Env, buf *Buffer, remap map[int32]int32) {
	for i := range buf.Cells {
		c := buf.Cells[i]
		if ops := opsFor(c.Kind); ops != nil && ops.ToShared != nil {
			buf.Cells[i] = ops.ToShared(env, c)
			continue
		}
		if c.Kind.isWord() && c.binding != BindUnbound {
			if n, ok := remap[c.a]; ok {
				c.a = n
			}
			buf.Cells[i] = c
		} else if c.Kind.isSeries() {
			if n, ok := remap[c.a]; ok {
				c.a = n
			}
			buf.Cells[i] = c
		}
	}
}
