package boron

// Store is a growable array of Buffer records, the target of any
// buffer id (spec.md §3.2, §4.2). Index 0 is always the pinned
// invalid placeholder; callers never allocate over it.
type Store struct {
	buffers  []Buffer
	freeHead int32 // index of first free slot, or 0 meaning "none" (index 0 is never free)
}

// NewStore creates a store with its index-0 invalid placeholder
// already pinned (spec.md §3.3).
func NewStore() *Store {
	s := &Store{buffers: make([]Buffer, 1, 64)}
	s.buffers[0] = Buffer{Kind: DatatypeUnset}
	return s
}

func (s *Store) at(idx int32) *Buffer { return &s.buffers[idx] }

func (s *Store) len() int32 { return int32(len(s.buffers)) }

// gen obtains count uninitialized buffer slots, preferring the free
// list; the caller must initialize each new buffer's Kind and data
// before the store's next gen call (spec.md §4.2).
//
// collect, when non-nil, is invoked once if the free list can't
// satisfy the request outright -- the caller (Thread.Gen) supplies the
// collector so Store itself stays collector-agnostic.
func (s *Store) gen(count int, collect func()) []int32 {
	ids := make([]int32, 0, count)
	s.drainFreeList(&ids, count)
	if len(ids) < count && collect != nil {
		collect()
		s.drainFreeList(&ids, count)
	}
	for len(ids) < count {
		idx := int32(len(s.buffers))
		s.buffers = append(s.buffers, Buffer{Kind: DatatypeUnset})
		ids = append(ids, idx)
	}
	return ids
}

func (s *Store) drainFreeList(ids *[]int32, count int) {
	for len(*ids) < count && s.freeHead != 0 {
		idx := s.freeHead
		next := s.buffers[idx].Used // free-list link is threaded through Used
		s.freeHead = next
		s.buffers[idx] = Buffer{Kind: DatatypeUnset}
		*ids = append(*ids, idx)
	}
}

// free returns idx to the intrusive free list (only ever called from
// sweep, per spec.md §4.2).
func (s *Store) free(idx int32) {
	s.buffers[idx] = Buffer{Kind: freeSentinel, Used: s.freeHead, free: true}
	s.freeHead = idx
}
