package boron

import "sync"

// Env is the environment shared by every thread: the atom table, the
// shared (post-freeze, immutable) buffer store, configuration, and the
// port driver registry (spec.md §3.3, §5).
type Env struct {
	Atoms  *AtomTable
	Shared *Store
	Config *Config
	Ports  *Registry

	internMu sync.Mutex // guards Atoms.Intern only (spec.md §5)
	frozen   bool
}

// NewEnv constructs an environment with an empty shared store and the
// reserved built-in type atoms interned first, so their ids land below
// datatypeBuiltinCount (spec.md §4.1).
func NewEnv() *Env {
	cfg := NewConfig()
	env := &Env{
		Atoms:  NewAtomTable(cfg.GetInt("atoms.capacity")),
		Shared: NewStore(),
		Config: cfg,
		Ports:  NewRegistry(),
	}
	for d := Datatype(0); d < datatypeBuiltinCount; d++ {
		env.Atoms.MustIntern(d.String())
	}
	return env
}

// Intern is the environment-wide entry point for atom interning; it
// is the one place spec.md §5 requires a mutex ("one around the global
// atom table during intern").
func (env *Env) Intern(name string) (AtomID, error) {
	env.internMu.Lock()
	defer env.internMu.Unlock()
	return env.Atoms.Intern(name)
}

// resolve maps a buffer id to its backing store and in-store index,
// following the sign convention from spec.md §3.2: positive indexes
// thread.Store, negative (negated) indexes env.Shared.
func (env *Env) resolve(thread *Thread, id int32) (*Store, int32, bool) {
	if id == InvalidBuffer {
		return nil, 0, false
	}
	if id < 0 {
		idx := -id
		if idx >= env.Shared.len() {
			return nil, 0, false
		}
		return env.Shared, idx, true
	}
	if thread == nil || id >= thread.Store.len() {
		return nil, 0, false
	}
	return thread.Store, id, true
}

// Buffer resolves id against thread (or the shared store if id is
// negative) and returns the backing *Buffer, or nil if id is invalid.
func (env *Env) Buffer(thread *Thread, id int32) *Buffer {
	store, idx, ok := env.resolve(thread, id)
	if !ok {
		return nil
	}
	return store.at(idx)
}

// IsShared reports whether id names a buffer in the shared store
// (spec.md §3.2: "negative is the universal is-this-shared test").
func IsShared(id int32) bool { return id < 0 && id != InvalidBuffer }
