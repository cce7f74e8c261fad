package boron

import (
	"fmt"
	"strings"
)

// Driver is one scheme's port implementation: open a connection
// described by (scheme, host, opts) and return something the
// evaluator layer can read/write/close against. The core never
// implements a concrete driver body (OS file/TCP/console drivers are
// the embedder's job, per spec.md §1's non-goals); it only defines the
// registry a driver plugs into (spec.md §4.10).
type Driver interface {
	Open(spec PortSpec) (Port, error)
}

// Port is the minimal handle a driver hands back; concrete drivers
// embed richer state behind this.
type Port interface {
	Close() error
}

// PortSpec is the decoded (scheme, host, opts) triple every Open call
// receives, regardless of whether the caller wrote a URL string or a
// block of options.
type PortSpec struct {
	Scheme string
	Host   string
	Opts   []Cell
}

// Registry maps a scheme name to the Driver that handles it, grounded
// on the teacher's grammar_import_loaders.go name-keyed loader
// registry (a default entry plus Register), generalized from "loader
// for an import path" to "driver for a port scheme".
type Registry struct {
	drivers map[string]Driver
	def     Driver
}

func NewRegistry() *Registry { return &Registry{drivers: map[string]Driver{}} }

// Register installs driver for scheme, overwriting any prior driver
// for that scheme (spec.md §4.10: "re-registering a scheme replaces
// its driver").
func (r *Registry) Register(scheme string, driver Driver) {
	r.drivers[scheme] = driver
}

// RegisterDefault installs the fallback driver used when no scheme-
// specific entry matches (spec.md §4.10's unmatched-scheme behavior).
func (r *Registry) RegisterDefault(driver Driver) { r.def = driver }

// Open resolves target -- either a URL-shaped string ("scheme://host")
// or a 2-or-3-element options block (SPEC_FULL.md §4.10's resolution
// of the spec's dead-code Open Question: `['tcp "host" port]` or
// `['tcp "host"]`) -- to a PortSpec and dispatches it to the
// registered driver for its scheme.
func (r *Registry) Open(env *Env, thread *Thread, target Cell) (Port, error) {
	spec, err := decodePortSpec(env, thread, target)
	if err != nil {
		return nil, err
	}
	driver, ok := r.drivers[spec.Scheme]
	if !ok {
		driver = r.def
	}
	if driver == nil {
		return nil, NewError(ErrAccess, "no port driver registered for scheme %q", spec.Scheme)
	}
	return driver.Open(spec)
}

func decodePortSpec(env *Env, thread *Thread, target Cell) (PortSpec, error) {
	switch target.Kind {
	case DatatypeString, DatatypeFile:
		buf := env.Buffer(thread, target.BufferID())
		s := stringToGoString(buf)
		scheme, rest, ok := strings.Cut(s, "://")
		if !ok {
			return PortSpec{}, NewError(ErrScript, "port URL %q has no scheme", s)
		}
		return PortSpec{Scheme: scheme, Host: rest}, nil
	case DatatypeBlock, DatatypeParen:
		buf := env.Buffer(thread, target.BufferID())
		segs := NewSeries(&buf.Cells).Slice(target.Iter(), target.SliceEnd())
		if len(segs) < 2 || len(segs) > 3 {
			return PortSpec{}, NewError(ErrScript, "port options block must have 2 or 3 elements")
		}
		schemeWord := segs[0]
		if !schemeWord.Kind.isWord() {
			return PortSpec{}, NewError(ErrScript, "port options block must start with a scheme word")
		}
		hostCell := segs[1]
		if hostCell.Kind != DatatypeString {
			return PortSpec{}, NewError(ErrScript, "port options block's second element must be a string host")
		}
		spec := PortSpec{
			Scheme: env.Atoms.Name(schemeWord.WordAtom()),
			Host:   stringToGoString(env.Buffer(thread, hostCell.BufferID())),
		}
		if len(segs) == 3 {
			spec.Opts = []Cell{segs[2]}
		}
		return spec, nil
	default:
		return PortSpec{}, NewError(ErrType, "%s cannot be opened as a port", target.Kind)
	}
}

func stringToGoString(buf *Buffer) string {
	if buf == nil {
		return ""
	}
	if StringForm(buf.SubForm) == FormUCS2 {
		rs := make([]rune, len(buf.U16))
		for i, v := range buf.U16 {
			rs[i] = rune(v)
		}
		return string(rs)
	}
	return string(buf.Bytes)
}

func (s PortSpec) String() string {
	if len(s.Opts) > 0 {
		return fmt.Sprintf("%s://%s (+%d opt)", s.Scheme, s.Host, len(s.Opts))
	}
	return fmt.Sprintf("%s://%s", s.Scheme, s.Host)
}
