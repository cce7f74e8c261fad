package boron

import "encoding/binary"

// ArgOp is a function-argument byte-code opcode (spec.md §4.8),
// compiled once per callable from its argument spec block and
// executed by ArgProgram.Exec on every call. Grounded on the teacher's
// vm_encoder.go opcode-encoding loop and vm.go's opcode switch
// dispatch -- the closest structural match in the whole port.
type ArgOp byte

const (
	OpClearLocal ArgOp = iota
	OpClearLocalOpt
	OpFetchArg
	OpLitArg
	OpVariant // carries a 1-byte branch tag read back via ArgFrame.Variant
	OpCheckArg
	OpCheckArgMask
	OpOption
	OpNop
	OpNop2
	OpEnd
)

// ArgProgram is the compiled byte code for one callable's argument
// frame: a flat byte stream of opcode + small immediates, decoded and
// executed by ArgProgram.Exec against the caller's argument cells and the
// callee's local context.
type ArgProgram struct {
	Code []byte
}

type argEncoder struct{ code []byte }

func (e *argEncoder) op(o ArgOp)      { e.code = append(e.code, byte(o)) }
func (e *argEncoder) u8(v uint8)      { e.code = append(e.code, v) }
func (e *argEncoder) u16(v uint16) {
	var b [2]byte
	binary.BigEndian.PutUint16(b[:], v)
	e.code = append(e.code, b[:]...)
}
func (e *argEncoder) u32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	e.code = append(e.code, b[:]...)
}

// ArgSpecSlot describes one parameter/local the spec compiler reads
// out of a function's argument-spec block (spec.md §4.8).
type ArgSpecSlot struct {
	Atom     AtomID
	Local    bool // a local/unbound word rather than a parameter
	Optional bool // a /refinement-style optional parameter
	Literal  bool // 'word-style pass-by-literal parameter
	Types    Cell // a typeset cell constraining this slot, or zero value for "any"

	// VariantTag, when non-zero, emits an OpVariant ahead of this slot
	// carrying the branch id a multi-signature native picks its
	// implementation by (e.g. an `either`-shaped intrinsic compiled
	// from more than one argument permutation). Zero means "no variant
	// marker here".
	VariantTag uint8
}

// CompileArgProgram emits the byte program for slots in declaration
// order: each parameter fetches or lit-fetches its argument and
// optionally checks it against a typeset, each local gets cleared to
// None, and
// refinement groups are wrapped in OPTION so a caller that omits the
// refinement skips straight past its parameters (spec.md §4.8).
func CompileArgProgram(slots []ArgSpecSlot) *ArgProgram {
	e := &argEncoder{}
	for _, s := range slots {
		if s.VariantTag != 0 {
			e.op(OpVariant)
			e.u8(s.VariantTag)
		}
		switch {
		case s.Local:
			if s.Optional {
				e.op(OpClearLocalOpt)
			} else {
				e.op(OpClearLocal)
			}
			e.u16(uint16(s.Atom))
		case s.Optional:
			e.op(OpOption)
			e.u16(uint16(s.Atom))
		case s.Literal:
			e.op(OpLitArg)
			e.u16(uint16(s.Atom))
			emitCheck(e, s)
		default:
			e.op(OpFetchArg)
			e.u16(uint16(s.Atom))
			emitCheck(e, s)
		}
	}
	e.op(OpEnd)
	return &ArgProgram{Code: e.code}
}

func emitCheck(e *argEncoder, s ArgSpecSlot) {
	if s.Types.Kind != DatatypeDatatype {
		return
	}
	if single, ok := s.Types.SingleType(); ok {
		e.op(OpCheckArg)
		e.u8(uint8(single))
		return
	}
	e.op(OpCheckArgMask)
	e.u32(uint32(s.Types.a))
	e.u32(uint32(s.Types.b))
}

// ArgFrame is the per-call state ArgProgram.Exec reads arguments from and
// writes locals/parameters into: positional argument cells supplied
// by the caller, which refinements were used, and the callee's local
// context buffer to bind each resolved slot into.
type ArgFrame struct {
	Env       *Env
	Thread    *Thread
	Args      []Cell
	Refinements map[AtomID]bool
	LocalsBuf int32

	// Variant is set by the most recently executed OpVariant and read
	// back by the caller (the native dispatch the program was compiled
	// for) to pick which branch of a multi-signature callable applies.
	Variant uint8

	argIdx int
}

// Exec runs p against frame, binding every parameter/local into
// frame.LocalsBuf, and reports a type error if a CHECK_ARG(_MASK)
// fails (spec.md §4.8).
func (p *ArgProgram) Exec(frame *ArgFrame) error {
	locals := frame.Env.Buffer(frame.Thread, frame.LocalsBuf)
	code := p.Code
	i := 0
	var pendingAtom AtomID
	skipping := false

	for i < len(code) {
		op := ArgOp(code[i])
		i++
		switch op {
		case OpEnd:
			return nil
		case OpNop, OpNop2:
			// no operands
		case OpVariant:
			frame.Variant = code[i]
			i++
		case OpClearLocal, OpClearLocalOpt:
			atom := AtomID(binary.BigEndian.Uint16(code[i:]))
			i += 2
			idx := ctxAddWord(locals, atom)
			locals.Cells[idx] = NoneCell()
		case OpOption:
			atom := AtomID(binary.BigEndian.Uint16(code[i:]))
			i += 2
			skipping = !frame.Refinements[atom]
			idx := ctxAddWord(locals, atom)
			locals.Cells[idx] = LogicCell(!skipping)
		case OpFetchArg, OpLitArg:
			atom := AtomID(binary.BigEndian.Uint16(code[i:]))
			i += 2
			pendingAtom = atom
			if skipping {
				continue
			}
			if frame.argIdx >= len(frame.Args) {
				return NewError(ErrScript, "missing argument for %s", frame.Env.Atoms.Name(atom))
			}
			val := frame.Args[frame.argIdx]
			frame.argIdx++
			idx := ctxAddWord(locals, atom)
			locals.Cells[idx] = val
		case OpCheckArg:
			want := Datatype(code[i])
			i++
			if skipping {
				continue
			}
			if err := checkArgType(frame, pendingAtom, locals, TypesetCell(want)); err != nil {
				return err
			}
		case OpCheckArgMask:
			w0 := binary.BigEndian.Uint32(code[i:])
			w1 := binary.BigEndian.Uint32(code[i+4:])
			i += 8
			if skipping {
				continue
			}
			mask := Cell{Kind: DatatypeDatatype, a: int32(w0), b: int32(w1), c: -1}
			if err := checkArgType(frame, pendingAtom, locals, mask); err != nil {
				return err
			}
		default:
			return NewError(ErrInternal, "unknown arg opcode %d", op)
		}
	}
	return nil
}

func checkArgType(frame *ArgFrame, atom AtomID, locals *Buffer, want Cell) error {
	idx, ok := ctxLookup(locals, atom)
	if !ok {
		return NewError(ErrInternal, "arg slot for %s missing during type check", frame.Env.Atoms.Name(atom))
	}
	got := locals.Cells[idx]
	if !want.TypesetHas(got.Kind) {
		return NewError(ErrType, "%s does not accept %s", frame.Env.Atoms.Name(atom), got.Kind)
	}
	return nil
}
