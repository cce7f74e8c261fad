package boron

import (
	"bytes"
	"encoding/binary"
	"io"
	"math"

	"github.com/klauspost/compress/zstd"
)

// BOR1 is the on-the-wire format spec.md §4.9/§6 describes: a magic
// header, the atom-name blob (so a deserialized value round-trips its
// word spelling without the reader's atom table already matching),
// every buffer a root value transitively reaches, and finally the root
// cell itself. Grounded on the teacher's vm_encoder.go two-pass
// "compute the graph, then emit" shape (there: labels/offsets for a
// compiled program; here: buffer ids for a value graph) and gen.go/
// genc.go's paired encode/decode functions.
//
// Every integer field is a variable-length varint (encoding/binary's
// zigzag Varint for signed values, Uvarint for counts and lengths)
// rather than the teacher's fixed-width fields, since cell payloads here are mostly small signed
// offsets and this halves typical output size; SPEC_FULL.md §4.9.1
// adds an optional zstd envelope on top for large graphs.
const bor1Magic = "BOR1"

const (
	bor1FlagCompressed byte = 1 << 0
)

type SerializeOptions struct {
	// Compress wraps the payload (everything after the 5-byte header)
	// in a zstd frame (SPEC_FULL.md §4.9.1).
	Compress bool
}

// Serialize walks every buffer reachable from root and writes the
// BOR1 stream (spec.md §4.9). Shared (negative-id) buffers are never
// serialized: SPEC_FULL.md's expansion leaves them as a same-session-
// only optimization, since a deserializing process has no way to
// verify a shared buffer it didn't freeze itself is still the one it
// thinks it is; a root that points into shared storage recodes the
// reference as none.
func Serialize(env *Env, thread *Thread, root Cell, opts SerializeOptions) ([]byte, error) {
	var body bytes.Buffer

	writeUvarint(&body, uint64(env.Atoms.Len()))
	for id := AtomID(0); int(id) < env.Atoms.Len(); id++ {
		name := env.Atoms.Name(id)
		writeUvarint(&body, uint64(len(name)))
		body.WriteString(name)
	}

	enc := &serializeState{env: env, thread: thread, ids: map[int32]int32{}}
	enc.walk(root)

	writeUvarint(&body, uint64(len(enc.order)))
	for _, bufID := range enc.order {
		if err := writeBufferRecord(&body, env, thread, bufID, enc.ids); err != nil {
			return nil, err
		}
	}
	writeCell(&body, root, enc.ids)

	var out bytes.Buffer
	out.WriteString(bor1Magic)
	flags := byte(0)
	if opts.Compress {
		flags |= bor1FlagCompressed
	}
	out.WriteByte(flags)

	if opts.Compress {
		zw, err := zstd.NewWriter(&out)
		if err != nil {
			return nil, err
		}
		if _, err := zw.Write(body.Bytes()); err != nil {
			zw.Close()
			return nil, err
		}
		if err := zw.Close(); err != nil {
			return nil, err
		}
	} else {
		out.Write(body.Bytes())
	}
	return out.Bytes(), nil
}

// Deserialize reads a BOR1 stream produced by Serialize, interning
// every atom name into env's atom table and allocating fresh buffers
// in thread's store, then returns the reconstructed root cell.
func Deserialize(env *Env, thread *Thread, data []byte) (Cell, error) {
	if len(data) < 5 || string(data[:4]) != bor1Magic {
		return Cell{}, NewError(ErrSyntax, "not a BOR1 stream")
	}
	flags := data[4]
	payload := data[5:]
	if flags&bor1FlagCompressed != 0 {
		zr, err := zstd.NewReader(bytes.NewReader(payload))
		if err != nil {
			return Cell{}, err
		}
		decoded, err := io.ReadAll(zr)
		zr.Close()
		if err != nil {
			return Cell{}, err
		}
		payload = decoded
	}

	r := bytes.NewReader(payload)
	atomCount, err := binary.ReadUvarint(r)
	if err != nil {
		return Cell{}, err
	}
	atomRemap := make([]AtomID, atomCount)
	for i := range atomRemap {
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return Cell{}, err
		}
		name := make([]byte, n)
		if _, err := io.ReadFull(r, name); err != nil {
			return Cell{}, err
		}
		id, err := env.Intern(string(name))
		if err != nil {
			return Cell{}, err
		}
		atomRemap[i] = id
	}

	bufCount, err := binary.ReadUvarint(r)
	if err != nil {
		return Cell{}, err
	}
	bufIDs := make([]int32, bufCount)
	for i := range bufIDs {
		bufIDs[i] = thread.Gen(1)[0]
	}
	for i := int32(0); i < int32(bufCount); i++ {
		if err := readBufferRecord(r, env, thread, bufIDs[i], bufIDs, atomRemap); err != nil {
			return Cell{}, err
		}
	}
	return readCell(r, bufIDs, atomRemap)
}

// serializeState performs the first pass: assign every transitively
// reachable thread-local buffer a sequential output index, handling
// cycles (a context containing a word bound to its own buffer, a
// block containing itself) by marking a buffer visited before
// recursing into its cells.
type serializeState struct {
	env    *Env
	thread *Thread
	ids    map[int32]int32
	order  []int32
}

func (s *serializeState) walk(c Cell) {
	switch {
	case c.Kind == DatatypeError:
		s.visitBuffer(c.ErrorMsgBuf())
		s.visitBuffer(c.ErrorTraceBuf())
	case c.Kind.isSeries():
		s.visitBuffer(c.BufferID())
	case c.Kind.isWord():
		if c.binding != BindUnbound {
			s.visitBuffer(c.WordContext())
		}
	}
}

func (s *serializeState) visitBuffer(id int32) {
	if id == InvalidBuffer || IsShared(id) {
		return
	}
	if _, ok := s.ids[id]; ok {
		return
	}
	idx := int32(len(s.order))
	s.ids[id] = idx
	s.order = append(s.order, id)
	buf := s.env.Buffer(s.thread, id)
	if buf == nil {
		return
	}
	for _, cell := range buf.Cells {
		s.walk(cell)
	}
}

// remapOut maps a live buffer id to its output index, or -1 for
// "none" (invalid or shared, per Serialize's doc comment).
func remapOut(id int32, ids map[int32]int32) int32 {
	if idx, ok := ids[id]; ok {
		return idx
	}
	return -1
}

// remapIn is remapOut's inverse: an output index back to a freshly
// allocated live buffer id, or InvalidBuffer for -1.
func remapIn(idx int32, bufIDs []int32) int32 {
	if idx < 0 || int(idx) >= len(bufIDs) {
		return InvalidBuffer
	}
	return bufIDs[idx]
}

func writeBufferRecord(w *bytes.Buffer, env *Env, thread *Thread, id int32, ids map[int32]int32) error {
	buf := env.Buffer(thread, id)
	w.WriteByte(byte(buf.Kind))
	w.WriteByte(buf.SubForm)
	w.WriteByte(buf.Flags)

	switch buf.Kind {
	case DatatypeBinary, DatatypeBitset, DatatypeFile:
		writeByteField(w, buf.Bytes)
	case DatatypeString:
		if StringForm(buf.SubForm) == FormUCS2 {
			writeU16Field(w, buf.U16)
		} else {
			writeByteField(w, buf.Bytes)
		}
	case DatatypeVector:
		switch VectorForm(buf.SubForm) {
		case VectorI16, VectorU16:
			writeU16Field(w, buf.U16)
		case VectorF64:
			writeF64Field(w, buf.F64)
		default:
			writeU32Field(w, buf.U32)
		}
	case DatatypeContext:
		writeUvarint(w, uint64(len(buf.Cells)))
		for i, c := range buf.Cells {
			writeUvarint(w, uint64(buf.CtxWords[i]))
			writeCell(w, c, ids)
		}
		writeVarint(w, int64(buf.CtxSorted))
	default: // Block, Paren, Path, LitPath, SetPath, HashMap
		writeUvarint(w, uint64(len(buf.Cells)))
		for _, c := range buf.Cells {
			writeCell(w, c, ids)
		}
	}
	return nil
}

func readBufferRecord(r *bytes.Reader, env *Env, thread *Thread, id int32, bufIDs []int32, atomRemap []AtomID) error {
	kindB, err := r.ReadByte()
	if err != nil {
		return err
	}
	subForm, err := r.ReadByte()
	if err != nil {
		return err
	}
	flags, err := r.ReadByte()
	if err != nil {
		return err
	}
	buf := thread.Store.at(id)
	buf.Kind = Datatype(kindB)
	buf.SubForm = subForm
	buf.Flags = flags

	switch buf.Kind {
	case DatatypeBinary, DatatypeBitset, DatatypeFile:
		bs, err := readByteField(r)
		if err != nil {
			return err
		}
		buf.Bytes = bs
	case DatatypeString:
		if StringForm(buf.SubForm) == FormUCS2 {
			u, err := readU16Field(r)
			if err != nil {
				return err
			}
			buf.U16 = u
		} else {
			bs, err := readByteField(r)
			if err != nil {
				return err
			}
			buf.Bytes = bs
		}
	case DatatypeVector:
		switch VectorForm(buf.SubForm) {
		case VectorI16, VectorU16:
			u, err := readU16Field(r)
			if err != nil {
				return err
			}
			buf.U16 = u
		case VectorF64:
			f, err := readF64Field(r)
			if err != nil {
				return err
			}
			buf.F64 = f
		default:
			u, err := readU32Field(r)
			if err != nil {
				return err
			}
			buf.U32 = u
		}
	case DatatypeContext:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return err
		}
		buf.Cells = make([]Cell, n)
		buf.CtxWords = make([]AtomID, n)
		for i := range buf.Cells {
			atomIdx, err := binary.ReadUvarint(r)
			if err != nil {
				return err
			}
			if int(atomIdx) >= len(atomRemap) {
				return NewError(ErrSyntax, "atom index out of range in context record")
			}
			buf.CtxWords[i] = atomRemap[atomIdx]
			c, err := readCell(r, bufIDs, atomRemap)
			if err != nil {
				return err
			}
			buf.Cells[i] = c
		}
		sorted, err := binary.ReadVarint(r)
		if err != nil {
			return err
		}
		buf.CtxSorted = int32(sorted)
	default:
		n, err := binary.ReadUvarint(r)
		if err != nil {
			return err
		}
		buf.Cells = make([]Cell, n)
		for i := range buf.Cells {
			c, err := readCell(r, bufIDs, atomRemap)
			if err != nil {
				return err
			}
			buf.Cells[i] = c
		}
	}
	return nil
}

// writeCell encodes every cell uniformly as Kind, Flags, binding, and
// the six payload slots (i, a, b, c, coord, xyz), with buffer- and
// atom-bearing fields remapped through ids/atomRemap; this trades a
// few bytes of padding on scalar cells for one code path instead of a
// case per datatype family.
func writeCell(w *bytes.Buffer, c Cell, ids map[int32]int32) {
	w.WriteByte(byte(c.Kind))
	w.WriteByte(byte(c.Flags))
	w.WriteByte(byte(c.binding))
	writeVarint(w, c.i)

	switch {
	case c.Kind.isSeries():
		writeVarint(w, int64(remapOut(c.BufferID(), ids)))
		writeVarint(w, int64(c.Iter()))
		writeVarint(w, int64(c.SliceEnd()))
	case c.Kind.isWord():
		writeVarint(w, int64(remapOut(c.WordContext(), ids)))
		writeVarint(w, int64(c.WordSlot()))
		writeUvarint(w, uint64(c.WordAtom()))
	case c.Kind == DatatypeError:
		writeVarint(w, int64(c.a))
		writeVarint(w, int64(remapOut(c.ErrorMsgBuf(), ids)))
		writeVarint(w, int64(remapOut(c.ErrorTraceBuf(), ids)))
	default:
		writeVarint(w, int64(c.a))
		writeVarint(w, int64(c.b))
		writeVarint(w, int64(c.c))
	}
	for _, v := range c.coord {
		writeVarint(w, int64(v))
	}
	for _, v := range c.xyz {
		writeUvarint(w, uint64(math.Float32bits(v)))
	}
}

func readCell(r *bytes.Reader, bufIDs []int32, atomRemap []AtomID) (Cell, error) {
	kindB, err := r.ReadByte()
	if err != nil {
		return Cell{}, err
	}
	flagsB, err := r.ReadByte()
	if err != nil {
		return Cell{}, err
	}
	bindingB, err := r.ReadByte()
	if err != nil {
		return Cell{}, err
	}
	iVal, err := binary.ReadVarint(r)
	if err != nil {
		return Cell{}, err
	}
	c := Cell{Kind: Datatype(kindB), Flags: CellFlags(flagsB), binding: WordBinding(bindingB), i: iVal}

	switch {
	case c.Kind.isSeries():
		bufIdx, e1 := binary.ReadVarint(r)
		it, e2 := binary.ReadVarint(r)
		end, e3 := binary.ReadVarint(r)
		if e1 != nil || e2 != nil || e3 != nil {
			return Cell{}, NewError(ErrSyntax, "truncated series cell")
		}
		c.a, c.b, c.c = remapIn(int32(bufIdx), bufIDs), int32(it), int32(end)
	case c.Kind.isWord():
		ctxIdx, e1 := binary.ReadVarint(r)
		slot, e2 := binary.ReadVarint(r)
		atomIdx, e3 := binary.ReadUvarint(r)
		if e1 != nil || e2 != nil || e3 != nil {
			return Cell{}, NewError(ErrSyntax, "truncated word cell")
		}
		if int(atomIdx) >= len(atomRemap) {
			return Cell{}, NewError(ErrSyntax, "atom index out of range")
		}
		c.a, c.b, c.c = remapIn(int32(ctxIdx), bufIDs), int32(slot), int32(atomRemap[atomIdx])
	case c.Kind == DatatypeError:
		kind, e1 := binary.ReadVarint(r)
		msgIdx, e2 := binary.ReadVarint(r)
		traceIdx, e3 := binary.ReadVarint(r)
		if e1 != nil || e2 != nil || e3 != nil {
			return Cell{}, NewError(ErrSyntax, "truncated error cell")
		}
		c.a, c.b, c.c = int32(kind), remapIn(int32(msgIdx), bufIDs), remapIn(int32(traceIdx), bufIDs)
	default:
		a, e1 := binary.ReadVarint(r)
		b, e2 := binary.ReadVarint(r)
		cc, e3 := binary.ReadVarint(r)
		if e1 != nil || e2 != nil || e3 != nil {
			return Cell{}, NewError(ErrSyntax, "truncated scalar cell")
		}
		c.a, c.b, c.c = int32(a), int32(b), int32(cc)
	}

	for i := range c.coord {
		v, err := binary.ReadVarint(r)
		if err != nil {
			return Cell{}, err
		}
		c.coord[i] = int16(v)
	}
	for i := range c.xyz {
		bits, err := binary.ReadUvarint(r)
		if err != nil {
			return Cell{}, err
		}
		c.xyz[i] = math.Float32frombits(uint32(bits))
	}
	return c, nil
}

func writeVarint(w *bytes.Buffer, v int64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutVarint(tmp[:], v)
	w.Write(tmp[:n])
}

func writeUvarint(w *bytes.Buffer, v uint64) {
	var tmp [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(tmp[:], v)
	w.Write(tmp[:n])
}

func writeByteField(w *bytes.Buffer, data []byte) {
	writeUvarint(w, uint64(len(data)))
	w.Write(data)
}

func readByteField(r *bytes.Reader) ([]byte, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	out := make([]byte, n)
	if _, err := io.ReadFull(r, out); err != nil {
		return nil, err
	}
	return out, nil
}

func writeU16Field(w *bytes.Buffer, data []uint16) {
	writeUvarint(w, uint64(len(data)))
	for _, v := range data {
		writeUvarint(w, uint64(v))
	}
}

func readU16Field(r *bytes.Reader) ([]uint16, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	out := make([]uint16, n)
	for i := range out {
		v, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		out[i] = uint16(v)
	}
	return out, nil
}

func writeU32Field(w *bytes.Buffer, data []uint32) {
	writeUvarint(w, uint64(len(data)))
	for _, v := range data {
		writeUvarint(w, uint64(v))
	}
}

func readU32Field(r *bytes.Reader) ([]uint32, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		v, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		out[i] = uint32(v)
	}
	return out, nil
}

func writeF64Field(w *bytes.Buffer, data []float64) {
	writeUvarint(w, uint64(len(data)))
	for _, v := range data {
		writeUvarint(w, math.Float64bits(v))
	}
}

func readF64Field(r *bytes.Reader) ([]float64, error) {
	n, err := binary.ReadUvarint(r)
	if err != nil {
		return nil, err
	}
	out := make([]float64, n)
	for i := range out {
		bits, err := binary.ReadUvarint(r)
		if err != nil {
			return nil, err
		}
		out[i] = math.Float64frombits(bits)
	}
	return out, nil
}
