package boron

// maxRepeat stands in for the original's 0x7fffffff "no upper bound"
// sentinel used by `any`/`some`.
const maxRepeat = 1<<31 - 1

// ParseBlock interprets a rule block against a Block/Paren/String/File/
// Binary subject (spec.md §4.7). Rule items are live cells, not a
// compiled program: a bare value matches one subject element by
// equality, a datatype!/typeset/bitset! matches by type or membership,
// a word either names a keyword (some/any/opt/to/thru/into/set/break/
// end/skip/bits) or is looked up in the rule context and recursed into,
// '|' separates alternatives, a nested block groups a sub-sequence, a
// set-word/get-word pair captures a subject range, and a paren invokes
// eval. Grounded directly on `urlan/parse_block.c`'s `_parseBlock` and
// `urlan/parse_string.c`'s `_parseBits`.
func ParseBlock(env *Env, thread *Thread, subjectBuf int32, rules []Cell, ctxBuf int32, eval ParenEvaluator) (bool, int32, error) {
	pe := newParseEngine(env, thread, subjectBuf, eval)
	ok, err := pe.matchAlternatives(rules, ctxBuf)
	return ok, pe.pos, err
}

func isRuleKeyword(env *Env, c Cell, name string) bool {
	return c.Kind == DatatypeWord && env.Atoms.Name(c.WordAtom()) == name
}

func splitAlternatives(env *Env, items []Cell) [][]Cell {
	var groups [][]Cell
	var cur []Cell
	for _, c := range items {
		if isRuleKeyword(env, c, "|") {
			groups = append(groups, cur)
			cur = nil
			continue
		}
		cur = append(cur, c)
	}
	groups = append(groups, cur)
	return groups
}

// matchAlternatives tries each '|'-separated group in order, resetting
// the subject position between attempts (spec.md §4.7's choice/commit
// shape -- grounded on vm.go's opChoice, but walking rule cells
// directly rather than compiled offsets).
func (pe *ParseEngine) matchAlternatives(items []Cell, ctxBuf int32) (bool, error) {
	groups := splitAlternatives(pe.env, items)
	start := pe.pos
	for _, g := range groups {
		pe.pos = start
		ok, err := pe.matchGroup(g, ctxBuf)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	pe.pos = start
	return false, nil
}

func (pe *ParseEngine) matchGroup(items []Cell, ctxBuf int32) (bool, error) {
	j := 0
	for j < len(items) {
		item := items[j]
		switch {
		case isRuleKeyword(pe.env, item, "end"):
			if !pe.atEnd() {
				return false, nil
			}
			j++

		case isRuleKeyword(pe.env, item, "skip"):
			if pe.atEnd() {
				return false, nil
			}
			pe.pos++
			j++

		case isRuleKeyword(pe.env, item, "break"):
			pe.broke = true
			return true, nil

		case isRuleKeyword(pe.env, item, "some"):
			sub, nj, err := requireNext(items, j, "some")
			if err != nil {
				return false, err
			}
			ok, err := pe.matchRepeat(sub, 1, maxRepeat, ctxBuf)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			j = nj

		case isRuleKeyword(pe.env, item, "any"):
			sub, nj, err := requireNext(items, j, "any")
			if err != nil {
				return false, err
			}
			if _, err := pe.matchRepeat(sub, 0, maxRepeat, ctxBuf); err != nil {
				return false, err
			}
			j = nj

		case isRuleKeyword(pe.env, item, "opt"):
			sub, nj, err := requireNext(items, j, "opt")
			if err != nil {
				return false, err
			}
			if _, err := pe.matchOneIgnoreFail(sub, ctxBuf); err != nil {
				return false, err
			}
			pe.broke = false
			j = nj

		case isRuleKeyword(pe.env, item, "to") || isRuleKeyword(pe.env, item, "thru"):
			consume := isRuleKeyword(pe.env, item, "thru")
			target, nj, err := requireNext(items, j, "to/thru")
			if err != nil {
				return false, err
			}
			ok, err := pe.scanTo(target, ctxBuf, consume)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			j = nj

		case isRuleKeyword(pe.env, item, "into"):
			sub, nj, err := requireNext(items, j, "into")
			if err != nil {
				return false, err
			}
			if sub.Kind != DatatypeBlock {
				return false, NewError(ErrSyntax, "parse into expects a block rule")
			}
			ok, err := pe.matchInto(sub, ctxBuf)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			j = nj

		case isRuleKeyword(pe.env, item, "set"):
			nameItem, nj, err := requireNext(items, j, "set")
			if err != nil {
				return false, err
			}
			if nameItem.Kind != DatatypeWord {
				return false, NewError(ErrSyntax, "parse set expects a word")
			}
			if pe.atEnd() {
				return false, nil
			}
			buf := pe.env.Buffer(pe.thread, pe.subjectBuf)
			cur, err := pe.peekSubject(buf)
			if err != nil {
				return false, err
			}
			pe.bindValue(ctxBuf, nameItem.WordAtom(), cur)
			j = nj

		case isRuleKeyword(pe.env, item, "bits"):
			sub, nj, err := requireNext(items, j, "bits")
			if err != nil {
				return false, err
			}
			if sub.Kind != DatatypeBlock {
				return false, NewError(ErrSyntax, "bits rule expects a block")
			}
			fbuf := pe.env.Buffer(pe.thread, sub.BufferID())
			fields := NewSeries(&fbuf.Cells).Slice(sub.Iter(), sub.SliceEnd())
			newPos, err := ParseBits(pe.env, pe.thread, pe.subjectBuf, pe.pos, fields, ctxBuf)
			if err != nil {
				return false, err
			}
			pe.pos = newPos
			j = nj

		case item.Kind == DatatypeInt:
			minN := int(item.Int())
			nj := j + 1
			maxN := minN
			if nj < len(items) && items[nj].Kind == DatatypeInt {
				maxN = int(items[nj].Int())
				nj++
			}
			if nj >= len(items) {
				return false, NewError(ErrSyntax, "repeat count requires a following rule")
			}
			if isRuleKeyword(pe.env, items[nj], "skip") {
				if minN < 0 || pe.pos+int32(minN) > pe.used {
					return false, nil
				}
				pe.pos += int32(minN)
				j = nj + 1
				continue
			}
			ok, err := pe.matchRepeat(items[nj], minN, maxN, ctxBuf)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			j = nj + 1

		case item.Kind == DatatypeSetWord:
			pe.startCapture(ctxBuf, item.WordAtom())
			j++

		case item.Kind == DatatypeGetWord:
			pe.extendCapture(ctxBuf, item.WordAtom())
			j++

		case item.Kind == DatatypeParen:
			if pe.eval == nil {
				return false, NewError(ErrScript, "parse rule contains a paren but no evaluator is registered")
			}
			if err := pe.eval(pe.env, pe.thread, item); err != nil {
				return false, err
			}
			pe.used = subjectLen(pe.env.Buffer(pe.thread, pe.subjectBuf))
			j++

		default:
			ok, err := pe.matchOne(item, ctxBuf)
			if err != nil {
				return false, err
			}
			if !ok {
				return false, nil
			}
			pe.broke = false
			j++
		}
	}
	return true, nil
}

func requireNext(items []Cell, j int, kw string) (Cell, int, error) {
	if j+1 >= len(items) {
		return Cell{}, 0, NewError(ErrSyntax, "%q requires a following rule", kw)
	}
	return items[j+1], j + 2, nil
}

func (pe *ParseEngine) matchOneIgnoreFail(item Cell, ctxBuf int32) (bool, error) {
	start := pe.pos
	ok, err := pe.matchOne(item, ctxBuf)
	if err != nil {
		return false, err
	}
	if !ok {
		pe.pos = start
	}
	return ok, nil
}

// matchRepeat applies sub repeatedly (spec.md §4.7's `some`/`any`/
// `N rule`/`N M rule` forms), stopping at max matches, a failed match,
// or a `break` inside sub -- in which case this iteration still counts
// before the loop stops, matching `urlan/parse_block.c`'s repeat-loop
// PARSE_EX_BREAK handling.
func (pe *ParseEngine) matchRepeat(sub Cell, min, max int, ctxBuf int32) (bool, error) {
	count := 0
	for count < max {
		ok, err := pe.matchOne(sub, ctxBuf)
		if err != nil {
			return false, err
		}
		if !ok {
			break
		}
		count++
		if pe.broke {
			pe.broke = false
			break
		}
	}
	return count >= min, nil
}

// startCapture marks pos as the start of a named capture, initially
// spanning to the end of the subject (spec.md §4.7's setword row); a
// later get-word with the same name narrows the end to the cursor at
// that point. Grounded on `urlan/parse_block.c`'s UT_SETWORD case,
// which sets `end = pe->inputEnd` rather than the end of any
// particular following rule.
func (pe *ParseEngine) startCapture(ctxBuf int32, atom AtomID) {
	ctx := pe.env.Buffer(pe.thread, ctxBuf)
	if ctx == nil {
		return
	}
	subject := pe.env.Buffer(pe.thread, pe.subjectBuf)
	capCell := seriesCell(subject.Kind, pe.subjectBuf, pe.pos, subjectLen(subject))
	idx := ctxAddWord(ctx, atom)
	ctx.Cells[idx] = capCell
}

// extendCapture narrows a capture started by startCapture to end at
// the current cursor (spec.md §4.7's getword row); a get-word whose
// name was never captured against this subject is a no-op, matching
// the original's buffer-identity check.
func (pe *ParseEngine) extendCapture(ctxBuf int32, atom AtomID) {
	ctx := pe.env.Buffer(pe.thread, ctxBuf)
	if ctx == nil {
		return
	}
	idx, ok := ctxLookup(ctx, atom)
	if !ok {
		return
	}
	cell := ctx.Cells[idx]
	if !cell.Kind.isSeries() || cell.BufferID() != pe.subjectBuf {
		return
	}
	ctx.Cells[idx] = cell.WithEnd(pe.pos)
}

// bindValue stores val itself (not a capture slice) into ctxBuf under
// atom, for the `set name` rule form -- it does not advance the
// cursor, matching `urlan/parse_block.c`'s UR_ATOM_SET case.
func (pe *ParseEngine) bindValue(ctxBuf int32, atom AtomID, val Cell) {
	ctx := pe.env.Buffer(pe.thread, ctxBuf)
	if ctx == nil {
		return
	}
	idx := ctxAddWord(ctx, atom)
	ctx.Cells[idx] = val
}

// scanTo advances the cursor to (to) or past (thru) the first subject
// element matching target -- a datatype/typeset, a bitset!, a word
// bound to one of those, or a literal value (spec.md §4.7's to/thru
// row). Grounded on `urlan/parse_block.c`'s UR_ATOM_TO/UR_ATOM_THRU.
func (pe *ParseEngine) scanTo(target Cell, ctxBuf int32, consume bool) (bool, error) {
	val := target
	if target.Kind == DatatypeWord {
		ctx := pe.env.Buffer(pe.thread, ctxBuf)
		if v, ok := ctxValue(ctx, target.WordAtom()); ok {
			val = v
		}
	}
	buf := pe.env.Buffer(pe.thread, pe.subjectBuf)
	if buf == nil {
		return false, NewError(ErrInternal, "dangling parse subject")
	}
	for pe.pos < pe.used {
		cur, err := pe.peekSubject(buf)
		if err != nil {
			return false, err
		}
		if matchesTarget(pe.env, pe.thread, val, cur) {
			if consume {
				pe.pos++
			}
			return true, nil
		}
		pe.pos++
	}
	return false, nil
}

// matchInto descends a fresh engine into the non-shared block-like
// value at the cursor and applies rule to its cells, consuming one
// outer-subject element on success (spec.md §4.7's `into` row).
// Grounded on `urlan/parse_block.c`'s UR_ATOM_INTO.
func (pe *ParseEngine) matchInto(rule Cell, ctxBuf int32) (bool, error) {
	if pe.atEnd() {
		return false, nil
	}
	buf := pe.env.Buffer(pe.thread, pe.subjectBuf)
	cur, err := pe.peekSubject(buf)
	if err != nil {
		return false, err
	}
	if !isBlockLike(cur.Kind) || IsShared(cur.BufferID()) {
		return false, nil
	}
	inner := newParseEngine(pe.env, pe.thread, cur.BufferID(), pe.eval)
	inner.pos = cur.Iter()
	if cur.SliceEnd() >= 0 {
		inner.used = cur.SliceEnd()
	}
	rulesBuf := pe.env.Buffer(pe.thread, rule.BufferID())
	rules := NewSeries(&rulesBuf.Cells).Slice(rule.Iter(), rule.SliceEnd())
	ok, err := inner.matchAlternatives(rules, ctxBuf)
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	pe.pos++
	return true, nil
}

func (pe *ParseEngine) matchOne(item Cell, ctxBuf int32) (bool, error) {
	switch {
	case item.Kind == DatatypeBlock || item.Kind == DatatypeParen:
		buf := pe.env.Buffer(pe.thread, item.BufferID())
		items := NewSeries(&buf.Cells).Slice(item.Iter(), item.SliceEnd())
		return pe.matchAlternatives(items, ctxBuf)
	case item.Kind == DatatypeWord:
		ctx := pe.env.Buffer(pe.thread, ctxBuf)
		val, ok := ctxValue(ctx, item.WordAtom())
		if !ok {
			return false, NewError(ErrScript, "undefined parse rule word %q", pe.env.Atoms.Name(item.WordAtom()))
		}
		if val.Kind == DatatypeBlock {
			sub := pe.env.Buffer(pe.thread, val.BufferID())
			items := NewSeries(&sub.Cells).Slice(val.Iter(), val.SliceEnd())
			return pe.matchAlternatives(items, ctxBuf)
		}
		return pe.matchLiteral(val)
	default:
		return pe.matchLiteral(item)
	}
}

// matchLiteral matches a bare value against the current subject
// position: a datatype!/typeset matches by element type, a bitset!
// matches by membership, a string/binary literal against a matching
// subject matches a run of elements, anything else matches one element
// by value equality.
func (pe *ParseEngine) matchLiteral(val Cell) (bool, error) {
	buf := pe.env.Buffer(pe.thread, pe.subjectBuf)
	if buf == nil {
		return false, NewError(ErrInternal, "dangling parse subject")
	}

	if val.Kind == DatatypeString && (buf.Kind == DatatypeString || buf.Kind == DatatypeFile) {
		return pe.matchStringRun(buf, val), nil
	}
	if val.Kind == DatatypeBinary && buf.Kind == DatatypeBinary {
		return pe.matchBinaryRun(buf, val), nil
	}

	if pe.atEnd() {
		return false, nil
	}
	cur, err := pe.peekSubject(buf)
	if err != nil {
		return false, err
	}
	if matchesTarget(pe.env, pe.thread, val, cur) {
		pe.pos++
		return true, nil
	}
	return false, nil
}

// matchesTarget implements one element-vs-rule-value test shared by
// matchLiteral and scanTo: datatype!/typeset by type, bitset! by
// membership, everything else by cellsEqual.
func matchesTarget(env *Env, thread *Thread, val, cur Cell) bool {
	switch val.Kind {
	case DatatypeDatatype:
		return val.TypesetHas(cur.Kind)
	case DatatypeBitset:
		return bitsetMatchesCell(env, thread, val, cur)
	default:
		return cellsEqual(env, cur, val)
	}
}

// bitsetMatchesCell reports whether cur (a char or byte element) is a
// member of the bitset! value bs.
func bitsetMatchesCell(env *Env, thread *Thread, bs, cur Cell) bool {
	buf := env.Buffer(thread, bs.BufferID())
	if buf == nil {
		return false
	}
	switch cur.Kind {
	case DatatypeChar:
		return bitsetHas(buf, cur.Char())
	case DatatypeInt:
		return bitsetHas(buf, rune(cur.Int()))
	default:
		return false
	}
}

func (pe *ParseEngine) peekSubject(buf *Buffer) (Cell, error) {
	switch buf.Kind {
	case DatatypeBlock, DatatypeParen:
		return buf.Cells[pe.pos], nil
	case DatatypeString, DatatypeFile:
		return CharCell(stringAt(buf, pe.pos)), nil
	case DatatypeBinary:
		return IntCell(int64(buf.Bytes[pe.pos])), nil
	default:
		return Cell{}, NewError(ErrType, "%s cannot be a parse subject", buf.Kind)
	}
}

func (pe *ParseEngine) matchStringRun(buf *Buffer, lit Cell) bool {
	needleBuf := pe.env.Buffer(pe.thread, lit.BufferID())
	n := stringLen(needleBuf)
	if pe.pos+n > stringLen(buf) {
		return false
	}
	for i := int32(0); i < n; i++ {
		if pe.pos+i >= stringLen(buf) || stringAt(buf, pe.pos+i) != stringAt(needleBuf, i) {
			return false
		}
	}
	pe.pos += n
	return true
}

func (pe *ParseEngine) matchBinaryRun(buf *Buffer, lit Cell) bool {
	needleBuf := pe.env.Buffer(pe.thread, lit.BufferID())
	n := int32(len(needleBuf.Bytes))
	if pe.pos+n > int32(len(buf.Bytes)) {
		return false
	}
	for i := int32(0); i < n; i++ {
		if buf.Bytes[pe.pos+i] != needleBuf.Bytes[i] {
			return false
		}
	}
	pe.pos += n
	return true
}

// cellsEqual compares two cells for parse/select equality: a
// registered TypeOps.Compare wins, otherwise the built-in scalar kinds
// compare their raw payload, coord/vec3/timecode compare their
// components, and everything else compares the a/b/c fields (for a
// series: buffer id, iterator and end).
func cellsEqual(env *Env, a, b Cell) bool {
	if a.Kind != b.Kind {
		return false
	}
	if ops := opsFor(a.Kind); ops != nil && ops.Compare != nil {
		return ops.Compare(env, a, b, CompareStrict) == 0
	}
	switch a.Kind {
	case DatatypeChar, DatatypeInt, DatatypeLogic:
		return a.i == b.i
	case DatatypeDouble, DatatypeTime, DatatypeDate:
		return a.i == b.i
	case DatatypeWord, DatatypeLitWord, DatatypeSetWord, DatatypeGetWord, DatatypeOption:
		return a.WordAtom() == b.WordAtom()
	case DatatypeCoord, DatatypeVec3, DatatypeTimecode:
		return a.a == b.a && a.coord == b.coord && a.xyz == b.xyz
	default:
		return a.a == b.a && a.b == b.b && a.c == b.c
	}
}
