package bmff

// Reader is a zero-copy cursor over an in-memory box buffer: a moov, a
// moof, or any other box's payload already loaded into a []byte. It walks
// sibling boxes with Next and descends into a container's children with
// Enter/Exit, leaving the cursor positioned exactly at the start of the
// next sibling on every successful Next, per the scoped-I/O-position
// contract in spec.md §9.
type Reader struct {
	buf   []byte
	pos   int // cursor: start of the box Next will read (after Next, the end of the current box)
	stack []int // end offsets of entered containers, for Exit

	cur      Header
	curStart int // start of cur's header
	curData  int // start of cur's payload (after header, and after full-box ext if any)
	curEnd   int // end of cur's payload (curStart + cur.Size)
	full     FullHeader
	isFull   bool
	err      error
}

// NewReader creates a Reader over buf, starting at its first box.
func NewReader(buf []byte) Reader {
	return Reader{buf: buf, pos: 0, stack: []int{len(buf)}}
}

// scopeEnd returns the end offset of the current container scope.
func (r *Reader) scopeEnd() int { return r.stack[len(r.stack)-1] }

// Next advances to the next sibling box in the current scope. It returns
// false when the scope is exhausted. A header whose declared size would
// overshoot the scope end is dropped silently by returning false; callers
// that need to distinguish "clean end of scope" from "truncated box" should
// call Err after Next returns false.
func (r *Reader) Next() bool {
	r.err = nil
	end := r.scopeEnd()
	if r.pos >= end {
		return false
	}
	h, err := ReadHeader(r.buf, r.pos)
	if err != nil {
		r.err = err
		return false
	}
	size := h.Size
	if size == 0 {
		size = uint64(end - r.pos) // extends to end of containing scope
	}
	boxEnd := r.pos + int(size)
	if size < uint64(h.HeaderLen) || boxEnd > end {
		r.err = ErrOverrun
		return false
	}

	r.cur = h
	r.cur.Size = size
	r.curStart = r.pos
	r.curEnd = boxEnd
	r.curData = r.pos + h.HeaderLen

	r.isFull = IsFullBox(h.Type)
	if r.isFull {
		if r.curData+4 > boxEnd {
			r.err = ErrTruncated
			return false
		}
		r.full = ReadFullHeader(r.buf, r.curData)
		r.curData += 4
	}

	r.pos = boxEnd
	return true
}

// Err returns the error that caused the most recent Next to stop, or nil if
// Next returned false because the scope was simply exhausted.
func (r *Reader) Err() error { return r.err }

// Type returns the current box's type.
func (r *Reader) Type() BoxType { return r.cur.Type }

// Size returns the current box's declared size, header included.
func (r *Reader) Size() uint64 { return r.cur.Size }

// Version returns the current full box's version byte (0 if not a full box).
func (r *Reader) Version() uint8 { return r.full.Version }

// Flags returns the current full box's 24-bit flags (0 if not a full box).
func (r *Reader) Flags() uint32 { return r.full.Flags }

// Data returns the current box's payload, excluding its header and (for
// full boxes) the version/flags extension.
func (r *Reader) Data() []byte { return r.buf[r.curData:r.curEnd] }

// RawBox returns the current box's entire encoded form, header included.
func (r *Reader) RawBox() []byte { return r.buf[r.curStart:r.curEnd] }

// Offset returns the start offset of the current box's header within the buffer.
func (r *Reader) Offset() int { return r.curStart }

// Enter descends into the current box's children: subsequent Next calls
// walk its payload until Exit is called. Must only be called on a
// container box (checked by IsContainerBox at call sites, not enforced here
// so Reader stays usable for ad hoc container-shaped boxes like stsd entries).
func (r *Reader) Enter() {
	r.stack = append(r.stack, r.curEnd)
	r.pos = r.curData
}

// Exit returns the cursor to the parent scope, positioned just after the
// box that was entered, so the parent's Next continues correctly.
func (r *Reader) Exit() {
	end := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	r.pos = end
}

// Skip advances the cursor within the current (entered) scope by n bytes,
// without interpreting them as a box. Used to skip fixed-layout preambles
// (e.g. stsd's entry_count, a sample entry's reserved fields) before
// resuming box-by-box walking.
func (r *Reader) Skip(n int) { r.pos += n }

// Depth returns the current container nesting depth (0 at the top level).
func (r *Reader) Depth() int { return len(r.stack) - 1 }
