package bmff

// Writer builds a box tree into an in-memory buffer. Container boxes are
// framed with StartBox/EndBox, which back-patches the size once every child
// has been written; leaf boxes whose size is known up front are emitted in a
// single call (WriteFtyp, WriteMvhd, ...). The top-level mp4.Writer emits
// mdat the second way, through StartBoxSized with its size known up front.
type Writer struct {
	buf   []byte
	stack []int // header start offsets of open (unpatched) container boxes
}

// NewWriter creates a Writer that appends to buf (buf[:0] is a common way to
// reuse a backing array).
func NewWriter(buf []byte) Writer {
	return Writer{buf: buf[:0]}
}

// Bytes returns the buffer written so far. Must only be called with no open
// (unclosed) StartBox calls.
func (w *Writer) Bytes() []byte { return w.buf }

// Len returns the number of bytes written so far.
func (w *Writer) Len() int { return len(w.buf) }

func (w *Writer) grow(n int) []byte {
	start := len(w.buf)
	need := start + n
	if cap(w.buf) < need {
		nb := make([]byte, start, need*2+64)
		copy(nb, w.buf)
		w.buf = nb
	}
	w.buf = w.buf[:need]
	return w.buf[start:need]
}

func (w *Writer) putUint16(v uint16) { be.PutUint16(w.grow(2), v) }
func (w *Writer) putUint32(v uint32) { be.PutUint32(w.grow(4), v) }
func (w *Writer) putUint64(v uint64) { be.PutUint64(w.grow(8), v) }
func (w *Writer) putByte(b byte)     { w.grow(1)[0] = b }
func (w *Writer) putBytes(b []byte)  { copy(w.grow(len(b)), b) }
func (w *Writer) putZero(n int)      { clearBytes(w.grow(n), 0, n) }

func (w *Writer) putFixedU8(v FixedPointU8)   { w.putUint16(v.RawValue()) }
func (w *Writer) putFixedI8(v FixedPointI8)   { w.putUint16(uint16(v.RawValue())) }
func (w *Writer) putFixedU16(v FixedPointU16) { w.putUint32(v.RawValue()) }

func (w *Writer) putMatrix(m Matrix) {
	var raw [36]byte
	m.Encode(raw[:])
	w.putBytes(raw[:])
}

func (w *Writer) putFullHeader(version uint8, flags uint32) {
	w.putByte(version)
	w.putByte(byte(flags >> 16))
	w.putByte(byte(flags >> 8))
	w.putByte(byte(flags))
}

// StartBox opens a container box: writes a placeholder header and pushes its
// start offset so EndBox can patch in the final size.
func (w *Writer) StartBox(t BoxType) {
	w.stack = append(w.stack, len(w.buf))
	w.putUint32(0)
	w.putBytes(t[:])
}

// StartFullBox opens a container-shaped full box (rare; most full boxes in
// this codec are closed-form leaves written in one call).
func (w *Writer) StartFullBox(t BoxType, version uint8, flags uint32) {
	w.StartBox(t)
	w.putFullHeader(version, flags)
}

// EndBox closes the most recently opened StartBox, back-patching its size.
func (w *Writer) EndBox() {
	start := w.stack[len(w.stack)-1]
	w.stack = w.stack[:len(w.stack)-1]
	size := len(w.buf) - start
	be.PutUint32(w.buf[start:start+4], uint32(size))
}

// Depth returns the number of currently open (unpatched) boxes.
func (w *Writer) Depth() int { return len(w.stack) }

// WriteRaw appends b verbatim. Used by callers assembling a box's payload
// field by field outside this package (e.g. package mp4's moov builder).
func (w *Writer) WriteRaw(b []byte) { w.putBytes(b) }

// WriteU16 appends a big-endian uint16.
func (w *Writer) WriteU16(v uint16) { w.putUint16(v) }

// WriteU32 appends a big-endian uint32.
func (w *Writer) WriteU32(v uint32) { w.putUint32(v) }

// WriteU64 appends a big-endian uint64.
func (w *Writer) WriteU64(v uint64) { w.putUint64(v) }

// WriteZero appends n zero bytes.
func (w *Writer) WriteZero(n int) { w.putZero(n) }

// WriteFullBoxHeader appends the version/flags full-box extension.
func (w *Writer) WriteFullBoxHeader(version uint8, flags uint32) { w.putFullHeader(version, flags) }

// --- file-level ---

// WriteFtyp writes a complete ftyp (or styp) box.
func (w *Writer) WriteFtyp(t BoxType, major BoxType, minorVersion uint32, compatible []BoxType) {
	size := 8 + 4 + 4 + 4*len(compatible)
	w.StartBoxSized(t, size)
	w.putBytes(major[:])
	w.putUint32(minorVersion)
	for _, c := range compatible {
		w.putBytes(c[:])
	}
}

// StartBoxSized writes a box header with a size known up front (no back-patch
// needed), leaving the caller to fill in exactly size-HeaderLenForSize(size)
// more bytes.
func (w *Writer) StartBoxSized(t BoxType, size int) {
	w.grow(HeaderLenForSize(uint64(size)))
	WriteHeader(w.buf[len(w.buf)-HeaderLenForSize(uint64(size)):], 0, t, uint64(size))
}

// --- movie header / track header / media header ---

// WriteMvhd writes a complete mvhd box. Version 1 is used automatically when
// duration, ctime, or mtime overflow 32 bits.
func (w *Writer) WriteMvhd(ctime, mtime uint64, timescale uint32, duration uint64, rate FixedPointU16, volume FixedPointU8, matrix Matrix, nextTrackID uint32) {
	version := uint8(0)
	if ctime > 0xFFFFFFFF || mtime > 0xFFFFFFFF || duration > 0xFFFFFFFF {
		version = 1
	}
	var body int
	if version == 1 {
		body = 8 + 8 + 4 + 8 // ctime8 mtime8 timescale4 duration8
	} else {
		body = 4 + 4 + 4 + 4 // ctime4 mtime4 timescale4 duration4
	}
	body += 4 + 2 + 10 + 36 + 24 + 4 // rate, volume, reserved, matrix, predefined, next_track_id
	total := 8 + 4 + body

	w.StartBoxSized(TypeMvhd, total)
	w.putFullHeader(version, 0)
	if version == 1 {
		w.putUint64(ctime)
		w.putUint64(mtime)
		w.putUint32(timescale)
		w.putUint64(duration)
	} else {
		w.putUint32(uint32(ctime))
		w.putUint32(uint32(mtime))
		w.putUint32(timescale)
		w.putUint32(uint32(duration))
	}
	w.putFixedU16(rate)
	w.putFixedU8(volume)
	w.putZero(10)
	w.putMatrix(matrix)
	w.putZero(24)
	w.putUint32(nextTrackID)
}

// WriteTkhd writes a complete tkhd box.
func (w *Writer) WriteTkhd(flags uint32, ctime, mtime uint64, trackID uint32, duration uint64, layer, alternateGroup int16, volume FixedPointU8, matrix Matrix, width, height FixedPointU16) {
	version := uint8(0)
	if ctime > 0xFFFFFFFF || mtime > 0xFFFFFFFF || duration > 0xFFFFFFFF {
		version = 1
	}
	var body int
	if version == 1 {
		body = 8 + 8 + 4 + 4 + 8 // ctime mtime trackID reserved duration
	} else {
		body = 4 + 4 + 4 + 4 + 4
	}
	body += 8 + 2 + 2 + 2 + 2 + 36 + 4 + 4 // reserved2, layer, alt_group, volume, reserved, matrix, width, height
	total := 8 + 4 + body

	w.StartBoxSized(TypeTkhd, total)
	w.putFullHeader(version, flags)
	if version == 1 {
		w.putUint64(ctime)
		w.putUint64(mtime)
		w.putUint32(trackID)
		w.putZero(4)
		w.putUint64(duration)
	} else {
		w.putUint32(uint32(ctime))
		w.putUint32(uint32(mtime))
		w.putUint32(trackID)
		w.putZero(4)
		w.putUint32(uint32(duration))
	}
	w.putZero(8)
	w.putUint16(uint16(layer))
	w.putUint16(uint16(alternateGroup))
	w.putFixedU8(volume)
	w.putZero(2)
	w.putMatrix(matrix)
	w.putFixedU16(width)
	w.putFixedU16(height)
}

// WriteMdhd writes a complete mdhd box.
func (w *Writer) WriteMdhd(ctime, mtime uint64, timescale uint32, duration uint64, lang Language) {
	version := uint8(0)
	if ctime > 0xFFFFFFFF || mtime > 0xFFFFFFFF || duration > 0xFFFFFFFF {
		version = 1
	}
	var body int
	if version == 1 {
		body = 8 + 8 + 4 + 8
	} else {
		body = 4 + 4 + 4 + 4
	}
	body += 2 + 2 // language, pre_defined
	total := 8 + 4 + body

	w.StartBoxSized(TypeMdhd, total)
	w.putFullHeader(version, 0)
	if version == 1 {
		w.putUint64(ctime)
		w.putUint64(mtime)
		w.putUint32(timescale)
		w.putUint64(duration)
	} else {
		w.putUint32(uint32(ctime))
		w.putUint32(uint32(mtime))
		w.putUint32(timescale)
		w.putUint32(uint32(duration))
	}
	raw, err := lang.Encode()
	if err != nil {
		raw = 0x55c4 // "und", guaranteed encodable; Encode only fails on out-of-range letters
	}
	w.putUint16(raw)
	w.putZero(2)
}

// WriteHdlr writes a complete hdlr box.
func (w *Writer) WriteHdlr(handlerType BoxType, name string) {
	nameBytes := append([]byte(name), 0)
	total := 8 + 4 + 4 + 12 + len(nameBytes)
	w.StartBoxSized(TypeHdlr, total)
	w.putFullHeader(0, 0)
	w.putZero(4) // pre_defined
	w.putBytes(handlerType[:])
	w.putZero(12) // reserved
	w.putBytes(nameBytes)
}

// --- media header variants ---

// WriteVmhd writes a complete vmhd box.
func (w *Writer) WriteVmhd(graphicsMode uint16, opcolor [3]uint16) {
	total := 8 + 4 + 2 + 6
	w.StartBoxSized(TypeVmhd, total)
	w.putFullHeader(0, 1)
	w.putUint16(graphicsMode)
	for _, c := range opcolor {
		w.putUint16(c)
	}
}

// WriteSmhd writes a complete smhd box.
func (w *Writer) WriteSmhd(balance FixedPointI8) {
	total := 8 + 4 + 2 + 2
	w.StartBoxSized(TypeSmhd, total)
	w.putFullHeader(0, 0)
	w.putFixedI8(balance)
	w.putZero(2)
}

// WriteHmhd writes a minimal hint-media-header box (fields not otherwise modeled).
func (w *Writer) WriteHmhd() {
	total := 8 + 4 + 16
	w.StartBoxSized(TypeHmhd, total)
	w.putFullHeader(0, 0)
	w.putZero(16)
}

// WriteNmhd writes a null media header box.
func (w *Writer) WriteNmhd() {
	w.StartBoxSized(TypeNmhd, 8+4)
	w.putFullHeader(0, 0)
}

// --- data reference ---

// WriteDrefSelfContained writes a dref box with a single "self-contained"
// url box entry (flags=1, no location string) - the overwhelmingly common case.
func (w *Writer) WriteDrefSelfContained() {
	const urlSize = 8 + 4
	total := 8 + 4 + 4 + urlSize
	w.StartBoxSized(TypeDref, total)
	w.putFullHeader(0, 0)
	w.putUint32(1) // entry_count
	w.StartBoxSized(TypeUrl, urlSize)
	w.putFullHeader(0, 1)
}

// --- fragment boxes ---

// WriteMehd writes a complete mehd box.
func (w *Writer) WriteMehd(fragmentDuration uint64) {
	version := uint8(0)
	size := 4
	if fragmentDuration > 0xFFFFFFFF {
		version = 1
		size = 8
	}
	total := 8 + 4 + size
	w.StartBoxSized(TypeMehd, total)
	w.putFullHeader(version, 0)
	if version == 1 {
		w.putUint64(fragmentDuration)
	} else {
		w.putUint32(uint32(fragmentDuration))
	}
}

// WriteTrex writes a complete trex box.
func (w *Writer) WriteTrex(trackID, defaultSampleDescriptionIndex, defaultSampleDuration, defaultSampleSize, defaultSampleFlags uint32) {
	total := 8 + 4 + 4*5
	w.StartBoxSized(TypeTrex, total)
	w.putFullHeader(0, 0)
	w.putUint32(trackID)
	w.putUint32(defaultSampleDescriptionIndex)
	w.putUint32(defaultSampleDuration)
	w.putUint32(defaultSampleSize)
	w.putUint32(defaultSampleFlags)
}

// WriteMfhd writes a complete mfhd box.
func (w *Writer) WriteMfhd(sequenceNumber uint32) {
	total := 8 + 4 + 4
	w.StartBoxSized(TypeMfhd, total)
	w.putFullHeader(0, 0)
	w.putUint32(sequenceNumber)
}

// WriteTfhd writes a complete tfhd box. flags selects which optional fields
// are present; only the fields whose flag bit is set are taken from the
// arguments.
func (w *Writer) WriteTfhd(flags uint32, trackID uint32, baseDataOffset uint64, sampleDescriptionIndex, defaultSampleDuration, defaultSampleSize, defaultSampleFlags uint32) {
	size := 4
	if flags&TfhdBaseDataOffsetPresent != 0 {
		size += 8
	}
	if flags&TfhdSampleDescriptionIndexPresent != 0 {
		size += 4
	}
	if flags&TfhdDefaultSampleDurationPresent != 0 {
		size += 4
	}
	if flags&TfhdDefaultSampleSizePresent != 0 {
		size += 4
	}
	if flags&TfhdDefaultSampleFlagsPresent != 0 {
		size += 4
	}
	total := 8 + 4 + size
	w.StartBoxSized(TypeTfhd, total)
	w.putFullHeader(0, flags)
	w.putUint32(trackID)
	if flags&TfhdBaseDataOffsetPresent != 0 {
		w.putUint64(baseDataOffset)
	}
	if flags&TfhdSampleDescriptionIndexPresent != 0 {
		w.putUint32(sampleDescriptionIndex)
	}
	if flags&TfhdDefaultSampleDurationPresent != 0 {
		w.putUint32(defaultSampleDuration)
	}
	if flags&TfhdDefaultSampleSizePresent != 0 {
		w.putUint32(defaultSampleSize)
	}
	if flags&TfhdDefaultSampleFlagsPresent != 0 {
		w.putUint32(defaultSampleFlags)
	}
}

// WriteTfdt writes a complete tfdt box, choosing version 1 automatically
// when baseMediaDecodeTime overflows 32 bits.
func (w *Writer) WriteTfdt(baseMediaDecodeTime uint64) {
	version := uint8(0)
	size := 4
	if baseMediaDecodeTime > 0xFFFFFFFF {
		version = 1
		size = 8
	}
	total := 8 + 4 + size
	w.StartBoxSized(TypeTfdt, total)
	w.putFullHeader(version, 0)
	if version == 1 {
		w.putUint64(baseMediaDecodeTime)
	} else {
		w.putUint32(uint32(baseMediaDecodeTime))
	}
}

// WriteEmsg writes a complete emsg box. version selects the wire layout
// (spec.md §4.2): version 0 writes scheme/value strings, then timescale,
// presentation_time_delta, event_duration and id; version 1 writes
// timescale, a 64-bit presentation_time, event_duration and id, then the
// scheme/value strings. message_data follows in both.
func (w *Writer) WriteEmsg(version uint8, timescale, presentationTimeDelta uint32, presentationTime uint64, eventDuration, id uint32, schemeIDURI, value string, messageData []byte) {
	schemeBytes := append([]byte(schemeIDURI), 0)
	valueBytes := append([]byte(value), 0)
	var size int
	if version == 1 {
		size = 4 + 8 + 4 + 4 + len(schemeBytes) + len(valueBytes) + len(messageData)
	} else {
		size = len(schemeBytes) + len(valueBytes) + 4 + 4 + 4 + 4 + len(messageData)
	}
	total := 8 + 4 + size
	w.StartBoxSized(TypeEmsg, total)
	w.putFullHeader(version, 0)
	if version == 1 {
		w.putUint32(timescale)
		w.putUint64(presentationTime)
		w.putUint32(eventDuration)
		w.putUint32(id)
		w.putBytes(schemeBytes)
		w.putBytes(valueBytes)
	} else {
		w.putBytes(schemeBytes)
		w.putBytes(valueBytes)
		w.putUint32(timescale)
		w.putUint32(presentationTimeDelta)
		w.putUint32(eventDuration)
		w.putUint32(id)
	}
	w.putBytes(messageData)
}

// --- data boxes ---

// WriteFree writes a free (or skip) box of the given total size, padded with
// zero bytes.
func (w *Writer) WriteFree(t BoxType, totalSize int) {
	w.StartBoxSized(t, totalSize)
	w.putZero(totalSize - 8)
}
