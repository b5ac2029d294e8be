package bmff

// This file holds the sample-table sub-box codecs: iterators for reading
// each run-length/array-encoded table in place (no allocation beyond the
// iterator itself), and bulk encoders used by Writer to emit a complete
// table from an accumulated slice of entries.

// --- stsz: sample sizes ---

// StszIter iterates sample sizes in an stsz box (spec.md §3.3).
type StszIter struct {
	buf        []byte
	sampleSize uint32
	count      uint32
	index      uint32
}

// NewStszIter creates an iterator from stsz box payload (post full-box header).
func NewStszIter(data []byte) StszIter {
	if len(data) < 8 {
		return StszIter{}
	}
	return StszIter{buf: data, sampleSize: be.Uint32(data[0:4]), count: be.Uint32(data[4:8])}
}

// Count returns stsz.sample_count.
func (it *StszIter) Count() uint32 { return it.count }

// UniformSize returns the box's uniform sample_size field (0 if sizes vary).
func (it *StszIter) UniformSize() uint32 { return it.sampleSize }

// Next returns the next sample's size. Returns (0, false) when exhausted.
func (it *StszIter) Next() (uint32, bool) {
	if it.index >= it.count {
		return 0, false
	}
	var size uint32
	if it.sampleSize != 0 {
		size = it.sampleSize
	} else {
		offset := 8 + int(it.index)*4
		if offset+4 > len(it.buf) {
			return 0, false
		}
		size = be.Uint32(it.buf[offset:])
	}
	it.index++
	return size, true
}

// WriteStsz encodes a full stsz box (full-box header + payload) for the
// given explicit per-sample sizes into dst, which must be exactly
// StszEncodingLength(len(sizes)) bytes.
func WriteStsz(dst []byte, sizes []uint32) int {
	WriteHeader(dst, 0, TypeStsz, uint64(StszEncodingLength(len(sizes))))
	WriteFullHeader(dst, 8, FullHeader{})
	be.PutUint32(dst[12:16], 0) // sample_size == 0: sizes vary, array follows
	be.PutUint32(dst[16:20], uint32(len(sizes)))
	for i, s := range sizes {
		be.PutUint32(dst[20+i*4:], s)
	}
	return StszEncodingLength(len(sizes))
}

// StszEncodingLength returns the byte length of an stsz box with n explicit entries.
func StszEncodingLength(n int) int { return 8 + 4 + 4 + 4 + n*4 }

// --- stco / stss: uint32 arrays ---

// Uint32Iter iterates a count-prefixed array of uint32 entries (stco, stss).
type Uint32Iter struct {
	buf   []byte
	count uint32
	index uint32
}

// NewUint32Iter creates an iterator from box payload (post full-box header).
func NewUint32Iter(data []byte) Uint32Iter {
	if len(data) < 4 {
		return Uint32Iter{}
	}
	return Uint32Iter{buf: data, count: be.Uint32(data[0:4])}
}

// Count returns the entry count.
func (it *Uint32Iter) Count() uint32 { return it.count }

// Next returns the next entry. Returns (0, false) when exhausted.
func (it *Uint32Iter) Next() (uint32, bool) {
	if it.index >= it.count {
		return 0, false
	}
	offset := 4 + int(it.index)*4
	if offset+4 > len(it.buf) {
		return 0, false
	}
	v := be.Uint32(it.buf[offset:])
	it.index++
	return v, true
}

// WriteUint32Array encodes a full-box header + count + entries for stco/stss
// into dst, which must be exactly Uint32ArrayEncodingLength(len(entries)) bytes.
func WriteUint32Array(dst []byte, t BoxType, entries []uint32) int {
	n := Uint32ArrayEncodingLength(len(entries))
	WriteHeader(dst, 0, t, uint64(n))
	WriteFullHeader(dst, 8, FullHeader{})
	be.PutUint32(dst[12:16], uint32(len(entries)))
	for i, v := range entries {
		be.PutUint32(dst[16+i*4:], v)
	}
	return n
}

// Uint32ArrayEncodingLength returns the byte length of an stco/stss box with n entries.
func Uint32ArrayEncodingLength(n int) int { return 8 + 4 + 4 + n*4 }

// --- co64: uint64 chunk offsets ---

// Co64Iter iterates 64-bit chunk offsets in a co64 box.
type Co64Iter struct {
	buf   []byte
	count uint32
	index uint32
}

// NewCo64Iter creates an iterator from box payload (post full-box header).
func NewCo64Iter(data []byte) Co64Iter {
	if len(data) < 4 {
		return Co64Iter{}
	}
	return Co64Iter{buf: data, count: be.Uint32(data[0:4])}
}

// Count returns the entry count.
func (it *Co64Iter) Count() uint32 { return it.count }

// Next returns the next offset. Returns (0, false) when exhausted.
func (it *Co64Iter) Next() (uint64, bool) {
	if it.index >= it.count {
		return 0, false
	}
	offset := 4 + int(it.index)*8
	if offset+8 > len(it.buf) {
		return 0, false
	}
	v := be.Uint64(it.buf[offset:])
	it.index++
	return v, true
}

// WriteCo64 encodes a full co64 box into dst, which must be exactly
// Co64EncodingLength(len(entries)) bytes.
func WriteCo64(dst []byte, entries []uint64) int {
	n := Co64EncodingLength(len(entries))
	WriteHeader(dst, 0, TypeCo64, uint64(n))
	WriteFullHeader(dst, 8, FullHeader{})
	be.PutUint32(dst[12:16], uint32(len(entries)))
	for i, v := range entries {
		be.PutUint64(dst[16+i*8:], v)
	}
	return n
}

// Co64EncodingLength returns the byte length of a co64 box with n entries.
func Co64EncodingLength(n int) int { return 8 + 4 + 4 + n*8 }

// FitsStco reports whether every offset fits in 32 bits, i.e. whether a
// co64 table can be downgraded to stco without loss (spec.md §4.2).
func FitsStco(entries []uint64) bool {
	for _, v := range entries {
		if v > 0xFFFFFFFF {
			return false
		}
	}
	return true
}

// --- stts: decoding time-to-sample ---

// SttsEntry is a time-to-sample run: count samples, each with the given delta.
type SttsEntry struct {
	Count uint32
	Delta uint32
}

// SttsIter iterates stts entries.
type SttsIter struct {
	buf   []byte
	count uint32
	index uint32
}

// NewSttsIter creates an iterator from box payload (post full-box header).
func NewSttsIter(data []byte) SttsIter {
	if len(data) < 4 {
		return SttsIter{}
	}
	return SttsIter{buf: data, count: be.Uint32(data[0:4])}
}

// Count returns the number of runs (not samples).
func (it *SttsIter) Count() uint32 { return it.count }

// Next returns the next run. Returns false when exhausted.
func (it *SttsIter) Next() (SttsEntry, bool) {
	if it.index >= it.count {
		return SttsEntry{}, false
	}
	offset := 4 + int(it.index)*8
	if offset+8 > len(it.buf) {
		return SttsEntry{}, false
	}
	e := SttsEntry{Count: be.Uint32(it.buf[offset:]), Delta: be.Uint32(it.buf[offset+4:])}
	it.index++
	return e, true
}

// WriteStts encodes a full stts box into dst, which must be exactly
// SttsEncodingLength(len(entries)) bytes.
func WriteStts(dst []byte, entries []SttsEntry) int {
	n := SttsEncodingLength(len(entries))
	WriteHeader(dst, 0, TypeStts, uint64(n))
	WriteFullHeader(dst, 8, FullHeader{})
	be.PutUint32(dst[12:16], uint32(len(entries)))
	for i, e := range entries {
		be.PutUint32(dst[16+i*8:], e.Count)
		be.PutUint32(dst[20+i*8:], e.Delta)
	}
	return n
}

// SttsEncodingLength returns the byte length of an stts box with n entries.
func SttsEncodingLength(n int) int { return 8 + 4 + 4 + n*8 }

// --- ctts: composition time-to-sample ---

// CttsEntry is a composition-offset run: count samples, each with the given offset.
type CttsEntry struct {
	Count  uint32
	Offset int32 // signed in version 1; unsigned-on-the-wire but reinterpreted signed in version 0
}

// CttsIter iterates ctts entries.
type CttsIter struct {
	buf     []byte
	count   uint32
	index   uint32
	version uint8
}

// NewCttsIter creates an iterator from box payload with the box's version field.
func NewCttsIter(data []byte, version uint8) CttsIter {
	if len(data) < 4 {
		return CttsIter{}
	}
	return CttsIter{buf: data, count: be.Uint32(data[0:4]), version: version}
}

// Count returns the number of runs.
func (it *CttsIter) Count() uint32 { return it.count }

// Next returns the next run. Returns false when exhausted.
func (it *CttsIter) Next() (CttsEntry, bool) {
	if it.index >= it.count {
		return CttsEntry{}, false
	}
	offset := 4 + int(it.index)*8
	if offset+8 > len(it.buf) {
		return CttsEntry{}, false
	}
	e := CttsEntry{
		Count:  be.Uint32(it.buf[offset:]),
		Offset: int32(be.Uint32(it.buf[offset+4:])),
	}
	it.index++
	return e, true
}

// WriteCtts encodes a full ctts box (always version 1, so offsets round-trip
// as signed) into dst, which must be exactly CttsEncodingLength(len(entries)) bytes.
func WriteCtts(dst []byte, entries []CttsEntry) int {
	n := CttsEncodingLength(len(entries))
	WriteHeader(dst, 0, TypeCtts, uint64(n))
	WriteFullHeader(dst, 8, FullHeader{Version: 1})
	be.PutUint32(dst[12:16], uint32(len(entries)))
	for i, e := range entries {
		be.PutUint32(dst[16+i*8:], e.Count)
		be.PutUint32(dst[20+i*8:], uint32(e.Offset))
	}
	return n
}

// CttsEncodingLength returns the byte length of a ctts box with n entries.
func CttsEncodingLength(n int) int { return 8 + 4 + 4 + n*8 }

// --- stsc: sample-to-chunk ---

// StscEntry is a sample-to-chunk run, as stored on the wire (no derived fields).
type StscEntry struct {
	FirstChunk          uint32
	SamplesPerChunk     uint32
	SampleDescriptionID uint32
}

// StscIter iterates stsc entries.
type StscIter struct {
	buf   []byte
	count uint32
	index uint32
}

// NewStscIter creates an iterator from box payload (post full-box header).
func NewStscIter(data []byte) StscIter {
	if len(data) < 4 {
		return StscIter{}
	}
	return StscIter{buf: data, count: be.Uint32(data[0:4])}
}

// Count returns the number of runs.
func (it *StscIter) Count() uint32 { return it.count }

// Next returns the next run. Returns false when exhausted.
func (it *StscIter) Next() (StscEntry, bool) {
	if it.index >= it.count {
		return StscEntry{}, false
	}
	offset := 4 + int(it.index)*12
	if offset+12 > len(it.buf) {
		return StscEntry{}, false
	}
	e := StscEntry{
		FirstChunk:          be.Uint32(it.buf[offset:]),
		SamplesPerChunk:     be.Uint32(it.buf[offset+4:]),
		SampleDescriptionID: be.Uint32(it.buf[offset+8:]),
	}
	it.index++
	return e, true
}

// WriteStsc encodes a full stsc box into dst, which must be exactly
// StscEncodingLength(len(entries)) bytes.
func WriteStsc(dst []byte, entries []StscEntry) int {
	n := StscEncodingLength(len(entries))
	WriteHeader(dst, 0, TypeStsc, uint64(n))
	WriteFullHeader(dst, 8, FullHeader{})
	be.PutUint32(dst[12:16], uint32(len(entries)))
	for i, e := range entries {
		be.PutUint32(dst[16+i*12:], e.FirstChunk)
		be.PutUint32(dst[20+i*12:], e.SamplesPerChunk)
		be.PutUint32(dst[24+i*12:], e.SampleDescriptionID)
	}
	return n
}

// StscEncodingLength returns the byte length of an stsc box with n entries.
func StscEncodingLength(n int) int { return 8 + 4 + 4 + n*12 }

// StscEntryWithFirstSample augments a wire StscEntry with the derived
// first_sample field computed at parse time (spec.md §3.3, §9).
type StscEntryWithFirstSample struct {
	StscEntry
	FirstSample uint64 // 1-based index of the first sample in this run
}

// DeriveStscFirstSamples reads every stsc entry and computes its
// cumulative first_sample, per spec.md §4.2 ("stsc post-process").
func DeriveStscFirstSamples(data []byte) []StscEntryWithFirstSample {
	it := NewStscIter(data)
	out := make([]StscEntryWithFirstSample, 0, it.Count())
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, StscEntryWithFirstSample{StscEntry: e})
	}
	firstSample := uint64(1)
	for i := range out {
		out[i].FirstSample = firstSample
		if i+1 < len(out) {
			firstSample += uint64(out[i+1].FirstChunk-out[i].FirstChunk) * uint64(out[i].SamplesPerChunk)
		}
	}
	return out
}

// --- elst: edit list ---

// ElstEntry is an edit list entry, with 64-bit fields regardless of the
// box's on-wire version so callers don't need to branch.
type ElstEntry struct {
	SegmentDuration uint64
	MediaTime       int64 // -1 means "empty edit"
	MediaRateInt    int16
	MediaRateFrac   int16
}

// ElstIter iterates elst entries.
type ElstIter struct {
	buf     []byte
	count   uint32
	index   uint32
	version uint8
}

// NewElstIter creates an iterator from box payload with the box's version field.
func NewElstIter(data []byte, version uint8) ElstIter {
	if len(data) < 4 {
		return ElstIter{}
	}
	return ElstIter{buf: data, count: be.Uint32(data[0:4]), version: version}
}

// Count returns the number of entries.
func (it *ElstIter) Count() uint32 { return it.count }

func (it *ElstIter) stride() int {
	if it.version == 1 {
		return 20
	}
	return 12
}

// Next returns the next entry. Returns false when exhausted.
func (it *ElstIter) Next() (ElstEntry, bool) {
	if it.index >= it.count {
		return ElstEntry{}, false
	}
	stride := it.stride()
	offset := 4 + int(it.index)*stride
	if offset+stride > len(it.buf) {
		return ElstEntry{}, false
	}
	var e ElstEntry
	if it.version == 1 {
		e.SegmentDuration = be.Uint64(it.buf[offset:])
		e.MediaTime = int64(be.Uint64(it.buf[offset+8:]))
		e.MediaRateInt = int16(be.Uint16(it.buf[offset+16:]))
		e.MediaRateFrac = int16(be.Uint16(it.buf[offset+18:]))
	} else {
		e.SegmentDuration = uint64(be.Uint32(it.buf[offset:]))
		e.MediaTime = int64(int32(be.Uint32(it.buf[offset+4:])))
		e.MediaRateInt = int16(be.Uint16(it.buf[offset+8:]))
		e.MediaRateFrac = int16(be.Uint16(it.buf[offset+10:]))
	}
	it.index++
	return e, true
}

// WriteElst encodes a full elst box into dst. version must be 0 or 1;
// version 0 requires every entry's fields to fit 32 bits.
func WriteElst(dst []byte, version uint8, entries []ElstEntry) int {
	n := ElstEncodingLength(version, len(entries))
	WriteHeader(dst, 0, TypeElst, uint64(n))
	WriteFullHeader(dst, 8, FullHeader{Version: version})
	be.PutUint32(dst[12:16], uint32(len(entries)))
	ptr := 16
	for _, e := range entries {
		if version == 1 {
			be.PutUint64(dst[ptr:], e.SegmentDuration)
			be.PutUint64(dst[ptr+8:], uint64(e.MediaTime))
			be.PutUint16(dst[ptr+16:], uint16(e.MediaRateInt))
			be.PutUint16(dst[ptr+18:], uint16(e.MediaRateFrac))
			ptr += 20
		} else {
			be.PutUint32(dst[ptr:], uint32(e.SegmentDuration))
			be.PutUint32(dst[ptr+4:], uint32(int32(e.MediaTime)))
			be.PutUint16(dst[ptr+8:], uint16(e.MediaRateInt))
			be.PutUint16(dst[ptr+10:], uint16(e.MediaRateFrac))
			ptr += 12
		}
	}
	return n
}

// ElstEncodingLength returns the byte length of an elst box with n entries at the given version.
func ElstEncodingLength(version uint8, n int) int {
	stride := 12
	if version == 1 {
		stride = 20
	}
	return 8 + 4 + 4 + n*stride
}

// --- trun: track run (fragmented files) ---

// Trun optional-field flags (spec.md §4.2, ISO/IEC 14496-12 §8.8.8).
const (
	TrunDataOffsetPresent                  = 0x000001
	TrunFirstSampleFlagsPresent            = 0x000004
	TrunSampleDurationPresent              = 0x000100
	TrunSampleSizePresent                  = 0x000200
	TrunSampleFlagsPresent                 = 0x000400
	TrunSampleCompositionTimeOffsetPresent = 0x000800
)

// Tfhd optional-field flags.
const (
	TfhdBaseDataOffsetPresent         = 0x000001
	TfhdSampleDescriptionIndexPresent = 0x000002
	TfhdDefaultSampleDurationPresent  = 0x000008
	TfhdDefaultSampleSizePresent      = 0x000010
	TfhdDefaultSampleFlagsPresent     = 0x000020
	TfhdDurationIsEmpty               = 0x010000
	TfhdDefaultBaseIsMoof             = 0x020000
)

// TrunEntry is one sample's metadata within a trun; zero value for a field
// means that field was not present in the box (check the flags passed to
// NewTrunIter / TrunIter.Flags to distinguish "absent" from "zero").
type TrunEntry struct {
	Duration              uint32
	Size                  uint32
	Flags                 uint32
	CompositionTimeOffset int32
}

// TrunIter iterates trun sample entries according to the box's flags.
type TrunIter struct {
	buf              []byte
	flags            uint32
	count            uint32
	index            uint32
	dataOffset       int32
	firstSampleFlags uint32
	stride           int
	entriesStart     int
}

// NewTrunIter creates an iterator from box payload (post full-box header)
// with the box's flags (from the full-box header).
func NewTrunIter(data []byte, flags uint32) TrunIter {
	if len(data) < 4 {
		return TrunIter{}
	}
	it := TrunIter{buf: data, flags: flags, count: be.Uint32(data[0:4])}
	ptr := 4
	if flags&TrunDataOffsetPresent != 0 {
		if ptr+4 > len(data) {
			return TrunIter{}
		}
		it.dataOffset = int32(be.Uint32(data[ptr:]))
		ptr += 4
	}
	if flags&TrunFirstSampleFlagsPresent != 0 {
		if ptr+4 > len(data) {
			return TrunIter{}
		}
		it.firstSampleFlags = be.Uint32(data[ptr:])
		ptr += 4
	}
	it.entriesStart = ptr
	if flags&TrunSampleDurationPresent != 0 {
		it.stride += 4
	}
	if flags&TrunSampleSizePresent != 0 {
		it.stride += 4
	}
	if flags&TrunSampleFlagsPresent != 0 {
		it.stride += 4
	}
	if flags&TrunSampleCompositionTimeOffsetPresent != 0 {
		it.stride += 4
	}
	return it
}

// Flags returns the trun's full-box flags.
func (it *TrunIter) Flags() uint32 { return it.flags }

// Count returns the sample count.
func (it *TrunIter) Count() uint32 { return it.count }

// DataOffset returns the trun's data_offset field (valid only if
// Flags()&TrunDataOffsetPresent != 0).
func (it *TrunIter) DataOffset() int32 { return it.dataOffset }

// FirstSampleFlags returns the first sample's override flags (valid only if
// Flags()&TrunFirstSampleFlagsPresent != 0).
func (it *TrunIter) FirstSampleFlags() uint32 { return it.firstSampleFlags }

// Next returns the next sample entry. Returns false when exhausted.
func (it *TrunIter) Next() (TrunEntry, bool) {
	if it.index >= it.count {
		return TrunEntry{}, false
	}
	offset := it.entriesStart + int(it.index)*it.stride
	if offset+it.stride > len(it.buf) {
		return TrunEntry{}, false
	}
	var e TrunEntry
	p := offset
	if it.flags&TrunSampleDurationPresent != 0 {
		e.Duration = be.Uint32(it.buf[p:])
		p += 4
	}
	if it.flags&TrunSampleSizePresent != 0 {
		e.Size = be.Uint32(it.buf[p:])
		p += 4
	}
	if it.flags&TrunSampleFlagsPresent != 0 {
		e.Flags = be.Uint32(it.buf[p:])
		p += 4
	}
	if it.flags&TrunSampleCompositionTimeOffsetPresent != 0 {
		e.CompositionTimeOffset = int32(be.Uint32(it.buf[p:]))
	}
	it.index++
	return e, true
}

// WriteTrun encodes a full trun box into dst. flags controls which optional
// fields are present and must be consistent with every entry in entries.
// firstSampleFlags is written only when flags carries TrunFirstSampleFlagsPresent.
func WriteTrun(dst []byte, version uint8, flags uint32, dataOffset int32, firstSampleFlags uint32, entries []TrunEntry) int {
	stride := 0
	if flags&TrunSampleDurationPresent != 0 {
		stride += 4
	}
	if flags&TrunSampleSizePresent != 0 {
		stride += 4
	}
	if flags&TrunSampleFlagsPresent != 0 {
		stride += 4
	}
	if flags&TrunSampleCompositionTimeOffsetPresent != 0 {
		stride += 4
	}
	n := TrunEncodingLength(flags, stride, len(entries))
	WriteHeader(dst, 0, TypeTrun, uint64(n))
	WriteFullHeader(dst, 8, FullHeader{Version: version, Flags: flags})
	be.PutUint32(dst[12:16], uint32(len(entries)))
	ptr := 16
	if flags&TrunDataOffsetPresent != 0 {
		be.PutUint32(dst[ptr:], uint32(dataOffset))
		ptr += 4
	}
	if flags&TrunFirstSampleFlagsPresent != 0 {
		be.PutUint32(dst[ptr:], firstSampleFlags)
		ptr += 4
	}
	for _, e := range entries {
		p := ptr
		if flags&TrunSampleDurationPresent != 0 {
			be.PutUint32(dst[p:], e.Duration)
			p += 4
		}
		if flags&TrunSampleSizePresent != 0 {
			be.PutUint32(dst[p:], e.Size)
			p += 4
		}
		if flags&TrunSampleFlagsPresent != 0 {
			be.PutUint32(dst[p:], e.Flags)
			p += 4
		}
		if flags&TrunSampleCompositionTimeOffsetPresent != 0 {
			be.PutUint32(dst[p:], uint32(e.CompositionTimeOffset))
		}
		ptr += stride
	}
	return n
}

// TrunEncodingLength returns the byte length of a trun box with n entries of
// the given per-entry stride, honoring the data-offset-present flag.
func TrunEncodingLength(flags uint32, stride, n int) int {
	size := 8 + 4 + 4 // header + version/flags + sample_count
	if flags&TrunDataOffsetPresent != 0 {
		size += 4
	}
	if flags&TrunFirstSampleFlagsPresent != 0 {
		size += 4
	}
	return size + n*stride
}
