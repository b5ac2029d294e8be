// Package track implements the sample-table engine: translating a track's
// parsed stbl tables into per-sample offset, size, and timing lookups
// (spec.md §4.3), on top of the box framing layer in package bmff.
package track

import (
	"encoding/binary"
	"sort"

	"github.com/pkg/errors"

	"github.com/tetsuo/bmff"
)

var be = binary.BigEndian

// Kind classifies a track by its hdlr handler type.
type Kind int

const (
	KindUnknown Kind = iota
	KindVideo
	KindAudio
	KindSubtitle
)

var (
	handlerVide = bmff.BoxType{'v', 'i', 'd', 'e'}
	handlerSoun = bmff.BoxType{'s', 'o', 'u', 'n'}
	handlerSbtl = bmff.BoxType{'s', 'b', 't', 'l'}
	handlerText = bmff.BoxType{'t', 'e', 'x', 't'}
)

func kindOf(handlerType bmff.BoxType) Kind {
	switch handlerType {
	case handlerVide:
		return KindVideo
	case handlerSoun:
		return KindAudio
	case handlerSbtl, handlerText:
		return KindSubtitle
	}
	return KindUnknown
}

// Track is one parsed trak, holding both the fields derived for the reader
// API (spec.md §6) and the raw stbl table bytes the sample engine
// cross-references lazily.
type Track struct {
	ID          uint32
	Kind        Kind
	HandlerType bmff.BoxType
	TimeScale   uint32
	Duration    uint64
	Language    bmff.Language
	Width       bmff.FixedPointU16
	Height      bmff.FixedPointU16

	ChannelCount    uint16
	AudioSampleSize uint16
	SampleRate      uint32 // 16.16 fixed point, high 16 bits are the integral Hz value

	Codec      string
	AvgBitrate uint32
	MaxBitrate uint32

	// Fragmented is true when the enclosing file has a moov/mvex box. Per
	// the fragmented-reads decision (SPEC_FULL.md), the sample engine
	// refuses sample lookups on such tracks; box-tree parsing and dump
	// still work normally.
	Fragmented bool

	stsd stsdTable
	stsz stszTable
	stsc []bmff.StscEntryWithFirstSample
	stco stcoTable
	stts []bmff.SttsEntry
	ctts []bmff.CttsEntry
	stss []byte // raw stss payload (post full-box header), nil if absent
}

type stsdTable struct {
	entries []StsdEntry
}

// StsdEntry is one decoded sample description entry (spec.md's "Open
// question — stsd multiple entries": every entry is kept, selected per
// chunk via stsc.sample_description_index).
type StsdEntry struct {
	Format bmff.BoxType
	Codec  string
}

type stszTable struct {
	uniform uint32
	sizes   []byte // raw stsz payload, sample_size+sample_count included, when uniform == 0
	count   uint32
}

type stcoTable struct {
	is64 bool
	raw  []byte // raw stco/co64 payload (post full-box header, entry_count included)
}

// FindTrack returns the track with the given 1-based ID, or nil.
func FindTrack(tracks []*Track, id uint32) *Track {
	for _, t := range tracks {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// MovieInfo holds the fields of mvhd needed by the top-level reader,
// separate from any one track.
type MovieInfo struct {
	Timescale  uint32
	Duration   uint64
	Fragmented bool
}

// ParseTracks walks a parsed moov payload (moov.Data()) and returns every
// trak it contains along with the movie's mvhd timescale/duration and
// fragmented status (moov/mvex presence), per spec.md §4.4.
func ParseTracks(moovData []byte) ([]*Track, MovieInfo, error) {
	r := bmff.NewReader(moovData)
	var tracks []*Track
	var info MovieInfo

	for r.Next() {
		switch r.Type() {
		case bmff.TypeMvhd:
			info.Timescale, info.Duration = parseMvhdTimescaleDuration(r.Version(), r.Data())
		case bmff.TypeMvex:
			info.Fragmented = true
		case bmff.TypeTrak:
			t, err := parseTrak(r.Data())
			if err != nil {
				return nil, MovieInfo{}, errors.Wrap(err, "track: parsing trak")
			}
			tracks = append(tracks, t)
		}
	}
	if err := r.Err(); err != nil {
		return nil, MovieInfo{}, err
	}
	for _, t := range tracks {
		t.Fragmented = info.Fragmented
	}
	return tracks, info, nil
}

func parseMvhdTimescaleDuration(version uint8, data []byte) (timescale uint32, duration uint64) {
	if version == 1 {
		if len(data) < 8+8+4+8 {
			return 0, 0
		}
		return be.Uint32(data[16:20]), be.Uint64(data[20:28])
	}
	if len(data) < 4+4+4+4 {
		return 0, 0
	}
	return be.Uint32(data[8:12]), uint64(be.Uint32(data[12:16]))
}

func parseTrak(data []byte) (*Track, error) {
	t := &Track{}
	r := bmff.NewReader(data)
	for r.Next() {
		switch r.Type() {
		case bmff.TypeTkhd:
			parseTkhd(t, r.Version(), r.Data())
		case bmff.TypeMdia:
			if err := parseMdia(t, r.Data()); err != nil {
				return nil, err
			}
		}
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return t, nil
}

func parseTkhd(t *Track, version uint8, data []byte) {
	if version == 1 {
		if len(data) < 8+8+4 {
			return
		}
		t.ID = be.Uint32(data[16:20])
	} else {
		if len(data) < 4+4+4 {
			return
		}
		t.ID = be.Uint32(data[8:12])
	}
	if len(data) < 8 {
		return
	}
	width := bmff.FixedPointU16(be.Uint32(data[len(data)-8 : len(data)-4]))
	height := bmff.FixedPointU16(be.Uint32(data[len(data)-4:]))
	t.Width, t.Height = width, height
}

func parseMdia(t *Track, data []byte) error {
	r := bmff.NewReader(data)
	for r.Next() {
		switch r.Type() {
		case bmff.TypeMdhd:
			parseMdhd(t, r.Version(), r.Data())
		case bmff.TypeHdlr:
			parseHdlr(t, r.Data())
		case bmff.TypeMinf:
			if err := parseMinf(t, r.Data()); err != nil {
				return err
			}
		}
	}
	return r.Err()
}

func parseMdhd(t *Track, version uint8, data []byte) {
	if version == 1 {
		if len(data) < 8+8+4+8+2 {
			return
		}
		t.TimeScale = be.Uint32(data[16:20])
		t.Duration = be.Uint64(data[20:28])
		lang, _ := bmff.DecodeLanguage(be.Uint16(data[28:30]))
		t.Language = lang
		return
	}
	if len(data) < 4+4+4+4+2 {
		return
	}
	t.TimeScale = be.Uint32(data[8:12])
	t.Duration = uint64(be.Uint32(data[12:16]))
	lang, _ := bmff.DecodeLanguage(be.Uint16(data[16:18]))
	t.Language = lang
}

func parseHdlr(t *Track, data []byte) {
	if len(data) < 8 {
		return
	}
	var ht bmff.BoxType
	copy(ht[:], data[4:8])
	t.HandlerType = ht
	t.Kind = kindOf(ht)
}

func parseMinf(t *Track, data []byte) error {
	r := bmff.NewReader(data)
	for r.Next() {
		if r.Type() == bmff.TypeStbl {
			if err := parseStbl(t, r.Data()); err != nil {
				return err
			}
		}
	}
	return r.Err()
}

func parseStbl(t *Track, data []byte) error {
	r := bmff.NewReader(data)
	for r.Next() {
		switch r.Type() {
		case bmff.TypeStsd:
			entries, err := parseStsd(r.Data())
			if err != nil {
				return err
			}
			t.stsd.entries = entries
			if len(entries) > 0 {
				t.Codec = entries[0].Codec
			}
		case bmff.TypeStsz:
			t.stsz = parseStsz(r.Data())
		case bmff.TypeStz2:
			return bmff.ErrUnsupportedStsz
		case bmff.TypeStsc:
			t.stsc = bmff.DeriveStscFirstSamples(r.Data())
		case bmff.TypeStco:
			t.stco = stcoTable{is64: false, raw: r.Data()}
		case bmff.TypeCo64:
			t.stco = stcoTable{is64: true, raw: r.Data()}
		case bmff.TypeStts:
			t.stts = collectStts(r.Data())
		case bmff.TypeCtts:
			t.ctts = collectCtts(r.Data(), r.Version())
		case bmff.TypeStss:
			t.stss = r.Data()
		}
	}
	return r.Err()
}

func collectStts(data []byte) []bmff.SttsEntry {
	it := bmff.NewSttsIter(data)
	out := make([]bmff.SttsEntry, 0, it.Count())
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

func collectCtts(data []byte, version uint8) []bmff.CttsEntry {
	it := bmff.NewCttsIter(data, version)
	out := make([]bmff.CttsEntry, 0, it.Count())
	for {
		e, ok := it.Next()
		if !ok {
			break
		}
		out = append(out, e)
	}
	return out
}

func parseStsz(data []byte) stszTable {
	it := bmff.NewStszIter(data)
	return stszTable{uniform: it.UniformSize(), sizes: data, count: it.Count()}
}

func parseStsd(data []byte) ([]StsdEntry, error) {
	if len(data) < 4 {
		return nil, bmff.ErrTruncated
	}
	count := be.Uint32(data[0:4])
	r := bmff.NewReader(data[4:])
	entries := make([]StsdEntry, 0, count)
	for r.Next() {
		e, err := decodeSampleEntry(r.Type(), r.Data())
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

var visualFormats = map[bmff.BoxType]bool{
	bmff.TypeAvc1: true, bmff.TypeHev1: true, bmff.TypeVp09: true, bmff.TypeEncv: true,
}
var audioFormats = map[bmff.BoxType]bool{
	bmff.TypeMp4a: true, bmff.TypeOpus: true, bmff.TypeEnca: true,
}
var subtitleFormats = map[bmff.BoxType]bool{
	bmff.TypeTx3g: true,
}

func decodeSampleEntry(format bmff.BoxType, data []byte) (StsdEntry, error) {
	e := StsdEntry{Format: format}
	switch {
	case visualFormats[format]:
		ve, err := bmff.ReadVisualSampleEntry(data)
		if err != nil {
			return e, err
		}
		e.Codec = decodeVisualCodec(format, data[ve.ChildOffset:])
	case audioFormats[format]:
		ae, err := bmff.ReadAudioSampleEntry(data)
		if err != nil {
			return e, err
		}
		e.Codec = decodeAudioCodec(format, data[ae.ChildOffset:])
	case subtitleFormats[format]:
		if _, err := bmff.ReadTx3g(data); err != nil {
			return e, err
		}
		e.Codec = format.String()
	default:
		e.Codec = format.String()
	}
	return e, nil
}

func decodeVisualCodec(format bmff.BoxType, children []byte) string {
	r := bmff.NewReader(children)
	for r.Next() {
		if r.Type() == bmff.TypeAvcC {
			profile, err := bmff.ReadAvcCProfile(r.Data())
			if err == nil {
				return "avc1." + profile
			}
		}
		if r.Type() == bmff.TypeHvcC {
			profile, err := bmff.ReadHvcCProfile(r.Data())
			if err == nil {
				return "hev1" + profile
			}
		}
		if r.Type() == bmff.TypeVpcC {
			suffix, err := bmff.ReadVpcCProfile(r.Data())
			if err == nil {
				return "vp09" + suffix
			}
		}
	}
	return format.String()
}

func decodeAudioCodec(format bmff.BoxType, children []byte) string {
	r := bmff.NewReader(children)
	for r.Next() {
		if r.Type() == bmff.TypeEsds {
			codec, err := bmff.ReadEsdsCodec(r.Data())
			if err == nil {
				return codec
			}
		}
	}
	return format.String()
}

// SampleCount returns stsz.sample_count.
func (t *Track) SampleCount() uint32 { return t.stsz.count }

// SampleSize returns the size of the s'th (1-based) sample.
func (t *Track) SampleSize(s uint64) (uint32, error) {
	if s < 1 || s > uint64(t.stsz.count) {
		return 0, bmff.ErrNoSuchSample
	}
	if t.stsz.uniform != 0 {
		return t.stsz.uniform, nil
	}
	offset := 8 + int(s-1)*4
	if offset+4 > len(t.stsz.sizes) {
		return 0, bmff.ErrNoSuchSample
	}
	return be.Uint32(t.stsz.sizes[offset:]), nil
}

func (t *Track) stscIndex(s uint64) (int, error) {
	if len(t.stsc) == 0 {
		return 0, bmff.ErrMissingChild
	}
	i := sort.Search(len(t.stsc), func(i int) bool { return t.stsc[i].FirstSample > s }) - 1
	if i < 0 {
		return 0, bmff.ErrNoSuchSample
	}
	return i, nil
}

// chunkOf returns the 1-based chunk number holding sample s, and the
// 1-based sample number of that chunk's first sample.
func (t *Track) chunkOf(s uint64) (chunk uint64, firstSampleInChunk uint64, err error) {
	i, err := t.stscIndex(s)
	if err != nil {
		return 0, 0, err
	}
	e := t.stsc[i]
	if e.SamplesPerChunk == 0 {
		return 0, 0, bmff.ErrTableOverflow
	}
	delta := s - e.FirstSample
	chunk = uint64(e.FirstChunk) + delta/uint64(e.SamplesPerChunk)
	firstSampleInChunk = s - delta%uint64(e.SamplesPerChunk)
	return chunk, firstSampleInChunk, nil
}

// ChunkOffset returns the absolute file offset of the given 1-based chunk.
func (t *Track) ChunkOffset(chunk uint64) (uint64, error) {
	if t.stco.raw == nil {
		return 0, bmff.ErrMissingChunkOffsets
	}
	if chunk < 1 {
		return 0, bmff.ErrNoSuchSample
	}
	if t.stco.is64 {
		it := bmff.NewCo64Iter(t.stco.raw)
		if chunk > uint64(it.Count()) {
			return 0, bmff.ErrNoSuchSample
		}
		offset := 4 + int(chunk-1)*8
		if offset+8 > len(t.stco.raw) {
			return 0, bmff.ErrTruncated
		}
		return be.Uint64(t.stco.raw[offset:]), nil
	}
	it := bmff.NewUint32Iter(t.stco.raw)
	if chunk > uint64(it.Count()) {
		return 0, bmff.ErrNoSuchSample
	}
	offset := 4 + int(chunk-1)*4
	if offset+4 > len(t.stco.raw) {
		return 0, bmff.ErrTruncated
	}
	return uint64(be.Uint32(t.stco.raw[offset:])), nil
}

// SampleOffset returns the absolute file offset of the s'th (1-based) sample.
func (t *Track) SampleOffset(s uint64) (uint64, error) {
	chunk, firstInChunk, err := t.chunkOf(s)
	if err != nil {
		return 0, err
	}
	base, err := t.ChunkOffset(chunk)
	if err != nil {
		return 0, err
	}
	var sum uint64
	for j := firstInChunk; j < s; j++ {
		size, err := t.SampleSize(j)
		if err != nil {
			return 0, err
		}
		next := sum + uint64(size)
		if next < sum {
			return 0, bmff.ErrTableOverflow
		}
		sum = next
	}
	return base + sum, nil
}

// SampleTime returns the s'th (1-based) sample's decode time and duration
// (delta), both in the track's timescale. Empty stts runs (count==0,
// delta==0) contribute nothing and are skipped, per spec.md §4.3.
func (t *Track) SampleTime(s uint64) (decodeTime uint64, delta uint32, err error) {
	if s < 1 {
		return 0, 0, bmff.ErrNoSuchSample
	}
	var prefixCount uint64
	var prefixTime uint64
	for _, e := range t.stts {
		if e.Count == 0 {
			continue
		}
		if s <= prefixCount+uint64(e.Count) {
			offset := s - prefixCount - 1
			return prefixTime + offset*uint64(e.Delta), e.Delta, nil
		}
		prefixTime += uint64(e.Count) * uint64(e.Delta)
		prefixCount += uint64(e.Count)
	}
	return 0, 0, bmff.ErrNoSuchSample
}

// CompositionOffset returns the s'th (1-based) sample's signed composition
// time offset, or 0 if the track has no ctts.
func (t *Track) CompositionOffset(s uint64) (int32, error) {
	if len(t.ctts) == 0 {
		return 0, nil
	}
	var prefixCount uint64
	for _, e := range t.ctts {
		if s <= prefixCount+uint64(e.Count) {
			return e.Offset, nil
		}
		prefixCount += uint64(e.Count)
	}
	return 0, bmff.ErrNoSuchSample
}

// IsSync reports whether the s'th (1-based) sample is a sync sample.
func (t *Track) IsSync(s uint64) bool {
	if t.stss == nil {
		return true
	}
	if len(t.stss) < 4 {
		return false
	}
	count := be.Uint32(t.stss[0:4])
	lo, hi := 0, int(count)-1
	for lo <= hi {
		mid := (lo + hi) / 2
		offset := 4 + mid*4
		if offset+4 > len(t.stss) {
			return false
		}
		v := uint64(be.Uint32(t.stss[offset:]))
		switch {
		case v == s:
			return true
		case v < s:
			lo = mid + 1
		default:
			hi = mid - 1
		}
	}
	return false
}

// StsdEntries returns every parsed sample description entry (spec.md's
// "Open question — stsd multiple entries" decision: all entries are kept).
func (t *Track) StsdEntries() []StsdEntry { return t.stsd.entries }

// Sample is the result of ReadSample: a sample's bytes and timing metadata.
type Sample struct {
	Data              []byte
	DecodeTime        uint64
	Duration          uint32
	CompositionOffset int32
	IsSync            bool
}

// ReaderAt is the positioned-read capability ReadSample needs from its
// caller's I/O handle (spec.md §5, "read_at(offset, len)").
type ReaderAt interface {
	ReadAt(p []byte, off int64) (int, error)
}

// ReadSample resolves sample s (1-based) to a byte range, issues one
// positioned read, and returns it with timing metadata. Per the
// fragmented-reads decision, a track belonging to a fragmented file always
// fails with ErrNoSuchSample here even though its box tree parsed fine.
func (t *Track) ReadSample(io ReaderAt, s uint64) (Sample, error) {
	if t.Fragmented {
		return Sample{}, bmff.ErrNoSuchSample
	}
	size, err := t.SampleSize(s)
	if err != nil {
		return Sample{}, err
	}
	offset, err := t.SampleOffset(s)
	if err != nil {
		return Sample{}, err
	}
	decodeTime, delta, err := t.SampleTime(s)
	if err != nil {
		return Sample{}, err
	}
	compOffset, err := t.CompositionOffset(s)
	if err != nil {
		return Sample{}, err
	}
	buf := make([]byte, size)
	if _, err := io.ReadAt(buf, int64(offset)); err != nil {
		return Sample{}, errors.Wrap(err, "track: reading sample bytes")
	}
	return Sample{
		Data:              buf,
		DecodeTime:        decodeTime,
		Duration:          delta,
		CompositionOffset: compOffset,
		IsSync:            t.IsSync(s),
	}, nil
}
