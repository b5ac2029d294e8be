package mp4

import (
	"io"

	"github.com/tetsuo/bmff"
	"github.com/tetsuo/bmff/track"
)

type writerState int

const (
	stateFresh writerState = iota
	stateOpen
	stateFinished
)

// FileConfig configures Start: the file-level brands and movie timescale.
type FileConfig struct {
	MajorBrand       bmff.BoxType
	MinorVersion     uint32
	CompatibleBrands []bmff.BoxType
	Timescale        uint32
}

// TrackConfig configures AddTrack. SampleDescription is one fully-encoded
// stsd entry (e.g. a complete avc1 box with its nested avcC) supplied by
// the caller — per spec.md's Non-goals, this writer assembles headers and
// sample tables, it does not synthesize codec configuration records.
type TrackConfig struct {
	Kind              track.Kind
	HandlerType       bmff.BoxType
	HandlerName       string
	Timescale         uint32
	Language          bmff.Language
	Width, Height     bmff.FixedPointU16
	SampleDescription []byte
}

type trackState struct {
	cfg     TrackConfig
	id      uint32
	nSample uint32

	sizes []uint32

	stts           []bmff.SttsEntry
	ctts           []bmff.CttsEntry
	anyCttsNonzero bool

	syncSamples []uint32
	allSync     bool

	stsc       []bmff.StscEntry
	chunkCount uint32

	chunkOffsets []uint64 // relative to payload start; rebased to absolute at Finish

	curChunkStart int // payload offset where the open chunk began
	curChunkCount uint32
	curChunkDesc  uint32
	chunkOpen     bool
}

// Writer builds an ISO-BMFF file incrementally: AddTrack between Start and
// Finish, WriteSample any number of times per track, Finish writes mdat
// with its size known up front, then moov. The state machine is
// Fresh → HeaderWritten → (TracksOpen)* → Finished (spec.md §4.4); any call
// out of order returns ErrWrongState, and Writer is unusable after Finish.
type Writer struct {
	state writerState
	cfg   FileConfig

	tracks []*trackState

	payload          []byte
	lastTrackWritten uint32 // 0 = none yet
	sampleWritten    bool   // true once the first WriteSample succeeds; ends HeaderWritten
}

// NewWriter returns a fresh Writer. Call Start before AddTrack/WriteSample.
func NewWriter() *Writer { return &Writer{} }

// Start transitions Fresh → HeaderWritten.
func (w *Writer) Start(cfg FileConfig) error {
	if w.state != stateFresh {
		return bmff.ErrWrongState
	}
	w.cfg = cfg
	w.state = stateOpen
	return nil
}

// AddTrack registers a new track and returns its 1-based track_id. Valid
// only in HeaderWritten, i.e. after Start and before the first WriteSample
// call; once any sample has been written, add_track fails with
// ErrWrongState (spec.md §4.4's Fresh → HeaderWritten → (TracksOpen)* →
// Finished state machine).
func (w *Writer) AddTrack(cfg TrackConfig) (uint32, error) {
	if w.state != stateOpen || w.sampleWritten {
		return 0, bmff.ErrWrongState
	}
	id := uint32(len(w.tracks) + 1)
	w.tracks = append(w.tracks, &trackState{cfg: cfg, id: id, allSync: true})
	return id, nil
}

func (w *Writer) track(id uint32) *trackState {
	if id < 1 || int(id) > len(w.tracks) {
		return nil
	}
	return w.tracks[id-1]
}

// WriteSample appends one sample's bytes to the pending mdat and records
// its table entries. Consecutive calls for the same track with no other
// track's sample interleaved extend the current chunk; any interruption
// (by a different track, or the very first sample) starts a new one,
// mirroring spec.md §4.4's "grouping consecutive samples ... into chunks".
func (w *Writer) WriteSample(trackID uint32, data []byte, duration uint32, compositionOffset int32, isSync bool, sampleDescriptionIndex uint32) error {
	if w.state != stateOpen || len(w.tracks) == 0 {
		return bmff.ErrWrongState
	}
	t := w.track(trackID)
	if t == nil {
		return bmff.ErrNoSuchTrack
	}
	w.sampleWritten = true

	offset := len(w.payload)
	continuing := t.chunkOpen && trackID == w.lastTrackWritten && t.curChunkDesc == sampleDescriptionIndex
	if !continuing {
		w.closeChunk(t)
		t.curChunkStart = offset
		t.curChunkCount = 0
		t.curChunkDesc = sampleDescriptionIndex
		t.chunkOpen = true
	}
	t.curChunkCount++

	w.payload = append(w.payload, data...)
	w.lastTrackWritten = trackID

	t.nSample++
	t.sizes = append(t.sizes, uint32(len(data)))

	if n := len(t.stts); n > 0 && t.stts[n-1].Delta == duration {
		t.stts[n-1].Count++
	} else {
		t.stts = append(t.stts, bmff.SttsEntry{Count: 1, Delta: duration})
	}

	if compositionOffset != 0 {
		t.anyCttsNonzero = true
	}
	if n := len(t.ctts); n > 0 && t.ctts[n-1].Offset == compositionOffset {
		t.ctts[n-1].Count++
	} else {
		t.ctts = append(t.ctts, bmff.CttsEntry{Count: 1, Offset: compositionOffset})
	}

	if isSync {
		t.syncSamples = append(t.syncSamples, t.nSample)
	} else {
		t.allSync = false
	}

	return nil
}

func (w *Writer) closeChunk(t *trackState) {
	if !t.chunkOpen || t.curChunkCount == 0 {
		return
	}
	t.chunkCount++
	chunkNumber := t.chunkCount
	if n := len(t.stsc); n > 0 && t.stsc[n-1].SamplesPerChunk == t.curChunkCount && t.stsc[n-1].SampleDescriptionID == t.curChunkDesc {
		// additional chunk with identical shape: covered by the existing run
	} else {
		t.stsc = append(t.stsc, bmff.StscEntry{
			FirstChunk:          chunkNumber,
			SamplesPerChunk:     t.curChunkCount,
			SampleDescriptionID: t.curChunkDesc,
		})
	}
	t.chunkOffsets = append(t.chunkOffsets, uint64(t.curChunkStart))
	t.chunkOpen = false
}

// Finish closes every track's open chunk, serializes ftyp + mdat + moov to
// out, and transitions to Finished. The Writer must be discarded afterward.
func (w *Writer) Finish(out io.Writer) error {
	if w.state != stateOpen {
		return bmff.ErrWrongState
	}
	for _, t := range w.tracks {
		w.closeChunk(t)
	}

	bw := bmff.NewWriter(nil)
	bw.WriteFtyp(bmff.TypeFtyp, w.cfg.MajorBrand, w.cfg.MinorVersion, w.cfg.CompatibleBrands)

	headerAndPayloadStart := len(bw.Bytes())
	mdatTotalSize := 8 + len(w.payload)
	if bmff.HeaderLenForSize(uint64(mdatTotalSize)) == 16 {
		mdatTotalSize = 16 + len(w.payload)
	}
	mdatHeaderLen := bmff.HeaderLenForSize(uint64(mdatTotalSize))
	dataStart := headerAndPayloadStart + mdatHeaderLen

	// An mdat larger than 2^32-1 needs the 16-byte extended-size header
	// (spec.md §4.4); StartBoxSized picks the right width up front, since
	// EndBox's back-patch only ever writes a 32-bit size field.
	bw.StartBoxSized(bmff.TypeMdat, mdatTotalSize)
	bw.WriteRaw(w.payload)

	movieDuration := w.computeMovieDuration()
	moov := w.buildMoov(movieDuration, uint64(dataStart))
	bw.StartBox(bmff.TypeMoov)
	bw.WriteRaw(moov)
	bw.EndBox()

	w.state = stateFinished
	_, err := out.Write(bw.Bytes())
	return err
}

func (w *Writer) computeMovieDuration() uint64 {
	var maxDuration uint64
	for _, t := range w.tracks {
		var trackDuration uint64
		for _, e := range t.stts {
			trackDuration += uint64(e.Count) * uint64(e.Delta)
		}
		if t.cfg.Timescale != 0 && w.cfg.Timescale != 0 {
			trackDuration = trackDuration * uint64(w.cfg.Timescale) / uint64(t.cfg.Timescale)
		}
		if trackDuration > maxDuration {
			maxDuration = trackDuration
		}
	}
	return maxDuration
}
