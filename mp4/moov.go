package mp4

import "github.com/tetsuo/bmff"

// buildMoov serializes the accumulated track state into a complete moov
// payload. dataStart is the absolute file offset of the first mdat payload
// byte, used to rebase each track's chunk offsets from payload-relative to
// absolute (spec.md §4.4).
func (w *Writer) buildMoov(movieDuration uint64, dataStart uint64) []byte {
	bw := bmff.NewWriter(nil)

	nextTrackID := uint32(len(w.tracks) + 1)
	bw.WriteMvhd(0, 0, w.cfg.Timescale, movieDuration, bmff.FixedPointU16FromFloat(1.0), bmff.FixedPointU8FromFloat(1.0), bmff.IdentityMatrix, nextTrackID)

	for _, t := range w.tracks {
		trak := w.buildTrak(t, dataStart)
		bw.StartBox(bmff.TypeTrak)
		bw.WriteRaw(trak)
		bw.EndBox()
	}

	return bw.Bytes()
}

var (
	handlerVide = bmff.BoxType{'v', 'i', 'd', 'e'}
	handlerSoun = bmff.BoxType{'s', 'o', 'u', 'n'}
)

func defaultHandlerName(t bmff.BoxType) string {
	switch t {
	case handlerVide:
		return "VideoHandler"
	case handlerSoun:
		return "SoundHandler"
	}
	return "Handler"
}

func trackVolume(handlerType bmff.BoxType) float64 {
	if handlerType == handlerSoun {
		return 1.0
	}
	return 0
}

func (w *Writer) buildTrak(t *trackState, dataStart uint64) []byte {
	bw := bmff.NewWriter(nil)

	var trackDuration uint64
	for _, e := range t.stts {
		trackDuration += uint64(e.Count) * uint64(e.Delta)
	}
	movieScaledDuration := trackDuration
	if t.cfg.Timescale != 0 && w.cfg.Timescale != 0 {
		movieScaledDuration = trackDuration * uint64(w.cfg.Timescale) / uint64(t.cfg.Timescale)
	}

	bw.WriteTkhd(3, 0, 0, t.id, movieScaledDuration, 0, 0,
		bmff.FixedPointU8FromFloat(trackVolume(t.cfg.HandlerType)), bmff.IdentityMatrix, t.cfg.Width, t.cfg.Height)

	mdia := w.buildMdia(t, trackDuration, dataStart)
	bw.StartBox(bmff.TypeMdia)
	bw.WriteRaw(mdia)
	bw.EndBox()

	return bw.Bytes()
}

func (w *Writer) buildMdia(t *trackState, trackDuration uint64, dataStart uint64) []byte {
	bw := bmff.NewWriter(nil)

	bw.WriteMdhd(0, 0, t.cfg.Timescale, trackDuration, t.cfg.Language)

	name := t.cfg.HandlerName
	if name == "" {
		name = defaultHandlerName(t.cfg.HandlerType)
	}
	bw.WriteHdlr(t.cfg.HandlerType, name)

	minf := w.buildMinf(t, dataStart)
	bw.StartBox(bmff.TypeMinf)
	bw.WriteRaw(minf)
	bw.EndBox()

	return bw.Bytes()
}

func (w *Writer) buildMinf(t *trackState, dataStart uint64) []byte {
	bw := bmff.NewWriter(nil)

	switch t.cfg.HandlerType {
	case handlerVide:
		bw.WriteVmhd(0, [3]uint16{})
	case handlerSoun:
		bw.WriteSmhd(0)
	}

	bw.StartBox(bmff.TypeDinf)
	bw.WriteDrefSelfContained()
	bw.EndBox()

	stbl := w.buildStbl(t, dataStart)
	bw.StartBox(bmff.TypeStbl)
	bw.WriteRaw(stbl)
	bw.EndBox()

	return bw.Bytes()
}

func (w *Writer) buildStbl(t *trackState, dataStart uint64) []byte {
	bw := bmff.NewWriter(nil)

	stsdSize := 8 + 4 + 4 + len(t.cfg.SampleDescription)
	bw.StartBoxSized(bmff.TypeStsd, stsdSize)
	bw.WriteFullBoxHeader(0, 0)
	bw.WriteU32(1)
	bw.WriteRaw(t.cfg.SampleDescription)

	sttsBuf := make([]byte, bmff.SttsEncodingLength(len(t.stts)))
	bmff.WriteStts(sttsBuf, t.stts)
	bw.WriteRaw(sttsBuf)

	if t.anyCttsNonzero {
		cttsBuf := make([]byte, bmff.CttsEncodingLength(len(t.ctts)))
		bmff.WriteCtts(cttsBuf, t.ctts)
		bw.WriteRaw(cttsBuf)
	}

	if !t.allSync {
		stssBuf := make([]byte, bmff.Uint32ArrayEncodingLength(len(t.syncSamples)))
		bmff.WriteUint32Array(stssBuf, bmff.TypeStss, t.syncSamples)
		bw.WriteRaw(stssBuf)
	}

	stscBuf := make([]byte, bmff.StscEncodingLength(len(t.stsc)))
	bmff.WriteStsc(stscBuf, t.stsc)
	bw.WriteRaw(stscBuf)

	stszBuf := make([]byte, bmff.StszEncodingLength(len(t.sizes)))
	bmff.WriteStsz(stszBuf, t.sizes)
	bw.WriteRaw(stszBuf)

	absOffsets := make([]uint64, len(t.chunkOffsets))
	for i, rel := range t.chunkOffsets {
		absOffsets[i] = dataStart + rel
	}
	if bmff.FitsStco(absOffsets) {
		u32 := make([]uint32, len(absOffsets))
		for i, v := range absOffsets {
			u32[i] = uint32(v)
		}
		stcoBuf := make([]byte, bmff.Uint32ArrayEncodingLength(len(u32)))
		bmff.WriteUint32Array(stcoBuf, bmff.TypeStco, u32)
		bw.WriteRaw(stcoBuf)
	} else {
		co64Buf := make([]byte, bmff.Co64EncodingLength(len(absOffsets)))
		bmff.WriteCo64(co64Buf, absOffsets)
		bw.WriteRaw(co64Buf)
	}

	return bw.Bytes()
}
