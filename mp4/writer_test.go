package mp4_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetsuo/bmff"
	"github.com/tetsuo/bmff/mp4"
	"github.com/tetsuo/bmff/track"
)

func fileConfig() mp4.FileConfig {
	return mp4.FileConfig{
		MajorBrand:       bmff.BoxType{'i', 's', 'o', '5'},
		MinorVersion:     0,
		CompatibleBrands: []bmff.BoxType{{'i', 's', 'o', '5'}},
		Timescale:        1000,
	}
}

func videoSampleDescription() []byte {
	entry := make([]byte, 78)
	bmff.WriteVisualSampleEntry(entry, bmff.VisualSampleEntry{DataReferenceIndex: 1, Width: 160, Height: 120})
	w := bmff.NewWriter(nil)
	w.StartBoxSized(bmff.TypeAvc1, 8+78)
	w.WriteRaw(entry)
	return w.Bytes()
}

func videoTrackConfig() mp4.TrackConfig {
	return mp4.TrackConfig{
		Kind:              track.KindVideo,
		HandlerType:       bmff.BoxType{'v', 'i', 'd', 'e'},
		Timescale:         1000,
		Language:          bmff.Language{'u', 'n', 'd'},
		Width:             bmff.FixedPointU16FromFloat(160),
		Height:            bmff.FixedPointU16FromFloat(120),
		SampleDescription: videoSampleDescription(),
	}
}

func TestWriterRejectsOutOfOrderCalls(t *testing.T) {
	w := mp4.NewWriter()
	_, err := w.AddTrack(videoTrackConfig())
	require.ErrorIs(t, err, bmff.ErrWrongState)

	require.NoError(t, w.Start(fileConfig()))
	require.ErrorIs(t, w.Start(fileConfig()), bmff.ErrWrongState)

	err = w.WriteSample(1, []byte("x"), 100, 0, true, 1)
	require.ErrorIs(t, err, bmff.ErrWrongState)

	var buf bytes.Buffer
	require.NoError(t, w.Finish(&buf))
	require.ErrorIs(t, w.Finish(&buf), bmff.ErrWrongState)
}

// TestAddTrackAfterSampleRejected verifies add_track is only valid in
// HeaderWritten: once a sample has been written, AddTrack must fail even
// though the Writer is still in its broader "open" span.
func TestAddTrackAfterSampleRejected(t *testing.T) {
	w := mp4.NewWriter()
	require.NoError(t, w.Start(fileConfig()))

	id, err := w.AddTrack(videoTrackConfig())
	require.NoError(t, err)

	require.NoError(t, w.WriteSample(id, []byte("x"), 100, 0, true, 1))

	_, err = w.AddTrack(videoTrackConfig())
	require.ErrorIs(t, err, bmff.ErrWrongState)
}

func TestWriteSampleUnknownTrack(t *testing.T) {
	w := mp4.NewWriter()
	require.NoError(t, w.Start(fileConfig()))
	_, err := w.AddTrack(videoTrackConfig())
	require.NoError(t, err)
	err = w.WriteSample(99, []byte("x"), 100, 0, true, 1)
	require.ErrorIs(t, err, bmff.ErrNoSuchTrack)
}

// TestFinishRoundTrip writes a single video track with 3 samples, which
// form one chunk (same track, same sample description throughout), then reads the result back through mp4.Open and checks every sample.
func TestFinishRoundTrip(t *testing.T) {
	w := mp4.NewWriter()
	require.NoError(t, w.Start(fileConfig()))

	id, err := w.AddTrack(videoTrackConfig())
	require.NoError(t, err)
	require.Equal(t, uint32(1), id)

	samples := [][]byte{
		bytes.Repeat([]byte{0x01}, 10),
		bytes.Repeat([]byte{0x02}, 20),
		bytes.Repeat([]byte{0x03}, 15),
	}
	require.NoError(t, w.WriteSample(id, samples[0], 100, 0, true, 1))
	require.NoError(t, w.WriteSample(id, samples[1], 100, 0, false, 1))
	require.NoError(t, w.WriteSample(id, samples[2], 100, 0, true, 1))

	var buf bytes.Buffer
	require.NoError(t, w.Finish(&buf))

	r, err := mp4.Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	require.Equal(t, bmff.BoxType{'i', 's', 'o', '5'}, r.MajorBrand())
	require.Equal(t, uint32(1000), r.Timescale())
	require.Equal(t, uint64(300), r.Duration())

	n, err := r.SampleCount(1)
	require.NoError(t, err)
	require.Equal(t, uint32(3), n)

	for i, want := range samples {
		s, err := r.ReadSample(1, uint64(i+1))
		require.NoError(t, err)
		require.Equal(t, want, s.Data)
		require.Equal(t, uint64(i*100), s.DecodeTime)
		require.Equal(t, uint32(100), s.Duration)
	}

	tr, err := r.Track(1)
	require.NoError(t, err)
	require.True(t, tr.IsSync(1))
	require.False(t, tr.IsSync(2))
	require.True(t, tr.IsSync(3))
}

// TestChunkContinuationAcrossTracks verifies that interleaving two tracks'
// samples forces each WriteSample onto its own chunk, per the writer's
// chunk-continuation rule.
func TestChunkContinuationAcrossTracks(t *testing.T) {
	w := mp4.NewWriter()
	require.NoError(t, w.Start(fileConfig()))

	v, err := w.AddTrack(videoTrackConfig())
	require.NoError(t, err)
	a, err := w.AddTrack(mp4.TrackConfig{
		Kind:              track.KindAudio,
		HandlerType:       bmff.BoxType{'s', 'o', 'u', 'n'},
		Timescale:         48000,
		Language:          bmff.Language{'u', 'n', 'd'},
		SampleDescription: videoSampleDescription(),
	})
	require.NoError(t, err)

	require.NoError(t, w.WriteSample(v, []byte("v1"), 100, 0, true, 1))
	require.NoError(t, w.WriteSample(a, []byte("a1"), 960, 0, true, 1))
	require.NoError(t, w.WriteSample(v, []byte("v2"), 100, 0, true, 1))

	var buf bytes.Buffer
	require.NoError(t, w.Finish(&buf))

	r, err := mp4.Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	vt, err := r.Track(v)
	require.NoError(t, err)
	off1, err := vt.ChunkOffset(1)
	require.NoError(t, err)
	off2, err := vt.ChunkOffset(2)
	require.NoError(t, err)
	require.NotEqual(t, off1, off2)
}
