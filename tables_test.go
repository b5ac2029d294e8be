package bmff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetsuo/bmff"
)

func TestStszUniformSize(t *testing.T) {
	buf := make([]byte, 8+8)
	bmff.WriteHeader(buf, 0, bmff.TypeStsz, uint64(len(buf)))
	bmff.WriteFullHeader(buf, 8, bmff.FullHeader{})
	data := buf[12:]
	// sample_size = 100, sample_count = 3, no explicit size array.
	be := []byte{0, 0, 0, 100, 0, 0, 0, 3}
	copy(data, be)

	it := bmff.NewStszIter(data)
	require.Equal(t, uint32(3), it.Count())
	require.Equal(t, uint32(100), it.UniformSize())
	for i := 0; i < 3; i++ {
		size, ok := it.Next()
		require.True(t, ok)
		require.Equal(t, uint32(100), size)
	}
	_, ok := it.Next()
	require.False(t, ok)
}

func TestStszExplicitSizesRoundTrip(t *testing.T) {
	sizes := []uint32{10, 20, 30, 40}
	buf := make([]byte, bmff.StszEncodingLength(len(sizes)))
	n := bmff.WriteStsz(buf, sizes)
	require.Equal(t, len(buf), n)

	it := bmff.NewStszIter(buf[12:])
	require.Equal(t, uint32(len(sizes)), it.Count())
	require.Equal(t, uint32(0), it.UniformSize())
	for _, want := range sizes {
		got, ok := it.Next()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestUint32ArrayRoundTrip(t *testing.T) {
	entries := []uint32{100, 5000, 123456}
	buf := make([]byte, bmff.Uint32ArrayEncodingLength(len(entries)))
	bmff.WriteUint32Array(buf, bmff.TypeStco, entries)

	it := bmff.NewUint32Iter(buf[12:])
	require.Equal(t, uint32(len(entries)), it.Count())
	for _, want := range entries {
		got, ok := it.Next()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestCo64RoundTripAndFits(t *testing.T) {
	entries := []uint64{1 << 33, 1 << 40}
	buf := make([]byte, bmff.Co64EncodingLength(len(entries)))
	bmff.WriteCo64(buf, entries)

	it := bmff.NewCo64Iter(buf[12:])
	for _, want := range entries {
		got, ok := it.Next()
		require.True(t, ok)
		require.Equal(t, want, got)
	}

	require.False(t, bmff.FitsStco(entries))
	require.True(t, bmff.FitsStco([]uint64{100, 200}))
}

// Scenario 3 from spec.md §8: a run-length stts table with an empty
// (zero-delta) run mixed in round-trips through WriteStts/SttsIter entry by entry.
func TestSttsRunLengthWithEmptyRun(t *testing.T) {
	entries := []bmff.SttsEntry{
		{Count: 2, Delta: 1000},
		{Count: 1, Delta: 0}, // empty run: contributes zero duration
		{Count: 3, Delta: 500},
	}
	buf := make([]byte, bmff.SttsEncodingLength(len(entries)))
	bmff.WriteStts(buf, entries)

	it := bmff.NewSttsIter(buf[12:])
	require.Equal(t, uint32(len(entries)), it.Count())
	for _, want := range entries {
		got, ok := it.Next()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

func TestCttsSignedOffsetsRoundTrip(t *testing.T) {
	entries := []bmff.CttsEntry{
		{Count: 1, Offset: -500},
		{Count: 2, Offset: 1500},
	}
	buf := make([]byte, bmff.CttsEncodingLength(len(entries)))
	bmff.WriteCtts(buf, entries)

	fh := bmff.ReadFullHeader(buf, 8)
	require.Equal(t, uint8(1), fh.Version) // WriteCtts always emits version 1

	it := bmff.NewCttsIter(buf[12:], fh.Version)
	for _, want := range entries {
		got, ok := it.Next()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
}

// Scenario 2 from spec.md §8: stsc/stco cross-reference, two runs —
// chunks 1-2 hold 5 samples each, chunk 3 onward holds 3 each.
func TestDeriveStscFirstSamples(t *testing.T) {
	entries := []bmff.StscEntry{
		{FirstChunk: 1, SamplesPerChunk: 5, SampleDescriptionID: 1},
		{FirstChunk: 3, SamplesPerChunk: 3, SampleDescriptionID: 1},
	}
	buf := make([]byte, bmff.StscEncodingLength(len(entries)))
	bmff.WriteStsc(buf, entries)

	derived := bmff.DeriveStscFirstSamples(buf[12:])
	require.Len(t, derived, 2)
	require.Equal(t, uint64(1), derived[0].FirstSample)
	// Chunks 1-2 covered by the first run (2 chunks * 5 samples = 10 samples).
	require.Equal(t, uint64(11), derived[1].FirstSample)
}

func TestElstVersion0And1(t *testing.T) {
	entries := []bmff.ElstEntry{
		{SegmentDuration: 1000, MediaTime: -1, MediaRateInt: 1, MediaRateFrac: 0},
		{SegmentDuration: 2000, MediaTime: 512, MediaRateInt: 1, MediaRateFrac: 0},
	}
	for _, version := range []uint8{0, 1} {
		buf := make([]byte, bmff.ElstEncodingLength(version, len(entries)))
		bmff.WriteElst(buf, version, entries)
		it := bmff.NewElstIter(buf[12:], version)
		require.Equal(t, uint32(len(entries)), it.Count())
		for _, want := range entries {
			got, ok := it.Next()
			require.True(t, ok)
			require.Equal(t, want, got)
		}
	}
}

func TestTrunRoundTripAllOptionalFields(t *testing.T) {
	flags := uint32(bmff.TrunDataOffsetPresent | bmff.TrunFirstSampleFlagsPresent |
		bmff.TrunSampleDurationPresent | bmff.TrunSampleSizePresent |
		bmff.TrunSampleFlagsPresent | bmff.TrunSampleCompositionTimeOffsetPresent)
	entries := []bmff.TrunEntry{
		{Duration: 1000, Size: 512, Flags: 0x01010000, CompositionTimeOffset: -20},
		{Duration: 1000, Size: 600, Flags: 0x01010000, CompositionTimeOffset: 40},
	}
	buf := make([]byte, bmff.TrunEncodingLength(flags, 16, len(entries)))
	n := bmff.WriteTrun(buf, 1, flags, 777, 0x02000000, entries)
	require.Equal(t, len(buf), n)

	fh := bmff.ReadFullHeader(buf, 8)
	it := bmff.NewTrunIter(buf[12:], fh.Flags)
	require.Equal(t, uint32(len(entries)), it.Count())
	require.Equal(t, int32(777), it.DataOffset())
	require.Equal(t, uint32(0x02000000), it.FirstSampleFlags())
	for _, want := range entries {
		got, ok := it.Next()
		require.True(t, ok)
		require.Equal(t, want, got)
	}
	_, ok := it.Next()
	require.False(t, ok)
}

func TestTrunWithoutOptionalFields(t *testing.T) {
	flags := uint32(bmff.TrunSampleDurationPresent)
	entries := []bmff.TrunEntry{{Duration: 100}, {Duration: 200}}
	buf := make([]byte, bmff.TrunEncodingLength(flags, 4, len(entries)))
	bmff.WriteTrun(buf, 0, flags, 0, 0, entries)

	it := bmff.NewTrunIter(buf[12:], flags)
	got1, _ := it.Next()
	require.Equal(t, uint32(100), got1.Duration)
	require.Equal(t, uint32(0), got1.Size)
}
