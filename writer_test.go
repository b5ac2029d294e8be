package bmff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetsuo/bmff"
)

func TestWriterStartBoxEndBoxBackpatchesSize(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.StartBox(bmff.TypeMoov)
	w.WriteFree(bmff.TypeFree, 16)
	w.EndBox()

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeMoov, r.Type())
	require.Equal(t, uint64(8+16), r.Size())

	r.Enter()
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeFree, r.Type())
	require.Equal(t, uint64(16), r.Size())
	require.False(t, r.Next())
	r.Exit()
}

func TestWriterNestedBoxes(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.StartBox(bmff.TypeTrak)
	w.StartBox(bmff.TypeMdia)
	w.WriteFree(bmff.TypeFree, 8)
	w.EndBox() // mdia
	w.EndBox() // trak

	require.Equal(t, 0, w.Depth())

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeTrak, r.Type())
	r.Enter()
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeMdia, r.Type())
	r.Enter()
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeFree, r.Type())
	r.Exit()
	r.Exit()
}

func TestWriteFtypRoundTrip(t *testing.T) {
	w := bmff.NewWriter(nil)
	compatible := []bmff.BoxType{{'i', 's', 'o', '5'}, {'a', 'v', 'c', '1'}}
	w.WriteFtyp(bmff.TypeFtyp, bmff.BoxType{'i', 's', 'o', '5'}, 1, compatible)

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeFtyp, r.Type())
	info, err := bmff.ReadFtyp(r.Data())
	require.NoError(t, err)
	require.Equal(t, bmff.BoxType{'i', 's', 'o', '5'}, info.MajorBrand)
	require.Equal(t, uint32(1), info.MinorVersion)
	require.Equal(t, compatible, info.CompatibleBrands)
}

func TestWriteMvhdVersion0(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.WriteMvhd(1000, 2000, 600, 30000, bmff.FixedPointU16FromFloat(1.0), bmff.FixedPointU8FromFloat(1.0), bmff.IdentityMatrix, 2)

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeMvhd, r.Type())
	require.Equal(t, uint8(0), r.Version())
}

func TestWriteMvhdVersion1WhenDurationOverflows(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.WriteMvhd(0, 0, 600, 1<<40, bmff.FixedPointU16FromFloat(1.0), bmff.FixedPointU8FromFloat(1.0), bmff.IdentityMatrix, 2)

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, uint8(1), r.Version())
}

func TestWriteTkhdRoundTrip(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.WriteTkhd(0x07, 0, 0, 1, 9000, 0, 0, bmff.FixedPointU8FromFloat(1.0), bmff.IdentityMatrix,
		bmff.FixedPointU16FromFloat(1920), bmff.FixedPointU16FromFloat(1080))

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeTkhd, r.Type())
	require.Equal(t, uint32(0x07), r.Flags())
}

func TestWriteMdhdEncodesLanguage(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.WriteMdhd(0, 0, 48000, 1000, bmff.Language{'e', 'n', 'g'})

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	data := r.Data()
	raw := uint16(data[len(data)-4])<<8 | uint16(data[len(data)-3])
	lang, err := bmff.DecodeLanguage(raw)
	require.NoError(t, err)
	require.Equal(t, "eng", lang.String())
}

func TestWriteHdlrRoundTrip(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.WriteHdlr(bmff.BoxType{'v', 'i', 'd', 'e'}, "VideoHandler")

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	data := r.Data()
	require.Equal(t, []byte{'v', 'i', 'd', 'e'}, data[4:8])
	require.Contains(t, string(data[20:]), "VideoHandler")
}

func TestWriteDrefSelfContained(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.WriteDrefSelfContained()

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeDref, r.Type())
	r.Enter()
	r.Skip(4) // entry_count
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeUrl, r.Type())
	require.Equal(t, uint32(1), r.Flags())
}

func TestWriteMehdVersionSelection(t *testing.T) {
	w0 := bmff.NewWriter(nil)
	w0.WriteMehd(1000)
	r0 := bmff.NewReader(w0.Bytes())
	require.True(t, r0.Next())
	require.Equal(t, uint8(0), r0.Version())

	w1 := bmff.NewWriter(nil)
	w1.WriteMehd(1 << 40)
	r1 := bmff.NewReader(w1.Bytes())
	require.True(t, r1.Next())
	require.Equal(t, uint8(1), r1.Version())
}

func TestWriteTfhdOptionalFields(t *testing.T) {
	flags := uint32(bmff.TfhdDefaultSampleDurationPresent | bmff.TfhdDefaultSampleSizePresent)
	w := bmff.NewWriter(nil)
	w.WriteTfhd(flags, 1, 0, 0, 1000, 512, 0)

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, flags, r.Flags())
	data := r.Data()
	trackID := be32(data[0:4])
	duration := be32(data[4:8])
	size := be32(data[8:12])
	require.Equal(t, uint32(1), trackID)
	require.Equal(t, uint32(1000), duration)
	require.Equal(t, uint32(512), size)
}

func be32(b []byte) uint32 {
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func TestWriteTfdtVersionSelection(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.WriteTfdt(1 << 40)
	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, uint8(1), r.Version())
}

func TestWriteEmsgVersion1(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.WriteEmsg(1, 1000, 0, 5000, 2000, 42, "urn:scheme", "value", []byte{1, 2, 3})

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, bmff.TypeEmsg, r.Type())
	require.Equal(t, uint8(1), r.Version())
}

func TestWriteFreePadsWithZero(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.WriteFree(bmff.TypeFree, 32)
	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	for _, b := range r.Data() {
		require.Equal(t, byte(0), b)
	}
}

func TestStartBoxSizedChoosesExtendedHeaderForLargeSize(t *testing.T) {
	totalSize := uint64(1<<32) + 100
	w := bmff.NewWriter(nil)
	w.StartBoxSized(bmff.TypeMdat, int(totalSize))

	require.Equal(t, 16, len(w.Bytes()))
	h, err := bmff.ReadHeader(w.Bytes(), 0)
	require.NoError(t, err)
	require.Equal(t, 16, h.HeaderLen)
	require.Equal(t, totalSize, h.Size)
}

func TestStartBoxSizedShortHeaderForSmallSize(t *testing.T) {
	w := bmff.NewWriter(nil)
	w.StartBoxSized(bmff.TypeFree, 16)
	w.WriteZero(8)

	r := bmff.NewReader(w.Bytes())
	require.True(t, r.Next())
	require.Equal(t, uint64(16), r.Size())
}
