package bmff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetsuo/bmff"
)

func TestReadHeaderShortForm(t *testing.T) {
	buf := []byte{
		0x00, 0x00, 0x00, 0x10, // size = 16
		'f', 't', 'y', 'p',
		1, 2, 3, 4, 5, 6, 7, 8,
	}
	h, err := bmff.ReadHeader(buf, 0)
	require.NoError(t, err)
	require.Equal(t, bmff.TypeFtyp, h.Type)
	require.Equal(t, uint64(16), h.Size)
	require.Equal(t, 8, h.HeaderLen)
}

func TestReadHeaderExtendedSize(t *testing.T) {
	buf := make([]byte, 16)
	bmff.WriteHeader(buf, 0, bmff.TypeMdat, 1<<40)
	h, err := bmff.ReadHeader(buf, 0)
	require.NoError(t, err)
	require.Equal(t, bmff.TypeMdat, h.Type)
	require.Equal(t, uint64(1<<40), h.Size)
	require.Equal(t, 16, h.HeaderLen)
}

func TestReadHeaderToEndOfScope(t *testing.T) {
	buf := []byte{
		0x00, 0x00, 0x00, 0x00,
		'm', 'd', 'a', 't',
	}
	h, err := bmff.ReadHeader(buf, 0)
	require.NoError(t, err)
	require.Equal(t, uint64(0), h.Size)
	require.Equal(t, 8, h.HeaderLen)
}

func TestReadHeaderTruncated(t *testing.T) {
	_, err := bmff.ReadHeader([]byte{0, 0, 0}, 0)
	require.ErrorIs(t, err, bmff.ErrBadHeader)
}

func TestHeaderLenForSize(t *testing.T) {
	require.Equal(t, 8, bmff.HeaderLenForSize(100))
	require.Equal(t, 8, bmff.HeaderLenForSize(0xFFFFFFFF))
	require.Equal(t, 16, bmff.HeaderLenForSize(0xFFFFFFFF+1))
}

func TestWriteHeaderRoundTrip(t *testing.T) {
	for _, size := range []uint64{8, 0xFFFFFFFF, 0x100000000, 1 << 40} {
		headerLen := bmff.HeaderLenForSize(size)
		buf := make([]byte, headerLen)
		n := bmff.WriteHeader(buf, 0, bmff.TypeFree, size)
		require.Equal(t, headerLen, n)

		h, err := bmff.ReadHeader(buf, 0)
		require.NoError(t, err)
		require.Equal(t, bmff.TypeFree, h.Type)
		require.Equal(t, size, h.Size)
	}
}

func TestFullHeaderRoundTrip(t *testing.T) {
	buf := make([]byte, 4)
	bmff.WriteFullHeader(buf, 0, bmff.FullHeader{Version: 1, Flags: 0x0a0b0c})
	fh := bmff.ReadFullHeader(buf, 0)
	require.Equal(t, uint8(1), fh.Version)
	require.Equal(t, uint32(0x0a0b0c), fh.Flags)
}

func TestIsContainerBox(t *testing.T) {
	require.True(t, bmff.IsContainerBox(bmff.TypeMoov))
	require.True(t, bmff.IsContainerBox(bmff.TypeStbl)) // stbl holds the sample-table boxes as children
	require.False(t, bmff.IsContainerBox(bmff.TypeStsd))
	require.False(t, bmff.IsContainerBox(bmff.TypeMdat))
}

func TestIsFullBox(t *testing.T) {
	require.True(t, bmff.IsFullBox(bmff.TypeMvhd))
	require.True(t, bmff.IsFullBox(bmff.TypeStsz))
	require.False(t, bmff.IsFullBox(bmff.TypeMoov))
	require.False(t, bmff.IsFullBox(bmff.TypeMdat))
}

func TestReadFtyp(t *testing.T) {
	buf := []byte{
		'i', 's', 'o', '5',
		0, 0, 0, 1,
		'i', 's', 'o', '5',
		'a', 'v', 'c', '1',
	}
	info, err := bmff.ReadFtyp(buf)
	require.NoError(t, err)
	require.Equal(t, bmff.BoxType{'i', 's', 'o', '5'}, info.MajorBrand)
	require.Equal(t, uint32(1), info.MinorVersion)
	require.Equal(t, []bmff.BoxType{{'i', 's', 'o', '5'}, {'a', 'v', 'c', '1'}}, info.CompatibleBrands)
}

func TestReadFtypBadSize(t *testing.T) {
	_, err := bmff.ReadFtyp([]byte{1, 2, 3})
	require.ErrorIs(t, err, bmff.ErrBadFtyp)
}
