package bmff_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/tetsuo/bmff"
)

func TestDescriptorHeaderRoundTripSmallSize(t *testing.T) {
	buf := make([]byte, 5+10)
	n := bmff.WriteDescriptorHeader(buf, 0, bmff.TagDecSpecificInfo, 10)
	require.Equal(t, 5, n)

	tag, size, payloadOffset, err := bmff.ReadDescriptorHeader(buf, 0)
	require.NoError(t, err)
	require.Equal(t, byte(bmff.TagDecSpecificInfo), tag)
	require.Equal(t, 10, size)
	require.Equal(t, 5, payloadOffset)
}

func TestDescriptorHeaderTruncated(t *testing.T) {
	_, _, _, err := bmff.ReadDescriptorHeader([]byte{0x05, 0x80, 0x80, 0x80}, 0)
	require.ErrorIs(t, err, bmff.ErrBadDescriptor)
}

// Builds a minimal esds payload: ES_Descriptor -> DecoderConfigDescr(OTI) ->
// DecSpecificInfo(raw bytes), matching the shape decodeAudioCodec relies on.
func buildEsds(oti byte, decSpecific []byte) []byte {
	var decSpecBuf [32]byte
	n := bmff.WriteDescriptorHeader(decSpecBuf[:], 0, bmff.TagDecSpecificInfo, uint32(len(decSpecific)))
	copy(decSpecBuf[n:], decSpecific)
	decSpecEnc := decSpecBuf[:n+len(decSpecific)]

	// DecoderConfigDescr fixed prefix: OTI, streamType+upStream+reserved,
	// bufferSizeDB(3), maxBitrate(4), avgBitrate(4) = 13 bytes, then children.
	var fixed [13]byte
	fixed[0] = oti
	dccPayload := append(append([]byte{}, fixed[:]...), decSpecEnc...)

	var dccBuf [64]byte
	n2 := bmff.WriteDescriptorHeader(dccBuf[:], 0, bmff.TagDecoderConfigDescr, uint32(len(dccPayload)))
	copy(dccBuf[n2:], dccPayload)
	dccEnc := dccBuf[:n2+len(dccPayload)]

	// ES_Descriptor fixed prefix: ES_ID(2) + flags(1) = 3 bytes (no optional
	// stream dependence/URL/OCR fields), then children.
	esPayload := append([]byte{0, 1, 0}, dccEnc...)
	var esBuf [128]byte
	n3 := bmff.WriteDescriptorHeader(esBuf[:], 0, bmff.TagESDescr, uint32(len(esPayload)))
	copy(esBuf[n3:], esPayload)
	return esBuf[:n3+len(esPayload)]
}

func TestReadDescriptorEsdsTree(t *testing.T) {
	buf := buildEsds(0x40, []byte{0x12, 0x10})

	d, err := bmff.ReadDescriptor(buf, 0, len(buf))
	require.NoError(t, err)
	require.Equal(t, byte(bmff.TagESDescr), d.Tag)

	dcc := d.Find(bmff.TagDecoderConfigDescr)
	require.NotNil(t, dcc)
	require.Equal(t, byte(0x40), dcc.OTI)

	dsi := dcc.Find(bmff.TagDecSpecificInfo)
	require.NotNil(t, dsi)
	require.Equal(t, []byte{0x12, 0x10}, dsi.Payload)
}

func TestDescriptorFindMissingTagReturnsNil(t *testing.T) {
	buf := buildEsds(0x40, []byte{0x12, 0x10})
	d, err := bmff.ReadDescriptor(buf, 0, len(buf))
	require.NoError(t, err)
	require.Nil(t, d.Find(bmff.TagSLConfigDescr))
}
