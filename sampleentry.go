package bmff

import (
	"math/bits"
	"strconv"
)

// This file decodes the fixed-layout preambles of stsd sample entries and
// the codec-identifying child boxes nested inside them (avcC, esds, ...),
// per spec.md §3.3 ("stsd") and §4.2 ("codec parameter extraction").

// VisualSampleEntry is the fixed 78-byte preamble common to avc1/hev1/vp09/
// encv, followed by that entry's own children (avcC, btrt, pasp, ...).
type VisualSampleEntry struct {
	DataReferenceIndex uint16
	Width, Height      uint16
	HResolution        FixedPointU16
	VResolution        FixedPointU16
	FrameCount         uint16
	CompressorName     string
	Depth              uint16
	// ChildOffset is the byte offset (within the sample entry's Data) where
	// nested boxes (avcC etc.) begin.
	ChildOffset int
}

// ReadVisualSampleEntry decodes the fixed preamble of a visual sample entry.
// data is the sample entry's full payload (the stsd child box's Data()).
func ReadVisualSampleEntry(data []byte) (VisualSampleEntry, error) {
	const preambleLen = 78
	if len(data) < preambleLen {
		return VisualSampleEntry{}, ErrTruncated
	}
	var e VisualSampleEntry
	e.DataReferenceIndex = be.Uint16(data[6:8])
	e.Width = be.Uint16(data[24:26])
	e.Height = be.Uint16(data[26:28])
	e.HResolution = FixedPointU16(be.Uint32(data[28:32]))
	e.VResolution = FixedPointU16(be.Uint32(data[32:36]))
	e.FrameCount = be.Uint16(data[40:42])
	nameLen := int(data[42])
	if nameLen > 31 {
		nameLen = 31
	}
	e.CompressorName = string(data[43 : 43+nameLen])
	e.Depth = be.Uint16(data[74:76])
	e.ChildOffset = preambleLen
	return e, nil
}

// WriteVisualSampleEntry encodes the fixed 78-byte visual sample entry
// preamble into dst[0:78]. Unset fields fall back to the conventional
// defaults used by encoders that don't track them precisely.
func WriteVisualSampleEntry(dst []byte, e VisualSampleEntry) {
	clearBytes(dst, 0, 78)
	be.PutUint16(dst[6:8], e.DataReferenceIndex)
	hres, vres := e.HResolution, e.VResolution
	if hres == 0 {
		hres = FixedPointU16(0x00480000)
	}
	if vres == 0 {
		vres = FixedPointU16(0x00480000)
	}
	be.PutUint32(dst[28:32], hres.RawValue())
	be.PutUint32(dst[32:36], vres.RawValue())
	be.PutUint16(dst[24:26], e.Width)
	be.PutUint16(dst[26:28], e.Height)
	frameCount := e.FrameCount
	if frameCount == 0 {
		frameCount = 1
	}
	be.PutUint16(dst[40:42], frameCount)
	nameLen := len(e.CompressorName)
	if nameLen > 31 {
		nameLen = 31
	}
	dst[42] = byte(nameLen)
	copy(dst[43:43+nameLen], e.CompressorName)
	depth := e.Depth
	if depth == 0 {
		depth = 0x18
	}
	be.PutUint16(dst[74:76], depth)
	be.PutUint16(dst[76:78], 0xFFFF) // pre_defined = -1
}

// AudioSampleEntry is the fixed 28-byte preamble common to mp4a/opus/enca.
type AudioSampleEntry struct {
	DataReferenceIndex uint16
	ChannelCount       uint16
	SampleSize         uint16
	SampleRate         uint32 // high 16 bits significant; low 16 conventionally zero
	ChildOffset        int
}

// ReadAudioSampleEntry decodes the fixed preamble of an audio sample entry.
func ReadAudioSampleEntry(data []byte) (AudioSampleEntry, error) {
	const preambleLen = 28
	if len(data) < preambleLen {
		return AudioSampleEntry{}, ErrTruncated
	}
	var e AudioSampleEntry
	e.DataReferenceIndex = be.Uint16(data[6:8])
	e.ChannelCount = be.Uint16(data[16:18])
	e.SampleSize = be.Uint16(data[18:20])
	e.SampleRate = be.Uint32(data[24:28])
	e.ChildOffset = preambleLen
	return e, nil
}

// WriteAudioSampleEntry encodes the fixed 28-byte audio sample entry
// preamble into dst[0:28].
func WriteAudioSampleEntry(dst []byte, e AudioSampleEntry) {
	clearBytes(dst, 0, 28)
	be.PutUint16(dst[6:8], e.DataReferenceIndex)
	channels := e.ChannelCount
	if channels == 0 {
		channels = 2
	}
	be.PutUint16(dst[16:18], channels)
	sampleSize := e.SampleSize
	if sampleSize == 0 {
		sampleSize = 16
	}
	be.PutUint16(dst[18:20], sampleSize)
	be.PutUint32(dst[24:28], e.SampleRate)
}

const hexChars = "0123456789abcdef"

func hexDigit(b byte) byte { return hexChars[b&0xf] }

// ReadAvcCProfile returns the 6-hex-char AVCProfileIndication/profile_compatibility/
// AVCLevelIndication string from an avcC configuration record, as used in the
// "avc1.XXYYZZ" codec string (spec.md §4.2).
func ReadAvcCProfile(data []byte) (string, error) {
	if len(data) < 4 {
		return "", ErrTruncated
	}
	buf := make([]byte, 6)
	buf[0] = hexDigit(data[1] >> 4)
	buf[1] = hexDigit(data[1])
	buf[2] = hexDigit(data[2] >> 4)
	buf[3] = hexDigit(data[2])
	buf[4] = hexDigit(data[3] >> 4)
	buf[5] = hexDigit(data[3])
	return string(buf), nil
}

// AvcC is the decoded AVCDecoderConfigurationRecord carried in an avcC box:
// the profile/level tuple plus the SPS and PPS NAL unit lists, each of which
// owns its own byte slice (spec.md §3.4, §4.2).
type AvcC struct {
	ConfigurationVersion   byte
	AVCProfileIndication   byte
	ProfileCompatibility   byte
	AVCLevelIndication     byte
	LengthSizeMinusOne     byte // low 2 bits of the byte following AVCLevelIndication
	SPS                    [][]byte
	PPS                    [][]byte
}

// ReadAvcC decodes a complete avcC configuration record, exposing the
// parameter-set lists rather than just the profile/level codec-string tuple
// (see ReadAvcCProfile for that narrower use case).
func ReadAvcC(data []byte) (AvcC, error) {
	if len(data) < 6 {
		return AvcC{}, ErrTruncated
	}
	var c AvcC
	c.ConfigurationVersion = data[0]
	c.AVCProfileIndication = data[1]
	c.ProfileCompatibility = data[2]
	c.AVCLevelIndication = data[3]
	c.LengthSizeMinusOne = data[4] & 0x03
	ptr := 5

	numSPS := int(data[ptr] & 0x1f)
	ptr++
	for i := 0; i < numSPS; i++ {
		if ptr+2 > len(data) {
			return AvcC{}, ErrTruncated
		}
		length := int(be.Uint16(data[ptr : ptr+2]))
		ptr += 2
		if ptr+length > len(data) {
			return AvcC{}, ErrTruncated
		}
		c.SPS = append(c.SPS, data[ptr:ptr+length])
		ptr += length
	}

	if ptr >= len(data) {
		return AvcC{}, ErrTruncated
	}
	numPPS := int(data[ptr])
	ptr++
	for i := 0; i < numPPS; i++ {
		if ptr+2 > len(data) {
			return AvcC{}, ErrTruncated
		}
		length := int(be.Uint16(data[ptr : ptr+2]))
		ptr += 2
		if ptr+length > len(data) {
			return AvcC{}, ErrTruncated
		}
		c.PPS = append(c.PPS, data[ptr:ptr+length])
		ptr += length
	}

	return c, nil
}

// WriteAvcC writes a complete avcC box from a decoded AvcC.
func (w *Writer) WriteAvcC(c AvcC) {
	total := 8 + 6
	for _, sps := range c.SPS {
		total += 2 + len(sps)
	}
	total += 1
	for _, pps := range c.PPS {
		total += 2 + len(pps)
	}
	w.StartBoxSized(TypeAvcC, total)
	w.putByte(c.ConfigurationVersion)
	w.putByte(c.AVCProfileIndication)
	w.putByte(c.ProfileCompatibility)
	w.putByte(c.AVCLevelIndication)
	w.putByte(0xfc | c.LengthSizeMinusOne&0x03)
	w.putByte(0xe0 | byte(len(c.SPS))&0x1f)
	for _, sps := range c.SPS {
		w.putUint16(uint16(len(sps)))
		w.putBytes(sps)
	}
	w.putByte(byte(len(c.PPS)))
	for _, pps := range c.PPS {
		w.putUint16(uint16(len(pps)))
		w.putBytes(pps)
	}
}

// ReadVpcCProfile returns the "vp09.PP.LL.DD" style parameter string from a
// vpcC configuration record (profile, level, bit depth).
func ReadVpcCProfile(data []byte) (string, error) {
	if len(data) < 7 {
		return "", ErrTruncated
	}
	profile := data[4]
	level := data[5]
	depth := data[6] >> 4
	return "." + zeroPad2(profile) + "." + zeroPad2(level) + "." + zeroPad2(depth), nil
}

func zeroPad2(v byte) string {
	s := strconv.Itoa(int(v))
	if len(s) < 2 {
		return "0" + s
	}
	return s
}

// HvcCArray is one NAL-unit array within an HEVCDecoderConfigurationRecord
// (e.g. all the VPS NAL units, or all the SPS, or all the PPS), per
// ISO/IEC 14496-15.
type HvcCArray struct {
	ArrayCompleteness bool
	NALUnitType       byte // low 6 bits
	NALUs             [][]byte
}

// HvcC is the decoded HEVCDecoderConfigurationRecord carried in an hvcC box.
type HvcC struct {
	GeneralProfileSpace              byte // 2 bits
	GeneralTierFlag                  bool
	GeneralProfileIDC                byte // 5 bits
	GeneralProfileCompatibilityFlags uint32
	GeneralConstraintIndicatorFlags  uint64 // low 48 bits
	GeneralLevelIDC                  byte
	MinSpatialSegmentationIDC        uint16 // 12 bits
	ParallelismType                  byte   // 2 bits
	ChromaFormat                     byte   // 2 bits
	BitDepthLumaMinus8               byte   // 3 bits
	BitDepthChromaMinus8             byte   // 3 bits
	AvgFrameRate                     uint16
	ConstantFrameRate                byte // 2 bits
	NumTemporalLayers                byte // 3 bits
	TemporalIDNested                 bool
	LengthSizeMinusOne               byte // 2 bits
	Arrays                           []HvcCArray
}

// ReadHvcC decodes a complete hvcC configuration record (ISO/IEC 14496-15
// HEVCDecoderConfigurationRecord), arrays of NAL units included.
func ReadHvcC(data []byte) (HvcC, error) {
	if len(data) < 23 {
		return HvcC{}, ErrTruncated
	}
	var c HvcC
	// data[0] is configurationVersion, unused beyond framing.
	c.GeneralProfileSpace = data[1] >> 6
	c.GeneralTierFlag = data[1]&0x20 != 0
	c.GeneralProfileIDC = data[1] & 0x1f
	c.GeneralProfileCompatibilityFlags = be.Uint32(data[2:6])
	c.GeneralConstraintIndicatorFlags = uint64(be.Uint32(data[6:10]))<<16 | uint64(be.Uint16(data[10:12]))
	c.GeneralLevelIDC = data[12]
	c.MinSpatialSegmentationIDC = be.Uint16(data[13:15]) & 0x0fff
	c.ParallelismType = data[15] & 0x03
	c.ChromaFormat = data[16] & 0x03
	c.BitDepthLumaMinus8 = data[17] & 0x07
	c.BitDepthChromaMinus8 = data[18] & 0x07
	c.AvgFrameRate = be.Uint16(data[19:21])
	c.ConstantFrameRate = data[21] >> 6
	c.NumTemporalLayers = (data[21] >> 3) & 0x07
	c.TemporalIDNested = data[21]&0x04 != 0
	c.LengthSizeMinusOne = data[21] & 0x03

	numArrays := int(data[22])
	ptr := 23
	for i := 0; i < numArrays; i++ {
		if ptr+3 > len(data) {
			return HvcC{}, ErrTruncated
		}
		var arr HvcCArray
		arr.ArrayCompleteness = data[ptr]&0x80 != 0
		arr.NALUnitType = data[ptr] & 0x3f
		numNALUs := int(be.Uint16(data[ptr+1 : ptr+3]))
		ptr += 3
		for j := 0; j < numNALUs; j++ {
			if ptr+2 > len(data) {
				return HvcC{}, ErrTruncated
			}
			length := int(be.Uint16(data[ptr : ptr+2]))
			ptr += 2
			if ptr+length > len(data) {
				return HvcC{}, ErrTruncated
			}
			arr.NALUs = append(arr.NALUs, data[ptr:ptr+length])
			ptr += length
		}
		c.Arrays = append(c.Arrays, arr)
	}

	return c, nil
}

// WriteHvcC writes a complete hvcC box from a decoded HvcC.
func (w *Writer) WriteHvcC(c HvcC) {
	total := 8 + 23
	for _, arr := range c.Arrays {
		total += 3
		for _, nalu := range arr.NALUs {
			total += 2 + len(nalu)
		}
	}
	w.StartBoxSized(TypeHvcC, total)
	w.putByte(1) // configurationVersion
	w.putByte(c.GeneralProfileSpace<<6 | boolBit(c.GeneralTierFlag, 0x20) | c.GeneralProfileIDC&0x1f)
	w.putUint32(c.GeneralProfileCompatibilityFlags)
	w.putUint32(uint32(c.GeneralConstraintIndicatorFlags >> 16))
	w.putUint16(uint16(c.GeneralConstraintIndicatorFlags))
	w.putByte(c.GeneralLevelIDC)
	w.putUint16(0xf000 | c.MinSpatialSegmentationIDC&0x0fff)
	w.putByte(0xfc | c.ParallelismType&0x03)
	w.putByte(0xfc | c.ChromaFormat&0x03)
	w.putByte(0xf8 | c.BitDepthLumaMinus8&0x07)
	w.putByte(0xf8 | c.BitDepthChromaMinus8&0x07)
	w.putUint16(c.AvgFrameRate)
	w.putByte(c.ConstantFrameRate<<6 | c.NumTemporalLayers<<3 | boolBit(c.TemporalIDNested, 0x04) | c.LengthSizeMinusOne&0x03)
	w.putByte(byte(len(c.Arrays)))
	for _, arr := range c.Arrays {
		w.putByte(boolBit(arr.ArrayCompleteness, 0x80) | arr.NALUnitType&0x3f)
		w.putUint16(uint16(len(arr.NALUs)))
		for _, nalu := range arr.NALUs {
			w.putUint16(uint16(len(nalu)))
			w.putBytes(nalu)
		}
	}
}

func boolBit(b bool, bit byte) byte {
	if b {
		return bit
	}
	return 0
}

// ReadHvcCProfile returns the ".P.C.TL" part of a "hev1.P.C.TL" parameter
// string from an hvcC configuration record (profile IDC, bit-reversed
// compatibility flags in hex, tier and level), mirroring
// ReadAvcCProfile/ReadVpcCProfile for track.Track's codec-string field.
// The profile space prefix and the constraint-indicator bytes are not included.
func ReadHvcCProfile(data []byte) (string, error) {
	c, err := ReadHvcC(data)
	if err != nil {
		return "", err
	}
	tier := "L"
	if c.GeneralTierFlag {
		tier = "H"
	}
	return "." + strconv.Itoa(int(c.GeneralProfileIDC)) + "." + strconv.FormatUint(uint64(bits.Reverse32(c.GeneralProfileCompatibilityFlags)), 16) +
		"." + tier + strconv.Itoa(int(c.GeneralLevelIDC)), nil
}

func reverseBits8(b byte) byte {
	var out byte
	for i := 0; i < 8; i++ {
		out <<= 1
		out |= b & 1
		b >>= 1
	}
	return out
}

// Tx3g is the decoded payload of a tx3g (3GPP timed text) sample entry: the
// fixed 38-byte record, including its 12-byte default style record, with no
// variable trailers (spec.md §4.2).
type Tx3g struct {
	DataReferenceIndex  uint16
	DisplayFlags        uint32
	HorizontalJustification byte
	VerticalJustification   byte
	BackgroundColor     [4]byte // RGBA
	DefaultTextBox      [4]int16 // top, left, bottom, right
	StartChar           uint16
	EndChar             uint16
	FontID              uint16
	FontStyleFlags      byte
	FontSize            byte
	TextColor           [4]byte // RGBA
}

// ReadTx3g decodes a tx3g sample entry's fixed 38-byte payload.
func ReadTx3g(data []byte) (Tx3g, error) {
	if len(data) < 38 {
		return Tx3g{}, ErrTruncated
	}
	var e Tx3g
	e.DataReferenceIndex = be.Uint16(data[6:8])
	e.DisplayFlags = be.Uint32(data[8:12])
	e.HorizontalJustification = data[12]
	e.VerticalJustification = data[13]
	copy(e.BackgroundColor[:], data[14:18])
	e.DefaultTextBox[0] = int16(be.Uint16(data[18:20]))
	e.DefaultTextBox[1] = int16(be.Uint16(data[20:22]))
	e.DefaultTextBox[2] = int16(be.Uint16(data[22:24]))
	e.DefaultTextBox[3] = int16(be.Uint16(data[24:26]))
	// The default style record is the trailing 12 bytes, data[26:38]:
	// startChar, endChar, fontID, face style flags, font size, text color.
	e.StartChar = be.Uint16(data[26:28])
	e.EndChar = be.Uint16(data[28:30])
	e.FontID = be.Uint16(data[30:32])
	e.FontStyleFlags = data[32]
	e.FontSize = data[33]
	copy(e.TextColor[:], data[34:38])
	return e, nil
}

// WriteTx3g encodes a tx3g sample entry's fixed 38-byte payload into
// dst[0:38].
func WriteTx3g(dst []byte, e Tx3g) {
	clearBytes(dst, 0, 38)
	be.PutUint16(dst[6:8], e.DataReferenceIndex)
	be.PutUint32(dst[8:12], e.DisplayFlags)
	dst[12] = e.HorizontalJustification
	dst[13] = e.VerticalJustification
	copy(dst[14:18], e.BackgroundColor[:])
	be.PutUint16(dst[18:20], uint16(e.DefaultTextBox[0]))
	be.PutUint16(dst[20:22], uint16(e.DefaultTextBox[1]))
	be.PutUint16(dst[22:24], uint16(e.DefaultTextBox[2]))
	be.PutUint16(dst[24:26], uint16(e.DefaultTextBox[3]))
	be.PutUint16(dst[26:28], e.StartChar)
	be.PutUint16(dst[28:30], e.EndChar)
	be.PutUint16(dst[30:32], e.FontID)
	dst[32] = e.FontStyleFlags
	dst[33] = e.FontSize
	copy(dst[34:38], e.TextColor[:])
}

// ReadEsdsCodec builds the "mp4a.OTI.AudioObjectType" codec string (or just
// "mp4a.OTI" if the AudioSpecificConfig can't be located) from an esds box's
// Data(), per spec.md §4.2.
func ReadEsdsCodec(data []byte) (string, error) {
	d, err := ReadDescriptor(data, 0, len(data))
	if err != nil {
		return "", err
	}
	if d.Tag != TagESDescr {
		return "", ErrBadDescriptor
	}
	dc := d.Find(TagDecoderConfigDescr)
	if dc == nil {
		return "", ErrBadDescriptor
	}
	codec := "mp4a." + hexByte(dc.OTI)
	si := dc.Find(TagDecSpecificInfo)
	if si != nil && len(si.Payload) >= 1 {
		objType := si.Payload[0] >> 3
		codec += "." + strconv.Itoa(int(objType))
	}
	return codec, nil
}

func hexByte(b byte) string {
	return string([]byte{hexDigit(b >> 4), hexDigit(b)})
}

// --- common encryption (sinf/frma/schm/schi/tenc) ---

// Frma reads the frma box's data_format field (the original, unencrypted
// sample entry type).
func ReadFrma(data []byte) (BoxType, error) {
	if len(data) < 4 {
		return BoxType{}, ErrTruncated
	}
	var t BoxType
	copy(t[:], data[0:4])
	return t, nil
}

// WriteFrma writes a complete frma box.
func (w *Writer) WriteFrma(originalFormat BoxType) {
	w.StartBoxSized(TypeFrma, 12)
	w.putBytes(originalFormat[:])
}

// SchemeInfo is the decoded payload of an schm box.
type SchemeInfo struct {
	SchemeType    BoxType
	SchemeVersion uint32
	SchemeURI     string // present only if flags&1 != 0
}

// ReadSchm decodes an schm box's payload given its full-box flags.
func ReadSchm(data []byte, flags uint32) (SchemeInfo, error) {
	if len(data) < 8 {
		return SchemeInfo{}, ErrTruncated
	}
	var s SchemeInfo
	copy(s.SchemeType[:], data[0:4])
	s.SchemeVersion = be.Uint32(data[4:8])
	if flags&1 != 0 && len(data) > 8 {
		end := 8
		for end < len(data) && data[end] != 0 {
			end++
		}
		s.SchemeURI = string(data[8:end])
	}
	return s, nil
}

// WriteSchm writes a complete schm box.
func (w *Writer) WriteSchm(s SchemeInfo) {
	flags := uint32(0)
	var uriBytes []byte
	if s.SchemeURI != "" {
		flags = 1
		uriBytes = append([]byte(s.SchemeURI), 0)
	}
	total := 8 + 4 + 4 + 4 + len(uriBytes)
	w.StartBoxSized(TypeSchm, total)
	w.putFullHeader(0, flags)
	w.putBytes(s.SchemeType[:])
	w.putUint32(s.SchemeVersion)
	w.putBytes(uriBytes)
}

// TrackEncryption is the decoded payload of a tenc box (CENC default values).
type TrackEncryption struct {
	DefaultIsProtected     byte
	DefaultPerSampleIVSize byte
	DefaultKID             [16]byte
}

// ReadTenc decodes a tenc box's payload.
func ReadTenc(data []byte) (TrackEncryption, error) {
	if len(data) < 2+16 {
		return TrackEncryption{}, ErrTruncated
	}
	var t TrackEncryption
	t.DefaultIsProtected = data[0]
	t.DefaultPerSampleIVSize = data[1]
	copy(t.DefaultKID[:], data[2:18])
	return t, nil
}

// WriteTenc writes a complete tenc box.
func (w *Writer) WriteTenc(t TrackEncryption) {
	total := 8 + 4 + 2 + 16
	w.StartBoxSized(TypeTenc, total)
	w.putFullHeader(0, 0)
	w.putByte(t.DefaultIsProtected)
	w.putByte(t.DefaultPerSampleIVSize)
	w.putBytes(t.DefaultKID[:])
}

// Btrt is the decoded payload of a btrt box.
type Btrt struct {
	BufferSizeDB uint32
	MaxBitrate   uint32
	AvgBitrate   uint32
}

// ReadBtrt decodes a btrt box's payload.
func ReadBtrt(data []byte) (Btrt, error) {
	if len(data) < 12 {
		return Btrt{}, ErrTruncated
	}
	return Btrt{
		BufferSizeDB: be.Uint32(data[0:4]),
		MaxBitrate:   be.Uint32(data[4:8]),
		AvgBitrate:   be.Uint32(data[8:12]),
	}, nil
}

// WriteBtrt writes a complete btrt box.
func (w *Writer) WriteBtrt(b Btrt) {
	w.StartBoxSized(TypeBtrt, 8+12)
	w.putUint32(b.BufferSizeDB)
	w.putUint32(b.MaxBitrate)
	w.putUint32(b.AvgBitrate)
}

// --- sample auxiliary information (saiz/saio) ---

// SampleAuxInfoSizes is the decoded payload of a saiz box.
type SampleAuxInfoSizes struct {
	DefaultSampleInfoSize byte
	Sizes                 []byte // per-sample sizes, populated only if DefaultSampleInfoSize == 0
}

// ReadSaiz decodes a saiz box's payload.
func ReadSaiz(data []byte, flags uint32) (SampleAuxInfoSizes, error) {
	ptr := 0
	if flags&1 != 0 {
		ptr += 8 // aux_info_type + aux_info_type_parameter
	}
	if ptr+5 > len(data) {
		return SampleAuxInfoSizes{}, ErrTruncated
	}
	var s SampleAuxInfoSizes
	s.DefaultSampleInfoSize = data[ptr]
	count := be.Uint32(data[ptr+1 : ptr+5])
	ptr += 5
	if s.DefaultSampleInfoSize == 0 {
		if ptr+int(count) > len(data) {
			return SampleAuxInfoSizes{}, ErrTruncated
		}
		s.Sizes = data[ptr : ptr+int(count)]
	}
	return s, nil
}

// SampleAuxInfoOffsets is the decoded payload of a saio box.
type SampleAuxInfoOffsets struct {
	Offsets []uint64
}

// ReadSaio decodes a saio box's payload given its version and flags.
func ReadSaio(data []byte, version uint8, flags uint32) (SampleAuxInfoOffsets, error) {
	ptr := 0
	if flags&1 != 0 {
		ptr += 8
	}
	if ptr+4 > len(data) {
		return SampleAuxInfoOffsets{}, ErrTruncated
	}
	count := be.Uint32(data[ptr : ptr+4])
	ptr += 4
	stride := 4
	if version == 1 {
		stride = 8
	}
	if ptr+int(count)*stride > len(data) {
		return SampleAuxInfoOffsets{}, ErrTruncated
	}
	out := make([]uint64, count)
	for i := range out {
		if version == 1 {
			out[i] = be.Uint64(data[ptr+i*8:])
		} else {
			out[i] = uint64(be.Uint32(data[ptr+i*4:]))
		}
	}
	return SampleAuxInfoOffsets{Offsets: out}, nil
}
