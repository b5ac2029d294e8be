// Package bmff implements encoding and decoding of ISO Base Media File
// Format (ISO/IEC 14496-12) containers, commonly known as MP4.
package bmff

import "encoding/binary"

var be = binary.BigEndian

// BoxType is a four-byte ASCII type code for an ISO-BMFF box.
type BoxType = FourCC

// File-level boxes.
var (
	TypeFtyp = BoxType{'f', 't', 'y', 'p'}
	TypeStyp = BoxType{'s', 't', 'y', 'p'}
)

// Movie structure boxes (moov and children).
var (
	TypeMoov = BoxType{'m', 'o', 'o', 'v'}
	TypeMvhd = BoxType{'m', 'v', 'h', 'd'}
	TypeTrak = BoxType{'t', 'r', 'a', 'k'}
	TypeTkhd = BoxType{'t', 'k', 'h', 'd'}
	TypeTref = BoxType{'t', 'r', 'e', 'f'}
	TypeTrgr = BoxType{'t', 'r', 'g', 'r'}
	TypeEdts = BoxType{'e', 'd', 't', 's'}
	TypeElst = BoxType{'e', 'l', 's', 't'}
	TypeMdia = BoxType{'m', 'd', 'i', 'a'}
	TypeMdhd = BoxType{'m', 'd', 'h', 'd'}
	TypeHdlr = BoxType{'h', 'd', 'l', 'r'}
	TypeElng = BoxType{'e', 'l', 'n', 'g'}
	TypeMinf = BoxType{'m', 'i', 'n', 'f'}
	TypeVmhd = BoxType{'v', 'm', 'h', 'd'}
	TypeSmhd = BoxType{'s', 'm', 'h', 'd'}
	TypeHmhd = BoxType{'h', 'm', 'h', 'd'}
	TypeSthd = BoxType{'s', 't', 'h', 'd'}
	TypeNmhd = BoxType{'n', 'm', 'h', 'd'}
	TypeDinf = BoxType{'d', 'i', 'n', 'f'}
	TypeDref = BoxType{'d', 'r', 'e', 'f'}
	TypeUrl  = BoxType{'u', 'r', 'l', ' '}
)

// Sample table boxes (stbl children).
var (
	TypeStbl = BoxType{'s', 't', 'b', 'l'}
	TypeStsd = BoxType{'s', 't', 's', 'd'}
	TypeStts = BoxType{'s', 't', 't', 's'}
	TypeCtts = BoxType{'c', 't', 't', 's'}
	TypeCslg = BoxType{'c', 's', 'l', 'g'}
	TypeStsc = BoxType{'s', 't', 's', 'c'}
	TypeStsz = BoxType{'s', 't', 's', 'z'}
	TypeStz2 = BoxType{'s', 't', 'z', '2'}
	TypeStco = BoxType{'s', 't', 'c', 'o'}
	TypeCo64 = BoxType{'c', 'o', '6', '4'}
	TypeStss = BoxType{'s', 't', 's', 's'}
	TypeStsh = BoxType{'s', 't', 's', 'h'}
	TypePadb = BoxType{'p', 'a', 'd', 'b'}
	TypeStdp = BoxType{'s', 't', 'd', 'p'}
	TypeSdtp = BoxType{'s', 'd', 't', 'p'}
	TypeSbgp = BoxType{'s', 'b', 'g', 'p'}
	TypeSgpd = BoxType{'s', 'g', 'p', 'd'}
	TypeSubs = BoxType{'s', 'u', 'b', 's'}
	TypeSaiz = BoxType{'s', 'a', 'i', 'z'}
	TypeSaio = BoxType{'s', 'a', 'i', 'o'}
	TypeSenc = BoxType{'s', 'e', 'n', 'c'}
)

// Fragment boxes (moof and children, mvex).
var (
	TypeMvex = BoxType{'m', 'v', 'e', 'x'}
	TypeMehd = BoxType{'m', 'e', 'h', 'd'}
	TypeTrex = BoxType{'t', 'r', 'e', 'x'}
	TypeLeva = BoxType{'l', 'e', 'v', 'a'}
	TypeMoof = BoxType{'m', 'o', 'o', 'f'}
	TypeMfhd = BoxType{'m', 'f', 'h', 'd'}
	TypeTraf = BoxType{'t', 'r', 'a', 'f'}
	TypeTfhd = BoxType{'t', 'f', 'h', 'd'}
	TypeTfdt = BoxType{'t', 'f', 'd', 't'}
	TypeTrun = BoxType{'t', 'r', 'u', 'n'}
	TypeSidx = BoxType{'s', 'i', 'd', 'x'}
	TypeEmsg = BoxType{'e', 'm', 's', 'g'}
)

// Metadata boxes.
var (
	TypeMeta = BoxType{'m', 'e', 't', 'a'}
	TypeUdta = BoxType{'u', 'd', 't', 'a'}
	TypeIlst = BoxType{'i', 'l', 's', 't'}
)

// Data boxes.
var (
	TypeMdat = BoxType{'m', 'd', 'a', 't'}
	TypeFree = BoxType{'f', 'r', 'e', 'e'}
	TypeSkip = BoxType{'s', 'k', 'i', 'p'}
)

// Sample entry boxes (children of stsd) and their configuration records.
var (
	TypeAvc1 = BoxType{'a', 'v', 'c', '1'}
	TypeAvcC = BoxType{'a', 'v', 'c', 'C'}
	TypeHev1 = BoxType{'h', 'e', 'v', '1'}
	TypeHvcC = BoxType{'h', 'v', 'c', 'C'}
	TypeVp09 = BoxType{'v', 'p', '0', '9'}
	TypeVpcC = BoxType{'v', 'p', 'c', 'C'}
	TypeBtrt = BoxType{'b', 't', 'r', 't'}
	TypePasp = BoxType{'p', 'a', 's', 'p'}
	TypeMp4a = BoxType{'m', 'p', '4', 'a'}
	TypeOpus = BoxType{'o', 'p', 'u', 's'}
	TypeDOps = BoxType{'d', 'O', 'p', 's'}
	TypeEsds = BoxType{'e', 's', 'd', 's'}
	TypeTx3g = BoxType{'t', 'x', '3', 'g'}
)

// Common encryption boxes.
var (
	TypeEnca = BoxType{'e', 'n', 'c', 'a'}
	TypeEncv = BoxType{'e', 'n', 'c', 'v'}
	TypeSinf = BoxType{'s', 'i', 'n', 'f'}
	TypeFrma = BoxType{'f', 'r', 'm', 'a'}
	TypeSchm = BoxType{'s', 'c', 'h', 'm'}
	TypeSchi = BoxType{'s', 'c', 'h', 'i'}
	TypeTenc = BoxType{'t', 'e', 'n', 'c'}
)

// Extended boxes.
var TypeUuid = BoxType{'u', 'u', 'i', 'd'}

// IsFullBox returns true if the box type has version and flags fields
// immediately following its header.
func IsFullBox(t BoxType) bool {
	switch t {
	case TypeMvhd, TypeTkhd, TypeMdhd, TypeHdlr,
		TypeVmhd, TypeSmhd, TypeHmhd, TypeNmhd, TypeDref, TypeUrl,
		TypeStsd, TypeStts, TypeCtts, TypeStsc, TypeStsz, TypeStz2,
		TypeStco, TypeCo64, TypeStss, TypeSdtp, TypeElst,
		TypeMeta, TypeEsds, TypeMehd, TypeTrex,
		TypeMfhd, TypeTfhd, TypeTfdt, TypeTrun,
		TypeSbgp, TypeSgpd, TypeSaiz, TypeSaio, TypeSenc,
		TypeCslg, TypeSidx, TypeEmsg, TypeSchm, TypeTenc:
		return true
	}
	return false
}

// IsContainerBox returns true if the box type is a container that holds
// child boxes directly (not via a fixed-layout preamble).
func IsContainerBox(t BoxType) bool {
	switch t {
	case TypeMoov, TypeTrak, TypeEdts, TypeMdia,
		TypeMinf, TypeDinf, TypeStbl, TypeUdta,
		TypeMeta, TypeMvex, TypeMoof, TypeTraf,
		TypeTref, TypeTrgr, TypeSinf:
		return true
	}
	return false
}

// Header is a decoded generic box header: the 4-byte size, 4-byte type,
// and (when size==1) the 8-byte extended size, per spec.md §4.1.
type Header struct {
	Type BoxType
	// Size is the full declared size of the box, header included. A value
	// of 0 (only legal for the outermost/top-level box) means "extends to
	// the end of its containing scope".
	Size uint64
	// HeaderLen is 8 for the short form, 16 for the size==1 extended form.
	HeaderLen int
}

// ReadHeader decodes a box header starting at buf[offset:]. It fails with
// ErrBadHeader if fewer than 8 bytes remain.
func ReadHeader(buf []byte, offset int) (Header, error) {
	if offset < 0 || offset+8 > len(buf) {
		return Header{}, ErrBadHeader
	}
	size32 := be.Uint32(buf[offset : offset+4])
	var h Header
	copy(h.Type[:], buf[offset+4:offset+8])

	switch size32 {
	case 1:
		if offset+16 > len(buf) {
			return Header{}, ErrBadHeader
		}
		h.Size = be.Uint64(buf[offset+8 : offset+16])
		h.HeaderLen = 16
	case 0:
		h.Size = 0
		h.HeaderLen = 8
	default:
		h.Size = uint64(size32)
		h.HeaderLen = 8
	}
	return h, nil
}

// WriteHeader writes a box header for the given type and full declared
// size (header included) to buf[offset:], returning the number of bytes
// written (8, or 16 if size exceeds 32 bits).
func WriteHeader(buf []byte, offset int, t BoxType, size uint64) int {
	if size > 0xFFFFFFFF {
		be.PutUint32(buf[offset:offset+4], 1)
		copy(buf[offset+4:offset+8], t[:])
		be.PutUint64(buf[offset+8:offset+16], size)
		return 16
	}
	be.PutUint32(buf[offset:offset+4], uint32(size))
	copy(buf[offset+4:offset+8], t[:])
	return 8
}

// HeaderLenForSize returns the header length (8 or 16) that WriteHeader
// would use for the given declared size, without writing anything.
func HeaderLenForSize(size uint64) int {
	if size > 0xFFFFFFFF {
		return 16
	}
	return 8
}

// FullHeader is the 4-byte version+flags extension present on "full boxes".
type FullHeader struct {
	Version uint8
	Flags   uint32 // low 24 bits significant
}

// ReadFullHeader decodes the version/flags extension at buf[offset:].
func ReadFullHeader(buf []byte, offset int) FullHeader {
	_ = buf[offset+3]
	return FullHeader{
		Version: buf[offset],
		Flags:   uint32(buf[offset+1])<<16 | uint32(buf[offset+2])<<8 | uint32(buf[offset+3]),
	}
}

// WriteFullHeader writes fh to buf[offset:offset+4].
func WriteFullHeader(buf []byte, offset int, fh FullHeader) {
	_ = buf[offset+3]
	buf[offset] = fh.Version
	buf[offset+1] = byte(fh.Flags >> 16)
	buf[offset+2] = byte(fh.Flags >> 8)
	buf[offset+3] = byte(fh.Flags)
}

// FtypInfo is the decoded payload of an ftyp or styp box.
type FtypInfo struct {
	MajorBrand       BoxType
	MinorVersion     uint32
	CompatibleBrands []BoxType
}

// ReadFtyp decodes an ftyp/styp payload: major_brand, minor_version, then a
// trailing array of compatible_brands (spec.md §4.1).
func ReadFtyp(data []byte) (FtypInfo, error) {
	if len(data) < 8 || len(data)%4 != 0 {
		return FtypInfo{}, ErrBadFtyp
	}
	var info FtypInfo
	copy(info.MajorBrand[:], data[0:4])
	info.MinorVersion = be.Uint32(data[4:8])
	for i := 8; i+4 <= len(data); i += 4 {
		var b BoxType
		copy(b[:], data[i:i+4])
		info.CompatibleBrands = append(info.CompatibleBrands, b)
	}
	return info, nil
}

// clearBytes zeroes buf[from:to], used by writers to blank reserved fields.
func clearBytes(buf []byte, from, to int) {
	for i := from; i < to; i++ {
		buf[i] = 0
	}
}
