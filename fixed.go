package bmff

// FixedPointU8 is an unsigned 8.8 fixed-point rational (e.g. mvhd/tkhd volume, smhd balance).
type FixedPointU8 uint16

// Value returns the rational value, truncated toward zero.
func (f FixedPointU8) Value() float64 { return float64(f >> 8) }

// RawValue returns the raw 16-bit wire value, round-tripping exactly.
func (f FixedPointU8) RawValue() uint16 { return uint16(f) }

// FixedPointU8FromFloat builds a FixedPointU8 from a float64, truncating toward zero.
func FixedPointU8FromFloat(v float64) FixedPointU8 { return FixedPointU8(v * 256) }

// FixedPointI8 is a signed 8.8 fixed-point rational used nowhere in the spec's
// standard boxes today but kept symmetric with FixedPointU8 for codecs that need it.
type FixedPointI8 int16

// Value returns the rational value, truncated toward zero.
func (f FixedPointI8) Value() float64 { return float64(f / 256) }

// RawValue returns the raw 16-bit wire value, round-tripping exactly.
func (f FixedPointI8) RawValue() int16 { return int16(f) }

// FixedPointU16 is an unsigned 16.16 fixed-point rational (e.g. mvhd.preferred_rate,
// tkhd width/height, sample entry resolutions, elst media_rate).
type FixedPointU16 uint32

// Value returns the rational value, truncated toward zero.
func (f FixedPointU16) Value() float64 { return float64(f >> 16) }

// RawValue returns the raw 32-bit wire value, round-tripping exactly.
func (f FixedPointU16) RawValue() uint32 { return uint32(f) }

// FixedPointU16FromFloat builds a FixedPointU16 from a float64, truncating toward zero.
func FixedPointU16FromFloat(v float64) FixedPointU16 { return FixedPointU16(v * 65536) }
