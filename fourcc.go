package bmff

import "encoding/binary"

// FourCC is a four-byte ASCII box type identifier.
type FourCC [4]byte

// String returns the four bytes as a string, even when not printable ASCII.
func (t FourCC) String() string { return string(t[:]) }

// Uint32 returns t as a big-endian 32-bit integer, matching its on-wire form.
func (t FourCC) Uint32() uint32 { return binary.BigEndian.Uint32(t[:]) }

// FourCCFromUint32 builds a FourCC from its big-endian 32-bit wire form.
func FourCCFromUint32(v uint32) FourCC {
	var t FourCC
	binary.BigEndian.PutUint32(t[:], v)
	return t
}

// Compare returns -1, 0, or 1 following total byte-value ordering, matching
// the ordering real box types need when sorted (e.g. deterministic dump output).
func (t FourCC) Compare(other FourCC) int {
	for i := range t {
		if t[i] != other[i] {
			if t[i] < other[i] {
				return -1
			}
			return 1
		}
	}
	return 0
}
