package bmff

import (
	"bytes"

	"github.com/icza/bitio"
	"github.com/pkg/errors"
)

// Language is a 3-letter lowercase ISO 639-2/T code, packed on the wire as
// 1 padding bit followed by three 5-bit fields (letter - 0x60) per ISO/IEC 14496-12.
type Language [3]byte

// DecodeLanguage unpacks the 16-bit wire form (as found in mdhd) into a Language.
func DecodeLanguage(raw uint16) (Language, error) {
	var buf [2]byte
	buf[0] = byte(raw >> 8)
	buf[1] = byte(raw)
	r := bitio.NewReader(bytes.NewReader(buf[:]))

	if _, err := r.ReadBits(1); err != nil {
		return Language{}, errors.Wrap(err, "language: pad bit")
	}
	var lang Language
	for i := range lang {
		v, err := r.ReadBits(5)
		if err != nil {
			return Language{}, errors.Wrap(err, "language: letter")
		}
		lang[i] = byte(v) + 0x60
	}
	if lang == (Language{0x60, 0x60, 0x60}) {
		return Language{}, nil
	}
	return lang, nil
}

// Encode packs l back into the 16-bit mdhd wire form.
func (l Language) Encode() (uint16, error) {
	if l == (Language{}) {
		l = Language{0x60, 0x60, 0x60}
	}

	var out bytes.Buffer
	w := bitio.NewWriter(&out)

	if err := w.WriteBits(0, 1); err != nil {
		return 0, errors.Wrap(err, "language: pad bit")
	}
	for _, c := range l {
		if c < 0x60 || c > 0x60+31 {
			return 0, errors.Errorf("language: letter %q out of 5-bit range", c)
		}
		if err := w.WriteBits(uint64(c-0x60), 5); err != nil {
			return 0, errors.Wrap(err, "language: letter")
		}
	}
	if err := w.Close(); err != nil {
		return 0, errors.Wrap(err, "language: flush")
	}
	b := out.Bytes()
	return uint16(b[0])<<8 | uint16(b[1]), nil
}

// String returns the 3-letter code, or "und" (undetermined) for the all-zero
// packed value some encoders emit for "no language set".
func (l Language) String() string {
	if l == (Language{}) {
		return "und"
	}
	return string(l[:])
}
