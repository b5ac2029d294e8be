package bmff

import "github.com/google/uuid"

// ReadUuid extracts the 16-byte extended type from a uuid box. buf is the
// box's RawBox() (header included), since the extended type lives
// immediately after the 8-byte (or 16-byte, if size==1) standard header and
// its offset (hdr.HeaderLen) depends on which form was used.
func ReadUuid(hdr Header, buf []byte) (uuid.UUID, []byte, error) {
	if len(buf) < hdr.HeaderLen+16 {
		return uuid.UUID{}, nil, ErrTruncated
	}
	id, err := uuid.FromBytes(buf[hdr.HeaderLen : hdr.HeaderLen+16])
	if err != nil {
		return uuid.UUID{}, nil, wrapBox(hdr.Type, 0, err)
	}
	return id, buf[hdr.HeaderLen+16:], nil
}

// WriteUuid writes a complete uuid box with the given extended type and payload.
func (w *Writer) WriteUuid(id uuid.UUID, payload []byte) {
	total := 8 + 16 + len(payload)
	w.StartBoxSized(TypeUuid, total)
	idBytes, _ := id.MarshalBinary()
	w.putBytes(idBytes)
	w.putBytes(payload)
}
