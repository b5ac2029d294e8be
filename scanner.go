package bmff

import (
	"io"

	"github.com/pkg/errors"
)

// Scanner walks the top-level boxes of a file-like io.ReadSeeker without
// loading box payloads into memory, per spec.md §4.4 ("the reader ... owns
// the file handle, drives the framing layer over the root scope"). Callers
// load a box's body on demand with ReadBody, typically only for moov/moof/
// ftyp; mdat and free/skip are left on disk.
type Scanner struct {
	r   io.ReadSeeker
	pos int64
	len int64 // total stream length, or -1 if unknown (size==0 boxes then run to EOF)

	entry Entry
	err   error
}

// Entry describes one top-level box as seen by the Scanner, without its payload.
type Entry struct {
	Type      BoxType
	Size      uint64 // size, header included; a declared 0 ("extends to EOF") is resolved against the stream length
	HeaderLen int
	Offset    int64 // file offset of the box's header
}

// DataSize returns the entry's payload size (declared size minus header length).
func (e Entry) DataSize() int64 {
	if e.Size == 0 {
		return -1 // unknown until the scanner resolves it against stream length
	}
	return int64(e.Size) - int64(e.HeaderLen)
}

// NewScanner creates a Scanner over r. If r also implements io.Seeker to a
// known end (the common case for os.File), total length is discovered
// lazily on the first size==0 box.
func NewScanner(r io.ReadSeeker) Scanner {
	return Scanner{r: r, len: -1}
}

func (s *Scanner) streamLen() (int64, error) {
	if s.len >= 0 {
		return s.len, nil
	}
	cur, err := s.r.Seek(0, io.SeekCurrent)
	if err != nil {
		return 0, err
	}
	end, err := s.r.Seek(0, io.SeekEnd)
	if err != nil {
		return 0, err
	}
	if _, err := s.r.Seek(cur, io.SeekStart); err != nil {
		return 0, err
	}
	s.len = end
	return end, nil
}

// Next advances to the next top-level box header. It returns false at EOF
// or on error (distinguish with Err).
func (s *Scanner) Next() bool {
	s.err = nil
	if _, err := s.r.Seek(s.pos, io.SeekStart); err != nil {
		s.err = err
		return false
	}

	var hdr [16]byte
	n, err := io.ReadFull(s.r, hdr[:8])
	if err != nil {
		if err == io.EOF && n == 0 {
			return false
		}
		s.err = errors.Wrap(ErrBadHeader, err.Error())
		return false
	}

	size32 := be.Uint32(hdr[0:4])
	var e Entry
	copy(e.Type[:], hdr[4:8])
	e.Offset = s.pos
	e.HeaderLen = 8

	switch size32 {
	case 1:
		if _, err := io.ReadFull(s.r, hdr[8:16]); err != nil {
			s.err = errors.Wrap(ErrBadHeader, err.Error())
			return false
		}
		e.Size = be.Uint64(hdr[8:16])
		e.HeaderLen = 16
	case 0:
		total, err := s.streamLen()
		if err != nil {
			s.err = err
			return false
		}
		e.Size = uint64(total - s.pos)
	default:
		e.Size = uint64(size32)
	}

	if e.Size != 0 && e.Size < uint64(e.HeaderLen) {
		s.err = ErrTruncated
		return false
	}

	s.entry = e
	nextPos := s.pos + int64(e.Size)
	s.pos = nextPos
	return true
}

// Entry returns the most recently scanned entry.
func (s *Scanner) Entry() Entry { return s.entry }

// Err returns the error that stopped the most recent Next, or nil on clean EOF.
func (s *Scanner) Err() error { return s.err }

// ReadBody reads the current entry's payload into dst, which must be
// exactly len == Entry().DataSize(). It seeks to the payload start, reads,
// then leaves the stream positioned at the start of the next box header
// (matching the position Next expects to resume from).
func (s *Scanner) ReadBody(dst []byte) error {
	e := s.entry
	payloadStart := e.Offset + int64(e.HeaderLen)
	if int64(len(dst)) != e.DataSize() {
		return errors.Errorf("bmff: ReadBody buffer length %d does not match entry data size %d", len(dst), e.DataSize())
	}
	if _, err := s.r.Seek(payloadStart, io.SeekStart); err != nil {
		return err
	}
	if _, err := io.ReadFull(s.r, dst); err != nil {
		return errors.Wrap(ErrTruncated, err.Error())
	}
	if _, err := s.r.Seek(e.Offset+int64(e.Size), io.SeekStart); err != nil {
		return err
	}
	return nil
}
