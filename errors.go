package bmff

import "github.com/pkg/errors"

// Error kinds returned by the framing layer, typed box codecs, and the
// sample-table engine. Wrap these with errors.Wrapf to attach box-path
// context; unwrap with errors.Is.
var (
	// ErrTruncated means a box's declared size exceeds the remaining bytes.
	ErrTruncated = errors.New("bmff: truncated box")
	// ErrBadMagic means ftyp is absent or misplaced.
	ErrBadMagic = errors.New("bmff: bad magic (ftyp missing or misplaced)")
	// ErrBadVersion means a full box carries a version this codec does not support.
	ErrBadVersion = errors.New("bmff: unsupported box version")
	// ErrBadDescriptor means a descriptor TLV inside esds is malformed.
	ErrBadDescriptor = errors.New("bmff: malformed descriptor")
	// ErrBadFtyp means ftyp's size is not a multiple of 4 bytes.
	ErrBadFtyp = errors.New("bmff: ftyp size not a multiple of 4")
	// ErrMissingChild means a container is missing a required child box.
	ErrMissingChild = errors.New("bmff: missing required child box")
	// ErrOverrun means a child box claims more bytes than its parent allows.
	ErrOverrun = errors.New("bmff: child box overruns parent")
	// ErrNoSuchTrack means a track id does not exist in the parsed moov.
	ErrNoSuchTrack = errors.New("bmff: no such track")
	// ErrNoSuchSample means a sample id is out of range, or the track has no sample table.
	ErrNoSuchSample = errors.New("bmff: no such sample")
	// ErrTableOverflow means prefix-sum arithmetic over a sample table overflowed.
	ErrTableOverflow = errors.New("bmff: sample table arithmetic overflow")
	// ErrWrongState means a Writer method was called out of its state-machine order.
	ErrWrongState = errors.New("bmff: writer used in wrong state")
	// ErrIoCancelled means the underlying I/O reported cancellation.
	ErrIoCancelled = errors.New("bmff: io cancelled")
	// ErrMissingChunkOffsets means neither stco nor co64 is present for a track.
	ErrMissingChunkOffsets = errors.New("bmff: missing chunk offset table (stco/co64)")
	// ErrUnsupportedStsz means a sample-size variant (e.g. stz2) this codec does not decode.
	ErrUnsupportedStsz = errors.New("bmff: unsupported sample size table")
	// ErrBadHeader means fewer than 8 bytes remain for a box header.
	ErrBadHeader = errors.New("bmff: short box header")
)

// BoxError annotates an error with the box type and byte offset at which it occurred.
type BoxError struct {
	Type   BoxType
	Offset int64
	Err    error
}

func (e *BoxError) Error() string {
	return errors.Wrapf(e.Err, "box %s at offset %d", e.Type, e.Offset).Error()
}

func (e *BoxError) Unwrap() error { return e.Err }

// wrapBox attaches box-path context to err, or returns nil if err is nil.
func wrapBox(t BoxType, offset int64, err error) error {
	if err == nil {
		return nil
	}
	return &BoxError{Type: t, Offset: offset, Err: err}
}
