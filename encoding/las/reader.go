package las

import (
	"errors"
	"io"
)

// DefaultBufSize is the default size of the Reader and Writer buffers.
const DefaultBufSize = 1000 * 1000000

var (
	// ErrTooFewRecords is returned when the input ends before the number of
	// records declared in the header has been read.
	ErrTooFewRecords = errors.New("too few alignment records")
	// ErrTooManyRecords is returned when data remains after the number of
	// records declared in the header has been read.
	ErrTooManyRecords = errors.New("too many alignment records")
	// ErrRecordTooLarge is returned when a single record does not fit in the
	// reader's buffer.
	ErrRecordTooLarge = errors.New("alignment record larger than the read buffer")

	errDone = errors.New("done")
)

// ReaderOpts controls the behavior of a Reader.
type ReaderOpts struct {
	// BufSize is the size of the input buffer. If <= 0, DefaultBufSize is used.
	BufSize int
	// Buf, if non-nil, is used as the input buffer and BufSize is ignored.
	// It allows one buffer to be reused across files.
	Buf []byte
	// Header, if non-nil, is the header of the file, which the caller has
	// already read from the input.
	Header *Header
}

// Reader decodes the records of one file using a fixed-size buffer, so it can
// read files of any size. A record that straddles the end of the buffer is
// moved to the front of the buffer before the buffer is refilled.
//
// Example:
//   r, err := las.NewReader(in)
//   if err != nil { ... }
//   for r.Scan() {
//     ovl := r.Record()
//     ...
//   }
//   if err := r.Err(); err != nil { ... }
//
// Reader is not thread-safe.
type Reader struct {
	in     io.Reader
	header Header
	tbytes int

	buf      []byte
	ptr, top int  // unconsumed data is buf[ptr:top].
	eof      bool // true once in has returned io.EOF.
	off      int64

	n   int64 // # of records returned by Scan.
	rec Overlap
	raw []byte
	err error
}

// NewReader reads and validates the file header from in and returns a Reader
// positioned at the first record. A malformed header yields ErrTruncated,
// ErrNegativeCount, or ErrNegativeSpacing.
func NewReader(in io.Reader, opts ...ReaderOpts) (*Reader, error) {
	var o ReaderOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	var header Header
	if o.Header != nil {
		header = *o.Header
	} else {
		var err error
		if header, err = ReadHeader(in); err != nil {
			return nil, err
		}
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}
	buf := o.Buf
	if buf == nil {
		size := o.BufSize
		if size <= 0 {
			size = DefaultBufSize
		}
		buf = make([]byte, size)
	}
	r := &Reader{
		in:     in,
		header: header,
		tbytes: header.TraceBytes(),
		buf:    buf[:cap(buf)],
		off:    HeaderSize,
	}
	if err := r.refill(); err != nil {
		return nil, err
	}
	return r, nil
}

// Header returns the file header.
func (r *Reader) Header() Header { return r.header }

// TraceBytes returns the width of a trace value in this file.
func (r *Reader) TraceBytes() int { return r.tbytes }

// refill moves the unconsumed bytes to the front of the buffer, then fills the
// rest of the buffer from the input.
func (r *Reader) refill() error {
	remains := copy(r.buf, r.buf[r.ptr:r.top])
	r.ptr, r.top = 0, remains
	if r.eof {
		return nil
	}
	n, err := io.ReadFull(r.in, r.buf[r.top:])
	r.top += n
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		r.eof = true
		return nil
	}
	return err
}

// ensure makes sure that at least n bytes are available at buf[ptr:].
func (r *Reader) ensure(n int) error {
	if r.top-r.ptr >= n {
		return nil
	}
	if n > len(r.buf) {
		return ErrRecordTooLarge
	}
	if err := r.refill(); err != nil {
		return err
	}
	if r.top-r.ptr < n {
		return ErrTooFewRecords
	}
	return nil
}

// Scan decodes the next record. It returns false after the last declared
// record or on error. Once Scan returns false, it never returns true again;
// the caller should then check Err.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	if r.n >= r.header.NOvl {
		r.err = r.checkTrailing()
		return false
	}
	if r.err = r.ensure(RecordHeadSize); r.err != nil {
		return false
	}
	if r.err = DecodeHead(r.buf[r.ptr:r.top], &r.rec); r.err != nil {
		return false
	}
	size := r.rec.EncodedLen(r.tbytes)
	if r.err = r.ensure(size); r.err != nil {
		return false
	}
	if _, r.err = Decode(r.buf[r.ptr:r.top], r.tbytes, &r.rec); r.err != nil {
		return false
	}
	r.raw = r.buf[r.ptr : r.ptr+size : r.ptr+size]
	r.off += int64(size)
	r.ptr += size
	r.n++
	return true
}

// checkTrailing reports ErrTooManyRecords if any byte follows the last
// declared record.
func (r *Reader) checkTrailing() error {
	if r.ptr < r.top {
		return ErrTooManyRecords
	}
	if !r.eof {
		var b [1]byte
		n, err := io.ReadFull(r.in, b[:])
		if n > 0 {
			return ErrTooManyRecords
		}
		if err != io.EOF {
			return err
		}
		r.eof = true
	}
	return errDone
}

// Record returns the record decoded by the last successful Scan. The record,
// and its trace in particular, is valid only until the next call to Scan;
// use Overlap.Clone to retain it.
func (r *Reader) Record() *Overlap { return &r.rec }

// Raw returns the serialized bytes of the current record. It is valid only
// until the next call to Scan.
func (r *Reader) Raw() []byte { return r.raw }

// Offset returns the file offset just past the current record.
func (r *Reader) Offset() int64 { return r.off }

// Count returns the number of records decoded so far.
func (r *Reader) Count() int64 { return r.n }

// Err returns the error that stopped Scan, or nil if all the declared records
// were read and nothing followed them.
func (r *Reader) Err() error {
	if r.err == errDone {
		return nil
	}
	return r.err
}
