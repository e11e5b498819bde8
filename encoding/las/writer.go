package las

import (
	"io"

	"github.com/grailbio/base/errors"
)

// WriterOpts controls the behavior of a Writer.
type WriterOpts struct {
	// BufSize is the size of the output block. If <= 0, DefaultBufSize is
	// used.
	BufSize int
}

// UnfinishedCount is the record count in the header of an output whose
// Writer was never closed. Such a file fails Header.Validate.
const UnfinishedCount = -1

// Writer buffers records in a fixed-size block and writes the block to the
// output whenever the next record would not fit. The header is written with
// UnfinishedCount when the Writer is created, and Close rewrites it with the
// number of records actually written. An output abandoned without Close is
// therefore never mistaken for a complete file.
//
// Errors are sticky; they are reported by Close and Err.
type Writer struct {
	out    io.WriteSeeker
	header Header
	tbytes int
	buf    []byte
	n      int64
	err    errors.Once
}

// NewWriter creates a Writer and writes header to out, with the count
// replaced by UnfinishedCount.
func NewWriter(out io.WriteSeeker, header Header, opts ...WriterOpts) *Writer {
	var o WriterOpts
	if len(opts) > 0 {
		o = opts[0]
	}
	if o.BufSize <= 0 {
		o.BufSize = DefaultBufSize
	}
	w := &Writer{
		out:    out,
		header: header,
		tbytes: header.TraceBytes(),
		buf:    make([]byte, 0, o.BufSize),
	}
	placeholder := header
	placeholder.NOvl = UnfinishedCount
	w.err.Set(WriteHeader(out, placeholder))
	return w
}

// TraceBytes returns the width of a trace value in the output.
func (w *Writer) TraceBytes() int { return w.tbytes }

func (w *Writer) flush() {
	if len(w.buf) == 0 {
		return
	}
	if w.err.Err() == nil {
		_, err := w.out.Write(w.buf)
		w.err.Set(err)
	}
	w.buf = w.buf[:0]
}

// WriteRaw appends one serialized record.
func (w *Writer) WriteRaw(rec []byte) {
	w.n++
	if len(w.buf)+len(rec) > cap(w.buf) {
		w.flush()
		if len(rec) > cap(w.buf) {
			if w.err.Err() == nil {
				_, err := w.out.Write(rec)
				w.err.Set(err)
			}
			return
		}
	}
	w.buf = append(w.buf, rec...)
}

// Write serializes and appends o.
func (w *Writer) Write(o *Overlap) {
	if n := o.EncodedLen(w.tbytes); len(w.buf)+n <= cap(w.buf) {
		w.n++
		w.buf = AppendEncode(w.buf, w.tbytes, o)
		return
	}
	w.WriteRaw(Encode(w.tbytes, o))
}

// Count returns the number of records written so far.
func (w *Writer) Count() int64 { return w.n }

// Err returns the first error encountered so far.
func (w *Writer) Err() error { return w.err.Err() }

// Close flushes the buffered records and rewrites the header count. It does
// not close the underlying output.
func (w *Writer) Close() error {
	w.flush()
	if w.err.Err() != nil {
		return w.err.Err()
	}
	h := w.header
	h.NOvl = w.n
	if _, err := w.out.Seek(0, io.SeekStart); err != nil {
		w.err.Set(err)
		return w.err.Err()
	}
	w.err.Set(WriteHeader(w.out, h))
	if _, err := w.out.Seek(0, io.SeekEnd); err != nil {
		w.err.Set(err)
	}
	return w.err.Err()
}
