package las

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

const (
	// HeaderSize is the size of the file header, in bytes.
	HeaderSize = 12
	// RecordHeadSize is the size of the fixed part of a record, in bytes.
	RecordHeadSize = 36
	// TraceCrossover is the largest trace spacing for which trace points are
	// stored in one byte.
	TraceCrossover = 125
)

var (
	// ErrTruncated is returned when a buffer ends in the middle of a header,
	// a record head, or a trace.
	ErrTruncated = errors.New("truncated alignment record")
	// ErrBadTraceLength is returned when a record declares a negative trace
	// length.
	ErrBadTraceLength = errors.New("negative trace length")
	// ErrNegativeCount is returned for a header with novl < 0.
	ErrNegativeCount = errors.New("number of alignments < 0")
	// ErrNegativeSpacing is returned for a header with tspace < 0.
	ErrNegativeSpacing = errors.New("trace spacing < 0")
)

// Flags is the bitset stored in Overlap.Flags.
type Flags uint32

const (
	// Comp is set when the B read is complemented.
	Comp Flags = 0x1
	// AComp is set when the A read is complemented.
	AComp Flags = 0x2
	// ChainStart marks the first record of a chain.
	ChainStart Flags = 0x4
	// ChainNext marks a non-first record of a chain.
	ChainNext Flags = 0x8
	// ChainBest marks the chain start of the best chain for a read pair.
	ChainBest Flags = 0x10

	// ChainBits is the union of the chain flags.
	ChainBits = ChainStart | ChainNext | ChainBest
)

// Comp reports the orientation bit as 0 or 1.
func (f Flags) Comp() int32 { return int32(f & Comp) }

// Start reports whether ChainStart is set.
func (f Flags) Start() bool { return f&ChainStart != 0 }

// Next reports whether ChainNext is set.
func (f Flags) Next() bool { return f&ChainNext != 0 }

// Best reports whether ChainBest is set.
func (f Flags) Best() bool { return f&ChainBest != 0 }

// HasChain reports whether any chain bit is set.
func (f Flags) HasChain() bool { return f&ChainBits != 0 }

// Header is the file header.
type Header struct {
	// NOvl is the number of records in the file.
	NOvl int64
	// TSpace is the trace point spacing along the A read.
	TSpace int32
}

// TraceBytes returns the width of one trace value for this file.
func (h Header) TraceBytes() int { return TraceBytes(h.TSpace) }

// Validate checks the header values.
func (h Header) Validate() error {
	if h.NOvl < 0 {
		return ErrNegativeCount
	}
	if h.TSpace < 0 {
		return ErrNegativeSpacing
	}
	return nil
}

// Marshal stores the header in buf[:HeaderSize].
func (h Header) Marshal(buf []byte) {
	binary.LittleEndian.PutUint64(buf[0:8], uint64(h.NOvl))
	binary.LittleEndian.PutUint32(buf[8:12], uint32(h.TSpace))
}

// UnmarshalHeader decodes buf[:HeaderSize].
func UnmarshalHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrTruncated
	}
	return Header{
		NOvl:   int64(binary.LittleEndian.Uint64(buf[0:8])),
		TSpace: int32(binary.LittleEndian.Uint32(buf[8:12])),
	}, nil
}

// ReadHeader reads a header from r. A short header yields ErrTruncated.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Header{}, ErrTruncated
		}
		return Header{}, err
	}
	return UnmarshalHeader(buf[:])
}

// WriteHeader writes h to w.
func WriteHeader(w io.Writer, h Header) error {
	var buf [HeaderSize]byte
	h.Marshal(buf[:])
	_, err := w.Write(buf[:])
	return err
}

// TraceBytes computes the byte width of a trace value for the given trace
// spacing.
func TraceBytes(tspace int32) int {
	if tspace > 0 && tspace <= TraceCrossover {
		return 1
	}
	return 2
}

// Path describes the aligned intervals [ABPos,AEPos) and [BBPos,BEPos) and the
// trace of an alignment.
type Path struct {
	ABPos, AEPos int32
	BBPos, BEPos int32
	// Diffs is the number of differences in the alignment.
	Diffs int32
	// TLen is the number of trace values.
	TLen int32
	// Trace holds the TLen trace values, each TraceBytes wide. When an
	// Overlap is produced by Decode or Reader, Trace aliases the input buffer.
	Trace []byte
}

// Overlap is one alignment record.
type Overlap struct {
	ARead, BRead int32
	Flags        Flags
	Path         Path
}

// String implements fmt.Stringer.
func (o *Overlap) String() string {
	return fmt.Sprintf("{a:%d b:%d flags:%#x a:[%d,%d) b:[%d,%d) diffs:%d tlen:%d}",
		o.ARead, o.BRead, uint32(o.Flags), o.Path.ABPos, o.Path.AEPos,
		o.Path.BBPos, o.Path.BEPos, o.Path.Diffs, o.Path.TLen)
}

// Clone returns a deep copy of o. The trace of the copy does not share
// storage with o.
func (o *Overlap) Clone() Overlap {
	c := *o
	if o.Path.Trace != nil {
		c.Path.Trace = append([]byte(nil), o.Path.Trace...)
	}
	return c
}

// TraceSize returns the number of trace bytes for the given trace width.
func (o *Overlap) TraceSize(tbytes int) int { return int(o.Path.TLen) * tbytes }

// EncodedLen returns the serialized size of o.
func (o *Overlap) EncodedLen(tbytes int) int {
	return RecordHeadSize + o.TraceSize(tbytes)
}

// TracePoint returns the i'th value of a trace whose values are tbytes wide.
func TracePoint(trace []byte, tbytes, i int) int {
	if tbytes == 1 {
		return int(trace[i])
	}
	return int(binary.LittleEndian.Uint16(trace[2*i:]))
}

// PutTracePoint sets the i'th value of a trace whose values are tbytes wide.
func PutTracePoint(trace []byte, tbytes, i, v int) {
	if tbytes == 1 {
		trace[i] = uint8(v)
		return
	}
	binary.LittleEndian.PutUint16(trace[2*i:], uint16(v))
}

// DecodeHead decodes the fixed part of a record from buf. o.Path.Trace is
// left unchanged.
func DecodeHead(buf []byte, o *Overlap) error {
	if len(buf) < RecordHeadSize {
		return ErrTruncated
	}
	le := binary.LittleEndian
	o.ARead = int32(le.Uint32(buf[0:]))
	o.BRead = int32(le.Uint32(buf[4:]))
	o.Flags = Flags(le.Uint32(buf[8:]))
	o.Path.ABPos = int32(le.Uint32(buf[12:]))
	o.Path.AEPos = int32(le.Uint32(buf[16:]))
	o.Path.BBPos = int32(le.Uint32(buf[20:]))
	o.Path.BEPos = int32(le.Uint32(buf[24:]))
	o.Path.Diffs = int32(le.Uint32(buf[28:]))
	o.Path.TLen = int32(le.Uint32(buf[32:]))
	if o.Path.TLen < 0 {
		return ErrBadTraceLength
	}
	return nil
}

// Decode decodes one record from the beginning of buf and returns the number
// of bytes consumed. The decoded trace is a sub-slice of buf.
func Decode(buf []byte, tbytes int, o *Overlap) (int, error) {
	if err := DecodeHead(buf, o); err != nil {
		return 0, err
	}
	n := RecordHeadSize + o.TraceSize(tbytes)
	if len(buf) < n {
		return 0, ErrTruncated
	}
	if n == RecordHeadSize {
		o.Path.Trace = nil
	} else {
		o.Path.Trace = buf[RecordHeadSize:n:n]
	}
	return n, nil
}

// RecordLen returns the size of the record at the start of buf without
// decoding the rest of it.
func RecordLen(buf []byte, tbytes int) (int, error) {
	if len(buf) < RecordHeadSize {
		return 0, ErrTruncated
	}
	tlen := int32(binary.LittleEndian.Uint32(buf[32:]))
	if tlen < 0 {
		return 0, ErrBadTraceLength
	}
	return RecordHeadSize + int(tlen)*tbytes, nil
}

// AppendEncode appends the serialized form of o to dst. len(o.Path.Trace) must
// be o.Path.TLen*tbytes.
func AppendEncode(dst []byte, tbytes int, o *Overlap) []byte {
	if len(o.Path.Trace) != o.TraceSize(tbytes) {
		panic(fmt.Sprintf("las.AppendEncode: trace has %d bytes, want %d", len(o.Path.Trace), o.TraceSize(tbytes)))
	}
	var head [RecordHeadSize]byte
	le := binary.LittleEndian
	le.PutUint32(head[0:], uint32(o.ARead))
	le.PutUint32(head[4:], uint32(o.BRead))
	le.PutUint32(head[8:], uint32(o.Flags))
	le.PutUint32(head[12:], uint32(o.Path.ABPos))
	le.PutUint32(head[16:], uint32(o.Path.AEPos))
	le.PutUint32(head[20:], uint32(o.Path.BBPos))
	le.PutUint32(head[24:], uint32(o.Path.BEPos))
	le.PutUint32(head[28:], uint32(o.Path.Diffs))
	le.PutUint32(head[32:], uint32(o.Path.TLen))
	dst = append(dst, head[:]...)
	return append(dst, o.Path.Trace...)
}

// Encode serializes o into a new buffer.
func Encode(tbytes int, o *Overlap) []byte {
	return AppendEncode(make([]byte, 0, o.EncodedLen(tbytes)), tbytes, o)
}
