// Package lastest builds alignment records and files for tests.
package lastest

import (
	"io"

	"github.com/grailbio/overlap/encoding/las"
)

// Overlap returns a record with a trace that is well formed for trace
// spacing tspace: one (diffs, B advance) pair per tspace-aligned panel of the
// A interval, with the B advances spread evenly over the B interval. If
// tspace is 0, the trace is empty.
func Overlap(tspace int32, aread, bread int32, flags las.Flags, abpos, aepos, bbpos, bepos int32) las.Overlap {
	o := las.Overlap{
		ARead: aread,
		BRead: bread,
		Flags: flags,
		Path: las.Path{
			ABPos: abpos,
			AEPos: aepos,
			BBPos: bbpos,
			BEPos: bepos,
		},
	}
	if tspace == 0 {
		return o
	}
	tbytes := las.TraceBytes(tspace)
	panels := (aepos-1)/tspace - abpos/tspace + 1
	o.Path.TLen = 2 * panels
	o.Path.Trace = make([]byte, int(o.Path.TLen)*tbytes)
	blen := bepos - bbpos
	for i := int32(0); i < panels; i++ {
		adv := blen / panels
		if i == panels-1 {
			adv = blen - adv*(panels-1)
		}
		las.PutTracePoint(o.Path.Trace, tbytes, int(2*i), 1)
		las.PutTracePoint(o.Path.Trace, tbytes, int(2*i+1), int(adv))
		o.Path.Diffs++
	}
	return o
}

// File serializes a header declaring novl records, followed by recs.
func File(tspace int32, novl int64, recs ...las.Overlap) []byte {
	buf := make([]byte, las.HeaderSize)
	las.Header{NOvl: novl, TSpace: tspace}.Marshal(buf)
	tbytes := las.TraceBytes(tspace)
	for i := range recs {
		buf = las.AppendEncode(buf, tbytes, &recs[i])
	}
	return buf
}

// Records serializes a well-formed file holding recs.
func Records(tspace int32, recs ...las.Overlap) []byte {
	return File(tspace, int64(len(recs)), recs...)
}

// Seeker is an in-memory io.WriteSeeker.
type Seeker struct {
	Buf []byte
	pos int64
}

// Write implements io.Writer.
func (s *Seeker) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.Buf)) {
		s.Buf = append(s.Buf, make([]byte, end-int64(len(s.Buf)))...)
	}
	copy(s.Buf[s.pos:], p)
	s.pos = end
	return len(p), nil
}

// Seek implements io.Seeker.
func (s *Seeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	case io.SeekEnd:
		s.pos = int64(len(s.Buf)) + offset
	}
	return s.pos, nil
}
