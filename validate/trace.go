package validate

import "github.com/grailbio/overlap/encoding/las"

// TraceChecker decides whether the trace of a record is well formed for a
// file with trace spacing tspace.
type TraceChecker interface {
	CheckTrace(o *las.Overlap, tspace int32) bool
}

// TracePointChecker is the default TraceChecker. See CheckTracePoints.
type TracePointChecker struct{}

// CheckTrace implements TraceChecker.
func (TracePointChecker) CheckTrace(o *las.Overlap, tspace int32) bool {
	return CheckTracePoints(o, tspace) == 0
}

// CheckTracePoints checks the trace of o against its aligned intervals.
// A trace holds a (diffs, B advance) pair for each tspace-aligned panel that
// the A interval touches, so it must have 2*panels values, and the B
// advances must add up to the length of the B interval. A trace spacing of
// zero means the file carries no usable trace points and nothing is
// checked. It returns 0 if the trace is well formed, and BadTraceLength or
// BadTrace otherwise.
func CheckTracePoints(o *las.Overlap, tspace int32) Code {
	if tspace == 0 {
		return 0
	}
	p := &o.Path
	if ((p.AEPos-1)/tspace-p.ABPos/tspace)*2 != p.TLen-2 {
		return BadTraceLength
	}
	tbytes := las.TraceBytes(tspace)
	b := int64(p.BBPos)
	for i := 1; i < int(p.TLen); i += 2 {
		b += int64(las.TracePoint(p.Trace, tbytes, i))
	}
	if b != int64(p.BEPos) {
		return BadTrace
	}
	return 0
}
