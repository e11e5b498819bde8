package validate

import (
	"fmt"
	"strings"
)

// Code identifies the structural check that a file failed.
type Code int

const (
	// NegativeCount: the header declares fewer than zero records.
	NegativeCount Code = iota + 1
	// NegativeSpacing: the header declares a negative trace spacing.
	NegativeSpacing
	// ShortHeader: the file ends inside the header.
	ShortHeader
	// NegativeIndex: a read index is negative.
	NegativeIndex
	// IndexOutOfRange: a read index is not in the read collection.
	IndexOutOfRange
	// BadInterval: an aligned interval is empty, inverted or outside its read.
	BadInterval
	// BadDiffs: the difference count is negative or longer than a read.
	BadDiffs
	// BadTraceLength: the trace has the wrong number of points.
	BadTraceLength
	// BadTrace: the trace points are inconsistent with the aligned intervals.
	BadTrace
	// StartAndNext: a record has both ChainStart and ChainNext.
	StartAndNext
	// BestAndNext: a record has both ChainBest and ChainNext.
	BestAndNext
	// UnexpectedChainFlags: a record has chain flags in a file without chains.
	UnexpectedChainFlags
	// MissingChainFlags: a record has no chain flags in a file with chains.
	MissingChainFlags
	// BrokenChain: a ChainNext record does not continue the preceding record.
	BrokenChain
	// Unsorted: records are out of order.
	Unsorted
	// UnsortedChains: chains are out of order.
	UnsortedChains
	// Duplicate: a record repeats the alignment of a preceding record.
	Duplicate
	// TooFewRecords: the file ends before the declared number of records.
	TooFewRecords
	// TooManyRecords: data follows the declared number of records.
	TooManyRecords
)

var codeNames = [...]string{
	NegativeCount:        "number of alignments < 0",
	NegativeSpacing:      "trace spacing < 0",
	ShortHeader:          "file is shorter than its header",
	NegativeIndex:        "read indices < 0",
	IndexOutOfRange:      "read indices out of range",
	BadInterval:          "non-sense alignment intervals",
	BadDiffs:             "non-sense number of differences",
	BadTraceLength:       "wrong number of trace points",
	BadTrace:             "trace point sum != aligned interval",
	StartAndNext:         "alignment has both start & next flag set",
	BestAndNext:          "alignment has both best & next flag set",
	UnexpectedChainFlags: "alignments should not have chain flags",
	MissingChainFlags:    "alignment is missing chain flags",
	BrokenChain:          "chain is not valid",
	Unsorted:             "alignments are not sorted",
	UnsortedChains:       "chains are not sorted",
	Duplicate:            "duplicate alignments",
	TooFewRecords:        "too few alignment records",
	TooManyRecords:       "too many alignment records",
}

func (c Code) String() string {
	if c > 0 && int(c) < len(codeNames) {
		return codeNames[c]
	}
	return fmt.Sprintf("code(%d)", int(c))
}

// Violation describes the first structural problem found in a file.
type Violation struct {
	// File is the display name of the file.
	File string
	// Record is the 0-based index of the offending record, or -1 if the
	// problem is not tied to a record.
	Record int64
	Code   Code
	// ARead and BRead are the read indices of the offending record. They are
	// meaningful only if Record >= 0.
	ARead, BRead int32
}

func (v *Violation) Error() string {
	if v.Record < 0 {
		return fmt.Sprintf("%s: %s", v.File, v.Code)
	}
	return fmt.Sprintf("%s: record %d (%d vs %d): %s", v.File, v.Record, v.ARead, v.BRead, v.Code)
}

// IsViolation reports whether err is a structural violation, as opposed to an
// I/O or resource failure.
func IsViolation(err error) bool {
	_, ok := err.(*Violation)
	return ok
}

// Summary accumulates the outcome of checking a sequence of files.
type Summary struct {
	Files      int
	Records    int64
	Violations []*Violation
}

// Add records the result of checking one file. It returns err unchanged
// unless err is a violation, in which case the violation is retained and nil
// is returned.
func (s *Summary) Add(nrec int64, err error) error {
	s.Files++
	if err == nil {
		s.Records += nrec
		return nil
	}
	if v, ok := err.(*Violation); ok {
		s.Violations = append(s.Violations, v)
		return nil
	}
	return err
}

// Failed reports whether any file failed.
func (s *Summary) Failed() bool { return len(s.Violations) > 0 }

func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%d files, %d records, %d failed", s.Files, s.Records, len(s.Violations))
	for _, v := range s.Violations {
		b.WriteString("\n  ")
		b.WriteString(v.Error())
	}
	return b.String()
}
