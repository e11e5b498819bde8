package interval

import (
	"fmt"

	"github.com/grailbio/base/errors"
)

// Track is a set of intervals for each read of a read collection.
//
// The boundaries of read r are Data[Anno[r]:Anno[r+1]], sorted in
// nondecreasing order. Even-indexed boundaries open an interval and
// odd-indexed boundaries close it, so each read has an even number of
// boundaries. Alen[r] is the number of boundaries of read r.
type Track struct {
	Name string
	Anno []int64
	Data []PosType
	Alen []int32
}

// NewTrack returns a track with no intervals for nreads reads.
func NewTrack(name string, nreads int) *Track {
	return &Track{
		Name: name,
		Anno: make([]int64, nreads+1),
		Alen: make([]int32, nreads),
	}
}

// NumReads returns the number of reads covered by the track.
func (t *Track) NumReads() int {
	if len(t.Anno) == 0 {
		return 0
	}
	return len(t.Anno) - 1
}

// Boundaries returns the interval boundaries of read r. The result aliases
// t.Data.
func (t *Track) Boundaries(r int) []PosType {
	return t.Data[t.Anno[r]:t.Anno[r+1]]
}

// NumIntervals returns the total number of intervals in the track.
func (t *Track) NumIntervals() int {
	return len(t.Data) / 2
}

// Validate checks the structure of the track.
func (t *Track) Validate() error {
	if len(t.Anno) == 0 {
		return errors.E(errors.Invalid, fmt.Sprintf("track %s: empty annotation", t.Name))
	}
	nreads := t.NumReads()
	if t.Anno[0] != 0 || t.Anno[nreads] != int64(len(t.Data)) {
		return errors.E(errors.Invalid, fmt.Sprintf("track %s: annotation spans [%d,%d), data has %d boundaries",
			t.Name, t.Anno[0], t.Anno[nreads], len(t.Data)))
	}
	if t.Alen != nil && len(t.Alen) != nreads {
		return errors.E(errors.Invalid, fmt.Sprintf("track %s: %d lengths for %d reads", t.Name, len(t.Alen), nreads))
	}
	for r := 0; r < nreads; r++ {
		lo, hi := t.Anno[r], t.Anno[r+1]
		if hi < lo || hi > int64(len(t.Data)) {
			return errors.E(errors.Invalid, fmt.Sprintf("track %s: read %d: bad annotation [%d,%d)", t.Name, r, lo, hi))
		}
		if (hi-lo)%2 != 0 {
			return errors.E(errors.Invalid, fmt.Sprintf("track %s: read %d: odd number of boundaries", t.Name, r))
		}
		if t.Alen != nil && int64(t.Alen[r]) != hi-lo {
			return errors.E(errors.Invalid, fmt.Sprintf("track %s: read %d: length %d, want %d", t.Name, r, t.Alen[r], hi-lo))
		}
		for i := lo + 1; i < hi; i++ {
			if t.Data[i] < t.Data[i-1] {
				return errors.E(errors.Invalid, fmt.Sprintf("track %s: read %d: boundaries not sorted at %d", t.Name, r, t.Data[i]))
			}
		}
	}
	return nil
}

// Covered returns the number of positions of read r covered by the track.
func (t *Track) Covered(r int) int64 {
	us := NewUnionScanner(t.Boundaries(r))
	var (
		start, end PosType
		n          int64
	)
	for us.Scan(&start, &end, PosTypeMax) {
		n += int64(end - start)
	}
	return n
}

// Contains reports whether position pos of read r is covered by the track.
func (t *Track) Contains(r int, pos PosType) bool {
	return NewEndpointIndex(pos, t.Boundaries(r)).Contained()
}
