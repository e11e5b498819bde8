package interval

import (
	"math"
	"sort"
)

// This file supports queries against one read's boundaries in a track, an
// []PosType holding a sorted sequence of interval endpoints.
//
// For example, given the intervals
//   [5, 15)
//   [7, 17)
//   [20, 25)
// the union is
//   [5, 17) U [20, 25)
// so the sorted sequence of endpoints is
//   {5, 17, 20, 25}.
//
// UnionScanner iterates over these positions as follows:
//   us := NewUnionScanner([]PosType{5, 17, 20, 25})
//   var start, end PosType
//   for us.Scan(&start, &end, 22) {
//     // [5, 17), then [20, 22)
//   }
//   for us.Scan(&start, &end, 30) {
//     // [22, 25)
//   }

// PosType is the type of a position within a read.
type PosType int32

// PosTypeMax is the maximum value that can be represented by a PosType.
const PosTypeMax = math.MaxInt32

// SearchPosTypes returns the index of x in a[], or the position where x would
// be inserted if x isn't in a (this could be len(a)).
func SearchPosTypes(a []PosType, x PosType) EndpointIndex {
	return EndpointIndex(sort.Search(len(a), func(i int) bool { return a[i] >= x }))
}

// expsearchPosType performs exponential search, checking a[idx], then
// a[idx + 1], then a[idx + 3], then a[idx + 7], etc., and finishing with
// binary search once it has found an element >= x or hit the end of a.
func expsearchPosType(a []PosType, x PosType, idx EndpointIndex) EndpointIndex {
	nextIncr := EndpointIndex(1)
	startIdx := idx
	endIdx := EndpointIndex(len(a))
	for idx < endIdx {
		if a[idx] >= x {
			endIdx = idx
			break
		}
		startIdx = idx + 1
		idx += nextIncr
		nextIncr *= 2
	}
	for startIdx < endIdx {
		midIdx := EndpointIndex((uint(startIdx) + uint(endIdx)) >> 1)
		if a[midIdx] >= x {
			endIdx = midIdx
		} else {
			startIdx = midIdx + 1
		}
	}
	return startIdx
}

// EndpointIndex is the result of SearchPosTypes(endpoints, pos+1): the number
// of endpoints <= pos. NOTE THE "+1", which lines the search up with
// half-open intervals.
type EndpointIndex uint32

// NewEndpointIndex returns an EndpointIndex initialized to
// SearchPosTypes(endpoints, pos+1).
func NewEndpointIndex(pos PosType, endpoints []PosType) EndpointIndex {
	return SearchPosTypes(endpoints, pos+1)
}

// Contained returns whether the position is inside an interval.
func (ei EndpointIndex) Contained() bool {
	return ei&1 != 0
}

// Update updates the EndpointIndex to refer to newPos, which cannot be smaller
// than the previous position referred to by this EndpointIndex.
func (ei *EndpointIndex) Update(newPos PosType, endpoints []PosType) {
	*ei = expsearchPosType(endpoints, newPos+1, *ei)
}

// UnionScanner iterates over the intervals of one read.
// Invariants:
//   endpointIdx == SearchPosTypes(endpoints, pos+1)
//   pos is either contained in an interval, or is PosTypeMax
type UnionScanner struct {
	endpoints   []PosType
	pos         PosType
	endpointIdx EndpointIndex
}

// NewUnionScanner returns a UnionScanner positioned at the first interval.
func NewUnionScanner(endpoints []PosType) UnionScanner {
	us := UnionScanner{endpoints: endpoints, pos: PosTypeMax}
	us.skipEmpty(0)
	return us
}

// skipEmpty positions the scanner at the first non-empty interval whose start
// endpoint is at index >= idx.
func (us *UnionScanner) skipEmpty(idx EndpointIndex) {
	for int(idx)+1 < len(us.endpoints) {
		if us.endpoints[idx] < us.endpoints[idx+1] {
			us.pos = us.endpoints[idx]
			us.endpointIdx = idx + 1
			return
		}
		idx += 2
	}
	us.pos = PosTypeMax
	us.endpointIdx = EndpointIndex(len(us.endpoints))
}

// Pos returns the next position to be iterated over, or PosTypeMax if there
// aren't any.
func (us *UnionScanner) Pos() PosType {
	return us.pos
}

// Scan is written so that the following loop visits all within-interval
// positions up to (and not including) limit:
//   for us.Scan(&start, &end, limit) {
//     for pos := start; pos < end; pos++ {
//       // ...do stuff with pos...
//     }
//   }
func (us *UnionScanner) Scan(start *PosType, end *PosType, limit PosType) bool {
	if us.pos >= limit {
		return false
	}
	*start = us.pos
	intervalEnd := us.endpoints[us.endpointIdx]
	if intervalEnd > limit {
		us.pos = limit
		*end = limit
		return true
	}
	*end = intervalEnd
	us.skipEmpty(us.endpointIdx + 1)
	return true
}
