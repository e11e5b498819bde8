package interval

import (
	"container/heap"
	"fmt"

	"github.com/grailbio/base/errors"
)

// cursor yields the boundaries of one read in one input track.
type cursor struct {
	idx  int // index of the track, for tie breaking.
	data []PosType
	i    int // next boundary is data[i].
}

// open reports whether the next boundary opens an interval.
func (c *cursor) open() bool { return c.i%2 == 0 }

// cursorHeap orders cursors by their next boundary. At equal positions,
// boundaries that open an interval come first, so that touching intervals are
// merged.
type cursorHeap []*cursor

func (h cursorHeap) Len() int { return len(h) }

func (h cursorHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if pa, pb := a.data[a.i], b.data[b.i]; pa != pb {
		return pa < pb
	}
	if oa, ob := a.open(), b.open(); oa != ob {
		return oa
	}
	return a.idx < b.idx
}

func (h cursorHeap) Swap(i, j int) { h[i], h[j] = h[j], h[i] }

func (h *cursorHeap) Push(x interface{}) { *h = append(*h, x.(*cursor)) }

func (h *cursorHeap) Pop() interface{} {
	old := *h
	c := old[len(old)-1]
	*h = old[:len(old)-1]
	return c
}

// merger sweeps the boundaries of all the tracks, one read at a time. A cursor
// leaves the heap once it has no more boundaries for the current read.
type merger struct {
	tracks  []*Track
	cursors []cursor
	heap    cursorHeap
}

func newMerger(tracks []*Track) *merger {
	m := &merger{
		tracks:  tracks,
		cursors: make([]cursor, len(tracks)),
		heap:    make(cursorHeap, 0, len(tracks)),
	}
	for i := range m.cursors {
		m.cursors[i].idx = i
	}
	return m
}

// sweep calls emit for each interval of the union of the tracks on read r, in
// increasing order. Intervals of the union are maximal: they neither overlap
// nor touch, and none is empty.
func (m *merger) sweep(r int, emit func(start, end PosType)) {
	m.heap = m.heap[:0]
	for i, t := range m.tracks {
		c := &m.cursors[i]
		c.data, c.i = t.Boundaries(r), 0
		if len(c.data) > 0 {
			m.heap = append(m.heap, c)
		}
	}
	heap.Init(&m.heap)
	var (
		level        int
		start        PosType
		pending      bool // [pstart, pend) is closed but may still be extended.
		pstart, pend PosType
	)
	for len(m.heap) > 0 {
		c := m.heap[0]
		pos := c.data[c.i]
		if c.open() {
			if level == 0 {
				if pending && pos == pend {
					start, pending = pstart, false
				} else {
					start = pos
				}
			}
			level++
		} else {
			level--
			if level == 0 && pos > start {
				if pending {
					emit(pstart, pend)
				}
				pstart, pend, pending = start, pos, true
			}
		}
		c.i++
		if c.i < len(c.data) {
			heap.Fix(&m.heap, 0)
		} else {
			heap.Pop(&m.heap)
		}
	}
	if pending {
		emit(pstart, pend)
	}
}

// Merge returns a new track whose intervals on each read are the union of
// the intervals of tracks on that read. Overlapping and touching intervals
// are combined, and empty intervals are dropped. The tracks must cover the
// same reads. The result does not share memory with the inputs.
//
// Merge makes two passes over the inputs: the first counts the boundaries of
// the result, and the second fills them in.
func Merge(tracks ...*Track) (*Track, error) {
	if len(tracks) == 0 {
		return nil, errors.E(errors.Invalid, "interval.Merge: no tracks")
	}
	nreads := tracks[0].NumReads()
	for _, t := range tracks {
		if err := t.Validate(); err != nil {
			return nil, err
		}
		if t.NumReads() != nreads {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("interval.Merge: track %s has %d reads, track %s has %d",
				t.Name, t.NumReads(), tracks[0].Name, nreads))
		}
	}
	m := newMerger(tracks)

	var nsize int64
	count := func(start, end PosType) { nsize += 2 }
	for r := 0; r < nreads; r++ {
		m.sweep(r, count)
	}

	merged := &Track{
		Name: "merge",
		Anno: make([]int64, nreads+1),
		Data: make([]PosType, 0, nsize),
		Alen: make([]int32, nreads),
	}
	fill := func(start, end PosType) { merged.Data = append(merged.Data, start, end) }
	for r := 0; r < nreads; r++ {
		merged.Anno[r] = int64(len(merged.Data))
		m.sweep(r, fill)
		merged.Alen[r] = int32(int64(len(merged.Data)) - merged.Anno[r])
	}
	merged.Anno[nreads] = int64(len(merged.Data))
	return merged, nil
}
