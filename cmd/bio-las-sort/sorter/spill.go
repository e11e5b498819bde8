package sorter

import (
	"encoding/binary"
	"fmt"
	"io"
	"io/ioutil"
	"os"

	"github.com/biogo/store/llrb"
	"github.com/golang/snappy"
	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/overlap/encoding/las"
	"v.io/x/lib/vlog"
)

// Spill files hold sorted runs of units during external sorting. A spill file
// is a recordio file. Each recordio block stores a sequence of units, with no
// padding between them:
//
//   key  [8]int32      // unit.key
//   seq  uint64        // unit.seq
//   size uint32        // size of body, in bytes
//   body [size]byte    // serialized records of the unit
//
// Blocks are approx. spillBlockSize bytes long before compression, and are
// snappy-compressed unless SortOptions.NoCompressTmpFiles is set. The
// recordio trailer records whether blocks are compressed, and the number of
// units in the file.
const (
	spillBlockSize       = 1 << 20
	spillUnitHeaderSize  = 44
	spillTrailerSize     = 9
	spillReaderBufSize   = 4 << 20
	spillTrailerSnappy   = 1
	spillFilePrefix      = "lassort"
	spillInvalidUnitSize = 0xffffffff
)

func putUnit(dst []byte, u *unit) []byte {
	var head [spillUnitHeaderSize]byte
	for i, v := range u.key {
		binary.LittleEndian.PutUint32(head[4*i:], uint32(v))
	}
	binary.LittleEndian.PutUint64(head[32:], uint64(u.seq))
	binary.LittleEndian.PutUint32(head[40:], uint32(len(u.body)))
	dst = append(dst, head[:]...)
	return append(dst, u.body...)
}

// getUnit parses the unit at the start of buf. u.body aliases buf.
func getUnit(buf []byte, u *unit) (int, error) {
	if len(buf) < spillUnitHeaderSize {
		return 0, fmt.Errorf("spill block: truncated unit header (%d bytes)", len(buf))
	}
	for i := range u.key {
		u.key[i] = int32(binary.LittleEndian.Uint32(buf[4*i:]))
	}
	u.seq = int64(binary.LittleEndian.Uint64(buf[32:]))
	size := binary.LittleEndian.Uint32(buf[40:])
	if size == spillInvalidUnitSize || uint64(len(buf)) < spillUnitHeaderSize+uint64(size) {
		return 0, fmt.Errorf("spill block: truncated unit body (%d bytes)", len(buf))
	}
	n := spillUnitHeaderSize + int(size)
	u.body = buf[spillUnitHeaderSize:n:n]
	return n, nil
}

// spillWriter produces one spill file.
//
// Example:
//   var err errors.Once
//   w := newSpillWriter(out, true, &err)
//   for i := range units {
//     w.add(&units[i])
//   }
//   w.finish()
//   if err.Err() != nil { ... }
type spillWriter struct {
	rio     recordio.Writer
	snappy  bool
	err     *errors.Once
	block   []byte // units added since the last flush.
	lastKey *unit
	nUnits  uint64
}

func newSpillWriter(out io.Writer, snappy bool, errReporter *errors.Once) *spillWriter {
	w := &spillWriter{
		snappy: snappy,
		err:    errReporter,
		block:  make([]byte, 0, spillBlockSize),
	}
	w.rio = recordio.NewWriter(out, recordio.WriterOpts{
		Marshal: func(scratch []byte, v interface{}) ([]byte, error) {
			return v.([]byte), nil
		},
	})
	w.rio.AddHeader(recordio.KeyTrailer, true)
	return w
}

// add appends a unit. Units must be added in increasing order.
func (w *spillWriter) add(u *unit) {
	if w.lastKey != nil && u.compare(w.lastKey) < 0 {
		vlog.Fatalf("spill: unit (%v,%d) decreased, last (%v,%d)", u.key, u.seq, w.lastKey.key, w.lastKey.seq)
	}
	w.lastKey = u
	if len(w.block) > 0 && len(w.block)+spillUnitHeaderSize+len(u.body) > spillBlockSize {
		w.flush()
	}
	w.block = putUnit(w.block, u)
	w.nUnits++
}

func (w *spillWriter) flush() {
	if len(w.block) == 0 {
		return
	}
	// The recordio writer may hold on to the appended slice until the block is
	// written, so it gets its own copy.
	var data []byte
	if w.snappy {
		data = snappy.Encode(nil, w.block)
	} else {
		data = append([]byte(nil), w.block...)
	}
	w.rio.Append(data)
	w.rio.Flush()
	w.block = w.block[:0]
}

// finish flushes pending units and writes the trailer. w becomes invalid
// after the call.
func (w *spillWriter) finish() {
	w.flush()
	w.rio.Wait()
	var trailer [spillTrailerSize]byte
	if w.snappy {
		trailer[0] = spillTrailerSnappy
	}
	binary.LittleEndian.PutUint64(trailer[1:], w.nUnits)
	w.rio.SetTrailer(trailer[:])
	w.err.Set(w.rio.Finish())
}

// spillReader reads the units of a spill file in order.
//
// Example:
//   var err errors.Once
//   r := newSpillReader(path, &err)
//   for r.scan() {
//     use r.unit()
//   }
//   r.close()
//   if err.Err() != nil { ... }
type spillReader struct {
	path   string
	in     file.File
	rio    recordio.Scanner
	snappy bool
	nUnits uint64
	err    *errors.Once

	block []byte // current decoded block.
	rest  []byte // part of block not parsed yet.
	cur   unit
}

func newSpillReader(path string, errReporter *errors.Once) *spillReader {
	r := &spillReader{path: path, err: errReporter}
	ctx := vcontext.Background()
	var err error
	if r.in, err = file.Open(ctx, path); err != nil {
		r.err.Set(err)
		return r
	}
	r.rio = recordio.NewScanner(r.in.Reader(ctx), recordio.ScannerOpts{})
	header := r.rio.Header()
	if !header.HasTrailer() {
		r.err.Set(fmt.Errorf("%s: spill file has no trailer (header: %+v)", path, header))
		return r
	}
	trailer := r.rio.Trailer()
	if len(trailer) != spillTrailerSize {
		r.err.Set(fmt.Errorf("%s: bad spill trailer %v", path, trailer))
		return r
	}
	r.snappy = trailer[0] == spillTrailerSnappy
	r.nUnits = binary.LittleEndian.Uint64(trailer[1:])
	vlog.VI(1).Infof("%s: opened spill file, %d units, snappy=%v", path, r.nUnits, r.snappy)
	return r
}

// scan reads the next unit. The previous unit becomes invalid.
func (r *spillReader) scan() bool {
	if r.rio == nil || r.err.Err() != nil {
		return false
	}
	for len(r.rest) == 0 {
		if !r.rio.Scan() {
			r.err.Set(r.rio.Err())
			return false
		}
		data := r.rio.Get().([]byte)
		if r.snappy {
			var err error
			if r.block, err = snappy.Decode(r.block[:cap(r.block)], data); err != nil {
				r.err.Set(errors.E(err, r.path))
				return false
			}
		} else {
			r.block = append(r.block[:0], data...)
		}
		r.rest = r.block
	}
	n, err := getUnit(r.rest, &r.cur)
	if err != nil {
		r.err.Set(errors.E(err, r.path))
		return false
	}
	r.rest = r.rest[n:]
	return true
}

// unit returns the current unit.
//
// REQUIRES: scan() returned true.
func (r *spillReader) unit() *unit { return &r.cur }

func (r *spillReader) close() {
	if r.in != nil {
		r.err.Set(r.in.Close(vcontext.Background()))
	}
}

// mergeLeaf is one input of the N-way merge.
type mergeLeaf struct {
	seq    int
	reader *spillReader
	done   bool // reader.scan() returned false?
}

func (l *mergeLeaf) Compare(c1 llrb.Comparable) int {
	l1 := c1.(*mergeLeaf)
	if c := l.reader.unit().compare(l1.reader.unit()); c != 0 {
		return c
	}
	return l.seq - l1.seq
}

// mergeSpills merges spill files and calls callback for each unit in sort
// order. If callback returns false, mergeSpills stops.
func mergeSpills(readers []*spillReader, callback func(u *unit) bool) {
	// A binary tree is used rather than a heap: the leaf at the top tends to
	// stay there for many units, which makes each step amortized O(1).
	leafs := llrb.Tree{}
	for i, r := range readers {
		if r.scan() {
			leafs.Insert(&mergeLeaf{seq: i, reader: r})
		}
	}
	vlog.VI(1).Infof("Merging %d spill files, %d leafs active", len(readers), leafs.Len())

	for leafs.Len() > 0 {
		// top is the smallest leaf, and next the 2nd smallest, or nil if top is
		// the only leaf.
		var top, next *mergeLeaf
		nthiter := 0
		leafs.Do(func(item llrb.Comparable) bool {
			nthiter++
			if nthiter == 1 {
				top = item.(*mergeLeaf)
				return false
			}
			next = item.(*mergeLeaf)
			return true
		})
		// Read units from top until it becomes larger than next.
		for {
			if !callback(top.reader.unit()) {
				return
			}
			top.done = !top.reader.scan()
			if top.done || (next != nil && next.reader.unit().compare(top.reader.unit()) < 0) {
				break
			}
		}
		leafs.DeleteMin()
		if !top.done {
			leafs.Insert(top)
		}
	}
}

// batch accumulates units read from the input. Unit bodies are stored back
// to back in body; starts[i] is the offset of units[i].body.
type batch struct {
	body   []byte
	units  []unit
	starts []int
}

func (b *batch) reset() {
	b.body = b.body[:0]
	b.units = b.units[:0]
	b.starts = b.starts[:0]
}

// sorted sets the unit bodies and sorts the units.
func (b *batch) sorted() []unit {
	for i := range b.units {
		end := len(b.body)
		if i+1 < len(b.starts) {
			end = b.starts[i+1]
		}
		b.units[i].body = b.body[b.starts[i]:end]
	}
	sortUnits(b.units)
	return b.units
}

// spill sorts the batch and writes it to a new temp file.
func (b *batch) spill(opts SortOptions) (string, error) {
	var err errors.Once
	temp, e := ioutil.TempFile(opts.TmpDir, spillFilePrefix)
	if e != nil {
		return "", e
	}
	units := b.sorted()
	vlog.VI(1).Infof("Spilling %d units (%d bytes) to %s", len(units), len(b.body), temp.Name())
	w := newSpillWriter(temp, !opts.NoCompressTmpFiles, &err)
	for i := range units {
		w.add(&units[i])
	}
	w.finish()
	err.Set(temp.Close())
	return temp.Name(), err.Err()
}

// externalSort sorts the records that follow header in in, holding about
// opts.MemoryLimit bytes of records in memory at a time. Sorted batches are
// spilled to temp files, which are then merged.
func externalSort(in io.Reader, header las.Header, w *las.Writer, opts SortOptions) (stats Stats, err error) {
	stats = Stats{Input: header.NOvl}
	r, err := las.NewReader(in, las.ReaderOpts{BufSize: spillReaderBufSize, Header: &header})
	if err != nil {
		return stats, err
	}
	var (
		tbytes = header.TraceBytes()
		b      batch
		spills []string
		chains bool
		seq    int64
	)
	defer func() {
		for _, path := range spills {
			if e := os.Remove(path); e != nil {
				vlog.Errorf("sort %v: failed to remove sorter tmp file: %v", path, e)
			}
		}
	}()
	for r.Scan() {
		o := r.Record()
		if r.Count() == 1 {
			chains = o.Flags.Start()
		}
		if !chains || !o.Flags.Next() || len(b.units) == 0 {
			if int64(len(b.body)) >= opts.MemoryLimit {
				path, err := b.spill(opts)
				if path != "" {
					spills = append(spills, path)
				}
				if err != nil {
					return stats, err
				}
				b.reset()
			}
			b.units = append(b.units, unit{key: makeKey(o, opts.Order), seq: seq})
			b.starts = append(b.starts, len(b.body))
			seq++
		}
		b.body = append(b.body, r.Raw()...)
		stats.TraceBytes += int64(o.TraceSize(tbytes))
	}
	if err := r.Err(); err != nil {
		return stats, errors.E(errors.Invalid, err)
	}
	e := emitter{w: w, tbytes: tbytes}
	if len(spills) == 0 {
		// Everything fit in memory.
		units := b.sorted()
		for i := range units {
			if err := e.emit(units[i].body); err != nil {
				return stats, err
			}
		}
		return stats, w.Err()
	}
	if len(b.units) > 0 {
		path, err := b.spill(opts)
		if path != "" {
			spills = append(spills, path)
		}
		if err != nil {
			return stats, err
		}
		b.reset()
	}
	vlog.VI(1).Infof("sort: merging %d spill files", len(spills))
	var mergeErr errors.Once
	readers := make([]*spillReader, len(spills))
	for i, path := range spills {
		readers[i] = newSpillReader(path, &mergeErr)
	}
	if mergeErr.Err() == nil {
		mergeSpills(readers, func(u *unit) bool {
			if err := e.emit(u.body); err != nil {
				mergeErr.Set(err)
				return false
			}
			return true
		})
	}
	for _, r := range readers {
		r.close()
	}
	mergeErr.Set(w.Err())
	return stats, mergeErr.Err()
}
