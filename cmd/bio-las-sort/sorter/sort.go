// Package sorter sorts the records of an alignment (.las) file and removes
// duplicate alignments.
package sorter

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"os"
	"sort"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/overlap/encoding/las"
	"v.io/x/lib/vlog"
)

// SortOptions controls options passed to Sort.
type SortOptions struct {
	// Order is the sort order of the output.
	Order las.Order

	// OutBufSize is the size of the output block. If <= 0,
	// las.DefaultBufSize is used.
	OutBufSize int

	// MemoryLimit, if > 0, bounds the number of record bytes held in memory.
	// Larger inputs are sorted in batches that are spilled to temp files in
	// TmpDir and merged. If <= 0 (default), the whole file is loaded into
	// memory and sorted at once.
	MemoryLimit int64

	// TmpDir defines the directory to store temp files created during
	// external sorting. "" means the system default, usually /tmp.
	TmpDir string

	// NoCompressTmpFiles, if false (default), compress temp files using snappy.
	NoCompressTmpFiles bool
}

// Stats describes one sorted file.
type Stats struct {
	// Input is the number of records in the input.
	Input int64
	// Output is the number of records written, after removing duplicates.
	Output int64
	// TraceBytes is the number of trace bytes in the input.
	TraceBytes int64
}

func (s Stats) String() string {
	return fmt.Sprintf("%d records %d trace bytes, %d written", s.Input, s.TraceBytes, s.Output)
}

// OutputPath returns the path of the sorted file for path: "x.las" becomes
// "x.S.las".
func OutputPath(path string) string {
	return strings.TrimSuffix(path, ".las") + ".S.las"
}

// sortKey is the sort key of a unit, with fields in the priority order of the
// sort order in use.
type sortKey [8]int32

func makeKey(o *las.Overlap, order las.Order) sortKey {
	p := &o.Path
	if order == las.MapOrder {
		return sortKey{o.ARead, p.ABPos, o.BRead, o.Flags.Comp(), p.AEPos, p.BBPos, p.BEPos, p.Diffs}
	}
	return sortKey{o.ARead, o.BRead, o.Flags.Comp(), p.ABPos, p.AEPos, p.BBPos, p.BEPos, p.Diffs}
}

func (k sortKey) compare(other sortKey) int {
	for i := range k {
		if k[i] < other[i] {
			return -1
		}
		if k[i] > other[i] {
			return 1
		}
	}
	return 0
}

// unit is the sort unit: a single record, or a chain start followed by the
// continuation records of its chain. seq is the position of the unit in the
// input, and breaks ties between equal keys.
type unit struct {
	key sortKey
	seq int64
	// body holds the serialized records of the unit.
	body []byte
}

func (u *unit) compare(other *unit) int {
	if c := u.key.compare(other.key); c != 0 {
		return c
	}
	switch {
	case u.seq < other.seq:
		return -1
	case u.seq > other.seq:
		return 1
	}
	return 0
}

func sortUnits(units []unit) {
	sort.Slice(units, func(i, j int) bool {
		return units[i].compare(&units[j]) < 0
	})
}

// emitter writes records to the output, dropping each record that repeats the
// alignment of the record before it.
type emitter struct {
	w       *las.Writer
	tbytes  int
	last    las.Overlap
	started bool
}

func sameAlignment(a, b *las.Overlap) bool {
	return a.ARead == b.ARead && a.BRead == b.BRead && a.Flags.Comp() == b.Flags.Comp() &&
		a.Path.ABPos == b.Path.ABPos && a.Path.AEPos == b.Path.AEPos &&
		a.Path.BBPos == b.Path.BBPos && a.Path.BEPos == b.Path.BEPos
}

// emit writes the records serialized in body.
func (e *emitter) emit(body []byte) error {
	var o las.Overlap
	for len(body) > 0 {
		if err := las.DecodeHead(body, &o); err != nil {
			return err
		}
		n := o.EncodedLen(e.tbytes)
		if n > len(body) {
			return las.ErrTruncated
		}
		if !e.started || !sameAlignment(&o, &e.last) {
			e.w.WriteRaw(body[:n])
		}
		e.last, e.started = o, true
		body = body[n:]
	}
	return nil
}

// scanUnits splits the first novl serialized records in body into units and
// appends them to units. If the first record starts a chain, each record
// without ChainNext starts a new unit and ChainNext records join the unit
// before them; otherwise every record is its own unit. It also returns the
// number of trace bytes found. Bytes left over after novl records are an
// error.
func scanUnits(body []byte, novl int64, tbytes int, order las.Order, units []unit) ([]unit, int64, error) {
	var (
		o      las.Overlap
		ntrace int64
		chains bool
		start  = -1
		off    int
	)
	for nrec := int64(0); nrec < novl; nrec++ {
		if off >= len(body) {
			return units, ntrace, las.ErrTooFewRecords
		}
		if err := las.DecodeHead(body[off:], &o); err != nil {
			if err == las.ErrTruncated {
				err = las.ErrTooFewRecords
			}
			return units, ntrace, err
		}
		n := o.EncodedLen(tbytes)
		if off+n > len(body) {
			return units, ntrace, las.ErrTooFewRecords
		}
		if nrec == 0 {
			chains = o.Flags.Start()
		}
		if !chains || !o.Flags.Next() || start < 0 {
			if start >= 0 {
				units[len(units)-1].body = body[start:off]
			}
			units = append(units, unit{key: makeKey(&o, order), seq: int64(len(units))})
			start = off
		}
		off += n
		ntrace += int64(o.TraceSize(tbytes))
	}
	if start >= 0 {
		units[len(units)-1].body = body[start:off]
	}
	if off < len(body) {
		return units, ntrace, las.ErrTooManyRecords
	}
	return units, ntrace, nil
}

// Sort reads one file from in and writes its records to out in sorted order,
// with duplicate alignments removed. The header count of out is the number of
// records actually written.
//
// Records are grouped into units before sorting. If the first record starts a
// chain, a unit is a chain start followed by its continuation records, which
// are kept together and in their original order; otherwise each record is a
// unit. Units are ordered by the key of their first record, and units with
// equal keys keep their input order.
//
// Unless opts.MemoryLimit is set, the whole file is held in memory.
func Sort(in io.Reader, out io.WriteSeeker, opts SortOptions) (Stats, error) {
	header, err := las.ReadHeader(in)
	if err != nil {
		return Stats{}, err
	}
	if err = header.Validate(); err != nil {
		return Stats{}, err
	}
	w := las.NewWriter(out, header, las.WriterOpts{BufSize: opts.OutBufSize})
	var stats Stats
	if opts.MemoryLimit > 0 {
		stats, err = externalSort(in, header, w, opts)
	} else {
		stats, err = memorySort(in, header, w, opts)
	}
	// A failed sort leaves the unfinished header in place.
	if err == nil {
		err = w.Close()
	}
	stats.Output = w.Count()
	vlog.VI(1).Infof("sort: %v", stats)
	return stats, err
}

func memorySort(in io.Reader, header las.Header, w *las.Writer, opts SortOptions) (Stats, error) {
	stats := Stats{Input: header.NOvl}
	body, err := ioutil.ReadAll(in)
	if err != nil {
		return stats, err
	}
	tbytes := header.TraceBytes()
	nunits := header.NOvl
	if n := int64(len(body) / las.RecordHeadSize); nunits > n {
		nunits = n
	}
	units, ntrace, err := scanUnits(body, header.NOvl, tbytes, opts.Order, make([]unit, 0, nunits))
	stats.TraceBytes = ntrace
	if err != nil {
		return stats, errors.E(errors.Invalid, err)
	}
	vlog.VI(1).Infof("sort: %d records in %d units", header.NOvl, len(units))
	sortUnits(units)
	e := emitter{w: w, tbytes: tbytes}
	for i := range units {
		if err := e.emit(units[i].body); err != nil {
			return stats, err
		}
	}
	return stats, w.Err()
}

// SortFile sorts the file at inPath and writes the result to outPath. An
// existing file at outPath is overwritten. If the sort fails, outPath is
// removed.
func SortFile(ctx context.Context, inPath, outPath string, opts SortOptions) (stats Stats, err error) {
	in, err := file.Open(ctx, inPath)
	if err != nil {
		return stats, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	// The header count is rewritten at the end, so the output must be
	// seekable.
	out, err := os.Create(outPath)
	if err != nil {
		return stats, err
	}
	stats, err = Sort(in.Reader(ctx), out, opts)
	if e := out.Close(); e != nil && err == nil {
		err = e
	}
	if err != nil {
		if e := os.Remove(outPath); e != nil {
			vlog.Errorf("sort %v: failed to remove %v: %v", inPath, outPath, e)
		}
		err = errors.E(err, fmt.Sprintf("sort %s", inPath))
	}
	return stats, err
}
