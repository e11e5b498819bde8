// Package validate checks the structural invariants of alignment (.las)
// files: header sanity, per-record field ranges, trace points, chain flags
// and, optionally, sort order and the absence of duplicates.
package validate

import (
	"context"
	"io"

	"github.com/grailbio/base/file"
	"github.com/grailbio/overlap/encoding/las"
	"github.com/grailbio/overlap/readdb"
)

// Opts controls a Validator.
type Opts struct {
	// Sorted enables the sort order and duplicate checks.
	Sorted bool
	// Order is the order that Sorted checks for.
	Order las.Order
	// BufSize is the size of the read buffer. If <= 0, las.DefaultBufSize is
	// used.
	BufSize int
	// Trace checks the trace of each record. If nil, CheckTracePoints is used.
	Trace TraceChecker
}

// Validator checks files whose A reads come from one read collection and B
// reads from another (possibly the same). The read buffer is shared by all
// the files checked by one Validator, so a Validator is not thread-safe.
type Validator struct {
	a, b readdb.DB
	opts Opts
	buf  []byte
}

// New creates a Validator. If b is nil, a is used for both reads.
func New(a, b readdb.DB, opts Opts) *Validator {
	if b == nil {
		b = a
	}
	if opts.BufSize <= 0 {
		opts.BufSize = las.DefaultBufSize
	}
	return &Validator{a: a, b: b, opts: opts}
}

// CheckFile opens path and checks it. See Check.
func (v *Validator) CheckFile(ctx context.Context, path string) (n int64, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return 0, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	return v.Check(path, in.Reader(ctx))
}

// Check reads one file from in and returns the number of records in it. A
// structural problem is reported as a *Violation naming the file as name;
// any other error comes from reading in.
func (v *Validator) Check(name string, in io.Reader) (int64, error) {
	if v.buf == nil {
		v.buf = make([]byte, v.opts.BufSize)
	}
	r, err := las.NewReader(in, las.ReaderOpts{Buf: v.buf})
	if err != nil {
		return 0, streamError(name, err)
	}
	c := checker{
		Validator: v,
		tspace:    r.Header().TSpace,
		last:      sentinel,
		prev:      sentinel,
	}
	for r.Scan() {
		o := r.Record()
		if code := c.check(r.Count()-1, o); code != 0 {
			return 0, &Violation{File: name, Record: r.Count() - 1, Code: code, ARead: o.ARead, BRead: o.BRead}
		}
	}
	if err := r.Err(); err != nil {
		return 0, streamError(name, err)
	}
	return r.Count(), nil
}

// streamError converts reader errors to violations where they describe the
// file rather than the input stream.
func streamError(name string, err error) error {
	var code Code
	switch err {
	case las.ErrTruncated:
		code = ShortHeader
	case las.ErrNegativeCount:
		code = NegativeCount
	case las.ErrNegativeSpacing:
		code = NegativeSpacing
	case las.ErrTooFewRecords:
		code = TooFewRecords
	case las.ErrTooManyRecords:
		code = TooManyRecords
	case las.ErrBadTraceLength, las.ErrRecordTooLarge:
		code = BadTraceLength
	default:
		return err
	}
	return &Violation{File: name, Record: -1, Code: code}
}

// key is the part of a record that the order and duplicate checks look at.
type key struct {
	aread, bread int32
	comp         int32
	flags        las.Flags
	abpos, aepos int32
	bbpos, bepos int32
}

// sentinel precedes every valid record.
var sentinel = key{aread: -1, bread: -1}

func keyOf(o *las.Overlap) key {
	return key{
		aread: o.ARead,
		bread: o.BRead,
		comp:  o.Flags.Comp(),
		flags: o.Flags,
		abpos: o.Path.ABPos,
		aepos: o.Path.AEPos,
		bbpos: o.Path.BBPos,
		bepos: o.Path.BEPos,
	}
}

// same reports whether k and x describe the same alignment.
func (k key) same(x key) bool {
	return k.aread == x.aread && k.bread == x.bread && k.comp == x.comp &&
		k.abpos == x.abpos && k.aepos == x.aepos && k.bbpos == x.bbpos && k.bepos == x.bepos
}

// compare orders k and x by the leading fields of the sort order.
func (k key) compare(x key, order las.Order) int {
	if c := cmp32(k.aread, x.aread); c != 0 {
		return c
	}
	if order == las.PileOrder {
		if c := cmp32(k.bread, x.bread); c != 0 {
			return c
		}
		if c := cmp32(k.comp, x.comp); c != 0 {
			return c
		}
	}
	return cmp32(k.abpos, x.abpos)
}

func cmp32(a, b int32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

// checker holds the state of one file check. last is the preceding record
// and prev the most recent chain start.
type checker struct {
	*Validator
	tspace    int32
	hasChains bool
	last      key
	prev      key
}

func (c *checker) check(i int64, o *las.Overlap) Code {
	if code := c.checkFields(o); code != 0 {
		return code
	}
	if i == 0 {
		c.hasChains = o.Flags.HasChain()
	}
	if code := c.checkFlags(i, o.Flags); code != 0 {
		return code
	}
	k := keyOf(o)
	if c.opts.Sorted {
		if code := c.checkOrder(k); code != 0 {
			return code
		}
	}
	c.last = k
	if o.Flags.Start() {
		c.prev = k
	}
	return 0
}

func (c *checker) checkFields(o *las.Overlap) Code {
	if o.ARead < 0 || o.BRead < 0 {
		return NegativeIndex
	}
	if int(o.ARead) >= c.a.NumReads() || int(o.BRead) >= c.b.NumReads() {
		return IndexOutOfRange
	}
	alen, blen := c.a.ReadLen(int(o.ARead)), c.b.ReadLen(int(o.BRead))
	p := &o.Path
	if p.ABPos < 0 || p.ABPos >= p.AEPos || int(p.AEPos) > alen ||
		p.BBPos < 0 || p.BBPos >= p.BEPos || int(p.BEPos) > blen {
		return BadInterval
	}
	if p.Diffs < 0 || int(p.Diffs) > alen || int(p.Diffs) > blen {
		return BadDiffs
	}
	if c.opts.Trace == nil {
		return CheckTracePoints(o, c.tspace)
	}
	if !c.opts.Trace.CheckTrace(o, c.tspace) {
		return BadTrace
	}
	return 0
}

func (c *checker) checkFlags(i int64, f las.Flags) Code {
	if !c.hasChains {
		if f.HasChain() {
			return UnexpectedChainFlags
		}
		return 0
	}
	switch {
	case f.Start() && f.Next():
		return StartAndNext
	case f.Best() && f.Next():
		return BestAndNext
	case !f.HasChain():
		return MissingChainFlags
	case i == 0 && f.Next():
		return BrokenChain
	}
	return 0
}

// checkOrder checks k against the preceding records. A chain continuation
// must follow its predecessor on the same A read, with another B read in the
// other orientation, and must not move backwards on either read. A chain
// start is ordered against the previous chain start; without chains, each
// record is ordered against the one before it.
func (c *checker) checkOrder(k key) Code {
	if k.flags.Next() {
		l := c.last
		if k.aread != l.aread || k.bread == l.bread || k.comp == l.comp ||
			k.abpos < l.abpos || k.bbpos < l.bbpos {
			return BrokenChain
		}
		return 0
	}
	against, unsorted := c.last, Unsorted
	if c.hasChains {
		against, unsorted = c.prev, UnsortedChains
	}
	switch k.compare(against, c.opts.Order) {
	case -1:
		return unsorted
	case 0:
		if k.same(against) || k.same(c.last) {
			return Duplicate
		}
	}
	return 0
}
