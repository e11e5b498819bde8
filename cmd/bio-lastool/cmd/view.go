package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/overlap/encoding/las"
)

type viewOpts struct {
	// trace prints the trace points of each record.
	trace   bool
	bufSize int
}

// chainMark returns the one-character summary of the chain flags of a
// record: '-' continues a chain, '>' starts the best chain, '+' starts
// another chain and '.' is outside any chain.
func chainMark(f las.Flags) byte {
	switch {
	case f.Next():
		return '-'
	case f.Start() && f.Best():
		return '>'
	case f.Start():
		return '+'
	}
	return '.'
}

// viewRecord writes one record. Lines are tagged by their first letter:
//   P aread bread n|c chain
//   C abpos aepos bbpos bepos
//   D diffs
//   T npanels, followed by one "diffs bspan" line per panel
func viewRecord(w io.Writer, o *las.Overlap, tbytes int, trace bool) {
	orient := 'n'
	if o.Flags.Comp() != 0 {
		orient = 'c'
	}
	fmt.Fprintf(w, "P %d %d %c %c\n", o.ARead, o.BRead, orient, chainMark(o.Flags))
	fmt.Fprintf(w, "C %d %d %d %d\n", o.Path.ABPos, o.Path.AEPos, o.Path.BBPos, o.Path.BEPos)
	fmt.Fprintf(w, "D %d\n", o.Path.Diffs)
	if !trace {
		return
	}
	fmt.Fprintf(w, "T %d\n", o.Path.TLen/2)
	for i := 0; i+1 < int(o.Path.TLen); i += 2 {
		fmt.Fprintf(w, "  %3d %3d\n", las.TracePoint(o.Path.Trace, tbytes, i), las.TracePoint(o.Path.Trace, tbytes, i+1))
	}
}

// view writes the header and records of the .las file at path to w.
func view(ctx context.Context, opts viewOpts, path string, w io.Writer) (err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	var once errors.Once
	defer func() {
		once.Set(in.Close(ctx))
		err = once.Err()
	}()
	r, err := las.NewReader(in.Reader(ctx), las.ReaderOpts{BufSize: opts.bufSize})
	if err != nil {
		once.Set(errors.E(err, path))
		return
	}
	bw := bufio.NewWriter(w)
	h := r.Header()
	fmt.Fprintf(bw, "+ P %d\n%% T %d\n", h.NOvl, h.TSpace)
	for r.Scan() {
		viewRecord(bw, r.Record(), r.TraceBytes(), opts.trace)
	}
	if e := r.Err(); e != nil {
		once.Set(errors.E(e, path))
	}
	once.Set(bw.Flush())
	return
}
