package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/overlap/encoding/las"
	"github.com/grailbio/overlap/readdb"
	"github.com/grailbio/overlap/validate"
)

type checkOpts struct {
	// verbose prints the outcome of every file.
	verbose bool
	// sorted checks that the records are sorted and free of duplicates.
	sorted bool
	// mapOrder selects las.MapOrder for the sort check.
	mapOrder bool
	bufSize  int
}

// checkArgs splits the arguments of the check command into read databases
// and .las paths. The second database is optional: the argument after the
// first is a .las path if it ends in ".las", or if adding the suffix names an
// existing file.
func checkArgs(ctx context.Context, argv []string) (dbs, paths []string, err error) {
	if len(argv) < 2 {
		return nil, nil, fmt.Errorf("check takes <db> [<db2>] <x.las>..., but got %v", argv)
	}
	dbs, paths = argv[:1], argv[1:]
	if len(argv) == 2 || strings.HasSuffix(argv[1], ".las") {
		return dbs, paths, nil
	}
	if _, err := file.Stat(ctx, argv[1]+".las"); err == nil {
		return dbs, paths, nil
	}
	return argv[:2], argv[2:], nil
}

// check validates each .las file against the read databases and writes a
// report to w. It returns a non-nil summary unless a database or a file
// could not be read.
func check(ctx context.Context, opts checkOpts, argv []string, w io.Writer) (*validate.Summary, error) {
	dbs, paths, err := checkArgs(ctx, argv)
	if err != nil {
		return nil, err
	}
	var a, b readdb.DB
	if a, err = readdb.Open(ctx, dbs[0]); err != nil {
		return nil, err
	}
	if len(dbs) > 1 {
		if b, err = readdb.Open(ctx, dbs[1]); err != nil {
			return nil, err
		}
	}
	vopts := validate.Opts{Sorted: opts.sorted, BufSize: opts.bufSize}
	if opts.mapOrder {
		vopts.Order = las.MapOrder
	}
	v := validate.New(a, b, vopts)
	summary := &validate.Summary{}
	for _, path := range paths {
		if !strings.HasSuffix(path, ".las") {
			path += ".las"
		}
		n, err := v.CheckFile(ctx, path)
		if e := summary.Add(n, err); e != nil {
			return nil, e
		}
		if !opts.verbose {
			continue
		}
		if err != nil {
			fmt.Fprintf(w, "%v\n", err)
		} else {
			fmt.Fprintf(w, "%s: %d records, OK\n", path, n)
		}
	}
	if opts.verbose {
		fmt.Fprintf(w, "%d files, %d records, %d failed\n", summary.Files, summary.Records, len(summary.Violations))
	}
	log.Debug.Printf("check: %v", summary)
	return summary, nil
}
