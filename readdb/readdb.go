// Package readdb provides the per-read lengths that alignment records are
// checked against.
package readdb

import (
	"context"
	"io"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// DB is a read collection. Reads are identified by their 0-based index.
type DB interface {
	// NumReads returns the number of reads.
	NumReads() int
	// ReadLen returns the length of read i, 0 <= i < NumReads().
	ReadLen(i int) int
}

// Lengths is a DB backed by a slice of read lengths.
type Lengths []int32

// NumReads implements DB.
func (l Lengths) NumReads() int { return len(l) }

// ReadLen implements DB.
func (l Lengths) ReadLen(i int) int { return int(l[i]) }

// Open loads read lengths from path. A path ending in ".fai" is parsed as a
// samtools FASTA index; anything else is parsed as (optionally gzipped)
// FASTA.
func Open(ctx context.Context, path string) (db Lengths, err error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	defer func() {
		if e := in.Close(ctx); e != nil && err == nil {
			err = e
		}
	}()
	var r io.Reader = in.Reader(ctx)
	if fileio.DetermineType(path) == fileio.Gzip {
		gz, e := gzip.NewReader(r)
		if e != nil {
			return nil, errors.Wrapf(e, "%s: open gzip", path)
		}
		defer gz.Close() // nolint: errcheck
		r = gz
	}
	if strings.HasSuffix(strings.TrimSuffix(path, ".gz"), ".fai") {
		db, err = FromIndex(r)
	} else {
		db, err = FromFASTA(r)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "%s", path)
	}
	return db, nil
}
