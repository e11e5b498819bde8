package interval

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/klauspost/compress/gzip"
)

// getTokens identifies up to the first len(tokens) tokens from curLine,
// returning the number of tokens saved.  Any (group of) characters <= ' ' is
// treated as a delimiter.
func getTokens(tokens [][]byte, curLine []byte) int {
	posEnd := 0
	lineLen := len(curLine)
	for tokenIdx := range tokens {
		pos := posEnd
		for ; pos != lineLen; pos++ {
			if curLine[pos] > ' ' {
				break
			}
		}
		if pos == lineLen {
			return tokenIdx
		}
		posEnd = pos
		for ; posEnd != lineLen; posEnd++ {
			if curLine[posEnd] <= ' ' {
				break
			}
		}
		tokens[tokenIdx] = curLine[pos:posEnd]
	}
	return len(tokens)
}

// trackBuilder appends the intervals of one read at a time to a track.
type trackBuilder struct {
	t       *Track
	curRead int // -1 before the first read

	// prevStart and prevEnd hold an interval not yet saved when open is set.
	prevStart, prevEnd PosType
	open               bool
	totBases           int64
}

func (b *trackBuilder) save() {
	if b.open {
		b.t.Data = append(b.t.Data, b.prevStart, b.prevEnd)
		b.totBases += int64(b.prevEnd - b.prevStart)
		b.open = false
	}
}

// startRead moves to read r, which must not precede the current read.
func (b *trackBuilder) startRead(r int) {
	b.save()
	for i := b.curRead + 1; i <= r; i++ {
		b.t.Anno[i] = int64(len(b.t.Data))
	}
	b.curRead = r
}

func (b *trackBuilder) finish() *Track {
	b.startRead(b.t.NumReads())
	for r := range b.t.Alen {
		b.t.Alen[r] = int32(b.t.Anno[r+1] - b.t.Anno[r])
	}
	return b.t
}

// NewTrackFromText loads a track for nreads reads from lines of the form
//   <read> <start> <end>
// where read is a 0-based read index and [start, end) is an interval of
// that read. Lines must be sorted by read, then by start. Touching and
// overlapping intervals are merged and empty ones are dropped.
func NewTrackFromText(name string, reader io.Reader, nreads int) (*Track, error) {
	scanner := bufio.NewScanner(reader)
	b := trackBuilder{t: NewTrack(name, nreads), curRead: -1}
	var tokens [3][]byte
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		curLine := scanner.Bytes()
		nToken := getTokens(tokens[:], curLine)
		if nToken != 3 {
			if nToken == 0 || curLine[0] == '#' {
				continue
			}
			return nil, fmt.Errorf("interval.NewTrackFromText: line %d has fewer tokens than expected", lineIdx)
		}
		if tokens[0][0] == '#' {
			continue
		}
		read, err := strconv.Atoi(gunsafe.BytesToString(tokens[0]))
		if err != nil {
			return nil, err
		}
		if read < 0 || read >= nreads {
			return nil, fmt.Errorf("interval.NewTrackFromText: read %d out of range [0,%d) on line %d", read, nreads, lineIdx)
		}
		start, err := strconv.Atoi(gunsafe.BytesToString(tokens[1]))
		if err != nil {
			return nil, err
		}
		end, err := strconv.Atoi(gunsafe.BytesToString(tokens[2]))
		if err != nil {
			return nil, err
		}
		if start < 0 || end < start || end >= PosTypeMax {
			return nil, fmt.Errorf("interval.NewTrackFromText: invalid coordinate pair on line %d", lineIdx)
		}
		if read < b.curRead {
			return nil, fmt.Errorf("interval.NewTrackFromText: unsorted input (read %d after read %d)", read, b.curRead)
		}
		if read != b.curRead {
			b.startRead(read)
		}
		if end == start {
			continue
		}
		switch {
		case !b.open:
			b.prevStart, b.prevEnd, b.open = PosType(start), PosType(end), true
		case PosType(start) < b.prevStart:
			return nil, fmt.Errorf("interval.NewTrackFromText: unsorted input on line %d", lineIdx)
		case PosType(start) > b.prevEnd:
			// New interval doesn't touch the previous one, so we can save the
			// previous one.
			b.save()
			b.prevStart, b.prevEnd, b.open = PosType(start), PosType(end), true
		case PosType(end) > b.prevEnd:
			b.prevEnd = PosType(end)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	t := b.finish()
	log.Printf("track %s loaded, %d base(s) covered.", name, b.totBases)
	return t, nil
}

// NewTrackFromPath is a wrapper for NewTrackFromText that takes a path
// instead of an io.Reader. Gzipped files are decompressed.
func NewTrackFromPath(ctx context.Context, name, path string, nreads int) (t *Track, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return NewTrackFromText(name, reader, nreads)
}
