package readdb

import (
	"bufio"
	"bytes"
	"io"

	"github.com/pkg/errors"
)

// FromFASTA scans FASTA data and records the length of each sequence. The
// sequence data itself is not retained.
func FromFASTA(in io.Reader) (Lengths, error) {
	var (
		r      = bufio.NewReaderSize(in, 1<<20)
		db     Lengths
		inSeq  bool
		length int64
		eof    bool
	)
	flush := func() error {
		if length > int64(^uint32(0)>>1) {
			return errors.Errorf("sequence %d too long: %d", len(db), length)
		}
		db = append(db, int32(length))
		return nil
	}
	for !eof {
		fullLine, err := r.ReadSlice('\n')
		switch err {
		case nil:
		case io.EOF:
			eof = true
		case bufio.ErrBufferFull:
			// A sequence line longer than the buffer; count it piecewise.
			if !inSeq {
				return nil, errors.New("malformed FASTA file")
			}
			length += int64(len(fullLine))
			continue
		default:
			return nil, err
		}
		line := bytes.TrimRight(fullLine, "\r\n")
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if inSeq {
				if err := flush(); err != nil {
					return nil, err
				}
			}
			inSeq = true
			length = 0
			continue
		}
		if !inSeq {
			return nil, errors.New("malformed FASTA file")
		}
		length += int64(len(line))
	}
	if !inSeq {
		return nil, errors.New("empty FASTA file")
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return db, nil
}
