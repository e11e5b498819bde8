package readdb

import (
	"io"

	"github.com/grailbio/base/tsv"
	"github.com/pkg/errors"
)

// faiRow is one line of a samtools FASTA index: name, length, byte offset,
// bases per line, bytes per line.
type faiRow struct {
	Name      string
	Length    int64
	Offset    int64
	LineBases int64
	LineWidth int64
}

// FromIndex reads read lengths from a FASTA index (.fai). Reads are numbered
// in the order they appear in the index.
func FromIndex(r io.Reader) (Lengths, error) {
	tr := tsv.NewReader(r)
	tr.Comment = '#'
	var (
		db  Lengths
		row faiRow
	)
	for {
		if err := tr.Read(&row); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrapf(err, "fai line %d", len(db)+1)
		}
		if row.Length < 0 || row.Length > int64(^uint32(0)>>1) {
			return nil, errors.Errorf("fai line %d: read %s has invalid length %d", len(db)+1, row.Name, row.Length)
		}
		db = append(db, int32(row.Length))
	}
	return db, nil
}
