package cmd

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"hash"
	"io"
	"runtime"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errorreporter"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/overlap/encoding/las"
)

// checksumBatchSize is the goal size of a block of records handed to one
// checksum worker.
const checksumBatchSize = 1 << 20

// orientChecksum is the checksum of the records of one orientation. Each
// field is a sum of per-record hashes, so the checksum does not depend on
// the order of the records.
type orientChecksum struct {
	// NRecs is the # of records.
	NRecs int64
	// SumFlags is the sum of the hashes of the flags.
	SumFlags uint64
	// SumPos is the sum of the hashes of the four interval bounds.
	SumPos uint64
	// SumDiffs is the sum of the hashes of the diffs values.
	SumDiffs uint64
	// SumTrace is the sum of the hashes of the traces.
	SumTrace uint64
}

func hashField(h hash.Hash64, pair [8]byte, value []byte) uint64 {
	h.Reset()
	h.Write(pair[:])
	h.Write(value)
	return h.Sum64()
}

func (c *orientChecksum) add(rec []byte, h hash.Hash64) {
	c.NRecs++
	var pair [8]byte
	copy(pair[:], rec[:8])
	c.SumFlags += hashField(h, pair, rec[8:12])
	c.SumPos += hashField(h, pair, rec[12:28])
	c.SumDiffs += hashField(h, pair, rec[28:32])
	c.SumTrace += hashField(h, pair, rec[las.RecordHeadSize:])
}

func (c *orientChecksum) merge(other orientChecksum) {
	c.NRecs += other.NRecs
	c.SumFlags += other.SumFlags
	c.SumPos += other.SumPos
	c.SumDiffs += other.SumDiffs
	c.SumTrace += other.SumTrace
}

// fileChecksum represents the checksum of a .las file.
type fileChecksum struct {
	TSpace int32
	Normal orientChecksum // B read in the same orientation as A.
	Comp   orientChecksum // B read complemented.
	err    errorreporter.T
}

func (csum *fileChecksum) add(rec []byte, h hash.Hash64) {
	if las.Flags(binary.LittleEndian.Uint32(rec[8:])).Comp() != 0 {
		csum.Comp.add(rec, h)
		return
	}
	csum.Normal.add(rec, h)
}

func (csum *fileChecksum) merge(other fileChecksum) {
	csum.Normal.merge(other.Normal)
	csum.Comp.merge(other.Comp)
	csum.err.Set(other.err.Err())
}

// checksumBatches adds the records of each block received from ch.
func checksumBatches(ch chan []byte, tbytes int) fileChecksum {
	csum := fileChecksum{}
	h := seahash.New()
	for block := range ch {
		for len(block) > 0 {
			n, err := las.RecordLen(block, tbytes)
			if err != nil {
				csum.err.Set(err)
				break
			}
			csum.add(block[:n], h)
			block = block[n:]
		}
	}
	return csum
}

// checksumReader computes the checksum of the .las stream in. Blocks of
// records are checksummed in parallel.
func checksumReader(in io.Reader, bufSize int) fileChecksum {
	var csum fileChecksum
	r, err := las.NewReader(in, las.ReaderOpts{BufSize: bufSize})
	if err != nil {
		csum.err.Set(err)
		return csum
	}
	csum.TSpace = r.Header().TSpace
	parallelism := runtime.NumCPU()
	blockCh := make(chan []byte, parallelism)
	resultCh := make(chan fileChecksum, parallelism)
	for i := 0; i < parallelism; i++ {
		go func() {
			resultCh <- checksumBatches(blockCh, r.TraceBytes())
		}()
	}
	block := make([]byte, 0, checksumBatchSize)
	for r.Scan() {
		block = append(block, r.Raw()...)
		if len(block) >= checksumBatchSize {
			blockCh <- block
			block = make([]byte, 0, checksumBatchSize)
		}
	}
	if len(block) > 0 {
		blockCh <- block
	}
	close(blockCh)
	for i := 0; i < parallelism; i++ {
		csum.merge(<-resultCh)
	}
	csum.err.Set(r.Err())
	return csum
}

// checksum writes the checksum of the .las file at path to w as JSON.
func checksum(ctx context.Context, path string, bufSize int, w io.Writer) error {
	in, err := file.Open(ctx, path)
	if err != nil {
		return err
	}
	csum := checksumReader(in.Reader(ctx), bufSize)
	csum.err.Set(in.Close(ctx))
	if csum.err.Err() != nil {
		return csum.err.Err()
	}
	js, err := json.MarshalIndent(csum, "", "  ")
	if err != nil {
		log.Panic(err)
	}
	_, err = fmt.Fprintln(w, string(js))
	return err
}
