package interval

import (
	"bufio"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
)

// A track is stored as a pair of files. The annotation file holds
//
//   nreads int32
//   size   int32              // 0, which marks an interval (mask) track
//   anno   [nreads+1]int64    // byte offsets of each read's boundaries in the data file
//
// and the data file holds the boundaries as int32 values. All integers are
// little-endian.
const maskTrackSize = 0

// TrackPaths returns the annotation and data file paths of the track called
// name for the read collection at dbPath: for "dir/reads.db" and "dust",
// "dir/.reads.dust.anno" and "dir/.reads.dust.data".
func TrackPaths(dbPath, name string) (anno, data string) {
	dir, base := filepath.Split(dbPath)
	root := strings.TrimSuffix(base, filepath.Ext(base))
	prefix := filepath.Join(dir, "."+root+"."+name)
	return prefix + ".anno", prefix + ".data"
}

// ReadTrack reads a track from its annotation and data files. Offsets are
// rebased, so the track may be one block of a larger track.
func ReadTrack(name string, anno, data io.Reader) (*Track, error) {
	var hdr struct{ NReads, Size int32 }
	if err := binary.Read(anno, binary.LittleEndian, &hdr); err != nil {
		return nil, errors.E(err, fmt.Sprintf("track %s: read annotation header", name))
	}
	if hdr.NReads < 0 {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("track %s: %d reads", name, hdr.NReads))
	}
	if hdr.Size != maskTrackSize {
		return nil, errors.E(errors.Invalid, fmt.Sprintf("track %s: not an interval track (size %d)", name, hdr.Size))
	}
	offsets := make([]int64, hdr.NReads+1)
	if err := binary.Read(bufio.NewReader(anno), binary.LittleEndian, offsets); err != nil {
		return nil, errors.E(err, fmt.Sprintf("track %s: read annotation", name))
	}
	t := &Track{
		Name: name,
		Anno: make([]int64, len(offsets)),
		Alen: make([]int32, hdr.NReads),
	}
	for i, off := range offsets {
		off -= offsets[0]
		if off%4 != 0 || (i > 0 && off/4 < t.Anno[i-1]) {
			return nil, errors.E(errors.Invalid, fmt.Sprintf("track %s: read %d: bad offset %d", name, i, offsets[i]))
		}
		t.Anno[i] = off / 4
		if i > 0 {
			t.Alen[i-1] = int32(t.Anno[i] - t.Anno[i-1])
		}
	}
	t.Data = make([]PosType, t.Anno[hdr.NReads])
	if err := binary.Read(bufio.NewReader(data), binary.LittleEndian, t.Data); err != nil {
		return nil, errors.E(err, fmt.Sprintf("track %s: read data", name))
	}
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// WriteTrack writes t to its annotation and data files.
func WriteTrack(t *Track, anno, data io.Writer) error {
	if err := t.Validate(); err != nil {
		return err
	}
	aw := bufio.NewWriter(anno)
	hdr := struct{ NReads, Size int32 }{int32(t.NumReads()), maskTrackSize}
	if err := binary.Write(aw, binary.LittleEndian, &hdr); err != nil {
		return err
	}
	offsets := make([]int64, len(t.Anno))
	for i, a := range t.Anno {
		offsets[i] = 4 * a
	}
	if err := binary.Write(aw, binary.LittleEndian, offsets); err != nil {
		return err
	}
	if err := aw.Flush(); err != nil {
		return err
	}
	dw := bufio.NewWriter(data)
	if err := binary.Write(dw, binary.LittleEndian, t.Data); err != nil {
		return err
	}
	return dw.Flush()
}

// ReadTrackFiles reads the track stored at annoPath and dataPath.
func ReadTrackFiles(ctx context.Context, name, annoPath, dataPath string) (t *Track, err error) {
	var once errors.Once
	anno, err := file.Open(ctx, annoPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		once.Set(anno.Close(ctx))
		if err == nil {
			err = once.Err()
		}
	}()
	data, err := file.Open(ctx, dataPath)
	if err != nil {
		return nil, err
	}
	defer func() {
		once.Set(data.Close(ctx))
	}()
	return ReadTrack(name, anno.Reader(ctx), data.Reader(ctx))
}

// WriteTrackFiles writes t to annoPath and dataPath.
func WriteTrackFiles(ctx context.Context, t *Track, annoPath, dataPath string) error {
	anno, err := file.Create(ctx, annoPath)
	if err != nil {
		return err
	}
	data, err := file.Create(ctx, dataPath)
	if err != nil {
		_ = anno.Close(ctx)
		return err
	}
	var once errors.Once
	once.Set(WriteTrack(t, anno.Writer(ctx), data.Writer(ctx)))
	once.Set(anno.Close(ctx))
	once.Set(data.Close(ctx))
	return once.Err()
}
