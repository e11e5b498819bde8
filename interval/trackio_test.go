package interval

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"testing"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackPaths(t *testing.T) {
	anno, data := TrackPaths("dir/reads.db", "dust")
	expect.EQ(t, anno, "dir/.reads.dust.anno")
	expect.EQ(t, data, "dir/.reads.dust.data")

	anno, data = TrackPaths("reads", "merge")
	expect.EQ(t, anno, ".reads.merge.anno")
	expect.EQ(t, data, ".reads.merge.data")
}

func TestTrackRoundTrip(t *testing.T) {
	want := newTrack("rep",
		[]PosType{0, 10, 20, 30},
		nil,
		[]PosType{5, 6},
	)
	var anno, data bytes.Buffer
	require.NoError(t, WriteTrack(want, &anno, &data))
	expect.EQ(t, anno.Len(), 8+8*4)
	expect.EQ(t, data.Len(), 4*6)

	got, err := ReadTrack("rep", &anno, &data)
	require.NoError(t, err)
	expect.EQ(t, got, want)
}

func TestReadTrackRebases(t *testing.T) {
	// A block of a larger track: offsets start at 400 bytes.
	var anno, data bytes.Buffer
	require.NoError(t, binary.Write(&anno, binary.LittleEndian, []int32{2, 0}))
	require.NoError(t, binary.Write(&anno, binary.LittleEndian, []int64{400, 408, 408}))
	require.NoError(t, binary.Write(&data, binary.LittleEndian, []int32{3, 7}))

	got, err := ReadTrack("blk", &anno, &data)
	require.NoError(t, err)
	expect.EQ(t, got.Anno, []int64{0, 2, 2})
	expect.EQ(t, got.Alen, []int32{2, 0})
	expect.EQ(t, got.Data, []PosType{3, 7})
}

func TestReadTrackErrors(t *testing.T) {
	header := func(nreads, size int32, offsets ...int64) *bytes.Buffer {
		var b bytes.Buffer
		require.NoError(t, binary.Write(&b, binary.LittleEndian, []int32{nreads, size}))
		require.NoError(t, binary.Write(&b, binary.LittleEndian, offsets))
		return &b
	}
	// Not a mask track.
	_, err := ReadTrack("x", header(1, 4, 0, 8), bytes.NewReader(make([]byte, 8)))
	assert.True(t, errors.Is(errors.Invalid, err))
	// Misaligned offsets.
	_, err = ReadTrack("x", header(1, 0, 0, 6), bytes.NewReader(make([]byte, 8)))
	assert.True(t, errors.Is(errors.Invalid, err))
	// Odd number of boundaries.
	_, err = ReadTrack("x", header(1, 0, 0, 4), bytes.NewReader(make([]byte, 4)))
	assert.True(t, errors.Is(errors.Invalid, err))
	// Truncated data.
	_, err = ReadTrack("x", header(1, 0, 0, 8), bytes.NewReader(make([]byte, 4)))
	assert.Error(t, err)
	// Truncated header.
	_, err = ReadTrack("x", bytes.NewReader([]byte{1, 0}), bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestTrackFiles(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)
	ctx := vcontext.Background()

	want := newTrack("dust", []PosType{1, 4}, []PosType{2, 3, 8, 9})
	annoPath, dataPath := TrackPaths(filepath.Join(tmpDir, "reads.db"), "dust")
	require.NoError(t, WriteTrackFiles(ctx, want, annoPath, dataPath))

	got, err := ReadTrackFiles(ctx, "dust", annoPath, dataPath)
	require.NoError(t, err)
	expect.EQ(t, got, want)

	_, err = ReadTrackFiles(ctx, "dust", filepath.Join(tmpDir, "missing.anno"), dataPath)
	assert.Error(t, err)
}
