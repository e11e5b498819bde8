package cmd

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/overlap/encoding/las"
	"github.com/grailbio/overlap/encoding/las/lastest"
	"github.com/grailbio/overlap/interval"
	"github.com/grailbio/overlap/validate"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tspace = 100

const faiText = "r0\t2000\t4\t60\t61\nr1\t2000\t2043\t60\t61\nr2\t2000\t4082\t60\t61\nr3\t1000\t6121\t60\t61\n"

func ovl(aread, bread int32, flags las.Flags, abpos, aepos, bbpos, bepos int32) las.Overlap {
	return lastest.Overlap(tspace, aread, bread, flags, abpos, aepos, bbpos, bepos)
}

func writeFile(t *testing.T, dir, name string, data []byte) string {
	path := filepath.Join(dir, name)
	require.NoError(t, ioutil.WriteFile(path, data, 0644))
	return path
}

var (
	sortedRecs = []las.Overlap{
		ovl(0, 1, 0, 0, 1000, 0, 1000),
		ovl(0, 2, las.Comp, 100, 900, 200, 1000),
		ovl(2, 3, 0, 1000, 2000, 0, 1000),
	}
	unsortedRecs = []las.Overlap{
		ovl(2, 3, 0, 1000, 2000, 0, 1000),
		ovl(0, 1, 0, 0, 1000, 0, 1000),
	}
)

func TestCheckArgs(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)
	ctx := vcontext.Background()
	split := func(argv []string) ([]string, []string, error) {
		return checkArgs(ctx, argv)
	}

	dbs, paths, err := split([]string{"a.fai", "x.las", "y.las"})
	require.NoError(t, err)
	expect.EQ(t, dbs, []string{"a.fai"})
	expect.EQ(t, paths, []string{"x.las", "y.las"})

	dbs, paths, err = split([]string{"a.fai", "b.fai", "x"})
	require.NoError(t, err)
	expect.EQ(t, dbs, []string{"a.fai", "b.fai"})
	expect.EQ(t, paths, []string{"x"})

	dbs, paths, err = split([]string{"a.fai", "x"})
	require.NoError(t, err)
	expect.EQ(t, dbs, []string{"a.fai"})
	expect.EQ(t, paths, []string{"x"})

	// An argument without a suffix is a .las file if one exists by that name.
	x := strings.TrimSuffix(writeFile(t, tmpDir, "x.las", lastest.Records(tspace)), ".las")
	dbs, paths, err = split([]string{"a.fai", x, "y"})
	require.NoError(t, err)
	expect.EQ(t, dbs, []string{"a.fai"})
	expect.EQ(t, paths, []string{x, "y"})

	_, _, err = split([]string{"a.fai"})
	assert.Error(t, err)
}

func TestCheckSuffixlessFiles(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)
	ctx := vcontext.Background()

	db := writeFile(t, tmpDir, "reads.fai", []byte(faiText))
	x := writeFile(t, tmpDir, "x.las", lastest.Records(tspace, sortedRecs...))
	y := writeFile(t, tmpDir, "y.las", lastest.Records(tspace, sortedRecs[:1]...))
	summary, err := check(ctx, checkOpts{bufSize: 1 << 16},
		[]string{db, strings.TrimSuffix(x, ".las"), strings.TrimSuffix(y, ".las")}, ioutil.Discard)
	require.NoError(t, err)
	expect.EQ(t, summary.Files, 2)
	expect.EQ(t, summary.Records, int64(4))
	assert.False(t, summary.Failed())
}

func TestCheck(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)
	ctx := vcontext.Background()

	db := writeFile(t, tmpDir, "reads.fai", []byte(faiText))
	good := writeFile(t, tmpDir, "good.las", lastest.Records(tspace, sortedRecs...))
	bad := writeFile(t, tmpDir, "bad.las", lastest.Records(tspace, unsortedRecs...))

	var out bytes.Buffer
	summary, err := check(ctx, checkOpts{sorted: true, verbose: true, bufSize: 1 << 16},
		[]string{db, good, strings.TrimSuffix(bad, ".las")}, &out)
	require.NoError(t, err)
	expect.EQ(t, summary.Files, 2)
	expect.EQ(t, summary.Records, int64(3))
	require.True(t, summary.Failed())
	expect.EQ(t, summary.Violations[0].Code, validate.Unsorted)
	expect.EQ(t, summary.Violations[0].Record, int64(1))
	assert.Contains(t, out.String(), good+": 3 records, OK")
	assert.Contains(t, out.String(), "alignments are not sorted")

	// Without -S the order is not checked, and nothing is printed.
	out.Reset()
	summary, err = check(ctx, checkOpts{bufSize: 1 << 16}, []string{db, good, bad}, &out)
	require.NoError(t, err)
	assert.False(t, summary.Failed())
	expect.EQ(t, out.Len(), 0)

	// Map order accepts the pile-sorted file.
	summary, err = check(ctx, checkOpts{sorted: true, mapOrder: true, bufSize: 1 << 16}, []string{db, good}, &out)
	require.NoError(t, err)
	assert.False(t, summary.Failed())

	_, err = check(ctx, checkOpts{bufSize: 1 << 16}, []string{db, filepath.Join(tmpDir, "missing.las")}, &out)
	assert.Error(t, err)
	_, err = check(ctx, checkOpts{bufSize: 1 << 16}, []string{filepath.Join(tmpDir, "missing.fai"), good}, &out)
	assert.Error(t, err)
}

func TestCheckTwoDBs(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)
	ctx := vcontext.Background()

	a := writeFile(t, tmpDir, "a.fai", []byte(faiText))
	b := writeFile(t, tmpDir, "b.fai", []byte("s0\t2000\t4\t60\t61\ns1\t2000\t2043\t60\t61\n"))
	path := writeFile(t, tmpDir, "ab.las", lastest.Records(tspace, ovl(3, 1, 0, 0, 1000, 0, 1000)))

	summary, err := check(ctx, checkOpts{bufSize: 1 << 16}, []string{a, b, path}, ioutil.Discard)
	require.NoError(t, err)
	assert.False(t, summary.Failed())

	// Read 3 exists in a but not in b.
	path = writeFile(t, tmpDir, "ba.las", lastest.Records(tspace, ovl(1, 3, 0, 0, 1000, 0, 1000)))
	summary, err = check(ctx, checkOpts{bufSize: 1 << 16}, []string{a, b, path}, ioutil.Discard)
	require.NoError(t, err)
	require.True(t, summary.Failed())
	expect.EQ(t, summary.Violations[0].Code, validate.IndexOutOfRange)
}

func TestView(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)
	ctx := vcontext.Background()

	recs := []las.Overlap{
		ovl(0, 1, las.ChainStart|las.ChainBest, 0, 150, 10, 160),
		ovl(0, 2, las.ChainNext|las.Comp, 200, 300, 300, 400),
	}
	path := writeFile(t, tmpDir, "x.las", lastest.Records(tspace, recs...))

	var out bytes.Buffer
	require.NoError(t, view(ctx, viewOpts{bufSize: 1 << 16}, path, &out))
	expect.EQ(t, out.String(), `+ P 2
% T 100
P 0 1 n >
C 0 150 10 160
D 2
P 0 2 c -
C 200 300 300 400
D 1
`)

	out.Reset()
	require.NoError(t, view(ctx, viewOpts{trace: true, bufSize: 1 << 16}, path, &out))
	assert.Contains(t, out.String(), "T 2\n    1  75\n    1  75\nP 0 2 c -")

	bad := writeFile(t, tmpDir, "bad.las", lastest.File(tspace, 3, recs...))
	assert.Error(t, view(ctx, viewOpts{bufSize: 1 << 16}, bad, &out))
}

func TestChecksum(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)
	ctx := vcontext.Background()

	sum := func(recs ...las.Overlap) string {
		path := writeFile(t, tmpDir, "x.las", lastest.Records(tspace, recs...))
		var out bytes.Buffer
		require.NoError(t, checksum(ctx, path, 1<<16, &out))
		return out.String()
	}
	a := sum(sortedRecs...)
	b := sum(sortedRecs[2], sortedRecs[0], sortedRecs[1])
	expect.EQ(t, a, b)
	assert.Contains(t, a, `"NRecs": 2`)
	assert.Contains(t, a, `"TSpace": 100`)

	c := sum(sortedRecs[0], sortedRecs[1])
	assert.NotEqual(t, a, c)
	d := sum(sortedRecs[0], sortedRecs[1], ovl(2, 3, 0, 1000, 2000, 0, 999))
	assert.NotEqual(t, a, d)

	bad := writeFile(t, tmpDir, "bad.las", lastest.File(tspace, 5, sortedRecs...))
	assert.Error(t, checksum(ctx, bad, 1<<16, ioutil.Discard))
}

func TestTrackMerge(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)
	ctx := vcontext.Background()
	dbPath := filepath.Join(tmpDir, "reads.db")

	dust := interval.NewTrack("dust", 4)
	dust.Data = []interval.PosType{0, 10, 50, 60}
	dust.Anno = []int64{0, 2, 4, 4, 4}
	dust.Alen = []int32{2, 2, 0, 0}
	annoPath, dataPath := interval.TrackPaths(dbPath, "dust")
	require.NoError(t, interval.WriteTrackFiles(ctx, dust, annoPath, dataPath))
	text := writeFile(t, tmpDir, "rep.txt", []byte("0 10 20\n3 5 6\n"))

	var out bytes.Buffer
	opts := trackMergeOpts{dbPath: dbPath, verbose: true}
	require.NoError(t, trackMerge(ctx, opts, "mask", []string{"dust", text}, &out))
	expect.EQ(t, out.String(), "mask: 3 intervals from 2 tracks over 4 reads\n")

	annoPath, dataPath = interval.TrackPaths(dbPath, "mask")
	got, err := interval.ReadTrackFiles(ctx, "mask", annoPath, dataPath)
	require.NoError(t, err)
	expect.EQ(t, got.Anno, []int64{0, 2, 4, 4, 6})
	expect.EQ(t, got.Data, []interval.PosType{0, 20, 50, 60, 5, 6})

	// Text inputs alone need the read count.
	assert.Error(t, trackMerge(ctx, trackMergeOpts{dbPath: dbPath}, "m2", []string{text}, &out))
	reads := writeFile(t, tmpDir, "reads.fai", []byte(faiText))
	require.NoError(t, trackMerge(ctx, trackMergeOpts{dbPath: dbPath, readsPath: reads}, "m2", []string{text}, &out))

	assert.Error(t, trackMerge(ctx, trackMergeOpts{}, "m3", []string{"dust"}, &out))
	assert.Error(t, trackMerge(ctx, opts, "m3", []string{"missing"}, &out))
}
