package interval

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackText = `# read start end
0 5 15
0 7 17
0 17 18
0 20 25
2 3 3
2 4 9

3 0 1
3 10 20
`

func TestNewTrackFromText(t *testing.T) {
	got, err := NewTrackFromText("rep", strings.NewReader(trackText), 5)
	require.NoError(t, err)
	require.NoError(t, got.Validate())
	expect.EQ(t, got.Name, "rep")
	expect.EQ(t, boundaries(got), [][]PosType{
		{5, 18, 20, 25},
		{},
		{4, 9},
		{0, 1, 10, 20},
		{},
	})
	expect.EQ(t, got.Alen, []int32{4, 0, 2, 4, 0})
}

func TestNewTrackFromTextErrors(t *testing.T) {
	for _, text := range []string{
		"1 0 5\n0 0 5\n",  // reads out of order
		"0 10 20\n0 5 8\n", // starts out of order
		"5 0 5\n",         // no such read
		"0 9 5\n",         // end before start
		"0 5\n",           // too few tokens
		"0 x 5\n",         // not a number
	} {
		_, err := NewTrackFromText("bad", strings.NewReader(text), 5)
		assert.Error(t, err, "input %q", text)
	}
}

func TestNewTrackFromPath(t *testing.T) {
	tmpDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)
	ctx := vcontext.Background()

	plain := filepath.Join(tmpDir, "rep.txt")
	require.NoError(t, ioutil.WriteFile(plain, []byte(trackText), 0644))
	want, err := NewTrackFromPath(ctx, "rep", plain, 5)
	require.NoError(t, err)

	gzPath := filepath.Join(tmpDir, "rep.txt.gz")
	f, err := os.Create(gzPath)
	require.NoError(t, err)
	w := gzip.NewWriter(f)
	_, err = w.Write([]byte(trackText))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, f.Close())

	got, err := NewTrackFromPath(ctx, "rep", gzPath, 5)
	require.NoError(t, err)
	expect.EQ(t, got, want)
}
