package las

import (
	"bytes"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	"github.com/grailbio/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriterRewritesCount(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)

	h := Header{NOvl: 1000, TSpace: 100}
	recs := testRecords(20, 1)
	for _, bufSize := range []int{RecordHeadSize, 100, 1 << 20} {
		path := filepath.Join(tempDir, "out.las")
		out, err := os.Create(path)
		require.NoError(t, err)
		w := NewWriter(out, h, WriterOpts{BufSize: bufSize})
		for i := range recs {
			if i%2 == 0 {
				w.Write(&recs[i])
			} else {
				w.WriteRaw(Encode(1, &recs[i]))
			}
		}
		require.NoError(t, w.Close())
		require.NoError(t, out.Close())

		data, err := ioutil.ReadFile(path)
		require.NoError(t, err)
		want := makeFile(Header{NOvl: int64(len(recs)), TSpace: 100}, recs)
		assert.True(t, bytes.Equal(want, data), "bufsize %d", bufSize)
	}
}

func TestWriterUnclosed(t *testing.T) {
	var out bytes.Buffer
	seeker := &memSeeker{buf: &out}
	w := NewWriter(seeker, Header{NOvl: 2, TSpace: 100}, WriterOpts{BufSize: RecordHeadSize})
	recs := testRecords(3, 1)
	for i := range recs {
		w.Write(&recs[i])
	}
	require.NoError(t, w.Err())
	// Without Close, the header keeps the unfinished count.
	h, err := UnmarshalHeader(out.Bytes())
	require.NoError(t, err)
	assert.Equal(t, int64(UnfinishedCount), h.NOvl)
	assert.Equal(t, ErrNegativeCount, h.Validate())
	_, err = NewReader(bytes.NewReader(out.Bytes()), ReaderOpts{BufSize: 1 << 10})
	assert.Equal(t, ErrNegativeCount, err)
}

// memSeeker is an io.WriteSeeker that only supports appending.
type memSeeker struct{ buf *bytes.Buffer }

func (m *memSeeker) Write(p []byte) (int, error) { return m.buf.Write(p) }

func (m *memSeeker) Seek(offset int64, whence int) (int64, error) {
	return int64(m.buf.Len()), nil
}
