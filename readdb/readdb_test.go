package readdb

import (
	"bytes"
	"io/ioutil"
	"path/filepath"
	"strings"
	"testing"

	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/testutil"
	"github.com/grailbio/testutil/expect"
	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"
)

func TestFromIndex(t *testing.T) {
	db, err := FromIndex(strings.NewReader("r0\t1000\t4\t60\t61\nr1\t27\t1030\t27\t28\n"))
	require.NoError(t, err)
	expect.EQ(t, db.NumReads(), 2)
	expect.EQ(t, db.ReadLen(0), 1000)
	expect.EQ(t, db.ReadLen(1), 27)

	_, err = FromIndex(strings.NewReader("r0\tabc\t4\t60\t61\n"))
	expect.NotNil(t, err)
}

func TestFromFASTA(t *testing.T) {
	db, err := FromFASTA(strings.NewReader(">E0\nGGGG\n>E1 a comment\r\nCCCCC\r\nAAAAA\n\n>E2\n"))
	require.NoError(t, err)
	expect.EQ(t, db, Lengths{4, 10, 0})

	_, err = FromFASTA(strings.NewReader("ACGT\n"))
	expect.NotNil(t, err)
	_, err = FromFASTA(strings.NewReader(""))
	expect.NotNil(t, err)
}

func TestOpen(t *testing.T) {
	tempDir, cleanup := testutil.TempDir(t, "", "")
	defer testutil.NoCleanupOnError(t, cleanup)
	ctx := vcontext.Background()

	fai := filepath.Join(tempDir, "reads.fasta.fai")
	require.NoError(t, ioutil.WriteFile(fai, []byte("a\t5\t3\t5\t6\nb\t7\t12\t7\t8\n"), 0600))
	db, err := Open(ctx, fai)
	require.NoError(t, err)
	expect.EQ(t, db, Lengths{5, 7})

	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err = gz.Write([]byte(">a\nACGTA\n>b\nACGTACG\n"))
	require.NoError(t, err)
	require.NoError(t, gz.Close())
	fagz := filepath.Join(tempDir, "reads.fa.gz")
	require.NoError(t, ioutil.WriteFile(fagz, buf.Bytes(), 0600))
	db, err = Open(ctx, fagz)
	require.NoError(t, err)
	expect.EQ(t, db, Lengths{5, 7})

	_, err = Open(ctx, filepath.Join(tempDir, "missing.fa"))
	expect.NotNil(t, err)
}
