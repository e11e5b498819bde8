package cmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/overlap/interval"
	"github.com/grailbio/overlap/readdb"
)

type trackMergeOpts struct {
	// dbPath names the read collection whose tracks are merged.
	dbPath string
	// readsPath is a FASTA or .fai file that sets the number of reads when
	// every input is a text file.
	readsPath string
	verbose   bool
}

// isTextTrack reports whether the track argument names a text interval file
// rather than a stored track.
func isTextTrack(arg string) bool {
	return strings.HasSuffix(arg, ".txt") || strings.HasSuffix(arg, ".txt.gz")
}

// trackMerge merges the tracks named by inputs into the track called out.
// Stored tracks are loaded first, since they fix the number of reads that
// text inputs are checked against.
func trackMerge(ctx context.Context, opts trackMergeOpts, out string, inputs []string, w io.Writer) error {
	if opts.dbPath == "" {
		return fmt.Errorf("track-merge: -db is required")
	}
	if len(inputs) == 0 {
		return fmt.Errorf("track-merge: no input tracks")
	}
	tracks := make([]*interval.Track, len(inputs))
	nreads := -1
	for i, in := range inputs {
		if isTextTrack(in) {
			continue
		}
		annoPath, dataPath := interval.TrackPaths(opts.dbPath, in)
		t, err := interval.ReadTrackFiles(ctx, in, annoPath, dataPath)
		if err != nil {
			return err
		}
		tracks[i] = t
		if nreads < 0 {
			nreads = t.NumReads()
		}
	}
	for i, in := range inputs {
		if !isTextTrack(in) {
			continue
		}
		if nreads < 0 {
			if opts.readsPath == "" {
				return fmt.Errorf("track-merge: -reads is required when all inputs are text files")
			}
			db, err := readdb.Open(ctx, opts.readsPath)
			if err != nil {
				return err
			}
			nreads = db.NumReads()
		}
		t, err := interval.NewTrackFromPath(ctx, in, in, nreads)
		if err != nil {
			return err
		}
		tracks[i] = t
	}
	merged, err := interval.Merge(tracks...)
	if err != nil {
		return err
	}
	merged.Name = out
	annoPath, dataPath := interval.TrackPaths(opts.dbPath, out)
	if err := interval.WriteTrackFiles(ctx, merged, annoPath, dataPath); err != nil {
		return err
	}
	if opts.verbose {
		fmt.Fprintf(w, "%s: %d intervals from %d tracks over %d reads\n", out, merged.NumIntervals(), len(tracks), merged.NumReads())
	}
	log.Debug.Printf("track-merge: wrote %s and %s", annoPath, dataPath)
	return nil
}
