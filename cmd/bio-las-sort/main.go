package main

// bio-las-sort sorts alignment (.las) files and removes duplicate alignments.
//
// Usage: bio-las-sort [-v] [-a] x.las...
//
// Each x.las is sorted into x.S.las.

import (
	"flag"
	"os"

	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/overlap/cmd/bio-las-sort/sorter"
	"github.com/grailbio/overlap/encoding/las"
)

var (
	verboseFlag     = flag.Bool("v", false, "Print statistics for each file")
	mapOrderFlag    = flag.Bool("a", false, "Sort by A read and A position, for mapping. The default sorts by A and B read pairs, for overlap piles")
	memoryLimitFlag = flag.Int64("memory-limit", 0, "If > 0, hold about this many bytes of records in memory and sort larger files externally")
	tmpDirFlag      = flag.String("tmp-dir", "", "Directory for temp files created during external sorting")
	bufSizeFlag     = flag.Int("buf-size", las.DefaultBufSize, "Size of the output block, in bytes")
	parallelismFlag = flag.Int("parallelism", 1, "Number of files to sort concurrently")
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	flag.Usage = func() {
		os.Stderr.WriteString(`Usage: bio-las-sort [flags] <x.las>...

Sorts the records of each <x.las> and writes them to <x.S.las>, removing
duplicate alignments. Chains of records are kept together.

By default a file is sorted in memory. With -memory-limit, larger files are
sorted in batches that are spilled to -tmp-dir and merged.
`)
		flag.PrintDefaults()
	}
	shutdown := grail.Init()
	defer shutdown()

	args := flag.Args()
	if len(args) == 0 {
		flag.Usage()
		os.Exit(1)
	}
	opts := sorter.SortOptions{
		Order:       las.PileOrder,
		OutBufSize:  *bufSizeFlag,
		MemoryLimit: *memoryLimitFlag,
		TmpDir:      *tmpDirFlag,
	}
	if *mapOrderFlag {
		opts.Order = las.MapOrder
	}
	ctx := vcontext.Background()
	err := traverse.T{Limit: *parallelismFlag}.Each(len(args), func(i int) error {
		path := args[i]
		out := sorter.OutputPath(path)
		stats, err := sorter.SortFile(ctx, path, out, opts)
		if err != nil {
			return err
		}
		if *verboseFlag {
			log.Printf("%s: %d records %d trace bytes, %d written to %s", path, stats.Input, stats.TraceBytes, stats.Output, out)
		}
		return nil
	})
	if err != nil {
		log.Fatalf("%v", err)
	}
}
