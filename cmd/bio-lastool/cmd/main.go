package cmd

import (
	"fmt"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/overlap/encoding/las"
	"v.io/x/lib/cmdline"
)

func newCmdCheck() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "check",
		Short: "Check the structure of alignment files",
		Long: `
Check verifies that each .las file is well formed: read indices are within
the read databases, alignment intervals and trace points are consistent, and
chain flags are coherent. With -S, the records must also be sorted and free
of duplicates.

The second database is used for the B reads. It is omitted when the argument
after <db> ends in ".las", or names an existing file once ".las" is added. A
.las suffix is added to file arguments that lack one.

The exit status is 0 if every file passes and 1 otherwise.`,
		ArgsName: "db [db2] x.las...",
	}
	opts := checkOpts{}
	cmd.Flags.BoolVar(&opts.verbose, "v", false, "Report the outcome of every file")
	cmd.Flags.BoolVar(&opts.sorted, "S", false, "Check that the records are sorted and free of duplicates")
	cmd.Flags.BoolVar(&opts.mapOrder, "a", false, "With -S, expect map order (A read, A position) instead of pile order")
	cmd.Flags.IntVar(&opts.bufSize, "buf-size", las.DefaultBufSize, "Size of the read buffer, in bytes")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		summary, err := check(vcontext.Background(), opts, argv, env.Stdout)
		if err != nil {
			return err
		}
		if summary.Failed() {
			return cmdline.ErrExitCode(1)
		}
		return nil
	})
	return cmd
}

func newCmdView() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "view",
		Short:    "Print the records of an alignment file as text",
		ArgsName: "x.las",
	}
	opts := viewOpts{}
	cmd.Flags.BoolVar(&opts.trace, "trace", false, "Print the trace points of each record")
	cmd.Flags.IntVar(&opts.bufSize, "buf-size", las.DefaultBufSize, "Size of the read buffer, in bytes")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("view takes one pathname argument, but got %v", argv)
		}
		return view(vcontext.Background(), opts, argv[0], env.Stdout)
	})
	return cmd
}

func newCmdChecksum() *cmdline.Command {
	cmd := &cmdline.Command{
		Name: "checksum",
		Short: `Compute a checksum of an alignment file.
The checksum is a JSON string of sums of per-record hashes, so it does not depend on the record order`,
		ArgsName: "x.las",
	}
	bufSize := cmd.Flags.Int("buf-size", las.DefaultBufSize, "Size of the read buffer, in bytes")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 1 {
			return fmt.Errorf("checksum takes a path, but found %v", argv)
		}
		return checksum(vcontext.Background(), argv[0], *bufSize, env.Stdout)
	})
	return cmd
}

func newCmdTrackMerge() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:  "track-merge",
		Short: "Merge interval tracks",
		Long: `
Track-merge computes the union of the input tracks and stores it as the track
<out> of the read database. Inputs ending in ".txt" or ".txt.gz" are text
files of "read start end" lines, sorted by read and start; other inputs name
stored tracks of the database.`,
		ArgsName: "out in...",
	}
	opts := trackMergeOpts{}
	cmd.Flags.StringVar(&opts.dbPath, "db", "", "Path of the read database that holds the tracks")
	cmd.Flags.StringVar(&opts.readsPath, "reads", "", "FASTA or .fai file giving the number of reads, needed when every input is a text file")
	cmd.Flags.BoolVar(&opts.verbose, "v", false, "Report the size of the merged track")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) < 2 {
			return fmt.Errorf("track-merge takes out in..., but found %v", argv)
		}
		return trackMerge(vcontext.Background(), opts, argv[0], argv[1:], env.Stdout)
	})
	return cmd
}

// Run parses the command line and runs the selected subcommand.
func Run() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.Lshortfile)
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(
		&cmdline.Command{
			Name:     "bio-lastool",
			Short:    "Tools for working with alignment (.las) files and interval tracks",
			LookPath: false,
			Children: []*cmdline.Command{
				newCmdCheck(),
				newCmdView(),
				newCmdChecksum(),
				newCmdTrackMerge(),
			},
		})
}
