package main

// bio-lastool inspects alignment (.las) files and interval tracks.
//
// Usage:
//   bio-lastool check [-v] [-S] [-a] <db> [<db2>] <x.las>...
//   bio-lastool view [-trace] <x.las>
//   bio-lastool checksum <x.las>
//   bio-lastool track-merge -db <reads.db> <out> <in>...

import "github.com/grailbio/overlap/cmd/bio-lastool/cmd"

func main() {
	cmd.Run()
}
