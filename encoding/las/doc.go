// Package las reads and writes local-alignment ("overlap") files.
//
// A file consists of a 12-byte header followed by exactly NOvl records:
//
//   header:  int64 novl, int32 tspace
//   record:  int32 aread, bread, flags, abpos, aepos, bbpos, bepos, diffs, tlen
//            [tlen*tbytes]byte trace
//
// All integers are little-endian. tbytes is 1 if 0 < tspace <= TraceCrossover
// and 2 otherwise; it is fixed for all the records in a file.
//
// Records that form a chain (one alignment split across a breakpoint) are
// stored adjacently: the first one carries ChainStart and each following one
// carries ChainNext.
//
// The package performs no range validation of record fields. See package
// validate for that.
package las
