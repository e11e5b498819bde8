/*Package interval implements per-read interval tracks, such as the masks that
  mark low-complexity or repetitive regions of each read, and the union of
  several tracks over the same reads.

  A track stores, for each read, a sorted sequence of interval boundaries
  {start0, end0, start1, end1, ...} describing half-open intervals
  [start, end).  All the reads share one flat boundary array; Anno gives the
  range of the array that belongs to each read.
*/
package interval
