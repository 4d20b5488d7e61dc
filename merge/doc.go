// Package merge composites N georeferenced raster sources sharing a CRS
// into a single output raster, either as an in-memory block or streamed
// chunk by chunk to a raster.Writer.
//
// # Pipeline
//
// Merge resolves the output extent, resolution, and transform once over all
// sources, partitions the output into memory-bounded chunks, finds the
// chunks each source can touch with a binary search over the chunk grid's
// breakpoints, and composites each (source, chunk) pair through a pluggable
// merge strategy. Chunks are processed in row-major order and sources in
// input order, so order-sensitive strategies ("first", "last") are
// deterministic: "first" means earliest in the sources argument.
//
// # Error Model
//
// Structural problems (empty source list, CRS mismatch, a rotated, flipped,
// or upside-down source transform, an unknown method name) fail fast with
// an error wrapping ErrMerge. A source that turns out not to overlap a
// chunk is expected (common with explicit bounds) and is skipped with a
// debug log, never an error. A nodata value that the output dtype cannot
// represent produces a warning on the result and a fallback fill, not a
// failure. Panics from custom strategies are not recovered.
//
// # Concurrency
//
// The engine is single-threaded and blocking. Chunks are mutually
// independent and tile the output exactly, so callers wanting parallelism
// can shard by chunk as long as each worker owns its chunk buffer and
// file-mode writes stay serialized.
package merge
