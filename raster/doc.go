// Package raster defines the data contracts between the merge engine and
// its I/O collaborators: band blocks, geographic bounds, the Source and
// Writer interfaces, plus concrete in-memory and image-backed
// implementations used by tests and the CLI.
//
// # Band Blocks
//
// Pixel data moves through the engine as Block values: band-major float64
// buffers with a 1:1 validity mask. A Block may own its storage or be a
// strided view into another Block's storage; views are how the engine hands
// chunk sub-regions to merge strategies without copying.
//
// # Boundless Reads
//
// Source.Read is boundless: a window extending past the source's own extent
// succeeds, with the out-of-range region masked invalid. The merge engine
// relies on this and never clamps read windows itself.
//
// # Validity Masks
//
// Mask entries are true for valid pixels. Every strategy and sink in this
// module uses valid=true consistently; code converting to formats that mask
// the other way around must invert at the boundary.
//
// # Thread Safety
//
// SourceCache is safe for concurrent use. Datasets and blocks are not
// synchronized; callers processing one block on multiple goroutines must
// partition it into non-overlapping views first.
package raster
