package merge

import (
	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/raster"
)

// DefaultMemLimitMB bounds the chunk accumulator when Options.MemLimitMB is
// zero.
const DefaultMemLimitMB = 64

// Options configures a merge. The zero value merges all bands of the given
// sources with the "first" strategy into an in-memory block sized to the
// union of the source bounds at the first source's resolution.
type Options struct {
	// Bounds fixes the output envelope. Nil means the union of all source
	// bounds.
	Bounds *raster.Bounds

	// Res fixes the output pixel size. Nil means the first source's
	// resolution, or the highest resolution across sources when
	// UseHighestRes is set.
	Res           *raster.Resolution
	UseHighestRes bool

	// Nodata overrides the output nodata value. Nil inherits the first
	// source's nodata. A value the output dtype cannot represent produces a
	// warning and a fallback, not an error.
	Nodata *float64

	// DType overrides the output pixel type. Nil inherits the first source.
	DType *dtypes.DType

	// Indexes selects 1-based source bands. Nil means all bands of the
	// first source.
	Indexes []int

	// OutputCount sets the output band count. Zero means len(Indexes);
	// larger values append bands that stay at the fill value.
	OutputCount int

	// Resampling is handed to every source read.
	Resampling raster.Resampling

	// Method names a built-in strategy: "first", "last", "min", "max",
	// "sum", or "count". Empty means "first". Ignored when Strategy is set.
	Method string

	// Strategy plugs in a custom compositing function.
	Strategy StrategyFunc

	// TargetAlignedPixels snaps the output bounds outward to multiples of
	// the resolution, the -tap convention of mosaicking tools.
	TargetAlignedPixels bool

	// MemLimitMB bounds the memory used by one chunk accumulator. Zero
	// means DefaultMemLimitMB.
	MemLimitMB int

	// Masked requests that the array-mode result's mask reflect validity
	// under the dtype-aware nodata test. Without it the result mask is all
	// valid and nodata pixels are told apart by value alone.
	Masked bool

	// Dst switches to file mode: every finished chunk is written to this
	// writer and Result.Data stays nil. DstOwned makes the engine close Dst
	// when done; leave it false for writers the caller opened and will
	// close itself.
	Dst      raster.Writer
	DstOwned bool
}

// Result describes the finished merge. In array mode Data holds the merged
// pixels; in file mode Data is nil and the pixels live in the destination
// writer.
type Result struct {
	Data      *raster.Block
	Transform affine.Transform
	Width     int
	Height    int
	Bounds    raster.Bounds
	DType     dtypes.DType
	Nodata    float64
	Warnings  []string
}
