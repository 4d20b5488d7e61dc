package merge

import (
	"fmt"
	"sort"

	"github.com/ironsheep/raster-merge/raster"
)

// StrategyFunc combines freshly read source data into a chunk accumulator,
// mutating acc (data and mask) in place.
//
// acc is a view into the chunk buffer covering the same region as src; both
// masks use valid=true. acc may carry more bands than src when the merge
// was configured with a larger OutputCount; the extra trailing bands are
// not the strategy's to touch. srcIndex is the source's position in the
// original sources argument and chunkRowOff/chunkColOff locate the region on
// the full output grid, for strategies that need provenance (paint order,
// per-source weighting).
//
// The engine validates nothing about a custom strategy and does not recover
// panics raised inside one.
type StrategyFunc func(acc, src *raster.Block, srcIndex, chunkRowOff, chunkColOff int)

var builtins = map[string]StrategyFunc{
	"first": copyFirst,
	"last":  copyLast,
	"min":   copyMin,
	"max":   copyMax,
	"sum":   copySum,
	"count": copyCount,
}

// Methods lists the built-in strategy names, sorted.
func Methods() []string {
	out := make([]string, 0, len(builtins))
	for name := range builtins {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// lookupStrategy resolves a method name; empty means "first".
func lookupStrategy(name string) (StrategyFunc, error) {
	if name == "" {
		name = "first"
	}
	fn, ok := builtins[name]
	if !ok {
		return nil, fmt.Errorf("%w: unknown method %q (built-ins: %v)", ErrMerge, name, Methods())
	}
	return fn, nil
}

// eachPixel walks the overlapping bands of acc and src in lockstep, handing
// the flat indexes to fn. Strategies share this loop so the stride
// arithmetic lives in one place.
func eachPixel(acc, src *raster.Block, fn func(ai, si int)) {
	bands := src.Bands
	if acc.Bands < bands {
		bands = acc.Bands
	}
	for band := 0; band < bands; band++ {
		for row := 0; row < src.H; row++ {
			ai := acc.Index(band, row, 0)
			si := src.Index(band, row, 0)
			for col := 0; col < src.W; col++ {
				fn(ai+col, si+col)
			}
		}
	}
}

// copyFirst keeps existing valid pixels and fills holes with new valid ones.
func copyFirst(acc, src *raster.Block, _, _, _ int) {
	eachPixel(acc, src, func(ai, si int) {
		if !acc.Mask[ai] && src.Mask[si] {
			acc.Data[ai] = src.Data[si]
			acc.Mask[ai] = true
		}
	})
}

// copyLast always takes new valid pixels, painting over whatever is there.
func copyLast(acc, src *raster.Block, _, _, _ int) {
	eachPixel(acc, src, func(ai, si int) {
		if src.Mask[si] {
			acc.Data[ai] = src.Data[si]
			acc.Mask[ai] = true
		}
	})
}

// copyMin takes the pointwise minimum where both are valid, else the valid
// one.
func copyMin(acc, src *raster.Block, _, _, _ int) {
	eachPixel(acc, src, func(ai, si int) {
		if !src.Mask[si] {
			return
		}
		if !acc.Mask[ai] || src.Data[si] < acc.Data[ai] {
			acc.Data[ai] = src.Data[si]
			acc.Mask[ai] = true
		}
	})
}

// copyMax takes the pointwise maximum where both are valid, else the valid
// one.
func copyMax(acc, src *raster.Block, _, _, _ int) {
	eachPixel(acc, src, func(ai, si int) {
		if !src.Mask[si] {
			return
		}
		if !acc.Mask[ai] || src.Data[si] > acc.Data[ai] {
			acc.Data[ai] = src.Data[si]
			acc.Mask[ai] = true
		}
	})
}

// copySum adds where both are valid and passes the valid value through
// where only one is; a nodata pixel is never added into the sum.
func copySum(acc, src *raster.Block, _, _, _ int) {
	eachPixel(acc, src, func(ai, si int) {
		if !src.Mask[si] {
			return
		}
		if acc.Mask[ai] {
			acc.Data[ai] += src.Data[si]
		} else {
			acc.Data[ai] = src.Data[si]
			acc.Mask[ai] = true
		}
	})
}

// copyCount accumulates the number of valid contributions per pixel; the
// data values themselves are ignored.
func copyCount(acc, src *raster.Block, _, _, _ int) {
	eachPixel(acc, src, func(ai, si int) {
		if !src.Mask[si] {
			return
		}
		if acc.Mask[ai] {
			acc.Data[ai]++
		} else {
			acc.Data[ai] = 1
			acc.Mask[ai] = true
		}
	})
}
