package raster

import (
	"fmt"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/windows"
)

// Resampling selects the filter used when a read window's shape differs from
// the requested output shape.
type Resampling int

const (
	ResamplingNearest Resampling = iota
	ResamplingBilinear
)

// String returns the lowercase filter name.
func (r Resampling) String() string {
	switch r {
	case ResamplingBilinear:
		return "bilinear"
	default:
		return "nearest"
	}
}

// ParseResampling converts a filter name to a Resampling value.
func ParseResampling(s string) (Resampling, error) {
	switch s {
	case "nearest", "":
		return ResamplingNearest, nil
	case "bilinear":
		return ResamplingBilinear, nil
	default:
		return 0, fmt.Errorf("unknown resampling %q", s)
	}
}

// Source is a georeferenced raster the merge engine can read windows from.
//
// Read returns a Block of shape (len(indexes), outH, outW); indexes are
// 1-based band numbers, nil meaning all bands. Reads are boundless: window
// regions outside the source's extent come back masked invalid rather than
// erroring. Implementations own resampling when (outH, outW) differs from
// the window's shape.
type Source interface {
	Bounds() Bounds
	Res() Resolution
	CRS() string
	Count() int
	DType() dtypes.DType
	Nodata() *float64
	Transform() affine.Transform
	Colormap(band int) (Colormap, bool)
	Read(indexes []int, w windows.Window, outH, outW int, rs Resampling) (*Block, error)
}

// Writer is a raster sink the merge engine streams finished chunks to.
// Write places the block's pixels at the given window of the destination
// grid. Close flushes; callers that passed in an already-open writer keep
// responsibility for closing it.
type Writer interface {
	Write(b *Block, w windows.Window) error
	WriteColormap(band int, cm Colormap) error
	Close() error
}

// normalizeIndexes expands a nil index list to all bands and validates
// 1-based band numbers against count.
func normalizeIndexes(indexes []int, count int) ([]int, error) {
	if len(indexes) == 0 {
		out := make([]int, count)
		for i := range out {
			out[i] = i + 1
		}
		return out, nil
	}
	for _, idx := range indexes {
		if idx < 1 || idx > count {
			return nil, fmt.Errorf("band index %d out of range 1..%d", idx, count)
		}
	}
	return indexes, nil
}
