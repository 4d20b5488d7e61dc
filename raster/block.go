package raster

import (
	"fmt"

	"github.com/ironsheep/raster-merge/windows"
)

// Block is a band-major pixel buffer with a validity mask. Data and Mask are
// parallel: Mask[i] reports whether Data[i] holds a real pixel value.
//
// A Block is either contiguous (owns its storage) or a strided view into a
// parent Block created by Sub. Views share Data and Mask with the parent, so
// mutating a view mutates the parent. That sharing is what lets merge
// strategies write chunk sub-regions in place.
type Block struct {
	Bands int
	H     int
	W     int
	Data  []float64
	Mask  []bool

	off        int
	rowStride  int
	bandStride int
}

// NewBlock allocates a contiguous block with all pixels zero and invalid.
func NewBlock(bands, h, w int) *Block {
	return &Block{
		Bands:      bands,
		H:          h,
		W:          w,
		Data:       make([]float64, bands*h*w),
		Mask:       make([]bool, bands*h*w),
		rowStride:  w,
		bandStride: h * w,
	}
}

// Index returns the flat offset of (band, row, col) into Data and Mask.
func (b *Block) Index(band, row, col int) int {
	return b.off + band*b.bandStride + row*b.rowStride + col
}

// At returns the pixel value at (band, row, col).
func (b *Block) At(band, row, col int) float64 {
	return b.Data[b.Index(band, row, col)]
}

// ValidAt reports whether the pixel at (band, row, col) is valid.
func (b *Block) ValidAt(band, row, col int) bool {
	return b.Mask[b.Index(band, row, col)]
}

// Set stores a valid pixel value at (band, row, col).
func (b *Block) Set(band, row, col int, v float64) {
	i := b.Index(band, row, col)
	b.Data[i] = v
	b.Mask[i] = true
}

// SetInvalid marks the pixel at (band, row, col) invalid.
func (b *Block) SetInvalid(band, row, col int) {
	b.Mask[b.Index(band, row, col)] = false
}

// Sub returns a view of the region described by w, which must be
// integer-aligned and lie within the block. The view shares storage with b.
func (b *Block) Sub(w windows.Window) (*Block, error) {
	rowStart, rowStop, colStart, colStop := w.ToSlices()
	if rowStart < 0 || colStart < 0 || rowStop > b.H || colStop > b.W || rowStop <= rowStart || colStop <= colStart {
		return nil, fmt.Errorf("sub-window %v outside block %dx%d", w, b.H, b.W)
	}
	return &Block{
		Bands:      b.Bands,
		H:          rowStop - rowStart,
		W:          colStop - colStart,
		Data:       b.Data,
		Mask:       b.Mask,
		off:        b.off + rowStart*b.rowStride + colStart,
		rowStride:  b.rowStride,
		bandStride: b.bandStride,
	}, nil
}

// Fill sets every pixel to v and marks it valid.
func (b *Block) Fill(v float64) {
	b.each(func(i int) {
		b.Data[i] = v
		b.Mask[i] = true
	})
}

// FillInvalid sets every pixel to v and marks it invalid. Used to prime
// accumulators with the nodata fill.
func (b *Block) FillInvalid(v float64) {
	b.each(func(i int) {
		b.Data[i] = v
		b.Mask[i] = false
	})
}

// Clone returns a contiguous deep copy of the block (or view).
func (b *Block) Clone() *Block {
	out := NewBlock(b.Bands, b.H, b.W)
	for band := 0; band < b.Bands; band++ {
		for row := 0; row < b.H; row++ {
			src := b.Index(band, row, 0)
			dst := out.Index(band, row, 0)
			copy(out.Data[dst:dst+b.W], b.Data[src:src+b.W])
			copy(out.Mask[dst:dst+b.W], b.Mask[src:src+b.W])
		}
	}
	return out
}

// CopyFrom copies data and mask from src, which must have the same shape.
func (b *Block) CopyFrom(src *Block) error {
	if src.Bands != b.Bands || src.H != b.H || src.W != b.W {
		return fmt.Errorf("shape mismatch: (%d,%d,%d) vs (%d,%d,%d)",
			b.Bands, b.H, b.W, src.Bands, src.H, src.W)
	}
	for band := 0; band < b.Bands; band++ {
		for row := 0; row < b.H; row++ {
			s := src.Index(band, row, 0)
			d := b.Index(band, row, 0)
			copy(b.Data[d:d+b.W], src.Data[s:s+b.W])
			copy(b.Mask[d:d+b.W], src.Mask[s:s+b.W])
		}
	}
	return nil
}

func (b *Block) each(fn func(i int)) {
	for band := 0; band < b.Bands; band++ {
		for row := 0; row < b.H; row++ {
			base := b.Index(band, row, 0)
			for col := 0; col < b.W; col++ {
				fn(base + col)
			}
		}
	}
}
