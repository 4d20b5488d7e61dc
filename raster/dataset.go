package raster

import (
	"fmt"
	"math"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/windows"
)

// Dataset is an in-memory georeferenced raster implementing both Source and
// Writer. It backs tests, acts as the array-mode result carrier, and serves
// as the reference implementation of the boundless masked read contract.
type Dataset struct {
	transform affine.Transform
	crs       string
	dtype     dtypes.DType
	nodata    *float64
	block     *Block
	colormaps map[int]Colormap
	closed    bool
}

// NewDataset allocates an in-memory raster. All pixels start invalid;
// nodata may be nil for sources without a sentinel.
func NewDataset(tf affine.Transform, crs string, bands, height, width int, dtype dtypes.DType, nodata *float64) *Dataset {
	d := &Dataset{
		transform: tf,
		crs:       crs,
		dtype:     dtype,
		nodata:    nodata,
		block:     NewBlock(bands, height, width),
		colormaps: make(map[int]Colormap),
	}
	if nodata != nil {
		d.block.FillInvalid(*nodata)
	}
	return d
}

// Width returns the raster width in pixels.
func (d *Dataset) Width() int { return d.block.W }

// Height returns the raster height in pixels.
func (d *Dataset) Height() int { return d.block.H }

// Count returns the number of bands.
func (d *Dataset) Count() int { return d.block.Bands }

// CRS returns the coordinate reference system identifier.
func (d *Dataset) CRS() string { return d.crs }

// DType returns the declared pixel type.
func (d *Dataset) DType() dtypes.DType { return d.dtype }

// Nodata returns the nodata sentinel, or nil if the raster has none.
func (d *Dataset) Nodata() *float64 { return d.nodata }

// Transform returns the pixel-to-world affine transform.
func (d *Dataset) Transform() affine.Transform { return d.transform }

// Res returns the pixel size in CRS units.
func (d *Dataset) Res() Resolution {
	return Resolution{X: d.transform.XRes(), Y: d.transform.YRes()}
}

// Bounds returns the raster's geographic envelope.
func (d *Dataset) Bounds() Bounds {
	full := windows.New(0, 0, float64(d.block.W), float64(d.block.H))
	left, bottom, right, top := full.Bounds(d.transform)
	return Bounds{Left: left, Bottom: bottom, Right: right, Top: top}
}

// Colormap returns the colormap attached to a band, if any.
func (d *Dataset) Colormap(band int) (Colormap, bool) {
	cm, ok := d.colormaps[band]
	return cm, ok
}

// SetColormap attaches a colormap to a band.
func (d *Dataset) SetColormap(band int, cm Colormap) {
	d.colormaps[band] = cm
}

// Fill sets every pixel of every band to v and marks it valid.
func (d *Dataset) Fill(v float64) { d.block.Fill(v) }

// FillBand sets every pixel of a 1-based band to v and marks it valid.
func (d *Dataset) FillBand(band int, v float64) {
	for row := 0; row < d.block.H; row++ {
		for col := 0; col < d.block.W; col++ {
			d.block.Set(band-1, row, col, v)
		}
	}
}

// SetPixel stores one valid pixel; band is 1-based.
func (d *Dataset) SetPixel(band, row, col int, v float64) {
	d.block.Set(band-1, row, col, v)
}

// Pixel returns one pixel value and its validity; band is 1-based.
func (d *Dataset) Pixel(band, row, col int) (float64, bool) {
	return d.block.At(band-1, row, col), d.block.ValidAt(band-1, row, col)
}

// Block exposes the backing block. Mutations are visible to readers.
func (d *Dataset) Block() *Block { return d.block }

// Read implements Source. The window may be continuous and may extend past
// the raster; out-of-range output pixels are masked invalid and filled with
// the nodata sentinel (or 0 without one).
func (d *Dataset) Read(indexes []int, w windows.Window, outH, outW int, rs Resampling) (*Block, error) {
	bands, err := normalizeIndexes(indexes, d.block.Bands)
	if err != nil {
		return nil, err
	}
	if outH <= 0 || outW <= 0 || w.IsEmpty() {
		return nil, fmt.Errorf("empty read: window %v, out shape (%d, %d)", w, outH, outW)
	}

	out := NewBlock(len(bands), outH, outW)
	fill := 0.0
	if d.nodata != nil {
		fill = *d.nodata
	}
	out.FillInvalid(fill)

	sy := w.Height / float64(outH)
	sx := w.Width / float64(outW)

	for bi, band := range bands {
		src := band - 1
		for row := 0; row < outH; row++ {
			// Sample at output pixel centers.
			fr := w.RowOff + (float64(row)+0.5)*sy
			for col := 0; col < outW; col++ {
				fc := w.ColOff + (float64(col)+0.5)*sx
				switch rs {
				case ResamplingBilinear:
					if v, ok := d.sampleBilinear(src, fr, fc); ok {
						out.Set(bi, row, col, v)
					}
				default:
					if v, ok := d.sampleNearest(src, fr, fc); ok {
						out.Set(bi, row, col, v)
					}
				}
			}
		}
	}
	return out, nil
}

func (d *Dataset) sampleNearest(band int, fr, fc float64) (float64, bool) {
	row := int(math.Floor(fr))
	col := int(math.Floor(fc))
	if row < 0 || row >= d.block.H || col < 0 || col >= d.block.W {
		return 0, false
	}
	if !d.block.ValidAt(band, row, col) {
		return 0, false
	}
	return d.block.At(band, row, col), true
}

// sampleBilinear interpolates among the up-to-four valid neighbors of the
// continuous position, renormalizing weights when some neighbors are
// missing or invalid.
func (d *Dataset) sampleBilinear(band int, fr, fc float64) (float64, bool) {
	r := fr - 0.5
	c := fc - 0.5
	r0 := int(math.Floor(r))
	c0 := int(math.Floor(c))
	tr := r - float64(r0)
	tc := c - float64(c0)

	var sum, wsum float64
	for dr := 0; dr <= 1; dr++ {
		for dc := 0; dc <= 1; dc++ {
			row, col := r0+dr, c0+dc
			if row < 0 || row >= d.block.H || col < 0 || col >= d.block.W {
				continue
			}
			if !d.block.ValidAt(band, row, col) {
				continue
			}
			wr := 1 - tr
			if dr == 1 {
				wr = tr
			}
			wc := 1 - tc
			if dc == 1 {
				wc = tc
			}
			sum += d.block.At(band, row, col) * wr * wc
			wsum += wr * wc
		}
	}
	if wsum == 0 {
		return 0, false
	}
	return sum / wsum, true
}

// Write implements Writer: the block lands at the given window of this
// raster's grid. Values are clamped to the dataset's dtype on the way in.
func (d *Dataset) Write(b *Block, w windows.Window) error {
	if d.closed {
		return fmt.Errorf("write to closed dataset")
	}
	rowStart, rowStop, colStart, colStop := w.ToSlices()
	if rowStop-rowStart != b.H || colStop-colStart != b.W {
		return fmt.Errorf("block shape (%d, %d) does not match window %v", b.H, b.W, w)
	}
	if b.Bands != d.block.Bands {
		return fmt.Errorf("band count mismatch: %d vs %d", b.Bands, d.block.Bands)
	}
	for band := 0; band < b.Bands; band++ {
		for row := rowStart; row < rowStop; row++ {
			for col := colStart; col < colStop; col++ {
				i := d.block.Index(band, row, col)
				j := b.Index(band, row-rowStart, col-colStart)
				d.block.Data[i] = d.dtype.Clamp(b.Data[j])
				d.block.Mask[i] = b.Mask[j]
			}
		}
	}
	return nil
}

// WriteColormap implements Writer.
func (d *Dataset) WriteColormap(band int, cm Colormap) error {
	d.SetColormap(band, cm)
	return nil
}

// Close implements Writer. Further writes fail; reads keep working.
func (d *Dataset) Close() error {
	d.closed = true
	return nil
}
