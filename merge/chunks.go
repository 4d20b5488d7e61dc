package merge

import (
	"math"
	"sort"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/raster"
	"github.com/ironsheep/raster-merge/windows"
)

// chunkSafetyFactor leaves slack in the memory budget for the temporary
// read buffers that live alongside a chunk accumulator.
const chunkSafetyFactor = 8

// chunkGrid partitions the output raster into memory-bounded chunks that
// tile it exactly: no gaps, no overlap, row-major order.
type chunkGrid struct {
	wins      []windows.Window
	rowBreaks []float64 // monotonically increasing, first 0, last height
	colBreaks []float64
	nrows     int
	ncols     int

	// bounds memoizes per-chunk geographic bounds (computed lazily, keyed
	// by chunk index) so many sources touching the same chunk don't redo
	// the transform arithmetic.
	bounds []raster.Bounds
	have   []bool
}

// planChunks sizes chunks so that
//
//	count * chunkW * chunkH * dtypeSize * chunkSafetyFactor <= memLimitMB * 1e6
//
// and subdivides the (height, width) output accordingly. If the whole
// output fits in the budget there is a single chunk.
func planChunks(height, width, count, dtypeSize, memLimitMB int) *chunkGrid {
	if memLimitMB <= 0 {
		memLimitMB = DefaultMemLimitMB
	}
	maxPixels := float64(memLimitMB) * 1e6 / float64(dtypeSize*count*chunkSafetyFactor)
	n := int(math.Floor(math.Sqrt(maxPixels)))
	if n < 1 {
		n = 1
	}

	g := &chunkGrid{}
	if float64(width)*float64(height) < maxPixels {
		g.nrows, g.ncols = 1, 1
		g.wins = []windows.Window{windows.New(0, 0, float64(width), float64(height))}
		g.rowBreaks = []float64{0, float64(height)}
		g.colBreaks = []float64{0, float64(width)}
	} else {
		g.nrows = (height + n - 1) / n
		g.ncols = (width + n - 1) / n
		g.rowBreaks = breakpoints(height, n, g.nrows)
		g.colBreaks = breakpoints(width, n, g.ncols)
		g.wins = make([]windows.Window, 0, g.nrows*g.ncols)
		for i := 0; i < g.nrows; i++ {
			for j := 0; j < g.ncols; j++ {
				g.wins = append(g.wins, windows.New(
					g.colBreaks[j],
					g.rowBreaks[i],
					g.colBreaks[j+1]-g.colBreaks[j],
					g.rowBreaks[i+1]-g.rowBreaks[i],
				))
			}
		}
	}
	g.bounds = make([]raster.Bounds, len(g.wins))
	g.have = make([]bool, len(g.wins))
	return g
}

func breakpoints(extent, step, cells int) []float64 {
	breaks := make([]float64, cells+1)
	for i := 1; i < cells; i++ {
		breaks[i] = float64(i * step)
	}
	breaks[cells] = float64(extent)
	return breaks
}

// chunkBounds returns the geographic bounds of chunk ci under tf, memoized.
func (g *chunkGrid) chunkBounds(ci int, tf affine.Transform) raster.Bounds {
	if g.have[ci] {
		return g.bounds[ci]
	}
	w := g.wins[ci]
	x0, y0 := tf.Apply(w.ColOff, w.RowOff)
	x1, y1 := tf.Apply(w.ColOff+w.Width, w.RowOff+w.Height)
	b := raster.Bounds{
		Left:   math.Min(x0, x1),
		Bottom: math.Min(y0, y1),
		Right:  math.Max(x0, x1),
		Top:    math.Max(y0, y1),
	}
	g.bounds[ci] = b
	g.have[ci] = true
	return b
}

// candidateRange binary-searches the breakpoint arrays for the contiguous
// block of chunk rows [r0, r1) and columns [c0, c1) that a source window in
// output pixel space can possibly overlap.
func (g *chunkGrid) candidateRange(sw windows.Window) (r0, r1, c0, c1 int) {
	r0, r1 = bisectRange(g.rowBreaks, sw.RowOff, sw.RowOff+sw.Height)
	c0, c1 = bisectRange(g.colBreaks, sw.ColOff, sw.ColOff+sw.Width)
	return r0, r1, c0, c1
}

// bisectRange returns the half-open index range of cells [breaks[i],
// breaks[i+1]) intersecting the continuous interval [start, stop).
func bisectRange(breaks []float64, start, stop float64) (int, int) {
	cells := len(breaks) - 1
	// First cell whose stop exceeds start.
	lo := sort.Search(cells, func(i int) bool { return breaks[i+1] > start })
	// First break at or past stop bounds the last intersecting cell.
	hi := sort.SearchFloat64s(breaks, stop)
	if hi > cells {
		hi = cells
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}

// index returns the row-major chunk index of (row, col).
func (g *chunkGrid) index(row, col int) int {
	return row*g.ncols + col
}
