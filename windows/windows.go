// Package windows provides rectangular pixel-space regions with continuous
// (floating point) offsets and extents, plus the rounding, alignment, and
// intersection arithmetic the merge engine is built on.
//
// A Window is a value type: every operation returns a fresh Window and never
// mutates its receiver. Offsets and extents are continuous until explicitly
// rounded, so a window derived from geographic bounds keeps sub-pixel
// precision through intermediate computations.
//
// # Coordinate System
//
// Row 0 / column 0 is the raster's upper-left pixel. Rows increase downward
// and columns increase rightward, matching a north-up raster whose affine
// transform has a negative Y pixel size.
package windows

import (
	"errors"
	"fmt"
	"math"

	"github.com/ironsheep/raster-merge/affine"
)

// ErrWindow marks all window construction and algebra failures: malformed
// bounds, non-invertible transforms, and empty intersections. Callers use
// errors.Is(err, ErrWindow) to distinguish recoverable per-chunk intersection
// misses from genuine merge failures.
var ErrWindow = errors.New("invalid window")

// RoundOp selects how RoundLengths rounds a continuous extent to an integer.
type RoundOp int

const (
	// RoundCeil rounds lengths up, guaranteeing full coverage of the
	// continuous extent.
	RoundCeil RoundOp = iota
	// RoundFloor rounds lengths down, guaranteeing the rounded window stays
	// inside the continuous extent.
	RoundFloor
)

// Window is a rectangular region of a raster in pixel coordinates. Width and
// Height are positive for every usable window; a zero-size window only ever
// appears as a transient intersection-failure signal and is never returned
// without an accompanying error.
type Window struct {
	ColOff float64
	RowOff float64
	Width  float64
	Height float64
}

// New builds a window from offsets and extents.
func New(colOff, rowOff, width, height float64) Window {
	return Window{ColOff: colOff, RowOff: rowOff, Width: width, Height: height}
}

// FromBounds computes the continuous window covering the given geographic
// bounds under the given transform. The transform is inverted once and
// applied at the corners; for a north-up transform (top) maps to the smaller
// row offset.
//
// Fails with ErrWindow if the transform is not invertible or the bounds are
// degenerate (left >= right or bottom >= top).
func FromBounds(left, bottom, right, top float64, tf affine.Transform) (Window, error) {
	if left >= right || bottom >= top {
		return Window{}, fmt.Errorf("%w: degenerate bounds (%g, %g, %g, %g)", ErrWindow, left, bottom, right, top)
	}
	inv, err := tf.Invert()
	if err != nil {
		return Window{}, fmt.Errorf("%w: %v", ErrWindow, err)
	}

	// Evaluate all four corners so the window stays correct for transforms
	// with either axis orientation.
	c0, r0 := inv.Apply(left, top)
	c1, r1 := inv.Apply(right, bottom)
	c2, r2 := inv.Apply(left, bottom)
	c3, r3 := inv.Apply(right, top)

	colStart := min4(c0, c1, c2, c3)
	colStop := max4(c0, c1, c2, c3)
	rowStart := min4(r0, r1, r2, r3)
	rowStop := max4(r0, r1, r2, r3)

	return Window{
		ColOff: colStart,
		RowOff: rowStart,
		Width:  colStop - colStart,
		Height: rowStop - rowStart,
	}, nil
}

// Align snaps the window onto the integer pixel grid the way mosaicking
// tools do when compositing into an output chunk: offsets are floored with a
// +0.1 epsilon and lengths are floored with a +0.5 epsilon.
//
// The asymmetric epsilons bias offsets toward rounding down and lengths
// toward nearest, which prevents systematic half-pixel seams between
// adjacent chunks when many sources contribute. The constants are
// load-bearing; do not "fix" them to a symmetric rounding.
//
// Align is idempotent: aligning an already aligned window is a no-op.
func (w Window) Align() Window {
	return Window{
		ColOff: math.Floor(w.ColOff + 0.1),
		RowOff: math.Floor(w.RowOff + 0.1),
		Width:  math.Floor(w.Width + 0.5),
		Height: math.Floor(w.Height + 0.5),
	}
}

// RoundLengths rounds Width and Height to integers using op, leaving the
// offsets untouched. Used when a bounds-derived window becomes a
// consumer-facing integer raster size.
func (w Window) RoundLengths(op RoundOp) Window {
	round := math.Ceil
	if op == RoundFloor {
		round = math.Floor
	}
	w.Width = round(w.Width)
	w.Height = round(w.Height)
	return w
}

// RoundOffsets floors the offsets to integers, leaving the lengths untouched.
func (w Window) RoundOffsets() Window {
	w.ColOff = math.Floor(w.ColOff)
	w.RowOff = math.Floor(w.RowOff)
	return w
}

// Translate returns the window shifted by drow rows and dcol columns.
func (w Window) Translate(drow, dcol float64) Window {
	w.RowOff += drow
	w.ColOff += dcol
	return w
}

// Intersect computes the overlap of two windows: max of the starts, min of
// the stops. Fails with ErrWindow when the windows are disjoint (the overlap
// is empty on either axis).
func (w Window) Intersect(o Window) (Window, error) {
	rowStart := math.Max(w.RowOff, o.RowOff)
	colStart := math.Max(w.ColOff, o.ColOff)
	rowStop := math.Min(w.RowOff+w.Height, o.RowOff+o.Height)
	colStop := math.Min(w.ColOff+w.Width, o.ColOff+o.Width)
	if rowStop <= rowStart || colStop <= colStart {
		return Window{}, fmt.Errorf("%w: windows %v and %v do not intersect", ErrWindow, w, o)
	}
	return Window{
		ColOff: colStart,
		RowOff: rowStart,
		Width:  colStop - colStart,
		Height: rowStop - rowStart,
	}, nil
}

// Union returns the smallest window containing both w and o.
func (w Window) Union(o Window) Window {
	rowStart := math.Min(w.RowOff, o.RowOff)
	colStart := math.Min(w.ColOff, o.ColOff)
	rowStop := math.Max(w.RowOff+w.Height, o.RowOff+o.Height)
	colStop := math.Max(w.ColOff+w.Width, o.ColOff+o.Width)
	return Window{
		ColOff: colStart,
		RowOff: rowStart,
		Width:  colStop - colStart,
		Height: rowStop - rowStart,
	}
}

// Crop clamps the window to a raster of the given size, for boundless reads
// that must not index outside the backing storage. Fails with ErrWindow if
// nothing of the window lies inside the raster.
func (w Window) Crop(height, width float64) (Window, error) {
	return w.Intersect(Window{Width: width, Height: height})
}

// Bounds maps the window back to geographic bounds under tf, the inverse of
// FromBounds. For a north-up transform the window's top-left pixel corner
// maps to (left, top).
func (w Window) Bounds(tf affine.Transform) (left, bottom, right, top float64) {
	x0, y0 := tf.Apply(w.ColOff, w.RowOff)
	x1, y1 := tf.Apply(w.ColOff+w.Width, w.RowOff+w.Height)
	return math.Min(x0, x1), math.Min(y0, y1), math.Max(x0, x1), math.Max(y0, y1)
}

// ToSlices returns the half-open integer ranges [rowStart, rowStop) and
// [colStart, colStop) for indexing a buffer. The window should already be
// integer-aligned; fractional parts are truncated.
func (w Window) ToSlices() (rowStart, rowStop, colStart, colStop int) {
	rowStart = int(w.RowOff)
	colStart = int(w.ColOff)
	return rowStart, rowStart + int(w.Height), colStart, colStart + int(w.Width)
}

// IntShape returns the window's extents truncated to integers.
func (w Window) IntShape() (height, width int) {
	return int(w.Height), int(w.Width)
}

// IsEmpty reports whether the window has no area.
func (w Window) IsEmpty() bool {
	return w.Width <= 0 || w.Height <= 0
}

// String formats the window as (col_off, row_off, width, height).
func (w Window) String() string {
	return fmt.Sprintf("Window(%g, %g, %g, %g)", w.ColOff, w.RowOff, w.Width, w.Height)
}

func min4(a, b, c, d float64) float64 {
	return math.Min(math.Min(a, b), math.Min(c, d))
}

func max4(a, b, c, d float64) float64 {
	return math.Max(math.Max(a, b), math.Max(c, d))
}
