// Package affine implements the 2D affine transforms used to map raster
// pixel coordinates to world coordinates.
//
// A Transform holds the six coefficients of the mapping
//
//	x = A*col + B*row + C
//	y = D*col + E*row + F
//
// which is the row-major ordering used by GDAL-style geotransforms. The
// merge engine only accepts rectilinear transforms (B == D == 0) with a
// positive X pixel size (A > 0) and a negative Y pixel size (E < 0), i.e.
// north-up rasters. Those checks live with the caller; this package provides
// the arithmetic.
package affine

import (
	"errors"
	"fmt"
	"math"
)

// ErrNotInvertible is returned by Invert when the transform collapses the
// plane (zero determinant) and therefore has no inverse.
var ErrNotInvertible = errors.New("affine: transform is not invertible")

// Transform maps pixel (col, row) coordinates to world (x, y) coordinates.
type Transform struct {
	A, B, C float64
	D, E, F float64
}

// Identity returns the identity transform.
func Identity() Transform {
	return Transform{A: 1, E: 1}
}

// Translation returns a transform that shifts the origin to (x, y).
func Translation(x, y float64) Transform {
	return Transform{A: 1, C: x, E: 1, F: y}
}

// Scale returns a transform that scales columns by sx and rows by sy.
func Scale(sx, sy float64) Transform {
	return Transform{A: sx, E: sy}
}

// FromOrigin builds the usual north-up raster transform with the upper-left
// corner at (west, north) and pixel sizes xres and yres (both positive).
//
// It is equivalent to Translation(west, north).Mul(Scale(xres, -yres)).
func FromOrigin(west, north, xres, yres float64) Transform {
	return Translation(west, north).Mul(Scale(xres, -yres))
}

// Mul composes two transforms: the result applies o first, then t.
func (t Transform) Mul(o Transform) Transform {
	return Transform{
		A: t.A*o.A + t.B*o.D,
		B: t.A*o.B + t.B*o.E,
		C: t.A*o.C + t.B*o.F + t.C,
		D: t.D*o.A + t.E*o.D,
		E: t.D*o.B + t.E*o.E,
		F: t.D*o.C + t.E*o.F + t.F,
	}
}

// Apply maps a pixel coordinate to a world coordinate. Fractional pixel
// coordinates are fine; (0, 0) maps to the raster's upper-left corner.
func (t Transform) Apply(col, row float64) (x, y float64) {
	return t.A*col + t.B*row + t.C, t.D*col + t.E*row + t.F
}

// Determinant returns the determinant of the linear part of the transform.
func (t Transform) Determinant() float64 {
	return t.A*t.E - t.B*t.D
}

// Invert returns the inverse transform, mapping world coordinates back to
// pixel coordinates. Returns ErrNotInvertible if the determinant is zero.
func (t Transform) Invert() (Transform, error) {
	det := t.Determinant()
	if det == 0 || math.IsNaN(det) {
		return Transform{}, ErrNotInvertible
	}
	inv := 1 / det
	return Transform{
		A: t.E * inv,
		B: -t.B * inv,
		C: (t.B*t.F - t.C*t.E) * inv,
		D: -t.D * inv,
		E: t.A * inv,
		F: (t.C*t.D - t.A*t.F) * inv,
	}, nil
}

// IsRectilinear reports whether the transform has no rotation or shear
// terms, i.e. pixel edges are parallel to the world axes.
func (t Transform) IsRectilinear() bool {
	return t.B == 0 && t.D == 0
}

// XRes returns the width of one pixel in world units.
func (t Transform) XRes() float64 { return math.Abs(t.A) }

// YRes returns the height of one pixel in world units.
func (t Transform) YRes() float64 { return math.Abs(t.E) }

// String formats the coefficients in reading order.
func (t Transform) String() string {
	return fmt.Sprintf("|%g %g %g|%g %g %g|", t.A, t.B, t.C, t.D, t.E, t.F)
}
