package raster

import "fmt"

// Bounds is a geographic envelope in CRS units: (Left, Bottom) is the
// south-west corner, (Right, Top) the north-east corner.
type Bounds struct {
	Left   float64 `json:"left"`
	Bottom float64 `json:"bottom"`
	Right  float64 `json:"right"`
	Top    float64 `json:"top"`
}

// Width returns the horizontal extent in CRS units.
func (b Bounds) Width() float64 { return b.Right - b.Left }

// Height returns the vertical extent in CRS units.
func (b Bounds) Height() float64 { return b.Top - b.Bottom }

// IsValid reports whether the envelope has positive area.
func (b Bounds) IsValid() bool {
	return b.Left < b.Right && b.Bottom < b.Top
}

// Intersect returns the overlap of two envelopes and whether it is
// non-empty. Envelopes that merely touch at an edge do not intersect.
func (b Bounds) Intersect(o Bounds) (Bounds, bool) {
	out := Bounds{
		Left:   maxf(b.Left, o.Left),
		Bottom: maxf(b.Bottom, o.Bottom),
		Right:  minf(b.Right, o.Right),
		Top:    minf(b.Top, o.Top),
	}
	return out, out.IsValid()
}

// Union returns the smallest envelope containing both.
func (b Bounds) Union(o Bounds) Bounds {
	return Bounds{
		Left:   minf(b.Left, o.Left),
		Bottom: minf(b.Bottom, o.Bottom),
		Right:  maxf(b.Right, o.Right),
		Top:    maxf(b.Top, o.Top),
	}
}

func (b Bounds) String() string {
	return fmt.Sprintf("Bounds(%g, %g, %g, %g)", b.Left, b.Bottom, b.Right, b.Top)
}

// Resolution is the size of one pixel in CRS units. Both components are
// positive; the Y flip lives in the affine transform, not here.
type Resolution struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}
