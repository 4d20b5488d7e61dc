// Package dtypes catalogs the pixel data types the merge engine can produce
// and the range/representability rules for nodata sentinels.
//
// Band data travels through the engine as float64 regardless of the declared
// DType; the DType governs memory budgeting (chunk sizing), nodata range
// validation, and how a sink encodes pixels on the way out.
package dtypes

import (
	"fmt"
	"math"
)

// DType identifies a pixel storage type.
type DType int

const (
	Uint8 DType = iota
	Int16
	Uint16
	Int32
	Uint32
	Float32
	Float64
)

var names = map[DType]string{
	Uint8:   "uint8",
	Int16:   "int16",
	Uint16:  "uint16",
	Int32:   "int32",
	Uint32:  "uint32",
	Float32: "float32",
	Float64: "float64",
}

// String returns the lowercase type name, e.g. "uint8".
func (d DType) String() string {
	if s, ok := names[d]; ok {
		return s
	}
	return fmt.Sprintf("dtype(%d)", int(d))
}

// Parse converts a type name to a DType.
func Parse(s string) (DType, error) {
	for d, name := range names {
		if name == s {
			return d, nil
		}
	}
	return 0, fmt.Errorf("unknown dtype %q", s)
}

// Size returns the storage size of one pixel in bytes.
func (d DType) Size() int {
	switch d {
	case Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32, Float32:
		return 4
	default:
		return 8
	}
}

// IsFloat reports whether the type is a floating point type.
func (d DType) IsFloat() bool {
	return d == Float32 || d == Float64
}

// Range returns the smallest and largest finite values representable by the
// type.
func (d DType) Range() (min, max float64) {
	switch d {
	case Uint8:
		return 0, math.MaxUint8
	case Int16:
		return math.MinInt16, math.MaxInt16
	case Uint16:
		return 0, math.MaxUint16
	case Int32:
		return math.MinInt32, math.MaxInt32
	case Uint32:
		return 0, math.MaxUint32
	case Float32:
		return -math.MaxFloat32, math.MaxFloat32
	default:
		return -math.MaxFloat64, math.MaxFloat64
	}
}

// CanHold reports whether v is representable in the type. NaN and infinities
// are representable only by the float types; finite values must lie within
// the type's range and, for integer types, be whole numbers.
func (d DType) CanHold(v float64) bool {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return d.IsFloat()
	}
	min, max := d.Range()
	if v < min || v > max {
		return false
	}
	if !d.IsFloat() && v != math.Trunc(v) {
		return false
	}
	return true
}

// Clamp forces v into the type's representable range, truncating fractional
// parts for integer types. NaN clamps to 0 for integer types.
func (d DType) Clamp(v float64) float64 {
	if d.IsFloat() {
		return v
	}
	if math.IsNaN(v) {
		return 0
	}
	min, max := d.Range()
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return math.Trunc(v)
}

// NodataKind is the runtime classification of a nodata sentinel. Comparing a
// pixel against nodata needs three distinct equality semantics (== never
// matches NaN, and infinities compare safely via IsInf), so the kind is
// resolved once per merge rather than per pixel.
type NodataKind int

const (
	NodataFinite NodataKind = iota
	NodataNaN
	NodataInf
)

// ClassifyNodata resolves the comparison semantics for a nodata value.
func ClassifyNodata(v float64) NodataKind {
	switch {
	case math.IsNaN(v):
		return NodataNaN
	case math.IsInf(v, 0):
		return NodataInf
	default:
		return NodataFinite
	}
}

// Matches reports whether pixel value v equals the nodata value under the
// kind's semantics.
func (k NodataKind) Matches(v, nodata float64) bool {
	switch k {
	case NodataNaN:
		return math.IsNaN(v)
	case NodataInf:
		return math.IsInf(v, 0)
	default:
		return v == nodata
	}
}
