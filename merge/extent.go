package merge

import (
	"fmt"
	"math"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/raster"
)

// plan is the resolved output description. It is computed once by
// resolveExtent and immutable afterwards; every chunk and window downstream
// derives from it.
type plan struct {
	bounds    raster.Bounds
	res       raster.Resolution
	transform affine.Transform
	width     int
	height    int

	bands []int // 1-based source band indexes
	count int   // output band count, >= len(bands)

	dtype      dtypes.DType
	nodata     float64
	nodataKind dtypes.NodataKind
	fill       float64 // representable accumulator fill

	warnings []string
}

// resolveExtent validates the sources and computes the output plan:
// geographic bounds, pixel resolution, affine transform, raster shape, band
// selection, dtype, and nodata.
func resolveExtent(sources []raster.Source, opts Options) (*plan, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no sources", ErrMerge)
	}

	first := sources[0]
	for i, src := range sources {
		tf := src.Transform()
		if !tf.IsRectilinear() {
			return nil, fmt.Errorf("%w: source %d has a rotated transform %v", ErrMerge, i, tf)
		}
		if tf.A <= 0 {
			return nil, fmt.Errorf("%w: source %d is horizontally flipped (x pixel size %g)", ErrMerge, i, tf.A)
		}
		if tf.E >= 0 {
			return nil, fmt.Errorf("%w: source %d is upside-down (y pixel size %g)", ErrMerge, i, tf.E)
		}
		if src.CRS() != first.CRS() {
			return nil, fmt.Errorf("%w: source %d CRS %q does not match %q; reproject before merging",
				ErrMerge, i, src.CRS(), first.CRS())
		}
		if src.Count() != first.Count() {
			return nil, fmt.Errorf("%w: source %d has %d bands, first source has %d",
				ErrMerge, i, src.Count(), first.Count())
		}
	}

	p := &plan{}

	// Extent from option or the union envelope of all inputs.
	if opts.Bounds != nil {
		p.bounds = *opts.Bounds
	} else {
		p.bounds = first.Bounds()
		for _, src := range sources[1:] {
			p.bounds = p.bounds.Union(src.Bounds())
		}
	}
	if !p.bounds.IsValid() {
		return nil, fmt.Errorf("%w: degenerate output bounds %v", ErrMerge, p.bounds)
	}

	p.res = resolveResolution(sources, opts)
	if p.res.X <= 0 || p.res.Y <= 0 {
		return nil, fmt.Errorf("%w: non-positive resolution (%g, %g)", ErrMerge, p.res.X, p.res.Y)
	}

	if opts.TargetAlignedPixels {
		p.bounds.Left = math.Floor(p.bounds.Left/p.res.X) * p.res.X
		p.bounds.Bottom = math.Floor(p.bounds.Bottom/p.res.Y) * p.res.Y
		p.bounds.Right = math.Ceil(p.bounds.Right/p.res.X) * p.res.X
		p.bounds.Top = math.Ceil(p.bounds.Top/p.res.Y) * p.res.Y
	}

	// Shape. Rounding up (with a fuzz for exact fits) guarantees the raster
	// always covers the requested bounds; the envelope is then re-adjusted
	// to the pixel grid so bounds and transform agree.
	p.width = coveringCells(p.bounds.Width(), p.res.X)
	p.height = coveringCells(p.bounds.Height(), p.res.Y)
	p.bounds.Right = p.bounds.Left + float64(p.width)*p.res.X
	p.bounds.Bottom = p.bounds.Top - float64(p.height)*p.res.Y

	p.transform = affine.FromOrigin(p.bounds.Left, p.bounds.Top, p.res.X, p.res.Y)

	// Band selection and output count.
	bands := opts.Indexes
	if len(bands) == 0 {
		bands = make([]int, first.Count())
		for i := range bands {
			bands[i] = i + 1
		}
	}
	for _, b := range bands {
		if b < 1 || b > first.Count() {
			return nil, fmt.Errorf("%w: band index %d out of range 1..%d", ErrMerge, b, first.Count())
		}
	}
	p.bands = bands
	p.count = len(bands)
	if opts.OutputCount > 0 {
		if opts.OutputCount < len(bands) {
			return nil, fmt.Errorf("%w: output count %d smaller than %d selected bands",
				ErrMerge, opts.OutputCount, len(bands))
		}
		p.count = opts.OutputCount
	}

	// Output dtype and nodata: explicit overrides win, then the first
	// source. A nodata value the dtype cannot represent is a recoverable
	// problem: warn and fall back.
	p.dtype = first.DType()
	if opts.DType != nil {
		p.dtype = *opts.DType
	}

	nodata, haveNodata := 0.0, false
	if opts.Nodata != nil {
		nodata, haveNodata = *opts.Nodata, true
	} else if nd := first.Nodata(); nd != nil {
		nodata, haveNodata = *nd, true
	}
	if haveNodata && !p.dtype.CanHold(nodata) {
		warning := fmt.Sprintf(
			"nodata value %g is beyond the valid range of dtype %s, falling back to 0; consider overriding nodata",
			nodata, p.dtype)
		p.warnings = append(p.warnings, warning)
		log.Warn().Float64("nodata", nodata).Stringer("dtype", p.dtype).Msg("nodata out of dtype range, using 0")
		nodata = 0
	}
	p.nodata = nodata
	p.nodataKind = dtypes.ClassifyNodata(nodata)
	p.fill = nodata

	log.Debug().
		Str("bounds", p.bounds.String()).
		Int("width", p.width).
		Int("height", p.height).
		Float64("xres", p.res.X).
		Float64("yres", p.res.Y).
		Msg("resolved output extent")

	return p, nil
}

// resolveResolution picks the output pixel size: an explicit option, the
// highest resolution across sources (smallest pixel by hypot magnitude,
// first-encountered winning ties), or the first source's resolution.
func resolveResolution(sources []raster.Source, opts Options) raster.Resolution {
	if opts.Res != nil {
		return *opts.Res
	}
	res := sources[0].Res()
	if !opts.UseHighestRes {
		return res
	}
	best := math.Hypot(res.X, res.Y)
	for _, src := range sources[1:] {
		r := src.Res()
		if m := math.Hypot(r.X, r.Y); m < best {
			best = m
			res = r
		}
	}
	return res
}

// coveringCells returns the smallest cell count covering a continuous
// extent, tolerating float noise on exact fits.
func coveringCells(extent, cell float64) int {
	n := int(math.Ceil(extent/cell - 1e-9))
	if n < 1 {
		n = 1
	}
	return n
}
