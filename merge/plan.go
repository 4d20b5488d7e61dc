package merge

import (
	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/raster"
)

// OutputPlan is the resolved description of the output raster: everything a
// caller needs to open a destination writer before running a file-mode
// merge. It is immutable once computed.
type OutputPlan struct {
	Bounds    raster.Bounds
	Res       raster.Resolution
	Transform affine.Transform
	Width     int
	Height    int
	Count     int
	DType     dtypes.DType
	Nodata    float64
	Warnings  []string
}

// PlanOutput validates the sources and resolves the output extent,
// resolution, shape, band count, dtype, and nodata exactly as Merge does,
// without reading any pixels. Merge with the same sources and options will
// produce this plan.
func PlanOutput(sources []raster.Source, opts Options) (*OutputPlan, error) {
	p, err := resolveExtent(sources, opts)
	if err != nil {
		return nil, err
	}
	return &OutputPlan{
		Bounds:    p.bounds,
		Res:       p.res,
		Transform: p.transform,
		Width:     p.width,
		Height:    p.height,
		Count:     p.count,
		DType:     p.dtype,
		Nodata:    p.nodata,
		Warnings:  p.warnings,
	}, nil
}
