// Package geotiff reads and writes the minimal GeoTIFF subset the merge
// engine needs for file-mode output: classic little-endian TIFF, no
// compression, band-sequential planes with one strip per band, plus the
// ModelPixelScale/ModelTiepoint georeferencing tags and GDAL's ASCII nodata
// tag.
//
// It is not a general GeoTIFF codec. Readers that need compressed, tiled,
// or BigTIFF inputs should convert them first; the writer's output is
// readable by GDAL-based tooling as-is.
package geotiff

import (
	"fmt"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/raster"
)

// TIFF tag and field type constants for the subset we emit.
const (
	tagImageWidth      = 256
	tagImageLength     = 257
	tagBitsPerSample   = 258
	tagCompression     = 259
	tagPhotometric     = 262
	tagStripOffsets    = 273
	tagSamplesPerPixel = 277
	tagRowsPerStrip    = 278
	tagStripByteCounts = 279
	tagPlanarConfig    = 284
	tagColorMap        = 320
	tagSampleFormat    = 339
	tagModelPixelScale = 33550
	tagModelTiepoint   = 33922
	tagGeoKeyDirectory = 34735
	tagGeoAsciiParams  = 34737
	tagGDALNodata      = 42113

	typeASCII  = 2
	typeShort  = 3
	typeLong   = 4
	typeDouble = 12

	sampleFormatUint  = 1
	sampleFormatInt   = 2
	sampleFormatFloat = 3
)

// Profile describes the destination raster a Writer is opened with,
// mirroring the merge engine's output plan.
type Profile struct {
	Width     int
	Height    int
	Count     int
	DType     dtypes.DType
	CRS       string
	Transform affine.Transform
	Nodata    *float64
}

func (p Profile) validate() error {
	if p.Width <= 0 || p.Height <= 0 {
		return fmt.Errorf("geotiff: bad shape %dx%d", p.Width, p.Height)
	}
	if p.Count <= 0 {
		return fmt.Errorf("geotiff: bad band count %d", p.Count)
	}
	if !p.Transform.IsRectilinear() || p.Transform.A <= 0 || p.Transform.E >= 0 {
		return fmt.Errorf("geotiff: transform %v is not a north-up rectilinear geotransform", p.Transform)
	}
	return nil
}

// sampleFormat maps a dtype to its TIFF SampleFormat value.
func sampleFormat(d dtypes.DType) uint16 {
	switch d {
	case dtypes.Int16, dtypes.Int32:
		return sampleFormatInt
	case dtypes.Float32, dtypes.Float64:
		return sampleFormatFloat
	default:
		return sampleFormatUint
	}
}

// dtypeFor reverses sampleFormat for the reader.
func dtypeFor(bits, format uint16) (dtypes.DType, error) {
	switch format {
	case sampleFormatUint:
		switch bits {
		case 8:
			return dtypes.Uint8, nil
		case 16:
			return dtypes.Uint16, nil
		case 32:
			return dtypes.Uint32, nil
		}
	case sampleFormatInt:
		switch bits {
		case 16:
			return dtypes.Int16, nil
		case 32:
			return dtypes.Int32, nil
		}
	case sampleFormatFloat:
		switch bits {
		case 32:
			return dtypes.Float32, nil
		case 64:
			return dtypes.Float64, nil
		}
	}
	return 0, fmt.Errorf("geotiff: unsupported sample format %d with %d bits", format, bits)
}

// colormapToTIFF flattens a raster colormap into the 3*256 SHORT layout of
// the TIFF ColorMap tag (red plane, green plane, blue plane, 8-bit values
// scaled to 16 bits).
func colormapToTIFF(cm raster.Colormap) []uint16 {
	out := make([]uint16, 3*256)
	for v, rgba := range cm {
		if v < 0 || v > 255 {
			continue
		}
		out[v] = uint16(rgba[0]) * 257
		out[256+v] = uint16(rgba[1]) * 257
		out[512+v] = uint16(rgba[2]) * 257
	}
	return out
}

// colormapFromTIFF rebuilds a raster colormap from the ColorMap tag.
func colormapFromTIFF(values []uint16) raster.Colormap {
	if len(values) < 3*256 {
		return nil
	}
	cm := make(raster.Colormap, 256)
	for v := 0; v < 256; v++ {
		cm[v] = [4]uint8{
			uint8(values[v] >> 8),
			uint8(values[256+v] >> 8),
			uint8(values[512+v] >> 8),
			255,
		}
	}
	return cm
}
