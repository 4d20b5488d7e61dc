package geotiff

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/google/tiff"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/raster"
)

// ifdFields is the tag subset we unmarshal from the first IFD. The struct
// tag syntax is github.com/google/tiff's field mapping.
type ifdFields struct {
	ImageWidth      uint64    `tiff:"field,tag=256"`
	ImageLength     uint64    `tiff:"field,tag=257"`
	BitsPerSample   []uint16  `tiff:"field,tag=258"`
	Compression     uint16    `tiff:"field,tag=259"`
	StripOffsets    []uint64  `tiff:"field,tag=273"`
	SamplesPerPixel uint16    `tiff:"field,tag=277"`
	RowsPerStrip    uint64    `tiff:"field,tag=278"`
	StripByteCounts []uint64  `tiff:"field,tag=279"`
	PlanarConfig    uint16    `tiff:"field,tag=284"`
	ColorMap        []uint16  `tiff:"field,tag=320"`
	SampleFormat    []uint16  `tiff:"field,tag=339"`
	ModelPixelScale []float64 `tiff:"field,tag=33550"`
	ModelTiepoint   []float64 `tiff:"field,tag=33922"`
	GeoAsciiParams  string    `tiff:"field,tag=34737"`
	GDALNodata      string    `tiff:"field,tag=42113"`
}

// Load reads a GeoTIFF written by this package (or any uncompressed,
// band-sequential, single-strip-per-band classic TIFF with the standard
// georeferencing tags) into an in-memory dataset.
func Load(path string) (*raster.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("geotiff: %w", err)
	}
	defer f.Close()

	t, err := tiff.Parse(f, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("geotiff: parsing %s: %w", path, err)
	}
	ifds := t.IFDs()
	if len(ifds) == 0 {
		return nil, fmt.Errorf("geotiff: %s has no IFD", path)
	}
	var fields ifdFields
	if err := tiff.UnmarshalIFD(ifds[0], &fields); err != nil {
		return nil, fmt.Errorf("geotiff: reading tags of %s: %w", path, err)
	}

	if fields.Compression != 0 && fields.Compression != 1 {
		return nil, fmt.Errorf("geotiff: %s uses compression %d; only uncompressed is supported", path, fields.Compression)
	}
	width := int(fields.ImageWidth)
	height := int(fields.ImageLength)
	count := int(fields.SamplesPerPixel)
	if count == 0 {
		count = 1
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("geotiff: %s has bad shape %dx%d", path, width, height)
	}
	if count > 1 && fields.PlanarConfig != 2 {
		return nil, fmt.Errorf("geotiff: %s is pixel-interleaved; only band-sequential is supported", path)
	}
	if len(fields.StripOffsets) != count || int(fields.RowsPerStrip) != height {
		return nil, fmt.Errorf("geotiff: %s must have exactly one strip per band", path)
	}

	bits := uint16(8)
	if len(fields.BitsPerSample) > 0 {
		bits = fields.BitsPerSample[0]
	}
	format := uint16(sampleFormatUint)
	if len(fields.SampleFormat) > 0 {
		format = fields.SampleFormat[0]
	}
	dtype, err := dtypeFor(bits, format)
	if err != nil {
		return nil, fmt.Errorf("%v (%s)", err, path)
	}

	tf, err := transformFromTags(fields)
	if err != nil {
		return nil, fmt.Errorf("geotiff: %s: %w", path, err)
	}

	crs := strings.TrimSuffix(strings.TrimRight(fields.GeoAsciiParams, "\x00"), "|")

	var nodata *float64
	if s := strings.TrimRight(fields.GDALNodata, "\x00 "); s != "" {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, fmt.Errorf("geotiff: %s has bad nodata %q: %w", path, s, err)
		}
		nodata = &v
	}

	ds := raster.NewDataset(tf, crs, count, height, width, dtype, nodata)
	kind := dtypes.ClassifyNodata(0)
	nodataval := 0.0
	if nodata != nil {
		nodataval = *nodata
		kind = dtypes.ClassifyNodata(nodataval)
	}

	sampleSize := dtype.Size()
	buf := make([]byte, width*height*sampleSize)
	for band := 0; band < count; band++ {
		if _, err := f.ReadAt(buf, int64(fields.StripOffsets[band])); err != nil {
			return nil, fmt.Errorf("geotiff: reading band %d of %s: %w", band+1, path, err)
		}
		for row := 0; row < height; row++ {
			for col := 0; col < width; col++ {
				v := decodeSample(buf[(row*width+col)*sampleSize:], dtype)
				if nodata != nil && kind.Matches(v, nodataval) {
					continue // stays invalid, filled with nodata
				}
				ds.SetPixel(band+1, row, col, v)
			}
		}
	}

	if cm := colormapFromTIFF(fields.ColorMap); cm != nil {
		ds.SetColormap(1, cm)
	}
	return ds, nil
}

func transformFromTags(fields ifdFields) (affine.Transform, error) {
	if len(fields.ModelPixelScale) < 2 || len(fields.ModelTiepoint) < 6 {
		return affine.Transform{}, fmt.Errorf("missing ModelPixelScale/ModelTiepoint georeferencing")
	}
	xres := fields.ModelPixelScale[0]
	yres := fields.ModelPixelScale[1]
	if xres <= 0 || yres <= 0 {
		return affine.Transform{}, fmt.Errorf("bad pixel scale (%g, %g)", xres, yres)
	}
	// Tiepoint maps raster point (i, j) to world point (x, y).
	i, j := fields.ModelTiepoint[0], fields.ModelTiepoint[1]
	x, y := fields.ModelTiepoint[3], fields.ModelTiepoint[4]
	west := x - i*xres
	north := y + j*yres
	return affine.FromOrigin(west, north, xres, yres), nil
}

func decodeSample(b []byte, d dtypes.DType) float64 {
	switch d {
	case dtypes.Uint8:
		return float64(b[0])
	case dtypes.Int16:
		return float64(int16(binary.LittleEndian.Uint16(b)))
	case dtypes.Uint16:
		return float64(binary.LittleEndian.Uint16(b))
	case dtypes.Int32:
		return float64(int32(binary.LittleEndian.Uint32(b)))
	case dtypes.Uint32:
		return float64(binary.LittleEndian.Uint32(b))
	case dtypes.Float32:
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b)))
	default:
		return math.Float64frombits(binary.LittleEndian.Uint64(b))
	}
}
