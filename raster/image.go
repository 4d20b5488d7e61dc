package raster

import (
	"fmt"
	"image"
	"image/draw"
	"math"

	"github.com/anthonynsimon/bild/transform"
	"github.com/disintegration/imaging"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/windows"
)

// ImageSource adapts a standard image.Image into a three-band uint8 Source.
// Validity comes from the alpha channel: fully transparent pixels are
// masked invalid, which is also how boundless reads report the region
// outside the image.
type ImageSource struct {
	img       image.Image
	transform affine.Transform
	crs       string
}

// NewImageSource wraps an already decoded image with georeferencing.
func NewImageSource(img image.Image, tf affine.Transform, crs string) *ImageSource {
	return &ImageSource{img: img, transform: tf, crs: crs}
}

// OpenImage decodes a PNG/JPEG/GIF file and wraps it with georeferencing.
func OpenImage(path string, tf affine.Transform, crs string) (*ImageSource, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image: %w", err)
	}
	return NewImageSource(img, tf, crs), nil
}

// Width returns the image width in pixels.
func (s *ImageSource) Width() int { return s.img.Bounds().Dx() }

// Height returns the image height in pixels.
func (s *ImageSource) Height() int { return s.img.Bounds().Dy() }

// Count returns 3: red, green, blue.
func (s *ImageSource) Count() int { return 3 }

// CRS returns the coordinate reference system identifier.
func (s *ImageSource) CRS() string { return s.crs }

// DType returns Uint8.
func (s *ImageSource) DType() dtypes.DType { return dtypes.Uint8 }

// Nodata returns nil; validity is carried by the alpha channel instead.
func (s *ImageSource) Nodata() *float64 { return nil }

// Transform returns the pixel-to-world affine transform.
func (s *ImageSource) Transform() affine.Transform { return s.transform }

// Res returns the pixel size in CRS units.
func (s *ImageSource) Res() Resolution {
	return Resolution{X: s.transform.XRes(), Y: s.transform.YRes()}
}

// Bounds returns the image's geographic envelope.
func (s *ImageSource) Bounds() Bounds {
	full := windows.New(0, 0, float64(s.Width()), float64(s.Height()))
	left, bottom, right, top := full.Bounds(s.transform)
	return Bounds{Left: left, Bottom: bottom, Right: right, Top: top}
}

// Colormap returns no colormap; RGB images carry color directly.
func (s *ImageSource) Colormap(int) (Colormap, bool) { return nil, false }

// Read implements Source. The continuous window is expanded to the integer
// pixel grid, the covered region is copied onto a transparent canvas (so
// boundless reads come back masked), and the canvas is resampled to the
// output shape.
func (s *ImageSource) Read(indexes []int, w windows.Window, outH, outW int, rs Resampling) (*Block, error) {
	bands, err := normalizeIndexes(indexes, s.Count())
	if err != nil {
		return nil, err
	}
	if outH <= 0 || outW <= 0 || w.IsEmpty() {
		return nil, fmt.Errorf("empty read: window %v, out shape (%d, %d)", w, outH, outW)
	}

	col0 := int(math.Floor(w.ColOff))
	row0 := int(math.Floor(w.RowOff))
	col1 := int(math.Ceil(w.ColOff + w.Width))
	row1 := int(math.Ceil(w.RowOff + w.Height))

	canvas := image.NewNRGBA(image.Rect(0, 0, col1-col0, row1-row0))
	sp := s.img.Bounds().Min.Add(image.Pt(col0, row0))
	draw.Draw(canvas, canvas.Bounds(), s.img, sp, draw.Src)

	var resized image.Image = canvas
	if canvas.Bounds().Dx() != outW || canvas.Bounds().Dy() != outH {
		filter := transform.NearestNeighbor
		if rs == ResamplingBilinear {
			filter = transform.Linear
		}
		resized = transform.Resize(canvas, outW, outH, filter)
	}

	out := NewBlock(len(bands), outH, outW)
	rb := resized.Bounds()
	for row := 0; row < outH; row++ {
		for col := 0; col < outW; col++ {
			r, g, b, a := resized.At(rb.Min.X+col, rb.Min.Y+row).RGBA()
			if a == 0 {
				continue
			}
			ch := [3]float64{float64(r >> 8), float64(g >> 8), float64(b >> 8)}
			for bi, band := range bands {
				out.Set(bi, row, col, ch[band-1])
			}
		}
	}
	return out, nil
}
