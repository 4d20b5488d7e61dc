package raster

import (
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/windows"
)

func newTestImageSource() *ImageSource {
	img := image.NewNRGBA(image.Rect(0, 0, 4, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 4; x++ {
			img.SetNRGBA(x, y, color.NRGBA{R: uint8(x * 60), G: uint8(y * 60), B: 128, A: 255})
		}
	}
	return NewImageSource(img, affine.FromOrigin(0, 4, 1, 1), "EPSG:3857")
}

func TestImageSource_Metadata(t *testing.T) {
	src := newTestImageSource()

	if src.Count() != 3 {
		t.Errorf("band count: got %d, want 3", src.Count())
	}
	if src.DType() != dtypes.Uint8 {
		t.Errorf("dtype: got %v, want uint8", src.DType())
	}
	if src.Nodata() != nil {
		t.Error("image sources carry no nodata sentinel")
	}
	want := Bounds{Left: 0, Bottom: 0, Right: 4, Top: 4}
	if got := src.Bounds(); got != want {
		t.Errorf("bounds: got %v, want %v", got, want)
	}
}

func TestImageSource_ReadIdentity(t *testing.T) {
	src := newTestImageSource()

	out, err := src.Read(nil, windows.New(0, 0, 4, 4), 4, 4, ResamplingNearest)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if out.Bands != 3 {
		t.Fatalf("bands: got %d, want 3", out.Bands)
	}
	if got := out.At(0, 0, 2); got != 120 {
		t.Errorf("red at (0, 2): got %g, want 120", got)
	}
	if got := out.At(1, 3, 0); got != 180 {
		t.Errorf("green at (3, 0): got %g, want 180", got)
	}
	if got := out.At(2, 1, 1); got != 128 {
		t.Errorf("blue at (1, 1): got %g, want 128", got)
	}
	if !out.ValidAt(0, 0, 0) {
		t.Error("opaque pixels should be valid")
	}
}

func TestImageSource_ReadBandSubset(t *testing.T) {
	src := newTestImageSource()

	out, err := src.Read([]int{2}, windows.New(0, 0, 4, 4), 4, 4, ResamplingNearest)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if out.Bands != 1 {
		t.Fatalf("bands: got %d, want 1", out.Bands)
	}
	if got := out.At(0, 2, 0); got != 120 {
		t.Errorf("green at (2, 0): got %g, want 120", got)
	}
}

func TestImageSource_ReadBoundless(t *testing.T) {
	src := newTestImageSource()

	out, err := src.Read(nil, windows.New(-2, -2, 4, 4), 4, 4, ResamplingNearest)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if out.ValidAt(0, 0, 0) {
		t.Error("pixels outside the image should be invalid")
	}
	if !out.ValidAt(0, 2, 2) {
		t.Error("pixels inside the image should be valid")
	}
	if got := out.At(2, 2, 2); got != 128 {
		t.Errorf("blue at origin overlap: got %g, want 128", got)
	}
}

func TestImageSource_ReadUpsample(t *testing.T) {
	src := newTestImageSource()

	out, err := src.Read([]int{3}, windows.New(0, 0, 4, 4), 8, 8, ResamplingNearest)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if out.H != 8 || out.W != 8 {
		t.Fatalf("shape: got (%d, %d), want (8, 8)", out.H, out.W)
	}
	// Blue is constant across the test image, so upsampling preserves it.
	for row := 0; row < 8; row++ {
		for col := 0; col < 8; col++ {
			if got := out.At(0, row, col); got != 128 {
				t.Fatalf("pixel (%d, %d): got %g, want 128", row, col, got)
			}
		}
	}
}

func TestImageSource_TransparentMasked(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, color.NRGBA{R: 10, A: 255})
	img.SetNRGBA(1, 0, color.NRGBA{}) // fully transparent
	img.SetNRGBA(0, 1, color.NRGBA{R: 30, A: 255})
	img.SetNRGBA(1, 1, color.NRGBA{R: 40, A: 255})
	src := NewImageSource(img, affine.FromOrigin(0, 2, 1, 1), "")

	out, err := src.Read([]int{1}, windows.New(0, 0, 2, 2), 2, 2, ResamplingNearest)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if out.ValidAt(0, 0, 1) {
		t.Error("transparent pixel should be invalid")
	}
	if !out.ValidAt(0, 0, 0) {
		t.Error("opaque pixel should be valid")
	}
}
