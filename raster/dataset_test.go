package raster

import (
	"math"
	"testing"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/windows"
)

func newTestDataset(t *testing.T) *Dataset {
	t.Helper()
	nodata := 0.0
	ds := NewDataset(affine.FromOrigin(0, 10, 1, 1), "EPSG:32633", 1, 10, 10, dtypes.Uint8, &nodata)
	for row := 0; row < 10; row++ {
		for col := 0; col < 10; col++ {
			ds.SetPixel(1, row, col, float64(row*10+col+1))
		}
	}
	return ds
}

func TestDataset_Bounds(t *testing.T) {
	ds := newTestDataset(t)
	got := ds.Bounds()
	want := Bounds{Left: 0, Bottom: 0, Right: 10, Top: 10}
	if got != want {
		t.Errorf("got %v, want %v", got, want)
	}
	if res := ds.Res(); res.X != 1 || res.Y != 1 {
		t.Errorf("resolution: got %v, want (1, 1)", res)
	}
}

func TestDataset_ReadIdentity(t *testing.T) {
	ds := newTestDataset(t)

	out, err := ds.Read([]int{1}, windows.New(0, 0, 10, 10), 10, 10, ResamplingNearest)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	for row := 0; row < 10; row++ {
		for col := 0; col < 10; col++ {
			want := float64(row*10 + col + 1)
			if got := out.At(0, row, col); got != want {
				t.Fatalf("pixel (%d, %d): got %g, want %g", row, col, got, want)
			}
			if !out.ValidAt(0, row, col) {
				t.Fatalf("pixel (%d, %d) should be valid", row, col)
			}
		}
	}
}

func TestDataset_ReadBoundless(t *testing.T) {
	ds := newTestDataset(t)

	// Window hangs off the top-left by 5 pixels in each direction.
	out, err := ds.Read([]int{1}, windows.New(-5, -5, 10, 10), 10, 10, ResamplingNearest)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}

	if out.ValidAt(0, 0, 0) {
		t.Error("out-of-range pixel should be invalid")
	}
	if got := out.At(0, 0, 0); got != 0 {
		t.Errorf("out-of-range pixel should carry the nodata fill, got %g", got)
	}
	// In-range quadrant maps back to the raster's top-left.
	if got := out.At(0, 5, 5); got != 1 {
		t.Errorf("in-range pixel: got %g, want 1", got)
	}
	if !out.ValidAt(0, 5, 5) {
		t.Error("in-range pixel should be valid")
	}
}

func TestDataset_ReadSkipsNodataHoles(t *testing.T) {
	nodata := -1.0
	ds := NewDataset(affine.FromOrigin(0, 4, 1, 1), "", 1, 4, 4, dtypes.Float32, &nodata)
	ds.Fill(9)
	ds.Block().SetInvalid(0, 2, 2)

	out, err := ds.Read(nil, windows.New(0, 0, 4, 4), 4, 4, ResamplingNearest)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if out.ValidAt(0, 2, 2) {
		t.Error("hole should stay invalid through a read")
	}
	if !out.ValidAt(0, 1, 1) {
		t.Error("neighbor should stay valid")
	}
}

func TestDataset_ReadDownsample(t *testing.T) {
	ds := newTestDataset(t)

	// 10x10 window read into 5x5: nearest sampling at the center of each
	// 2x2 cell lands on its bottom-right source pixel.
	out, err := ds.Read([]int{1}, windows.New(0, 0, 10, 10), 5, 5, ResamplingNearest)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := out.At(0, 0, 0); got != 12 {
		t.Errorf("downsampled (0, 0): got %g, want 12", got)
	}
	if got := out.At(0, 4, 4); got != 100 {
		t.Errorf("downsampled (4, 4): got %g, want 100", got)
	}
}

func TestDataset_ReadBilinear(t *testing.T) {
	ds := NewDataset(affine.FromOrigin(0, 2, 1, 1), "", 1, 2, 2, dtypes.Float64, nil)
	ds.SetPixel(1, 0, 0, 0)
	ds.SetPixel(1, 0, 1, 10)
	ds.SetPixel(1, 1, 0, 20)
	ds.SetPixel(1, 1, 1, 30)

	// A 1x1 read of the full window samples the exact center of the 2x2
	// grid, weighting all four pixels equally.
	out, err := ds.Read(nil, windows.New(0, 0, 2, 2), 1, 1, ResamplingBilinear)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := out.At(0, 0, 0); math.Abs(got-15) > 1e-9 {
		t.Errorf("center sample: got %g, want 15", got)
	}
}

func TestDataset_ReadBilinearRenormalizes(t *testing.T) {
	nodata := -1.0
	ds := NewDataset(affine.FromOrigin(0, 2, 1, 1), "", 1, 2, 2, dtypes.Float64, &nodata)
	ds.SetPixel(1, 0, 0, 8)
	ds.SetPixel(1, 0, 1, 8)
	ds.SetPixel(1, 1, 0, 8)
	// (1, 1) left invalid: its weight must be redistributed, not averaged
	// in as the fill value.

	out, err := ds.Read(nil, windows.New(0, 0, 2, 2), 1, 1, ResamplingBilinear)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got := out.At(0, 0, 0); math.Abs(got-8) > 1e-9 {
		t.Errorf("renormalized sample: got %g, want 8", got)
	}
}

func TestDataset_ReadBadIndexes(t *testing.T) {
	ds := newTestDataset(t)
	if _, err := ds.Read([]int{0}, windows.New(0, 0, 10, 10), 10, 10, ResamplingNearest); err == nil {
		t.Error("band index 0 should be rejected (bands are 1-based)")
	}
	if _, err := ds.Read([]int{2}, windows.New(0, 0, 10, 10), 10, 10, ResamplingNearest); err == nil {
		t.Error("band index past the last band should be rejected")
	}
}

func TestDataset_WriteClampsToDType(t *testing.T) {
	ds := NewDataset(affine.FromOrigin(0, 2, 1, 1), "", 1, 2, 2, dtypes.Uint8, nil)

	b := NewBlock(1, 2, 2)
	b.Set(0, 0, 0, 300)
	b.Set(0, 0, 1, -5)
	b.Set(0, 1, 0, 7.9)
	b.Set(0, 1, 1, 42)

	if err := ds.Write(b, windows.New(0, 0, 2, 2)); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	checks := []struct {
		row, col int
		want     float64
	}{
		{0, 0, 255},
		{0, 1, 0},
		{1, 0, 7},
		{1, 1, 42},
	}
	for _, c := range checks {
		if got, _ := ds.Pixel(1, c.row, c.col); got != c.want {
			t.Errorf("pixel (%d, %d): got %g, want %g", c.row, c.col, got, c.want)
		}
	}
}

func TestDataset_WriteShapeMismatch(t *testing.T) {
	ds := NewDataset(affine.FromOrigin(0, 4, 1, 1), "", 1, 4, 4, dtypes.Uint8, nil)
	b := NewBlock(1, 3, 3)
	if err := ds.Write(b, windows.New(0, 0, 2, 2)); err == nil {
		t.Error("Write should reject a block that does not match the window")
	}
}

func TestDataset_WriteAfterClose(t *testing.T) {
	ds := NewDataset(affine.FromOrigin(0, 2, 1, 1), "", 1, 2, 2, dtypes.Uint8, nil)
	if err := ds.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := ds.Write(NewBlock(1, 2, 2), windows.New(0, 0, 2, 2)); err == nil {
		t.Error("Write after Close should fail")
	}
}
