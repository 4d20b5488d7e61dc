package affine

import (
	"errors"
	"math"
	"testing"
)

func TestFromOrigin(t *testing.T) {
	tf := FromOrigin(100, 200, 0.5, 0.25)

	if tf.A != 0.5 || tf.E != -0.25 {
		t.Errorf("pixel sizes: got (%g, %g), want (0.5, -0.25)", tf.A, tf.E)
	}
	if tf.B != 0 || tf.D != 0 {
		t.Errorf("expected rectilinear transform, got %v", tf)
	}

	x, y := tf.Apply(0, 0)
	if x != 100 || y != 200 {
		t.Errorf("upper-left corner: got (%g, %g), want (100, 200)", x, y)
	}

	x, y = tf.Apply(4, 8)
	if x != 102 || y != 198 {
		t.Errorf("Apply(4, 8): got (%g, %g), want (102, 198)", x, y)
	}
}

func TestMul_TranslationScale(t *testing.T) {
	composed := Translation(10, 20).Mul(Scale(2, -2))
	want := FromOrigin(10, 20, 2, 2)
	if composed != want {
		t.Errorf("composition: got %v, want %v", composed, want)
	}
}

func TestInvert_RoundTrip(t *testing.T) {
	tf := FromOrigin(-30.5, 61.25, 0.125, 0.0625)
	inv, err := tf.Invert()
	if err != nil {
		t.Fatalf("Invert failed: %v", err)
	}

	tests := []struct{ col, row float64 }{
		{0, 0},
		{17, 3},
		{2.5, 9.75},
		{-4, 100},
	}
	for _, tt := range tests {
		x, y := tf.Apply(tt.col, tt.row)
		col, row := inv.Apply(x, y)
		if math.Abs(col-tt.col) > 1e-9 || math.Abs(row-tt.row) > 1e-9 {
			t.Errorf("round trip (%g, %g): got (%g, %g)", tt.col, tt.row, col, row)
		}
	}
}

func TestInvert_Singular(t *testing.T) {
	_, err := Scale(1, 0).Invert()
	if !errors.Is(err, ErrNotInvertible) {
		t.Errorf("expected ErrNotInvertible, got %v", err)
	}
}

func TestIsRectilinear(t *testing.T) {
	if !FromOrigin(0, 0, 1, 1).IsRectilinear() {
		t.Error("north-up transform should be rectilinear")
	}
	rotated := Transform{A: 1, B: 0.5, E: -1}
	if rotated.IsRectilinear() {
		t.Error("sheared transform should not be rectilinear")
	}
}

func TestRes(t *testing.T) {
	tf := FromOrigin(0, 0, 2, 3)
	if tf.XRes() != 2 || tf.YRes() != 3 {
		t.Errorf("resolution: got (%g, %g), want (2, 3)", tf.XRes(), tf.YRes())
	}
}
