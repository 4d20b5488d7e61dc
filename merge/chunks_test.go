package merge

import (
	"testing"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/windows"
)

func TestPlanChunks_SingleChunkWhenSmall(t *testing.T) {
	g := planChunks(100, 100, 1, 1, 64)
	if len(g.wins) != 1 {
		t.Fatalf("got %d chunks, want 1", len(g.wins))
	}
	if g.wins[0] != windows.New(0, 0, 100, 100) {
		t.Errorf("chunk window: got %v", g.wins[0])
	}
}

func TestPlanChunks_TilesExactly(t *testing.T) {
	// 1 MB budget, 8 bytes/pixel, 1 band: maxPixels = 1e6/64 = 15625,
	// n = 125, so a 300x200 output splits into a 3x2 grid.
	g := planChunks(300, 200, 1, 8, 1)
	if g.nrows != 3 || g.ncols != 2 {
		t.Fatalf("grid: got %dx%d, want 3x2", g.nrows, g.ncols)
	}
	if len(g.wins) != 6 {
		t.Fatalf("got %d chunks, want 6", len(g.wins))
	}

	// Exact tiling: per-row and per-column extents sum to the output and
	// neighbors share edges.
	covered := make([][]bool, 300)
	for i := range covered {
		covered[i] = make([]bool, 200)
	}
	for _, w := range g.wins {
		r0, r1, c0, c1 := w.ToSlices()
		for r := r0; r < r1; r++ {
			for c := c0; c < c1; c++ {
				if covered[r][c] {
					t.Fatalf("pixel (%d, %d) covered twice", r, c)
				}
				covered[r][c] = true
			}
		}
	}
	for r := range covered {
		for c := range covered[r] {
			if !covered[r][c] {
				t.Fatalf("pixel (%d, %d) not covered", r, c)
			}
		}
	}
}

func TestPlanChunks_RaggedLastRow(t *testing.T) {
	// n = 125 against a 130-pixel extent: one full 125 cell plus a 5 cell.
	g := planChunks(130, 130, 1, 8, 1)
	if g.nrows != 2 || g.ncols != 2 {
		t.Fatalf("grid: got %dx%d, want 2x2", g.nrows, g.ncols)
	}
	last := g.wins[len(g.wins)-1]
	if last.Width != 5 || last.Height != 5 {
		t.Errorf("ragged chunk: got %gx%g, want 5x5", last.Width, last.Height)
	}
}

func TestPlanChunks_DegenerateBudget(t *testing.T) {
	// A budget that cannot hold even one pixel still makes progress with
	// 1x1 chunks.
	g := planChunks(5, 7, 1000000, 8, 1)
	if g.nrows != 5 || g.ncols != 7 {
		t.Fatalf("grid: got %dx%d, want 5x7", g.nrows, g.ncols)
	}
	for _, w := range g.wins {
		if w.Width != 1 || w.Height != 1 {
			t.Fatalf("chunk %v is not a single pixel", w)
		}
	}
}

func TestPlanChunks_ZeroLimitUsesDefault(t *testing.T) {
	g := planChunks(100, 100, 1, 1, 0)
	if len(g.wins) != 1 {
		t.Errorf("default budget should hold a 100x100 uint8 raster in one chunk, got %d", len(g.wins))
	}
}

func TestChunkBounds(t *testing.T) {
	g := planChunks(300, 200, 1, 8, 1)
	tf := affine.FromOrigin(1000, 5000, 2, 2)

	b := g.chunkBounds(0, tf)
	if b.Left != 1000 || b.Top != 5000 {
		t.Errorf("first chunk anchor: got (%g, %g), want (1000, 5000)", b.Left, b.Top)
	}
	if b.Right != 1000+125*2 || b.Bottom != 5000-125*2 {
		t.Errorf("first chunk extent: got %v", b)
	}

	// Memoized result must be identical.
	if again := g.chunkBounds(0, tf); again != b {
		t.Errorf("memoized bounds differ: %v vs %v", again, b)
	}
}

func TestBisectRange(t *testing.T) {
	breaks := []float64{0, 125, 250, 300}
	tests := []struct {
		name        string
		start, stop float64
		lo, hi      int
	}{
		{"inside first cell", 10, 100, 0, 1},
		{"spanning a break", 100, 200, 0, 2},
		{"everything", -50, 400, 0, 3},
		{"exactly one cell", 125, 250, 1, 2},
		{"touching a break from below", 0, 125, 0, 1},
		{"past the end", 300, 400, 3, 3},
		{"before the start", -50, 0, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi := bisectRange(breaks, tt.start, tt.stop)
			if lo != tt.lo || hi != tt.hi {
				t.Errorf("got [%d, %d), want [%d, %d)", lo, hi, tt.lo, tt.hi)
			}
		})
	}
}

func TestCandidateRange(t *testing.T) {
	g := planChunks(300, 200, 1, 8, 1) // 3x2 grid, breaks at 125/250 and 125
	r0, r1, c0, c1 := g.candidateRange(windows.New(100, 100, 50, 50))
	if r0 != 0 || r1 != 2 || c0 != 0 || c1 != 2 {
		t.Errorf("got rows [%d, %d) cols [%d, %d), want rows [0, 2) cols [0, 2)", r0, r1, c0, c1)
	}

	r0, r1, c0, c1 = g.candidateRange(windows.New(0, 260, 10, 10))
	if r0 != 2 || r1 != 3 || c0 != 0 || c1 != 1 {
		t.Errorf("got rows [%d, %d) cols [%d, %d), want rows [2, 3) cols [0, 1)", r0, r1, c0, c1)
	}
}

func TestChunkGrid_Index(t *testing.T) {
	g := planChunks(300, 200, 1, 8, 1)
	if got := g.index(2, 1); got != 5 {
		t.Errorf("index(2, 1): got %d, want 5", got)
	}
}
