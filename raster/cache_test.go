package raster

import (
	"fmt"
	"testing"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
)

func TestSourceCache(t *testing.T) {
	opens := 0
	cache := NewSourceCache(func(path string) (Source, error) {
		opens++
		return NewDataset(affine.FromOrigin(0, 1, 1, 1), "", 1, 1, 1, dtypes.Uint8, nil), nil
	})

	a1, err := cache.Load("a.tif")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	a2, err := cache.Load("a.tif")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if a1 != a2 {
		t.Error("repeated loads should return the cached source")
	}
	if opens != 1 {
		t.Errorf("open count: got %d, want 1", opens)
	}

	if _, err := cache.Load("b.tif"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opens != 2 {
		t.Errorf("open count: got %d, want 2", opens)
	}

	cache.Evict("a.tif")
	if _, err := cache.Load("a.tif"); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if opens != 3 {
		t.Errorf("evicted path should be reopened, open count %d", opens)
	}

	cache.Clear()
	cache.Load("a.tif")
	cache.Load("b.tif")
	if opens != 5 {
		t.Errorf("cleared cache should reopen everything, open count %d", opens)
	}
}

func TestSourceCache_OpenError(t *testing.T) {
	cache := NewSourceCache(func(path string) (Source, error) {
		return nil, fmt.Errorf("no such file %s", path)
	})
	if _, err := cache.Load("missing.tif"); err == nil {
		t.Error("open errors should propagate")
	}
}
