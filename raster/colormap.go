package raster

import (
	"fmt"
	"image"
	"image/color"
	"sort"

	colorful "github.com/lucasb-eyer/go-colorful"
)

// Colormap maps integer pixel values to RGBA colors, the way paletted
// GeoTIFF bands do. The merge engine propagates the first source's colormap
// verbatim to band 1 of a file-mode destination.
type Colormap map[int][4]uint8

// Clone returns a deep copy of the colormap.
func (cm Colormap) Clone() Colormap {
	out := make(Colormap, len(cm))
	for k, v := range cm {
		out[k] = v
	}
	return out
}

// ColorStop anchors a ramp color at a position in [0, 1].
type ColorStop struct {
	Pos float64 `json:"pos"`
	Hex string  `json:"hex"` // "#RRGGBB"
}

// Ramp builds a colormap of size entries by interpolating between stops in
// Lab space. Stops need not be sorted; positions outside [0, 1] are an
// error, as is a ramp with fewer than two stops.
func Ramp(stops []ColorStop, size int) (Colormap, error) {
	if len(stops) < 2 {
		return nil, fmt.Errorf("ramp needs at least two stops, got %d", len(stops))
	}
	if size < 2 {
		return nil, fmt.Errorf("ramp size must be at least 2, got %d", size)
	}

	type anchor struct {
		pos float64
		col colorful.Color
	}
	anchors := make([]anchor, len(stops))
	for i, s := range stops {
		if s.Pos < 0 || s.Pos > 1 {
			return nil, fmt.Errorf("stop position %g outside [0, 1]", s.Pos)
		}
		c, err := colorful.Hex(s.Hex)
		if err != nil {
			return nil, fmt.Errorf("stop %d: %w", i, err)
		}
		anchors[i] = anchor{pos: s.Pos, col: c}
	}
	sort.Slice(anchors, func(i, j int) bool { return anchors[i].pos < anchors[j].pos })

	cm := make(Colormap, size)
	for i := 0; i < size; i++ {
		t := float64(i) / float64(size-1)
		// Find the segment containing t.
		seg := 0
		for seg < len(anchors)-2 && t > anchors[seg+1].pos {
			seg++
		}
		lo, hi := anchors[seg], anchors[seg+1]
		local := 0.0
		if hi.pos > lo.pos {
			local = (t - lo.pos) / (hi.pos - lo.pos)
		}
		if local < 0 {
			local = 0
		} else if local > 1 {
			local = 1
		}
		r, g, b := lo.col.BlendLab(hi.col, local).Clamped().RGB255()
		cm[i] = [4]uint8{r, g, b, 255}
	}
	return cm, nil
}

// ApplyColormap renders one 1-based band of a block through a colormap.
// Invalid pixels and values missing from the map come out fully
// transparent.
func ApplyColormap(b *Block, band int, cm Colormap) (*image.NRGBA, error) {
	if band < 1 || band > b.Bands {
		return nil, fmt.Errorf("band %d out of range 1..%d", band, b.Bands)
	}
	img := image.NewNRGBA(image.Rect(0, 0, b.W, b.H))
	src := band - 1
	for row := 0; row < b.H; row++ {
		for col := 0; col < b.W; col++ {
			if !b.ValidAt(src, row, col) {
				continue
			}
			entry, ok := cm[int(b.At(src, row, col))]
			if !ok {
				continue
			}
			img.SetNRGBA(col, row, color.NRGBA{R: entry[0], G: entry[1], B: entry[2], A: entry[3]})
		}
	}
	return img, nil
}
