package geotiff

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sort"

	"github.com/ironsheep/raster-merge/raster"
	"github.com/ironsheep/raster-merge/windows"
)

// Writer implements raster.Writer by accumulating chunks in memory and
// encoding a striped GeoTIFF on Close. The merge engine's chunks tile the
// output exactly, so by Close every pixel has been written (or still holds
// the nodata fill).
//
// The whole raster is buffered until Close: the memory limit handed to the
// merge engine bounds its chunk accumulators, not this sink. Outputs that
// do not fit in memory need a streaming sink instead.
// TODO: stream chunks with WriteAt; with one fixed-size uncompressed strip
// per band the strip offsets are computable before any pixel is written.
type Writer struct {
	path     string
	profile  Profile
	block    *raster.Block
	colormap raster.Colormap
	closed   bool
}

// Open creates a GeoTIFF writer for the given destination profile. The file
// itself is created on Close.
func Open(path string, p Profile) (*Writer, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}
	w := &Writer{path: path, profile: p, block: raster.NewBlock(p.Count, p.Height, p.Width)}
	fill := 0.0
	if p.Nodata != nil {
		fill = *p.Nodata
	}
	w.block.FillInvalid(fill)
	return w, nil
}

// Write implements raster.Writer, placing the block at the given window of
// the destination grid. Values are clamped to the profile's dtype.
func (w *Writer) Write(b *raster.Block, win windows.Window) error {
	if w.closed {
		return fmt.Errorf("geotiff: write to closed writer %s", w.path)
	}
	rowStart, rowStop, colStart, colStop := win.ToSlices()
	if rowStart < 0 || colStart < 0 || rowStop > w.profile.Height || colStop > w.profile.Width {
		return fmt.Errorf("geotiff: window %v outside %dx%d destination", win, w.profile.Height, w.profile.Width)
	}
	if b.H != rowStop-rowStart || b.W != colStop-colStart {
		return fmt.Errorf("geotiff: block shape (%d, %d) does not match window %v", b.H, b.W, win)
	}
	bands := b.Bands
	if bands > w.profile.Count {
		bands = w.profile.Count
	}
	for band := 0; band < bands; band++ {
		for row := 0; row < b.H; row++ {
			for col := 0; col < b.W; col++ {
				i := w.block.Index(band, rowStart+row, colStart+col)
				j := b.Index(band, row, col)
				w.block.Data[i] = w.profile.DType.Clamp(b.Data[j])
				w.block.Mask[i] = b.Mask[j]
			}
		}
	}
	return nil
}

// WriteColormap implements raster.Writer. Only band 1 colormaps are
// representable in a TIFF; others are rejected.
func (w *Writer) WriteColormap(band int, cm raster.Colormap) error {
	if band != 1 {
		return fmt.Errorf("geotiff: colormap only supported on band 1, got %d", band)
	}
	w.colormap = cm.Clone()
	return nil
}

// Close encodes and writes the file. Closing twice is an error.
func (w *Writer) Close() error {
	if w.closed {
		return fmt.Errorf("geotiff: %s already closed", w.path)
	}
	w.closed = true

	encoded, err := w.encode()
	if err != nil {
		return err
	}
	if err := os.WriteFile(w.path, encoded, 0o644); err != nil {
		return fmt.Errorf("geotiff: writing %s: %w", w.path, err)
	}
	return nil
}

// ifdEntry is one tag in encoded form; value is the raw little-endian
// payload, stored inline when it fits in four bytes.
type ifdEntry struct {
	id    uint16
	typ   uint16
	count uint32
	value []byte
}

func shortEntry(id uint16, vals ...uint16) ifdEntry {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, vals)
	return ifdEntry{id: id, typ: typeShort, count: uint32(len(vals)), value: buf.Bytes()}
}

func longEntry(id uint16, vals ...uint32) ifdEntry {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, vals)
	return ifdEntry{id: id, typ: typeLong, count: uint32(len(vals)), value: buf.Bytes()}
}

func doubleEntry(id uint16, vals ...float64) ifdEntry {
	buf := new(bytes.Buffer)
	binary.Write(buf, binary.LittleEndian, vals)
	return ifdEntry{id: id, typ: typeDouble, count: uint32(len(vals)), value: buf.Bytes()}
}

func asciiEntry(id uint16, s string) ifdEntry {
	v := append([]byte(s), 0)
	return ifdEntry{id: id, typ: typeASCII, count: uint32(len(v)), value: v}
}

func (w *Writer) encode() ([]byte, error) {
	p := w.profile
	strips, err := w.encodeStrips()
	if err != nil {
		return nil, err
	}

	photometric := uint16(1) // BlackIsZero
	if w.colormap != nil && p.Count == 1 && p.DType.Size() == 1 {
		photometric = 3 // palette
	}

	bits := make([]uint16, p.Count)
	formats := make([]uint16, p.Count)
	counts := make([]uint32, p.Count)
	for i := range bits {
		bits[i] = uint16(p.DType.Size() * 8)
		formats[i] = sampleFormat(p.DType)
		counts[i] = uint32(len(strips[i]))
	}

	west, north := p.Transform.Apply(0, 0)
	entries := []ifdEntry{
		longEntry(tagImageWidth, uint32(p.Width)),
		longEntry(tagImageLength, uint32(p.Height)),
		shortEntry(tagBitsPerSample, bits...),
		shortEntry(tagCompression, 1),
		shortEntry(tagPhotometric, photometric),
		longEntry(tagStripOffsets, make([]uint32, p.Count)...), // patched below
		shortEntry(tagSamplesPerPixel, uint16(p.Count)),
		longEntry(tagRowsPerStrip, uint32(p.Height)),
		longEntry(tagStripByteCounts, counts...),
		shortEntry(tagPlanarConfig, 2), // band-sequential
		shortEntry(tagSampleFormat, formats...),
		doubleEntry(tagModelPixelScale, p.Transform.XRes(), p.Transform.YRes(), 0),
		doubleEntry(tagModelTiepoint, 0, 0, 0, west, north, 0),
		// Minimal GeoKey directory: version 1.1, one key, PixelIsArea.
		shortEntry(tagGeoKeyDirectory, 1, 1, 0, 1, 1025, 0, 1, 1),
	}
	if p.CRS != "" {
		entries = append(entries, asciiEntry(tagGeoAsciiParams, p.CRS+"|"))
	}
	if w.colormap != nil && photometric == 3 {
		entries = append(entries, shortEntry(tagColorMap, colormapToTIFF(w.colormap)...))
	}
	if p.Nodata != nil {
		entries = append(entries, asciiEntry(tagGDALNodata, formatNodata(*p.Nodata)))
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].id < entries[j].id })

	// Layout: header, IFD, out-of-line values, strip data.
	const headerSize = 8
	ifdSize := 2 + 12*len(entries) + 4
	overflowStart := headerSize + ifdSize
	overflowSize := 0
	for _, e := range entries {
		if len(e.value) > 4 {
			overflowSize += paddedLen(e.value)
		}
	}
	stripStart := overflowStart + overflowSize

	offsets := make([]uint32, p.Count)
	pos := uint32(stripStart)
	for i, s := range strips {
		offsets[i] = pos
		pos += uint32(len(s))
	}
	for i := range entries {
		if entries[i].id == tagStripOffsets {
			entries[i] = longEntry(tagStripOffsets, offsets...)
		}
	}

	out := new(bytes.Buffer)
	out.Grow(int(pos))
	out.WriteString("II")
	binary.Write(out, binary.LittleEndian, uint16(42))
	binary.Write(out, binary.LittleEndian, uint32(headerSize)) // IFD follows header

	binary.Write(out, binary.LittleEndian, uint16(len(entries)))
	overflow := new(bytes.Buffer)
	for _, e := range entries {
		binary.Write(out, binary.LittleEndian, e.id)
		binary.Write(out, binary.LittleEndian, e.typ)
		binary.Write(out, binary.LittleEndian, e.count)
		if len(e.value) <= 4 {
			padded := make([]byte, 4)
			copy(padded, e.value)
			out.Write(padded)
		} else {
			binary.Write(out, binary.LittleEndian, uint32(overflowStart+overflow.Len()))
			overflow.Write(e.value)
			for pad := paddedLen(e.value) - len(e.value); pad > 0; pad-- {
				overflow.WriteByte(0)
			}
		}
	}
	binary.Write(out, binary.LittleEndian, uint32(0)) // no next IFD

	out.Write(overflow.Bytes())
	for _, s := range strips {
		out.Write(s)
	}
	return out.Bytes(), nil
}

// encodeStrips serializes each band as one uncompressed strip. Invalid
// pixels are encoded as the nodata fill (or 0 without one).
func (w *Writer) encodeStrips() ([][]byte, error) {
	p := w.profile
	fill := 0.0
	if p.Nodata != nil {
		fill = *p.Nodata
	}
	strips := make([][]byte, p.Count)
	for band := 0; band < p.Count; band++ {
		buf := new(bytes.Buffer)
		buf.Grow(p.Height * p.Width * p.DType.Size())
		for row := 0; row < p.Height; row++ {
			for col := 0; col < p.Width; col++ {
				v := w.block.At(band, row, col)
				if !w.block.ValidAt(band, row, col) {
					v = fill
				}
				if err := encodeSample(buf, p, v); err != nil {
					return nil, err
				}
			}
		}
		strips[band] = buf.Bytes()
	}
	return strips, nil
}

func encodeSample(buf *bytes.Buffer, p Profile, v float64) error {
	v = p.DType.Clamp(v)
	switch p.DType.Size() {
	case 1:
		return buf.WriteByte(uint8(v))
	case 2:
		return binary.Write(buf, binary.LittleEndian, uint16(int64(v)))
	case 4:
		if sampleFormat(p.DType) == sampleFormatFloat {
			return binary.Write(buf, binary.LittleEndian, float32(v))
		}
		return binary.Write(buf, binary.LittleEndian, uint32(int64(v)))
	default:
		return binary.Write(buf, binary.LittleEndian, v)
	}
}

func formatNodata(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && !math.IsNaN(v) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

func paddedLen(b []byte) int {
	if len(b)%2 == 1 {
		return len(b) + 1
	}
	return len(b)
}
