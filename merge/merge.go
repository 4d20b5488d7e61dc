package merge

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/ironsheep/raster-merge/raster"
	"github.com/ironsheep/raster-merge/windows"
)

// Merge composites the sources into one output raster.
//
// In array mode (Options.Dst == nil) the merged pixels come back in
// Result.Data together with the output transform. In file mode every
// finished chunk is written to Options.Dst, the first source's band 1
// colormap is propagated, and Result.Data is nil.
//
// Sources must share a CRS and have rectilinear, north-up transforms;
// violations fail with an error wrapping ErrMerge before any pixel is read.
func Merge(sources []raster.Source, opts Options) (*Result, error) {
	p, err := resolveExtent(sources, opts)
	if err != nil {
		return nil, err
	}

	strategy := opts.Strategy
	if strategy == nil {
		strategy, err = lookupStrategy(opts.Method)
		if err != nil {
			return nil, err
		}
	}

	grid := planChunks(p.height, p.width, p.count, p.dtype.Size(), opts.MemLimitMB)
	log.Debug().
		Int("chunks", len(grid.wins)).
		Int("chunk_rows", grid.nrows).
		Int("chunk_cols", grid.ncols).
		Msg("planned chunk grid")

	// Index sources onto the chunk grid: a bisect over the grid breakpoints
	// narrows each source to the contiguous block of chunks it can touch,
	// so sparse layouts never pay O(sources x chunks).
	candidates := make([][]int, len(grid.wins))
	for si, src := range sources {
		b := src.Bounds()
		sw, err := windows.FromBounds(b.Left, b.Bottom, b.Right, b.Top, p.transform)
		if err != nil {
			return nil, fmt.Errorf("indexing source %d: %w", si, err)
		}
		r0, r1, c0, c1 := grid.candidateRange(sw)
		for row := r0; row < r1; row++ {
			for col := c0; col < c1; col++ {
				ci := grid.index(row, col)
				candidates[ci] = append(candidates[ci], si)
			}
		}
	}

	fileMode := opts.Dst != nil
	var dest *raster.Block
	if !fileMode {
		dest = raster.NewBlock(p.count, p.height, p.width)
		dest.FillInvalid(p.fill)
	}

	for ci, cw := range grid.wins {
		var chunk *raster.Block
		if fileMode {
			ch, cwid := cw.IntShape()
			chunk = raster.NewBlock(p.count, ch, cwid)
			chunk.FillInvalid(p.fill)
		} else {
			chunk, err = dest.Sub(cw)
			if err != nil {
				return nil, err
			}
		}

		chunkBounds := grid.chunkBounds(ci, p.transform)
		for _, si := range candidates[ci] {
			if err := compositeSource(chunk, cw, chunkBounds, sources[si], si, p, opts, strategy); err != nil {
				return nil, err
			}
		}

		if fileMode {
			if err := opts.Dst.Write(chunk, cw); err != nil {
				return nil, fmt.Errorf("writing chunk %d at %v: %w", ci, cw, err)
			}
		}
	}

	result := &Result{
		Transform: p.transform,
		Width:     p.width,
		Height:    p.height,
		Bounds:    p.bounds,
		DType:     p.dtype,
		Nodata:    p.nodata,
		Warnings:  p.warnings,
	}

	if fileMode {
		if cm, ok := sources[0].Colormap(1); ok {
			if err := opts.Dst.WriteColormap(1, cm); err != nil {
				return nil, fmt.Errorf("propagating colormap: %w", err)
			}
		}
		if opts.DstOwned {
			if err := opts.Dst.Close(); err != nil {
				return nil, fmt.Errorf("closing destination: %w", err)
			}
		}
		return result, nil
	}

	finalizeMask(dest, p, opts.Masked)
	result.Data = dest
	return result, nil
}

// compositeSource merges one source into one chunk accumulator: align the
// source's destination footprint on the full output grid, clip it to the
// chunk, read resampled masked data over the clipped region, refresh the
// accumulator's validity against nodata, and run the strategy. A source that
// misses the chunk is skipped, not an error.
func compositeSource(chunk *raster.Block, cw windows.Window, chunkBounds raster.Bounds,
	src raster.Source, srcIndex int, p *plan, opts Options, strategy StrategyFunc) error {

	if _, ok := src.Bounds().Intersect(chunkBounds); !ok {
		log.Debug().Int("source", srcIndex).Str("chunk", cw.String()).Msg("source does not overlap chunk, skipping")
		return nil
	}

	// The footprint must be aligned against the full output grid BEFORE
	// clipping to the chunk. Aligning a chunk-clipped window instead floors
	// fractional edges at interior chunk cut lines, dropping up to a row or
	// column of pixels per boundary, and chunked output diverges from
	// unchunked.
	db, ok := src.Bounds().Intersect(p.bounds)
	if !ok {
		return nil
	}
	dwin, err := windows.FromBounds(db.Left, db.Bottom, db.Right, db.Top, p.transform)
	if err != nil {
		if errors.Is(err, windows.ErrWindow) {
			log.Debug().Int("source", srcIndex).Err(err).Msg("no usable destination window, skipping")
			return nil
		}
		return err
	}
	aligned, err := dwin.Align().Intersect(cw)
	if err != nil {
		// The aligned footprint can miss this particular chunk entirely.
		log.Debug().Int("source", srcIndex).Str("chunk", cw.String()).Msg("destination window misses the chunk, skipping")
		return nil
	}

	local := aligned.Translate(-cw.RowOff, -cw.ColOff)
	outH, outW := local.IntShape()
	if outH == 0 || outW == 0 {
		return nil
	}

	// Source-space window over exactly the painted region, so the resampled
	// read lands pixel for pixel on the output grid regardless of where the
	// chunk cut lines fall.
	left, bottom, right, top := aligned.Bounds(p.transform)
	sw, err := windows.FromBounds(left, bottom, right, top, src.Transform())
	if err != nil {
		if errors.Is(err, windows.ErrWindow) {
			log.Debug().Int("source", srcIndex).Err(err).Msg("no usable source window, skipping")
			return nil
		}
		return err
	}

	data, err := src.Read(p.bands, sw, outH, outW, opts.Resampling)
	if err != nil {
		return fmt.Errorf("reading source %d window %v: %w", srcIndex, sw, err)
	}

	acc, err := chunk.Sub(local)
	if err != nil {
		return err
	}
	refreshMask(acc, p)

	strategy(acc, data, srcIndex, int(aligned.RowOff), int(aligned.ColOff))
	return nil
}

// refreshMask recomputes the accumulator's validity from its pixel values
// using the dtype-aware nodata test: == for finite nodata, IsNaN for NaN,
// IsInf for infinities.
func refreshMask(acc *raster.Block, p *plan) {
	for band := 0; band < acc.Bands; band++ {
		for row := 0; row < acc.H; row++ {
			base := acc.Index(band, row, 0)
			for col := 0; col < acc.W; col++ {
				i := base + col
				acc.Mask[i] = !p.nodataKind.Matches(acc.Data[i], p.nodata)
			}
		}
	}
}

// finalizeMask settles the array-mode result mask: masked results get the
// dtype-aware validity of every pixel; unmasked results are plain arrays
// whose mask is all valid.
func finalizeMask(dest *raster.Block, p *plan, masked bool) {
	for i := range dest.Mask {
		if masked {
			dest.Mask[i] = !p.nodataKind.Matches(dest.Data[i], p.nodata)
		} else {
			dest.Mask[i] = true
		}
	}
}
