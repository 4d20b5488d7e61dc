package main

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/ironsheep/raster-merge/affine"
	"github.com/ironsheep/raster-merge/dtypes"
	"github.com/ironsheep/raster-merge/geotiff"
	"github.com/ironsheep/raster-merge/merge"
	"github.com/ironsheep/raster-merge/raster"
)

// Config is a merge job description loaded from a TOML file.
type Config struct {
	// Output is the destination GeoTIFF path.
	Output string `toml:"output"`

	// Inputs are merged in listed order; order matters for the "first" and
	// "last" methods.
	Inputs []InputConfig `toml:"input"`

	Method              string    `toml:"method"`
	Bounds              []float64 `toml:"bounds"` // left, bottom, right, top
	Res                 []float64 `toml:"res"`    // [x, y] or a single broadcast value
	UseHighestRes       bool      `toml:"use_highest_res"`
	Nodata              *float64  `toml:"nodata"`
	DType               string    `toml:"dtype"`
	Indexes             []int     `toml:"indexes"`
	OutputCount         int       `toml:"output_count"`
	Resampling          string    `toml:"resampling"`
	TargetAlignedPixels bool      `toml:"target_aligned_pixels"`
	MemLimitMB          int       `toml:"mem_limit_mb"`

	// Preview optionally renders the finished band to a PNG alongside the
	// GeoTIFF output.
	Preview     string `toml:"preview"`
	PreviewBand int    `toml:"preview_band"`
}

// InputConfig names one source. GeoTIFF inputs carry their own
// georeferencing; plain image inputs (PNG/JPEG/GIF) must supply it here.
type InputConfig struct {
	Path string `toml:"path"`

	// Georeferencing for image inputs: world coordinate of the upper-left
	// corner and pixel sizes (both positive).
	West  float64 `toml:"west"`
	North float64 `toml:"north"`
	XRes  float64 `toml:"xres"`
	YRes  float64 `toml:"yres"`
	CRS   string  `toml:"crs"`
}

// LoadConfig parses and validates a job file.
func LoadConfig(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Validate checks the job description without touching any input files.
func (c *Config) Validate() error {
	if c.Output == "" {
		return fmt.Errorf("output path is required")
	}
	if len(c.Inputs) == 0 {
		return fmt.Errorf("at least one input is required")
	}
	for i, in := range c.Inputs {
		if in.Path == "" {
			return fmt.Errorf("input %d has no path", i)
		}
		if !isGeoTIFF(in.Path) {
			if in.XRes <= 0 || in.YRes <= 0 {
				return fmt.Errorf("input %d (%s) is not a GeoTIFF and needs positive xres/yres", i, in.Path)
			}
		}
	}
	if len(c.Bounds) != 0 && len(c.Bounds) != 4 {
		return fmt.Errorf("bounds needs exactly 4 values (left, bottom, right, top), got %d", len(c.Bounds))
	}
	if len(c.Res) > 2 {
		return fmt.Errorf("res needs 1 or 2 values, got %d", len(c.Res))
	}
	if c.DType != "" {
		if _, err := dtypes.Parse(c.DType); err != nil {
			return err
		}
	}
	if c.Resampling != "" {
		if _, err := raster.ParseResampling(c.Resampling); err != nil {
			return err
		}
	}
	if c.PreviewBand < 0 {
		return fmt.Errorf("preview_band must be positive")
	}
	return nil
}

// MergeOptions translates the job description into engine options. The
// destination writer is attached by the caller once the output plan is
// known.
func (c *Config) MergeOptions() (merge.Options, error) {
	opts := merge.Options{
		Method:              c.Method,
		UseHighestRes:       c.UseHighestRes,
		Nodata:              c.Nodata,
		Indexes:             c.Indexes,
		OutputCount:         c.OutputCount,
		TargetAlignedPixels: c.TargetAlignedPixels,
		MemLimitMB:          c.MemLimitMB,
	}
	if len(c.Bounds) == 4 {
		opts.Bounds = &raster.Bounds{
			Left: c.Bounds[0], Bottom: c.Bounds[1], Right: c.Bounds[2], Top: c.Bounds[3],
		}
	}
	switch len(c.Res) {
	case 1:
		// A single value broadcasts to square pixels.
		opts.Res = &raster.Resolution{X: c.Res[0], Y: c.Res[0]}
	case 2:
		opts.Res = &raster.Resolution{X: c.Res[0], Y: c.Res[1]}
	}
	if c.DType != "" {
		dt, err := dtypes.Parse(c.DType)
		if err != nil {
			return merge.Options{}, err
		}
		opts.DType = &dt
	}
	if c.Resampling != "" {
		rs, err := raster.ParseResampling(c.Resampling)
		if err != nil {
			return merge.Options{}, err
		}
		opts.Resampling = rs
	}
	return opts, nil
}

// OpenSources opens every input in listed order, caching by path so a file
// referenced twice is decoded once.
func (c *Config) OpenSources() ([]raster.Source, error) {
	byPath := make(map[string]InputConfig, len(c.Inputs))
	for _, in := range c.Inputs {
		byPath[in.Path] = in
	}
	cache := raster.NewSourceCache(func(path string) (raster.Source, error) {
		in := byPath[path]
		if isGeoTIFF(path) {
			return geotiff.Load(path)
		}
		tf := affine.FromOrigin(in.West, in.North, in.XRes, in.YRes)
		return raster.OpenImage(path, tf, in.CRS)
	})

	sources := make([]raster.Source, 0, len(c.Inputs))
	for _, in := range c.Inputs {
		src, err := cache.Load(in.Path)
		if err != nil {
			return nil, fmt.Errorf("opening input %s: %w", in.Path, err)
		}
		sources = append(sources, src)
	}
	return sources, nil
}

func isGeoTIFF(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".tif", ".tiff":
		return true
	}
	return false
}
