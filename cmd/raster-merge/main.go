package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/ironsheep/raster-merge/geotiff"
	"github.com/ironsheep/raster-merge/merge"
	"github.com/ironsheep/raster-merge/raster"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("raster-merge %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			usage()
			return
		}
	}

	configPath := flag.String("config", "", "path to a TOML merge job file")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if *debug || os.Getenv("RASTER_MERGE_LOG_LEVEL") == "debug" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *configPath == "" {
		usage()
		os.Exit(2)
	}

	if err := run(*configPath); err != nil {
		log.Fatal().Err(err).Msg("merge failed")
	}
}

func usage() {
	fmt.Println("raster-merge - mosaic georeferenced rasters into a single GeoTIFF")
	fmt.Println()
	fmt.Println("Usage: raster-merge -config job.toml [-debug]")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  -config PATH     TOML job file (required)")
	fmt.Println("  -debug           Enable debug logging")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables:")
	fmt.Println("  RASTER_MERGE_LOG_LEVEL=debug    Enable debug logging")
	fmt.Println()
	fmt.Printf("Built-in merge methods: %v\n", merge.Methods())
}

func run(configPath string) error {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return err
	}

	sources, err := cfg.OpenSources()
	if err != nil {
		return err
	}

	opts, err := cfg.MergeOptions()
	if err != nil {
		return err
	}

	plan, err := merge.PlanOutput(sources, opts)
	if err != nil {
		return err
	}
	log.Info().
		Int("sources", len(sources)).
		Int("width", plan.Width).
		Int("height", plan.Height).
		Int("bands", plan.Count).
		Stringer("dtype", plan.DType).
		Msg("merging")

	dst, err := geotiff.Open(cfg.Output, geotiff.Profile{
		Width:     plan.Width,
		Height:    plan.Height,
		Count:     plan.Count,
		DType:     plan.DType,
		CRS:       sources[0].CRS(),
		Transform: plan.Transform,
		Nodata:    &plan.Nodata,
	})
	if err != nil {
		return err
	}

	opts.Dst = dst
	opts.DstOwned = true
	result, err := merge.Merge(sources, opts)
	if err != nil {
		return err
	}
	for _, w := range result.Warnings {
		log.Warn().Msg(w)
	}
	log.Info().Str("output", cfg.Output).Msg("wrote mosaic")

	if cfg.Preview != "" {
		if err := writePreview(cfg); err != nil {
			return fmt.Errorf("rendering preview: %w", err)
		}
		log.Info().Str("preview", cfg.Preview).Msg("wrote preview")
	}
	return nil
}

// previewMaxDim bounds the longer side of preview images.
const previewMaxDim = 1024

// writePreview reloads the finished mosaic and renders one band to a PNG:
// through the band's colormap when it has one, otherwise through a
// min/max-stretched color ramp.
func writePreview(cfg *Config) error {
	ds, err := geotiff.Load(cfg.Output)
	if err != nil {
		return err
	}

	band := cfg.PreviewBand
	if band == 0 {
		band = 1
	}
	if band > ds.Count() {
		return fmt.Errorf("preview band %d out of range 1..%d", band, ds.Count())
	}

	block := ds.Block()
	cm, ok := ds.Colormap(band)
	if !ok {
		cm, err = stretchRamp()
		if err != nil {
			return err
		}
		block = rescaleBand(block, band)
		band = 1
	}

	img, err := raster.ApplyColormap(block, band, cm)
	if err != nil {
		return err
	}
	preview := imaging.Fit(img, previewMaxDim, previewMaxDim, imaging.Lanczos)
	if err := imaging.Save(preview, cfg.Preview); err != nil {
		return fmt.Errorf("failed to save preview: %w", err)
	}
	return nil
}

// stretchRamp builds the 256-entry blue-to-red ramp that rescaleBand's
// output indexes into for bands without a colormap.
func stretchRamp() (raster.Colormap, error) {
	return raster.Ramp([]raster.ColorStop{
		{Pos: 0.0, Hex: "#2c7bb6"},
		{Pos: 0.5, Hex: "#ffffbf"},
		{Pos: 1.0, Hex: "#d7191c"},
	}, 256)
}

// rescaleBand maps one 1-based band's valid values onto 0..255 so a ramp
// colormap can index them, returning a single-band block.
func rescaleBand(b *raster.Block, band int) *raster.Block {
	src := band - 1
	lo, hi := 0.0, 0.0
	found := false
	for row := 0; row < b.H; row++ {
		for col := 0; col < b.W; col++ {
			if !b.ValidAt(src, row, col) {
				continue
			}
			v := b.At(src, row, col)
			if !found {
				lo, hi, found = v, v, true
			} else if v < lo {
				lo = v
			} else if v > hi {
				hi = v
			}
		}
	}

	out := raster.NewBlock(1, b.H, b.W)
	span := hi - lo
	for row := 0; row < b.H; row++ {
		for col := 0; col < b.W; col++ {
			if !b.ValidAt(src, row, col) {
				continue
			}
			scaled := 255.0
			if span > 0 {
				scaled = (b.At(src, row, col) - lo) / span * 255
			}
			out.Set(0, row, col, float64(int(scaled)))
		}
	}
	return out
}
