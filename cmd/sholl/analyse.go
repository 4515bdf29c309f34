package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/banshee-data/sholl.report/internal/config"
	"github.com/banshee-data/sholl.report/internal/db"
	"github.com/banshee-data/sholl.report/internal/fsutil"
	"github.com/banshee-data/sholl.report/internal/report"
	"github.com/banshee-data/sholl.report/internal/security"
	"github.com/banshee-data/sholl.report/internal/sholl"
	"github.com/banshee-data/sholl.report/internal/swc"
	"github.com/banshee-data/sholl.report/internal/timeutil"
)

var clock timeutil.Clock = timeutil.RealClock{}

// analyseOptions collects everything runAnalyse needs after flag parsing.
type analyseOptions struct {
	cfg      *config.AnalysisConfig
	input    string
	center   *sholl.Point3D
	spacing  [3]float64
	grid     [3]int
	noDB     bool
	plotPath string
	htmlPath string
	csvPath  string
	labels   string
	preview  bool
	timeout  time.Duration
	verbose  bool
}

func parseAnalyseFlags(args []string, stderr io.Writer) (*analyseOptions, error) {
	fs := flag.NewFlagSet("analyse", flag.ContinueOnError)
	fs.SetOutput(stderr)

	configPath := fs.String("config", "", "JSON analysis config (defaults apply to unset fields)")
	step := fs.Float64("step", 0, "sampling step; 0 samples every breakpoint")
	policy := fs.String("policy", "", "center policy: any, soma, dendrite, apical-dendrite, axon, custom, undefined")
	center := fs.String("center", "", "explicit center as x,y,z (overrides -policy)")
	dbPath := fs.String("db", "", "sqlite database for storing the profile")
	noDB := fs.Bool("no-db", false, "do not store the profile")
	unit := fs.String("unit", "", "length unit of the reconstruction")
	spacing := fs.String("spacing", "1,1,1", "voxel size x,y,z of the labels grid")
	grid := fs.String("grid", "", "labels grid size WxHxD; required with -labels")
	pixelType := fs.String("pixel-type", "", "labels pixel type: uint8, uint16, int32")
	lut := fs.String("lut", "", "labels lookup table: ice, fire, grays")
	workers := fs.Int("workers", -1, "concurrent labels slices; 0 uses GOMAXPROCS")
	plotPath := fs.String("plot", "", "write a static plot (.png, .svg, .pdf)")
	htmlPath := fs.String("html", "", "write an interactive HTML chart")
	csvPath := fs.String("csv", "", "write the profile table as CSV")
	labels := fs.String("labels", "", "write a labels image stack to this directory")
	preview := fs.Bool("labels-preview", false, "also write LUT-coloured preview slices")
	timeout := fs.Duration("timeout", 0, "abort the analysis after this long")
	verbose := fs.Bool("v", false, "log index and sampling diagnostics")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() != 1 {
		return nil, fmt.Errorf("expected exactly one SWC file, got %d arguments", fs.NArg())
	}

	cfg := config.DefaultAnalysisConfig()
	if *configPath != "" {
		loaded, err := config.LoadAnalysisConfig(*configPath)
		if err != nil {
			return nil, err
		}
		cfg = merge(cfg, loaded)
	}

	// Flags given explicitly win over the config file.
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "step":
			cfg.StepSize = step
		case "policy":
			cfg.CenterPolicy = policy
		case "db":
			cfg.DBPath = dbPath
		case "unit":
			cfg.LengthUnit = unit
		case "pixel-type":
			cfg.PixelType = pixelType
		case "lut":
			cfg.LUT = lut
		case "workers":
			cfg.RasterWorkers = workers
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := &analyseOptions{
		cfg:      cfg,
		input:    fs.Arg(0),
		noDB:     *noDB,
		plotPath: *plotPath,
		htmlPath: *htmlPath,
		csvPath:  *csvPath,
		labels:   *labels,
		preview:  *preview,
		timeout:  *timeout,
		verbose:  *verbose,
	}
	for _, out := range []string{opts.plotPath, opts.htmlPath, opts.csvPath, opts.labels} {
		if out == "" {
			continue
		}
		if err := security.ValidateOutputPath(out); err != nil {
			return nil, err
		}
	}

	if *center != "" {
		v, err := parseTriple(*center, ",")
		if err != nil {
			return nil, fmt.Errorf("invalid -center: %w", err)
		}
		opts.center = &sholl.Point3D{X: v[0], Y: v[1], Z: v[2]}
	}

	sp, err := parseTriple(*spacing, ",")
	if err != nil {
		return nil, fmt.Errorf("invalid -spacing: %w", err)
	}
	for _, s := range sp {
		if s <= 0 {
			return nil, fmt.Errorf("invalid -spacing: values must be positive")
		}
	}
	opts.spacing = sp

	if *labels != "" {
		if *grid == "" {
			return nil, fmt.Errorf("-labels requires -grid")
		}
		g, err := parseTriple(strings.ToLower(*grid), "x")
		if err != nil {
			return nil, fmt.Errorf("invalid -grid: %w", err)
		}
		for i, v := range g {
			if v < 1 || v != float64(int(v)) {
				return nil, fmt.Errorf("invalid -grid: dimensions must be positive integers")
			}
			opts.grid[i] = int(v)
		}
	}
	return opts, nil
}

// merge overlays the fields set in over onto base.
func merge(base, over *config.AnalysisConfig) *config.AnalysisConfig {
	out := *base
	if over.StepSize != nil {
		out.StepSize = over.StepSize
	}
	if over.CenterPolicy != nil {
		out.CenterPolicy = over.CenterPolicy
	}
	if over.PixelType != nil {
		out.PixelType = over.PixelType
	}
	if over.LUT != nil {
		out.LUT = over.LUT
	}
	if over.RasterWorkers != nil {
		out.RasterWorkers = over.RasterWorkers
	}
	if over.LengthUnit != nil {
		out.LengthUnit = over.LengthUnit
	}
	if over.DBPath != nil {
		out.DBPath = over.DBPath
	}
	return &out
}

func parseTriple(s, sep string) ([3]float64, error) {
	var out [3]float64
	parts := strings.Split(s, sep)
	if len(parts) != 3 {
		return out, fmt.Errorf("expected 3 values separated by %q, got %q", sep, s)
	}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return out, fmt.Errorf("value %d: %w", i+1, err)
		}
		out[i] = v
	}
	return out, nil
}

func runAnalyse(ctx context.Context, args []string, stdout io.Writer) error {
	opts, err := parseAnalyseFlags(args, os.Stderr)
	if err != nil {
		return err
	}
	return analyse(ctx, fsutil.OSFileSystem{}, opts, stdout)
}

func analyse(ctx context.Context, fsys fsutil.FileSystem, o *analyseOptions, stdout io.Writer) error {
	var diag io.Writer
	if o.verbose {
		diag = os.Stderr
	}
	sholl.SetLogWriters(os.Stderr, diag, nil)
	start := clock.Now()

	tree, err := swc.Load(fsys, o.input)
	if err != nil {
		return err
	}
	cal := &sholl.Calibration{
		PixelWidth:  o.spacing[0],
		PixelHeight: o.spacing[1],
		PixelDepth:  o.spacing[2],
		Unit:        o.cfg.GetLengthUnit(),
	}
	tree.SetCalibration(cal)

	parser := sholl.NewTreeParser(tree)
	if o.center != nil {
		err = parser.SetCenter(*o.center)
	} else {
		err = parser.SetCenterPolicy(o.cfg.GetCenterPolicy())
	}
	if err != nil {
		return fmt.Errorf("failed to select center: %w", err)
	}
	if err := parser.SetStepSize(o.cfg.GetStepSize()); err != nil {
		return err
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}
	if err := parser.ParseContext(ctx); err != nil {
		return fmt.Errorf("failed to parse %s: %w", o.input, err)
	}
	if !parser.Successful() {
		if ctx.Err() != nil {
			return fmt.Errorf("analysis cancelled: %w", ctx.Err())
		}
		return fmt.Errorf("no segments in %s; nothing to profile", o.input)
	}
	profile := parser.Profile()

	result := struct {
		ID      string         `json:"id,omitempty"`
		Summary report.Summary `json:"summary"`
		Files   []string       `json:"files,omitempty"`
	}{Summary: report.Summarise(profile)}

	if !o.noDB {
		database, err := db.NewDB(o.cfg.GetDBPath())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		id, err := db.NewProfileStore(database).Insert(profile)
		database.Close()
		if err != nil {
			return err
		}
		result.ID = id
	}

	unit := o.cfg.GetLengthUnit()
	if o.plotPath != "" {
		if err := report.WriteProfilePlot(fsys, o.plotPath, profile, unit); err != nil {
			return err
		}
		result.Files = append(result.Files, o.plotPath)
	}
	if o.htmlPath != "" {
		f, err := fsys.Create(o.htmlPath)
		if err != nil {
			return fmt.Errorf("failed to create chart file: %w", err)
		}
		err = report.RenderProfileChart(f, profile, report.ChartOptions{Unit: unit})
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return err
		}
		result.Files = append(result.Files, o.htmlPath)
	}
	if o.csvPath != "" {
		if err := report.SaveProfileCSV(fsys, o.csvPath, profile, unit, unit); err != nil {
			return err
		}
		result.Files = append(result.Files, o.csvPath)
	}
	if o.labels != "" {
		grid := sholl.VoxelGrid{Width: o.grid[0], Height: o.grid[1], Depth: o.grid[2], Calibration: cal}
		paths, err := writeLabels(ctx, fsys, parser, grid, o, tree.Label())
		if err != nil {
			return err
		}
		result.Files = append(result.Files, paths...)
	}

	log.Printf("%s: %d samples, max %d crossings at r=%g %s in %v",
		profile.Identifier, result.Summary.Samples, result.Summary.MaxCrossings, result.Summary.CriticalRadius, unit,
		clock.Since(start).Round(time.Millisecond))

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

func writeLabels(ctx context.Context, fsys fsutil.FileSystem, p *sholl.TreeParser, grid sholl.VoxelGrid, o *analyseOptions, label string) ([]string, error) {
	prefix := security.SanitizeFilename(filepath.Base(label))
	switch o.cfg.GetPixelType() {
	case config.PixelUint8:
		return rasterizeAndWrite[uint8](ctx, fsys, p, grid, o, prefix)
	case config.PixelUint16:
		return rasterizeAndWrite[uint16](ctx, fsys, p, grid, o, prefix)
	default:
		return rasterizeAndWrite[int32](ctx, fsys, p, grid, o, prefix)
	}
}

func rasterizeAndWrite[T sholl.Pixel](ctx context.Context, fsys fsutil.FileSystem, p *sholl.TreeParser, grid sholl.VoxelGrid, o *analyseOptions, prefix string) ([]string, error) {
	vol, err := sholl.Labels[T](ctx, p, grid, o.cfg.GetLUT(), o.cfg.GetRasterWorkers())
	if err != nil {
		return nil, fmt.Errorf("failed to build labels image: %w", err)
	}
	stack, err := report.WriteLabelStack(fsys, o.labels, prefix, vol)
	if err != nil {
		return nil, err
	}
	paths := stack.Paths()
	if o.preview {
		previews, err := report.WriteLabelPreview(fsys, o.labels, prefix, vol)
		if err != nil {
			return nil, err
		}
		paths = append(paths, previews...)
	}
	return paths, nil
}
