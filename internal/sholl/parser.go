package sholl

import (
	"context"
	"fmt"
	"math"
	"sync/atomic"
)

// Parser is the single-shot profiling contract shared by profile sources.
type Parser interface {
	// Parse computes the profile. Cancellation is not an error: check
	// Successful afterwards.
	Parse() error
	// Successful reports whether a non-empty profile exists.
	Successful() bool
	// Terminate asks a running Parse to stop. Safe from any goroutine.
	Terminate()
	// Profile returns the last computed profile, possibly empty.
	Profile() *Profile
}

// TreeParser extracts a Sholl profile from a traced Structure.
//
// Center and step size are frozen once a profile exists. A terminated
// parser is consumed and must be replaced to run again.
type TreeParser struct {
	tree     Structure
	center   *Point3D
	stepSize float64
	profile  *Profile
	index    *CrossingIndex

	running    atomic.Bool
	terminated atomic.Bool
}

var _ Parser = (*TreeParser)(nil)

// NewTreeParser returns a parser for tree. Continuous sampling is the default.
func NewTreeParser(tree Structure) *TreeParser {
	p := &TreeParser{tree: tree}
	p.running.Store(true)
	return p
}

// SetCenterPolicy derives the center from the tree's primary paths.
func (p *TreeParser) SetCenterPolicy(policy CenterPolicy) error {
	if p.Successful() {
		return fmt.Errorf("SetCenterPolicy must be called before parsing: %w", ErrIllegalReconfiguration)
	}
	c, err := SelectCenter(p.tree, policy)
	if err != nil {
		return err
	}
	p.center = &c
	return nil
}

// SetCenter sets the profile's focal point directly.
func (p *TreeParser) SetCenter(c Point3D) error {
	if p.Successful() {
		return fmt.Errorf("SetCenter must be called before parsing: %w", ErrIllegalReconfiguration)
	}
	p.center = &c
	return nil
}

// Center returns the focal point and whether one has been set.
func (p *TreeParser) Center() (Point3D, bool) {
	if p.center == nil {
		return Point3D{}, false
	}
	return *p.center, true
}

// SetStepSize sets the radial step. Negative values select continuous
// sampling.
func (p *TreeParser) SetStepSize(step float64) error {
	if p.Successful() {
		return fmt.Errorf("SetStepSize must be called before parsing: %w", ErrIllegalReconfiguration)
	}
	if step < 0 || math.IsNaN(step) {
		step = 0
	}
	p.stepSize = step
	return nil
}

// StepSize returns the radial step; 0 means continuous.
func (p *TreeParser) StepSize() float64 { return p.stepSize }

// Parse implements Parser.
func (p *TreeParser) Parse() error {
	if p.terminated.Load() && p.profile != nil {
		return fmt.Errorf("parser was terminated: %w", ErrInvalidState)
	}
	if isEmpty(p.tree) {
		return fmt.Errorf("invalid tree: %w", ErrInvalidState)
	}
	if p.center == nil {
		return fmt.Errorf("data cannot be parsed unless a center is specified: %w", ErrInvalidState)
	}

	prof := &Profile{
		Identifier:  p.tree.Label(),
		Dimensions:  2,
		Center:      *p.center,
		Calibration: p.tree.SpatialCalibration(),
		StepSize:    p.stepSize,
		Properties:  map[string]string{KeySource: SourceTrace},
	}
	if is3D(p.tree) {
		prof.Dimensions = 3
	}
	p.profile = prof
	p.index = nil

	ix, ok := buildCrossingIndex(Segments(p.tree), *p.center, &p.running)
	if !ok {
		return nil
	}
	if ix.Len() == 0 {
		diagf("structure %q has no segments; profile is empty", prof.Identifier)
		return nil
	}

	var entries []ProfileEntry
	if p.stepSize > 0 {
		var err error
		entries, ok, err = sampleDiscrete(ix, p.stepSize, &p.running)
		if err != nil {
			return err
		}
	} else {
		entries, ok = sampleContinuous(ix, &p.running)
	}
	if !ok {
		return nil
	}
	p.index = ix
	prof.Entries = entries
	return nil
}

// ParseContext runs Parse and terminates it when ctx is done.
func (p *TreeParser) ParseContext(ctx context.Context) error {
	stop := context.AfterFunc(ctx, p.Terminate)
	defer stop()
	return p.Parse()
}

// Successful implements Parser.
func (p *TreeParser) Successful() bool {
	return p.profile.Size() > 0
}

// Terminate implements Parser.
func (p *TreeParser) Terminate() {
	p.terminated.Store(true)
	p.running.Store(false)
}

// Profile implements Parser.
func (p *TreeParser) Profile() *Profile {
	return p.profile
}

// Index returns the crossing index of a successful parse, or nil.
func (p *TreeParser) Index() *CrossingIndex {
	if !p.Successful() {
		return nil
	}
	return p.index
}

// LabelsVolume rasterizes the parsed index into 16-bit voxels, the usual
// depth for labels images. Use Labels for other pixel types.
func (p *TreeParser) LabelsVolume(ctx context.Context, grid VoxelGrid, lut string) (*LabelsVolume[uint16], error) {
	return Labels[uint16](ctx, p, grid, lut, 0)
}

// Labels rasterizes a successful parser into a volume of pixel type T with
// the display range set to [0, max profile crossings].
func Labels[T Pixel](ctx context.Context, p *TreeParser, grid VoxelGrid, lut string, workers int) (*LabelsVolume[T], error) {
	if !p.Successful() || p.index.Len() == 0 || p.center == nil {
		return nil, fmt.Errorf("data has not been parsed: %w", ErrNotReady)
	}
	if lut == "" {
		lut = DefaultLUT
	}
	pal, err := LUT(lut)
	if err != nil {
		return nil, err
	}
	displayMax := float64(p.profile.MaxCrossings())
	return Rasterize[T](ctx, p.index, *p.center, grid, RasterOptions{
		LUT:        pal,
		DisplayMax: &displayMax,
		Workers:    workers,
	})
}
