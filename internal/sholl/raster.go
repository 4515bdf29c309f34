package sholl

import (
	"context"
	"fmt"
	"image"
	"image/color"
	"math"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Pixel is the set of integer voxel types a labels volume can hold.
type Pixel interface {
	uint8 | uint16 | int32
}

func pixelBounds[T Pixel]() (lo, hi int) {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return 0, math.MaxUint8
	case uint16:
		return 0, math.MaxUint16
	default:
		return math.MinInt32, math.MaxInt32
	}
}

// VoxelGrid describes the target raster. A nil calibration means unit
// spacing on every axis.
type VoxelGrid struct {
	Width, Height, Depth int
	Calibration          *Calibration
}

func (g VoxelGrid) spacing() (sx, sy, sz float64) {
	if g.Calibration == nil {
		return 1, 1, 1
	}
	return g.Calibration.PixelWidth, g.Calibration.PixelHeight, g.Calibration.PixelDepth
}

// RasterOptions tunes Rasterize.
type RasterOptions struct {
	LUT        color.Palette // nil selects DefaultLUT
	DisplayMax *float64      // upper display bound; nil uses the index maximum
	Workers    int           // concurrent slices; <= 0 uses GOMAXPROCS
}

// LabelsVolume is a voxel buffer whose values are crossing counts.
// Pix is laid out slice by slice: Pix[(z*Height+y)*Width+x].
type LabelsVolume[T Pixel] struct {
	Title                  string
	Width, Height, Depth   int
	Calibration            *Calibration
	Pix                    []T
	DisplayMin, DisplayMax float64
	LUT                    color.Palette
}

// At returns the value of voxel (x, y, z).
func (v *LabelsVolume[T]) At(x, y, z int) T {
	return v.Pix[(z*v.Height+y)*v.Width+x]
}

// SliceImage renders slice z through the LUT using the display range.
func (v *LabelsVolume[T]) SliceImage(z int) *image.Paletted {
	img := image.NewPaletted(image.Rect(0, 0, v.Width, v.Height), v.LUT)
	span := v.DisplayMax - v.DisplayMin
	last := float64(len(v.LUT) - 1)
	off := z * v.Width * v.Height
	for i := 0; i < v.Width*v.Height; i++ {
		f := 0.0
		if span > 0 {
			f = (float64(v.Pix[off+i]) - v.DisplayMin) / span
		}
		f = math.Max(0, math.Min(1, f))
		img.Pix[(i/v.Width)*img.Stride+i%v.Width] = uint8(math.Round(f * last))
	}
	return img
}

// Rasterize evaluates ix at the origin of every voxel of grid (x*sx, y*sy,
// z*sz), measured from center in calibrated units. A count that does not
// fit T fails with ErrPixelRange; values are never clamped.
func Rasterize[T Pixel](ctx context.Context, ix *CrossingIndex, center Point3D, grid VoxelGrid, opts RasterOptions) (*LabelsVolume[T], error) {
	if ix.Len() == 0 {
		return nil, fmt.Errorf("rasterize: %w", ErrNotReady)
	}
	if grid.Width <= 0 || grid.Height <= 0 || grid.Depth <= 0 {
		return nil, fmt.Errorf("rasterize: invalid grid %dx%dx%d", grid.Width, grid.Height, grid.Depth)
	}
	lut := opts.LUT
	if lut == nil {
		lut, _ = LUT(DefaultLUT)
	}
	var displayMax float64
	if opts.DisplayMax != nil {
		displayMax = *opts.DisplayMax
	} else {
		_, hi, _ := ix.ValueRange()
		displayMax = float64(hi)
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	vol := &LabelsVolume[T]{
		Title:       "Labels Image",
		Width:       grid.Width,
		Height:      grid.Height,
		Depth:       grid.Depth,
		Calibration: grid.Calibration,
		Pix:         make([]T, grid.Width*grid.Height*grid.Depth),
		DisplayMin:  0,
		DisplayMax:  displayMax,
		LUT:         lut,
	}
	lo, hi := pixelBounds[T]()
	sx, sy, sz := grid.spacing()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for z := 0; z < grid.Depth; z++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			off := z * grid.Width * grid.Height
			for y := 0; y < grid.Height; y++ {
				for x := 0; x < grid.Width; x++ {
					p := Point3D{X: sx * float64(x), Y: sy * float64(y), Z: sz * float64(z)}
					c := ix.crossingsAt(p.DistanceSquaredTo(center))
					if c < lo || c > hi {
						return fmt.Errorf("voxel (%d,%d,%d) has %d crossings: %w", x, y, z, c, ErrPixelRange)
					}
					vol.Pix[off+y*grid.Width+x] = T(c)
				}
			}
			tracef("raster slice %d/%d done", z+1, grid.Depth)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	diagf("rasterized %dx%dx%d voxels, display range [0, %g]", grid.Width, grid.Height, grid.Depth, displayMax)
	return vol, nil
}
