package report

import (
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"slices"

	"golang.org/x/image/tiff"

	"github.com/banshee-data/sholl.report/internal/fsutil"
	"github.com/banshee-data/sholl.report/internal/monitoring"
	"github.com/banshee-data/sholl.report/internal/sholl"
)

// LabelStack describes a labels stack on disk. Each slice stores
// crossings+Offset as unsigned grey values of BitsPerSample bits; the LUT
// and display range only live in the metadata file.
type LabelStack struct {
	Title         string             `json:"title"`
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	Depth         int                `json:"depth"`
	BitsPerSample int                `json:"bits_per_sample"`
	Offset        int                `json:"offset"`
	DisplayMin    float64            `json:"display_min"`
	DisplayMax    float64            `json:"display_max"`
	Calibration   *sholl.Calibration `json:"calibration,omitempty"`
	Slices        []string           `json:"slices"`
	Meta          string             `json:"-"`
}

// Paths lists the slices followed by the metadata file.
func (s *LabelStack) Paths() []string {
	return append(slices.Clone(s.Slices), s.Meta)
}

// labelLayout picks the stored bit depth and the offset that lifts negative
// counts into the unsigned range.
func labelLayout[T sholl.Pixel](pix []T) (bits, offset int, err error) {
	var zero T
	if _, ok := any(zero).(uint8); ok {
		return 8, 0, nil
	}
	lo, hi := int(slices.Min(pix)), int(slices.Max(pix))
	switch {
	case lo >= 0 && hi <= math.MaxUint16:
		return 16, 0, nil
	case hi-lo <= math.MaxUint16:
		return 16, -lo, nil
	}
	return 0, 0, fmt.Errorf("crossing counts span [%d, %d], wider than 16 bits", lo, hi)
}

func labelSlice[T sholl.Pixel](vol *sholl.LabelsVolume[T], z, bits, offset int) image.Image {
	r := image.Rect(0, 0, vol.Width, vol.Height)
	if bits == 8 {
		img := image.NewGray(r)
		for y := 0; y < vol.Height; y++ {
			for x := 0; x < vol.Width; x++ {
				img.SetGray(x, y, color.Gray{Y: uint8(int(vol.At(x, y, z)) + offset)})
			}
		}
		return img
	}
	img := image.NewGray16(r)
	for y := 0; y < vol.Height; y++ {
		for x := 0; x < vol.Width; x++ {
			img.SetGray16(x, y, color.Gray16{Y: uint16(int(vol.At(x, y, z)) + offset)})
		}
	}
	return img
}

// WriteLabelStack writes one greyscale TIFF per z slice of vol into dir,
// named <prefix>_z0000.tif and so on, plus <prefix>_labels.json holding the
// offset, display range and calibration.
func WriteLabelStack[T sholl.Pixel](fsys fsutil.FileSystem, dir, prefix string, vol *sholl.LabelsVolume[T]) (*LabelStack, error) {
	if vol == nil || vol.Depth == 0 {
		return nil, fmt.Errorf("empty labels volume")
	}
	bits, offset, err := labelLayout(vol.Pix)
	if err != nil {
		return nil, err
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create labels dir: %w", err)
	}

	stack := &LabelStack{
		Title:         vol.Title,
		Width:         vol.Width,
		Height:        vol.Height,
		Depth:         vol.Depth,
		BitsPerSample: bits,
		Offset:        offset,
		DisplayMin:    vol.DisplayMin,
		DisplayMax:    vol.DisplayMax,
		Calibration:   vol.Calibration,
		Slices:        make([]string, 0, vol.Depth),
		Meta:          filepath.Join(dir, prefix+"_labels.json"),
	}
	for z := 0; z < vol.Depth; z++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_z%04d.tif", prefix, z))
		if err := encodeTIFF(fsys, path, labelSlice(vol, z, bits, offset)); err != nil {
			return stack, fmt.Errorf("slice %d: %w", z, err)
		}
		stack.Slices = append(stack.Slices, path)
	}

	meta, err := json.MarshalIndent(stack, "", "  ")
	if err != nil {
		return stack, fmt.Errorf("failed to encode labels metadata: %w", err)
	}
	if err := fsys.WriteFile(stack.Meta, meta, 0644); err != nil {
		return stack, fmt.Errorf("failed to write labels metadata: %w", err)
	}
	monitoring.Logf("wrote %d label slices (%d-bit, offset %d) to %s", vol.Depth, bits, offset, dir)
	return stack, nil
}

// WriteLabelPreview writes LUT-coloured slices named
// <prefix>_preview_z0000.tif for viewing; they hold display indices, not
// counts.
func WriteLabelPreview[T sholl.Pixel](fsys fsutil.FileSystem, dir, prefix string, vol *sholl.LabelsVolume[T]) ([]string, error) {
	if vol == nil || vol.Depth == 0 {
		return nil, fmt.Errorf("empty labels volume")
	}
	if err := fsys.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create labels dir: %w", err)
	}
	paths := make([]string, 0, vol.Depth)
	for z := 0; z < vol.Depth; z++ {
		path := filepath.Join(dir, fmt.Sprintf("%s_preview_z%04d.tif", prefix, z))
		if err := encodeTIFF(fsys, path, vol.SliceImage(z)); err != nil {
			return paths, fmt.Errorf("preview slice %d: %w", z, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

func encodeTIFF(fsys fsutil.FileSystem, path string, img image.Image) error {
	f, err := fsys.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := tiff.Encode(f, img, &tiff.Options{Compression: tiff.Deflate}); err != nil {
		f.Close()
		return fmt.Errorf("failed to encode %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	return nil
}
