package report

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	_ "image/png"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/tiff"

	"github.com/banshee-data/sholl.report/internal/fsutil"
	"github.com/banshee-data/sholl.report/internal/monitoring"
	"github.com/banshee-data/sholl.report/internal/sholl"
)

func init() {
	monitoring.SetLogger(nil)
}

func discreteProfile() *sholl.Profile {
	return &sholl.Profile{
		Identifier: "neuron-01",
		Dimensions: 2,
		StepSize:   10,
		Entries: []sholl.ProfileEntry{
			{Radius: 0, Crossings: 1},
			{Radius: 10, Crossings: 4},
			{Radius: 20, Crossings: 2},
			{Radius: 30, Crossings: 1},
			{Radius: 40, Crossings: 0},
		},
	}
}

func TestSummarise(t *testing.T) {
	s := Summarise(discreteProfile())

	assert.Equal(t, 5, s.Samples)
	assert.Equal(t, 4, s.MaxCrossings)
	assert.Equal(t, 10.0, s.CriticalRadius)
	assert.Equal(t, 30.0, s.EnclosingRadius)
	assert.Equal(t, 8.0, s.SumCrossings)
	assert.InDelta(t, 1.6, s.MeanCrossings, 1e-12)
	assert.InDelta(t, math.Sqrt(2.3), s.StdDevCrossings, 1e-12)
	require.NotNil(t, s.CentroidRadius)
	assert.InDelta(t, 110.0/8.0, *s.CentroidRadius, 1e-12)
	require.NotNil(t, s.SemiLogDecay)
	require.NotNil(t, s.SemiLogRSquared)
	assert.Greater(t, *s.SemiLogDecay, 0.0)
	assert.True(t, *s.SemiLogRSquared >= 0 && *s.SemiLogRSquared <= 1)
}

func TestSummarise_ExactExponentialDecay(t *testing.T) {
	// N(r) = pi r^2 e^{-0.1 r} fits the 2D semi-log model exactly.
	p := &sholl.Profile{Dimensions: 2}
	for r := 5.0; r <= 25; r += 5 {
		n := int(math.Round(math.Pi * r * r * math.Exp(-0.1*r)))
		p.Entries = append(p.Entries, sholl.ProfileEntry{Radius: r, Crossings: n})
	}
	s := Summarise(p)
	require.NotNil(t, s.SemiLogDecay)
	assert.InDelta(t, 0.1, *s.SemiLogDecay, 0.01)
	assert.InDelta(t, 1.0, *s.SemiLogRSquared, 0.01)
}

func TestSummarise_Degenerate(t *testing.T) {
	assert.Equal(t, Summary{}, Summarise(&sholl.Profile{}))
	assert.Equal(t, Summary{}, Summarise(nil))

	single := Summarise(&sholl.Profile{Entries: []sholl.ProfileEntry{{Radius: 0, Crossings: 3}}})
	assert.Equal(t, 3.0, single.MeanCrossings)
	assert.Equal(t, 0.0, single.StdDevCrossings)
	assert.Nil(t, single.SemiLogDecay)

	negative := Summarise(&sholl.Profile{Entries: []sholl.ProfileEntry{{Radius: 0, Crossings: 1}, {Radius: 1, Crossings: -1}}})
	assert.Nil(t, negative.CentroidRadius)
	assert.Equal(t, 0.0, negative.EnclosingRadius)
}

func TestWriteProfilePlot(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()

	require.NoError(t, WriteProfilePlot(fsys, "out/profile.png", discreteProfile(), "um"))
	data, err := fsys.ReadFile("out/profile.png")
	require.NoError(t, err)
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, "png", format)

	continuous := discreteProfile()
	continuous.StepSize = 0
	require.NoError(t, WriteProfilePlot(fsys, "out/profile.svg", continuous, ""))
	svg, err := fsys.ReadFile("out/profile.svg")
	require.NoError(t, err)
	assert.Contains(t, string(svg), "<svg")
}

func TestWriteProfilePlot_Errors(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	assert.Error(t, WriteProfilePlot(fsys, "out/profile", discreteProfile(), "um"))
	assert.Error(t, WriteProfilePlot(fsys, "out/profile.bmp", discreteProfile(), "um"))
	assert.Error(t, WriteProfilePlot(fsys, "out/empty.png", &sholl.Profile{}, "um"))
}

func TestRenderProfileChart(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderProfileChart(&buf, discreteProfile(), ChartOptions{Unit: "um", AssetsHost: "/static/"}))

	html := buf.String()
	assert.Contains(t, html, "<html")
	assert.Contains(t, html, "neuron-01 (step 10)")
	assert.Contains(t, html, "Radius")
	assert.Contains(t, html, "/static/echarts.min.js")

	assert.Error(t, RenderProfileChart(&buf, &sholl.Profile{}, ChartOptions{}))
}

func TestWriteProfileCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteProfileCSV(&buf, discreteProfile(), "um", "mm"))

	want := strings.Join([]string{
		"radius_mm,crossings",
		"0,1",
		"0.01,4",
		"0.02,2",
		"0.03,1",
		"0.04,0",
		"",
	}, "\n")
	assert.Equal(t, want, buf.String())

	buf.Reset()
	assert.Error(t, WriteProfileCSV(&buf, discreteProfile(), "px", "um"))
}

func TestSaveProfileCSV(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, SaveProfileCSV(fsys, "out/p.csv", discreteProfile(), "um", "um"))
	data, err := fsys.ReadFile("out/p.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "radius_um,crossings\n0,1\n10,4\n"))
}

func parsedLabels[T sholl.Pixel](t *testing.T, paths []sholl.TracedPath, grid sholl.VoxelGrid) *sholl.LabelsVolume[T] {
	t.Helper()
	p := sholl.NewTreeParser(&pathTree{paths: paths})
	require.NoError(t, p.SetCenter(sholl.Point3D{}))
	require.NoError(t, p.Parse())
	vol, err := sholl.Labels[T](context.Background(), p, grid, "grays", 1)
	require.NoError(t, err)
	return vol
}

func decodeTIFF(t *testing.T, fsys *fsutil.MemoryFileSystem, path string) image.Image {
	t.Helper()
	data, err := fsys.ReadFile(path)
	require.NoError(t, err)
	img, err := tiff.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	return img
}

func TestWriteLabelStack(t *testing.T) {
	vol := parsedLabels[int32](t, []sholl.TracedPath{
		{Nodes: []sholl.Point3D{{X: 0}, {X: 6}}, Primary: true},
	}, sholl.VoxelGrid{Width: 8, Height: 3, Depth: 2})

	fsys := fsutil.NewMemoryFileSystem()
	stack, err := WriteLabelStack(fsys, "labels", "cell", vol)
	require.NoError(t, err)
	assert.Equal(t, []string{"labels/cell_z0000.tif", "labels/cell_z0001.tif"}, stack.Slices)
	assert.Equal(t, []string{"labels/cell_labels.json", "labels/cell_z0000.tif", "labels/cell_z0001.tif"}, fsys.Files("labels"))
	assert.Equal(t, 16, stack.BitsPerSample)
	assert.Equal(t, 0, stack.Offset)

	for z, path := range stack.Slices {
		img, ok := decodeTIFF(t, fsys, path).(*image.Gray16)
		require.True(t, ok, "slices are 16-bit greyscale")
		assert.Equal(t, image.Rect(0, 0, 8, 3), img.Bounds())
		for y := 0; y < 3; y++ {
			for x := 0; x < 8; x++ {
				assert.Equal(t, int(vol.At(x, y, z)), int(img.Gray16At(x, y).Y), "voxel (%d,%d,%d)", x, y, z)
			}
		}
	}
	img := decodeTIFF(t, fsys, stack.Slices[0]).(*image.Gray16)
	assert.Equal(t, uint16(1), img.Gray16At(0, 0).Y, "one crossing is stored as 1")

	_, err = WriteLabelStack[int32](fsys, "labels", "none", nil)
	assert.Error(t, err)
}

func TestWriteLabelStack_NegativeCountsAreOffset(t *testing.T) {
	// The shared node at x=10 collapses two entering events, so the count
	// at r=20 is -1.
	vol := parsedLabels[int32](t, []sholl.TracedPath{
		{Nodes: []sholl.Point3D{{X: 0}, {X: 10}, {X: 20}}, Primary: true},
		{Nodes: []sholl.Point3D{{X: 10}, {X: 10, Y: 10}}},
	}, sholl.VoxelGrid{Width: 21, Height: 1, Depth: 1})
	require.Equal(t, int32(-1), vol.At(20, 0, 0))

	fsys := fsutil.NewMemoryFileSystem()
	stack, err := WriteLabelStack(fsys, "labels", "fork", vol)
	require.NoError(t, err)
	assert.Equal(t, 1, stack.Offset)

	img := decodeTIFF(t, fsys, stack.Slices[0]).(*image.Gray16)
	for x := 0; x < 21; x++ {
		assert.Equal(t, int(vol.At(x, 0, 0))+1, int(img.Gray16At(x, 0).Y), "x=%d", x)
	}

	meta, err := fsys.ReadFile(stack.Meta)
	require.NoError(t, err)
	var got LabelStack
	require.NoError(t, json.Unmarshal(meta, &got))
	assert.Equal(t, 1, got.Offset)
	assert.Equal(t, 16, got.BitsPerSample)
	assert.Equal(t, stack.Slices, got.Slices)
}

func TestWriteLabelStack_Uint8(t *testing.T) {
	vol := parsedLabels[uint8](t, []sholl.TracedPath{
		{Nodes: []sholl.Point3D{{X: 0}, {X: 6}}, Primary: true},
	}, sholl.VoxelGrid{Width: 8, Height: 1, Depth: 1})

	fsys := fsutil.NewMemoryFileSystem()
	stack, err := WriteLabelStack(fsys, "labels", "cell", vol)
	require.NoError(t, err)
	assert.Equal(t, 8, stack.BitsPerSample)

	img, ok := decodeTIFF(t, fsys, stack.Slices[0]).(*image.Gray)
	require.True(t, ok)
	assert.Equal(t, uint8(1), img.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), img.GrayAt(7, 0).Y)
}

func TestWriteLabelStack_RangeTooWide(t *testing.T) {
	vol := &sholl.LabelsVolume[int32]{Width: 2, Height: 1, Depth: 1, Pix: []int32{-40000, 40000}}
	_, err := WriteLabelStack(fsutil.NewMemoryFileSystem(), "labels", "wide", vol)
	assert.ErrorContains(t, err, "wider than 16 bits")
}

func TestWriteLabelPreview(t *testing.T) {
	vol := parsedLabels[int32](t, []sholl.TracedPath{
		{Nodes: []sholl.Point3D{{X: 0}, {X: 6}}, Primary: true},
	}, sholl.VoxelGrid{Width: 8, Height: 3, Depth: 1})

	fsys := fsutil.NewMemoryFileSystem()
	paths, err := WriteLabelPreview(fsys, "labels", "cell", vol)
	require.NoError(t, err)
	assert.Equal(t, []string{"labels/cell_preview_z0000.tif"}, paths)

	img := decodeTIFF(t, fsys, paths[0])
	r, _, _, _ := img.At(0, 0).RGBA()
	assert.Equal(t, uint32(0xffff), r, "inside the arbor maps to the top of the LUT")
	r, _, _, _ = img.At(7, 0).RGBA()
	assert.Equal(t, uint32(0), r)
}

type pathTree struct {
	paths []sholl.TracedPath
}

func (t *pathTree) TracedPaths() []sholl.TracedPath        { return t.paths }
func (t *pathTree) Label() string                          { return "path" }
func (t *pathTree) SpatialCalibration() *sholl.Calibration { return nil }
