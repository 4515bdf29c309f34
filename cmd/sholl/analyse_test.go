package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/sholl.report/internal/config"
	"github.com/banshee-data/sholl.report/internal/db"
	"github.com/banshee-data/sholl.report/internal/fsutil"
	"github.com/banshee-data/sholl.report/internal/monitoring"
	"github.com/banshee-data/sholl.report/internal/sholl"
)

// Soma at the origin, a dendrite forking at x=20 and an axon.
const neuronSWC = `1 1 0 0 0 5 -1
2 3 10 0 0 1 1
3 3 20 0 0 1 2
4 3 20 10 0 1 3
5 3 30 0 0 1 3
6 2 -10 0 0 1 1
`

type analyseResult struct {
	ID      string   `json:"id"`
	Files   []string `json:"files"`
	Summary struct {
		Samples      int `json:"samples"`
		MaxCrossings int `json:"max_crossings"`
	} `json:"summary"`
}

func TestParseAnalyseFlags(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "run.json")
	require.NoError(t, fsutil.OSFileSystem{}.WriteFile(cfgPath, []byte(`{"step_size": 3, "lut": "fire", "db_path": "x.db"}`), 0644))

	opts, err := parseAnalyseFlags([]string{
		"-config", cfgPath, "-step", "5", "-center", "1, 2, 3",
		"-labels", "out", "-grid", "10x20x3", "-spacing", "0.5,0.5,2",
		"cell.swc",
	}, io.Discard)
	require.NoError(t, err)

	assert.Equal(t, "cell.swc", opts.input)
	assert.Equal(t, 5.0, opts.cfg.GetStepSize(), "flag beats config")
	assert.Equal(t, "fire", opts.cfg.GetLUT(), "config beats default")
	assert.Equal(t, "x.db", opts.cfg.GetDBPath())
	assert.Equal(t, config.PixelInt32, opts.cfg.GetPixelType())
	assert.Equal(t, &sholl.Point3D{X: 1, Y: 2, Z: 3}, opts.center)
	assert.Equal(t, [3]int{10, 20, 3}, opts.grid)
	assert.Equal(t, [3]float64{0.5, 0.5, 2}, opts.spacing)
}

func TestParseAnalyseFlags_Errors(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"no input", []string{}},
		{"two inputs", []string{"a.swc", "b.swc"}},
		{"bad center", []string{"-center", "1,2", "a.swc"}},
		{"bad spacing", []string{"-spacing", "1,0,1", "a.swc"}},
		{"labels without grid", []string{"-labels", "out", "a.swc"}},
		{"fractional grid", []string{"-labels", "out", "-grid", "2x2.5x1", "a.swc"}},
		{"bad policy", []string{"-policy", "nucleus", "a.swc"}},
		{"negative step", []string{"-step", "-1", "a.swc"}},
		{"missing config", []string{"-config", "nope.json", "a.swc"}},
		{"output outside workdir", []string{"-csv", "/proc/cell.csv", "a.swc"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseAnalyseFlags(tt.args, io.Discard)
			assert.Error(t, err)
		})
	}
}

func TestAnalyse_EndToEnd(t *testing.T) {
	monitoring.SetLogger(nil)
	dir := t.TempDir()
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("in/cell.swc", []byte(neuronSWC), 0644))

	dbPath := filepath.Join(dir, "sholl.db")
	opts, err := parseAnalyseFlags([]string{
		"-db", dbPath, "-step", "10", "-policy", "soma",
		"-plot", "out/cell.png", "-html", "out/cell.html", "-csv", "out/cell.csv",
		"-labels", "out/labels", "-grid", "8x8x1", "-spacing", "5,5,1", "-labels-preview",
		"in/cell.swc",
	}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, analyse(context.Background(), fsys, opts, &stdout))

	var res analyseResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 4, res.Summary.Samples)
	assert.Equal(t, []string{
		"out/cell.png", "out/cell.html", "out/cell.csv",
		"out/labels/cell_z0000.tif", "out/labels/cell_labels.json", "out/labels/cell_preview_z0000.tif",
	}, res.Files)
	for _, f := range res.Files {
		assert.True(t, fsys.Exists(f), f)
	}

	csv, err := fsys.ReadFile("out/cell.csv")
	require.NoError(t, err)
	// The fork node at x=20 is shared by two segments; their identical
	// entering events collapse into one, so the count dips below zero.
	assert.Equal(t, "radius_um,crossings\n0,1\n10,1\n20,1\n30,-1\n", string(csv))

	database, err := db.NewDB(dbPath)
	require.NoError(t, err)
	defer database.Close()
	stored, err := db.NewProfileStore(database).Get(res.ID)
	require.NoError(t, err)
	assert.Equal(t, "cell", stored.Profile.Identifier)
	assert.Equal(t, "um", stored.Profile.Calibration.Unit)
}

func TestAnalyse_NoDB(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("cell.swc", []byte(neuronSWC), 0644))

	opts, err := parseAnalyseFlags([]string{"-no-db", "-center", "0,0,0", "cell.swc"}, io.Discard)
	require.NoError(t, err)

	var stdout bytes.Buffer
	require.NoError(t, analyse(context.Background(), fsys, opts, &stdout))

	var res analyseResult
	require.NoError(t, json.Unmarshal(stdout.Bytes(), &res))
	assert.Empty(t, res.ID)
	assert.Empty(t, res.Files)
	assert.Equal(t, 1, res.Summary.MaxCrossings)
}

func TestAnalyse_Failures(t *testing.T) {
	fsys := fsutil.NewMemoryFileSystem()
	require.NoError(t, fsys.WriteFile("cell.swc", []byte(neuronSWC), 0644))
	require.NoError(t, fsys.WriteFile("soma.swc", []byte("1 1 0 0 0 5 -1\n"), 0644))

	run := func(args ...string) error {
		opts, err := parseAnalyseFlags(append([]string{"-no-db"}, args...), io.Discard)
		require.NoError(t, err)
		return analyse(context.Background(), fsys, opts, io.Discard)
	}

	assert.ErrorContains(t, run("missing.swc"), "missing.swc")
	assert.ErrorIs(t, run("-policy", "apical-dendrite", "cell.swc"), sholl.ErrInvalidSelection)
	assert.ErrorContains(t, run("soma.swc"), "no segments")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	opts, err := parseAnalyseFlags([]string{"-no-db", "cell.swc"}, io.Discard)
	require.NoError(t, err)
	err = analyse(ctx, fsys, opts, io.Discard)
	if err != nil {
		assert.ErrorIs(t, err, context.Canceled)
	}
}
