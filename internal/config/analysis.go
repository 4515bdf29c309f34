package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/banshee-data/sholl.report/internal/sholl"
	"github.com/banshee-data/sholl.report/internal/units"
)

// DefaultConfigPath is the canonical defaults file, relative to the
// repository root.
const DefaultConfigPath = "config/sholl.defaults.json"

// Pixel types accepted for labels volumes.
const (
	PixelUint8  = "uint8"
	PixelUint16 = "uint16"
	PixelInt32  = "int32"
)

var validPixelTypes = []string{PixelUint8, PixelUint16, PixelInt32}

// AnalysisConfig holds the parameters of a Sholl run. Fields are pointers so
// a partial file only overrides what it names; the Get* accessors supply
// defaults for the rest.
type AnalysisConfig struct {
	StepSize      *float64 `json:"step_size,omitempty"`
	CenterPolicy  *string  `json:"center_policy,omitempty"`
	PixelType     *string  `json:"pixel_type,omitempty"`
	LUT           *string  `json:"lut,omitempty"`
	RasterWorkers *int     `json:"raster_workers,omitempty"`
	LengthUnit    *string  `json:"length_unit,omitempty"`
	DBPath        *string  `json:"db_path,omitempty"`
}

func ptrFloat64(v float64) *float64 { return &v }
func ptrString(v string) *string    { return &v }
func ptrInt(v int) *int             { return &v }

// EmptyAnalysisConfig returns a config with every field unset.
func EmptyAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{}
}

// DefaultAnalysisConfig returns a config with every field set to its default.
func DefaultAnalysisConfig() *AnalysisConfig {
	return &AnalysisConfig{
		StepSize:      ptrFloat64(0),
		CenterPolicy:  ptrString(sholl.PrimaryNodesAny.String()),
		PixelType:     ptrString(PixelInt32),
		LUT:           ptrString(sholl.DefaultLUT),
		RasterWorkers: ptrInt(0),
		LengthUnit:    ptrString(units.UM),
		DBPath:        ptrString("sholl.db"),
	}
}

// LoadAnalysisConfig reads and validates a JSON config file.
func LoadAnalysisConfig(path string) (*AnalysisConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyAnalysisConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads DefaultConfigPath from the working directory
// or one of its ancestors. Panics if none is found.
func MustLoadDefaultConfig() *AnalysisConfig {
	candidates := []string{
		DefaultConfigPath,
		"../" + DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // from cmd/sholl/ in a nested checkout
	}
	for _, path := range candidates {
		if cfg, err := LoadAnalysisConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run from repository root")
}

// Validate checks every set field.
func (c *AnalysisConfig) Validate() error {
	if c.StepSize != nil && *c.StepSize < 0 {
		return fmt.Errorf("step_size must be non-negative, got %f", *c.StepSize)
	}

	if c.CenterPolicy != nil {
		if _, err := sholl.ParseCenterPolicy(*c.CenterPolicy); err != nil {
			return fmt.Errorf("invalid center_policy: %w", err)
		}
	}

	if c.PixelType != nil && !slices.Contains(validPixelTypes, *c.PixelType) {
		return fmt.Errorf("pixel_type must be one of %v, got %q", validPixelTypes, *c.PixelType)
	}

	if c.LUT != nil {
		if _, err := sholl.LUT(*c.LUT); err != nil {
			return fmt.Errorf("invalid lut: %w", err)
		}
	}

	if c.RasterWorkers != nil && *c.RasterWorkers < 0 {
		return fmt.Errorf("raster_workers must be non-negative, got %d", *c.RasterWorkers)
	}

	if c.LengthUnit != nil && !units.IsValid(*c.LengthUnit) {
		return fmt.Errorf("length_unit must be one of %s, got %q", units.GetValidUnitsString(), *c.LengthUnit)
	}

	if c.DBPath != nil && *c.DBPath == "" {
		return fmt.Errorf("db_path must not be empty")
	}

	return nil
}

// GetStepSize returns the sampling step; 0 means continuous sampling.
func (c *AnalysisConfig) GetStepSize() float64 {
	if c.StepSize == nil {
		return 0
	}
	return *c.StepSize
}

// GetCenterPolicy returns the configured policy, or PrimaryNodesAny when
// unset or unparseable.
func (c *AnalysisConfig) GetCenterPolicy() sholl.CenterPolicy {
	if c.CenterPolicy == nil {
		return sholl.PrimaryNodesAny
	}
	p, err := sholl.ParseCenterPolicy(*c.CenterPolicy)
	if err != nil {
		return sholl.PrimaryNodesAny
	}
	return p
}

func (c *AnalysisConfig) GetPixelType() string {
	if c.PixelType == nil {
		return PixelInt32
	}
	return *c.PixelType
}

func (c *AnalysisConfig) GetLUT() string {
	if c.LUT == nil {
		return sholl.DefaultLUT
	}
	return *c.LUT
}

// GetRasterWorkers returns the slice worker limit; 0 means GOMAXPROCS.
func (c *AnalysisConfig) GetRasterWorkers() int {
	if c.RasterWorkers == nil {
		return 0
	}
	return *c.RasterWorkers
}

func (c *AnalysisConfig) GetLengthUnit() string {
	if c.LengthUnit == nil {
		return units.UM
	}
	return *c.LengthUnit
}

func (c *AnalysisConfig) GetDBPath() string {
	if c.DBPath == nil {
		return "sholl.db"
	}
	return *c.DBPath
}
