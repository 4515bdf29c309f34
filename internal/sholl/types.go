package sholl

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Point3D is a node position in real-world units.
type Point3D struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// DistanceSquaredTo returns the squared Euclidean distance between p and o.
func (p Point3D) DistanceSquaredTo(o Point3D) float64 {
	dx := p.X - o.X
	dy := p.Y - o.Y
	dz := p.Z - o.Z
	return dx*dx + dy*dy + dz*dz
}

// Scale returns p with every coordinate multiplied by k.
func (p Point3D) Scale(k float64) Point3D {
	return Point3D{X: p.X * k, Y: p.Y * k, Z: p.Z * k}
}

// IsFinite reports whether no coordinate is NaN or infinite.
func (p Point3D) IsFinite() bool {
	for _, v := range [3]float64{p.X, p.Y, p.Z} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// AveragePoint returns the arithmetic mean of pts. The caller guarantees
// pts is non-empty.
func AveragePoint(pts []Point3D) Point3D {
	var sx, sy, sz float64
	for _, p := range pts {
		sx += p.X
		sy += p.Y
		sz += p.Z
	}
	n := float64(len(pts))
	return Point3D{X: sx / n, Y: sy / n, Z: sz / n}
}

// Segment is a pair of consecutive nodes of one traced path.
type Segment struct {
	A, B Point3D
}

// SWCType is the compartment tag carried by a traced path.
type SWCType int

// Standard SWC compartment codes. Anything above SWCApicalDendrite is custom.
const (
	SWCUndefined      SWCType = 0
	SWCSoma           SWCType = 1
	SWCAxon           SWCType = 2
	SWCDendrite       SWCType = 3
	SWCApicalDendrite SWCType = 4
	SWCCustom         SWCType = 5
)

// String returns the SWC label of t.
func (t SWCType) String() string {
	switch t {
	case SWCUndefined:
		return "undefined"
	case SWCSoma:
		return "soma"
	case SWCAxon:
		return "axon"
	case SWCDendrite:
		return "dendrite"
	case SWCApicalDendrite:
		return "apical dendrite"
	default:
		return "custom"
	}
}

// TracedPath is one ordered sub-path of a structure.
type TracedPath struct {
	Nodes   []Point3D
	Primary bool // no parent path
	Type    SWCType
}

// Calibration is per-axis voxel spacing plus a physical unit.
type Calibration struct {
	PixelWidth  float64 `json:"pixel_width"`
	PixelHeight float64 `json:"pixel_height"`
	PixelDepth  float64 `json:"pixel_depth"`
	Unit        string  `json:"unit"`
}

// Structure is the traversal surface a tree exposes to the profiler.
type Structure interface {
	// TracedPaths returns every sub-path in traversal order.
	TracedPaths() []TracedPath
	// Label identifies the structure; may be empty.
	Label() string
	// SpatialCalibration returns nil when the structure is uncalibrated.
	SpatialCalibration() *Calibration
}

// Segments flattens s into the segments of all of its paths. A path of k
// nodes yields k-1 segments; tree topology plays no part.
func Segments(s Structure) []Segment {
	var segs []Segment
	for _, p := range s.TracedPaths() {
		for i := 0; i+1 < len(p.Nodes); i++ {
			segs = append(segs, Segment{A: p.Nodes[i], B: p.Nodes[i+1]})
		}
	}
	return segs
}

// isEmpty reports whether s carries no nodes at all.
func isEmpty(s Structure) bool {
	if s == nil {
		return true
	}
	for _, p := range s.TracedPaths() {
		if len(p.Nodes) > 0 {
			return false
		}
	}
	return true
}

// is3D reports whether any node leaves the z=0 plane.
func is3D(s Structure) bool {
	for _, p := range s.TracedPaths() {
		for _, n := range p.Nodes {
			if n.Z != 0 {
				return true
			}
		}
	}
	return false
}

// ProfileEntry is one (radius, crossings) sample.
type ProfileEntry struct {
	Radius    float64 `json:"radius"`
	Crossings int     `json:"crossings"`
}

// Profile property keys.
const (
	KeySource   = "source"
	SourceTrace = "tracing"
)

// Profile is an ordered radius → crossings sequence plus its metadata.
type Profile struct {
	Identifier  string            `json:"identifier,omitempty"`
	Dimensions  int               `json:"dimensions"`
	Center      Point3D           `json:"center"`
	Calibration *Calibration      `json:"calibration,omitempty"`
	StepSize    float64           `json:"step_size"`
	Properties  map[string]string `json:"properties,omitempty"`
	Entries     []ProfileEntry    `json:"entries"`
}

// Size returns the number of samples.
func (p *Profile) Size() int {
	if p == nil {
		return 0
	}
	return len(p.Entries)
}

// Radii returns the sampled radii in order.
func (p *Profile) Radii() []float64 {
	out := make([]float64, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = e.Radius
	}
	return out
}

// Counts returns the crossing counts as float64 for numeric consumers.
func (p *Profile) Counts() []float64 {
	out := make([]float64, len(p.Entries))
	for i, e := range p.Entries {
		out[i] = float64(e.Crossings)
	}
	return out
}

// MaxCrossings returns the largest crossing count, or 0 for an empty profile.
func (p *Profile) MaxCrossings() int {
	if p.Size() == 0 {
		return 0
	}
	return int(floats.Max(p.Counts()))
}
