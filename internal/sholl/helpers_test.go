package sholl

import "math/rand"

type stubTree struct {
	label   string
	paths   []TracedPath
	cal     *Calibration
	onPaths func()
}

func (s *stubTree) TracedPaths() []TracedPath {
	if s.onPaths != nil {
		s.onPaths()
	}
	return s.paths
}

func (s *stubTree) Label() string                    { return s.label }
func (s *stubTree) SpatialCalibration() *Calibration { return s.cal }

// straightPath is (0,0,0)-(0,0,10)-(0,0,20).
func straightPath() *stubTree {
	return &stubTree{
		label: "straight",
		paths: []TracedPath{{
			Nodes:   []Point3D{{0, 0, 0}, {0, 0, 10}, {0, 0, 20}},
			Primary: true,
			Type:    SWCDendrite,
		}},
	}
}

// randomSegments returns n segments with integer coordinates in [-50, 50].
func randomSegments(rng *rand.Rand, n int) []Segment {
	coord := func() float64 { return float64(rng.Intn(101) - 50) }
	segs := make([]Segment, n)
	for i := range segs {
		segs[i] = Segment{
			A: Point3D{coord(), coord(), coord()},
			B: Point3D{coord(), coord(), coord()},
		}
	}
	return segs
}
