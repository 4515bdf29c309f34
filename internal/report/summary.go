package report

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/banshee-data/sholl.report/internal/sholl"
)

// Summary holds descriptive statistics of a profile.
type Summary struct {
	Samples         int     `json:"samples"`
	MaxCrossings    int     `json:"max_crossings"`
	CriticalRadius  float64 `json:"critical_radius"`
	EnclosingRadius float64 `json:"enclosing_radius"`
	SumCrossings    float64 `json:"sum_crossings"`
	MeanCrossings   float64 `json:"mean_crossings"`
	StdDevCrossings float64 `json:"stddev_crossings"`
	// CentroidRadius is the crossings-weighted mean radius; nil when the
	// crossings do not sum to a positive value.
	CentroidRadius *float64 `json:"centroid_radius,omitempty"`
	// SemiLogDecay is the Sholl regression coefficient from fitting
	// ln(N/area) (2D) or ln(N/volume) (3D) against radius; nil when fewer
	// than two samples qualify.
	SemiLogDecay    *float64 `json:"semi_log_decay,omitempty"`
	SemiLogRSquared *float64 `json:"semi_log_r_squared,omitempty"`
}

// Summarise computes a Summary. An empty profile yields the zero value.
func Summarise(p *sholl.Profile) Summary {
	var s Summary
	if p.Size() == 0 {
		return s
	}
	radii, counts := p.Radii(), p.Counts()

	s.Samples = p.Size()
	s.MaxCrossings = p.MaxCrossings()
	s.CriticalRadius = radii[floats.MaxIdx(counts)]
	for i := len(counts) - 1; i >= 0; i-- {
		if counts[i] > 0 {
			s.EnclosingRadius = radii[i]
			break
		}
	}
	s.SumCrossings = floats.Sum(counts)
	if s.Samples > 1 {
		s.MeanCrossings, s.StdDevCrossings = stat.MeanStdDev(counts, nil)
	} else {
		s.MeanCrossings = counts[0]
	}
	if s.SumCrossings > 0 {
		c := floats.Dot(radii, counts) / s.SumCrossings
		s.CentroidRadius = &c
	}

	if k, r2, ok := semiLogFit(radii, counts, p.Dimensions); ok {
		s.SemiLogDecay, s.SemiLogRSquared = &k, &r2
	}
	return s
}

// semiLogFit regresses the log of crossing density on radius. Only samples
// with positive radius and count contribute.
func semiLogFit(radii, counts []float64, dims int) (k, r2 float64, ok bool) {
	var xs, ys []float64
	for i, r := range radii {
		if r <= 0 || counts[i] <= 0 {
			continue
		}
		size := math.Pi * r * r
		if dims == 3 {
			size = 4.0 / 3.0 * math.Pi * r * r * r
		}
		xs = append(xs, r)
		ys = append(ys, math.Log(counts[i]/size))
	}
	if len(xs) < 2 || floats.Min(xs) == floats.Max(xs) {
		return 0, 0, false
	}
	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	return -beta, stat.RSquared(xs, ys, nil, alpha, beta), true
}
