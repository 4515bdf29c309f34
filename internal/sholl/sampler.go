package sholl

import (
	"fmt"
	"math"
	"sync/atomic"
)

// Sample walks ix into profile entries. A zero stepSize samples every
// breakpoint; a positive one samples at fixed radial steps.
func Sample(ix *CrossingIndex, stepSize float64) ([]ProfileEntry, error) {
	if ix.Len() == 0 {
		return nil, ErrEmptyIndex
	}
	if stepSize < 0 || math.IsNaN(stepSize) {
		return nil, fmt.Errorf("step size %v must be non-negative", stepSize)
	}
	if stepSize == 0 {
		entries, _ := sampleContinuous(ix, nil)
		return entries, nil
	}
	entries, _, err := sampleDiscrete(ix, stepSize, nil)
	return entries, err
}

// SampleContinuous returns one entry per breakpoint.
func SampleContinuous(ix *CrossingIndex) ([]ProfileEntry, error) {
	return Sample(ix, 0)
}

// SampleDiscrete returns entries at radius i*stepSize from 0 up to and
// including the farthest whole step within the index.
func SampleDiscrete(ix *CrossingIndex, stepSize float64) ([]ProfileEntry, error) {
	if stepSize <= 0 || math.IsNaN(stepSize) {
		return nil, fmt.Errorf("step size %v must be positive", stepSize)
	}
	return Sample(ix, stepSize)
}

func sampleContinuous(ix *CrossingIndex, running *atomic.Bool) ([]ProfileEntry, bool) {
	entries := make([]ProfileEntry, 0, ix.Len())
	for i, d2 := range ix.distancesSquared {
		if running != nil && !running.Load() {
			opsf("continuous sampling cancelled at %d of %d", i, ix.Len())
			return nil, false
		}
		entries = append(entries, ProfileEntry{
			Radius:    math.Sqrt(d2),
			Crossings: ix.crossingsAfter[i],
		})
	}
	diagf("continuous sampling: %d entries", len(entries))
	return entries, true
}

// MaxDiscreteSamples caps the entries of one discrete profile.
const MaxDiscreteSamples = 1 << 24

// discreteSampleCount is floor(maxRadius/step)+1 so the farthest breakpoint
// is sampled when it falls on a whole step. The count is worked out in
// float64 and checked before it becomes an int.
func discreteSampleCount(maxRadius, stepSize float64) (int, error) {
	n := math.Floor(maxRadius/stepSize) + 1
	if math.IsNaN(n) || n > MaxDiscreteSamples {
		return 0, fmt.Errorf("step %g over radius %g needs more than %d samples: %w",
			stepSize, maxRadius, MaxDiscreteSamples, ErrTooManySamples)
	}
	return int(n), nil
}

func sampleDiscrete(ix *CrossingIndex, stepSize float64, running *atomic.Bool) ([]ProfileEntry, bool, error) {
	maxRadius := math.Sqrt(ix.distancesSquared[len(ix.distancesSquared)-1])
	n, err := discreteSampleCount(maxRadius, stepSize)
	if err != nil {
		return nil, false, err
	}
	entries := make([]ProfileEntry, 0, n)
	for i := 0; i < n; i++ {
		if running != nil && !running.Load() {
			opsf("discrete sampling cancelled at %d of %d", i, n)
			return nil, false, nil
		}
		r := float64(i) * stepSize
		entries = append(entries, ProfileEntry{
			Radius:    r,
			Crossings: ix.crossingsAt(r * r),
		})
	}
	diagf("discrete sampling: step=%g max_radius=%g entries=%d", stepSize, maxRadius, len(entries))
	return entries, true, nil
}
