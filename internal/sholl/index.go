package sholl

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"sort"
	"sync/atomic"

	"gonum.org/v1/gonum/floats"
)

// CrossingEvent marks a segment endpoint at a squared distance from the
// center. Entering is true for the nearer endpoint of its segment.
type CrossingEvent struct {
	DistanceSquared float64
	Entering        bool
}

func compareEvents(a, b CrossingEvent) int {
	if c := cmp.Compare(a.DistanceSquared, b.DistanceSquared); c != 0 {
		return c
	}
	switch {
	case a.Entering == b.Entering:
		return 0
	case a.Entering:
		return 1
	default:
		return -1
	}
}

func sameEvent(a, b CrossingEvent) bool {
	return a.Entering == b.Entering &&
		math.Float64bits(a.DistanceSquared) == math.Float64bits(b.DistanceSquared)
}

// CrossingIndex maps squared distance from a center to the number of
// segments crossing the sphere of that radius.
//
// distancesSquared is strictly increasing. crossingsAfter[i] is the running
// sum (+1 entering, -1 leaving) over every de-duplicated event up to and
// including those at distancesSquared[i]. An index is immutable once built
// and safe for concurrent queries.
type CrossingIndex struct {
	distancesSquared []float64
	crossingsAfter   []int
}

// NewCrossingIndex builds the index for segments around center.
func NewCrossingIndex(segments []Segment, center Point3D) *CrossingIndex {
	ix, _ := buildCrossingIndex(segments, center, nil)
	return ix
}

// buildCrossingIndex runs the event sweep. It polls running once per
// segment and once per event and returns ok=false as soon as the flag is
// cleared; the partial result is discarded.
func buildCrossingIndex(segments []Segment, center Point3D, running *atomic.Bool) (ix *CrossingIndex, ok bool) {
	stopped := func() bool { return running != nil && !running.Load() }

	events := make([]CrossingEvent, 0, 2*len(segments))
	skipped := 0
	for _, s := range segments {
		if stopped() {
			opsf("index build cancelled after %d of %d segments", len(events)/2, len(segments))
			return nil, false
		}
		if !s.A.IsFinite() || !s.B.IsFinite() {
			skipped++
			continue
		}
		da := s.A.DistanceSquaredTo(center)
		db := s.B.DistanceSquaredTo(center)
		// On a tie the first endpoint visited is the entering one.
		nearerIsA := da <= db
		events = append(events,
			CrossingEvent{DistanceSquared: da, Entering: nearerIsA},
			CrossingEvent{DistanceSquared: db, Entering: !nearerIsA},
		)
	}
	if skipped > 0 {
		opsf("skipped %d segments with non-finite coordinates", skipped)
	}

	slices.SortFunc(events, compareEvents)
	events = slices.CompactFunc(events, sameEvent)

	ix = &CrossingIndex{}
	counter := 0
	for _, e := range events {
		if stopped() {
			opsf("index sweep cancelled")
			return nil, false
		}
		if e.Entering {
			counter++
		} else {
			counter--
		}
		n := len(ix.distancesSquared)
		if n > 0 && ix.distancesSquared[n-1] == e.DistanceSquared {
			ix.crossingsAfter[n-1] = counter
			continue
		}
		ix.distancesSquared = append(ix.distancesSquared, e.DistanceSquared)
		ix.crossingsAfter = append(ix.crossingsAfter, counter)
	}
	diagf("crossing index: %d segments, %d events, %d breakpoints",
		len(segments), len(events), len(ix.distancesSquared))
	return ix, true
}

// Len returns the number of breakpoints.
func (ix *CrossingIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.distancesSquared)
}

// DistancesSquared returns a copy of the breakpoint array.
func (ix *CrossingIndex) DistancesSquared() []float64 {
	return slices.Clone(ix.distancesSquared)
}

// CrossingsAfter returns a copy of the cumulative count array.
func (ix *CrossingIndex) CrossingsAfter() []int {
	return slices.Clone(ix.crossingsAfter)
}

// MaxRadius returns the distance of the farthest breakpoint.
func (ix *CrossingIndex) MaxRadius() (float64, error) {
	if ix.Len() == 0 {
		return 0, ErrEmptyIndex
	}
	return math.Sqrt(ix.distancesSquared[len(ix.distancesSquared)-1]), nil
}

// CrossingsAt returns the crossing count at squared distance d2.
//
// Below the first breakpoint the structure is assumed to still cross once;
// beyond the last one nothing remains.
func (ix *CrossingIndex) CrossingsAt(d2 float64) (int, error) {
	if ix.Len() == 0 {
		return 0, ErrEmptyIndex
	}
	if d2 < 0 || math.IsNaN(d2) {
		return 0, fmt.Errorf("%v: %w", d2, ErrInvalidDistance)
	}
	return ix.crossingsAt(d2), nil
}

// crossingsAt assumes a non-empty index and a valid d2.
func (ix *CrossingIndex) crossingsAt(d2 float64) int {
	ds := ix.distancesSquared
	if d2 < ds[0] {
		return 1
	}
	if d2 > ds[len(ds)-1] {
		return 0
	}
	// greatest i with ds[i] <= d2
	i := sort.Search(len(ds), func(i int) bool { return ds[i] > d2 }) - 1
	return ix.crossingsAfter[i]
}

// ValueRange returns the smallest and largest values CrossingsAt can return.
func (ix *CrossingIndex) ValueRange() (lo, hi int, err error) {
	if ix.Len() == 0 {
		return 0, 0, ErrEmptyIndex
	}
	vals := make([]float64, 0, len(ix.crossingsAfter)+2)
	vals = append(vals, 0, 1)
	for _, c := range ix.crossingsAfter {
		vals = append(vals, float64(c))
	}
	return int(floats.Min(vals)), int(floats.Max(vals)), nil
}
