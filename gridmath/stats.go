// Package gridmath provides numerical reductions and finite-difference
// stencils over sparse voxel trees.
package gridmath

import (
	"math"

	"github.com/pkg/errors"
)

// Extrema tracks the minimum and maximum of a weighted sample stream.
type Extrema struct {
	count    uint64
	min, max float64
}

// NewExtrema returns an empty reducer.
func NewExtrema() Extrema {
	return Extrema{min: math.Inf(1), max: math.Inf(-1)}
}

// Add folds one sample into the reducer.
func (e *Extrema) Add(v float64) { e.AddN(v, 1) }

// AddN folds n copies of v, as produced by a constant tile, into the reducer.
func (e *Extrema) AddN(v float64, n uint64) {
	if n == 0 {
		return
	}
	e.count += n
	e.min = math.Min(e.min, v)
	e.max = math.Max(e.max, v)
}

// Join merges another reducer into this one.
func (e *Extrema) Join(o Extrema) {
	e.count += o.count
	e.min = math.Min(e.min, o.min)
	e.max = math.Max(e.max, o.max)
}

// Size returns the number of samples folded in.
func (e *Extrema) Size() uint64 { return e.count }

// Min returns the smallest sample, or +Inf when empty.
func (e *Extrema) Min() float64 { return e.min }

// Max returns the largest sample, or -Inf when empty.
func (e *Extrema) Max() float64 { return e.max }

// Range returns max-min, or zero when empty.
func (e *Extrema) Range() float64 {
	if e.count == 0 {
		return 0
	}
	return e.max - e.min
}

// Stats extends Extrema with mean, variance, and standard deviation. Partial
// reducers merge exactly, so it can be used with parallel reduction.
type Stats struct {
	Extrema
	mean float64
	m2   float64 // sum of squared deviations from the mean
}

// NewStats returns an empty reducer.
func NewStats() Stats {
	return Stats{Extrema: NewExtrema()}
}

// Add folds one sample into the reducer.
func (s *Stats) Add(v float64) { s.AddN(v, 1) }

// AddN folds n copies of v into the reducer.
func (s *Stats) AddN(v float64, n uint64) {
	if n == 0 {
		return
	}
	prev := s.count
	s.Extrema.AddN(v, n)
	delta := v - s.mean
	total := float64(prev + n)
	s.mean += delta * float64(n) / total
	s.m2 += delta * delta * float64(prev) * float64(n) / total
}

// Join merges another reducer into this one.
func (s *Stats) Join(o Stats) {
	if o.count == 0 {
		return
	}
	if s.count == 0 {
		*s = o
		return
	}
	prev := s.count
	delta := o.mean - s.mean
	total := float64(prev + o.count)
	s.Extrema.Join(o.Extrema)
	s.mean += delta * float64(o.count) / total
	s.m2 += o.m2 + delta*delta*float64(prev)*float64(o.count)/total
}

// Mean returns the arithmetic mean of the samples.
func (s *Stats) Mean() float64 { return s.mean }

// Variance returns the population variance.
func (s *Stats) Variance() float64 {
	if s.count == 0 {
		return 0
	}
	return s.m2 / float64(s.count)
}

// StdDev returns the population standard deviation.
func (s *Stats) StdDev() float64 { return math.Sqrt(s.Variance()) }

// Histogram counts weighted samples into uniform bins over [min, max].
type Histogram struct {
	min, max float64
	counts   []uint64
	total    uint64
	over     uint64
	under    uint64
}

// NewHistogram returns a histogram with numBins uniform bins spanning
// [min, max]. It returns an error when the range is empty or numBins is not
// positive.
func NewHistogram(min, max float64, numBins int) (*Histogram, error) {
	if !(min < max) {
		return nil, errors.Errorf("histogram range [%g, %g] is empty", min, max)
	}
	if numBins <= 0 {
		return nil, errors.Errorf("histogram needs a positive bin count, got %d", numBins)
	}
	return &Histogram{min: min, max: max, counts: make([]uint64, numBins)}, nil
}

// Add folds one sample into the histogram.
func (h *Histogram) Add(v float64) { h.AddN(v, 1) }

// AddN folds n copies of v into the histogram. Samples outside the range are
// counted separately and excluded from the bins.
func (h *Histogram) AddN(v float64, n uint64) {
	switch {
	case v < h.min:
		h.under += n
		return
	case v > h.max:
		h.over += n
		return
	}
	bin := int(float64(len(h.counts)) * (v - h.min) / (h.max - h.min))
	if bin == len(h.counts) {
		bin--
	}
	h.counts[bin] += n
	h.total += n
}

// Join merges another histogram into this one. Both histograms must share the
// same range and bin count.
func (h *Histogram) Join(o *Histogram) error {
	if h.min != o.min || h.max != o.max || len(h.counts) != len(o.counts) {
		return errors.New("histograms with different ranges cannot be joined")
	}
	for i, c := range o.counts {
		h.counts[i] += c
	}
	h.total += o.total
	h.over += o.over
	h.under += o.under
	return nil
}

// NumBins returns the number of bins.
func (h *Histogram) NumBins() int { return len(h.counts) }

// Count returns the number of in-range samples in bin i.
func (h *Histogram) Count(i int) uint64 { return h.counts[i] }

// Total returns the number of in-range samples.
func (h *Histogram) Total() uint64 { return h.total }

// Outliers returns the number of samples that fell outside the range.
func (h *Histogram) Outliers() uint64 { return h.under + h.over }

// BinBounds returns the value range covered by bin i.
func (h *Histogram) BinBounds(i int) (float64, float64) {
	w := (h.max - h.min) / float64(len(h.counts))
	return h.min + float64(i)*w, h.min + float64(i+1)*w
}
