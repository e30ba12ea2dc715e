package siteinfo

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

const (
	sketchRawCap = 256
	sketchNBins  = 128
)

// MedianSketch is a small mergeable sketch for approximate quantiles.
// Values are kept verbatim up to a cap; past it the sketch collapses
// into fixed-width weighted bins so that memory stays bounded and two
// sketches can merge without revisiting raw data.
type MedianSketch struct {
	raw    []float64
	bins   map[float64]float64
	origin float64
	binW   float64
	n      int64
}

func NewMedianSketch() *MedianSketch { return &MedianSketch{} }

// N returns the number of values added.
func (s *MedianSketch) N() int64 { return s.n }

func (s *MedianSketch) Add(v float64) {
	s.n++
	if s.bins != nil {
		s.bins[s.binCenter(v)]++
		return
	}
	s.raw = append(s.raw, v)
	if len(s.raw) > sketchRawCap {
		s.collapse()
	}
}

// Merge folds o into s.  o is unmodified.
func (s *MedianSketch) Merge(o *MedianSketch) {
	if o == nil || o.n == 0 {
		return
	}
	if s.bins == nil && o.bins == nil {
		s.raw = append(s.raw, o.raw...)
		s.n += o.n
		if len(s.raw) > sketchRawCap {
			s.collapse()
		}
		return
	}
	if s.bins == nil {
		s.collapse()
	}
	for _, v := range o.raw {
		s.bins[s.binCenter(v)]++
	}
	for c, w := range o.bins {
		s.bins[s.binCenter(c)] += w
	}
	s.n += o.n
}

func (s *MedianSketch) binCenter(v float64) float64 {
	return s.origin + math.Floor((v-s.origin)/s.binW)*s.binW + s.binW/2
}

func (s *MedianSketch) collapse() {
	s.bins = make(map[float64]float64, sketchNBins)
	s.origin, s.binW = 0, 1
	if len(s.raw) > 0 {
		min, max := floats.Min(s.raw), floats.Max(s.raw)
		s.origin = min
		if w := (max - min) / sketchNBins; w > 0 {
			s.binW = w
		}
	}
	for _, v := range s.raw {
		s.bins[s.binCenter(v)]++
	}
	s.raw = nil
}

// Quantile returns the p-quantile of the added values, or 0 when the
// sketch is empty.
func (s *MedianSketch) Quantile(p float64) float64 {
	if s.n == 0 {
		return 0
	}
	if s.bins == nil {
		xs := append([]float64(nil), s.raw...)
		sort.Float64s(xs)
		return stat.Quantile(p, stat.Empirical, xs, nil)
	}
	xs := make([]float64, 0, len(s.bins))
	for c := range s.bins {
		xs = append(xs, c)
	}
	sort.Float64s(xs)
	ws := make([]float64, len(xs))
	for i, c := range xs {
		ws[i] = s.bins[c]
	}
	return stat.Quantile(p, stat.Empirical, xs, ws)
}

// Median returns the approximate median, or 0 when empty.
func (s *MedianSketch) Median() float64 { return s.Quantile(0.5) }
