// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package coverage computes per-position depth-of-coverage summaries
// over a sparse call matrix: mean and median sample depth, total depth,
// and the fraction of samples at or above configured thresholds.  An
// optional reference index extends the output to positions absent from
// the matrix.
package coverage

import (
	"github.com/grailbio/base/traverse"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat"

	"github.com/grailbio/sparse/locus"
	"github.com/grailbio/sparse/siteinfo"
	"github.com/grailbio/sparse/sparse"
)

// Row is the coverage summary for one position.  Over holds, per
// configured threshold t, the fraction of samples with depth >= t.
type Row struct {
	Locus   locus.Locus
	Mean    float64
	Median  float64
	TotalDP int64
	Over    []float64
}

// Opts configures Stats.
type Opts struct {
	// Densify overrides the densification primitive; nil uses
	// sparse.Densify.
	Densify sparse.DensifyFunc
}

// Stats computes a coverage Row per position.  When refIndex is
// non-nil it defines the output positions: index loci absent from the
// matrix get all-zero summaries (modulo reference blocks overlapping
// them), and matrix rows absent from the index are used for
// densification but not reported.  thresholds must be positive and
// strictly increasing.
//
// Depth bins are bounded by the largest threshold: a sample's depth is
// clamped there before binning, which cannot change any reported
// fraction since the clamp point is the last threshold itself.
func Stats(m *sparse.Matrix, refIndex []locus.Locus, thresholds []int, opts Opts) ([]Row, error) {
	if len(thresholds) == 0 {
		return nil, errors.New("coverage: at least one threshold is required")
	}
	for i, t := range thresholds {
		if t <= 0 || (i > 0 && t <= thresholds[i-1]) {
			return nil, errors.Errorf("coverage: thresholds must be positive and strictly increasing, got %v", thresholds)
		}
	}
	if err := m.Check(); err != nil {
		return nil, err
	}

	inIndex := make([]bool, 0, len(m.Rows))
	var joined *sparse.Matrix
	if refIndex == nil {
		joined = m
		for range m.Rows {
			inIndex = append(inIndex, true)
		}
	} else {
		var err error
		joined, inIndex, err = outerJoin(m, refIndex)
		if err != nil {
			return nil, err
		}
	}

	densify := opts.Densify
	if densify == nil {
		densify = sparse.Densify
	}
	dense := densify(joined)

	kept := make([]int, 0, len(dense.Rows))
	for i := range dense.Rows {
		if inIndex[i] {
			kept = append(kept, i)
		}
	}

	tMax := thresholds[len(thresholds)-1]
	nSamples := len(m.Samples)
	out := make([]Row, len(kept))
	err := traverse.Each(len(kept), func(k int) error {
		row := &dense.Rows[kept[k]]
		counter := make([]int, tMax+1)
		sketch := siteinfo.NewMedianSketch()
		depths := make([]float64, 0, nSamples)
		var total int64
		for _, e := range row.Entries {
			// A missing entry (or missing DP) counts as depth 0 toward
			// the threshold fractions, but is excluded from the mean and
			// median, which summarize only samples with a defined depth.
			dp := 0
			if e != nil && e.DP >= 0 {
				dp = int(e.DP)
				depths = append(depths, float64(dp))
				sketch.Add(float64(dp))
			}
			total += int64(dp)
			if dp > tMax {
				dp = tMax
			}
			counter[dp]++
		}

		// Reverse cumulative sum of the bounded bins: atLeast[c] is the
		// number of samples with depth >= c.
		atLeast := make([]int, tMax+2)
		for c := tMax; c >= 0; c-- {
			atLeast[c] = atLeast[c+1] + counter[c]
		}
		over := make([]float64, len(thresholds))
		for i, t := range thresholds {
			over[i] = float64(atLeast[t]) / float64(nSamples)
		}

		mean := stat.Mean(depths, nil)
		if mean != mean { // NaN
			mean = 0
		}
		out[k] = Row{
			Locus:   row.Locus,
			Mean:    mean,
			Median:  sketch.Median(),
			TotalDP: total,
			Over:    over,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// outerJoin merges the matrix rows with the reference index in genome
// order, fabricating an all-missing row for index loci the matrix does
// not cover.  The returned flags mark which joined rows belong to the
// index.
func outerJoin(m *sparse.Matrix, refIndex []locus.Locus) (*sparse.Matrix, []bool, error) {
	for i := 1; i < len(refIndex); i++ {
		c, err := m.Genome.Compare(refIndex[i-1], refIndex[i])
		if err != nil {
			return nil, nil, err
		}
		if c >= 0 {
			return nil, nil, errors.Errorf("coverage: reference index out of order at %v", refIndex[i])
		}
	}
	if len(refIndex) > 0 {
		if _, err := m.Genome.ContigID(refIndex[0].Contig); err != nil {
			return nil, nil, err
		}
	}

	joined := &sparse.Matrix{Genome: m.Genome, Samples: m.Samples}
	var flags []bool
	i, j := 0, 0
	for i < len(m.Rows) || j < len(refIndex) {
		switch {
		case i == len(m.Rows):
			joined.Rows = append(joined.Rows, missingRow(refIndex[j], len(m.Samples)))
			flags = append(flags, true)
			j++
		case j == len(refIndex):
			joined.Rows = append(joined.Rows, m.Rows[i])
			flags = append(flags, false)
			i++
		default:
			c, err := m.Genome.Compare(m.Rows[i].Locus, refIndex[j])
			if err != nil {
				return nil, nil, err
			}
			switch {
			case c < 0:
				joined.Rows = append(joined.Rows, m.Rows[i])
				flags = append(flags, false)
				i++
			case c > 0:
				joined.Rows = append(joined.Rows, missingRow(refIndex[j], len(m.Samples)))
				flags = append(flags, true)
				j++
			default:
				joined.Rows = append(joined.Rows, m.Rows[i])
				flags = append(flags, true)
				i++
				j++
			}
		}
	}
	return joined, flags, nil
}

func missingRow(l locus.Locus, nSamples int) sparse.Row {
	return sparse.Row{Locus: l, Entries: make([]*sparse.Entry, nSamples)}
}
