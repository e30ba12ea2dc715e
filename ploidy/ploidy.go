// Package ploidy imputes sex-chromosome ploidy from a sparse call
// matrix by normalizing X and Y depth of coverage against an autosomal
// contig.  Reference blocks contribute span-weighted depth, so the
// matrix does not need to be densified first.
package ploidy

import (
	"fmt"
	"strings"

	"github.com/grailbio/base/traverse"

	"github.com/grailbio/sparse/locus"
	"github.com/grailbio/sparse/sparse"
)

// AmbiguousContigError reports that a sex-chromosome contig could not
// be chosen automatically: the genome defines zero or several
// candidates and no override was given.
type AmbiguousContigError struct {
	Class      locus.ContigClass
	Candidates []string
}

func (e *AmbiguousContigError) Error() string {
	return fmt.Sprintf("ploidy: found %d %s contigs (%s); specify one explicitly",
		len(e.Candidates), e.Class, strings.Join(e.Candidates, ","))
}

// Opts configures ImputeSexPloidy.
type Opts struct {
	// NormalizationContig is the autosome depth is normalized against.
	// Defaults to chr20.
	NormalizationContig string
	// ChrX and ChrY override the automatic sex-contig choice.  Required
	// when the genome defines more or fewer than one contig of the
	// corresponding class.
	ChrX string
	ChrY string
	// Included restricts both the callable size and the depth sums to
	// these intervals.  Required for exome data.
	Included []locus.Interval
	// Excluded is subtracted from the callable size.
	Excluded []locus.Interval
}

// DefaultOpts returns the default ImputeSexPloidy options.
func DefaultOpts() Opts {
	return Opts{NormalizationContig: "chr20"}
}

// SampleStats is the per-sample result: mean depth per inspected contig
// and the normalized X and Y ploidies.
type SampleStats struct {
	Sample string
	// MeanDP maps each inspected contig name to the sample's mean depth
	// over that contig's callable bases.
	MeanDP  map[string]float64
	XPloidy float64
	YPloidy float64
}

// ImputeSexPloidy computes per-sample X and Y ploidy estimates:
// mean depth over each sex contig divided by half the mean depth over
// the normalization contig.  Degenerate normalization depth yields a
// ploidy of 0.
func ImputeSexPloidy(m *sparse.Matrix, opts Opts) ([]SampleStats, error) {
	if err := m.Check(); err != nil {
		return nil, err
	}
	g := m.Genome
	norm := opts.NormalizationContig
	if norm == "" {
		norm = "chr20"
	}
	if _, err := g.ContigID(norm); err != nil {
		return nil, err
	}
	chrX, err := pickContig(g, locus.ClassX, opts.ChrX)
	if err != nil {
		return nil, err
	}
	chrY, err := pickContig(g, locus.ClassY, opts.ChrY)
	if err != nil {
		return nil, err
	}

	included, err := locus.Union(g, opts.Included)
	if err != nil {
		return nil, err
	}
	excluded, err := locus.Union(g, opts.Excluded)
	if err != nil {
		return nil, err
	}

	contigs := []string{norm, chrX, chrY}
	means := make([][]float64, len(contigs))
	err = traverse.Each(len(contigs), func(i int) error {
		var err error
		means[i], err = contigMeanDP(m, contigs[i], hasIncluded(opts.Included), included, excluded)
		return err
	})
	if err != nil {
		return nil, err
	}

	stats := make([]SampleStats, len(m.Samples))
	for s, sample := range m.Samples {
		st := SampleStats{Sample: sample, MeanDP: make(map[string]float64, len(contigs))}
		for i, contig := range contigs {
			st.MeanDP[contig] = means[i][s]
		}
		half := st.MeanDP[norm] / 2
		if half > 0 {
			st.XPloidy = st.MeanDP[chrX] / half
			st.YPloidy = st.MeanDP[chrY] / half
		}
		stats[s] = st
	}
	return stats, nil
}

func hasIncluded(included []locus.Interval) bool { return len(included) > 0 }

func pickContig(g *locus.Genome, class locus.ContigClass, override string) (string, error) {
	if override != "" {
		if _, err := g.ContigID(override); err != nil {
			return "", err
		}
		return override, nil
	}
	candidates := g.ContigsOfClass(class)
	if len(candidates) != 1 {
		return "", &AmbiguousContigError{Class: class, Candidates: candidates}
	}
	return candidates[0], nil
}

// contigMeanDP returns per-sample mean depth over the contig's callable
// bases: hom-ref entries contribute DP weighted by their block span,
// non-ref entries contribute DP once.  Rows outside the included
// intervals are skipped; excluded intervals only shrink the callable
// size, matching how exome calling regions are usually accounted.
func contigMeanDP(m *sparse.Matrix, contig string, restrict bool, included, excluded []locus.Interval) ([]float64, error) {
	size, err := callableSize(m.Genome, contig, restrict, included, excluded)
	if err != nil {
		return nil, err
	}
	sums := make([]float64, len(m.Samples))
	if size == 0 {
		return sums, nil
	}
	for i := range m.Rows {
		row := &m.Rows[i]
		if row.Locus.Contig != contig {
			continue
		}
		if restrict && !covered(included, row.Locus) {
			continue
		}
		for s, e := range row.Entries {
			if e == nil || e.DP < 0 {
				continue
			}
			dp := float64(e.DP)
			if e.GT.IsHomRef() {
				dp *= float64(e.BlockSpan(row.Locus.Pos))
			}
			sums[s] += dp
		}
	}
	for s := range sums {
		sums[s] /= float64(size)
	}
	return sums, nil
}

// callableSize measures the contig bases considered callable: the whole
// contig (or its intersection with the included intervals) minus the
// excluded intervals.
func callableSize(g *locus.Genome, contig string, restrict bool, included, excluded []locus.Interval) (int64, error) {
	id, err := g.ContigID(contig)
	if err != nil {
		return 0, err
	}
	base := locus.Interval{Contig: contig, Start: 1, End: g.Contig(id).Length + 1}
	callable := []locus.Interval{base}
	if restrict {
		callable = callable[:0]
		for _, iv := range included {
			if iv.Contig != contig {
				continue
			}
			if clipped, ok := intersect(iv, base); ok {
				callable = append(callable, clipped)
			}
		}
	}
	var size int64
	for _, iv := range callable {
		size += int64(iv.Len())
		for _, ex := range excluded {
			if ex.Contig != contig {
				continue
			}
			if clipped, ok := intersect(ex, iv); ok {
				size -= int64(clipped.Len())
			}
		}
	}
	if size < 0 {
		size = 0
	}
	return size, nil
}

func intersect(a, b locus.Interval) (locus.Interval, bool) {
	out := locus.Interval{Contig: a.Contig, Start: a.Start, End: a.End}
	if b.Start > out.Start {
		out.Start = b.Start
	}
	if b.End < out.End {
		out.End = b.End
	}
	if out.Start >= out.End {
		return locus.Interval{}, false
	}
	return out, true
}

// covered reports whether l falls inside any of the intervals.  The
// lists here are calling regions, short enough that a scan beats
// maintaining a per-contig search structure.
func covered(intervals []locus.Interval, l locus.Locus) bool {
	for _, iv := range intervals {
		if iv.Contains(l) {
			return true
		}
	}
	return false
}
