package siteinfo

import (
	"github.com/pkg/errors"

	"github.com/grailbio/sparse/locus"
	"github.com/grailbio/sparse/sparse"
)

// AdjFunc reports whether an entry's genotype call passes a
// high-quality filter.
type AdjFunc func(e *sparse.Entry) bool

// DefaultAdj is the usual "adj" criterion: GQ >= 20, DP >= 10, and for
// heterozygous calls an allele balance of at least 0.2 for each carried
// alternate allele.  Entries without allele depths pass the balance
// check vacuously.
func DefaultAdj(e *sparse.Entry) bool {
	if e.GQ < 20 || e.DP < 10 || e.GT.IsMissing() {
		return false
	}
	if len(e.GT) == 2 && e.GT[0] != e.GT[1] && e.DP > 0 && len(e.LAD) > 0 {
		for _, a := range e.GT {
			if a <= 0 || int(a) >= len(e.LAD) {
				continue
			}
			if float64(e.LAD[a])/float64(e.DP) < 0.2 {
				return false
			}
		}
	}
	return true
}

// AlleleCountRow holds per-alternate-allele counts for one row; index 0
// is allele 1.
type AlleleCountRow struct {
	Locus   locus.Locus
	Alleles []string
	// AC counts alleles over adj-passing genotypes.
	AC []int32
	// ACRaw counts alleles over every called genotype.
	ACRaw []int32
}

// AlleleCounts tallies alternate-allele observations per row, both raw
// and restricted to genotypes passing adj.  A nil adj uses DefaultAdj.
func AlleleCounts(m *sparse.Matrix, adj AdjFunc) []AlleleCountRow {
	if adj == nil {
		adj = DefaultAdj
	}
	out := make([]AlleleCountRow, 0, len(m.Rows))
	for i := range m.Rows {
		row := &m.Rows[i]
		nAlt := row.NAltAlleles()
		r := AlleleCountRow{
			Locus:   row.Locus,
			Alleles: row.Alleles,
			AC:      make([]int32, nAlt),
			ACRaw:   make([]int32, nAlt),
		}
		for _, e := range row.Entries {
			if e == nil {
				continue
			}
			oh := e.GT.OneHot(len(row.Alleles), e.LA)
			pass := adj(e)
			for ai := 1; ai <= nAlt; ai++ {
				c := oh[ai]
				r.ACRaw[ai-1] += c
				if pass {
					r.AC[ai-1] += c
				}
			}
		}
		out = append(out, r)
	}
	return out
}

// AttachAlleleCounts folds allele counts into site-level stats as the
// AC and AC_raw INFO fields.  counts must come from AlleleCounts on the
// same matrix, so the two slices align row for row.
func AttachAlleleCounts(stats []SiteStat, counts []AlleleCountRow) error {
	if len(stats) != len(counts) {
		return errors.Errorf("attach allele counts: %d stat rows vs %d count rows", len(stats), len(counts))
	}
	for i := range stats {
		stats[i].IntArr["AC"] = counts[i].AC
		stats[i].IntArr["AC_raw"] = counts[i].ACRaw
	}
	return nil
}

// AttachASAlleleCounts is AttachAlleleCounts for allele-specific stats;
// the counts are already per alternate allele, so they slot directly
// into the AS layout.
func AttachASAlleleCounts(stats []ASStat, counts []AlleleCountRow) error {
	if len(stats) != len(counts) {
		return errors.Errorf("attach allele counts: %d stat rows vs %d count rows", len(stats), len(counts))
	}
	for i := range stats {
		stats[i].Int["AC"] = counts[i].AC
		stats[i].Int["AC_raw"] = counts[i].ACRaw
	}
	return nil
}
