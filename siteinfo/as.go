package siteinfo

import (
	"math"

	"github.com/grailbio/base/log"
	"github.com/grailbio/sparse/locus"
	"github.com/grailbio/sparse/sparse"
)

// ASStat holds allele-specific aggregates for one row.  Scalar and
// array fields map to a slice with one element per alternate allele
// (index 0 is allele 1).
type ASStat struct {
	Locus   locus.Locus
	Alleles []string
	Num     map[string][]float64
	Int     map[string][]int32
	Arr     map[string][][]float64
	// SBTable is AS_SB_TABLE: row 0 is the ref bucket summed over all
	// alternate alleles, followed by one [fwd, rev] row per alternate
	// allele (nil for alleles no entry contributed to).
	SBTable [][]int32
	// FS is AS_FS, one value per alternate allele; present only when
	// Opts.FSFromSB is set and SB was requested.  Alleles without a
	// defined strand-bias vector get NaN rather than a statistic
	// computed from an all-zero table.
	FS []float64
}

// laContains reports whether allele index ai (in the row's allele
// numbering) appears in an entry's local-allele list.  An empty list is
// the identity mapping.
func laContains(la []int32, ai int32, nAlleles int) bool {
	if len(la) == 0 {
		return int(ai) < nAlleles
	}
	for _, v := range la {
		if v == ai {
			return true
		}
	}
	return false
}

// ASInfo computes allele-specific INFO statistics: for each alternate
// allele of each row, fields aggregate over the entries whose
// local-allele list includes that allele.  Output names take the AS_
// prefix and the strand-bias aggregate becomes the combined
// AS_SB_TABLE.
func ASInfo(m *sparse.Matrix, cfg AggConfig, opts Opts) ([]ASStat, error) {
	plan, err := newAggPlan(m, cfg, "AS_")
	if err != nil {
		return nil, err
	}
	if plan.dpRequested() {
		log.Printf("siteinfo: AS_DP sums raw depth over allele carriers; densify first if block-weighted depth is wanted")
	}
	stats := make([]ASStat, 0, len(m.Rows))
	for i := range m.Rows {
		row := &m.Rows[i]
		nAlt := row.NAltAlleles()
		perAllele := make([]SiteStat, nAlt)
		for ai := 1; ai <= nAlt; ai++ {
			agg := newRowAgg(plan)
			for _, e := range row.Entries {
				if e == nil || !laContains(e.LA, int32(ai), len(row.Alleles)) {
					continue
				}
				agg.add(e, row.Locus.Pos, addOpts{nonDP: true})
			}
			st := newSiteStat(row.Locus, row.Alleles)
			agg.finish(&st)
			perAllele[ai-1] = st
		}

		out := ASStat{
			Locus:   row.Locus,
			Alleles: row.Alleles,
			Num:     make(map[string][]float64),
			Int:     make(map[string][]int32),
			Arr:     make(map[string][][]float64),
		}
		for ai := range perAllele {
			st := &perAllele[ai]
			for k, v := range st.Num {
				if out.Num[k] == nil {
					out.Num[k] = make([]float64, nAlt)
				}
				out.Num[k][ai] = v
			}
			for k, v := range st.Int {
				if out.Int[k] == nil {
					out.Int[k] = make([]int32, nAlt)
				}
				out.Int[k][ai] = v
			}
			for k, v := range st.Arr {
				if out.Arr[k] == nil {
					out.Arr[k] = make([][]float64, nAlt)
				}
				out.Arr[k][ai] = v
			}
		}

		if plan.sbOut != "" {
			ref := []int32{0, 0}
			altRows := make([][]int32, nAlt)
			for ai := range perAllele {
				v := perAllele[ai].IntArr[plan.sbOut]
				if len(v) >= 4 {
					ref[0] += v[0]
					ref[1] += v[1]
					altRows[ai] = v[2:4:4]
				}
			}
			out.SBTable = append([][]int32{ref}, altRows...)
			if opts.FSFromSB != nil {
				out.FS = make([]float64, nAlt)
				for ai, alt := range altRows {
					if alt == nil {
						out.FS[ai] = math.NaN()
						continue
					}
					out.FS[ai] = opts.FSFromSB([]int32{ref[0], ref[1], alt[0], alt[1]})
				}
			}
		}
		stats = append(stats, out)
	}
	return stats, nil
}
