package siteinfo

import (
	"github.com/grailbio/base/log"
	"github.com/grailbio/sparse/sparse"
)

// Opts supplies the external collaborators of the aggregation pipeline.
type Opts struct {
	// FSFromSB computes a Fisher-strand style statistic from a flattened
	// 2x2 strand-bias table [refFwd, refRev, altFwd, altRev].  FS and
	// AS_FS are emitted only when it is set and SB is among the
	// requested array fields.
	FSFromSB func(sb []int32) float64
}

// SiteInfo folds per-sample entries into site-level INFO statistics,
// one SiteStat per row.  Every field aggregates over entries whose
// genotype carries at least one alternate allele, except DP which (when
// requested) aggregates over all genotypes with reference blocks
// weighted by their span; DP therefore expects input that has not been
// densified into per-base rows.
func SiteInfo(m *sparse.Matrix, cfg AggConfig, opts Opts) ([]SiteStat, error) {
	plan, err := newAggPlan(m, cfg, "")
	if err != nil {
		return nil, err
	}
	if plan.dpRequested() {
		log.Printf("siteinfo: DP aggregates over all genotypes; reference blocks contribute span-weighted depth")
	}
	stats := make([]SiteStat, 0, len(m.Rows))
	for i := range m.Rows {
		row := &m.Rows[i]
		agg := newRowAgg(plan)
		for _, e := range row.Entries {
			if e == nil {
				continue
			}
			agg.add(e, row.Locus.Pos, addOpts{nonDP: e.GT.IsNonRef(), weightDP: true})
		}
		st := newSiteStat(row.Locus, row.Alleles)
		agg.finish(&st)
		if plan.sbOut != "" && opts.FSFromSB != nil {
			if sb, ok := st.IntArr[plan.sbOut]; ok {
				st.Num["FS"] = opts.FSFromSB(sb)
			}
		}
		stats = append(stats, st)
	}
	return stats, nil
}
