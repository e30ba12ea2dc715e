package siteinfo

import (
	"math"

	"github.com/grailbio/sparse/locus"
	"github.com/grailbio/sparse/sparse"
)

// SiteStat is one aggregated output row: named numeric, integer and
// array statistics keyed by output field name.
type SiteStat struct {
	Locus   locus.Locus
	Alleles []string
	Num     map[string]float64
	Int     map[string]int32
	Arr     map[string][]float64
	IntArr  map[string][]int32
}

func newSiteStat(l locus.Locus, alleles []string) SiteStat {
	return SiteStat{
		Locus:   l,
		Alleles: alleles,
		Num:     make(map[string]float64),
		Int:     make(map[string]int32),
		Arr:     make(map[string][]float64),
		IntArr:  make(map[string][]int32),
	}
}

type addOpts struct {
	// nonDP gates every field except DP; in site mode it is the entry's
	// non-ref predicate, in allele-specific mode always true.
	nonDP bool
	// weightDP multiplies DP contributions by the entry's block span, so
	// that reference blocks count once per covered base.
	weightDP bool
}

// rowAgg is the in-flight aggregation state for one output row (or one
// allele of a row in allele-specific mode).
type rowAgg struct {
	plan *aggPlan
	sums map[string]float64
	ints map[string]int64
	meds map[string]*MedianSketch
	arrs map[string][]float64
}

func newRowAgg(p *aggPlan) *rowAgg {
	a := &rowAgg{
		plan: p,
		sums: make(map[string]float64, len(p.sums)),
		ints: make(map[string]int64, len(p.intSums)),
		meds: make(map[string]*MedianSketch, len(p.medians)),
		arrs: make(map[string][]float64, len(p.arrays)),
	}
	for _, f := range p.medians {
		a.meds[f.out] = NewMedianSketch()
	}
	return a
}

func (a *rowAgg) add(e *sparse.Entry, pos locus.PosType, opts addOpts) {
	for _, f := range a.plan.sums {
		if !f.isDP && !opts.nonDP {
			continue
		}
		if v, ok := f.src.value(e); ok {
			if f.isDP && opts.weightDP {
				v *= float64(e.BlockSpan(pos))
			}
			a.sums[f.out] += v
		}
	}
	for _, f := range a.plan.intSums {
		if !f.isDP && !opts.nonDP {
			continue
		}
		if v, ok := f.src.value(e); ok {
			if f.isDP && opts.weightDP {
				v *= float64(e.BlockSpan(pos))
			}
			a.ints[f.out] += int64(v)
		}
	}
	if opts.nonDP {
		for _, f := range a.plan.medians {
			if v, ok := f.src.value(e); ok {
				a.meds[f.out].Add(v)
			}
		}
		for _, f := range a.plan.arrays {
			vals, ok := f.src.values(e)
			if !ok {
				continue
			}
			acc := a.arrs[f.out]
			if acc == nil {
				acc = make([]float64, len(vals))
				a.arrs[f.out] = acc
			}
			for i := 0; i < len(acc) && i < len(vals); i++ {
				acc[i] += vals[i]
			}
		}
	}
}

// merge folds b into a; both must share a plan.
func (a *rowAgg) merge(b *rowAgg) {
	for k, v := range b.sums {
		a.sums[k] += v
	}
	for k, v := range b.ints {
		a.ints[k] += v
	}
	for k, s := range b.meds {
		a.meds[k].Merge(s)
	}
	for k, vals := range b.arrs {
		acc := a.arrs[k]
		if acc == nil {
			a.arrs[k] = append([]float64(nil), vals...)
			continue
		}
		for i := 0; i < len(acc) && i < len(vals); i++ {
			acc[i] += vals[i]
		}
	}
}

// finish materializes the aggregates into st and applies the planned
// derived-field rules.  Scalar outputs are always written (0 when no
// entry contributed); array outputs are written only when at least one
// entry contributed, so downstream code can tell a defined zero table
// from no table at all.
func (a *rowAgg) finish(st *SiteStat) {
	p := a.plan
	for _, f := range p.sums {
		st.Num[f.out] = a.sums[f.out]
	}
	for _, f := range p.intSums {
		st.Int[f.out] = int32(a.ints[f.out])
	}
	for _, f := range p.medians {
		st.Num[f.out] = a.meds[f.out].Median()
	}
	for _, f := range p.arrays {
		if vals, ok := a.arrs[f.out]; ok {
			st.Arr[f.out] = vals
		}
	}

	switch p.mq {
	case mqFromRawMQandDP:
		mq := 0.0
		if vals := st.Arr[p.prefix+"RAW_MQandDP"]; len(vals) >= 2 && vals[1] > 0 {
			mq = math.Sqrt(vals[0] / vals[1])
		}
		st.Num[p.prefix+"MQ"] = mq
		delete(st.Arr, p.prefix+"RAW_MQandDP")
	case mqFromPair:
		rawMQ := takeScalar(st, p.prefix+"RAW_MQ")
		mqDP := takeScalar(st, p.prefix+"MQ_DP")
		mq := 0.0
		if rawMQ > 0 {
			mq = math.Sqrt(mqDP / rawMQ)
		}
		st.Num[p.prefix+"MQ"] = mq
	}

	if p.computeQD {
		qd := 0.0
		varDP := float64(st.Int[p.prefix+"VarDP"])
		if v, ok := st.Num[p.prefix+"VarDP"]; ok {
			varDP = v
		}
		if varDP > 0 {
			qd = st.Num[p.prefix+"QUALapprox"] / varDP
		}
		st.Num[p.prefix+"QD"] = qd
	}

	if p.sbOut != "" {
		if vals, ok := st.Arr[p.prefix+"SB"]; ok {
			ints := make([]int32, len(vals))
			for i, v := range vals {
				ints[i] = int32(v)
			}
			st.IntArr[p.sbOut] = ints
			delete(st.Arr, p.prefix+"SB")
		}
	}
}

// takeScalar pops a named scalar from whichever group holds it.
func takeScalar(st *SiteStat, key string) float64 {
	if v, ok := st.Num[key]; ok {
		delete(st.Num, key)
		return v
	}
	if v, ok := st.Int[key]; ok {
		delete(st.Int, key)
		return float64(v)
	}
	return 0
}
