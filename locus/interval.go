package locus

import "sort"

// Interval is a contig-scoped position range, stored half-open as
// [Start, End).  GVCF reference blocks use an inclusive end position;
// NewInterval converts between the two conventions.
type Interval struct {
	Contig string
	Start  PosType
	End    PosType
}

// NewInterval builds an interval on the given contig covering
// [start, end), or [start, end] when includesEnd is set.  The contig
// must be known to g.
func NewInterval(g *Genome, contig string, start, end PosType, includesEnd bool) (Interval, error) {
	if _, err := g.ContigID(contig); err != nil {
		return Interval{}, err
	}
	if includesEnd {
		end++
	}
	return Interval{Contig: contig, Start: start, End: end}, nil
}

// Contains returns whether l falls inside v.
func (v Interval) Contains(l Locus) bool {
	return l.Contig == v.Contig && l.Pos >= v.Start && l.Pos < v.End
}

// Len returns the number of positions covered by v.
func (v Interval) Len() PosType {
	if v.End <= v.Start {
		return 0
	}
	return v.End - v.Start
}

// Overlaps returns whether v and w share at least one position.
func (v Interval) Overlaps(w Interval) bool {
	return v.Contig == w.Contig && v.Start < w.End && w.Start < v.End
}

// Union merges intervals into a minimal list of disjoint intervals,
// sorted by the genome's contig order and then by start position.
// Abutting intervals are coalesced.  Empty intervals are dropped.  An
// interval on an unknown contig yields an InvalidContigError.
func Union(g *Genome, intervals []Interval) ([]Interval, error) {
	type keyed struct {
		id int
		iv Interval
	}
	keyedIvs := make([]keyed, 0, len(intervals))
	for _, iv := range intervals {
		if iv.Len() == 0 {
			continue
		}
		id, err := g.ContigID(iv.Contig)
		if err != nil {
			return nil, err
		}
		keyedIvs = append(keyedIvs, keyed{id: id, iv: iv})
	}
	sort.Slice(keyedIvs, func(i, j int) bool {
		if keyedIvs[i].id != keyedIvs[j].id {
			return keyedIvs[i].id < keyedIvs[j].id
		}
		return keyedIvs[i].iv.Start < keyedIvs[j].iv.Start
	})
	var out []Interval
	for _, k := range keyedIvs {
		if n := len(out); n > 0 && out[n-1].Contig == k.iv.Contig && k.iv.Start <= out[n-1].End {
			if k.iv.End > out[n-1].End {
				out[n-1].End = k.iv.End
			}
			continue
		}
		out = append(out, k.iv)
	}
	return out, nil
}
