package sparse

import (
	"fmt"

	biogointerval "github.com/biogo/store/interval"
	"github.com/grailbio/base/log"
	"github.com/grailbio/sparse/locus"
)

// Strategy selects how DensifySites restricts the matrix to the row
// range needed for a target site list.  Both strategies retain exactly
// the same rows; the choice is a performance knob, not a semantic one.
type Strategy int

const (
	// Membership keeps a row iff its locus falls inside at least one
	// target query interval, tested against a per-contig interval tree.
	// Preferred when the site list is large, since it never collects
	// the full interval list.
	Membership Strategy = iota
	// IntervalList collects all query intervals, unions them into a
	// minimal disjoint list, and filters rows into the unioned ranges.
	// Preferred when the site list is small.
	IntervalList
)

// DensifyFunc materializes open reference blocks into explicit entries
// at every row they cover.  DensifySites uses the in-package Densify
// unless the host engine supplies its own implementation.
type DensifyFunc func(*Matrix) *Matrix

// DensifySitesOpts configures DensifySites.
type DensifySitesOpts struct {
	Strategy Strategy
	Densify  DensifyFunc
}

// DensifySites returns a dense view of m restricted to the loci in
// sites, reading only the minimal row range implied by the last-END
// table: each site's query interval is [lastEnd(site), site.Pos],
// falling back to the site's own position when the table has no entry
// for it.  Sites on contigs unknown to the matrix genome cannot be
// mapped to an interval; they are skipped and returned in dropped
// rather than failing the whole operation.
func DensifySites(m *Matrix, sites []locus.Locus, lastEnds *LastEndTable, opts DensifySitesOpts) (dense *Matrix, dropped []locus.Locus, err error) {
	densify := opts.Densify
	if densify == nil {
		densify = Densify
	}
	queries := make([]locus.Interval, 0, len(sites))
	siteSet := make(map[locus.Locus]bool, len(sites))
	for _, s := range sites {
		start := s.Pos
		if p, ok := lastEnds.Lookup(s); ok {
			start = p
		}
		iv, ivErr := locus.NewInterval(m.Genome, s.Contig, start, s.Pos, true)
		if ivErr != nil {
			dropped = append(dropped, s)
			continue
		}
		queries = append(queries, iv)
		siteSet[s] = true
	}
	if len(dropped) > 0 {
		log.Printf("sparse.DensifySites: skipping %d site(s) on contigs absent from the genome", len(dropped))
	}

	var kept []Row
	switch opts.Strategy {
	case Membership:
		kept, err = filterRowsByTree(m, queries)
	case IntervalList:
		kept, err = filterRowsByUnion(m, queries)
	default:
		err = fmt.Errorf("sparse.DensifySites: unknown strategy %d", opts.Strategy)
	}
	if err != nil {
		return nil, nil, err
	}

	sub := densify(&Matrix{Genome: m.Genome, Samples: m.Samples, Rows: kept})

	// Final restriction: only loci that are themselves in the site list
	// survive; everything upstream existed solely to feed densification.
	final := &Matrix{Genome: m.Genome, Samples: m.Samples}
	for _, row := range sub.Rows {
		if siteSet[row.Locus] {
			final.Rows = append(final.Rows, row)
		}
	}
	return final, dropped, nil
}

// queryInterval adapts a locus.Interval to the biogo interval-tree
// interface.  Coordinates stay half-open.
type queryInterval struct {
	start, end int
	id         uintptr
}

func (q queryInterval) Overlap(b biogointerval.IntRange) bool {
	return q.end > b.Start && q.start < b.End
}

func (q queryInterval) Range() biogointerval.IntRange {
	return biogointerval.IntRange{Start: q.start, End: q.end}
}

func (q queryInterval) ID() uintptr { return q.id }

func filterRowsByTree(m *Matrix, queries []locus.Interval) ([]Row, error) {
	trees := make(map[string]*biogointerval.IntTree)
	for i, q := range queries {
		t := trees[q.Contig]
		if t == nil {
			t = &biogointerval.IntTree{}
			trees[q.Contig] = t
		}
		iv := queryInterval{start: int(q.Start), end: int(q.End), id: uintptr(i)}
		if err := t.Insert(iv, true); err != nil {
			return nil, err
		}
	}
	for _, t := range trees {
		t.AdjustRanges()
	}
	var kept []Row
	for _, row := range m.Rows {
		t := trees[row.Locus.Contig]
		if t == nil {
			continue
		}
		probe := queryInterval{start: int(row.Locus.Pos), end: int(row.Locus.Pos) + 1}
		if len(t.Get(probe)) > 0 {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

func filterRowsByUnion(m *Matrix, queries []locus.Interval) ([]Row, error) {
	union, err := locus.Union(m.Genome, queries)
	if err != nil {
		return nil, err
	}
	var totalLen int64
	for _, iv := range union {
		totalLen += int64(iv.Len())
	}
	log.Printf("sparse.DensifySites: %d disjoint interval(s) covering %d bp", len(union), totalLen)

	// Both union and rows are sorted in genome order, so a single merge
	// pass suffices.
	var kept []Row
	i := 0
	for _, row := range m.Rows {
		for i < len(union) {
			if union[i].Contains(row.Locus) {
				kept = append(kept, row)
				break
			}
			c, cmpErr := m.Genome.Compare(
				locus.Locus{Contig: union[i].Contig, Pos: union[i].End - 1}, row.Locus)
			if cmpErr != nil {
				return nil, cmpErr
			}
			if c >= 0 {
				// Interval is still ahead of (or straddling past) the
				// row; later rows may fall inside it.
				break
			}
			i++
		}
	}
	return kept, nil
}

// Densify materializes reference blocks in m: walking rows in order,
// every missing cell covered by an open block for that sample is
// replaced by an explicit homozygous-reference entry carrying the
// block's call, depth and quality.  Already-dense input passes through
// with identical values.  The input matrix is not modified.
func Densify(m *Matrix) *Matrix {
	type openBlock struct {
		contig string
		end    locus.PosType
		entry  *Entry
	}
	open := make([]openBlock, len(m.Samples))
	out := &Matrix{
		Genome:  m.Genome,
		Samples: m.Samples,
		Rows:    make([]Row, len(m.Rows)),
	}
	for i := range m.Rows {
		row := &m.Rows[i]
		entries := append([]*Entry(nil), row.Entries...)
		for s, e := range row.Entries {
			if e != nil {
				if e.IsBlockStart() {
					open[s] = openBlock{contig: row.Locus.Contig, end: e.END, entry: e}
				}
				continue
			}
			b := open[s]
			if b.entry != nil && b.contig == row.Locus.Contig && b.end >= row.Locus.Pos {
				entries[s] = &Entry{
					GT:  b.entry.GT,
					DP:  b.entry.DP,
					GQ:  b.entry.GQ,
					END: NoEnd,
					LA:  b.entry.LA,
					LAD: b.entry.LAD,
				}
			}
		}
		out.Rows[i] = Row{Locus: row.Locus, Alleles: row.Alleles, Entries: entries}
	}
	return out
}
