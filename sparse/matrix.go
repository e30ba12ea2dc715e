package sparse

import (
	"fmt"

	"github.com/grailbio/sparse/locus"
)

// MissingInt marks an absent integer-valued entry field (DP, GQ).
const MissingInt = int32(-1)

// NoEnd marks an entry that does not start a reference block.
const NoEnd = locus.PosType(-1)

// Genotype is a genotype call in local-allele encoding: each element
// indexes into the entry's local allele list (0 = reference).  A nil or
// empty Genotype is a missing call.
type Genotype []int16

// IsMissing returns whether the call is absent.
func (gt Genotype) IsMissing() bool { return len(gt) == 0 }

// IsHomRef returns whether the call is homozygous-reference.
func (gt Genotype) IsHomRef() bool {
	if len(gt) == 0 {
		return false
	}
	for _, a := range gt {
		if a != 0 {
			return false
		}
	}
	return true
}

// IsNonRef returns whether the call carries at least one non-reference
// allele.
func (gt Genotype) IsNonRef() bool {
	for _, a := range gt {
		if a > 0 {
			return true
		}
	}
	return false
}

// OneHot returns per-allele call counts for this genotype against a row
// with nAlleles alleles, translating local allele indexes through la.
// An empty la is the identity mapping.  Out-of-range indexes are
// ignored rather than counted.
func (gt Genotype) OneHot(nAlleles int, la []int32) []int32 {
	counts := make([]int32, nAlleles)
	for _, a := range gt {
		if a < 0 {
			continue
		}
		global := int32(a)
		if len(la) > 0 {
			if int(a) >= len(la) {
				continue
			}
			global = la[a]
		}
		if int(global) < nAlleles {
			counts[global]++
		}
	}
	return counts
}

// InfoBag holds the per-entry info fields that are not modeled as
// top-level Entry fields, split by shape.  Both maps may be nil.
type InfoBag struct {
	Num map[string]float64
	Arr map[string][]float64
}

// Entry is one sparse (locus, sample) cell.  END >= 0 marks the entry
// as the start of a reference block ending at END (inclusive); such a
// block implies a homozygous-reference call at every covered position
// for that sample.  Blocks never cross a contig boundary (guaranteed by
// upstream data, not re-validated here).
type Entry struct {
	GT   Genotype
	DP   int32
	GQ   int32
	END  locus.PosType
	LA   []int32
	LAD  []int32
	Info InfoBag
}

// IsBlockStart returns whether the entry starts a reference block.
func (e *Entry) IsBlockStart() bool { return e.END >= 0 }

// BlockSpan returns the number of positions covered by the entry's
// reference block starting at pos ([pos, END] inclusive), or 1 for a
// non-block entry.  This is the weight a run-length-encoded entry
// carries in depth sums.
func (e *Entry) BlockSpan(pos locus.PosType) int64 {
	if e == nil || e.END < pos {
		return 1
	}
	return int64(e.END-pos) + 1
}

// Row is one explicit matrix row: a locus, its allele list (reference
// allele first), and one entry per sample.  A nil entry is a missing
// cell.
type Row struct {
	Locus   locus.Locus
	Alleles []string
	Entries []*Entry
}

// NAltAlleles returns the number of alternate alleles at the row.
func (r *Row) NAltAlleles() int {
	if len(r.Alleles) == 0 {
		return 0
	}
	return len(r.Alleles) - 1
}

// Matrix is a sparse call matrix: ordered rows over a fixed sample set.
// The matrix is read-only once built; all algorithms in this module
// consume it as an immutable snapshot and produce new outputs.
type Matrix struct {
	Genome  *locus.Genome
	Samples []string
	Rows    []Row
}

// Check validates the structural invariants: every row has one entry
// slot per sample, every locus maps to a known contig, and rows are
// strictly increasing in genome order.
func (m *Matrix) Check() error {
	for i := range m.Rows {
		row := &m.Rows[i]
		if len(row.Entries) != len(m.Samples) {
			return fmt.Errorf("sparse: row %v has %d entries for %d samples",
				row.Locus, len(row.Entries), len(m.Samples))
		}
		if i == 0 {
			if _, err := m.Genome.ContigID(row.Locus.Contig); err != nil {
				return err
			}
			continue
		}
		c, err := m.Genome.Compare(m.Rows[i-1].Locus, row.Locus)
		if err != nil {
			return err
		}
		if c >= 0 {
			return fmt.Errorf("sparse: rows out of order at %v", row.Locus)
		}
	}
	return nil
}
