package locus

import (
	"fmt"
	"math"
)

// PosType is the integer type used to represent genomic positions.
// Positions are 1-based, matching the VCF/GVCF convention.
type PosType int32

// PosTypeMax is the maximum value representable by a PosType.
const PosTypeMax = math.MaxInt32

// Locus identifies a single reference position as a (contig, position)
// pair.  It is an immutable value type; ordering is defined by
// Genome.Compare, not by the struct itself.
type Locus struct {
	Contig string
	Pos    PosType
}

func (l Locus) String() string {
	return fmt.Sprintf("%s:%d", l.Contig, l.Pos)
}

// SameContig returns whether two loci are on the same contig.
func SameContig(a, b Locus) bool { return a.Contig == b.Contig }
