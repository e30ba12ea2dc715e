package locus

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/grailbio/hts/sam"
)

// ContigClass broadly classifies a contig for downstream consumers that
// need to tell sex chromosomes apart from autosomes (e.g. sex-ploidy
// imputation).
type ContigClass int

const (
	// ClassAutosome covers the numbered chromosomes.
	ClassAutosome ContigClass = iota
	// ClassX is the X chromosome.
	ClassX
	// ClassY is the Y chromosome.
	ClassY
	// ClassOther covers mitochondrial, decoy, alt and unplaced contigs.
	ClassOther
)

func (c ContigClass) String() string {
	switch c {
	case ClassAutosome:
		return "autosome"
	case ClassX:
		return "X"
	case ClassY:
		return "Y"
	}
	return "other"
}

// Contig describes one reference contig.
type Contig struct {
	Name   string
	Length PosType
	Class  ContigClass
}

// InvalidContigError is returned when a locus or interval references a
// contig the Genome does not know about.
type InvalidContigError struct {
	Contig string
}

func (e *InvalidContigError) Error() string {
	return fmt.Sprintf("locus: invalid contig %q", e.Contig)
}

// ClassifyContigName infers a ContigClass from common reference naming
// conventions.  "chrX"/"X" and "chrY"/"Y" map to the sex classes,
// numbered contigs (with or without a "chr" prefix) to ClassAutosome,
// and everything else (chrM, decoys, alts) to ClassOther.
func ClassifyContigName(name string) ContigClass {
	switch name {
	case "chrX", "X":
		return ClassX
	case "chrY", "Y":
		return ClassY
	}
	trimmed := strings.TrimPrefix(name, "chr")
	if _, err := strconv.Atoi(trimmed); err == nil {
		return ClassAutosome
	}
	return ClassOther
}

// Genome supplies the fixed contig ordering shared by all loci in a
// matrix, plus per-contig metadata.  Every Locus comparison is relative
// to a Genome; a locus referencing an unknown contig yields an
// InvalidContigError rather than falling back to lexicographic order.
type Genome struct {
	contigs []Contig
	ids     map[string]int
}

// NewGenome builds a Genome from an ordered contig list.  The slice
// order defines the primary sort key for loci.
func NewGenome(contigs []Contig) *Genome {
	g := &Genome{
		contigs: append([]Contig(nil), contigs...),
		ids:     make(map[string]int, len(contigs)),
	}
	for i, c := range g.contigs {
		g.ids[c.Name] = i
	}
	return g
}

// NewGenomeFromSAMHeader builds a Genome from the reference dictionary
// of a SAM/BAM header, classifying contigs by name.  This is convenient
// when the sparse matrix was derived from data aligned against the
// same reference.
func NewGenomeFromSAMHeader(header *sam.Header) *Genome {
	refs := header.Refs()
	contigs := make([]Contig, 0, len(refs))
	for _, ref := range refs {
		contigs = append(contigs, Contig{
			Name:   ref.Name(),
			Length: PosType(ref.Len()),
			Class:  ClassifyContigName(ref.Name()),
		})
	}
	return NewGenome(contigs)
}

// NContigs returns the number of contigs in the genome.
func (g *Genome) NContigs() int { return len(g.contigs) }

// ContigID returns the position of the named contig in the genome's
// ordering.
func (g *Genome) ContigID(name string) (int, error) {
	id, ok := g.ids[name]
	if !ok {
		return -1, &InvalidContigError{Contig: name}
	}
	return id, nil
}

// Contig returns the contig with the given ID.  The ID must come from
// ContigID or be in [0, NContigs).
func (g *Genome) Contig(id int) Contig { return g.contigs[id] }

// ContigByName returns the named contig's metadata.
func (g *Genome) ContigByName(name string) (Contig, error) {
	id, err := g.ContigID(name)
	if err != nil {
		return Contig{}, err
	}
	return g.contigs[id], nil
}

// ContigsOfClass returns the names of all contigs with the given class,
// in genome order.
func (g *Genome) ContigsOfClass(class ContigClass) []string {
	var names []string
	for _, c := range g.contigs {
		if c.Class == class {
			names = append(names, c.Name)
		}
	}
	return names
}

// XContigs returns the candidate X-chromosome contig names.
func (g *Genome) XContigs() []string { return g.ContigsOfClass(ClassX) }

// YContigs returns the candidate Y-chromosome contig names.
func (g *Genome) YContigs() []string { return g.ContigsOfClass(ClassY) }

// Compare orders two loci by the genome's contig ordering, breaking
// ties by position.  It returns a negative, zero or positive value in
// the usual way, or an InvalidContigError if either locus references an
// unknown contig.
func (g *Genome) Compare(a, b Locus) (int, error) {
	aid, err := g.ContigID(a.Contig)
	if err != nil {
		return 0, err
	}
	bid, err := g.ContigID(b.Contig)
	if err != nil {
		return 0, err
	}
	if aid != bid {
		return aid - bid, nil
	}
	return int(a.Pos) - int(b.Pos), nil
}
