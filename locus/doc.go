// Package locus provides the coordinate model shared by every component
// of this module: genomic loci ordered by an injected reference-genome
// contig ordering, contig-scoped intervals with union/containment
// arithmetic, and loaders for site lists and contig dictionaries.
package locus
