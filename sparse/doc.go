// Package sparse implements the sparse genomic call-matrix model and
// the two algorithms that make querying it cheap: the reference-block
// scan, which computes for every explicit row how far upstream an
// overlapping reference block can begin, and targeted densification,
// which uses the scan output to materialize only the row range needed
// to answer a query against a site list.
//
// A sparse matrix stores one explicit row per locus with at least one
// non-trivial entry; homozygous-reference stretches are run-length
// encoded as reference blocks (a start entry carrying an inclusive END
// position).  The implied dense matrix is never materialized in full.
package sparse
