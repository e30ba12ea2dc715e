package sparse

import (
	"sync"

	"github.com/grailbio/base/traverse"
	"github.com/grailbio/sparse/locus"
)

// Reference-block scan.
//
// For every explicit row we want the leftmost position from which a
// still-open reference block could begin: "how far upstream must a
// reader go to correctly reconstruct this row's state for any sample."
// Each sample contributes at most one candidate, the most recent
// (block start, block END) pair seen in strictly earlier rows; missing
// entries never overwrite it.  A row's output is the minimum start
// position over samples whose tracked block still covers the row, or
// the row's own position when none does.  One left-to-right pass,
// O(samples) state.

// sampleBlock is one sample's scan state: the most recently observed
// reference block for that sample.
type sampleBlock struct {
	StartContig string
	StartPos    locus.PosType
	End         locus.PosType
	Valid       bool
}

// ScanState carries per-sample block state across partition boundaries.
// A fresh state (no blocks seen) is the correct initial state for the
// first partition of each contig, since blocks never span contigs.
type ScanState struct {
	blocks []sampleBlock
}

// NewScanState returns an empty carry state for a matrix with nSamples
// columns.
func NewScanState(nSamples int) *ScanState {
	return &ScanState{blocks: make([]sampleBlock, nSamples)}
}

// Clone returns an independent copy of the state.
func (s *ScanState) Clone() *ScanState {
	return &ScanState{blocks: append([]sampleBlock(nil), s.blocks...)}
}

// ScanPartition computes last-END positions for one contiguous run of
// rows, starting from the given carry state.  The state is updated in
// place so it can be handed to the partition that follows in genome
// order.  The fold is an exclusive prefix scan: a row's own END is not
// visible to its own output, only to later rows.
func ScanPartition(rows []Row, state *ScanState) []locus.PosType {
	out := make([]locus.PosType, len(rows))
	for i := range rows {
		row := &rows[i]
		// A row always trivially covers itself, so its own position is
		// both the default and an upper bound on the result.
		last := row.Locus.Pos
		for _, b := range state.blocks {
			if b.Valid && b.StartContig == row.Locus.Contig &&
				b.End >= row.Locus.Pos && b.StartPos < last {
				last = b.StartPos
			}
		}
		out[i] = last
		for s, e := range row.Entries {
			if e != nil && e.IsBlockStart() {
				// Only the most recent block per sample is tracked.
				// GVCF inputs guarantee per-sample blocks are disjoint
				// and increasing, so this loses nothing.
				state.blocks[s] = sampleBlock{
					StartContig: row.Locus.Contig,
					StartPos:    row.Locus.Pos,
					End:         e.END,
					Valid:       true,
				}
			}
		}
	}
	return out
}

// LastEndTable holds the scan output: one last-END position per
// explicit matrix row, in matrix order.  Do not copy a table after its
// first Lookup.
type LastEndTable struct {
	Loci      []locus.Locus
	Positions []locus.PosType

	indexOnce sync.Once
	index     map[locus.Locus]int
}

// Len returns the number of rows in the table.
func (t *LastEndTable) Len() int { return len(t.Loci) }

// Lookup returns the last-END position recorded for l.  Safe for
// concurrent use; the index is built on the first call.
func (t *LastEndTable) Lookup(l locus.Locus) (locus.PosType, bool) {
	t.indexOnce.Do(t.buildIndex)
	i, ok := t.index[l]
	if !ok {
		return 0, false
	}
	return t.Positions[i], true
}

func (t *LastEndTable) buildIndex() {
	t.index = make(map[locus.Locus]int, len(t.Loci))
	for i, l := range t.Loci {
		t.index[l] = i
	}
}

// LastRefBlockEnds runs the reference-block scan over the whole matrix.
// Contigs are scanned in parallel: each starts from an empty carry
// state because reference blocks never span a contig boundary.  Within
// a contig the fold is strictly sequential.
func LastRefBlockEnds(m *Matrix) (*LastEndTable, error) {
	if err := m.Check(); err != nil {
		return nil, err
	}
	type span struct{ start, end int }
	var spans []span
	for i := 0; i < len(m.Rows); {
		j := i + 1
		for j < len(m.Rows) && m.Rows[j].Locus.Contig == m.Rows[i].Locus.Contig {
			j++
		}
		spans = append(spans, span{start: i, end: j})
		i = j
	}
	positions := make([]locus.PosType, len(m.Rows))
	err := traverse.Each(len(spans), func(si int) error {
		sp := spans[si]
		state := NewScanState(len(m.Samples))
		copy(positions[sp.start:sp.end], ScanPartition(m.Rows[sp.start:sp.end], state))
		return nil
	})
	if err != nil {
		return nil, err
	}
	t := &LastEndTable{
		Loci:      make([]locus.Locus, len(m.Rows)),
		Positions: positions,
	}
	for i := range m.Rows {
		t.Loci[i] = m.Rows[i].Locus
	}
	return t, nil
}
