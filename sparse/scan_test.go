package sparse

import (
	"math/rand"
	"sync"
	"testing"

	"github.com/grailbio/sparse/locus"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func testGenome() *locus.Genome {
	return locus.NewGenome([]locus.Contig{
		{Name: "chr1", Length: 1000000, Class: locus.ClassAutosome},
		{Name: "chr2", Length: 1000000, Class: locus.ClassAutosome},
	})
}

func blockEntry(dp int32, end locus.PosType) *Entry {
	return &Entry{GT: Genotype{0, 0}, DP: dp, GQ: 50, END: end}
}

func varEntry(dp int32) *Entry {
	return &Entry{GT: Genotype{0, 1}, DP: dp, GQ: 40, END: NoEnd}
}

// row builds a two-sample row; either entry may be nil.
func row2(contig string, pos locus.PosType, a, b *Entry) Row {
	return Row{
		Locus:   locus.Locus{Contig: contig, Pos: pos},
		Alleles: []string{"A", "T"},
		Entries: []*Entry{a, b},
	}
}

func TestScanNoBlocks(t *testing.T) {
	m := &Matrix{
		Genome:  testGenome(),
		Samples: []string{"s1", "s2"},
		Rows: []Row{
			row2("chr1", 100, varEntry(10), nil),
			row2("chr1", 150, nil, varEntry(12)),
			row2("chr2", 30, varEntry(7), varEntry(9)),
		},
	}
	tbl, err := LastRefBlockEnds(m)
	require.NoError(t, err)
	expect.EQ(t, tbl.Positions, []locus.PosType{100, 150, 30})
}

func TestScanCoveringBlocks(t *testing.T) {
	m := &Matrix{
		Genome:  testGenome(),
		Samples: []string{"s1", "s2"},
		Rows: []Row{
			row2("chr1", 100, blockEntry(20, 150), nil),
			row2("chr1", 120, nil, blockEntry(15, 125)),
			row2("chr1", 122, varEntry(9), nil),
			row2("chr1", 130, varEntry(9), nil),
			row2("chr1", 160, nil, varEntry(5)),
			row2("chr1", 200, nil, blockEntry(8, 300)),
			row2("chr1", 250, varEntry(3), nil),
		},
	}
	tbl, err := LastRefBlockEnds(m)
	require.NoError(t, err)
	// Row outputs fold in only strictly earlier rows: the block starting
	// at 100 covers up to 150, the one at 120 up to 125, the one at 200
	// up to 300.
	expect.EQ(t, tbl.Positions, []locus.PosType{100, 100, 100, 100, 160, 200, 200})

	p, ok := tbl.Lookup(locus.Locus{Contig: "chr1", Pos: 130})
	expect.True(t, ok)
	expect.EQ(t, p, locus.PosType(100))
	_, ok = tbl.Lookup(locus.Locus{Contig: "chr1", Pos: 131})
	expect.False(t, ok)
}

func TestScanBlocksDoNotCrossContigs(t *testing.T) {
	m := &Matrix{
		Genome:  testGenome(),
		Samples: []string{"s1"},
		Rows: []Row{
			{Locus: locus.Locus{Contig: "chr1", Pos: 100}, Alleles: []string{"A"}, Entries: []*Entry{blockEntry(10, 500000)}},
			{Locus: locus.Locus{Contig: "chr2", Pos: 50}, Alleles: []string{"A"}, Entries: []*Entry{varEntry(4)}},
		},
	}
	tbl, err := LastRefBlockEnds(m)
	require.NoError(t, err)
	expect.EQ(t, tbl.Positions, []locus.PosType{100, 50})
}

func randomMatrix(rng *rand.Rand, nSamples, nRows int) *Matrix {
	m := &Matrix{Genome: testGenome(), Samples: make([]string, nSamples)}
	for s := range m.Samples {
		m.Samples[s] = "s" + string(rune('a'+s))
	}
	for _, contig := range []string{"chr1", "chr2"} {
		pos := locus.PosType(1)
		for i := 0; i < nRows; i++ {
			pos += locus.PosType(1 + rng.Intn(30))
			entries := make([]*Entry, nSamples)
			for s := range entries {
				switch rng.Intn(3) {
				case 0:
					entries[s] = blockEntry(int32(rng.Intn(40)), pos+locus.PosType(rng.Intn(80)))
				case 1:
					entries[s] = varEntry(int32(rng.Intn(40)))
				}
			}
			m.Rows = append(m.Rows, Row{
				Locus:   locus.Locus{Contig: contig, Pos: pos},
				Alleles: []string{"A", "G"},
				Entries: entries,
			})
		}
	}
	return m
}

func TestScanBoundProperty(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 20; iter++ {
		m := randomMatrix(rng, 1+rng.Intn(4), 1+rng.Intn(50))
		tbl, err := LastRefBlockEnds(m)
		require.NoError(t, err)
		for i, row := range m.Rows {
			if tbl.Positions[i] > row.Locus.Pos {
				t.Fatalf("row %v: last END %d exceeds row position", row.Locus, tbl.Positions[i])
			}
		}
	}
}

func TestLastEndTableConcurrentLookup(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	m := randomMatrix(rng, 3, 50)
	tbl, err := LastRefBlockEnds(m)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j, l := range tbl.Loci {
				p, ok := tbl.Lookup(l)
				if !ok || p != tbl.Positions[j] {
					t.Errorf("Lookup(%v) = %d, %v; want %d", l, p, ok, tbl.Positions[j])
				}
			}
		}()
	}
	wg.Wait()
}

func TestScanPartitionCarry(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	for iter := 0; iter < 10; iter++ {
		m := randomMatrix(rng, 3, 40)
		whole, err := LastRefBlockEnds(m)
		require.NoError(t, err)

		// Re-run the scan with each contig chopped into arbitrary
		// partitions, chaining the carry state across boundaries.
		var chained []locus.PosType
		i := 0
		for i < len(m.Rows) {
			j := i + 1
			for j < len(m.Rows) && m.Rows[j].Locus.Contig == m.Rows[i].Locus.Contig {
				j++
			}
			state := NewScanState(len(m.Samples))
			for start := i; start < j; {
				end := start + 1 + rng.Intn(j-start)
				chained = append(chained, ScanPartition(m.Rows[start:end], state)...)
				start = end
			}
			i = j
		}
		expect.EQ(t, chained, whole.Positions)
	}
}
