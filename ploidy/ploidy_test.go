package ploidy

import (
	"testing"

	"github.com/grailbio/sparse/locus"
	"github.com/grailbio/sparse/sparse"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func testGenome() *locus.Genome {
	return locus.NewGenome([]locus.Contig{
		{Name: "chr20", Length: 1000, Class: locus.ClassAutosome},
		{Name: "chrX", Length: 1000, Class: locus.ClassX},
		{Name: "chrY", Length: 500, Class: locus.ClassY},
	})
}

func block(dp int32, end locus.PosType) *sparse.Entry {
	return &sparse.Entry{GT: sparse.Genotype{0, 0}, DP: dp, GQ: 50, END: end}
}

func TestImputeSexPloidy(t *testing.T) {
	m := &sparse.Matrix{
		Genome:  testGenome(),
		Samples: []string{"f", "m"},
		Rows: []sparse.Row{
			{
				Locus:   locus.Locus{Contig: "chr20", Pos: 1},
				Alleles: []string{"A"},
				Entries: []*sparse.Entry{block(20, 1000), block(20, 1000)},
			},
			{
				Locus:   locus.Locus{Contig: "chrX", Pos: 1},
				Alleles: []string{"A"},
				Entries: []*sparse.Entry{block(20, 1000), block(10, 1000)},
			},
			{
				Locus:   locus.Locus{Contig: "chrY", Pos: 1},
				Alleles: []string{"A"},
				Entries: []*sparse.Entry{nil, block(10, 500)},
			},
		},
	}
	stats, err := ImputeSexPloidy(m, DefaultOpts())
	require.NoError(t, err)
	require.Equal(t, 2, len(stats))

	f := stats[0]
	expect.EQ(t, f.Sample, "f")
	expect.EQ(t, f.MeanDP["chr20"], 20.0)
	expect.EQ(t, f.MeanDP["chrX"], 20.0)
	expect.EQ(t, f.MeanDP["chrY"], 0.0)
	expect.EQ(t, f.XPloidy, 2.0)
	expect.EQ(t, f.YPloidy, 0.0)

	mm := stats[1]
	expect.EQ(t, mm.XPloidy, 1.0)
	expect.EQ(t, mm.YPloidy, 1.0)
}

func TestImputeSexPloidyNonRefDepth(t *testing.T) {
	g := locus.NewGenome([]locus.Contig{
		{Name: "chr20", Length: 10, Class: locus.ClassAutosome},
		{Name: "chrX", Length: 10, Class: locus.ClassX},
		{Name: "chrY", Length: 10, Class: locus.ClassY},
	})
	// Non-ref calls contribute their depth once, not span-weighted.
	m := &sparse.Matrix{
		Genome:  g,
		Samples: []string{"s"},
		Rows: []sparse.Row{
			{
				Locus:   locus.Locus{Contig: "chr20", Pos: 5},
				Alleles: []string{"A", "T"},
				Entries: []*sparse.Entry{{GT: sparse.Genotype{0, 1}, DP: 10, GQ: 40, END: sparse.NoEnd}},
			},
			{
				Locus:   locus.Locus{Contig: "chrX", Pos: 5},
				Alleles: []string{"A", "T"},
				Entries: []*sparse.Entry{{GT: sparse.Genotype{0, 1}, DP: 10, GQ: 40, END: sparse.NoEnd}},
			},
		},
	}
	stats, err := ImputeSexPloidy(m, DefaultOpts())
	require.NoError(t, err)
	expect.EQ(t, stats[0].MeanDP["chr20"], 1.0)
	expect.EQ(t, stats[0].XPloidy, 2.0)
	expect.EQ(t, stats[0].YPloidy, 0.0)
}

func TestImputeSexPloidyZeroNormalization(t *testing.T) {
	m := &sparse.Matrix{Genome: testGenome(), Samples: []string{"s"}}
	stats, err := ImputeSexPloidy(m, DefaultOpts())
	require.NoError(t, err)
	expect.EQ(t, stats[0].XPloidy, 0.0)
	expect.EQ(t, stats[0].YPloidy, 0.0)
}

func TestImputeSexPloidyAmbiguousContig(t *testing.T) {
	g := locus.NewGenome([]locus.Contig{
		{Name: "chr20", Length: 1000, Class: locus.ClassAutosome},
		{Name: "chrX", Length: 1000, Class: locus.ClassX},
		{Name: "X_alt", Length: 100, Class: locus.ClassX},
		{Name: "chrY", Length: 500, Class: locus.ClassY},
	})
	m := &sparse.Matrix{Genome: g, Samples: []string{"s"}}

	_, err := ImputeSexPloidy(m, DefaultOpts())
	require.Error(t, err)
	ace, ok := err.(*AmbiguousContigError)
	require.True(t, ok)
	expect.EQ(t, ace.Class, locus.ClassX)
	expect.EQ(t, ace.Candidates, []string{"chrX", "X_alt"})

	opts := DefaultOpts()
	opts.ChrX = "chrX"
	_, err = ImputeSexPloidy(m, opts)
	expect.NoError(t, err)
}

func TestImputeSexPloidyIntervals(t *testing.T) {
	m := &sparse.Matrix{
		Genome:  testGenome(),
		Samples: []string{"s"},
		Rows: []sparse.Row{
			{
				Locus:   locus.Locus{Contig: "chr20", Pos: 1},
				Alleles: []string{"A"},
				Entries: []*sparse.Entry{block(10, 1000)},
			},
			{
				Locus:   locus.Locus{Contig: "chrX", Pos: 200},
				Alleles: []string{"A"},
				Entries: []*sparse.Entry{block(10, 300)},
			},
		},
	}
	opts := DefaultOpts()
	opts.Included = []locus.Interval{
		{Contig: "chr20", Start: 1, End: 101},
		{Contig: "chrX", Start: 1, End: 101},
	}
	stats, err := ImputeSexPloidy(m, opts)
	require.NoError(t, err)
	// chr20: row at 1 is inside the calling region; the full block sum
	// is spread over the 100 callable bases.
	expect.EQ(t, stats[0].MeanDP["chr20"], 100.0)
	// chrX: the row at 200 lies outside the calling region.
	expect.EQ(t, stats[0].MeanDP["chrX"], 0.0)
}

func TestCallableSize(t *testing.T) {
	g := testGenome()
	size, err := callableSize(g, "chr20", false, nil, nil)
	require.NoError(t, err)
	expect.EQ(t, size, int64(1000))

	included := []locus.Interval{{Contig: "chr20", Start: 1, End: 201}}
	excluded := []locus.Interval{{Contig: "chr20", Start: 151, End: 301}}
	size, err = callableSize(g, "chr20", true, included, excluded)
	require.NoError(t, err)
	expect.EQ(t, size, int64(150))

	size, err = callableSize(g, "chr20", false, nil, excluded)
	require.NoError(t, err)
	expect.EQ(t, size, int64(850))
}
