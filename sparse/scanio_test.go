package sparse

import (
	"bytes"
	"testing"

	"github.com/grailbio/sparse/locus"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func TestLastEndTableRio(t *testing.T) {
	m := &Matrix{
		Genome:  testGenome(),
		Samples: []string{"s1", "s2"},
		Rows: []Row{
			row2("chr1", 100, blockEntry(20, 150), nil),
			row2("chr1", 130, nil, varEntry(6)),
			row2("chr2", 40, varEntry(2), blockEntry(9, 90)),
			row2("chr2", 60, varEntry(1), nil),
		},
	}
	tbl, err := LastRefBlockEnds(m)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, tbl.WriteRio(&buf))
	got, err := ReadRio(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	expect.EQ(t, got.Loci, tbl.Loci)
	expect.EQ(t, got.Positions, tbl.Positions)

	p, ok := got.Lookup(locus.Locus{Contig: "chr2", Pos: 60})
	expect.True(t, ok)
	expect.EQ(t, p, locus.PosType(40))
}

func TestMatrixTSVRoundTrip(t *testing.T) {
	m := &Matrix{
		Genome:  testGenome(),
		Samples: []string{"s1", "s2"},
		Rows: []Row{
			{
				Locus:   locus.Locus{Contig: "chr1", Pos: 100},
				Alleles: []string{"A", "T"},
				Entries: []*Entry{
					{GT: Genotype{0, 0}, DP: 20, GQ: 50, END: 150},
					{
						GT: Genotype{0, 1}, DP: 31, GQ: 40, END: NoEnd,
						LA: []int32{0, 1}, LAD: []int32{15, 16},
						Info: InfoBag{
							Num: map[string]float64{"QUALapprox": 120},
							Arr: map[string][]float64{"SB": {4, 5, 6, 7}},
						},
					},
				},
			},
			{
				Locus:   locus.Locus{Contig: "chr1", Pos: 130},
				Alleles: []string{"G", "C"},
				Entries: []*Entry{nil, {GT: Genotype{1, 1}, DP: 8, GQ: 12, END: NoEnd}},
			},
		},
	}
	var buf bytes.Buffer
	require.NoError(t, WriteMatrixTSV(m, &buf))
	got, err := ReadMatrixTSV(&buf, m.Genome)
	require.NoError(t, err)
	expect.EQ(t, got.Samples, m.Samples)
	require.Equal(t, len(m.Rows), len(got.Rows))
	for i := range m.Rows {
		expect.EQ(t, got.Rows[i].Locus, m.Rows[i].Locus)
		expect.EQ(t, got.Rows[i].Alleles, m.Rows[i].Alleles)
		for s := range m.Rows[i].Entries {
			expect.EQ(t, got.Rows[i].Entries[s], m.Rows[i].Entries[s])
		}
	}
}
