package siteinfo

import (
	"testing"

	"github.com/grailbio/sparse/locus"
	"github.com/grailbio/sparse/sparse"
	"github.com/grailbio/testutil/expect"
	"github.com/stretchr/testify/require"
)

func testGenome() *locus.Genome {
	return locus.NewGenome([]locus.Contig{
		{Name: "chr1", Length: 1000000, Class: locus.ClassAutosome},
	})
}

func oneRowMatrix(pos locus.PosType, alleles []string, entries ...*sparse.Entry) *sparse.Matrix {
	samples := make([]string, len(entries))
	for i := range samples {
		samples[i] = "s" + string(rune('a'+i))
	}
	return &sparse.Matrix{
		Genome:  testGenome(),
		Samples: samples,
		Rows: []sparse.Row{{
			Locus:   locus.Locus{Contig: "chr1", Pos: pos},
			Alleles: alleles,
			Entries: entries,
		}},
	}
}

func numEntry(num map[string]float64) *sparse.Entry {
	return &sparse.Entry{GT: sparse.Genotype{0, 1}, DP: 10, GQ: 40, END: sparse.NoEnd,
		Info: sparse.InfoBag{Num: num}}
}

func arrEntry(arr map[string][]float64) *sparse.Entry {
	return &sparse.Entry{GT: sparse.Genotype{0, 1}, DP: 10, GQ: 40, END: sparse.NoEnd,
		Info: sparse.InfoBag{Arr: arr}}
}

func TestSiteInfoSumsAndQD(t *testing.T) {
	m := oneRowMatrix(100, []string{"A", "T"},
		numEntry(map[string]float64{"QUALapprox": 100, "VarDP": 10}),
		numEntry(map[string]float64{"QUALapprox": 50, "VarDP": 20}),
		numEntry(map[string]float64{"QUALapprox": 0, "VarDP": 0}),
		// Hom-ref entries do not contribute to non-DP fields.
		&sparse.Entry{GT: sparse.Genotype{0, 0}, DP: 30, GQ: 50, END: 200,
			Info: sparse.InfoBag{Num: map[string]float64{"QUALapprox": 999, "VarDP": 999}}},
	)
	cfg := AggConfig{
		SumFields:    map[string]string{"QUALapprox": "QUALapprox"},
		IntSumFields: map[string]string{"VarDP": "VarDP"},
	}
	stats, err := SiteInfo(m, cfg, Opts{})
	require.NoError(t, err)
	require.Equal(t, 1, len(stats))
	expect.EQ(t, stats[0].Num["QUALapprox"], 150.0)
	expect.EQ(t, stats[0].Int["VarDP"], int32(30))
	expect.EQ(t, stats[0].Num["QD"], 5.0)
}

func TestSiteInfoQDZeroVarDP(t *testing.T) {
	m := oneRowMatrix(100, []string{"A", "T"},
		numEntry(map[string]float64{"QUALapprox": 80, "VarDP": 0}))
	cfg := AggConfig{
		SumFields:    map[string]string{"QUALapprox": "QUALapprox"},
		IntSumFields: map[string]string{"VarDP": "VarDP"},
	}
	stats, err := SiteInfo(m, cfg, Opts{})
	require.NoError(t, err)
	expect.EQ(t, stats[0].Num["QD"], 0.0)
}

func TestSiteInfoMQ(t *testing.T) {
	cfg := AggConfig{ArraySumFields: map[string]string{"RAW_MQandDP": "RAW_MQandDP"}}

	m := oneRowMatrix(100, []string{"A", "T"},
		arrEntry(map[string][]float64{"RAW_MQandDP": {1600, 4}}),
		arrEntry(map[string][]float64{"RAW_MQandDP": {900, 1}}))
	stats, err := SiteInfo(m, cfg, Opts{})
	require.NoError(t, err)
	require.InDelta(t, 22.3607, stats[0].Num["MQ"], 1e-3) // sqrt(2500/5)
	_, leftover := stats[0].Arr["RAW_MQandDP"]
	expect.False(t, leftover)

	// Degenerate sums produce 0, not NaN.
	m = oneRowMatrix(100, []string{"A", "T"},
		arrEntry(map[string][]float64{"RAW_MQandDP": {0, 0}}))
	stats, err = SiteInfo(m, cfg, Opts{})
	require.NoError(t, err)
	expect.EQ(t, stats[0].Num["MQ"], 0.0)
}

func TestSiteInfoMQFromPair(t *testing.T) {
	cfg := AggConfig{SumFields: map[string]string{
		"RAW_MQ": "RAW_MQ",
		"MQ_DP":  "MQ_DP",
	}}
	m := oneRowMatrix(100, []string{"A", "T"},
		numEntry(map[string]float64{"RAW_MQ": 2, "MQ_DP": 3200}))
	stats, err := SiteInfo(m, cfg, Opts{})
	require.NoError(t, err)
	expect.EQ(t, stats[0].Num["MQ"], 40.0)
	_, ok := stats[0].Num["RAW_MQ"]
	expect.False(t, ok)

	m = oneRowMatrix(100, []string{"A", "T"},
		numEntry(map[string]float64{"RAW_MQ": 0, "MQ_DP": 100}))
	stats, err = SiteInfo(m, cfg, Opts{})
	require.NoError(t, err)
	expect.EQ(t, stats[0].Num["MQ"], 0.0)
}

func TestSiteInfoMissingFieldsListsAll(t *testing.T) {
	m := oneRowMatrix(100, []string{"A", "T"},
		numEntry(map[string]float64{"QUALapprox": 1}))
	cfg := AggConfig{
		SumFields:    map[string]string{"X": "NOPE"},
		MedianFields: map[string]string{"Y": "ALSO_NOPE"},
	}
	_, err := SiteInfo(m, cfg, Opts{})
	require.Error(t, err)
	mfe, ok := err.(*MissingFieldsError)
	require.True(t, ok)
	expect.EQ(t, mfe.Fields, []string{"ALSO_NOPE", "NOPE"})
}

func TestSiteInfoBlockWeightedDP(t *testing.T) {
	m := oneRowMatrix(100, []string{"A", "T"},
		// A reference block over [100, 103] with DP 4 weighs in as 16.
		&sparse.Entry{GT: sparse.Genotype{0, 0}, DP: 4, GQ: 50, END: 103},
		&sparse.Entry{GT: sparse.Genotype{0, 1}, DP: 3, GQ: 40, END: sparse.NoEnd})
	cfg := AggConfig{IntSumFields: map[string]string{"DP": "DP"}}
	stats, err := SiteInfo(m, cfg, Opts{})
	require.NoError(t, err)
	expect.EQ(t, stats[0].Int["DP"], int32(19))
}

func TestSiteInfoMedian(t *testing.T) {
	m := oneRowMatrix(100, []string{"A", "T"},
		numEntry(map[string]float64{"ReadPosRankSum": 1}),
		numEntry(map[string]float64{"ReadPosRankSum": 5}),
		numEntry(map[string]float64{"ReadPosRankSum": 9}))
	cfg := AggConfig{MedianFields: map[string]string{"ReadPosRankSum": "ReadPosRankSum"}}
	stats, err := SiteInfo(m, cfg, Opts{})
	require.NoError(t, err)
	expect.EQ(t, stats[0].Num["ReadPosRankSum"], 5.0)
}

func TestSiteInfoSBAndFS(t *testing.T) {
	m := oneRowMatrix(100, []string{"A", "T"},
		arrEntry(map[string][]float64{"SB": {1, 2, 3, 4}}),
		arrEntry(map[string][]float64{"SB": {5, 6, 7, 8}}))
	cfg := AggConfig{ArraySumFields: map[string]string{"SB": "SB"}}
	fs := func(sb []int32) float64 { return float64(sb[0] + sb[3]) }
	stats, err := SiteInfo(m, cfg, Opts{FSFromSB: fs})
	require.NoError(t, err)
	expect.EQ(t, stats[0].IntArr["SB"], []int32{6, 8, 10, 12})
	expect.EQ(t, stats[0].Num["FS"], 18.0)
}

func TestSiteInfoTopLevelPriority(t *testing.T) {
	// A bag field named DP loses to the entry's top-level DP.
	e := &sparse.Entry{GT: sparse.Genotype{0, 1}, DP: 7, GQ: 40, END: sparse.NoEnd,
		Info: sparse.InfoBag{Num: map[string]float64{"DP": 1000}}}
	m := oneRowMatrix(100, []string{"A", "T"}, e)
	cfg := AggConfig{SumFields: map[string]string{"DP": "DP"}}
	stats, err := SiteInfo(m, cfg, Opts{})
	require.NoError(t, err)
	expect.EQ(t, stats[0].Num["DP"], 7.0)
}
