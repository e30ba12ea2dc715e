package ploidy

import (
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/tsv"
)

// WriteTSV writes per-sample ploidy stats as TSV, one mean-depth column
// per inspected contig.
func WriteTSV(stats []SampleStats, w io.Writer) (err error) {
	outTSV := tsv.NewWriter(w)
	var contigs []string
	if len(stats) > 0 {
		for contig := range stats[0].MeanDP {
			contigs = append(contigs, contig)
		}
		sort.Strings(contigs)
	}
	header := []string{"SAMPLE"}
	for _, contig := range contigs {
		header = append(header, contig+"_mean_dp")
	}
	header = append(header, "X_ploidy", "Y_ploidy")
	outTSV.WriteString(strings.Join(header, "\t"))
	if err = outTSV.EndLine(); err != nil {
		return
	}
	fmtF := func(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }
	for _, st := range stats {
		outTSV.WriteString(st.Sample)
		for _, contig := range contigs {
			outTSV.WriteString(fmtF(st.MeanDP[contig]))
		}
		outTSV.WriteString(fmtF(st.XPloidy))
		outTSV.WriteString(fmtF(st.YPloidy))
		if err = outTSV.EndLine(); err != nil {
			return
		}
	}
	return outTSV.Flush()
}
