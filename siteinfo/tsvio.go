package siteinfo

import (
	"io"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/tsv"
)

const siteStatsHeader = "#CHROM\tPOS\tALLELES\tINFO"

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatFloats(vals []float64) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = formatFloat(v)
	}
	return strings.Join(parts, ",")
}

func formatInts(vals []int32) string {
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.FormatInt(int64(v), 10)
	}
	return strings.Join(parts, ",")
}

func joinPairs(pairs map[string]string) string {
	keys := make([]string, 0, len(pairs))
	for k := range pairs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, len(keys))
	for i, k := range keys {
		parts[i] = k + "=" + pairs[k]
	}
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, ";")
}

// WriteSiteStatsTSV writes site-level stats as TSV, with all aggregated
// fields collapsed into a VCF-style INFO column.
func WriteSiteStatsTSV(stats []SiteStat, w io.Writer) (err error) {
	outTSV := tsv.NewWriter(w)
	outTSV.WriteString(siteStatsHeader)
	if err = outTSV.EndLine(); err != nil {
		return
	}
	for i := range stats {
		st := &stats[i]
		pairs := make(map[string]string)
		for k, v := range st.Num {
			pairs[k] = formatFloat(v)
		}
		for k, v := range st.Int {
			pairs[k] = strconv.FormatInt(int64(v), 10)
		}
		for k, v := range st.Arr {
			pairs[k] = formatFloats(v)
		}
		for k, v := range st.IntArr {
			pairs[k] = formatInts(v)
		}
		outTSV.WriteString(st.Locus.Contig)
		outTSV.WriteUint32(uint32(st.Locus.Pos))
		outTSV.WriteString(strings.Join(st.Alleles, ","))
		outTSV.WriteString(joinPairs(pairs))
		if err = outTSV.EndLine(); err != nil {
			return
		}
	}
	return outTSV.Flush()
}

// WriteASStatsTSV writes allele-specific stats as TSV.  Per-allele
// values are joined with '|' inside each INFO pair, in allele order.
func WriteASStatsTSV(stats []ASStat, w io.Writer) (err error) {
	outTSV := tsv.NewWriter(w)
	outTSV.WriteString(siteStatsHeader)
	if err = outTSV.EndLine(); err != nil {
		return
	}
	for i := range stats {
		st := &stats[i]
		pairs := make(map[string]string)
		for k, vals := range st.Num {
			parts := make([]string, len(vals))
			for j, v := range vals {
				parts[j] = formatFloat(v)
			}
			pairs[k] = strings.Join(parts, "|")
		}
		for k, vals := range st.Int {
			parts := make([]string, len(vals))
			for j, v := range vals {
				parts[j] = strconv.FormatInt(int64(v), 10)
			}
			pairs[k] = strings.Join(parts, "|")
		}
		for k, vals := range st.Arr {
			parts := make([]string, len(vals))
			for j, v := range vals {
				parts[j] = formatFloats(v)
			}
			pairs[k] = strings.Join(parts, "|")
		}
		if st.SBTable != nil {
			parts := make([]string, len(st.SBTable))
			for j, row := range st.SBTable {
				parts[j] = formatInts(row)
			}
			pairs["AS_SB_TABLE"] = strings.Join(parts, "|")
		}
		if st.FS != nil {
			parts := make([]string, len(st.FS))
			for j, v := range st.FS {
				if math.IsNaN(v) {
					parts[j] = "."
					continue
				}
				parts[j] = formatFloat(v)
			}
			pairs["AS_FS"] = strings.Join(parts, "|")
		}
		outTSV.WriteString(st.Locus.Contig)
		outTSV.WriteUint32(uint32(st.Locus.Pos))
		outTSV.WriteString(strings.Join(st.Alleles, ","))
		outTSV.WriteString(joinPairs(pairs))
		if err = outTSV.EndLine(); err != nil {
			return
		}
	}
	return outTSV.Flush()
}
