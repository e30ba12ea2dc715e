package sparse

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/grailbio/base/tsv"
	"github.com/grailbio/sparse/locus"
)

// TSV serialization of a sparse matrix: one line per explicit
// (locus, sample) cell, grouped by locus.  This is the module's own
// interchange format for already-sparsified data, not a GVCF parser.

// entryTsvRow represents a single line of a sparse-matrix TSV.
type entryTsvRow struct {
	Chrom   string `tsv:"#CHROM"`  // Contig name
	Pos     int64  `tsv:"POS"`     // 1-based position
	Sample  string `tsv:"SAMPLE"`  // Sample identifier
	Alleles string `tsv:"ALLELES"` // Comma-separated allele list, REF first
	GT      string `tsv:"GT"`      // Genotype call, e.g. 0/1; "." if missing
	DP      int64  `tsv:"DP"`      // Depth; -1 if missing
	GQ      int64  `tsv:"GQ"`      // Genotype quality; -1 if missing
	End     int64  `tsv:"END"`     // Inclusive reference-block end; -1 if none
	LA      string `tsv:"LA"`      // Comma-separated local allele indexes; "."
	LAD     string `tsv:"LAD"`     // Comma-separated local allele depths; "."
	Info    string `tsv:"INFO"`    // Scalar info fields, k=v;k=v; "."
	AInfo   string `tsv:"AINFO"`   // Array info fields, k=v,v;k=v,v; "."
}

func formatGT(gt Genotype) string {
	if gt.IsMissing() {
		return "."
	}
	parts := make([]string, len(gt))
	for i, a := range gt {
		parts[i] = strconv.Itoa(int(a))
	}
	return strings.Join(parts, "/")
}

func parseGT(s string) (Genotype, error) {
	if s == "" || s == "." || s == "./." || s == ".|." {
		return nil, nil
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '|' })
	gt := make(Genotype, 0, len(parts))
	for _, p := range parts {
		if p == "." {
			return nil, nil
		}
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("sparse: invalid genotype %q", s)
		}
		gt = append(gt, int16(v))
	}
	return gt, nil
}

func formatIntList(vals []int32) string {
	if len(vals) == 0 {
		return "."
	}
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = strconv.Itoa(int(v))
	}
	return strings.Join(parts, ",")
}

func parseIntList(s string) ([]int32, error) {
	if s == "" || s == "." {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	vals := make([]int32, len(parts))
	for i, p := range parts {
		v, err := strconv.ParseInt(p, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("sparse: invalid integer list %q", s)
		}
		vals[i] = int32(v)
	}
	return vals, nil
}

func formatInfo(bag InfoBag) (num, arr string) {
	num, arr = ".", "."
	if len(bag.Num) > 0 {
		keys := make([]string, 0, len(bag.Num))
		for k := range bag.Num {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = k + "=" + strconv.FormatFloat(bag.Num[k], 'g', -1, 64)
		}
		num = strings.Join(parts, ";")
	}
	if len(bag.Arr) > 0 {
		keys := make([]string, 0, len(bag.Arr))
		for k := range bag.Arr {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			elems := make([]string, len(bag.Arr[k]))
			for j, v := range bag.Arr[k] {
				elems[j] = strconv.FormatFloat(v, 'g', -1, 64)
			}
			parts[i] = k + "=" + strings.Join(elems, ",")
		}
		arr = strings.Join(parts, ";")
	}
	return num, arr
}

func parseInfo(num, arr string) (InfoBag, error) {
	var bag InfoBag
	if num != "" && num != "." {
		bag.Num = make(map[string]float64)
		for _, part := range strings.Split(num, ";") {
			eq := strings.IndexByte(part, '=')
			if eq <= 0 {
				return InfoBag{}, fmt.Errorf("sparse: invalid info field %q", part)
			}
			v, err := strconv.ParseFloat(part[eq+1:], 64)
			if err != nil {
				return InfoBag{}, fmt.Errorf("sparse: invalid info value %q", part)
			}
			bag.Num[part[:eq]] = v
		}
	}
	if arr != "" && arr != "." {
		bag.Arr = make(map[string][]float64)
		for _, part := range strings.Split(arr, ";") {
			eq := strings.IndexByte(part, '=')
			if eq <= 0 {
				return InfoBag{}, fmt.Errorf("sparse: invalid array info field %q", part)
			}
			elems := strings.Split(part[eq+1:], ",")
			vals := make([]float64, len(elems))
			for i, e := range elems {
				v, err := strconv.ParseFloat(e, 64)
				if err != nil {
					return InfoBag{}, fmt.Errorf("sparse: invalid array info value %q", part)
				}
				vals[i] = v
			}
			bag.Arr[part[:eq]] = vals
		}
	}
	return bag, nil
}

// WriteMatrixTSV writes m in the sparse-matrix TSV format.  Missing
// cells produce no line.
func WriteMatrixTSV(m *Matrix, w io.Writer) error {
	writer := tsv.NewRowWriter(w)
	for i := range m.Rows {
		row := &m.Rows[i]
		for s, e := range row.Entries {
			if e == nil {
				continue
			}
			num, arr := formatInfo(e.Info)
			line := entryTsvRow{
				Chrom:   row.Locus.Contig,
				Pos:     int64(row.Locus.Pos),
				Sample:  m.Samples[s],
				Alleles: strings.Join(row.Alleles, ","),
				GT:      formatGT(e.GT),
				DP:      int64(e.DP),
				GQ:      int64(e.GQ),
				End:     int64(e.END),
				LA:      formatIntList(e.LA),
				LAD:     formatIntList(e.LAD),
				Info:    num,
				AInfo:   arr,
			}
			if err := writer.Write(&line); err != nil {
				return err
			}
		}
	}
	return writer.Flush()
}

// ReadMatrixTSV reads a matrix written in the sparse-matrix TSV format.
// Lines must be grouped by locus and loci must be sorted in genome
// order; the sample set is the set of sample names observed, ordered by
// first appearance.
func ReadMatrixTSV(r io.Reader, g *locus.Genome) (*Matrix, error) {
	reader := tsv.NewReader(r)
	reader.Comment = '#'
	type cell struct {
		rowIdx int
		sample string
		entry  *Entry
	}
	var rows []Row
	var cells []cell
	var samples []string
	sampleIdx := make(map[string]int)
	cur := -1
	for {
		var line entryTsvRow
		if err := reader.Read(&line); err != nil {
			if err == io.EOF {
				break
			}
			return nil, err
		}
		l := locus.Locus{Contig: line.Chrom, Pos: locus.PosType(line.Pos)}
		if cur < 0 || rows[cur].Locus != l {
			var alleles []string
			if line.Alleles != "" && line.Alleles != "." {
				alleles = strings.Split(line.Alleles, ",")
			}
			rows = append(rows, Row{Locus: l, Alleles: alleles})
			cur = len(rows) - 1
		}
		if _, ok := sampleIdx[line.Sample]; !ok {
			sampleIdx[line.Sample] = len(samples)
			samples = append(samples, line.Sample)
		}
		gt, err := parseGT(line.GT)
		if err != nil {
			return nil, err
		}
		la, err := parseIntList(line.LA)
		if err != nil {
			return nil, err
		}
		lad, err := parseIntList(line.LAD)
		if err != nil {
			return nil, err
		}
		bag, err := parseInfo(line.Info, line.AInfo)
		if err != nil {
			return nil, err
		}
		cells = append(cells, cell{
			rowIdx: cur,
			sample: line.Sample,
			entry: &Entry{
				GT:   gt,
				DP:   int32(line.DP),
				GQ:   int32(line.GQ),
				END:  locus.PosType(line.End),
				LA:   la,
				LAD:  lad,
				Info: bag,
			},
		})
	}
	m := &Matrix{Genome: g, Samples: samples, Rows: rows}
	for i := range m.Rows {
		m.Rows[i].Entries = make([]*Entry, len(samples))
	}
	for _, c := range cells {
		m.Rows[c.rowIdx].Entries[sampleIdx[c.sample]] = c.entry
	}
	if err := m.Check(); err != nil {
		return nil, err
	}
	return m, nil
}
