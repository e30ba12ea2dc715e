// Copyright 2020 Grail Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package coverage

import (
	"io"
	"strconv"
	"strings"

	"github.com/grailbio/base/tsv"
)

// WriteTSV writes coverage rows as TSV, one line per position with an
// over_<t> column per threshold.
func WriteTSV(rows []Row, thresholds []int, w io.Writer) (err error) {
	outTSV := tsv.NewWriter(w)
	header := []string{"#CHROM", "POS", "MEAN", "MEDIAN", "TOTAL_DP"}
	for _, t := range thresholds {
		header = append(header, "over_"+strconv.Itoa(t))
	}
	outTSV.WriteString(strings.Join(header, "\t"))
	if err = outTSV.EndLine(); err != nil {
		return
	}
	for _, row := range rows {
		outTSV.WriteString(row.Locus.Contig)
		outTSV.WriteUint32(uint32(row.Locus.Pos))
		outTSV.WriteString(strconv.FormatFloat(row.Mean, 'g', -1, 64))
		outTSV.WriteString(strconv.FormatFloat(row.Median, 'g', -1, 64))
		outTSV.WriteString(strconv.FormatInt(row.TotalDP, 10))
		for _, frac := range row.Over {
			outTSV.WriteString(strconv.FormatFloat(frac, 'g', -1, 64))
		}
		if err = outTSV.EndLine(); err != nil {
			return
		}
	}
	return outTSV.Flush()
}
