package siteinfo

import (
	"fmt"
	"sort"
	"strings"

	"github.com/grailbio/sparse/sparse"
)

// AggConfig names the fields to aggregate, grouped by combinator.  Each
// map goes from output field name to source field name; sources resolve
// against top-level entry fields first, then the entry's info bag.
type AggConfig struct {
	// SumFields are aggregated with a float sum.
	SumFields map[string]string
	// IntSumFields are summed and then truncated to int32.
	IntSumFields map[string]string
	// MedianFields are aggregated with an approximate median.
	MedianFields map[string]string
	// ArraySumFields are fixed-length arrays summed elementwise.
	ArraySumFields map[string]string
}

// DefaultAggConfig mirrors the usual GVCF INFO aggregation setup.
func DefaultAggConfig() AggConfig {
	return AggConfig{
		SumFields:    map[string]string{"QUALapprox": "QUALapprox"},
		IntSumFields: map[string]string{"VarDP": "VarDP"},
		MedianFields: map[string]string{
			"ReadPosRankSum": "ReadPosRankSum",
			"MQRankSum":      "MQRankSum",
		},
		ArraySumFields: map[string]string{
			"SB":          "SB",
			"RAW_MQandDP": "RAW_MQandDP",
		},
	}
}

// MissingFieldsError reports every requested field that resolved to
// nothing, rather than failing on the first.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("siteinfo: field(s) not found in entries or info bags: %s",
		strings.Join(e.Fields, ","))
}

// scalarSource resolves a named scalar from an entry.  Top-level entry
// fields take priority over the info bag on a name collision.
type scalarSource struct {
	name string
	top  bool
}

func (src scalarSource) value(e *sparse.Entry) (float64, bool) {
	if src.top {
		switch src.name {
		case "DP":
			if e.DP >= 0 {
				return float64(e.DP), true
			}
		case "GQ":
			if e.GQ >= 0 {
				return float64(e.GQ), true
			}
		}
		return 0, false
	}
	v, ok := e.Info.Num[src.name]
	return v, ok
}

type arraySource struct {
	name string
	top  bool
}

func (src arraySource) values(e *sparse.Entry) ([]float64, bool) {
	if src.top {
		if src.name == "LAD" && len(e.LAD) > 0 {
			vals := make([]float64, len(e.LAD))
			for i, v := range e.LAD {
				vals[i] = float64(v)
			}
			return vals, true
		}
		return nil, false
	}
	v, ok := e.Info.Arr[src.name]
	return v, ok
}

type plannedScalar struct {
	out  string
	src  scalarSource
	isDP bool
}

type plannedArray struct {
	out  string
	src  arraySource
	isSB bool
	// dropAfterMQ marks RAW_MQandDP: aggregated normally, consumed by
	// the MQ derivation and removed from the output.
	dropAfterMQ bool
}

type mqRule int

const (
	mqNone mqRule = iota
	// MQ = sqrt(RAW_MQandDP[0]/RAW_MQandDP[1]), 0 if the denominator is 0.
	mqFromRawMQandDP
	// MQ = sqrt(MQ_DP/RAW_MQ), 0 if RAW_MQ is 0.
	mqFromPair
)

// aggPlan is an AggConfig resolved against a concrete matrix: every
// source has a fixed accessor and the derived-field rules that apply
// are decided up front, so per-row aggregation never inspects names.
type aggPlan struct {
	prefix    string
	sums      []plannedScalar
	intSums   []plannedScalar
	medians   []plannedScalar
	arrays    []plannedArray
	mq        mqRule
	computeQD bool
	// sbOut is the output key holding the aggregated strand-bias table
	// after the int cast ("SB", or "AS_SB_TABLE" under the AS prefix).
	// Empty when SB was not requested.
	sbOut string
}

func (p *aggPlan) dpRequested() bool {
	for _, f := range p.sums {
		if f.isDP {
			return true
		}
	}
	for _, f := range p.intSums {
		if f.isDP {
			return true
		}
	}
	return false
}

// infoNames collects every info-bag field name defined by at least one
// entry of the matrix.
func infoNames(m *sparse.Matrix) (num, arr map[string]bool) {
	num = make(map[string]bool)
	arr = make(map[string]bool)
	for i := range m.Rows {
		for _, e := range m.Rows[i].Entries {
			if e == nil {
				continue
			}
			for k := range e.Info.Num {
				num[k] = true
			}
			for k := range e.Info.Arr {
				arr[k] = true
			}
		}
	}
	return num, arr
}

func sortedKeys(fields map[string]string) []string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// newAggPlan resolves cfg against m.  All unresolved source names are
// reported together in a MissingFieldsError.
func newAggPlan(m *sparse.Matrix, cfg AggConfig, prefix string) (*aggPlan, error) {
	numPresent, arrPresent := infoNames(m)
	topScalar := map[string]bool{"DP": true, "GQ": true}
	topArray := map[string]bool{"LAD": true}

	var missing []string
	p := &aggPlan{prefix: prefix}

	resolveScalar := func(fields map[string]string, dst *[]plannedScalar) {
		for _, out := range sortedKeys(fields) {
			src := fields[out]
			planned := plannedScalar{out: prefix + out, isDP: out == "DP"}
			switch {
			case topScalar[src]:
				planned.src = scalarSource{name: src, top: true}
			case numPresent[src]:
				planned.src = scalarSource{name: src}
			default:
				missing = append(missing, src)
				continue
			}
			*dst = append(*dst, planned)
		}
	}
	resolveScalar(cfg.SumFields, &p.sums)
	resolveScalar(cfg.IntSumFields, &p.intSums)
	resolveScalar(cfg.MedianFields, &p.medians)

	for _, out := range sortedKeys(cfg.ArraySumFields) {
		src := cfg.ArraySumFields[out]
		planned := plannedArray{out: prefix + out, isSB: out == "SB", dropAfterMQ: out == "RAW_MQandDP"}
		switch {
		case topArray[src]:
			planned.src = arraySource{name: src, top: true}
		case arrPresent[src]:
			planned.src = arraySource{name: src}
		default:
			missing = append(missing, src)
			continue
		}
		p.arrays = append(p.arrays, planned)
	}

	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, &MissingFieldsError{Fields: missing}
	}

	hasScalar := func(out string) bool {
		for _, group := range [][]plannedScalar{p.sums, p.intSums, p.medians} {
			for _, f := range group {
				if f.out == prefix+out {
					return true
				}
			}
		}
		return false
	}
	hasArray := func(out string) bool {
		for _, f := range p.arrays {
			if f.out == prefix+out {
				return true
			}
		}
		return false
	}

	switch {
	case hasArray("RAW_MQandDP"):
		p.mq = mqFromRawMQandDP
	case hasScalar("RAW_MQ") && hasScalar("MQ_DP"):
		p.mq = mqFromPair
	}
	p.computeQD = hasScalar("VarDP") && hasScalar("QUALapprox")
	if hasArray("SB") {
		p.sbOut = prefix + "SB"
		if prefix == "AS_" {
			// GATK nomenclature: the allele-specific strand-bias
			// aggregate is AS_SB_TABLE.
			p.sbOut = "AS_SB_TABLE"
		}
	}
	return p, nil
}
