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
package main

/*
sparse-stats computes summary statistics over a sparse genomic call
matrix: per-row last reference-block starts, site-level or
allele-specific INFO aggregates, per-position coverage summaries, and
sex-chromosome ploidy estimates.
*/

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"

	"github.com/grailbio/sparse/coverage"
	"github.com/grailbio/sparse/locus"
	"github.com/grailbio/sparse/ploidy"
	"github.com/grailbio/sparse/siteinfo"
	"github.com/grailbio/sparse/sparse"
)

var (
	mode          = flag.String("mode", "info", "Computation to run; 'lastend', 'info', 'coverage', and 'ploidy' supported")
	sitesPath     = flag.String("sites", "", "Optional site-list TSV; 'info' mode densifies the matrix at these sites first")
	refIndexPath  = flag.String("ref-index", "", "Optional site-list TSV defining the 'coverage' output positions")
	thresholdsStr = flag.String("thresholds", "1,5,10,15,20,25,30,50,100", "Comma-separated coverage thresholds, strictly increasing")
	asMode        = flag.Bool("as", false, "Compute allele-specific (AS_) statistics in 'info' mode")
	strategyStr   = flag.String("strategy", "membership", "Site restriction strategy for densification; 'membership' or 'intervals'")
	normContig    = flag.String("norm-contig", "chr20", "Autosome to normalize sex-chromosome depth against in 'ploidy' mode")
	chrX          = flag.String("chr-x", "", "X chromosome contig name; required when the contig dictionary is ambiguous")
	chrY          = flag.String("chr-y", "", "Y chromosome contig name; required when the contig dictionary is ambiguous")
	format        = flag.String("format", "tsv", "Output format; 'tsv' and 'tsv-gz' supported ('lastend' always writes recordio)")
	outPath       = flag.String("out", "sparse-stats.tsv", "Output path")
)

func sparseStatsUsage() {
	fmt.Printf("Usage: %s [OPTIONS] matrixpath contigspath\n", os.Args[0])
	fmt.Printf("Other options:\n")
	flag.PrintDefaults()
}

func readMatrix(ctx context.Context, path string, g *locus.Genome) (m *sparse.Matrix, err error) {
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	reader := io.Reader(infile.Reader(ctx))
	switch fileio.DetermineType(path) {
	case fileio.Gzip:
		if reader, err = gzip.NewReader(reader); err != nil {
			return
		}
	}
	return sparse.ReadMatrixTSV(reader, g)
}

func parseThresholds(s string) ([]int, error) {
	var thresholds []int
	for _, part := range strings.Split(s, ",") {
		t, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		thresholds = append(thresholds, t)
	}
	return thresholds, nil
}

func main() {
	flag.Usage = sparseStatsUsage
	shutdown := grail.Init()
	defer shutdown()

	allArgs := flag.Args()
	nPositionalArgs := flag.NArg()
	positionalArgs := allArgs[len(allArgs)-nPositionalArgs:]
	if nPositionalArgs != 2 {
		log.Fatalf("Expected exactly 2 positional arguments (matrixpath and contigspath); please check flag syntax: '%s'", strings.Join(positionalArgs, " "))
	}
	ctx := vcontext.Background()

	contigs, err := locus.ReadContigsFromPath(positionalArgs[1])
	if err != nil {
		log.Fatalf("reading contig dictionary: %v", err)
	}
	genome := locus.NewGenome(contigs)
	m, err := readMatrix(ctx, positionalArgs[0], genome)
	if err != nil {
		log.Fatalf("reading matrix: %v", err)
	}
	log.Printf("loaded %d rows x %d samples", len(m.Rows), len(m.Samples))

	outFile, err := file.Create(ctx, *outPath)
	if err != nil {
		log.Fatalf("creating %s: %v", *outPath, err)
	}
	out := io.Writer(outFile.Writer(ctx))
	var gzWriter *gzip.Writer
	switch *format {
	case "tsv":
	case "tsv-gz":
		// lastend output is recordio and already compressed.
		if *mode != "lastend" {
			gzWriter = gzip.NewWriter(out)
			out = gzWriter
		}
	default:
		log.Fatalf("unsupported -format: %s", *format)
	}

	switch *mode {
	case "lastend":
		tbl, err := sparse.LastRefBlockEnds(m)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err = tbl.WriteRio(out); err != nil {
			log.Fatalf("writing last-end table: %v", err)
		}
	case "info":
		if *sitesPath != "" {
			sites, err := locus.ReadSiteListFromPath(*sitesPath, genome)
			if err != nil {
				log.Fatalf("reading sites: %v", err)
			}
			lastEnds, err := sparse.LastRefBlockEnds(m)
			if err != nil {
				log.Fatalf("%v", err)
			}
			opts := sparse.DensifySitesOpts{Strategy: sparse.Membership}
			if *strategyStr == "intervals" {
				opts.Strategy = sparse.IntervalList
			} else if *strategyStr != "membership" {
				log.Fatalf("unsupported -strategy: %s", *strategyStr)
			}
			var dropped []locus.Locus
			if m, dropped, err = sparse.DensifySites(m, sites, lastEnds, opts); err != nil {
				log.Fatalf("%v", err)
			}
			if len(dropped) > 0 {
				log.Printf("dropped %d sites on unknown contigs", len(dropped))
			}
		}
		cfg := siteinfo.DefaultAggConfig()
		counts := siteinfo.AlleleCounts(m, nil)
		if *asMode {
			stats, err := siteinfo.ASInfo(m, cfg, siteinfo.Opts{})
			if err != nil {
				log.Fatalf("%v", err)
			}
			if err = siteinfo.AttachASAlleleCounts(stats, counts); err != nil {
				log.Fatalf("%v", err)
			}
			if err = siteinfo.WriteASStatsTSV(stats, out); err != nil {
				log.Fatalf("writing stats: %v", err)
			}
		} else {
			stats, err := siteinfo.SiteInfo(m, cfg, siteinfo.Opts{})
			if err != nil {
				log.Fatalf("%v", err)
			}
			if err = siteinfo.AttachAlleleCounts(stats, counts); err != nil {
				log.Fatalf("%v", err)
			}
			if err = siteinfo.WriteSiteStatsTSV(stats, out); err != nil {
				log.Fatalf("writing stats: %v", err)
			}
		}
	case "coverage":
		thresholds, err := parseThresholds(*thresholdsStr)
		if err != nil {
			log.Fatalf("parsing -thresholds: %v", err)
		}
		var refIndex []locus.Locus
		if *refIndexPath != "" {
			if refIndex, err = locus.ReadSiteListFromPath(*refIndexPath, genome); err != nil {
				log.Fatalf("reading reference index: %v", err)
			}
		}
		rows, err := coverage.Stats(m, refIndex, thresholds, coverage.Opts{})
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err = coverage.WriteTSV(rows, thresholds, out); err != nil {
			log.Fatalf("writing coverage: %v", err)
		}
	case "ploidy":
		opts := ploidy.DefaultOpts()
		opts.NormalizationContig = *normContig
		opts.ChrX = *chrX
		opts.ChrY = *chrY
		stats, err := ploidy.ImputeSexPloidy(m, opts)
		if err != nil {
			log.Fatalf("%v", err)
		}
		if err = ploidy.WriteTSV(stats, out); err != nil {
			log.Fatalf("writing ploidy: %v", err)
		}
	default:
		log.Fatalf("unsupported -mode: %s", *mode)
	}

	if gzWriter != nil {
		if err = gzWriter.Close(); err != nil {
			log.Fatalf("closing gzip stream: %v", err)
		}
	}
	if err = outFile.Close(ctx); err != nil {
		log.Fatalf("closing %s: %v", *outPath, err)
	}
	log.Debug.Printf("exiting")
}
