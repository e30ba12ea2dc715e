package locus

import (
	"bufio"
	"bytes"
	"io"
	"strconv"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/fileio"
	"github.com/grailbio/base/vcontext"
	"github.com/klauspost/compress/gzip"
	"github.com/pkg/errors"
)

// ReadSiteList reads a site list from a two-column (contig, 1-based
// position) TSV.  Lines starting with '#' and blank lines are skipped.
// Sites on contigs unknown to g are rejected; callers that want to
// tolerate them should filter the list themselves first.
func ReadSiteList(reader io.Reader, g *Genome) ([]Locus, error) {
	scanner := bufio.NewScanner(reader)
	var sites []Locus
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := scanner.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := bytes.Fields(line)
		if len(fields) < 2 {
			return nil, errors.Errorf("locus.ReadSiteList: line %d: expected at least 2 columns", lineIdx)
		}
		contig := string(fields[0])
		if _, err := g.ContigID(contig); err != nil {
			return nil, errors.Wrapf(err, "locus.ReadSiteList: line %d", lineIdx)
		}
		pos, err := strconv.ParseInt(string(fields[1]), 10, 32)
		if err != nil || pos < 1 {
			return nil, errors.Errorf("locus.ReadSiteList: line %d: invalid position %q", lineIdx, fields[1])
		}
		sites = append(sites, Locus{Contig: contig, Pos: PosType(pos)})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return sites, nil
}

// ReadSiteListFromPath is a wrapper for ReadSiteList that takes a path
// instead of an io.Reader, transparently decompressing .gz inputs.
func ReadSiteListFromPath(path string, g *Genome) (sites []Locus, err error) {
	ctx := vcontext.Background()
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
	return ReadSiteList(reader, g)
}

// ReadContigs reads an ordered contig dictionary from a two-column
// (name, length) TSV, classifying each contig by name.  The row order
// defines the genome's contig ordering.
func ReadContigs(reader io.Reader) ([]Contig, error) {
	scanner := bufio.NewScanner(reader)
	var contigs []Contig
	lineIdx := 0
	for scanner.Scan() {
		lineIdx++
		line := scanner.Bytes()
		if len(line) == 0 || line[0] == '#' {
			continue
		}
		fields := bytes.Fields(line)
		if len(fields) < 2 {
			return nil, errors.Errorf("locus.ReadContigs: line %d: expected at least 2 columns", lineIdx)
		}
		length, err := strconv.ParseInt(string(fields[1]), 10, 32)
		if err != nil || length < 0 {
			return nil, errors.Errorf("locus.ReadContigs: line %d: invalid length %q", lineIdx, fields[1])
		}
		name := string(fields[0])
		contigs = append(contigs, Contig{
			Name:   name,
			Length: PosType(length),
			Class:  ClassifyContigName(name),
		})
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return contigs, nil
}

// ReadContigsFromPath is a wrapper for ReadContigs that takes a path
// instead of an io.Reader.
func ReadContigsFromPath(path string) (contigs []Contig, err error) {
	ctx := vcontext.Background()
	var infile file.File
	if infile, err = file.Open(ctx, path); err != nil {
		return
	}
	defer func() {
		if cerr := infile.Close(ctx); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return ReadContigs(infile.Reader(ctx))
}
