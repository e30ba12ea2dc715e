package sparse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/recordio"
	"github.com/grailbio/base/recordio/recordiozstd"
	"github.com/grailbio/sparse/locus"
)

// recordio persistence for LastEndTable.  The table is the natural
// handoff between a one-time scan job and the (possibly many) targeted
// densification jobs that consume it, so it gets a compact on-disk
// form: one 12-byte record per row, contig names packed into a header.

const (
	lastEndContigsHeader  = "last_end_contigs"
	lastEndTrailerVersion = 1
	lastEndRecBytes       = 12
)

func init() {
	recordiozstd.Init()
}

type lastEndRec struct {
	ContigID uint32
	Pos      uint32
	LastEnd  uint32
}

func marshalLastEnd(scratch []byte, v interface{}) ([]byte, error) {
	t := scratch
	if len(t) < lastEndRecBytes {
		t = make([]byte, lastEndRecBytes)
	}
	t = t[:lastEndRecBytes]
	rec := v.(*lastEndRec)
	binary.LittleEndian.PutUint32(t[:4], rec.ContigID)
	binary.LittleEndian.PutUint32(t[4:8], rec.Pos)
	binary.LittleEndian.PutUint32(t[8:12], rec.LastEnd)
	return t, nil
}

func unmarshalLastEnd(in []byte) (interface{}, error) {
	if len(in) < lastEndRecBytes {
		return nil, fmt.Errorf("sparse: truncated last-END record (%d bytes)", len(in))
	}
	in = in[:lastEndRecBytes]
	return &lastEndRec{
		ContigID: binary.LittleEndian.Uint32(in[:4]),
		Pos:      binary.LittleEndian.Uint32(in[4:8]),
		LastEnd:  binary.LittleEndian.Uint32(in[8:12]),
	}, nil
}

func lastEndTrailer(numRows int) []byte {
	var buffer bytes.Buffer
	if err := binary.Write(&buffer, binary.LittleEndian, int64(lastEndTrailerVersion)); err != nil {
		panic("couldn't write trailer version")
	}
	if err := binary.Write(&buffer, binary.LittleEndian, int64(numRows)); err != nil {
		panic("couldn't write row count to trailer")
	}
	return buffer.Bytes()
}

func parseLastEndTrailer(trailer []byte) (int64, error) {
	r := bytes.NewReader(trailer)
	var version, numRows int64
	if err := binary.Read(r, binary.LittleEndian, &version); err != nil {
		return 0, err
	}
	if version != lastEndTrailerVersion {
		return 0, fmt.Errorf("sparse: unrecognized last-END trailer version: got %d, want %d", version, lastEndTrailerVersion)
	}
	if err := binary.Read(r, binary.LittleEndian, &numRows); err != nil {
		return 0, err
	}
	return numRows, nil
}

// WriteRio writes the table to out as a zstd-compressed recordio file.
func (t *LastEndTable) WriteRio(out io.Writer) error {
	var contigs []string
	contigIDs := make(map[string]uint32)
	for _, l := range t.Loci {
		if _, ok := contigIDs[l.Contig]; !ok {
			contigIDs[l.Contig] = uint32(len(contigs))
			contigs = append(contigs, l.Contig)
		}
	}
	w := recordio.NewWriter(out, recordio.WriterOpts{
		Marshal:      marshalLastEnd,
		Transformers: []string{recordiozstd.Name},
	})
	w.AddHeader(lastEndContigsHeader, strings.Join(contigs, "\000"))
	w.AddHeader(recordio.KeyTrailer, true)
	recs := make([]lastEndRec, len(t.Loci))
	for i, l := range t.Loci {
		recs[i] = lastEndRec{
			ContigID: contigIDs[l.Contig],
			Pos:      uint32(l.Pos),
			LastEnd:  uint32(t.Positions[i]),
		}
		w.Append(&recs[i])
	}
	w.SetTrailer(lastEndTrailer(len(t.Loci)))
	if err := w.Finish(); err != nil {
		return errors.E(err, "finishing last-END recordio stream")
	}
	return nil
}

// ReadRio reads a table written by WriteRio.
func ReadRio(rs io.ReadSeeker) (*LastEndTable, error) {
	scanner := recordio.NewScanner(rs, recordio.ScannerOpts{
		Unmarshal: unmarshalLastEnd,
	})
	var contigs []string
	for _, kv := range scanner.Header() {
		if kv.Key == lastEndContigsHeader {
			contigs = strings.Split(kv.Value.(string), "\000")
		}
	}
	t := &LastEndTable{}
	if len(scanner.Trailer()) != 0 {
		numRows, err := parseLastEndTrailer(scanner.Trailer())
		if err != nil {
			return nil, err
		}
		t.Loci = make([]locus.Locus, 0, numRows)
		t.Positions = make([]locus.PosType, 0, numRows)
	}
	for scanner.Scan() {
		rec := scanner.Get().(*lastEndRec)
		if int(rec.ContigID) >= len(contigs) {
			return nil, fmt.Errorf("sparse: last-END record references contig #%d but header has %d contigs", rec.ContigID, len(contigs))
		}
		t.Loci = append(t.Loci, locus.Locus{
			Contig: contigs[rec.ContigID],
			Pos:    locus.PosType(rec.Pos),
		})
		t.Positions = append(t.Positions, locus.PosType(rec.LastEnd))
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.E(err, "scanning last-END recordio stream")
	}
	return t, nil
}
