// Package capture reads and writes SRAM capture CSV files.
//
// Two layouts are understood, both with a header row:
//
//	Address,Word                 (read2chips, segment exports)
//	Chip,Segment,Address,Byte    (read100/read200 sample dumps)
//
// Addresses are hexadecimal. Files ending in .zst or .lz4 are decompressed
// on the fly; plain files are memory-mapped where the platform allows.
package capture

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"

	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/puferr"
)

// Compressed capture suffixes.
const (
	ExtZstd = ".zst"
	ExtLZ4  = ".lz4"
)

// ParseRecords reads capture rows from r. The header row is skipped, as are
// blank rows and rows with fewer than two fields.
func ParseRecords(r io.Reader) ([]bitstream.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = true
	cr.TrimLeadingSpace = true

	var out []bitstream.Record
	header := true
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("cannot parse capture CSV: %w", err)
		}
		if header {
			header = false
			continue
		}
		addrField, word, ok := fields(row)
		if !ok {
			continue
		}
		addr, err := strconv.ParseInt(strings.TrimSpace(addrField), 16, 64)
		if err != nil {
			return nil, &puferr.RecordError{
				Index:  len(out),
				Word:   word,
				Reason: fmt.Sprintf("address %q is not hexadecimal", addrField),
			}
		}
		out = append(out, bitstream.Record{Address: int(addr), Word: word})
	}
	return out, nil
}

func fields(row []string) (addr, word string, ok bool) {
	switch {
	case len(row) >= 4:
		return row[2], row[3], true
	case len(row) >= 2:
		if strings.TrimSpace(row[0]) == "" && strings.TrimSpace(row[1]) == "" {
			return "", "", false
		}
		return row[0], row[1], true
	}
	return "", "", false
}

// ReadFile parses the capture at path, decompressing by extension.
func ReadFile(path string) ([]bitstream.Record, error) {
	data, release, err := readAll(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read capture %s: %w", path, err)
	}
	defer func() { _ = release() }()

	var r io.Reader = bytes.NewReader(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ExtZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("cannot open zstd capture %s: %w", path, err)
		}
		defer dec.Close()
		r = dec
	case ExtLZ4:
		r = lz4.NewReader(r)
	}

	recs, err := ParseRecords(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return recs, nil
}

// LoadBits reads and decodes the capture at path.
func LoadBits(path string) (bitstream.BitVector, error) {
	recs, err := ReadFile(path)
	if err != nil {
		return bitstream.BitVector{}, err
	}
	v, err := bitstream.Decode(recs)
	if err != nil {
		return bitstream.BitVector{}, fmt.Errorf("%s: %w", path, err)
	}
	return v, nil
}

// FileSource is a pipeline source backed by a capture file.
type FileSource struct {
	Path string
}

// Name returns the file's base name.
func (f FileSource) Name() string { return filepath.Base(f.Path) }

// Records reads the file.
func (f FileSource) Records(ctx context.Context) ([]bitstream.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ReadFile(f.Path)
}
