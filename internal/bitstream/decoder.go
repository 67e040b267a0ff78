// Package bitstream turns SRAM capture records into bit vectors and cuts
// them into regions and segments.
package bitstream

import (
	"strings"

	"github.com/sramlab/pufrecon/internal/puferr"
)

// Record is one (address, word) row of a capture. Word holds the byte as
// written by the capture tool, in hex.
type Record struct {
	Address int
	Word    string
}

// ParseWord validates a 1-2 digit hex word and returns its value.
func ParseWord(word string) (byte, bool) {
	w := strings.TrimSpace(word)
	if len(w) == 0 || len(w) > 2 {
		return 0, false
	}
	var v byte
	for i := 0; i < len(w); i++ {
		d, ok := hexDigit(w[i])
		if !ok {
			return 0, false
		}
		v = v<<4 | d
	}
	return v, true
}

func hexDigit(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

// Decode concatenates the 8 bits of every record's word, most significant
// bit first, in record order. Addresses are not used for ordering.
func Decode(records []Record) (BitVector, error) {
	b := NewBuilder(len(records) * 8)
	for i, r := range records {
		v, ok := ParseWord(r.Word)
		if !ok {
			return BitVector{}, &puferr.RecordError{
				Index:   i,
				Address: r.Address,
				Word:    r.Word,
				Reason:  "word is not a 2-digit hex byte",
			}
		}
		b.AppendByte(v)
	}
	return b.Build(), nil
}
