package capture

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sramlab/pufrecon/internal/bitstream"
)

// WriteSegment writes v as an Address,Word capture. Addresses are 4-digit
// and words 2-digit uppercase hex. A trailing partial byte is zero-filled
// on the right.
func WriteSegment(w io.Writer, v bitstream.BitVector) error {
	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString("Address,Word\n"); err != nil {
		return err
	}
	n := v.Len()
	for addr := 0; addr*8 < n; addr++ {
		var b byte
		for j := 0; j < 8; j++ {
			b <<= 1
			if i := addr*8 + j; i < n && v.Test(i) {
				b |= 1
			}
		}
		if _, err := fmt.Fprintf(bw, "%04X,%02X\n", addr, b); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// WriteSegmentFile writes v to path, creating parent directories.
func WriteSegmentFile(path string, v bitstream.BitVector) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cannot create %s: %w", filepath.Dir(path), err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("cannot create segment file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return WriteSegment(f, v)
}
