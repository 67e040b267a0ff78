// Package sink stores rendered grids as PNG images on local disk or in an
// object store.
package sink

import (
	"bytes"
	"fmt"
	"image/png"
	"path"
	"strings"

	"github.com/sramlab/pufrecon/internal/render"
)

// ContentType is set on uploaded objects.
const ContentType = "image/png"

// EncodePNG encodes g as an 8-bit grayscale PNG.
func EncodePNG(g *render.Grid) ([]byte, error) {
	if g == nil {
		return nil, fmt.Errorf("nil grid")
	}
	var buf bytes.Buffer
	enc := png.Encoder{CompressionLevel: png.BestCompression}
	if err := enc.Encode(&buf, g.Image()); err != nil {
		return nil, fmt.Errorf("cannot encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// fileName appends .png unless name already carries it.
func fileName(name string) string {
	if strings.EqualFold(path.Ext(name), ".png") {
		return name
	}
	return name + ".png"
}

func objectKey(prefix, name string) string {
	return path.Join(prefix, fileName(name))
}
