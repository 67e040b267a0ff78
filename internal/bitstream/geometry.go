package bitstream

import (
	"fmt"
	"strings"

	"github.com/sramlab/pufrecon/internal/puferr"
)

// Device defaults. Two chips of 16 segments of 8192 bytes each.
const (
	DefaultRegionBits  = 16 * DefaultSegmentBits
	DefaultSegmentBits = 8192 * 8
)

// DefaultRegions names the regions of a dual-chip capture, in stream order.
var DefaultRegions = []string{"chip1", "chip2"}

// SegmentPolicy decides what happens when a region is not a whole number of
// segments.
type SegmentPolicy int

const (
	// SegmentStrict fails with ErrSegmentSizeMismatch.
	SegmentStrict SegmentPolicy = iota
	// SegmentAllowShortLast lets the final segment be shorter than the rest.
	SegmentAllowShortLast
)

func (p SegmentPolicy) String() string {
	switch p {
	case SegmentStrict:
		return "strict"
	case SegmentAllowShortLast:
		return "allow-short-last"
	}
	return fmt.Sprintf("SegmentPolicy(%d)", int(p))
}

// ParseSegmentPolicy accepts the names produced by String.
func ParseSegmentPolicy(s string) (SegmentPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strict":
		return SegmentStrict, nil
	case "allow-short-last", "short-last":
		return SegmentAllowShortLast, nil
	}
	return SegmentStrict, fmt.Errorf("unknown segment policy %q (want strict or allow-short-last)", s)
}

// Geometry is the runtime description of a capture: how many bits each
// region holds, the region names in stream order and the segment size.
type Geometry struct {
	RegionBits  int
	SegmentBits int
	Policy      SegmentPolicy
	Regions     []string
}

// DefaultGeometry returns the dual-chip layout.
func DefaultGeometry() Geometry {
	return Geometry{
		RegionBits:  DefaultRegionBits,
		SegmentBits: DefaultSegmentBits,
		Policy:      SegmentStrict,
		Regions:     append([]string(nil), DefaultRegions...),
	}
}

// Validate checks the geometry can split a region into segments.
func (g Geometry) Validate() error {
	if g.RegionBits <= 0 {
		return fmt.Errorf("region bits must be positive, got %d", g.RegionBits)
	}
	if g.SegmentBits <= 0 {
		return fmt.Errorf("segment bits must be positive, got %d", g.SegmentBits)
	}
	if len(g.Regions) == 0 {
		return fmt.Errorf("at least one region name is required")
	}
	seen := make(map[string]bool, len(g.Regions))
	for _, name := range g.Regions {
		if name == "" {
			return fmt.Errorf("region names must not be empty")
		}
		if seen[name] {
			return fmt.Errorf("duplicate region name %q", name)
		}
		seen[name] = true
	}
	if g.Policy == SegmentStrict && g.RegionBits%g.SegmentBits != 0 {
		return &puferr.SegmentError{RegionBits: g.RegionBits, SegmentBits: g.SegmentBits}
	}
	return nil
}

// TotalBits is the stream length the geometry expects.
func (g Geometry) TotalBits() int { return g.RegionBits * len(g.Regions) }

// SegmentCount returns ceil(RegionBits / SegmentBits).
func (g Geometry) SegmentCount() int {
	if g.SegmentBits <= 0 {
		return 0
	}
	return (g.RegionBits + g.SegmentBits - 1) / g.SegmentBits
}

// Region is a named slice of a full capture.
type Region struct {
	Name   string
	Offset int // first bit in the full stream
	Bits   BitVector
	Padded int // trailing zero bits added because the stream was short
}

// Split is the result of cutting a capture into regions.
type Split struct {
	Regions   []Region
	Padded    int // total zero bits added across all regions
	Discarded int // bits past the last region that were dropped
}

// Region returns the region with the given name.
func (s Split) Region(name string) (Region, bool) {
	for _, r := range s.Regions {
		if r.Name == name {
			return r, true
		}
	}
	return Region{}, false
}

// SplitRegions cuts v into consecutive regions of RegionBits each. Bits past
// the last region are discarded. A short stream is zero-padded and the
// padding is reported on both the region and the split.
func (g Geometry) SplitRegions(v BitVector) (Split, error) {
	if g.RegionBits <= 0 || len(g.Regions) == 0 {
		return Split{}, fmt.Errorf("invalid geometry: %d region bits, %d regions", g.RegionBits, len(g.Regions))
	}
	var out Split
	for i, name := range g.Regions {
		start := i * g.RegionBits
		end := start + g.RegionBits
		r := Region{Name: name, Offset: start}
		switch {
		case end <= v.Len():
			r.Bits = v.Slice(start, end)
		case start < v.Len():
			r.Bits = v.Slice(start, v.Len()).Pad(g.RegionBits)
			r.Padded = end - v.Len()
		default:
			r.Bits = Zeros(g.RegionBits)
			r.Padded = g.RegionBits
		}
		out.Padded += r.Padded
		out.Regions = append(out.Regions, r)
	}
	if extra := v.Len() - g.TotalBits(); extra > 0 {
		out.Discarded = extra
	}
	return out, nil
}

// Segments splits a region's bits into segments of SegmentBits. Under the
// strict policy a region that does not divide evenly fails with
// ErrSegmentSizeMismatch; otherwise the last segment may be short.
func (g Geometry) Segments(region BitVector) ([]BitVector, error) {
	if g.SegmentBits <= 0 {
		return nil, fmt.Errorf("segment bits must be positive, got %d", g.SegmentBits)
	}
	n := region.Len()
	if n == 0 {
		return nil, puferr.ErrEmptyInput
	}
	if n%g.SegmentBits != 0 && g.Policy == SegmentStrict {
		return nil, &puferr.SegmentError{RegionBits: n, SegmentBits: g.SegmentBits}
	}
	count := (n + g.SegmentBits - 1) / g.SegmentBits
	out := make([]BitVector, 0, count)
	for i := 0; i < count; i++ {
		start := i * g.SegmentBits
		end := min(start+g.SegmentBits, n)
		out = append(out, region.Slice(start, end))
	}
	return out, nil
}

// Chunk cuts v into count pieces of size bits each, the way a raw capture is
// exported segment by segment. Pieces past the end of v are short or empty;
// callers decide whether to warn.
func Chunk(v BitVector, size, count int) []BitVector {
	out := make([]BitVector, 0, count)
	for i := 0; i < count; i++ {
		start := min(i*size, v.Len())
		end := min(start+size, v.Len())
		out = append(out, v.Slice(start, end))
	}
	return out
}
