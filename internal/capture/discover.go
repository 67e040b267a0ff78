package capture

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sramlab/pufrecon/internal/pipeline"
)

// SegmentDirSuffix is appended to a sample folder to name its export folder.
const SegmentDirSuffix = "_SEGMENTS"

// IsCapture reports whether name looks like a capture file.
func IsCapture(name string) bool {
	n := strings.ToLower(name)
	return strings.HasSuffix(n, ".csv") ||
		strings.HasSuffix(n, ".csv"+ExtZstd) ||
		strings.HasSuffix(n, ".csv"+ExtLZ4)
}

// StripExt removes the capture extension, including a compression suffix.
func StripExt(name string) string {
	for _, ext := range []string{ExtZstd, ExtLZ4} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	return strings.TrimSuffix(name, filepath.Ext(name))
}

// DiscoverSamples lists the capture files directly under dir, sorted by
// name.
func DiscoverSamples(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot list samples in %s: %w", dir, err)
	}
	var out []string
	for _, e := range entries {
		if e.IsDir() || !IsCapture(e.Name()) {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	sort.Strings(out)
	return out, nil
}

// DiscoverPrefixed lists captures named "<prefix>_*" under dir, sorted.
func DiscoverPrefixed(dir, prefix string) ([]string, error) {
	all, err := DiscoverSamples(dir)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, p := range all {
		if strings.HasPrefix(filepath.Base(p), prefix+"_") {
			out = append(out, p)
		}
	}
	return out, nil
}

// SelectOne returns the path of sample id: <dir>/<prefix>_<id>.csv.
func SelectOne(dir, prefix string, id int) (string, error) {
	p := filepath.Join(dir, fmt.Sprintf("%s_%d.csv", prefix, id))
	if _, err := os.Stat(p); err != nil {
		return "", fmt.Errorf("sample %d: %w", id, err)
	}
	return p, nil
}

// SelectRange returns samples start..end inclusive. Every file must exist.
func SelectRange(dir, prefix string, start, end int) ([]string, error) {
	if start > end {
		return nil, fmt.Errorf("invalid sample range %d-%d", start, end)
	}
	out := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		p, err := SelectOne(dir, prefix, i)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

// ParseRange parses "7" or "3-9" into an inclusive range.
func ParseRange(s string) (int, int, error) {
	lo, hi, found := strings.Cut(strings.TrimSpace(s), "-")
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid sample range %q", s)
	}
	if !found {
		return start, start, nil
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil || end < start {
		return 0, 0, fmt.Errorf("invalid sample range %q", s)
	}
	return start, end, nil
}

// SegmentName is the export file name of segment n (1-based) of sample.
func SegmentName(sample string, n int) string {
	return fmt.Sprintf("%s_Segment%d.csv", sample, n)
}

// SegmentFiles returns the exports of segment n under dir, sorted.
func SegmentFiles(dir string, n int) ([]string, error) {
	all, err := DiscoverSamples(dir)
	if err != nil {
		return nil, err
	}
	suffix := fmt.Sprintf("_Segment%d", n)
	var out []string
	for _, p := range all {
		if strings.HasSuffix(StripExt(filepath.Base(p)), suffix) {
			out = append(out, p)
		}
	}
	return out, nil
}

// Sources wraps paths as pipeline sources.
func Sources(paths []string) []pipeline.Source {
	out := make([]pipeline.Source, len(paths))
	for i, p := range paths {
		out[i] = FileSource{Path: p}
	}
	return out
}
