package cmd

import (
	"fmt"
	"os"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/sramlab/pufrecon/internal/score"
	"github.com/sramlab/pufrecon/internal/vote"
)

// ── Unified output helpers ────────────────────────────────────────────────────
// All commands use these functions to ensure consistent icon usage and
// indentation throughout pufrecon's CLI output.
//
// Icon semantics:
//   ✓  success
//   ✗  error / failure          (written to stderr)
//   ⚠  warning
//   ○  skipped / not applicable
//   ~  neutral info

// printSection prints a top-level section header, e.g. "=== Recover ===".
func printSection(title string) {
	fmt.Printf("\n=== %s ===\n", title)
}

// printOK prints a success line.
//   name = "" → "  ✓  msg"
//   name set  → "  ✓  [name] msg"
func printOK(name, msg string) {
	if name == "" {
		fmt.Printf("  ✓  %s\n", msg)
	} else {
		fmt.Printf("  ✓  [%s] %s\n", name, msg)
	}
}

// printErr prints an error line to stderr.
func printErr(name, msg string) {
	if name == "" {
		fmt.Fprintf(os.Stderr, "  ✗  %s\n", msg)
	} else {
		fmt.Fprintf(os.Stderr, "  ✗  [%s] %s\n", name, msg)
	}
}

// printWarn prints a warning line.
func printWarn(name, msg string) {
	if name == "" {
		fmt.Printf("  ⚠  %s\n", msg)
	} else {
		fmt.Printf("  ⚠  [%s] %s\n", name, msg)
	}
}

// printSkip prints a skipped / not-applicable line.
func printSkip(name, msg string) {
	if name == "" {
		fmt.Printf("  ○  %s\n", msg)
	} else {
		fmt.Printf("  ○  [%s] %s\n", name, msg)
	}
}

// printInfo prints a neutral informational line.
func printInfo(name, msg string) {
	if name == "" {
		fmt.Printf("  ~  %s\n", msg)
	} else {
		fmt.Printf("  ~  [%s] %s\n", name, msg)
	}
}

var countPrinter = message.NewPrinter(language.English)

// formatCount renders n with thousands separators, e.g. 1,048,576.
func formatCount(n int) string {
	return countPrinter.Sprintf("%d", n)
}

// printVoteStats prints the outcome counts of a vote vector.
func printVoteStats(name string, v vote.Vector) {
	st := v.Stats()
	printOK(name, fmt.Sprintf("%s votes: %s one, %s zero, %s ambiguous",
		formatCount(len(v)), formatCount(st.Ones), formatCount(st.Zeros), formatCount(st.Ambiguous)))
}

// printScores prints one line per reference period and the mean.
func printScores(r score.Report) {
	for _, s := range r.Segments {
		fmt.Printf("  Segment %02d: %.4f\n", s.Index, s.Score)
	}
	if len(r.Segments) > 1 {
		fmt.Printf("  Mean:       %.4f\n", r.Mean())
		if best, ok := r.Best(); ok {
			fmt.Printf("  Best:       Segment %02d (%.4f)\n", best.Index, best.Score)
		}
	}
}
