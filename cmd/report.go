package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/sramlab/pufrecon/internal/bitstream"
	"github.com/sramlab/pufrecon/internal/capture"
	"github.com/sramlab/pufrecon/internal/score"
	"github.com/sramlab/pufrecon/internal/vote"
)

// runReport is the JSON written by --report.
type runReport struct {
	RunID      string        `json:"run_id"`
	CreatedAt  time.Time     `json:"created_at"`
	Command    string        `json:"command"`
	Regions    []string      `json:"regions,omitempty"`
	Segments   []int         `json:"segments,omitempty"`
	Samples    int           `json:"samples"`
	Padded     int           `json:"padded_bits"`
	Votes      int           `json:"votes"`
	Ambiguous  int           `json:"ambiguous"`
	Mismatches uint64        `json:"mismatches"`
	Mean       float64       `json:"mean_score"`
	Accuracy   *score.Report `json:"accuracy,omitempty"`
}

func newRunReport(command string) *runReport {
	return &runReport{
		RunID:     uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		Command:   command,
	}
}

// setVotes records vote counts.
func (r *runReport) setVotes(v vote.Vector) {
	r.Votes = len(v)
	r.Ambiguous = int(v.AmbiguousSet().GetCardinality())
}

// scoreAgainst compares v against ref, prints the result and records it.
func (r *runReport) scoreAgainst(v vote.Vector, ref bitstream.BitVector) error {
	acc, err := score.Votes(v, ref)
	if err != nil {
		return err
	}
	mm, err := score.Mismatches(v, ref)
	if err != nil {
		return err
	}
	r.Accuracy = &acc
	r.Mean = acc.Mean()
	r.Mismatches = mm.GetCardinality()
	printScores(acc)
	return nil
}

// write stores the report as indented JSON at path. An empty path is a
// no-op.
func (r *runReport) write(path string) error {
	if path == "" {
		return nil
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("cannot marshal report: %w", err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("cannot write report %s: %w", path, err)
	}
	printOK("", fmt.Sprintf("Report written: %s (run %s)", path, r.RunID))
	return nil
}

// loadReference reads the reference capture. When the path came from the
// config rather than a flag, a missing file skips scoring instead of
// failing.
func loadReference(path string, explicit bool) (bitstream.BitVector, bool, error) {
	if path == "" {
		return bitstream.BitVector{}, false, nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && !explicit {
		printSkip("", fmt.Sprintf("Reference %s not found, scoring skipped", path))
		return bitstream.BitVector{}, false, nil
	}
	ref, err := capture.LoadBits(path)
	if err != nil {
		return bitstream.BitVector{}, false, fmt.Errorf("cannot load reference: %w", err)
	}
	printInfo("", fmt.Sprintf("Reference %s: %s bits", path, formatCount(ref.Len())))
	return ref, true, nil
}
