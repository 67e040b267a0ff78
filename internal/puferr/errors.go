// Package puferr defines the failure taxonomy shared by the reconstruction
// packages. Every failure is terminal for the computation that produced it.
//
// Callers match on the sentinels with errors.Is and extract detail with
// errors.As against the typed errors below.
package puferr

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord is returned when a capture record cannot be decoded.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrLengthMismatch is returned when vectors that must line up do not.
	ErrLengthMismatch = errors.New("length mismatch")

	// ErrSegmentSizeMismatch is returned when a region does not divide into
	// segments under the selected policy.
	ErrSegmentSizeMismatch = errors.New("segment size mismatch")

	// ErrEmptySampleSet is returned when aggregating zero samples.
	ErrEmptySampleSet = errors.New("empty sample set")

	// ErrEmptyInput is returned when an operation receives nothing to work on.
	ErrEmptyInput = errors.New("empty input")

	// ErrReferenceSizeMismatch is returned when a candidate is not a whole
	// number of reference periods.
	ErrReferenceSizeMismatch = errors.New("reference size mismatch")

	// ErrSampleCountMismatch is returned when two weight vectors were built
	// from a different number of samples.
	ErrSampleCountMismatch = fmt.Errorf("%w: sample counts differ", ErrLengthMismatch)
)

// RecordError describes a capture record that failed validation.
type RecordError struct {
	Index   int // 0-based position in the record stream
	Address int
	Word    string
	Reason  string
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("malformed record %d (address %#x, word %q): %s", e.Index, e.Address, e.Word, e.Reason)
}

func (e *RecordError) Unwrap() error { return ErrMalformedRecord }

// LengthError describes two lengths that were required to agree.
type LengthError struct {
	Op       string
	Expected int
	Actual   int
	Index    int // offending input, -1 when not applicable
}

func (e *LengthError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("%s: length mismatch at input %d: expected %d, got %d", e.Op, e.Index, e.Expected, e.Actual)
	}
	return fmt.Sprintf("%s: length mismatch: expected %d, got %d", e.Op, e.Expected, e.Actual)
}

func (e *LengthError) Unwrap() error { return ErrLengthMismatch }

// SegmentError describes a region that does not split evenly.
type SegmentError struct {
	RegionBits  int
	SegmentBits int
}

func (e *SegmentError) Error() string {
	return fmt.Sprintf("segment size mismatch: %d region bits do not divide into %d-bit segments", e.RegionBits, e.SegmentBits)
}

func (e *SegmentError) Unwrap() error { return ErrSegmentSizeMismatch }

// ReferenceError describes a candidate whose length is not a multiple of the
// reference length. It matches both ErrReferenceSizeMismatch and
// ErrLengthMismatch.
type ReferenceError struct {
	CandidateBits int
	ReferenceBits int
}

func (e *ReferenceError) Error() string {
	return fmt.Sprintf("reference size mismatch: candidate of %d bits is not a multiple of reference of %d bits", e.CandidateBits, e.ReferenceBits)
}

func (e *ReferenceError) Unwrap() error { return ErrReferenceSizeMismatch }

func (e *ReferenceError) Is(target error) bool { return target == ErrLengthMismatch }

// Length is a shorthand for a LengthError without an input index.
func Length(op string, expected, actual int) error {
	return &LengthError{Op: op, Expected: expected, Actual: actual, Index: -1}
}
