package vote

import "github.com/sramlab/pufrecon/internal/puferr"

// Combine merges several vote vectors by simple majority. At each position
// Zero and One votes are counted and Ambiguous votes are ignored; the larger
// count wins and a tie (including no decided votes at all) is Ambiguous.
//
// The result does not depend on the order of the inputs.
func Combine(votes ...Vector) (Vector, error) {
	if len(votes) == 0 {
		return nil, puferr.ErrEmptyInput
	}
	n := len(votes[0])
	for i, v := range votes[1:] {
		if len(v) != n {
			return nil, &puferr.LengthError{Op: "combine votes", Expected: n, Actual: len(v), Index: i + 1}
		}
	}
	out := make(Vector, n)
	for i := range out {
		var zeros, ones int
		for _, v := range votes {
			switch v[i] {
			case Zero:
				zeros++
			case One:
				ones++
			}
		}
		switch {
		case ones > zeros:
			out[i] = One
		case zeros > ones:
			out[i] = Zero
		default:
			out[i] = Ambiguous
		}
	}
	return out, nil
}
