package rnc

import "fmt"

// MaxNumber is the largest num_rnc that fits the 8-digit business format.
const MaxNumber uint64 = 99_999_999

// NextNumber returns the number following currentMax (0 when no report exists).
func NextNumber(currentMax uint64) (uint64, error) {
	next := currentMax + 1
	if next > MaxNumber {
		return 0, fmt.Errorf("%w: next would be %d", ErrCapacityExceeded, next)
	}
	return next, nil
}
