// Package pagerange turns detected document boundaries into the page ranges
// the splitter extracts. It is pure: no I/O, no state.
package pagerange

import (
	"fmt"
	"sort"
)

// Range is a closed, 1-based page interval.
type Range struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// ValidationError reports an unusable boundary list.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid boundaries: %s", e.Reason)
}

// Calculate maps 1-based boundary pages onto ascending, gap-free,
// non-overlapping ranges covering [1, totalPages]. Each boundary opens a
// range that ends one page before the next boundary, or at totalPages for
// the last one.
//
// The boundary list must be non-empty, every value must lie in
// [1, totalPages], and duplicates are rejected: a duplicated boundary would
// silently collapse into a zero-length range and the segment count would no
// longer match the boundary count.
func Calculate(boundaries []int, totalPages int) ([]Range, error) {
	if len(boundaries) == 0 {
		return nil, &ValidationError{Reason: "boundary list is empty"}
	}
	if totalPages < 1 {
		return nil, &ValidationError{Reason: fmt.Sprintf("total page count %d is not positive", totalPages)}
	}

	sorted := make([]int, len(boundaries))
	copy(sorted, boundaries)
	sort.Ints(sorted)

	for i, b := range sorted {
		if b < 1 || b > totalPages {
			return nil, &ValidationError{Reason: fmt.Sprintf("boundary %d is outside [1, %d]", b, totalPages)}
		}
		if i > 0 && b == sorted[i-1] {
			return nil, &ValidationError{Reason: fmt.Sprintf("boundary %d appears more than once", b)}
		}
	}

	ranges := make([]Range, 0, len(sorted))
	for i, start := range sorted {
		end := totalPages
		if i+1 < len(sorted) {
			end = sorted[i+1] - 1
		}
		if start <= end {
			ranges = append(ranges, Range{Start: start, End: end})
		}
	}
	return ranges, nil
}
