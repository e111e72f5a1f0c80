// Package detector locates logical document boundaries inside a
// multi-document PDF. The contract is fixed (signed source URL in, ordered
// 1-based start pages out) while the detection technique behind it is
// swappable: an external webhook service or Vertex AI vision analysis.
package detector

import (
	"context"
	"fmt"
)

// BoundaryDetector returns the ordered 1-based page numbers where each
// logical document inside the referenced PDF begins. Implementations must
// never return an empty, error-free result: zero boundaries means splitting
// cannot proceed and is always an AnalysisError.
type BoundaryDetector interface {
	DetectBoundaries(ctx context.Context, fileURL string) ([]int, error)
}

// AnalysisError reports a detector that was unreachable or returned an
// empty or malformed result.
type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("boundary detection failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("boundary detection failed: %s", e.Reason)
}

func (e *AnalysisError) Unwrap() error { return e.Err }

func validatePages(pages []int) ([]int, error) {
	if len(pages) == 0 {
		return nil, &AnalysisError{Reason: "detector returned no boundaries"}
	}
	for _, p := range pages {
		if p < 1 {
			return nil, &AnalysisError{Reason: fmt.Sprintf("detector returned invalid page number %d", p)}
		}
	}
	return pages, nil
}
