// Package pdfsplit copies page ranges out of a source PDF into independent,
// size-optimized documents. Everything here is a pure in-memory transform.
package pdfsplit

import (
	"bytes"
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/berminguez/trinoa-sub002/internal/pagerange"
)

// ExtractionError reports a page-copy failure for a specific range. Unlike
// optimization failures, which fall back to a basic save, a page-copy failure
// is fatal for the whole batch.
type ExtractionError struct {
	Range pagerange.Range
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("failed to extract pages %d-%d: %v", e.Range.Start, e.Range.End, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

func relaxedConf() *model.Configuration {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
}

// PageCount parses src and returns its true page count. The count is always
// taken from the document itself, never trusted from the boundary detector.
func PageCount(src []byte) (int, error) {
	count, err := api.PageCount(bytes.NewReader(src), relaxedConf())
	if err != nil {
		return 0, fmt.Errorf("failed to get page count: %w", err)
	}
	return count, nil
}

// ExtractSegments copies each range out of src into a new optimized PDF,
// returning one buffer per range in the same order. A single range failing to
// extract aborts the batch.
//
// The source context must go through the full validate-and-optimize pass:
// page extraction needs the page tree structures that a plain read leaves
// unpopulated.
func ExtractSegments(src []byte, ranges []pagerange.Range) ([][]byte, error) {
	srcCtx, err := api.ReadValidateAndOptimize(bytes.NewReader(src), relaxedConf())
	if err != nil {
		return nil, fmt.Errorf("failed to parse source PDF: %w", err)
	}

	segments := make([][]byte, 0, len(ranges))
	for _, r := range ranges {
		seg, err := extractSegment(srcCtx, r)
		if err != nil {
			return nil, err
		}
		segments = append(segments, seg)
	}
	return segments, nil
}

func extractSegment(srcCtx *model.Context, r pagerange.Range) ([]byte, error) {
	pages := make([]int, 0, r.End-r.Start+1)
	for p := r.Start; p <= r.End; p++ {
		pages = append(pages, p)
	}

	segCtx, err := pdfcpu.ExtractPages(srcCtx, pages, false)
	if err != nil {
		return nil, &ExtractionError{Range: r, Err: err}
	}

	var basic bytes.Buffer
	if err := api.WriteContext(segCtx, &basic); err != nil {
		return nil, &ExtractionError{Range: r, Err: err}
	}

	return optimizeSegment(basic.Bytes()), nil
}

// optimizeSegment runs the two-pass optimization: pass 1 strips the document
// info dictionary and re-serializes without packed object streams to
// normalize structure, pass 2 re-serializes with packed object streams for
// maximum compression. Either pass failing falls back to the basic save.
func optimizeSegment(basic []byte) []byte {
	normalized, err := normalizePass(basic)
	if err != nil {
		return basic
	}
	packed, err := packPass(normalized)
	if err != nil {
		return basic
	}
	return packed
}

func normalizePass(in []byte) ([]byte, error) {
	conf := relaxedConf()
	conf.WriteObjectStream = false

	ctx, err := api.ReadValidateAndOptimize(bytes.NewReader(in), conf)
	if err != nil {
		return nil, err
	}
	ctx.XRefTable.Info = nil

	var out bytes.Buffer
	if err := api.WriteContext(ctx, &out); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}

func packPass(in []byte) ([]byte, error) {
	conf := relaxedConf()
	conf.WriteObjectStream = true

	var out bytes.Buffer
	if err := api.Optimize(bytes.NewReader(in), &out, conf); err != nil {
		return nil, err
	}
	return out.Bytes(), nil
}
