package pdfsplit

import (
	"errors"
	"testing"

	"github.com/berminguez/trinoa-sub002/internal/pagerange"
	"github.com/berminguez/trinoa-sub002/internal/pdftest"
)

func TestPageCount(t *testing.T) {
	for _, n := range []int{1, 3, 10} {
		src := pdftest.MultiPagePDF(n)
		got, err := PageCount(src)
		if err != nil {
			t.Fatalf("PageCount on %d-page PDF: %v", n, err)
		}
		if got != n {
			t.Errorf("PageCount = %d, want %d", got, n)
		}
	}
}

func TestPageCountRejectsGarbage(t *testing.T) {
	if _, err := PageCount([]byte("not a pdf")); err == nil {
		t.Error("PageCount on garbage input succeeded, want error")
	}
}

func TestExtractSegments(t *testing.T) {
	src := pdftest.MultiPagePDF(10)

	tests := []struct {
		name       string
		ranges     []pagerange.Range
		pageCounts []int
	}{
		{
			name:       "whole document as one segment",
			ranges:     []pagerange.Range{{Start: 1, End: 10}},
			pageCounts: []int{10},
		},
		{
			name:       "three segments",
			ranges:     []pagerange.Range{{Start: 1, End: 3}, {Start: 4, End: 7}, {Start: 8, End: 10}},
			pageCounts: []int{3, 4, 3},
		},
		{
			name:       "single page segments",
			ranges:     []pagerange.Range{{Start: 1, End: 1}, {Start: 2, End: 2}},
			pageCounts: []int{1, 1},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			segments, err := ExtractSegments(src, tt.ranges)
			if err != nil {
				t.Fatalf("ExtractSegments: %v", err)
			}
			if len(segments) != len(tt.ranges) {
				t.Fatalf("got %d segments, want %d", len(segments), len(tt.ranges))
			}
			total := 0
			for i, seg := range segments {
				count, err := PageCount(seg)
				if err != nil {
					t.Fatalf("segment %d is not a readable PDF: %v", i, err)
				}
				if count != tt.pageCounts[i] {
					t.Errorf("segment %d has %d pages, want %d", i, count, tt.pageCounts[i])
				}
				total += count
			}
			want := 0
			for _, c := range tt.pageCounts {
				want += c
			}
			if total != want {
				t.Errorf("segment pages sum to %d, want %d", total, want)
			}
		})
	}
}

func TestExtractSegmentsNamesOffendingRange(t *testing.T) {
	src := pdftest.MultiPagePDF(5)

	_, err := ExtractSegments(src, []pagerange.Range{{Start: 1, End: 3}, {Start: 11, End: 12}})
	if err == nil {
		t.Fatal("ExtractSegments with out-of-range pages succeeded, want error")
	}
	var xerr *ExtractionError
	if !errors.As(err, &xerr) {
		t.Fatalf("error = %T, want *ExtractionError", err)
	}
	if xerr.Range.Start != 11 || xerr.Range.End != 12 {
		t.Errorf("ExtractionError names range %d-%d, want 11-12", xerr.Range.Start, xerr.Range.End)
	}
}

func TestExtractSegmentsRejectsGarbageSource(t *testing.T) {
	_, err := ExtractSegments([]byte("junk"), []pagerange.Range{{Start: 1, End: 1}})
	if err == nil {
		t.Error("ExtractSegments on garbage source succeeded, want error")
	}
}
