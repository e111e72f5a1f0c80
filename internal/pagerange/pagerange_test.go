package pagerange

import (
	"errors"
	"reflect"
	"testing"
)

func TestCalculate(t *testing.T) {
	tests := []struct {
		name       string
		boundaries []int
		totalPages int
		want       []Range
	}{
		{
			name:       "single boundary spans whole document",
			boundaries: []int{1},
			totalPages: 10,
			want:       []Range{{1, 10}},
		},
		{
			name:       "three boundaries partition ten pages",
			boundaries: []int{1, 4, 8},
			totalPages: 10,
			want:       []Range{{1, 3}, {4, 7}, {8, 10}},
		},
		{
			name:       "unsorted input is sorted first",
			boundaries: []int{8, 1, 4},
			totalPages: 10,
			want:       []Range{{1, 3}, {4, 7}, {8, 10}},
		},
		{
			name:       "boundary on the last page yields a one-page segment",
			boundaries: []int{1, 10},
			totalPages: 10,
			want:       []Range{{1, 9}, {10, 10}},
		},
		{
			name:       "document starting mid-file",
			boundaries: []int{3},
			totalPages: 5,
			want:       []Range{{3, 5}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Calculate(tt.boundaries, tt.totalPages)
			if err != nil {
				t.Fatalf("Calculate(%v, %d) returned error: %v", tt.boundaries, tt.totalPages, err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Calculate(%v, %d) = %v, want %v", tt.boundaries, tt.totalPages, got, tt.want)
			}
		})
	}
}

func TestCalculateValidation(t *testing.T) {
	tests := []struct {
		name       string
		boundaries []int
		totalPages int
	}{
		{"empty boundary list", nil, 10},
		{"boundary below one", []int{0, 4}, 10},
		{"negative boundary", []int{-3}, 10},
		{"boundary beyond total pages", []int{1, 11}, 10},
		{"duplicate boundaries", []int{1, 4, 4}, 10},
		{"zero total pages", []int{1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Calculate(tt.boundaries, tt.totalPages)
			if err == nil {
				t.Fatalf("Calculate(%v, %d) succeeded, want validation error", tt.boundaries, tt.totalPages)
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Errorf("Calculate(%v, %d) error = %T, want *ValidationError", tt.boundaries, tt.totalPages, err)
			}
		})
	}
}

// The computed ranges must always partition [1, totalPages]: ascending, no
// gaps, no overlaps, one range per boundary.
func TestCalculatePartitions(t *testing.T) {
	cases := []struct {
		boundaries []int
		totalPages int
	}{
		{[]int{1}, 1},
		{[]int{1, 2, 3, 4, 5}, 5},
		{[]int{1, 7}, 20},
		{[]int{1, 2, 19, 20}, 20},
		{[]int{5, 1, 17, 9}, 33},
	}

	for _, c := range cases {
		ranges, err := Calculate(c.boundaries, c.totalPages)
		if err != nil {
			t.Fatalf("Calculate(%v, %d): %v", c.boundaries, c.totalPages, err)
		}
		if len(ranges) != len(c.boundaries) {
			t.Errorf("Calculate(%v, %d) produced %d ranges, want %d", c.boundaries, c.totalPages, len(ranges), len(c.boundaries))
		}
		next := 1
		for _, r := range ranges {
			if r.Start != next {
				t.Errorf("Calculate(%v, %d): range %v leaves a gap or overlap at page %d", c.boundaries, c.totalPages, r, next)
			}
			if r.End < r.Start {
				t.Errorf("Calculate(%v, %d): inverted range %v", c.boundaries, c.totalPages, r)
			}
			next = r.End + 1
		}
		if next != c.totalPages+1 {
			t.Errorf("Calculate(%v, %d): ranges end at %d, want %d", c.boundaries, c.totalPages, next-1, c.totalPages)
		}
	}
}
