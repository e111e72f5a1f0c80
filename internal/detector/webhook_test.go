package detector

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/berminguez/trinoa-sub002/internal/models"
)

func TestWebhookDetectorSuccess(t *testing.T) {
	var gotBody models.DetectBoundariesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("detector called with method %s, want POST", r.Method)
		}
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("failed to decode request body: %v", err)
		}
		_ = json.NewEncoder(w).Encode(models.DetectBoundariesResponse{Pages: []int{1, 4, 8}})
	}))
	defer srv.Close()

	d := NewWebhookDetector(srv.URL)
	pages, err := d.DetectBoundaries(context.Background(), "https://signed.example/source.pdf")
	if err != nil {
		t.Fatalf("DetectBoundaries: %v", err)
	}
	if !reflect.DeepEqual(pages, []int{1, 4, 8}) {
		t.Errorf("pages = %v, want [1 4 8]", pages)
	}
	if gotBody.FileURL != "https://signed.example/source.pdf" {
		t.Errorf("detector received fileUrl %q", gotBody.FileURL)
	}
}

func TestWebhookDetectorFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "empty pages",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(models.DetectBoundariesResponse{Pages: []int{}})
			},
		},
		{
			name: "missing pages field",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`{}`))
			},
		},
		{
			name: "malformed json",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(`pages: 1`))
			},
		},
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusInternalServerError)
			},
		},
		{
			name: "invalid page number",
			handler: func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(models.DetectBoundariesResponse{Pages: []int{0, 4}})
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(tt.handler)
			defer srv.Close()

			d := NewWebhookDetector(srv.URL)
			_, err := d.DetectBoundaries(context.Background(), "https://signed.example/source.pdf")
			if err == nil {
				t.Fatal("DetectBoundaries succeeded, want AnalysisError")
			}
			var aerr *AnalysisError
			if !errors.As(err, &aerr) {
				t.Errorf("error = %T, want *AnalysisError", err)
			}
		})
	}
}

func TestWebhookDetectorUnreachable(t *testing.T) {
	d := NewWebhookDetector("http://127.0.0.1:1")
	_, err := d.DetectBoundaries(context.Background(), "https://signed.example/source.pdf")
	if err == nil {
		t.Fatal("DetectBoundaries against closed port succeeded, want error")
	}
	var aerr *AnalysisError
	if !errors.As(err, &aerr) {
		t.Errorf("error = %T, want *AnalysisError", err)
	}
}

func TestParseBoundaryJSON(t *testing.T) {
	pages, err := parseBoundaryJSON(`{"pages": [1, 4, 8]}`)
	if err != nil {
		t.Fatalf("parseBoundaryJSON: %v", err)
	}
	if !reflect.DeepEqual(pages, []int{1, 4, 8}) {
		t.Errorf("pages = %v, want [1 4 8]", pages)
	}

	for _, bad := range []string{`{"pages": []}`, `{}`, `not json`, `{"pages": [-1]}`} {
		if _, err := parseBoundaryJSON(bad); err == nil {
			t.Errorf("parseBoundaryJSON(%q) succeeded, want error", bad)
		}
	}
}
