package detector

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/berminguez/trinoa-sub002/internal/models"
)

// WebhookDetector calls an external HTTP service that analyzes the PDF
// behind a signed URL and answers {"pages": [...]}.
type WebhookDetector struct {
	endpoint string
	client   *http.Client
}

// NewWebhookDetector creates a detector posting to the given endpoint. The
// timeout must stay well under the signed URL TTL so a slow service fails
// here rather than with an expired URL downstream.
func NewWebhookDetector(endpoint string) *WebhookDetector {
	return &WebhookDetector{
		endpoint: endpoint,
		client:   &http.Client{Timeout: 5 * time.Minute},
	}
}

// DetectBoundaries implements BoundaryDetector.
func (d *WebhookDetector) DetectBoundaries(ctx context.Context, fileURL string) ([]int, error) {
	body, err := json.Marshal(models.DetectBoundariesRequest{FileURL: fileURL})
	if err != nil {
		return nil, &AnalysisError{Reason: "failed to encode request", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &AnalysisError{Reason: "failed to build request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &AnalysisError{Reason: "detector unreachable", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &AnalysisError{Reason: fmt.Sprintf("detector returned status %d: %s", resp.StatusCode, snippet)}
	}

	var parsed models.DetectBoundariesResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &AnalysisError{Reason: "malformed detector response", Err: err}
	}
	return validatePages(parsed.Pages)
}
