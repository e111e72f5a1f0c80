package detector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/vertexai/genai"

	"github.com/berminguez/trinoa-sub002/internal/gcp"
	"github.com/berminguez/trinoa-sub002/internal/models"
)

// maxSourcePDFBytes caps how much of the source we inline into the model
// request. Gemini rejects larger documents anyway.
const maxSourcePDFBytes = 50 << 20

// VertexDetector analyzes the PDF with a Gemini model configured for
// forced-JSON output. The PDF is fetched through the same signed URL the
// webhook variant would receive, keeping the contract identical.
type VertexDetector struct {
	model  *genai.GenerativeModel
	client *http.Client
}

// NewVertexDetector wraps the pre-configured boundary model.
func NewVertexDetector(vc *gcp.VertexClient) *VertexDetector {
	return &VertexDetector{
		model:  vc.BoundaryModel,
		client: &http.Client{Timeout: 2 * time.Minute},
	}
}

// DetectBoundaries implements BoundaryDetector.
func (d *VertexDetector) DetectBoundaries(ctx context.Context, fileURL string) ([]int, error) {
	data, err := d.fetchPDF(ctx, fileURL)
	if err != nil {
		return nil, err
	}

	filePart := genai.Blob{MIMEType: "application/pdf", Data: data}
	prompt := genai.Text(gcp.BoundaryDetectorUserPrompt)

	resp, err := d.model.GenerateContent(ctx, filePart, prompt)
	if err != nil {
		return nil, &AnalysisError{Reason: "call to Vertex AI failed", Err: err}
	}

	jsonString := extractJSONContent(resp)
	if jsonString == "" {
		return nil, &AnalysisError{Reason: "model returned an empty response instead of JSON"}
	}
	return parseBoundaryJSON(jsonString)
}

func (d *VertexDetector) fetchPDF(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, &AnalysisError{Reason: "failed to build source fetch request", Err: err}
	}
	resp, err := d.client.Do(req)
	if err != nil {
		return nil, &AnalysisError{Reason: "failed to fetch source PDF", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &AnalysisError{Reason: fmt.Sprintf("source fetch returned status %d (signed URL expired?)", resp.StatusCode)}
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourcePDFBytes+1))
	if err != nil {
		return nil, &AnalysisError{Reason: "failed to read source PDF", Err: err}
	}
	if len(data) > maxSourcePDFBytes {
		return nil, &AnalysisError{Reason: fmt.Sprintf("source PDF exceeds %d bytes", maxSourcePDFBytes)}
	}
	return data, nil
}

// extractJSONContent robustly gets the raw text content from the model response.
func extractJSONContent(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return ""
	}
	// The model is configured to return JSON, so we expect a single text part.
	if txt, ok := resp.Candidates[0].Content.Parts[0].(genai.Text); ok {
		// Clean potential markdown fences just in case
		cleanJSON := strings.TrimSpace(string(txt))
		cleanJSON = strings.TrimPrefix(cleanJSON, "```json")
		cleanJSON = strings.TrimSuffix(cleanJSON, "```")
		return strings.TrimSpace(cleanJSON)
	}
	return ""
}

func parseBoundaryJSON(jsonString string) ([]int, error) {
	var parsed models.DetectBoundariesResponse
	if err := json.Unmarshal([]byte(jsonString), &parsed); err != nil {
		return nil, &AnalysisError{Reason: "failed to parse JSON from model", Err: err}
	}
	return validatePages(parsed.Pages)
}
