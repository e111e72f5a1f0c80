package gcp

import (
	"context"
	"fmt"

	"cloud.google.com/go/vertexai/genai"
)

// --- Boundary Detection Model Prompts ---
const BoundaryDetectorSystemPrompt = "You are a specialist document analysis tool. Your task is to examine a PDF file that concatenates several independent logical documents (for example multiple invoices scanned into one file) and determine the first page of each logical document. You must output your response as a valid JSON object."
const BoundaryDetectorUserPrompt = `Analyze the provided PDF document. It may contain one or more independent logical documents appended back to back.

Follow these rules precisely:
1.  Identify every page where a NEW logical document begins. Signals include a fresh letterhead, a new invoice or reference number, a restarted page numbering, or an abrupt change of layout and sender.
2.  Page numbers are 1-based: the first page of the file is page 1, and page 1 is always the start of the first logical document.
3.  Respond with a single JSON object of exactly this shape: {"pages": [1, 4, 8]}.
4.  The "pages" array must be in ascending order and contain no duplicates.
5.  If the file contains only one logical document, respond with {"pages": [1]}.
6.  Do not include any text before or after the JSON object.`

// VertexClient holds the pre-configured generative model for boundary
// detection.
type VertexClient struct {
	BoundaryModel *genai.GenerativeModel
	baseClient    *genai.Client
}

// NewVertexClient creates a new client holding the boundary detection model.
func NewVertexClient(ctx context.Context, projectID, region string) (*VertexClient, error) {
	if projectID == "" || region == "" {
		return nil, fmt.Errorf("NewVertexClient: projectID and region cannot be empty")
	}

	baseClient, err := genai.NewClient(ctx, projectID, region)
	if err != nil {
		return nil, fmt.Errorf("genai.NewClient: %w", err)
	}

	boundaryModel := baseClient.GenerativeModel("gemini-1.5-pro")
	boundaryModel.SystemInstruction = &genai.Content{
		Parts: []genai.Part{genai.Text(BoundaryDetectorSystemPrompt)},
	}
	boundaryModel.GenerationConfig = genai.GenerationConfig{
		// Force JSON output. This is a critical setting for this model.
		ResponseMIMEType: "application/json",
		Temperature:      genai.Ptr[float32](0.0), // Low temp for deterministic, structured output
	}
	boundaryModel.SafetySettings = []*genai.SafetySetting{
		{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockNone},
		{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockNone},
	}

	return &VertexClient{
		BoundaryModel: boundaryModel,
		baseClient:    baseClient,
	}, nil
}

func (c *VertexClient) Close() error {
	if c.baseClient != nil {
		return c.baseClient.Close()
	}
	return nil
}
