package models

// These structs define the JSON payloads exchanged with the triggering event
// and the external boundary detection service.

// SplitRequest is the CloudEvent payload published when a StagingRecord is
// created (or manually retried). It carries only the record id; everything
// else is read back from Firestore.
type SplitRequest struct {
	StagingID string `json:"stagingId"`
}

// DetectBoundariesRequest is the body POSTed to a webhook boundary detector.
type DetectBoundariesRequest struct {
	FileURL string `json:"fileUrl"`
}

// DetectBoundariesResponse is the detector's answer: ordered 1-based page
// numbers marking the first page of each logical document.
type DetectBoundariesResponse struct {
	Pages []int `json:"pages"`
}
