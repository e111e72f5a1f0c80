package models

import "time"

// Status is the lifecycle state of a StagingRecord. Transitions are monotonic
// along pending -> processing -> splitting -> done; error is reachable only
// from processing or splitting and is terminal except for a manual retry.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusSplitting  Status = "splitting"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// StageStatus qualifies a single stage log entry.
type StageStatus string

const (
	StageStarted  StageStatus = "started"
	StageProgress StageStatus = "progress"
	StageSuccess  StageStatus = "success"
	StageError    StageStatus = "error"
)

// StageLogEntry is one line of the append-only pipeline audit trail kept on a
// StagingRecord. Entries are never truncated or reordered. EntryID is stamped
// by the store at append time so two otherwise identical entries stay
// distinct array elements.
type StageLogEntry struct {
	EntryID string         `firestore:"entryId,omitempty" json:"entryId,omitempty"`
	Step    string         `firestore:"step" json:"step"`
	Status  StageStatus    `firestore:"status" json:"status"`
	At      time.Time      `firestore:"at" json:"at"`
	Details string         `firestore:"details" json:"details"`
	Data    map[string]any `firestore:"data,omitempty" json:"data,omitempty"`
}

// StagingRecord tracks one multi-document upload from arrival through full
// decomposition into Derived Documents. It is the single source of truth for
// the pipeline: every stage transition is persisted before the next stage runs.
type StagingRecord struct {
	ID               string          `firestore:"-"`
	ProjectID        string          `firestore:"projectId"`
	UploaderID       string          `firestore:"uploaderId"`
	SourceFileRef    string          `firestore:"sourceFileRef"`
	OriginalFilename string          `firestore:"originalFilename"`
	Status           Status          `firestore:"status"`
	Boundaries       []int           `firestore:"boundaries,omitempty"`
	StageLog         []StageLogEntry `firestore:"stageLog,omitempty"`
	DerivedIDs       []string        `firestore:"derivedIds,omitempty"`
	Error            string          `firestore:"error,omitempty"`
	CreatedAt        time.Time       `firestore:"createdAt"`
	UpdatedAt        time.Time       `firestore:"updatedAt,omitempty"`
}

// DerivedDocument is the persisted entity representing one extracted segment.
// After creation it belongs to the downstream analysis stage; this pipeline
// never mutates it again.
type DerivedDocument struct {
	ID             string    `firestore:"-"`
	ProjectID      string    `firestore:"projectId"`
	StagingID      string    `firestore:"stagingId"`
	Title          string    `firestore:"title"`
	SegmentFileRef string    `firestore:"segmentFileRef"`
	ArtifactID     string    `firestore:"artifactId"`
	SegmentIndex   int       `firestore:"segmentIndex"`
	PageCount      int       `firestore:"pageCount"`
	Status         string    `firestore:"status"`
	CreatedAt      time.Time `firestore:"createdAt"`
}

// ArtifactRef identifies one stored segment blob: an opaque id plus the
// durable object key usable for later reads or signed URL minting.
type ArtifactRef struct {
	ID  string `json:"id"`
	Key string `json:"key"`
}
