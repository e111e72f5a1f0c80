package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	executions "cloud.google.com/go/workflows/executions/apiv1"
	"cloud.google.com/go/workflows/executions/apiv1/executionspb"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/berminguez/trinoa-sub002/internal/detector"
	"github.com/berminguez/trinoa-sub002/internal/gcp"
	"github.com/berminguez/trinoa-sub002/internal/models"
	"github.com/berminguez/trinoa-sub002/internal/pagerange"
	"github.com/berminguez/trinoa-sub002/internal/pdfsplit"
)

// Stage log step names. The detection and splitting phases fail
// independently: a splitting failure never discards the detection phase's
// persisted boundaries or log entries.
const (
	stepDetect = "boundary-detection"
	stepSplit  = "splitting"
)

// uploadConcurrency bounds parallel segment uploads. Results are collected
// by segment index, so derivedIds order stays ascending regardless of
// completion order.
const uploadConcurrency = 4

// RecordStore persists staging records and derived documents. The Firestore
// implementation lives in internal/gcp.
type RecordStore interface {
	Get(ctx context.Context, id string) (*models.StagingRecord, error)
	SetStatus(ctx context.Context, id string, status models.Status) error
	SetError(ctx context.Context, id, message string) error
	SetBoundaries(ctx context.Context, id string, boundaries []int) error
	AppendLog(ctx context.Context, id string, entry models.StageLogEntry) error
	AppendDerivedID(ctx context.Context, id, derivedID string) error
	ResetForRetry(ctx context.Context, id string) error
	CreateDerivedDocument(ctx context.Context, doc models.DerivedDocument) (string, error)
}

// ArtifactStore persists segment blobs and serves the source upload. The GCS
// implementation lives in internal/gcp.
type ArtifactStore interface {
	SignedSourceURL(ctx context.Context, key string, ttl time.Duration) (string, error)
	FetchSource(ctx context.Context, key string) ([]byte, error)
	UploadSegment(ctx context.Context, data []byte, object, mimeType string) (models.ArtifactRef, error)
}

// OrchestratorConfig holds configuration settings read from the environment.
type OrchestratorConfig struct {
	ProjectID           string
	SourceBucket        string
	SegmentsBucket      string
	StagingCollection   string
	DocumentsCollection string
	DetectorURL         string
	VertexAIRegion      string
	SignedURLTTL        time.Duration
	AnalysisWorkflowID  string
	WorkflowLocation    string
}

// OrchestratorFunction sequences one staging record through boundary
// detection, splitting and derived document creation. It is the sole
// recovery boundary of the pipeline: any failure becomes a persisted error
// log entry plus status=error on the record, never an escaped panic or a
// response nobody observes.
type OrchestratorFunction struct {
	records          RecordStore
	artifacts        ArtifactStore
	detector         detector.BoundaryDetector
	executionsClient *executions.Client
	config           OrchestratorConfig
}

func loadConfig() (*OrchestratorConfig, error) {
	projectID := gcp.GetEnv("PROJECT_ID", "")
	if projectID == "" {
		return nil, fmt.Errorf("PROJECT_ID environment variable must be set")
	}

	config := OrchestratorConfig{
		ProjectID:           projectID,
		SourceBucket:        gcp.GetEnv("SOURCE_BUCKET", ""),
		SegmentsBucket:      gcp.GetEnv("SEGMENTS_BUCKET", ""),
		StagingCollection:   gcp.GetEnv("STAGING_COLLECTION", "staging"),
		DocumentsCollection: gcp.GetEnv("DOCUMENTS_COLLECTION", "documents"),
		DetectorURL:         gcp.GetEnv("DETECTOR_URL", ""),
		VertexAIRegion:      gcp.GetEnv("VERTEX_AI_REGION", "us-central1"),
		AnalysisWorkflowID:  gcp.GetEnv("ANALYSIS_WORKFLOW_ID", ""),
		WorkflowLocation:    gcp.GetEnv("WORKFLOW_LOCATION", "us-central1"),
	}
	if config.SourceBucket == "" || config.SegmentsBucket == "" {
		return nil, fmt.Errorf("SOURCE_BUCKET and SEGMENTS_BUCKET environment variables must be set")
	}

	ttlMinutes, err := strconv.Atoi(gcp.GetEnv("SIGNED_URL_TTL_MINUTES", "30"))
	if err != nil || ttlMinutes < 1 {
		return nil, fmt.Errorf("SIGNED_URL_TTL_MINUTES must be a positive integer")
	}
	config.SignedURLTTL = time.Duration(ttlMinutes) * time.Minute

	return &config, nil
}

// NewOrchestrator creates an OrchestratorFunction with all dependencies
// initialized. The boundary detector is the webhook service when
// DETECTOR_URL is set, otherwise Vertex AI.
func NewOrchestrator(ctx context.Context) (*OrchestratorFunction, error) {
	config, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	firestoreClient, err := gcp.NewFirestoreClient(ctx, config.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	storageClient, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	var det detector.BoundaryDetector
	if config.DetectorURL != "" {
		det = detector.NewWebhookDetector(config.DetectorURL)
	} else {
		vertexClient, err := gcp.NewVertexClient(ctx, config.ProjectID, config.VertexAIRegion)
		if err != nil {
			return nil, fmt.Errorf("failed to create vertex client: %w", err)
		}
		det = detector.NewVertexDetector(vertexClient)
	}

	var executionsClient *executions.Client
	if config.AnalysisWorkflowID != "" {
		executionsClient, err = executions.NewClient(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create Workflows Executions client: %w", err)
		}
	}

	f := &OrchestratorFunction{
		records:          gcp.NewStagingStore(firestoreClient, config.StagingCollection, config.DocumentsCollection),
		artifacts:        gcp.NewArtifactStore(storageClient, config.SourceBucket, config.SegmentsBucket),
		detector:         det,
		executionsClient: executionsClient,
		config:           *config,
	}
	slog.Info("Split orchestrator initialized.", "detector", detectorName(config.DetectorURL))
	return f, nil
}

func detectorName(detectorURL string) string {
	if detectorURL != "" {
		return "webhook"
	}
	return "vertex"
}

// Process runs the full pipeline for one staging record. Runnable states are
// pending (first trigger) and error (manual retry, which restarts from
// scratch); anything else is skipped so duplicate event deliveries stay
// harmless. The record always ends in done or error, never mid-pipeline.
func (f *OrchestratorFunction) Process(ctx context.Context, req models.SplitRequest) error {
	logCtx := slog.With("stagingId", req.StagingID)

	rec, err := f.records.Get(ctx, req.StagingID)
	if err != nil {
		logCtx.Error("Failed to load staging record", "error", err)
		return &PersistenceError{Op: "load", Err: err}
	}

	switch rec.Status {
	case models.StatusPending:
	case models.StatusError:
		logCtx.Info("Retrying errored staging record from scratch.")
		if err := f.records.ResetForRetry(ctx, rec.ID); err != nil {
			logCtx.Error("Failed to reset staging record for retry", "error", err)
			return &PersistenceError{Op: "reset", Err: err}
		}
		rec.DerivedIDs = nil
		rec.Error = ""
	default:
		logCtx.Warn("Staging record is not in a runnable state. Skipping.", "status", rec.Status)
		return nil
	}

	boundaries, err := f.detect(ctx, logCtx, rec)
	if err != nil {
		return f.failStage(ctx, logCtx, rec.ID, stepDetect, err)
	}

	if err := f.split(ctx, logCtx, rec, boundaries); err != nil {
		return f.failStage(ctx, logCtx, rec.ID, stepSplit, err)
	}

	logCtx.Info("Staging record fully decomposed.", "boundaryCount", len(boundaries))
	return nil
}

// detect runs the detection phase: sign a read URL for the source, ask the
// boundary detector, persist the boundaries. The record stays in processing
// throughout.
func (f *OrchestratorFunction) detect(ctx context.Context, logCtx *slog.Logger, rec *models.StagingRecord) ([]int, error) {
	if err := f.records.SetStatus(ctx, rec.ID, models.StatusProcessing); err != nil {
		return nil, &PersistenceError{Op: "status=processing", Err: err}
	}
	if err := f.appendLog(ctx, rec.ID, models.StageLogEntry{
		Step:    stepDetect,
		Status:  models.StageStarted,
		At:      time.Now().UTC(),
		Details: "requesting boundary detection",
		Data:    map[string]any{"signedUrlTtlSeconds": int(f.config.SignedURLTTL.Seconds())},
	}); err != nil {
		return nil, err
	}

	url, err := f.artifacts.SignedSourceURL(ctx, rec.SourceFileRef, f.config.SignedURLTTL)
	if err != nil {
		return nil, &UploadError{Op: "sign", Object: rec.SourceFileRef, Err: err}
	}

	boundaries, err := f.detector.DetectBoundaries(ctx, url)
	if err != nil {
		return nil, err
	}

	if err := f.records.SetBoundaries(ctx, rec.ID, boundaries); err != nil {
		return nil, &PersistenceError{Op: "boundaries", Err: err}
	}
	if err := f.appendLog(ctx, rec.ID, models.StageLogEntry{
		Step:    stepDetect,
		Status:  models.StageSuccess,
		At:      time.Now().UTC(),
		Details: fmt.Sprintf("detected %d logical documents", len(boundaries)),
		Data:    map[string]any{"boundaries": boundaries, "boundaryCount": len(boundaries)},
	}); err != nil {
		return nil, err
	}

	logCtx.Info("Boundary detection complete.", "boundaries", boundaries)
	return boundaries, nil
}

// split runs the splitting phase: compute ranges against the source's true
// page count, extract and optimize segments, upload each, and create one
// derived document per segment in ascending range order.
func (f *OrchestratorFunction) split(ctx context.Context, logCtx *slog.Logger, rec *models.StagingRecord, boundaries []int) error {
	if err := f.records.SetStatus(ctx, rec.ID, models.StatusSplitting); err != nil {
		return &PersistenceError{Op: "status=splitting", Err: err}
	}
	if err := f.appendLog(ctx, rec.ID, models.StageLogEntry{
		Step:    stepSplit,
		Status:  models.StageStarted,
		At:      time.Now().UTC(),
		Details: fmt.Sprintf("splitting into %d segments", len(boundaries)),
		Data:    map[string]any{"boundaryCount": len(boundaries)},
	}); err != nil {
		return err
	}

	source, err := f.artifacts.FetchSource(ctx, rec.SourceFileRef)
	if err != nil {
		return &UploadError{Op: "fetch", Object: rec.SourceFileRef, Err: err}
	}

	// The page count comes from the document itself; the detector's idea of
	// the page space is never trusted.
	pageCount, err := pdfsplit.PageCount(source)
	if err != nil {
		return err
	}
	ranges, err := pagerange.Calculate(boundaries, pageCount)
	if err != nil {
		return err
	}

	segments, err := pdfsplit.ExtractSegments(source, ranges)
	if err != nil {
		return err
	}
	logCtx.Info("Segments extracted.", "pageCount", pageCount, "segmentCount", len(segments))

	refs := make([]models.ArtifactRef, len(segments))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(uploadConcurrency)
	for i := range segments {
		g.Go(func() error {
			object := segmentObjectName(rec.ID, rec.OriginalFilename, i+1)
			ref, err := f.artifacts.UploadSegment(gctx, segments[i], object, "application/pdf")
			if err != nil {
				return &UploadError{Op: "upload", Object: object, Err: err}
			}
			refs[i] = ref
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	title := derivedTitleBase(rec)
	derivedIDs := make([]string, 0, len(refs))
	artifactKeys := make([]string, 0, len(refs))
	for i, ref := range refs {
		doc := models.DerivedDocument{
			ProjectID:      rec.ProjectID,
			StagingID:      rec.ID,
			Title:          fmt.Sprintf("%s - Segment %d", title, i+1),
			SegmentFileRef: ref.Key,
			ArtifactID:     ref.ID,
			SegmentIndex:   i + 1,
			PageCount:      ranges[i].End - ranges[i].Start + 1,
			Status:         "pending",
			CreatedAt:      time.Now().UTC(),
		}
		derivedID, err := f.records.CreateDerivedDocument(ctx, doc)
		if err != nil {
			return &PersistenceError{Op: fmt.Sprintf("create derived document %d", i+1), Err: err}
		}
		if err := f.records.AppendDerivedID(ctx, rec.ID, derivedID); err != nil {
			return &PersistenceError{Op: "append derived id", Err: err}
		}
		derivedIDs = append(derivedIDs, derivedID)
		artifactKeys = append(artifactKeys, ref.Key)

		if err := f.appendLog(ctx, rec.ID, models.StageLogEntry{
			Step:    stepSplit,
			Status:  models.StageProgress,
			At:      time.Now().UTC(),
			Details: fmt.Sprintf("segment %d of %d stored", i+1, len(refs)),
			Data:    map[string]any{"segmentIndex": i + 1, "artifactKey": ref.Key, "derivedId": derivedID},
		}); err != nil {
			return err
		}
	}

	if err := f.appendLog(ctx, rec.ID, models.StageLogEntry{
		Step:    stepSplit,
		Status:  models.StageSuccess,
		At:      time.Now().UTC(),
		Details: fmt.Sprintf("created %d derived documents", len(derivedIDs)),
		Data:    map[string]any{"segmentCount": len(segments), "artifactKeys": artifactKeys, "derivedIds": derivedIDs},
	}); err != nil {
		return err
	}
	if err := f.records.SetStatus(ctx, rec.ID, models.StatusDone); err != nil {
		return &PersistenceError{Op: "status=done", Err: err}
	}

	f.triggerAnalysisWorkflow(ctx, logCtx, rec.ID, derivedIDs)
	return nil
}

// failStage converts any pipeline failure into a persisted error log entry
// plus status=error. Prior log history, including a successful detection
// phase, is preserved; only the current stage is marked failed.
//
// Once the error status is durably persisted the event is acknowledged with
// nil: an errored record is a runnable retry state, so letting platform
// redelivery replay the event would auto-retry it, and retries must stay
// operator-triggered. The failed invocation is only surfaced when the status
// write itself fails and the record would otherwise be stuck mid-pipeline.
func (f *OrchestratorFunction) failStage(ctx context.Context, logCtx *slog.Logger, id, step string, cause error) error {
	logCtx.Error("Pipeline stage failed.", "step", step, "error", cause)

	if err := f.records.AppendLog(ctx, id, models.StageLogEntry{
		Step:    step,
		Status:  models.StageError,
		At:      time.Now().UTC(),
		Details: cause.Error(),
	}); err != nil {
		logCtx.Error("Failed to append error log entry after a stage failure.", "updateError", err)
	}
	if err := f.records.SetError(ctx, id, cause.Error()); err != nil {
		logCtx.Error("CRITICAL: Failed to persist error status after a stage failure.", "updateError", err)
		return fmt.Errorf("%s: %w", step, cause)
	}
	return nil
}

func (f *OrchestratorFunction) appendLog(ctx context.Context, id string, entry models.StageLogEntry) error {
	if err := f.records.AppendLog(ctx, id, entry); err != nil {
		return &PersistenceError{Op: "append log", Err: err}
	}
	return nil
}

// triggerAnalysisWorkflow hands the new derived documents off to the
// downstream analysis workflow. The record is already done; a hand-off
// failure is logged but does not fail the pipeline.
func (f *OrchestratorFunction) triggerAnalysisWorkflow(ctx context.Context, logCtx *slog.Logger, stagingID string, derivedIDs []string) {
	if f.executionsClient == nil {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"stagingId":   stagingID,
		"documentIds": derivedIDs,
	})
	if err != nil {
		logCtx.Warn("Failed to marshal analysis workflow payload.", "error", err)
		return
	}
	req := &executionspb.CreateExecutionRequest{
		Parent: fmt.Sprintf("projects/%s/locations/%s/workflows/%s", f.config.ProjectID, f.config.WorkflowLocation, f.config.AnalysisWorkflowID),
		Execution: &executionspb.Execution{
			Argument: string(payload),
		},
	}
	if _, err := f.executionsClient.CreateExecution(ctx, req); err != nil {
		logCtx.Warn("Failed to trigger analysis workflow.", "error", err)
		return
	}
	logCtx.Info("Hand-off to analysis workflow complete.", "documentCount", len(derivedIDs))
}

// nonAlphanumericRegex is a compiled regex for efficiency.
var nonAlphanumericRegex = regexp.MustCompile(`[^a-z0-9]+`)

// segmentObjectName builds a globally unique object name for one segment:
// staging id prefix, sanitized original name, segment index, and a random
// discriminator so concurrent runs never collide.
func segmentObjectName(stagingID, originalFilename string, index int) string {
	base := strings.TrimSuffix(filepath.Base(originalFilename), filepath.Ext(originalFilename))
	base = nonAlphanumericRegex.ReplaceAllString(strings.ToLower(base), "_")
	base = strings.Trim(base, "_")
	if base == "" {
		base = "document"
	}
	discriminator := strings.Split(uuid.NewString(), "-")[0]
	return fmt.Sprintf("%s/%s_segment_%02d_%s.pdf", stagingID, base, index, discriminator)
}

func derivedTitleBase(rec *models.StagingRecord) string {
	title := strings.TrimSuffix(rec.OriginalFilename, filepath.Ext(rec.OriginalFilename))
	if title == "" {
		title = rec.ID
	}
	return title
}
