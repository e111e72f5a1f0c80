package gcp

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"

	"github.com/berminguez/trinoa-sub002/internal/models"
)

// NewFirestoreClient creates and returns a new Firestore client for the given
// project ID. It centralizes client creation for all services.
func NewFirestoreClient(ctx context.Context, projectID string) (*firestore.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID must be provided to create a firestore client")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %w", err)
	}

	return client, nil
}

// StagingStore persists StagingRecords and Derived Documents in Firestore.
// Stage log entries and derived ids are appended with ArrayUnion so the lists
// stay append-only even under concurrent writers.
type StagingStore struct {
	client              *firestore.Client
	stagingCollection   string
	documentsCollection string
}

// NewStagingStore wraps an existing Firestore client.
func NewStagingStore(client *firestore.Client, stagingCollection, documentsCollection string) *StagingStore {
	return &StagingStore{
		client:              client,
		stagingCollection:   stagingCollection,
		documentsCollection: documentsCollection,
	}
}

func (s *StagingStore) stagingDoc(id string) *firestore.DocumentRef {
	return s.client.Collection(s.stagingCollection).Doc(id)
}

// Get loads one staging record by id.
func (s *StagingStore) Get(ctx context.Context, id string) (*models.StagingRecord, error) {
	snap, err := s.stagingDoc(id).Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load staging record %s: %w", id, err)
	}
	var rec models.StagingRecord
	if err := snap.DataTo(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode staging record %s: %w", id, err)
	}
	rec.ID = snap.Ref.ID
	return &rec, nil
}

// SetStatus advances the record's lifecycle status.
func (s *StagingStore) SetStatus(ctx context.Context, id string, status models.Status) error {
	_, err := s.stagingDoc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: status},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("failed to update status of %s to %s: %w", id, status, err)
	}
	return nil
}

// SetError flips the record to the terminal error status with a
// human-readable message. Prior log history and boundaries are untouched.
func (s *StagingStore) SetError(ctx context.Context, id, message string) error {
	_, err := s.stagingDoc(id).Update(ctx, []firestore.Update{
		{Path: "status", Value: models.StatusError},
		{Path: "error", Value: message},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("failed to mark %s as errored: %w", id, err)
	}
	return nil
}

// SetBoundaries records the detected boundary pages. Set once, after a
// successful detection.
func (s *StagingStore) SetBoundaries(ctx context.Context, id string, boundaries []int) error {
	_, err := s.stagingDoc(id).Update(ctx, []firestore.Update{
		{Path: "boundaries", Value: boundaries},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("failed to persist boundaries of %s: %w", id, err)
	}
	return nil
}

// stampLogEntry assigns a fresh entry id. ArrayUnion drops an element equal
// to one already in the array, so without the stamp two byte-identical
// entries would silently collapse into one.
func stampLogEntry(entry models.StageLogEntry) models.StageLogEntry {
	entry.EntryID = uuid.NewString()
	return entry
}

// AppendLog appends one entry to the record's stage log.
func (s *StagingStore) AppendLog(ctx context.Context, id string, entry models.StageLogEntry) error {
	_, err := s.stagingDoc(id).Update(ctx, []firestore.Update{
		{Path: "stageLog", Value: firestore.ArrayUnion(stampLogEntry(entry))},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("failed to append stage log entry to %s: %w", id, err)
	}
	return nil
}

// AppendDerivedID appends one derived document id.
func (s *StagingStore) AppendDerivedID(ctx context.Context, id, derivedID string) error {
	_, err := s.stagingDoc(id).Update(ctx, []firestore.Update{
		{Path: "derivedIds", Value: firestore.ArrayUnion(derivedID)},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("failed to append derived id to %s: %w", id, err)
	}
	return nil
}

// ResetForRetry prepares an errored record for a from-scratch re-run: the
// error message and previous derived ids are cleared, the stage log is kept.
func (s *StagingStore) ResetForRetry(ctx context.Context, id string) error {
	_, err := s.stagingDoc(id).Update(ctx, []firestore.Update{
		{Path: "error", Value: firestore.Delete},
		{Path: "derivedIds", Value: []string{}},
		{Path: "updatedAt", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("failed to reset %s for retry: %w", id, err)
	}
	return nil
}

// CreateDerivedDocument persists one segment entity and returns its new id.
func (s *StagingStore) CreateDerivedDocument(ctx context.Context, doc models.DerivedDocument) (string, error) {
	ref, _, err := s.client.Collection(s.documentsCollection).Add(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("failed to create derived document for segment %d of %s: %w", doc.SegmentIndex, doc.StagingID, err)
	}
	return ref.ID, nil
}
