package gcp

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"cloud.google.com/go/storage"
	"github.com/google/uuid"
	"google.golang.org/api/googleapi"

	"github.com/berminguez/trinoa-sub002/internal/models"
)

// ArtifactStore persists segment PDFs in GCS and mints signed read URLs for
// source blobs. Source uploads and derived segments live in separate buckets.
type ArtifactStore struct {
	client         *storage.Client
	sourceBucket   string
	segmentsBucket string
}

// NewArtifactStore wraps an existing storage client.
func NewArtifactStore(client *storage.Client, sourceBucket, segmentsBucket string) *ArtifactStore {
	return &ArtifactStore{
		client:         client,
		sourceBucket:   sourceBucket,
		segmentsBucket: segmentsBucket,
	}
}

// SignedSourceURL mints a time-limited V4 signed GET URL for a source object.
func (s *ArtifactStore) SignedSourceURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	url, err := s.client.Bucket(s.sourceBucket).SignedURL(key, &storage.SignedURLOptions{
		Scheme:  storage.SigningSchemeV4,
		Method:  http.MethodGet,
		Expires: time.Now().Add(ttl),
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign URL for gs://%s/%s: %w", s.sourceBucket, key, err)
	}
	return url, nil
}

// FetchSource reads a source object fully into memory.
func (s *ArtifactStore) FetchSource(ctx context.Context, key string) ([]byte, error) {
	r, err := s.client.Bucket(s.sourceBucket).Object(key).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to open gs://%s/%s: %w", s.sourceBucket, key, err)
	}
	defer r.Close()

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read gs://%s/%s: %w", s.sourceBucket, key, err)
	}
	return data, nil
}

// UploadSegment writes one segment to the segments bucket under the given
// object name. The write is conditional on the object not existing: segment
// names carry a random discriminator, so a precondition failure means a name
// collision and is returned, not retried. Transient failures are retried
// with exponential backoff.
func (s *ArtifactStore) UploadSegment(ctx context.Context, data []byte, object, mimeType string) (models.ArtifactRef, error) {
	const maxRetries = 4
	backoff := 1 * time.Second
	var lastErr error

	for i := 0; i < maxRetries; i++ {
		err := func() error {
			writeCtx, cancel := context.WithTimeout(ctx, 50*time.Second)
			defer cancel()

			w := s.client.Bucket(s.segmentsBucket).Object(object).If(storage.Conditions{DoesNotExist: true}).NewWriter(writeCtx)
			w.ContentType = mimeType

			if _, err := io.Copy(w, bytes.NewReader(data)); err != nil {
				_ = w.Close()
				return fmt.Errorf("io.Copy to GCS failed: %w", err)
			}
			if err := w.Close(); err != nil {
				return fmt.Errorf("failed to close GCS writer (finalize upload): %w", err)
			}
			return nil
		}()

		if err == nil {
			return models.ArtifactRef{ID: uuid.NewString(), Key: object}, nil
		}
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusPreconditionFailed {
			return models.ArtifactRef{}, fmt.Errorf("object %s already exists: %w", object, err)
		}

		lastErr = err
		slog.Warn(
			"Segment upload failed, will retry.",
			"gcsObject", object,
			"attempt", i+1,
			"maxRetries", maxRetries,
			"backoff", backoff.String(),
			"error", err,
		)

		select {
		case <-time.After(backoff):
			backoff *= 2
		case <-ctx.Done():
			return models.ArtifactRef{}, ctx.Err()
		}
	}
	return models.ArtifactRef{}, fmt.Errorf("upload for %s failed after all retries: %w", object, lastErr)
}
