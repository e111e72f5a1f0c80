package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/berminguez/trinoa-sub002/internal/models"
	"github.com/berminguez/trinoa-sub002/internal/services"
)

var (
	orchestratorInstance *services.OrchestratorFunction
	once                 sync.Once
	initErr              error
)

func init() {
	// --- Set up structured logging ---
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// Register the CloudEvent function. The framework will handle routing the event here.
	functions.CloudEvent("SplitStagedUpload", splitStagedUpload)
}

// main is required by the Go Functions Framework.
func main() {}

// splitStagedUpload is the Cloud Function entry point. The event is published
// when a staging record is created (or manually retried); by the time it
// arrives, the uploader has long since received their response, so the
// record's status and stage log are the only observable outcome.
func splitStagedUpload(ctx context.Context, e cloudevents.Event) error {
	// Use sync.Once for robust, one-time initialization of clients.
	once.Do(func() {
		orchestratorInstance, initErr = services.NewOrchestrator(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	var req models.SplitRequest
	if err := json.Unmarshal(e.Data(), &req); err != nil {
		slog.Error("Failed to unmarshal event data", "error", err, "data", string(e.Data()))
		return fmt.Errorf("json.Unmarshal: %w", err)
	}
	if req.StagingID == "" {
		return fmt.Errorf("event payload is missing stagingId")
	}

	// Pipeline failures are persisted on the staging record and acknowledged
	// inside Process; redelivery must not auto-retry an errored record. An
	// error here means the record could not be loaded or updated, and
	// redelivery is the right recovery.
	return orchestratorInstance.Process(ctx, req)
}
