package gcp

import (
	"testing"
	"time"

	"github.com/berminguez/trinoa-sub002/internal/models"
)

// Two entries with identical content must still land as distinct array
// elements: ArrayUnion deduplicates by value, and the stage log is strictly
// append-only.
func TestStampLogEntryKeepsIdenticalEntriesDistinct(t *testing.T) {
	at := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	entry := models.StageLogEntry{
		Step:    "splitting",
		Status:  models.StageProgress,
		At:      at,
		Details: "segment 1 of 3 stored",
	}

	a := stampLogEntry(entry)
	b := stampLogEntry(entry)

	if a.EntryID == "" || b.EntryID == "" {
		t.Fatal("stamped entry has no entry id")
	}
	if a.EntryID == b.EntryID {
		t.Errorf("identical entries stamped with the same id %q", a.EntryID)
	}
	if a.Step != entry.Step || a.Status != entry.Status || !a.At.Equal(at) || a.Details != entry.Details {
		t.Errorf("stamping altered entry content: %+v", a)
	}
}
