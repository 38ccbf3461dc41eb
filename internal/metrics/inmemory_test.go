package metrics

import (
	"testing"
	"time"
)

func TestInMemoryRecorder_Counters(t *testing.T) {
	t.Parallel()

	m := NewInMemory()
	m.IncRecipeCreated()
	m.IncRecipeCreated()
	m.IncRecipeUpdated()
	m.IncRecipeDeleted()
	m.IncImageUpload(StatusSuccess)
	m.IncImageUpload(StatusFailed)
	m.ObserveUploadDuration(150 * time.Millisecond)
	m.ObserveUploadDuration(50 * time.Millisecond)

	snap := m.Snapshot()

	if snap.RecipesCreated != 2 {
		t.Errorf("RecipesCreated = %d, want 2", snap.RecipesCreated)
	}
	if snap.RecipesUpdated != 1 || snap.RecipesDeleted != 1 {
		t.Errorf("updated/deleted = %d/%d, want 1/1", snap.RecipesUpdated, snap.RecipesDeleted)
	}
	if snap.ImageUploads != 1 || snap.ImageUploadFailures != 1 {
		t.Errorf("uploads/failures = %d/%d, want 1/1", snap.ImageUploads, snap.ImageUploadFailures)
	}
	if snap.UploadDurationCount != 2 {
		t.Errorf("UploadDurationCount = %d, want 2", snap.UploadDurationCount)
	}
	if snap.UploadDurationTotalNs != (200 * time.Millisecond).Nanoseconds() {
		t.Errorf("UploadDurationTotalNs = %d", snap.UploadDurationTotalNs)
	}
}

func TestNoopRecorder_Satisfies(t *testing.T) {
	t.Parallel()

	var r Recorder = NewNoop()
	r.IncRecipeCreated()
	r.IncImageUpload(StatusFailed)
	r.ObserveUploadDuration(time.Second)
}
