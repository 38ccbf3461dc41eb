package metrics

import (
	"sync/atomic"
	"time"
)

// Upload status labels.
const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Snapshot captures current in-memory counters.
type Snapshot struct {
	RecipesCreated        uint64
	RecipesUpdated        uint64
	RecipesDeleted        uint64
	ImageUploads          uint64
	ImageUploadFailures   uint64
	UploadDurationCount   uint64
	UploadDurationTotalNs int64
}

// InMemoryRecorder keeps counters in memory. It backs the /metrics endpoint
// and is used directly by tests.
type InMemoryRecorder struct {
	recipesCreated        atomic.Uint64
	recipesUpdated        atomic.Uint64
	recipesDeleted        atomic.Uint64
	imageUploads          atomic.Uint64
	imageUploadFailures   atomic.Uint64
	uploadDurationCount   atomic.Uint64
	uploadDurationTotalNs atomic.Int64
}

// NewInMemory returns a Recorder that stores counters in memory.
func NewInMemory() *InMemoryRecorder {
	return &InMemoryRecorder{}
}

// Snapshot returns a copy of the counters.
func (m *InMemoryRecorder) Snapshot() Snapshot {
	return Snapshot{
		RecipesCreated:        m.recipesCreated.Load(),
		RecipesUpdated:        m.recipesUpdated.Load(),
		RecipesDeleted:        m.recipesDeleted.Load(),
		ImageUploads:          m.imageUploads.Load(),
		ImageUploadFailures:   m.imageUploadFailures.Load(),
		UploadDurationCount:   m.uploadDurationCount.Load(),
		UploadDurationTotalNs: m.uploadDurationTotalNs.Load(),
	}
}

// IncRecipeCreated increments the recipe created counter.
func (m *InMemoryRecorder) IncRecipeCreated() {
	m.recipesCreated.Add(1)
}

// IncRecipeUpdated increments the recipe updated counter.
func (m *InMemoryRecorder) IncRecipeUpdated() {
	m.recipesUpdated.Add(1)
}

// IncRecipeDeleted increments the recipe deleted counter.
func (m *InMemoryRecorder) IncRecipeDeleted() {
	m.recipesDeleted.Add(1)
}

// IncImageUpload counts an upload attempt by outcome.
func (m *InMemoryRecorder) IncImageUpload(status string) {
	if status == StatusFailed {
		m.imageUploadFailures.Add(1)
		return
	}
	m.imageUploads.Add(1)
}

// ObserveUploadDuration records how long an upload took.
func (m *InMemoryRecorder) ObserveUploadDuration(duration time.Duration) {
	m.uploadDurationCount.Add(1)
	m.uploadDurationTotalNs.Add(duration.Nanoseconds())
}
