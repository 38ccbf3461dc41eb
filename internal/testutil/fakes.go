package testutil

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/recipebox/recipebox/internal/media"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository"
)

// MemoryStore is an in-memory recipe store with the repository's semantics.
type MemoryStore struct {
	mu      sync.Mutex
	recipes map[string]model.Recipe
	order   []string
	writes  int

	// Err, when set, is returned by every call.
	Err error
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{recipes: make(map[string]model.Recipe)}
}

// Writes reports how many mutating calls succeeded.
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Len reports how many recipes are stored.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.recipes)
}

// ListRecipes returns copies of every recipe in insertion order.
func (m *MemoryStore) ListRecipes(ctx context.Context) ([]*model.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	out := make([]*model.Recipe, 0, len(m.order))
	for _, id := range m.order {
		recipe := m.recipes[id]
		out = append(out, &recipe)
	}
	return out, nil
}

// GetRecipeByID returns a copy of the recipe or repository.ErrRecipeNotFound.
func (m *MemoryStore) GetRecipeByID(ctx context.Context, id string) (*model.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	recipe, ok := m.recipes[id]
	if !ok {
		return nil, repository.ErrRecipeNotFound
	}
	return &recipe, nil
}

// CreateRecipe assigns an id and timestamps and stores a copy.
func (m *MemoryStore) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	now := time.Now().UTC()
	recipe.ID = ulid.Make().String()
	recipe.CreatedAt = now
	recipe.UpdatedAt = now
	m.recipes[recipe.ID] = *recipe
	m.order = append(m.order, recipe.ID)
	m.writes++
	return nil
}

// UpdateRecipe replaces the stored copy, keeping id, createdBy and createdAt.
func (m *MemoryStore) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	existing, ok := m.recipes[recipe.ID]
	if !ok {
		return repository.ErrRecipeNotFound
	}
	updated := *recipe
	updated.CreatedBy = existing.CreatedBy
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now().UTC()
	recipe.UpdatedAt = updated.UpdatedAt
	m.recipes[recipe.ID] = updated
	m.writes++
	return nil
}

// DeleteRecipe removes a recipe or returns repository.ErrRecipeNotFound.
func (m *MemoryStore) DeleteRecipe(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	if _, ok := m.recipes[id]; !ok {
		return repository.ErrRecipeNotFound
	}
	delete(m.recipes, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	m.writes++
	return nil
}

// Ping always succeeds unless Err is set.
func (m *MemoryStore) Ping(ctx context.Context) error {
	return m.Err
}

// ErrUploadRejected is the default failure of a failing FakeUploader.
var ErrUploadRejected = errors.New("media host rejected upload")

// FakeUploader records uploads and hands back deterministic URLs.
type FakeUploader struct {
	mu      sync.Mutex
	calls   int
	payload [][]byte

	// Fail makes every upload return Err, or ErrUploadRejected.
	Fail bool
	Err  error
}

// Upload implements the service's uploader contract.
func (f *FakeUploader) Upload(ctx context.Context, data []byte) (*media.UploadResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.Fail || f.Err != nil {
		if f.Err != nil {
			return nil, f.Err
		}
		return nil, ErrUploadRejected
	}
	f.payload = append(f.payload, append([]byte(nil), data...))
	key := "food-recipes/img-" + strconv.Itoa(f.calls)
	return &media.UploadResult{
		URL:         "https://media.test/recipes/" + key,
		Key:         key,
		ContentType: "application/octet-stream",
		Size:        int64(len(data)),
	}, nil
}

// Calls reports how many uploads were attempted.
func (f *FakeUploader) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastPayload returns the bytes of the most recent successful upload.
func (f *FakeUploader) LastPayload() []byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.payload) == 0 {
		return nil
	}
	return f.payload[len(f.payload)-1]
}
