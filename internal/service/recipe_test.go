package service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"reflect"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/recipebox/recipebox/internal/media"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository"
)

// memoryStore is an in-memory RecipeStore.
type memoryStore struct {
	mu      sync.Mutex
	recipes map[string]*model.Recipe
	order   []string
	writes  int
	nextID  int
	err     error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{recipes: make(map[string]*model.Recipe)}
}

func (m *memoryStore) ListRecipes(ctx context.Context) ([]*model.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*model.Recipe, 0, len(m.order))
	for _, id := range m.order {
		copied := *m.recipes[id]
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memoryStore) GetRecipeByID(ctx context.Context, id string) (*model.Recipe, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	recipe, ok := m.recipes[id]
	if !ok {
		return nil, repository.ErrRecipeNotFound
	}
	copied := *recipe
	return &copied, nil
}

func (m *memoryStore) CreateRecipe(ctx context.Context, recipe *model.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.writes++
	m.nextID++
	recipe.ID = "r" + strconv.Itoa(m.nextID)
	recipe.CreatedAt = time.Now().UTC()
	recipe.UpdatedAt = recipe.CreatedAt
	copied := *recipe
	m.recipes[recipe.ID] = &copied
	m.order = append(m.order, recipe.ID)
	return nil
}

func (m *memoryStore) UpdateRecipe(ctx context.Context, recipe *model.Recipe) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recipes[recipe.ID]; !ok {
		return repository.ErrRecipeNotFound
	}
	m.writes++
	copied := *recipe
	m.recipes[recipe.ID] = &copied
	return nil
}

func (m *memoryStore) DeleteRecipe(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.recipes[id]; !ok {
		return repository.ErrRecipeNotFound
	}
	m.writes++
	delete(m.recipes, id)
	for i, existing := range m.order {
		if existing == id {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return nil
}

// fakeUploader returns a URL per call or a fixed error.
type fakeUploader struct {
	calls int
	err   error
}

func (f *fakeUploader) Upload(ctx context.Context, data []byte) (*media.UploadResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	key := "food-recipes/img" + strconv.Itoa(f.calls) + ".png"
	return &media.UploadResult{
		URL:         "https://media.example.com/recipes/" + key,
		Key:         key,
		ContentType: "image/png",
		Size:        int64(len(data)),
	}, nil
}

func newTestService(store RecipeStore, uploader ImageUploader) (*RecipeService, *metrics.InMemoryRecorder) {
	recorder := metrics.NewInMemory()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewRecipeService(store, uploader, recorder, logger), recorder
}

func validInput() CreateRecipeInput {
	return CreateRecipeInput{
		Title:        "Pancakes",
		Ingredients:  model.RawIngredients("egg, flour , milk"),
		Instructions: "Mix and fry.",
		CreatedBy:    "user-1",
	}
}

func strPtr(s string) *string { return &s }

func TestCreateRecipe_NormalizesIngredients(t *testing.T) {
	t.Parallel()

	want := []string{"egg", "flour", "milk"}
	tests := []struct {
		name  string
		input model.IngredientsInput
	}{
		{"raw_string", model.RawIngredients("egg, flour , milk")},
		{"sequence", model.IngredientList("egg", " flour", "milk ")},
		{"trailing_comma", model.RawIngredients("egg,flour,milk,")},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			svc, _ := newTestService(newMemoryStore(), &fakeUploader{})
			input := validInput()
			input.Ingredients = test.input

			recipe, err := svc.CreateRecipe(context.Background(), input)
			if err != nil {
				t.Fatalf("CreateRecipe() error: %v", err)
			}
			if !reflect.DeepEqual(recipe.Ingredients, want) {
				t.Fatalf("ingredients = %#v, want %#v", recipe.Ingredients, want)
			}
		})
	}
}

func TestCreateRecipe_CreatedByIsCaller(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc, _ := newTestService(store, &fakeUploader{})

	input := validInput()
	input.CreatedBy = "caller-42"
	recipe, err := svc.CreateRecipe(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateRecipe() error: %v", err)
	}

	stored, err := store.GetRecipeByID(context.Background(), recipe.ID)
	if err != nil {
		t.Fatalf("stored recipe missing: %v", err)
	}
	if stored.CreatedBy != "caller-42" {
		t.Fatalf("createdBy = %q, want caller-42", stored.CreatedBy)
	}
}

func TestCreateRecipe_MissingFields(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*CreateRecipeInput)
	}{
		{"no_title", func(in *CreateRecipeInput) { in.Title = "" }},
		{"blank_title", func(in *CreateRecipeInput) { in.Title = "   " }},
		{"no_ingredients", func(in *CreateRecipeInput) { in.Ingredients = model.IngredientsInput{} }},
		{"empty_ingredients", func(in *CreateRecipeInput) { in.Ingredients = model.RawIngredients(" , ") }},
		{"empty_sequence", func(in *CreateRecipeInput) { in.Ingredients = model.IngredientList() }},
		{"no_instructions", func(in *CreateRecipeInput) { in.Instructions = "" }},
	}

	for _, test := range tests {
		test := test
		t.Run(test.name, func(t *testing.T) {
			t.Parallel()

			store := newMemoryStore()
			uploader := &fakeUploader{}
			svc, _ := newTestService(store, uploader)

			input := validInput()
			input.Image = []byte("image-bytes")
			test.mutate(&input)

			_, err := svc.CreateRecipe(context.Background(), input)
			if !errors.Is(err, ErrMissingFields) {
				t.Fatalf("expected ErrMissingFields, got %v", err)
			}
			if store.writes != 0 {
				t.Fatalf("expected no writes, got %d", store.writes)
			}
			if uploader.calls != 0 {
				t.Fatalf("expected no upload, got %d", uploader.calls)
			}
		})
	}
}

func TestCreateRecipe_MissingIdentity(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc, _ := newTestService(store, &fakeUploader{})

	input := validInput()
	input.CreatedBy = ""
	if _, err := svc.CreateRecipe(context.Background(), input); !errors.Is(err, ErrMissingIdentity) {
		t.Fatalf("expected ErrMissingIdentity, got %v", err)
	}
	if store.writes != 0 {
		t.Fatalf("expected no writes, got %d", store.writes)
	}
}

func TestCreateRecipe_CoverImage(t *testing.T) {
	t.Parallel()

	svc, recorder := newTestService(newMemoryStore(), &fakeUploader{})

	plain, err := svc.CreateRecipe(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateRecipe() error: %v", err)
	}
	if plain.CoverImage != nil {
		t.Fatalf("expected nil coverImage without a file, got %q", *plain.CoverImage)
	}

	input := validInput()
	input.Image = []byte("image-bytes")
	withImage, err := svc.CreateRecipe(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateRecipe() error: %v", err)
	}
	if !withImage.HasCoverImage() {
		t.Fatal("expected a cover image URL")
	}

	snap := recorder.Snapshot()
	if snap.RecipesCreated != 2 || snap.ImageUploads != 1 {
		t.Fatalf("metrics = %+v", snap)
	}
}

func TestCreateRecipe_UploadFailureWritesNothing(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc, recorder := newTestService(store, &fakeUploader{err: errors.New("host unavailable")})

	input := validInput()
	input.Image = []byte("image-bytes")
	_, err := svc.CreateRecipe(context.Background(), input)
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if store.writes != 0 {
		t.Fatalf("expected no writes, got %d", store.writes)
	}
	if recorder.Snapshot().ImageUploadFailures != 1 {
		t.Fatal("expected one failed upload recorded")
	}
}

func TestCreateRecipe_DisabledUploader(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc, _ := newTestService(store, nil)

	input := validInput()
	input.Image = []byte("image-bytes")
	if _, err := svc.CreateRecipe(context.Background(), input); !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}
	if store.writes != 0 {
		t.Fatalf("expected no writes, got %d", store.writes)
	}
}

func TestCreateRecipe_StoreFailure(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	store.err = errors.New("connection refused")
	svc, _ := newTestService(store, &fakeUploader{})

	_, err := svc.CreateRecipe(context.Background(), validInput())
	if err == nil || errors.Is(err, ErrMissingFields) {
		t.Fatalf("expected store error, got %v", err)
	}
}

func TestUpdateRecipe_ShallowMerge(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc, recorder := newTestService(store, &fakeUploader{})

	input := validInput()
	input.Time = "20 min"
	input.Image = []byte("image-bytes")
	created, err := svc.CreateRecipe(context.Background(), input)
	if err != nil {
		t.Fatalf("CreateRecipe() error: %v", err)
	}
	originalCover := *created.CoverImage

	updated, err := svc.UpdateRecipe(context.Background(), UpdateRecipeInput{
		ID:    created.ID,
		Title: strPtr("Fluffy pancakes"),
	})
	if err != nil {
		t.Fatalf("UpdateRecipe() error: %v", err)
	}

	if updated.Title != "Fluffy pancakes" {
		t.Errorf("title = %q", updated.Title)
	}
	if updated.Instructions != created.Instructions || updated.Time != "20 min" {
		t.Errorf("untouched fields changed: %+v", updated)
	}
	if !reflect.DeepEqual(updated.Ingredients, created.Ingredients) {
		t.Errorf("ingredients = %#v, want %#v", updated.Ingredients, created.Ingredients)
	}
	if updated.CoverImage == nil || *updated.CoverImage != originalCover {
		t.Errorf("coverImage changed without a new image")
	}
	if updated.CreatedBy != created.CreatedBy || updated.ID != created.ID {
		t.Errorf("identity fields changed: %+v", updated)
	}
	if recorder.Snapshot().RecipesUpdated != 1 {
		t.Error("expected one update recorded")
	}
}

func TestUpdateRecipe_NewImageReplacesCover(t *testing.T) {
	t.Parallel()

	uploader := &fakeUploader{}
	svc, _ := newTestService(newMemoryStore(), uploader)

	created, err := svc.CreateRecipe(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateRecipe() error: %v", err)
	}

	updated, err := svc.UpdateRecipe(context.Background(), UpdateRecipeInput{
		ID:          created.ID,
		Ingredients: model.RawIngredients("rice , water"),
		Time:        strPtr("35"),
		Image:       []byte("new-image"),
	})
	if err != nil {
		t.Fatalf("UpdateRecipe() error: %v", err)
	}
	if !updated.HasCoverImage() {
		t.Fatal("expected a cover image after upload")
	}
	if !reflect.DeepEqual(updated.Ingredients, []string{"rice", "water"}) {
		t.Errorf("ingredients = %#v", updated.Ingredients)
	}
	if updated.Time != "35" {
		t.Errorf("time = %q, want 35", updated.Time)
	}
	if uploader.calls != 1 {
		t.Errorf("upload calls = %d, want 1", uploader.calls)
	}
}

func TestUpdateRecipe_NotFound(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	uploader := &fakeUploader{}
	svc, _ := newTestService(store, uploader)

	_, err := svc.UpdateRecipe(context.Background(), UpdateRecipeInput{
		ID:    "missing",
		Title: strPtr("x"),
		Image: []byte("image-bytes"),
	})
	if !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("expected ErrRecipeNotFound, got %v", err)
	}
	if store.writes != 0 || uploader.calls != 0 {
		t.Fatalf("expected no side effects, writes=%d uploads=%d", store.writes, uploader.calls)
	}
}

func TestUpdateRecipe_EmptyRequiredField(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc, _ := newTestService(store, &fakeUploader{})

	created, err := svc.CreateRecipe(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateRecipe() error: %v", err)
	}
	writes := store.writes

	tests := []struct {
		name  string
		input UpdateRecipeInput
	}{
		{"title", UpdateRecipeInput{ID: created.ID, Title: strPtr(" ")}},
		{"instructions", UpdateRecipeInput{ID: created.ID, Instructions: strPtr("")}},
		{"ingredients", UpdateRecipeInput{ID: created.ID, Ingredients: model.RawIngredients(",")}},
	}

	for _, test := range tests {
		if _, err := svc.UpdateRecipe(context.Background(), test.input); !errors.Is(err, ErrEmptyField) {
			t.Errorf("%s: expected ErrEmptyField, got %v", test.name, err)
		}
	}
	if store.writes != writes {
		t.Fatalf("expected no additional writes, got %d", store.writes-writes)
	}
}

func TestUpdateRecipe_UploadFailureKeepsRecord(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	uploader := &fakeUploader{}
	svc, _ := newTestService(store, uploader)

	created, err := svc.CreateRecipe(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateRecipe() error: %v", err)
	}

	uploader.err = errors.New("quota exceeded")
	_, err = svc.UpdateRecipe(context.Background(), UpdateRecipeInput{
		ID:    created.ID,
		Title: strPtr("Changed"),
		Image: []byte("image-bytes"),
	})
	if !errors.Is(err, ErrUploadFailed) {
		t.Fatalf("expected ErrUploadFailed, got %v", err)
	}

	stored, _ := store.GetRecipeByID(context.Background(), created.ID)
	if stored.Title != "Pancakes" {
		t.Fatalf("recipe was modified despite upload failure: %q", stored.Title)
	}
}

func TestDeleteRecipe(t *testing.T) {
	t.Parallel()

	store := newMemoryStore()
	svc, recorder := newTestService(store, &fakeUploader{})

	created, err := svc.CreateRecipe(context.Background(), validInput())
	if err != nil {
		t.Fatalf("CreateRecipe() error: %v", err)
	}

	if err := svc.DeleteRecipe(context.Background(), created.ID); err != nil {
		t.Fatalf("DeleteRecipe() error: %v", err)
	}
	if err := svc.DeleteRecipe(context.Background(), created.ID); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("second delete: expected ErrRecipeNotFound, got %v", err)
	}
	if _, err := svc.GetRecipe(context.Background(), created.ID); !errors.Is(err, ErrRecipeNotFound) {
		t.Fatalf("get after delete: expected ErrRecipeNotFound, got %v", err)
	}
	if recorder.Snapshot().RecipesDeleted != 1 {
		t.Fatal("expected one delete recorded")
	}
}

func TestListRecipes_Order(t *testing.T) {
	t.Parallel()

	svc, _ := newTestService(newMemoryStore(), &fakeUploader{})

	empty, err := svc.ListRecipes(context.Background())
	if err != nil {
		t.Fatalf("ListRecipes() error: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", empty)
	}

	for _, title := range []string{"A", "B", "C"} {
		input := validInput()
		input.Title = title
		if _, err := svc.CreateRecipe(context.Background(), input); err != nil {
			t.Fatalf("CreateRecipe(%s) error: %v", title, err)
		}
	}

	recipes, err := svc.ListRecipes(context.Background())
	if err != nil {
		t.Fatalf("ListRecipes() error: %v", err)
	}
	var titles []string
	for _, recipe := range recipes {
		titles = append(titles, recipe.Title)
	}
	if !reflect.DeepEqual(titles, []string{"A", "B", "C"}) {
		t.Fatalf("titles = %v", titles)
	}
}
