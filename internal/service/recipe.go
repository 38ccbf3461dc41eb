// Package service provides business logic for the application.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/recipebox/recipebox/internal/media"
	"github.com/recipebox/recipebox/internal/metrics"
	"github.com/recipebox/recipebox/internal/model"
	"github.com/recipebox/recipebox/internal/repository"
)

// Service errors.
var (
	ErrMissingFields   = errors.New("required fields can't be empty")
	ErrEmptyField      = errors.New("field must not be empty")
	ErrRecipeNotFound  = errors.New("recipe not found")
	ErrMissingIdentity = errors.New("caller identity is required")
	ErrUploadFailed    = errors.New("image upload failed")
)

// RecipeStore is the persistence the service needs.
// *repository.Repository satisfies it.
type RecipeStore interface {
	ListRecipes(ctx context.Context) ([]*model.Recipe, error)
	GetRecipeByID(ctx context.Context, id string) (*model.Recipe, error)
	CreateRecipe(ctx context.Context, recipe *model.Recipe) error
	UpdateRecipe(ctx context.Context, recipe *model.Recipe) error
	DeleteRecipe(ctx context.Context, id string) error
}

// ImageUploader stores an image and returns where it can be fetched.
type ImageUploader interface {
	Upload(ctx context.Context, data []byte) (*media.UploadResult, error)
}

// RecipeService handles recipe business logic.
type RecipeService struct {
	store    RecipeStore
	uploader ImageUploader
	metrics  metrics.Recorder
	logger   *slog.Logger
}

// NewRecipeService creates a new RecipeService.
func NewRecipeService(store RecipeStore, uploader ImageUploader, recorder metrics.Recorder, logger *slog.Logger) *RecipeService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if uploader == nil {
		uploader = media.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &RecipeService{
		store:    store,
		uploader: uploader,
		metrics:  recorder,
		logger:   logger,
	}
}

// ListRecipes returns every recipe in store order.
func (s *RecipeService) ListRecipes(ctx context.Context) ([]*model.Recipe, error) {
	recipes, err := s.store.ListRecipes(ctx)
	if err != nil {
		return nil, err
	}
	if recipes == nil {
		recipes = []*model.Recipe{}
	}
	return recipes, nil
}

// GetRecipe retrieves a recipe by ID.
func (s *RecipeService) GetRecipe(ctx context.Context, id string) (*model.Recipe, error) {
	recipe, err := s.store.GetRecipeByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}
	return recipe, nil
}

// CreateRecipeInput defines input for creating a recipe.
type CreateRecipeInput struct {
	Title        string
	Ingredients  model.IngredientsInput
	Instructions string
	Time         string
	// Image is the raw attachment, nil when none was sent.
	Image []byte
	// CreatedBy is the authenticated caller. Never taken from the request body.
	CreatedBy string
}

// CreateRecipe validates input, uploads the image if any, then persists.
func (s *RecipeService) CreateRecipe(ctx context.Context, input CreateRecipeInput) (*model.Recipe, error) {
	title := strings.TrimSpace(input.Title)
	instructions := strings.TrimSpace(input.Instructions)
	ingredients := input.Ingredients.Resolve()

	if title == "" || instructions == "" || len(ingredients) == 0 {
		return nil, ErrMissingFields
	}
	if input.CreatedBy == "" {
		return nil, ErrMissingIdentity
	}

	recipe := &model.Recipe{
		Title:        title,
		Ingredients:  ingredients,
		Instructions: instructions,
		Time:         strings.TrimSpace(input.Time),
		CreatedBy:    input.CreatedBy,
	}

	if len(input.Image) > 0 {
		url, err := s.uploadImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		recipe.CoverImage = &url
	}

	if err := s.store.CreateRecipe(ctx, recipe); err != nil {
		return nil, fmt.Errorf("failed to create recipe: %w", err)
	}

	s.metrics.IncRecipeCreated()
	s.logger.InfoContext(ctx, "recipe_created",
		"recipe_id", recipe.ID,
		"created_by", recipe.CreatedBy,
		"has_cover_image", recipe.HasCoverImage(),
	)

	return recipe, nil
}

// UpdateRecipeInput defines input for editing a recipe.
// Nil fields and an unset Ingredients are left untouched.
type UpdateRecipeInput struct {
	ID           string
	Title        *string
	Ingredients  model.IngredientsInput
	Instructions *string
	Time         *string
	Image        []byte
}

// UpdateRecipe merges the supplied fields over the stored recipe.
// The cover image is replaced only when a new image is uploaded.
func (s *RecipeService) UpdateRecipe(ctx context.Context, input UpdateRecipeInput) (*model.Recipe, error) {
	recipe, err := s.store.GetRecipeByID(ctx, input.ID)
	if err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, err
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, fmt.Errorf("%w: title", ErrEmptyField)
		}
		recipe.Title = title
	}

	if input.Ingredients.IsSet() {
		ingredients := input.Ingredients.Resolve()
		if len(ingredients) == 0 {
			return nil, fmt.Errorf("%w: ingredients", ErrEmptyField)
		}
		recipe.Ingredients = ingredients
	}

	if input.Instructions != nil {
		instructions := strings.TrimSpace(*input.Instructions)
		if instructions == "" {
			return nil, fmt.Errorf("%w: instructions", ErrEmptyField)
		}
		recipe.Instructions = instructions
	}

	if input.Time != nil {
		recipe.Time = strings.TrimSpace(*input.Time)
	}

	if len(input.Image) > 0 {
		url, err := s.uploadImage(ctx, input.Image)
		if err != nil {
			return nil, err
		}
		recipe.CoverImage = &url
	}

	if err := s.store.UpdateRecipe(ctx, recipe); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return nil, ErrRecipeNotFound
		}
		return nil, fmt.Errorf("failed to update recipe: %w", err)
	}

	s.metrics.IncRecipeUpdated()
	s.logger.InfoContext(ctx, "recipe_updated", "recipe_id", recipe.ID)

	return recipe, nil
}

// DeleteRecipe removes a recipe permanently.
func (s *RecipeService) DeleteRecipe(ctx context.Context, id string) error {
	if err := s.store.DeleteRecipe(ctx, id); err != nil {
		if errors.Is(err, repository.ErrRecipeNotFound) {
			return ErrRecipeNotFound
		}
		return err
	}

	s.metrics.IncRecipeDeleted()
	s.logger.InfoContext(ctx, "recipe_deleted", "recipe_id", id)

	return nil
}

func (s *RecipeService) uploadImage(ctx context.Context, data []byte) (string, error) {
	start := time.Now()
	result, err := s.uploader.Upload(ctx, data)
	s.metrics.ObserveUploadDuration(time.Since(start))

	if err != nil {
		s.metrics.IncImageUpload(metrics.StatusFailed)
		return "", fmt.Errorf("%w: %v", ErrUploadFailed, err)
	}
	if result == nil || result.URL == "" {
		s.metrics.IncImageUpload(metrics.StatusFailed)
		return "", fmt.Errorf("%w: media host returned no URL", ErrUploadFailed)
	}

	s.metrics.IncImageUpload(metrics.StatusSuccess)
	s.logger.InfoContext(ctx, "image_uploaded",
		"key", result.Key,
		"content_type", result.ContentType,
		"size", result.Size,
	)

	return result.URL, nil
}
