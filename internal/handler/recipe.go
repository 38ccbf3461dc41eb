package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/recipebox/recipebox/internal/auth"
	"github.com/recipebox/recipebox/internal/handler/dto"
	"github.com/recipebox/recipebox/internal/service"
)

// RecipeHandler handles HTTP requests for recipe operations.
type RecipeHandler struct {
	svc       *service.RecipeService
	logger    *slog.Logger
	maxMemory int64
}

// NewRecipeHandler creates a new RecipeHandler.
func NewRecipeHandler(svc *service.RecipeService, logger *slog.Logger) *RecipeHandler {
	return &RecipeHandler{
		svc:       svc,
		logger:    logger,
		maxMemory: defaultMultipartMemory,
	}
}

// List handles GET /recipe.
func (h *RecipeHandler) List(w http.ResponseWriter, r *http.Request) {
	recipes, err := h.svc.ListRecipes(r.Context())
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipes)
}

// Get handles GET /recipe/{id}. An unknown id yields 200 with a null body.
func (h *RecipeHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	recipe, err := h.svc.GetRecipe(r.Context(), id)
	if err != nil {
		if errors.Is(err, service.ErrRecipeNotFound) {
			writeJSON(w, http.StatusOK, nil)
			return
		}
		h.handleServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, recipe)
}

// Create handles POST /recipe.
func (h *RecipeHandler) Create(w http.ResponseWriter, r *http.Request) {
	defer cleanupMultipart(r)
	form, err := decodeRecipeForm(r, h.maxMemory)
	if err != nil {
		h.handleDecodeError(w, err)
		return
	}

	recipe, err := h.svc.CreateRecipe(r.Context(), service.CreateRecipeInput{
		Title:        form.value(form.Title),
		Ingredients:  form.Ingredients,
		Instructions: form.value(form.Instructions),
		Time:         form.value(form.Time),
		Image:        form.Image,
		CreatedBy:    auth.UserIDFromContext(r.Context()),
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recipe)
}

// Update handles PUT and PATCH /recipe/{id}.
func (h *RecipeHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	defer cleanupMultipart(r)
	form, err := decodeRecipeForm(r, h.maxMemory)
	if err != nil {
		h.handleDecodeError(w, err)
		return
	}

	recipe, err := h.svc.UpdateRecipe(r.Context(), service.UpdateRecipeInput{
		ID:           id,
		Title:        form.Title,
		Ingredients:  form.Ingredients,
		Instructions: form.Instructions,
		Time:         form.Time,
		Image:        form.Image,
	})
	if err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, recipe)
}

// Delete handles DELETE /recipe/{id}.
func (h *RecipeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := h.svc.DeleteRecipe(r.Context(), id); err != nil {
		h.handleServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.StatusResponse{Status: "ok"})
}

// handleServiceError maps service errors to HTTP responses.
func (h *RecipeHandler) handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, service.ErrMissingFields):
		writeError(w, http.StatusBadRequest, "MISSING_FIELDS", "Required fields can't be empty", "")
	case errors.Is(err, service.ErrEmptyField):
		writeError(w, http.StatusBadRequest, "EMPTY_FIELD", "Required fields can't be empty", err.Error())
	case errors.Is(err, service.ErrRecipeNotFound):
		writeError(w, http.StatusNotFound, "RECIPE_NOT_FOUND", "Recipe not found", "")
	case errors.Is(err, service.ErrMissingIdentity):
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or expired token", "")
	case errors.Is(err, service.ErrUploadFailed):
		h.logger.ErrorContext(r.Context(), "image_upload_failed", "error", err)
		writeError(w, http.StatusInternalServerError, "UPLOAD_FAILED", "Server error", service.ErrUploadFailed.Error())
	default:
		h.logger.ErrorContext(r.Context(), "internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Server error", "")
	}
}

func (h *RecipeHandler) handleDecodeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errBodyTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "Request body too large", "")
	case errors.Is(err, errUnsupportedMediaType):
		writeError(w, http.StatusUnsupportedMediaType, "UNSUPPORTED_MEDIA_TYPE",
			"Use multipart/form-data or application/json", "")
	default:
		writeError(w, http.StatusBadRequest, "INVALID_BODY", "Invalid request body", "")
	}
}

func cleanupMultipart(r *http.Request) {
	if r.MultipartForm != nil {
		_ = r.MultipartForm.RemoveAll()
	}
}
