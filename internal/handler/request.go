package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"

	"github.com/recipebox/recipebox/internal/handler/dto"
	"github.com/recipebox/recipebox/internal/model"
)

// imageField is the multipart part that carries the cover image.
const imageField = "file"

// defaultMultipartMemory is how much of a multipart body is kept in memory
// before parts spill to temporary files.
const defaultMultipartMemory = 8 << 20

// Request decoding errors.
var (
	errInvalidBody          = errors.New("invalid request body")
	errUnsupportedMediaType = errors.New("unsupported content type")
	errBodyTooLarge         = errors.New("request body too large")
)

// recipeForm is a decoded create or edit request. Nil pointers mean the
// field was not supplied.
type recipeForm struct {
	Title        *string
	Ingredients  model.IngredientsInput
	Instructions *string
	Time         *string
	Image        []byte
}

func (f recipeForm) value(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// decodeRecipeForm reads a multipart, urlencoded or JSON recipe body.
func decodeRecipeForm(r *http.Request, maxMemory int64) (*recipeForm, error) {
	contentType := r.Header.Get("Content-Type")
	mediaType := ""
	if contentType != "" {
		parsed, _, err := mime.ParseMediaType(contentType)
		if err != nil {
			return nil, errUnsupportedMediaType
		}
		mediaType = parsed
	}

	switch mediaType {
	case "multipart/form-data":
		return decodeMultipart(r, maxMemory)
	case "application/x-www-form-urlencoded":
		if err := r.ParseForm(); err != nil {
			return nil, classifyBodyError(err)
		}
		return formFromValues(r.PostForm), nil
	case "application/json", "":
		return decodeJSON(r)
	default:
		return nil, errUnsupportedMediaType
	}
}

func decodeMultipart(r *http.Request, maxMemory int64) (*recipeForm, error) {
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, classifyBodyError(err)
	}

	form := formFromValues(url.Values(r.MultipartForm.Value))

	file, _, err := r.FormFile(imageField)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return form, nil
		}
		return nil, classifyBodyError(err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, classifyBodyError(err)
	}
	if len(data) > 0 {
		form.Image = data
	}
	return form, nil
}

func decodeJSON(r *http.Request) (*recipeForm, error) {
	var req dto.RecipeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, io.EOF) {
			return &recipeForm{}, nil
		}
		return nil, classifyBodyError(err)
	}

	return &recipeForm{
		Title:        req.Title,
		Ingredients:  req.Ingredients,
		Instructions: req.Instructions,
		Time:         req.Time.StringPtr(),
	}, nil
}

// formFromValues maps form fields onto a recipeForm. A single ingredients
// value is a raw comma list; repeated values, or the "ingredients[]"
// spelling, form a sequence.
func formFromValues(values url.Values) *recipeForm {
	form := &recipeForm{
		Title:        firstValue(values, "title"),
		Instructions: firstValue(values, "instructions"),
		Time:         firstValue(values, "time"),
	}

	if items, ok := values["ingredients[]"]; ok {
		form.Ingredients = model.IngredientList(items...)
	} else if items, ok := values["ingredients"]; ok {
		if len(items) == 1 {
			form.Ingredients = model.RawIngredients(items[0])
		} else {
			form.Ingredients = model.IngredientList(items...)
		}
	}

	return form
}

func firstValue(values url.Values, key string) *string {
	items, ok := values[key]
	if !ok || len(items) == 0 {
		return nil
	}
	v := strings.TrimSpace(items[0])
	return &v
}

func classifyBodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return errBodyTooLarge
	}
	return fmt.Errorf("%w: %v", errInvalidBody, err)
}
