// Package model defines domain entities for the application.
package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

// Recipe represents a persisted recipe entity.
type Recipe struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Ingredients  []string  `json:"ingredients"`
	Instructions string    `json:"instructions"`
	Time         string    `json:"time,omitempty"`
	CoverImage   *string   `json:"coverImage"`
	CreatedBy    string    `json:"createdBy"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// HasCoverImage reports whether an image URL is attached.
func (r *Recipe) HasCoverImage() bool {
	return r.CoverImage != nil && *r.CoverImage != ""
}

// IngredientsKind tells which variant an IngredientsInput carries.
type IngredientsKind int

const (
	// IngredientsAbsent means the field was not supplied.
	IngredientsAbsent IngredientsKind = iota
	// IngredientsRawString is a single comma-separated string.
	IngredientsRawString
	// IngredientsSequence is an already structured list.
	IngredientsSequence
)

// ErrInvalidIngredients is returned when a JSON ingredients value is
// neither a string nor an array of strings.
var ErrInvalidIngredients = errors.New("ingredients must be a string or an array of strings")

// IngredientsInput is the wire form of the ingredients field.
// Callers must call Resolve before handing the value to anything downstream.
type IngredientsInput struct {
	Kind     IngredientsKind
	Raw      string
	Sequence []string
}

// RawIngredients builds a RawString variant.
func RawIngredients(s string) IngredientsInput {
	return IngredientsInput{Kind: IngredientsRawString, Raw: s}
}

// IngredientList builds a Sequence variant.
func IngredientList(items ...string) IngredientsInput {
	return IngredientsInput{Kind: IngredientsSequence, Sequence: items}
}

// IsSet reports whether the field was supplied at all.
func (in IngredientsInput) IsSet() bool {
	return in.Kind != IngredientsAbsent
}

// Resolve returns the canonical ordered ingredient list.
// Items are trimmed and empty items dropped.
func (in IngredientsInput) Resolve() []string {
	var items []string
	switch in.Kind {
	case IngredientsRawString:
		items = strings.Split(in.Raw, ",")
	case IngredientsSequence:
		items = in.Sequence
	default:
		return nil
	}

	result := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// UnmarshalJSON accepts either a JSON string or an array of strings.
func (in *IngredientsInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*in = IngredientsInput{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*in = RawIngredients(s)
		return nil
	case '[':
		var items []string
		if err := json.Unmarshal(data, &items); err != nil {
			return ErrInvalidIngredients
		}
		*in = IngredientList(items...)
		return nil
	default:
		return ErrInvalidIngredients
	}
}
