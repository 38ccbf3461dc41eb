// Package dto provides Data Transfer Objects for API requests and responses.
package dto

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"

	"github.com/recipebox/recipebox/internal/model"
)

// ErrInvalidTime is returned when "time" is neither a string nor a number.
var ErrInvalidTime = errors.New("time must be a string or a number")

// RecipeRequest is the JSON body accepted by create and edit.
// Unknown keys, including id and createdBy, are ignored.
type RecipeRequest struct {
	Title        *string                `json:"title"`
	Ingredients  model.IngredientsInput `json:"ingredients"`
	Instructions *string                `json:"instructions"`
	Time         *FlexibleText          `json:"time"`
}

// FlexibleText accepts a JSON string or number and keeps it as text.
type FlexibleText string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexibleText) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return ErrInvalidTime
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexibleText(s)
		return nil
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return ErrInvalidTime
		}
		*f = FlexibleText(n.String())
		return nil
	default:
		return ErrInvalidTime
	}
}

// StringPtr returns the text, or nil for a nil receiver.
func (f *FlexibleText) StringPtr() *string {
	if f == nil {
		return nil
	}
	s := strings.TrimSpace(string(*f))
	return &s
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Error   string `json:"error,omitempty"`
}

// StatusResponse is the success marker returned by delete.
type StatusResponse struct {
	Status string `json:"status"`
}
