// Package validation provides custom validation rules for the application.
package validation

import (
	"encoding/json"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/credstore/internal/errors"
)

// WrapValidationError wraps validation errors as domain ErrInvalidInput
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// NoWhitespace validates that string doesn't contain leading/trailing whitespace
var NoWhitespace = validation.NewStringRuleWithError(
	func(s string) bool {
		return s == strings.TrimSpace(s)
	},
	validation.NewError("validation_no_whitespace", "must not contain leading or trailing whitespace"),
)

// NotBlank validates that a string is not empty after trimming whitespace
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)

// JSONDocument validates that a json.RawMessage holds a single well formed JSON value.
// An empty message is accepted; pair it with validation.Required when the value is mandatory.
var JSONDocument = validation.By(func(value any) error {
	raw, ok := value.(json.RawMessage)
	if !ok {
		return validation.NewError("validation_json_type", "must be a JSON document")
	}
	if len(raw) == 0 {
		return nil
	}
	if !json.Valid(raw) {
		return validation.NewError("validation_json", "must be valid JSON")
	}
	return nil
})

// JSONObject validates that a json.RawMessage, when present and not null, is a JSON object.
var JSONObject = validation.By(func(value any) error {
	raw, ok := value.(json.RawMessage)
	if !ok {
		return validation.NewError("validation_json_type", "must be a JSON document")
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return nil
	}
	var object map[string]json.RawMessage
	if err := json.Unmarshal(raw, &object); err != nil {
		return validation.NewError("validation_json_object", "must be a JSON object")
	}
	return nil
})
