// Package validation checks request payload shapes before they reach the
// usecases, which assume already-validated, typed input.
package validation

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Struct validates v against its `validate` tags and returns one
// human-readable error covering every failed field, or nil.
func Struct(v interface{}) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err
	}

	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		switch e.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", e.Field()))
		case "uuid":
			msgs = append(msgs, fmt.Sprintf("%s must be a valid uuid", e.Field()))
		case "gt":
			msgs = append(msgs, fmt.Sprintf("%s must be greater than %s", e.Field(), e.Param()))
		case "min":
			msgs = append(msgs, fmt.Sprintf("%s must be at least %s", e.Field(), e.Param()))
		case "max":
			msgs = append(msgs, fmt.Sprintf("%s must be at most %s", e.Field(), e.Param()))
		default:
			msgs = append(msgs, fmt.Sprintf("%s is invalid (%s)", e.Field(), e.Tag()))
		}
	}
	return fmt.Errorf("%s", strings.Join(msgs, "; "))
}
