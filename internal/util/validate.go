package util

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/dnvriend/aws-primitives-tool/internal/errs"
)

var validate = validator.New()

// ValidateStruct validates a decoded argument struct's validation tags,
// generalizing the teacher's pkg/utils.ValidateStruct to return our own
// InvalidArgument error Kind instead of a bare error, so every caller's
// failure already carries the right exit code (spec.md section 4.1:
// "the driver validates ... before contacting the service").
func ValidateStruct(s any) error {
	if err := validate.Struct(s); err != nil {
		return errs.InvalidArgument(formatValidationError(err))
	}
	return nil
}

func formatValidationError(err error) string {
	validationErrors, ok := err.(validator.ValidationErrors)
	if !ok {
		return err.Error()
	}
	msgs := make([]string, 0, len(validationErrors))
	for _, e := range validationErrors {
		msgs = append(msgs, formatFieldError(e))
	}
	return strings.Join(msgs, "; ")
}

func formatFieldError(e validator.FieldError) string {
	field := strings.ToLower(e.Field())
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, e.Param())
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, e.Param())
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, e.Param())
	case "lte":
		return fmt.Sprintf("%s must be at most %s", field, e.Param())
	case "dive":
		return fmt.Sprintf("%s contains invalid values", field)
	default:
		return fmt.Sprintf("%s is invalid (%s)", field, e.Tag())
	}
}
