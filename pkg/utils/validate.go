package utils

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

func FormatValidationError(err error) map[string]string {
	result := make(map[string]string)

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		result["body"] = err.Error()
		return result
	}

	for _, fieldErr := range validationErrors {
		field := strings.ToLower(fieldErr.Field())

		switch fieldErr.Tag() {
		case "required":
			result[field] = fmt.Sprintf("%s is required", field)
		case "min":
			result[field] = fmt.Sprintf("%s must contain at least %s element(s)", field, fieldErr.Param())
		case "max":
			result[field] = fmt.Sprintf("%s must be at most %s characters", field, fieldErr.Param())
		case "gte":
			result[field] = fmt.Sprintf("%s must be greater than or equal to %s", field, fieldErr.Param())
		default:
			result[field] = fmt.Sprintf("%s is invalid", field)
		}
	}

	return result
}
