// Package validation checks request payloads against their `validate` tags
// and reports failures as model.ValidationError keyed by JSON field name.
package validation

import (
	"errors"
	"reflect"
	"strings"

	"storefront/internal/model"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		switch name {
		case "-":
			return ""
		case "":
			return f.Name
		}
		return name
	})
	return v
}

// Struct validates s. Field failures come back as *model.ValidationError.
func Struct(s any) error {
	if err := validate.Struct(s); err != nil {
		var ve validator.ValidationErrors
		if errors.As(err, &ve) {
			return mapValidationErrors(ve)
		}
		return err
	}
	return nil
}

func mapValidationErrors(errs validator.ValidationErrors) *model.ValidationError {
	out := &model.ValidationError{}

	for _, e := range errs {
		var message string
		switch e.Tag() {
		case "required":
			message = "is required"
		case "email":
			message = "must be a valid email address"
		case "min":
			if e.Kind() == reflect.Slice {
				message = "must contain at least " + e.Param() + " items"
			} else {
				message = "must be at least " + e.Param() + " characters"
			}
		case "max":
			message = "must be at most " + e.Param() + " characters"
		case "gte":
			message = "must be greater than or equal to " + e.Param()
		case "lte":
			message = "must be less than or equal to " + e.Param()
		case "oneof":
			message = "must be one of: " + e.Param()
		case "dive":
			continue
		default:
			message = "is invalid"
		}

		out.Fields = append(out.Fields, model.FieldError{
			Field:   e.Field(),
			Message: message,
		})
	}

	return out
}
