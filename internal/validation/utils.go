package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Validatable is implemented by request types that know how to validate
// themselves, usually by calling Struct on their own value.
type Validatable interface {
	Validate() error
}

// FieldError represents a field-level validation error.
//
//	{ "field": "content_type", "error": "is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

var (
	once     sync.Once
	instance *validator.Validate
)

// Validator returns the process-wide validator.
//
// Field names in errors come from the `form` tag, then the `json` tag,
// then the `koanf` tag, so they match the names clients and operators use.
func Validator() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
		instance.RegisterTagNameFunc(func(fld reflect.StructField) string {
			for _, tag := range []string{"form", "json", "koanf"} {
				name := strings.SplitN(fld.Tag.Get(tag), ",", 2)[0]
				if name == "-" {
					return ""
				}
				if name != "" {
					return name
				}
			}
			return fld.Name
		})
	})

	return instance
}

// Struct validates v against its `validate` tags.
func Struct(v any) error {
	return Validator().Struct(v)
}

// FieldErrors converts a validation error into user-friendly field messages.
//
// Errors that did not come from the validator are reported under the
// empty field name.
func FieldErrors(err error) []FieldError {
	if err == nil {
		return nil
	}

	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return []FieldError{{Error: err.Error()}}
	}

	fieldErrors := make([]FieldError, 0, len(validationErrors))

	for _, err := range validationErrors {
		var msg string

		switch err.Tag() {
		case "required", "required_if":
			msg = "is required"

		case "gt":
			msg = fmt.Sprintf("must be greater than %s", err.Param())

		case "gte":
			msg = fmt.Sprintf("must be at least %s", err.Param())

		case "oneof":
			msg = fmt.Sprintf("must be one of: %s", err.Param())

		case "url":
			msg = "must be a valid URL"

		default:
			if err.Param() != "" {
				msg = fmt.Sprintf("failed %s=%s", err.Tag(), err.Param())
			} else {
				msg = fmt.Sprintf("failed %s", err.Tag())
			}
		}

		fieldErrors = append(fieldErrors, FieldError{
			Field: fieldPath(err),
			Error: msg,
		})
	}

	return fieldErrors
}

// fieldPath drops the root type from the namespace: "Config.gate.mode"
// becomes "gate.mode", "FaceRequest.content_type" becomes "content_type".
func fieldPath(err validator.FieldError) string {
	if _, path, ok := strings.Cut(err.Namespace(), "."); ok && path != "" {
		return path
	}
	return err.Field()
}

// Summary joins field errors into a single log-friendly line.
func Summary(fieldErrors []FieldError) string {
	parts := make([]string, 0, len(fieldErrors))
	for _, fe := range fieldErrors {
		if fe.Field == "" {
			parts = append(parts, fe.Error)
			continue
		}
		parts = append(parts, fe.Field+" "+fe.Error)
	}
	return strings.Join(parts, "; ")
}
