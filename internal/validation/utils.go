package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/deppfellow/foodgram-entrypoint/internal/errs"
	"github.com/go-playground/validator/v10"
)

var (
	once     sync.Once
	instance *validator.Validate
)

// get returns the shared validator; validator.Validate caches struct
// metadata, so one instance is reused.
func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New()
		// Report the koanf/json name rather than the Go field name.
		instance.RegisterTagNameFunc(func(f reflect.StructField) string {
			for _, tag := range []string{"koanf", "json"} {
				name := strings.SplitN(f.Tag.Get(tag), ",", 2)[0]
				if name != "" && name != "-" {
					return name
				}
			}
			return f.Name
		})
	})
	return instance
}

// Struct validates v against its struct tags.
//
// It returns nil or errs.FieldErrors.
func Struct(v any) error {
	if err := get().Struct(v); err != nil {
		return ExtractFieldErrors(err)
	}
	return nil
}

// ExtractFieldErrors converts validator errors into errs.FieldErrors.
//
// Errors that did not come from the validator are returned unchanged.
func ExtractFieldErrors(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return err
	}

	fieldErrors := make(errs.FieldErrors, 0, len(validationErrors))
	for _, fe := range validationErrors {
		fieldErrors = append(fieldErrors, errs.FieldError{
			Field: fieldPath(fe.Namespace()),
			Error: message(fe),
		})
	}
	return fieldErrors
}

// fieldPath drops the root struct name: "Config.database.user" -> "database.user".
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func message(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return "is required"

	case "min":
		if err.Type().Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", err.Param())
		}
		return fmt.Sprintf("must be at least %s", err.Param())

	case "max":
		if err.Type().Kind() == reflect.String {
			return fmt.Sprintf("must not exceed %s characters", err.Param())
		}
		return fmt.Sprintf("must not exceed %s", err.Param())

	case "oneof":
		return fmt.Sprintf("must be one of: %s", err.Param())

	case "hostname_port":
		return "must be a host:port pair"

	case "dive":
		return "some items are invalid"

	default:
		if err.Param() != "" {
			return fmt.Sprintf("failed %s:%s", err.Tag(), err.Param())
		}
		return fmt.Sprintf("failed %s", err.Tag())
	}
}
