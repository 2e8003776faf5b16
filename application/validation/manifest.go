// Package validation checks addon-provided data before the host accepts it.
package validation

import (
	stdErrors "errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/ports"
)

// ManifestValidator validates addon manifests with struct tags.
type ManifestValidator struct {
	validate *validator.Validate
}

var _ ports.ManifestValidator = (*ManifestValidator)(nil)

// NewManifestValidator creates a validator reporting fields by their JSON names.
func NewManifestValidator() *ManifestValidator {
	return &ManifestValidator{validate: newValidate()}
}

// newValidate builds a validator.Validate that names fields after their
// json tags, so errors match what the addon actually sent.
func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		if name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate checks manifest. Constraint violations are reported in the
// result, not as an error.
func (v *ManifestValidator) Validate(manifest *entities.AddonManifest) (*entities.ValidationResult, error) {
	if manifest == nil {
		return nil, fmt.Errorf("manifest is nil")
	}
	return collect(v.validate.Struct(manifest))
}

// collect converts validator output into a ValidationResult.
func collect(err error) (*entities.ValidationResult, error) {
	result := &entities.ValidationResult{Valid: true}
	if err == nil {
		return result, nil
	}

	var fieldErrs validator.ValidationErrors
	if !stdErrors.As(err, &fieldErrs) {
		return nil, fmt.Errorf("validate: %w", err)
	}

	result.Valid = false
	for _, fe := range fieldErrs {
		result.Errors = append(result.Errors, entities.ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Message: describe(fe),
		})
	}
	return result, nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(namespace string) string {
	if _, rest, ok := strings.Cut(namespace, "."); ok {
		return rest
	}
	return namespace
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		if fe.Kind() == reflect.Slice {
			return fmt.Sprintf("must have at most %s entries", fe.Param())
		}
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "min", "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "oneof":
		return fmt.Sprintf("must be one of [%s]", fe.Param())
	default:
		return fmt.Sprintf("failed %q validation", fe.Tag())
	}
}

// ValidateStruct validates any tagged struct the same way manifests are
// validated. Configuration loading uses it.
func ValidateStruct(v any) (*entities.ValidationResult, error) {
	return collect(defaultValidate.Struct(v))
}

var defaultValidate = newValidate()
