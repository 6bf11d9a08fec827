// Package validation checks loader configurations.
//
// ConfigValidator applies the struct tags of entities.LoaderConfig with
// go-playground/validator. SchemaValidator checks a raw YAML document
// against the generated JSON schema before it is decoded.
package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/reglet-dev/wasm-loader/domain/entities"
	domainerrors "github.com/reglet-dev/wasm-loader/domain/errors"
	"github.com/reglet-dev/wasm-loader/domain/ports"
)

// validate is a package-level singleton for better performance.
// Creating a new validator on each call is expensive; reusing is recommended.
var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML key so messages match the config file.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// ConfigValidator implements ports.ConfigValidator with struct tags.
type ConfigValidator struct{}

// NewConfigValidator creates a new validator.
func NewConfigValidator() ports.ConfigValidator {
	return &ConfigValidator{}
}

// Validate checks cfg against its validation tags.
func (v *ConfigValidator) Validate(cfg *entities.LoaderConfig) (*entities.ValidationResult, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is nil")
	}

	result := &entities.ValidationResult{Valid: true}
	err := validate.Struct(cfg)
	if err == nil {
		return result, nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil, fmt.Errorf("validation error: %w", err)
	}
	result.Valid = false
	for _, fe := range verrs {
		result.Errors = append(result.Errors, entities.ValidationError{
			Field:   fieldPath(fe.Namespace()),
			Message: message(fe),
		})
	}
	return result, nil
}

// fieldPath drops the root struct name from a validator namespace.
func fieldPath(ns string) string {
	if i := strings.IndexByte(ns, '.'); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func message(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "gtefield":
		return fmt.Sprintf("must not be below %s", fe.Param())
	case "url":
		return "must be an absolute URL"
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}

// Check runs v and turns an invalid result into a ConfigError.
func Check(v ports.ConfigValidator, cfg *entities.LoaderConfig) error {
	res, err := v.Validate(cfg)
	if err != nil {
		return err
	}
	return resultError(res)
}

// CheckDocument runs v on data and turns an invalid result into a ConfigError.
func CheckDocument(v ports.DocumentValidator, data []byte) error {
	res, err := v.ValidateDocument(data)
	if err != nil {
		return err
	}
	return resultError(res)
}

func resultError(res *entities.ValidationResult) error {
	if res.Valid {
		return nil
	}
	fields := make([]string, 0, len(res.Errors))
	msgs := make([]string, 0, len(res.Errors))
	for _, e := range res.Errors {
		fields = append(fields, e.Field)
		msgs = append(msgs, fmt.Sprintf("%s %s", e.Field, e.Message))
	}
	return &domainerrors.ConfigError{Fields: fields, Err: errors.New(strings.Join(msgs, "; "))}
}
