package validation

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/reglet-dev/wasm-loader/application/schema"
	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/reglet-dev/wasm-loader/domain/ports"
	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

const configSchemaURL = "loader-config.json"

// SchemaValidator implements ports.DocumentValidator using a JSON schema.
type SchemaValidator struct {
	schema *jsonschema.Schema
}

// NewSchemaValidator compiles schemaJSON.
func NewSchemaValidator(schemaJSON []byte) (*SchemaValidator, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(configSchemaURL, bytes.NewReader(schemaJSON)); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	sch, err := compiler.Compile(configSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("invalid schema: %w", err)
	}
	return &SchemaValidator{schema: sch}, nil
}

// NewConfigSchemaValidator validates documents against the loader config schema.
func NewConfigSchemaValidator() (ports.DocumentValidator, error) {
	data, err := schema.GenerateConfigSchema()
	if err != nil {
		return nil, err
	}
	return NewSchemaValidator(data)
}

// ValidateDocument checks a YAML (or JSON) document against the schema.
func (v *SchemaValidator) ValidateDocument(data []byte) (*entities.ValidationResult, error) {
	var doc interface{}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	// Round trip through JSON so the validator sees JSON types.
	b, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare validation object: %w", err)
	}
	var obj interface{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return nil, fmt.Errorf("failed to prepare validation object: %w", err)
	}

	result := &entities.ValidationResult{Valid: true}
	err = v.schema.Validate(obj)
	if err == nil {
		return result, nil
	}

	result.Valid = false
	var ve *jsonschema.ValidationError
	if !errors.As(err, &ve) {
		result.Errors = append(result.Errors, entities.ValidationError{Field: "config", Message: err.Error()})
		return result, nil
	}
	for _, leaf := range leaves(ve) {
		result.Errors = append(result.Errors, entities.ValidationError{
			Field:   instanceField(leaf.InstanceLocation),
			Message: leaf.Message,
		})
	}
	return result, nil
}

// leaves returns the most specific causes of ve.
func leaves(ve *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(ve.Causes) == 0 {
		return []*jsonschema.ValidationError{ve}
	}
	var out []*jsonschema.ValidationError
	for _, c := range ve.Causes {
		out = append(out, leaves(c)...)
	}
	return out
}

// instanceField turns a JSON pointer such as /env/max_pages into env.max_pages.
func instanceField(ptr string) string {
	field := strings.ReplaceAll(strings.TrimPrefix(ptr, "/"), "/", ".")
	if field == "" {
		return "config"
	}
	return field
}
