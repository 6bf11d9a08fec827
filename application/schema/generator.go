// Package schema provides JSON schema generation for the loader configuration.
package schema

import (
	"encoding/json"
	"fmt"
	"reflect"
	"time"

	"github.com/invopop/jsonschema"
	"github.com/reglet-dev/wasm-loader/domain/entities"
)

// GenerateSchema creates a JSON schema from a Go struct.
// It uses the `invopop/jsonschema` library to reflect on the struct
// and generate a standard JSON Schema (Draft 2020-12).
//
// Only fields tagged `jsonschema:"required"` are required, since every
// config field has a default. Durations are strings such as "5s", which is
// how they are written in YAML. Their description comes from the field tag.
func GenerateSchema(v interface{}) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct:             true, // Expand struct definitions inline
		RequiredFromJSONSchemaTags: true,
		Mapper:                     mapType,
	}
	schema := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// GenerateConfigSchema returns the schema of the loader configuration file.
func GenerateConfigSchema() ([]byte, error) {
	return GenerateSchema(&entities.LoaderConfig{})
}

var durationType = reflect.TypeOf(time.Duration(0))

func mapType(t reflect.Type) *jsonschema.Schema {
	if t == durationType {
		return &jsonschema.Schema{
			Type:    "string",
			Pattern: `^([0-9]+(\.[0-9]+)?(ns|us|µs|ms|s|m|h))+$`,
		}
	}
	return nil
}
