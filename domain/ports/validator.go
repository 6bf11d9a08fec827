package ports

import "github.com/reglet-dev/wasm-loader/domain/entities"

// ConfigValidator validates a loader configuration.
type ConfigValidator interface {
	// Validate checks cfg and reports every violated constraint.
	Validate(cfg *entities.LoaderConfig) (*entities.ValidationResult, error)
}

// DocumentValidator validates a raw configuration document before it is
// decoded, catching unknown keys and type mismatches.
type DocumentValidator interface {
	// ValidateDocument checks data and reports every violated constraint.
	ValidateDocument(data []byte) (*entities.ValidationResult, error)
}
