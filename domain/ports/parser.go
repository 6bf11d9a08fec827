package ports

import "github.com/reglet-dev/wasm-loader/domain/entities"

// ConfigParser parses raw bytes into a LoaderConfig.
type ConfigParser interface {
	// Parse unmarshals data over the defaults and returns the result.
	Parse(data []byte) (*entities.LoaderConfig, error)
}
