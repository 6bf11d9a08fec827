package parser

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/reglet-dev/wasm-loader/domain/ports"
	"gopkg.in/yaml.v3"
)

// YamlConfigParser implements ConfigParser for YAML.
type YamlConfigParser struct {
	strict bool
}

// Option configures a YamlConfigParser.
type Option func(*YamlConfigParser)

// WithStrict rejects keys that do not map to a config field. Enabled by default.
func WithStrict(strict bool) Option {
	return func(p *YamlConfigParser) {
		p.strict = strict
	}
}

// NewYamlConfigParser creates a new YamlConfigParser.
func NewYamlConfigParser(opts ...Option) ports.ConfigParser {
	p := &YamlConfigParser{strict: true}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Parse unmarshals YAML bytes over DefaultLoaderConfig, so keys missing
// from data keep their defaults. An empty document yields the defaults.
func (p *YamlConfigParser) Parse(data []byte) (*entities.LoaderConfig, error) {
	cfg := entities.DefaultLoaderConfig()

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(p.strict)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return &cfg, nil
}
