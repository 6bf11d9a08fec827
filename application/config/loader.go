// Package config loads loader configuration files.
//
// Loading runs the same pipeline for every file: render the template, check
// the rendered document against the config schema, decode it over the
// defaults and validate the result.
package config

import (
	"fmt"
	"os"

	apptemplate "github.com/reglet-dev/wasm-loader/application/template"
	"github.com/reglet-dev/wasm-loader/application/validation"
	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/reglet-dev/wasm-loader/domain/ports"
	"github.com/reglet-dev/wasm-loader/infrastructure/parser"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	templateEngine  ports.TemplateEngine
	parser          ports.ConfigParser
	validator       ports.ConfigValidator
	docValidator    ports.DocumentValidator
	strictTemplates bool // Fail on missing template keys
	skipSchema      bool
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		parser:          parser.NewYamlConfigParser(),
		validator:       validation.NewConfigValidator(),
		strictTemplates: true, // Secure default: fail on missing keys
	}
}

// Loader orchestrates the config loading pipeline.
type Loader struct {
	config loaderConfig
}

// LoaderOption configures the Loader.
type LoaderOption func(*loaderConfig)

// WithParser sets a custom config parser.
func WithParser(p ports.ConfigParser) LoaderOption {
	return func(c *loaderConfig) {
		c.parser = p
	}
}

// WithTemplateEngine sets a template engine.
func WithTemplateEngine(t ports.TemplateEngine) LoaderOption {
	return func(c *loaderConfig) {
		c.templateEngine = t
	}
}

// WithStrictTemplates enables/disables strict template mode.
// When enabled (default), template rendering fails if a referenced key is missing.
func WithStrictTemplates(enabled bool) LoaderOption {
	return func(c *loaderConfig) {
		c.strictTemplates = enabled
	}
}

// WithValidator sets the validator applied to the decoded config.
func WithValidator(v ports.ConfigValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.validator = v
	}
}

// WithDocumentValidator sets the validator applied to the rendered document.
func WithDocumentValidator(v ports.DocumentValidator) LoaderOption {
	return func(c *loaderConfig) {
		c.docValidator = v
	}
}

// WithoutSchema skips the schema check of the rendered document.
func WithoutSchema() LoaderOption {
	return func(c *loaderConfig) {
		c.skipSchema = true
	}
}

// NewLoader creates a new Loader with defaults.
func NewLoader(opts ...LoaderOption) (*Loader, error) {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// Create default template engine if not provided
	if cfg.templateEngine == nil {
		cfg.templateEngine = apptemplate.NewGoTemplateEngine(
			apptemplate.WithStrict(cfg.strictTemplates),
		)
	}
	if cfg.docValidator == nil && !cfg.skipSchema {
		v, err := validation.NewConfigSchemaValidator()
		if err != nil {
			return nil, fmt.Errorf("failed to build config schema validator: %w", err)
		}
		cfg.docValidator = v
	}

	return &Loader{config: cfg}, nil
}

// Load renders, checks, parses and validates a config document.
func (l *Loader) Load(raw []byte, vars map[string]interface{}) (*entities.LoaderConfig, error) {
	data, err := l.config.templateEngine.Render(raw, vars)
	if err != nil {
		return nil, fmt.Errorf("failed to render config: %w", err)
	}

	if l.config.docValidator != nil {
		if err := validation.CheckDocument(l.config.docValidator, data); err != nil {
			return nil, err
		}
	}

	cfg, err := l.config.parser.Parse(data)
	if err != nil {
		return nil, err
	}

	if err := validation.Check(l.config.validator, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFile reads path and loads it.
func (l *Loader) LoadFile(path string, vars map[string]interface{}) (*entities.LoaderConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	cfg, err := l.Load(raw, vars)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}
