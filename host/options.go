package host

import (
	"fmt"
	"log/slog"

	"github.com/reglet-dev/wasm-loader/bridge"
	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/reglet-dev/wasm-loader/domain/ports"
	"github.com/reglet-dev/wasm-loader/infrastructure/fetch"
)

// loaderConfig holds configuration for the Loader.
type loaderConfig struct {
	source     ports.ModuleSource
	bridge     *bridge.Bridge
	logger     *slog.Logger
	onReject   func(error)
	entryPoint string
	moduleName string
	cacheDir   string
	namespace  string
	env        entities.EnvSpec
	maxSize    int64
	console    bool
	wasi       bool
	policy     ports.SourcePolicy
	allow      entities.SourcePolicy
	errors     []error
}

func defaultLoaderConfig() loaderConfig {
	return loaderConfig{
		entryPoint: entities.DefaultEntryPoint,
		namespace:  entities.DefaultBridgeNamespace,
		env:        entities.DefaultEnvSpec(),
		maxSize:    entities.DefaultMaxModuleSize,
		console:    true,
	}
}

// Option configures the Loader.
type Option func(*loaderConfig)

// WithSource sets where the module binary is fetched from.
// Defaults to DefaultModulePath on the local filesystem.
func WithSource(src ports.ModuleSource) Option {
	return func(c *loaderConfig) {
		c.source = src
	}
}

// WithBridge supplies a pre-built bridge. Without it the loader builds one
// with the core and console bundles under the configured namespace.
func WithBridge(b *bridge.Bridge) Option {
	return func(c *loaderConfig) {
		c.bridge = b
	}
}

// WithEnv sets the environment record imported under "env".
func WithEnv(spec entities.EnvSpec) Option {
	return func(c *loaderConfig) {
		c.env = spec
	}
}

// WithEntryPoint sets the zero-argument export called after hand-off.
func WithEntryPoint(name string) Option {
	return func(c *loaderConfig) {
		c.entryPoint = name
	}
}

// WithModuleName sets the runtime name of the instance.
func WithModuleName(name string) Option {
	return func(c *loaderConfig) {
		c.moduleName = name
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *loaderConfig) {
		c.logger = l
	}
}

// WithRejectionHandler sets the function called once with the error of a
// failed startup. The default logs the error.
func WithRejectionHandler(fn func(error)) Option {
	return func(c *loaderConfig) {
		c.onReject = fn
	}
}

// WithCompilationCacheDir persists compiled modules under dir.
func WithCompilationCacheDir(dir string) Option {
	return func(c *loaderConfig) {
		c.cacheDir = dir
	}
}

// WithMaxModuleSize caps the size of the fetched binary.
func WithMaxModuleSize(n int64) Option {
	return func(c *loaderConfig) {
		c.maxSize = n
	}
}

// WithWASI links wasi_snapshot_preview1 before the module is instantiated.
func WithWASI(enabled bool) Option {
	return func(c *loaderConfig) {
		c.wasi = enabled
	}
}

// WithSourcePolicy rejects module sources the policy does not allow.
// In-memory sources are not subject to it.
func WithSourcePolicy(p ports.SourcePolicy) Option {
	return func(c *loaderConfig) {
		c.policy = p
	}
}

// WithConfig applies a loaded configuration. Options given after it
// override individual settings.
func WithConfig(cfg entities.LoaderConfig) Option {
	return func(c *loaderConfig) {
		httpOpts := []fetch.HTTPOption{
			fetch.WithRequireWasmContentType(cfg.Fetch.RequireWasmContentType),
			fetch.WithHTTPTimeout(cfg.Fetch.Timeout),
		}
		src, err := fetch.ParseSource(cfg.Module, cfg.BaseURL, httpOpts...)
		if err != nil {
			c.errors = append(c.errors, fmt.Errorf("module source: %w", err))
			return
		}

		c.source = src
		c.env = cfg.Env
		c.entryPoint = cfg.EntryPoint
		c.moduleName = cfg.ModuleName
		c.cacheDir = cfg.CacheDir
		c.namespace = cfg.Bridge.Namespace
		c.console = cfg.Bridge.Console
		c.wasi = cfg.WASI
		c.allow = cfg.Fetch.Allow
		if cfg.Fetch.MaxSize > 0 {
			c.maxSize = cfg.Fetch.MaxSize
		}
	}
}

func (c *loaderConfig) validate() error {
	if len(c.errors) > 0 {
		return c.errors[0]
	}
	if c.entryPoint == "" {
		return fmt.Errorf("entry point cannot be empty")
	}
	if c.maxSize <= 0 {
		return fmt.Errorf("max module size must be positive, got %d", c.maxSize)
	}
	ns := c.namespace
	if c.bridge != nil {
		ns = c.bridge.Namespace()
	}
	switch c.moduleName {
	case entities.EnvNamespace, ns, wasiModuleName:
		return fmt.Errorf("module name %q collides with an import namespace", c.moduleName)
	}
	return nil
}
