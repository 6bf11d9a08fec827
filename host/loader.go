package host

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/reglet-dev/wasm-loader/bridge"
	"github.com/reglet-dev/wasm-loader/domain/entities"
	domainerrors "github.com/reglet-dev/wasm-loader/domain/errors"
	"github.com/reglet-dev/wasm-loader/domain/policy"
	"github.com/reglet-dev/wasm-loader/domain/ports"
	"github.com/reglet-dev/wasm-loader/infrastructure/fetch"
	wz "github.com/reglet-dev/wasm-loader/infrastructure/wazero"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
)

const wasiModuleName = wasi_snapshot_preview1.ModuleName

// Loader fetches, links and starts one bridged module.
// Each Loader performs at most one instantiation.
type Loader struct {
	runtime wazero.Runtime
	cache   wazero.CompilationCache
	bridge  *bridge.Bridge
	startup *Startup
	config  loaderConfig
	once    sync.Once
}

// NewLoader creates a Loader with its runtime and bridge.
// Nothing is fetched until Start or Run is called.
func NewLoader(ctx context.Context, opts ...Option) (*Loader, error) {
	cfg := defaultLoaderConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.onReject == nil {
		logger := cfg.logger
		cfg.onReject = func(err error) {
			detail := domainerrors.ToErrorDetail(err)
			logger.Error("wasm-loader: startup failed", "error", err, "type", detail.Type, "code", detail.Code)
		}
	}
	if cfg.source == nil {
		cfg.source = fetch.NewFileSource(entities.DefaultModulePath)
	}
	if cfg.policy == nil && cfg.allow.Enabled() {
		p, err := policy.New(cfg.allow, policy.WithDenialHandler(&policy.LogDenialHandler{Logger: cfg.logger}))
		if err != nil {
			return nil, fmt.Errorf("invalid source policy: %w", err)
		}
		cfg.policy = p
	}

	b := cfg.bridge
	if b == nil {
		var err error
		b, err = defaultBridge(cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to create bridge: %w", err)
		}
	}

	l := &Loader{bridge: b, config: cfg}

	rtConfig := wazero.NewRuntimeConfig()
	if cfg.cacheDir != "" {
		cache, err := wazero.NewCompilationCacheWithDir(cfg.cacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to open compilation cache %s: %w", cfg.cacheDir, err)
		}
		l.cache = cache
		rtConfig = rtConfig.WithCompilationCache(cache)
	}
	l.runtime = wazero.NewRuntimeWithConfig(ctx, rtConfig)

	return l, nil
}

func defaultBridge(cfg loaderConfig) (*bridge.Bridge, error) {
	bundles := []bridge.Bundle{bridge.CoreBundle()}
	if cfg.console {
		bundles = append(bundles, bridge.ConsoleBundle(cfg.logger))
	}
	return bridge.New(
		bridge.WithNamespace(cfg.namespace),
		bridge.WithLogger(cfg.logger),
		bridge.WithMiddleware(
			bridge.PanicRecoveryMiddleware(cfg.logger),
			bridge.LoggingMiddleware(cfg.logger),
		),
		bridge.WithBundle(bridge.Combine(bundles...)),
	)
}

// Bridge returns the bridge the module is linked against.
func (l *Loader) Bridge() *bridge.Bridge {
	return l.bridge
}

// Start begins the startup in the background and returns its pending result.
// Later calls return the same Startup. ctx governs the whole startup,
// the entry point call included.
func (l *Loader) Start(ctx context.Context) *Startup {
	l.once.Do(func() {
		l.startup = newStartup()
		go l.run(ctx, l.startup)
	})
	return l.startup
}

// Run starts the module and waits for the entry point to return.
func (l *Loader) Run(ctx context.Context) (*Instance, error) {
	return l.Start(ctx).Wait(ctx)
}

// Close releases the runtime and every module instantiated in it.
func (l *Loader) Close(ctx context.Context) error {
	err := l.runtime.Close(ctx)
	if l.cache != nil {
		err = errors.Join(err, l.cache.Close(ctx))
	}
	return err
}

func (l *Loader) run(ctx context.Context, s *Startup) {
	inst, err := l.load(ctx)
	if err != nil {
		l.config.onReject(err)
	}
	s.resolve(inst, err)
}

// load performs the startup steps in order. Each step runs only after the
// previous one succeeded.
func (l *Loader) load(ctx context.Context) (*Instance, error) {
	cfg := l.config
	src := cfg.source
	logger := cfg.logger.With("source", src.String())

	if err := checkSource(cfg.policy, src); err != nil {
		return nil, err
	}
	logger.Debug("wasm-loader: fetching module")
	bin, err := fetch.ReadModule(ctx, src, cfg.maxSize)
	if err != nil {
		return nil, err
	}

	compiled, err := l.runtime.CompileModule(ctx, bin)
	if err != nil {
		return nil, &domainerrors.CompileError{Source: src.String(), Err: err}
	}
	logger.Debug("wasm-loader: module compiled", "bytes", len(bin))

	env, err := wz.InstantiateEnv(ctx, l.runtime, cfg.env)
	if err != nil {
		return nil, &domainerrors.LinkError{Module: entities.EnvNamespace, Err: err}
	}
	if err := wz.RegisterBridge(ctx, l.runtime, l.bridge); err != nil {
		return nil, &domainerrors.LinkError{Module: l.bridge.Namespace(), Err: err}
	}

	modConfig := wazero.NewModuleConfig().WithName(cfg.moduleName).WithStartFunctions()
	if cfg.wasi {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, l.runtime); err != nil {
			return nil, &domainerrors.LinkError{Module: wasiModuleName, Err: err}
		}
		modConfig = modConfig.WithStartFunctions("_initialize")
	}

	mod, err := l.runtime.InstantiateModule(ctx, compiled, modConfig)
	if err != nil {
		return nil, &domainerrors.LinkError{Module: linkName(cfg.moduleName, src.String()), Err: err}
	}
	inst := &Instance{module: mod, env: env}

	if err := l.bridge.SetInstance(mod); err != nil {
		return nil, fmt.Errorf("hand-off to bridge: %w", err)
	}

	entry := mod.ExportedFunction(cfg.entryPoint)
	if entry == nil {
		return inst, &domainerrors.EntryPointError{Name: cfg.entryPoint}
	}
	logger.Info("wasm-loader: starting module", "module", mod.Name(), "entry_point", cfg.entryPoint)
	if _, err := entry.Call(ctx); err != nil {
		return inst, &domainerrors.EntryPointError{Name: cfg.entryPoint, Err: err}
	}
	return inst, nil
}

func checkSource(p ports.SourcePolicy, src ports.ModuleSource) error {
	if p == nil {
		return nil
	}
	loc, ok := src.(ports.Locator)
	if !ok {
		return nil
	}
	if !p.CheckSource(loc.Location()) {
		return &domainerrors.PolicyError{Source: src.String()}
	}
	return nil
}

func linkName(moduleName, source string) string {
	if moduleName != "" {
		return moduleName
	}
	return source
}
