package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/tetratelabs/wazero/api"
)

// Bridge is an immutable collection of named host functions plus the
// handle table and instance they resolve against.
// Once created via New, functions cannot be added or removed.
type Bridge struct {
	instance  api.Module
	handles   *Handles
	logger    *slog.Logger
	funcs     map[string]Func
	namespace string
	names     []string
	mu        sync.RWMutex
}

// builder accumulates configuration during bridge construction.
type builder struct {
	funcs      map[string]Func
	globals    map[string]any
	logger     *slog.Logger
	namespace  string
	middleware []Middleware
	errors     []error
}

// Option configures a Bridge.
type Option func(*builder)

// New creates an immutable Bridge with the given options.
// Returns an error if any function name is registered twice.
func New(opts ...Option) (*Bridge, error) {
	b := &builder{
		funcs:     make(map[string]Func),
		globals:   make(map[string]any),
		namespace: entities.DefaultBridgeNamespace,
	}
	for _, opt := range opts {
		opt(b)
	}

	if len(b.errors) > 0 {
		return nil, b.errors[0]
	}
	if b.namespace == "" {
		return nil, fmt.Errorf("bridge namespace cannot be empty")
	}
	if b.namespace == entities.EnvNamespace {
		return nil, fmt.Errorf("bridge namespace %q is reserved", entities.EnvNamespace)
	}
	if b.logger == nil {
		b.logger = slog.Default()
	}

	names := make([]string, 0, len(b.funcs))
	for name := range b.funcs {
		names = append(names, name)
	}
	sort.Strings(names)

	// Apply middleware in reverse order so the first one wraps outermost.
	wrapped := make(map[string]Func, len(b.funcs))
	for name, f := range b.funcs {
		h := f.Fn
		for i := len(b.middleware) - 1; i >= 0; i-- {
			h = b.middleware[i](h)
		}
		f.Fn = h
		wrapped[name] = f
	}

	return &Bridge{
		namespace: b.namespace,
		funcs:     wrapped,
		names:     names,
		handles:   NewHandles(b.globals),
		logger:    b.logger,
	}, nil
}

// Namespace returns the import namespace of the bridge functions.
func (b *Bridge) Namespace() string {
	return b.namespace
}

// Names returns a sorted list of all exported function names.
func (b *Bridge) Names() []string {
	result := make([]string, len(b.names))
	copy(result, b.names)
	return result
}

// Has returns true if a function with the given name is exported.
func (b *Bridge) Has(name string) bool {
	_, ok := b.funcs[name]
	return ok
}

// Func returns the function registered under name, middleware applied.
func (b *Bridge) Func(name string) (Func, bool) {
	f, ok := b.funcs[name]
	return f, ok
}

// Handles returns the bridge's handle table.
func (b *Bridge) Handles() *Handles {
	return b.handles
}

// Invoke dispatches a call from mod to the named function.
// Parameters are read from stack and results written back to it.
func (b *Bridge) Invoke(ctx context.Context, name string, mod api.Module, stack []uint64) {
	f, ok := b.funcs[name]
	if !ok {
		panic(&ThrownError{Function: name, Value: fmt.Errorf("unknown bridge function %q", name)})
	}
	f.Fn(withFunctionName(ctx, name), &Call{
		Module:   mod,
		Handles:  b.handles,
		Stack:    stack,
		function: name,
	})
}

// SetInstance hands the live module instance to the bridge. It binds the
// exports handle and may be called only once.
func (b *Bridge) SetInstance(mod api.Module) error {
	if mod == nil {
		return ErrNilInstance
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.instance != nil {
		return ErrInstanceBound
	}
	b.instance = mod
	b.handles.bind(HandleExports, mod)
	b.logger.Debug("bridge: instance bound", "namespace", b.namespace, "module", mod.Name())
	return nil
}

// Instance returns the instance set by SetInstance, or nil.
func (b *Bridge) Instance() api.Module {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.instance
}

// addFunc registers f.
// Returns an error if the name is empty, already registered or has no implementation.
func (b *builder) addFunc(f Func) error {
	if f.Name == "" {
		return fmt.Errorf("bridge function name cannot be empty")
	}
	if f.Fn == nil {
		return fmt.Errorf("bridge function %q has no implementation", f.Name)
	}
	if _, exists := b.funcs[f.Name]; exists {
		return fmt.Errorf("duplicate bridge function name: %q", f.Name)
	}
	b.funcs[f.Name] = f
	return nil
}

// WithNamespace sets the import namespace (default "zjb").
func WithNamespace(ns string) Option {
	return func(b *builder) {
		b.namespace = ns
	}
}

// WithFunc registers a single function.
func WithFunc(f Func) Option {
	return func(b *builder) {
		if err := b.addFunc(f); err != nil {
			b.errors = append(b.errors, err)
		}
	}
}

// WithBundle registers all functions from a bundle.
func WithBundle(bundle Bundle) Option {
	return func(b *builder) {
		for _, f := range bundle.Funcs() {
			if err := b.addFunc(f); err != nil {
				b.errors = append(b.errors, err)
			}
		}
	}
}

// WithMiddleware adds middleware applied to every function.
// Middleware executes in FIFO order (first added wraps first).
func WithMiddleware(mw ...Middleware) Option {
	return func(b *builder) {
		b.middleware = append(b.middleware, mw...)
	}
}

// WithGlobal adds a named value to the object behind HandleGlobal.
func WithGlobal(name string, value any) Option {
	return func(b *builder) {
		b.globals[name] = value
	}
}

// WithLogger sets the logger used by the bridge itself.
func WithLogger(l *slog.Logger) Option {
	return func(b *builder) {
		b.logger = l
	}
}
