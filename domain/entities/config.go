package entities

import (
	"time"
)

const (
	// DefaultModulePath is the resource path fetched when no module is configured.
	DefaultModulePath = "example.wasm"

	// DefaultEntryPoint is the zero-argument export invoked after instantiation.
	DefaultEntryPoint = "main"

	// DefaultBridgeNamespace is the import namespace of the bridge functions.
	DefaultBridgeNamespace = "zjb"

	// EnvNamespace is the import namespace holding the environment record.
	EnvNamespace = "env"

	// MemoryExportName is the name of the linear memory inside EnvNamespace.
	MemoryExportName = "memory"

	// StackPointerExportName is the name of the stack pointer slot inside EnvNamespace.
	StackPointerExportName = "__stack_pointer"

	// PageSize is the size of one linear memory page in bytes.
	PageSize = 65536

	// MaxPages is the largest page count addressable by a 32-bit memory.
	MaxPages = 65536

	// DefaultMaxModuleSize caps the size of a fetched module binary.
	DefaultMaxModuleSize = 64 << 20
)

// LoaderConfig represents the settings of a single loader.
// It is usually read from a YAML file and validated before use.
type LoaderConfig struct {
	// Module is the URL or file path of the module binary.
	Module string `yaml:"module" json:"module" validate:"required" jsonschema:"description=URL or file path of the module binary,default=example.wasm"`

	// BaseURL resolves a relative Module against an HTTP origin.
	// When empty, a relative Module is read from the local filesystem.
	BaseURL string `yaml:"base_url,omitempty" json:"base_url,omitempty" validate:"omitempty,url" jsonschema:"description=Origin used to resolve a relative module path"`

	// ModuleName is the name the instance is registered under in the runtime.
	ModuleName string `yaml:"module_name,omitempty" json:"module_name,omitempty" validate:"omitempty,printascii,excludesall= " jsonschema:"description=Runtime name of the instantiated module"`

	// EntryPoint is the zero-argument export called once after hand-off.
	EntryPoint string `yaml:"entry_point" json:"entry_point" validate:"required" jsonschema:"default=main"`

	// CacheDir enables a persistent compilation cache when set.
	CacheDir string `yaml:"cache_dir,omitempty" json:"cache_dir,omitempty"`

	// WASI links the wasi_snapshot_preview1 host module and runs a reactor's
	// _initialize export during instantiation.
	WASI bool `yaml:"wasi,omitempty" json:"wasi,omitempty"`

	Log    LogConfig    `yaml:"log" json:"log"`
	Fetch  FetchConfig  `yaml:"fetch" json:"fetch"`
	Bridge BridgeConfig `yaml:"bridge" json:"bridge"`
	Env    EnvSpec      `yaml:"env" json:"env"`
}

// EnvSpec describes the environment record imported by the module
// under the "env" namespace.
type EnvSpec struct {
	// InitialPages is the initial size of the linear memory in pages.
	InitialPages uint32 `yaml:"initial_pages" json:"initial_pages" validate:"lte=65536" jsonschema:"default=1,maximum=65536"`

	// MaxPages bounds memory growth. Zero leaves the memory unbounded.
	MaxPages uint32 `yaml:"max_pages,omitempty" json:"max_pages,omitempty" validate:"omitempty,lte=65536,gtefield=InitialPages" jsonschema:"maximum=65536"`

	// MutableStackPointer exports __stack_pointer as a mutable global.
	// A plain number import is immutable, which is the default.
	MutableStackPointer bool `yaml:"mutable_stack_pointer,omitempty" json:"mutable_stack_pointer,omitempty"`
}

// HasMax reports whether memory growth is bounded.
func (s EnvSpec) HasMax() bool {
	return s.MaxPages != 0
}

// BridgeConfig configures the bridge namespace.
type BridgeConfig struct {
	// Namespace is the import module name of the bridge functions.
	Namespace string `yaml:"namespace" json:"namespace" validate:"required,excludesall= " jsonschema:"default=zjb"`

	// Console registers the console logging functions.
	Console bool `yaml:"console" json:"console" jsonschema:"default=true"`
}

// FetchConfig configures the transfer of the module binary.
type FetchConfig struct {
	// Timeout bounds the transfer. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty" validate:"gte=0" jsonschema:"description=Go duration such as 30s or 1m30s"`

	// MaxSize caps the size of the module binary in bytes.
	MaxSize int64 `yaml:"max_size" json:"max_size" validate:"gt=0"`

	// RequireWasmContentType rejects HTTP responses not served as application/wasm.
	RequireWasmContentType bool `yaml:"require_wasm_content_type" json:"require_wasm_content_type" jsonschema:"default=true"`

	// Allow restricts the locations the module may be fetched from.
	Allow SourcePolicy `yaml:"allow,omitempty" json:"allow,omitempty"`
}

// LogConfig configures host logging.
type LogConfig struct {
	Level  string `yaml:"level" json:"level" validate:"oneof=debug info warn error" jsonschema:"enum=debug,enum=info,enum=warn,enum=error,default=info"`
	// Format is text, json, auto (text on a terminal, json otherwise) or zap.
	Format string `yaml:"format" json:"format" validate:"oneof=text json auto zap" jsonschema:"enum=text,enum=json,enum=auto,enum=zap,default=text"`
}

// DefaultLoaderConfig returns the default loader configuration:
// a one page growable memory, a zero stack pointer slot, the "zjb" bridge
// and "main" as the entry point.
func DefaultLoaderConfig() LoaderConfig {
	return LoaderConfig{
		Module:     DefaultModulePath,
		EntryPoint: DefaultEntryPoint,
		Env:        DefaultEnvSpec(),
		Bridge: BridgeConfig{
			Namespace: DefaultBridgeNamespace,
			Console:   true,
		},
		Fetch: FetchConfig{
			MaxSize:                DefaultMaxModuleSize,
			RequireWasmContentType: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// DefaultEnvSpec returns the default environment record: one growable page.
func DefaultEnvSpec() EnvSpec {
	return EnvSpec{InitialPages: 1}
}
