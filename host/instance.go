package host

import (
	"context"
	"fmt"

	wz "github.com/reglet-dev/wasm-loader/infrastructure/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Instance represents the instantiated module together with the
// environment record it was linked against.
type Instance struct {
	module api.Module
	env    *wz.Env
}

// Module returns the underlying wazero module.
func (i *Instance) Module() api.Module {
	return i.module
}

// Env returns the environment record the module imported.
func (i *Instance) Env() *wz.Env {
	return i.env
}

// Memory returns the linear memory the module runs on. For a module that
// imports env.memory this is the same memory as Env().Memory().
func (i *Instance) Memory() api.Memory {
	return i.module.Memory()
}

// Name returns the runtime name of the module.
func (i *Instance) Name() string {
	return i.module.Name()
}

// Call invokes an exported function after startup.
func (i *Instance) Call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	f := i.module.ExportedFunction(name)
	if f == nil {
		return nil, fmt.Errorf("export %q not found", name)
	}
	return f.Call(ctx, params...)
}
