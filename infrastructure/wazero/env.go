package wazero

import (
	"context"
	"fmt"

	"github.com/reglet-dev/wasm-loader/domain/entities"
	"github.com/reglet-dev/wasm-loader/internal/wasmbin"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// Env is the live environment record. Its memory is the same instance the
// loaded module imports, so growth by the module is visible here.
type Env struct {
	module api.Module
	spec   entities.EnvSpec
}

// Module returns the underlying "env" module.
func (e *Env) Module() api.Module {
	return e.module
}

// Spec returns the description the record was built from.
func (e *Env) Spec() entities.EnvSpec {
	return e.spec
}

// Memory returns the exported linear memory.
func (e *Env) Memory() api.Memory {
	return e.module.ExportedMemory(entities.MemoryExportName)
}

// StackPointer returns the exported __stack_pointer global.
// It is an api.MutableGlobal when the spec asks for a mutable slot.
func (e *Env) StackPointer() api.Global {
	return e.module.ExportedGlobal(entities.StackPointerExportName)
}

// EnvModule encodes a module that defines and exports the environment record:
// a memory named "memory" sized per spec and an i32 global named
// "__stack_pointer" initialised to zero.
func EnvModule(spec entities.EnvSpec) []byte {
	out := append([]byte{}, wasmbin.Preamble...)

	mem := wasmbin.AppendULEB128(nil, 1)
	mem = wasmbin.AppendLimits(mem, spec.InitialPages, spec.MaxPages, spec.HasMax())
	out = wasmbin.AppendSection(out, wasmbin.SectionMemory, mem)

	global := wasmbin.AppendULEB128(nil, 1)
	global = append(global, wasmbin.ValType(api.ValueTypeI32), wasmbin.Mutability(spec.MutableStackPointer))
	global = append(global, wasmbin.OpI32Const)
	global = wasmbin.AppendSLEB128(global, int32(0))
	global = append(global, wasmbin.OpEnd)
	out = wasmbin.AppendSection(out, wasmbin.SectionGlobal, global)

	exports := wasmbin.AppendULEB128(nil, 2)
	exports = wasmbin.AppendName(exports, entities.MemoryExportName)
	exports = append(exports, wasmbin.KindMemory, 0x00)
	exports = wasmbin.AppendName(exports, entities.StackPointerExportName)
	exports = append(exports, wasmbin.KindGlobal, 0x00)
	out = wasmbin.AppendSection(out, wasmbin.SectionExport, exports)

	return out
}

// InstantiateEnv instantiates the environment record in rt under the
// "env" namespace.
func InstantiateEnv(ctx context.Context, rt wazero.Runtime, spec entities.EnvSpec) (*Env, error) {
	if spec.HasMax() && spec.MaxPages < spec.InitialPages {
		return nil, fmt.Errorf("env: max pages %d below initial pages %d", spec.MaxPages, spec.InitialPages)
	}
	if spec.InitialPages > entities.MaxPages || spec.MaxPages > entities.MaxPages {
		return nil, fmt.Errorf("env: page count exceeds %d", entities.MaxPages)
	}

	compiled, err := rt.CompileModule(ctx, EnvModule(spec))
	if err != nil {
		return nil, fmt.Errorf("env: compile: %w", err)
	}
	mod, err := rt.InstantiateModule(ctx, compiled,
		wazero.NewModuleConfig().WithName(entities.EnvNamespace).WithStartFunctions())
	if err != nil {
		return nil, fmt.Errorf("env: instantiate: %w", err)
	}
	return &Env{module: mod, spec: spec}, nil
}
