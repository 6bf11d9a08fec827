package wazero

import (
	"context"

	"github.com/reglet-dev/wasm-loader/bridge"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
)

// RegisterBridge registers every function of b with rt as a host module
// named after the bridge namespace.
//
// Each function is wrapped to:
//   - Pass the calling module and its value stack to the bridge
//   - Let a thrown value unwind as a panic, which wazero reports as the
//     error of the module call that reached the bridge
func RegisterBridge(ctx context.Context, rt wazero.Runtime, b *bridge.Bridge) error {
	builder := rt.NewHostModuleBuilder(b.Namespace())

	for _, name := range b.Names() {
		funcName := name // capture for closure
		f, _ := b.Func(funcName)
		builder.NewFunctionBuilder().
			WithGoModuleFunction(api.GoModuleFunc(func(ctx context.Context, mod api.Module, stack []uint64) {
				b.Invoke(ctx, funcName, mod, stack)
			}), f.Params, f.Results).
			WithName(funcName).
			Export(funcName)
	}

	_, err := builder.Instantiate(ctx)
	return err
}
