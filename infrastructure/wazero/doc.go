// Package wazero provides adapters between the loader and the wazero runtime.
//
// It handles:
//
//   - Synthesising the "env" module that holds the environment record
//     (linear memory and the __stack_pointer slot)
//   - Registering a bridge as a host module under its namespace
//
// # Basic Usage
//
//	rt := wazero.NewRuntime(ctx)
//
//	env, err := wazeroadapter.InstantiateEnv(ctx, rt, entities.DefaultEnvSpec())
//	if err != nil {
//	    return err
//	}
//
//	b, _ := bridge.New(bridge.WithBundle(bridge.CoreBundle()))
//	if err := wazeroadapter.RegisterBridge(ctx, rt, b); err != nil {
//	    return err
//	}
//
//	// Modules instantiated in rt can now import env.memory,
//	// env.__stack_pointer and zjb.*.
package wazero
