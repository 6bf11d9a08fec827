// Package bridge implements the bridging helper a loaded module links against.
//
// A Bridge is an immutable set of named host functions exported under one
// import namespace (by default "zjb"), plus a table of handles through which
// the module refers to host values. After instantiation the loader hands the
// live instance to the bridge with SetInstance so later calls can resolve
// against it.
//
// # Basic Usage
//
//	b, err := bridge.New(
//	    bridge.WithMiddleware(bridge.PanicRecoveryMiddleware(logger)),
//	    bridge.WithBundle(bridge.CoreBundle()),
//	    bridge.WithBundle(bridge.ConsoleBundle(logger)),
//	    bridge.WithGlobal("title", "demo"),
//	)
//
// Functions receive a *Call that exposes the calling module's stack and
// memory and the handle table:
//
//	bridge.WithFunc(bridge.Func{
//	    Name:    "now",
//	    Results: []api.ValueType{api.ValueTypeF64},
//	    Fn: func(ctx context.Context, c *bridge.Call) {
//	        c.SetF64(0, float64(time.Now().UnixMilli()))
//	    },
//	})
package bridge
