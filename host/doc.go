// Package host loads and starts a bridged WebAssembly module.
//
// A Loader owns a wazero runtime. Starting it fetches the module binary,
// compiles it, instantiates the "env" environment record (linear memory and
// the __stack_pointer slot) and the bridge namespace, links the module
// against both, hands the instance to the bridge and finally calls the
// module's zero-argument entry point. Start returns a Startup that resolves
// with the running Instance or with the first error encountered.
package host
