// Package wazero runs addons on the wazero WebAssembly runtime and
// implements ports.AddonRuntime.
//
// A Runtime compiles addon binaries, checks their export shape and
// instantiates each as its own named module next to one shared "addon_host"
// module that serves the capability surface. Requests and results cross the
// boundary as JSON addressed by packed i64 values: pointer in the high 32
// bits, length in the low 32. Every call into a guest runs under the hook
// deadline.
//
//	rt, err := wazero.NewRuntime(ctx,
//	    wazero.WithHookTimeout(2*time.Second),
//	    wazero.WithNoteReader(store),
//	)
//	if err != nil {
//	    return err
//	}
//	defer rt.Close(ctx)
//
//	compiled, err := rt.Compile(ctx, wasmBytes)
//	...
//	guest, err := rt.Instantiate(ctx, compiled)
//	manifest, err := guest.Init(ctx)
package wazero
