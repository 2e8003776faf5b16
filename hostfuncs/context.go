package hostfuncs

import "context"

// Call identifies the host function invocation a context belongs to.
type Call struct {
	// Addon is the wazero instance name of the caller, e.g. "addon-3".
	Addon string
	// Function is the capability being invoked.
	Function string
}

type callKey struct{}

// WithCall attaches call to ctx.
func WithCall(ctx context.Context, call Call) context.Context {
	return context.WithValue(ctx, callKey{}, call)
}

// CallFrom returns the call attached to ctx.
func CallFrom(ctx context.Context) (Call, bool) {
	call, ok := ctx.Value(callKey{}).(Call)
	return call, ok
}
