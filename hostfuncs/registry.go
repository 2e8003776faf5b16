package hostfuncs

import (
	"context"
	stdErrors "errors"
	"fmt"
	"maps"
	"slices"
)

// HandlerRegistry maps capability names to handlers. It is fixed at
// construction, so concurrent lookups need no lock.
type HandlerRegistry struct {
	handlers map[string]ByteHandler
}

// RegistryOption contributes handlers or middleware to NewRegistry.
type RegistryOption func(*registryBuilder)

type registryBuilder struct {
	handlers   map[string]ByteHandler
	middleware []Middleware
	errs       []error
}

func (b *registryBuilder) add(name string, h ByteHandler) {
	switch {
	case name == "":
		b.errs = append(b.errs, stdErrors.New("host function name is empty"))
	case name == FuncLog:
		b.errs = append(b.errs, fmt.Errorf("host function name %q is reserved", name))
	case b.handlers[name] != nil:
		b.errs = append(b.errs, fmt.Errorf("host function %q registered twice", name))
	case h == nil:
		b.errs = append(b.errs, fmt.Errorf("host function %q has no handler", name))
	default:
		b.handlers[name] = h
	}
}

// NewRegistry builds a registry. Every handler is wrapped in the collected
// middleware; all registration mistakes are reported together.
func NewRegistry(opts ...RegistryOption) (*HandlerRegistry, error) {
	b := &registryBuilder{handlers: map[string]ByteHandler{}}
	for _, opt := range opts {
		opt(b)
	}
	if err := stdErrors.Join(b.errs...); err != nil {
		return nil, err
	}

	for name, h := range b.handlers {
		for _, mw := range slices.Backward(b.middleware) {
			h = mw(h)
		}
		b.handlers[name] = h
	}
	return &HandlerRegistry{handlers: b.handlers}, nil
}

// WithByteHandler registers h under name.
func WithByteHandler(name string, h ByteHandler) RegistryOption {
	return func(b *registryBuilder) { b.add(name, h) }
}

// WithHandler registers a typed capability under name.
func WithHandler[Req, Resp any](name string, fn HostFunc[Req, Resp]) RegistryOption {
	return WithByteHandler(name, NewJSONHandler(fn))
}

// WithBundle registers every handler of bundle.
func WithBundle(bundle HostFuncBundle) RegistryOption {
	return func(b *registryBuilder) {
		handlers := bundle.Handlers()
		for _, name := range slices.Sorted(maps.Keys(handlers)) {
			b.add(name, handlers[name])
		}
	}
}

// WithMiddleware appends middleware.
func WithMiddleware(mw ...Middleware) RegistryOption {
	return func(b *registryBuilder) { b.middleware = append(b.middleware, mw...) }
}

// Invoke runs the handler registered under name. An unknown name is a
// NOT_FOUND response, not an error.
func (r *HandlerRegistry) Invoke(ctx context.Context, name string, payload []byte) ([]byte, error) {
	h, ok := r.handlers[name]
	if !ok {
		return NewNotFoundError(name).ToJSON(), nil
	}
	call, _ := CallFrom(ctx)
	call.Function = name
	return h(WithCall(ctx, call), payload)
}

// Has reports whether name is registered.
func (r *HandlerRegistry) Has(name string) bool {
	_, ok := r.handlers[name]
	return ok
}

// Names lists the registered capabilities in sorted order.
func (r *HandlerRegistry) Names() []string {
	return slices.Sorted(maps.Keys(r.handlers))
}
