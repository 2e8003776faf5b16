package wazero

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"

	"github.com/deckforge/addonhost/hostfuncs"
)

var i64Types = []api.ValueType{api.ValueTypeI64}

// capabilityModule is the "addon_host" host module: every registry entry as
// a packed i64 -> packed i64 function, plus log(i64).
type capabilityModule struct {
	registry   *hostfuncs.HandlerRegistry
	sink       *hostfuncs.LogSink
	logger     *slog.Logger
	maxRequest uint32
}

func (c *capabilityModule) instantiate(ctx context.Context, rt wazero.Runtime) error {
	builder := rt.NewHostModuleBuilder(hostfuncs.ModuleName)
	for _, name := range c.registry.Names() {
		builder.NewFunctionBuilder().
			WithGoModuleFunction(c.query(name), i64Types, i64Types).
			Export(name)
	}
	builder.NewFunctionBuilder().
		WithGoModuleFunction(api.GoModuleFunc(c.log), i64Types, nil).
		Export(hostfuncs.FuncLog)

	_, err := builder.Instantiate(ctx)
	return err
}

// query serves one registry entry. Whatever goes wrong, the guest gets a
// JSON answer or a null result; the call never traps.
func (c *capabilityModule) query(name string) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		ctx = hostfuncs.WithCall(ctx, hostfuncs.Call{Addon: mod.Name()})
		stack[0] = c.respond(ctx, mod, c.serve(ctx, mod, name, stack[0]))
	}
}

func (c *capabilityModule) serve(ctx context.Context, mod api.Module, name string, packed uint64) []byte {
	ptr, length := unpackPtrLen(packed)
	if length > c.maxRequest {
		msg := fmt.Sprintf("request of %d bytes exceeds the %d byte limit", length, c.maxRequest)
		c.logger.WarnContext(ctx, "wazero: "+msg, "function", name, "addon", mod.Name())
		return hostfuncs.NewValidationError(msg).ToJSON()
	}

	var request []byte
	if length > 0 {
		view, ok := readGuest(mod, ptr, length)
		if !ok {
			msg := fmt.Sprintf("request range %d+%d outside guest memory", ptr, length)
			c.logger.WarnContext(ctx, "wazero: "+msg, "function", name, "addon", mod.Name())
			return hostfuncs.NewValidationError(msg).ToJSON()
		}
		request = view
	}

	resp, err := c.registry.Invoke(ctx, name, request)
	if err != nil {
		c.logger.ErrorContext(ctx, "wazero: host function failed", "function", name, "addon", mod.Name(), "error", err)
		return hostfuncs.NewInternalError(err.Error()).ToJSON()
	}
	return resp
}

// respond copies resp into guest memory and returns its packed address, or
// 0 when there is nothing to return or the copy fails.
func (c *capabilityModule) respond(ctx context.Context, mod api.Module, resp []byte) uint64 {
	if len(resp) == 0 {
		return 0
	}
	ptr, err := writeGuestBytes(ctx, mod, resp)
	if err != nil {
		c.logger.ErrorContext(ctx, "wazero: response not delivered", "addon", mod.Name(), "error", err)
		return 0
	}
	return packPtrLen(ptr, uint32(len(resp))) //nolint:gosec // G115: bounded by guest memory
}

// log forwards a guest log record to the sink. It never traps.
func (c *capabilityModule) log(ctx context.Context, mod api.Module, stack []uint64) {
	addon := mod.Name()
	defer func() {
		if r := recover(); r != nil {
			c.sink.Drop(ctx, addon, fmt.Sprintf("panic: %v", r))
		}
	}()

	ptr, length := unpackPtrLen(stack[0])
	if length == 0 {
		c.sink.Log(ctx, addon, nil)
		return
	}
	data, ok := readGuest(mod, ptr, length)
	if !ok {
		c.sink.Drop(ctx, addon, fmt.Sprintf("range %d+%d outside guest memory", ptr, length))
		return
	}
	c.sink.Log(ctx, addon, data)
}
