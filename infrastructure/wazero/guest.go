package wazero

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/tetratelabs/wazero/api"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/errors"
	"github.com/deckforge/addonhost/domain/ports"
	"github.com/deckforge/addonhost/wireformat"
)

var _ ports.Guest = (*guest)(nil)

// guest is one instantiated addon module.
type guest struct {
	module  api.Module
	logger  *slog.Logger
	name    string
	timeout time.Duration
}

func (g *guest) Name() string {
	return g.name
}

// Init calls the init export and decodes the manifest it returns.
func (g *guest) Init(ctx context.Context) (entities.AddonManifest, error) {
	data, err := g.callForBytes(ctx, exportInit)
	if err != nil {
		return entities.AddonManifest{}, err
	}
	if data == nil {
		return entities.AddonManifest{}, g.trap(exportInit, fmt.Errorf("init returned no manifest"))
	}

	manifest, err := wireformat.DecodeManifest(data)
	if err != nil {
		return entities.AddonManifest{}, g.trap(exportInit, err)
	}
	return manifest, nil
}

// OnToolMenuEntryClicked forwards the menu index as a plain i32.
func (g *guest) OnToolMenuEntryClicked(ctx context.Context, menuIdx uint32) error {
	_, err := g.call(ctx, exportMenuClick, api.EncodeU32(menuIdx))
	return err
}

// BeforeAddNote writes the JSON request into guest memory, calls the hook
// and decodes the optional edit.
func (g *guest) BeforeAddNote(ctx context.Context, note entities.AddonNote, deckID entities.DeckID) (*entities.AddonNote, error) {
	payload, err := wireformat.EncodeBeforeAddNote(note, deckID)
	if err != nil {
		return nil, g.trap(exportBeforeAdd, err)
	}

	var data []byte
	err = g.guard(ctx, exportBeforeAdd, func(callCtx context.Context) error {
		ptr, err := writeGuestBytes(callCtx, g.module, payload)
		if err != nil {
			return err
		}
		fn := g.module.ExportedFunction(exportBeforeAdd)
		if fn == nil {
			return fmt.Errorf("export %q not found", exportBeforeAdd)
		}
		results, err := fn.Call(callCtx, api.EncodeU32(ptr), api.EncodeU32(uint32(len(payload)))) //nolint:gosec // G115: wasm32 sizes
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		data, err = g.readPacked(callCtx, results[0])
		return err
	})
	if err != nil {
		return nil, err
	}

	edit, err := wireformat.DecodeBeforeAddNote(data)
	if err != nil {
		return nil, g.trap(exportBeforeAdd, err)
	}
	return edit, nil
}

// Stopped is true once wazero has closed the module, which happens when a
// call's context expires or the guest calls proc_exit.
func (g *guest) Stopped() bool {
	return g.module.IsClosed()
}

func (g *guest) Close(ctx context.Context) error {
	return g.module.Close(ctx)
}

// callForBytes calls a no-argument export returning a packed i64 and copies
// the addressed bytes out of guest memory. A zero result yields nil.
func (g *guest) callForBytes(ctx context.Context, name string) ([]byte, error) {
	var data []byte
	err := g.guard(ctx, name, func(callCtx context.Context) error {
		fn := g.module.ExportedFunction(name)
		if fn == nil {
			return fmt.Errorf("export %q not found", name)
		}
		results, err := fn.Call(callCtx)
		if err != nil {
			return err
		}
		if len(results) == 0 {
			return nil
		}
		data, err = g.readPacked(callCtx, results[0])
		return err
	})
	return data, err
}

// call invokes an export with raw parameters.
func (g *guest) call(ctx context.Context, name string, params ...uint64) ([]uint64, error) {
	var results []uint64
	err := g.guard(ctx, name, func(callCtx context.Context) error {
		fn := g.module.ExportedFunction(name)
		if fn == nil {
			return fmt.Errorf("export %q not found", name)
		}
		var err error
		results, err = fn.Call(callCtx, params...)
		return err
	})
	return results, err
}

// guard runs fn under the hook deadline, converting panics, timeouts and
// engine errors into *errors.GuestTrapError.
func (g *guest) guard(ctx context.Context, name string, fn func(context.Context) error) (err error) {
	callCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			g.logger.ErrorContext(ctx, "wazero: recovered panic in guest call",
				"addon", g.name, "function", name, "panic", r)
			err = g.trap(name, fmt.Errorf("panic: %v", r))
		}
	}()

	if err := fn(callCtx); err != nil {
		if callCtx.Err() == context.DeadlineExceeded && ctx.Err() == nil {
			return g.trap(name, &errors.TimeoutError{Operation: name, Duration: g.timeout})
		}
		return g.trap(name, err)
	}
	return nil
}

func (g *guest) trap(function string, err error) error {
	return &errors.GuestTrapError{Addon: g.name, Function: function, Err: err}
}

// readPacked copies the bytes addressed by a packed result and releases
// them through the guest's deallocate export when present.
func (g *guest) readPacked(ctx context.Context, packed uint64) ([]byte, error) {
	ptr, length := unpackPtrLen(packed)
	if ptr == 0 || length == 0 {
		return nil, nil
	}
	view, ok := g.module.Memory().Read(ptr, length)
	if !ok {
		return nil, fmt.Errorf("result range %d+%d outside guest memory", ptr, length)
	}
	data := make([]byte, len(view))
	copy(data, view)

	if dealloc := g.module.ExportedFunction(exportDeallocate); dealloc != nil {
		if _, err := dealloc.Call(ctx, api.EncodeU32(ptr), api.EncodeU32(length)); err != nil {
			g.logger.DebugContext(ctx, "wazero: deallocate failed", "addon", g.name, "error", err)
		}
	}
	return data, nil
}
