package ports

import (
	"context"

	"github.com/deckforge/addonhost/domain/entities"
)

// AddonRuntime wraps a sandboxed execution engine.
// Implementations must convert every engine fault into a typed error from
// domain/errors; they must never panic into the caller.
type AddonRuntime interface {
	// Compile validates an addon binary and its interface shape.
	// Fails with *errors.CompileError.
	Compile(ctx context.Context, wasm []byte) (CompiledAddon, error)

	// Instantiate links the capability surface and creates a running instance.
	// Fails with *errors.InstantiateError.
	Instantiate(ctx context.Context, compiled CompiledAddon) (Guest, error)

	// Close releases the engine and every instance it created.
	Close(ctx context.Context) error
}

// CompiledAddon is an opaque compiled module.
type CompiledAddon interface {
	// Close releases the compiled code.
	Close(ctx context.Context) error
}

// Guest is the callable handle of one instantiated addon.
// Each method fails with *errors.GuestTrapError when the addon faults.
type Guest interface {
	// Name identifies the instance in diagnostics.
	Name() string

	// Init calls the addon's init export and returns its manifest.
	Init(ctx context.Context) (entities.AddonManifest, error)

	// OnToolMenuEntryClicked forwards a Tools-menu click.
	OnToolMenuEntryClicked(ctx context.Context, menuIdx uint32) error

	// BeforeAddNote offers a note snapshot to the addon. A nil result
	// means the addon made no edit.
	BeforeAddNote(ctx context.Context, note entities.AddonNote, deckID entities.DeckID) (*entities.AddonNote, error)

	// Stopped reports whether the instance can no longer run. An instance
	// stops when a call outlives its deadline or the addon exits.
	Stopped() bool

	// Close releases the instance's execution state.
	Close(ctx context.Context) error
}
