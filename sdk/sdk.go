// Package sdk is the guest side of the addon contract. An addon implements
// Addon and calls Register from an init function; building the package for
// wasip1 as a reactor exports init, on_tool_menu_entry_clicked,
// before_add_note, allocate and deallocate.
//
//	GOOS=wasip1 GOARCH=wasm go build -buildmode=c-shared -o hello.wasm ./examples/hello-addon
package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/wireformat"
)

// Addon is implemented by every addon.
type Addon interface {
	// Manifest names the addon and declares its Tools-menu entries.
	Manifest() entities.AddonManifest

	// OnToolMenuEntryClicked handles a click on entry menuIdx.
	OnToolMenuEntryClicked(ctx context.Context, menuIdx uint32) error

	// BeforeAddNote may edit note in place. Returning false leaves the
	// note as it was.
	BeforeAddNote(ctx context.Context, note *entities.AddonNote, deckID entities.DeckID) (bool, error)
}

var (
	registered Addon
	mu         sync.Mutex
)

// Register installs the addon. Call it from an init function: reactor
// modules never run main.
func Register(a Addon) {
	mu.Lock()
	defer mu.Unlock()
	registered = a
}

func current() (Addon, error) {
	mu.Lock()
	defer mu.Unlock()
	if registered == nil {
		return nil, fmt.Errorf("no addon registered")
	}
	return registered, nil
}

// Log sends a record to the host's log capability.
func Log(level slog.Level, msg string, args ...any) {
	slog.Log(context.Background(), level, msg, args...)
}

// guard runs an export body. An error is logged to the host and turns into
// an empty result. A panic is logged with its stack and then raised again,
// so the call traps and the host counts it as a failure.
func guard(export string, fn func() ([]byte, error)) (out []byte) {
	defer func() {
		if r := recover(); r != nil {
			onPanic()
			slog.Error("addon panic", "export", export, "panic", fmt.Sprint(r), "stack", string(debug.Stack()))
			panic(fmt.Sprintf("%s: %v", export, r))
		}
	}()

	out, err := fn()
	if err != nil {
		slog.Error("addon export failed", "export", export, "error", err)
		return nil
	}
	return out
}

// onPanic is replaced on wasip1 to release pinned buffers.
var onPanic = func() {}

func handleInit() []byte {
	return guard("init", func() ([]byte, error) {
		a, err := current()
		if err != nil {
			return nil, err
		}
		return wireformat.EncodeManifest(a.Manifest())
	})
}

func handleMenuClick(menuIdx uint32) {
	guard("on_tool_menu_entry_clicked", func() ([]byte, error) {
		a, err := current()
		if err != nil {
			return nil, err
		}
		return nil, a.OnToolMenuEntryClicked(context.Background(), menuIdx)
	})
}

func handleBeforeAddNote(payload []byte) []byte {
	return guard("before_add_note", func() ([]byte, error) {
		a, err := current()
		if err != nil {
			return nil, err
		}
		var req wireformat.BeforeAddNoteRequestWire
		if err := json.Unmarshal(payload, &req); err != nil {
			return nil, fmt.Errorf("decode before_add_note request: %w", err)
		}

		note := req.Note
		edited, err := a.BeforeAddNote(context.Background(), &note, entities.DeckID(req.DeckID))
		if err != nil || !edited {
			return nil, err
		}
		return json.Marshal(wireformat.BeforeAddNoteResponseWire{Note: &note})
	})
}
