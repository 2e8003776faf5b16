package host

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/errors"
	"github.com/deckforge/addonhost/domain/ports"
	"github.com/deckforge/addonhost/wireformat"
)

// HookBeforeAddNote names the before-add event in reports and logs.
const HookBeforeAddNote = "before_add_note"

// AddonHost is the set of addons loaded for one collection. All methods are
// safe for concurrent use; every operation holds the host lock from start
// to finish.
type AddonHost struct {
	runtime ports.AddonRuntime
	cfg     hostConfig
	addons  []*AddonContext
	mu      sync.Mutex
}

// New creates an empty host loading addons through runtime.
func New(runtime ports.AddonRuntime, opts ...Option) *AddonHost {
	var cfg hostConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &AddonHost{runtime: runtime, cfg: cfg}
}

// Len returns the number of loaded addons.
func (h *AddonHost) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.addons)
}

// Addons describes the loaded addons in id order.
func (h *AddonHost) Addons() []entities.LoadedAddon {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]entities.LoadedAddon, len(h.addons))
	for i, a := range h.addons {
		out[i] = entities.LoadedAddon{
			AddonID: uint32(i), //nolint:gosec // G115: addon count is small
			Name:    a.Name(),
			Path:    a.Path(),
			Stopped: a.Stopped(),
		}
	}
	return out
}

// Load compiles, instantiates and initializes one addon and appends it.
// On failure nothing is appended and every acquired resource is released.
func (h *AddonHost) Load(ctx context.Context, wasm []byte) (uint32, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx, wasm, "")
}

// LoadFile reads path and loads it like Load.
func (h *AddonHost) LoadFile(ctx context.Context, path string) (uint32, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read addon %s: %w", path, err)
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.load(ctx, wasm, path)
}

func (h *AddonHost) load(ctx context.Context, wasm []byte, path string) (uint32, error) {
	compiled, err := h.runtime.Compile(ctx, wasm)
	if err != nil {
		return 0, err
	}
	// Instances keep working after their compiled module is released.
	defer func() {
		if cerr := compiled.Close(ctx); cerr != nil {
			h.cfg.logger.DebugContext(ctx, "release compiled addon", "path", path, "error", cerr)
		}
	}()

	guest, err := h.runtime.Instantiate(ctx, compiled)
	if err != nil {
		return 0, err
	}

	manifest, err := guest.Init(ctx)
	if err == nil {
		err = h.validate(&manifest)
	}
	if err != nil {
		if cerr := guest.Close(ctx); cerr != nil {
			h.cfg.logger.DebugContext(ctx, "close rejected addon", "addon", guest.Name(), "error", cerr)
		}
		return 0, err
	}

	id := uint32(len(h.addons)) //nolint:gosec // G115: addon count is small
	h.addons = append(h.addons, newAddonContext(guest, manifest, path))
	h.cfg.logger.InfoContext(ctx, "addon loaded",
		"addon_id", id, "name", manifest.Name, "instance", guest.Name(),
		"menu_entries", len(manifest.ToolMenuEntries))
	return id, nil
}

func (h *AddonHost) validate(manifest *entities.AddonManifest) error {
	if h.cfg.validator == nil {
		return nil
	}
	res, err := h.cfg.validator.Validate(manifest)
	if err != nil {
		return fmt.Errorf("validate manifest: %w", err)
	}
	if !res.Valid {
		return &errors.ManifestError{Errors: res.Errors}
	}
	return nil
}

// LoadBatch replaces the loaded set with the addons at paths, in order.
// Each path is loaded independently: a failure is logged, recorded in the
// report and the pass continues with the next path.
func (h *AddonHost) LoadBatch(ctx context.Context, paths []string) *entities.LoadReport {
	h.mu.Lock()
	defer h.mu.Unlock()

	report := &entities.LoadReport{
		StartTime: time.Now(),
		Loaded:    []entities.LoadedAddon{},
	}
	h.unloadAll(ctx)

	for _, path := range paths {
		id, err := h.loadPath(ctx, path)
		if err != nil {
			h.cfg.logger.WarnContext(ctx, "addon failed to load", "path", path, "error", err)
			report.Failed = append(report.Failed, entities.LoadFailure{
				Path:  path,
				Error: errors.ToErrorDetail(err),
			})
			continue
		}
		report.Loaded = append(report.Loaded, entities.LoadedAddon{
			Path:    path,
			Name:    h.addons[id].Name(),
			AddonID: id,
		})
	}

	return report.Finish(time.Now())
}

func (h *AddonHost) loadPath(ctx context.Context, path string) (uint32, error) {
	wasm, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("read addon: %w", err)
	}
	return h.load(ctx, wasm, path)
}

// BeforeAddNote runs the before-add hook of every addon in load order,
// applying each edit to note before the next addon sees it. Traps,
// timeouts and rejected edits are logged and skipped; dispatch never
// stops early. Stopped addons are not called.
func (h *AddonHost) BeforeAddNote(ctx context.Context, note *entities.Note, deckID entities.DeckID) entities.DispatchReport {
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	report := entities.DispatchReport{Hook: HookBeforeAddNote}

	for id, addon := range h.addons {
		if addon.Stopped() {
			report.Stopped++
			continue
		}
		edit, err := addon.guest.BeforeAddNote(ctx, wireformat.ToAddonNote(note), deckID)
		if err != nil {
			report.Failed++
			h.cfg.logger.WarnContext(ctx, "addon hook failed",
				"hook", HookBeforeAddNote, "addon_id", id, "name", addon.Name(), "error", err)
			continue
		}
		if edit == nil {
			report.Unchanged++
			continue
		}
		if err := wireformat.ApplyAddonNote(note, *edit); err != nil {
			report.Failed++
			h.cfg.logger.WarnContext(ctx, "addon edit rejected",
				"hook", HookBeforeAddNote, "addon_id", id, "name", addon.Name(), "error", err)
			continue
		}
		report.Applied++
	}

	report.Duration = time.Since(start)
	return report
}

// ToolMenuEntries flattens every running addon's declared entries, in addon
// id order then declaration order. Stopped addons contribute nothing but
// keep their ids.
func (h *AddonHost) ToolMenuEntries() []entities.AddonMenuEntry {
	h.mu.Lock()
	defer h.mu.Unlock()

	entries := []entities.AddonMenuEntry{}
	for id, addon := range h.addons {
		if addon.Stopped() {
			continue
		}
		for idx, label := range addon.manifest.ToolMenuEntries {
			entries = append(entries, entities.AddonMenuEntry{
				AddonID: uint32(id),  //nolint:gosec // G115: addon count is small
				MenuIdx: uint32(idx), //nolint:gosec // G115: bounded by manifest validation
				Label:   label,
			})
		}
	}
	return entries
}

// OnToolMenuEntryClicked routes a click to addon addonID. An id outside the
// loaded range is an *errors.ApplicationError and calls nothing; an unknown
// menuIdx is forwarded to the addon. A trap during the click is returned,
// and the addon stays loaded. A stopped addon is an *errors.ApplicationError
// with code addon_stopped.
func (h *AddonHost) OnToolMenuEntryClicked(ctx context.Context, addonID, menuIdx uint32) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if int(addonID) >= len(h.addons) {
		return errors.NewAddonNotFoundError(addonID, len(h.addons))
	}
	addon := h.addons[addonID]
	if addon.Stopped() {
		return errors.NewAddonStoppedError(addonID, addon.Name())
	}

	if err := addon.guest.OnToolMenuEntryClicked(ctx, menuIdx); err != nil {
		h.cfg.logger.WarnContext(ctx, "addon menu click failed",
			"addon_id", addonID, "menu_idx", menuIdx, "name", addon.Name(), "error", err)
		return err
	}
	return nil
}

// UnloadAll drops every addon and releases its execution state. Calling it
// on an empty host does nothing.
func (h *AddonHost) UnloadAll(ctx context.Context) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloadAll(ctx)
}

func (h *AddonHost) unloadAll(ctx context.Context) {
	if len(h.addons) == 0 {
		return
	}
	for id, addon := range h.addons {
		if err := addon.close(ctx); err != nil {
			h.cfg.logger.DebugContext(ctx, "close addon", "addon_id", id, "error", err)
		}
	}
	h.cfg.logger.InfoContext(ctx, "addons unloaded", "count", len(h.addons))
	h.addons = nil
}

// Close unloads every addon and closes the runtime.
func (h *AddonHost) Close(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.unloadAll(ctx)
	return h.runtime.Close(ctx)
}
