// Package testutil provides test doubles and fixtures shared by the addon
// host test suites.
package testutil

import (
	"context"
	stdErrors "errors"
	"fmt"
	"sync"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/errors"
	"github.com/deckforge/addonhost/domain/ports"
)

// FakeAddon scripts the behavior of one addon binary.
type FakeAddon struct {
	// BeforeAddNote handles the hook; nil means "no edit".
	BeforeAddNote func(note entities.AddonNote, deckID entities.DeckID) (*entities.AddonNote, error)
	// OnClick handles a menu click; nil accepts every index.
	OnClick func(menuIdx uint32) error

	CompileErr     error
	InstantiateErr error
	InitErr        error
	Manifest       entities.AddonManifest
}

// Call records one guest invocation.
type Call struct {
	Guest    string
	Function string
	MenuIdx  uint32
}

// FakeRuntime is an in-memory ports.AddonRuntime. Binaries are opaque
// tokens handed out by Add.
type FakeRuntime struct {
	addons   map[string]*FakeAddon
	calls    []Call
	mu       sync.Mutex
	seq      int
	tokens   int
	compiled int
	live     int
	closed   bool
}

var _ ports.AddonRuntime = (*FakeRuntime)(nil)

// NewFakeRuntime creates an empty FakeRuntime.
func NewFakeRuntime() *FakeRuntime {
	return &FakeRuntime{addons: make(map[string]*FakeAddon)}
}

// Add registers a scripted addon and returns the binary that loads it.
func (r *FakeRuntime) Add(a *FakeAddon) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	token := fmt.Sprintf("fake-addon-%d", r.tokens)
	r.tokens++
	r.addons[token] = a
	return []byte(token)
}

// Calls returns a copy of every recorded guest call, in order.
func (r *FakeRuntime) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// LiveInstances reports instances that were created and not yet closed.
func (r *FakeRuntime) LiveInstances() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.live
}

// OpenCompiled reports compiled modules that were not closed.
func (r *FakeRuntime) OpenCompiled() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.compiled
}

// Closed reports whether Close was called.
func (r *FakeRuntime) Closed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *FakeRuntime) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

type fakeCompiled struct {
	rt     *FakeRuntime
	addon  *FakeAddon
	closed bool
}

func (c *fakeCompiled) Close(context.Context) error {
	c.rt.mu.Lock()
	defer c.rt.mu.Unlock()
	if !c.closed {
		c.closed = true
		c.rt.compiled--
	}
	return nil
}

// Compile implements ports.AddonRuntime.
func (r *FakeRuntime) Compile(_ context.Context, wasm []byte) (ports.CompiledAddon, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.addons[string(wasm)]
	if !ok {
		return nil, &errors.CompileError{Err: stdErrors.New("invalid magic number")}
	}
	if a.CompileErr != nil {
		return nil, &errors.CompileError{Err: a.CompileErr}
	}
	r.compiled++
	return &fakeCompiled{rt: r, addon: a}, nil
}

// Instantiate implements ports.AddonRuntime.
func (r *FakeRuntime) Instantiate(_ context.Context, compiled ports.CompiledAddon) (ports.Guest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	name := fmt.Sprintf("addon-%d", r.seq)
	r.seq++

	c, ok := compiled.(*fakeCompiled)
	if !ok {
		return nil, &errors.InstantiateError{Addon: name, Err: fmt.Errorf("foreign compiled addon %T", compiled)}
	}
	if c.addon.InstantiateErr != nil {
		return nil, &errors.InstantiateError{Addon: name, Err: c.addon.InstantiateErr}
	}
	r.live++
	return &fakeGuest{rt: r, addon: c.addon, name: name}, nil
}

// Close implements ports.AddonRuntime.
func (r *FakeRuntime) Close(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

type fakeGuest struct {
	rt      *FakeRuntime
	addon   *FakeAddon
	name    string
	closed  bool
	stopped bool
}

func (g *fakeGuest) Name() string { return g.name }

// Stopped mirrors the wazero runtime: a timed-out call stops the instance.
func (g *fakeGuest) Stopped() bool {
	g.rt.mu.Lock()
	defer g.rt.mu.Unlock()
	return g.stopped || g.closed
}

func (g *fakeGuest) trap(function string, err error) error {
	var timeout *errors.TimeoutError
	if stdErrors.As(err, &timeout) {
		g.rt.mu.Lock()
		g.stopped = true
		g.rt.mu.Unlock()
	}
	var trap *errors.GuestTrapError
	if stdErrors.As(err, &trap) {
		return err
	}
	return &errors.GuestTrapError{Addon: g.name, Function: function, Err: err}
}

func (g *fakeGuest) Init(context.Context) (entities.AddonManifest, error) {
	g.rt.record(Call{Guest: g.name, Function: "init"})
	if g.addon.InitErr != nil {
		return entities.AddonManifest{}, g.trap("init", g.addon.InitErr)
	}
	m := g.addon.Manifest
	m.ToolMenuEntries = append([]string(nil), m.ToolMenuEntries...)
	return m, nil
}

func (g *fakeGuest) OnToolMenuEntryClicked(_ context.Context, menuIdx uint32) error {
	g.rt.record(Call{Guest: g.name, Function: "on_tool_menu_entry_clicked", MenuIdx: menuIdx})
	if g.addon.OnClick == nil {
		return nil
	}
	if err := g.addon.OnClick(menuIdx); err != nil {
		return g.trap("on_tool_menu_entry_clicked", err)
	}
	return nil
}

func (g *fakeGuest) BeforeAddNote(_ context.Context, note entities.AddonNote, deckID entities.DeckID) (*entities.AddonNote, error) {
	g.rt.record(Call{Guest: g.name, Function: "before_add_note"})
	if g.addon.BeforeAddNote == nil {
		return nil, nil
	}
	edit, err := g.addon.BeforeAddNote(note, deckID)
	if err != nil {
		return nil, g.trap("before_add_note", err)
	}
	return edit, nil
}

func (g *fakeGuest) Close(context.Context) error {
	g.rt.mu.Lock()
	defer g.rt.mu.Unlock()
	if !g.closed {
		g.closed = true
		g.rt.live--
	}
	return nil
}
