package wazero

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"

	"github.com/deckforge/addonhost/domain/errors"
	"github.com/deckforge/addonhost/domain/ports"
	"github.com/deckforge/addonhost/hostfuncs"
)

// Addon export names.
const (
	exportAllocate   = "allocate"
	exportDeallocate = "deallocate"
	exportInit       = "init"
	exportMenuClick  = "on_tool_menu_entry_clicked"
	exportBeforeAdd  = "before_add_note"
	exportInitialize = "_initialize"
)

const (
	// DefaultHookTimeout bounds a single call into an addon.
	DefaultHookTimeout = 5 * time.Second

	// DefaultMemoryLimitPages caps addon linear memory (64KiB pages, 16MiB).
	DefaultMemoryLimitPages = 256
)

type signature struct {
	params  []api.ValueType
	results []api.ValueType
}

var requiredExports = map[string]signature{
	exportAllocate:  {params: []api.ValueType{api.ValueTypeI32}, results: []api.ValueType{api.ValueTypeI32}},
	exportInit:      {results: []api.ValueType{api.ValueTypeI64}},
	exportMenuClick: {params: []api.ValueType{api.ValueTypeI32}},
	exportBeforeAdd: {params: []api.ValueType{api.ValueTypeI32, api.ValueTypeI32}, results: []api.ValueType{api.ValueTypeI64}},
}

// Compile-time check.
var _ ports.AddonRuntime = (*Runtime)(nil)

// Runtime is the wazero-backed ports.AddonRuntime. One Runtime hosts every
// addon of a session; the capability surface is registered once.
type Runtime struct {
	runtime wazero.Runtime
	cfg     runtimeConfig
	seq     atomic.Uint64
}

// RuntimeOption configures a Runtime.
type RuntimeOption func(*runtimeConfig)

type runtimeConfig struct {
	logger           *slog.Logger
	registry         *hostfuncs.HandlerRegistry
	notes            ports.NoteReader
	stdout           io.Writer
	stderr           io.Writer
	hookTimeout      time.Duration
	memoryLimitPages uint32
	maxRequestSize   uint32
}

func defaultRuntimeConfig() runtimeConfig {
	return runtimeConfig{
		hookTimeout:      DefaultHookTimeout,
		memoryLimitPages: DefaultMemoryLimitPages,
		maxRequestSize:   hostfuncs.DefaultMaxRequestSize,
		stdout:           io.Discard,
		stderr:           io.Discard,
	}
}

// WithHookTimeout sets the deadline applied to every guest call.
// Non-positive values keep the default.
func WithHookTimeout(d time.Duration) RuntimeOption {
	return func(c *runtimeConfig) {
		if d > 0 {
			c.hookTimeout = d
		}
	}
}

// WithMemoryLimitPages caps each addon's linear memory in 64KiB pages.
func WithMemoryLimitPages(pages uint32) RuntimeOption {
	return func(c *runtimeConfig) {
		if pages > 0 {
			c.memoryLimitPages = pages
		}
	}
}

// WithLogger sets the logger for runtime diagnostics and addon log output.
func WithLogger(logger *slog.Logger) RuntimeOption {
	return func(c *runtimeConfig) {
		c.logger = logger
	}
}

// WithNoteReader backs the note and deck query capabilities. Without one
// they answer NOT_IMPLEMENTED.
func WithNoteReader(notes ports.NoteReader) RuntimeOption {
	return func(c *runtimeConfig) {
		c.notes = notes
	}
}

// WithRegistry replaces the default query capability registry, and with it
// any note reader.
func WithRegistry(registry *hostfuncs.HandlerRegistry) RuntimeOption {
	return func(c *runtimeConfig) {
		c.registry = registry
	}
}

// WithMaxRequestSize caps query requests read from guest memory.
func WithMaxRequestSize(size uint32) RuntimeOption {
	return func(c *runtimeConfig) {
		if size > 0 {
			c.maxRequestSize = size
		}
	}
}

// WithGuestOutput routes addon stdout and stderr. Both are discarded by default.
func WithGuestOutput(stdout, stderr io.Writer) RuntimeOption {
	return func(c *runtimeConfig) {
		if stdout != nil {
			c.stdout = stdout
		}
		if stderr != nil {
			c.stderr = stderr
		}
	}
}

// NewRuntime creates a wazero runtime with WASI preview1 and the addon
// capability surface instantiated.
func NewRuntime(ctx context.Context, opts ...RuntimeOption) (*Runtime, error) {
	cfg := defaultRuntimeConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	if cfg.registry == nil {
		reg, err := hostfuncs.DefaultRegistry(cfg.notes, hostfuncs.LoggingMiddleware(cfg.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create default registry: %w", err)
		}
		cfg.registry = reg
	}

	rtConfig := wazero.NewRuntimeConfig().
		WithCloseOnContextDone(true).
		WithMemoryLimitPages(cfg.memoryLimitPages)
	rt := wazero.NewRuntimeWithConfig(ctx, rtConfig)

	if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to instantiate wasi: %w", err)
	}

	capabilities := &capabilityModule{
		registry:   cfg.registry,
		sink:       hostfuncs.NewLogSink(cfg.logger),
		logger:     cfg.logger,
		maxRequest: cfg.maxRequestSize,
	}
	if err := capabilities.instantiate(ctx, rt); err != nil {
		_ = rt.Close(ctx)
		return nil, fmt.Errorf("failed to register host functions: %w", err)
	}

	return &Runtime{runtime: rt, cfg: cfg}, nil
}

// HookTimeout returns the deadline applied to guest calls.
func (r *Runtime) HookTimeout() time.Duration {
	return r.cfg.hookTimeout
}

type compiledAddon struct {
	module wazero.CompiledModule
}

func (c *compiledAddon) Close(ctx context.Context) error {
	return c.module.Close(ctx)
}

// Compile compiles wasm and verifies the addon interface shape.
func (r *Runtime) Compile(ctx context.Context, wasm []byte) (ports.CompiledAddon, error) {
	mod, err := r.runtime.CompileModule(ctx, wasm)
	if err != nil {
		return nil, &errors.CompileError{Err: err}
	}

	if missing := checkExports(mod); len(missing) > 0 {
		_ = mod.Close(ctx)
		return nil, &errors.CompileError{
			Err:     fmt.Errorf("interface shape mismatch"),
			Missing: missing,
		}
	}

	return &compiledAddon{module: mod}, nil
}

// checkExports returns the sorted names of required exports that are
// absent or have the wrong signature. A missing memory is reported as "memory".
func checkExports(mod wazero.CompiledModule) []string {
	var missing []string
	exported := mod.ExportedFunctions()
	for name, want := range requiredExports {
		def, ok := exported[name]
		if !ok || !sameTypes(def.ParamTypes(), want.params) || !sameTypes(def.ResultTypes(), want.results) {
			missing = append(missing, name)
		}
	}
	if len(mod.ExportedMemories()) == 0 {
		missing = append(missing, "memory")
	}
	sort.Strings(missing)
	return missing
}

func sameTypes(got, want []api.ValueType) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// Instantiate creates a uniquely named instance and runs _initialize when
// the module exports it.
func (r *Runtime) Instantiate(ctx context.Context, compiled ports.CompiledAddon) (ports.Guest, error) {
	name := fmt.Sprintf("addon-%d", r.seq.Add(1)-1)

	c, ok := compiled.(*compiledAddon)
	if !ok {
		return nil, &errors.InstantiateError{Addon: name, Err: fmt.Errorf("unsupported compiled addon %T", compiled)}
	}

	modConfig := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions(exportInitialize).
		WithStdout(r.cfg.stdout).
		WithStderr(r.cfg.stderr).
		WithSysWalltime().
		WithSysNanotime()

	callCtx, cancel := context.WithTimeout(ctx, r.cfg.hookTimeout)
	defer cancel()

	mod, err := r.runtime.InstantiateModule(callCtx, c.module, modConfig)
	if err != nil {
		if callCtx.Err() == context.DeadlineExceeded {
			err = &errors.TimeoutError{Operation: exportInitialize, Duration: r.cfg.hookTimeout}
		}
		return nil, &errors.InstantiateError{Addon: name, Err: err}
	}

	return &guest{
		module:  mod,
		name:    name,
		timeout: r.cfg.hookTimeout,
		logger:  r.cfg.logger,
	}, nil
}

// Close releases the runtime and every instance it created.
func (r *Runtime) Close(ctx context.Context) error {
	return r.runtime.Close(ctx)
}
