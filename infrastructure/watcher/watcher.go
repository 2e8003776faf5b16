// Package watcher reports debounced changes to addon binaries in a
// directory so the host can reload them.
package watcher

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long the watcher waits for more changes before
// reporting a batch.
const DefaultDebounce = 250 * time.Millisecond

// Op is the kind of change seen for a path.
type Op int

const (
	OpCreate Op = iota
	OpWrite
	OpRemove
	OpRename
)

func (op Op) String() string {
	switch op {
	case OpCreate:
		return "create"
	case OpWrite:
		return "write"
	case OpRemove:
		return "remove"
	case OpRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Change is one file system change, the latest seen for its path in a batch.
type Change struct {
	Path string
	Op   Op
}

// Handler receives a debounced batch of changes, sorted by path.
type Handler func(ctx context.Context, changes []Change)

type config struct {
	logger   *slog.Logger
	ext      string
	debounce time.Duration
}

// Option configures a Watcher.
type Option func(*config)

// WithDebounce sets the debounce window. Non-positive values are ignored.
func WithDebounce(d time.Duration) Option {
	return func(c *config) {
		if d > 0 {
			c.debounce = d
		}
	}
}

// WithExtension limits reported changes to files with ext (case-insensitive).
// An empty ext reports every file.
func WithExtension(ext string) Option {
	return func(c *config) {
		c.ext = ext
	}
}

// WithLogger sets the logger used for watcher errors.
func WithLogger(logger *slog.Logger) Option {
	return func(c *config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

func defaultConfig() *config {
	return &config{
		logger:   slog.Default(),
		ext:      ".wasm",
		debounce: DefaultDebounce,
	}
}

// Watcher watches a single directory, non-recursively.
type Watcher struct {
	dir      string
	cfg      *config
	handler  Handler
	fsw      *fsnotify.Watcher
	done     chan struct{}
	stopOnce sync.Once
}

// New starts watching dir. Call Run to deliver changes and Stop to release
// the underlying watch.
func New(dir string, handler Handler, opts ...Option) (*Watcher, error) {
	if handler == nil {
		return nil, fmt.Errorf("watcher handler is required")
	}
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("watch %s: %w", dir, err)
	}

	return &Watcher{
		dir:     dir,
		cfg:     cfg,
		handler: handler,
		fsw:     fsw,
		done:    make(chan struct{}),
	}, nil
}

// Dir returns the watched directory.
func (w *Watcher) Dir() string {
	return w.dir
}

// Run delivers debounced batches to the handler until ctx is canceled or
// Stop is called. Pending changes are flushed before returning. The handler
// always runs on the Run goroutine.
func (w *Watcher) Run(ctx context.Context) error {
	pending := make(map[string]Op)
	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)

	flush := func() {
		if timer != nil {
			timer.Stop()
			timer, timerC = nil, nil
		}
		if len(pending) == 0 {
			return
		}
		batch := make([]Change, 0, len(pending))
		for path, op := range pending {
			batch = append(batch, Change{Path: path, Op: op})
		}
		clear(pending)
		sort.Slice(batch, func(i, j int) bool { return batch[i].Path < batch[j].Path })
		w.handler(ctx, batch)
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return nil
		case <-w.done:
			flush()
			return nil
		case event, ok := <-w.fsw.Events:
			if !ok {
				flush()
				return nil
			}
			op, relevant := w.classify(event)
			if !relevant {
				continue
			}
			pending[event.Name] = op
			if timer == nil {
				timer = time.NewTimer(w.cfg.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.cfg.debounce)
			}
		case <-timerC:
			flush()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				flush()
				return nil
			}
			w.cfg.logger.WarnContext(ctx, "addon directory watch error", "dir", w.dir, "error", err)
		}
	}
}

// Stop ends Run and closes the underlying watch. It is safe to call more
// than once.
func (w *Watcher) Stop() error {
	var err error
	w.stopOnce.Do(func() {
		close(w.done)
		err = w.fsw.Close()
	})
	return err
}

func (w *Watcher) classify(event fsnotify.Event) (Op, bool) {
	if w.cfg.ext != "" && !strings.EqualFold(filepath.Ext(event.Name), w.cfg.ext) {
		return 0, false
	}
	switch {
	case event.Has(fsnotify.Create):
		return OpCreate, true
	case event.Has(fsnotify.Write):
		return OpWrite, true
	case event.Has(fsnotify.Remove):
		return OpRemove, true
	case event.Has(fsnotify.Rename):
		return OpRename, true
	default:
		// chmod only
		return 0, false
	}
}
