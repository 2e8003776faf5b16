// Package collection ties the addon host to the lifetime of an open note
// collection: the host is created when a collection opens, dispatches
// before-add events when notes are inserted, and is torn down on close.
package collection

import (
	"context"
	stdErrors "errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/errors"
	"github.com/deckforge/addonhost/domain/ports"
	"github.com/deckforge/addonhost/host"
	"github.com/deckforge/addonhost/infrastructure/sqlite"
)

// RuntimeFactory creates the sandbox runtime for a newly opened collection.
// notes is the collection's store, for the query capabilities.
type RuntimeFactory func(ctx context.Context, notes ports.NoteReader) (ports.AddonRuntime, error)

// StoreOpener opens the note storage of the collection at path.
type StoreOpener func(path string) (ports.NoteStore, error)

type serviceConfig struct {
	logger    *slog.Logger
	validator ports.ManifestValidator
	openStore StoreOpener
}

// Option configures a Service.
type Option func(*serviceConfig)

// WithLogger sets the logger shared by the service and its addon host.
func WithLogger(logger *slog.Logger) Option {
	return func(c *serviceConfig) {
		c.logger = logger
	}
}

// WithValidator sets the manifest validator handed to the addon host.
func WithValidator(v ports.ManifestValidator) Option {
	return func(c *serviceConfig) {
		c.validator = v
	}
}

// WithStoreOpener replaces the SQLite note store.
func WithStoreOpener(open StoreOpener) Option {
	return func(c *serviceConfig) {
		c.openStore = open
	}
}

func defaultServiceConfig() serviceConfig {
	return serviceConfig{
		logger: slog.Default(),
		openStore: func(path string) (ports.NoteStore, error) {
			return sqlite.Open(path)
		},
	}
}

// Service exposes collection operations. At most one collection is open at
// a time; every operation except OpenCollection requires one.
type Service struct {
	cfg        serviceConfig
	newRuntime RuntimeFactory

	mu        sync.Mutex
	path      string
	addonsDir string
	store     ports.NoteStore
	addons    *host.AddonHost
}

// NewService creates a service with no open collection.
func NewService(newRuntime RuntimeFactory, opts ...Option) *Service {
	cfg := defaultServiceConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = slog.Default()
	}
	return &Service{cfg: cfg, newRuntime: newRuntime}
}

// OpenCollection opens the collection at path and creates its empty addon
// host.
func (s *Service) OpenCollection(ctx context.Context, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store != nil {
		return errors.ErrCollectionAlreadyOpen
	}

	store, err := s.cfg.openStore(path)
	if err != nil {
		return fmt.Errorf("open collection %s: %w", path, err)
	}
	runtime, err := s.newRuntime(ctx, store)
	if err != nil {
		_ = store.Close()
		return fmt.Errorf("create addon runtime: %w", err)
	}

	opts := []host.Option{host.WithLogger(s.cfg.logger)}
	if s.cfg.validator != nil {
		opts = append(opts, host.WithValidator(s.cfg.validator))
	}

	s.store = store
	s.addons = host.New(runtime, opts...)
	s.path = path
	s.cfg.logger.InfoContext(ctx, "collection opened", "path", path)
	return nil
}

// CloseCollection unloads every addon, closes the runtime and the storage.
func (s *Service) CloseCollection(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return errors.ErrCollectionNotOpen
	}

	hostErr := s.addons.Close(ctx)
	storeErr := s.store.Close()
	s.cfg.logger.InfoContext(ctx, "collection closed", "path", s.path)

	s.store, s.addons = nil, nil
	s.path, s.addonsDir = "", ""
	return stdErrors.Join(hostErr, storeErr)
}

// IsOpen reports whether a collection is open.
func (s *Service) IsOpen() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.store != nil
}

// InitAddons replaces the loaded addons with the .wasm files found in dir,
// loaded in file name order. Individual addon failures are in the report;
// only an unreadable directory fails the call, leaving the current addons
// loaded.
func (s *Service) InitAddons(ctx context.Context, dir string) (*entities.LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil, errors.ErrCollectionNotOpen
	}
	return s.initAddons(ctx, dir)
}

// ReloadAddons repeats the last InitAddons pass.
func (s *Service) ReloadAddons(ctx context.Context) (*entities.LoadReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil, errors.ErrCollectionNotOpen
	}
	if s.addonsDir == "" {
		return nil, fmt.Errorf("no addons directory initialized")
	}
	return s.initAddons(ctx, s.addonsDir)
}

func (s *Service) initAddons(ctx context.Context, dir string) (*entities.LoadReport, error) {
	paths, err := host.ScanDir(dir)
	if err != nil {
		return nil, err
	}
	s.addonsDir = dir
	report := s.addons.LoadBatch(ctx, paths)
	s.cfg.logger.InfoContext(ctx, "addons initialized",
		"dir", dir, "loaded", len(report.Loaded), "failed", len(report.Failed))
	return report, nil
}

// Addons describes the loaded addons.
func (s *Service) Addons() ([]entities.LoadedAddon, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil, errors.ErrCollectionNotOpen
	}
	return s.addons.Addons(), nil
}

// AddonToolMenuEntries returns the flattened Tools-menu entries of every
// loaded addon.
func (s *Service) AddonToolMenuEntries() ([]entities.AddonMenuEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil, errors.ErrCollectionNotOpen
	}
	return s.addons.ToolMenuEntries(), nil
}

// OnClickAddonMenu routes a Tools-menu click to its addon.
func (s *Service) OnClickAddonMenu(ctx context.Context, id entities.AddonMenuID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return errors.ErrCollectionNotOpen
	}
	return s.addons.OnToolMenuEntryClicked(ctx, id.AddonID, id.MenuIdx)
}

// AddNote lets every addon edit note, then persists it in deckID. Addon
// failures never block the insertion.
func (s *Service) AddNote(ctx context.Context, note *entities.Note, deckID entities.DeckID) (entities.DispatchReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return entities.DispatchReport{}, errors.ErrCollectionNotOpen
	}
	if note == nil {
		return entities.DispatchReport{}, fmt.Errorf("note is required")
	}

	report := s.addons.BeforeAddNote(ctx, note, deckID)
	if err := s.store.AddNote(ctx, note, deckID); err != nil {
		return report, fmt.Errorf("add note: %w", err)
	}
	return report, nil
}

// GetNote loads a stored note.
func (s *Service) GetNote(ctx context.Context, id entities.NoteID) (*entities.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.store == nil {
		return nil, errors.ErrCollectionNotOpen
	}
	return s.store.GetNote(ctx, id)
}
