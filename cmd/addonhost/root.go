package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deckforge/addonhost/application/validation"
	"github.com/deckforge/addonhost/collection"
	"github.com/deckforge/addonhost/config"
	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/ports"
	wasmrt "github.com/deckforge/addonhost/infrastructure/wazero"
	addonlog "github.com/deckforge/addonhost/log"
)

// flagKeys maps persistent flags to configuration keys.
var flagKeys = map[string]string{
	"addons-dir":         config.KeyAddonsDir,
	"collection":         config.KeyCollection,
	"hook-timeout":       config.KeyHookTimeout,
	"memory-limit-pages": config.KeyMemoryLimitPages,
	"log-level":          config.KeyLogLevel,
	"log-format":         config.KeyLogFormat,
	"output":             config.KeyOutput,
}

// app carries what every subcommand needs once flags are parsed.
type app struct {
	cfg        *config.Config
	logger     *slog.Logger
	configFile string
	newRuntime collection.RuntimeFactory
}

func newRootCmd() *cobra.Command {
	return newRootCmdFor(&app{})
}

func newRootCmdFor(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "addonhost",
		Short:         "Run WebAssembly addons against a note collection",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&a.configFile, "config", "", "config file (default: ./addonhost.yaml or ~/.config/addonhost/addonhost.yaml)")
	flags.String("addons-dir", "", "directory scanned for .wasm addons")
	flags.String("collection", "", "collection database path")
	flags.Duration("hook-timeout", 0, "deadline for every addon call")
	flags.Uint32("memory-limit-pages", 0, "per-addon memory cap in 64KiB pages")
	flags.String("log-level", "", "debug, info, warn or error")
	flags.String("log-format", "", "text or json")
	flags.StringP("output", "o", "", "json, yaml or text")

	root.AddCommand(
		newAddonsCmd(a),
		newMenuCmd(a),
		newClickCmd(a),
		newAddNoteCmd(a),
		newGetNoteCmd(a),
		newSchemaCmd(a),
		newWatchCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(a.configFile, func(v *viper.Viper) error {
		for name, key := range flagKeys {
			if err := v.BindPFlag(key, cmd.Flags().Lookup(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	logger, err := addonlog.NewLogger(addonlog.Config{
		Output: cmd.ErrOrStderr(),
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.logger = logger
	if a.newRuntime == nil {
		a.newRuntime = a.wazeroRuntime
	}
	return nil
}

func (a *app) wazeroRuntime(ctx context.Context, notes ports.NoteReader) (ports.AddonRuntime, error) {
	return wasmrt.NewRuntime(ctx,
		wasmrt.WithHookTimeout(a.cfg.HookTimeout),
		wasmrt.WithMemoryLimitPages(a.cfg.MemoryLimitPages),
		wasmrt.WithLogger(a.logger),
		wasmrt.WithNoteReader(notes),
	)
}

// withCollection opens the configured collection, loads its addons, runs fn
// and closes everything again.
func (a *app) withCollection(ctx context.Context, fn func(*collection.Service, *entities.LoadReport) error) (err error) {
	svc := collection.NewService(a.newRuntime,
		collection.WithLogger(a.logger),
		collection.WithValidator(validation.NewManifestValidator()),
	)
	if err := svc.OpenCollection(ctx, a.cfg.Collection); err != nil {
		return err
	}
	defer func() {
		if cerr := svc.CloseCollection(ctx); cerr != nil && err == nil {
			err = fmt.Errorf("close collection: %w", cerr)
		}
	}()

	report, err := svc.InitAddons(ctx, a.cfg.AddonsDir)
	if err != nil {
		return err
	}
	return fn(svc, report)
}
