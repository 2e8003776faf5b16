package main

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/deckforge/addonhost/application/schema"
	"github.com/deckforge/addonhost/collection"
	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/infrastructure/watcher"
	"github.com/deckforge/addonhost/wireformat"
)

func newAddonsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "addons",
		Short: "Load the addons directory and report what loaded",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCollection(cmd.Context(), func(_ *collection.Service, report *entities.LoadReport) error {
				return render(cmd.OutOrStdout(), a.cfg.Output, report, func(w io.Writer) error {
					return writeLoadReport(w, report)
				})
			})
		},
	}
}

func writeLoadReport(w io.Writer, report *entities.LoadReport) error {
	for _, l := range report.Loaded {
		if _, err := fmt.Fprintf(w, "%d\t%s\t%s\n", l.AddonID, l.Name, l.Path); err != nil {
			return err
		}
	}
	for _, f := range report.Failed {
		msg := ""
		if f.Error != nil {
			msg = f.Error.Message
		}
		if _, err := fmt.Fprintf(w, "failed\t%s\t%s\n", f.Path, msg); err != nil {
			return err
		}
	}
	return nil
}

func newMenuCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "menu",
		Short: "List the Tools-menu entries declared by addons",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCollection(cmd.Context(), func(svc *collection.Service, _ *entities.LoadReport) error {
				entries, err := svc.AddonToolMenuEntries()
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.cfg.Output, entries, func(w io.Writer) error {
					for _, e := range entries {
						if _, err := fmt.Fprintf(w, "%d %d\t%s\n", e.AddonID, e.MenuIdx, e.Label); err != nil {
							return err
						}
					}
					return nil
				})
			})
		},
	}
}

func newClickCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "click <addon-id> <menu-idx>",
		Short: "Click an addon's Tools-menu entry",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			addonID, err := parseUint32("addon-id", args[0])
			if err != nil {
				return err
			}
			menuIdx, err := parseUint32("menu-idx", args[1])
			if err != nil {
				return err
			}
			id := entities.AddonMenuID{AddonID: addonID, MenuIdx: menuIdx}
			return a.withCollection(cmd.Context(), func(svc *collection.Service, _ *entities.LoadReport) error {
				return svc.OnClickAddonMenu(cmd.Context(), id)
			})
		},
	}
}

func parseUint32(name, s string) (uint32, error) {
	n, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", name, s, err)
	}
	return uint32(n), nil
}

// addNoteResult is what add-note prints.
type addNoteResult struct {
	Note     entities.AddonNote      `json:"note"`
	Dispatch entities.DispatchReport `json:"dispatch"`
	DeckID   entities.DeckID         `json:"deck_id"`
}

func newAddNoteCmd(a *app) *cobra.Command {
	var (
		deckID     int64
		notetypeID int64
		tags       []string
	)
	cmd := &cobra.Command{
		Use:   "add-note [flags] field...",
		Short: "Add a note, letting every addon edit it first",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			note := &entities.Note{
				NotetypeID: entities.NotetypeID(notetypeID),
				Fields:     append([]string(nil), args...),
				Tags:       tags,
			}
			deck := entities.DeckID(deckID)
			return a.withCollection(cmd.Context(), func(svc *collection.Service, _ *entities.LoadReport) error {
				report, err := svc.AddNote(cmd.Context(), note, deck)
				if err != nil {
					return err
				}
				result := addNoteResult{Note: wireformat.ToAddonNote(note), Dispatch: report, DeckID: deck}
				return render(cmd.OutOrStdout(), a.cfg.Output, result, func(w io.Writer) error {
					return writeNote(w, note)
				})
			})
		},
	}
	cmd.Flags().Int64Var(&deckID, "deck", 1, "deck id")
	cmd.Flags().Int64Var(&notetypeID, "notetype", 1, "note type id")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "tag to add (repeatable)")
	return cmd
}

func newGetNoteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get-note <note-id>",
		Short: "Print a stored note",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid note-id %q: %w", args[0], err)
			}
			return a.withCollection(cmd.Context(), func(svc *collection.Service, _ *entities.LoadReport) error {
				note, err := svc.GetNote(cmd.Context(), entities.NoteID(id))
				if err != nil {
					return err
				}
				return render(cmd.OutOrStdout(), a.cfg.Output, wireformat.ToAddonNote(note), func(w io.Writer) error {
					return writeNote(w, note)
				})
			})
		},
	}
}

func writeNote(w io.Writer, note *entities.Note) error {
	if _, err := fmt.Fprintf(w, "id:     %d\nguid:   %s\ntags:   %s\n", note.ID, note.GUID, strings.Join(note.Tags, " ")); err != nil {
		return err
	}
	for i, f := range note.Fields {
		if _, err := fmt.Fprintf(w, "field %d: %s\n", i, f); err != nil {
			return err
		}
	}
	return nil
}

func newSchemaCmd(_ *app) *cobra.Command {
	return &cobra.Command{
		Use:   "schema [payload]",
		Short: "Print the JSON Schema of an addon boundary payload",
		Long: "Without arguments, lists the payload names. With a name, prints its JSON Schema.\n\n" +
			"Payloads: " + strings.Join(schema.ContractNames(), ", "),
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if len(args) == 0 {
				for _, name := range schema.ContractNames() {
					if _, err := fmt.Fprintln(out, name); err != nil {
						return err
					}
				}
				return nil
			}
			data, err := schema.ContractSchema(args[0])
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(out, string(data))
			return err
		},
	}
}

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Reload addons whenever the addons directory changes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withCollection(cmd.Context(), func(svc *collection.Service, report *entities.LoadReport) error {
				if err := writeLoadReport(cmd.OutOrStdout(), report); err != nil {
					return err
				}
				return a.watch(cmd.Context(), svc, cmd.OutOrStdout())
			})
		},
	}
}

func (a *app) watch(ctx context.Context, svc *collection.Service, out io.Writer) error {
	w, err := watcher.New(a.cfg.AddonsDir,
		func(ctx context.Context, changes []watcher.Change) {
			a.logger.InfoContext(ctx, "addons directory changed", "changes", len(changes))
			report, err := svc.ReloadAddons(ctx)
			if err != nil {
				a.logger.ErrorContext(ctx, "reload addons", "error", err)
				return
			}
			if err := writeLoadReport(out, report); err != nil {
				a.logger.ErrorContext(ctx, "write load report", "error", err)
			}
		},
		watcher.WithDebounce(a.cfg.WatchDebounce),
		watcher.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}
	defer w.Stop()

	a.logger.InfoContext(ctx, "watching addons", "dir", a.cfg.AddonsDir)
	return w.Run(ctx)
}
