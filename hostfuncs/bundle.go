package hostfuncs

import (
	"context"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/ports"
	"github.com/deckforge/addonhost/wireformat"
)

// Host module and function names addons import.
const (
	ModuleName = "addon_host"

	FuncLog      = "log"
	FuncDeckGet  = "deck_get"
	FuncDeckList = "deck_list"
	FuncNoteGet  = "note_get"
	FuncNoteFind = "note_find"
)

// NoteGetRequest asks for one stored note.
type NoteGetRequest struct {
	ID entities.NoteID `json:"id"`
}

// NoteGetResponse carries a stored note and the deck it was added to.
type NoteGetResponse struct {
	Note   entities.AddonNote `json:"note"`
	DeckID entities.DeckID    `json:"deck_id"`
}

// NoteFindRequest looks notes up by the exact text of their first field.
type NoteFindRequest struct {
	FirstField string `json:"first_field"`
}

// NoteFindResponse lists matching note ids, oldest first.
type NoteFindResponse struct {
	IDs []entities.NoteID `json:"ids"`
}

// DeckGetRequest asks for one deck.
type DeckGetRequest struct {
	ID entities.DeckID `json:"id"`
}

// DeckListResponse lists every deck holding notes.
type DeckListResponse struct {
	Decks []entities.DeckSummary `json:"decks"`
}

// HostFuncBundle groups related capabilities.
type HostFuncBundle interface {
	Handlers() map[string]ByteHandler
}

type bundle map[string]ByteHandler

func (b bundle) Handlers() map[string]ByteHandler { return b }

// NoteBundle serves note_get and note_find from notes. With a nil reader
// both are declared but answer NOT_IMPLEMENTED.
func NoteBundle(notes ports.NoteReader) HostFuncBundle {
	if notes == nil {
		return bundle{
			FuncNoteGet:  NotImplemented(FuncNoteGet),
			FuncNoteFind: NotImplemented(FuncNoteFind),
		}
	}
	return bundle{
		FuncNoteGet: NewJSONHandler(func(ctx context.Context, req NoteGetRequest) (NoteGetResponse, error) {
			note, err := notes.GetNote(ctx, req.ID)
			if err != nil {
				return NoteGetResponse{}, err
			}
			deckID, err := notes.DeckOf(ctx, req.ID)
			if err != nil {
				return NoteGetResponse{}, err
			}
			return NoteGetResponse{Note: wireformat.ToAddonNote(note), DeckID: deckID}, nil
		}),
		FuncNoteFind: NewJSONHandler(func(ctx context.Context, req NoteFindRequest) (NoteFindResponse, error) {
			ids, err := notes.FindNotes(ctx, req.FirstField)
			return NoteFindResponse{IDs: ids}, err
		}),
	}
}

// DeckBundle serves deck_get and deck_list from notes, or NOT_IMPLEMENTED
// stubs when notes is nil.
func DeckBundle(notes ports.NoteReader) HostFuncBundle {
	if notes == nil {
		return bundle{
			FuncDeckGet:  NotImplemented(FuncDeckGet),
			FuncDeckList: NotImplemented(FuncDeckList),
		}
	}
	return bundle{
		FuncDeckGet: NewJSONHandler(func(ctx context.Context, req DeckGetRequest) (entities.DeckSummary, error) {
			return notes.Deck(ctx, req.ID)
		}),
		FuncDeckList: NewJSONHandler(func(ctx context.Context, _ struct{}) (DeckListResponse, error) {
			decks, err := notes.Decks(ctx)
			return DeckListResponse{Decks: decks}, err
		}),
	}
}

// QueryBundle is every query capability: deck_get, deck_list, note_get and
// note_find.
func QueryBundle(notes ports.NoteReader) HostFuncBundle {
	all := bundle{}
	for _, b := range []HostFuncBundle{DeckBundle(notes), NoteBundle(notes)} {
		for name, h := range b.Handlers() {
			all[name] = h
		}
	}
	return all
}

// DefaultRegistry is the registry a runtime exposes: the query bundle over
// notes behind panic recovery and then mw.
func DefaultRegistry(notes ports.NoteReader, mw ...Middleware) (*HandlerRegistry, error) {
	return NewRegistry(
		WithMiddleware(PanicRecoveryMiddleware()),
		WithMiddleware(mw...),
		WithBundle(QueryBundle(notes)),
	)
}
