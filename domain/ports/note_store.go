package ports

import (
	"context"

	"github.com/deckforge/addonhost/domain/entities"
)

// NoteReader is the read side of a collection's note storage. The query
// capabilities addons import are served from it.
type NoteReader interface {
	// GetNote loads a note by id.
	GetNote(ctx context.Context, id entities.NoteID) (*entities.Note, error)

	// FindNotes returns the ids of notes whose first field equals
	// firstField, oldest first.
	FindNotes(ctx context.Context, firstField string) ([]entities.NoteID, error)

	// DeckOf returns the deck a note was added to.
	DeckOf(ctx context.Context, id entities.NoteID) (entities.DeckID, error)

	// Deck summarizes one deck.
	Deck(ctx context.Context, id entities.DeckID) (entities.DeckSummary, error)

	// Decks summarizes every deck holding at least one note, by id.
	Decks(ctx context.Context) ([]entities.DeckSummary, error)
}

// NoteStore persists notes for an open collection.
type NoteStore interface {
	NoteReader

	// AddNote assigns an id to the note, persists it in the given deck and
	// writes the assigned id back into note.
	AddNote(ctx context.Context, note *entities.Note, deckID entities.DeckID) error

	// Close releases the underlying storage.
	Close() error
}
