package sdk

import (
	"context"
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/errors"
	"github.com/deckforge/addonhost/domain/ports"
	"github.com/deckforge/addonhost/hostfuncs"
)

// oneNote is a collection holding a single note in deck 2.
type oneNote struct{}

func (oneNote) GetNote(_ context.Context, id entities.NoteID) (*entities.Note, error) {
	if id != 9 {
		return nil, errors.ErrNoteNotFound
	}
	return &entities.Note{ID: 9, GUID: "g9", Fields: []string{"bonjour", "hello"}}, nil
}

func (oneNote) FindNotes(_ context.Context, first string) ([]entities.NoteID, error) {
	if first == "bonjour" {
		return []entities.NoteID{9}, nil
	}
	return []entities.NoteID{}, nil
}

func (oneNote) DeckOf(context.Context, entities.NoteID) (entities.DeckID, error) { return 2, nil }

func (oneNote) Deck(_ context.Context, id entities.DeckID) (entities.DeckSummary, error) {
	if id != 2 {
		return entities.DeckSummary{}, errors.ErrDeckNotFound
	}
	return entities.DeckSummary{ID: 2, NoteCount: 1}, nil
}

func (oneNote) Decks(context.Context) ([]entities.DeckSummary, error) {
	return []entities.DeckSummary{{ID: 2, NoteCount: 1}}, nil
}

// hostWith routes queries through a real registry over notes.
func hostWith(t *testing.T, notes ports.NoteReader) {
	t.Helper()
	reg, err := hostfuncs.DefaultRegistry(notes)
	require.NoError(t, err)

	prev := callHost
	callHost = func(function string, request []byte) ([]byte, error) {
		return reg.Invoke(context.Background(), function, request)
	}
	t.Cleanup(func() { callHost = prev })
}

func TestQueries(t *testing.T) {
	hostWith(t, oneNote{})

	note, deckID, err := GetNote(9)
	require.NoError(t, err)
	assert.Equal(t, "g9", note.GUID)
	assert.Equal(t, []string{"bonjour", "hello"}, note.Fields)
	assert.Equal(t, entities.DeckID(2), deckID)

	ids, err := FindNotes("bonjour")
	require.NoError(t, err)
	assert.Equal(t, []entities.NoteID{9}, ids)

	deck, err := GetDeck(2)
	require.NoError(t, err)
	assert.Equal(t, 1, deck.NoteCount)

	decks, err := ListDecks()
	require.NoError(t, err)
	assert.Equal(t, []entities.DeckSummary{{ID: 2, NoteCount: 1}}, decks)
}

func TestQueries_NotFound(t *testing.T) {
	hostWith(t, oneNote{})

	_, _, err := GetNote(10)
	var qErr *QueryError
	require.True(t, stdErrors.As(err, &qErr))
	assert.True(t, qErr.NotFound())
	assert.Equal(t, hostfuncs.FuncNoteGet, qErr.Function)

	_, err = GetDeck(3)
	require.True(t, stdErrors.As(err, &qErr))
	assert.True(t, qErr.NotFound())
}

func TestQueries_WithoutCollection(t *testing.T) {
	hostWith(t, nil)

	_, err := ListDecks()
	var qErr *QueryError
	require.True(t, stdErrors.As(err, &qErr))
	assert.False(t, qErr.NotFound())
	assert.Equal(t, hostfuncs.KindNotImplemented, qErr.Response.Error)
	assert.Contains(t, qErr.Error(), "deck_list")
}

func TestQueries_NoHost(t *testing.T) {
	_, err := FindNotes("x")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no host")
}

func TestQueries_EmptyAnswer(t *testing.T) {
	prev := callHost
	callHost = func(string, []byte) ([]byte, error) { return nil, nil }
	t.Cleanup(func() { callHost = prev })

	_, err := GetDeck(1)
	assert.ErrorContains(t, err, "host returned nothing")
}
