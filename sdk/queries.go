package sdk

import (
	"encoding/json"
	"fmt"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/hostfuncs"
)

// QueryError is the host refusing a query, for example because the note
// does not exist or the host has no collection behind the capability.
type QueryError struct {
	Function string
	Response hostfuncs.ErrorResponse
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Function, e.Response.Error, e.Response.Message)
}

// NotFound reports whether the queried note or deck does not exist.
func (e *QueryError) NotFound() bool {
	return e.Response.Error == hostfuncs.KindNotFound
}

// callHost sends request to a query capability and returns its answer.
// Outside the addon runtime there is no host to ask.
var callHost = func(function string, _ []byte) ([]byte, error) {
	return nil, fmt.Errorf("%s: no host outside the addon runtime", function)
}

func query[Resp any](function string, req any) (Resp, error) {
	var resp Resp

	payload, err := json.Marshal(req)
	if err != nil {
		return resp, fmt.Errorf("%s: encode request: %w", function, err)
	}
	answer, err := callHost(function, payload)
	if err != nil {
		return resp, err
	}
	if len(answer) == 0 {
		return resp, fmt.Errorf("%s: host returned nothing", function)
	}

	var refusal hostfuncs.ErrorResponse
	if json.Unmarshal(answer, &refusal) == nil && refusal.Error != "" {
		return resp, &QueryError{Function: function, Response: refusal}
	}
	if err := json.Unmarshal(answer, &resp); err != nil {
		return resp, fmt.Errorf("%s: decode response: %w", function, err)
	}
	return resp, nil
}

// GetNote loads a stored note and the deck it was added to.
func GetNote(id entities.NoteID) (entities.AddonNote, entities.DeckID, error) {
	resp, err := query[hostfuncs.NoteGetResponse](hostfuncs.FuncNoteGet, hostfuncs.NoteGetRequest{ID: id})
	return resp.Note, resp.DeckID, err
}

// FindNotes returns the ids of stored notes whose first field is exactly
// firstField.
func FindNotes(firstField string) ([]entities.NoteID, error) {
	resp, err := query[hostfuncs.NoteFindResponse](hostfuncs.FuncNoteFind, hostfuncs.NoteFindRequest{FirstField: firstField})
	return resp.IDs, err
}

// GetDeck summarizes one deck.
func GetDeck(id entities.DeckID) (entities.DeckSummary, error) {
	return query[entities.DeckSummary](hostfuncs.FuncDeckGet, hostfuncs.DeckGetRequest{ID: id})
}

// ListDecks summarizes every deck holding notes.
func ListDecks() ([]entities.DeckSummary, error) {
	resp, err := query[hostfuncs.DeckListResponse](hostfuncs.FuncDeckList, struct{}{})
	return resp.Decks, err
}
