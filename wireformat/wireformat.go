// Package wireformat defines the JSON wire format structures exchanged
// between the addon host and addon guests, and the conversions between
// host-native notes and their boundary snapshots. These types define the
// addon ABI contract and must remain backward compatible.
package wireformat

import (
	"encoding/json"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/errors"
)

// NoteWire is the JSON wire format of a note snapshot.
type NoteWire = entities.AddonNote

// ManifestWire is the JSON wire format of the init export's result.
type ManifestWire struct {
	Name            string   `json:"name"`
	ToolMenuEntries []string `json:"tool_menu_entries"`
}

// BeforeAddNoteRequestWire is the payload passed to the before_add_note export.
type BeforeAddNoteRequestWire struct {
	Note   NoteWire `json:"note"`
	DeckID int64    `json:"deck_id"`
}

// BeforeAddNoteResponseWire is the payload returned by before_add_note.
// A nil Note (or a null packed result) means "no edit".
type BeforeAddNoteResponseWire struct {
	Note *NoteWire `json:"note,omitempty"`
}

// MenuClickRequestWire documents the on_tool_menu_entry_clicked argument.
// The index is passed as a plain i32; this type exists for schema output.
type MenuClickRequestWire struct {
	MenuIdx uint32 `json:"menu_idx"`
}

// EncodeBeforeAddNote serializes a before_add_note request.
func EncodeBeforeAddNote(note entities.AddonNote, deckID entities.DeckID) ([]byte, error) {
	data, err := json.Marshal(BeforeAddNoteRequestWire{Note: note, DeckID: int64(deckID)})
	if err != nil {
		return nil, &errors.WireFormatError{Operation: "encode", Type: "before_add_note_request", Err: err}
	}
	return data, nil
}

// DecodeBeforeAddNote parses a before_add_note response.
// Empty input decodes to "no edit".
func DecodeBeforeAddNote(data []byte) (*entities.AddonNote, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var resp BeforeAddNoteResponseWire
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &errors.WireFormatError{Operation: "decode", Type: "before_add_note_response", Err: err}
	}
	return resp.Note, nil
}

// DecodeManifest parses the init export's result.
func DecodeManifest(data []byte) (entities.AddonManifest, error) {
	var wire ManifestWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return entities.AddonManifest{}, &errors.WireFormatError{Operation: "decode", Type: "manifest", Err: err}
	}
	return entities.AddonManifest{
		Name:            wire.Name,
		ToolMenuEntries: wire.ToolMenuEntries,
	}, nil
}

// EncodeManifest serializes a manifest as the init export returns it.
func EncodeManifest(m entities.AddonManifest) ([]byte, error) {
	data, err := json.Marshal(ManifestWire{Name: m.Name, ToolMenuEntries: m.ToolMenuEntries})
	if err != nil {
		return nil, &errors.WireFormatError{Operation: "encode", Type: "manifest", Err: err}
	}
	return data, nil
}
