// Package schema generates JSON Schemas for the addon wire contract.
package schema

import (
	"encoding/json"
	"fmt"
	"maps"
	"slices"

	"github.com/invopop/jsonschema"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/hostfuncs"
	addonlog "github.com/deckforge/addonhost/log"
	"github.com/deckforge/addonhost/wireformat"
)

// GenerateSchema creates a JSON schema (Draft 2020-12) from a Go struct,
// with the top-level struct expanded inline.
func GenerateSchema(v any) ([]byte, error) {
	reflector := jsonschema.Reflector{
		ExpandedStruct: true,
	}
	schema := reflector.Reflect(v)

	jsonBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}

	return jsonBytes, nil
}

// contract lists every payload that crosses the addon boundary, by the
// name addon authors see in documentation.
var contract = map[string]any{
	"manifest":                 wireformat.ManifestWire{},
	"before_add_note_request":  wireformat.BeforeAddNoteRequestWire{},
	"before_add_note_response": wireformat.BeforeAddNoteResponseWire{},
	"menu_click":               wireformat.MenuClickRequestWire{},
	"log_message":              addonlog.LogMessageWire{},
	"error_response":           hostfuncs.ErrorResponse{},
	"note_get_request":         hostfuncs.NoteGetRequest{},
	"note_get_response":        hostfuncs.NoteGetResponse{},
	"note_find_request":        hostfuncs.NoteFindRequest{},
	"note_find_response":       hostfuncs.NoteFindResponse{},
	"deck_get_request":         hostfuncs.DeckGetRequest{},
	"deck_get_response":        entities.DeckSummary{},
	"deck_list_response":       hostfuncs.DeckListResponse{},
}

// ContractNames returns the sorted names accepted by ContractSchema.
func ContractNames() []string {
	return slices.Sorted(maps.Keys(contract))
}

// ContractSchema returns the schema of one named contract payload.
func ContractSchema(name string) ([]byte, error) {
	v, ok := contract[name]
	if !ok {
		return nil, fmt.Errorf("unknown contract payload %q", name)
	}
	return GenerateSchema(v)
}
