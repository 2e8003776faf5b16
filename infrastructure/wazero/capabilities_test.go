package wazero

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tetratelabs/wazero/api"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/errors"
	"github.com/deckforge/addonhost/hostfuncs"
)

// deckReader answers deck queries and records which decks were asked for.
type deckReader struct {
	asked []entities.DeckID
}

func (r *deckReader) GetNote(context.Context, entities.NoteID) (*entities.Note, error) {
	return nil, errors.ErrNoteNotFound
}

func (r *deckReader) FindNotes(context.Context, string) ([]entities.NoteID, error) {
	return []entities.NoteID{}, nil
}

func (r *deckReader) DeckOf(context.Context, entities.NoteID) (entities.DeckID, error) {
	return 0, errors.ErrNoteNotFound
}

func (r *deckReader) Deck(_ context.Context, id entities.DeckID) (entities.DeckSummary, error) {
	r.asked = append(r.asked, id)
	return entities.DeckSummary{ID: id, NoteCount: 1}, nil
}

func (r *deckReader) Decks(context.Context) ([]entities.DeckSummary, error) {
	return []entities.DeckSummary{}, nil
}

func TestPackUnpackPtrLen(t *testing.T) {
	tests := []struct {
		ptr    uint32
		length uint32
	}{
		{0, 0},
		{1, 1},
		{0xFFFFFFFF, 0xFFFFFFFF},
		{0x12345678, 0x9ABCDEF0},
		{scratchOffset, 512},
	}

	for _, tt := range tests {
		gotPtr, gotLen := unpackPtrLen(packPtrLen(tt.ptr, tt.length))
		assert.Equal(t, tt.ptr, gotPtr)
		assert.Equal(t, tt.length, gotLen)
	}
	assert.Equal(t, uint64(packed(scratchOffset, 512)), packPtrLen(scratchOffset, 512))
}

func TestCapabilities_HostModuleSignatures(t *testing.T) {
	rt, _ := newTestRuntime(t)
	mod := rt.runtime.Module(hostfuncs.ModuleName)
	require.NotNil(t, mod)

	defs := mod.ExportedFunctionDefinitions()
	for _, name := range rt.cfg.registry.Names() {
		def, ok := defs[name]
		require.True(t, ok, name)
		assert.Equal(t, []api.ValueType{api.ValueTypeI64}, def.ParamTypes(), name)
		assert.Equal(t, []api.ValueType{api.ValueTypeI64}, def.ResultTypes(), name)
	}

	logDef, ok := defs[hostfuncs.FuncLog]
	require.True(t, ok)
	assert.Equal(t, []api.ValueType{api.ValueTypeI64}, logDef.ParamTypes())
	assert.Empty(t, logDef.ResultTypes())
}

func TestCapabilities_QueryReachesNoteReader(t *testing.T) {
	reader := &deckReader{}
	rt, logs := newTestRuntime(t, WithNoteReader(reader))
	g := loadGuest(t, rt, addonWasm(addonFixture{
		manifest: manifestJSON("querier"),
		query:    `{"id":3}`,
	}))

	_, err := g.Init(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []entities.DeckID{3}, reader.asked)
	assert.Contains(t, logs.String(), "host function completed")
	assert.Contains(t, logs.String(), "addon=addon-0")
}

func TestCapabilities_OversizedRequestRejected(t *testing.T) {
	reader := &deckReader{}
	rt, logs := newTestRuntime(t, WithNoteReader(reader), WithMaxRequestSize(4))
	g := loadGuest(t, rt, addonWasm(addonFixture{
		manifest: manifestJSON("greedy"),
		query:    `{"id":3}`,
	}))

	_, err := g.Init(context.Background())
	require.NoError(t, err, "a rejected request must not trap the guest")
	assert.Empty(t, reader.asked)
	assert.Contains(t, logs.String(), "exceeds the 4 byte limit")
}
