package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/wireformat"
)

type scripted struct {
	manifest entities.AddonManifest
	clicks   []uint32
	clickErr error
	before   func(note *entities.AddonNote, deckID entities.DeckID) (bool, error)
}

func (s *scripted) Manifest() entities.AddonManifest { return s.manifest }

func (s *scripted) OnToolMenuEntryClicked(_ context.Context, idx uint32) error {
	s.clicks = append(s.clicks, idx)
	return s.clickErr
}

func (s *scripted) BeforeAddNote(_ context.Context, note *entities.AddonNote, deckID entities.DeckID) (bool, error) {
	if s.before == nil {
		return false, nil
	}
	return s.before(note, deckID)
}

func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, nil)))
	t.Cleanup(func() {
		slog.SetDefault(prev)
		Register(nil)
	})
	return &buf
}

func request(t *testing.T, fields ...string) []byte {
	t.Helper()
	data, err := wireformat.EncodeBeforeAddNote(entities.AddonNote{GUID: "g", Fields: fields}, 4)
	require.NoError(t, err)
	return data
}

func TestHandleInit(t *testing.T) {
	capture(t)
	Register(&scripted{manifest: entities.AddonManifest{Name: "Example Addon", ToolMenuEntries: []string{"Say Hello"}}})

	assert.JSONEq(t, `{"name":"Example Addon","tool_menu_entries":["Say Hello"]}`, string(handleInit()))
}

func TestHandleInit_NotRegistered(t *testing.T) {
	logs := capture(t)

	assert.Nil(t, handleInit())
	assert.Contains(t, logs.String(), "no addon registered")
}

func TestHandleMenuClick(t *testing.T) {
	logs := capture(t)
	a := &scripted{}
	Register(a)

	handleMenuClick(1)
	assert.Equal(t, []uint32{1}, a.clicks)

	a.clickErr = errors.New("nothing to say")
	handleMenuClick(0)
	assert.Contains(t, logs.String(), "nothing to say")
}

func TestHandleBeforeAddNote_Edit(t *testing.T) {
	capture(t)
	var gotDeck entities.DeckID
	Register(&scripted{before: func(note *entities.AddonNote, deckID entities.DeckID) (bool, error) {
		gotDeck = deckID
		for i := range note.Fields {
			note.Fields[i] += "!"
		}
		return true, nil
	}})

	out := handleBeforeAddNote(request(t, "a", "b"))
	edit, err := wireformat.DecodeBeforeAddNote(out)
	require.NoError(t, err)
	require.NotNil(t, edit)
	assert.Equal(t, []string{"a!", "b!"}, edit.Fields)
	assert.Equal(t, "g", edit.GUID)
	assert.Equal(t, entities.DeckID(4), gotDeck)
}

func TestHandleBeforeAddNote_NoEdit(t *testing.T) {
	capture(t)
	Register(&scripted{})

	assert.Nil(t, handleBeforeAddNote(request(t, "a")))
}

func TestHandleBeforeAddNote_Failures(t *testing.T) {
	tests := []struct {
		name    string
		payload []byte
		before  func(*entities.AddonNote, entities.DeckID) (bool, error)
		wantLog string
	}{
		{name: "bad payload", payload: []byte("{"), wantLog: "decode before_add_note request"},
		{
			name:    "error",
			before:  func(*entities.AddonNote, entities.DeckID) (bool, error) { return true, errors.New("refused") },
			wantLog: "refused",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := capture(t)
			Register(&scripted{before: tt.before})

			payload := tt.payload
			if payload == nil {
				payload = request(t, "a")
			}
			assert.Nil(t, handleBeforeAddNote(payload))
			assert.Contains(t, logs.String(), tt.wantLog)
		})
	}
}

func TestHandleBeforeAddNote_PanicTraps(t *testing.T) {
	logs := capture(t)
	released := false
	prev := onPanic
	onPanic = func() { released = true }
	t.Cleanup(func() { onPanic = prev })

	Register(&scripted{before: func(*entities.AddonNote, entities.DeckID) (bool, error) { panic("boom") }})

	assert.PanicsWithValue(t, "before_add_note: boom", func() {
		handleBeforeAddNote(request(t, "a"))
	})
	assert.True(t, released)
	assert.Contains(t, logs.String(), "addon panic")
	assert.Contains(t, logs.String(), "export=before_add_note")
}

func TestHandleMenuClick_PanicTraps(t *testing.T) {
	capture(t)
	Register(panicky{&scripted{}})

	assert.Panics(t, func() { handleMenuClick(0) })
}

type panicky struct{ *scripted }

func (panicky) OnToolMenuEntryClicked(context.Context, uint32) error { panic("click") }

func TestLog(t *testing.T) {
	logs := capture(t)
	Log(slog.LevelWarn, "hello", "k", 1)
	assert.Contains(t, logs.String(), "level=WARN msg=hello k=1")
}

func TestResponseShape(t *testing.T) {
	capture(t)
	Register(&scripted{before: func(*entities.AddonNote, entities.DeckID) (bool, error) { return true, nil }})

	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(handleBeforeAddNote(request(t, "a")), &raw))
	assert.Contains(t, raw, "note")
}
