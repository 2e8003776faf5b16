package wireformat

import (
	stdErrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/errors"
)

func sampleNote() *entities.Note {
	return &entities.Note{
		ID:         1700000000000,
		GUID:       "f3Xq(9a!kP",
		NotetypeID: 1600000000000,
		Mtime:      1700000001,
		Usn:        -1,
		Tags:       []string{"vocab", "leech"},
		Fields:     []string{"front", "back", "extra"},
		SortField:  "front",
		Checksum:   0xdeadbeef,
	}
}

func TestToAddonNote_CopiesEverything(t *testing.T) {
	note := sampleNote()
	snap := ToAddonNote(note)

	assert.Equal(t, note.ID, snap.ID)
	assert.Equal(t, note.GUID, snap.GUID)
	assert.Equal(t, note.NotetypeID, snap.NotetypeID)
	assert.Equal(t, note.Mtime, snap.Mtime)
	assert.Equal(t, note.Usn, snap.Usn)
	assert.Equal(t, note.Tags, snap.Tags)
	assert.Equal(t, note.Fields, snap.Fields)
	assert.Equal(t, note.SortField, snap.SortField)
	assert.Equal(t, note.Checksum, snap.Checksum)
}

func TestToAddonNote_DoesNotAlias(t *testing.T) {
	note := sampleNote()
	snap := ToAddonNote(note)

	snap.Fields[0] = "mutated"
	snap.Tags[0] = "mutated"

	assert.Equal(t, "front", note.Fields[0])
	assert.Equal(t, "vocab", note.Tags[0])
}

func TestApplyAddonNote_FullEdit(t *testing.T) {
	note := sampleNote()
	edit := ToAddonNote(note)
	edit.GUID = "newguid"
	edit.Tags = []string{"edited"}
	edit.Fields = []string{"a", "b", "c"}
	edit.SortField = "a"
	edit.Checksum = 42
	edit.Usn = 7

	require.NoError(t, ApplyAddonNote(note, edit))

	assert.Equal(t, "newguid", note.GUID)
	assert.Equal(t, []string{"edited"}, note.Tags)
	assert.Equal(t, []string{"a", "b", "c"}, note.Fields)
	assert.Equal(t, "a", note.SortField)
	assert.Equal(t, uint32(42), note.Checksum)
	assert.Equal(t, entities.Usn(7), note.Usn)

	edit.Tags[0] = "later"
	assert.Equal(t, "edited", note.Tags[0], "tags must be copied, not aliased")
}

func TestApplyAddonNote_FewerFieldsKeepsTrailing(t *testing.T) {
	note := sampleNote()
	edit := ToAddonNote(note)
	edit.Fields = []string{"only first"}

	require.NoError(t, ApplyAddonNote(note, edit))

	assert.Equal(t, []string{"only first", "back", "extra"}, note.Fields)
}

func TestApplyAddonNote_EmptyFieldsTouchesNothing(t *testing.T) {
	note := sampleNote()
	edit := ToAddonNote(note)
	edit.Fields = nil

	require.NoError(t, ApplyAddonNote(note, edit))
	assert.Equal(t, []string{"front", "back", "extra"}, note.Fields)
}

func TestApplyAddonNote_MoreFieldsRejected(t *testing.T) {
	note := sampleNote()
	before := ToAddonNote(note)

	edit := ToAddonNote(note)
	edit.GUID = "should-not-apply"
	edit.Fields = []string{"1", "2", "3", "4"}

	err := ApplyAddonNote(note, edit)
	require.Error(t, err)

	var fcErr *errors.FieldCountError
	require.True(t, stdErrors.As(err, &fcErr))
	assert.Equal(t, 4, fcErr.Returned)
	assert.Equal(t, 3, fcErr.Existing)

	assert.Equal(t, before, ToAddonNote(note), "rejected edit must leave the note untouched")
}
