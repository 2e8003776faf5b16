package wireformat

import (
	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/errors"
)

// ToAddonNote copies a host note into an independent boundary snapshot.
// Host values are assumed valid; nothing is checked.
func ToAddonNote(note *entities.Note) entities.AddonNote {
	return entities.AddonNote{
		ID:         note.ID,
		GUID:       note.GUID,
		NotetypeID: note.NotetypeID,
		Mtime:      note.Mtime,
		Usn:        note.Usn,
		Tags:       cloneStrings(note.Tags),
		Fields:     cloneStrings(note.Fields),
		SortField:  note.SortField,
		Checksum:   note.Checksum,
	}
}

// ApplyAddonNote writes an addon-returned edit back into the host note.
//
// Scalars and tags are overwritten. Fields are applied positionally: index i
// of the edit overwrites host field i, trailing host fields beyond the edit's
// length are left untouched. An edit with more fields than the host note is
// rejected with *errors.FieldCountError before anything is written.
func ApplyAddonNote(note *entities.Note, edit entities.AddonNote) error {
	if len(edit.Fields) > len(note.Fields) {
		return &errors.FieldCountError{Returned: len(edit.Fields), Existing: len(note.Fields)}
	}

	note.ID = edit.ID
	note.GUID = edit.GUID
	note.NotetypeID = edit.NotetypeID
	note.Mtime = edit.Mtime
	note.Usn = edit.Usn
	note.Tags = cloneStrings(edit.Tags)

	for i, value := range edit.Fields {
		if err := note.SetField(i, value); err != nil {
			return err
		}
	}

	note.SortField = edit.SortField
	note.Checksum = edit.Checksum
	return nil
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
