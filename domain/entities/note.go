package entities

import "fmt"

// NoteID identifies a note within a collection.
type NoteID int64

// NotetypeID identifies the note type (model) a note was created from.
type NotetypeID int64

// DeckID identifies a deck. It is an opaque value type.
type DeckID int64

// TimestampSecs is a unix timestamp in seconds.
type TimestampSecs int64

// Usn is the update sequence number used by sync.
type Usn int32

// Note is the host-native, mutable note record.
type Note struct {
	GUID       string
	SortField  string
	Tags       []string
	Fields     []string
	ID         NoteID
	NotetypeID NotetypeID
	Mtime      TimestampSecs
	Checksum   uint32
	Usn        Usn
}

// SetField overwrites the field at index idx.
// It returns an error if idx is outside the note's current field count;
// fields are never appended this way.
func (n *Note) SetField(idx int, value string) error {
	if idx < 0 || idx >= len(n.Fields) {
		return fmt.Errorf("field index %d out of range (note has %d fields)", idx, len(n.Fields))
	}
	n.Fields[idx] = value
	return nil
}

// AddonNote is the boundary snapshot of a Note handed to addons.
// It is structurally identical to Note but never aliases host memory.
type AddonNote struct {
	GUID       string        `json:"guid"`
	SortField  string        `json:"sort_field"`
	Tags       []string      `json:"tags"`
	Fields     []string      `json:"fields"`
	ID         NoteID        `json:"id"`
	NotetypeID NotetypeID    `json:"note_type_id"`
	Mtime      TimestampSecs `json:"mtime"`
	Checksum   uint32        `json:"checksum"`
	Usn        Usn           `json:"usn"`
}
