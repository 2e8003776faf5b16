package entities

// DeckSummary describes a deck as seen through the notes stored in it.
// A deck with no notes does not exist as far as the note store knows.
type DeckSummary struct {
	ID        DeckID `json:"id" yaml:"id"`
	NoteCount int    `json:"note_count" yaml:"note_count"`
}
