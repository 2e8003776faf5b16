package testutil

import (
	"bytes"
	"log/slog"
	"strings"

	"github.com/deckforge/addonhost/domain/entities"
)

// NewNote returns a fresh host note with the given fields.
func NewNote(fields ...string) *entities.Note {
	return &entities.Note{
		ID:         1700000000000,
		GUID:       "Bk9#v2qX_p",
		NotetypeID: 1600000000000,
		Mtime:      1700000000,
		Usn:        -1,
		Tags:       []string{"vocab"},
		Fields:     append([]string(nil), fields...),
		SortField:  firstOrEmpty(fields),
	}
}

func firstOrEmpty(fields []string) string {
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

// AppendToFields returns a before_add_note handler that appends suffix to
// every field of the note it receives.
func AppendToFields(suffix string) func(entities.AddonNote, entities.DeckID) (*entities.AddonNote, error) {
	return func(note entities.AddonNote, _ entities.DeckID) (*entities.AddonNote, error) {
		for i := range note.Fields {
			note.Fields[i] += suffix
		}
		return &note, nil
	}
}

// LogBuffer captures slog text output for assertions.
type LogBuffer struct {
	buf bytes.Buffer
}

// NewLogger returns a debug-level text logger writing into a LogBuffer.
func NewLogger() (*slog.Logger, *LogBuffer) {
	lb := &LogBuffer{}
	return slog.New(slog.NewTextHandler(&lb.buf, &slog.HandlerOptions{Level: slog.LevelDebug})), lb
}

// String returns everything logged so far.
func (b *LogBuffer) String() string {
	return b.buf.String()
}

// Count returns how many log lines contain substr.
func (b *LogBuffer) Count(substr string) int {
	n := 0
	for _, line := range strings.Split(b.buf.String(), "\n") {
		if strings.Contains(line, substr) {
			n++
		}
	}
	return n
}
