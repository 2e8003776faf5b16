// Package sqlite provides the SQLite-backed note store of a collection.
package sqlite

import (
	"context"
	"crypto/sha1" //nolint:gosec // checksum compatibility, not security
	"database/sql"
	_ "embed"
	"encoding/binary"
	stdErrors "errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	"github.com/deckforge/addonhost/domain/entities"
	"github.com/deckforge/addonhost/domain/errors"
	"github.com/deckforge/addonhost/domain/ports"
)

//go:embed schema.sql
var schemaSQL string

// fieldSeparator joins note fields in the flds column.
const fieldSeparator = "\x1f"

var (
	// ErrDuplicateGUID is returned when a note's GUID is already stored.
	ErrDuplicateGUID = stdErrors.New("note guid already exists")
	// ErrDuplicateNoteID is returned when a note's id is already stored.
	ErrDuplicateNoteID = stdErrors.New("note id already exists")
)

// Store persists notes in SQLite.
type Store struct {
	sqlDB  *sql.DB
	now    func() time.Time
	mu     sync.Mutex
	lastID int64
}

var _ ports.NoteStore = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used for ids and mtimes.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens (creating if needed) the collection database at path.
func Open(path string, opts ...Option) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("collection path is required")
	}
	dsn := filepath.Clean(path) + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if _, err := sqlDB.Exec(schemaSQL); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	s := &Store{sqlDB: sqlDB, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// AddNote stores note in deck deckID. Missing id, guid and mtime are
// assigned; the sort field and checksum are always derived from the first
// field. Assigned values are written back into note.
func (s *Store) AddNote(ctx context.Context, note *entities.Note, deckID entities.DeckID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if note == nil {
		return fmt.Errorf("note is required")
	}
	if len(note.Fields) == 0 {
		return fmt.Errorf("note has no fields")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if note.ID == 0 {
		note.ID = entities.NoteID(s.nextID(now))
	}
	if note.GUID == "" {
		guid, err := newGUID()
		if err != nil {
			return err
		}
		note.GUID = guid
	}
	if note.Mtime == 0 {
		note.Mtime = entities.TimestampSecs(now.Unix())
	}
	note.SortField = note.Fields[0]
	note.Checksum = FieldChecksum(note.Fields[0])

	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO notes (id, guid, mid, did, mod, usn, tags, flds, sfld, csum)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		int64(note.ID),
		note.GUID,
		int64(note.NotetypeID),
		int64(deckID),
		int64(note.Mtime),
		int64(note.Usn),
		joinTags(note.Tags),
		strings.Join(note.Fields, fieldSeparator),
		note.SortField,
		int64(note.Checksum),
	)
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return fmt.Errorf("add note %d: %w", note.ID, dup)
		}
		return fmt.Errorf("add note: %w", err)
	}
	return nil
}

// GetNote loads a note by id. A missing note is errors.ErrNoteNotFound.
func (s *Store) GetNote(ctx context.Context, id entities.NoteID) (*entities.Note, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var (
		note                  entities.Note
		nid, mid, mod, usn    int64
		csum                  int64
		tags, fields, sortFld string
	)
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT id, guid, mid, mod, usn, tags, flds, sfld, csum FROM notes WHERE id = ?`, int64(id))
	if err := row.Scan(&nid, &note.GUID, &mid, &mod, &usn, &tags, &fields, &sortFld, &csum); err != nil {
		if stdErrors.Is(err, sql.ErrNoRows) {
			return nil, &errors.ApplicationError{
				Code:    errors.CodeNoteNotFound,
				Message: fmt.Sprintf("note %d not found", id),
			}
		}
		return nil, fmt.Errorf("get note %d: %w", id, err)
	}

	note.ID = entities.NoteID(nid)
	note.NotetypeID = entities.NotetypeID(mid)
	note.Mtime = entities.TimestampSecs(mod)
	note.Usn = entities.Usn(usn) //nolint:gosec // G115: stored from an int32
	note.Checksum = uint32(csum) //nolint:gosec // G115: stored from a uint32
	note.Tags = splitTags(tags)
	note.Fields = strings.Split(fields, fieldSeparator)
	note.SortField = sortFld
	return &note, nil
}

// DeckOf returns the deck a note was stored in.
func (s *Store) DeckOf(ctx context.Context, id entities.NoteID) (entities.DeckID, error) {
	var did int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT did FROM notes WHERE id = ?`, int64(id)).Scan(&did)
	if stdErrors.Is(err, sql.ErrNoRows) {
		return 0, errors.ErrNoteNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("deck of note %d: %w", id, err)
	}
	return entities.DeckID(did), nil
}

// FindNotes returns the notes whose first field is exactly firstField.
// The checksum index narrows the scan; the field text settles collisions.
func (s *Store) FindNotes(ctx context.Context, firstField string) ([]entities.NoteID, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT id, flds FROM notes WHERE csum = ? ORDER BY id`, int64(FieldChecksum(firstField)))
	if err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	ids := []entities.NoteID{}
	for rows.Next() {
		var (
			id     int64
			fields string
		)
		if err := rows.Scan(&id, &fields); err != nil {
			return nil, fmt.Errorf("find notes: %w", err)
		}
		if first, _, _ := strings.Cut(fields, fieldSeparator); first == firstField {
			ids = append(ids, entities.NoteID(id))
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find notes: %w", err)
	}
	return ids, nil
}

// Deck counts the notes in one deck. A deck without notes is
// errors.ErrDeckNotFound.
func (s *Store) Deck(ctx context.Context, id entities.DeckID) (entities.DeckSummary, error) {
	var count int
	err := s.sqlDB.QueryRowContext(ctx, `SELECT COUNT(*) FROM notes WHERE did = ?`, int64(id)).Scan(&count)
	if err != nil {
		return entities.DeckSummary{}, fmt.Errorf("deck %d: %w", id, err)
	}
	if count == 0 {
		return entities.DeckSummary{}, &errors.ApplicationError{
			Code:    errors.CodeDeckNotFound,
			Message: fmt.Sprintf("deck %d not found", id),
		}
	}
	return entities.DeckSummary{ID: id, NoteCount: count}, nil
}

// Decks lists every deck that holds notes, ordered by id.
func (s *Store) Decks(ctx context.Context) ([]entities.DeckSummary, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `SELECT did, COUNT(*) FROM notes GROUP BY did ORDER BY did`)
	if err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	decks := []entities.DeckSummary{}
	for rows.Next() {
		var (
			did   int64
			count int
		)
		if err := rows.Scan(&did, &count); err != nil {
			return nil, fmt.Errorf("list decks: %w", err)
		}
		decks = append(decks, entities.DeckSummary{ID: entities.DeckID(did), NoteCount: count})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list decks: %w", err)
	}
	return decks, nil
}

// nextID returns a millisecond timestamp id, bumped past the last one
// handed out so ids stay unique within a burst.
func (s *Store) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= s.lastID {
		id = s.lastID + 1
	}
	s.lastID = id
	return id
}

func newGUID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate guid: %w", err)
	}
	return id.String(), nil
}

// FieldChecksum returns the first 32 bits of the SHA-1 of field, used to
// find duplicate notes cheaply.
func FieldChecksum(field string) uint32 {
	sum := sha1.Sum([]byte(field)) //nolint:gosec // not a security boundary
	return binary.BigEndian.Uint32(sum[:4])
}

// joinTags stores tags space separated with surrounding spaces, so a
// LIKE '% tag %' query matches whole tags only.
func joinTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}

func splitTags(s string) []string {
	return strings.Fields(s)
}

// duplicateKey maps a constraint failure on the notes table to the key
// that collided, or nil for any other error.
func duplicateKey(err error) error {
	var sqliteErr *msqlite.Error
	if stdErrors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_PRIMARYKEY:
			return ErrDuplicateNoteID
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return uniqueColumn(err.Error())
		}
	}
	msg := strings.ToLower(err.Error())
	if !strings.Contains(msg, "unique constraint failed") {
		return nil
	}
	return uniqueColumn(msg)
}

// uniqueColumn tells the id column from the guid column in a
// "UNIQUE constraint failed: notes.<col>" message.
func uniqueColumn(msg string) error {
	if strings.Contains(strings.ToLower(msg), "notes.id") {
		return ErrDuplicateNoteID
	}
	return ErrDuplicateGUID
}
