package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// DefaultListLimit caps List when no positive limit is given.
const DefaultListLimit = 50

// Entry records one written subtitle file.
type Entry struct {
	ID          int64     `json:"id"`
	RequestID   string    `json:"request_id,omitempty"`
	VideoCode   string    `json:"video"`
	Title       string    `json:"title,omitempty"`
	LanguageKey string    `json:"lang"`
	Format      string    `json:"format"`
	Path        string    `json:"path"`
	Blocks      int       `json:"blocks"`
	CreatedAt   time.Time `json:"created_at"`
}

// Store persists download history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or opens the history database at path and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create history dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Record inserts entry and returns it with ID and CreatedAt populated.
func (s *Store) Record(ctx context.Context, entry Entry) (Entry, error) {
	if strings.TrimSpace(entry.VideoCode) == "" || strings.TrimSpace(entry.Path) == "" {
		return Entry{}, errors.New("history entry requires video code and path")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO downloads (
            request_id, video_code, title, language_key, format, path, blocks, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		nullableString(entry.RequestID),
		entry.VideoCode,
		nullableString(entry.Title),
		entry.LanguageKey,
		entry.Format,
		entry.Path,
		entry.Blocks,
		entry.CreatedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return Entry{}, fmt.Errorf("insert download: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return Entry{}, fmt.Errorf("last insert id: %w", err)
	}
	entry.ID = id
	return entry, nil
}

// List returns the most recent entries, newest first.
func (s *Store) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, request_id, video_code, title, language_key, format, path, blocks, created_at
         FROM downloads ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list downloads: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate downloads: %w", err)
	}
	return entries, nil
}

// ForVideo returns every entry recorded for code, newest first.
func (s *Store) ForVideo(ctx context.Context, code string) ([]Entry, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, request_id, video_code, title, language_key, format, path, blocks, created_at
         FROM downloads WHERE video_code = ? ORDER BY id DESC`,
		code,
	)
	if err != nil {
		return nil, fmt.Errorf("list downloads for %s: %w", code, err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan download: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Clear removes every entry and returns how many were deleted.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM downloads`)
	if err != nil {
		return 0, fmt.Errorf("clear downloads: %w", err)
	}
	return res.RowsAffected()
}

func scanEntry(scanner interface{ Scan(dest ...any) error }) (Entry, error) {
	var (
		entry      Entry
		requestID  sql.NullString
		title      sql.NullString
		createdRaw string
	)
	if err := scanner.Scan(
		&entry.ID,
		&requestID,
		&entry.VideoCode,
		&title,
		&entry.LanguageKey,
		&entry.Format,
		&entry.Path,
		&entry.Blocks,
		&createdRaw,
	); err != nil {
		return Entry{}, err
	}
	entry.RequestID = requestID.String
	entry.Title = title.String
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		entry.CreatedAt = ts
	}
	return entry, nil
}

func nullableString(value string) any {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return value
}
