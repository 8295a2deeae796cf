package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// Store is a DocumentStore and TranscriptStore backed by a SQLite database.
type Store struct {
	db *sql.DB
}

var (
	_ domain.DocumentStore   = (*Store)(nil)
	_ domain.TranscriptStore = (*Store)(nil)
)

// New opens dsn, e.g. "psykologen.db?_journal=WAL&_timeout=5000" or ":memory:".
func New(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway and ":memory:" is per connection.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		session_id TEXT NOT NULL,
		name TEXT NOT NULL,
		content TEXT NOT NULL,
		updated_at DATETIME NOT NULL,
		PRIMARY KEY (session_id, name)
	);

	CREATE TABLE IF NOT EXISTS transcripts (
		location TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		turn_count INTEGER NOT NULL,
		body TEXT NOT NULL,
		final_text TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transcripts_session ON transcripts(session_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Document operations

func (s *Store) Exists(ctx context.Context, ref domain.DocumentRef) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM documents WHERE session_id = ? AND name = ?`,
		string(ref.SessionID), string(ref.Name)).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", ref, err)
	}
	return n > 0, nil
}

func (s *Store) Read(ctx context.Context, ref domain.DocumentRef) (string, error) {
	var content string
	err := s.db.QueryRowContext(ctx,
		`SELECT content FROM documents WHERE session_id = ? AND name = ?`,
		string(ref.SessionID), string(ref.Name)).Scan(&content)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrDocumentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ref, err)
	}
	return content, nil
}

// Write replaces the document in a single UPSERT statement.
func (s *Store) Write(ctx context.Context, ref domain.DocumentRef, content string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO documents (session_id, name, content, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id, name) DO UPDATE SET
			content = excluded.content,
			updated_at = excluded.updated_at
	`, string(ref.SessionID), string(ref.Name), content, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("write %s: %w", ref, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, ref domain.DocumentRef) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM documents WHERE session_id = ? AND name = ?`,
		string(ref.SessionID), string(ref.Name))
	if err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

// Transcript operations

func (s *Store) SaveTranscript(ctx context.Context, t *domain.Transcript) (string, error) {
	loc := "sqlite://" + string(t.SessionID) + "/" + t.FileName()
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO transcripts (location, session_id, turn_count, body, final_text, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, loc, string(t.SessionID), t.TurnCount, t.Render(), t.FinalText, t.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("save transcript: %w", err)
	}
	return loc, nil
}

// ListTranscripts returns the transcripts saved for id, oldest first.
func (s *Store) ListTranscripts(ctx context.Context, id domain.SessionID) ([]domain.TranscriptInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT location, turn_count, created_at FROM transcripts
		WHERE session_id = ?
		ORDER BY created_at, location
	`, string(id))
	if err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	defer rows.Close()

	var out []domain.TranscriptInfo
	for rows.Next() {
		info := domain.TranscriptInfo{SessionID: id}
		if err := rows.Scan(&info.Location, &info.TurnCount, &info.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan transcript: %w", err)
		}
		out = append(out, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list transcripts: %w", err)
	}
	return out, nil
}
