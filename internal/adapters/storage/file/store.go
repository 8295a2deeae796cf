package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PabloGalante/psykologen/internal/domain"
)

// DocumentStore keeps each derived document in <dir>/<session>/<name>.md.
// Writes go to a temp file in the same directory and are renamed over the
// target, so readers never see a partially written document.
type DocumentStore struct {
	dir string
}

func NewDocumentStore(dir string) (*DocumentStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create document dir: %w", err)
	}
	return &DocumentStore{dir: dir}, nil
}

func (s *DocumentStore) path(ref domain.DocumentRef) (string, error) {
	sid, err := sessionDir(ref.SessionID)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.dir, sid, string(ref.Name)+".md"), nil
}

func sessionDir(id domain.SessionID) (string, error) {
	sid := string(id)
	if sid == "" || sid == "." || sid == ".." || strings.ContainsAny(sid, `/\`) {
		return "", &domain.ValidationError{Field: "session_id", Reason: "not usable as a directory name"}
	}
	return sid, nil
}

func (s *DocumentStore) Exists(_ context.Context, ref domain.DocumentRef) (bool, error) {
	p, err := s.path(ref)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(p)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", ref, err)
	}
	return true, nil
}

func (s *DocumentStore) Read(_ context.Context, ref domain.DocumentRef) (string, error) {
	p, err := s.path(ref)
	if err != nil {
		return "", err
	}
	b, err := os.ReadFile(p)
	if errors.Is(err, fs.ErrNotExist) {
		return "", domain.ErrDocumentNotFound
	}
	if err != nil {
		return "", fmt.Errorf("read %s: %w", ref, err)
	}
	return string(b), nil
}

func (s *DocumentStore) Write(_ context.Context, ref domain.DocumentRef, content string) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		return fmt.Errorf("create session dir: %w", err)
	}
	return writeAtomic(p, content)
}

func (s *DocumentStore) Delete(_ context.Context, ref domain.DocumentRef) error {
	p, err := s.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}

// TranscriptStore writes transcripts as plain text files into
// <dir>/<session>/.
type TranscriptStore struct {
	dir string
}

func NewTranscriptStore(dir string) (*TranscriptStore, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create transcript dir: %w", err)
	}
	return &TranscriptStore{dir: dir}, nil
}

func (s *TranscriptStore) SaveTranscript(_ context.Context, t *domain.Transcript) (string, error) {
	sid, err := sessionDir(t.SessionID)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Join(s.dir, sid), 0o755); err != nil {
		return "", fmt.Errorf("create session dir: %w", err)
	}
	p := filepath.Join(s.dir, sid, t.FileName())
	if err := writeAtomic(p, t.Render()); err != nil {
		return "", err
	}
	return p, nil
}

// ListTranscripts reads the session directory. Turn counts come from the
// file names, creation times from the file modification times.
func (s *TranscriptStore) ListTranscripts(_ context.Context, id domain.SessionID) ([]domain.TranscriptInfo, error) {
	sid, err := sessionDir(id)
	if err != nil {
		return nil, err
	}
	dir := filepath.Join(s.dir, sid)
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read transcript dir: %w", err)
	}

	var out []domain.TranscriptInfo
	for _, e := range entries {
		var turns int
		if e.IsDir() {
			continue
		}
		if _, err := fmt.Sscanf(e.Name(), domain.TranscriptFileFormat, &turns); err != nil {
			continue
		}
		info, err := e.Info()
		if err != nil {
			return nil, fmt.Errorf("stat transcript: %w", err)
		}
		out = append(out, domain.TranscriptInfo{
			Location:  filepath.Join(dir, e.Name()),
			SessionID: id,
			TurnCount: turns,
			CreatedAt: info.ModTime(),
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// writeAtomic writes to a temp file, then renames it over path.
func writeAtomic(path, content string) error {
	tmpFile, err := os.CreateTemp(filepath.Dir(path), ".psykologen-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	if _, err := tmpFile.WriteString(content); err != nil {
		tmpFile.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}
