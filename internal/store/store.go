package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/hyperifyio/vubresto/internal/menu"
)

// PersistError reports a document that could not be written or read.
type PersistError struct {
	Path string
	Err  error
}

func (e *PersistError) Error() string { return fmt.Sprintf("persist %s: %v", e.Path, e.Err) }

func (e *PersistError) Unwrap() error { return e.Err }

// Store keeps one JSON document per restaurant identity under Dir as
// <slug>.json. Each Save fully replaces the previous document.
type Store struct {
	Dir string
	// StrictPerms writes the directory as 0700 and files as 0600.
	StrictPerms bool
}

func (s *Store) dirMode() os.FileMode {
	if s.StrictPerms {
		return 0o700
	}
	return 0o755
}

func (s *Store) fileMode() os.FileMode {
	if s.StrictPerms {
		return 0o600
	}
	return 0o644
}

func (s *Store) ensureDir() error {
	if s == nil || s.Dir == "" {
		return errors.New("output dir not configured")
	}
	if err := os.MkdirAll(s.Dir, s.dirMode()); err != nil {
		return err
	}
	if s.StrictPerms {
		return os.Chmod(s.Dir, s.dirMode())
	}
	return nil
}

// Path returns the document path for id.
func (s *Store) Path(id menu.Identity) string { return filepath.Join(s.Dir, id.FileName()) }

// Encode renders days as the persisted JSON document: UTF-8, non-ASCII and
// HTML characters left unescaped, always an array.
func Encode(r menu.RestaurantMenu) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r.Document()); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes r atomically: the document is encoded to a temporary file in
// the same directory and renamed over the previous one.
func (s *Store) Save(_ context.Context, r menu.RestaurantMenu) error {
	path := s.Path(r.Identity)
	if err := s.ensureDir(); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	data, err := Encode(r)
	if err != nil {
		return &PersistError{Path: path, Err: fmt.Errorf("encode: %w", err)}
	}
	if err := WriteFileAtomic(path, data, s.fileMode()); err != nil {
		return &PersistError{Path: path, Err: err}
	}
	return nil
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place, so readers see either the old or the new content.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Chmod(perm); err != nil {
		tmp.Close()
		cleanup()
		return fmt.Errorf("chmod: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return fmt.Errorf("close: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// LoadRaw returns the stored document bytes for id.
func (s *Store) LoadRaw(_ context.Context, id menu.Identity) ([]byte, error) {
	path := s.Path(id)
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, &PersistError{Path: path, Err: err}
	}
	return b, nil
}

// Load decodes the stored document for id.
func (s *Store) Load(ctx context.Context, id menu.Identity) (menu.RestaurantMenu, error) {
	b, err := s.LoadRaw(ctx, id)
	if err != nil {
		return menu.RestaurantMenu{}, err
	}
	var days []menu.DayMenu
	if err := json.Unmarshal(b, &days); err != nil {
		return menu.RestaurantMenu{}, &PersistError{Path: s.Path(id), Err: fmt.Errorf("decode: %w", err)}
	}
	return menu.RestaurantMenu{Identity: id, Days: days}, nil
}
