// Package filesystem stores documents as <id>.docx files in a directory.
package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/tsawler/docstamp/storage"
)

const extension = ".docx"

// Ensure Store implements the interface.
var _ storage.Store = (*Store)(nil)

// Store keeps each document in its own file.
type Store struct {
	dir string
}

// New returns a store rooted at dir, creating the directory if needed.
func New(dir string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("filesystem store: empty directory")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating output directory: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the directory documents are written to.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) path(id string) string {
	return filepath.Join(s.dir, id+extension)
}

// Save writes data to a new file. The file appears under its final name
// only once fully written.
func (s *Store) Save(ctx context.Context, data []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	id := storage.NewID()
	tmp, err := os.CreateTemp(s.dir, ".tmp-*")
	if err != nil {
		return "", fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("writing document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("closing document: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return "", fmt.Errorf("setting permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(id)); err != nil {
		return "", fmt.Errorf("storing document: %w", err)
	}
	return id, nil
}

// Load reads the file for id.
func (s *Store) Load(ctx context.Context, id string) ([]byte, error) {
	if err := storage.CheckID(id); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("reading document: %w", err)
	}
	return data, nil
}

// List returns the documents in the directory, newest first.
func (s *Store) List(ctx context.Context) ([]storage.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("reading output directory: %w", err)
	}

	var entries []storage.Entry
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasSuffix(name, extension) {
			continue
		}
		id := strings.TrimSuffix(name, extension)
		if storage.CheckID(id) != nil {
			continue
		}
		info, err := de.Info()
		if err != nil {
			// removed since ReadDir
			continue
		}
		entries = append(entries, storage.Entry{ID: id, Size: info.Size(), Created: info.ModTime()})
	}

	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Created.Equal(entries[j].Created) {
			return entries[i].Created.After(entries[j].Created)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// Delete removes the file for id.
func (s *Store) Delete(ctx context.Context, id string) error {
	if err := storage.CheckID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return storage.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}
