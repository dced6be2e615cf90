// Package memory provides an in-memory document store.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/tsawler/docstamp/storage"
)

// Ensure Store implements the interface.
var _ storage.Store = (*Store)(nil)

type document struct {
	data    []byte
	created time.Time
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu   sync.RWMutex
	docs map[string]document
	now  func() time.Time
}

// New creates an empty store.
func New() *Store {
	return &Store{
		docs: make(map[string]document),
		now:  time.Now,
	}
}

// Save stores a copy of data.
func (s *Store) Save(_ context.Context, data []byte) (string, error) {
	id := storage.NewID()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[id] = document{data: append([]byte(nil), data...), created: s.now()}
	return id, nil
}

// Load returns a copy of the stored document.
func (s *Store) Load(_ context.Context, id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), doc.data...), nil
}

// List returns all documents, newest first.
func (s *Store) List(_ context.Context) ([]storage.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entries := make([]storage.Entry, 0, len(s.docs))
	for id, doc := range s.docs {
		entries = append(entries, storage.Entry{ID: id, Size: int64(len(doc.data)), Created: doc.created})
	}
	sort.Slice(entries, func(i, j int) bool {
		if !entries[i].Created.Equal(entries[j].Created) {
			return entries[i].Created.After(entries[j].Created)
		}
		return entries[i].ID < entries[j].ID
	})
	return entries, nil
}

// Delete removes a document.
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.docs[id]; !ok {
		return storage.ErrNotFound
	}
	delete(s.docs, id)
	return nil
}
