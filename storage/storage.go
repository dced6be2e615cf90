// Package storage defines where merged documents are kept once generated.
//
// Adapters live in subpackages: filesystem writes one file per document,
// sqlite keeps documents as blobs, memory is for tests and one-shot runs.
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no document has the requested id.
var ErrNotFound = errors.New("document not found")

// ErrInvalidID is returned for ids that are not ones a store could issue.
var ErrInvalidID = errors.New("invalid document id")

// Entry describes a stored document.
type Entry struct {
	ID      string
	Size    int64
	Created time.Time
}

// Store persists merged documents under generated ids.
type Store interface {
	// Save stores data and returns its new id.
	Save(ctx context.Context, data []byte) (string, error)

	// Load returns the document stored under id, or ErrNotFound.
	Load(ctx context.Context, id string) ([]byte, error)

	// List returns every stored document, newest first.
	List(ctx context.Context) ([]Entry, error)

	// Delete removes the document stored under id, or returns ErrNotFound.
	Delete(ctx context.Context, id string) error
}

// NewID returns a random document id.
func NewID() string {
	return uuid.NewString()
}

// CheckID rejects anything that is not a UUID, so ids are safe to use in
// file names.
func CheckID(id string) error {
	if _, err := uuid.Parse(id); err != nil || len(id) != 36 {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}
