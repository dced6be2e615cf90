package merge

import (
	"errors"
	"fmt"
)

// ErrEmptyMergeSet is returned when there is nothing to merge.
var ErrEmptyMergeSet = errors.New("empty merge set")

// RecordError reports which input failed. Index is zero-based; the message
// numbers records from one.
type RecordError struct {
	Index int
	Err   error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %d: %v", e.Index+1, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
