package generate

import (
	"fmt"
)

// RenderError reports a record the renderer could not produce.
type RenderError struct {
	Index       int    // zero-based record position
	Explanation string // human-readable reason from the renderer
	Err         error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("error in record %d: %s", e.Index+1, e.Explanation)
}

func (e *RenderError) Unwrap() error {
	return e.Err
}
