package enhancement

import (
	"errors"
	"fmt"
)

var ErrInferenceFailure = errors.New("inference failed")

// ChunkError describes a failed chunk; it matches ErrInferenceFailure.
type ChunkError struct {
	Chunk  int
	Cursor int
	Err    error
}

func (e *ChunkError) Error() string {
	return fmt.Sprintf("%s at chunk %d (cursor %d): %v", ErrInferenceFailure, e.Chunk, e.Cursor, e.Err)
}

func (e *ChunkError) Unwrap() []error {
	return []error{ErrInferenceFailure, e.Err}
}
