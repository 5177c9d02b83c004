package cloud_errors

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrInvalidInput        = errors.New("invalid input")
	ErrInvalidPath         = errors.New("invalid path")
	ErrTooLarge            = errors.New("file too large")
	ErrUploadNotFound      = errors.New("upload not found")
	ErrRangeNotSatisfiable = errors.New("range not satisfiable")
)

// MissingChunkError reports the first chunk index absent at reassembly time.
type MissingChunkError struct {
	Index int
}

func (e *MissingChunkError) Error() string {
	return fmt.Sprintf("missing chunk %d", e.Index)
}

// IsMissingChunk reports whether err wraps a MissingChunkError.
func IsMissingChunk(err error) bool {
	var mc *MissingChunkError
	return errors.As(err, &mc)
}
