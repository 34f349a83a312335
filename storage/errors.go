package storage

import (
	"errors"
	"fmt"

	"xdao.co/chunkstore/chunk"
)

var (
	ErrNotFound     = errors.New("storage: not found")
	ErrInvalidName  = errors.New("storage: invalid chunk name")
	ErrInvalidChunk = errors.New("storage: chunk content does not match name")
	ErrImmutable    = errors.New("storage: immutable object mismatch")
	// ErrStale rejects a signed chunk whose version is not newer than the stored one.
	ErrStale = errors.New("storage: signed chunk version is not newer than stored")
)

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsInvalid reports whether err rejects a chunk's name or content.
func IsInvalid(err error) bool {
	return errors.Is(err, ErrInvalidName) || errors.Is(err, ErrInvalidChunk)
}

// InvalidChunk returns ErrInvalidChunk carrying the validation reason, which stays
// reachable through errors.As.
func InvalidChunk(reason error) error {
	if reason == nil {
		return ErrInvalidChunk
	}
	return fmt.Errorf("%w: %w", ErrInvalidChunk, reason)
}

// CheckReplace returns ErrStale unless next supersedes the stored signed content.
func CheckReplace(stored, next []byte) error {
	ok, err := chunk.Supersedes(stored, next)
	if err != nil {
		return InvalidChunk(err)
	}
	if !ok {
		return ErrStale
	}
	return nil
}
