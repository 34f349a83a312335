package storage

import (
	"errors"
	"fmt"

	"xdao.co/chunkstore/chunk"
)

// NamedCAS associates a CAS with a stable backend name.
type NamedCAS struct {
	Name string
	CAS  CAS
}

// ReplicatingCAS writes to all configured backends. Reads fall back in order.
//
// Use PutAll when you need the per-backend outcome.
type ReplicatingCAS struct {
	Backends []NamedCAS
}

var _ CAS = (*ReplicatingCAS)(nil)

// PutAll writes the same chunk to every backend, stopping at the first failure. The
// returned map holds the error (nil on success) of every backend written so far.
func (r ReplicatingCAS) PutAll(name chunk.Name, content []byte) (map[string]error, error) {
	if len(r.Backends) == 0 {
		return nil, fmt.Errorf("storage: ReplicatingCAS has no backends")
	}

	out := make(map[string]error, len(r.Backends))
	for _, b := range r.Backends {
		if b.CAS == nil {
			return out, fmt.Errorf("storage: nil CAS for backend %q", b.Name)
		}
		err := b.CAS.Put(name, content)
		out[b.Name] = err
		if err != nil {
			return out, fmt.Errorf("storage: backend %q: %w", b.Name, err)
		}
	}
	return out, nil
}

func (r ReplicatingCAS) Put(name chunk.Name, content []byte) error {
	_, err := r.PutAll(name, content)
	return err
}

func (r ReplicatingCAS) Get(name chunk.Name) ([]byte, error) {
	var invalid error
	for _, b := range r.Backends {
		if b.CAS == nil {
			continue
		}
		out, err := b.CAS.Get(name)
		if err == nil {
			return out, nil
		}
		if IsNotFound(err) {
			continue
		}
		if errors.Is(err, ErrInvalidChunk) {
			invalid = err
			continue
		}
		return nil, err
	}
	if invalid != nil {
		return nil, invalid
	}
	return nil, ErrNotFound
}

func (r ReplicatingCAS) Has(name chunk.Name) bool {
	for _, b := range r.Backends {
		if b.CAS != nil && b.CAS.Has(name) {
			return true
		}
	}
	return false
}
