package storage

import "xdao.co/chunkstore/chunk"

// CAS is a minimal content-addressable chunk store.
//
// Contract:
// - Put MUST be idempotent.
// - Hashable chunks MUST be immutable. Signed chunks MAY be replaced by newer valid content.
// - Put MUST reject content that is not valid under its name.
// - Get MUST return ErrNotFound when the name is absent.
type CAS interface {
	Put(name chunk.Name, content []byte) error
	Get(name chunk.Name) ([]byte, error)
	Has(name chunk.Name) bool
}

// Lister is implemented by stores that can enumerate their chunks.
type Lister interface {
	Names() ([]chunk.Name, error)
}

// Pather is implemented by stores that keep each chunk in its own file, so callers
// can validate stored content without loading it into memory.
type Pather interface {
	Path(name chunk.Name) (string, error)
}

// PutContent stores content as a Default chunk under its canonical name.
func PutContent(cas CAS, content []byte) (chunk.Name, error) {
	name, err := chunk.NameOf(content)
	if err != nil {
		return "", err
	}
	if err := cas.Put(name, content); err != nil {
		return "", err
	}
	return name, nil
}
