package storage

import (
	"errors"

	"xdao.co/chunkstore/chunk"
)

// MultiCAS provides deterministic, ordered fallback across multiple CAS adapters.
//
// Hydration order is the slice order in Adapters; callers MUST supply a fixed order.
//
// Put is defined to write only to the first adapter.
type MultiCAS struct {
	Adapters []CAS
}

func (m MultiCAS) Put(name chunk.Name, content []byte) error {
	if len(m.Adapters) == 0 {
		return errors.New("storage: MultiCAS has no adapters")
	}
	return m.Adapters[0].Put(name, content)
}

// Get returns the first copy found. An adapter holding content that fails
// validation is skipped in favour of later adapters.
func (m MultiCAS) Get(name chunk.Name) ([]byte, error) {
	var invalid error
	for _, cas := range m.Adapters {
		b, err := cas.Get(name)
		if err == nil {
			return b, nil
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

func (m MultiCAS) Has(name chunk.Name) bool {
	for _, cas := range m.Adapters {
		if cas.Has(name) {
			return true
		}
	}
	return false
}
