// Package casregistry links chunk store backends into binaries at build time.
//
// A backend package registers itself from init with MustRegister; a binary enables
// it with a blank import. Flags and config-file keys share names, so the same
// backend opens from a command line or from a casconfig file.
package casregistry

import (
	"cmp"
	"errors"
	"flag"
	"fmt"
	"slices"
	"sync"

	"xdao.co/chunkstore/storage"
)

// Opener constructs a store and an optional close function.
type Opener func() (storage.CAS, func() error, error)

// Backend describes one linkable chunk store.
type Backend struct {
	Name        string
	Description string
	Usage       Usage

	// RegisterFlags adds the backend's flags to fs. Flag values are read by Open.
	RegisterFlags func(fs *flag.FlagSet)
	// Open uses the values parsed into the flags from RegisterFlags.
	Open Opener
	// OpenConfig uses key/value settings keyed like the flags. Optional.
	OpenConfig func(cfg map[string]string) (storage.CAS, func() error, error)
}

func (b Backend) check() error {
	switch {
	case b.Name == "":
		return errors.New("casregistry: backend name is required")
	case b.RegisterFlags == nil:
		return fmt.Errorf("casregistry: backend %q has no RegisterFlags", b.Name)
	case b.Open == nil:
		return fmt.Errorf("casregistry: backend %q has no Open", b.Name)
	case b.Usage == 0:
		return fmt.Errorf("casregistry: backend %q has no Usage", b.Name)
	}
	return nil
}

var registry struct {
	sync.RWMutex
	byName map[string]Backend
}

// Register adds b. Names are unique per process.
func Register(b Backend) error {
	if err := b.check(); err != nil {
		return err
	}
	registry.Lock()
	defer registry.Unlock()
	if _, dup := registry.byName[b.Name]; dup {
		return fmt.Errorf("casregistry: backend %q already registered", b.Name)
	}
	if registry.byName == nil {
		registry.byName = make(map[string]Backend)
	}
	registry.byName[b.Name] = b
	return nil
}

// MustRegister is Register for init functions.
func MustRegister(b Backend) {
	if err := Register(b); err != nil {
		panic(err)
	}
}

// List returns the backends usable in a program of the given usage, by name.
func List(usage Usage) []Backend {
	registry.RLock()
	defer registry.RUnlock()
	var out []Backend
	for _, b := range registry.byName {
		if b.Usage.allows(usage) {
			out = append(out, b)
		}
	}
	slices.SortFunc(out, func(a, b Backend) int { return cmp.Compare(a.Name, b.Name) })
	return out
}

// RegisterFlags adds the flags of every usable backend, so one parse accepts them
// all.
func RegisterFlags(fs *flag.FlagSet, usage Usage) {
	for _, b := range List(usage) {
		b.RegisterFlags(fs)
	}
}

func lookup(name string, usage Usage) (Backend, error) {
	registry.RLock()
	b, ok := registry.byName[name]
	registry.RUnlock()
	switch {
	case !ok:
		return Backend{}, fmt.Errorf("unknown backend %q", name)
	case !b.Usage.allows(usage):
		return Backend{}, fmt.Errorf("backend %q not supported in this binary", name)
	}
	return b, nil
}

// Open opens the named backend from its flags.
func Open(name string, usage Usage) (storage.CAS, func() error, error) {
	b, err := lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}
	return b.Open()
}

// OpenWithConfig opens the named backend from key/value settings.
func OpenWithConfig(name string, usage Usage, cfg map[string]string) (storage.CAS, func() error, error) {
	b, err := lookup(name, usage)
	if err != nil {
		return nil, nil, err
	}
	if b.OpenConfig == nil {
		return nil, nil, fmt.Errorf("backend %q cannot be opened from config", name)
	}
	return b.OpenConfig(cfg)
}
