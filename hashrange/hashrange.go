// Package hashrange lets digest computations treat any registered container shape as
// a flat sequence of bytes.
//
// A container type is registered once, with an adapter that streams its bytes to a
// writer. Hashing through the registry gives identical digests for identical bytes,
// whatever the concrete shape holding them: a []byte, a string, a segmented
// [][]byte or serialised archive data all hash the same when their bytes match.
// Types that are not registered must be converted explicitly before hashing.
package hashrange

import (
	"bytes"
	"errors"
	"fmt"
	"hash"
	"io"
	"reflect"
	"sync"

	"xdao.co/chunkstore/serial"
)

var (
	ErrUnhashable = errors.New("hashrange: type is not a hashable data range")
	ErrFrozen     = errors.New("hashrange: registry is frozen")
)

// Adapter streams the bytes of v to w.
type Adapter func(v any, w io.Writer) error

// Registry is a type-keyed table of hashable range adapters.
//
// Registration normally happens during process start-up; after Freeze the table is
// read-only and lookups are safe from any goroutine.
type Registry struct {
	mu       sync.RWMutex
	adapters map[reflect.Type]Adapter
	frozen   bool
}

// Default is the process-wide registry, preloaded with the built-in shapes.
var Default = New()

// New returns a registry holding the built-in shapes: []byte, string,
// serial.SerialisedData, [32]byte, [64]byte, [][]byte, *bytes.Buffer and
// *bytes.Reader.
func New() *Registry {
	r := &Registry{adapters: make(map[reflect.Type]Adapter)}
	mustAdd(r, func(v []byte, w io.Writer) error { return writeAll(w, v) })
	mustAdd(r, func(v string, w io.Writer) error {
		_, err := io.WriteString(w, v)
		return err
	})
	mustAdd(r, func(v serial.SerialisedData, w io.Writer) error { return writeAll(w, v) })
	mustAdd(r, func(v [32]byte, w io.Writer) error { return writeAll(w, v[:]) })
	mustAdd(r, func(v [64]byte, w io.Writer) error { return writeAll(w, v[:]) })
	mustAdd(r, func(v [][]byte, w io.Writer) error {
		for _, seg := range v {
			if err := writeAll(w, seg); err != nil {
				return err
			}
		}
		return nil
	})
	mustAdd(r, func(v *bytes.Buffer, w io.Writer) error {
		if v == nil {
			return nil
		}
		return writeAll(w, v.Bytes())
	})
	mustAdd(r, func(v *bytes.Reader, w io.Writer) error {
		if v == nil {
			return nil
		}
		// Read through a section so the reader's own position is left alone.
		_, err := io.Copy(w, io.NewSectionReader(v, 0, v.Size()))
		return err
	})
	return r
}

func writeAll(w io.Writer, b []byte) error {
	_, err := w.Write(b)
	return err
}

// Add registers the adapter for T in r.
func Add[T any](r *Registry, fn func(v T, w io.Writer) error) error {
	if fn == nil {
		return fmt.Errorf("hashrange: nil adapter for %v", reflect.TypeFor[T]())
	}
	t := reflect.TypeFor[T]()
	if t.Kind() == reflect.Interface {
		return fmt.Errorf("hashrange: cannot register interface type %v", t)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return ErrFrozen
	}
	if _, exists := r.adapters[t]; exists {
		return fmt.Errorf("hashrange: %v already registered", t)
	}
	r.adapters[t] = func(v any, w io.Writer) error { return fn(v.(T), w) }
	return nil
}

func mustAdd[T any](r *Registry, fn func(v T, w io.Writer) error) {
	if err := Add(r, fn); err != nil {
		panic(err)
	}
}

// Register registers the adapter for T in the Default registry.
func Register[T any](fn func(v T, w io.Writer) error) error {
	return Add(Default, fn)
}

// MustRegister is like Register but panics on error. Intended for init().
func MustRegister[T any](fn func(v T, w io.Writer) error) {
	mustAdd(Default, fn)
}

// Freeze makes the registry read-only. Further registration returns ErrFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

func (r *Registry) lookup(v any) (Adapter, bool) {
	if v == nil {
		return nil, false
	}
	r.mu.RLock()
	a, ok := r.adapters[reflect.TypeOf(v)]
	r.mu.RUnlock()
	return a, ok
}

// Registered reports whether v's dynamic type is a hashable range.
func (r *Registry) Registered(v any) bool {
	_, ok := r.lookup(v)
	return ok
}

// Write streams the bytes of v to w.
func (r *Registry) Write(w io.Writer, v any) error {
	a, ok := r.lookup(v)
	if !ok {
		return fmt.Errorf("%w: %T", ErrUnhashable, v)
	}
	return a(v, w)
}

// Sum feeds v into h and returns h's digest. h is not reset first.
func (r *Registry) Sum(h hash.Hash, v any) ([]byte, error) {
	if err := r.Write(h, v); err != nil {
		return nil, err
	}
	return h.Sum(nil), nil
}

// Freeze freezes the Default registry.
func Freeze() { Default.Freeze() }

// Registered reports whether v is a hashable range in the Default registry.
func Registered(v any) bool { return Default.Registered(v) }

// Write streams v through the Default registry.
func Write(w io.Writer, v any) error { return Default.Write(w, v) }

// Sum hashes v through the Default registry.
func Sum(h hash.Hash, v any) ([]byte, error) { return Default.Sum(h, v) }
