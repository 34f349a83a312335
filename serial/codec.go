package serial

import (
	"cmp"
	"fmt"
	"maps"
	"slices"
)

// Codec is the type-directed encoding of one value type.
//
// Write appends v to w. Read decodes into *v and reports failures through r.Fail.
// Built-in codecs cover the fixed-width primitives, strings, byte strings and the
// composite shapes Slice, Map and Optional; application structs either implement
// Marshaler/Unmarshaler (see Self) or embed a CBOR document (see CBOR).
type Codec[T any] struct {
	Write func(w *Writer, v T)
	Read  func(r *Reader, v *T)
}

func fixed[T any](write func(*Writer, T), read func(*Reader) T) Codec[T] {
	return Codec[T]{
		Write: write,
		Read:  func(r *Reader, v *T) { *v = read(r) },
	}
}

var (
	Uint8   = fixed((*Writer).Uint8, (*Reader).Uint8)
	Uint16  = fixed((*Writer).Uint16, (*Reader).Uint16)
	Uint32  = fixed((*Writer).Uint32, (*Reader).Uint32)
	Uint64  = fixed((*Writer).Uint64, (*Reader).Uint64)
	Int8    = fixed((*Writer).Int8, (*Reader).Int8)
	Int16   = fixed((*Writer).Int16, (*Reader).Int16)
	Int32   = fixed((*Writer).Int32, (*Reader).Int32)
	Int64   = fixed((*Writer).Int64, (*Reader).Int64)
	Int     = fixed((*Writer).Int, (*Reader).Int)
	Float32 = fixed((*Writer).Float32, (*Reader).Float32)
	Float64 = fixed((*Writer).Float64, (*Reader).Float64)
	Bool    = fixed((*Writer).Bool, (*Reader).Bool)
	String  = fixed((*Writer).String, (*Reader).String)
	Bytes   = fixed((*Writer).Bytes, (*Reader).Bytes)

	// Array32 encodes a 32-byte digest with no length prefix.
	Array32 = Codec[[32]byte]{
		Write: func(w *Writer, v [32]byte) { w.Raw(v[:]) },
		Read:  func(r *Reader, v *[32]byte) { copy(v[:], r.Raw(len(v))) },
	}

	// Array64 encodes a 64-byte digest with no length prefix.
	Array64 = Codec[[64]byte]{
		Write: func(w *Writer, v [64]byte) { w.Raw(v[:]) },
		Read:  func(r *Reader, v *[64]byte) { copy(v[:], r.Raw(len(v))) },
	}
)

// Slice encodes a []T as an element count followed by each element. An empty
// sequence decodes to nil.
func Slice[T any](elem Codec[T]) Codec[[]T] {
	return Codec[[]T]{
		Write: func(w *Writer, v []T) {
			w.Count(len(v))
			for _, e := range v {
				elem.Write(w, e)
			}
		},
		Read: func(r *Reader, v *[]T) {
			n := r.Count()
			if r.Err() != nil || n == 0 {
				*v = nil
				return
			}
			out := make([]T, 0, min(n, 1024))
			for i := 0; i < n && r.Err() == nil; i++ {
				var e T
				elem.Read(r, &e)
				out = append(out, e)
			}
			if r.Err() != nil {
				*v = nil
				return
			}
			*v = out
		},
	}
}

// Map encodes a map as a pair count followed by key/value pairs in ascending key
// order. Decoding rejects keys that are not strictly ascending, so every map has
// exactly one encoding. NaN keys have no order and fail both ways.
func Map[K cmp.Ordered, V any](key Codec[K], val Codec[V]) Codec[map[K]V] {
	return Codec[map[K]V]{
		Write: func(w *Writer, m map[K]V) {
			w.Count(len(m))
			for _, k := range slices.Sorted(maps.Keys(m)) {
				if k != k {
					w.Fail(malformed(fmt.Errorf("map key %v is not ordered", k)))
					return
				}
				key.Write(w, k)
				val.Write(w, m[k])
			}
		},
		Read: func(r *Reader, m *map[K]V) {
			n := r.Count()
			if r.Err() != nil || n == 0 {
				*m = nil
				return
			}
			out := make(map[K]V, min(n, 1024))
			var prev K
			for i := 0; i < n && r.Err() == nil; i++ {
				var k K
				var v V
				key.Read(r, &k)
				val.Read(r, &v)
				if r.Err() != nil {
					break
				}
				if k != k {
					r.Fail(malformed(fmt.Errorf("map key %v is not ordered", k)))
					break
				}
				if i > 0 && cmp.Compare(prev, k) >= 0 {
					r.Fail(malformed(fmt.Errorf("map key %v out of order", k)))
					break
				}
				out[k] = v
				prev = k
			}
			if r.Err() != nil {
				*m = nil
				return
			}
			*m = out
		},
	}
}

// Optional encodes a *T as a one-byte count: 0 for nil, 1 followed by the element.
func Optional[T any](elem Codec[T]) Codec[*T] {
	return Codec[*T]{
		Write: func(w *Writer, v *T) {
			if v == nil {
				w.Uint8(0)
				return
			}
			w.Uint8(1)
			elem.Write(w, *v)
		},
		Read: func(r *Reader, v **T) {
			switch n := r.Uint8(); {
			case r.Err() != nil:
				*v = nil
			case n == 0:
				*v = nil
			case n == 1:
				e := new(T)
				elem.Read(r, e)
				if r.Err() != nil {
					*v = nil
					return
				}
				*v = e
			default:
				r.Fail(malformed(fmt.Errorf("optional count %d", n)))
				*v = nil
			}
		},
	}
}

// Marshaler is implemented by types that write their own archive encoding.
type Marshaler interface {
	MarshalArchive(w *Writer)
}

// Unmarshaler is implemented by types that read their own archive encoding.
type Unmarshaler interface {
	UnmarshalArchive(r *Reader)
}

// Self returns the codec for a struct type whose pointer implements both
// Marshaler and Unmarshaler.
func Self[T any, PT interface {
	*T
	Marshaler
	Unmarshaler
}]() Codec[T] {
	return Codec[T]{
		Write: func(w *Writer, v T) { PT(&v).MarshalArchive(w) },
		Read:  func(r *Reader, v *T) { PT(v).UnmarshalArchive(r) },
	}
}
