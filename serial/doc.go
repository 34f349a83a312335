// Package serial implements the deterministic binary archive used for chunk content
// and for the storage wire protocol.
//
// Values are written in call order with no padding and no type tags. The layout is
// fixed so that independent implementations interoperate:
//
//   - uint8/int8 and bool: 1 byte (bool is 0 or 1; anything else is malformed)
//   - uint16/int16: 2 bytes little-endian
//   - uint32/int32/float32: 4 bytes little-endian (floats as IEEE-754 bits)
//   - uint64/int64/int/float64: 8 bytes little-endian (int is widened to int64)
//   - string, []byte, []T: uint64 little-endian element count, then the elements
//   - map[K]V: uint64 count, then key/value pairs in strictly ascending key order
//   - optional (*T): one-byte count (0 or 1), then the element when present
//   - [32]byte, [64]byte: the raw bytes, no prefix
//
// Decoding consumes exactly the bytes the matching encoding produced. Buffer-based
// parsing rejects trailing bytes; stream decoding leaves them for the next call.
//
// Element encodings are at least one byte long. Types implementing [Marshaler] must
// keep that property, since a declared element count larger than the remaining input
// is rejected as truncated before any allocation happens.
package serial
