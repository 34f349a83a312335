package serial

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

// streamChunk bounds each allocation made while reading a length-prefixed value from
// a stream, so a corrupt count cannot force one huge allocation up front.
const streamChunk = 64 << 10

// Reader decodes archive encodings from a byte slice or an io.Reader.
//
// Errors are sticky: after the first failure every read returns a zero value and Err
// reports the failure.
type Reader struct {
	src    []byte
	stream io.Reader
	off    int64
	err    error

	scratch [8]byte
}

// NewReader returns a Reader over b. The Reader never retains b beyond its lifetime
// and values it returns never alias b.
func NewReader(b []byte) *Reader {
	return &Reader{src: b}
}

// NewStreamReader returns a Reader that pulls bytes from r on demand.
func NewStreamReader(r io.Reader) *Reader {
	return &Reader{stream: r}
}

// Err returns the first decoding failure, or nil.
func (r *Reader) Err() error { return r.err }

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int64 { return r.off }

// Remaining returns the number of unread bytes, or -1 for stream readers.
func (r *Reader) Remaining() int {
	if r.stream != nil {
		return -1
	}
	return len(r.src) - int(r.off)
}

// Fail records err unless an earlier error is already recorded. Format failures
// (ErrTruncated, ErrMalformed, ErrTrailingData) are wrapped in a *FormatError carrying
// the current offset; other errors, such as I/O failures from a stream, are kept as is.
func (r *Reader) Fail(err error) {
	if r.err != nil || err == nil {
		return
	}
	if IsFormatError(err) {
		r.err = err
		return
	}
	if errors.Is(err, ErrTruncated) || errors.Is(err, ErrMalformed) || errors.Is(err, ErrTrailingData) {
		r.err = &FormatError{Offset: r.off, Err: err}
		return
	}
	r.err = err
}

// finish enforces that a buffer has been consumed completely.
func (r *Reader) finish() {
	if r.err == nil && r.stream == nil && r.Remaining() > 0 {
		r.Fail(ErrTrailingData)
	}
}

// next returns the following n bytes. The slice is only valid until the next read.
func (r *Reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.stream == nil {
		if n > r.Remaining() {
			r.Fail(ErrTruncated)
			return nil
		}
		b := r.src[r.off : int(r.off)+n]
		r.off += int64(n)
		return b
	}
	if n <= len(r.scratch) {
		b := r.scratch[:n]
		if !r.fill(b) {
			return nil
		}
		return b
	}
	b := make([]byte, 0, min(n, streamChunk))
	for len(b) < n {
		start := len(b)
		b = append(b, make([]byte, min(n-start, streamChunk))...)
		if !r.fill(b[start:]) {
			return nil
		}
	}
	return b
}

func (r *Reader) fill(b []byte) bool {
	k, err := io.ReadFull(r.stream, b)
	r.off += int64(k)
	if err == nil {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		r.Fail(ErrTruncated)
	} else {
		r.Fail(err)
	}
	return false
}

func (r *Reader) Uint8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint32(b)
}

func (r *Reader) Uint64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return binary.LittleEndian.Uint64(b)
}

func (r *Reader) Int8() int8   { return int8(r.Uint8()) }
func (r *Reader) Int16() int16 { return int16(r.Uint16()) }
func (r *Reader) Int32() int32 { return int32(r.Uint32()) }
func (r *Reader) Int64() int64 { return int64(r.Uint64()) }

func (r *Reader) Int() int {
	v := r.Int64()
	if int64(int(v)) != v {
		r.Fail(malformed(fmt.Errorf("int %d overflows platform int", v)))
		return 0
	}
	return int(v)
}

func (r *Reader) Float32() float32 { return math.Float32frombits(r.Uint32()) }
func (r *Reader) Float64() float64 { return math.Float64frombits(r.Uint64()) }

func (r *Reader) Bool() bool {
	v := r.Uint8()
	if v > 1 {
		r.Fail(malformed(fmt.Errorf("invalid bool byte 0x%02x", v)))
		return false
	}
	return v == 1
}

// Count reads a sequence element count. In buffer mode a count larger than the
// remaining input is reported as truncated.
func (r *Reader) Count() int {
	n := r.Uint64()
	if r.err != nil {
		return 0
	}
	if n > math.MaxInt {
		r.Fail(malformed(fmt.Errorf("count %d overflows int", n)))
		return 0
	}
	if r.stream == nil && n > uint64(r.Remaining()) {
		r.Fail(ErrTruncated)
		return 0
	}
	return int(n)
}

// Bytes reads a length-prefixed byte string. An empty string decodes to nil.
func (r *Reader) Bytes() []byte {
	n := r.Count()
	if n == 0 {
		return nil
	}
	return r.Raw(n)
}

// String reads a length-prefixed string.
func (r *Reader) String() string {
	n := r.Count()
	if n == 0 {
		return ""
	}
	return string(r.next(n))
}

// Raw reads exactly n bytes written with Writer.Raw.
func (r *Reader) Raw(n int) []byte {
	b := r.next(n)
	if b == nil {
		return nil
	}
	if r.stream != nil && n > len(r.scratch) {
		return b
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}
