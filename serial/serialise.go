package serial

import "io"

// SerialisedData is the canonical byte representation of one or more values.
type SerialisedData []byte

// Value is one typed value queued for encoding. Build it with Val.
type Value interface {
	encode(w *Writer)
}

// Slot is one typed destination for decoding. Build it with Into.
//
// A slot decodes into private storage first; the destination is only assigned once
// the whole value sequence decoded, so a failed parse never leaves it half written.
type Slot interface {
	decode(r *Reader)
	commit()
}

type value[T any] struct {
	c Codec[T]
	v T
}

func (v value[T]) encode(w *Writer) { v.c.Write(w, v.v) }

// Val pairs v with its codec.
func Val[T any](c Codec[T], v T) Value {
	return value[T]{c: c, v: v}
}

type slot[T any] struct {
	c   Codec[T]
	dst *T
	tmp T
}

func (s *slot[T]) decode(r *Reader) { s.c.Read(r, &s.tmp) }
func (s *slot[T]) commit()          { *s.dst = s.tmp }

// Into pairs the destination dst with its codec.
func Into[T any](c Codec[T], dst *T) Slot {
	return &slot[T]{c: c, dst: dst}
}

// Sink is a reusable encoding buffer. Passing the same Sink to repeated SerialiseTo
// calls amortizes buffer growth; the output is identical to Serialise.
//
// A Sink must not be used by more than one goroutine at a time.
type Sink struct {
	w Writer
}

// Serialise encodes values, in order, into a fresh byte sequence.
func Serialise(values ...Value) (SerialisedData, error) {
	var s Sink
	return SerialiseTo(&s, values...)
}

// SerialiseTo encodes values using sink's buffer. The returned data is a copy and
// stays valid after sink is reused.
func SerialiseTo(sink *Sink, values ...Value) (SerialisedData, error) {
	sink.w.reset()
	for _, v := range values {
		v.encode(&sink.w)
	}
	if err := sink.w.Err(); err != nil {
		return nil, err
	}
	out := make(SerialisedData, sink.w.Len())
	copy(out, sink.w.buf)
	return out, nil
}

// Parse decodes exactly one value of type T from data. Truncated, malformed or
// trailing input yields a *FormatError and the zero value.
func Parse[T any](data []byte, c Codec[T]) (T, error) {
	var v T
	if err := ParseInto(data, Into(c, &v)); err != nil {
		var zero T
		return zero, err
	}
	return v, nil
}

// ParseInto decodes data into slots, in call order. data must hold exactly the
// encoded sequence; destinations are untouched when an error is returned.
func ParseInto(data []byte, slots ...Slot) error {
	r := NewReader(data)
	for _, s := range slots {
		s.decode(r)
	}
	r.finish()
	if err := r.Err(); err != nil {
		return err
	}
	for _, s := range slots {
		s.commit()
	}
	return nil
}

// ConvertToString encodes values into a string.
func ConvertToString(values ...Value) (string, error) {
	b, err := Serialise(values...)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ConvertFromString decodes s into slots. See ParseInto.
func ConvertFromString(s string, slots ...Slot) error {
	return ParseInto([]byte(s), slots...)
}

// Encoder writes value sequences to a stream.
type Encoder struct {
	dst  io.Writer
	sink Sink
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{dst: w}
}

// Encode writes values to the stream. The bytes written are identical to
// Serialise(values...).
func (e *Encoder) Encode(values ...Value) error {
	e.sink.w.reset()
	for _, v := range values {
		v.encode(&e.sink.w)
	}
	if err := e.sink.w.Err(); err != nil {
		return err
	}
	_, err := e.dst.Write(e.sink.w.buf)
	return err
}

// Decoder reads value sequences from a stream.
//
// Unlike ParseInto, Decode does not require the stream to end after the requested
// values. Once a Decode call fails the decoder is unusable.
type Decoder struct {
	r *Reader
}

func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: NewStreamReader(r)}
}

// Decode reads one value per slot, in call order.
func (d *Decoder) Decode(slots ...Slot) error {
	for _, s := range slots {
		s.decode(d.r)
	}
	if err := d.r.Err(); err != nil {
		return err
	}
	for _, s := range slots {
		s.commit()
	}
	return nil
}

// Offset returns the number of bytes consumed from the stream.
func (d *Decoder) Offset() int64 { return d.r.Offset() }
