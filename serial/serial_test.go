package serial

import (
	"bytes"
	"encoding/binary"
	"errors"
	"math"
	"testing"
	"testing/iotest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type record struct {
	ID     uint32
	Name   string
	Tags   []string
	Digest [32]byte
}

func (r *record) MarshalArchive(w *Writer) {
	w.Uint32(r.ID)
	w.String(r.Name)
	Slice(String).Write(w, r.Tags)
	Array32.Write(w, r.Digest)
}

func (r *record) UnmarshalArchive(rd *Reader) {
	r.ID = rd.Uint32()
	r.Name = rd.String()
	Slice(String).Read(rd, &r.Tags)
	Array32.Read(rd, &r.Digest)
}

var recordCodec = Self[record]()

type note struct {
	Title string            `cbor:"1,keyasint"`
	Attrs map[string]string `cbor:"2,keyasint"`
}

func TestRoundTrip_Sequence(t *testing.T) {
	seven := int16(-7)
	in := struct {
		u8   uint8
		u64  uint64
		i    int
		f    float64
		b    bool
		s    string
		raw  []byte
		nums []int32
		m    map[string]uint16
		opt  *int16
		none *int16
		recs []record
		n    note
	}{
		u8:   0xfe,
		u64:  math.MaxUint64,
		i:    -42,
		f:    math.Pi,
		b:    true,
		s:    "hello world",
		raw:  []byte{0, 1, 2, 3},
		nums: []int32{-1, 0, 1 << 30},
		m:    map[string]uint16{"b": 2, "a": 1, "c": 3},
		opt:  &seven,
		recs: []record{
			{ID: 1, Name: "one", Tags: []string{"x"}, Digest: [32]byte{1}},
			{ID: 2, Name: "two", Digest: [32]byte{31: 0xff}},
		},
		n: note{Title: "t", Attrs: map[string]string{"k": "v"}},
	}

	data, err := Serialise(
		Val(Uint8, in.u8),
		Val(Uint64, in.u64),
		Val(Int, in.i),
		Val(Float64, in.f),
		Val(Bool, in.b),
		Val(String, in.s),
		Val(Bytes, in.raw),
		Val(Slice(Int32), in.nums),
		Val(Map(String, Uint16), in.m),
		Val(Optional(Int16), in.opt),
		Val(Optional(Int16), in.none),
		Val(Slice(recordCodec), in.recs),
		Val(CBOR[note](), in.n),
	)
	require.NoError(t, err)

	out := in
	out.u8, out.u64, out.i, out.f, out.b, out.s = 0, 0, 0, 0, false, ""
	out.raw, out.nums, out.m, out.opt, out.recs, out.n = nil, nil, nil, nil, nil, note{}
	err = ParseInto(data,
		Into(Uint8, &out.u8),
		Into(Uint64, &out.u64),
		Into(Int, &out.i),
		Into(Float64, &out.f),
		Into(Bool, &out.b),
		Into(String, &out.s),
		Into(Bytes, &out.raw),
		Into(Slice(Int32), &out.nums),
		Into(Map(String, Uint16), &out.m),
		Into(Optional(Int16), &out.opt),
		Into(Optional(Int16), &out.none),
		Into(Slice(recordCodec), &out.recs),
		Into(CBOR[note](), &out.n),
	)
	require.NoError(t, err)

	assert.Equal(t, in.u8, out.u8)
	assert.Equal(t, in.u64, out.u64)
	assert.Equal(t, in.i, out.i)
	assert.Equal(t, in.f, out.f)
	assert.Equal(t, in.b, out.b)
	assert.Equal(t, in.s, out.s)
	assert.Equal(t, in.raw, out.raw)
	assert.Equal(t, in.nums, out.nums)
	assert.Equal(t, in.m, out.m)
	require.NotNil(t, out.opt)
	assert.Equal(t, *in.opt, *out.opt)
	assert.Nil(t, out.none)
	assert.Equal(t, in.recs, out.recs)
	assert.Equal(t, in.n, out.n)

	again, err := Serialise(
		Val(Uint8, out.u8), Val(Uint64, out.u64), Val(Int, out.i), Val(Float64, out.f),
		Val(Bool, out.b), Val(String, out.s), Val(Bytes, out.raw), Val(Slice(Int32), out.nums),
		Val(Map(String, Uint16), out.m), Val(Optional(Int16), out.opt), Val(Optional(Int16), out.none),
		Val(Slice(recordCodec), out.recs), Val(CBOR[note](), out.n),
	)
	require.NoError(t, err)
	assert.Equal(t, data, again, "re-encoding decoded values must reproduce the bytes")
}

func TestParse_SingleValue(t *testing.T) {
	want := record{ID: 9, Name: "nine", Tags: []string{"a", "b"}, Digest: [32]byte{9}}
	data, err := Serialise(Val(recordCodec, want))
	require.NoError(t, err)

	got, err := Parse(data, recordCodec)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestWireLayout(t *testing.T) {
	data, err := Serialise(
		Val(Uint32, 1),
		Val(String, "ab"),
		Val(Int16, -2),
		Val(Optional(Uint8), nil),
		Val(Map(Uint8, Bool), map[uint8]bool{2: false, 1: true}),
	)
	require.NoError(t, err)

	want := []byte{
		0x01, 0x00, 0x00, 0x00, // uint32
		0x02, 0, 0, 0, 0, 0, 0, 0, 'a', 'b', // string
		0xfe, 0xff, // int16
		0x00,                   // absent optional
		0x02, 0, 0, 0, 0, 0, 0, 0, // map count
		0x01, 0x01, // 1 => true
		0x02, 0x00, // 2 => false
	}
	assert.Equal(t, want, []byte(data))
}

func TestSerialiseTo_ReusedSinkMatches(t *testing.T) {
	var sink Sink
	first, err := SerialiseTo(&sink, Val(String, "a much longer first value"), Val(Uint64, 1))
	require.NoError(t, err)
	second, err := SerialiseTo(&sink, Val(String, "short"), Val(Uint64, 2))
	require.NoError(t, err)

	fresh, err := Serialise(Val(String, "short"), Val(Uint64, 2))
	require.NoError(t, err)
	assert.Equal(t, fresh, second)

	s, err := Parse(first[:len(first)-8], String)
	require.NoError(t, err, "earlier output must not be clobbered by sink reuse")
	assert.Equal(t, "a much longer first value", s)
}

func TestEncoder_MatchesBuffer(t *testing.T) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)
	require.NoError(t, enc.Encode(Val(String, "x"), Val(Int64, -1)))
	require.NoError(t, enc.Encode(Val(Bool, true)))

	a, err := Serialise(Val(String, "x"), Val(Int64, -1))
	require.NoError(t, err)
	b, err := Serialise(Val(Bool, true))
	require.NoError(t, err)
	assert.Equal(t, append(a, b...), SerialisedData(buf.Bytes()))

	dec := NewDecoder(bytes.NewReader(buf.Bytes()))
	var s string
	var n int64
	var ok bool
	require.NoError(t, dec.Decode(Into(String, &s), Into(Int64, &n)))
	require.NoError(t, dec.Decode(Into(Bool, &ok)))
	assert.Equal(t, "x", s)
	assert.Equal(t, int64(-1), n)
	assert.True(t, ok)
	assert.Equal(t, int64(buf.Len()), dec.Offset())
}

func TestDecoder_LargeByteString(t *testing.T) {
	payload := bytes.Repeat([]byte("0123456789abcdef"), streamChunk/8)
	data, err := Serialise(Val(Bytes, payload))
	require.NoError(t, err)

	var got []byte
	dec := NewDecoder(iotest.HalfReader(bytes.NewReader(data)))
	require.NoError(t, dec.Decode(Into(Bytes, &got)))
	assert.Equal(t, payload, got)
}

func TestParse_Truncated(t *testing.T) {
	data, err := Serialise(Val(Uint64, 7))
	require.NoError(t, err)

	got, err := Parse(data[:7], Uint64)
	require.Error(t, err)
	assert.True(t, IsFormatError(err))
	assert.ErrorIs(t, err, ErrTruncated)
	assert.Zero(t, got)

	_, err = Parse(nil, recordCodec)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParse_TruncatedComposite(t *testing.T) {
	data, err := Serialise(Val(recordCodec, record{ID: 1, Name: "n", Tags: []string{"a", "b"}}))
	require.NoError(t, err)

	for cut := 0; cut < len(data); cut++ {
		got, err := Parse(data[:cut], recordCodec)
		require.ErrorIs(t, err, ErrTruncated, "cut at %d", cut)
		assert.Equal(t, record{}, got, "cut at %d", cut)
	}
}

func TestParse_TrailingData(t *testing.T) {
	data, err := Serialise(Val(Uint16, 1), Val(Uint8, 2))
	require.NoError(t, err)

	_, err = Parse(data, Uint16)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTrailingData)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, int64(2), fe.Offset)
}

func TestParse_OversizedCount(t *testing.T) {
	data := []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x7f, 'x'}
	_, err := Parse(data, Bytes)
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = Parse(data, Slice(Uint8))
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte{2}, Bool)
	assert.ErrorIs(t, err, ErrMalformed)

	_, err = Parse([]byte{5, 0}, Optional(Uint8))
	assert.ErrorIs(t, err, ErrMalformed)

	unordered := []byte{
		0x02, 0, 0, 0, 0, 0, 0, 0,
		0x02, 0x00,
		0x01, 0x00,
	}
	_, err = Parse(unordered, Map(Uint8, Uint8))
	assert.ErrorIs(t, err, ErrMalformed)

	dup := []byte{
		0x02, 0, 0, 0, 0, 0, 0, 0,
		0x01, 0x00,
		0x01, 0x00,
	}
	_, err = Parse(dup, Map(Uint8, Uint8))
	assert.ErrorIs(t, err, ErrMalformed)

	nan := make([]byte, 0, 24)
	nan = append(nan, 0x01, 0, 0, 0, 0, 0, 0, 0)
	nan = binary.LittleEndian.AppendUint64(nan, math.Float64bits(math.NaN()))
	nan = binary.LittleEndian.AppendUint64(nan, 1)
	_, err = Parse(nan, Map(Float64, Int))
	assert.ErrorIs(t, err, ErrMalformed)

	notCBOR, err := Serialise(Val(Bytes, []byte{0xff}))
	require.NoError(t, err)
	_, err = Parse(notCBOR, CBOR[note]())
	assert.ErrorIs(t, err, ErrMalformed)
}

func TestParseInto_LeavesDestinationsOnFailure(t *testing.T) {
	data, err := Serialise(Val(String, "new"), Val(Uint32, 5))
	require.NoError(t, err)

	s, n := "old", uint32(1)
	err = ParseInto(data[:len(data)-1], Into(String, &s), Into(Uint32, &n))
	require.ErrorIs(t, err, ErrTruncated)
	assert.Equal(t, "old", s)
	assert.Equal(t, uint32(1), n)
}

func TestDecoder_Errors(t *testing.T) {
	data, err := Serialise(Val(Uint64, 1))
	require.NoError(t, err)

	var v uint64
	err = NewDecoder(bytes.NewReader(data[:3])).Decode(Into(Uint64, &v))
	assert.ErrorIs(t, err, ErrTruncated)

	ioErr := errors.New("disk on fire")
	err = NewDecoder(iotest.ErrReader(ioErr)).Decode(Into(Uint64, &v))
	assert.ErrorIs(t, err, ioErr)
	assert.False(t, IsFormatError(err))
}

func TestConvertString(t *testing.T) {
	s, err := ConvertToString(Val(String, "k"), Val(Int32, 3))
	require.NoError(t, err)

	var k string
	var n int32
	require.NoError(t, ConvertFromString(s, Into(String, &k), Into(Int32, &n)))
	assert.Equal(t, "k", k)
	assert.Equal(t, int32(3), n)
}

func TestMap_NaNKeysFailToEncode(t *testing.T) {
	for _, m := range []map[float64]int{
		{math.NaN(): 1},
		{math.NaN(): 1, math.NaN(): 2, 0.5: 3},
	} {
		data, err := Serialise(Val(Map(Float64, Int), m))
		assert.Nil(t, data)
		assert.ErrorIs(t, err, ErrMalformed)
	}

	data, err := Serialise(Val(Map(Float64, Int), map[float64]int{math.Inf(-1): 1, 0: 2}))
	require.NoError(t, err)
	got, err := Parse(data, Map(Float64, Int))
	require.NoError(t, err)
	assert.Equal(t, map[float64]int{math.Inf(-1): 1, 0: 2}, got)
}
