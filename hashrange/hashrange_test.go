package hashrange

import (
	"bytes"
	"crypto/sha256"
	"errors"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/chunkstore/serial"
)

type ring struct {
	buf   []byte
	start int
}

func TestSum_ShapesAgree(t *testing.T) {
	content := []byte("hello world")
	want := sha256.Sum256(content)

	var arr32 [32]byte
	copy(arr32[:], bytes.Repeat([]byte{7}, 32))

	shapes := []any{
		content,
		string(content),
		serial.SerialisedData(content),
		[][]byte{[]byte("hel"), nil, []byte("lo "), []byte("world")},
		bytes.NewBuffer(append([]byte(nil), content...)),
		bytes.NewReader(content),
	}
	for _, v := range shapes {
		got, err := Sum(sha256.New(), v)
		require.NoError(t, err, "%T", v)
		assert.Equal(t, want[:], got, "%T", v)
	}

	a, err := Sum(sha256.New(), arr32)
	require.NoError(t, err)
	b, err := Sum(sha256.New(), arr32[:])
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestSum_ReaderPositionUntouched(t *testing.T) {
	r := bytes.NewReader([]byte("abc"))
	_, err := Sum(sha256.New(), r)
	require.NoError(t, err)
	assert.Equal(t, 3, r.Len())
}

func TestUnregistered(t *testing.T) {
	_, err := Sum(sha256.New(), []int{1, 2})
	assert.ErrorIs(t, err, ErrUnhashable)
	assert.False(t, Registered(struct{}{}))
	assert.False(t, Registered(nil))
	assert.True(t, Registered([]byte(nil)))
}

func TestAdd_CustomShape(t *testing.T) {
	r := New()
	require.NoError(t, Add(r, func(v ring, w io.Writer) error {
		if _, err := w.Write(v.buf[v.start:]); err != nil {
			return err
		}
		_, err := w.Write(v.buf[:v.start])
		return err
	}))

	rotated := ring{buf: []byte("worldhello "), start: 5}
	got, err := r.Sum(sha256.New(), rotated)
	require.NoError(t, err)
	want := sha256.Sum256([]byte("hello world"))
	assert.Equal(t, want[:], got)

	err = Add(r, func(v ring, w io.Writer) error { return nil })
	assert.Error(t, err, "duplicate registration")

	err = Add[io.Reader](r, func(v io.Reader, w io.Writer) error { return nil })
	assert.Error(t, err, "interface registration")
}

func TestFreeze(t *testing.T) {
	r := New()
	r.Freeze()
	err := Add(r, func(v ring, w io.Writer) error { return nil })
	assert.True(t, errors.Is(err, ErrFrozen))
	assert.True(t, r.Registered("still readable"))
}
