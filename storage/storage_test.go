package storage_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/storage"
	"xdao.co/chunkstore/storage/testkit"
)

// memCAS stores whatever it is given. It relies on storage.Guard for validation.
type memCAS struct {
	mu sync.Mutex
	m  map[chunk.Name][]byte
}

func newMem() *memCAS { return &memCAS{m: map[chunk.Name][]byte{}} }

func (c *memCAS) Put(name chunk.Name, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[name] = append([]byte(nil), content...)
	return nil
}

func (c *memCAS) Get(name chunk.Name) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.m[name]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), b...), nil
}

func (c *memCAS) Has(name chunk.Name) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.m[name]
	return ok
}

func TestGuard_Conformance(t *testing.T) {
	testkit.RunCASConformance(t, func(t *testing.T) storage.CAS {
		return storage.NewGuard(newMem(), nil)
	})
}

func TestGuard_CatchesCorruptBackend(t *testing.T) {
	mem := newMem()
	g := storage.NewGuard(mem, nil)

	name, err := storage.PutContent(g, []byte("payload"))
	require.NoError(t, err)

	mem.m[name] = []byte("tampered")
	_, err = g.Get(name)
	require.ErrorIs(t, err, storage.ErrInvalidChunk)
	assert.True(t, chunk.IsKind(err, chunk.KindMismatch))
	assert.True(t, storage.IsInvalid(err))
}

func TestMultiCAS_FallsBackPastCorruptCopy(t *testing.T) {
	first, second := newMem(), newMem()
	content := []byte("replicated")
	name, err := chunk.NameOf(content)
	require.NoError(t, err)

	first.m[name] = []byte("bad copy")
	second.m[name] = content

	m := storage.MultiCAS{Adapters: []storage.CAS{
		storage.NewGuard(first, nil),
		storage.NewGuard(second, nil),
	}}
	got, err := m.Get(name)
	require.NoError(t, err)
	assert.Equal(t, content, got)
	assert.True(t, m.Has(name))

	only := storage.MultiCAS{Adapters: []storage.CAS{storage.NewGuard(first, nil)}}
	_, err = only.Get(name)
	assert.ErrorIs(t, err, storage.ErrInvalidChunk)

	other, err := chunk.NameOf([]byte("absent"))
	require.NoError(t, err)
	_, err = m.Get(other)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	assert.Error(t, storage.MultiCAS{}.Put(name, content))
}

func TestReplicatingCAS_PutAll(t *testing.T) {
	a, b := newMem(), newMem()
	r := storage.ReplicatingCAS{Backends: []storage.NamedCAS{
		{Name: "a", CAS: storage.NewGuard(a, nil)},
		{Name: "b", CAS: storage.NewGuard(b, nil)},
	}}

	content := []byte("everywhere")
	name, err := chunk.NameOf(content)
	require.NoError(t, err)

	res, err := r.PutAll(name, content)
	require.NoError(t, err)
	assert.Equal(t, map[string]error{"a": nil, "b": nil}, res)
	assert.True(t, a.Has(name))
	assert.True(t, b.Has(name))

	res, err = r.PutAll(name, []byte("elsewhere"))
	require.Error(t, err)
	assert.ErrorIs(t, err, storage.ErrInvalidChunk)
	assert.Contains(t, res, "a")
	assert.NotContains(t, res, "b")

	got, err := r.Get(name)
	require.NoError(t, err)
	assert.Equal(t, content, got)

	_, err = storage.ReplicatingCAS{}.PutAll(name, content)
	assert.Error(t, err)
}

func TestPutContent_PropagatesErrors(t *testing.T) {
	want := errors.New("backend down")
	_, err := storage.PutContent(failing{err: want}, []byte("x"))
	assert.ErrorIs(t, err, want)
}

type failing struct{ err error }

func (f failing) Put(chunk.Name, []byte) error    { return f.err }
func (f failing) Get(chunk.Name) ([]byte, error) { return nil, f.err }
func (f failing) Has(chunk.Name) bool            { return false }
