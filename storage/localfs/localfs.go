package localfs

import (
	"bytes"
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/storage"
)

// CAS is a local filesystem-backed chunk store.
//
// Chunks are keyed by name, one file per chunk under a two-character fan-out
// directory. Content is validated on Put and, through the file path, on Get.
// This implementation is offline and deterministic: it never uses the network
// and never depends on wall-clock time.
type CAS struct {
	root string
	v    *chunk.Validation

	// mu serialises replacements of signed chunks.
	mu sync.Mutex
}

var (
	_ storage.CAS    = (*CAS)(nil)
	_ storage.Lister = (*CAS)(nil)
	_ storage.Pather = (*CAS)(nil)
)

// Option configures a CAS.
type Option func(*CAS)

// WithValidation replaces the default validation.
func WithValidation(v *chunk.Validation) Option {
	return func(c *CAS) {
		if v != nil {
			c.v = v
		}
	}
}

// New constructs a filesystem CAS rooted at root. The directory will be created if needed.
func New(root string, opts ...Option) (*CAS, error) {
	if root == "" {
		return nil, errors.New("localfs: root directory is required")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, err
	}
	c := &CAS{root: root, v: chunk.NewValidation()}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// Root returns the store directory.
func (c *CAS) Root() string { return c.root }

func (c *CAS) Put(name chunk.Name, content []byte) error {
	if !c.v.ValidName(name) {
		return storage.ErrInvalidName
	}
	if err := c.v.Check(name, content); err != nil {
		return storage.InvalidChunk(err)
	}

	path := c.pathFor(name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	if !c.v.Hashable(name) {
		return c.replace(name, path, content)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o444)
	if err != nil {
		if os.IsExist(err) {
			existing, rerr := c.Get(name)
			if rerr != nil {
				// If the file exists but is unreadable or corrupted, treat as an immutability violation.
				return storage.ErrImmutable
			}
			if !bytes.Equal(existing, content) {
				return storage.ErrImmutable
			}
			return nil
		}
		return err
	}
	defer f.Close()

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		_ = os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(path)
		return err
	}
	return nil
}

// replace writes content for a mutable chunk through a temp file and rename, so
// readers see either the old or the new content. A valid stored copy is only
// replaced by a higher version.
func (c *CAS) replace(name chunk.Name, path string, content []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	stored, err := os.ReadFile(path)
	switch {
	case err == nil:
		if c.v.Check(name, stored) == nil {
			if err := storage.CheckReplace(stored, content); err != nil {
				return err
			}
		}
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	f, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	cleanup := func() { _ = os.Remove(tmp) }

	if _, err := f.Write(content); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		cleanup()
		return err
	}
	if err := f.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Chmod(tmp, 0o444); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		cleanup()
		return err
	}
	return nil
}

// Get validates the stored file before reading it into memory.
func (c *CAS) Get(name chunk.Name) ([]byte, error) {
	return c.GetContext(context.Background(), name)
}

// GetContext is Get with cancellation while the stored file is validated.
func (c *CAS) GetContext(ctx context.Context, name chunk.Name) ([]byte, error) {
	if !c.v.ValidName(name) {
		return nil, storage.ErrInvalidName
	}
	path := c.pathFor(name)
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if err := c.v.CheckFileContext(ctx, name, path); err != nil {
		if chunk.Rejected(err) {
			return nil, storage.InvalidChunk(err)
		}
		return nil, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	return b, nil
}

func (c *CAS) Has(name chunk.Name) bool {
	if !c.v.ValidName(name) {
		return false
	}
	_, err := os.Stat(c.pathFor(name))
	return err == nil
}

// Path returns the file holding name. The file may not exist.
func (c *CAS) Path(name chunk.Name) (string, error) {
	if !c.v.ValidName(name) {
		return "", storage.ErrInvalidName
	}
	return c.pathFor(name), nil
}

// Names lists stored chunks in lexical order. Files whose names are not valid chunk
// names are ignored.
func (c *CAS) Names() ([]chunk.Name, error) {
	var out []chunk.Name
	err := filepath.WalkDir(c.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		n := chunk.Name(d.Name())
		if c.v.ValidName(n) && c.pathFor(n) == path {
			out = append(out, n)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (c *CAS) pathFor(name chunk.Name) string {
	s := string(name)
	if len(s) < 2 {
		return filepath.Join(c.root, s)
	}
	// CIDv1 strings share their leading characters; fan out on the tail.
	return filepath.Join(c.root, s[len(s)-2:], s)
}
