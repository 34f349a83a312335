package testkit

import (
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/keys"
	"xdao.co/chunkstore/storage"
)

// NewCAS constructs a fresh, empty chunk store for a test.
// The returned CAS MUST be isolated from other tests.
type NewCAS func(t *testing.T) storage.CAS

// Options selects optional parts of the suite.
type Options struct {
	// Signed runs the signed-chunk cases. Stores limited to hashable chunks leave it
	// false.
	Signed bool
}

func nameOf(t *testing.T, b []byte) chunk.Name {
	t.Helper()
	n, err := chunk.NameOf(b)
	if err != nil {
		t.Fatalf("NameOf failed: %v", err)
	}
	return n
}

func RunCASConformance(t *testing.T, newCAS NewCAS) {
	t.Helper()
	RunCASConformanceWith(t, newCAS, Options{Signed: true})
}

func RunCASConformanceWith(t *testing.T, newCAS NewCAS, opts Options) {
	t.Helper()

	t.Run("PutGetRoundTrip", func(t *testing.T) {
		cas := newCAS(t)
		want := []byte("hello, chunk storage")

		id, err := storage.PutContent(cas, want)
		if err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if id != nameOf(t, want) {
			t.Fatalf("Put name mismatch: got %s want %s", id, nameOf(t, want))
		}

		got, err := cas.Get(id)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, want) {
			t.Fatalf("Get bytes mismatch")
		}
		if nameOf(t, got) != id {
			t.Fatalf("Get returned bytes not matching requested name")
		}
	})

	t.Run("PutIdempotent", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("same bytes")
		id := nameOf(t, b)

		if err := cas.Put(id, b); err != nil {
			t.Fatalf("Put(1) failed: %v", err)
		}
		if err := cas.Put(id, b); err != nil {
			t.Fatalf("Put(2) failed: %v", err)
		}
	})

	t.Run("HasAndNotFound", func(t *testing.T) {
		cas := newCAS(t)
		b := []byte("missing")
		id := nameOf(t, b)

		if cas.Has(id) {
			t.Fatalf("Has returned true for missing name")
		}
		_, err := cas.Get(id)
		if !storage.IsNotFound(err) {
			t.Fatalf("Get missing: got err=%v want ErrNotFound", err)
		}

		if err := cas.Put(id, b); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
		if !cas.Has(id) {
			t.Fatalf("Has returned false after Put")
		}
	})

	t.Run("RejectInvalidName", func(t *testing.T) {
		cas := newCAS(t)
		for _, bad := range []chunk.Name{"", "not-a-cid", "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"} {
			if cas.Has(bad) {
				t.Fatalf("Has should be false for %q", bad)
			}
			if _, err := cas.Get(bad); err == nil {
				t.Fatalf("Get should fail for %q", bad)
			}
			if err := cas.Put(bad, []byte("x")); err == nil {
				t.Fatalf("Put should fail for %q", bad)
			}
		}
	})

	t.Run("RejectMismatchedContent", func(t *testing.T) {
		cas := newCAS(t)
		id := nameOf(t, []byte("original"))
		err := cas.Put(id, []byte("originaL"))
		if !errors.Is(err, storage.ErrInvalidChunk) {
			t.Fatalf("Put mismatched: got %v want ErrInvalidChunk", err)
		}
		if cas.Has(id) {
			t.Fatalf("rejected chunk must not be stored")
		}
	})

	if !opts.Signed {
		return
	}

	t.Run("SignedChunk", func(t *testing.T) {
		cas := newCAS(t)
		s, err := keys.NewEd25519Signer(ed25519.NewKeyFromSeed(bytes.Repeat([]byte{7}, ed25519.SeedSize)), keys.HashSHA256)
		if err != nil {
			t.Fatalf("NewEd25519Signer failed: %v", err)
		}
		name, v1, err := chunk.Sign(s, 1, []byte("v1"))
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		if err := cas.Put(name, v1); err != nil {
			t.Fatalf("Put(v1) failed: %v", err)
		}
		got, err := cas.Get(name)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		if !bytes.Equal(got, v1) {
			t.Fatalf("Get bytes mismatch")
		}

		_, v2, err := chunk.Sign(s, 2, []byte("v2"))
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		if err := cas.Put(name, v2); err != nil {
			t.Fatalf("Put(v2) failed: %v", err)
		}
		got, err = cas.Get(name)
		if err != nil {
			t.Fatalf("Get after replace failed: %v", err)
		}
		if !bytes.Equal(got, v2) {
			t.Fatalf("signed chunk was not replaced")
		}

		if err := cas.Put(name, v2); err != nil {
			t.Fatalf("Put(v2) again should be idempotent: %v", err)
		}
		if err := cas.Put(name, v1); !errors.Is(err, storage.ErrStale) {
			t.Fatalf("Put(v1) after v2: got %v want ErrStale", err)
		}
		_, rival, err := chunk.Sign(s, 2, []byte("other v2"))
		if err != nil {
			t.Fatalf("Sign failed: %v", err)
		}
		if err := cas.Put(name, rival); !errors.Is(err, storage.ErrStale) {
			t.Fatalf("Put same version: got %v want ErrStale", err)
		}
		got, err = cas.Get(name)
		if err != nil {
			t.Fatalf("Get after replay failed: %v", err)
		}
		if !bytes.Equal(got, v2) {
			t.Fatalf("replayed content replaced the newer version")
		}

		forged := bytes.Clone(v2)
		forged[len(forged)-1] ^= 1
		if err := cas.Put(name, forged); !errors.Is(err, storage.ErrInvalidChunk) {
			t.Fatalf("Put forged: got %v want ErrInvalidChunk", err)
		}
	})
}
