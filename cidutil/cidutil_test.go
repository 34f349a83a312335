package cidutil

import (
	"bytes"
	"crypto/sha256"
	"testing"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

func TestCIDv1RawSHA256_MatchesIncremental(t *testing.T) {
	data := []byte("hello world")
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		t.Fatalf("CIDv1RawSHA256CID: %v", err)
	}

	h, err := NewHasher(Canonical)
	if err != nil {
		t.Fatalf("NewHasher: %v", err)
	}
	_, _ = h.Write(data[:5])
	_, _ = h.Write(data[5:])
	id2, err := CIDv1RawFromDigest(h.Sum(nil), Canonical)
	if err != nil {
		t.Fatalf("CIDv1RawFromDigest: %v", err)
	}
	if id != id2 {
		t.Fatalf("incremental CID mismatch: %s vs %s", id, id2)
	}
	if got := CIDv1RawSHA256(data); got != id.String() {
		t.Fatalf("string form mismatch: %s vs %s", got, id)
	}
}

func TestDecode(t *testing.T) {
	data := []byte("hello world")
	s := CIDv1RawSHA256(data)
	d, err := Decode(s)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Codec != cid.Raw || d.Code != multihash.SHA2_256 {
		t.Fatalf("unexpected prefix: codec=%x code=%x", d.Codec, d.Code)
	}
	want := sha256.Sum256(data)
	if !bytes.Equal(d.Digest, want[:]) {
		t.Fatalf("digest mismatch")
	}

	if _, err := Decode("not-a-cid"); err == nil {
		t.Fatalf("expected error for garbage")
	}
	v0 := cid.NewCidV0(d.CID.Hash())
	if _, err := Decode(v0.String()); err == nil {
		t.Fatalf("expected error for CIDv0")
	}
	b58, err := d.CID.StringOfBase('z')
	if err != nil {
		t.Fatalf("StringOfBase: %v", err)
	}
	if _, err := Decode(b58); err == nil {
		t.Fatalf("expected error for non-canonical multibase")
	}
}

func TestKeyCID(t *testing.T) {
	id, err := KeyCID([]byte("public key bytes"))
	if err != nil {
		t.Fatalf("KeyCID: %v", err)
	}
	if id.Type() != cid.Libp2pKey {
		t.Fatalf("unexpected codec %x", id.Type())
	}
	if _, err := KeyCID(nil); err == nil {
		t.Fatalf("expected error for empty key")
	}
}
