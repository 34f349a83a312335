package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"errors"
	"io"
	"testing"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
)

type deterministicReader struct{ b byte }

func (r *deterministicReader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = r.b
		r.b++
	}
	return len(p), nil
}

func testSeed() []byte {
	seed := make([]byte, ed25519.SeedSize)
	for i := range seed {
		seed[i] = byte(i)
	}
	return seed
}

func TestEd25519Signer_Verifies(t *testing.T) {
	priv := ed25519.NewKeyFromSeed(testSeed())
	s, err := NewEd25519Signer(priv, HashSHA256)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}

	msg := []byte("hello")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}

	digest := sha256.Sum256(msg)
	if !ed25519.Verify(ed25519.PublicKey(s.PublicKey()), digest[:], sig) {
		t.Fatalf("signature did not verify")
	}
	if err := Verify(AlgEd25519, HashSHA256, s.PublicKey(), msg, sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := Verify(AlgEd25519, HashSHA256, s.PublicKey(), []byte("hellO"), sig); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("Verify tampered: got %v want ErrBadSignature", err)
	}
}

func TestDilithium3Signer_Verifies_SHA3_256(t *testing.T) {
	pk, sk, err := GenerateDilithium3Keypair(io.Reader(&deterministicReader{}))
	if err != nil {
		t.Fatalf("GenerateDilithium3Keypair: %v", err)
	}
	s, err := NewDilithium3Signer(pk, sk, HashSHA3256)
	if err != nil {
		t.Fatalf("NewDilithium3Signer: %v", err)
	}

	msg := []byte("hello")
	sig, err := s.Sign(msg)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if len(sig) != mode3.SignatureSize {
		t.Fatalf("unexpected signature size: got %d want %d", len(sig), mode3.SignatureSize)
	}
	if err := Verify(AlgDilithium3, HashSHA3256, s.PublicKey(), msg, sig); err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if err := Verify(AlgDilithium3, HashSHA256, s.PublicKey(), msg, sig); !errors.Is(err, ErrBadSignature) {
		t.Fatalf("Verify with wrong hash: got %v want ErrBadSignature", err)
	}
}

func TestVerify_RejectsUnknownAlgorithms(t *testing.T) {
	if err := Verify("rsa", HashSHA256, nil, nil, nil); err == nil {
		t.Fatalf("expected error for unknown signature algorithm")
	}
	if err := Verify(AlgEd25519, "md5", nil, nil, nil); err == nil {
		t.Fatalf("expected error for unknown hash algorithm")
	}
	if _, err := NewEd25519Signer(ed25519.NewKeyFromSeed(testSeed()), "md5"); err == nil {
		t.Fatalf("expected error for unknown hash algorithm")
	}
}

func TestKeyStore_CreateAndLoad(t *testing.T) {
	ks, err := CreateKeyStore(t.TempDir())
	if err != nil {
		t.Fatalf("CreateKeyStore: %v", err)
	}
	pub, _, err := ks.CreateKey("alice", testSeed(), false)
	if err != nil {
		t.Fatalf("CreateKey: %v", err)
	}
	if _, _, err := ks.CreateKey("alice", testSeed(), false); err == nil {
		t.Fatalf("expected error when overwriting without overwrite flag")
	}
	if _, _, err := ks.CreateKey("bad/name", testSeed(), false); err == nil {
		t.Fatalf("expected error for invalid identifier")
	}

	s, err := ks.Signer("alice", HashSHA512)
	if err != nil {
		t.Fatalf("Signer: %v", err)
	}
	if string(s.PublicKey()) != string(pub) {
		t.Fatalf("loaded key does not match created key")
	}

	ids, err := ks.ListKeys()
	if err != nil {
		t.Fatalf("ListKeys: %v", err)
	}
	if len(ids) != 1 || ids[0] != "alice" {
		t.Fatalf("ListKeys: got %v", ids)
	}
}
