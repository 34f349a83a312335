package keys

import (
	"crypto/ed25519"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"io"

	"github.com/cloudflare/circl/sign/dilithium/mode3"
	"golang.org/x/crypto/sha3"
)

// Signature algorithms.
const (
	AlgEd25519    = "ed25519"
	AlgDilithium3 = "dilithium3"
)

// Message digest algorithms. The signature covers hash(message), not the message.
const (
	HashSHA256  = "sha256"
	HashSHA512  = "sha512"
	HashSHA3256 = "sha3-256"
)

// ErrBadSignature is returned by Verify when the signature does not verify.
var ErrBadSignature = errors.New("keys: signature invalid")

func digestFor(hashAlg string, message []byte) ([]byte, error) {
	switch hashAlg {
	case HashSHA256:
		s := sha256.Sum256(message)
		return s[:], nil
	case HashSHA512:
		s := sha512.Sum512(message)
		return s[:], nil
	case HashSHA3256:
		s := sha3.Sum256(message)
		return s[:], nil
	default:
		return nil, fmt.Errorf("unsupported hash algorithm: %q", hashAlg)
	}
}

// Signer signs chunk payloads on behalf of one owner key.
type Signer interface {
	Alg() string
	HashAlg() string
	PublicKey() []byte
	// Sign returns the signature over HashAlg(message).
	Sign(message []byte) ([]byte, error)
}

type ed25519Signer struct {
	priv    ed25519.PrivateKey
	hashAlg string
}

// NewEd25519Signer returns a Signer for priv. hashAlg must be one of HashSHA256,
// HashSHA512, HashSHA3256.
func NewEd25519Signer(priv ed25519.PrivateKey, hashAlg string) (Signer, error) {
	if len(priv) != ed25519.PrivateKeySize {
		return nil, fmt.Errorf("ed25519 private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if _, err := digestFor(hashAlg, nil); err != nil {
		return nil, err
	}
	return ed25519Signer{priv: priv, hashAlg: hashAlg}, nil
}

func (s ed25519Signer) Alg() string     { return AlgEd25519 }
func (s ed25519Signer) HashAlg() string { return s.hashAlg }

func (s ed25519Signer) PublicKey() []byte {
	return []byte(s.priv.Public().(ed25519.PublicKey))
}

func (s ed25519Signer) Sign(message []byte) ([]byte, error) {
	digest, err := digestFor(s.hashAlg, message)
	if err != nil {
		return nil, err
	}
	return ed25519.Sign(s.priv, digest), nil
}

type dilithium3Signer struct {
	pub     *mode3.PublicKey
	priv    *mode3.PrivateKey
	hashAlg string
}

// NewDilithium3Signer returns a post-quantum Signer for the given keypair.
func NewDilithium3Signer(pub *mode3.PublicKey, priv *mode3.PrivateKey, hashAlg string) (Signer, error) {
	if pub == nil || priv == nil {
		return nil, fmt.Errorf("missing dilithium3 key")
	}
	if _, err := digestFor(hashAlg, nil); err != nil {
		return nil, err
	}
	return dilithium3Signer{pub: pub, priv: priv, hashAlg: hashAlg}, nil
}

func (s dilithium3Signer) Alg() string       { return AlgDilithium3 }
func (s dilithium3Signer) HashAlg() string   { return s.hashAlg }
func (s dilithium3Signer) PublicKey() []byte { return s.pub.Bytes() }

func (s dilithium3Signer) Sign(message []byte) ([]byte, error) {
	digest, err := digestFor(s.hashAlg, message)
	if err != nil {
		return nil, err
	}
	sig := make([]byte, mode3.SignatureSize)
	mode3.SignTo(s.priv, digest, sig)
	return sig, nil
}

// GenerateDilithium3Keypair returns a new Dilithium3 keypair.
func GenerateDilithium3Keypair(rand io.Reader) (*mode3.PublicKey, *mode3.PrivateKey, error) {
	return mode3.GenerateKey(rand)
}

// Verify checks sig over hashAlg(message) under the public key pub.
func Verify(alg, hashAlg string, pub, message, sig []byte) error {
	digest, err := digestFor(hashAlg, message)
	if err != nil {
		return err
	}
	switch alg {
	case AlgEd25519:
		if len(pub) != ed25519.PublicKeySize {
			return fmt.Errorf("invalid ed25519 public key length %d", len(pub))
		}
		if len(sig) != ed25519.SignatureSize {
			return fmt.Errorf("invalid ed25519 signature length %d", len(sig))
		}
		if !ed25519.Verify(ed25519.PublicKey(pub), digest, sig) {
			return ErrBadSignature
		}
		return nil
	case AlgDilithium3:
		var pk mode3.PublicKey
		if err := pk.UnmarshalBinary(pub); err != nil {
			return fmt.Errorf("invalid dilithium3 public key: %w", err)
		}
		if len(sig) != mode3.SignatureSize {
			return fmt.Errorf("invalid dilithium3 signature length %d", len(sig))
		}
		if !mode3.Verify(&pk, digest, sig) {
			return ErrBadSignature
		}
		return nil
	default:
		return fmt.Errorf("unsupported signature algorithm: %q", alg)
	}
}
