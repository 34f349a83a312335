package chunk

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/chunkstore/cidutil"
	"xdao.co/chunkstore/keys"
	"xdao.co/chunkstore/serial"
)

// MaxSignedSize bounds the encoded size of a signed chunk.
const MaxSignedSize = 4 << 20

// SignedContent is the stored form of a signed chunk. The signature covers the
// version and the payload, see SignedMessage.
type SignedContent struct {
	Alg     string
	HashAlg string
	// Version orders successive contents under one name. A store replaces a signed
	// chunk only with a higher version.
	Version   uint64
	PublicKey []byte
	Signature []byte
	Payload   []byte
}

func (s *SignedContent) MarshalArchive(w *serial.Writer) {
	w.String(s.Alg)
	w.String(s.HashAlg)
	w.Uint64(s.Version)
	w.Bytes(s.PublicKey)
	w.Bytes(s.Signature)
	w.Bytes(s.Payload)
}

func (s *SignedContent) UnmarshalArchive(r *serial.Reader) {
	s.Alg = r.String()
	s.HashAlg = r.String()
	s.Version = r.Uint64()
	s.PublicKey = r.Bytes()
	s.Signature = r.Bytes()
	s.Payload = r.Bytes()
}

// SignedContentCodec encodes SignedContent with the serial archive.
var SignedContentCodec = serial.Self[SignedContent]()

// SignedMessage returns the bytes a signed chunk's signature covers.
func SignedMessage(version uint64, payload []byte) (serial.SerialisedData, error) {
	return serial.Serialise(serial.Val(serial.Uint64, version), serial.Val(serial.Bytes, payload))
}

// Sign builds a signed chunk carrying payload at version. The returned name is
// derived from the signer's public key, so re-signing new payloads with the same key
// yields the same name.
func Sign(signer keys.Signer, version uint64, payload []byte) (Name, serial.SerialisedData, error) {
	if signer == nil {
		return "", nil, errors.New("chunk: nil signer")
	}
	id, err := cidutil.KeyCID(signer.PublicKey())
	if err != nil {
		return "", nil, err
	}
	msg, err := SignedMessage(version, payload)
	if err != nil {
		return "", nil, err
	}
	sig, err := signer.Sign(msg)
	if err != nil {
		return "", nil, err
	}
	sc := SignedContent{
		Alg:       signer.Alg(),
		HashAlg:   signer.HashAlg(),
		Version:   version,
		PublicKey: signer.PublicKey(),
		Signature: sig,
		Payload:   payload,
	}
	data, err := serial.Serialise(serial.Val(SignedContentCodec, sc))
	if err != nil {
		return "", nil, err
	}
	return Name(id.String()), data, nil
}

// DecodeSigned parses signed chunk content without verifying it.
func DecodeSigned(content []byte) (SignedContent, error) {
	sc, err := serial.Parse(content, SignedContentCodec)
	if err != nil {
		return SignedContent{}, wrapError(KindFormat, "CHUNK-SIG-001", "malformed signed chunk", err)
	}
	return sc, nil
}

// Signed validates signed chunks. Validity is a policy on the owner key and
// signature; no digest of the content is compared against the name.
//
// The zero value is ready to use.
type Signed struct {
	// MaxSize bounds accepted content. Zero means MaxSignedSize.
	MaxSize int64
}

var _ Validator = Signed{}

func (s Signed) maxSize() int64 {
	if s.MaxSize > 0 {
		return s.MaxSize
	}
	return MaxSignedSize
}

func (s Signed) parseName(name Name) error {
	dec, err := cidutil.Decode(string(name))
	if err != nil {
		return wrapError(KindName, "CHUNK-NAME-001", "malformed chunk name", err)
	}
	if dec.Codec != cid.Libp2pKey {
		return newError(KindName, "CHUNK-NAME-002", "not a signed chunk name")
	}
	if dec.Code != multihash.SHA2_256 || len(dec.Digest) != 32 {
		return newError(KindName, "CHUNK-NAME-003", "signed chunk names use a sha2-256 key digest")
	}
	return nil
}

func (s Signed) ValidName(name Name) bool {
	return s.parseName(name) == nil
}

func (Signed) Hashable(Name) bool { return false }

func (s Signed) ValidChunk(name Name, content []byte) bool {
	return s.Check(name, content) == nil
}

func (s Signed) ValidChunkFile(name Name, path string) (bool, error) {
	return result(s.CheckFile(context.Background(), name, path))
}

// Check validates in-memory signed content.
func (s Signed) Check(name Name, content []byte) error {
	if err := s.parseName(name); err != nil {
		return err
	}
	if int64(len(content)) > s.maxSize() {
		return newError(KindFormat, "CHUNK-SIG-004", "signed chunk exceeds size limit")
	}
	sc, err := DecodeSigned(content)
	if err != nil {
		return err
	}
	owner, err := cidutil.KeyCID(sc.PublicKey)
	if err != nil {
		return wrapError(KindMismatch, "CHUNK-SIG-002", "owner key does not match chunk name", err)
	}
	if owner.String() != string(name) {
		return newError(KindMismatch, "CHUNK-SIG-002", "owner key does not match chunk name")
	}
	msg, err := SignedMessage(sc.Version, sc.Payload)
	if err != nil {
		return wrapError(KindFormat, "CHUNK-SIG-001", "malformed signed chunk", err)
	}
	if err := keys.Verify(sc.Alg, sc.HashAlg, sc.PublicKey, msg, sc.Signature); err != nil {
		return wrapError(KindSignature, "CHUNK-SIG-003", "signature does not verify", err)
	}
	return nil
}

// CheckFile validates signed content stored at path. Files larger than the size
// limit are rejected without being read.
func (s Signed) CheckFile(ctx context.Context, name Name, path string) error {
	if err := s.parseName(name); err != nil {
		return err
	}
	f, err := os.Open(path)
	if err != nil {
		return wrapError(KindIO, "CHUNK-IO-001", "open chunk content", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return wrapError(KindIO, "CHUNK-IO-002", "read chunk content", err)
	}
	limit := s.maxSize()
	if fi.Size() > limit {
		return newError(KindFormat, "CHUNK-SIG-004", "signed chunk exceeds size limit")
	}
	if err := ctx.Err(); err != nil {
		return wrapError(KindIO, "CHUNK-IO-003", "validation canceled", err)
	}
	b, err := io.ReadAll(io.LimitReader(f, limit+1))
	if err != nil {
		return wrapError(KindIO, "CHUNK-IO-002", "read chunk content", err)
	}
	return s.Check(name, b)
}

// Supersedes reports whether next may replace stored under a signed chunk name.
// Identical content is accepted so that Put stays idempotent. A stored copy that
// does not decode is replaceable. Content of a lower or equal version is stale.
func Supersedes(stored, next []byte) (bool, error) {
	if bytes.Equal(stored, next) {
		return true, nil
	}
	old, err := DecodeSigned(stored)
	if err != nil {
		return true, nil
	}
	nw, err := DecodeSigned(next)
	if err != nil {
		return false, err
	}
	return nw.Version > old.Version, nil
}
