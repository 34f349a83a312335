// Package cidutil derives chunk names from content and keys.
//
// Hashable chunks are named by a CIDv1 using the "raw" multicodec and a multihash of
// the content. Signed chunks are named by a CIDv1 using the "libp2p-key" multicodec and
// a sha2-256 multihash of the owner's public key.
package cidutil

import (
	"fmt"
	"hash"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// Canonical is the multihash function used for new hashable chunk names.
const Canonical = multihash.SHA2_256

// CIDv1RawSHA256 returns a CIDv1 string using the "raw" multicodec
// and a sha2-256 multihash.
func CIDv1RawSHA256(data []byte) string {
	id, err := CIDv1RawSHA256CID(data)
	if err != nil {
		// multihash.Sum only errors for invalid inputs; with SHA2_256 and -1 length,
		// this should be unreachable.
		return ""
	}
	return id.String()
}

// CIDv1RawSHA256CID returns a CIDv1 (raw + sha2-256) derived from data.
func CIDv1RawSHA256CID(data []byte) (cid.Cid, error) {
	return CIDv1Raw(data, Canonical)
}

// CIDv1Raw returns a CIDv1 (raw) naming data under the multihash function code.
func CIDv1Raw(data []byte, code uint64) (cid.Cid, error) {
	sum, err := multihash.Sum(data, code, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, sum), nil
}

// CIDv1RawFromDigest wraps a digest computed elsewhere (for example incrementally)
// into a raw CIDv1.
func CIDv1RawFromDigest(digest []byte, code uint64) (cid.Cid, error) {
	mh, err := multihash.Encode(digest, code)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Raw, mh), nil
}

// KeyCID returns the libp2p-key CIDv1 naming an owner public key.
func KeyCID(publicKey []byte) (cid.Cid, error) {
	if len(publicKey) == 0 {
		return cid.Undef, fmt.Errorf("cidutil: empty public key")
	}
	sum, err := multihash.Sum(publicKey, multihash.SHA2_256, -1)
	if err != nil {
		return cid.Undef, err
	}
	return cid.NewCidV1(cid.Libp2pKey, sum), nil
}

// NewHasher returns a fresh streaming hasher for a multihash function code.
func NewHasher(code uint64) (hash.Hash, error) {
	return multihash.GetHasher(code)
}

// Decoded is a parsed CIDv1 with its multihash unpacked.
type Decoded struct {
	CID    cid.Cid
	Codec  uint64
	Code   uint64
	Name   string
	Digest []byte
}

// Decode parses a CIDv1 string. CIDv0 and undefined CIDs are rejected.
func Decode(s string) (Decoded, error) {
	id, err := cid.Decode(s)
	if err != nil {
		return Decoded{}, err
	}
	if !id.Defined() || id.Version() != 1 {
		return Decoded{}, fmt.Errorf("cidutil: %q is not a CIDv1", s)
	}
	// Reject non-canonical spellings (other multibases, upper case) so one chunk has
	// one name.
	if id.String() != s {
		return Decoded{}, fmt.Errorf("cidutil: %q is not in canonical form", s)
	}
	dm, err := multihash.Decode(id.Hash())
	if err != nil {
		return Decoded{}, err
	}
	return Decoded{
		CID:    id,
		Codec:  id.Type(),
		Code:   dm.Code,
		Name:   dm.Name,
		Digest: dm.Digest,
	}, nil
}
