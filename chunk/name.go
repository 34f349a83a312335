package chunk

import (
	"github.com/ipfs/go-cid"

	"xdao.co/chunkstore/cidutil"
)

// Name identifies a chunk. It is the canonical string form of a CIDv1.
type Name string

func (n Name) String() string { return string(n) }

// Type is the chunk-type discriminant carried by a name.
type Type uint8

const (
	TypeUnknown Type = iota
	// TypeDefault chunks are named by a multihash of their content.
	TypeDefault
	// TypeSigned chunks are named by their owner's public key and carry a signed
	// payload.
	TypeSigned
)

func (t Type) String() string {
	switch t {
	case TypeDefault:
		return "default"
	case TypeSigned:
		return "signed"
	default:
		return "unknown"
	}
}

// TypeOf returns the chunk type selected by name's multicodec. Names that do not
// parse as canonical CIDv1 strings are TypeUnknown.
func TypeOf(name Name) Type {
	d, err := cidutil.Decode(string(name))
	if err != nil {
		return TypeUnknown
	}
	switch d.Codec {
	case cid.Raw:
		return TypeDefault
	case cid.Libp2pKey:
		return TypeSigned
	default:
		return TypeUnknown
	}
}

// NameOf returns the canonical Default chunk name for content.
func NameOf(content []byte) (Name, error) {
	id, err := cidutil.CIDv1RawSHA256CID(content)
	if err != nil {
		return "", err
	}
	return Name(id.String()), nil
}
