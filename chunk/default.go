package chunk

import (
	"bytes"
	"context"
	"errors"
	"hash"
	"io"
	"os"
	"slices"
	"sync"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"

	"xdao.co/chunkstore/cidutil"
	"xdao.co/chunkstore/hashrange"
)

// BlockSize is the read size used when hashing file content.
const BlockSize = 1 << 20

// DefaultAlgorithms are the digest functions accepted in Default chunk names.
var DefaultAlgorithms = []uint64{
	multihash.SHA2_256,
	multihash.SHA2_512,
	multihash.SHA3_256,
	multihash.BLAKE3,
}

var blockPool = sync.Pool{
	New: func() any {
		b := make([]byte, BlockSize)
		return &b
	},
}

// Default validates hashable chunks: the name is a raw CIDv1 whose multihash must
// equal the digest of the content.
//
// The zero value is ready to use.
type Default struct {
	// Ranges hashes in-memory content. Nil means hashrange.Default.
	Ranges *hashrange.Registry
	// Algorithms restricts accepted digest functions. Nil means DefaultAlgorithms.
	Algorithms []uint64
	// BlockSize is the file read size. Zero means BlockSize.
	BlockSize int
}

var _ Validator = Default{}

func (d Default) ranges() *hashrange.Registry {
	if d.Ranges != nil {
		return d.Ranges
	}
	return hashrange.Default
}

func (d Default) parseName(name Name) (cidutil.Decoded, hash.Hash, error) {
	dec, err := cidutil.Decode(string(name))
	if err != nil {
		return dec, nil, wrapError(KindName, "CHUNK-NAME-001", "malformed chunk name", err)
	}
	if dec.Codec != cid.Raw {
		return dec, nil, newError(KindName, "CHUNK-NAME-002", "not a hashable chunk name")
	}
	algs := d.Algorithms
	if algs == nil {
		algs = DefaultAlgorithms
	}
	if !slices.Contains(algs, dec.Code) {
		return dec, nil, newError(KindName, "CHUNK-NAME-003", "unsupported digest function "+dec.Name)
	}
	h, err := cidutil.NewHasher(dec.Code)
	if err != nil {
		return dec, nil, wrapError(KindName, "CHUNK-NAME-003", "unsupported digest function "+dec.Name, err)
	}
	if len(dec.Digest) != h.Size() {
		return dec, nil, newError(KindName, "CHUNK-NAME-004", "truncated digest in chunk name")
	}
	return dec, h, nil
}

func (d Default) ValidName(name Name) bool {
	_, _, err := d.parseName(name)
	return err == nil
}

func (d Default) Hashable(name Name) bool {
	return TypeOf(name) == TypeDefault
}

func (d Default) ValidChunk(name Name, content []byte) bool {
	return d.Check(name, content) == nil
}

func (d Default) ValidChunkFile(name Name, path string) (bool, error) {
	return result(d.CheckFile(context.Background(), name, path))
}

// Check validates in-memory content.
func (d Default) Check(name Name, content []byte) error {
	return d.CheckRange(name, content)
}

// CheckRange validates content held in any shape registered with the hashable
// range registry.
func (d Default) CheckRange(name Name, content any) error {
	dec, h, err := d.parseName(name)
	if err != nil {
		return err
	}
	sum, err := d.ranges().Sum(h, content)
	if err != nil {
		return wrapError(KindUnhashable, "CHUNK-HASH-002", "content is not a hashable range", err)
	}
	return compareDigest(sum, dec.Digest)
}

// CheckFile validates the content stored at path, hashing it one block at a time.
// ctx is checked between blocks.
func (d Default) CheckFile(ctx context.Context, name Name, path string) error {
	dec, h, err := d.parseName(name)
	if err != nil {
		return err
	}

	f, err := os.Open(path)
	if err != nil {
		return wrapError(KindIO, "CHUNK-IO-001", "open chunk content", err)
	}
	defer f.Close()

	var buf []byte
	if d.BlockSize > 0 && d.BlockSize != BlockSize {
		buf = make([]byte, d.BlockSize)
	} else {
		pb := blockPool.Get().(*[]byte)
		defer blockPool.Put(pb)
		buf = *pb
	}

	for {
		if err := ctx.Err(); err != nil {
			return wrapError(KindIO, "CHUNK-IO-003", "validation canceled", err)
		}
		n, rerr := io.ReadFull(f, buf)
		if n > 0 {
			_, _ = h.Write(buf[:n])
		}
		if errors.Is(rerr, io.EOF) || errors.Is(rerr, io.ErrUnexpectedEOF) {
			break
		}
		if rerr != nil {
			return wrapError(KindIO, "CHUNK-IO-002", "read chunk content", rerr)
		}
	}
	return compareDigest(h.Sum(nil), dec.Digest)
}

func compareDigest(got, want []byte) error {
	if !bytes.Equal(got, want) {
		return newError(KindMismatch, "CHUNK-HASH-001", "content digest does not match chunk name")
	}
	return nil
}
