package bundle_test

import (
	"archive/tar"
	"bytes"
	"crypto/ed25519"
	"errors"
	"testing"
	"time"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/keys"
	"xdao.co/chunkstore/storage"
	"xdao.co/chunkstore/storage/bundle"
	"xdao.co/chunkstore/storage/localfs"
)

func put(t *testing.T, cas storage.CAS, b []byte) chunk.Name {
	t.Helper()
	id, err := storage.PutContent(cas, b)
	if err != nil {
		t.Fatal(err)
	}
	return id
}

func TestBundle_ExportIsDeterministic(t *testing.T) {
	cas, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	id1 := put(t, cas, []byte("hello"))
	id2 := put(t, cas, []byte("world"))
	opts := bundle.ExportOptions{IncludeIndex: true, Labels: map[string]chunk.Name{"b": id2, "a": id1}}

	var outA bytes.Buffer
	if err := bundle.Export(&outA, cas, []chunk.Name{id2, id1, id2}, opts); err != nil {
		t.Fatal(err)
	}
	var outB bytes.Buffer
	if err := bundle.Export(&outB, cas, []chunk.Name{id1, id2}, opts); err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(outA.Bytes(), outB.Bytes()) {
		t.Fatalf("expected deterministic bundle bytes")
	}

	idx, err := bundle.ReadIndex(bytes.NewReader(outA.Bytes()))
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	if idx.Version != bundle.FormatVersion || len(idx.Chunks) != 2 {
		t.Fatalf("unexpected index: %+v", idx)
	}
	if idx.Chunks[0].Name > idx.Chunks[1].Name {
		t.Fatalf("index entries not sorted")
	}
	if idx.Labels["a"] != id1 || idx.Labels["b"] != id2 {
		t.Fatalf("unexpected labels: %v", idx.Labels)
	}
	for _, e := range idx.Chunks {
		if e.Type != chunk.TypeDefault || e.Size != 5 {
			t.Fatalf("unexpected entry: %+v", e)
		}
	}
}

func TestBundle_ImportRoundTrip(t *testing.T) {
	src, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	payload := []byte("payload")
	id := put(t, src, payload)

	s, err := keys.NewEd25519Signer(ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize)), keys.HashSHA256)
	if err != nil {
		t.Fatal(err)
	}
	signedName, signed, err := chunk.Sign(s, 1, []byte("owned"))
	if err != nil {
		t.Fatal(err)
	}
	if err := src.Put(signedName, signed); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := bundle.Export(&buf, src, []chunk.Name{id, signedName}, bundle.ExportOptions{IncludeIndex: true}); err != nil {
		t.Fatal(err)
	}

	dst, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	names, err := bundle.Import(bytes.NewReader(buf.Bytes()), dst)
	if err != nil {
		t.Fatal(err)
	}
	if len(names) != 2 {
		t.Fatalf("imported %v", names)
	}

	got, err := dst.Get(id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("payload mismatch")
	}
	got, err = dst.Get(signedName)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, signed) {
		t.Fatalf("signed chunk mismatch")
	}
}

func TestBundle_ImportRejectsNameMismatch(t *testing.T) {
	good := []byte("good")
	other, err := chunk.NameOf([]byte("other"))
	if err != nil {
		t.Fatal(err)
	}

	// Name says "other" but bytes are "good".
	bundleBytes := makeDeterministicTar(t, "chunks/"+string(other), good)

	dst, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if _, err := bundle.Import(bytes.NewReader(bundleBytes), dst); !errors.Is(err, storage.ErrInvalidChunk) {
		t.Fatalf("expected ErrInvalidChunk, got %v", err)
	}
	if dst.Has(other) {
		t.Fatalf("rejected chunk was stored")
	}
}

func TestBundle_ImportRejectsUnknownAndBadPaths(t *testing.T) {
	dst, err := localfs.New(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	unknown := makeDeterministicTar(t, "notes.txt", []byte("x"))
	if _, err := bundle.Import(bytes.NewReader(unknown), dst); err == nil {
		t.Fatalf("expected error for unknown entry")
	}
	if _, err := bundle.ImportWithOptions(bytes.NewReader(unknown), dst, bundle.ImportOptions{IgnoreUnknown: true}); err != nil {
		t.Fatalf("IgnoreUnknown: %v", err)
	}

	escape := makeDeterministicTar(t, "chunks/../etc/passwd", []byte("x"))
	if _, err := bundle.Import(bytes.NewReader(escape), dst); err == nil {
		t.Fatalf("expected error for path traversal")
	}

	badName := makeDeterministicTar(t, "chunks/not-a-cid", []byte("x"))
	if _, err := bundle.Import(bytes.NewReader(badName), dst); !errors.Is(err, storage.ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}

	badIndex := makeDeterministicTar(t, "index.bin", []byte{1, 0})
	if _, err := bundle.Import(bytes.NewReader(badIndex), dst); err == nil {
		t.Fatalf("expected error for malformed index")
	}
	if _, err := bundle.ReadIndex(bytes.NewReader(unknown)); !errors.Is(err, bundle.ErrNoIndex) {
		t.Fatalf("ReadIndex: got %v want ErrNoIndex", err)
	}
}

func makeDeterministicTar(t *testing.T, name string, content []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)

	h := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  time.Unix(0, 0).UTC(),
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(h); err != nil {
		t.Fatal(err)
	}
	if _, err := tw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := tw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}
