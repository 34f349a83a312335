package ipfs

import (
	"crypto/ed25519"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/keys"
	"xdao.co/chunkstore/storage"
)

func TestIPFS_RejectsNamesBeforeExec(t *testing.T) {
	// A missing binary proves no command is run for rejected input.
	c := New(Options{Bin: filepath.Join(t.TempDir(), "no-such-ipfs")})

	if err := c.Put("not-a-cid", []byte("x")); !errors.Is(err, storage.ErrInvalidName) {
		t.Fatalf("Put bad name: got %v want ErrInvalidName", err)
	}

	s, err := keys.NewEd25519Signer(ed25519.NewKeyFromSeed(make([]byte, ed25519.SeedSize)), keys.HashSHA256)
	if err != nil {
		t.Fatalf("NewEd25519Signer: %v", err)
	}
	signedName, signed, err := chunk.Sign(s, 1, []byte("p"))
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	if err := c.Put(signedName, signed); !errors.Is(err, storage.ErrInvalidName) {
		t.Fatalf("Put signed chunk: got %v want ErrInvalidName", err)
	}
	if c.Has(signedName) {
		t.Fatalf("Has should be false for a signed chunk")
	}

	name, err := chunk.NameOf([]byte("hello"))
	if err != nil {
		t.Fatalf("NameOf: %v", err)
	}
	if err := c.Put(name, []byte("hellO")); !errors.Is(err, storage.ErrInvalidChunk) {
		t.Fatalf("Put mismatched content: got %v want ErrInvalidChunk", err)
	}
}

func TestIPFS_MissingBinary(t *testing.T) {
	c := New(Options{Bin: filepath.Join(t.TempDir(), "no-such-ipfs")})
	name, err := chunk.NameOf([]byte("hello"))
	if err != nil {
		t.Fatalf("NameOf: %v", err)
	}
	if err := c.Put(name, []byte("hello")); err == nil {
		t.Fatalf("expected error when the ipfs binary is missing")
	}
	if c.Has(name) {
		t.Fatalf("Has should be false when the ipfs binary is missing")
	}
	if _, err := c.Get(name); err == nil || storage.IsNotFound(err) {
		t.Fatalf("Get: got %v want exec error", err)
	}
}

// fakeIPFS installs a shell script that records its arguments and prints out.
func fakeIPFS(t *testing.T, out string) (bin string, argsFile string, env []string) {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell script fake needs a POSIX shell")
	}
	dir := t.TempDir()
	bin = filepath.Join(dir, "ipfs")
	argsFile = filepath.Join(dir, "args")
	script := "#!/bin/sh\nprintf '%s\\n' \"$@\" > \"$FAKE_IPFS_ARGS\"\ncat >/dev/null\necho \"$FAKE_IPFS_OUT\"\n"
	if err := os.WriteFile(bin, []byte(script), 0o755); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	env = append(os.Environ(), "FAKE_IPFS_ARGS="+argsFile, "FAKE_IPFS_OUT="+out)
	return bin, argsFile, env
}

func TestIPFS_PutUsesCIDCodec(t *testing.T) {
	content := []byte("hello")
	name, err := chunk.NameOf(content)
	if err != nil {
		t.Fatalf("NameOf: %v", err)
	}
	bin, argsFile, env := fakeIPFS(t, string(name))
	c := New(Options{Bin: bin, Env: env})

	if err := c.Put(name, content); err != nil {
		t.Fatalf("Put: %v", err)
	}
	b, err := os.ReadFile(argsFile)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	args := strings.Fields(string(b))
	want := []string{"block", "put", "--quiet", "--cid-codec=raw", "--mhtype=sha2-256", "--mhlen=32", "/dev/stdin"}
	if strings.Join(args, " ") != strings.Join(want, " ") {
		t.Fatalf("block put args: got %q want %q", args, want)
	}
}

func TestIPFS_PutRejectsUnexpectedCID(t *testing.T) {
	content := []byte("hello")
	name, err := chunk.NameOf(content)
	if err != nil {
		t.Fatalf("NameOf: %v", err)
	}
	other, err := chunk.NameOf([]byte("other"))
	if err != nil {
		t.Fatalf("NameOf: %v", err)
	}
	bin, _, env := fakeIPFS(t, string(other))
	c := New(Options{Bin: bin, Env: env})
	if err := c.Put(name, content); err == nil {
		t.Fatalf("Put should fail when ipfs returns a different CID")
	}
}
