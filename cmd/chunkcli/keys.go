package main

import (
	"crypto/ed25519"
	"crypto/rand"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/cidutil"
	"xdao.co/chunkstore/keys"
)

func cmdKey(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printKeyUsage(errOut)
		return 2
	}
	switch args[0] {
	case "init":
		return cmdKeyInit(args[1:], out, errOut)
	case "list":
		return cmdKeyList(args[1:], out, errOut)
	case "help", "-h", "--help":
		printKeyUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown key subcommand: %s\n\n", args[0])
		printKeyUsage(errOut)
		return 2
	}
}

func printKeyUsage(w io.Writer) {
	fmt.Fprintln(w, "chunkcli key: local owner keys for signed chunks")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  chunkcli key init --name <id> [--seed-hex <64hex>] [--force] [--keys-dir <dir>]")
	fmt.Fprintln(w, "  chunkcli key list [--keys-dir <dir>]")
}

func cmdKeyInit(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key init", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var name string
	var seedHex string
	var force bool
	var dir string

	fs.StringVar(&name, "name", "", "Key identifier")
	fs.StringVar(&seedHex, "seed-hex", "", "Optional ed25519 seed as 64 hex chars (for reproducible demos)")
	fs.BoolVar(&force, "force", false, "Overwrite existing key files")
	fs.StringVar(&dir, "keys-dir", "", "Key store directory")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if err := keys.CheckKeyName(name); err != nil {
		fmt.Fprintf(errOut, "invalid --name: %v\n", err)
		return 2
	}
	ks, err := keys.CreateKeyStore(dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}

	var seed []byte
	if seedHex != "" {
		var derr error
		seed, derr = keys.ParseSeedHex(seedHex)
		if derr != nil {
			fmt.Fprintf(errOut, "invalid --seed-hex: %v\n", derr)
			return 2
		}
	} else {
		seed = make([]byte, ed25519.SeedSize)
		if _, err := rand.Read(seed); err != nil {
			fmt.Fprintf(errOut, "rand: %v\n", err)
			return 1
		}
	}

	pub, path, err := ks.CreateKey(name, seed, force)
	if err != nil {
		fmt.Fprintf(errOut, "write key: %v\n", err)
		return 1
	}
	id, err := cidutil.KeyCID(pub)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	fmt.Fprintf(out, "Signed chunk name: %s\n", id)
	fmt.Fprintf(out, "Stored at: %s\n", path)
	return 0
}

func cmdKeyList(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("key list", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var dir string
	fs.StringVar(&dir, "keys-dir", "", "Key store directory")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	ks, err := keys.CreateKeyStore(dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	ids, err := ks.ListKeys()
	if err != nil {
		fmt.Fprintf(errOut, "list keys: %v\n", err)
		return 1
	}
	for _, id := range ids {
		fmt.Fprintf(out, "%s\n", id)
	}
	return 0
}

// cmdSign wraps a payload into a signed chunk owned by a stored key. The chunk
// name goes to stdout and the chunk content to --out.
func cmdSign(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("sign", flag.ContinueOnError)
	fs.SetOutput(errOut)

	var keyID string
	var hashAlg string
	var dir string
	var outPath string
	var version uint64
	fs.StringVar(&keyID, "key", "", "Key identifier")
	fs.Uint64Var(&version, "version", 1, "Content version; stores keep only the highest")
	fs.StringVar(&hashAlg, "hash", keys.HashSHA256, "Payload digest: sha256|sha512|sha3-256")
	fs.StringVar(&dir, "keys-dir", "", "Key store directory")
	fs.StringVar(&outPath, "out", "", "Signed chunk output file")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if keyID == "" || outPath == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: chunkcli sign --key <id> --out <file> [--version <n>] [--hash <alg>] <payload>")
		return 2
	}

	ks, err := keys.CreateKeyStore(dir)
	if err != nil {
		fmt.Fprintf(errOut, "keys: %v\n", err)
		return 1
	}
	signer, err := ks.Signer(keyID, hashAlg)
	if err != nil {
		fmt.Fprintf(errOut, "load key: %v\n", err)
		return 1
	}

	p := fs.Arg(0)
	payload, err := os.ReadFile(p)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
		return 1
	}
	name, content, err := chunk.Sign(signer, version, payload)
	if err != nil {
		fmt.Fprintf(errOut, "sign: %v\n", err)
		return 1
	}
	if err := os.WriteFile(outPath, content, 0o600); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, name)
	return 0
}
