// Command chunkcli names, validates, stores and bundles chunks.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/multiformats/go-multihash"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/cidutil"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		printUsage(errOut)
		return 2
	}

	switch args[0] {
	case "name":
		return cmdName(args[1:], out, errOut)
	case "verify":
		return cmdVerify(args[1:], out, errOut)
	case "put":
		return cmdPut(args[1:], out, errOut)
	case "get":
		return cmdGet(args[1:], out, errOut)
	case "has":
		return cmdHas(args[1:], out, errOut)
	case "scrub":
		return cmdScrub(args[1:], out, errOut)
	case "sign":
		return cmdSign(args[1:], out, errOut)
	case "key":
		return cmdKey(args[1:], out, errOut)
	case "bundle":
		return cmdBundle(args[1:], out, errOut)
	case "help", "-h", "--help":
		printUsage(out)
		return 0
	default:
		fmt.Fprintf(errOut, "unknown command: %s\n\n", args[0])
		printUsage(errOut)
		return 2
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "chunkcli: content-addressed chunk tool")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Usage:")
	fmt.Fprintln(w, "  chunkcli name [--mh sha2-256|sha2-512|sha3-256|blake3] <file>")
	fmt.Fprintln(w, "  chunkcli verify --name <name> <file>")
	fmt.Fprintln(w, "  chunkcli put [store flags] [--name <name>] <file>")
	fmt.Fprintln(w, "  chunkcli get [store flags] --name <name> [--out <file>]")
	fmt.Fprintln(w, "  chunkcli has [store flags] --name <name>")
	fmt.Fprintln(w, "  chunkcli scrub [store flags] [--workers <n>]")
	fmt.Fprintln(w, "  chunkcli sign --key <id> --out <file> [--version <n>] [--hash sha256|sha512|sha3-256] <payload>")
	fmt.Fprintln(w, "  chunkcli key init --name <id> [--seed-hex <64hex>] [--force]")
	fmt.Fprintln(w, "  chunkcli key list")
	fmt.Fprintln(w, "  chunkcli bundle export [store flags] --out <file> [--index] [--label k=<name> ...] <name> ...")
	fmt.Fprintln(w, "  chunkcli bundle import [store flags] [--ignore-unknown] <file>")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Store flags:")
	fmt.Fprintln(w, "  --backend localfs --localfs-dir <dir>")
	fmt.Fprintln(w, "  --backend grpc --grpc-target <host:port>")
	fmt.Fprintln(w, "  --backend ipfs [--ipfs-path <repo>]")
	fmt.Fprintln(w, "  --config <stores.json|stores.yaml> [--prefer <id>]")
	fmt.Fprintln(w, "  --list-backends")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Key flags:")
	fmt.Fprintln(w, "  --keys-dir <dir> (default ~/.xdao/chunkstore/keys)")
}

var multihashCodes = map[string]uint64{
	"sha2-256": multihash.SHA2_256,
	"sha2-512": multihash.SHA2_512,
	"sha3-256": multihash.SHA3_256,
	"blake3":   multihash.BLAKE3,
}

func cmdName(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("name", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var mh string
	fs.StringVar(&mh, "mh", "sha2-256", "Multihash function")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: chunkcli name [--mh <fn>] <file>")
		return 2
	}
	code, ok := multihashCodes[strings.ToLower(mh)]
	if !ok {
		fmt.Fprintf(errOut, "invalid --mh: %q\n", mh)
		return 2
	}

	p := fs.Arg(0)
	f, err := os.Open(p)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
		return 1
	}
	defer f.Close()

	h, err := cidutil.NewHasher(code)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if _, err := io.Copy(h, f); err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
		return 1
	}
	id, err := cidutil.CIDv1RawFromDigest(h.Sum(nil), code)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id.String())
	return 0
}

func cmdVerify(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("verify", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var name string
	fs.StringVar(&name, "name", "", "Chunk name the file should match")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if name == "" || fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: chunkcli verify --name <name> <file>")
		return 2
	}

	err := chunk.NewValidation().CheckFile(chunk.Name(name), fs.Arg(0))
	switch {
	case err == nil:
		_, _ = fmt.Fprintf(out, "valid\t%s\n", chunk.TypeOf(chunk.Name(name)))
		return 0
	case chunk.Rejected(err):
		_, _ = fmt.Fprintf(out, "invalid\t%s\t%v\n", chunk.RuleID(err), err)
		return 1
	default:
		fmt.Fprintln(errOut, err)
		return 1
	}
}

type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return errors.New("empty value")
	}
	*s = append(*s, v)
	return nil
}
