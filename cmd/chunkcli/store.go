package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/internal/logging"
	"xdao.co/chunkstore/storage"
	"xdao.co/chunkstore/storage/casconfig"
	"xdao.co/chunkstore/storage/casregistry"

	_ "xdao.co/chunkstore/storage/grpccas"
	_ "xdao.co/chunkstore/storage/ipfs"
	_ "xdao.co/chunkstore/storage/localfs"
)

type storeFlags struct {
	backend      string
	configPath   string
	prefer       string
	logLevel     string
	listBackends bool
}

func (c *storeFlags) add(fs *flag.FlagSet) {
	fs.StringVar(&c.backend, "backend", "localfs", "Chunk store backend name")
	fs.StringVar(&c.configPath, "config", "", "Store config file (JSON or YAML); overrides --backend")
	fs.StringVar(&c.prefer, "prefer", "", "Backend id to try first (with --config)")
	fs.StringVar(&c.logLevel, "log-level", "warn", "Log level for store diagnostics")
	fs.BoolVar(&c.listBackends, "list-backends", false, "List supported backends and exit")
	casregistry.RegisterFlags(fs, casregistry.UsageCLI)
}

// open returns the configured store wrapped in storage.Guard, so every chunk is
// validated here whatever the backend does.
func (c *storeFlags) open(errOut io.Writer) (storage.CAS, func() error, error) {
	logger, err := logging.New(errOut, logging.Config{Level: c.logLevel})
	if err != nil {
		return nil, nil, err
	}
	var (
		cas     storage.CAS
		closeFn func() error
	)
	if c.configPath != "" {
		cfg, err := casconfig.LoadFile(c.configPath)
		if err != nil {
			return nil, nil, err
		}
		cas, closeFn, err = cfg.Open(casregistry.UsageCLI, c.prefer)
		if err != nil {
			return nil, nil, err
		}
	} else {
		cas, closeFn, err = casregistry.Open(c.backend, casregistry.UsageCLI)
		if err != nil {
			return nil, nil, err
		}
	}
	return storage.NewGuard(cas, logger), closeFn, nil
}

// inner returns the store below any Guards.
func inner(cas storage.CAS) storage.CAS {
	for {
		g, ok := cas.(storage.Guard)
		if !ok {
			return cas
		}
		cas = g.CAS
	}
}

func printBackends(w io.Writer) {
	for _, b := range casregistry.List(casregistry.UsageCLI) {
		if b.Description == "" {
			_, _ = fmt.Fprintf(w, "%s\n", b.Name)
			continue
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\n", b.Name, b.Description)
	}
}

func cmdPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("put", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common storeFlags
	common.add(fs)
	var name string
	fs.StringVar(&name, "name", "", "Chunk name (required for signed chunks; default: sha2-256 name of the file)")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: chunkcli put [store flags] [--name <name>] <file>")
		return 2
	}

	p := fs.Arg(0)
	b, err := os.ReadFile(p)
	if err != nil {
		fmt.Fprintf(errOut, "read %s: %v\n", filepath.Base(p), err)
		return 1
	}

	cas, closeFn, err := common.open(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	id := chunk.Name(name)
	if id == "" {
		id, err = storage.PutContent(cas, b)
	} else {
		err = cas.Put(id, b)
	}
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	_, _ = fmt.Fprintln(out, id)
	return 0
}

func cmdGet(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common storeFlags
	common.add(fs)

	var name string
	var outPath string
	fs.StringVar(&name, "name", "", "Chunk name to fetch")
	fs.StringVar(&outPath, "out", "", "Output file (optional; default stdout)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}
	if fs.NArg() != 0 {
		fmt.Fprintln(errOut, "usage: chunkcli get [store flags] --name <name> [--out <file>]")
		return 2
	}

	cas, closeFn, err := common.open(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	b, err := cas.Get(chunk.Name(name))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	if outPath == "" {
		_, _ = out.Write(b)
		return 0
	}
	if err := os.WriteFile(outPath, b, 0o600); err != nil {
		fmt.Fprintf(errOut, "write %s: %v\n", outPath, err)
		return 1
	}
	return 0
}

func cmdHas(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("has", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common storeFlags
	common.add(fs)
	var name string
	fs.StringVar(&name, "name", "", "Chunk name")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if name == "" {
		fmt.Fprintln(errOut, "missing --name")
		return 2
	}

	cas, closeFn, err := common.open(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	if !cas.Has(chunk.Name(name)) {
		_, _ = fmt.Fprintln(out, "absent")
		return 1
	}
	_, _ = fmt.Fprintln(out, "present")
	return 0
}

// cmdScrub validates every chunk of a store that can enumerate its contents.
// Stores that keep chunks in files are checked through the file path.
func cmdScrub(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("scrub", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common storeFlags
	common.add(fs)
	var workers int
	fs.IntVar(&workers, "workers", 4, "Concurrent validations")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}

	cas, closeFn, err := common.open(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	raw := inner(cas)
	lister, ok := raw.(storage.Lister)
	if !ok {
		fmt.Fprintln(errOut, errors.New("scrub: backend cannot list its chunks"))
		return 1
	}
	names, err := lister.Names()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}

	items := make([]chunk.Item, 0, len(names))
	pather, hasPaths := raw.(storage.Pather)
	for _, n := range names {
		if hasPaths {
			p, err := pather.Path(n)
			if err != nil {
				fmt.Fprintln(errOut, err)
				return 1
			}
			items = append(items, chunk.Item{Name: n, Path: p})
			continue
		}
		b, err := raw.Get(n)
		if err != nil && !errors.Is(err, storage.ErrInvalidChunk) {
			fmt.Fprintln(errOut, err)
			return 1
		}
		items = append(items, chunk.Item{Name: n, Content: b})
	}

	results, err := chunk.NewValidation().ValidateAll(context.Background(), items, workers)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	bad := 0
	for _, r := range results {
		if r.Valid {
			continue
		}
		bad++
		_, _ = fmt.Fprintf(out, "%s\t%s\t%v\n", r.Name, chunk.RuleID(r.Err), r.Err)
	}
	_, _ = fmt.Fprintf(errOut, "scrubbed %d chunks, %d invalid\n", len(results), bad)
	if bad > 0 {
		return 1
	}
	return 0
}
