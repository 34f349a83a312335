package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/storage/bundle"
)

func cmdBundle(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: chunkcli bundle export|import ...")
		return 2
	}
	switch args[0] {
	case "export":
		return cmdBundleExport(args[1:], out, errOut)
	case "import":
		return cmdBundleImport(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown bundle subcommand: %s\n", args[0])
		return 2
	}
}

func cmdBundleExport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle export", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common storeFlags
	common.add(fs)

	var outPath string
	var index bool
	var labels stringList
	fs.StringVar(&outPath, "out", "", "Bundle output file")
	fs.BoolVar(&index, "index", true, "Include index.bin")
	fs.Var(&labels, "label", "Label as key=<name> (repeatable)")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if outPath == "" || fs.NArg() == 0 {
		fmt.Fprintln(errOut, "usage: chunkcli bundle export [store flags] --out <file> <name> ...")
		return 2
	}

	names := make([]chunk.Name, 0, fs.NArg())
	for _, a := range fs.Args() {
		names = append(names, chunk.Name(a))
	}
	opts := bundle.ExportOptions{IncludeIndex: index}
	if len(labels) > 0 {
		opts.Labels = make(map[string]chunk.Name, len(labels))
		for _, l := range labels {
			k, v, ok := strings.Cut(l, "=")
			if !ok || k == "" || v == "" {
				fmt.Fprintf(errOut, "invalid --label: %q\n", l)
				return 2
			}
			opts.Labels[k] = chunk.Name(v)
		}
	}

	cas, closeFn, err := common.open(errOut)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if closeFn != nil {
		defer closeFn()
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	if err := bundle.Export(f, cas, names, opts); err != nil {
		_ = f.Close()
		_ = os.Remove(outPath)
		fmt.Fprintln(errOut, err)
		return 1
	}
	if err := f.Close(); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}

func cmdBundleImport(args []string, out io.Writer, errOut io.Writer) int {
	fs := flag.NewFlagSet("bundle import", flag.ContinueOnError)
	fs.SetOutput(errOut)
	var common storeFlags
	common.add(fs)
	var ignoreUnknown bool
	fs.BoolVar(&ignoreUnknown, "ignore-unknown", false, "Skip entries that are not chunks")

	if err := fs.Parse(args); err != nil {
		return 2
	}
	if common.listBackends {
		printBackends(out)
		return 0
	}
	if fs.NArg() != 1 {
		fmt.Fprintln(errOut, "usage: chunkcli bundle import [store flags] <file>")
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

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	defer f.Close()

	names, err := bundle.ImportWithOptions(f, cas, bundle.ImportOptions{IgnoreUnknown: ignoreUnknown})
	for _, n := range names {
		_, _ = fmt.Fprintln(out, n)
	}
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	return 0
}
