package bundle

import (
	"archive/tar"
	"bytes"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/storage"
)

const (
	chunkPrefix = "chunks/"
	indexName   = "index.bin"
)

var epoch0 = time.Unix(0, 0).UTC()

// ExportOptions controls bundle export behavior.
type ExportOptions struct {
	// Labels is optional, non-authoritative metadata mapping labels to chunk names.
	Labels map[string]chunk.Name
	// IncludeIndex controls whether index.bin is included.
	IncludeIndex bool
	// Validation checks every exported chunk. Nil means chunk.NewValidation().
	Validation *chunk.Validation
}

// Export writes a deterministic TAR bundle containing the given chunks.
//
// The bundle bytes are deterministic: entry order is lexicographic and TAR headers are normalized.
// All exported content is validated against its name.
func Export(w io.Writer, cas storage.CAS, names []chunk.Name, opts ExportOptions) error {
	if cas == nil {
		return fmt.Errorf("bundle: nil CAS")
	}
	v := opts.Validation
	if v == nil {
		v = chunk.NewValidation()
	}

	uniq := make(map[chunk.Name]struct{}, len(names))
	for _, n := range names {
		if !v.ValidName(n) {
			return fmt.Errorf("bundle: %w: %q", storage.ErrInvalidName, n)
		}
		uniq[n] = struct{}{}
	}
	sorted := make([]chunk.Name, 0, len(uniq))
	for n := range uniq {
		sorted = append(sorted, n)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	tw := tar.NewWriter(w)

	entries := make([]IndexEntry, 0, len(sorted))
	for _, n := range sorted {
		b, err := cas.Get(n)
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := v.Check(n, b); err != nil {
			_ = tw.Close()
			return storage.InvalidChunk(err)
		}
		if err := writeFile(tw, chunkPrefix+string(n), b); err != nil {
			_ = tw.Close()
			return err
		}
		entries = append(entries, IndexEntry{Name: n, Type: chunk.TypeOf(n), Size: uint64(len(b))})
	}

	if opts.IncludeIndex {
		idx := Index{Version: FormatVersion, Chunks: entries}
		if len(opts.Labels) > 0 {
			idx.Labels = make(map[string]chunk.Name, len(opts.Labels))
			for k, n := range opts.Labels {
				if k == "" {
					_ = tw.Close()
					return fmt.Errorf("bundle: empty label key")
				}
				if _, ok := uniq[n]; !ok {
					_ = tw.Close()
					return fmt.Errorf("bundle: label %q names a chunk not in the bundle", k)
				}
				idx.Labels[k] = n
			}
		}

		b, err := idx.MarshalBinary()
		if err != nil {
			_ = tw.Close()
			return err
		}
		if err := writeFile(tw, indexName, b); err != nil {
			_ = tw.Close()
			return err
		}
	}

	return tw.Close()
}

// ImportOptions controls bundle import behavior.
type ImportOptions struct {
	// IgnoreUnknown controls whether unknown TAR entries are ignored.
	//
	// Default (false) is fail-closed: unknown entries cause Import to return an error.
	IgnoreUnknown bool
	// Validation checks every imported chunk. Nil means chunk.NewValidation().
	Validation *chunk.Validation
}

// Import reads a bundle from r and imports all chunks into cas.
//
// Default behavior is fail-closed: unknown entries cause an error.
// Use ImportWithOptions to allow ignoring unknown entries.
func Import(r io.Reader, cas storage.CAS) ([]chunk.Name, error) {
	return ImportWithOptions(r, cas, ImportOptions{})
}

// ImportWithOptions reads a bundle from r and imports all chunks into cas, returning
// the imported names in bundle order.
//
// Every chunk is validated against its entry name before it is written. An index,
// when present, must be well formed but is not trusted for anything else.
func ImportWithOptions(r io.Reader, cas storage.CAS, opts ImportOptions) ([]chunk.Name, error) {
	if cas == nil {
		return nil, fmt.Errorf("bundle: nil CAS")
	}
	v := opts.Validation
	if v == nil {
		v = chunk.NewValidation()
	}

	tr := tar.NewReader(r)
	seen := map[chunk.Name]struct{}{}
	var imported []chunk.Name

	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return imported, nil
		}
		if err != nil {
			return imported, err
		}
		path := cleanTarPath(h.Name)
		if path == "" {
			return imported, fmt.Errorf("bundle: invalid entry path: %q", h.Name)
		}

		if h.Typeflag != tar.TypeReg {
			if opts.IgnoreUnknown {
				continue
			}
			return imported, fmt.Errorf("bundle: unexpected tar entry type: %v (%s)", h.Typeflag, path)
		}

		if path == indexName {
			b, err := io.ReadAll(tr)
			if err != nil {
				return imported, err
			}
			var idx Index
			if err := idx.UnmarshalBinary(b); err != nil {
				return imported, err
			}
			continue
		}

		if !strings.HasPrefix(path, chunkPrefix) {
			if opts.IgnoreUnknown {
				_, _ = io.Copy(io.Discard, tr)
				continue
			}
			return imported, fmt.Errorf("bundle: unknown entry: %s", path)
		}

		name := chunk.Name(strings.TrimPrefix(path, chunkPrefix))
		if !v.ValidName(name) {
			return imported, fmt.Errorf("bundle: %w: %q", storage.ErrInvalidName, name)
		}
		if _, ok := seen[name]; ok {
			return imported, fmt.Errorf("bundle: duplicate chunk entry: %s", name)
		}
		seen[name] = struct{}{}

		payload, err := io.ReadAll(tr)
		if err != nil {
			return imported, err
		}
		if err := v.Check(name, payload); err != nil {
			return imported, storage.InvalidChunk(err)
		}
		if err := cas.Put(name, payload); err != nil {
			return imported, err
		}
		imported = append(imported, name)
	}
}

func writeFile(tw *tar.Writer, name string, content []byte) error {
	hdr := &tar.Header{
		Name:     name,
		Mode:     0o644,
		Size:     int64(len(content)),
		ModTime:  epoch0,
		Typeflag: tar.TypeReg,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err := io.Copy(tw, bytes.NewReader(content))
	return err
}

func cleanTarPath(name string) string {
	name = strings.TrimSpace(name)
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.TrimPrefix(name, "./")
	name = strings.TrimPrefix(name, "/")
	if name == "" {
		return ""
	}

	parts := strings.Split(name, "/")
	for _, part := range parts {
		if part == "" || part == "." || part == ".." {
			return ""
		}
	}
	return name
}
