package bundle

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/serial"
)

// FormatVersion is the current bundle index schema version.
const FormatVersion = 1

// Index is the optional, non-authoritative table of contents of a bundle.
type Index struct {
	Version uint32
	Chunks  []IndexEntry
	Labels  map[string]chunk.Name
}

// IndexEntry describes one chunk entry.
type IndexEntry struct {
	Name chunk.Name
	Type chunk.Type
	Size uint64
}

func (e *IndexEntry) MarshalArchive(w *serial.Writer) {
	w.String(string(e.Name))
	w.Uint8(uint8(e.Type))
	w.Uint64(e.Size)
}

func (e *IndexEntry) UnmarshalArchive(r *serial.Reader) {
	e.Name = chunk.Name(r.String())
	e.Type = chunk.Type(r.Uint8())
	e.Size = r.Uint64()
}

var (
	entriesCodec = serial.Slice(serial.Self[IndexEntry]())
	labelsCodec  = serial.Map(serial.String, serial.String)
)

// MarshalBinary encodes the index as (version, entries, labels) with the serial
// archive format. Labels are written in key order.
func (idx Index) MarshalBinary() ([]byte, error) {
	var labels map[string]string
	if len(idx.Labels) > 0 {
		labels = make(map[string]string, len(idx.Labels))
		for k, v := range idx.Labels {
			labels[k] = string(v)
		}
	}
	return serial.Serialise(
		serial.Val(serial.Uint32, idx.Version),
		serial.Val(entriesCodec, idx.Chunks),
		serial.Val(labelsCodec, labels),
	)
}

func (idx *Index) UnmarshalBinary(b []byte) error {
	var (
		version uint32
		entries []IndexEntry
		labels  map[string]string
	)
	err := serial.ParseInto(b,
		serial.Into(serial.Uint32, &version),
		serial.Into(entriesCodec, &entries),
		serial.Into(labelsCodec, &labels),
	)
	if err != nil {
		return fmt.Errorf("bundle: malformed index: %w", err)
	}
	if version != FormatVersion {
		return fmt.Errorf("bundle: unsupported index version %d", version)
	}
	idx.Version = version
	idx.Chunks = entries
	idx.Labels = nil
	if len(labels) > 0 {
		idx.Labels = make(map[string]chunk.Name, len(labels))
		for k, v := range labels {
			idx.Labels[k] = chunk.Name(v)
		}
	}
	return nil
}

// ErrNoIndex is returned by ReadIndex when the bundle carries no index.
var ErrNoIndex = errors.New("bundle: no index")

// ReadIndex scans a bundle for its index without importing anything.
func ReadIndex(r io.Reader) (Index, error) {
	tr := tar.NewReader(r)
	for {
		h, err := tr.Next()
		if errors.Is(err, io.EOF) {
			return Index{}, ErrNoIndex
		}
		if err != nil {
			return Index{}, err
		}
		if cleanTarPath(h.Name) != indexName || h.Typeflag != tar.TypeReg {
			continue
		}
		b, err := io.ReadAll(tr)
		if err != nil {
			return Index{}, err
		}
		var idx Index
		if err := idx.UnmarshalBinary(b); err != nil {
			return Index{}, err
		}
		return idx, nil
	}
}
