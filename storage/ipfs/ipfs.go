package ipfs

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/ipfs/go-cid"

	"xdao.co/chunkstore/chunk"
	"xdao.co/chunkstore/cidutil"
	"xdao.co/chunkstore/storage"
)

// CAS is a chunk store backed by the local Kubo "ipfs" CLI.
//
// Properties:
// - Offline: operates on the local IPFS repo; does not require an IPFS daemon.
// - Deterministic: no wall-clock usage; validates bytes against the requested name.
// - Best-effort: relies on an external "ipfs" binary (configurable).
//
// Only hashable chunks are supported. Their names are raw CIDv1 blocks, which is
// exactly what "ipfs block put" produces for the same digest function.
//
// Note: This package name is "ipfs" for familiarity, but it does not embed a
// network client; it shells out to the local Kubo CLI.
type CAS struct {
	bin string
	env []string
	v   chunk.Default
}

var _ storage.CAS = (*CAS)(nil)

type Options struct {
	// Bin is the path to the ipfs binary. If empty, "ipfs" is used.
	Bin string
	// Env optionally overrides the command environment (e.g. to set IPFS_PATH).
	// If nil, the process environment is used.
	Env []string
}

func New(opts Options) *CAS {
	bin := opts.Bin
	if bin == "" {
		bin = "ipfs"
	}
	return &CAS{bin: bin, env: opts.Env}
}

func (c *CAS) decode(name chunk.Name) (cidutil.Decoded, error) {
	if !c.v.ValidName(name) {
		return cidutil.Decoded{}, storage.ErrInvalidName
	}
	return cidutil.Decode(string(name))
}

func (c *CAS) Put(name chunk.Name, content []byte) error {
	dec, err := c.decode(name)
	if err != nil {
		return err
	}
	if err := c.v.Check(name, content); err != nil {
		return storage.InvalidChunk(err)
	}

	out, err := c.run(content,
		"block", "put",
		"--quiet",
		"--cid-codec=raw",
		"--mhtype="+dec.Name,
		fmt.Sprintf("--mhlen=%d", len(dec.Digest)),
		"/dev/stdin",
	)
	if err != nil {
		return err
	}

	got, err := cid.Decode(strings.TrimSpace(string(out)))
	if err != nil {
		return fmt.Errorf("ipfs: unexpected block put output: %w", err)
	}
	if !got.Equals(dec.CID) {
		return fmt.Errorf("ipfs: block put returned %s for %s", got, name)
	}
	return nil
}

func (c *CAS) Get(name chunk.Name) ([]byte, error) {
	if _, err := c.decode(name); err != nil {
		return nil, err
	}

	out, err := c.run(nil, "block", "get", string(name))
	if err != nil {
		if isLikelyNotFound(err) {
			return nil, storage.ErrNotFound
		}
		return nil, err
	}
	if err := c.v.Check(name, out); err != nil {
		return nil, storage.InvalidChunk(err)
	}
	return out, nil
}

func (c *CAS) Has(name chunk.Name) bool {
	if _, err := c.decode(name); err != nil {
		return false
	}
	_, err := c.run(nil, "block", "stat", string(name))
	return err == nil
}

func (c *CAS) run(stdin []byte, args ...string) ([]byte, error) {
	cmd := exec.Command(c.bin, args...)
	if c.env != nil {
		cmd.Env = c.env
	}
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}

	out, err := cmd.Output()
	if err == nil {
		return out, nil
	}

	var ee *exec.ExitError
	if errors.As(err, &ee) {
		s := strings.TrimSpace(string(ee.Stderr))
		if s == "" {
			return nil, fmt.Errorf("ipfs: %v", err)
		}
		return nil, fmt.Errorf("ipfs: %s", s)
	}
	return nil, err
}

func isLikelyNotFound(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "not found") || strings.Contains(msg, "block not found")
}
