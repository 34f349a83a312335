package ipfs

import (
	"flag"
	"os"

	"xdao.co/chunkstore/storage"
	"xdao.co/chunkstore/storage/casregistry"
)

var (
	flagBin  string
	flagPath string
)

func init() {
	casregistry.MustRegister(casregistry.Backend{
		Name:        "ipfs",
		Description: "Local Kubo repository via the ipfs CLI (hashable chunks only)",
		Usage:       casregistry.UsageCLI | casregistry.UsageDaemon,
		RegisterFlags: func(fs *flag.FlagSet) {
			fs.StringVar(&flagBin, "ipfs-bin", "", "ipfs binary (for --backend=ipfs; default: ipfs on PATH)")
			fs.StringVar(&flagPath, "ipfs-path", "", "IPFS_PATH for the ipfs CLI (for --backend=ipfs)")
		},
		Open: func() (storage.CAS, func() error, error) {
			return open(flagBin, flagPath), nil, nil
		},
		OpenConfig: func(cfg map[string]string) (storage.CAS, func() error, error) {
			return open(cfg["ipfs-bin"], cfg["ipfs-path"]), nil, nil
		},
	})
}

func open(bin, repo string) *CAS {
	var env []string
	if repo != "" {
		env = append(os.Environ(), "IPFS_PATH="+repo)
	}
	return New(Options{Bin: bin, Env: env})
}
