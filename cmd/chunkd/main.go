// Command chunkd serves a validated chunk store over gRPC.
//
// Settings come from CHUNKD_* environment variables (see internal/config); backend
// options come from flags or, with CHUNKD_STORE_CONFIG, a JSON or YAML store config.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"

	"xdao.co/chunkstore/internal/config"
	"xdao.co/chunkstore/internal/logging"
	"xdao.co/chunkstore/storage"
	"xdao.co/chunkstore/storage/casconfig"
	"xdao.co/chunkstore/storage/casregistry"
	"xdao.co/chunkstore/storage/grpccas"

	_ "xdao.co/chunkstore/storage/ipfs"
	_ "xdao.co/chunkstore/storage/localfs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, out, errOut io.Writer) int {
	fs := flag.NewFlagSet("chunkd", flag.ContinueOnError)
	fs.SetOutput(errOut)
	listBackends := fs.Bool("list-backends", false, "List supported backends and exit")
	casregistry.RegisterFlags(fs, casregistry.UsageDaemon)
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *listBackends {
		for _, b := range casregistry.List(casregistry.UsageDaemon) {
			_, _ = fmt.Fprintf(out, "%s\t%s\n", b.Name, b.Description)
		}
		return 0
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	logger, err := logging.New(errOut, cfg.Log)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}

	cas, closeFn, err := openStore(cfg)
	if err != nil {
		logger.Error("open store", "backend", cfg.Backend, "err", err)
		return 2
	}
	if closeFn != nil {
		defer closeFn()
	}

	lis, err := net.Listen("tcp", cfg.Listen)
	if err != nil {
		logger.Error("listen", "addr", cfg.Listen, "err", err)
		return 1
	}

	logger.Info("chunkd listening", "addr", lis.Addr().String(), "backend", cfg.Backend, "store_config", cfg.StoreConfig)
	if err := serve(ctx, lis, cas, cfg, logger); err != nil {
		logger.Error("serve", "err", err)
		return 1
	}
	logger.Info("chunkd stopped")
	return 0
}

func openStore(cfg config.Config) (storage.CAS, func() error, error) {
	if cfg.StoreConfig != "" {
		sc, err := casconfig.LoadFile(cfg.StoreConfig)
		if err != nil {
			return nil, nil, err
		}
		return sc.Open(casregistry.UsageDaemon, "")
	}
	return casregistry.Open(cfg.Backend, casregistry.UsageDaemon)
}

// serve runs the gRPC server on lis until ctx ends, then drains in-flight calls for
// at most cfg.ShutdownTimeout.
func serve(ctx context.Context, lis net.Listener, cas storage.CAS, cfg config.Config, logger *slog.Logger) error {
	opts := []grpc.ServerOption{grpc.ChainUnaryInterceptor(grpccas.LoggingInterceptor(logger))}
	if cfg.MaxMsgBytes > 0 {
		opts = append(opts, grpc.MaxRecvMsgSize(cfg.MaxMsgBytes), grpc.MaxSendMsgSize(cfg.MaxMsgBytes))
	}
	s := grpc.NewServer(opts...)
	grpccas.RegisterCASServer(s, &grpccas.Server{CAS: cas, Logger: logger})

	errc := make(chan error, 1)
	go func() { errc <- s.Serve(lis) }()

	select {
	case err := <-errc:
		if errors.Is(err, grpc.ErrServerStopped) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	done := make(chan struct{})
	go func() {
		s.GracefulStop()
		close(done)
	}()
	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	select {
	case <-done:
	case <-time.After(timeout):
		logger.Warn("graceful stop timed out; closing connections")
		s.Stop()
	}
	return nil
}
