// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchserve serves benchmark results as Prometheus metrics.
//
// Usage:
//
//	benchserve [flags] [dir]
//
// Benchserve reads the benchmark output under dir once at startup and
// serves it on -addr:
//
//	/metrics  the benchmark metrics and benchserve's own metrics
//	/report   the current JSON report
//	/healthz  a liveness check
//
// With -watch, the output is re-read whenever a file under dir
// changes, once no change has happened for -debounce.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/benchprom/benchprom/internal/config"
	"github.com/benchprom/benchprom/internal/logger"
	"github.com/benchprom/benchprom/internal/pipeline"
)

// serve runs the server until ctx is done. If ready is non-nil, it
// receives the listening address once the first report is loaded.
func serve(ctx context.Context, stderr io.Writer, args []string, ready chan<- string) error {
	fs := pflag.NewFlagSet("benchserve", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: benchserve [flags] [dir]\n")
		fs.PrintDefaults()
	}
	config.Flags(fs, "config", "addr", "watch", "debounce", "workers", "log-level", "log-format", "prefix", "label")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return errors.New("too many arguments")
	}
	path, _ := fs.GetString("config")
	cfg, err := config.Load(path, fs)
	if err != nil {
		return err
	}
	if fs.NArg() == 1 {
		cfg.Root = fs.Arg(0)
	}
	log, err := logger.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	opts, err := pipeline.FromConfig(cfg, log)
	if err != nil {
		return err
	}

	s := newServer(opts, cfg.Labels, log)
	if err := s.refresh(ctx); err != nil {
		return err
	}

	ln, err := net.Listen("tcp", cfg.Serve.Addr)
	if err != nil {
		return err
	}
	srv := &http.Server{Handler: s.handler(), ReadHeaderTimeout: 10 * time.Second}
	log.Info("serving metrics", slog.String("addr", ln.Addr().String()), slog.String("root", cfg.Root))
	if ready != nil {
		ready <- ln.Addr().String()
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.Serve(ln); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.Serve.Watch {
		g.Go(func() error {
			if err := s.watch(ctx, cfg.Serve.Debounce); err != nil {
				// Keep serving the last report.
				log.Error("watching for changes", slog.String("root", cfg.Root), slog.String("err", err.Error()))
			}
			return nil
		})
	}
	return g.Wait()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := serve(ctx, os.Stderr, os.Args[1:], nil); err != nil {
		fmt.Fprintf(os.Stderr, "benchserve: %v\n", err)
		os.Exit(1)
	}
}
