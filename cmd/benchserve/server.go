// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchprom"
	"github.com/benchprom/benchprom/benchreport"
	"github.com/benchprom/benchprom/internal/pipeline"
)

// A server holds the most recent report and serves it as metrics.
type server struct {
	opts   pipeline.Options
	labels map[string]string // configured run labels
	log    *slog.Logger

	// reg holds the server's own metrics.
	reg *prometheus.Registry

	mu      sync.RWMutex
	report  benchreport.Report
	emitter *benchprom.Emitter
}

func newServer(opts pipeline.Options, labels map[string]string, log *slog.Logger) *server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	opts.Metrics = pipeline.NewMetrics(reg)
	opts.Logger = log
	if opts.Policy == nil {
		opts.Policy = benchpolicy.Default()
	}
	return &server{opts: opts, labels: labels, log: log, reg: reg}
}

// refresh re-runs the pipeline and replaces the served report. The
// run labels are fixed by the first successful run.
func (s *server) refresh(ctx context.Context) error {
	res, err := pipeline.Run(ctx, s.opts)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.emitter == nil {
		e := benchprom.New(s.opts.Policy, res.RunLabels(s.labels))
		if err := e.Validate(); err != nil {
			return err
		}
		s.emitter = e
	}
	s.report = res.Report
	return nil
}

func (s *server) current() benchreport.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

func (s *server) handler() http.Handler {
	s.mu.RLock()
	e := s.emitter
	s.mu.RUnlock()
	if e == nil {
		e = benchprom.New(s.opts.Policy, nil)
	}
	g := prometheus.Gatherers{e.Gatherer(s.current), s.reg}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{ErrorLog: slog.NewLogLogger(s.log.Handler(), slog.LevelError)}))
	mux.HandleFunc("/report", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		if err := benchreport.Encode(w, s.current()); err != nil {
			s.log.Error("writing report", slog.String("err", err.Error()))
		}
	})
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

// watch re-runs the pipeline whenever files under the root change,
// waiting until no change has happened for debounce. It returns when
// ctx is done.
func (s *server) watch(ctx context.Context, debounce time.Duration) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	root := s.opts.Root
	if info, err := os.Stat(root); err == nil && !info.IsDir() {
		root = filepath.Dir(root)
	}
	if err := addTree(w, root); err != nil {
		return err
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := addTree(w, ev.Name); err != nil {
						s.log.Warn("watching new directory", slog.String("path", ev.Name), slog.String("err", err.Error()))
					}
				}
			}
			s.log.Debug("change", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.log.Warn("watch error", slog.String("err", err.Error()))
		case <-timer.C:
			if err := s.refresh(ctx); err != nil {
				s.log.Error("refreshing report", slog.String("err", err.Error()))
			}
		}
	}
}

// addTree watches dir and every directory below it.
func addTree(w *fsnotify.Watcher, dir string) error {
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if err := w.Add(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return err
		}
		return nil
	})
}
