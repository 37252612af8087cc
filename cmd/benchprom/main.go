// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchprom converts Android benchmark output into a JSON report and
// Prometheus metrics.
//
// Usage:
//
//	benchprom [flags] [dir | report.json]
//
// Given a directory (the default is the configured root, "."),
// benchprom finds every benchmark output file under it, writes the
// normalized report to -report and the metrics to -metrics. Given a
// report file written by an earlier run, it only converts the report
// to metrics.
//
// The -format flag selects the metrics format:
//
//	prometheus  Prometheus text exposition (the default)
//	influx      InfluxDB line protocol
//	text        a human-readable summary table
//	html        the summary table as an HTML fragment
//
// Every run label set with -label, the config file, or the
// BENCHPROM_LABELS_* environment variables is attached to each
// metric. The branch and commit labels default to the GitHub Actions
// GITHUB_REF_NAME and GITHUB_SHA variables.
//
// Missing input directories and unreadable files are reported on
// standard error but are not errors. Benchprom exits with status 1 if
// the report or metrics cannot be written, and 2 on usage errors.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/pflag"

	"github.com/benchprom/benchprom/benchinflux"
	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchprom"
	"github.com/benchprom/benchprom/benchreport"
	"github.com/benchprom/benchprom/benchtab"
	"github.com/benchprom/benchprom/internal/config"
	"github.com/benchprom/benchprom/internal/logger"
	"github.com/benchprom/benchprom/internal/pipeline"
)

// A usageError is an error in the command line.
type usageError struct {
	err error
}

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

var now = time.Now // replaced during testing

func run(stdout, stderr io.Writer, args []string) error {
	fs := pflag.NewFlagSet("benchprom", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "Usage: benchprom [flags] [dir | report.json]\n")
		fs.PrintDefaults()
	}
	config.Flags(fs, "config", "report", "metrics", "format", "workers", "log-level", "log-format", "prefix", "label")
	dumpConfig := fs.Bool("dump-config", false, "print the effective configuration and exit")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return &usageError{err}
	}
	if fs.NArg() > 1 {
		fs.Usage()
		return &usageError{errors.New("too many arguments")}
	}

	path, _ := fs.GetString("config")
	cfg, err := config.Load(path, fs)
	if err != nil {
		return err
	}
	if fs.NArg() == 1 {
		cfg.Root = fs.Arg(0)
	}
	if *dumpConfig {
		return cfg.Dump(stdout)
	}
	log, err := logger.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	p, err := cfg.BuildPolicy()
	if err != nil {
		return err
	}

	var (
		report benchreport.Report
		labels = cfg.Labels
	)
	if benchreport.IsReportFile(cfg.Root) {
		log.Debug("reading report", slog.String("path", cfg.Root))
		report, err = benchreport.Read(cfg.Root)
		if err != nil {
			return err
		}
	} else {
		opts, err := pipeline.FromConfig(cfg, log)
		if err != nil {
			return err
		}
		res, err := pipeline.Run(context.Background(), opts)
		if err != nil {
			return err
		}
		report, labels = res.Report, res.RunLabels(cfg.Labels)
		if cfg.Report != "" {
			if err := benchreport.WriteFile(cfg.Report, report); err != nil {
				return err
			}
			log.Info("wrote report", slog.String("path", cfg.Report), slog.Int("entries", len(report)))
		}
	}

	return writeMetrics(stdout, cfg, p, labels, report)
}

func writeMetrics(stdout io.Writer, cfg *config.Config, p *benchpolicy.Policy, labels map[string]string, r benchreport.Report) error {
	var buf bytes.Buffer
	switch cfg.Format {
	case config.FormatPrometheus:
		e := benchprom.New(p, labels)
		if err := e.Validate(); err != nil {
			return err
		}
		if err := e.WriteText(&buf, r); err != nil {
			return err
		}
	case config.FormatInflux:
		e := &benchinflux.Encoder{Policy: p, Labels: labels, Precision: time.Second}
		if err := e.Write(&buf, r, now()); err != nil {
			return err
		}
	case config.FormatText:
		if err := benchtab.Write(&buf, p, r); err != nil {
			return err
		}
	case config.FormatHTML:
		if err := benchtab.WriteHTML(&buf, p, r); err != nil {
			return err
		}
	}

	if cfg.Metrics == "-" || cfg.Metrics == "" {
		_, err := stdout.Write(buf.Bytes())
		return err
	}
	return os.WriteFile(cfg.Metrics, buf.Bytes(), 0o644)
}

func main() {
	err := run(os.Stdout, os.Stderr, os.Args[1:])
	if err == nil {
		return
	}
	var uerr *usageError
	if errors.As(err, &uerr) {
		os.Exit(2)
	}
	fmt.Fprintf(os.Stderr, "benchprom: %v\n", err)
	os.Exit(1)
}
