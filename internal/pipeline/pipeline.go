// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package pipeline turns a directory of benchmark output into a
// report: it finds the artifacts, extracts their samples, and
// normalizes them into report entries.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/benchprom/benchprom/benchdiag"
	"github.com/benchprom/benchprom/benchfile"
	"github.com/benchprom/benchprom/benchnorm"
	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchreport"
	"github.com/benchprom/benchprom/benchscan"
	"github.com/benchprom/benchprom/internal/config"
)

// Options configures a run.
type Options struct {
	Root      string
	Match     benchfile.Match
	Extractor *benchscan.Extractor
	Policy    *benchpolicy.Policy

	// Workers is the number of artifacts read and extracted
	// concurrently. Values below 2 read sequentially.
	Workers int

	// Logger receives diagnostics and progress. It may be nil.
	Logger *slog.Logger

	// Metrics, if non-nil, is updated after each run.
	Metrics *Metrics
}

// FromConfig returns the options described by cfg.
func FromConfig(cfg *config.Config, logger *slog.Logger) (Options, error) {
	p, err := cfg.BuildPolicy()
	if err != nil {
		return Options{}, err
	}
	x, err := cfg.Extractor()
	if err != nil {
		return Options{}, err
	}
	return Options{
		Root:      cfg.Root,
		Match:     cfg.FileMatch(),
		Extractor: x,
		Policy:    p,
		Workers:   cfg.Workers,
		Logger:    logger,
	}, nil
}

// A Result is the outcome of one run.
type Result struct {
	Report benchreport.Report

	// Labels holds the run metadata found in the artifacts. When
	// artifacts disagree, the first one in traversal order wins.
	Labels map[string]string

	Artifacts   int // candidate files found
	Samples     int // samples extracted, before filtering
	Diagnostics []*benchdiag.Diagnostic
}

// RunLabels returns the labels for the run's metrics: the artifact
// labels overridden by the non-empty values of configured.
func (r *Result) RunLabels(configured map[string]string) map[string]string {
	labels := make(map[string]string)
	for k, v := range r.Labels {
		labels[k] = v
	}
	for k, v := range configured {
		if v != "" {
			labels[k] = v
		}
	}
	return labels
}

// Count returns the number of diagnostics of kind k.
func (r *Result) Count(k benchdiag.Kind) int {
	n := 0
	for _, d := range r.Diagnostics {
		if d.Kind == k {
			n++
		}
	}
	return n
}

// Run runs the pipeline once. A missing root is not an error: the
// report is empty and the result carries a MissingInputDirectory
// diagnostic. Errors reading individual artifacts become
// UnparseableArtifact diagnostics.
func Run(ctx context.Context, opts Options) (*Result, error) {
	start := time.Now()
	if opts.Extractor == nil {
		opts.Extractor = benchscan.Default()
	}
	if opts.Policy == nil {
		opts.Policy = benchpolicy.Default()
	}
	diags := benchdiag.NewCollector(opts.Logger)

	extracted, err := extract(ctx, opts)
	if benchfile.IsMissingRoot(err) {
		diags.Add(&benchdiag.Diagnostic{Kind: benchdiag.MissingInputDirectory, Path: opts.Root, Err: err})
		err = nil
	}
	if err != nil {
		return nil, err
	}

	res := &Result{Artifacts: len(extracted)}
	n := benchnorm.New(opts.Policy)
	for _, x := range extracted {
		for _, d := range x.Diagnostics {
			diags.Add(d)
		}
		for k, v := range x.Labels {
			if _, ok := res.Labels[k]; ok || v == "" {
				continue
			}
			if res.Labels == nil {
				res.Labels = make(map[string]string)
			}
			res.Labels[k] = v
		}
		for _, s := range x.Samples {
			if err := n.Add(s); err != nil {
				return nil, err
			}
			res.Samples++
		}
	}
	res.Report = benchreport.FromRecords(opts.Policy, n.Records())
	res.Diagnostics = diags.Diagnostics()

	if opts.Logger != nil {
		opts.Logger.Info("benchmark run complete",
			slog.String("root", opts.Root),
			slog.Int("artifacts", res.Artifacts),
			slog.Int("samples", res.Samples),
			slog.Int("entries", len(res.Report)),
			slog.Int("diagnostics", len(res.Diagnostics)),
			slog.Duration("elapsed", time.Since(start)))
	}
	opts.Metrics.observe(res, time.Since(start))
	return res, nil
}

// extract reads and extracts every artifact under opts.Root, returning
// the results in traversal order.
func extract(ctx context.Context, opts Options) ([]benchscan.Result, error) {
	if opts.Workers < 2 {
		return extractSequential(ctx, opts)
	}
	paths, err := benchfile.Find(opts.Root, opts.Match)
	if err != nil {
		return nil, err
	}
	results := make([]benchscan.Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = extractArtifact(opts.Extractor, benchfile.ReadArtifact(path))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func extractSequential(ctx context.Context, opts Options) ([]benchscan.Result, error) {
	var results []benchscan.Result
	files := &benchfile.Files{Root: opts.Root, Match: opts.Match}
	for files.Scan() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		results = append(results, extractArtifact(opts.Extractor, files.Artifact()))
	}
	if err := files.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

func extractArtifact(x *benchscan.Extractor, a benchfile.Artifact) benchscan.Result {
	if a.Err != nil {
		return benchscan.Result{Diagnostics: []*benchdiag.Diagnostic{{
			Kind: benchdiag.UnparseableArtifact,
			Path: a.Path,
			Err:  fmt.Errorf("reading: %w", a.Err),
		}}}
	}
	return x.Extract(a.Path, a.Content)
}
