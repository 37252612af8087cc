// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Benchsave stores benchmark reports in an archive database so they
// can be compared across runs.
//
// Usage:
//
//	benchsave [flags] (dir | report.json)...
//	benchsave [flags] -list
//	benchsave [flags] -series test [-stat kind] [-chart file.png]
//	benchsave [flags] -delete run-id
//
// Each argument is either a directory of benchmark output, which is
// converted to a report first, or a report written by benchprom. Each
// one is stored as a separate run, labeled with the configured run
// labels, and its run ID is printed.
//
// -list prints every stored run. -series prints the history of one
// statistic of one test, oldest first, marking the runs where it
// changed by more than -threshold; -chart also draws it as a PNG
// image.
//
// The archive is a SQLite database file by default (-db). Use
// -db-driver mysql with a MySQL DSN to share an archive.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"github.com/spf13/pflag"

	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchreport"
	"github.com/benchprom/benchprom/benchseries"
	"github.com/benchprom/benchprom/benchtab"
	"github.com/benchprom/benchprom/internal/config"
	"github.com/benchprom/benchprom/internal/logger"
	"github.com/benchprom/benchprom/internal/pipeline"
	"github.com/benchprom/benchprom/storage/db"
	_ "github.com/benchprom/benchprom/storage/db/sqlite3"
)

func benchsave(stdout, stderr io.Writer, args []string) error {
	fs := pflag.NewFlagSet("benchsave", pflag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, `Usage of benchsave:
	benchsave [flags] (dir | report.json)...
	benchsave [flags] -list
	benchsave [flags] -series test [-stat kind] [-chart file.png]
	benchsave [flags] -delete run-id
`)
		fs.PrintDefaults()
	}
	config.Flags(fs, "config", "db-driver", "db", "workers", "log-level", "log-format", "label")
	list := fs.Bool("list", false, "list stored runs")
	series := fs.String("series", "", "print the history of `test`")
	stat := fs.String("stat", benchpolicy.TimeMedian.String(), "statistic `kind` printed by -series")
	chart := fs.String("chart", "", "with -series, also draw the history as a PNG image to `file`")
	threshold := fs.Float64("threshold", 0.05, "with -series, flag changes larger than `fraction`")
	del := fs.String("delete", "", "delete the run with `id`")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}
	modes := 0
	for _, set := range []bool{*list, *series != "", *del != "", fs.NArg() > 0} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		fs.Usage()
		return errors.New("need exactly one of -list, -series, -delete or inputs")
	}

	path, _ := fs.GetString("config")
	cfg, err := config.Load(path, fs)
	if err != nil {
		return err
	}
	log, err := logger.New(stderr, cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return err
	}
	d, err := db.OpenSQL(cfg.Archive.Driver, cfg.Archive.DSN)
	if err != nil {
		return fmt.Errorf("opening archive: %w", err)
	}
	defer d.Close()
	ctx := context.Background()

	switch {
	case *list:
		return listRuns(ctx, stdout, d)
	case *series != "":
		k, err := benchpolicy.ParseKind(*stat)
		if err != nil {
			return err
		}
		return printSeries(ctx, stdout, d, *series, k, *chart, *threshold)
	case *del != "":
		if err := d.DeleteRun(ctx, *del); err != nil {
			return fmt.Errorf("deleting %s: %w", *del, err)
		}
		log.Info("deleted run", slog.String("run", *del))
		return nil
	}

	for _, arg := range fs.Args() {
		start := time.Now()
		r, labels, err := load(ctx, cfg, log, arg)
		if err != nil {
			return err
		}
		run, err := d.SaveReport(ctx, labels, r)
		if err != nil {
			return fmt.Errorf("saving %s: %w", arg, err)
		}
		log.Debug("saved run", slog.String("input", arg), slog.Int("entries", len(r)), slog.Duration("elapsed", time.Since(start)))
		fmt.Fprintln(stdout, run.ID)
	}
	return nil
}

// load returns the report for arg and its run labels.
func load(ctx context.Context, cfg *config.Config, log *slog.Logger, arg string) (benchreport.Report, map[string]string, error) {
	if benchreport.IsReportFile(arg) {
		r, err := benchreport.Read(arg)
		return r, cfg.Labels, err
	}
	c := *cfg
	c.Root = arg
	opts, err := pipeline.FromConfig(&c, log)
	if err != nil {
		return nil, nil, err
	}
	res, err := pipeline.Run(ctx, opts)
	if err != nil {
		return nil, nil, err
	}
	return res.Report, res.RunLabels(cfg.Labels), nil
}

func listRuns(ctx context.Context, w io.Writer, d *db.DB) error {
	runs, err := d.Runs(ctx)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		return nil
	}
	t := new(benchtab.Table)
	t.Row("run", "created", "labels")
	for _, r := range runs {
		var labels []string
		for k, v := range r.Labels {
			labels = append(labels, k+"="+v)
		}
		sort.Strings(labels)
		t.Row(r.ID, r.Created.Format(time.RFC3339), strings.Join(labels, " "))
	}
	return t.Format(w)
}

func printSeries(ctx context.Context, w io.Writer, d *db.DB, test string, k benchpolicy.Kind, chart string, threshold float64) error {
	pts, err := d.Series(ctx, test, k)
	if err != nil {
		return err
	}
	if len(pts) == 0 {
		return fmt.Errorf("no %s values for %s", k, test)
	}
	s := &benchseries.Series{Test: test, Stat: k.String()}
	if rule, ok := benchpolicy.Default().Rule(k); ok {
		s.Unit = rule.Unit
	}
	for _, p := range pts {
		label := p.RunID
		if len(label) > 8 {
			label = label[:8]
		}
		s.Points = append(s.Points, benchseries.Point{Label: label, Time: p.Created, Value: p.Value})
	}

	changed := make(map[int]bool)
	for _, c := range s.Changes(threshold) {
		changed[c.Index] = true
	}
	t := new(benchtab.Table)
	t.Row("run", "created", k.String(), "delta")
	for i, r := range s.Ratios() {
		p := s.Points[i]
		delta := "~"
		if i == 0 {
			delta = ""
		} else if changed[i] {
			delta = benchseries.FormatDelta(r)
		}
		t.Row(pts[i].RunID, p.Time.Format(time.RFC3339), strconv.FormatFloat(p.Value, 'f', -1, 64)+s.Unit, delta)
	}
	if err := t.Format(w); err != nil {
		return err
	}

	if chart == "" {
		return nil
	}
	f, err := os.Create(chart)
	if err != nil {
		return err
	}
	if err := s.WritePNG(f, threshold); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func main() {
	if err := benchsave(os.Stdout, os.Stderr, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "benchsave: %v\n", err)
		os.Exit(1)
	}
}
