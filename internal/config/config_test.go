// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/spf13/pflag"

	"github.com/benchprom/benchprom/benchfile"
	"github.com/benchprom/benchprom/benchpolicy"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o666); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestDefaults(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Format != FormatPrometheus || cfg.Metrics != "-" || cfg.Workers != 4 {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if diff := cmp.Diff(benchfile.DefaultMatch, cfg.FileMatch()); diff != "" {
		t.Errorf("match mismatch (-want +got):\n%s", diff)
	}
	p, err := cfg.BuildPolicy()
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(benchpolicy.Default(), p); diff != "" {
		t.Errorf("policy mismatch (-want +got):\n%s", diff)
	}
	if cfg.Serve.Debounce != 2*time.Second {
		t.Errorf("debounce = %v, want 2s", cfg.Serve.Debounce)
	}
}

func TestFile(t *testing.T) {
	path := writeConfig(t, "benchprom.yaml", `
root: out
format: influx
workers: 8
labels:
  team: perf
match:
  contains: ""
policy:
  prefix: app_bench
  require_positive: [alloc_median, iterations]
extract:
  structured: false
  patterns:
    - field: median
      kind: time_median
serve:
  debounce: 500ms
`)
	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Root != "out" || cfg.Format != FormatInflux || cfg.Workers != 8 {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Labels["team"] != "perf" {
		t.Errorf("labels = %v, want team=perf", cfg.Labels)
	}
	if cfg.Match.Contains != "" {
		t.Errorf("match.contains = %q, want empty", cfg.Match.Contains)
	}
	if cfg.Serve.Debounce != 500*time.Millisecond {
		t.Errorf("debounce = %v", cfg.Serve.Debounce)
	}

	p, err := cfg.BuildPolicy()
	if err != nil {
		t.Fatal(err)
	}
	if p.Prefix != "app_bench" {
		t.Errorf("prefix = %q", p.Prefix)
	}
	for _, r := range p.Rules {
		want := r.Kind == benchpolicy.AllocMedian || r.Kind == benchpolicy.Iterations
		if r.RequirePositive != want {
			t.Errorf("%s: RequirePositive = %v, want %v", r.Kind, r.RequirePositive, want)
		}
	}

	x, err := cfg.Extractor()
	if err != nil {
		t.Fatal(err)
	}
	res := x.Extract("a.json", []byte(`{"name":"a","median":5,"minimum":1}`))
	if len(res.Samples) != 1 || res.Samples[0].Kind != benchpolicy.TimeMedian {
		t.Errorf("custom patterns extracted %v", res.Samples)
	}
}

func TestEnvironment(t *testing.T) {
	t.Setenv("BENCHPROM_FORMAT", "text")
	t.Setenv("BENCHPROM_LABELS_BRANCH", "")
	t.Setenv("GITHUB_REF_NAME", "release-1.2")
	t.Setenv("GITHUB_SHA", "0123456789abcdef0123456789abcdef01234567")
	t.Setenv("BENCHPROM_LABELS_DEVICE", "Pixel 6")
	t.Setenv("BENCHPROM_LABELS_RUNNER", "ci-7")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Format != FormatText {
		t.Errorf("format = %q, want text", cfg.Format)
	}
	want := map[string]string{
		"branch": "release-1.2",
		"commit": "0123456",
		"device": "Pixel 6",
		"brand":  "",
		"runner": "ci-7",
	}
	if diff := cmp.Diff(want, cfg.Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestFlags(t *testing.T) {
	path := writeConfig(t, "benchprom.json", `{"format": "influx", "workers": 2}`)
	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	Flags(fs, "format", "workers", "label", "log-level")
	if err := fs.Parse([]string{"--format=text", "--label", "branch=main,owner=me"}); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path, fs)
	if err != nil {
		t.Fatal(err)
	}
	// Set flags win; unset ones leave the file alone.
	if cfg.Format != FormatText || cfg.Workers != 2 || cfg.Log.Level != "info" {
		t.Errorf("unexpected config %+v", cfg)
	}
	if cfg.Labels["branch"] != "main" || cfg.Labels["owner"] != "me" {
		t.Errorf("labels = %v", cfg.Labels)
	}
}

func TestInvalid(t *testing.T) {
	test := func(content, key string) {
		t.Helper()
		_, err := Load(writeConfig(t, "c.yaml", content), nil)
		var cerr *Error
		if !errors.As(err, &cerr) || cerr.Key != key {
			t.Errorf("%q: got error %v, want config error for %s", content, err, key)
		}
	}
	test("format: xml", "format")
	test("workers: -1", "workers")
	test("log: {level: loud}", "log.level")
	test("archive: {driver: postgres}", "archive.driver")
	test("policy: {require_positive: [speed]}", "policy.require_positive")
	test("extract: {patterns: [{field: median, kind: speed}]}", "extract.patterns")

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml"), nil); err == nil {
		t.Errorf("loading a missing config file succeeded")
	}
}

func TestDump(t *testing.T) {
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := cfg.Dump(&buf); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"format: prometheus", "workers: 4", "contains: benchmarkData", "prefix: android_benchmark"} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("dump missing %q:\n%s", want, buf.String())
		}
	}
}
