// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/benchprom/benchprom/benchdiag"
	"github.com/benchprom/benchprom/benchreport"
)

const androidOutput = `[
  {"name": "mapSingleUser", "median": 18000, "medianAllocationCount": 0},
  {"name": "mapUserList_100Items", "median": 1520000, "medianAllocationCount": 1520}
]`

// clearEnv hides CI variables that would add run labels.
func clearEnv(t *testing.T) {
	for _, v := range []string{"GITHUB_REF_NAME", "GITHUB_SHA", "BENCHPROM_LABELS_BRANCH", "BENCHPROM_LABELS_COMMIT", "BENCHPROM_LABELS_DEVICE", "BENCHPROM_LABELS_BRAND"} {
		t.Setenv(v, "")
	}
}

func outputDir(t *testing.T) string {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "build", "outputs")
	if err := os.MkdirAll(dir, 0o777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "app-benchmarkData.json"), []byte(androidOutput), 0o666); err != nil {
		t.Fatal(err)
	}
	return dir
}

func runCmd(t *testing.T, args ...string) (stdout string, err error) {
	t.Helper()
	var out, errOut bytes.Buffer
	t.Logf("benchprom %s", strings.Join(args, " "))
	err = run(&out, &errOut, args)
	if errOut.Len() > 0 {
		t.Logf("stderr:\n%s", errOut.String())
	}
	return out.String(), err
}

func TestPrometheus(t *testing.T) {
	clearEnv(t)
	dir := outputDir(t)
	reportPath := filepath.Join(t.TempDir(), "report.json")
	out, err := runCmd(t, "--report", reportPath, "--label", "branch=main", "--workers", "1", dir)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{
		"# TYPE android_benchmark_time_ns gauge",
		`android_benchmark_time_ns{branch="main",method="mapSingleUser",stat="median"} 18000`,
		`android_benchmark_allocations{branch="main",method="mapUserList_100Items",stat="median"} 1520`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, `android_benchmark_allocations{branch="main",method="mapSingleUser"`) {
		t.Errorf("zero allocation count was emitted:\n%s", out)
	}

	r, err := benchreport.Read(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	if len(r) != 2 || r[0].Name != "mapSingleUser" || r[0].Value != 18 || r[1].Value != 1520 {
		t.Errorf("report = %+v", r)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"value": 18.0,`)) {
		t.Errorf("report does not render 18 as a float:\n%s", data)
	}
}

func TestReportInput(t *testing.T) {
	clearEnv(t)
	defer func(old func() time.Time) { now = old }(now)
	now = func() time.Time { return time.Unix(1700000000, 0) }

	dir := t.TempDir()
	in := filepath.Join(dir, "in.json")
	if err := os.WriteFile(in, []byte(`  [{"name": "x", "value": 2.5, "unit": "μs"}]`), 0o666); err != nil {
		t.Fatal(err)
	}
	reportPath := filepath.Join(dir, "out.json")
	out, err := runCmd(t, "--format", "influx", "--report", reportPath, in)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "time_ns_median=2500i") || !strings.HasSuffix(out, " 1700000000\n") {
		t.Errorf("unexpected output %q", out)
	}
	if _, err := os.Stat(reportPath); !os.IsNotExist(err) {
		t.Errorf("report input was rewritten to %s", reportPath)
	}
}

func TestText(t *testing.T) {
	clearEnv(t)
	metrics := filepath.Join(t.TempDir(), "summary.txt")
	out, err := runCmd(t, "--format=text", "--report", "", "--metrics", metrics, outputDir(t))
	if err != nil {
		t.Fatal(err)
	}
	if out != "" {
		t.Errorf("stdout = %q, want nothing", out)
	}
	data, err := os.ReadFile(metrics)
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"time_median", "mapUserList_100Items", "geomean"} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("summary missing %q:\n%s", want, data)
		}
	}
}

func TestHTML(t *testing.T) {
	clearEnv(t)
	out, err := runCmd(t, "--format", "html", "--report", "", outputDir(t))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(out, "<table") || !strings.Contains(out, "<td>mapUserList_100Items") {
		t.Errorf("unexpected HTML:\n%s", out)
	}
}

func TestMissingRoot(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.json")
	out, err := runCmd(t, "--report", reportPath, filepath.Join(dir, "missing"))
	if err != nil {
		t.Fatalf("missing root failed: %v", err)
	}
	if out != "" {
		t.Errorf("output = %q, want nothing", out)
	}
	data, err := os.ReadFile(reportPath)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "[]\n" {
		t.Errorf("report = %q, want []", data)
	}
}

func TestErrors(t *testing.T) {
	clearEnv(t)
	dir := outputDir(t)

	var uerr *usageError
	if _, err := runCmd(t, "--no-such-flag", dir); !errors.As(err, &uerr) {
		t.Errorf("unknown flag: got %v, want usage error", err)
	}
	if _, err := runCmd(t, dir, dir); !errors.As(err, &uerr) {
		t.Errorf("two arguments: got %v, want usage error", err)
	}
	if _, err := runCmd(t, "--help"); err != nil {
		t.Errorf("--help: %v", err)
	}

	if _, err := runCmd(t, "--format", "xml", dir); err == nil || errors.As(err, &uerr) {
		t.Errorf("bad format: got %v, want configuration error", err)
	}
	if _, err := runCmd(t, "--report", "", "--label", "bad-name=x", dir); err == nil {
		t.Errorf("invalid label name accepted")
	}

	_, err := runCmd(t, "--report", filepath.Join(dir, "no", "such", "dir", "r.json"), dir)
	var d *benchdiag.Diagnostic
	if !errors.As(err, &d) || d.Kind != benchdiag.SerializationFailure {
		t.Errorf("unwritable report: got %v, want SerializationFailure", err)
	}
}

func TestDumpConfig(t *testing.T) {
	clearEnv(t)
	out, err := runCmd(t, "--dump-config", "--prefix", "app", "somewhere")
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"root: somewhere", "prefix: app"} {
		if !strings.Contains(out, want) {
			t.Errorf("dump missing %q:\n%s", want, out)
		}
	}
}
