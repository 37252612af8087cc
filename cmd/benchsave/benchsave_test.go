// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	err := benchsave(&out, &errOut, args)
	if errOut.Len() > 0 {
		t.Logf("stderr:\n%s", errOut.String())
	}
	return out.String(), err
}

func TestSaveListSeries(t *testing.T) {
	for _, v := range []string{"GITHUB_REF_NAME", "GITHUB_SHA"} {
		t.Setenv(v, "")
	}
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "archive.db")

	out1 := filepath.Join(dir, "out1")
	if err := os.Mkdir(out1, 0o777); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(out1, "app-benchmarkData.json"), []byte(`{"name":"mapSingleUser","median":18000}`), 0o666); err != nil {
		t.Fatal(err)
	}
	report := filepath.Join(dir, "report.json")
	if err := os.WriteFile(report, []byte(`[{"name": "mapSingleUser", "value": 17.5, "unit": "μs"}]`), 0o666); err != nil {
		t.Fatal(err)
	}

	out, err := run(t, "--db", dbPath, "--label", "branch=main", out1, report)
	if err != nil {
		t.Fatal(err)
	}
	ids := strings.Fields(out)
	if len(ids) != 2 {
		t.Fatalf("got run IDs %q, want 2", out)
	}

	out, err = run(t, "--db", dbPath, "--list")
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[1], ids[0]) || !strings.HasSuffix(lines[1], "branch=main") {
		t.Errorf("unexpected list:\n%s", out)
	}

	// Only the first run stored statistics; the second report has
	// just the primary value.
	chart := filepath.Join(dir, "trend.png")
	out, err = run(t, "--db", dbPath, "--series", "mapSingleUser", "--chart", chart)
	if err != nil {
		t.Fatal(err)
	}
	if data, err := os.ReadFile(chart); err != nil || !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("chart not written: %v", err)
	}
	lines = strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	if len(lines) != 2 || !strings.HasPrefix(lines[1], ids[0]) || !strings.HasSuffix(lines[1], "18μs") {
		t.Errorf("unexpected series:\n%s", out)
	}

	if _, err := run(t, "--db", dbPath, "--delete", ids[0]); err != nil {
		t.Fatal(err)
	}
	if _, err := run(t, "--db", dbPath, "--delete", ids[0]); err == nil {
		t.Errorf("deleting a deleted run succeeded")
	}
	if _, err := run(t, "--db", dbPath, "--series", "mapSingleUser"); err == nil {
		t.Errorf("series of deleted run succeeded")
	}
}

func TestUsage(t *testing.T) {
	if _, err := run(t); err == nil {
		t.Errorf("no arguments accepted")
	}
	if _, err := run(t, "--list", "dir"); err == nil {
		t.Errorf("-list with inputs accepted")
	}
	if _, err := run(t, "--db-driver", "postgres", "--list"); err == nil {
		t.Errorf("unsupported driver accepted")
	}
}
