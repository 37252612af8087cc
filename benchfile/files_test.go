// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/klauspost/compress/gzip"
)

// writeTree creates files under dir. Names ending in ".gz" are
// gzip-compressed.
func writeTree(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0777); err != nil {
			t.Fatal(err)
		}
		f, err := os.Create(path)
		if err != nil {
			t.Fatal(err)
		}
		if filepath.Ext(name) == ".gz" {
			zw := gzip.NewWriter(f)
			if _, err := zw.Write([]byte(content)); err != nil {
				t.Fatal(err)
			}
			if err := zw.Close(); err != nil {
				t.Fatal(err)
			}
		} else if _, err := f.WriteString(content); err != nil {
			t.Fatal(err)
		}
		if err := f.Close(); err != nil {
			t.Fatal(err)
		}
	}
}

func TestMatch(t *testing.T) {
	test := func(m Match, name string, want bool) {
		t.Helper()
		if got := m.Matches(name); got != want {
			t.Errorf("%+v.Matches(%q) = %v, want %v", m, name, got, want)
		}
	}

	test(DefaultMatch, "app-benchmarkData.json", true)
	test(DefaultMatch, "app-benchmarkData.json.gz", true)
	test(DefaultMatch, "app-benchmarkData.JSON", true)
	test(DefaultMatch, "app-benchmarkData.txt", false)
	test(DefaultMatch, "report.json", false)
	test(Match{Extensions: []string{".json"}}, "report.json", true)
	test(Match{}, "anything", true)
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"b.json":          "{}",
		"a.json":          "{}",
		"a/z.json":        "{}",
		"a/b/c.json.gz":   "{}",
		"a/notes.txt":     "",
		"c/d/e/deep.json": "{}",
	})

	got, err := Find(dir, Match{Extensions: []string{".json"}})
	if err != nil {
		t.Fatal(err)
	}
	var rel []string
	for _, p := range got {
		r, _ := filepath.Rel(dir, p)
		rel = append(rel, filepath.ToSlash(r))
	}
	// Full-path order puts "a.json" before the "a/" subtree.
	want := []string{"a.json", "a/b/c.json.gz", "a/z.json", "b.json", "c/d/e/deep.json"}
	if diff := cmp.Diff(want, rel); diff != "" {
		t.Errorf("Find mismatch (-want +got):\n%s", diff)
	}
}

func TestFindMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "does-not-exist")
	paths, err := Find(root, DefaultMatch)
	if len(paths) != 0 {
		t.Errorf("got paths %v from a missing root", paths)
	}
	if !IsMissingRoot(err) {
		t.Errorf("got error %v, want a *MissingRootError", err)
	}
}

func TestFindFileRoot(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{"x-benchmarkData.json": "{}", "other.json": "{}"})

	path := filepath.Join(dir, "x-benchmarkData.json")
	got, err := Find(path, DefaultMatch)
	if err != nil || len(got) != 1 || got[0] != path {
		t.Errorf("Find(file) = %v, %v; want [%s]", got, err, path)
	}
	got, err = Find(filepath.Join(dir, "other.json"), DefaultMatch)
	if err != nil || len(got) != 0 {
		t.Errorf("Find(non-matching file) = %v, %v; want nothing", got, err)
	}
}

func TestFiles(t *testing.T) {
	dir := t.TempDir()
	writeTree(t, dir, map[string]string{
		"2-benchmarkData.json":    `{"two":2}`,
		"1-benchmarkData.json.gz": `{"one":1}`,
		"3-benchmarkData.txt":     `ignored`,
	})

	check := func(f *Files, want ...string) {
		t.Helper()
		for f.Scan() {
			a := f.Artifact()
			if a.Err != nil {
				t.Fatalf("%s: %v", a.Path, a.Err)
			}
			if len(want) == 0 {
				t.Errorf("got %s, want end of stream", a.Path)
				return
			}
			if got := filepath.Base(a.Path) + " " + string(a.Content); got != want[0] {
				t.Errorf("got %q, want %q", got, want[0])
			}
			want = want[1:]
		}
		if err := f.Err(); err != nil {
			t.Errorf("unexpected error %v", err)
		}
		if len(want) != 0 {
			t.Errorf("got end of stream, want %v", want)
		}
	}

	check(&Files{Root: dir, Match: DefaultMatch},
		`1-benchmarkData.json.gz {"one":1}`,
		`2-benchmarkData.json {"two":2}`,
	)
	check(&Files{Root: dir, Match: Match{Contains: "2-"}},
		`2-benchmarkData.json {"two":2}`,
	)

	// A missing root is an empty sequence with a recoverable error.
	f := &Files{Root: filepath.Join(dir, "missing")}
	if f.Scan() {
		t.Errorf("Scan succeeded on a missing root")
	}
	if !IsMissingRoot(f.Err()) {
		t.Errorf("got error %v, want a *MissingRootError", f.Err())
	}
}

func TestReadArtifactCorruptGzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad-benchmarkData.json.gz")
	if err := os.WriteFile(path, []byte("not gzip"), 0666); err != nil {
		t.Fatal(err)
	}
	if a := ReadArtifact(path); a.Err == nil {
		t.Errorf("reading corrupt gzip succeeded")
	}
}
