// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchdiag

import (
	"bytes"
	"errors"
	"io/fs"
	"log/slog"
	"strings"
	"testing"
)

func TestDiagnosticError(t *testing.T) {
	test := func(d *Diagnostic, want string) {
		t.Helper()
		if got := d.Error(); got != want {
			t.Errorf("got %q, want %q", got, want)
		}
	}

	test(&Diagnostic{Kind: MissingInputDirectory, Path: "out"}, "out: input directory not found")
	test(&Diagnostic{Kind: UnparseableArtifact, Path: "a.json"}, "a.json: no benchmark results")
	test(&Diagnostic{Kind: FieldCountMismatch, Path: "a.json", Field: "median", Names: 3, Values: 2},
		`a.json: field "median": 3 names but 2 values; pairing the first 2`)
	test(&Diagnostic{Kind: SerializationFailure, Path: "r.json", Err: fs.ErrPermission},
		"writing r.json: permission denied")
}

func TestDiagnosticUnwrap(t *testing.T) {
	var err error = &Diagnostic{Kind: SerializationFailure, Path: "r.json", Err: fs.ErrPermission}
	if !errors.Is(err, fs.ErrPermission) {
		t.Errorf("errors.Is did not see the wrapped error")
	}
	var d *Diagnostic
	if !errors.As(err, &d) || !d.Kind.Fatal() {
		t.Errorf("SerializationFailure is not fatal")
	}
	for _, k := range []Kind{MissingInputDirectory, UnparseableArtifact, FieldCountMismatch} {
		if k.Fatal() {
			t.Errorf("%s is fatal", k)
		}
	}
}

func TestCollector(t *testing.T) {
	var buf bytes.Buffer
	c := NewCollector(slog.New(slog.NewTextHandler(&buf, nil)))
	c.Add(&Diagnostic{Kind: FieldCountMismatch, Path: "a.json", Field: "median", Names: 3, Values: 2})
	c.Add(&Diagnostic{Kind: UnparseableArtifact, Path: "b.json"})
	c.Add(&Diagnostic{Kind: UnparseableArtifact, Path: "c.json"})

	if got := c.Count(UnparseableArtifact); got != 2 {
		t.Errorf("Count(UnparseableArtifact) = %d, want 2", got)
	}
	if got := c.Count(MissingInputDirectory); got != 0 {
		t.Errorf("Count(MissingInputDirectory) = %d, want 0", got)
	}
	ds := c.Diagnostics()
	if len(ds) != 3 || ds[0].Path != "a.json" || ds[2].Path != "c.json" {
		t.Errorf("Diagnostics out of order: %v", ds)
	}

	log := buf.String()
	for _, want := range []string{"level=WARN", "kind=FieldCountMismatch", "names=3", "values=2", "path=b.json"} {
		if !strings.Contains(log, want) {
			t.Errorf("log missing %q:\n%s", want, log)
		}
	}
}
