// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchdiag defines the diagnostics reported while turning
// benchmark output into metrics.
//
// Most diagnostics are recoverable: they describe one artifact that
// contributed fewer samples than it might have, and processing of
// every other artifact continues. Only a failure to write the report
// is fatal.
package benchdiag

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
)

// A Kind classifies a Diagnostic.
type Kind int

const (
	// MissingInputDirectory means the configured root does not
	// exist. The run proceeds with no artifacts.
	MissingInputDirectory Kind = iota
	// UnparseableArtifact means a candidate file yielded no
	// recognizable name/value pairs.
	UnparseableArtifact
	// FieldCountMismatch means a file had a different number of
	// names than values for one field. Pairs are truncated to the
	// shorter sequence.
	FieldCountMismatch
	// SerializationFailure means the report could not be written.
	SerializationFailure
)

func (k Kind) String() string {
	switch k {
	case MissingInputDirectory:
		return "MissingInputDirectory"
	case UnparseableArtifact:
		return "UnparseableArtifact"
	case FieldCountMismatch:
		return "FieldCountMismatch"
	case SerializationFailure:
		return "SerializationFailure"
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// Fatal reports whether diagnostics of kind k abort the run.
func (k Kind) Fatal() bool {
	return k == SerializationFailure
}

// A Diagnostic describes one problem found during a run.
type Diagnostic struct {
	Kind Kind
	Path string // file or directory the diagnostic refers to

	// Field and the counts are set for FieldCountMismatch.
	Field  string
	Names  int
	Values int

	Err error // underlying error, if any
}

func (d *Diagnostic) Error() string {
	switch d.Kind {
	case MissingInputDirectory:
		return fmt.Sprintf("%s: input directory not found", d.Path)
	case UnparseableArtifact:
		if d.Err != nil {
			return fmt.Sprintf("%s: no benchmark results: %v", d.Path, d.Err)
		}
		return fmt.Sprintf("%s: no benchmark results", d.Path)
	case FieldCountMismatch:
		return fmt.Sprintf("%s: field %q: %d names but %d values; pairing the first %d", d.Path, d.Field, d.Names, d.Values, min(d.Names, d.Values))
	case SerializationFailure:
		return fmt.Sprintf("writing %s: %v", d.Path, d.Err)
	}
	return fmt.Sprintf("%s: %s", d.Path, d.Kind)
}

func (d *Diagnostic) Unwrap() error {
	return d.Err
}

// attrs returns the structured form of d for logging.
func (d *Diagnostic) attrs() []slog.Attr {
	as := []slog.Attr{slog.String("kind", d.Kind.String()), slog.String("path", d.Path)}
	if d.Kind == FieldCountMismatch {
		as = append(as, slog.String("field", d.Field), slog.Int("names", d.Names), slog.Int("values", d.Values))
	}
	if d.Err != nil {
		as = append(as, slog.String("err", d.Err.Error()))
	}
	return as
}

// A Collector records diagnostics and logs each one as it arrives.
// It is safe for concurrent use.
type Collector struct {
	logger *slog.Logger

	mu    sync.Mutex
	diags []*Diagnostic
}

// NewCollector returns a Collector that logs to logger. If logger is
// nil, diagnostics are recorded but not logged.
func NewCollector(logger *slog.Logger) *Collector {
	return &Collector{logger: logger}
}

// Add records d.
func (c *Collector) Add(d *Diagnostic) {
	c.mu.Lock()
	c.diags = append(c.diags, d)
	c.mu.Unlock()

	if c.logger == nil {
		return
	}
	level := slog.LevelWarn
	if d.Kind.Fatal() {
		level = slog.LevelError
	}
	c.logger.LogAttrs(context.Background(), level, d.Error(), d.attrs()...)
}

// Diagnostics returns the recorded diagnostics in the order they
// were added.
func (c *Collector) Diagnostics() []*Diagnostic {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*Diagnostic(nil), c.diags...)
}

// Count returns the number of recorded diagnostics of kind k.
func (c *Collector) Count(k Kind) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, d := range c.diags {
		if d.Kind == k {
			n++
		}
	}
	return n
}
