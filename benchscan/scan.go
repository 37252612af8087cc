// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchscan extracts benchmark statistics from the raw text of
// benchmark output files.
//
// Benchmark output is frequently not well-formed: harnesses interleave
// tracing and log noise with the JSON they write, and different
// harness versions use different schemas. Rather than requiring a
// single successful parse of the whole document, an Extractor locates
// every occurrence of a name field and, independently, every
// occurrence of each value field listed in its pattern table.
//
// Names and values are paired by position: the Nth name in a file
// belongs to the Nth value of each field. This is a policy, not an
// accident of the implementation, and it is what makes interleaved
// statistics come out right. When a field has a different number of
// values than there are names, only the first min(names, values) are
// paired and a FieldCountMismatch diagnostic is reported.
//
// Files holding a JSON document in the canonical Android benchmark
// schema (a "benchmarks" array whose entries carry "metrics") are
// instead read structurally, even when log output surrounds the
// document, so that identically named nested fields such as
// timeNs.median and allocationCount.median are not confused.
package benchscan

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/benchprom/benchprom/benchdiag"
	"github.com/benchprom/benchprom/benchpolicy"
)

// A Sample is one statistic of one test.
type Sample struct {
	Test  string
	Kind  benchpolicy.Kind
	Value float64
}

func (s Sample) String() string {
	return fmt.Sprintf("%s %s=%v", s.Test, s.Kind, s.Value)
}

// A Pattern maps a field key to the statistic kind its values carry.
type Pattern struct {
	// Field is a regular expression matching the key, without
	// quotes. It must match the whole key: "median" does not match
	// "medianAllocationCount".
	Field string
	Kind  benchpolicy.Kind
}

// A Config is the extraction table.
type Config struct {
	// NameFields are regular expressions for keys whose string
	// values name a test. Occurrences of all of them are merged in
	// document order.
	NameFields []string

	// Patterns lists value fields. Several patterns may map to the
	// same kind; each is paired with the names independently.
	Patterns []Pattern

	// Structured enables reading well-formed documents in the
	// Android benchmark schema through their structure.
	Structured bool
}

// DefaultConfig returns the table for Android benchmark output, in
// both its raw ("median", "minimum", ...) and flattened
// ("medianTimeNs", "medianAllocationCount", ...) forms.
func DefaultConfig() Config {
	return Config{
		NameFields: []string{"name", "testName"},
		Patterns: []Pattern{
			{"minimum", benchpolicy.TimeMin},
			{"minTimeNs", benchpolicy.TimeMin},
			{"median", benchpolicy.TimeMedian},
			{"medianTimeNs", benchpolicy.TimeMedian},
			{"maximum", benchpolicy.TimeMax},
			{"maxTimeNs", benchpolicy.TimeMax},
			{"iterations", benchpolicy.Iterations},
			{"minAllocationCount", benchpolicy.AllocMin},
			{"medianAllocationCount", benchpolicy.AllocMedian},
			{"maxAllocationCount", benchpolicy.AllocMax},
		},
		Structured: true,
	}
}

// An Extractor extracts Samples from artifact content. It is safe for
// concurrent use.
type Extractor struct {
	cfg    Config
	name   *regexp.Regexp
	values []*regexp.Regexp // parallel to cfg.Patterns
}

// keyRegexp matches an optionally quoted key followed by ":" or "=".
// Keys are anchored on word boundaries so that a field never matches
// a longer key that merely starts with it.
func keyRegexp(fields string) string {
	return `"?\b(?:` + fields + `)\b"?\s*[:=]\s*`
}

const (
	stringValue = `"((?:[^"\\]|\\.)*)"`
	numberValue = `"?(-?(?:\d+\.?\d*|\.\d+)(?:[eE][+-]?\d+)?)`
)

// New returns an Extractor for cfg.
func New(cfg Config) (*Extractor, error) {
	if len(cfg.NameFields) == 0 {
		return nil, errors.New("benchscan: no name fields")
	}
	for _, f := range cfg.NameFields {
		if _, err := regexp.Compile(f); err != nil {
			return nil, fmt.Errorf("benchscan: name field %q: %w", f, err)
		}
	}
	name, err := regexp.Compile(keyRegexp(strings.Join(cfg.NameFields, "|")) + stringValue)
	if err != nil {
		return nil, fmt.Errorf("benchscan: name fields: %w", err)
	}
	x := &Extractor{cfg: cfg, name: name}
	for _, p := range cfg.Patterns {
		re, err := regexp.Compile(keyRegexp(p.Field) + numberValue)
		if err != nil {
			return nil, fmt.Errorf("benchscan: field %q: %w", p.Field, err)
		}
		x.values = append(x.values, re)
	}
	return x, nil
}

// Default returns an Extractor for DefaultConfig.
func Default() *Extractor {
	x, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return x
}

// A Result is everything extracted from one artifact.
type Result struct {
	Samples []Sample

	// Labels holds run metadata found in the artifact, such as
	// "device" and "brand".
	Labels map[string]string

	Diagnostics []*benchdiag.Diagnostic
}

var (
	errNoNames  = errors.New("no test name fields")
	errNoValues = errors.New("no statistic fields")
)

// Extract extracts samples from content, which was read from path.
// path is used only in diagnostics.
//
// Samples are returned in order of occurrence within the content.
// A file that yields no samples produces an UnparseableArtifact
// diagnostic; this never fails outright.
func (x *Extractor) Extract(path string, content []byte) Result {
	var res Result
	if x.cfg.Structured {
		if samples, labels, ok := extractStructured(content); ok {
			res.Samples, res.Labels = samples, labels
			if len(res.Samples) == 0 {
				res.Diagnostics = append(res.Diagnostics, &benchdiag.Diagnostic{
					Kind: benchdiag.UnparseableArtifact, Path: path, Err: errNoValues,
				})
			}
			return res
		}
	}
	res.Labels = contextLabels(content)

	names := x.names(content)
	type located struct {
		off int
		s   Sample
	}
	var found []located
	anyValues := false
	for i, re := range x.values {
		p := x.cfg.Patterns[i]
		locs := re.FindAllSubmatchIndex(content, -1)
		if len(locs) == 0 {
			// This field isn't part of this file's schema.
			continue
		}
		anyValues = true
		if len(names) != len(locs) && len(names) > 0 {
			res.Diagnostics = append(res.Diagnostics, &benchdiag.Diagnostic{
				Kind:   benchdiag.FieldCountMismatch,
				Path:   path,
				Field:  p.Field,
				Names:  len(names),
				Values: len(locs),
			})
		}
		for j := 0; j < len(locs) && j < len(names); j++ {
			loc := locs[j]
			v, err := strconv.ParseFloat(string(content[loc[2]:loc[3]]), 64)
			if err != nil {
				// The pattern only matches numbers, so this
				// is out of range. Skip it but keep the
				// pairing aligned.
				continue
			}
			found = append(found, located{loc[2], Sample{names[j], p.Kind, v}})
		}
	}
	sort.SliceStable(found, func(i, j int) bool { return found[i].off < found[j].off })
	for _, l := range found {
		res.Samples = append(res.Samples, l.s)
	}

	if len(res.Samples) == 0 {
		err := errNoValues
		if len(names) == 0 {
			err = errNoNames
		}
		if !anyValues && len(names) == 0 {
			err = fmt.Errorf("%w or %w", errNoNames, errNoValues)
		}
		res.Diagnostics = append(res.Diagnostics, &benchdiag.Diagnostic{
			Kind: benchdiag.UnparseableArtifact, Path: path, Err: err,
		})
	}
	return res
}

// names returns every test name in content, in document order.
func (x *Extractor) names(content []byte) []string {
	var names []string
	for _, m := range x.name.FindAllSubmatch(content, -1) {
		names = append(names, unescape(m[1]))
	}
	return names
}

// unescape decodes the body of a JSON string. If it isn't valid JSON,
// the raw bytes are used as-is.
func unescape(raw []byte) string {
	if !strings.ContainsRune(string(raw), '\\') {
		return string(raw)
	}
	var s string
	quoted := make([]byte, 0, len(raw)+2)
	quoted = append(append(append(quoted, '"'), raw...), '"')
	if err := json.Unmarshal(quoted, &s); err != nil {
		return string(raw)
	}
	return s
}
