// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchscan

import (
	"bytes"

	"github.com/tidwall/gjson"

	"github.com/benchprom/benchprom/benchpolicy"
)

// structuredFields maps paths within one entry of the "benchmarks"
// array of the Android benchmark schema to statistic kinds, in the
// order samples are produced.
var structuredFields = []struct {
	path string
	kind benchpolicy.Kind
}{
	{"metrics.timeNs.minimum", benchpolicy.TimeMin},
	{"metrics.timeNs.median", benchpolicy.TimeMedian},
	{"metrics.timeNs.maximum", benchpolicy.TimeMax},
	{"metrics.allocationCount.minimum", benchpolicy.AllocMin},
	{"metrics.allocationCount.median", benchpolicy.AllocMedian},
	{"metrics.allocationCount.maximum", benchpolicy.AllocMax},
}

// extractStructured reads content as an Android benchmark document.
// If content as a whole is not valid JSON, the first embedded object
// in that schema is read instead, so that log lines written around
// the document do not push it onto the pattern path. ok is false if
// no document in the schema is found, in which case the caller falls
// back to pattern matching.
func extractStructured(content []byte) (samples []Sample, labels map[string]string, ok bool) {
	if gjson.ValidBytes(content) {
		return readDocument(gjson.ParseBytes(content))
	}
	for i := 0; i < len(content); {
		j := bytes.IndexByte(content[i:], '{')
		if j < 0 {
			break
		}
		start := i + j
		end := closingBrace(content, start)
		if end < 0 || !gjson.ValidBytes(content[start:end+1]) {
			i = start + 1
			continue
		}
		if samples, labels, ok := readDocument(gjson.ParseBytes(content[start : end+1])); ok {
			return samples, labels, true
		}
		// Objects nested in a valid object are not documents.
		i = end + 1
	}
	return nil, nil, false
}

// closingBrace returns the index of the brace closing the object that
// opens at content[start], or -1 if it is never closed. Braces inside
// strings are skipped.
func closingBrace(content []byte, start int) int {
	depth := 0
	inString := false
	for i := start; i < len(content); i++ {
		c := content[i]
		if inString {
			switch c {
			case '\\':
				i++
			case '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}

func readDocument(doc gjson.Result) (samples []Sample, labels map[string]string, ok bool) {
	benchmarks := doc.Get("benchmarks")
	if !benchmarks.IsArray() {
		return nil, nil, false
	}
	entries := benchmarks.Array()
	schema := false
	for _, b := range entries {
		if b.Get("metrics").IsObject() {
			schema = true
			break
		}
	}
	if !schema {
		return nil, nil, false
	}

	for _, b := range entries {
		name := b.Get("name").String()
		if name == "" {
			continue
		}
		if class := b.Get("className").String(); class != "" {
			name = class + "." + name
		}
		for _, f := range structuredFields {
			if v := b.Get(f.path); v.Exists() && v.Type == gjson.Number {
				samples = append(samples, Sample{name, f.kind, v.Float()})
			}
		}
		// The schema has no explicit iteration count; each
		// entry in "runs" is one measured iteration.
		if runs := b.Get("metrics.timeNs.runs").Array(); len(runs) > 0 {
			samples = append(samples, Sample{name, benchpolicy.Iterations, float64(len(runs))})
		}
	}
	return samples, labelsOf(doc), true
}

// contextLabels returns device labels from content if it is valid
// JSON.
func contextLabels(content []byte) map[string]string {
	if !gjson.ValidBytes(content) {
		return nil
	}
	return labelsOf(gjson.ParseBytes(content))
}

func labelsOf(doc gjson.Result) map[string]string {
	var labels map[string]string
	for label, path := range map[string]string{
		"device": "context.build.model",
		"brand":  "context.build.brand",
	} {
		if v := doc.Get(path).String(); v != "" {
			if labels == nil {
				labels = make(map[string]string)
			}
			labels[label] = v
		}
	}
	return labels
}
