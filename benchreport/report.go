// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchreport reads and writes benchmark reports.
//
// A report is a JSON array with one entry per test, in the order tests
// were first seen:
//
//	[
//	  {
//	    "name": "mapSingleUser",
//	    "value": 18.0,
//	    "unit": "μs",
//	    "method": "mapSingleUser",
//	    "stats": [
//	      {"stat": "time_median", "value": 18.0, "unit": "μs", "raw": 18000.0}
//	    ]
//	  }
//	]
//
// "name", "value" and "unit" give each test's primary statistic.
// Numbers are always written with a fractional part so consumers see
// a stable numeric type. Entries carrying only the primary fields are
// accepted on input.
package benchreport

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/benchprom/benchprom/benchdiag"
	"github.com/benchprom/benchprom/benchnorm"
	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchunit"
)

// CountUnit is the report unit of statistics whose rule has no unit.
const CountUnit = "count"

// A Number is a float64 that always encodes with a fractional part,
// such as 18.0.
type Number float64

func (n Number) MarshalJSON() ([]byte, error) {
	f := float64(n)
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("unsupported value %v", f)
	}
	b := strconv.AppendFloat(nil, f, 'f', -1, 64)
	if bytes.IndexByte(b, '.') < 0 {
		b = append(b, ".0"...)
	}
	return b, nil
}

func (n *Number) UnmarshalJSON(b []byte) error {
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*n = Number(f)
	return nil
}

// A Stat is one statistic of an entry.
type Stat struct {
	Stat  string `json:"stat"` // benchpolicy.Kind name
	Value Number `json:"value"`
	Unit  string `json:"unit"`
	Raw   Number `json:"raw"` // value in the rule's source unit
}

// An Entry is one test in a report.
type Entry struct {
	Name   string `json:"name"`
	Value  Number `json:"value"`
	Unit   string `json:"unit"`
	Class  string `json:"class,omitempty"`
	Method string `json:"method,omitempty"`
	Stats  []Stat `json:"stats,omitempty"`
}

// A Report is an ordered list of entries.
type Report []Entry

// FromRecords builds a report from normalized records. Records with
// no statistics are skipped.
func FromRecords(p *benchpolicy.Policy, records []*benchnorm.Record) Report {
	r := Report{}
	for _, rec := range records {
		kinds := rec.Kinds(p)
		if len(kinds) == 0 {
			continue
		}
		e := Entry{Name: rec.Name, Class: rec.Class, Method: rec.Method}
		for _, k := range kinds {
			rule, _ := p.Rule(k)
			e.Stats = append(e.Stats, Stat{
				Stat:  k.String(),
				Value: Number(rec.Values[k]),
				Unit:  unitOf(rule),
				Raw:   Number(rec.Raw[k]),
			})
		}
		primary := e.Stats[0]
		for _, k := range p.Primary {
			if s, ok := e.Lookup(k); ok {
				primary = s
				break
			}
		}
		e.Value, e.Unit = primary.Value, primary.Unit
		r = append(r, e)
	}
	return r
}

func unitOf(rule benchpolicy.Rule) string {
	if rule.Unit == "" {
		return CountUnit
	}
	return rule.Unit
}

// Lookup returns e's statistic of kind k.
func (e *Entry) Lookup(k benchpolicy.Kind) (Stat, bool) {
	name := k.String()
	for _, s := range e.Stats {
		if s.Stat == name {
			return s, true
		}
	}
	return Stat{}, false
}

// Resolve returns e's statistics. An entry without a "stats" list
// yields a single statistic of p's first primary kind, taken from the
// entry's value and unit.
func (e *Entry) Resolve(p *benchpolicy.Policy) ([]Stat, error) {
	if len(e.Stats) > 0 || len(p.Primary) == 0 {
		return e.Stats, nil
	}
	k := p.Primary[0]
	rule, ok := p.Rule(k)
	if !ok {
		return nil, fmt.Errorf("no rule for %s", k)
	}
	raw := float64(e.Value)
	if rule.SourceUnit != "" && e.Unit != rule.SourceUnit {
		var err error
		raw, err = benchunit.Convert(raw, e.Unit, rule.SourceUnit)
		if err != nil {
			return nil, fmt.Errorf("entry %s: %w", e.Name, err)
		}
	}
	return []Stat{{Stat: k.String(), Value: e.Value, Unit: e.Unit, Raw: Number(raw)}}, nil
}

// Encode writes r to w as indented JSON followed by a newline. An
// empty report is written as "[]".
func Encode(w io.Writer, r Report) error {
	if r == nil {
		r = Report{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Marshal returns the encoding of r.
func Marshal(r Report) ([]byte, error) {
	var buf bytes.Buffer
	if err := Encode(&buf, r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Decode reads a report from rd.
func Decode(rd io.Reader) (Report, error) {
	var r Report
	dec := json.NewDecoder(rd)
	if err := dec.Decode(&r); err != nil {
		return nil, err
	}
	if r == nil {
		r = Report{}
	}
	return r, nil
}

// Read reads the report file at path.
func Read(path string) (Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	r, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// IsReportFile reports whether path holds a report rather than
// benchmark output: a regular file whose first non-space byte is '['.
func IsReportFile(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return false
	}
	defer f.Close()
	if info, err := f.Stat(); err != nil || !info.Mode().IsRegular() {
		return false
	}
	r := bufio.NewReader(f)
	for {
		b, err := r.ReadByte()
		if err != nil {
			return false
		}
		switch b {
		case ' ', '\t', '\r', '\n':
			continue
		}
		return b == '['
	}
}

// WriteFile atomically replaces the file at path with the encoding of
// r. On failure the file at path is unchanged and the error is a
// *benchdiag.Diagnostic of kind SerializationFailure.
func WriteFile(path string, r Report) error {
	if err := writeFile(path, r); err != nil {
		return &benchdiag.Diagnostic{Kind: benchdiag.SerializationFailure, Path: path, Err: err}
	}
	return nil
}

func writeFile(path string, r Report) error {
	data, err := Marshal(r)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	success := false
	defer func() {
		if !success {
			os.Remove(tmpPath)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	// CreateTemp makes the file private.
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return err
	}
	success = true
	return nil
}
