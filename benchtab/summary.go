// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchtab renders benchmark reports as human-readable text
// tables.
//
// Each statistic present in the report gets a column. All values in a
// column share one scale, chosen so the smallest value still shows
// three significant digits, and the last row is the geometric mean of
// each column.
package benchtab

import (
	"io"
	"math"

	"github.com/aclements/go-moremath/stats"

	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchreport"
	"github.com/benchprom/benchprom/benchunit"
)

// Summarize builds the summary table for r. It returns an empty table
// if r has no entries.
func Summarize(p *benchpolicy.Policy, r benchreport.Report) *Table {
	t := new(Table)
	if len(r) == 0 {
		return t
	}

	resolved := make([][]benchreport.Stat, len(r))
	for i := range r {
		resolved[i], _ = r[i].Resolve(p)
	}
	lookup := func(i int, k benchpolicy.Kind) (float64, bool) {
		for _, s := range resolved[i] {
			if s.Stat == k.String() {
				return float64(s.Raw), true
			}
		}
		return 0, false
	}

	// Columns are the kinds that appear in some entry, in rule
	// order.
	type column struct {
		rule   benchpolicy.Rule
		vals   []float64
		ok     []bool
		scaler benchunit.Scaler
	}
	var cols []*column
	for _, rule := range p.Rules {
		c := &column{rule: rule, vals: make([]float64, len(r)), ok: make([]bool, len(r))}
		seen := false
		for i := range r {
			if v, ok := lookup(i, rule.Kind); ok && rule.Keep(v) {
				c.vals[i], c.ok[i] = v, true
				seen = true
			}
		}
		if !seen {
			continue
		}
		var present []float64
		for i, v := range c.vals {
			if c.ok[i] {
				present = append(present, v)
			}
		}
		c.scaler = scaler(rule, present)
		cols = append(cols, c)
	}

	hdr := []string{"name"}
	for _, c := range cols {
		hdr = append(hdr, c.rule.Kind.String())
	}
	t.Row(hdr...)
	for i := range r {
		row := []string{r[i].Name}
		for _, c := range cols {
			cell := ""
			if c.ok[i] {
				cell = c.scaler.Format(c.vals[i])
			}
			row = append(row, cell)
		}
		t.Row(row...)
	}

	if len(r) > 1 {
		row := []string{"geomean"}
		for _, c := range cols {
			row = append(row, geomean(c.vals, c.ok, c.scaler))
		}
		t.Row(row...)
	}
	return t
}

func scaler(rule benchpolicy.Rule, vals []float64) benchunit.Scaler {
	if benchunit.IsTime(rule.SourceUnit) {
		// Time scales are defined on nanoseconds.
		ns := make([]float64, len(vals))
		for i, v := range vals {
			ns[i], _ = benchunit.Convert(v, rule.SourceUnit, "ns")
		}
		s := benchunit.TimeScale(ns)
		f, _ := benchunit.Convert(1, "ns", rule.SourceUnit)
		s.Factor *= f
		return s
	}
	return benchunit.CountScale(vals)
}

// geomean formats the geometric mean of a column, or returns "" if
// any entry lacks the statistic or has a value of zero or less.
func geomean(vals []float64, ok []bool, s benchunit.Scaler) string {
	for _, present := range ok {
		if !present {
			return ""
		}
	}
	gm := stats.GeoMean(vals)
	if math.IsNaN(gm) || gm <= 0 {
		return ""
	}
	return s.Format(gm)
}

// Write writes the summary table for r to w.
func Write(w io.Writer, p *benchpolicy.Policy, r benchreport.Report) error {
	return Summarize(p, r).Format(w)
}
