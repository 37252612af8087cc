// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchnorm groups extracted samples into per-test records,
// applies the statistic policy's filters and converts values to the
// policy's report units.
//
// Records are kept in the order their test was first seen, so the
// output depends only on the order of the input samples.
package benchnorm

import (
	"fmt"
	"strings"

	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchscan"
	"github.com/benchprom/benchprom/benchunit"
)

// A Record is the retained statistics of one test.
type Record struct {
	// Name is the fully-qualified test name as extracted.
	Name string

	// Class and Method are Name split at its last separator. Class
	// is empty if Name is not qualified.
	Class, Method string

	// Values holds retained statistics in the policy's report
	// units. Raw holds the same statistics in their source units.
	Values map[benchpolicy.Kind]float64
	Raw    map[benchpolicy.Kind]float64
}

func newRecord(name string) *Record {
	class, method := SplitName(name)
	return &Record{
		Name:   name,
		Class:  class,
		Method: method,
		Values: make(map[benchpolicy.Kind]float64),
		Raw:    make(map[benchpolicy.Kind]float64),
	}
}

// Clone returns a deep copy of r.
func (r *Record) Clone() *Record {
	c := *r
	c.Values = make(map[benchpolicy.Kind]float64, len(r.Values))
	for k, v := range r.Values {
		c.Values[k] = v
	}
	c.Raw = make(map[benchpolicy.Kind]float64, len(r.Raw))
	for k, v := range r.Raw {
		c.Raw[k] = v
	}
	return &c
}

// Kinds returns the kinds r retains, in p's rule order.
func (r *Record) Kinds(p *benchpolicy.Policy) []benchpolicy.Kind {
	var ks []benchpolicy.Kind
	for _, rule := range p.Rules {
		if _, ok := r.Values[rule.Kind]; ok {
			ks = append(ks, rule.Kind)
		}
	}
	return ks
}

// SplitName splits a fully-qualified test name such as
// "com.example.MapperBenchmark.mapSingleUser" or "pkg.Bench#method"
// into its class and method. A name with no separator is all method.
func SplitName(name string) (class, method string) {
	i := strings.LastIndexAny(name, ".#/")
	if i < 0 || i == len(name)-1 {
		return "", name
	}
	return name[:i], name[i+1:]
}

// A Normalizer accumulates samples into records.
type Normalizer struct {
	policy *benchpolicy.Policy

	byName map[string]*Record
	order  []*Record
}

// New returns a Normalizer that applies policy p.
func New(p *benchpolicy.Policy) *Normalizer {
	return &Normalizer{policy: p, byName: make(map[string]*Record)}
}

// Add adds one sample. Samples whose kind has no rule are ignored, as
// are samples the rule filters out. For each test and kind, the first
// retained sample wins.
//
// Add returns an error only if the rule's units cannot be converted;
// the sample is then dropped.
func (n *Normalizer) Add(s benchscan.Sample) error {
	rec := n.byName[s.Test]
	if rec == nil {
		rec = newRecord(s.Test)
		n.byName[s.Test] = rec
		n.order = append(n.order, rec)
	}

	rule, ok := n.policy.Rule(s.Kind)
	if !ok || !rule.Keep(s.Value) {
		return nil
	}
	if _, ok := rec.Raw[s.Kind]; ok {
		return nil
	}
	v, err := convert(rule, s.Value)
	if err != nil {
		return fmt.Errorf("%s %s: %w", s.Test, s.Kind, err)
	}
	rec.Raw[s.Kind] = s.Value
	rec.Values[s.Kind] = v
	return nil
}

func convert(rule benchpolicy.Rule, v float64) (float64, error) {
	if rule.SourceUnit == rule.Unit {
		return v, nil
	}
	return benchunit.Convert(v, rule.SourceUnit, rule.Unit)
}

// Records returns a copy of every record with at least one retained
// statistic, in first-seen order.
func (n *Normalizer) Records() []*Record {
	var out []*Record
	for _, rec := range n.order {
		if len(rec.Values) > 0 {
			out = append(out, rec.Clone())
		}
	}
	return out
}

// Normalize is shorthand for adding every sample to a new Normalizer
// and returning its records. It stops at the first conversion error.
func Normalize(p *benchpolicy.Policy, samples []benchscan.Sample) ([]*Record, error) {
	n := New(p)
	for _, s := range samples {
		if err := n.Add(s); err != nil {
			return nil, err
		}
	}
	return n.Records(), nil
}

// Filter applies p's filters to records and returns the survivors as
// new records, dropping any left with no statistics. Records that
// already passed through a Normalizer with p are returned unchanged,
// so Filter is idempotent.
func Filter(p *benchpolicy.Policy, records []*Record) []*Record {
	var out []*Record
	for _, rec := range records {
		c := rec.Clone()
		for k, v := range rec.Values {
			rule, ok := p.Rule(k)
			raw, hasRaw := rec.Raw[k]
			if !hasRaw {
				raw = v
			}
			if !ok || !rule.Keep(raw) {
				delete(c.Values, k)
				delete(c.Raw, k)
			}
		}
		if len(c.Values) > 0 {
			out = append(out, c)
		}
	}
	return out
}
