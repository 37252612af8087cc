// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchpolicy defines the statistic kinds extracted from
// benchmark output and the static policy table that says how each kind
// is filtered, converted and exposed as a metric.
//
// A Policy is passed explicitly to the normalizer and the metrics
// emitter so that both layers apply the same rules and alternative
// policies can be tested without touching either.
package benchpolicy

import (
	"fmt"
	"strings"
)

// A Kind is a category of measurement.
type Kind int

const (
	TimeMin Kind = iota
	TimeMedian
	TimeMax
	Iterations
	AllocMin
	AllocMedian
	AllocMax

	numKinds
)

var kindNames = [numKinds]string{
	TimeMin:     "time_min",
	TimeMedian:  "time_median",
	TimeMax:     "time_max",
	Iterations:  "iterations",
	AllocMin:    "alloc_min",
	AllocMedian: "alloc_median",
	AllocMax:    "alloc_max",
}

func (k Kind) String() string {
	if k >= 0 && k < numKinds {
		return kindNames[k]
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ParseKind returns the Kind named by s, as returned by Kind.String.
func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, name := range kindNames {
		if name == s {
			return Kind(k), nil
		}
	}
	return 0, fmt.Errorf("unknown statistic kind %q", s)
}

// Kinds returns every known Kind in declaration order.
func Kinds() []Kind {
	ks := make([]Kind, numKinds)
	for i := range ks {
		ks[i] = Kind(i)
	}
	return ks
}

// A Family is a metric family: the stable name suffix that groups all
// samples of related kinds across tests.
type Family struct {
	Name string // suffix appended to Policy.Prefix, e.g. "time_ns"
	Help string
}

// A Rule says how one Kind is treated.
type Rule struct {
	Kind Kind

	// Family is the Name of the metric family this kind is emitted in.
	Family string

	// Stat is the value of the "stat" label, or "" if the family has
	// no stat dimension.
	Stat string

	// SourceUnit is the unit values are extracted in and emitted in.
	// Unit is the unit used in the report. If they differ, values
	// are converted once during normalization.
	SourceUnit string
	Unit       string

	// RequirePositive marks kinds where the upstream instrument uses
	// zero to mean "not measured". Such values are dropped unless
	// strictly positive.
	RequirePositive bool
}

// Keep reports whether a value of this rule's kind is retained.
func (r Rule) Keep(v float64) bool {
	if r.RequirePositive {
		return v > 0
	}
	return true
}

// A Policy is the full statistic configuration table.
type Policy struct {
	// Prefix is prepended, with an underscore, to every family name.
	Prefix string

	// Families lists metric families in emission order.
	Families []Family

	// Rules lists the known kinds in their fixed emission order.
	Rules []Rule

	// Primary lists, in preference order, the kinds used for the
	// top-level value of a report entry.
	Primary []Kind
}

// Default returns the policy used for Android benchmark output:
// timings in nanoseconds reported in microseconds, iteration counts,
// and allocation counts where zero means "not tracked".
func Default() *Policy {
	return &Policy{
		Prefix: "android_benchmark",
		Families: []Family{
			{"time_ns", "Benchmark execution time in nanoseconds."},
			{"allocations", "Benchmark memory allocation count."},
			{"iterations", "Benchmark iteration count."},
		},
		Rules: []Rule{
			{Kind: TimeMin, Family: "time_ns", Stat: "min", SourceUnit: "ns", Unit: "μs"},
			{Kind: TimeMedian, Family: "time_ns", Stat: "median", SourceUnit: "ns", Unit: "μs"},
			{Kind: TimeMax, Family: "time_ns", Stat: "max", SourceUnit: "ns", Unit: "μs"},
			{Kind: AllocMin, Family: "allocations", Stat: "min", RequirePositive: true},
			{Kind: AllocMedian, Family: "allocations", Stat: "median", RequirePositive: true},
			{Kind: AllocMax, Family: "allocations", Stat: "max", RequirePositive: true},
			{Kind: Iterations, Family: "iterations"},
		},
		Primary: []Kind{TimeMedian, TimeMin, TimeMax},
	}
}

// Rule returns the rule for kind k.
func (p *Policy) Rule(k Kind) (Rule, bool) {
	for _, r := range p.Rules {
		if r.Kind == k {
			return r, true
		}
	}
	return Rule{}, false
}

// FamilyName returns the full metric name for family suffix name.
func (p *Policy) FamilyName(name string) string {
	if p.Prefix == "" {
		return name
	}
	return p.Prefix + "_" + name
}

// Family returns the Family with the given suffix.
func (p *Policy) Family(name string) (Family, bool) {
	for _, f := range p.Families {
		if f.Name == name {
			return f, true
		}
	}
	return Family{}, false
}

// SetRequirePositive replaces the sentinel-zero setting of every rule:
// kinds listed in ks require positive values and all others do not.
func (p *Policy) SetRequirePositive(ks []Kind) {
	set := make(map[Kind]bool, len(ks))
	for _, k := range ks {
		set[k] = true
	}
	for i := range p.Rules {
		p.Rules[i].RequirePositive = set[p.Rules[i].Kind]
	}
}

// Validate checks that the policy is internally consistent.
func (p *Policy) Validate() error {
	seen := make(map[Kind]bool)
	for _, r := range p.Rules {
		if seen[r.Kind] {
			return fmt.Errorf("duplicate rule for %s", r.Kind)
		}
		seen[r.Kind] = true
		if _, ok := p.Family(r.Family); !ok {
			return fmt.Errorf("rule for %s names unknown family %q", r.Kind, r.Family)
		}
		if (r.SourceUnit == "") != (r.Unit == "") {
			return fmt.Errorf("rule for %s must set both or neither of SourceUnit and Unit", r.Kind)
		}
	}
	for _, k := range p.Primary {
		if !seen[k] {
			return fmt.Errorf("primary kind %s has no rule", k)
		}
	}
	return nil
}
