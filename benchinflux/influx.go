// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchinflux converts benchmark reports into InfluxDB line
// protocol.
//
// Each report entry becomes one point. The measurement is the policy
// prefix, the tags are the entry's test, class and method plus the run
// labels, and each statistic is a field named after its metric family
// and stat, such as "time_ns_median" or "iterations".
package benchinflux

import (
	"io"
	"math"
	"strings"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/benchprom/benchprom/benchnorm"
	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchreport"
)

// DefaultMeasurement is used when the policy has no prefix.
const DefaultMeasurement = "benchmark"

// An Encoder converts reports to points.
type Encoder struct {
	Policy *benchpolicy.Policy

	// Labels are added as tags to every point. Empty values are
	// omitted.
	Labels map[string]string

	// Precision is the timestamp precision of encoded lines. Zero
	// means nanoseconds.
	Precision time.Duration
}

// FieldName returns the field a rule's statistic is stored in.
func FieldName(rule benchpolicy.Rule) string {
	if rule.Stat == "" {
		return rule.Family
	}
	return rule.Family + "_" + rule.Stat
}

// Points returns one point per report entry with at least one
// retained statistic, all stamped with ts.
func (e *Encoder) Points(r benchreport.Report, ts time.Time) []*write.Point {
	measurement := e.Policy.Prefix
	if measurement == "" {
		measurement = DefaultMeasurement
	}
	var pts []*write.Point
	for i := range r {
		ent := &r[i]
		stats, err := ent.Resolve(e.Policy)
		if err != nil {
			continue
		}
		fields := make(map[string]interface{})
		for _, rule := range e.Policy.Rules {
			for _, s := range stats {
				if s.Stat == rule.Kind.String() && rule.Keep(float64(s.Raw)) {
					fields[FieldName(rule)] = fieldValue(float64(s.Raw))
				}
			}
		}
		if len(fields) == 0 {
			continue
		}
		pts = append(pts, write.NewPoint(measurement, e.tags(ent), fields, ts))
	}
	return pts
}

func (e *Encoder) tags(ent *benchreport.Entry) map[string]string {
	tags := make(map[string]string)
	for k, v := range e.Labels {
		if v != "" {
			tags[k] = v
		}
	}
	class, method := ent.Class, ent.Method
	if method == "" {
		class, method = benchnorm.SplitName(ent.Name)
	}
	tags["test"] = ent.Name
	tags["method"] = method
	if class != "" {
		tags["class"] = class
	}
	return tags
}

// fieldValue stores integral values as integer fields.
func fieldValue(v float64) interface{} {
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return int64(v)
	}
	return v
}

// Write writes r to w in line protocol, one line per point.
func (e *Encoder) Write(w io.Writer, r benchreport.Report, ts time.Time) error {
	precision := e.Precision
	if precision == 0 {
		precision = time.Nanosecond
	}
	var b strings.Builder
	for _, p := range e.Points(r, ts) {
		b.WriteString(strings.TrimSuffix(write.PointToLineProtocol(p, precision), "\n"))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
