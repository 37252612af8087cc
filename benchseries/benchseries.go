// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchseries tracks one benchmark statistic across runs and
// flags the runs where it moved.
package benchseries

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// A Point is the value of the statistic in one run.
type Point struct {
	Label string // short run identifier shown on the X axis
	Time  time.Time
	Value float64
}

// A Series is the history of one statistic of one test, oldest first.
type Series struct {
	Test   string
	Stat   string
	Unit   string
	Points []Point
}

// A Change is a run whose value differs from the previous run's by
// more than the threshold.
type Change struct {
	Index int     // index into Points
	Ratio float64 // Points[Index].Value / Points[Index-1].Value
}

// Delta formats the change as a signed percentage, such as "+12.5%".
func (c Change) Delta() string {
	return FormatDelta(c.Ratio)
}

// FormatDelta formats ratio-1 as a signed percentage.
func FormatDelta(ratio float64) string {
	if math.IsNaN(ratio) || math.IsInf(ratio, 0) {
		return "?"
	}
	return fmt.Sprintf("%+.1f%%", (ratio-1)*100)
}

// Ratios returns, for each point after the first, its value divided by
// the previous point's. The first ratio is always NaN, as is any
// ratio to a zero value.
func (s *Series) Ratios() []float64 {
	rs := make([]float64, len(s.Points))
	for i := range s.Points {
		rs[i] = math.NaN()
		if i == 0 || s.Points[i-1].Value == 0 {
			continue
		}
		rs[i] = s.Points[i].Value / s.Points[i-1].Value
	}
	return rs
}

// Changes returns the points whose value moved by more than threshold
// relative to the previous point, for example 0.05 for 5%.
func (s *Series) Changes(threshold float64) []Change {
	var cs []Change
	for i, r := range s.Ratios() {
		if math.IsNaN(r) {
			continue
		}
		if math.Abs(r-1) > threshold {
			cs = append(cs, Change{i, r})
		}
	}
	return cs
}

var errEmpty = errors.New("series has no points")
