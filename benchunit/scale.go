// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import (
	"fmt"
	"math"
	"strconv"
)

// A Scaler represents a scaling factor for a number and the suffix
// naming it.
type Scaler struct {
	Prec   int     // Digits after the decimal point
	Factor float64 // Unscaled value of 1 Suffix (e.g., 1 ms => 1e6 ns)
	Suffix string  // Unit or prefix ("ms", "k", etc)
}

// Format formats val and appends the suffix according to the given
// scale. For example, a time Scaler for a set of values around one
// millisecond formats 1234567 (nanoseconds) as "1.235ms".
func (s Scaler) Format(val float64) string {
	buf := make([]byte, 0, 20)
	buf = strconv.AppendFloat(buf, val/s.Factor, 'f', s.Prec, 64)
	buf = append(buf, s.Suffix...)
	return string(buf)
}

// NoOpScaler formats numbers with the smallest number of digits
// necessary to capture the exact value, and no suffix.
var NoOpScaler = Scaler{-1, 1, ""}

type factor struct {
	factor float64
	suffix string
	// Thresholds for 100.0, 10.00, 1.000.
	t100, t10, t1 float64
}

// timeFactors scale values given in nanoseconds.
var timeFactors = mkFactors(9, []string{"s", "ms", Microseconds, "ns"})

// countFactors scale dimensionless counts, such as allocations.
var countFactors = mkFactors(9, []string{"G", "M", "k", ""})

var sigfigs, sigfigsBase = mkSigfigs()

// mkFactors builds a factor table that starts at 10^exp and steps
// down by 1000 for each suffix. The thresholds are constructed by
// parsing the printed representation so they exactly match how
// printing itself will round.
func mkFactors(exp int, suffixes []string) []factor {
	var factors []factor
	for _, s := range suffixes {
		t100, _ := strconv.ParseFloat(fmt.Sprintf("99.995e%d", exp), 64)
		t10, _ := strconv.ParseFloat(fmt.Sprintf("9.9995e%d", exp), 64)
		t1, _ := strconv.ParseFloat(fmt.Sprintf(".99995e%d", exp), 64)
		factors = append(factors, factor{math.Pow(10, float64(exp)), s, t100, t10, t1})
		exp -= 3
	}
	return factors
}

func mkSigfigs() ([]float64, int) {
	var sigfigs []float64
	// Print up to 10 digits after the decimal place.
	for exp := -1; exp > -9; exp-- {
		thresh, _ := strconv.ParseFloat(fmt.Sprintf("9.9995e%d", exp), 64)
		sigfigs = append(sigfigs, thresh)
	}
	// sigfigs[0] is the threshold for 3 digits after the decimal.
	return sigfigs, 3
}

// TimeScale returns a Scaler for durations given in nanoseconds that
// shows at least three significant digits for every value in vals.
func TimeScale(vals []float64) Scaler {
	return commonScale(vals, timeFactors)
}

// CountScale returns a Scaler for counts that shows at least three
// significant digits for every value in vals, using SI prefixes.
func CountScale(vals []float64) Scaler {
	return commonScale(vals, countFactors)
}

func commonScale(vals []float64, factors []factor) Scaler {
	// The common scale is determined by the non-zero value
	// closest to zero.
	var min float64
	for _, v := range vals {
		v = math.Abs(v)
		if v != 0 && (min == 0 || v < min) {
			min = v
		}
	}
	last := factors[len(factors)-1]
	if min == 0 {
		return Scaler{0, last.factor, last.suffix}
	}
	for _, factor := range factors {
		switch {
		case min >= factor.t100:
			return Scaler{1, factor.factor, factor.suffix}
		case min >= factor.t10:
			return Scaler{2, factor.factor, factor.suffix}
		case min >= factor.t1:
			return Scaler{3, factor.factor, factor.suffix}
		}
	}
	// The value is less than the smallest factor. Print it using
	// the smallest factor and more precision to achieve the
	// desired sigfigs.
	val := min / last.factor
	for i, thresh := range sigfigs {
		if val >= thresh || i == len(sigfigs)-1 {
			return Scaler{i + sigfigsBase, last.factor, last.suffix}
		}
	}
	panic("not reachable")
}
