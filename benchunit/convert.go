// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package benchunit converts benchmark values between units and
// formats numbers in those units.
package benchunit

import (
	"fmt"
	"strings"
)

// Microseconds is the canonical spelling of the microsecond unit.
// It uses GREEK SMALL LETTER MU (U+03BC).
const Microseconds = "μs"

// nsPer gives the number of nanoseconds in one of each time unit.
// Every entry is an exact power of 1000 so ratios between them are
// exact in float64.
var nsPer = map[string]float64{
	"ns":         1,
	Microseconds: 1e3,
	"ms":         1e6,
	"s":          1e9,
}

// aliases maps alternate spellings to their canonical unit.
var aliases = map[string]string{
	"nanoseconds":  "ns",
	"us":           Microseconds,
	"µs":           Microseconds, // MICRO SIGN (U+00B5)
	"microseconds": Microseconds,
	"milliseconds": "ms",
	"sec":          "s",
	"seconds":      "s",
}

// Canonical returns the canonical spelling of unit. Units it does not
// know are returned unchanged.
func Canonical(unit string) string {
	if c, ok := aliases[strings.ToLower(unit)]; ok {
		return c
	}
	if c, ok := aliases[unit]; ok {
		return c
	}
	return unit
}

// IsTime reports whether unit is a known unit of time.
func IsTime(unit string) bool {
	_, ok := nsPer[Canonical(unit)]
	return ok
}

// Convert converts value from unit "from" to unit "to".
//
// Converting to a larger unit divides by the exact ratio between the
// units, so Convert(v, "ns", "μs") is precisely v / 1000. Units that
// are equal after canonicalization return value unchanged; converting
// between a time unit and anything else is an error.
func Convert(value float64, from, to string) (float64, error) {
	from, to = Canonical(from), Canonical(to)
	if from == to {
		return value, nil
	}
	f, ok1 := nsPer[from]
	t, ok2 := nsPer[to]
	if !ok1 || !ok2 {
		return 0, fmt.Errorf("cannot convert %q to %q", from, to)
	}
	if t > f {
		return value / (t / f), nil
	}
	return value * (f / t), nil
}
