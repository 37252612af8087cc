// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchunit

import "testing"

func TestConvert(t *testing.T) {
	test := func(v float64, from, to string, want float64) {
		t.Helper()
		got, err := Convert(v, from, to)
		if err != nil {
			t.Errorf("Convert(%v, %s, %s): %v", v, from, to, err)
			return
		}
		if got != want {
			t.Errorf("Convert(%v, %s, %s) = %v, want %v", v, from, to, got, want)
		}
	}

	test(18000, "ns", "μs", 18)
	test(1520000, "ns", "μs", 1520)
	test(1234567, "ns", "us", 1234.567)
	test(1234567, "ns", "µs", 1234.567)
	test(3, "ms", "ns", 3e6)
	test(2.5, "s", "ms", 2500)
	test(42, "", "", 42)
	test(42, "allocs", "allocs", 42)

	if _, err := Convert(1, "ns", "B"); err == nil {
		t.Errorf("converting ns to B succeeded")
	}
}

func TestConvertIsDivision(t *testing.T) {
	// Converting to a larger unit must be exactly a division by the
	// ratio, not a multiplication by its (inexact) reciprocal.
	for _, ns := range []float64{1, 7, 999, 18000, 1234567, 987654321, 1<<53 - 1} {
		got, _ := Convert(ns, "ns", Microseconds)
		if want := ns / 1000; got != want {
			t.Errorf("Convert(%v) = %v, want %v", ns, got, want)
		}
	}
}

func TestCanonical(t *testing.T) {
	for in, want := range map[string]string{
		"us":           "μs",
		"µs":           "μs",
		"μs":           "μs",
		"Microseconds": "μs",
		"sec":          "s",
		"ns":           "ns",
		"allocs":       "allocs",
	} {
		if got := Canonical(in); got != want {
			t.Errorf("Canonical(%q) = %q, want %q", in, got, want)
		}
	}
	if !IsTime("us") || IsTime("allocs") {
		t.Errorf("IsTime misclassifies units")
	}
}
