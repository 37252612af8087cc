// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package db_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchreport"
	. "github.com/benchprom/benchprom/storage/db"
	"github.com/benchprom/benchprom/storage/db/dbtest"
)

func report(median, raw float64) benchreport.Report {
	return benchreport.Report{
		{
			Name: "com.example.MapperBenchmark.mapSingleUser", Value: benchreport.Number(median), Unit: "μs",
			Class: "com.example.MapperBenchmark", Method: "mapSingleUser",
			Stats: []benchreport.Stat{
				{Stat: "time_median", Value: benchreport.Number(median), Unit: "μs", Raw: benchreport.Number(raw)},
				{Stat: "alloc_median", Value: 12, Unit: "count", Raw: 12},
			},
		},
		{Name: "other", Value: 1.5, Unit: "μs"},
	}
}

func TestSaveReport(t *testing.T) {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	defer SetNow(time.Time{})
	SetNow(time.Unix(86400, 0))

	labels := map[string]string{"branch": "main", "commit": "0123456", "device": ""}
	want := report(18, 18000)
	run, err := db.SaveReport(ctx, labels, want)
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	if len(run.ID) != 36 {
		t.Errorf("run ID %q is not a UUID", run.ID)
	}
	if !run.Created.Equal(time.Unix(86400, 0)) {
		t.Errorf("Created = %v", run.Created)
	}

	got, err := db.Report(ctx, run.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("report mismatch (-want +got):\n%s", diff)
	}

	runs, err := db.Runs(ctx)
	if err != nil {
		t.Fatalf("Runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("got %d runs, want 1", len(runs))
	}
	// Empty labels are not stored.
	wantLabels := map[string]string{"branch": "main", "commit": "0123456"}
	if diff := cmp.Diff(wantLabels, runs[0].Labels); diff != "" {
		t.Errorf("labels mismatch (-want +got):\n%s", diff)
	}
}

func TestEmptyReport(t *testing.T) {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	run, err := db.SaveReport(ctx, nil, nil)
	if err != nil {
		t.Fatalf("SaveReport: %v", err)
	}
	got, err := db.Report(ctx, run.ID)
	if err != nil {
		t.Fatalf("Report: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Report = %#v, want empty report", got)
	}
}

func TestSeries(t *testing.T) {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	defer SetNow(time.Time{})
	var ids []string
	for i, median := range []float64{18, 17.5, 19} {
		SetNow(time.Unix(int64(i)*3600, 0))
		run, err := db.SaveReport(ctx, nil, report(median, median*1000))
		if err != nil {
			t.Fatalf("SaveReport: %v", err)
		}
		ids = append(ids, run.ID)
	}

	pts, err := db.Series(ctx, "com.example.MapperBenchmark.mapSingleUser", benchpolicy.TimeMedian)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	want := []Point{
		{RunID: ids[0], Created: time.Unix(0, 0).UTC(), Value: 18, Raw: 18000},
		{RunID: ids[1], Created: time.Unix(3600, 0).UTC(), Value: 17.5, Raw: 17500},
		{RunID: ids[2], Created: time.Unix(7200, 0).UTC(), Value: 19, Raw: 19000},
	}
	if diff := cmp.Diff(want, pts); diff != "" {
		t.Errorf("series mismatch (-want +got):\n%s", diff)
	}

	// Minimal entries have no stored statistics.
	pts, err = db.Series(ctx, "other", benchpolicy.TimeMedian)
	if err != nil {
		t.Fatalf("Series: %v", err)
	}
	if len(pts) != 0 {
		t.Errorf("Series(other) = %v, want none", pts)
	}
}

func TestDeleteRun(t *testing.T) {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	keep, err := db.SaveReport(ctx, map[string]string{"branch": "main"}, report(18, 18000))
	if err != nil {
		t.Fatal(err)
	}
	drop, err := db.SaveReport(ctx, map[string]string{"branch": "dev"}, report(20, 20000))
	if err != nil {
		t.Fatal(err)
	}
	if err := db.DeleteRun(ctx, drop.ID); err != nil {
		t.Fatalf("DeleteRun: %v", err)
	}
	if _, err := db.Report(ctx, drop.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Report(deleted) error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteRun(ctx, drop.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteRun error = %v, want ErrNotFound", err)
	}

	runs, err := db.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 1 || runs[0].ID != keep.ID {
		t.Errorf("remaining runs = %v, want only %s", runs, keep.ID)
	}
	pts, err := db.Series(ctx, "com.example.MapperBenchmark.mapSingleUser", benchpolicy.TimeMedian)
	if err != nil {
		t.Fatal(err)
	}
	if len(pts) != 1 || pts[0].RunID != keep.ID {
		t.Errorf("series after delete = %v", pts)
	}
}

func TestAbort(t *testing.T) {
	ctx := context.Background()
	db, cleanup := dbtest.NewDB(t)
	defer cleanup()

	run, err := db.NewRun(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := run.InsertEntry(benchreport.Entry{Name: "x", Value: 1, Unit: "μs"}); err != nil {
		t.Fatal(err)
	}
	if err := run.Abort(); err != nil {
		t.Fatal(err)
	}
	if err := run.Commit(); err == nil {
		t.Errorf("Commit after Abort succeeded")
	}
	runs, err := db.Runs(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("aborted run was stored: %v", runs)
	}
}
