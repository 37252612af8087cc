// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package db stores benchmark reports in a SQL database so that runs
// can be compared over time.
package db

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"text/template"
	"time"

	"github.com/google/uuid"

	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchreport"
)

// DB is a high-level interface to a report archive. It's safe for
// concurrent use by multiple goroutines.
type DB struct {
	sql *sql.DB // underlying database connection
	// prepared statements
	insertRun   *sql.Stmt
	insertLabel *sql.Stmt
	insertEntry *sql.Stmt
	insertStat  *sql.Stmt
}

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("run not found")

// OpenSQL creates a DB backed by a SQL database. The parameters are
// the same as the parameters for sql.Open. Only mysql and sqlite3 are
// explicitly supported; other database engines will receive MySQL
// query syntax which may or may not be compatible.
func OpenSQL(driverName, dataSourceName string) (*DB, error) {
	db, err := sql.Open(driverName, dataSourceName)
	if err != nil {
		return nil, err
	}
	if hook := openHooks[driverName]; hook != nil {
		if err := hook(db); err != nil {
			db.Close()
			return nil, err
		}
	}
	d := &DB{sql: db}
	if err := d.createTables(driverName); err != nil {
		db.Close()
		return nil, err
	}
	if err := d.prepareStatements(); err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

var openHooks = make(map[string]func(*sql.DB) error)

// RegisterOpenHook registers a hook to be called after opening a connection to driverName.
// This is used by the sqlite3 package to configure its connection pool.
// It must be called from an init function.
func RegisterOpenHook(driverName string, hook func(*sql.DB) error) {
	openHooks[driverName] = hook
}

// createTmpl is the template used to prepare the CREATE statements
// for the database. It is evaluated with . as a map containing one
// entry whose key is the driver name.
var createTmpl = template.Must(template.New("create").Parse(`
CREATE TABLE IF NOT EXISTS Runs (
	Seq {{if .sqlite3}}INTEGER PRIMARY KEY AUTOINCREMENT{{else}}SERIAL PRIMARY KEY AUTO_INCREMENT{{end}},
	RunID VARCHAR(36) NOT NULL UNIQUE,
	Created BIGINT NOT NULL
);
CREATE TABLE IF NOT EXISTS RunLabels (
	RunID VARCHAR(36),
	Name VARCHAR(255),
	Value VARCHAR(8192),
	PRIMARY KEY (RunID, Name),
	FOREIGN KEY (RunID) REFERENCES Runs(RunID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Entries (
	RunID VARCHAR(36),
	EntryID BIGINT UNSIGNED,
	Name VARCHAR(1024),
	Content BLOB,
	PRIMARY KEY (RunID, EntryID),
	FOREIGN KEY (RunID) REFERENCES Runs(RunID) ON UPDATE CASCADE ON DELETE CASCADE
);
CREATE TABLE IF NOT EXISTS Stats (
	RunID VARCHAR(36),
	EntryID BIGINT UNSIGNED,
	Stat VARCHAR(32),
	Value DOUBLE,
	Unit VARCHAR(16),
	Raw DOUBLE,
	PRIMARY KEY (RunID, EntryID, Stat),
{{if not .sqlite3}}
	Index (Stat),
{{end}}
	FOREIGN KEY (RunID, EntryID) REFERENCES Entries(RunID, EntryID) ON UPDATE CASCADE ON DELETE CASCADE
);
{{if .sqlite3}}
CREATE INDEX IF NOT EXISTS StatsByStat ON Stats(Stat);
{{end}}
`))

// createTables creates any missing tables on the connection in
// db.sql. driverName is the same driver name passed to sql.Open and
// is used to select the correct syntax.
func (db *DB) createTables(driverName string) error {
	var buf bytes.Buffer
	if err := createTmpl.Execute(&buf, map[string]bool{driverName: true}); err != nil {
		return err
	}
	for _, q := range strings.Split(buf.String(), ";") {
		if strings.TrimSpace(q) == "" {
			continue
		}
		if _, err := db.sql.Exec(q); err != nil {
			return fmt.Errorf("create table: %v", err)
		}
	}
	return nil
}

// prepareStatements calls db.sql.Prepare on reusable SQL statements.
func (db *DB) prepareStatements() error {
	var err error
	for _, s := range []struct {
		stmt **sql.Stmt
		q    string
	}{
		{&db.insertRun, "INSERT INTO Runs(RunID, Created) VALUES (?, ?)"},
		{&db.insertLabel, "INSERT INTO RunLabels(RunID, Name, Value) VALUES (?, ?, ?)"},
		{&db.insertEntry, "INSERT INTO Entries(RunID, EntryID, Name, Content) VALUES (?, ?, ?, ?)"},
		{&db.insertStat, "INSERT INTO Stats(RunID, EntryID, Stat, Value, Unit, Raw) VALUES (?, ?, ?, ?, ?, ?)"},
	} {
		*s.stmt, err = db.sql.Prepare(s.q)
		if err != nil {
			return err
		}
	}
	return nil
}

// now is a hook for testing
var now = time.Now

// A Run is one stored report and the labels it was produced with.
type Run struct {
	// ID is a random UUID identifying the run.
	ID      string
	Created time.Time
	Labels  map[string]string

	// entryid is the index of the next entry to insert.
	entryid int64
	// tx is the transaction used by the run. It is nil once the
	// run is committed or aborted.
	tx  *sql.Tx
	ctx context.Context
	db  *DB
}

// NewRun starts storing a new run with the given labels. Labels with
// empty values are not stored. The caller must call Commit or Abort
// on the returned Run.
func (db *DB) NewRun(ctx context.Context, labels map[string]string) (*Run, error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	r := &Run{
		ID:      uuid.NewString(),
		Created: now().UTC().Truncate(time.Second),
		Labels:  make(map[string]string),
		tx:      tx,
		ctx:     ctx,
		db:      db,
	}
	if _, err := tx.StmtContext(ctx, db.insertRun).ExecContext(ctx, r.ID, r.Created.Unix()); err != nil {
		tx.Rollback()
		return nil, err
	}
	names := make([]string, 0, len(labels))
	for name := range labels {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if labels[name] == "" {
			continue
		}
		if _, err := tx.StmtContext(ctx, db.insertLabel).ExecContext(ctx, r.ID, name, labels[name]); err != nil {
			tx.Rollback()
			return nil, err
		}
		r.Labels[name] = labels[name]
	}
	return r, nil
}

// InsertEntry adds one report entry to the run.
func (r *Run) InsertEntry(e benchreport.Entry) error {
	if r.tx == nil {
		return errors.New("run already committed or aborted")
	}
	content, err := json.Marshal(e)
	if err != nil {
		return err
	}
	ctx := r.ctx
	if _, err := r.tx.StmtContext(ctx, r.db.insertEntry).ExecContext(ctx, r.ID, r.entryid, e.Name, content); err != nil {
		return err
	}
	for _, s := range e.Stats {
		if _, err := r.tx.StmtContext(ctx, r.db.insertStat).ExecContext(ctx, r.ID, r.entryid, s.Stat, float64(s.Value), s.Unit, float64(s.Raw)); err != nil {
			return err
		}
	}
	r.entryid++
	return nil
}

// Commit finishes storing the run.
func (r *Run) Commit() error {
	if r.tx == nil {
		return errors.New("run already committed or aborted")
	}
	err := r.tx.Commit()
	r.tx = nil
	return err
}

// Abort discards the run.
func (r *Run) Abort() error {
	if r.tx == nil {
		return errors.New("run already committed or aborted")
	}
	err := r.tx.Rollback()
	r.tx = nil
	return err
}

// SaveReport stores rep as a new run in a single transaction.
func (db *DB) SaveReport(ctx context.Context, labels map[string]string, rep benchreport.Report) (*Run, error) {
	r, err := db.NewRun(ctx, labels)
	if err != nil {
		return nil, err
	}
	for _, e := range rep {
		if err := r.InsertEntry(e); err != nil {
			r.Abort()
			return nil, err
		}
	}
	if err := r.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}

// Report returns the report stored for run id, in its original
// order.
func (db *DB) Report(ctx context.Context, id string) (benchreport.Report, error) {
	var seq int64
	err := db.sql.QueryRowContext(ctx, "SELECT Seq FROM Runs WHERE RunID = ?", id).Scan(&seq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	} else if err != nil {
		return nil, err
	}

	rows, err := db.sql.QueryContext(ctx, "SELECT Content FROM Entries WHERE RunID = ? ORDER BY EntryID", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	rep := benchreport.Report{}
	for rows.Next() {
		var content []byte
		if err := rows.Scan(&content); err != nil {
			return nil, err
		}
		var e benchreport.Entry
		if err := json.Unmarshal(content, &e); err != nil {
			return nil, fmt.Errorf("run %s: %w", id, err)
		}
		rep = append(rep, e)
	}
	return rep, rows.Err()
}

// Runs returns every stored run, oldest first.
func (db *DB) Runs(ctx context.Context) ([]*Run, error) {
	rows, err := db.sql.QueryContext(ctx, "SELECT RunID, Created FROM Runs ORDER BY Seq")
	if err != nil {
		return nil, err
	}
	var runs []*Run
	byID := make(map[string]*Run)
	for rows.Next() {
		r := &Run{Labels: make(map[string]string)}
		var created int64
		if err := rows.Scan(&r.ID, &created); err != nil {
			rows.Close()
			return nil, err
		}
		r.Created = time.Unix(created, 0).UTC()
		runs = append(runs, r)
		byID[r.ID] = r
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	rows, err = db.sql.QueryContext(ctx, "SELECT RunID, Name, Value FROM RunLabels")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var id, name, value string
		if err := rows.Scan(&id, &name, &value); err != nil {
			return nil, err
		}
		if r := byID[id]; r != nil {
			r.Labels[name] = value
		}
	}
	return runs, rows.Err()
}

// A Point is one run's value of a statistic.
type Point struct {
	RunID   string
	Created time.Time
	Value   float64 // in the report unit
	Raw     float64 // in the source unit
}

// Series returns the history of one statistic of one test across
// all runs, oldest first. Runs without the statistic are skipped.
func (db *DB) Series(ctx context.Context, test string, kind benchpolicy.Kind) ([]Point, error) {
	rows, err := db.sql.QueryContext(ctx, `
SELECT Runs.RunID, Runs.Created, Stats.Value, Stats.Raw
FROM Stats
JOIN Entries ON Entries.RunID = Stats.RunID AND Entries.EntryID = Stats.EntryID
JOIN Runs ON Runs.RunID = Stats.RunID
WHERE Entries.Name = ? AND Stats.Stat = ?
ORDER BY Runs.Seq, Entries.EntryID`, test, kind.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var pts []Point
	for rows.Next() {
		var p Point
		var created int64
		if err := rows.Scan(&p.RunID, &created, &p.Value, &p.Raw); err != nil {
			return nil, err
		}
		p.Created = time.Unix(created, 0).UTC()
		pts = append(pts, p)
	}
	return pts, rows.Err()
}

// DeleteRun removes run id and everything stored with it.
func (db *DB) DeleteRun(ctx context.Context, id string) (err error) {
	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	for _, q := range []string{
		"DELETE FROM Stats WHERE RunID = ?",
		"DELETE FROM Entries WHERE RunID = ?",
		"DELETE FROM RunLabels WHERE RunID = ?",
	} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, "DELETE FROM Runs WHERE RunID = ?", id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the database connections, releasing any open resources.
func (db *DB) Close() error {
	for _, stmt := range []*sql.Stmt{db.insertRun, db.insertLabel, db.insertEntry, db.insertStat} {
		if err := stmt.Close(); err != nil {
			return err
		}
	}
	return db.sql.Close()
}
