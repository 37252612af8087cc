// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package sqlite3 provides the sqlite3 driver for
// storage/db.OpenSQL. It must be imported instead of go-sqlite3 to
// ensure foreign keys are properly honored.
package sqlite3

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"

	"github.com/benchprom/benchprom/storage/db"
)

func init() {
	db.RegisterOpenHook("sqlite3", func(sdb *sql.DB) error {
		// Each connection to an in-memory database is a separate
		// database, so everything must share one connection.
		sdb.SetMaxOpenConns(1)
		if _, err := sdb.Exec("PRAGMA foreign_keys = ON;"); err != nil {
			return err
		}
		return nil
	})
}

