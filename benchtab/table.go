// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchtab

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

// A Table lays out rows of text cells in aligned columns.
//
// The first column is left-aligned and every other column is
// right-aligned. Rows may be shorter than the widest row.
type Table struct {
	rows [][]string
	cols int
}

// Row appends a row of cells to t and returns t.
func (t *Table) Row(cells ...string) *Table {
	t.rows = append(t.rows, cells)
	if len(cells) > t.cols {
		t.cols = len(cells)
	}
	return t
}

// Rows returns the number of rows in t.
func (t *Table) Rows() int {
	return len(t.rows)
}

// Cell returns the cell at row i, column j, or "" if there is none.
func (t *Table) Cell(i, j int) string {
	if i < len(t.rows) && j < len(t.rows[i]) {
		return t.rows[i][j]
	}
	return ""
}

// Format writes t to w, separating columns by two spaces. Trailing
// spaces are trimmed from each line.
func (t *Table) Format(w io.Writer) error {
	ws := make([]int, t.cols)
	for _, row := range t.rows {
		for j, cell := range row {
			ws[j] = max(ws[j], utf8.RuneCountInString(cell))
		}
	}

	var b strings.Builder
	for _, row := range t.rows {
		var line strings.Builder
		for j := 0; j < t.cols; j++ {
			cell := ""
			if j < len(row) {
				cell = row[j]
			}
			pad := ws[j] - utf8.RuneCountInString(cell)
			if j == 0 {
				fmt.Fprintf(&line, "%s%*s", cell, pad, "")
			} else {
				fmt.Fprintf(&line, "  %*s%s", pad, "", cell)
			}
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}
