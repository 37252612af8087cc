// Copyright 2026 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package benchtab

import (
	"io"

	"github.com/google/safehtml/template"

	"github.com/benchprom/benchprom/benchpolicy"
	"github.com/benchprom/benchprom/benchreport"
)

// The first row is the header.
var htmlTemplate = template.Must(template.New("table").Parse(`<table class='benchprom'>
{{- range $i, $row := .}}
<tr>{{range $row}}{{if eq $i 0}}<th>{{.}}{{else}}<td>{{.}}{{end}}{{end}}
{{- end}}
</table>
`))

// FormatHTML writes t to w as an HTML table whose first row is the
// header. An empty table writes nothing.
func (t *Table) FormatHTML(w io.Writer) error {
	if len(t.rows) == 0 {
		return nil
	}
	return htmlTemplate.Execute(w, t.rows)
}

// WriteHTML writes the summary table for r to w as HTML.
func WriteHTML(w io.Writer, p *benchpolicy.Policy, r benchreport.Report) error {
	return Summarize(p, r).FormatHTML(w)
}
