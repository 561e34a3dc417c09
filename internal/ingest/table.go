// Package ingest turns on-disk sponsor source tables (CSV or XLSX) into the
// frame.Frame + []frame.ColumnHint pair the Mapping Engine and Pipeline
// Executor consume. This is the minimal parsing surface the kernel needs —
// something has to produce the frame — without reaching into the
// study-folder-discovery territory reserved for the surrounding UI.
package ingest

import (
	"fmt"
	"strings"

	"github.com/cdisc-transpiler/sdtmkit/internal/frame"
)

// Table is a parsed sponsor source table: the normalized header row, the
// data rows beneath it, and an optional label row (sponsor metadata naming
// each column in human terms, which feeds ColumnHint.Label for the Mapping
// Engine's label-boost adjustment).
type Table struct {
	Headers  []string
	Rows     [][]string
	Labels   map[string]string // header -> label text, may be nil
	HeaderAt int               // row index the header was detected at
}

// FromRawRows builds a Table from a raw cell matrix, detecting the header
// row rather than assuming row 0. If hasLabelRow is true, the row
// immediately following the header is treated as per-column label text
// instead of data.
func FromRawRows(rows [][]string, hasLabelRow bool) (Table, error) {
	if len(rows) == 0 {
		return Table{}, fmt.Errorf("ingest: empty source table")
	}

	headerIdx, _ := DetectHeaderRow(rows)
	headers := normalizeHeaders(rows[headerIdx])

	dataStart := headerIdx + 1
	var labels map[string]string
	if hasLabelRow && dataStart < len(rows) {
		labels = make(map[string]string, len(headers))
		labelRow := rows[dataStart]
		for i, h := range headers {
			if i < len(labelRow) {
				labels[h] = strings.TrimSpace(labelRow[i])
			}
		}
		dataStart++
	}

	var dataRows [][]string
	if dataStart < len(rows) {
		dataRows = rows[dataStart:]
	}

	return Table{Headers: headers, Rows: dataRows, Labels: labels, HeaderAt: headerIdx}, nil
}

// normalizeHeaders trims whitespace, fills blanks with a positional
// placeholder, and disambiguates duplicates by suffixing "_2", "_3", ... so
// every header is usable as a frame column name.
func normalizeHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("COLUMN_%d", i+1)
		}
		seen[name]++
		if n := seen[name]; n > 1 {
			name = fmt.Sprintf("%s_%d", name, n)
		}
		out[i] = name
	}
	return out
}

// ToFrame converts a Table into a frame.Frame (keyed by the domain code the
// caller is about to map it against) plus the ColumnHint slice the Mapping
// Engine scores.
func (t Table) ToFrame(domainCode string) (frame.Frame, []frame.ColumnHint) {
	data := make(map[string][]string, len(t.Headers))
	for i, h := range t.Headers {
		col := make([]string, len(t.Rows))
		for r, row := range t.Rows {
			if i < len(row) {
				col[r] = row[i]
			}
		}
		data[h] = col
	}
	f := frame.New(domainCode, t.Headers, data)
	hints := frame.ComputeHints(f, t.Labels)
	return f, hints
}
