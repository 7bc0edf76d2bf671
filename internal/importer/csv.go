// Package importer loads collections, sponsors and cases from CSV exports
// or spreadsheet ranges, matching sponsor names by edit distance.
package importer

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"
)

var (
	ErrEmptyFile       = errors.New("file is empty")
	ErrInvalidEncoding = errors.New("file is not valid UTF-8")
	ErrMissingHeader   = errors.New("missing header row")
	ErrMissingColumn   = errors.New("column not mapped")
)

// Row is one data line, keyed by header. Line counts the header as 1.
type Row struct {
	Line int
	Data map[string]string
}

// Get returns the trimmed value of a column.
func (r Row) Get(header string) string {
	return r.Data[header]
}

// Table is a parsed file: its headers in order and the non-blank rows.
type Table struct {
	Headers []string
	Rows    []Row
}

// Parse reads a CSV file. A UTF-8 BOM is stripped, quotes are handled
// leniently, rows may have any number of fields and blank lines are skipped.
func Parse(r io.Reader) (Table, error) {
	br := bufio.NewReader(r)
	if bom, err := br.Peek(3); err == nil && bom[0] == 0xEF && bom[1] == 0xBB && bom[2] == 0xBF {
		_, _ = br.Discard(3)
	}
	data, err := io.ReadAll(br)
	if err != nil {
		return Table{}, fmt.Errorf("read file: %w", err)
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return Table{}, ErrEmptyFile
	}
	if !utf8.Valid(data) {
		return Table{}, ErrInvalidEncoding
	}

	cr := csv.NewReader(strings.NewReader(string(data)))
	cr.LazyQuotes = true
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse csv: %w", err)
	}
	return FromRecords(records)
}

// FromRecords builds a table from raw records whose first entry is the
// header, as returned by a spreadsheet range.
func FromRecords(records [][]string) (Table, error) {
	if len(records) == 0 {
		return Table{}, ErrMissingHeader
	}
	var t Table
	for _, h := range records[0] {
		t.Headers = append(t.Headers, strings.TrimSpace(h))
	}
	if blank(t.Headers) {
		return Table{}, ErrMissingHeader
	}
	for i, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		row := Row{Line: i + 2, Data: make(map[string]string, len(t.Headers))}
		for j, h := range t.Headers {
			if h == "" || j >= len(rec) {
				continue
			}
			row.Data[h] = strings.TrimSpace(rec[j])
		}
		t.Rows = append(t.Rows, row)
	}
	return t, nil
}

// HasColumn reports whether the header row names the column.
func (t Table) HasColumn(name string) bool {
	for _, h := range t.Headers {
		if h == name {
			return true
		}
	}
	return false
}

func blank(fields []string) bool {
	for _, f := range fields {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
