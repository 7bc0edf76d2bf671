// Package memory is a spreadsheet stand-in used when no Google spreadsheet
// is configured. Appended rows are kept in memory and readable as a range.
package memory

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"khidma/internal/ports"
	"khidma/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	rows   [][]string
	ranges map[string][][]string
}

var (
	_ ports.SheetWriter = (*Store)(nil)
	_ ports.SheetReader = (*Store)(nil)
)

func New() *Store {
	return &Store{ranges: map[string][][]string{}}
}

// NewFromFile seeds a named range from a comma separated file, one record
// per line. Blank lines and lines starting with # are skipped.
func NewFromFile(rangeName, path string) *Store {
	s := New()
	s.SetRange(rangeName, readRecords(path))
	return s
}

// AppendRows stores the rows and returns a synthetic range reference.
func (s *Store) AppendRows(_ context.Context, rows []ports.SheetRow) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	start := len(s.rows) + 2 // row 1 is the header
	for _, r := range rows {
		s.rows = append(s.rows, sheets.Values(r))
	}
	return fmt.Sprintf("mem!A%d:J%d", start, len(s.rows)+1), nil
}

// ReadRange returns a seeded range, or the appended collections with their
// header for any other name.
func (s *Store) ReadRange(_ context.Context, rng string) ([][]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec, ok := s.ranges[rng]; ok {
		return copyRecords(rec), nil
	}
	out := [][]string{append([]string(nil), sheets.Header...)}
	return append(out, copyRecords(s.rows)...), nil
}

// SetRange replaces the records returned for a range name.
func (s *Store) SetRange(rng string, records [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ranges[rng] = copyRecords(records)
}

func copyRecords(in [][]string) [][]string {
	out := make([][]string, len(in))
	for i, r := range in {
		out[i] = append([]string(nil), r...)
	}
	return out
}

func readRecords(path string) [][]string {
	f, err := os.Open(path)
	if err != nil {
		return nil
	}
	defer f.Close()
	var out [][]string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Split(line, ",")
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		out = append(out, fields)
	}
	return out
}
