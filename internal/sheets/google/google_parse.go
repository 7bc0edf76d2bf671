package google

import (
	"fmt"
	"strconv"
	"strings"
)

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

// sheetRange quotes sheet names containing spaces or non-ASCII letters, as
// the A1 notation requires.
func sheetRange(sheet, cells string) string {
	quote := false
	for _, r := range sheet {
		if r == ' ' || r > 127 {
			quote = true
			break
		}
	}
	if quote {
		sheet = "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	}
	return sheet + "!" + cells
}
