// Package sheets holds the spreadsheet layout shared by the Google Sheets
// adapter and the in-memory one.
package sheets

import (
	"fmt"
	"strings"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// Header is the first row of the collections sheet.
var Header = []string{
	"المعرف",
	"الشهر",
	"الكفيل",
	"المبلغ",
	"الثابت",
	"الزيادة",
	"الصدقات",
	"طريقة الدفع",
	"المستلم",
	"ملاحظات",
}

// Values lays a collection out in Header order. Amounts are plain decimals
// so the spreadsheet parses them as numbers.
func Values(r ports.SheetRow) []string {
	return []string{
		r.CollectionID,
		r.Month,
		r.SponsorName,
		amount(r.Amount),
		amount(r.Fixed),
		amount(r.Extra),
		amount(r.Sadaqat),
		r.Method,
		r.ReceivedBy,
		r.Notes,
	}
}

func amount(m core.Money) string {
	return m.Decimal().StringFixed(2)
}

// Records turns raw cell values into trimmed strings, padding short rows to
// the width of the first one.
func Records(values [][]any) [][]string {
	if len(values) == 0 {
		return nil
	}
	width := len(values[0])
	out := make([][]string, 0, len(values))
	for _, row := range values {
		n := width
		if len(row) > n {
			n = len(row)
		}
		rec := make([]string, n)
		for i, v := range row {
			rec[i] = trim(v)
		}
		out = append(out, rec)
	}
	return out
}

func trim(v any) string {
	return strings.TrimSpace(fmt.Sprint(v))
}
