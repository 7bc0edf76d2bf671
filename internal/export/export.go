// Package export writes reports and collection lists as xlsx workbooks.
package export

import (
	"fmt"
	"io"
	"strings"

	"github.com/divan/num2words"
	"github.com/xuri/excelize/v2"

	"khidma/internal/core"
	"khidma/internal/ports"
)

// ContentType is the MIME type of the workbooks.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const (
	reportSheet      = "التقرير"
	collectionsSheet = "التحصيل"
	// "#,##0.00"
	numFmtAmount = 4
)

// AmountInWords spells the whole pounds of an amount, with piasters as
// digits: "one thousand five hundred pounds and 50 piasters".
func AmountInWords(m core.Money) string {
	cents := m.Cents
	sign := ""
	if cents < 0 {
		sign = "minus "
		cents = -cents
	}
	words := sign + num2words.Convert(int(cents/100)) + " pounds"
	if rem := cents % 100; rem != 0 {
		words += fmt.Sprintf(" and %02d piasters", rem)
	}
	return words
}

// ReportFilename names the workbook for an area report.
func ReportFilename(rep core.AreaReport) string {
	return fmt.Sprintf("report_%s_%s.xlsx", safeName(rep.Area.Name), rep.Month)
}

// AreaReport writes the printable area ledger: a title, one line per case,
// the totals and the grand total in words.
func AreaReport(w io.Writer, rep core.AreaReport) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", reportSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := rightToLeft(f, reportSheet); err != nil {
		return err
	}

	title := fmt.Sprintf("كشف صرف كفالات %s - %s", rep.Area.Name, rep.Month.ArabicLabel())
	f.SetCellValue(reportSheet, "A1", title)
	f.MergeCell(reportSheet, "A1", "F1")
	f.SetCellStyle(reportSheet, "A1", "A1", st.title)

	headers := []string{"م", "الاسم", "الفئة", "الثابت", "الزيادة", "الإجمالي"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 3)
		f.SetCellValue(reportSheet, cell, h)
	}
	f.SetCellStyle(reportSheet, "A3", "F3", st.header)

	row := 4
	for i, r := range rep.Rows {
		f.SetCellValue(reportSheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(reportSheet, fmt.Sprintf("B%d", row), r.Name)
		f.SetCellValue(reportSheet, fmt.Sprintf("C%d", row), r.Category)
		f.SetCellValue(reportSheet, fmt.Sprintf("D%d", row), pounds(r.Fixed))
		f.SetCellValue(reportSheet, fmt.Sprintf("E%d", row), pounds(r.Extras))
		f.SetCellValue(reportSheet, fmt.Sprintf("F%d", row), pounds(r.Total))
		row++
	}
	if len(rep.Rows) > 0 {
		f.SetCellStyle(reportSheet, "D4", fmt.Sprintf("F%d", row-1), st.amount)
	}

	f.SetCellValue(reportSheet, fmt.Sprintf("B%d", row), "الإجمالي")
	f.SetCellValue(reportSheet, fmt.Sprintf("D%d", row), pounds(rep.GrandFixed))
	f.SetCellValue(reportSheet, fmt.Sprintf("E%d", row), pounds(rep.GrandExtras))
	f.SetCellValue(reportSheet, fmt.Sprintf("F%d", row), pounds(rep.GrandTotal))
	f.SetCellStyle(reportSheet, fmt.Sprintf("A%d", row), fmt.Sprintf("F%d", row), st.total)

	words := fmt.Sprintf("A%d", row+2)
	f.SetCellValue(reportSheet, words, AmountInWords(rep.GrandTotal))
	f.MergeCell(reportSheet, words, fmt.Sprintf("F%d", row+2))

	f.SetColWidth(reportSheet, "A", "A", 6)
	f.SetColWidth(reportSheet, "B", "B", 36)
	f.SetColWidth(reportSheet, "C", "C", 16)
	f.SetColWidth(reportSheet, "D", "F", 14)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// CollectionsFilename names the workbook for a month of collections.
func CollectionsFilename(month core.Month) string {
	return fmt.Sprintf("collections_%s.xlsx", month)
}

// Collections writes the month's collections, one per row, with the same
// columns as the spreadsheet mirror and a totals row.
func Collections(w io.Writer, month core.Month, rows []ports.SheetRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", collectionsSheet); err != nil {
		return fmt.Errorf("rename sheet: %w", err)
	}
	st, err := newStyles(f)
	if err != nil {
		return err
	}
	if err := rightToLeft(f, collectionsSheet); err != nil {
		return err
	}

	headers := []string{"الشهر", "الكفيل", "المبلغ", "الثابت", "الزيادة", "الصدقات", "طريقة الدفع", "المستلم", "ملاحظات"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(collectionsSheet, cell, h)
	}
	f.SetCellStyle(collectionsSheet, "A1", "I1", st.header)

	var total, fixed, extra, sadaqat core.Money
	for i, r := range rows {
		n := i + 2
		f.SetCellValue(collectionsSheet, fmt.Sprintf("A%d", n), r.Month)
		f.SetCellValue(collectionsSheet, fmt.Sprintf("B%d", n), r.SponsorName)
		f.SetCellValue(collectionsSheet, fmt.Sprintf("C%d", n), pounds(r.Amount))
		f.SetCellValue(collectionsSheet, fmt.Sprintf("D%d", n), pounds(r.Fixed))
		f.SetCellValue(collectionsSheet, fmt.Sprintf("E%d", n), pounds(r.Extra))
		f.SetCellValue(collectionsSheet, fmt.Sprintf("F%d", n), pounds(r.Sadaqat))
		f.SetCellValue(collectionsSheet, fmt.Sprintf("G%d", n), r.Method)
		f.SetCellValue(collectionsSheet, fmt.Sprintf("H%d", n), r.ReceivedBy)
		f.SetCellValue(collectionsSheet, fmt.Sprintf("I%d", n), r.Notes)
		total = total.Add(r.Amount)
		fixed = fixed.Add(r.Fixed)
		extra = extra.Add(r.Extra)
		sadaqat = sadaqat.Add(r.Sadaqat)
	}
	last := len(rows) + 2
	if len(rows) > 0 {
		f.SetCellStyle(collectionsSheet, "C2", fmt.Sprintf("F%d", last-1), st.amount)
	}
	f.SetCellValue(collectionsSheet, fmt.Sprintf("B%d", last), "الإجمالي")
	f.SetCellValue(collectionsSheet, fmt.Sprintf("C%d", last), pounds(total))
	f.SetCellValue(collectionsSheet, fmt.Sprintf("D%d", last), pounds(fixed))
	f.SetCellValue(collectionsSheet, fmt.Sprintf("E%d", last), pounds(extra))
	f.SetCellValue(collectionsSheet, fmt.Sprintf("F%d", last), pounds(sadaqat))
	f.SetCellStyle(collectionsSheet, fmt.Sprintf("A%d", last), fmt.Sprintf("I%d", last), st.total)

	f.SetColWidth(collectionsSheet, "B", "B", 30)
	f.SetColWidth(collectionsSheet, "C", "F", 12)
	f.SetColWidth(collectionsSheet, "I", "I", 30)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

type styles struct {
	title, header, amount, total int
}

func newStyles(f *excelize.File) (styles, error) {
	var st styles
	var err error
	if st.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return st, fmt.Errorf("title style: %w", err)
	}
	if st.header, err = f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"E8F0E8"}},
	}); err != nil {
		return st, fmt.Errorf("header style: %w", err)
	}
	if st.amount, err = f.NewStyle(&excelize.Style{NumFmt: numFmtAmount}); err != nil {
		return st, fmt.Errorf("amount style: %w", err)
	}
	if st.total, err = f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		NumFmt: numFmtAmount,
	}); err != nil {
		return st, fmt.Errorf("total style: %w", err)
	}
	return st, nil
}

func rightToLeft(f *excelize.File, sheet string) error {
	rtl := true
	if err := f.SetSheetView(sheet, 0, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
		return fmt.Errorf("sheet view: %w", err)
	}
	return nil
}

func pounds(m core.Money) float64 {
	f, _ := m.Decimal().Float64()
	return f
}

func safeName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "area"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ' ', '"', ':', '*', '?', '<', '>', '|':
			return '_'
		}
		return r
	}, s)
}
