package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// CollectionStart is the first month with tracked collections. Earlier
// months are treated as fully collected on the dashboard.
var CollectionStart = Month{Year: 2026, Month: 3}

// AllMonths is the filter value selecting every month.
const AllMonths = "all"

var arabicMonths = [...]string{
	"يناير", "فبراير", "مارس", "أبريل", "مايو", "يونيو",
	"يوليو", "أغسطس", "سبتمبر", "أكتوبر", "نوفمبر", "ديسمبر",
}

// Month is a calendar month, serialized as YYYY-MM.
type Month struct {
	Year  int
	Month int // 1-12
}

// ParseMonth parses the YYYY-MM form used in month_year columns.
func ParseMonth(s string) (Month, error) {
	s = strings.TrimSpace(s)
	if len(s) != 7 || s[4] != '-' {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	y, err := strconv.Atoi(s[:4])
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	m, err := strconv.Atoi(s[5:])
	if err != nil {
		return Month{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	mo := Month{Year: y, Month: m}
	if err := mo.Validate(); err != nil {
		return Month{}, err
	}
	return mo, nil
}

// MonthOf returns the month containing t.
func MonthOf(t time.Time) Month {
	return Month{Year: t.Year(), Month: int(t.Month())}
}

func (m Month) Validate() error {
	if m.Month < 1 || m.Month > 12 || m.Year < 1900 || m.Year > 9999 {
		return ErrInvalidMonth
	}
	return nil
}

func (m Month) IsZero() bool { return m.Year == 0 && m.Month == 0 }

func (m Month) String() string {
	if m.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d", m.Year, m.Month)
}

// Add rolls the month forward (or back for negative n), wrapping years.
func (m Month) Add(n int) Month {
	idx := m.Year*12 + (m.Month - 1) + n
	return Month{Year: idx / 12, Month: idx%12 + 1}
}

func (m Month) Next() Month { return m.Add(1) }

func (m Month) Before(o Month) bool {
	if m.Year != o.Year {
		return m.Year < o.Year
	}
	return m.Month < o.Month
}

// LastDay returns the last calendar day of the month at midnight UTC.
func (m Month) LastDay() time.Time {
	return time.Date(m.Year, time.Month(m.Month)+1, 0, 0, 0, 0, 0, time.UTC)
}

// ArabicName is the Arabic month name, without the year.
func (m Month) ArabicName() string {
	if m.Month < 1 || m.Month > 12 {
		return strconv.Itoa(m.Month)
	}
	return arabicMonths[m.Month-1]
}

// ArabicLabel renders "مارس 2026".
func (m Month) ArabicLabel() string {
	return m.ArabicName() + " " + strconv.Itoa(m.Year)
}

// ArabicYear renders the year with Arabic-Indic digits, as printed on reports.
func (m Month) ArabicYear() string {
	return ArabicDigits(strconv.Itoa(m.Year))
}

// ArabicDigits replaces Western digits with Arabic-Indic ones.
func ArabicDigits(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return '٠' + (r - '0')
		}
		return r
	}, s)
}

// CurrentMonth is the calendar month of now.
func CurrentMonth(now time.Time) Month {
	return MonthOf(now)
}

// WorkingMonth is the month the dashboard opens on: during the last seven
// days of a month it moves ahead so the next month can be prepared.
func WorkingMonth(now time.Time) Month {
	m := MonthOf(now)
	if now.Day() >= m.LastDay().Day()-6 {
		return m.Next()
	}
	return m
}

// MonthFilter selects either every month or a single one.
type MonthFilter struct {
	All   bool
	Month Month
}

// ParseMonthFilter accepts "all" or YYYY-MM.
func ParseMonthFilter(s string) (MonthFilter, error) {
	if strings.TrimSpace(s) == AllMonths {
		return MonthFilter{All: true}, nil
	}
	m, err := ParseMonth(s)
	if err != nil {
		return MonthFilter{}, err
	}
	return MonthFilter{Month: m}, nil
}

func (f MonthFilter) Matches(m Month) bool {
	return f.All || f.Month == m
}

func (f MonthFilter) String() string {
	if f.All {
		return AllMonths
	}
	return f.Month.String()
}

func (f MonthFilter) Label() string {
	if f.All {
		return "كل الوقت"
	}
	return f.Month.ArabicLabel()
}

// MonthOption is one entry of a month select.
type MonthOption struct {
	Value string
	Label string
}

// MonthOptions lists months from `ahead` months in the future back to
// `back` months in the past, newest first, optionally prefixed by "all".
func MonthOptions(now time.Time, ahead, back int, withAll bool) []MonthOption {
	var opts []MonthOption
	if withAll {
		opts = append(opts, MonthOption{Value: AllMonths, Label: "كل الوقت"})
	}
	cur := MonthOf(now)
	for i := -ahead; i < back; i++ {
		m := cur.Add(-i)
		opts = append(opts, MonthOption{Value: m.String(), Label: m.ArabicLabel()})
	}
	return opts
}

// SettleMonths lists the last three months, oldest first, ending with the
// current month.
func SettleMonths(now time.Time) []MonthOption {
	cur := MonthOf(now)
	opts := make([]MonthOption, 0, 3)
	for i := 2; i >= 0; i-- {
		m := cur.Add(-i)
		opts = append(opts, MonthOption{Value: m.String(), Label: m.ArabicLabel()})
	}
	return opts
}
