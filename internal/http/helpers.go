package http

import (
	"strings"
	"time"

	"khidma/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
	return strings.TrimSpace(s)
}

// collectMonths are the months offered on the collect form: the current
// one and the 23 before it.
func collectMonths(now time.Time) []core.MonthOption {
	return core.MonthOptions(now, 0, 24, false)
}

// filterMonths are the dashboard and ledger filters: "all", next month,
// the current one and the 23 before it.
func filterMonths(now time.Time) []core.MonthOption {
	return core.MonthOptions(now, 1, 24, true)
}

// advanceMonths resolves the months a payment covers from the chosen
// advance type. Custom counts only apply to months_in_advance.
func advanceMonths(advanceType string, custom int) (string, int) {
	switch advanceType {
	case core.AdvanceAnnual, core.AdvanceSemiAnnual:
		return advanceType, core.DefaultAdvanceMonths(advanceType)
	case core.AdvanceMonthsAhead:
		if custom < 1 {
			custom = 1
		}
		return core.AdvanceMonthsAhead, custom
	}
	return core.AdvanceMonthly, 1
}

func sponsorByID(sponsors []core.Sponsor, id string) (core.Sponsor, bool) {
	for _, s := range sponsors {
		if s.ID == id {
			return s, true
		}
	}
	return core.Sponsor{}, false
}
