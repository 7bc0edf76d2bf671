package core

// ReportRow is one printed line of an area disbursement report.
type ReportRow struct {
	CaseID   string
	Name     string
	Category string
	Fixed    Money
	Extras   Money
	Total    Money
}

// AreaReport is the printable monthly ledger of an area.
type AreaReport struct {
	Area        Area
	Month       Month
	Rows        []ReportRow
	GrandFixed  Money
	GrandExtras Money
	GrandTotal  Money
}

// BuildAreaReport joins the area's active cases with their active
// sponsorships and the month's one-time extras. Cases with nothing to pay
// are left out. The grand total is always the sum of the printed rows.
func BuildAreaReport(area Area, month Month, cases []Case, sponsorships []Sponsorship, adjustments []Adjustment) AreaReport {
	fixed := make(map[string]Money)
	for _, sp := range sponsorships {
		if sp.Status != "" && sp.Status != StatusActive {
			continue
		}
		fixed[sp.CaseID] = fixed[sp.CaseID].Add(sp.FixedAmount)
	}
	extras := make(map[string]Money)
	for _, adj := range adjustments {
		if adj.Type != OneTimeExtra || adj.Month != month {
			continue
		}
		extras[adj.CaseID] = extras[adj.CaseID].Add(adj.Amount)
	}

	rep := AreaReport{Area: area, Month: month}
	for _, c := range cases {
		if c.Status != "" && c.Status != StatusActive {
			continue
		}
		if area.ID != "" && c.AreaID != "" && c.AreaID != area.ID {
			continue
		}
		row := ReportRow{
			CaseID:   c.ID,
			Name:     c.DisplayName(),
			Category: c.Type.Label(),
			Fixed:    fixed[c.ID],
			Extras:   extras[c.ID],
		}
		row.Total = row.Fixed.Add(row.Extras)
		if row.Total.Cents <= 0 {
			continue
		}
		rep.Rows = append(rep.Rows, row)
	}
	SortArabic(rep.Rows, func(r ReportRow) string { return r.Name })
	for _, r := range rep.Rows {
		rep.GrandFixed = rep.GrandFixed.Add(r.Fixed)
		rep.GrandExtras = rep.GrandExtras.Add(r.Extras)
	}
	rep.GrandTotal = rep.GrandFixed.Add(rep.GrandExtras)
	return rep
}
