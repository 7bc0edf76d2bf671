package core

import (
	"sort"
	"strings"
)

// SponsorStatus is the payment badge of a sponsor for the selected month.
type SponsorStatus string

const (
	SponsorPaid    SponsorStatus = "paid"
	SponsorPartial SponsorStatus = "partial"
	SponsorUnpaid  SponsorStatus = "unpaid"
)

func (s SponsorStatus) Label() string {
	switch s {
	case SponsorPaid:
		return "مدفوع ✓"
	case SponsorPartial:
		return "جزئي"
	}
	return "لم يدفع"
}

// StatusOf compares what a sponsor paid with what they owe.
func StatusOf(paid, obligation Money) SponsorStatus {
	switch {
	case obligation.Cents > 0 && paid.Cents >= obligation.Cents:
		return SponsorPaid
	case paid.Cents > 0:
		return SponsorPartial
	}
	return SponsorUnpaid
}

// SponsorBalance is a sponsor row of the dashboard.
type SponsorBalance struct {
	Sponsor     Sponsor
	Obligation  Money
	Paid        Money
	CaseCount   int
	ByArea      map[string]Money
	Responsible string
	PaidThrough string
	Status      SponsorStatus
}

// AreaTotal is one area of the monthly distribution breakdown.
type AreaTotal struct {
	AreaID string
	Name   string
	Cases  int
	Fixed  Money
	Extras Money
	Total  Money
	// Share of the grand total in tenths of a percent.
	Permille int64
}

// DashboardInput is the flat data loaded for the dashboard. Collections and
// disbursements are those of the selected month and are ignored when the
// filter covers every month.
type DashboardInput struct {
	Filter        MonthFilter
	Sponsors      []Sponsor
	Sponsorships  []Sponsorship
	Areas         []Area
	Operators     []Operator
	Sadaqat       []SadaqatEntry
	Advances      []AdvancePayment
	Collections   []Collection
	Disbursements []Disbursement
}

// Dashboard is everything the dashboard tabs render.
type Dashboard struct {
	Filter             MonthFilter
	Sponsors           []SponsorBalance
	TotalObligation    Money
	TotalCollected     Money
	EffectiveCollected Money
	Remaining          Money
	CollectedPercent   int64
	PaidCount          int
	Sadaqat            SadaqatSummary
	Areas              []AreaTotal
	AreaFixed          Money
	AreaExtras         Money
	AreaTotal          Money
	AreaCases          int
	Advances           []AdvancePayment
}

// BuildDashboard reduces the loaded rows into the dashboard figures. Only
// active, non-virtual sponsors are counted, and only their sponsorships.
func BuildDashboard(in DashboardInput) Dashboard {
	d := Dashboard{Filter: in.Filter, Advances: in.Advances}

	valid := make(map[string]bool)
	sponsorNames := make(map[string]string)
	for _, s := range in.Sponsors {
		sponsorNames[s.ID] = s.Name
		if s.IsActive && !s.IsVirtual() {
			valid[s.ID] = true
		}
	}
	opNames := make(map[string]string)
	for _, o := range in.Operators {
		if OperatorAllowed(o) {
			opNames[o.ID] = o.Name
		}
	}
	paid := make(map[string]Money)
	if !in.Filter.All {
		for _, c := range in.Collections {
			if c.Status != "" && c.Status != StatusConfirmed {
				continue
			}
			if c.Month != in.Filter.Month {
				continue
			}
			paid[c.SponsorID] = paid[c.SponsorID].Add(c.Amount)
			d.TotalCollected = d.TotalCollected.Add(c.Amount)
		}
	}

	var sponsorships []Sponsorship
	for _, sp := range in.Sponsorships {
		if !valid[sp.SponsorID] {
			continue
		}
		if sp.Status != "" && sp.Status != StatusActive {
			continue
		}
		sponsorships = append(sponsorships, sp)
	}
	bySponsor := make(map[string][]Sponsorship)
	for _, sp := range sponsorships {
		bySponsor[sp.SponsorID] = append(bySponsor[sp.SponsorID], sp)
	}

	for _, s := range in.Sponsors {
		if !valid[s.ID] {
			continue
		}
		sps := bySponsor[s.ID]
		b := SponsorBalance{
			Sponsor:     s,
			Obligation:  Obligation(sps),
			Paid:        paid[s.ID],
			CaseCount:   len(sps),
			ByArea:      make(map[string]Money),
			Responsible: lookupName(opNames, s.ResponsibleOperatorID),
			PaidThrough: lookupName(sponsorNames, s.PaidThroughSponsorID),
		}
		if b.Obligation.Cents <= 0 {
			continue
		}
		for _, sp := range sps {
			area := sp.AreaID
			if area == "" {
				area = "unknown"
			}
			b.ByArea[area] = b.ByArea[area].Add(sp.FixedAmount)
		}
		b.Status = StatusOf(b.Paid, b.Obligation)
		if b.Status == SponsorPaid {
			d.PaidCount++
		}
		d.TotalObligation = d.TotalObligation.Add(b.Obligation)
		d.Sponsors = append(d.Sponsors, b)
	}

	d.EffectiveCollected = d.TotalCollected
	if !in.Filter.All && in.Filter.Month.Before(CollectionStart) {
		d.EffectiveCollected = d.TotalObligation
	}
	d.Remaining = Outstanding(d.TotalObligation, d.EffectiveCollected)
	if d.TotalObligation.Cents > 0 {
		d.CollectedPercent = (d.EffectiveCollected.Cents*100 + d.TotalObligation.Cents/2) / d.TotalObligation.Cents
	}

	d.Sadaqat = SummarizeSadaqat(in.Sadaqat, in.Filter)
	if !in.Filter.All {
		d.Sadaqat.Balance = d.Sadaqat.In.Sub(d.Sadaqat.Out)
	}

	d.Areas = areaBreakdown(in, sponsorships)
	for _, a := range d.Areas {
		d.AreaFixed = d.AreaFixed.Add(a.Fixed)
		d.AreaExtras = d.AreaExtras.Add(a.Extras)
		d.AreaCases += a.Cases
	}
	d.AreaTotal = d.AreaFixed.Add(d.AreaExtras)
	if d.AreaTotal.Cents > 0 {
		for i := range d.Areas {
			d.Areas[i].Permille = d.Areas[i].Total.Cents * 1000 / d.AreaTotal.Cents
		}
	}
	return d
}

// areaBreakdown uses the month's recorded disbursements when there are any,
// and falls back to the current sponsorships otherwise. Case counts always
// come from the sponsorships.
func areaBreakdown(in DashboardInput, sponsorships []Sponsorship) []AreaTotal {
	names := make(map[string]string, len(in.Areas))
	for _, a := range in.Areas {
		names[a.ID] = a.Name
	}
	cases := make(map[string]int)
	fixed := make(map[string]Money)
	var order []string
	for _, sp := range sponsorships {
		if sp.AreaID == "" {
			continue
		}
		if _, ok := cases[sp.AreaID]; !ok {
			order = append(order, sp.AreaID)
		}
		cases[sp.AreaID]++
		fixed[sp.AreaID] = fixed[sp.AreaID].Add(sp.FixedAmount)
	}

	var out []AreaTotal
	if !in.Filter.All && len(in.Disbursements) > 0 {
		for _, db := range in.Disbursements {
			out = append(out, AreaTotal{
				AreaID: db.AreaID,
				Name:   lookupName(names, db.AreaID),
				Cases:  cases[db.AreaID],
				Fixed:  db.FixedTotal,
				Extras: db.ExtrasTotal,
				Total:  db.FixedTotal.Add(db.ExtrasTotal),
			})
		}
		return out
	}
	for _, id := range order {
		out = append(out, AreaTotal{
			AreaID: id,
			Name:   lookupName(names, id),
			Cases:  cases[id],
			Fixed:  fixed[id],
			Total:  fixed[id],
		})
	}
	return out
}

func lookupName(names map[string]string, id string) string {
	if id == "" {
		return "—"
	}
	if n, ok := names[id]; ok && n != "" {
		return n
	}
	return "—"
}

// Sponsor list orderings on the dashboard.
const (
	SortByObligation = "obligation"
	SortByName       = "name"
	SortByCases      = "cases"
)

// FilterSponsorBalances keeps the rows whose name or pays-through name
// contains the query and orders them.
func FilterSponsorBalances(rows []SponsorBalance, query, sortBy string) []SponsorBalance {
	query = strings.TrimSpace(query)
	out := make([]SponsorBalance, 0, len(rows))
	for _, r := range rows {
		if query != "" && !strings.Contains(r.Sponsor.Name, query) &&
			(r.PaidThrough == "—" || !strings.Contains(r.PaidThrough, query)) {
			continue
		}
		out = append(out, r)
	}
	switch sortBy {
	case SortByName:
		SortArabic(out, func(r SponsorBalance) string { return r.Sponsor.Name })
	case SortByCases:
		sort.SliceStable(out, func(i, j int) bool { return out[i].CaseCount > out[j].CaseCount })
	default:
		sort.SliceStable(out, func(i, j int) bool { return out[i].Obligation.Cents > out[j].Obligation.Cents })
	}
	return out
}
