package core

// Obligation sums the fixed pledges of a sponsor's active sponsorships.
func Obligation(sponsorships []Sponsorship) Money {
	var total Money
	for _, sp := range sponsorships {
		if sp.Status != "" && sp.Status != StatusActive {
			continue
		}
		total = total.Add(sp.FixedAmount)
	}
	return total
}

// SplitPayment allocates a payment to the fixed obligation first and the
// overflow to sadaqat. The fixed part never exceeds the obligation and the
// two parts always add up to the amount.
func SplitPayment(amount, obligation Money) (fixed, sadaqat Money) {
	if obligation.Cents < 0 {
		obligation = Money{}
	}
	if amount.Cents <= obligation.Cents {
		return amount, Money{}
	}
	return obligation, amount.Sub(obligation)
}

// ConfirmSplit splits a cash confirmation into the fixed part, capped at
// the sponsor's fixed pledge, and the remainder booked as extra.
func ConfirmSplit(amount, fixed Money) (fixedPortion, extraPortion Money) {
	fixedPortion = Min(amount, fixed)
	extraPortion = Max(Money{}, amount.Sub(fixed))
	return fixedPortion, extraPortion
}

// Outstanding is max(0, obligation − collected).
func Outstanding(obligation, collected Money) Money {
	return Max(Money{}, obligation.Sub(collected))
}

// PendingInput is the flat query result needed to compute who still owes
// money for a month.
type PendingInput struct {
	Month        Month
	Sponsors     []Sponsor
	Sponsorships []Sponsorship
	Adjustments  []Adjustment
	Collections  []Collection
}

// PendingRow is one sponsor with an outstanding balance for the month.
type PendingRow struct {
	Sponsor     Sponsor
	Fixed       Money
	Extras      Money
	Obligation  Money
	Collected   Money
	Outstanding Money
	Cases       []Sponsorship
}

// PendingCollections computes, per sponsor, the fixed pledge plus the
// month's one-time extras, nets off the month's collections and keeps the
// sponsors that still owe something, ordered by name.
func PendingCollections(in PendingInput) []PendingRow {
	fixed := make(map[string]Money)
	cases := make(map[string][]Sponsorship)
	for _, sp := range in.Sponsorships {
		if sp.Status != "" && sp.Status != StatusActive {
			continue
		}
		fixed[sp.SponsorID] = fixed[sp.SponsorID].Add(sp.FixedAmount)
		cases[sp.SponsorID] = append(cases[sp.SponsorID], sp)
	}
	extras := make(map[string]Money)
	for _, adj := range in.Adjustments {
		if adj.Type != OneTimeExtra || adj.Month != in.Month {
			continue
		}
		extras[adj.SponsorID] = extras[adj.SponsorID].Add(adj.Amount)
	}
	collected := make(map[string]Money)
	for _, c := range in.Collections {
		if c.Month != in.Month {
			continue
		}
		collected[c.SponsorID] = collected[c.SponsorID].Add(c.Amount)
	}

	var rows []PendingRow
	for _, s := range in.Sponsors {
		if s.IsVirtual() {
			continue
		}
		obligation := fixed[s.ID].Add(extras[s.ID])
		out := Outstanding(obligation, collected[s.ID])
		if out.Cents <= 0 {
			continue
		}
		rows = append(rows, PendingRow{
			Sponsor:     s,
			Fixed:       fixed[s.ID],
			Extras:      extras[s.ID],
			Obligation:  obligation,
			Collected:   collected[s.ID],
			Outstanding: out,
			Cases:       cases[s.ID],
		})
	}
	SortArabic(rows, func(r PendingRow) string { return r.Sponsor.Name })
	return rows
}

// Confirmation is a cash amount confirmed for a sponsor on the tahseel page.
type Confirmation struct {
	SponsorID   string
	SponsorName string
	OperatorID  string
	Amount      Money
}

// OperatorTotal is the confirmed amount handed to one operator.
type OperatorTotal struct {
	OperatorID   string
	OperatorName string
	Count        int
	Total        Money
}

// ConfirmationSummary groups confirmations by the operator who received them.
type ConfirmationSummary struct {
	ByOperator []OperatorTotal
	Unassigned []Confirmation
	Total      Money
}

// SummarizeConfirmations totals confirmations per operator; confirmations
// without an operator are listed separately.
func SummarizeConfirmations(confs []Confirmation, operators []Operator) ConfirmationSummary {
	names := make(map[string]string, len(operators))
	for _, o := range operators {
		names[o.ID] = o.Name
	}
	var sum ConfirmationSummary
	idx := make(map[string]int)
	for _, c := range confs {
		sum.Total = sum.Total.Add(c.Amount)
		if c.OperatorID == "" {
			sum.Unassigned = append(sum.Unassigned, c)
			continue
		}
		i, ok := idx[c.OperatorID]
		if !ok {
			name := names[c.OperatorID]
			if name == "" {
				name = "—"
			}
			sum.ByOperator = append(sum.ByOperator, OperatorTotal{OperatorID: c.OperatorID, OperatorName: name})
			i = len(sum.ByOperator) - 1
			idx[c.OperatorID] = i
		}
		sum.ByOperator[i].Count++
		sum.ByOperator[i].Total = sum.ByOperator[i].Total.Add(c.Amount)
	}
	SortArabic(sum.ByOperator, func(o OperatorTotal) string { return o.OperatorName })
	return sum
}
