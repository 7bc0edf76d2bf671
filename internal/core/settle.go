package core

// SettleRow is one sponsorship line of the settlement table. Fixed and
// Extras are the stored values; NewFixed and NewExtras are the edited ones.
type SettleRow struct {
	SponsorshipID string
	SponsorID     string
	CaseID        string
	ChildName     string
	GuardianName  string
	SponsorName   string
	Fixed         Money
	NewFixed      Money
	Extras        Money
	NewExtras     Money
	ExtraAdjID    string
	Included      bool
	Collected     bool
	ReceivedBy    string
}

// NewSettleRow builds an included row for a sponsorship with no extras.
func NewSettleRow(sp Sponsorship) SettleRow {
	return SettleRow{
		SponsorshipID: sp.ID,
		SponsorID:     sp.SponsorID,
		CaseID:        sp.CaseID,
		ChildName:     orDash(sp.ChildName),
		GuardianName:  sp.GuardianName,
		SponsorName:   orDash(sp.SponsorName),
		Fixed:         sp.FixedAmount,
		NewFixed:      sp.FixedAmount,
		Included:      true,
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

// BuildSettleRows turns the area's active sponsorships into table rows and
// attaches the month's one-time extra recorded for each sponsorship.
func BuildSettleRows(sponsorships []Sponsorship, adjustments []Adjustment) []SettleRow {
	extras := make(map[string]Adjustment)
	for _, adj := range adjustments {
		if adj.Type != OneTimeExtra {
			continue
		}
		if _, seen := extras[adj.SponsorshipID]; !seen {
			extras[adj.SponsorshipID] = adj
		}
	}
	rows := make([]SettleRow, 0, len(sponsorships))
	for _, sp := range sponsorships {
		if sp.Status != "" && sp.Status != StatusActive {
			continue
		}
		row := NewSettleRow(sp)
		if adj, ok := extras[sp.ID]; ok {
			row.Extras = adj.Amount
			row.NewExtras = adj.Amount
			row.ExtraAdjID = adj.ID
		}
		rows = append(rows, row)
	}
	SortArabic(rows, func(r SettleRow) string { return r.ChildName })
	return rows
}

// AddSettleRow appends a sponsorship to the table unless it is already there.
func AddSettleRow(rows []SettleRow, sp Sponsorship) ([]SettleRow, bool) {
	for _, r := range rows {
		if r.SponsorshipID == sp.ID {
			return rows, false
		}
	}
	return append(rows, NewSettleRow(sp)), true
}

type SettleActionKind int

const (
	ActionUpdateExtra SettleActionKind = iota + 1
	ActionDeleteExtra
	ActionInsertExtra
	// ActionRaiseFixed updates the sponsorship amount and, once that
	// succeeds, records a permanent_increase adjustment.
	ActionRaiseFixed
)

func (k SettleActionKind) String() string {
	switch k {
	case ActionUpdateExtra:
		return "update_extra"
	case ActionDeleteExtra:
		return "delete_extra"
	case ActionInsertExtra:
		return "insert_extra"
	case ActionRaiseFixed:
		return "raise_fixed"
	}
	return "unknown"
}

// SettleAction is one write produced by PlanSettlement.
type SettleAction struct {
	Kind          SettleActionKind
	SponsorshipID string
	AdjustmentID  string
	Amount        Money
	Adjustment    Adjustment
}

// PlanSettlement lists the writes needed to persist the edited table, in
// row order. Every row is considered, included or not.
func PlanSettlement(month Month, rows []SettleRow) []SettleAction {
	var actions []SettleAction
	for _, r := range rows {
		if r.NewExtras != r.Extras {
			switch {
			case r.ExtraAdjID != "" && r.NewExtras.Cents > 0:
				actions = append(actions, SettleAction{
					Kind:         ActionUpdateExtra,
					AdjustmentID: r.ExtraAdjID,
					Amount:       r.NewExtras,
				})
			case r.ExtraAdjID != "":
				actions = append(actions, SettleAction{
					Kind:         ActionDeleteExtra,
					AdjustmentID: r.ExtraAdjID,
				})
			case r.NewExtras.Cents > 0:
				actions = append(actions, SettleAction{
					Kind:          ActionInsertExtra,
					SponsorshipID: r.SponsorshipID,
					Amount:        r.NewExtras,
					Adjustment:    rowAdjustment(month, r, OneTimeExtra, r.NewExtras),
				})
			}
		}
		if r.NewFixed != r.Fixed && r.NewFixed.Cents > 0 {
			actions = append(actions, SettleAction{
				Kind:          ActionRaiseFixed,
				SponsorshipID: r.SponsorshipID,
				Amount:        r.NewFixed,
				Adjustment:    rowAdjustment(month, r, PermanentIncrease, r.NewFixed),
			})
		}
	}
	return actions
}

func rowAdjustment(month Month, r SettleRow, typ AdjustmentType, amount Money) Adjustment {
	return Adjustment{
		SponsorshipID: r.SponsorshipID,
		CaseID:        r.CaseID,
		SponsorID:     r.SponsorID,
		Month:         month,
		Type:          typ,
		Amount:        amount,
		OldFixed:      r.Fixed,
		Applied:       r.Collected,
	}
}

// SettleTotals are the footer totals of the settlement table.
type SettleTotals struct {
	Count       int
	GrandFixed  Money
	GrandExtras Money
	GrandTotal  Money
}

// TotalSettlement sums the edited amounts of the included rows.
func TotalSettlement(rows []SettleRow) SettleTotals {
	var t SettleTotals
	for _, r := range rows {
		if !r.Included {
			continue
		}
		t.Count++
		t.GrandFixed = t.GrandFixed.Add(r.NewFixed)
		t.GrandExtras = t.GrandExtras.Add(r.NewExtras)
	}
	t.GrandTotal = t.GrandFixed.Add(t.GrandExtras)
	return t
}

// OutflowDescription builds the destination description of a settlement
// outflow: child, guardian in parentheses and area for a sponsored case;
// recipient and detail for an external one. It falls back to the reason.
func OutflowDescription(c *Case, recipient, detail, reason string) string {
	var d string
	switch {
	case c != nil:
		d = c.ChildName
		if c.GuardianName != "" {
			d += " (" + c.GuardianName + ")"
		}
		d += " — " + c.AreaName
	case recipient != "":
		d = recipient
		if detail != "" {
			d += " — " + detail
		}
	}
	if d == "" {
		return reason
	}
	return d
}
