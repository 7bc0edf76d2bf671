package core

import "testing"

func TestSplitPayment(t *testing.T) {
	cases := []struct {
		amount, obligation int64
		fixed, sadaqat     int64
	}{
		{500, 500, 500, 0},
		{300, 500, 300, 0},
		{800, 500, 500, 300},
		{200, 0, 0, 200},
	}
	for _, tc := range cases {
		fixed, sadaqat := SplitPayment(Pounds(tc.amount), Pounds(tc.obligation))
		if fixed != Pounds(tc.fixed) || sadaqat != Pounds(tc.sadaqat) {
			t.Fatalf("SplitPayment(%d, %d) = %v, %v", tc.amount, tc.obligation, fixed, sadaqat)
		}
		if fixed.Cents > Pounds(tc.obligation).Cents {
			t.Fatalf("fixed exceeds obligation")
		}
		if fixed.Add(sadaqat) != Pounds(tc.amount) {
			t.Fatalf("portions do not add up to the amount")
		}
	}
}

func TestConfirmSplit(t *testing.T) {
	fixed, extra := ConfirmSplit(Pounds(700), Pounds(500))
	if fixed != Pounds(500) || extra != Pounds(200) {
		t.Fatalf("got %v, %v", fixed, extra)
	}
	fixed, extra = ConfirmSplit(Pounds(300), Pounds(500))
	if fixed != Pounds(300) || !extra.IsZero() {
		t.Fatalf("got %v, %v", fixed, extra)
	}
}

func TestOutstanding(t *testing.T) {
	if got := Outstanding(Pounds(500), Pounds(200)); got != Pounds(300) {
		t.Fatalf("got %v", got)
	}
	if got := Outstanding(Pounds(500), Pounds(900)); !got.IsZero() {
		t.Fatalf("outstanding should never be negative, got %v", got)
	}
}

func TestObligationSkipsInactive(t *testing.T) {
	sps := []Sponsorship{
		{FixedAmount: Pounds(300), Status: StatusActive},
		{FixedAmount: Pounds(200), Status: StatusActive},
		{FixedAmount: Pounds(900), Status: StatusInactive},
	}
	if got := Obligation(sps); got != Pounds(500) {
		t.Fatalf("Obligation = %v", got)
	}
}

func TestPendingCollections(t *testing.T) {
	month := Month{2026, 4}
	in := PendingInput{
		Month: month,
		Sponsors: []Sponsor{
			{ID: "s1", Name: "سعيد"},
			{ID: "s2", Name: "باسم"},
			{ID: "s3", Name: "زياد"},
			{ID: "v", Name: "صدقات", LegacyID: VirtualSadaqatLegacyID},
		},
		Sponsorships: []Sponsorship{
			{SponsorID: "s1", FixedAmount: Pounds(500), Status: StatusActive},
			{SponsorID: "s2", FixedAmount: Pounds(300), Status: StatusActive},
			{SponsorID: "s2", FixedAmount: Pounds(200), Status: StatusActive},
			{SponsorID: "s3", FixedAmount: Pounds(400), Status: StatusActive},
			{SponsorID: "v", FixedAmount: Pounds(1000), Status: StatusActive},
		},
		Adjustments: []Adjustment{
			{SponsorID: "s1", Month: month, Type: OneTimeExtra, Amount: Pounds(100)},
			{SponsorID: "s1", Month: month.Next(), Type: OneTimeExtra, Amount: Pounds(999)},
			{SponsorID: "s2", Month: month, Type: PermanentIncrease, Amount: Pounds(999)},
		},
		Collections: []Collection{
			{SponsorID: "s1", Month: month, Amount: Pounds(200)},
			{SponsorID: "s3", Month: month, Amount: Pounds(400)},
			{SponsorID: "s2", Month: month.Add(-1), Amount: Pounds(500)},
		},
	}

	rows := PendingCollections(in)
	if len(rows) != 2 {
		t.Fatalf("expected 2 pending sponsors, got %d", len(rows))
	}
	if rows[0].Sponsor.ID != "s2" || rows[1].Sponsor.ID != "s1" {
		t.Fatalf("unexpected order: %s, %s", rows[0].Sponsor.Name, rows[1].Sponsor.Name)
	}
	if rows[0].Outstanding != Pounds(500) {
		t.Fatalf("s2 outstanding = %v", rows[0].Outstanding)
	}
	r := rows[1]
	if r.Fixed != Pounds(500) || r.Extras != Pounds(100) || r.Obligation != Pounds(600) ||
		r.Collected != Pounds(200) || r.Outstanding != Pounds(400) {
		t.Fatalf("unexpected s1 row: %+v", r)
	}
	for _, row := range rows {
		want := Outstanding(row.Obligation, row.Collected)
		if row.Outstanding != want {
			t.Fatalf("outstanding mismatch for %s", row.Sponsor.Name)
		}
	}
}

func TestSummarizeConfirmations(t *testing.T) {
	ops := []Operator{{ID: "o1", Name: "محمود"}, {ID: "o2", Name: "أمل"}}
	confs := []Confirmation{
		{SponsorID: "s1", OperatorID: "o1", Amount: Pounds(100)},
		{SponsorID: "s2", OperatorID: "o2", Amount: Pounds(50)},
		{SponsorID: "s3", OperatorID: "o1", Amount: Pounds(25)},
		{SponsorID: "s4", Amount: Pounds(10)},
	}
	sum := SummarizeConfirmations(confs, ops)
	if sum.Total != Pounds(185) {
		t.Fatalf("Total = %v", sum.Total)
	}
	if len(sum.Unassigned) != 1 || sum.Unassigned[0].SponsorID != "s4" {
		t.Fatalf("unexpected unassigned: %+v", sum.Unassigned)
	}
	if len(sum.ByOperator) != 2 {
		t.Fatalf("expected 2 operators, got %d", len(sum.ByOperator))
	}
	for _, o := range sum.ByOperator {
		switch o.OperatorID {
		case "o1":
			if o.Count != 2 || o.Total != Pounds(125) {
				t.Fatalf("o1 = %+v", o)
			}
		case "o2":
			if o.Count != 1 || o.Total != Pounds(50) {
				t.Fatalf("o2 = %+v", o)
			}
		}
	}
}
