package core

import "testing"

func sadaqatFixture() []SadaqatEntry {
	mar, apr := Month{2026, 3}, Month{2026, 4}
	return []SadaqatEntry{
		{Type: Inflow, Amount: Pounds(1000), Month: mar, Cause: "حالات طبية"},
		{Type: Outflow, Amount: Pounds(400), Month: mar, Cause: DestinationKafalaCase},
		{Type: Inflow, Amount: Pounds(500), Month: apr, Cause: "إفطار رمضان"},
		{Type: Outflow, Amount: Pounds(300), Month: apr, Cause: DestinationOneTime},
		{Type: Outflow, Amount: Pounds(50), Month: apr},
	}
}

func TestSummarizeSadaqat(t *testing.T) {
	entries := sadaqatFixture()

	all := SummarizeSadaqat(entries, MonthFilter{All: true})
	if all.In != Pounds(1500) || all.Out != Pounds(750) || all.Balance != Pounds(750) {
		t.Fatalf("all = %+v", all)
	}

	apr := SummarizeSadaqat(entries, MonthFilter{Month: Month{2026, 4}})
	if apr.In != Pounds(500) || apr.Out != Pounds(350) {
		t.Fatalf("april = %+v", apr)
	}
	if apr.Balance != all.Balance {
		t.Fatalf("balance should be cumulative, got %v", apr.Balance)
	}
}

func TestCauseBreakdown(t *testing.T) {
	got := CauseBreakdown(sadaqatFixture())
	if len(got) != 4 {
		t.Fatalf("expected 4 causes, got %d: %+v", len(got), got)
	}
	if got[0].Cause != "حالات طبية" || got[0].In != Pounds(1000) {
		t.Fatalf("first cause = %+v", got[0])
	}
	if got[1].Cause != "حالات كفالة" || got[1].Out != Pounds(700) {
		t.Fatalf("kafala causes should be merged, got %+v", got[1])
	}
	if got[3].Cause != "غير محدد" || got[3].Out != Pounds(50) {
		t.Fatalf("empty cause should be unspecified, got %+v", got[3])
	}
}

func TestGroupByMonth(t *testing.T) {
	groups := GroupByMonth(sadaqatFixture(), Outflow)
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].Month != (Month{2026, 4}) || groups[0].Total != Pounds(350) || len(groups[0].Entries) != 2 {
		t.Fatalf("newest group = %+v", groups[0])
	}
	if groups[1].Month != (Month{2026, 3}) {
		t.Fatalf("second group month = %v", groups[1].Month)
	}
}

func TestAllocate(t *testing.T) {
	outs := []SadaqatEntry{{Amount: Pounds(300)}, {Amount: Pounds(200)}}
	cases := []struct {
		inflow    int64
		remaining int64
		full      bool
	}{
		{1000, 500, false},
		{500, 0, true},
		{400, -100, true},
		{0, -500, false},
	}
	for _, tc := range cases {
		a := Allocate(Pounds(tc.inflow), outs)
		if a.Allocated != Pounds(500) || a.Remaining != Pounds(tc.remaining) || a.FullyAllocated != tc.full {
			t.Fatalf("Allocate(%d) = %+v", tc.inflow, a)
		}
	}
}

func TestCausesList(t *testing.T) {
	if len(Causes) != 13 {
		t.Fatalf("expected 13 causes, got %d", len(Causes))
	}
	if CauseLabel("كسوة عيد") != "كسوة عيد" {
		t.Fatalf("named causes should pass through")
	}
}
